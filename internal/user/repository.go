package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Masterminds/squirrel"
)

// Repository is the record store. It assigns ids and timestamps and enforces
// email uniqueness; lookups of absent rows return (nil, nil) rather than an
// error so callers decide the not-found policy.
type Repository interface {
	Create(ctx context.Context, name, email string) (User, error)
	FindByID(ctx context.Context, id int64) (*User, error)
	Update(ctx context.Context, id int64, name, email string) (*User, error)
	Delete(ctx context.Context, id int64) (*User, error)
	FindAll(ctx context.Context) ([]User, error)
}

const userColumns = "id, name, email, created_at, updated_at"

// SQLRepository implements Repository over database/sql. The statement
// builder carries the placeholder format, so the same code serves postgres
// (Dollar) and the sqlite test store (Question).
type SQLRepository struct {
	db *sql.DB
	qb squirrel.StatementBuilderType
}

func NewSQLRepository(db *sql.DB, qb squirrel.StatementBuilderType) *SQLRepository {
	return &SQLRepository{db: db, qb: qb}
}

func (r *SQLRepository) Create(ctx context.Context, name, email string) (User, error) {
	query, args, err := r.qb.
		Insert("users").
		Columns("name", "email").
		Values(name, email).
		Suffix("RETURNING " + userColumns).
		ToSql()

	if err != nil {
		return User{}, err
	}

	var user User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if err != nil {
		return User{}, err
	}

	return user, nil
}

func (r *SQLRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	query, args, err := r.qb.
		Select("id", "name", "email", "created_at", "updated_at").
		From("users").
		Where(squirrel.Eq{"id": id}).
		ToSql()

	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *SQLRepository) Update(ctx context.Context, id int64, name, email string) (*User, error) {
	query, args, err := r.qb.
		Update("users").
		Set("name", name).
		Set("email", email).
		Set("updated_at", squirrel.Expr("CURRENT_TIMESTAMP")).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		ToSql()

	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *SQLRepository) Delete(ctx context.Context, id int64) (*User, error) {
	query, args, err := r.qb.
		Delete("users").
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + userColumns).
		ToSql()

	if err != nil {
		return nil, err
	}

	var user User
	err = r.db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.CreatedAt,
		&user.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, err
	}

	return &user, nil
}

func (r *SQLRepository) FindAll(ctx context.Context) ([]User, error) {
	query, args, err := r.qb.
		Select("id", "name", "email", "created_at", "updated_at").
		From("users").
		OrderBy("id").
		ToSql()

	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []User{}

	for rows.Next() {
		var user User

		err = rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt, &user.UpdatedAt)
		if err != nil {
			return nil, err
		}

		users = append(users, user)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return users, nil
}

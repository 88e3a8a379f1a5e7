package database

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	sqldblogger "github.com/simukti/sqldb-logger"
	"github.com/simukti/sqldb-logger/logadapter/zerologadapter"
	"github.com/uptrace/opentelemetry-go-extra/otelsql"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"userapi/pkg/config"
)

// Open connects to postgres through the pgx stdlib driver. Production wraps
// the driver with otelsql so every store call shows up as a child span of
// the request; development wraps it with sqldb-logger instead, printing each
// query through zerolog.
func Open(cfg *config.Config) (*sql.DB, error) {
	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}

	var db *sql.DB
	var err error

	if cfg.IsDevelopment() {
		queryLogger := zerologadapter.New(zerolog.New(os.Stdout).With().Timestamp().Logger())
		db = sqldblogger.OpenDriver(cfg.DatabaseURL, stdlib.GetDefaultDriver(), queryLogger)
	} else {
		db, err = otelsql.Open("pgx", cfg.DatabaseURL,
			otelsql.WithAttributes(semconv.DBSystemPostgreSQL),
			otelsql.WithDBName("users"),
		)
		if err != nil {
			return nil, err
		}
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func RunMigrations(db *sql.DB, migrationsPath string) error {
	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://"+migrationsPath,
		"postgres",
		driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}

	return nil
}

// Builder returns the statement builder for postgres placeholders.
func Builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

package user

import (
	"context"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"userapi/internal/cache"
	"userapi/internal/shared"
	"userapi/pkg/tracing"
)

// ErrUserNotFound is returned when a lookup, update or delete matches no row.
var ErrUserNotFound = shared.NotFound("User not found")

const cacheKeyPrefix = "user"

// Service orchestrates the cache-aside flow between the record store and the
// cache. Reads consult the cache first and repopulate it with a bounded TTL
// on a miss; writes go to the store first and only touch the cache once the
// store has committed; deletes invalidate after the store delete succeeds.
// Store-operation metrics time the store call only, never the cache
// round-trip.
type Service struct {
	repo    Repository
	cache   cache.Store
	metrics *shared.AppMetrics
	logger  *otelzap.Logger
	readTTL time.Duration
}

func NewService(repo Repository, store cache.Store, metrics *shared.AppMetrics, logger *otelzap.Logger, readTTL time.Duration) *Service {
	if readTTL <= 0 {
		readTTL = time.Hour
	}

	return &Service{
		repo:    repo,
		cache:   store,
		metrics: metrics,
		logger:  logger,
		readTTL: readTTL,
	}
}

func (s *Service) CreateUser(ctx context.Context, name, email string) (User, error) {
	span := trace.SpanFromContext(ctx)
	tracing.AddSpanEvent(span, "user.create.started", nil)

	start := time.Now()
	user, err := s.repo.Create(ctx, name, email)
	s.recordStore(ctx, shared.StoreOpInsert, start, err)

	if err != nil {
		return User{}, s.fail(span, shared.StoreError(err))
	}

	// Sequenced strictly after the committed store write.
	s.cacheWrite(ctx, user, 0)

	s.metrics.RecordUserCreated(ctx)
	span.SetAttributes(attribute.Int64("app.user.id", user.ID))
	tracing.AddSpanEvent(span, "user.create.completed", []attribute.KeyValue{
		attribute.Int64("app.user.id", user.ID),
	})

	s.logger.Ctx(ctx).Info("User created", zap.Int64("user_id", user.ID))

	return user, nil
}

func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("app.user.id", id))
	tracing.AddSpanEvent(span, "user.get.started", nil)

	var cached User
	hit, err := s.cache.Get(ctx, CacheKey(id), &cached)
	if err != nil {
		return User{}, s.fail(span, err)
	}

	if hit {
		s.metrics.RecordCacheHit(ctx, cacheKeyPrefix)
		tracing.AddSpanEvent(span, "user.cache.hit", []attribute.KeyValue{
			attribute.String("cache.key", CacheKey(id)),
		})

		s.logger.Ctx(ctx).Info("User retrieved", zap.Int64("user_id", id), zap.Bool("cache_hit", true))
		return cached, nil
	}

	s.metrics.RecordCacheMiss(ctx, cacheKeyPrefix)
	tracing.AddSpanEvent(span, "user.cache.miss", nil)

	start := time.Now()
	found, err := s.repo.FindByID(ctx, id)
	s.recordStore(ctx, shared.StoreOpSelect, start, err)

	if err != nil {
		return User{}, s.fail(span, shared.StoreError(err))
	}

	if found == nil {
		return User{}, s.fail(span, ErrUserNotFound)
	}

	s.cacheWrite(ctx, *found, s.readTTL)

	tracing.AddSpanEvent(span, "user.get.completed", nil)
	s.logger.Ctx(ctx).Info("User retrieved", zap.Int64("user_id", id), zap.Bool("cache_hit", false))

	return *found, nil
}

func (s *Service) UpdateUser(ctx context.Context, id int64, name, email string) (User, error) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("app.user.id", id))
	tracing.AddSpanEvent(span, "user.update.started", nil)

	start := time.Now()
	updated, err := s.repo.Update(ctx, id, name, email)
	s.recordStore(ctx, shared.StoreOpUpdate, start, err)

	if err != nil {
		return User{}, s.fail(span, shared.StoreError(err))
	}

	if updated == nil {
		return User{}, s.fail(span, ErrUserNotFound)
	}

	s.cacheWrite(ctx, *updated, 0)

	tracing.AddSpanEvent(span, "user.update.completed", nil)
	s.logger.Ctx(ctx).Info("User updated", zap.Int64("user_id", id))

	return *updated, nil
}

func (s *Service) DeleteUser(ctx context.Context, id int64) error {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.Int64("app.user.id", id))
	tracing.AddSpanEvent(span, "user.delete.started", nil)

	start := time.Now()
	deleted, err := s.repo.Delete(ctx, id)
	s.recordStore(ctx, shared.StoreOpDelete, start, err)

	if err != nil {
		return s.fail(span, shared.StoreError(err))
	}

	if deleted == nil {
		// Nothing was removed from the store, so the cache stays untouched.
		return s.fail(span, ErrUserNotFound)
	}

	if err := s.cache.Delete(ctx, CacheKey(id)); err != nil {
		return s.fail(span, err)
	}

	s.metrics.RecordUserDeleted(ctx)
	tracing.AddSpanEvent(span, "user.delete.completed", nil)
	s.logger.Ctx(ctx).Info("User deleted", zap.Int64("user_id", id))

	return nil
}

// ListUsers always reads the full collection from the store, bypassing the
// cache.
func (s *Service) ListUsers(ctx context.Context) ([]User, error) {
	span := trace.SpanFromContext(ctx)
	tracing.AddSpanEvent(span, "user.list.started", nil)

	start := time.Now()
	users, err := s.repo.FindAll(ctx)
	s.recordStore(ctx, shared.StoreOpSelect, start, err)

	if err != nil {
		return nil, s.fail(span, shared.StoreError(err))
	}

	span.SetAttributes(attribute.Int("app.users.count", len(users)))
	tracing.AddSpanEvent(span, "user.list.completed", []attribute.KeyValue{
		attribute.Int("app.users.count", len(users)),
	})

	s.logger.Ctx(ctx).Info("Retrieved all users", zap.Int("user_count", len(users)))

	return users, nil
}

func (s *Service) recordStore(ctx context.Context, operation string, start time.Time, err error) {
	status := shared.StatusSuccess
	if err != nil {
		status = shared.StatusFailure
	}

	s.metrics.RecordStoreOperation(ctx, operation, status, time.Since(start))
}

// fail records the error on the active span and hands it back for the error
// finalizer; the span itself stays open until the middleware ends it.
func (s *Service) fail(span trace.Span, err error) error {
	tracing.AddSpanError(span, err)
	return err
}

// cacheWrite keeps the invariant that a committed store write is followed by
// either a cache write of the new value or an invalidation of the key, never
// a stale entry. Cache trouble is logged, not surfaced: the store already
// holds the truth.
func (s *Service) cacheWrite(ctx context.Context, user User, ttl time.Duration) {
	key := CacheKey(user.ID)

	if err := s.cache.Set(ctx, key, user, ttl); err != nil {
		s.logger.Ctx(ctx).Warn("cache write failed, invalidating key",
			zap.String("key", key),
			zap.Error(err),
		)

		if err := s.cache.Delete(ctx, key); err != nil {
			s.logger.Ctx(ctx).Warn("cache invalidation failed",
				zap.String("key", key),
				zap.Error(err),
			)
		}
	}
}

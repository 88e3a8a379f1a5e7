package user

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"

	"userapi/internal/cache"
	"userapi/internal/shared"
)

type fakeRepo struct {
	mu       sync.Mutex
	users    map[int64]User
	nextID   int64
	findByID int
	findAll  int
	failWith error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{users: map[int64]User{}}
}

func (r *fakeRepo) Create(ctx context.Context, name, email string) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return User{}, r.failWith
	}

	r.nextID++
	now := time.Now().UTC().Truncate(time.Second)
	user := User{ID: r.nextID, Name: name, Email: email, CreatedAt: now, UpdatedAt: now}
	r.users[user.ID] = user

	return user, nil
}

func (r *fakeRepo) FindByID(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findByID++

	if r.failWith != nil {
		return nil, r.failWith
	}

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	return &user, nil
}

func (r *fakeRepo) Update(ctx context.Context, id int64, name, email string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	user.Name = name
	user.Email = email
	user.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	r.users[id] = user

	return &user, nil
}

func (r *fakeRepo) Delete(ctx context.Context, id int64) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.failWith != nil {
		return nil, r.failWith
	}

	user, ok := r.users[id]
	if !ok {
		return nil, nil
	}

	delete(r.users, id)

	return &user, nil
}

func (r *fakeRepo) FindAll(ctx context.Context) ([]User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.findAll++

	if r.failWith != nil {
		return nil, r.failWith
	}

	users := []User{}
	for _, user := range r.users {
		users = append(users, user)
	}

	return users, nil
}

type ServiceSuite struct {
	suite.Suite
	repo     *fakeRepo
	redis    *miniredis.Miniredis
	registry *prometheus.Registry
	service  *Service
}

func (s *ServiceSuite) SetupTest() {
	s.repo = newFakeRepo()
	s.redis = miniredis.RunT(s.T())
	s.registry = prometheus.NewRegistry()

	logger := otelzap.New(zap.NewNop())
	store := cache.NewRedisStore(s.redis.Addr(), "", logger)
	metrics := shared.NewAppMetrics(s.registry)

	s.service = NewService(s.repo, store, metrics, logger, time.Hour)
}

func (s *ServiceSuite) counterValue(name string, labels map[string]string) float64 {
	return counterValue(s.T(), s.registry, name, labels)
}

// counterValue reads a counter back through the registry, since the
// instruments themselves are not exported.
func counterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()

	families, err := registry.Gather()
	require.NoError(t, err)

	for _, family := range families {
		if family.GetName() != name {
			continue
		}

		for _, metric := range family.GetMetric() {
			matched := 0
			for _, pair := range metric.GetLabel() {
				if want, ok := labels[pair.GetName()]; ok && want == pair.GetValue() {
					matched++
				}
			}

			if matched == len(labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}

	return 0
}

func (s *ServiceSuite) TestCreateUserPopulatesCache() {
	ctx := context.Background()

	created, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)
	assert.NotZero(s.T(), created.ID)

	// The read right after a create must come from the cache, not the store.
	got, err := s.service.GetUser(ctx, created.ID)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), created, got)
	assert.Equal(s.T(), 0, s.repo.findByID)
	assert.Equal(s.T(), float64(1), s.counterValue("cache_hits_total", map[string]string{"key_prefix": "user"}))
}

func (s *ServiceSuite) TestCreateUserCacheEntryHasNoTTL() {
	created, err := s.service.CreateUser(context.Background(), "Ada", "ada@example.com")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), time.Duration(0), s.redis.TTL(CacheKey(created.ID)))
}

func (s *ServiceSuite) TestGetUserCacheMissPopulatesWithTTL() {
	ctx := context.Background()

	seeded, err := s.repo.Create(ctx, "Grace", "grace@example.com")
	require.NoError(s.T(), err)

	got, err := s.service.GetUser(ctx, seeded.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), seeded, got)
	assert.Equal(s.T(), 1, s.repo.findByID)
	assert.Equal(s.T(), time.Hour, s.redis.TTL(CacheKey(seeded.ID)))

	// Second read is inside the TTL window and must not touch the store.
	_, err = s.service.GetUser(ctx, seeded.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, s.repo.findByID)
}

func (s *ServiceSuite) TestGetUserNotFound() {
	_, err := s.service.GetUser(context.Background(), 999)

	assert.ErrorIs(s.T(), err, ErrUserNotFound)
	assert.Equal(s.T(), float64(1), s.counterValue("cache_misses_total", map[string]string{"key_prefix": "user"}))
}

func (s *ServiceSuite) TestUpdateUserRefreshesCache() {
	ctx := context.Background()

	created, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)

	updated, err := s.service.UpdateUser(ctx, created.ID, "Ada Lovelace", "ada@engine.example.com")
	require.NoError(s.T(), err)

	got, err := s.service.GetUser(ctx, created.ID)
	require.NoError(s.T(), err)

	assert.Equal(s.T(), updated, got)
	assert.Equal(s.T(), "Ada Lovelace", got.Name)
	assert.Equal(s.T(), 0, s.repo.findByID)
}

func (s *ServiceSuite) TestUpdateUserNotFound() {
	_, err := s.service.UpdateUser(context.Background(), 999, "Nobody", "nobody@example.com")

	assert.ErrorIs(s.T(), err, ErrUserNotFound)
}

func (s *ServiceSuite) TestDeleteUserInvalidatesCache() {
	ctx := context.Background()

	created, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)
	require.True(s.T(), s.redis.Exists(CacheKey(created.ID)))

	require.NoError(s.T(), s.service.DeleteUser(ctx, created.ID))
	assert.False(s.T(), s.redis.Exists(CacheKey(created.ID)))

	// The read after a delete misses the cache and finds no row.
	_, err = s.service.GetUser(ctx, created.ID)
	assert.ErrorIs(s.T(), err, ErrUserNotFound)
	assert.Equal(s.T(), 1, s.repo.findByID)
}

func (s *ServiceSuite) TestDeleteUserNotFoundLeavesCacheUntouched() {
	ctx := context.Background()

	created, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)

	err = s.service.DeleteUser(ctx, created.ID+1)

	assert.ErrorIs(s.T(), err, ErrUserNotFound)
	assert.True(s.T(), s.redis.Exists(CacheKey(created.ID)))
}

func (s *ServiceSuite) TestFailedStoreWriteNeverMutatesCache() {
	s.repo.failWith = errors.New("connection reset")

	_, err := s.service.CreateUser(context.Background(), "Ada", "ada@example.com")

	require.Error(s.T(), err)
	assert.Equal(s.T(), shared.KindStore, shared.KindOf(err))
	assert.Empty(s.T(), s.redis.Keys())
	assert.Equal(s.T(), float64(1), s.counterValue("store_operations_total",
		map[string]string{"operation": shared.StoreOpInsert, "status": shared.StatusFailure}))
}

func (s *ServiceSuite) TestListUsersBypassesCache() {
	ctx := context.Background()

	_, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)
	_, err = s.service.CreateUser(ctx, "Grace", "grace@example.com")
	require.NoError(s.T(), err)

	users, err := s.service.ListUsers(ctx)
	require.NoError(s.T(), err)
	assert.Len(s.T(), users, 2)
	assert.Equal(s.T(), 1, s.repo.findAll)

	_, err = s.service.ListUsers(ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 2, s.repo.findAll)
}

func (s *ServiceSuite) TestConcurrentMissesBothSucceed() {
	ctx := context.Background()

	seeded, err := s.repo.Create(ctx, "Grace", "grace@example.com")
	require.NoError(s.T(), err)

	var wg sync.WaitGroup
	results := make([]error, 2)

	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = s.service.GetUser(ctx, seeded.ID)
		}(i)
	}

	wg.Wait()

	// Both readers may race through the miss path; the last cache write wins
	// and both requests return the row.
	assert.NoError(s.T(), results[0])
	assert.NoError(s.T(), results[1])
	assert.True(s.T(), s.redis.Exists(CacheKey(seeded.ID)))
}

func (s *ServiceSuite) TestStoreOperationMetricsLabeled() {
	ctx := context.Background()

	created, err := s.service.CreateUser(ctx, "Ada", "ada@example.com")
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.service.DeleteUser(ctx, created.ID))

	assert.Equal(s.T(), float64(1), s.counterValue("store_operations_total",
		map[string]string{"operation": shared.StoreOpInsert, "status": shared.StatusSuccess}))
	assert.Equal(s.T(), float64(1), s.counterValue("store_operations_total",
		map[string]string{"operation": shared.StoreOpDelete, "status": shared.StatusSuccess}))
	assert.Equal(s.T(), float64(1), s.counterValue("users_created_total", nil))
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/mbeoliero/relay/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCacheRepo(t *testing.T, ttl time.Duration) (*ProfileRepo, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewProfileRepo(nil, rdb, ttl), mr
}

func strPtr(s string) *string { return &s }

func TestProfileCacheRoundTrip(t *testing.T) {
	repo, _ := newCacheRepo(t, time.Minute)
	ctx := context.Background()

	assert.Nil(t, repo.cacheGet(ctx, "user-1"))

	repo.cachePut(ctx, &entity.Profile{
		Id:          "user-1",
		Email:       "alice@example.com",
		DisplayName: strPtr("Alice"),
	})

	got := repo.cacheGet(ctx, "user-1")
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.Id)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.Equal(t, "Alice", got.Title())
}

func TestProfileCacheExpiry(t *testing.T) {
	repo, mr := newCacheRepo(t, time.Minute)
	ctx := context.Background()

	repo.cachePut(ctx, &entity.Profile{Id: "user-1", Email: "alice@example.com"})
	require.NotNil(t, repo.cacheGet(ctx, "user-1"))

	mr.FastForward(2 * time.Minute)
	assert.Nil(t, repo.cacheGet(ctx, "user-1"))
}

func TestProfileCacheCorruptedEntry(t *testing.T) {
	repo, mr := newCacheRepo(t, time.Minute)

	require.NoError(t, mr.Set(repo.cacheKey("user-1"), "{not json"))
	assert.Nil(t, repo.cacheGet(context.Background(), "user-1"))
}

func TestProfileGetByIdsAllCached(t *testing.T) {
	// db is nil: the cached path must never touch it
	repo, _ := newCacheRepo(t, time.Minute)
	ctx := context.Background()

	repo.cachePut(ctx, &entity.Profile{Id: "user-1", Email: "alice@example.com"})
	repo.cachePut(ctx, &entity.Profile{Id: "user-2", Email: "bob@example.com"})

	got, err := repo.GetByIds(ctx, []string{"user-1", "user-2"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "alice@example.com", got["user-1"].Email)
	assert.Equal(t, "bob@example.com", got["user-2"].Email)
}

func TestProfileGetByIdCacheHit(t *testing.T) {
	repo, _ := newCacheRepo(t, time.Minute)
	ctx := context.Background()

	repo.cachePut(ctx, &entity.Profile{Id: "user-1", Email: "alice@example.com"})

	got, err := repo.GetById(ctx, "user-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice@example.com", got.Email)
}

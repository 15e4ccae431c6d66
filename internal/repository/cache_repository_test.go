package repository

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/jobfair-forms-api/pkg/errors"
)

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, nil)
	ctx := context.Background()

	var dest map[string]string
	require.ErrorIs(t, repo.Get(ctx, "forms:public:1", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(ctx, "forms:public:1", map[string]string{"a": "b"}, time.Minute))
	assert.NoError(t, repo.Delete(ctx, "forms:public:1"))
	assert.NoError(t, repo.DeleteByPattern(ctx, "forms:public:*"))
	assert.Error(t, repo.Ping(ctx))
	assert.NoError(t, repo.Close())
}

func TestCacheRepositoryWrapsTransportErrors(t *testing.T) {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
		MaxRetries:  -1,
	})
	repo := NewCacheRepository(client, nil)
	t.Cleanup(func() {
		_ = repo.Close()
	})
	ctx := context.Background()

	var dest map[string]string
	err := repo.Get(ctx, "forms:public:1", &dest)
	require.Error(t, err)
	assert.NotErrorIs(t, err, appErrors.ErrCacheMiss)
	assert.Contains(t, err.Error(), "redis get forms:public:1")

	assert.ErrorContains(t, repo.Set(ctx, "forms:public:1", "x", time.Minute), "redis set")
	assert.ErrorContains(t, repo.DeleteByPattern(ctx, "forms:public:*"), "redis scan pattern")
	assert.Error(t, repo.Ping(ctx))
	assert.ErrorContains(t, repo.Set(ctx, "bad", make(chan int), time.Minute), "marshal cache value")
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mind-engage/examvault/internal/exam"
	"github.com/mind-engage/examvault/internal/logger"
)

type fakeRedis struct {
	mu     sync.Mutex
	data   map[string]string
	getErr error
}

func (f *fakeRedis) Get(_ context.Context, key string) *redis.StringCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value interface{}, _ time.Duration) *redis.StatusCmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	switch v := value.(type) {
	case []byte:
		f.data[key] = string(v)
	default:
		f.data[key] = fmt.Sprint(v)
	}
	return redis.NewStatusResult("OK", nil)
}

type countingFetcher struct {
	calls atomic.Int32
	env   Envelope
	err   error
}

func (c *countingFetcher) Fetch(context.Context, string) (Envelope, error) {
	c.calls.Add(1)
	return c.env, c.err
}

func TestCachedFetcher_ServesFromCache(t *testing.T) {
	next := &countingFetcher{env: Envelope{IV: "aa", EncryptedData: "bb"}}
	rdb := &fakeRedis{data: map[string]string{}}
	c := NewCachedFetcher(next, rdb, time.Minute, logger.Discard())

	for i := 0; i < 3; i++ {
		env, err := c.Fetch(context.Background(), "QmX")
		require.NoError(t, err)
		assert.Equal(t, next.env, env)
	}
	assert.Equal(t, int32(1), next.calls.Load())
	assert.Contains(t, rdb.data, envelopeKeyPrefix+"QmX")
}

func TestCachedFetcher_RedisDownFallsThrough(t *testing.T) {
	next := &countingFetcher{env: Envelope{IV: "aa", EncryptedData: "bb"}}
	rdb := &fakeRedis{data: map[string]string{}, getErr: errors.New("connection refused")}
	c := NewCachedFetcher(next, rdb, time.Minute, logger.Discard())

	_, err := c.Fetch(context.Background(), "QmX")
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "QmX")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

func TestCachedFetcher_ErrorsAreNotCached(t *testing.T) {
	next := &countingFetcher{err: fmt.Errorf("gateway: %w", exam.ErrContentUnavailable)}
	rdb := &fakeRedis{data: map[string]string{}}
	c := NewCachedFetcher(next, rdb, time.Minute, logger.Discard())

	_, err := c.Fetch(context.Background(), "QmX")
	assert.ErrorIs(t, err, exam.ErrContentUnavailable)
	assert.Empty(t, rdb.data)
}

func TestCachedFetcher_NilRedis(t *testing.T) {
	next := &countingFetcher{env: Envelope{IV: "aa", EncryptedData: "bb"}}
	c := NewCachedFetcher(next, nil, 0, logger.Discard())

	_, err := c.Fetch(context.Background(), "QmX")
	require.NoError(t, err)
	_, err = c.Fetch(context.Background(), "QmX")
	require.NoError(t, err)
	assert.Equal(t, int32(2), next.calls.Load())
}

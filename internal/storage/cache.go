package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/mind-engage/examvault/internal/exam"
)

const envelopeKeyPrefix = "examvault:envelope:"

// cacheClient is the subset of *redis.Client the envelope cache uses.
type cacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// CachedFetcher collapses concurrent fetches of the same address and,
// when a redis client is configured, keeps the ciphertext envelope for ttl.
// Content addresses are immutable, so a cached envelope never goes stale.
// Only ciphertext passes through here.
type CachedFetcher struct {
	next  Fetcher
	rdb   cacheClient
	ttl   time.Duration
	group singleflight.Group
	log   logrus.FieldLogger
}

// NewCachedFetcher wraps next. rdb may be nil.
func NewCachedFetcher(next Fetcher, rdb cacheClient, ttl time.Duration, log logrus.FieldLogger) *CachedFetcher {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &CachedFetcher{next: next, rdb: rdb, ttl: ttl, log: log}
}

func (c *CachedFetcher) Fetch(ctx context.Context, address string) (Envelope, error) {
	if env, ok := c.lookup(ctx, address); ok {
		return env, nil
	}
	ch := c.group.DoChan(address, func() (interface{}, error) {
		// shared by every waiter, so one caller's cancellation must not
		// fail the others; the wrapped fetcher applies its own timeout
		env, err := c.next.Fetch(context.WithoutCancel(ctx), address)
		if err != nil {
			return Envelope{}, err
		}
		c.store(context.WithoutCancel(ctx), address, env)
		return env, nil
	})
	select {
	case <-ctx.Done():
		return Envelope{}, fmt.Errorf("fetch %s: %v: %w", address, ctx.Err(), exam.ErrContentUnavailable)
	case res := <-ch:
		if res.Err != nil {
			return Envelope{}, res.Err
		}
		return res.Val.(Envelope), nil
	}
}

func (c *CachedFetcher) lookup(ctx context.Context, address string) (Envelope, bool) {
	if c.rdb == nil {
		return Envelope{}, false
	}
	raw, err := c.rdb.Get(ctx, envelopeKeyPrefix+address).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.WithError(err).WithField("address", address).Warn("envelope cache read failed")
		}
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil || env.IV == "" || env.EncryptedData == "" {
		return Envelope{}, false
	}
	return env, true
}

func (c *CachedFetcher) store(ctx context.Context, address string, env Envelope) {
	if c.rdb == nil {
		return
	}
	buf, err := json.Marshal(env)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, envelopeKeyPrefix+address, buf, c.ttl).Err(); err != nil {
		c.log.WithError(err).WithField("address", address).Warn("envelope cache write failed")
	}
}

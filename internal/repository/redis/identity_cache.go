// Package redis holds the read-through identity cache that shields the
// primary store from per-request account lookups.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"github.com/soloviev-dev/contactio/internal/domain/user"
)

type Config struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type Client struct {
	rdb *redis.Client
}

func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.Timeout,
		ReadTimeout:  cfg.Timeout,
		WriteTimeout: cfg.Timeout,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &Client{rdb: rdb}, nil
}

func (c *Client) Close() error { return c.rdb.Close() }

func (c *Client) Ping(ctx context.Context) error { return c.rdb.Ping(ctx).Err() }

var _ user.Cache = (*IdentityCache)(nil)

var (
	mHit = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_hits_total",
		Help: "Identity cache lookups served from redis.",
	})
	mMiss = promauto.NewCounter(prometheus.CounterOpts{
		Name: "identity_cache_misses_total",
		Help: "Identity cache lookups that fell through to the store.",
	})
)

// IdentityCache maps an account email to a JSON user snapshot with a fixed
// TTL. Expiry is enforced by redis itself; concurrent Put for the same key
// is last-write-wins.
type IdentityCache struct {
	rdb *redis.Client
}

func NewIdentityCache(c *Client) *IdentityCache {
	return &IdentityCache{rdb: c.rdb}
}

func key(email string) string { return "user:" + email }

func (c *IdentityCache) Get(ctx context.Context, email string) (*user.User, error) {
	raw, err := c.rdb.Get(ctx, key(email)).Bytes()
	if errors.Is(err, redis.Nil) {
		mMiss.Inc()
		return nil, user.ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("cache get: %w", err)
	}

	var snap user.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		// unreadable entry counts as a miss, the store read repopulates it
		mMiss.Inc()
		return nil, user.ErrCacheMiss
	}
	mHit.Inc()
	return snap.User(), nil
}

func (c *IdentityCache) Put(ctx context.Context, email string, u *user.User, ttl time.Duration) error {
	raw, err := json.Marshal(u.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := c.rdb.Set(ctx, key(email), raw, ttl).Err(); err != nil {
		return fmt.Errorf("cache put: %w", err)
	}
	return nil
}

func (c *IdentityCache) Invalidate(ctx context.Context, email string) error {
	if err := c.rdb.Del(ctx, key(email)).Err(); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	return nil
}

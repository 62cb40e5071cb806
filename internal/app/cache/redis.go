/*
Package cache exports registry snapshots to Redis so other tools can read the live state.
*/
package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config holds the Redis connection settings.
type Config struct {
	Addr     string
	Password string
	DB       int

	// KeyPrefix is prepended to snapshot names, e.g. "roomrelay:".
	KeyPrefix string
}

// RedisSink stores each snapshot as a plain string key.
type RedisSink struct {
	client *redis.Client
	prefix string
}

// NewRedisSink connects to Redis and verifies the connection with PING.
func NewRedisSink(ctx context.Context, cfg Config) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis sink: ping %s: %w", cfg.Addr, err)
	}

	return &RedisSink{client: client, prefix: cfg.KeyPrefix}, nil
}

// Key returns the Redis key for the named snapshot.
func (s *RedisSink) Key(name string) string {
	return s.prefix + name
}

// Put overwrites the snapshot key.
func (s *RedisSink) Put(ctx context.Context, name string, body []byte) error {
	if err := s.client.Set(ctx, s.Key(name), body, 0).Err(); err != nil {
		return fmt.Errorf("redis sink: set %s: %w", s.Key(name), err)
	}
	return nil
}

// Get returns the stored snapshot, or nil if the key does not exist.
func (s *RedisSink) Get(ctx context.Context, name string) ([]byte, error) {
	body, err := s.client.Get(ctx, s.Key(name)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis sink: get %s: %w", s.Key(name), err)
	}
	return body, nil
}

// Close closes the client.
func (s *RedisSink) Close() error {
	return s.client.Close()
}

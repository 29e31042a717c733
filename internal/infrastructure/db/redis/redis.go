package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTimeout    = 5 * time.Second
	defaultClientName = "therapy-auth"
)

// Config describes the Redis instance backing the token denylist.
type Config struct {
	Addr     string
	Password string
	DB       int

	// PoolSize caps open connections; zero keeps go-redis's default.
	PoolSize     int
	MinIdleConns int

	// Timeout bounds the startup ping, OpTimeout each read and write.
	Timeout   time.Duration
	OpTimeout time.Duration
}

func (c Config) options() *redis.Options {
	opts := &redis.Options{
		Addr:         c.Addr,
		Password:     c.Password,
		DB:           c.DB,
		ClientName:   defaultClientName,
		PoolSize:     c.PoolSize,
		MinIdleConns: c.MinIdleConns,
	}
	if c.OpTimeout > 0 {
		opts.ReadTimeout = c.OpTimeout
		opts.WriteTimeout = c.OpTimeout
	}
	return opts
}

// Connect opens the denylist client and pings it before returning.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(cfg.options())

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr, err)
	}

	return client, nil
}

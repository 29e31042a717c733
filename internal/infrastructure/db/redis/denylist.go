package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mindspace/therapy-platform/internal/core/ports"
)

// DefaultKeyPrefix namespaces denylist keys: <prefix><token_id>.
const DefaultKeyPrefix = "revoked:"

// Denylist records revoked session tokens in Redis.
type Denylist struct {
	client *redis.Client
	prefix string
	now    func() time.Time
}

// DenylistOption customises a Denylist.
type DenylistOption func(*Denylist)

// WithKeyPrefix replaces DefaultKeyPrefix, e.g. to share one Redis database
// between environments. An empty prefix is ignored.
func WithKeyPrefix(prefix string) DenylistOption {
	return func(d *Denylist) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

var _ ports.TokenDenylist = (*Denylist)(nil)

// NewDenylist creates a Denylist wrapping the given Redis client.
func NewDenylist(client *redis.Client, opts ...DenylistOption) *Denylist {
	d := &Denylist{client: client, prefix: DefaultKeyPrefix, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Revoke marks tokenID as revoked until the token would have expired. Tokens
// that are already past their expiry need no entry.
func (d *Denylist) Revoke(ctx context.Context, tokenID string, until time.Time) error {
	if tokenID == "" {
		return errors.New("revoke: empty token id")
	}
	ttl := until.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, d.key(tokenID), "1", ttl).Err(); err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked.
func (d *Denylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	n, err := d.client.Exists(ctx, d.key(tokenID)).Result()
	if err != nil {
		return false, fmt.Errorf("denylist check: %w", err)
	}
	return n > 0, nil
}

func (d *Denylist) key(tokenID string) string {
	return d.prefix + tokenID
}

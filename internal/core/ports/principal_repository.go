package ports

import (
	"context"
	"time"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// PrincipalRepository is the Credential Store. Uniqueness of email and
// username is enforced by the store itself.
type PrincipalRepository interface {
	// Create inserts p in a single write and returns it with its assigned ID.
	// Duplicates fail with domain.ErrEmailTaken or domain.ErrUsernameTaken.
	Create(ctx context.Context, p *domain.Principal) (*domain.Principal, error)
	FindByEmail(ctx context.Context, email string) (*domain.Principal, error)
	FindByID(ctx context.Context, id string) (*domain.Principal, error)
	List(ctx context.Context, offset, limit int) ([]*domain.Principal, int64, error)
}

// TokenDenylist remembers token IDs that were revoked before their expiry.
type TokenDenylist interface {
	Revoke(ctx context.Context, tokenID string, until time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

package ports

import (
	"context"
	"time"

	"github.com/mindspace/therapy-platform/internal/core/domain"
)

// SignupInput is the validated signup payload handed to AuthService.
type SignupInput struct {
	Email    string
	Password string
	Username string
	Role     domain.Role
	Profile  domain.Profile
}

// LoginResult is what a successful login returns to the transport layer.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	Role      domain.Role
	Principal *domain.Principal
}

type AuthService interface {
	Signup(ctx context.Context, in SignupInput) (*domain.Principal, error)
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	Authenticate(ctx context.Context, rawToken string) (domain.Identity, error)
	Logout(ctx context.Context, id domain.Identity) error
	Profile(ctx context.Context, principalID string) (*domain.Principal, error)
}

// DirectoryService is the admin-only view over the Credential Store.
type DirectoryService interface {
	ListPrincipals(ctx context.Context, offset, limit int) ([]*domain.Principal, int64, error)
	GetPrincipal(ctx context.Context, id string) (*domain.Principal, error)
}

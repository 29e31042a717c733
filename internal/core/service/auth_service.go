package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
	"github.com/mindspace/therapy-platform/internal/core/security"
)

// TokenManager issues and verifies session tokens.
type TokenManager interface {
	Issue(p *domain.Principal) (security.Token, error)
	Verify(raw string) (domain.Identity, error)
	TTL() time.Duration
}

// AuthService implements signup, login, token authentication and logout.
type AuthService struct {
	repo     ports.PrincipalRepository
	hasher   security.PasswordHasher
	tokens   TokenManager
	denylist ports.TokenDenylist
	audit    ports.AuditRecorder
	log      zerolog.Logger
	now      func() time.Time
}

var _ ports.AuthService = (*AuthService)(nil)

func NewAuthService(
	repo ports.PrincipalRepository,
	hasher security.PasswordHasher,
	tokens TokenManager,
	denylist ports.TokenDenylist,
	audit ports.AuditRecorder,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		repo:     repo,
		hasher:   hasher,
		tokens:   tokens,
		denylist: denylist,
		audit:    audit,
		log:      log,
		now:      time.Now,
	}
}

// Signup registers a user or psychologist. Admins are created through CreateAdmin only.
func (s *AuthService) Signup(ctx context.Context, in ports.SignupInput) (*domain.Principal, error) {
	if in.Role == "" {
		in.Role = domain.RoleUser
	}
	if in.Role == domain.RoleAdmin || !in.Role.Valid() {
		return nil, domain.NewValidationError("role", "role must be one of: user psychologist")
	}
	return s.register(ctx, in)
}

// CreateAdmin registers a principal with the admin role.
func (s *AuthService) CreateAdmin(ctx context.Context, in ports.SignupInput) (*domain.Principal, error) {
	in.Role = domain.RoleAdmin
	return s.register(ctx, in)
}

func (s *AuthService) register(ctx context.Context, in ports.SignupInput) (*domain.Principal, error) {
	email := domain.NormalizeEmail(in.Email)
	username := strings.TrimSpace(in.Username)
	verr := &domain.ValidationError{Fields: map[string]string{}}
	// Explicit usernames never contain '@', so the email default cannot collide with one.
	if strings.Contains(username, "@") {
		verr.Fields["username"] = "username must not contain '@'"
	}
	if username == "" {
		username = email
	}

	if email == "" {
		verr.Fields["email"] = "email is required"
	}
	if in.Password == "" {
		verr.Fields["password"] = "password is required"
	}
	if len(verr.Fields) > 0 {
		return nil, verr
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		if errors.Is(err, domain.ErrValidation) {
			return nil, err
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	now := s.now().UTC()
	created, err := s.repo.Create(ctx, &domain.Principal{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         in.Role,
		Profile:      in.Profile,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			s.log.Info().Str("email", email).Err(err).Msg("signup rejected")
			return nil, err
		}
		return nil, fmt.Errorf("signup: %w", err)
	}

	s.audit.Record(domain.AuthEvent{
		Kind:        domain.EventSignup,
		PrincipalID: created.ID,
		Email:       created.Email,
		Role:        created.Role,
		At:          now,
	})
	s.log.Info().Str("principal_id", created.ID).Str("role", string(created.Role)).Msg("principal registered")

	return created.Sanitized(), nil
}

// Login checks the password of the principal registered under email and issues
// a session token. An unknown email is reported as domain.ErrUserNotFound,
// separately from a wrong password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*ports.LoginResult, error) {
	email = domain.NormalizeEmail(email)
	if email == "" || password == "" {
		verr := &domain.ValidationError{Fields: map[string]string{}}
		if email == "" {
			verr.Fields["email"] = "email is required"
		}
		if password == "" {
			verr.Fields["password"] = "password is required"
		}
		return nil, verr
	}

	p, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.recordLoginFailure(email, "", "unknown email")
			return nil, err
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	ok, err := s.hasher.Verify(password, p.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		s.recordLoginFailure(email, p.ID, "password mismatch")
		return nil, domain.ErrInvalidCredentials
	}

	if !p.IsActive {
		s.recordLoginFailure(email, p.ID, "account inactive")
		return nil, domain.ErrAccountInactive
	}

	tok, err := s.tokens.Issue(p)
	if err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}

	s.audit.Record(domain.AuthEvent{
		Kind:        domain.EventLoginSucceeded,
		PrincipalID: p.ID,
		Email:       p.Email,
		Role:        p.Role,
		At:          s.now().UTC(),
	})

	return &ports.LoginResult{
		Token:     tok.Value,
		ExpiresIn: tok.TTL,
		Role:      p.Role,
		Principal: p.Sanitized(),
	}, nil
}

func (s *AuthService) recordLoginFailure(email, principalID, detail string) {
	s.log.Info().Str("email", email).Str("reason", detail).Msg("login failed")
	s.audit.Record(domain.AuthEvent{
		Kind:        domain.EventLoginFailed,
		PrincipalID: principalID,
		Email:       email,
		Detail:      detail,
		At:          s.now().UTC(),
	})
}

// Authenticate verifies a bearer token and rejects tokens revoked by Logout.
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (domain.Identity, error) {
	id, err := s.tokens.Verify(rawToken)
	if err != nil {
		return domain.Identity{}, err
	}

	if id.TokenID != "" {
		revoked, err := s.denylist.IsRevoked(ctx, id.TokenID)
		if err != nil {
			return domain.Identity{}, fmt.Errorf("authenticate: %w", err)
		}
		if revoked {
			return domain.Identity{}, domain.ErrTokenRevoked
		}
	}

	return id, nil
}

// Logout revokes the presented token until it would have expired anyway.
func (s *AuthService) Logout(ctx context.Context, id domain.Identity) error {
	if id.TokenID == "" {
		return domain.ErrTokenInvalid
	}
	if err := s.denylist.Revoke(ctx, id.TokenID, id.ExpiresAt); err != nil {
		return fmt.Errorf("logout: %w", err)
	}

	s.audit.Record(domain.AuthEvent{
		Kind:        domain.EventLogout,
		PrincipalID: id.PrincipalID,
		Role:        id.Role,
		At:          s.now().UTC(),
	})
	return nil
}

// Profile returns the sanitized record of the authenticated principal.
func (s *AuthService) Profile(ctx context.Context, principalID string) (*domain.Principal, error) {
	p, err := s.repo.FindByID(ctx, principalID)
	if err != nil {
		return nil, err
	}
	return p.Sanitized(), nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/mindspace/therapy-platform/internal/core/domain"
	"github.com/mindspace/therapy-platform/internal/core/ports"
	"github.com/mindspace/therapy-platform/internal/core/security"
)

// ---------------------------------------------------------------------------
// Stubs
// ---------------------------------------------------------------------------

type stubPrincipalRepo struct {
	mu        sync.Mutex
	byEmail   map[string]*domain.Principal
	usernames map[string]bool
	seq       int
	findErr   error
	createErr error
}

func newStubPrincipalRepo() *stubPrincipalRepo {
	return &stubPrincipalRepo{
		byEmail:   make(map[string]*domain.Principal),
		usernames: make(map[string]bool),
	}
}

func clonePrincipal(p *domain.Principal) *domain.Principal {
	if p == nil {
		return nil
	}
	clone := *p
	return &clone
}

func (r *stubPrincipalRepo) Create(_ context.Context, p *domain.Principal) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return nil, r.createErr
	}
	if _, exists := r.byEmail[p.Email]; exists {
		return nil, domain.ErrEmailTaken
	}
	if r.usernames[p.Username] {
		return nil, domain.ErrUsernameTaken
	}
	r.seq++
	stored := clonePrincipal(p)
	stored.ID = fmt.Sprintf("p%d", r.seq)
	r.byEmail[stored.Email] = stored
	r.usernames[stored.Username] = true
	return clonePrincipal(stored), nil
}

func (r *stubPrincipalRepo) FindByEmail(_ context.Context, email string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return nil, r.findErr
	}
	p, ok := r.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clonePrincipal(p), nil
}

func (r *stubPrincipalRepo) FindByID(_ context.Context, id string) (*domain.Principal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.byEmail {
		if p.ID == id {
			return clonePrincipal(p), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *stubPrincipalRepo) List(_ context.Context, offset, limit int) ([]*domain.Principal, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	all := make([]*domain.Principal, 0, len(r.byEmail))
	for i := 1; i <= r.seq; i++ {
		for _, p := range r.byEmail {
			if p.ID == fmt.Sprintf("p%d", i) {
				all = append(all, clonePrincipal(p))
			}
		}
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (r *stubPrincipalRepo) deactivate(email string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byEmail[email].IsActive = false
}

type stubDenylist struct {
	revoked map[string]time.Time
	err     error
}

func newStubDenylist() *stubDenylist {
	return &stubDenylist{revoked: make(map[string]time.Time)}
}

func (d *stubDenylist) Revoke(_ context.Context, id string, until time.Time) error {
	if d.err != nil {
		return d.err
	}
	d.revoked[id] = until
	return nil
}

func (d *stubDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	if d.err != nil {
		return false, d.err
	}
	_, ok := d.revoked[id]
	return ok, nil
}

type recordingAudit struct {
	mu     sync.Mutex
	events []domain.AuthEvent
}

func (a *recordingAudit) Record(e domain.AuthEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
}

func (a *recordingAudit) kinds() []domain.AuthEventKind {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuthEventKind, 0, len(a.events))
	for _, e := range a.events {
		out = append(out, e.Kind)
	}
	return out
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

type authFixture struct {
	svc      *AuthService
	repo     *stubPrincipalRepo
	denylist *stubDenylist
	audit    *recordingAudit
	tokens   *security.TokenManager
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	tokens, err := security.NewTokenManager("secret", 24*time.Hour)
	if err != nil {
		t.Fatalf("token manager: %v", err)
	}
	f := &authFixture{
		repo:     newStubPrincipalRepo(),
		denylist: newStubDenylist(),
		audit:    &recordingAudit{},
		tokens:   tokens,
	}
	f.svc = NewAuthService(f.repo, security.NewBcryptHasher(bcrypt.MinCost), tokens, f.denylist, f.audit, zerolog.Nop())
	return f
}

func signup(t *testing.T, svc *AuthService, email, password string) *domain.Principal {
	t.Helper()
	p, err := svc.Signup(context.Background(), ports.SignupInput{Email: email, Password: password})
	if err != nil {
		t.Fatalf("signup %s: %v", email, err)
	}
	return p
}

// ---------------------------------------------------------------------------
// Signup
// ---------------------------------------------------------------------------

func TestAuthService_Signup_Success(t *testing.T) {
	f := newAuthFixture(t)

	p, err := f.svc.Signup(context.Background(), ports.SignupInput{
		Email:    "  Alice@Example.com ",
		Password: "secret123",
		Username: "alice",
		Role:     domain.RolePsychologist,
		Profile:  domain.Profile{Name: "Alice", Specialization: "CBT"},
	})
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	if p.PasswordHash != "" {
		t.Fatalf("returned principal must not carry the hash")
	}
	if p.Email != "alice@example.com" {
		t.Fatalf("email not normalized: %q", p.Email)
	}
	if !p.IsActive {
		t.Fatalf("new principals must be active")
	}
	if p.Role != domain.RolePsychologist || p.Profile.Specialization != "CBT" {
		t.Fatalf("unexpected principal: %+v", p)
	}

	stored := f.repo.byEmail["alice@example.com"]
	if stored.PasswordHash == "secret123" {
		t.Fatalf("expected password to be hashed")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret123")); err != nil {
		t.Fatalf("stored hash does not match password: %v", err)
	}

	if got := f.audit.kinds(); len(got) != 1 || got[0] != domain.EventSignup {
		t.Fatalf("expected a signup audit event, got %v", got)
	}
}

func TestAuthService_Signup_Defaults(t *testing.T) {
	f := newAuthFixture(t)

	p := signup(t, f.svc, "a@x.com", "secret123")
	if p.Role != domain.RoleUser {
		t.Fatalf("expected default role user, got %s", p.Role)
	}
	if p.Username != "a@x.com" {
		t.Fatalf("expected username to default to the email, got %q", p.Username)
	}
}

func TestAuthService_Signup_Validation(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	cases := []ports.SignupInput{
		{Email: "", Password: "pass"},
		{Email: "bob@example.com", Password: ""},
		{Email: "bob@example.com", Password: "pass", Role: domain.RoleAdmin},
		{Email: "bob@example.com", Password: "pass", Role: "superuser"},
	}
	for _, in := range cases {
		_, err := f.svc.Signup(ctx, in)
		if !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("input %+v: expected ErrValidation, got %v", in, err)
		}
	}
	if len(f.repo.byEmail) != 0 {
		t.Fatalf("nothing should have been persisted")
	}
}

func TestAuthService_Signup_DuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)

	signup(t, f.svc, "bob@example.com", "pass")
	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Email: "BOB@example.com", Password: "pass2"})
	if !errors.Is(err, domain.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestAuthService_Signup_DuplicateUsername(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Signup(ctx, ports.SignupInput{Email: "a@x.com", Password: "p", Username: "sam"}); err != nil {
		t.Fatalf("first signup: %v", err)
	}
	_, err := f.svc.Signup(ctx, ports.SignupInput{Email: "b@x.com", Password: "p", Username: "sam"})
	if !errors.Is(err, domain.ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestAuthService_Signup_StoreFailureIsWrapped(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.createErr = errors.New("connection reset")

	_, err := f.svc.Signup(context.Background(), ports.SignupInput{Email: "a@x.com", Password: "p"})
	if err == nil || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected an unexpected error, got %v", err)
	}
	if len(f.audit.kinds()) != 0 {
		t.Fatalf("failed signup must not be audited as a signup")
	}
}

func TestAuthService_CreateAdmin(t *testing.T) {
	f := newAuthFixture(t)

	p, err := f.svc.CreateAdmin(context.Background(), ports.SignupInput{Email: "root@x.com", Password: "pw", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("CreateAdmin: %v", err)
	}
	if p.Role != domain.RoleAdmin {
		t.Fatalf("expected admin role, got %s", p.Role)
	}
}

// ---------------------------------------------------------------------------
// Login
// ---------------------------------------------------------------------------

func TestAuthService_Login_Success(t *testing.T) {
	f := newAuthFixture(t)
	created := signup(t, f.svc, "carol@example.com", "s3cret")

	res, err := f.svc.Login(context.Background(), "Carol@Example.com", "s3cret")
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if res.Token == "" {
		t.Fatalf("expected token, got empty")
	}
	if res.ExpiresIn.Milliseconds() != 86400000 {
		t.Fatalf("expected 24h expiry, got %v", res.ExpiresIn)
	}
	if res.Role != domain.RoleUser {
		t.Fatalf("unexpected role %s", res.Role)
	}
	if res.Principal.PasswordHash != "" {
		t.Fatalf("login result leaked the hash")
	}

	id, err := f.tokens.Verify(res.Token)
	if err != nil {
		t.Fatalf("token invalid: %v", err)
	}
	if id.PrincipalID != created.ID || id.Role != domain.RoleUser {
		t.Fatalf("token encodes %+v, want id %s", id, created.ID)
	}
}

func TestAuthService_Login_InvalidPassword(t *testing.T) {
	f := newAuthFixture(t)
	signup(t, f.svc, "dave@example.com", "goodpass")

	res, err := f.svc.Login(context.Background(), "dave@example.com", "badpass")
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
	if res != nil {
		t.Fatalf("no token may be returned on mismatch")
	}

	kinds := f.audit.kinds()
	if kinds[len(kinds)-1] != domain.EventLoginFailed {
		t.Fatalf("expected a login_failed audit event, got %v", kinds)
	}
}

func TestAuthService_Login_UserNotFound(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), "ghost@example.com", "pass")
	if !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("unknown email must not look like a wrong password")
	}
}

func TestAuthService_Login_Inactive(t *testing.T) {
	f := newAuthFixture(t)
	signup(t, f.svc, "erin@example.com", "pw")
	f.repo.deactivate("erin@example.com")

	if _, err := f.svc.Login(context.Background(), "erin@example.com", "pw"); !errors.Is(err, domain.ErrAccountInactive) {
		t.Fatalf("expected ErrAccountInactive, got %v", err)
	}
}

func TestAuthService_Login_MissingFields(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Login(context.Background(), "", ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthService_Login_StoreFailure(t *testing.T) {
	f := newAuthFixture(t)
	f.repo.findErr = errors.New("server selection timeout")

	_, err := f.svc.Login(context.Background(), "a@x.com", "pw")
	if err == nil || errors.Is(err, domain.ErrUserNotFound) || errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected an unexpected error, got %v", err)
	}
}

func TestAuthService_SignupThenLoginPerEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		email := fmt.Sprintf("user%d@x.com", i)
		password := fmt.Sprintf("pw-%d", i)

		if _, err := f.svc.Signup(ctx, ports.SignupInput{Email: email, Password: password}); err != nil {
			t.Fatalf("signup %s: %v", email, err)
		}
		if _, err := f.svc.Signup(ctx, ports.SignupInput{Email: email, Password: password}); !errors.Is(err, domain.ErrEmailTaken) {
			t.Fatalf("second signup of %s: expected ErrEmailTaken, got %v", email, err)
		}
		if _, err := f.svc.Login(ctx, email, password); err != nil {
			t.Fatalf("login %s: %v", email, err)
		}
		if _, err := f.svc.Login(ctx, email, password+"x"); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("login %s with other password: %v", email, err)
		}
	}
}

// ---------------------------------------------------------------------------
// Authenticate / Logout / Profile
// ---------------------------------------------------------------------------

func TestAuthService_AuthenticateAndLogout(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signup(t, f.svc, "f@x.com", "pw")

	res, err := f.svc.Login(ctx, "f@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	id, err := f.svc.Authenticate(ctx, res.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}

	if err := f.svc.Logout(ctx, id); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if until := f.denylist.revoked[id.TokenID]; !until.Equal(id.ExpiresAt) {
		t.Fatalf("revocation should last until token expiry, got %v", until)
	}

	if _, err := f.svc.Authenticate(ctx, res.Token); !errors.Is(err, domain.ErrTokenRevoked) {
		t.Fatalf("expected ErrTokenRevoked after logout, got %v", err)
	}
}

func TestAuthService_Authenticate_PassesThroughTokenErrors(t *testing.T) {
	f := newAuthFixture(t)

	if _, err := f.svc.Authenticate(context.Background(), "garbage"); !errors.Is(err, domain.ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestAuthService_Authenticate_DenylistDown(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()
	signup(t, f.svc, "g@x.com", "pw")
	res, err := f.svc.Login(ctx, "g@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	f.denylist.err = errors.New("redis: connection refused")
	_, err = f.svc.Authenticate(ctx, res.Token)
	if err == nil || errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected an unexpected error, got %v", err)
	}
}

func TestAuthService_Profile(t *testing.T) {
	f := newAuthFixture(t)
	created := signup(t, f.svc, "h@x.com", "pw")

	p, err := f.svc.Profile(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("profile: %v", err)
	}
	if p.Email != "h@x.com" || p.PasswordHash != "" {
		t.Fatalf("unexpected profile: %+v", p)
	}

	if _, err := f.svc.Profile(context.Background(), "missing"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestAuthService_Signup_UsernameCannotShadowEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Signup(ctx, ports.SignupInput{Email: "b@x.com", Password: "p", Username: "a@x.com"})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}

	if _, err := f.svc.Signup(ctx, ports.SignupInput{Email: "a@x.com", Password: "p"}); err != nil {
		t.Fatalf("signup with unused email failed: %v", err)
	}
}

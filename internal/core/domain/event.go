package domain

import "time"

// AuthEventKind names an entry in the authentication audit trail.
type AuthEventKind string

const (
	EventSignup         AuthEventKind = "signup"
	EventLoginSucceeded AuthEventKind = "login_succeeded"
	EventLoginFailed    AuthEventKind = "login_failed"
	EventLogout         AuthEventKind = "logout"
)

// AuthEvent records something that happened to a principal's credentials.
type AuthEvent struct {
	Kind        AuthEventKind
	PrincipalID string // empty when the principal is unknown
	Email       string
	Role        Role
	Detail      string
	At          time.Time
}

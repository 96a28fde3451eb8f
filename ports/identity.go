package ports

import (
	"context"
	"time"
)

// Session is the identity provider's view of a signed-in user
type Session struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	AvatarURL    string    `json:"avatar_url,omitempty"` // user_metadata.avatar_url
}

// Expired reports whether the access token is past its expiry at now
func (s *Session) Expired(now time.Time) bool {
	return s != nil && !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// AuthEvent names a session transition pushed by the identity provider
type AuthEvent string

const (
	AuthEventSignedIn       AuthEvent = "SIGNED_IN"
	AuthEventSignedOut      AuthEvent = "SIGNED_OUT"
	AuthEventTokenRefreshed AuthEvent = "TOKEN_REFRESHED"
	AuthEventUserUpdated    AuthEvent = "USER_UPDATED"
)

// AuthListener receives session transitions; session is nil after SIGNED_OUT
type AuthListener func(event AuthEvent, session *Session)

// UserUpdate carries the fields to change; empty fields are left alone
type UserUpdate struct {
	Email     string
	Password  string
	AvatarURL string // stored as user_metadata.avatar_url
}

// IdentityProvider defines the session operations the client consumes
type IdentityProvider interface {
	// GetSession returns the current session, or nil when signed out
	GetSession(ctx context.Context) (*Session, error)

	// SignInWithPassword exchanges credentials for a session
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)

	// SignInWithOAuth returns the provider URL the browser must visit
	SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error)

	// ExchangeCodeForSession completes an OAuth sign-in started by SignInWithOAuth
	ExchangeCodeForSession(ctx context.Context, code string) (*Session, error)

	// SignUp registers a user; the session is nil when email confirmation is pending
	SignUp(ctx context.Context, email, password string) (*Session, error)

	// SignOut ends the current session
	SignOut(ctx context.Context) error

	// UpdateUser changes credentials or profile metadata of the signed-in user
	UpdateUser(ctx context.Context, update UserUpdate) error

	// OnAuthStateChange registers a listener and returns its unsubscribe handle
	OnAuthStateChange(listener AuthListener) (unsubscribe func())
}

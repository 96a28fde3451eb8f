// Package identity implements the identity provider port against the Supabase GoTrue REST API.
package identity

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"screenscan/domain/core"
	"screenscan/internal"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/tidwall/gjson"
)

const serviceName = "identity"

// GoTrue is one browser's identity client. It holds at most one session, like the
// storage of a single browser tab, and notifies listeners of every transition.
type GoTrue struct {
	baseURL string
	anonKey string
	http    *http.Client
	logger  *internal.Logger
	now     func() time.Time

	mu        sync.Mutex
	session   *ports.Session
	verifier  string
	listeners map[int]ports.AuthListener
	nextID    int
}

var _ ports.IdentityProvider = (*GoTrue)(nil)

// NewGoTrue creates a client for the GoTrue API rooted at baseURL (".../auth/v1")
func NewGoTrue(baseURL, anonKey string, httpClient *http.Client, logger *internal.Logger) *GoTrue {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &GoTrue{
		baseURL:   strings.TrimRight(baseURL, "/"),
		anonKey:   anonKey,
		http:      httpClient,
		logger:    logger.With("identity"),
		now:       time.Now,
		listeners: make(map[int]ports.AuthListener),
	}
}

// GetSession returns the held session, refreshing it first when the access token expired.
// A failed refresh signs the user out.
func (g *GoTrue) GetSession(ctx context.Context) (*ports.Session, error) {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()

	if s == nil {
		return nil, nil
	}
	if !s.Expired(g.now()) {
		cp := *s
		return &cp, nil
	}

	refreshed, err := g.token(ctx, "refresh_token", map[string]string{"refresh_token": s.RefreshToken})
	if err != nil {
		g.logger.Warn("session refresh failed, signing out: %v", err)
		g.setSession(nil, ports.AuthEventSignedOut)
		return nil, nil
	}
	g.setSession(refreshed, ports.AuthEventTokenRefreshed)
	return refreshed, nil
}

// SignInWithPassword exchanges email and password for a session
func (g *GoTrue) SignInWithPassword(ctx context.Context, email, password string) (*ports.Session, error) {
	s, err := g.token(ctx, "password", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	g.setSession(s, ports.AuthEventSignedIn)
	return s, nil
}

// SignInWithOAuth starts a PKCE authorization-code flow and returns the authorize URL
func (g *GoTrue) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	if strings.TrimSpace(provider) == "" {
		return "", errors.ValidationError("OAuth provider is required")
	}
	verifier, err := newCodeVerifier()
	if err != nil {
		return "", errors.Wrap(err, "failed to create PKCE verifier")
	}

	g.mu.Lock()
	g.verifier = verifier
	g.mu.Unlock()

	q := url.Values{}
	q.Set("provider", provider)
	if redirectTo != "" {
		q.Set("redirect_to", redirectTo)
	}
	q.Set("code_challenge", codeChallenge(verifier))
	q.Set("code_challenge_method", "s256")
	return g.baseURL + "/authorize?" + q.Encode(), nil
}

// ExchangeCodeForSession completes the PKCE flow with the code from the callback
func (g *GoTrue) ExchangeCodeForSession(ctx context.Context, code string) (*ports.Session, error) {
	g.mu.Lock()
	verifier := g.verifier
	g.verifier = ""
	g.mu.Unlock()

	if verifier == "" {
		return nil, errors.Unauthorized("no OAuth sign-in in progress")
	}
	if code == "" {
		return nil, errors.Unauthorized("missing authorization code")
	}

	s, err := g.token(ctx, "pkce", map[string]string{"auth_code": code, "code_verifier": verifier})
	if err != nil {
		return nil, err
	}
	g.setSession(s, ports.AuthEventSignedIn)
	return s, nil
}

// SignUp registers a user. With email confirmation enabled GoTrue returns only the user and
// the session stays nil.
func (g *GoTrue) SignUp(ctx context.Context, email, password string) (*ports.Session, error) {
	raw, err := g.do(ctx, http.MethodPost, "/signup", "", map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, err
	}
	if !gjson.GetBytes(raw, "access_token").Exists() {
		return nil, nil
	}
	s, err := g.parseSession(raw)
	if err != nil {
		return nil, err
	}
	g.setSession(s, ports.AuthEventSignedIn)
	return s, nil
}

// SignOut revokes the session remotely and always drops it locally
func (g *GoTrue) SignOut(ctx context.Context) error {
	g.mu.Lock()
	s := g.session
	g.mu.Unlock()
	if s == nil {
		return nil
	}

	_, err := g.do(ctx, http.MethodPost, "/logout", s.AccessToken, nil)
	g.setSession(nil, ports.AuthEventSignedOut)

	// an already revoked or expired token is still a completed sign-out
	if err != nil && !errors.HasCode(err, errors.CodeUnauthorized) {
		return err
	}
	return nil
}

// UpdateUser changes credentials or the avatar of the signed-in user
func (g *GoTrue) UpdateUser(ctx context.Context, update ports.UserUpdate) error {
	s, err := g.GetSession(ctx)
	if err != nil {
		return err
	}
	if s == nil {
		return errors.Wrap(errors.Unauthorized(core.ErrNoSession.Error()), "update user")
	}
	if update.Email == "" && update.Password == "" && update.AvatarURL == "" {
		return errors.ValidationError("nothing to update")
	}

	body := map[string]interface{}{}
	if update.Email != "" {
		body["email"] = update.Email
	}
	if update.Password != "" {
		body["password"] = update.Password
	}
	if update.AvatarURL != "" {
		body["data"] = map[string]string{"avatar_url": update.AvatarURL}
	}
	if _, err := g.do(ctx, http.MethodPut, "/user", s.AccessToken, body); err != nil {
		return err
	}

	g.mu.Lock()
	current := g.session
	g.mu.Unlock()
	if current != nil {
		cp := *current
		if update.Email != "" {
			cp.Email = update.Email
		}
		if update.AvatarURL != "" {
			cp.AvatarURL = update.AvatarURL
		}
		g.setSession(&cp, ports.AuthEventUserUpdated)
	}
	return nil
}

// OnAuthStateChange registers listener; the returned func removes it
func (g *GoTrue) OnAuthStateChange(listener ports.AuthListener) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = listener
	g.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.listeners, id)
			g.mu.Unlock()
		})
	}
}

func (g *GoTrue) setSession(s *ports.Session, event ports.AuthEvent) {
	g.mu.Lock()
	g.session = s
	listeners := make([]ports.AuthListener, 0, len(g.listeners))
	for _, l := range g.listeners {
		listeners = append(listeners, l)
	}
	g.mu.Unlock()

	g.logger.Debug("auth event %s", event)
	for _, l := range listeners {
		var cp *ports.Session
		if s != nil {
			c := *s
			cp = &c
		}
		l(event, cp)
	}
}

func (g *GoTrue) token(ctx context.Context, grantType string, body map[string]string) (*ports.Session, error) {
	raw, err := g.do(ctx, http.MethodPost, "/token?grant_type="+url.QueryEscape(grantType), "", body)
	if err != nil {
		return nil, err
	}
	return g.parseSession(raw)
}

func (g *GoTrue) parseSession(raw []byte) (*ports.Session, error) {
	res := gjson.ParseBytes(raw)
	access := res.Get("access_token").String()
	userID := res.Get("user.id").String()
	if access == "" || userID == "" {
		return nil, errors.ExternalServiceError(serviceName, 0, fmt.Errorf("token response without access_token or user"))
	}

	s := &ports.Session{
		AccessToken:  access,
		RefreshToken: res.Get("refresh_token").String(),
		UserID:       userID,
		Email:        res.Get("user.email").String(),
		AvatarURL:    res.Get("user.user_metadata.avatar_url").String(),
	}
	if at := res.Get("expires_at"); at.Exists() && at.Int() > 0 {
		s.ExpiresAt = time.Unix(at.Int(), 0)
	} else if in := res.Get("expires_in"); in.Exists() && in.Int() > 0 {
		s.ExpiresAt = g.now().Add(time.Duration(in.Int()) * time.Second)
	}
	return s, nil
}

// do sends one API request; bearer defaults to the anon key
func (g *GoTrue) do(ctx context.Context, method, path, bearer string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if bearer == "" {
		bearer = g.anonKey
	}
	req.Header.Set("apikey", g.anonKey)
	req.Header.Set("Authorization", "Bearer "+bearer)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.http.Do(req)
	if err != nil {
		return nil, errors.NetworkError(serviceName, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.NetworkError(serviceName, fmt.Errorf("read response: %w", err))
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return raw, nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized ||
		resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, &errors.AppError{
			Code:    errors.CodeUnauthorized,
			Message: errorMessage(raw, "authentication failed"),
			Status:  resp.StatusCode,
		}
	default:
		return nil, errors.ExternalServiceError(serviceName, resp.StatusCode, fmt.Errorf("%s", errorMessage(raw, http.StatusText(resp.StatusCode))))
	}
}

// errorMessage reads the human-readable part of a GoTrue error body
func errorMessage(raw []byte, fallback string) string {
	for _, path := range []string{"error_description", "msg", "message", "error"} {
		if r := gjson.GetBytes(raw, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	return fallback
}

func newCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func codeChallenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

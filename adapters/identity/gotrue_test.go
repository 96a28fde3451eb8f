package identity

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu     sync.Mutex
	events []ports.AuthEvent
}

func (r *recorder) listen(event ports.AuthEvent, _ *ports.Session) {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()
}

func (r *recorder) all() []ports.AuthEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ports.AuthEvent(nil), r.events...)
}

const tokenBody = `{"access_token":"at-1","refresh_token":"rt-1","expires_in":3600,"user":{"id":"user-1","email":"a@b.co"}}`

func newServer(t *testing.T, handler http.HandlerFunc) (*GoTrue, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewGoTrue(srv.URL+"/auth/v1/", "anon-key", srv.Client(), nil), srv
}

func decode(t *testing.T, r *http.Request) map[string]string {
	t.Helper()
	body := map[string]string{}
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestSignInWithPassword(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/token", r.URL.Path)
		assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "anon-key", r.Header.Get("apikey"))
		assert.Equal(t, "Bearer anon-key", r.Header.Get("Authorization"))
		body := decode(t, r)
		if body["password"] != "secret" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Invalid login credentials"}`))
			return
		}
		_, _ = w.Write([]byte(tokenBody))
	})
	rec := &recorder{}
	g.OnAuthStateChange(rec.listen)

	_, err := g.SignInWithPassword(context.Background(), "a@b.co", "wrong")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
	assert.Equal(t, "Invalid login credentials", errors.Message(err))

	s, err := g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)
	assert.Equal(t, "a@b.co", s.Email)
	assert.False(t, s.Expired(time.Now()))

	current, err := g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "at-1", current.AccessToken)
	assert.Equal(t, []ports.AuthEvent{ports.AuthEventSignedIn}, rec.all())
}

func TestExpiredSessionRefreshFailureSignsOut(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("grant_type") {
		case "password":
			_, _ = w.Write([]byte(tokenBody))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"msg":"Invalid Refresh Token"}`))
		}
	})
	_, err := g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)

	rec := &recorder{}
	g.OnAuthStateChange(rec.listen)
	g.now = func() time.Time { return time.Now().Add(2 * time.Hour) }

	s, err := g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, []ports.AuthEvent{ports.AuthEventSignedOut}, rec.all())
}

func TestExpiredSessionRefreshes(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("grant_type") == "refresh_token" {
			assert.Equal(t, "rt-1", decode(t, r)["refresh_token"])
			_, _ = w.Write([]byte(`{"access_token":"at-2","refresh_token":"rt-2","expires_in":3600,"user":{"id":"user-1"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"access_token":"at-1","refresh_token":"rt-1","expires_in":1,"user":{"id":"user-1"}}`))
	})
	_, err := g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	g.now = func() time.Time { return time.Now().Add(time.Minute) }

	s, err := g.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "at-2", s.AccessToken)
}

func TestOAuthPKCEFlow(t *testing.T) {
	var challenge string
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "pkce", r.URL.Query().Get("grant_type"))
		body := decode(t, r)
		assert.Equal(t, "code-123", body["auth_code"])
		assert.Equal(t, challenge, codeChallenge(body["code_verifier"]))
		_, _ = w.Write([]byte(tokenBody))
	})

	raw, err := g.SignInWithOAuth(context.Background(), "google", "http://localhost:8080/auth/callback")
	require.NoError(t, err)
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/auth/v1/authorize", u.Path)
	assert.Equal(t, "google", u.Query().Get("provider"))
	assert.Equal(t, "s256", u.Query().Get("code_challenge_method"))
	assert.Equal(t, "http://localhost:8080/auth/callback", u.Query().Get("redirect_to"))
	challenge = u.Query().Get("code_challenge")

	s, err := g.ExchangeCodeForSession(context.Background(), "code-123")
	require.NoError(t, err)
	assert.Equal(t, "user-1", s.UserID)

	_, err = g.ExchangeCodeForSession(context.Background(), "code-123")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
}

func TestSignUpWithConfirmationPending(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth/v1/signup", r.URL.Path)
		_, _ = w.Write([]byte(`{"id":"user-9","email":"n@b.co","confirmation_sent_at":"2024-01-01T00:00:00Z"}`))
	})

	s, err := g.SignUp(context.Background(), "n@b.co", "longpassword")
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestUpdateUserAndSignOut(t *testing.T) {
	var updated, loggedOut bool
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(tokenBody))
		case "/auth/v1/user":
			assert.Equal(t, http.MethodPut, r.Method)
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			assert.Equal(t, "n3w-password", decode(t, r)["password"])
			updated = true
			_, _ = w.Write([]byte(`{"id":"user-1"}`))
		case "/auth/v1/logout":
			assert.Equal(t, "Bearer at-1", r.Header.Get("Authorization"))
			loggedOut = true
			w.WriteHeader(http.StatusNoContent)
		}
	})

	err := g.UpdateUser(context.Background(), ports.UserUpdate{Password: "n3w-password"})
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	_, err = g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	require.NoError(t, g.UpdateUser(context.Background(), ports.UserUpdate{Password: "n3w-password"}))
	assert.True(t, updated)

	rec := &recorder{}
	unsubscribe := g.OnAuthStateChange(rec.listen)
	require.NoError(t, g.SignOut(context.Background()))
	assert.True(t, loggedOut)
	unsubscribe()
	unsubscribe()

	s, err := g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, s)
	assert.Equal(t, []ports.AuthEvent{ports.AuthEventSignedOut}, rec.all())
}

func TestServerErrorIsServiceError(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	assert.True(t, errors.HasCode(err, errors.CodeExternalService))
}

func TestUpdateUserAvatarMetadata(t *testing.T) {
	g, _ := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			_, _ = w.Write([]byte(`{"access_token":"at-1","expires_in":3600,"user":{"id":"user-1","email":"a@b.co","user_metadata":{"avatar_url":"https://cdn.example/old.png"}}}`))
		case "/auth/v1/user":
			var body struct {
				Password string            `json:"password"`
				Data     map[string]string `json:"data"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Empty(t, body.Password)
			assert.Equal(t, "https://cdn.example/new.png", body.Data["avatar_url"])
			_, _ = w.Write([]byte(`{"id":"user-1"}`))
		}
	})

	s, err := g.SignInWithPassword(context.Background(), "a@b.co", "secret")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/old.png", s.AvatarURL)

	rec := &recorder{}
	g.OnAuthStateChange(rec.listen)
	require.NoError(t, g.UpdateUser(context.Background(), ports.UserUpdate{AvatarURL: "https://cdn.example/new.png"}))

	s, err = g.GetSession(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/new.png", s.AvatarURL)
	assert.Equal(t, "a@b.co", s.Email)
	assert.Equal(t, []ports.AuthEvent{ports.AuthEventUserUpdated}, rec.all())

	err = g.UpdateUser(context.Background(), ports.UserUpdate{})
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))
}

package app

import (
	"context"
	"net/url"
	"strings"
	"sync"
	"time"

	"screenscan/internal"
	"screenscan/ports"
)

// GuardState is the Session Guard's view of the identity provider
type GuardState string

const (
	GuardChecking        GuardState = "checking"
	GuardAuthenticated   GuardState = "authenticated"
	GuardUnauthenticated GuardState = "unauthenticated"
)

// DecisionKind is the outcome of authorizing a protected destination
type DecisionKind int

const (
	DecisionPending DecisionKind = iota
	DecisionAllow
	DecisionRedirect
)

// Decision tells the navigation surface what to do with a protected request
type Decision struct {
	Kind     DecisionKind
	Location string // set for DecisionRedirect
}

// LoginPath is the unauthenticated entry route
const LoginPath = "/login"

// ProtectedRoutes are the destinations the guard gates and may restore after sign-in
var ProtectedRoutes = []string{"/", "/inspection", "/history"}

// IsProtected reports whether path is one of ProtectedRoutes
func IsProtected(path string) bool {
	for _, r := range ProtectedRoutes {
		if path == r {
			return true
		}
	}
	return false
}

// LoginURL returns the login route remembering destination
func LoginURL(destination string) string {
	if destination == "" {
		return LoginPath
	}
	return LoginPath + "?next=" + url.QueryEscape(destination)
}

// SessionGuard is the single subscriber to the identity provider and the only writer of
// session state for one browser
type SessionGuard struct {
	provider ports.IdentityProvider
	logger   *internal.Logger
	now      func() time.Time

	mu          sync.Mutex
	state       GuardState
	session     *ports.Session
	started     bool
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
	listeners   map[int]func(GuardState, *ports.Session)
	nextID      int
}

// NewSessionGuard creates a guard in the Checking state
func NewSessionGuard(provider ports.IdentityProvider, logger *internal.Logger) *SessionGuard {
	return &SessionGuard{
		provider:  provider,
		logger:    logger.With("guard"),
		now:       time.Now,
		state:     GuardChecking,
		ready:     make(chan struct{}),
		listeners: make(map[int]func(GuardState, *ports.Session)),
	}
}

// Start subscribes to session changes and resolves the initial session. Calling it again is a no-op.
func (g *SessionGuard) Start(ctx context.Context) {
	g.mu.Lock()
	if g.started {
		g.mu.Unlock()
		return
	}
	g.started = true
	g.unsubscribe = g.provider.OnAuthStateChange(g.handle)
	g.mu.Unlock()

	session, err := g.provider.GetSession(ctx)
	if err != nil {
		g.logger.Warn("initial session check failed: %v", err)
		session = nil
	}

	g.mu.Lock()
	if g.state != GuardChecking {
		// a provider event already settled the state
		g.mu.Unlock()
		return
	}
	g.apply(session)
	state, s := g.state, g.session
	listeners := g.listenersLocked()
	g.mu.Unlock()

	g.markReady()
	notify(listeners, state, s)
}

func (g *SessionGuard) handle(event ports.AuthEvent, session *ports.Session) {
	if event == ports.AuthEventSignedOut {
		session = nil
	}

	g.mu.Lock()
	prev := g.state
	g.apply(session)
	state, s := g.state, g.session
	listeners := g.listenersLocked()
	g.mu.Unlock()

	g.logger.Debug("%s: %s -> %s", event, prev, state)
	g.markReady()
	notify(listeners, state, s)
}

func (g *SessionGuard) apply(session *ports.Session) {
	if session == nil {
		g.state = GuardUnauthenticated
		g.session = nil
		return
	}
	g.state = GuardAuthenticated
	g.session = session
}

func (g *SessionGuard) markReady() {
	g.readyOnce.Do(func() { close(g.ready) })
}

func (g *SessionGuard) listenersLocked() []func(GuardState, *ports.Session) {
	out := make([]func(GuardState, *ports.Session), 0, len(g.listeners))
	for _, l := range g.listeners {
		out = append(out, l)
	}
	return out
}

func notify(listeners []func(GuardState, *ports.Session), state GuardState, session *ports.Session) {
	for _, l := range listeners {
		l(state, session)
	}
}

// Wait blocks until the initial session is resolved or ctx ends, and returns the state
func (g *SessionGuard) Wait(ctx context.Context) GuardState {
	select {
	case <-g.ready:
	case <-ctx.Done():
	}
	return g.State()
}

// Revalidate asks the provider again when the held access token has expired; the
// provider's refresh or sign-out event updates the guard
func (g *SessionGuard) Revalidate(ctx context.Context) {
	g.mu.Lock()
	expired := g.state == GuardAuthenticated && g.session.Expired(g.now())
	g.mu.Unlock()
	if !expired {
		return
	}
	if _, err := g.provider.GetSession(ctx); err != nil {
		g.logger.Warn("session revalidation failed: %v", err)
	}
}

// State returns the current guard state
func (g *SessionGuard) State() GuardState {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Session returns the current session, nil unless Authenticated
func (g *SessionGuard) Session() *ports.Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == nil {
		return nil
	}
	cp := *g.session
	return &cp
}

// Authorize decides how to serve a protected destination
func (g *SessionGuard) Authorize(destination string) Decision {
	switch g.State() {
	case GuardChecking:
		return Decision{Kind: DecisionPending}
	case GuardAuthenticated:
		return Decision{Kind: DecisionAllow}
	default:
		return Decision{Kind: DecisionRedirect, Location: LoginURL(destination)}
	}
}

// RestoreDestination returns next when it is a local protected route, otherwise "/"
func (g *SessionGuard) RestoreDestination(next string) string {
	return RestoreDestination(next)
}

// RestoreDestination validates a remembered post-login destination
func RestoreDestination(next string) string {
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return "/"
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" || !IsProtected(u.Path) {
		return "/"
	}
	if u.RawQuery != "" {
		return u.Path + "?" + u.RawQuery
	}
	return u.Path
}

// OnChange registers fn for every state or session change; the returned func removes it
func (g *SessionGuard) OnChange(fn func(GuardState, *ports.Session)) func() {
	g.mu.Lock()
	id := g.nextID
	g.nextID++
	g.listeners[id] = fn
	g.mu.Unlock()

	return func() {
		g.mu.Lock()
		delete(g.listeners, id)
		g.mu.Unlock()
	}
}

// Stop drops the provider subscription
func (g *SessionGuard) Stop() {
	g.mu.Lock()
	unsubscribe := g.unsubscribe
	g.unsubscribe = nil
	g.mu.Unlock()
	if unsubscribe != nil {
		unsubscribe()
	}
}

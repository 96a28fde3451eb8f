package app

import (
	"context"
	"sync"
	"time"

	"screenscan/domain/core"
	"screenscan/domain/inspection"
	"screenscan/internal"
	"screenscan/internal/errors"
	"screenscan/ports"
)

// ClientDeps are the collaborators shared by (or created for) one browser workspace
type ClientDeps struct {
	Identity    ports.IdentityProvider
	Analysis    ports.AnalysisService
	Storage     ports.ObjectStorage
	Records     ports.RecordStore
	Previews    *PreviewStore
	ObjectKey   ObjectKeyFunc
	AvatarKey   ObjectKeyFunc
	Timeout     time.Duration
	RecentLimit int
	Logger      *internal.Logger
}

// Client is the workspace of one browser: one instance of every core component, with the
// session passed explicitly from the guard to the components that need it
type Client struct {
	ID         string
	Identity   ports.IdentityProvider
	Guard      *SessionGuard
	Selector   *UploadSelector
	Submitter  *AnalysisSubmitter
	Aggregator *RecordAggregator

	storage     ports.ObjectStorage
	avatarKey   ObjectKeyFunc
	logger      *internal.Logger
	stopWatcher func()
}

// NewClient assembles a workspace; call Start before serving it
func NewClient(id string, deps ClientDeps) *Client {
	logger := deps.Logger.With("client " + shortID(id))
	guard := NewSessionGuard(deps.Identity, logger)
	selector := NewUploadSelector(deps.Previews)

	c := &Client{
		ID:       id,
		Identity: deps.Identity,
		Guard:    guard,
		Selector: selector,
		Submitter: NewAnalysisSubmitter(SubmitterConfig{
			Selector:  selector,
			Sessions:  guard,
			Analysis:  deps.Analysis,
			Storage:   deps.Storage,
			Records:   deps.Records,
			ObjectKey: deps.ObjectKey,
			Timeout:   deps.Timeout,
			Logger:    logger,
		}),
		Aggregator: NewRecordAggregator(deps.Records, deps.RecentLimit, logger),
		storage:    deps.Storage,
		avatarKey:  deps.AvatarKey,
		logger:     logger,
	}
	if c.avatarKey == nil {
		c.avatarKey = prefixedKey("avatars")
	}

	var (
		mu       sync.Mutex
		signedIn bool
	)
	c.stopWatcher = guard.OnChange(func(state GuardState, _ *ports.Session) {
		mu.Lock()
		signedOut := signedIn && state == GuardUnauthenticated
		signedIn = state == GuardAuthenticated
		mu.Unlock()
		// only a sign-out leaves user data behind; the initial anonymous resolution has none
		if signedOut {
			c.Submitter.Clear()
			c.Aggregator.Reset()
		}
	})
	return c
}

// Start resolves the initial session
func (c *Client) Start(ctx context.Context) {
	c.Guard.Start(ctx)
}

// RequireSession waits for session resolution and returns the session, or an UNAUTHORIZED error
func (c *Client) RequireSession(ctx context.Context) (*ports.Session, error) {
	c.Guard.Revalidate(ctx)
	if c.Guard.Wait(ctx) != GuardAuthenticated {
		return nil, errors.Unauthorized(core.ErrNoSession.Error())
	}
	session := c.Guard.Session()
	if session == nil {
		return nil, errors.Unauthorized(core.ErrNoSession.Error())
	}
	return session, nil
}

// Dashboard loads the summary of the signed-in user
func (c *Client) Dashboard(ctx context.Context) (inspection.DashboardSummary, error) {
	session, err := c.RequireSession(ctx)
	if err != nil {
		return inspection.EmptySummary(), err
	}
	return c.Aggregator.LoadSummary(ctx, session.UserID)
}

// History loads the signed-in user's records and applies the category and text filters
func (c *Client) History(ctx context.Context, category inspection.Category, query string) ([]inspection.Record, error) {
	session, err := c.RequireSession(ctx)
	if err != nil {
		return []inspection.Record{}, err
	}
	records, err := c.Aggregator.LoadHistory(ctx, session.UserID)
	return FilterHistory(records, category, query), err
}

// SignIn signs in with email and password
func (c *Client) SignIn(ctx context.Context, email, password string) error {
	_, err := c.Identity.SignInWithPassword(ctx, email, password)
	return err
}

// SignUp registers a user; signedIn is false while email confirmation is pending
func (c *Client) SignUp(ctx context.Context, email, password string) (signedIn bool, err error) {
	session, err := c.Identity.SignUp(ctx, email, password)
	if err != nil {
		return false, err
	}
	return session != nil, nil
}

// SignOut ends the session and drops all per-user client state
func (c *Client) SignOut(ctx context.Context) error {
	err := c.Identity.SignOut(ctx)
	c.Submitter.Clear()
	c.Aggregator.Reset()
	return err
}

// UpdatePassword changes the signed-in user's password
func (c *Client) UpdatePassword(ctx context.Context, password string) error {
	if _, err := c.RequireSession(ctx); err != nil {
		return err
	}
	if len(password) < 6 {
		return errors.ValidationError("password must be at least 6 characters")
	}
	return c.Identity.UpdateUser(ctx, ports.UserUpdate{Password: password})
}

// UpdateAvatar stores a new profile picture and records its public URL on the user
func (c *Client) UpdateAvatar(ctx context.Context, filename string, data []byte) (string, error) {
	session, err := c.RequireSession(ctx)
	if err != nil {
		return "", err
	}
	contentType, err := sniffImage(data)
	if err != nil {
		return "", err
	}
	if c.storage == nil {
		return "", errors.PersistenceError("avatar storage is not configured", nil)
	}

	key := c.avatarKey(session.UserID, filename)
	if err := c.storage.Upload(ctx, key, data, contentType); err != nil {
		return "", errors.PersistenceError("could not store avatar", err)
	}
	publicURL := c.storage.PublicURL(key)
	if err := c.Identity.UpdateUser(ctx, ports.UserUpdate{AvatarURL: publicURL}); err != nil {
		return "", err
	}
	c.logger.Info("avatar updated for user %s", session.UserID)
	return publicURL, nil
}

// Close releases the workspace: previews, session subscription and observers
func (c *Client) Close() {
	c.Submitter.Clear()
	c.stopWatcher()
	c.Guard.Stop()
	c.logger.Debug("workspace closed")
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

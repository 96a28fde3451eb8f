package app

import (
	"context"
	"sync"

	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/stretchr/testify/mock"
)

var errUnauthorized = errors.Unauthorized("Invalid login credentials")

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// MockRecordStore is a testify mock of ports.RecordStore
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) List(ctx context.Context, q ports.RecordQuery) ([]inspection.Record, error) {
	args := m.Called(ctx, q)
	records, _ := args.Get(0).([]inspection.Record)
	return records, args.Error(1)
}

func (m *MockRecordStore) ListLabels(ctx context.Context, userID string) ([]inspection.VerdictLabel, error) {
	args := m.Called(ctx, userID)
	labels, _ := args.Get(0).([]inspection.VerdictLabel)
	return labels, args.Error(1)
}

func (m *MockRecordStore) Create(ctx context.Context, draft inspection.Draft) (*inspection.Record, error) {
	args := m.Called(ctx, draft)
	rec, _ := args.Get(0).(*inspection.Record)
	return rec, args.Error(1)
}

// MockObjectStorage is a testify mock of ports.ObjectStorage
type MockObjectStorage struct {
	mock.Mock
}

func (m *MockObjectStorage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	return m.Called(ctx, path, data, contentType).Error(0)
}

func (m *MockObjectStorage) PublicURL(path string) string {
	return "https://cdn.example/" + path
}

// MockAnalysis is a testify mock of ports.AnalysisService
type MockAnalysis struct {
	mock.Mock
}

func (m *MockAnalysis) Analyze(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error) {
	args := m.Called(ctx, req)
	v, _ := args.Get(0).(inspection.Verdict)
	return v, args.Error(1)
}

// analysisFunc adapts a function to ports.AnalysisService
type analysisFunc func(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error)

func (f analysisFunc) Analyze(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error) {
	return f(ctx, req)
}

// fakeIdentity is an in-memory identity provider
type fakeIdentity struct {
	mu        sync.Mutex
	session   *ports.Session
	listeners map[int]ports.AuthListener
	nextID    int
	block     chan struct{} // when set, GetSession waits for it to close
	password  string
	updated   []ports.UserUpdate
}

func newFakeIdentity(session *ports.Session) *fakeIdentity {
	return &fakeIdentity{session: session, listeners: map[int]ports.AuthListener{}, password: "secret"}
}

func (f *fakeIdentity) GetSession(ctx context.Context) (*ports.Session, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session, nil
}

func (f *fakeIdentity) SignInWithPassword(ctx context.Context, email, password string) (*ports.Session, error) {
	if password != f.password {
		return nil, errUnauthorized
	}
	s := &ports.Session{AccessToken: "at", UserID: "user-1", Email: email}
	f.emit(ports.AuthEventSignedIn, s)
	return s, nil
}

func (f *fakeIdentity) SignInWithOAuth(ctx context.Context, provider, redirectTo string) (string, error) {
	return "https://idp.example/authorize?provider=" + provider, nil
}

func (f *fakeIdentity) ExchangeCodeForSession(ctx context.Context, code string) (*ports.Session, error) {
	s := &ports.Session{AccessToken: "at", UserID: "user-1"}
	f.emit(ports.AuthEventSignedIn, s)
	return s, nil
}

func (f *fakeIdentity) SignUp(ctx context.Context, email, password string) (*ports.Session, error) {
	return nil, nil
}

func (f *fakeIdentity) SignOut(ctx context.Context) error {
	f.emit(ports.AuthEventSignedOut, nil)
	return nil
}

func (f *fakeIdentity) UpdateUser(ctx context.Context, update ports.UserUpdate) error {
	f.mu.Lock()
	f.updated = append(f.updated, update)
	f.mu.Unlock()
	return nil
}

func (f *fakeIdentity) OnAuthStateChange(listener ports.AuthListener) func() {
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = listener
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.listeners, id)
		f.mu.Unlock()
	}
}

func (f *fakeIdentity) emit(event ports.AuthEvent, s *ports.Session) {
	f.mu.Lock()
	f.session = s
	listeners := make([]ports.AuthListener, 0, len(f.listeners))
	for _, l := range f.listeners {
		listeners = append(listeners, l)
	}
	f.mu.Unlock()
	for _, l := range listeners {
		l(event, s)
	}
}

func (f *fakeIdentity) listenerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.listeners)
}

// staticSessions is a SessionSource with a fixed session
type staticSessions struct{ session *ports.Session }

func (s staticSessions) Session() *ports.Session { return s.session }

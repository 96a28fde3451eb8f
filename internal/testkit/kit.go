// Package testkit provides in-memory adapters and fixtures for tests.
package testkit

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"screenscan/domain/inspection"
	"screenscan/ports"
)

// PNG is the smallest byte sequence the upload selector accepts as an image
var PNG = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

// InMemoryRecordStore implements ports.RecordStore with in-memory storage
type InMemoryRecordStore struct {
	mu      sync.RWMutex
	records []inspection.Record
	nextID  int64
	now     func() time.Time

	// Err, when set, fails every call
	Err error
}

var _ ports.RecordStore = (*InMemoryRecordStore)(nil)

func NewInMemoryRecordStore() *InMemoryRecordStore {
	return &InMemoryRecordStore{nextID: 1, now: time.Now}
}

// Seed inserts records as-is, assigning IDs to those without one
func (s *InMemoryRecordStore) Seed(records ...inspection.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r.ID == 0 {
			r.ID = s.nextID
		}
		if r.ID >= s.nextID {
			s.nextID = r.ID + 1
		}
		s.records = append(s.records, r)
	}
}

func (s *InMemoryRecordStore) List(ctx context.Context, q ports.RecordQuery) ([]inspection.Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []inspection.Record{}
	for _, r := range s.records {
		if r.UserID == q.UserID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *InMemoryRecordStore) ListLabels(ctx context.Context, userID string) ([]inspection.VerdictLabel, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	labels := []inspection.VerdictLabel{}
	for _, r := range s.records {
		if r.UserID == userID {
			labels = append(labels, inspection.VerdictLabel{Prediction: r.Prediction, Confidence: r.Confidence})
		}
	}
	return labels, nil
}

func (s *InMemoryRecordStore) Create(ctx context.Context, draft inspection.Draft) (*inspection.Record, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	if draft.UserID == "" {
		return nil, errors.New("user_id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	rec := inspection.Record{
		ID:         s.nextID,
		UserID:     draft.UserID,
		DeviceName: draft.DeviceName,
		ImageURL:   draft.ImageURL,
		Prediction: draft.Prediction,
		DefectType: draft.DefectType,
		Confidence: draft.Confidence,
		CreatedAt:  s.now(),
	}
	s.nextID++
	s.records = append(s.records, rec)
	return &rec, nil
}

// Len reports how many records are stored across all users
func (s *InMemoryRecordStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// AnonymousIdentity is an identity provider that never has a session
type AnonymousIdentity struct{}

var errNotSupported = errors.New("not supported")

func (AnonymousIdentity) GetSession(context.Context) (*ports.Session, error) { return nil, nil }
func (AnonymousIdentity) SignInWithPassword(context.Context, string, string) (*ports.Session, error) {
	return nil, errNotSupported
}
func (AnonymousIdentity) SignInWithOAuth(context.Context, string, string) (string, error) {
	return "", errNotSupported
}
func (AnonymousIdentity) ExchangeCodeForSession(context.Context, string) (*ports.Session, error) {
	return nil, errNotSupported
}
func (AnonymousIdentity) SignUp(context.Context, string, string) (*ports.Session, error) {
	return nil, nil
}
func (AnonymousIdentity) SignOut(context.Context) error                      { return nil }
func (AnonymousIdentity) UpdateUser(context.Context, ports.UserUpdate) error { return nil }
func (AnonymousIdentity) OnAuthStateChange(ports.AuthListener) func()        { return func() {} }

// AnalysisFunc adapts a function to ports.AnalysisService
type AnalysisFunc func(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error)

func (f AnalysisFunc) Analyze(ctx context.Context, req ports.AnalysisRequest) (inspection.Verdict, error) {
	return f(ctx, req)
}

// Ptr returns a pointer to v, for optional record fields
func Ptr[T any](v T) *T { return &v }

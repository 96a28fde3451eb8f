package app

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"screenscan/domain/core"
	"screenscan/domain/inspection"
	"screenscan/internal"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/google/uuid"
)

// SubmissionState is a state of the Analysis Submitter
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateValidating SubmissionState = "validating"
	StateSubmitting SubmissionState = "submitting"
	StateSucceeded  SubmissionState = "succeeded"
	StateFailed     SubmissionState = "failed"
)

// Snapshot is a consistent copy of the submitter at one point in time
type Snapshot struct {
	State   SubmissionState     `json:"state"`
	Token   uint64              `json:"token"`
	Verdict *inspection.Verdict `json:"verdict,omitempty"`
	Err     error               `json:"-"`
	Record  *inspection.Record  `json:"record,omitempty"`
	Pending PendingSubmission   `json:"pending"`
}

// ErrorText is the human-readable failure cause, empty unless Failed
func (s Snapshot) ErrorText() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Error()
}

// SessionSource exposes the signed-in session, nil when anonymous
type SessionSource interface {
	Session() *ports.Session
}

// ObjectKeyFunc names the storage object for a user's upload
type ObjectKeyFunc func(userID, filename string) string

// SubmitterConfig wires an AnalysisSubmitter
type SubmitterConfig struct {
	Selector  *UploadSelector
	Sessions  SessionSource
	Analysis  ports.AnalysisService
	Storage   ports.ObjectStorage
	Records   ports.RecordStore
	ObjectKey ObjectKeyFunc
	Timeout   time.Duration // per-request analysis timeout, 0 for none
	Logger    *internal.Logger
}

// AnalysisSubmitter drives one submission at a time through
// Idle -> Validating -> Submitting -> Succeeded|Failed
type AnalysisSubmitter struct {
	cfg    SubmitterConfig
	logger *internal.Logger

	mu        sync.Mutex
	state     SubmissionState
	token     uint64
	verdict   *inspection.Verdict
	err       error
	record    *inspection.Record
	observers map[int]func(Snapshot)
	nextID    int
}

// prefixedKey names objects <prefix>/<user>/<uuid><ext>; the client filename never picks the directory
func prefixedKey(prefix string) ObjectKeyFunc {
	return func(userID, filename string) string {
		return prefix + "/" + url.PathEscape(userID) + "/" + uuid.NewString() + safeExt(filename)
	}
}

var defaultObjectKey = prefixedKey("inspections")

func safeExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}

// NewAnalysisSubmitter creates an idle submitter
func NewAnalysisSubmitter(cfg SubmitterConfig) *AnalysisSubmitter {
	if cfg.Selector == nil {
		cfg.Selector = NewUploadSelector(nil)
	}
	if cfg.ObjectKey == nil {
		cfg.ObjectKey = defaultObjectKey
	}
	return &AnalysisSubmitter{
		cfg:       cfg,
		logger:    cfg.Logger.With("submitter"),
		state:     StateIdle,
		observers: make(map[int]func(Snapshot)),
	}
}

// Submit validates the pending selection and performs exactly one analysis request.
// It is a no-op while a submission is in flight. A response that arrives after Clear or a new
// selection is dropped and reported as core.ErrSuperseded.
func (s *AnalysisSubmitter) Submit(ctx context.Context) (Snapshot, error) {
	s.mu.Lock()
	if s.state == StateSubmitting {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, nil
	}

	prior := s.state
	s.state = StateValidating
	pending := s.cfg.Selector.Pending()
	if err := validatePending(pending); err != nil {
		s.state = prior
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}

	s.token++
	token := s.token
	s.state = StateSubmitting
	s.verdict, s.err, s.record = nil, nil, nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	userID := ""
	if s.cfg.Sessions != nil {
		if session := s.cfg.Sessions.Session(); session != nil {
			userID = session.UserID
		}
	}

	reqCtx := ctx
	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}
	verdict, err := s.cfg.Analysis.Analyze(reqCtx, ports.AnalysisRequest{
		Image:       pending.Data,
		Filename:    pending.Filename,
		ContentType: pending.ContentType,
		DeviceName:  strings.TrimSpace(pending.DeviceName),
		UserID:      userID,
	})

	s.mu.Lock()
	if token != s.token {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Debug("dropping response of submission %d, current is %d", token, snap.Token)
		return snap, core.ErrSuperseded
	}
	if err != nil {
		s.state = StateFailed
		s.err = err
		snap := s.snapshotLocked()
		s.mu.Unlock()
		s.logger.Warn("analysis failed: %v", err)
		s.publish(snap)
		return snap, err
	}
	s.state = StateSucceeded
	s.verdict = &verdict
	snap = s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)

	if userID == "" {
		s.logger.Debug("anonymous submission %d is not persisted", token)
		return snap, nil
	}
	if rec := s.persist(context.WithoutCancel(ctx), userID, pending, verdict); rec != nil {
		s.mu.Lock()
		attached := token == s.token
		if attached {
			s.record = rec
			snap = s.snapshotLocked()
		}
		s.mu.Unlock()
		if attached {
			s.publish(snap)
		}
	}
	return snap, nil
}

func validatePending(p PendingSubmission) error {
	if strings.TrimSpace(p.DeviceName) == "" {
		return errors.Invalid(core.ErrEmptyDeviceName)
	}
	if !p.HasImage() {
		return errors.Invalid(core.ErrNoImage)
	}
	return nil
}

// persist uploads the image and then writes the record; failures are logged and swallowed
func (s *AnalysisSubmitter) persist(ctx context.Context, userID string, p PendingSubmission, v inspection.Verdict) *inspection.Record {
	if s.cfg.Storage == nil || s.cfg.Records == nil {
		return nil
	}

	key := s.cfg.ObjectKey(userID, p.Filename)
	if err := s.cfg.Storage.Upload(ctx, key, p.Data, p.ContentType); err != nil {
		s.logger.Error("%v", errors.PersistenceError("image upload failed", err))
		return nil
	}

	rec, err := s.cfg.Records.Create(ctx, inspection.Draft{
		UserID:     userID,
		DeviceName: inspection.StringPtr(strings.TrimSpace(p.DeviceName)),
		ImageURL:   s.cfg.Storage.PublicURL(key),
		Prediction: v.Status,
		DefectType: v.Type,
		Confidence: v.Confidence,
	})
	if err != nil {
		s.logger.Error("%v", errors.PersistenceError("inspection record write failed", err))
		return nil
	}
	s.logger.Info("stored inspection %d for user %s", rec.ID, userID)
	return rec
}

// SelectFile replaces the pending image; any result or in-flight submission is discarded
func (s *AnalysisSubmitter) SelectFile(filename string, data []byte) (Snapshot, error) {
	s.mu.Lock()
	if _, err := s.cfg.Selector.SelectFile(filename, data); err != nil {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap, err
	}
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap, nil
}

// SetDeviceName updates the device-name hint without leaving the current state
func (s *AnalysisSubmitter) SetDeviceName(name string) Snapshot {
	s.cfg.Selector.SetDeviceName(name)
	return s.Snapshot()
}

// Clear returns to Idle from any state and drops the selection and any late response
func (s *AnalysisSubmitter) Clear() Snapshot {
	s.mu.Lock()
	s.cfg.Selector.Clear()
	s.resetLocked()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

// DismissError leaves Failed for Idle and keeps the selection for resubmission
func (s *AnalysisSubmitter) DismissError() Snapshot {
	s.mu.Lock()
	if s.state != StateFailed {
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	s.state = StateIdle
	s.err = nil
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.publish(snap)
	return snap
}

func (s *AnalysisSubmitter) resetLocked() {
	s.token++
	s.state = StateIdle
	s.verdict, s.err, s.record = nil, nil, nil
}

// Snapshot returns the current state
func (s *AnalysisSubmitter) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *AnalysisSubmitter) snapshotLocked() Snapshot {
	return Snapshot{
		State:   s.state,
		Token:   s.token,
		Verdict: s.verdict,
		Err:     s.err,
		Record:  s.record,
		Pending: s.cfg.Selector.Pending(),
	}
}

// Selector exposes the upload selector this submitter reads from
func (s *AnalysisSubmitter) Selector() *UploadSelector {
	return s.cfg.Selector
}

// OnTransition registers fn for every published transition; the returned func removes it
func (s *AnalysisSubmitter) OnTransition(fn func(Snapshot)) func() {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.observers[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.observers, id)
		s.mu.Unlock()
	}
}

func (s *AnalysisSubmitter) publish(snap Snapshot) {
	s.mu.Lock()
	observers := make([]func(Snapshot), 0, len(s.observers))
	for _, o := range s.observers {
		observers = append(observers, o)
	}
	s.mu.Unlock()

	for _, o := range observers {
		o(snap)
	}
}

package app

import (
	"context"
	stderrors "errors"
	"strings"
	"testing"

	"screenscan/domain/core"
	"screenscan/domain/inspection"
	"screenscan/internal/errors"
	"screenscan/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestClient(identity *fakeIdentity, records *MockRecordStore, analysis ports.AnalysisService) (*Client, *PreviewStore) {
	previews := NewPreviewStore()
	c := NewClient("0123456789abcdef", ClientDeps{
		Identity: identity,
		Analysis: analysis,
		Storage:  &MockObjectStorage{},
		Records:  records,
		Previews: previews,
	})
	c.Start(context.Background())
	return c, previews
}

func TestClientDashboardRequiresSession(t *testing.T) {
	records := &MockRecordStore{}
	c, _ := newTestClient(newFakeIdentity(nil), records, &MockAnalysis{})

	s, err := c.Dashboard(context.Background())

	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
	assert.Equal(t, inspection.EmptySummary(), s)
	records.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestClientHistoryFiltersForSignedInUser(t *testing.T) {
	records := &MockRecordStore{}
	records.On("List", mock.Anything, ports.RecordQuery{UserID: "user-1"}).Return(scenarioRecords(), nil)
	identity := newFakeIdentity(nil)
	c, _ := newTestClient(identity, records, &MockAnalysis{})

	require.NoError(t, c.SignIn(context.Background(), "a@b.co", "secret"))
	assert.Equal(t, GuardAuthenticated, c.Guard.State())

	got, err := c.History(context.Background(), inspection.CategoryDefect, "")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3}, ids(got))
}

func TestClientSignInFailure(t *testing.T) {
	c, _ := newTestClient(newFakeIdentity(nil), &MockRecordStore{}, &MockAnalysis{})

	err := c.SignIn(context.Background(), "a@b.co", "wrong")
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))
	assert.Equal(t, GuardUnauthenticated, c.Guard.State())
}

func TestClientSignOutDropsSubmission(t *testing.T) {
	analysis := &MockAnalysis{}
	analysis.On("Analyze", mock.Anything, mock.Anything).Return(inspection.Verdict{Status: "Clean"}, nil)
	storage := &MockObjectStorage{}
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	records := &MockRecordStore{}
	records.On("Create", mock.Anything, mock.Anything).Return(&inspection.Record{ID: 1}, nil)

	identity := newFakeIdentity(&ports.Session{UserID: "user-1"})
	previews := NewPreviewStore()
	c := NewClient("abc", ClientDeps{Identity: identity, Analysis: analysis, Storage: storage, Records: records, Previews: previews})
	c.Start(context.Background())

	_, err := c.Submitter.SelectFile("s.png", pngBytes)
	require.NoError(t, err)
	c.Submitter.SetDeviceName("Pixel 8")
	snap, err := c.Submitter.Submit(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateSucceeded, snap.State)

	require.NoError(t, c.SignOut(context.Background()))

	assert.Equal(t, GuardUnauthenticated, c.Guard.State())
	assert.Equal(t, StateIdle, c.Submitter.Snapshot().State)
	assert.Equal(t, 0, previews.Len())
}

func TestClientUpdatePassword(t *testing.T) {
	identity := newFakeIdentity(&ports.Session{UserID: "user-1"})
	c, _ := newTestClient(identity, &MockRecordStore{}, &MockAnalysis{})

	err := c.UpdatePassword(context.Background(), "123")
	assert.True(t, errors.HasCode(err, errors.CodeValidationError))

	require.NoError(t, c.UpdatePassword(context.Background(), "a-longer-one"))
	assert.Equal(t, []ports.UserUpdate{{Password: "a-longer-one"}}, identity.updated)
}

func TestClientCloseReleases(t *testing.T) {
	identity := newFakeIdentity(nil)
	c, previews := newTestClient(identity, &MockRecordStore{}, &MockAnalysis{})
	_, err := c.Submitter.SelectFile("s.png", pngBytes)
	require.NoError(t, err)

	c.Close()

	assert.Equal(t, 0, previews.Len())
	assert.Equal(t, 0, identity.listenerCount())
}

func TestClientAnonymousResolutionKeepsSelection(t *testing.T) {
	identity := newFakeIdentity(nil)
	c, previews := newTestClient(identity, &MockRecordStore{}, &MockAnalysis{})

	var published []Snapshot
	c.Submitter.OnTransition(func(s Snapshot) { published = append(published, s) })
	_, err := c.Submitter.SelectFile("s.png", pngBytes)
	require.NoError(t, err)

	// a sign-out event while nobody was signed in leaves the workspace alone
	identity.emit(ports.AuthEventSignedOut, nil)

	assert.Equal(t, "s.png", c.Submitter.Snapshot().Pending.Filename)
	assert.Equal(t, 1, previews.Len())
	require.Len(t, published, 1)
	assert.Equal(t, "s.png", published[0].Pending.Filename)
}

func TestClientUpdateAvatar(t *testing.T) {
	storage := &MockObjectStorage{}
	var key string
	storage.On("Upload", mock.Anything, mock.MatchedBy(func(k string) bool {
		key = k
		return strings.HasPrefix(k, "avatars/user-1/") && strings.HasSuffix(k, ".png")
	}), pngBytes, "image/png").Return(nil).Once()

	identity := newFakeIdentity(nil)
	c := NewClient("abc", ClientDeps{Identity: identity, Storage: storage, Previews: NewPreviewStore()})
	c.Start(context.Background())

	_, err := c.UpdateAvatar(context.Background(), "me.png", pngBytes)
	assert.True(t, errors.HasCode(err, errors.CodeUnauthorized))

	require.NoError(t, c.SignIn(context.Background(), "a@b.co", "secret"))
	_, err = c.UpdateAvatar(context.Background(), "notes.txt", []byte("plain text"))
	assert.ErrorIs(t, err, core.ErrNotImage)

	avatarURL, err := c.UpdateAvatar(context.Background(), "../me.png", pngBytes)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/"+key, avatarURL)
	assert.Equal(t, []ports.UserUpdate{{AvatarURL: avatarURL}}, identity.updated)
	storage.AssertExpectations(t)
}

func TestClientUpdateAvatarUploadFailure(t *testing.T) {
	storage := &MockObjectStorage{}
	storage.On("Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("bucket missing"))
	identity := newFakeIdentity(&ports.Session{UserID: "user-1"})
	c := NewClient("abc", ClientDeps{Identity: identity, Storage: storage, Previews: NewPreviewStore()})
	c.Start(context.Background())

	_, err := c.UpdateAvatar(context.Background(), "me.png", pngBytes)
	assert.True(t, errors.HasCode(err, errors.CodePersistence))
	assert.Empty(t, identity.updated)
}

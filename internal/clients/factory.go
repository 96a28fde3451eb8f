package clients

import (
	"screenscan/app"
	"screenscan/internal/api"
	"screenscan/ports"
)

// EventSubmission is the SSE event name of submitter transitions
const EventSubmission = "submission"

// SubmissionView is the wire form of a submitter snapshot
type SubmissionView struct {
	State      app.SubmissionState `json:"state"`
	Token      uint64              `json:"token"`
	Result     app.DisplayResult   `json:"result"`
	Error      string              `json:"error,omitempty"`
	Filename   string              `json:"filename,omitempty"`
	DeviceName string              `json:"device_name"`
	PreviewID  string              `json:"preview_id,omitempty"`
	RecordID   int64               `json:"record_id,omitempty"`
}

// ViewOf projects a snapshot for browsers
func ViewOf(snap app.Snapshot) SubmissionView {
	v := SubmissionView{
		State:      snap.State,
		Token:      snap.Token,
		Result:     app.Project(snap),
		Error:      snap.ErrorText(),
		Filename:   snap.Pending.Filename,
		DeviceName: snap.Pending.DeviceName,
		PreviewID:  snap.Pending.PreviewID,
	}
	if snap.Record != nil {
		v.RecordID = snap.Record.ID
	}
	return v
}

// NewFactory builds workspaces sharing base, each with its own identity session, and streams
// their submitter transitions to hub when hub is set
func NewFactory(base app.ClientDeps, newIdentity func() ports.IdentityProvider, hub *api.SSEHub) Factory {
	return func(id string) *app.Client {
		deps := base
		deps.Identity = newIdentity()
		c := app.NewClient(id, deps)
		if hub != nil {
			c.Submitter.OnTransition(func(snap app.Snapshot) {
				hub.Broadcast(api.Event{
					ClientID:  id,
					EventType: EventSubmission,
					Data:      ViewOf(snap),
				})
			})
		}
		return c
	}
}

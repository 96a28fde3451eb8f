package ui

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"

	"screenscan/app"
	"screenscan/domain/core"
	"screenscan/internal/clients"
	"screenscan/internal/errors"

	"github.com/gin-gonic/gin"
)

// Profile is the signed-in user shown in the page header
type Profile struct {
	User   string `json:"user"`
	Avatar string `json:"avatar,omitempty"`
}

type inspectionView struct {
	Profile
	Submission clients.SubmissionView `json:"submission"`
	Devices    []string               `json:"devices"`
	Error      string                 `json:"error,omitempty"`
}

func profileOf(client *app.Client) Profile {
	if session := client.Guard.Session(); session != nil {
		return Profile{User: session.Email, Avatar: session.AvatarURL}
	}
	return Profile{}
}

func (s *Server) handleInspectionPage(c *gin.Context) {
	client := workspace(c)
	s.render(c, http.StatusOK, pageInspection, inspectionView{
		Profile:    profileOf(client),
		Submission: clients.ViewOf(client.Submitter.Snapshot()),
		Devices:    SuggestDevices(""),
	})
}

func (s *Server) handleInspectionState(c *gin.Context) {
	c.JSON(http.StatusOK, clients.ViewOf(workspace(c).Submitter.Snapshot()))
}

// respondSubmission writes the snapshot view with the status of err
func respondSubmission(c *gin.Context, snap app.Snapshot, err error) {
	view := clients.ViewOf(snap)
	if err != nil && view.Error == "" {
		view.Error = errorText(err)
	}
	c.JSON(statusOf(err), view)
}

func (s *Server) handleSelectFile(c *gin.Context) {
	client := workspace(c)
	header, err := c.FormFile("file")
	if err != nil {
		respondSubmission(c, client.Submitter.Snapshot(), errors.Invalid(core.ErrNoImage))
		return
	}
	if header.Size > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is larger than 16 MiB"})
		return
	}

	f, err := header.Open()
	if err != nil {
		respondSubmission(c, client.Submitter.Snapshot(), err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		respondSubmission(c, client.Submitter.Snapshot(), err)
		return
	}

	if name, ok := c.GetPostForm("device_name"); ok {
		client.Submitter.SetDeviceName(name)
	}
	snap, err := client.Submitter.SelectFile(header.Filename, data)
	respondSubmission(c, snap, err)
}

func (s *Server) handleSetDevice(c *gin.Context) {
	snap := workspace(c).Submitter.SetDeviceName(c.PostForm("device_name"))
	respondSubmission(c, snap, nil)
}

func (s *Server) handleAnalyze(c *gin.Context) {
	client := workspace(c)
	if name, ok := c.GetPostForm("device_name"); ok {
		client.Submitter.SetDeviceName(name)
	}

	// navigating away must not abort the analysis; Clear or a new selection does
	snap, err := client.Submitter.Submit(context.WithoutCancel(c.Request.Context()))
	if stderrors.Is(err, core.ErrSuperseded) {
		snap = client.Submitter.Snapshot()
	}
	respondSubmission(c, snap, err)
}

func (s *Server) handleClear(c *gin.Context) {
	respondSubmission(c, workspace(c).Submitter.Clear(), nil)
}

func (s *Server) handleDismiss(c *gin.Context) {
	respondSubmission(c, workspace(c).Submitter.DismissError(), nil)
}

func (s *Server) handlePreview(c *gin.Context) {
	preview, ok := workspace(c).Selector.Preview()
	if !ok {
		notFound(c, "preview")
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, preview.ContentType, preview.Data)
}

func (s *Server) handleDevices(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"devices": SuggestDevices(c.Query("q"))})
}

func (s *Server) handleEvents(c *gin.Context) {
	if s.hub == nil {
		notFound(c, "event stream")
		return
	}
	s.hub.HandleSSE(c, workspace(c).ID)
}

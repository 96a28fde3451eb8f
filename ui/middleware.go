package ui

import (
	"context"
	"net/http"
	"time"

	"screenscan/app"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

const (
	workspaceKey = "workspace_id"
	ctxWorkspace = "workspace"
	checkingWait = 3 * time.Second
)

// bindWorkspace attaches the browser's workspace, creating one on first visit or after eviction
func (s *Server) bindWorkspace() gin.HandlerFunc {
	return func(c *gin.Context) {
		session := sessions.Default(c)
		id, _ := session.Get(workspaceKey).(string)

		client, created := s.clients.GetOrCreate(c.Request.Context(), id)
		if created {
			session.Set(workspaceKey, client.ID)
			if err := session.Save(); err != nil {
				s.logger.Warn("failed to save workspace cookie: %v", err)
			}
		}
		c.Set(ctxWorkspace, client)
		c.Next()
	}
}

func workspace(c *gin.Context) *app.Client {
	return c.MustGet(ctxWorkspace).(*app.Client)
}

// requireSession gates a protected area; page is the destination remembered for non-page requests
func (s *Server) requireSession(page string) gin.HandlerFunc {
	return func(c *gin.Context) {
		client := workspace(c)
		ctx := c.Request.Context()

		client.Guard.Revalidate(ctx)
		waitCtx, cancel := context.WithTimeout(ctx, checkingWait)
		client.Guard.Wait(waitCtx)
		cancel()

		isGet := c.Request.Method == http.MethodGet
		destination := page
		if isGet && app.IsProtected(c.Request.URL.Path) {
			destination = c.Request.URL.RequestURI()
		}

		decision := client.Guard.Authorize(destination)
		switch decision.Kind {
		case app.DecisionAllow:
			c.Next()
		case app.DecisionPending:
			c.AbortWithStatusJSON(http.StatusAccepted, gin.H{"state": string(app.GuardChecking)})
		default:
			if isGet && !wantsJSON(c) {
				c.Redirect(http.StatusSeeOther, decision.Location)
				c.Abort()
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"redirect": decision.Location})
		}
	}
}

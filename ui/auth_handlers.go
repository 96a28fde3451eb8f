package ui

import (
	"io"
	"net/http"
	"net/url"

	"screenscan/app"

	"github.com/gin-gonic/gin"
)

type loginView struct {
	Next   string `json:"next"`
	Email  string `json:"email,omitempty"`
	Error  string `json:"error,omitempty"`
	Notice string `json:"notice,omitempty"`
}

// redirectTo sends browsers a 303 and API callers {"redirect": location}
func redirectTo(c *gin.Context, location string) {
	if wantsJSON(c) {
		c.JSON(http.StatusOK, gin.H{"redirect": location})
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

func (s *Server) handleLoginPage(c *gin.Context) {
	client := workspace(c)
	next := c.Query("next")
	if client.Guard.Wait(c.Request.Context()) == app.GuardAuthenticated {
		redirectTo(c, client.Guard.RestoreDestination(next))
		return
	}
	s.render(c, http.StatusOK, pageLogin, loginView{Next: next, Error: c.Query("error")})
}

func (s *Server) handleLogin(c *gin.Context) {
	client := workspace(c)
	next := c.PostForm("next")
	email := c.PostForm("email")

	if err := client.SignIn(c.Request.Context(), email, c.PostForm("password")); err != nil {
		s.logger.Debug("sign-in failed for %s: %v", email, err)
		s.render(c, statusOf(err), pageLogin, loginView{Next: next, Email: email, Error: errorText(err)})
		return
	}
	redirectTo(c, client.Guard.RestoreDestination(next))
}

func (s *Server) handleSignUp(c *gin.Context) {
	client := workspace(c)
	next := c.PostForm("next")
	email := c.PostForm("email")

	signedIn, err := client.SignUp(c.Request.Context(), email, c.PostForm("password"))
	if err != nil {
		s.render(c, statusOf(err), pageLogin, loginView{Next: next, Email: email, Error: errorText(err)})
		return
	}
	if !signedIn {
		s.render(c, http.StatusOK, pageLogin, loginView{
			Next:   next,
			Email:  email,
			Notice: "Check your email to confirm your account, then sign in.",
		})
		return
	}
	redirectTo(c, client.Guard.RestoreDestination(next))
}

func (s *Server) handleOAuthStart(c *gin.Context) {
	client := workspace(c)
	callback := s.publicURL + "/auth/callback?next=" + url.QueryEscape(app.RestoreDestination(c.Query("next")))

	location, err := client.Identity.SignInWithOAuth(c.Request.Context(), c.Param("provider"), callback)
	if err != nil {
		s.render(c, statusOf(err), pageLogin, loginView{Next: c.Query("next"), Error: errorText(err)})
		return
	}
	c.Redirect(http.StatusSeeOther, location)
}

func (s *Server) handleOAuthCallback(c *gin.Context) {
	client := workspace(c)
	next := c.Query("next")

	if desc := c.Query("error_description"); desc != "" {
		s.render(c, http.StatusUnauthorized, pageLogin, loginView{Next: next, Error: desc})
		return
	}
	code := c.Query("code")
	if code == "" {
		s.render(c, http.StatusBadRequest, pageLogin, loginView{Next: next, Error: "missing authorization code"})
		return
	}
	if _, err := client.Identity.ExchangeCodeForSession(c.Request.Context(), code); err != nil {
		s.render(c, statusOf(err), pageLogin, loginView{Next: next, Error: errorText(err)})
		return
	}
	redirectTo(c, client.Guard.RestoreDestination(next))
}

func (s *Server) handleLogout(c *gin.Context) {
	if err := workspace(c).SignOut(c.Request.Context()); err != nil {
		s.logger.Warn("sign-out: %v", err)
	}
	redirectTo(c, app.LoginPath)
}

func (s *Server) handleUpdateAvatar(c *gin.Context) {
	header, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "choose an image"})
		return
	}
	if header.Size > maxUpload {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is larger than 16 MiB"})
		return
	}
	f, err := header.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxUpload))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	avatarURL, err := workspace(c).UpdateAvatar(c.Request.Context(), header.Filename, data)
	if err != nil {
		s.logger.Warn("avatar update failed: %v", err)
		c.JSON(statusOf(err), gin.H{"error": errorText(err)})
		return
	}
	if !wantsJSON(c) {
		c.Redirect(http.StatusSeeOther, "/")
		return
	}
	c.JSON(http.StatusOK, gin.H{"avatar_url": avatarURL})
}

func (s *Server) handleUpdatePassword(c *gin.Context) {
	if err := workspace(c).UpdatePassword(c.Request.Context(), c.PostForm("password")); err != nil {
		c.JSON(statusOf(err), gin.H{"error": errorText(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}


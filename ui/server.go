// Package ui is the browser-facing surface: pages, inspection actions and the live event stream.
package ui

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"screenscan/adapters/objectstore"
	"screenscan/internal"
	"screenscan/internal/api"
	"screenscan/internal/clients"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
)

//go:embed templates/*.html static/*
var embeddedFiles embed.FS

const (
	sessionName = "screenscan"
	maxUpload   = 16 << 20
)

// Options wires a Server
type Options struct {
	Clients       *clients.Registry
	Hub           *api.SSEHub
	Objects       objectstore.Reader // served at /objects when set
	SessionSecret string
	PublicURL     string // base for OAuth callbacks
	SecureCookie  bool
	Logger        *internal.Logger
}

// Server represents the web server for the inspection client
type Server struct {
	router    *gin.Engine
	templates *template.Template
	clients   *clients.Registry
	hub       *api.SSEHub
	objects   objectstore.Reader
	publicURL string
	logger    *internal.Logger
	http      *http.Server
}

// NewServer creates a new web server instance
func NewServer(opts Options) (*Server, error) {
	if opts.Clients == nil {
		return nil, fmt.Errorf("client registry cannot be nil")
	}
	if opts.SessionSecret == "" {
		return nil, fmt.Errorf("session secret cannot be empty")
	}

	templates, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	s := &Server{
		router:    gin.New(),
		templates: templates,
		clients:   opts.Clients,
		hub:       opts.Hub,
		objects:   opts.Objects,
		publicURL: opts.PublicURL,
		logger:    opts.Logger.With("ui"),
	}

	store := cookie.NewStore([]byte(opts.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((30 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   opts.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	s.http = &http.Server{Handler: s.router, ReadHeaderTimeout: 10 * time.Second}

	s.router.Use(gin.Logger(), gin.Recovery())
	s.router.Use(sessions.Sessions(sessionName, store))
	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

// setupMiddleware serves static assets and binds every request to its workspace
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(embeddedFiles, "static")
	if err != nil {
		s.logger.Error("static filesystem unavailable: %v", err)
	} else {
		s.router.StaticFS("/static", http.FS(staticFS))
	}

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "workspaces": s.clients.Len()})
	})
	if s.objects != nil {
		s.router.GET("/objects/*key", s.handleObject)
	}

	s.router.Use(s.bindWorkspace())
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	s.router.GET("/login", s.handleLoginPage)
	s.router.POST("/login", s.handleLogin)
	s.router.POST("/signup", s.handleSignUp)
	s.router.GET("/login/oauth/:provider", s.handleOAuthStart)
	s.router.GET("/auth/callback", s.handleOAuthCallback)
	s.router.POST("/logout", s.handleLogout)

	s.router.GET("/", s.requireSession("/"), s.handleDashboard)
	s.router.POST("/account/password", s.requireSession("/"), s.handleUpdatePassword)
	s.router.POST("/account/avatar", s.requireSession("/"), s.handleUpdateAvatar)

	inspection := s.router.Group("/inspection", s.requireSession("/inspection"))
	inspection.GET("", s.handleInspectionPage)
	inspection.POST("/file", s.handleSelectFile)
	inspection.POST("/device", s.handleSetDevice)
	inspection.POST("/analyze", s.handleAnalyze)
	inspection.POST("/clear", s.handleClear)
	inspection.POST("/dismiss", s.handleDismiss)
	inspection.GET("/state", s.handleInspectionState)
	inspection.GET("/preview", s.handlePreview)
	inspection.GET("/devices", s.handleDevices)
	inspection.GET("/events", s.handleEvents)

	history := s.router.Group("/history", s.requireSession("/history"))
	history.GET("", s.handleHistory)
	history.GET("/export.xlsx", s.handleExport)
}

// Handler exposes the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves on addr until Shutdown
func (s *Server) Start(addr string) error {
	s.http.Addr = addr
	s.logger.Info("serving on http://%s", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) handleObject(c *gin.Context) {
	key := c.Param("key")
	if len(key) > 0 && key[0] == '/' {
		key = key[1:]
	}
	obj, ok := s.objects.Get(key)
	if !ok {
		notFound(c, "object")
		return
	}
	c.Data(http.StatusOK, obj.ContentType, obj.Data)
}

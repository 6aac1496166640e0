// Package server is the SmartSim web front end: it renders the navigation
// surface behind the route gate and runs the page flows for the one
// session the process holds.
package server

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/smartsim-dev/smartsim/internal/app"
	"github.com/smartsim-dev/smartsim/internal/config"
	"github.com/smartsim-dev/smartsim/internal/flows"
	"github.com/smartsim-dev/smartsim/internal/models"
	"github.com/smartsim-dev/smartsim/internal/routes"
	"github.com/smartsim-dev/smartsim/internal/session"
)

// Server represents the HTTP server
type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  zerolog.Logger
	manager *session.Manager
	flows   *flows.Service
	routes  *routes.Table
	version string

	// sessionChangedAt is the last sign-in, sign-out or profile change
	sessionChangedAt atomic.Pointer[time.Time]
	unsubscribe      func()
}

// New creates a new server instance over an already wired runtime
func New(rt *app.Runtime, version string) (*Server, error) {
	pages, err := newPageRender()
	if err != nil {
		return nil, err
	}

	server := &Server{
		config:  rt.Config,
		logger:  rt.Logger,
		manager: rt.Manager,
		flows:   rt.Flows,
		routes:  rt.Routes,
		version: version,
	}

	// Setup router
	server.setupRouter(pages)
	server.unsubscribe = rt.Manager.Subscribe(server.sessionChanged)

	return server, nil
}

func (s *Server) sessionChanged(sess models.Session) {
	now := time.Now().UTC()
	s.sessionChangedAt.Store(&now)

	event := s.logger.Info().Bool("authenticated", sess.Authenticated())
	if sess.User != nil {
		event = event.Str("user_id", sess.User.ID).Bool("admin", sess.User.IsAdmin)
	}
	event.Msg("Session changed")
}

// Close stops listening for session changes
func (s *Server) Close() {
	s.unsubscribe()
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter(pages *pageRender) {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()
	s.router.HTMLRender = pages

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(requestIDMiddleware())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.Server.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization", requestIDHeader},
		ExposeHeaders:    []string{"Content-Length", requestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (outside the route gate)
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/signout", s.signOut)

	// Public pages, skipped once signed in
	s.router.GET(routes.PathSignIn, s.gate(routes.PathSignIn), s.signInPage)
	s.router.POST(routes.PathSignIn, s.gate(routes.PathSignIn), s.signIn)
	s.router.GET(routes.PathSignUp, s.gate(routes.PathSignUp), s.staticPage(pageSignUp, "Create account"))
	s.router.GET(routes.PathForgotPassword, s.gate(routes.PathForgotPassword), s.staticPage(pageForgotPassword, "Forgot password"))

	// Private pages
	dashboard := s.router.Group(routes.PathDashboard, s.gate(routes.PathDashboard))
	{
		dashboard.GET("", s.dashboardPage)
		dashboard.POST("/send", s.sendSMS)
		dashboard.GET("/balance", s.balance)
	}

	profile := s.router.Group(routes.PathProfile, s.gate(routes.PathProfile))
	{
		profile.GET("", s.profilePage)
		profile.POST("", s.updateProfile)
	}

	// Admin pages
	updateUser := s.router.Group(routes.PathUpdateUser, s.gate(routes.PathUpdateUser))
	{
		updateUser.GET("", s.updateUserPage)
		updateUser.POST("", s.updateUser)
	}
}

// Router returns the HTTP handler
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":        "online",
		"timestamp":     time.Now().UTC(),
		"service":       "smartsim-web",
		"version":       s.version,
		"authenticated": s.manager.Snapshot().Authenticated(),
	}
	if at := s.sessionChangedAt.Load(); at != nil {
		body["session_changed_at"] = *at
	}
	c.JSON(http.StatusOK, body)
}

// Start serves until ctx is done, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	addr := s.config.Server.Address

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("address", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			s.logger.Error().Err(err).Msg("HTTP server error")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	s.Close()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

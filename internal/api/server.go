// Package api exposes the HTTP surface: the webhook intake endpoints, a
// health check, and a JWT-protected operator status endpoint.
package api

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/lingobot/internal/api/auth"
	"github.com/lingobot/internal/conversation"
	"github.com/lingobot/internal/intake"
	"github.com/lingobot/internal/platform"
	"github.com/lingobot/internal/tasks"
)

// Options configures the API server
type Options struct {
	Host string
	Port int

	VerifyToken string // Meta webhook verification token
	AppSecret   string // enables X-Hub-Signature-256 checks when set
	JWTSecret   string

	PersistTimeout time.Duration
}

// Server represents the API server
type Server struct {
	echo *echo.Echo
	opts Options

	dispatcher *intake.Dispatcher
	responder  *platform.ResponseDispatcher
	convo      conversation.Store
	tasks      *tasks.Supervisor
	stats      *intake.Stats
}

// NewServer creates a new API server
func NewServer(opts Options, dispatcher *intake.Dispatcher, responder *platform.ResponseDispatcher, convo conversation.Store, supervisor *tasks.Supervisor, stats *intake.Stats) *Server {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}

	server := &Server{
		echo:       e,
		opts:       opts,
		dispatcher: dispatcher,
		responder:  responder,
		convo:      convo,
		tasks:      supervisor,
		stats:      stats,
	}

	// Setup routes
	server.setupRoutes()

	return server
}

// setupRoutes configures all API endpoints
func (s *Server) setupRoutes() {
	// Health check endpoint
	s.echo.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status": "healthy",
		})
	})

	// Webhook surface
	s.echo.GET("/webhook", s.VerifyWebhookHandler)
	s.echo.POST("/webhook", s.WebhookHandler)

	// Operator endpoints
	v1 := s.echo.Group("/api/v1")
	v1.GET("/status", s.StatusHandler, auth.RequireAuth(s.opts.JWTSecret))
}

// StatusHandler reports uptime and intake counters
func (s *Server) StatusHandler(c echo.Context) error {
	processed, duplicates, audioJobs := s.stats.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"uptime":     s.stats.Uptime().Round(time.Second).String(),
		"processed":  processed,
		"duplicates": duplicates,
		"audio_jobs": audioJobs,
	})
}

// Start begins the API server and blocks until an interrupt, then shuts
// down gracefully.
func (s *Server) Start() error {
	go func() {
		addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
		if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
			s.echo.Logger.Fatal("shutting down the server")
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.echo.Shutdown(ctx)
}

// Echo exposes the router for tests
func (s *Server) Echo() *echo.Echo {
	return s.echo
}

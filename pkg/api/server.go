// Package api provides an HTTP inspection API over the conference packet codec
package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ZentaChain/zentalk-wire/pkg/storage"
)

// Server represents the HTTP API server for packet inspection
type Server struct {
	router      *gin.Engine
	config      *Config
	httpServer  *http.Server
	rateLimiter *RateLimiter
	capture     *storage.CaptureStore // nil when capture is disabled
}

// Config holds server configuration
type Config struct {
	Port         int
	EnableCORS   bool
	RateLimit    int // Requests per minute, 0 disables limiting
	MaxBodyKB    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultConfig returns default server configuration
func DefaultConfig() *Config {
	return &Config{
		Port:         8080,
		EnableCORS:   true,
		RateLimit:    100,
		MaxBodyKB:    64,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

// NewServer creates a new HTTP API server. capture may be nil, in which case
// the capture endpoints report 503.
func NewServer(capture *storage.CaptureStore, config *Config) *Server {
	if config == nil {
		config = DefaultConfig()
	}

	gin.SetMode(gin.ReleaseMode)

	server := &Server{
		router:  gin.New(),
		config:  config,
		capture: capture,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	if s.config.EnableCORS {
		s.router.Use(CORSMiddleware())
	}

	if s.config.RateLimit > 0 {
		s.rateLimiter = NewRateLimiter(s.config.RateLimit)
		s.router.Use(RateLimitMiddleware(s.rateLimiter))
	}

	s.router.Use(LoggingMiddleware())
	s.router.Use(gin.Recovery())
	s.router.Use(BodyLimitMiddleware(int64(s.config.MaxBodyKB) << 10))
}

// setupRoutes configures API routes
func (s *Server) setupRoutes() {
	v1 := s.router.Group("/api/v1")
	{
		packets := v1.Group("/packets")
		{
			packets.GET("/kinds", s.handleKinds)
			packets.POST("/decode", s.handleDecode)
			packets.POST("/new-peer", s.handleEncodeNewPeer)
			packets.POST("/message", s.handleEncodeMessage)
		}

		captures := v1.Group("/captures")
		{
			captures.GET("", s.handleListCaptures)
			captures.GET("/stats", s.handleCaptureStats)
			captures.GET("/:id", s.handleGetCapture)
		}
	}

	// Health check endpoint (outside versioning)
	s.router.GET("/health", s.handleHealth)
}

// Handler returns the HTTP handler, for embedding or tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("🌐 HTTP API server starting on port %d...", s.config.Port)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Println("🛑 Shutting down HTTP API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return s.Stop(shutdownCtx)
}

// Stop shuts the HTTP server down and stops background cleanup
func (s *Server) Stop(ctx context.Context) error {
	if s.rateLimiter != nil {
		s.rateLimiter.Stop()
	}
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

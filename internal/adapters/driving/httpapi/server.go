// Package httpapi serves the question answering API over HTTP with gin.
//
// Every route except /health requires a bearer token. The identity in the
// token is the owner of the documents, summaries and conversations the
// request touches.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/docqa/internal/core/ports/driving"
	"github.com/custodia-labs/docqa/internal/logger"
)

var log = logger.Named("http")

// Server defaults.
const (
	DefaultAddr           = "127.0.0.1:8080"
	DefaultMaxUploadBytes = 50 << 20
	shutdownTimeout       = 10 * time.Second
)

// Services are the core services the API exposes.
type Services struct {
	Ingest    driving.IngestService
	Documents driving.DocumentService
	Answers   driving.AnswerService
	Chat      driving.ChatService
	Summaries driving.SummaryService
}

// Config holds server configuration.
type Config struct {
	// Addr is the listen address. Empty uses DefaultAddr.
	Addr string

	// AllowedOrigins lists CORS origins. Empty allows any origin.
	AllowedOrigins []string

	// MaxUploadBytes caps the size of an uploaded document.
	MaxUploadBytes int64

	// Version is reported by /health.
	Version string

	// Release switches gin to release mode.
	Release bool
}

// Server is the HTTP API server.
type Server struct {
	cfg      Config
	svc      Services
	verifier TokenVerifier
	engine   *gin.Engine
}

// NewServer creates a server and registers its routes.
func NewServer(cfg Config, svc Services, verifier TokenVerifier) *Server {
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = DefaultMaxUploadBytes
	}
	if cfg.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{cfg: cfg, svc: svc, verifier: verifier}
	s.engine = s.routes()
	return s
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.MaxMultipartMemory = s.cfg.MaxUploadBytes
	r.Use(gin.Logger())
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(CORS(s.cfg.AllowedOrigins))

	r.GET("/health", s.health)

	api := r.Group("/")
	api.Use(BearerAuth(s.verifier))

	api.POST("/documents", s.uploadDocument)
	api.GET("/documents", s.listDocuments)
	api.GET("/documents/:id", s.getDocument)
	api.DELETE("/documents/:id", s.deleteDocument)

	api.POST("/ask", s.ask)
	api.POST("/ask/stream", s.askStream)

	api.GET("/conversations/:id", s.conversationHistory)
	api.POST("/conversations/:id/reset", s.resetConversation)

	api.GET("/summaries/:id", s.getSummary)
	api.POST("/summaries/:id", s.createSummary)
	api.POST("/summaries/:id/regenerate", s.regenerateSummary)

	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Addr returns the configured listen address.
func (s *Server) Addr() string {
	return s.cfg.Addr
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening on %s", s.cfg.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"version": s.cfg.Version,
	})
}

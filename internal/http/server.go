// Package http provides the HTTP API server, the metrics server and shared middleware.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/nemory/userkeys/internal/config"
	envelopeHTTP "github.com/nemory/userkeys/internal/envelope/http"
	"github.com/nemory/userkeys/internal/metrics"
	userkeyHTTP "github.com/nemory/userkeys/internal/userkey/http"
)

// Server is the envelope encryption HTTP API.
type Server struct {
	db     *sql.DB
	server *http.Server
	logger *slog.Logger
	router *gin.Engine
}

// NewServer creates a new HTTP server. SetupRouter must be called before Start.
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers middleware and routes. ctx bounds the lifetime of
// background work started by middleware, such as rate limiter cleanup.
func (s *Server) SetupRouter(
	ctx context.Context,
	cfg *config.Config,
	envelopeHandler *envelopeHTTP.EnvelopeHandler,
	userKeyHandler *userkeyHTTP.UserKeyHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSAllowOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	users := router.Group("/v1/users/:user_id")
	{
		users.GET("/key", userKeyHandler.GetHandler)
		users.POST("/key/rotate", userKeyHandler.RotateHandler)

		users.POST("/envelopes/encrypt", envelopeHandler.EncryptHandler)

		decrypt := []gin.HandlerFunc{}
		if cfg.DecryptRateLimitEnabled {
			decrypt = append(decrypt, envelopeHTTP.DecryptRateLimitMiddleware(
				ctx,
				cfg.DecryptRateLimitRequestsPerSec,
				cfg.DecryptRateLimitBurst,
				s.logger,
			))
		}
		decrypt = append(decrypt, envelopeHandler.DecryptHandler)
		users.POST("/envelopes/decrypt", decrypt...)
	}

	shared := router.Group("/v1/crypto")
	{
		shared.POST("/encrypt", envelopeHandler.SharedEncryptHandler)
		shared.POST("/decrypt", envelopeHandler.SharedDecryptHandler)
	}

	s.router = router
}

// Start serves requests until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured")
	}
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// healthHandler reports liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the database is reachable.
func (s *Server) readinessHandler(c *gin.Context) {
	database := "ok"
	if s.db == nil {
		database = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			database = "error"
		}
	}

	status, code := "ready", http.StatusOK
	if database != "ok" {
		status, code = "not_ready", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":     status,
		"components": gin.H{"database": database},
	})
}

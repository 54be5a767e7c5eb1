// Package http provides HTTP server implementation and request handlers.
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

	assetHTTP "github.com/allisson/streamvault/internal/asset/http"
)

// Server represents the API HTTP server.
type Server struct {
	server *http.Server
	router *gin.Engine
	db     *sql.DB
	logger *slog.Logger
}

// NewServer creates a new HTTP server. The router is assembled by
// SetupRouter before Start.
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

// RouterConfig holds the optional pieces of the router assembly.
type RouterConfig struct {
	// MetricsMiddleware records per-request HTTP metrics when set.
	MetricsMiddleware gin.HandlerFunc

	// CORSEnabled turns on CORS handling for the configured origins.
	CORSEnabled    bool
	CORSOrigins    string
	PlaybackRPS    float64
	PlaybackBurst  int
	TrustedProxies []string
}

// SetupRouter assembles the gin router: recovery, request ids, logging,
// optional CORS and metrics, and the asset ingest/playback routes. Playback
// routes carry per-client rate limiting since they do CPU work (decryption)
// per request.
func (s *Server) SetupRouter(assetHandler *assetHTTP.AssetHandler, cfg RouterConfig) error {
	router := gin.New()

	if err := router.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return fmt.Errorf("failed to set trusted proxies: %w", err)
	}

	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if corsMiddleware := createCORSMiddleware(cfg.CORSEnabled, cfg.CORSOrigins, s.logger); corsMiddleware != nil {
		router.Use(corsMiddleware)
	}

	if cfg.MetricsMiddleware != nil {
		router.Use(cfg.MetricsMiddleware)
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		ingest := v1.Group("/assets")
		ingest.POST("/:id/encrypt", assetHandler.EncryptHandler)
		ingest.POST("/:id/publish", assetHandler.PublishHandler)

		metadata := v1.Group("/assets")
		metadata.GET("", assetHandler.ListAssetsHandler)
		metadata.GET("/:id", assetHandler.GetAssetHandler)

		playback := v1.Group("/assets")
		if cfg.PlaybackRPS > 0 {
			playback.Use(RateLimitMiddleware(cfg.PlaybackRPS, cfg.PlaybackBurst, s.logger))
		}
		playback.GET("/:id/playlist", assetHandler.GetMasterPlaylistHandler)
		playback.GET("/:id/renditions/:rendition/playlist", assetHandler.GetPlaylistHandler)
		playback.GET("/:id/renditions/:rendition/segments/:index", assetHandler.GetSegmentHandler)
	}

	s.router = router
	return nil
}

// healthHandler reports process liveness.
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports whether the server can take traffic. The metadata
// database must answer a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	components := gin.H{}
	ready := true

	if s.db == nil {
		components["database"] = "error"
		ready = false
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.db.PingContext(ctx); err != nil {
			components["database"] = "error"
			ready = false
		} else {
			components["database"] = "ok"
		}
	}

	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": components,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": components,
	})
}

// Start starts the HTTP server.
func (s *Server) Start(ctx context.Context) error {
	if s.router == nil {
		return fmt.Errorf("router not configured: call SetupRouter before Start")
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

// Package api implements the HTTP API for the search service.
package api

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/myaku-dev/myaku/internal/config"
	"github.com/myaku-dev/myaku/internal/logger"
	"github.com/myaku-dev/myaku/internal/models"
)

const (
	readHeaderTimeout = 10 * time.Second
	defaultReadWrite  = 30 * time.Second
	idleTimeout       = 60 * time.Second
)

// Searcher runs search queries for the API handlers.
type Searcher interface {
	Search(ctx context.Context, query models.Query) (*models.SearchResultPage, error)
}

// NewRouter creates and configures the Gin router with all routes.
func NewRouter(searcher Searcher, cfg config.APIConfig, log logger.Logger) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(log))
	router.Use(corsMiddleware(cfg.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/search", handleSearch(searcher, log))
	router.GET("/resource-links", handleResourceLinks)

	return router
}

// NewServer wraps the router in an http.Server listening on the configured
// port.
func NewServer(searcher Searcher, cfg config.APIConfig, log logger.Logger) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           NewRouter(searcher, cfg, log),
		ReadTimeout:       defaultReadWrite,
		WriteTimeout:      defaultReadWrite,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// loggingMiddleware logs each request with latency and status.
func loggingMiddleware(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path
		query := c.Request.URL.RawQuery

		c.Next()

		log.Info("http request",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.String("query", query),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("latency", time.Since(start)),
		)
	}
}

// corsMiddleware allows cross-origin requests from the configured origins.
// An empty list allows any origin.
func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		switch {
		case len(allowedOrigins) == 0:
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		case slices.Contains(allowedOrigins, origin):
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Vary", "Origin")
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Content-Length, Accept-Encoding, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// Package api exposes store management, search and results over HTTP.
package api

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/aluiziolira/go-scrape-stores/config"
	"github.com/aluiziolira/go-scrape-stores/scraper"
	"github.com/aluiziolira/go-scrape-stores/stores"
)

// Server holds the dependencies shared by the handlers.
type Server struct {
	cfg     *config.Config
	scraper *scraper.Scraper
	stores  *stores.Collection
	repo    *stores.FileRepository
	started time.Time

	// scrapeLimiter throttles endpoints that fan out to remote stores.
	scrapeLimiter *rate.Limiter

	persistMu sync.Mutex
}

// NewServer wires the handlers to their dependencies.
func NewServer(cfg *config.Config, sc *scraper.Scraper, collection *stores.Collection, repo *stores.FileRepository) *Server {
	return &Server{
		cfg:           cfg,
		scraper:       sc,
		stores:        collection,
		repo:          repo,
		started:       time.Now(),
		scrapeLimiter: rate.NewLimiter(rate.Limit(2), 4),
	}
}

// Router builds the gin engine.
//
// Middleware chain: Recovery → request log. Scrape-triggering routes are
// additionally throttled.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger())

	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.scraper.Metrics.Registry, promhttp.HandlerOpts{})))

	v1 := r.Group("/api/v1")
	v1.GET("/health", s.health)

	v1.GET("/stores", s.listStores)
	v1.POST("/stores", s.createStore)
	v1.PUT("/stores/:index", s.updateStore)
	v1.DELETE("/stores/:index", s.deleteStore)

	v1.GET("/suggestions/:field", s.suggestions)

	v1.GET("/results", s.results)
	v1.GET("/results/export", s.exportResults)

	throttled := v1.Group("")
	throttled.Use(s.throttle())
	throttled.POST("/stores/:index/test", s.testStore)
	throttled.POST("/search", s.search)

	return r
}

func (s *Server) throttle() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !s.scrapeLimiter.Allow() {
			abortWithError(c, errRateLimited)
			return
		}
		c.Next()
	}
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		slog.Debug("http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}

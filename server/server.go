// Package server exposes the expense tracker over HTTP: CRUD for
// categories and expenses, period summaries, CSV export, cache/limiter
// statistics, Prometheus metrics, and health. Request handlers delegate
// to the store, which owns caching and invalidation; this layer only adds
// transport concerns (binding, status mapping, rate limiting, logging).
package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Issafulldev/notbroke/config"
	"github.com/Issafulldev/notbroke/ratelimit"
	"github.com/Issafulldev/notbroke/store"
)

// Server wires the HTTP routes to the store, rate limiter, and metrics.
type Server struct {
	cfg     *config.Config
	store   *store.Store
	limiter *ratelimit.Limiter
	log     *zap.Logger
	engine  *gin.Engine
}

// New builds the HTTP surface. The caller owns the store and limiter
// lifecycles.
func New(cfg *config.Config, st *store.Store, limiter *ratelimit.Limiter, log *zap.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		store:   st,
		limiter: limiter,
		log:     log,
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(s.requestID())
	engine.Use(s.requestLogger())
	engine.Use(s.cors())
	s.engine = engine

	s.routes()
	return s
}

// Handler returns the root http.Handler, for http.Server and tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	read := s.rateLimit(s.cfg.RateLimits.Read)
	write := s.rateLimit(s.cfg.RateLimits.Write)
	export := s.rateLimit(s.cfg.RateLimits.Export)

	s.engine.GET("/health", s.health)
	s.engine.GET("/metrics", gin.WrapH(s.metricsHandler()))

	s.engine.POST("/categories", write, s.createCategory)
	s.engine.GET("/categories", read, s.listCategories)
	s.engine.GET("/categories/:id", read, s.getCategory)
	s.engine.PATCH("/categories/:id", write, s.updateCategory)
	s.engine.DELETE("/categories/:id", write, s.deleteCategory)
	s.engine.GET("/categories/:id/expenses", read, s.listCategoryExpenses)

	s.engine.POST("/expenses", write, s.createExpense)
	s.engine.GET("/expenses", read, s.searchExpenses)
	s.engine.GET("/expenses/export", export, s.exportExpenses)
	s.engine.PATCH("/expenses/:id", write, s.updateExpense)
	s.engine.DELETE("/expenses/:id", write, s.deleteExpense)

	s.engine.GET("/summary", read, s.getSummary)

	s.engine.GET("/stats/cache", read, s.cacheStats)
	s.engine.DELETE("/stats/cache", write, s.resetCacheStats)
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":      "ok",
		"environment": s.cfg.Environment,
	})
}

func (s *Server) cacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"cache":        s.store.Cache().Stats(),
		"rate_limiter": s.limiter.Stats(),
	})
}

func (s *Server) resetCacheStats(c *gin.Context) {
	s.store.Cache().ResetStats()
	s.limiter.Reset()
	c.Status(http.StatusNoContent)
}

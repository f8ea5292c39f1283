package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"
)

// Version is reported by the index route
const Version = "3.0.0"

// RouterOptions tunes the middleware around the API
type RouterOptions struct {
	RateLimitPerSec float64
	RateBurst       int
	CacheTTL        time.Duration
	// Gatherer backs /metrics; nil uses the default prometheus registry
	Gatherer prometheus.Gatherer
}

// NewRouter creates and configures a new Gin router
func NewRouter(h *Handler, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	if opts.RateLimitPerSec <= 0 {
		opts.RateLimitPerSec = 5
	}
	if opts.RateBurst <= 0 {
		opts.RateBurst = 10
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 5 * time.Minute
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}

	limit := RateLimiter(rate.Limit(opts.RateLimitPerSec), opts.RateBurst)
	caching := Cache(cache.New(opts.CacheTTL, 2*opts.CacheTTL), opts.CacheTTL)

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Roster Engine API",
			"version": Version,
		})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))

	api := r.Group("/api")
	{
		api.POST("/validate", h.ValidateInput)
		api.POST("/solve", limit, h.Solve)
		api.POST("/solve/csv", limit, h.SolveCSV)

		api.GET("/solutions/:id", caching, h.GetSolution)
		api.GET("/solutions/:id/stats", caching, h.GetStats)
		api.GET("/solutions/:id/explain", caching, h.Explain)
		api.POST("/solutions/:id/publish", h.Publish)

		api.GET("/orgs/:org/solutions", h.ListSolutions)
	}
	return r
}

package handler

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/arnavshah/roster-engine/pkg/baseline"
	"github.com/arnavshah/roster-engine/pkg/config"
	"github.com/arnavshah/roster-engine/pkg/database"
	"github.com/arnavshah/roster-engine/pkg/engine"
	"github.com/arnavshah/roster-engine/pkg/handlers"
	"github.com/arnavshah/roster-engine/pkg/logging"
	"github.com/arnavshah/roster-engine/pkg/telemetry"
)

var r *gin.Engine

func init() {
	// .env files only exist under `vercel dev`
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}
	logger := logging.New(cfg.Log.Level, "json")

	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	solutions := database.NewSolutionStore(db)
	reg := prometheus.NewRegistry()

	eng := engine.New(cfg.SchedulerConfig(),
		engine.WithSolutions(solutions),
		engine.WithBaselines(baseline.NewGormStore(db)),
		engine.WithMetrics(telemetry.NewPrometheus(reg, "")),
		engine.WithLogger(logger),
	)

	gin.SetMode(gin.ReleaseMode)
	r = handlers.NewRouter(&handlers.Handler{Engine: eng, Solutions: solutions, Log: logger}, handlers.RouterOptions{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateBurst:       cfg.Server.RateBurst,
		CacheTTL:        cfg.Server.CacheTTL,
		Gatherer:        reg,
	})
}

// Handler is the entry point for Vercel Go Runtime
func Handler(w http.ResponseWriter, req *http.Request) {
	r.ServeHTTP(w, req)
}

package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

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

func main() {
	cfg, err := config.LoadEnv()
	if err != nil {
		log.Fatalf("could not load config: %v", err)
	}

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format)

	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		log.Fatalf("could not open database: %v", err)
	}
	solutions := database.NewSolutionStore(db)

	eng := engine.New(cfg.SchedulerConfig(),
		engine.WithSolutions(solutions),
		engine.WithBaselines(baseline.NewGormStore(db)),
		engine.WithMetrics(telemetry.NewPrometheus(prometheus.DefaultRegisterer, "")),
		engine.WithLogger(logger),
	)
	h := &handlers.Handler{Engine: eng, Solutions: solutions, Log: logger}

	r := handlers.NewRouter(h, handlers.RouterOptions{
		RateLimitPerSec: cfg.Server.RateLimitPerSec,
		RateBurst:       cfg.Server.RateBurst,
		CacheTTL:        cfg.Server.CacheTTL,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", "port", cfg.Server.Port, "version", handlers.Version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("could not run server: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
}

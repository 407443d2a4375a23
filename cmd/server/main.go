package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/searchforge/rank_fusion/internal/api"
	"github.com/searchforge/rank_fusion/internal/config"
	"github.com/searchforge/rank_fusion/internal/controller"
	"github.com/searchforge/rank_fusion/obs"
	"github.com/searchforge/rank_fusion/policy"
)

func main() {
	cfg, err := config.Load(os.Getenv("FUSION_CONFIG"))
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("config", zap.Error(err))
	}

	logger, err := obs.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		zap.Must(zap.NewProduction()).Fatal("logger", zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()

	shutdown, err := obs.InitTracer(cfg.Tracing.ServiceName, cfg.Tracing.SampleRatio)
	if err != nil {
		logger.Warn("tracer init failed", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdown(ctx); err != nil {
			logger.Warn("tracer shutdown error", zap.Error(err))
		}
	}()

	guard, err := policy.NewGuard(cfg.GuardPolicy(), policy.NewMetrics())
	if err != nil {
		logger.Fatal("guard", zap.Error(err))
	}

	ctrl, err := controller.New(controller.Config{
		Defaults:      cfg.FuseOptions(),
		CanonicalKeys: cfg.Fusion.CanonicalKeys,
		Guard:         guard,
		Logger:        logger,
		MetricSources: cfg.Fusion.MetricSources,
	})
	if err != nil {
		logger.Fatal("controller", zap.Error(err))
	}

	router, err := api.NewRouter(ctrl, api.Config{
		MaxBodyBytes:  cfg.Guard.MaxBodyBytes,
		TrustClientID: cfg.Guard.TrustClientID,
	})
	if err != nil {
		logger.Fatal("router", zap.Error(err))
	}
	router.Handle("/metrics", promhttp.Handler())

	root := chi.NewRouter()
	root.Mount("/", router)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Port),
		Handler:      root,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		defaults := ctrl.Defaults()
		logger.Info("rank fusion listening",
			zap.Int("port", cfg.Port),
			zap.String("normalization", string(defaults.Normalization)),
			zap.String("conflation", string(defaults.Conflation)),
			zap.String("degenerate_policy", string(defaults.Degenerate)),
			zap.String("tie_break", string(defaults.TieBreak)),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}

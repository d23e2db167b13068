package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Kwoolford/pos-terminal/internal/api"
	"github.com/Kwoolford/pos-terminal/internal/config"
	"github.com/Kwoolford/pos-terminal/internal/events"
	"github.com/Kwoolford/pos-terminal/internal/obs"
	"github.com/Kwoolford/pos-terminal/internal/resilience"
	"github.com/Kwoolford/pos-terminal/internal/session"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logFormat := envOrDefault("OBS_LOG_FORMAT", cfg.LogFormat)
	logLevel := envOrDefault("OBS_LOG_LEVEL", cfg.LogLevel)
	logger := obs.NewLogger(logFormat, logLevel).With().Str("env", cfg.AppEnv).Logger()

	metricsNamespace := envOrDefault("OBS_METRICS_NAMESPACE", "pos")
	apiMetrics := obs.NewAPIMetrics(metricsNamespace, nil, nil)

	breaker := resilience.NewBreaker(cfg.BreakerMinRequests, cfg.BreakerFailureRatio, cfg.BreakerOpenFor).
		WithTarget("pos-backend").
		WithLogger(logger)

	client, err := api.New(api.Options{
		BaseURL:         cfg.APIBaseURL,
		Token:           cfg.APIToken,
		Breaker:         breaker,
		ReadMaxAttempts: cfg.ReadMaxAttempts,
		ReadBackoffBase: cfg.ReadBackoffBase,
		Timeout:         cfg.RequestTimeout,
		Logger:          logger,
		Metrics:         apiMetrics,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("configure api client")
	}

	bus := events.NewBus(logger)
	sess := session.New(client, bus, logger)

	bus.Subscribe(events.TopicOrderCompleted, func(ctx context.Context, evt events.Event) {
		if order, ok := evt.Payload.(*api.Order); ok {
			logger.Info().Str("order_number", order.OrderNumber).Msg("sale recorded")
		}
	})
	bus.Subscribe(events.TopicReturnCompleted, func(ctx context.Context, evt events.Event) {
		if result, ok := evt.Payload.(*api.ReturnResult); ok {
			logger.Info().
				Str("order_number", result.OrderNumber).
				Float64("refund_amount", result.RefundAmount).
				Msg("refund recorded")
		}
	})

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, logger)
	}

	term := &terminal{
		cfg:     cfg,
		client:  client,
		session: sess,
		out:     os.Stdout,
		logger:  logger,
	}
	term.run(context.Background(), os.Stdin)
}

// serveMetrics exposes Prometheus metrics and a liveness probe on a local
// listener for fleet monitoring.
func serveMetrics(addr string, logger zerolog.Logger) {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	logger.Info().Str("addr", addr).Msg("metrics listener started")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("metrics listener stopped")
	}
}

func envOrDefault(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		trimmed := strings.TrimSpace(val)
		if trimmed != "" {
			return trimmed
		}
	}
	return fallback
}

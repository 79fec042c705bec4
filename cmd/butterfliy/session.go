package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"butterfliy/pkg/api"
	"butterfliy/pkg/auth"
	"butterfliy/pkg/config"
	"butterfliy/pkg/logger"
	"butterfliy/pkg/metrics"
	"butterfliy/pkg/ratelimit"
	"butterfliy/pkg/retry"

	"github.com/spf13/cobra"
)

// session bundles what an API command needs
type session struct {
	cfg    *config.Config
	client *api.Client
	tokens *auth.Manager
	log    logger.Logger
	close  func()
}

func (o *globalOptions) openSession(cmd *cobra.Command) (*session, error) {
	cfg, err := o.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log := logger.GetLogger()

	tokens, err := auth.NewManager(&cfg.Auth, log)
	if err != nil {
		return nil, err
	}

	var recorder metrics.Recorder = metrics.NopRecorder{}
	closeFn := func() {}
	if cfg.Metrics.Enabled {
		prom := metrics.NewPrometheusRecorder()
		recorder = prom
		closeFn = startMetricsServer(cfg.Metrics.Address, prom.Handler(), log)
	}

	client := api.NewClient(&cfg.API,
		api.WithLogger(log),
		api.WithTokenSource(tokens),
		api.WithLimiter(ratelimit.New(cfg.RateLimit)),
		api.WithRetryOptions(retryOptions(&cfg.Retry, log)),
		api.WithRecorder(recorder),
		api.WithRetryUnsafe(cfg.Retry.RetryUnsafe),
	)

	return &session{cfg: cfg, client: client, tokens: tokens, log: log, close: closeFn}, nil
}

// retryOptions maps the retry config onto executor options
func retryOptions(cfg *config.RetryConfig, log logger.Logger) *retry.Options {
	opts := retry.DefaultOptions()
	opts.MaxRetries = cfg.MaxRetries
	opts.InitialDelay = cfg.InitialDelay
	opts.Logger = log

	if !cfg.Enabled {
		opts.MaxRetries = 0
	}
	if cfg.MaxDelay > 0 || cfg.JitterFactor > 0 {
		opts.Backoff = &retry.ExponentialBackoff{
			BaseDelay:    cfg.InitialDelay,
			MaxDelay:     cfg.MaxDelay,
			Multiplier:   2,
			JitterFactor: cfg.JitterFactor,
		}
	}
	return opts
}

// startMetricsServer serves /metrics until the returned func is called
func startMetricsServer(addr string, handler http.Handler, log logger.Logger) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", handler)

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("metrics server failed")
		}
	}()
	logger.LogComponentStart(log, "metrics_server", map[string]interface{}{
		"address": addr,
	})

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
		logger.LogComponentStop(log, "metrics_server", "command finished")
	}
}

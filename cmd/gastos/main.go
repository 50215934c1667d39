package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"gastos/internal/backend"
	"gastos/internal/cli"
	"gastos/internal/events"
	apphttp "gastos/internal/http"
	"gastos/internal/ledger"
	applog "gastos/internal/log"
	"gastos/internal/metrics"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	roster, err := cfg.ParsedRoster()
	if err != nil {
		logger.Error("Invalid roster", applog.FieldError, err)
		os.Exit(1)
	}

	reg := metrics.NewRegistry()
	ledgerMetrics := metrics.New(reg)
	httpMetrics := metrics.NewHTTP(reg)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	storeRes, err := backend.NewFactory(logger.Logger).CreateStore(ctx, backendCfg)
	if err != nil {
		logger.Error("Failed to create ledger store", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	opts := []ledger.Option{
		ledger.WithMetrics(ledgerMetrics),
		ledger.WithLogger(logger.Logger),
		ledger.WithSampleData(cfg.SeedFixtures),
		ledger.WithBalanceCacheSize(cfg.BalanceCacheSize),
	}
	if cfg.AMQPURL != "" {
		client, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to connect to AMQP, continuing without events", applog.FieldError, err)
		} else {
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
			opts = append(opts, ledger.WithPublisher(client))
		}
	} else {
		logger.Info("AMQP_URL not set, ledger events disabled")
	}

	svc := ledger.New(roster, storeRes.Store, opts...)
	if err := svc.Load(ctx); err != nil {
		// Load has already fallen back to an empty or sample ledger.
		logger.Warn("Starting with a fresh ledger", applog.FieldError, err)
	}

	srv := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		ReportPeriodDays:   cfg.ReportPeriodDays,
		Logger:             logger,
		Gatherer:           reg,
		HTTPMetrics:        httpMetrics,
	}, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting gastos server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"roster", roster.Names())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	exitCode := 0
	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		exitCode = 1
	}

	if err := svc.Close(); err != nil {
		logger.Error("Failed to close ledger", applog.FieldError, err)
	}
	if storeRes.Cleanup != nil {
		if err := storeRes.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", applog.FieldError, err)
		}
	}
	logger.Info("Server stopped gracefully")
	stop()
	os.Exit(exitCode)
}

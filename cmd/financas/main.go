package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"
	"time"
	_ "time/tzdata"

	"financas/internal/amqp"
	"financas/internal/attachments"
	"financas/internal/backend"
	"financas/internal/cache"
	"financas/internal/cli"
	"financas/internal/core"
	apphttp "financas/internal/http"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/state"
)

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentApp)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	logger.Info("Starting financas", "backend", cfg.DataBackend, "timezone", cfg.Timezone)

	ctx, stop := cli.SignalContext()
	defer stop()

	tel, err := cli.InitTelemetry(ctx, cfg, cfg.ServiceName)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize telemetry", err)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	store, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err, "backend", cfg.DataBackend)
	}

	files, err := attachments.NewLocalStore(cfg.AttachmentsDir, cfg.PublicBaseURL)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize attachment store", err, "dir", cfg.AttachmentsDir)
	}

	// A typed nil *amqp.Client would defeat the service's nil check.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			cli.Fatal(logger, "Failed to initialize AMQP client", err)
		}
		publisher = amqpClient
		logger.Info("AMQP publishing enabled", "exchange", cfg.AMQPExchange)
	} else {
		logger.Info("AMQP disabled, spreadsheet export will not be triggered")
	}

	clock := services.SystemClock(cfg.Location())
	summaries := cache.NewLRUCache[core.MonthSummary](cfg.CacheSize, cfg.CacheTTL)
	janitor := cache.NewJanitor()
	janitor.Register(summaries)
	janitor.Start(cfg.CacheTTL)

	settings := services.NewSettingsService(store.Store)
	transactions := services.NewTransactionService(store.Store, files, publisher, clock)
	boxes := services.NewBoxService(store.Store)
	dashboard := services.NewDashboardService(store.Store, store.Store, settings, clock, summaries)

	snapshot := state.New(store.Store)
	if err := snapshot.Load(ctx); err != nil {
		logger.Warn("Initial state load failed", applog.FieldError, err)
	}
	transactions.OnChange(dashboard.Invalidate)
	transactions.OnChange(snapshot.Refresh)
	boxes.OnChange(dashboard.Invalidate)
	boxes.OnChange(snapshot.Refresh)

	srv := apphttp.NewServer(net.JoinHostPort("", cfg.Port), apphttp.Deps{
		Transactions:       transactions,
		Boxes:              boxes,
		Settings:           settings,
		Dashboard:          dashboard,
		State:              snapshot,
		Files:              files,
		AttachmentsDir:     files.Dir(),
		Clock:              clock,
		Metrics:            tel.Handler(),
		Ready:              store.Ready,
		Logger:             logger,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
	})

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", "addr", srv.Addr, "public_url", strings.TrimRight(cfg.PublicBaseURL, "/"))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("HTTP server failed", applog.FieldError, err)
		}
	}

	err = cli.Shutdown(logger, 30*time.Second,
		cli.Step{Name: "http", Run: srv.Shutdown},
		cli.Step{Name: "cache", Run: func(context.Context) error { janitor.Stop(); return nil }},
		cli.Step{Name: "amqp", Run: func(context.Context) error {
			if amqpClient == nil {
				return nil
			}
			return amqpClient.Close()
		}},
		cli.Step{Name: "backend", Run: func(context.Context) error { return store.Cleanup() }},
		cli.Step{Name: "telemetry", Run: tel.Shutdown},
	)
	if err != nil {
		cli.Fatal(logger, "Unclean shutdown", err)
	}
	logger.Info("Server stopped gracefully")
}

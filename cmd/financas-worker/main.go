package main

import (
	"context"
	"errors"
	"time"
	_ "time/tzdata"

	"financas/internal/amqp"
	"financas/internal/backend"
	"financas/internal/cli"
	"financas/internal/config"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/services"
	"financas/internal/sheets"
	"financas/internal/sheets/google"
	"financas/internal/sheets/memory"
	"financas/internal/worker"
)

func main() {
	cfg, logger, err := cli.Bootstrap(applog.ComponentWorker)
	if err != nil {
		cli.Fatal(logger, "Configuration validation failed", err)
	}
	if err := cfg.ValidateExport(); err != nil {
		cli.Fatal(logger, "Export configuration validation failed", err)
	}
	logger.Info("Starting financas-worker", "backend", cfg.DataBackend)
	if cfg.DataBackend == config.BackendMemory {
		logger.Warn("Memory backend is per process; the worker only sees the seed file")
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	tel, err := cli.InitTelemetry(ctx, cfg, cfg.ServiceName+"-worker")
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

	var exporter sheets.MonthExporter
	if cfg.GoogleSpreadsheetID != "" {
		exporter, err = google.New(ctx, google.Config{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		})
		if err != nil {
			cli.Fatal(logger, "Failed to initialize Google Sheets client", err)
		}
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	} else {
		exporter = memory.New()
		logger.Info("Google Sheets disabled, exports are kept in memory")
	}

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}

	clock := services.SystemClock(cfg.Location())
	w := worker.NewExportWorker(store.Store, exporter, func() core.Date { return clock.Today() }, cfg.ExportInterval)

	runErr := w.Run(ctx, consumer)
	if runErr != nil {
		logger.Error("Export worker stopped", applog.FieldError, runErr)
	}

	err = cli.Shutdown(logger, 15*time.Second,
		cli.Step{Name: "amqp", Run: func(context.Context) error { return consumer.Close() }},
		cli.Step{Name: "backend", Run: func(context.Context) error { return store.Cleanup() }},
		cli.Step{Name: "telemetry", Run: tel.Shutdown},
	)
	if runErr != nil || err != nil {
		cli.Fatal(logger, "Worker exited with errors", errors.Join(runErr, err))
	}
	logger.Info("Worker stopped gracefully")
}

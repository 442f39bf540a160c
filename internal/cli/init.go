// Package cli holds the start-up and shutdown helpers shared by the
// financas binaries, and the financasctl subcommands.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"financas/internal/config"
	applog "financas/internal/log"
	"financas/internal/telemetry"
)

// LoadEnvFile loads .env for local development. A missing file is fine.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// Bootstrap loads the environment and configuration, installs the process
// logger and validates the configuration.
func Bootstrap(component string) (*config.Config, *applog.Logger, error) {
	LoadEnvFile()
	cfg := config.Load()
	logger := applog.Setup(cfg.LogLevel, cfg.LogFormat, component)
	if err := cfg.Validate(); err != nil {
		return cfg, logger, err
	}
	return cfg, logger, nil
}

// InitTelemetry starts metrics and tracing for the named service.
func InitTelemetry(ctx context.Context, cfg *config.Config, service string) (*telemetry.Provider, error) {
	return telemetry.Init(ctx, telemetry.Config{
		ServiceName:  service,
		Environment:  cfg.Environment,
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
}

// SignalContext is cancelled on SIGINT or SIGTERM.
func SignalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// Step is one named shutdown action.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Shutdown runs steps in order under a shared deadline. Every step runs
// even when an earlier one fails; the failures are joined.
func Shutdown(logger *applog.Logger, timeout time.Duration, steps ...Step) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for _, step := range steps {
		if step.Run == nil {
			continue
		}
		if err := step.Run(ctx); err != nil {
			logger.Error("Shutdown step failed", "step", step.Name, applog.FieldError, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		}
	}
	if ctx.Err() != nil {
		logger.Warn("Shutdown timeout reached", "timeout", timeout)
	}
	return errors.Join(errs...)
}

// Fatal logs err and exits with status 1.
func Fatal(logger *applog.Logger, msg string, err error, args ...any) {
	logger.Error(msg, append(args, applog.FieldError, err)...)
	os.Exit(1)
}

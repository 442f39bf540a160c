// Command financasctl runs maintenance tasks against the financas database.
package main

import (
	"context"
	"flag"
	"os"
	"path"
	_ "time/tzdata"

	"github.com/google/subcommands"

	"financas/internal/cli"
	"financas/internal/config"
	applog "financas/internal/log"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	for _, c := range cli.Commands {
		commander.Register(c, "")
	}
	flag.Parse()

	cli.LoadEnvFile()
	cfg := config.Load()
	// progress goes to stderr so command output stays pipeable
	logCfg := applog.DefaultConfig()
	logCfg.Level = applog.ParseLevel(cfg.LogLevel)
	logCfg.Format = cfg.LogFormat
	logCfg.Component = applog.ComponentCLI
	logCfg.Output = os.Stderr
	logger := applog.New(logCfg)
	applog.SetDefault(logger)
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", applog.FieldError, err)
		os.Exit(int(subcommands.ExitUsageError))
	}

	env := &cli.Env{Config: cfg, Logger: logger}
	os.Exit(int(commander.Execute(context.Background(), env)))
}

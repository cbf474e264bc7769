package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/dselans/puff/config"
	"github.com/dselans/puff/extractor"
)

func main() {
	cfg, err := config.NewConfig()
	if err != nil {
		fmt.Println("ERROR: ", err)
		os.Exit(1)
	}

	configureLogging(cfg)

	displayConfig(cfg)

	shutdownCtx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	e, err := extractor.New(cfg)
	if err != nil {
		logrus.Errorf("unable to create extractor: %s", err)
		os.Exit(1)
	}

	if err := e.Run(shutdownCtx); err != nil {
		logrus.Errorf("error during extractor run: %s", err)
		os.Exit(1)
	}
}

func configureLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.TOML.Config.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}

	logrus.SetLevel(level)

	if cfg.CLI.Debug {
		logrus.Info("debug mode enabled")
		logrus.SetLevel(logrus.DebugLevel)
	}
}

func displayConfig(cfg *config.Config) {
	if cfg == nil || cfg.CLI.Quiet {
		return
	}

	logrus.Info("puff settings:")
	logrus.Info("  [CLI]")
	logrus.Infof("  version: %s", config.VERSION)
	logrus.Infof("  debug: %v", cfg.CLI.Debug)
	logrus.Infof("  config file: %s", cfg.CLI.ConfigFile)
	logrus.Infof("  input file: %s", cfg.CLI.InputFile)
	logrus.Infof("  output file: %s", cfg.CLI.OutputFile)
	logrus.Infof("  stdout: %v", cfg.CLI.Stdout)
	logrus.Infof("  force: %v", cfg.CLI.Force)
	logrus.Infof("  report interval: %s", cfg.CLI.ReportInterval)
	logrus.Infof("  quiet: %v", cfg.CLI.Quiet)
	logrus.Info("")
	logrus.Info("  [CONFIG]")
	logrus.Infof("  config.log_level: %s", cfg.TOML.Config.LogLevel)
	logrus.Infof("  config.buffer_size: %d", cfg.TOML.Config.BufferSize)
	logrus.Infof("  config.report_interval: %s", cfg.TOML.Config.ReportInterval)
	logrus.Info("")
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	goflags "github.com/jessevdk/go-flags"

	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/config"
	"github.com/GriffinCanCode/tabkeeper/internal/infrastructure/server"
)

type options struct {
	Config   string `short:"c" long:"config" description:"Path to YAML config file"`
	Port     string `short:"p" long:"port" description:"Override server port"`
	Backend  string `long:"backend" description:"Override store backend: file | sqlite"`
	Dir      string `long:"dir" description:"Override store directory"`
	LogLevel string `long:"log-level" description:"Override log level"`
	Dev      bool   `long:"dev" description:"Development logging"`
}

func main() {
	var opts options
	if _, err := goflags.Parse(&opts); err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok && flagsErr.Type == goflags.ErrHelp {
			return
		}
		os.Exit(2)
	}

	cfg, err := config.LoadFile(opts.Config)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	srv, err := server.NewServer(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create server: %v\n", err)
		os.Exit(1)
	}

	// Handle graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := srv.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
		os.Exit(1)
	}
}

func applyOverrides(cfg *config.Config, opts options) {
	if opts.Port != "" {
		cfg.Server.Port = opts.Port
	}
	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if opts.Dir != "" {
		cfg.Store.Dir = opts.Dir
	}
	if opts.LogLevel != "" {
		cfg.Logging.Level = opts.LogLevel
	}
	if opts.Dev {
		cfg.Logging.Development = true
	}
}

// Package main runs the nightly timelapse capture loop as a standalone
// service binary.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/fact-project/la-palma-overview/internal/app"
	"github.com/fact-project/la-palma-overview/internal/config"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init services failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	zap.ReplaceGlobals(a.Logger)

	if err := app.RunVideo(ctx, cfg, a); err != nil {
		a.Logger.Error("capture loop failed", zap.Error(err))
		a.Close()
		os.Exit(1)
	}
	a.Logger.Info("shutdown complete")
}

package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"food-order-loadtest/pkg/config"
	"food-order-loadtest/pkg/utils"

	"go.uber.org/zap"
)

const (
	exitOK        = 0
	exitViolation = 1
	exitSetup     = 2
)

func main() {
	cfg := config.FromEnv()
	cfg.BindFlags(flag.CommandLine)
	flag.Parse()

	logger, err := utils.NewLogger("loadtest")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", zap.Error(err))
		fmt.Fprintln(os.Stderr, err)
		logger.Sync()
		os.Exit(exitSetup)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	code := run(ctx, cfg, logger)
	stop()
	logger.Sync()
	os.Exit(code)
}

package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"food-order-loadtest/cmd/mocks/server"
	"food-order-loadtest/cmd/mocks/server/handler"
	"food-order-loadtest/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	logger, err := utils.NewLogger("mocks")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gin.SetMode(gin.ReleaseMode)

	sConf := server.ServerConfig{
		Port:         utils.GetEnv("MOCKS_PORT", "4000"),
		Delay:        utils.GetEnvDuration("MOCK_DELAY", 0),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	h, err := handler.NewHandler(ctx, handler.ConfigFromEnv(), logger)
	if err != nil {
		logger.Fatal("handler setup failed", zap.Error(err))
	}

	if err := server.NewServer(sConf, h, logger).Start(ctx); err != nil {
		logger.Fatal("server error", zap.Error(err))
	}
}

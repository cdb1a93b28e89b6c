package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"food-order-loadtest/cmd/collector/server"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/utils"

	"go.uber.org/zap"
)

func main() {
	logger, err := utils.NewLogger("collector")
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	brokers := utils.GetEnvList("KAFKA_BROKERS")
	if len(brokers) == 0 {
		brokers = []string{"kafka:9092"}
	}

	consConf := kafka.ConsumerConfig{
		Brokers: brokers,
		Topics:  []string{utils.GetEnv("RESULTS_TOPIC", kafka.TopicResults)},
		GroupId: utils.GetEnv("COLLECTOR_GROUP", "loadtest-collector"),
	}

	srv, err := server.NewServer(ctx, utils.GetEnv("PGSQL_URL", ""), consConf, logger)
	if err != nil {
		logger.Fatal("collector setup failed", zap.Error(err))
	}

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("collector error", zap.Error(err))
	}
}

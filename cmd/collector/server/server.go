package server

import (
	"context"
	"errors"
	"time"

	"food-order-loadtest/cmd/collector/server/handler"
	"food-order-loadtest/pkg/database"
	"food-order-loadtest/pkg/kafka"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Server struct {
	Database *database.Database
	Consumer *kafka.Consumer
	DLQ      *kafka.Producer
	Handler  *handler.Handler
	log      *zap.Logger
}

func NewServer(ctx context.Context, pgURL string, consConf kafka.ConsumerConfig, logger *zap.Logger) (*Server, error) {
	db, err := database.NewPGDatabase(ctx, pgURL)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(ctx); err != nil {
		db.Close()
		return nil, err
	}

	dlq := kafka.NewProducer(kafka.ProducerConfig{Brokers: consConf.Brokers})

	return &Server{
		Database: db,
		Consumer: kafka.NewConsumer(consConf, dlq, logger),
		DLQ:      dlq,
		Handler:  handler.NewHandler(db, logger),
		log:      logger,
	}, nil
}

func (s *Server) Start(ctx context.Context) error {
	s.log.Info("starting collector")

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := s.Consumer.ConsumeWithRetry(ctx, s.Handler.HandleMessage, 3)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})

	return s.HandleShutdown(ctx, g)
}

func (s *Server) HandleShutdown(ctx context.Context, g *errgroup.Group) error {
	<-ctx.Done()
	s.log.Info("shutdown signal received, commencing graceful shutdown")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Consumer.Close(); err != nil {
		s.log.Warn("error closing consumer", zap.Error(err))
	}

	err := g.Wait()
	if cerr := s.DLQ.Close(); cerr != nil {
		s.log.Warn("error closing dlq producer", zap.Error(cerr))
	}
	s.Database.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}

	if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
		s.log.Warn("graceful shutdown timed out")
	}
	s.log.Info("collector stopped cleanly")
	return nil
}

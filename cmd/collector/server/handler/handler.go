package handler

import (
	"context"
	"time"

	"food-order-loadtest/pkg/database"
	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/events"
	"food-order-loadtest/pkg/kafka"

	"go.uber.org/zap"
)

type Store interface {
	SaveWorkflowResult(ctx context.Context, evt events.EventWorkflowCompleted) error
	SaveRunSummary(ctx context.Context, evt events.EventRunFinished) error
	RunStats(ctx context.Context, runId string) ([]database.PhaseStat, error)
}

type Handler struct {
	Store      Store
	Dispatcher *events.Dispatcher
	log        *zap.Logger
}

func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		Store:      store,
		Dispatcher: events.NewDispatcher(logger),
		log:        logger.Named("handler"),
	}

	events.Register(h.Dispatcher, events.EvtTypeWorkflowCompleted, h.OnWorkflowCompleted)
	events.Register(h.Dispatcher, events.EvtTypeRunFinished, h.OnRunFinished)

	return h
}

func (h *Handler) HandleMessage(ctx context.Context, message kafka.KafkaMessage) error {
	return h.Dispatcher.Dispatch(message.Value)
}

func (h *Handler) OnWorkflowCompleted(evt events.EventWorkflowCompleted) error {
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	if evt.Metadata.RunId == "" {
		return svcerror.New(
			svcerror.ErrBusinessError,
			svcerror.WithOp("Collector.OnWorkflowCompleted"),
			svcerror.WithMsg("result without run id"),
		)
	}
	if err := h.Store.SaveWorkflowResult(ctx, evt); err != nil {
		return svcerror.AddOp(err, "Collector.OnWorkflowCompleted")
	}
	return nil
}

// OnRunFinished stores the run summary and logs the per-phase aggregates
// collected so far for that run.
func (h *Handler) OnRunFinished(evt events.EventRunFinished) error {
	ctx, done := context.WithTimeout(context.Background(), 10*time.Second)
	defer done()

	if err := h.Store.SaveRunSummary(ctx, evt); err != nil {
		return svcerror.AddOp(err, "Collector.OnRunFinished")
	}

	h.log.Info("run finished",
		zap.String("run", evt.Metadata.RunId),
		zap.String("scenario", evt.Scenario),
		zap.Int64("iterations", evt.Iterations),
		zap.Int64("failed", evt.Failed),
		zap.Bool("passed", evt.Passed),
	)

	stats, err := h.Store.RunStats(ctx, evt.Metadata.RunId)
	if err != nil {
		h.log.Warn("phase stats unavailable", zap.Error(err))
		return nil
	}
	for _, s := range stats {
		h.log.Info("phase",
			zap.String("run", evt.Metadata.RunId),
			zap.String("phase", s.Phase),
			zap.Int64("total", s.Total),
			zap.Int64("failed", s.Failed),
			zap.Float64("avg_ms", s.AvgMs),
			zap.Float64("p95_ms", s.P95Ms),
			zap.Int64("max_ms", s.MaxMs),
		)
	}
	return nil
}

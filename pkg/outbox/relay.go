// Package outbox buffers run events in memory and flushes them to Kafka in
// batches, so publishing never sits on a virtual user's critical path.
package outbox

import (
	"context"
	"sync/atomic"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/events"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/utils"
	"food-order-loadtest/pkg/workflow"

	"go.uber.org/zap"
)

type Publisher interface {
	PublishMultipleEvents(ctx context.Context, events []kafka.EventMessage) error
}

type Relay struct {
	Producer Publisher
	Every    time.Duration
	Batch    int
	Topic    string
	RunId    string

	pending chan kafka.EventMessage
	dropped atomic.Int64
	failed  atomic.Int64
	log     *zap.Logger
}

// NewRelay reads OUTBOX_INTERVAL, OUTBOX_BATCH and OUTBOX_BUFFER.
func NewRelay(producer Publisher, topic, runId string, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	every := utils.GetEnvDuration("OUTBOX_INTERVAL", 500*time.Millisecond)
	if every <= 0 {
		every = 500 * time.Millisecond
	}
	batch := utils.GetEnvInt("OUTBOX_BATCH", 200)
	if batch <= 0 {
		batch = 200
	}
	buffer := utils.GetEnvInt("OUTBOX_BUFFER", 10_000)
	if buffer < batch {
		buffer = batch
	}

	return &Relay{
		Producer: producer,
		Every:    every,
		Batch:    batch,
		Topic:    topic,
		RunId:    runId,
		pending:  make(chan kafka.EventMessage, buffer),
		log:      logger.Named("outbox"),
	}
}

// Enqueue never blocks. Events that do not fit the buffer are counted and dropped.
func (r *Relay) Enqueue(key string, evt events.DomainEvent) {
	select {
	case r.pending <- kafka.EventMessage{Topic: r.Topic, Key: key, Event: evt}:
	default:
		r.dropped.Add(1)
	}
}

// HandleResult adapts the relay to the scheduler's result callback.
func (r *Relay) HandleResult(res workflow.Result) {
	r.Enqueue(r.RunId, events.NewWorkflowCompleted(r.RunId, "loadtest", res))
}

func (r *Relay) Dropped() int64 { return r.dropped.Load() }
func (r *Relay) Failed() int64  { return r.failed.Load() }

// Run flushes on every tick until ctx is done, then drains what is left
// under a short fresh deadline.
func (r *Relay) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			drainCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			for r.FlushMessages(drainCtx) > 0 {
			}
			if r.dropped.Load()+r.failed.Load() > 0 {
				r.log.Warn("events not delivered", zap.Int64("dropped", r.dropped.Load()), zap.Int64("failed", r.failed.Load()))
			}
			return nil
		case <-ticker.C:
			r.FlushMessages(ctx)
		}
	}
}

// FlushMessages publishes up to one batch and reports how many events it took
// off the buffer.
func (r *Relay) FlushMessages(ctx context.Context) int {
	batch := make([]kafka.EventMessage, 0, r.Batch)
collect:
	for len(batch) < r.Batch {
		select {
		case msg := <-r.pending:
			batch = append(batch, msg)
		default:
			break collect
		}
	}
	if len(batch) == 0 {
		return 0
	}

	if err := r.PublishMessages(ctx, batch); err != nil {
		r.failed.Add(int64(len(batch)))
		r.log.Warn("flush failed", zap.Int("events", len(batch)), zap.String("kind", svcerror.Kind(err)), zap.Error(err))
	}
	return len(batch)
}

func (r *Relay) PublishMessages(ctx context.Context, batch []kafka.EventMessage) error {
	if err := r.Producer.PublishMultipleEvents(ctx, batch); err != nil {
		return svcerror.New(
			svcerror.ErrPublishError,
			svcerror.WithOp("Outbox.PublishMessages"),
			svcerror.WithMsg("failed to publish multiple events"),
			svcerror.WithCause(err),
			svcerror.WithTime(time.Now().UTC()),
		)
	}
	return nil
}

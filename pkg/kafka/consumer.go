package kafka

import (
	"context"
	"errors"
	"time"

	svcerror "food-order-loadtest/pkg/error"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// DLQPublisher takes messages that exhausted their retries. *Producer
// satisfies it.
type DLQPublisher interface {
	PublishEvent(ctx context.Context, evt EventMessage) error
}

// DeadLetter is the record written to <topic>.dlq for a failed message.
type DeadLetter struct {
	Topic     string    `json:"topic"`
	Partition int       `json:"partition"`
	Offset    int64     `json:"offset"`
	Error     string    `json:"error"`
	Payload   []byte    `json:"payload"`
	FailedAt  time.Time `json:"failed_at"`
}

type Consumer struct {
	reader messageReader
	dlq    DLQPublisher
	log    *zap.Logger
}

type ConsumerConfig struct {
	Brokers []string
	Topics  []string
	GroupId string
}

// NewConsumer builds a group consumer. A nil dlq makes any non-skippable
// failure stop consumption instead of parking the message.
func NewConsumer(conf ConsumerConfig, dlq DLQPublisher, logger *zap.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        conf.Brokers,
		GroupTopics:    conf.Topics,
		GroupID:        conf.GroupId,
		MinBytes:       1,
		MaxBytes:       10 * 1024 * 1024, // 10MB
		StartOffset:    kafka.FirstOffset,
		CommitInterval: 0,
	})
	return newConsumer(reader, dlq, logger)
}

func newConsumer(reader messageReader, dlq DLQPublisher, logger *zap.Logger) *Consumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Consumer{
		reader: reader,
		dlq:    dlq,
		log:    logger.Named("consumer"),
	}
}

type KafkaMessage kafka.Message
type MessageHandler func(ctx context.Context, message KafkaMessage) error

// ConsumeMessages fans messages out to one worker per partition so ordering
// holds within a partition. It returns ctx.Err() when ctx is done, or the
// error of the first partition worker that had to stop.
func (c *Consumer) ConsumeMessages(ctx context.Context, handler MessageHandler) error {
	partChannels := make(map[int]chan kafka.Message)
	g, gctx := errgroup.WithContext(ctx)

	fetchErr := c.fetchLoop(gctx, g, handler, partChannels)

	for _, ch := range partChannels {
		close(ch)
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return fetchErr
}

func (c *Consumer) fetchLoop(ctx context.Context, g *errgroup.Group, handler MessageHandler, partChannels map[int]chan kafka.Message) error {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			c.log.Warn("fetch failed", zap.Error(err))
			continue
		}

		ch, ok := partChannels[msg.Partition]
		if !ok {
			ch = make(chan kafka.Message, 1024)
			partChannels[msg.Partition] = ch
			g.Go(func() error {
				return c.runWorker(ctx, handler, ch)
			})
		}

		select {
		case ch <- msg:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// runWorker commits a failed message only after it is parked on the DLQ.
// Committing an offset also commits everything before it, so a message that
// could not be parked stops the worker and the group redelivers it after a
// restart.
func (c *Consumer) runWorker(ctx context.Context, handler MessageHandler, messageChannel <-chan kafka.Message) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-messageChannel:
			if !ok {
				return nil
			}

			if err := handler(ctx, KafkaMessage(msg)); err != nil && !c.skippable(err, msg) {
				if dlqErr := c.deadLetter(ctx, err, msg); dlqErr != nil {
					return dlqErr
				}
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				c.log.Warn("commit failed", zap.Error(err))
			}
		}
	}
}

// skippable reports whether a failed message should be committed anyway.
// Messages that can never succeed are logged and dropped.
func (c *Consumer) skippable(err error, msg kafka.Message) bool {
	fields := []zap.Field{
		zap.String("topic", msg.Topic),
		zap.Int("partition", msg.Partition),
		zap.Int64("offset", msg.Offset),
		zap.Error(err),
	}
	if errors.Is(err, svcerror.ErrDecodeError) || errors.Is(err, svcerror.ErrBusinessError) {
		c.log.Warn("dropping message", fields...)
		return true
	}
	c.log.Error("message handling failed", fields...)
	return false
}

func (c *Consumer) deadLetter(ctx context.Context, cause error, msg kafka.Message) error {
	const op = "Consumer.deadLetter"
	if c.dlq == nil {
		return svcerror.AddOp(cause, op)
	}

	letter := DeadLetter{
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Error:     cause.Error(),
		Payload:   msg.Value,
		FailedAt:  time.Now().UTC(),
	}
	err := c.dlq.PublishEvent(ctx, EventMessage{Topic: msg.Topic + DLQSuffix, Key: string(msg.Key), Event: letter})
	if err != nil {
		c.log.Error("dead letter publish failed, stopping partition",
			zap.String("topic", msg.Topic),
			zap.Int("partition", msg.Partition),
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return svcerror.AddOp(err, op)
	}
	c.log.Warn("message parked on dead letter queue",
		zap.String("topic", msg.Topic+DLQSuffix),
		zap.Int64("offset", msg.Offset),
	)
	return nil
}

// ConsumeWithRetry retries a failing handler with linear backoff before
// giving up on the message.
func (c *Consumer) ConsumeWithRetry(ctx context.Context, handler MessageHandler, maxAttempts int) error {
	return c.ConsumeMessages(ctx, func(ctx context.Context, message KafkaMessage) error {
		return Retry(ctx, maxAttempts, time.Second, func() error { return handler(ctx, message) })
	})
}

// Retry stops early on errors that cannot succeed on a second attempt.
func Retry(ctx context.Context, maxAttempts int, backoff time.Duration, fn func() error) error {
	var lastErr error
	for i := 1; i <= maxAttempts; i++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, svcerror.ErrDecodeError) || errors.Is(lastErr, svcerror.ErrBusinessError) {
			return lastErr
		}
		if i == maxAttempts {
			break
		}
		t := time.NewTimer(time.Duration(i) * backoff)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return lastErr
		}
	}
	return lastErr
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

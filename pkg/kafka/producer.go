package kafka

import (
	"context"
	"encoding/json"
	"time"

	svcerror "food-order-loadtest/pkg/error"

	"github.com/segmentio/kafka-go"
)

type Producer struct {
	Writer *kafka.Writer
}

type ProducerConfig struct {
	Brokers []string
}

// EventMessage is one event bound for a topic; Event is JSON encoded on publish.
type EventMessage struct {
	Topic string
	Key   string
	Event any
}

func NewProducer(conf ProducerConfig) *Producer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(conf.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchSize:              100,
		BatchTimeout:           50 * time.Millisecond,
		Async:                  false,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireOne,
	}

	return &Producer{
		Writer: writer,
	}
}

func toMessage(op string, evt EventMessage) (kafka.Message, error) {
	value, err := json.Marshal(evt.Event)
	if err != nil {
		return kafka.Message{}, svcerror.New(
			svcerror.ErrInternalError,
			svcerror.WithOp(op),
			svcerror.WithMsg("marshal event"),
			svcerror.WithCause(err),
			svcerror.WithTime(time.Now().UTC()),
		)
	}
	return kafka.Message{
		Topic: evt.Topic,
		Key:   []byte(evt.Key),
		Value: value,
		Time:  time.Now(),
	}, nil
}

func (p *Producer) PublishEvent(ctx context.Context, evt EventMessage) error {
	return p.PublishMultipleEvents(ctx, []EventMessage{evt})
}

func (p *Producer) PublishMultipleEvents(ctx context.Context, events []EventMessage) error {
	const op = "Producer.PublishMultipleEvents"
	messages := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		msg, err := toMessage(op, evt)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	if err := p.Writer.WriteMessages(ctx, messages...); err != nil {
		return svcerror.New(
			svcerror.ErrPublishError,
			svcerror.WithOp(op),
			svcerror.WithMsg("failed to publish events"),
			svcerror.WithCause(err),
			svcerror.WithTime(time.Now().UTC()),
		)
	}

	return nil
}

func (p *Producer) Close() error {
	return p.Writer.Close()
}

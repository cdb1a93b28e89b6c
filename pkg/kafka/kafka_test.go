package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	svcerror "food-order-loadtest/pkg/error"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToMessage(t *testing.T) {
	t.Parallel()

	msg, err := toMessage("test", EventMessage{Topic: TopicResults, Key: "run-1", Event: map[string]int{"n": 1}})
	require.NoError(t, err)
	assert.Equal(t, TopicResults, msg.Topic)
	assert.Equal(t, []byte("run-1"), msg.Key)
	assert.JSONEq(t, `{"n":1}`, string(msg.Value))

	_, err = toMessage("test", EventMessage{Event: make(chan int)})
	assert.True(t, errors.Is(err, svcerror.ErrInternalError))
	var unsupported *json.UnsupportedTypeError
	assert.True(t, errors.As(err, &unsupported))
}

func TestRetry(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	attempts := 0
	err := Retry(ctx, 3, time.Millisecond, func() error {
		attempts++
		if attempts < 3 {
			return svcerror.New(svcerror.ErrDatabaseError)
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 3, attempts)

	attempts = 0
	err = Retry(ctx, 5, time.Millisecond, func() error {
		attempts++
		return svcerror.New(svcerror.ErrDecodeError)
	})
	assert.True(t, errors.Is(err, svcerror.ErrDecodeError))
	assert.Equal(t, 1, attempts)

	attempts = 0
	err = Retry(ctx, 2, time.Millisecond, func() error {
		attempts++
		return svcerror.New(svcerror.ErrDatabaseError)
	})
	assert.True(t, errors.Is(err, svcerror.ErrDatabaseError))
	assert.Equal(t, 2, attempts)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	attempts = 0
	err = Retry(cancelled, 5, time.Hour, func() error {
		attempts++
		return svcerror.New(svcerror.ErrDatabaseError)
	})
	assert.Error(t, err)
	assert.Equal(t, 1, attempts)
}

type fakeReader struct {
	mu        sync.Mutex
	pending   []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	if len(f.pending) > 0 {
		msg := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()
		return msg, nil
	}
	f.mu.Unlock()
	<-ctx.Done()
	return kafka.Message{}, ctx.Err()
}

func (f *fakeReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func (f *fakeReader) commits() []int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]int64(nil), f.committed...)
}

type fakeDLQ struct {
	mu     sync.Mutex
	err    error
	parked []EventMessage
}

func (f *fakeDLQ) PublishEvent(ctx context.Context, evt EventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.parked = append(f.parked, evt)
	return nil
}

func (f *fakeDLQ) messages() []EventMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]EventMessage(nil), f.parked...)
}

func results(offsets ...int64) []kafka.Message {
	msgs := make([]kafka.Message, 0, len(offsets))
	for _, o := range offsets {
		msgs = append(msgs, kafka.Message{Topic: TopicResults, Offset: o, Key: []byte("run-1"), Value: []byte(`{}`)})
	}
	return msgs
}

// fails the message at offset 0 with a retryable error
func failFirst(ctx context.Context, msg KafkaMessage) error {
	if msg.Offset == 0 {
		return svcerror.New(svcerror.ErrDatabaseError, svcerror.WithMsg("db down"))
	}
	return nil
}

func TestConsumer_FailedMessageIsParkedBeforeCommit(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pending: results(0, 1)}
	dlq := &fakeDLQ{}
	c := newConsumer(reader, dlq, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.ConsumeMessages(ctx, failFirst) }()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	assert.Equal(t, []int64{0, 1}, reader.commits())
	parked := dlq.messages()
	require.Len(t, parked, 1)
	assert.Equal(t, TopicResultsDLQ, parked[0].Topic)
	assert.Equal(t, "run-1", parked[0].Key)
	letter, ok := parked[0].Event.(DeadLetter)
	require.True(t, ok)
	assert.Equal(t, int64(0), letter.Offset)
	assert.Contains(t, letter.Error, "db down")
}

func TestConsumer_StopsPartitionWhenDLQFails(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pending: results(0, 1)}
	dlq := &fakeDLQ{err: svcerror.New(svcerror.ErrPublishError)}
	c := newConsumer(reader, dlq, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.ConsumeMessages(ctx, failFirst)
	assert.True(t, errors.Is(err, svcerror.ErrPublishError))
	assert.NoError(t, ctx.Err(), "worker failure must end consumption on its own")
	assert.Empty(t, reader.commits(), "no offset may move past the failed message")
}

func TestConsumer_StopsPartitionWithoutDLQ(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pending: results(0, 1)}
	c := newConsumer(reader, nil, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.ConsumeMessages(ctx, failFirst)
	assert.True(t, errors.Is(err, svcerror.ErrDatabaseError))
	assert.Empty(t, reader.commits())
}

func TestConsumer_SkippableErrorsAreCommitted(t *testing.T) {
	t.Parallel()

	reader := &fakeReader{pending: results(0, 1)}
	dlq := &fakeDLQ{}
	c := newConsumer(reader, dlq, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.ConsumeMessages(ctx, func(ctx context.Context, msg KafkaMessage) error {
			return svcerror.New(svcerror.ErrDecodeError)
		})
	}()

	require.Eventually(t, func() bool { return len(reader.commits()) == 2 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done
	assert.Empty(t, dlq.messages())
}

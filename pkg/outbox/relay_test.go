package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"food-order-loadtest/pkg/events"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePublisher struct {
	mu      sync.Mutex
	batches [][]kafka.EventMessage
	fail    bool
}

func (f *fakePublisher) PublishMultipleEvents(ctx context.Context, msgs []kafka.EventMessage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return errors.New("broker unavailable")
	}
	f.batches = append(f.batches, append([]kafka.EventMessage(nil), msgs...))
	return nil
}

func (f *fakePublisher) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, b := range f.batches {
		n += len(b)
	}
	return n
}

func TestRelay_FlushesInBatches(t *testing.T) {
	t.Setenv("OUTBOX_BATCH", "2")
	t.Setenv("OUTBOX_BUFFER", "3")

	pub := &fakePublisher{}
	r := NewRelay(pub, kafka.TopicResults, "run-1", nil)

	for i := 0; i < 5; i++ {
		r.HandleResult(workflow.Result{Workflow: workflow.BrowseName})
	}
	assert.Equal(t, int64(2), r.Dropped())

	ctx := context.Background()
	assert.Equal(t, 2, r.FlushMessages(ctx))
	assert.Equal(t, 1, r.FlushMessages(ctx))
	assert.Equal(t, 0, r.FlushMessages(ctx))

	require.Len(t, pub.batches, 2)
	msg := pub.batches[0][0]
	assert.Equal(t, kafka.TopicResults, msg.Topic)
	assert.Equal(t, "run-1", msg.Key)
	evt, ok := msg.Event.(events.EventWorkflowCompleted)
	require.True(t, ok)
	assert.Equal(t, "run-1", evt.Metadata.RunId)
	assert.Equal(t, workflow.BrowseName, evt.Workflow)
}

func TestRelay_RunDrainsOnShutdown(t *testing.T) {
	t.Setenv("OUTBOX_INTERVAL", "1h")

	pub := &fakePublisher{}
	r := NewRelay(pub, kafka.TopicResults, "run-2", nil)
	for i := 0; i < 450; i++ {
		r.HandleResult(workflow.Result{})
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("relay did not stop")
	}
	assert.Equal(t, 450, pub.total())
}

func TestRelay_CountsFailedPublishes(t *testing.T) {
	pub := &fakePublisher{fail: true}
	r := NewRelay(pub, kafka.TopicResults, "run-3", nil)
	r.HandleResult(workflow.Result{})

	assert.Equal(t, 1, r.FlushMessages(context.Background()))
	assert.Equal(t, int64(1), r.Failed())
}

package handler

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"food-order-loadtest/pkg/database"
	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/events"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	results   []events.EventWorkflowCompleted
	summaries []events.EventRunFinished
	statsRuns []string
	saveErr   error
}

func (f *fakeStore) SaveWorkflowResult(ctx context.Context, evt events.EventWorkflowCompleted) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.results = append(f.results, evt)
	return nil
}

func (f *fakeStore) SaveRunSummary(ctx context.Context, evt events.EventRunFinished) error {
	f.summaries = append(f.summaries, evt)
	return nil
}

func (f *fakeStore) RunStats(ctx context.Context, runId string) ([]database.PhaseStat, error) {
	f.statsRuns = append(f.statsRuns, runId)
	return []database.PhaseStat{{Phase: "login", Total: 1}}, nil
}

func message(t *testing.T, evt any) kafka.KafkaMessage {
	t.Helper()
	raw, err := json.Marshal(evt)
	require.NoError(t, err)
	return kafka.KafkaMessage{Value: raw}
}

func TestHandler_PersistsWorkflowResults(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store, nil)

	evt := events.NewWorkflowCompleted("run-1", "loadtest", workflow.Result{Workflow: workflow.LifecycleName, Success: true})
	require.NoError(t, h.HandleMessage(context.Background(), message(t, evt)))

	require.Len(t, store.results, 1)
	assert.Equal(t, evt.Metadata.MessageId, store.results[0].Metadata.MessageId)
	assert.Equal(t, workflow.LifecycleName, store.results[0].Workflow)
}

func TestHandler_RunFinishedStoresSummaryAndStats(t *testing.T) {
	store := &fakeStore{}
	h := NewHandler(store, nil)

	evt := events.EventRunFinished{
		Metadata: events.NewMetadata(events.EvtTypeRunFinished, "run-2", "", "loadtest"),
		Scenario: "sanity",
		Passed:   true,
	}
	require.NoError(t, h.HandleMessage(context.Background(), message(t, evt)))

	require.Len(t, store.summaries, 1)
	assert.Equal(t, []string{"run-2"}, store.statsRuns)
}

func TestHandler_ResultWithoutRunIsDropped(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)
	evt := events.NewWorkflowCompleted("", "loadtest", workflow.Result{})

	err := h.HandleMessage(context.Background(), message(t, evt))
	assert.True(t, errors.Is(err, svcerror.ErrBusinessError))
}

func TestHandler_StoreFailureIsRetryable(t *testing.T) {
	cause := svcerror.New(svcerror.ErrDatabaseError, svcerror.WithMsg("down"))
	h := NewHandler(&fakeStore{saveErr: cause}, nil)
	evt := events.NewWorkflowCompleted("run-3", "loadtest", workflow.Result{})

	err := h.HandleMessage(context.Background(), message(t, evt))
	require.Error(t, err)
	assert.True(t, errors.Is(err, svcerror.ErrDatabaseError))
	assert.False(t, errors.Is(err, svcerror.ErrDecodeError))
}

func TestHandler_GarbageIsDecodeError(t *testing.T) {
	h := NewHandler(&fakeStore{}, nil)
	err := h.HandleMessage(context.Background(), kafka.KafkaMessage{Value: []byte("not json")})
	assert.True(t, errors.Is(err, svcerror.ErrDecodeError))
}

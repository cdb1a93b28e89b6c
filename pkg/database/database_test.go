package database

import (
	"context"
	"os"
	"testing"
	"time"

	"food-order-loadtest/pkg/events"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseInsert_Placeholders(t *testing.T) {
	query, values := phaseInsert("m-1", []events.PhaseTiming{
		{Phase: "login", OK: true, DurationMs: 12},
		{Phase: "create_order", OK: false, DurationMs: 40},
	})

	assert.Contains(t, query, "($1, $2, $3, $4, $5),($6, $7, $8, $9, $10)")
	assert.Equal(t, []any{"m-1", 0, "login", true, int64(12), "m-1", 1, "create_order", false, int64(40)}, values)
}

func TestDatabase_SaveAndAggregate(t *testing.T) {
	url := os.Getenv("PGSQL_TEST_URL")
	if url == "" {
		t.Skip("PGSQL_TEST_URL not set")
	}
	ctx := context.Background()

	db, err := NewPGDatabase(ctx, url)
	require.NoError(t, err)
	defer db.Close()
	require.NoError(t, db.EnsureSchema(ctx))

	runId := "it-" + time.Now().Format("150405.000000")
	evt := events.EventWorkflowCompleted{
		Metadata:   events.NewMetadata(events.EvtTypeWorkflowCompleted, runId, "order-1", "test"),
		Workflow:   "order_lifecycle",
		Success:    true,
		StartedAt:  time.Now().UTC(),
		DurationMs: 90,
		Phases: []events.PhaseTiming{
			{Phase: "login", OK: true, DurationMs: 30},
			{Phase: "create_order", OK: true, DurationMs: 60},
		},
	}
	require.NoError(t, db.SaveWorkflowResult(ctx, evt))
	// redelivery
	require.NoError(t, db.SaveWorkflowResult(ctx, evt))

	stats, err := db.RunStats(ctx, runId)
	require.NoError(t, err)
	require.Len(t, stats, 2)
	assert.Equal(t, "create_order", stats[0].Phase)
	assert.Equal(t, int64(1), stats[0].Total)
	assert.Equal(t, int64(60), stats[0].MaxMs)

	require.NoError(t, db.SaveRunSummary(ctx, events.EventRunFinished{
		Metadata: events.NewMetadata(events.EvtTypeRunFinished, runId, "", "test"),
		Scenario: "sanity",
		Mode:     "sanity",
		Passed:   true,
	}))
}

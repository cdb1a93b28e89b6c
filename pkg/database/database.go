package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/events"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Database struct {
	DB *pgxpool.Pool
}

func NewPGDatabase(ctx context.Context, url string) (*Database, error) {
	dbConn, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, dbErr("NewPGDatabase", "failed to connect to Postgres DB", err)
	}
	if err := dbConn.Ping(ctx); err != nil {
		dbConn.Close()
		return nil, dbErr("NewPGDatabase", "postgres not reachable", err)
	}

	return &Database{
		DB: dbConn,
	}, nil
}

func (d *Database) Close() {
	d.DB.Close()
}

func dbErr(op, msg string, cause error) error {
	return svcerror.New(
		svcerror.ErrDatabaseError,
		svcerror.WithOp("Database."+op),
		svcerror.WithMsg(msg),
		svcerror.WithCause(cause),
		svcerror.WithTime(time.Now().UTC()),
	)
}

const schema = `
CREATE TABLE IF NOT EXISTS workflow_results (
	message_id        TEXT PRIMARY KEY,
	run_id            TEXT NOT NULL,
	workflow          TEXT NOT NULL,
	actor_index       INT NOT NULL,
	success           BOOLEAN NOT NULL,
	failed_phase      TEXT,
	order_id          TEXT,
	customer_id       TEXT,
	payment_order_id  TEXT,
	delivery_order_id TEXT,
	final_status      TEXT,
	started_at        TIMESTAMPTZ NOT NULL,
	duration_ms       BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS workflow_results_run_idx ON workflow_results(run_id);

CREATE TABLE IF NOT EXISTS phase_results (
	message_id  TEXT NOT NULL REFERENCES workflow_results(message_id) ON DELETE CASCADE,
	seq         INT NOT NULL,
	phase       TEXT NOT NULL,
	ok          BOOLEAN NOT NULL,
	duration_ms BIGINT NOT NULL,
	PRIMARY KEY (message_id, seq)
);

CREATE TABLE IF NOT EXISTS run_summaries (
	message_id  TEXT PRIMARY KEY,
	run_id      TEXT NOT NULL,
	scenario    TEXT NOT NULL,
	mode        TEXT NOT NULL,
	iterations  BIGINT NOT NULL,
	succeeded   BIGINT NOT NULL,
	failed      BIGINT NOT NULL,
	interrupted BIGINT NOT NULL,
	elapsed_ms  BIGINT NOT NULL,
	passed      BOOLEAN NOT NULL,
	violations  TEXT[] NOT NULL DEFAULT '{}',
	finished_at TIMESTAMPTZ NOT NULL
);`

func (d *Database) EnsureSchema(ctx context.Context) error {
	if _, err := d.DB.Exec(ctx, schema); err != nil {
		return dbErr("EnsureSchema", "failed to create results schema", err)
	}
	return nil
}

// WORKFLOW RESULTS

// SaveWorkflowResult is idempotent on the event's message id, so a
// redelivered Kafka message is a no-op.
func (d *Database) SaveWorkflowResult(ctx context.Context, evt events.EventWorkflowCompleted) error {
	resultQuery := `INSERT INTO workflow_results(message_id, run_id, workflow, actor_index, success,
				failed_phase, order_id, customer_id, payment_order_id, delivery_order_id,
				final_status, started_at, duration_ms)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
			  ON CONFLICT (message_id) DO NOTHING;`

	tx, err := d.DB.Begin(ctx)
	if err != nil {
		return dbErr("SaveWorkflowResult", "begin transaction", err)
	}
	defer tx.Rollback(ctx)

	md := evt.Metadata
	tag, err := tx.Exec(ctx, resultQuery,
		md.MessageId, md.RunId, evt.Workflow, evt.ActorIndex, evt.Success,
		evt.FailedPhase, md.OrderId, evt.CustomerId, evt.PaymentOrderId, evt.DeliveryOrderId,
		evt.FinalStatus, evt.StartedAt, evt.DurationMs)
	if err != nil {
		return dbErr("SaveWorkflowResult", "insert workflow result", err)
	}

	if tag.RowsAffected() > 0 && len(evt.Phases) > 0 {
		phaseQuery, values := phaseInsert(md.MessageId, evt.Phases)
		if _, err := tx.Exec(ctx, phaseQuery, values...); err != nil {
			return dbErr("SaveWorkflowResult", "insert phase results", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return dbErr("SaveWorkflowResult", "commit", err)
	}
	return nil
}

func phaseInsert(messageId string, phases []events.PhaseTiming) (string, []any) {
	query := `INSERT INTO phase_results(message_id, seq, phase, ok, duration_ms)
			  VALUES %s;`
	placeholders := []string{}
	values := []any{}

	cnt := 0
	for _, p := range phases {
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", 1+cnt*5, 2+cnt*5, 3+cnt*5, 4+cnt*5, 5+cnt*5))
		values = append(values, messageId, cnt, p.Phase, p.OK, p.DurationMs)
		cnt += 1
	}
	return fmt.Sprintf(query, strings.Join(placeholders, ",")), values
}

// RUN SUMMARIES
func (d *Database) SaveRunSummary(ctx context.Context, evt events.EventRunFinished) error {
	query := `INSERT INTO run_summaries(message_id, run_id, scenario, mode, iterations, succeeded,
				failed, interrupted, elapsed_ms, passed, violations, finished_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			  ON CONFLICT (message_id) DO NOTHING;`
	violations := evt.Violations
	if violations == nil {
		violations = []string{}
	}
	md := evt.Metadata
	_, err := d.DB.Exec(ctx, query,
		md.MessageId, md.RunId, evt.Scenario, evt.Mode, evt.Iterations, evt.Succeeded,
		evt.Failed, evt.Interrupted, evt.ElapsedMs, evt.Passed, violations, md.Timestamp)
	if err != nil {
		return dbErr("SaveRunSummary", "insert run summary", err)
	}
	return nil
}

type PhaseStat struct {
	Phase  string
	Total  int64
	Failed int64
	AvgMs  float64
	P95Ms  float64
	MaxMs  int64
}

// RunStats aggregates the persisted phase timings of one run.
func (d *Database) RunStats(ctx context.Context, runId string) ([]PhaseStat, error) {
	query := `SELECT p.phase,
				COUNT(*),
				COUNT(*) FILTER (WHERE NOT p.ok),
				AVG(p.duration_ms),
				PERCENTILE_CONT(0.95) WITHIN GROUP (ORDER BY p.duration_ms),
				MAX(p.duration_ms)
			  FROM phase_results p
			  JOIN workflow_results w ON w.message_id = p.message_id
			  WHERE w.run_id = $1
			  GROUP BY p.phase
			  ORDER BY p.phase;`
	rows, err := d.DB.Query(ctx, query, runId)
	if err != nil {
		return nil, dbErr("RunStats", "query phase stats", err)
	}

	stats, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (PhaseStat, error) {
		var s PhaseStat
		err := row.Scan(&s.Phase, &s.Total, &s.Failed, &s.AvgMs, &s.P95Ms, &s.MaxMs)
		return s, err
	})
	if err != nil {
		return nil, dbErr("RunStats", "scan phase stats", err)
	}
	return stats, nil
}

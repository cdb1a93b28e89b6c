package events

import (
	"time"

	"food-order-loadtest/pkg/workflow"

	"github.com/google/uuid"
)

type EventType string

const (
	EvtTypeWorkflowCompleted EventType = "WORKFLOW_COMPLETED"
	EvtTypeRunFinished       EventType = "RUN_FINISHED"
)

type Metadata struct {
	MessageId string    `json:"message_id"`
	Type      EventType `json:"type"`
	RunId     string    `json:"run_id"`
	OrderId   string    `json:"order_id,omitempty"`
	Timestamp time.Time `json:"timestamp"`
	Producer  string    `json:"producer"`
}

func NewMetadata(et EventType, runId, orderId, producer string) Metadata {
	return Metadata{
		MessageId: uuid.NewString(),
		Type:      et,
		RunId:     runId,
		OrderId:   orderId,
		Timestamp: time.Now().UTC(),
		Producer:  producer,
	}
}

type DomainEvent interface {
	GetMetadata() Metadata
}

type PhaseTiming struct {
	Phase      string `json:"phase"`
	OK         bool   `json:"ok"`
	DurationMs int64  `json:"duration_ms"`
}

// workflow-completed
type EventWorkflowCompleted struct {
	Metadata        Metadata      `json:"mtdt"`
	Workflow        string        `json:"workflow"`
	ActorIndex      int           `json:"actor_index"`
	Success         bool          `json:"success"`
	FailedPhase     string        `json:"failed_phase,omitempty"`
	CustomerId      string        `json:"customer_id,omitempty"`
	PaymentOrderId  string        `json:"payment_order_id,omitempty"`
	DeliveryOrderId string        `json:"delivery_order_id,omitempty"`
	FinalStatus     string        `json:"final_status,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	DurationMs      int64         `json:"duration_ms"`
	Phases          []PhaseTiming `json:"phases"`
}

func (e EventWorkflowCompleted) GetMetadata() Metadata { return e.Metadata }

func NewWorkflowCompleted(runId, producer string, res workflow.Result) EventWorkflowCompleted {
	phases := make([]PhaseTiming, 0, len(res.Phases))
	for _, p := range res.Phases {
		phases = append(phases, PhaseTiming{Phase: string(p.Phase), OK: p.OK, DurationMs: p.Duration.Milliseconds()})
	}
	return EventWorkflowCompleted{
		Metadata:        NewMetadata(EvtTypeWorkflowCompleted, runId, res.OrderId, producer),
		Workflow:        res.Workflow,
		ActorIndex:      res.Actor.Index,
		Success:         res.Success,
		FailedPhase:     string(res.FailedPhase),
		CustomerId:      res.CustomerId,
		PaymentOrderId:  res.PaymentOrderId,
		DeliveryOrderId: res.DeliveryOrderId,
		FinalStatus:     string(res.FinalStatus),
		StartedAt:       res.Started.UTC(),
		DurationMs:      res.Duration.Milliseconds(),
		Phases:          phases,
	}
}

// run-finished
type EventRunFinished struct {
	Metadata    Metadata `json:"mtdt"`
	Scenario    string   `json:"scenario"`
	Mode        string   `json:"mode"`
	Iterations  int64    `json:"iterations"`
	Succeeded   int64    `json:"succeeded"`
	Failed      int64    `json:"failed"`
	Interrupted int64    `json:"interrupted"`
	ElapsedMs   int64    `json:"elapsed_ms"`
	Passed      bool     `json:"passed"`
	Violations  []string `json:"violations,omitempty"`
}

func (e EventRunFinished) GetMetadata() Metadata { return e.Metadata }

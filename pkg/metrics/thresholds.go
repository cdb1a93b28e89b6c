package metrics

import (
	"fmt"
	"time"
)

// Thresholds decide whether a run passes. Zero values disable a check.
type Thresholds struct {
	MaxFailureRate float64       `yaml:"max_failure_rate"`
	MaxP95         time.Duration `yaml:"max_p95"`
	// MinOrdersDelivered guards full-lifecycle runs against a silent backend.
	MinOrdersDelivered uint64 `yaml:"min_orders_delivered"`
}

type Violation struct {
	Metric string
	Limit  string
	Actual string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: limit %s, actual %s", v.Metric, v.Limit, v.Actual)
}

func (r Report) Evaluate(th Thresholds) []Violation {
	var out []Violation

	if th.MaxFailureRate > 0 {
		if rate := r.FailureRate(); rate > th.MaxFailureRate {
			out = append(out, Violation{
				Metric: "workflow failure rate",
				Limit:  fmt.Sprintf("%.2f%%", th.MaxFailureRate*100),
				Actual: fmt.Sprintf("%.2f%%", rate*100),
			})
		}
	}

	if th.MaxP95 > 0 {
		for _, p := range r.Phases {
			if p.P95 > th.MaxP95 {
				out = append(out, Violation{
					Metric: "p95 " + p.Name,
					Limit:  th.MaxP95.String(),
					Actual: p.P95.Round(time.Millisecond).String(),
				})
			}
		}
	}

	if th.MinOrdersDelivered > 0 && r.OrdersDelivered < th.MinOrdersDelivered {
		out = append(out, Violation{
			Metric: "orders delivered",
			Limit:  fmt.Sprintf(">= %d", th.MinOrdersDelivered),
			Actual: fmt.Sprintf("%d", r.OrdersDelivered),
		})
	}

	return out
}

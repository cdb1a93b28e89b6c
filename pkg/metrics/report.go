package metrics

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	svcerror "food-order-loadtest/pkg/error"

	dto "github.com/prometheus/client_model/go"
)

type Series struct {
	Name    string
	Success uint64
	Failure uint64
	P50     time.Duration
	P90     time.Duration
	P95     time.Duration
	P99     time.Duration
}

func (s Series) Total() uint64 { return s.Success + s.Failure }

func (s Series) FailureRate() float64 {
	if s.Total() == 0 {
		return 0
	}
	return float64(s.Failure) / float64(s.Total())
}

type Report struct {
	Elapsed         time.Duration
	Phases          []Series
	Workflows       []Series
	OrdersCreated   uint64
	OrdersDelivered uint64
	Interrupted     uint64
}

// FailureRate aggregates every workflow variant.
func (r Report) FailureRate() float64 {
	var ok, failed uint64
	for _, w := range r.Workflows {
		ok += w.Success
		failed += w.Failure
	}
	if ok+failed == 0 {
		return 0
	}
	return float64(failed) / float64(ok+failed)
}

func label(m *dto.Metric, name string) string {
	for _, l := range m.GetLabel() {
		if l.GetName() == name {
			return l.GetValue()
		}
	}
	return ""
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

type seriesSet map[string]*Series

func (ss seriesSet) get(name string) *Series {
	s, ok := ss[name]
	if !ok {
		s = &Series{Name: name}
		ss[name] = s
	}
	return s
}

func (ss seriesSet) sorted() []Series {
	out := make([]Series, 0, len(ss))
	for _, s := range ss {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func applySummary(ss seriesSet, fam *dto.MetricFamily, key string) {
	for _, m := range fam.GetMetric() {
		s := ss.get(label(m, key))
		for _, q := range m.GetSummary().GetQuantile() {
			d := seconds(q.GetValue())
			switch q.GetQuantile() {
			case 0.5:
				s.P50 = d
			case 0.9:
				s.P90 = d
			case 0.95:
				s.P95 = d
			case 0.99:
				s.P99 = d
			}
		}
	}
}

func applyOutcome(ss seriesSet, fam *dto.MetricFamily, key string) {
	for _, m := range fam.GetMetric() {
		s := ss.get(label(m, key))
		v := uint64(m.GetCounter().GetValue())
		if label(m, "outcome") == OutcomeSuccess {
			s.Success += v
		} else {
			s.Failure += v
		}
	}
}

// Report gathers the registry into a point-in-time summary.
func (s *Sink) Report() (Report, error) {
	families, err := s.Registry.Gather()
	if err != nil {
		return Report{}, svcerror.New(
			svcerror.ErrInternalError,
			svcerror.WithOp("Sink.Report"),
			svcerror.WithMsg("failed to gather metrics"),
			svcerror.WithCause(err),
			svcerror.WithTime(time.Now().UTC()),
		)
	}

	phases := seriesSet{}
	workflows := seriesSet{}
	rep := Report{Elapsed: time.Since(s.Started)}

	for _, fam := range families {
		switch strings.TrimPrefix(fam.GetName(), namespace+"_") {
		case "phase_duration_seconds":
			applySummary(phases, fam, "phase")
		case "phase_total":
			applyOutcome(phases, fam, "phase")
		case "workflow_duration_seconds":
			applySummary(workflows, fam, "workflow")
		case "workflow_total":
			applyOutcome(workflows, fam, "workflow")
		case "orders_created_total":
			rep.OrdersCreated = counterValue(fam)
		case "orders_delivered_total":
			rep.OrdersDelivered = counterValue(fam)
		case "iterations_interrupted_total":
			rep.Interrupted = counterValue(fam)
		}
	}

	rep.Phases = phases.sorted()
	rep.Workflows = workflows.sorted()
	return rep, nil
}

func counterValue(fam *dto.MetricFamily) uint64 {
	var total float64
	for _, m := range fam.GetMetric() {
		total += m.GetCounter().GetValue()
	}
	return uint64(total)
}

func ms(d time.Duration) string {
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func writeSeries(tw *tabwriter.Writer, title string, series []Series) {
	fmt.Fprintf(tw, "%s\ttotal\tok\tfail\tfail%%\tp50\tp90\tp95\tp99\n", title)
	for _, s := range series {
		fmt.Fprintf(tw, "  %s\t%d\t%d\t%d\t%.2f\t%s\t%s\t%s\t%s\n",
			s.Name, s.Total(), s.Success, s.Failure, s.FailureRate()*100,
			ms(s.P50), ms(s.P90), ms(s.P95), ms(s.P99))
	}
}

func (r Report) Render(w io.Writer) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "elapsed\t%s\n", r.Elapsed.Round(time.Millisecond))
	fmt.Fprintf(tw, "orders created\t%d\n", r.OrdersCreated)
	fmt.Fprintf(tw, "orders delivered\t%d\n", r.OrdersDelivered)
	fmt.Fprintf(tw, "iterations interrupted\t%d\n", r.Interrupted)
	fmt.Fprintf(tw, "workflow failure rate\t%.2f%%\n\n", r.FailureRate()*100)
	writeSeries(tw, "workflow", r.Workflows)
	fmt.Fprintln(tw)
	writeSeries(tw, "phase", r.Phases)
	tw.Flush()
}

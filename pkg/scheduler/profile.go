package scheduler

import (
	"fmt"
	"time"

	svcerror "food-order-loadtest/pkg/error"
)

type Mode string

const (
	ModeSanity Mode = "sanity"
	ModeMulti  Mode = "multi"
	ModeLoad   Mode = "load"
)

const DefaultGracefulStop = 30 * time.Second

// Stage ramps the number of virtual users linearly to Target over Duration.
type Stage struct {
	Duration time.Duration `yaml:"duration"`
	Target   int           `yaml:"target"`
}

type ThinkTime struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

type Profile struct {
	Mode   Mode    `yaml:"mode"`
	Stages []Stage `yaml:"stages"`
	// Iterations is the exact number of workflow runs in multi mode.
	Iterations int `yaml:"iterations"`
	// Actors bounds concurrency in multi mode. Zero means the pool size.
	Actors       int           `yaml:"actors"`
	MaxDuration  time.Duration `yaml:"max_duration"`
	GracefulStop time.Duration `yaml:"graceful_stop"`
	ThinkTime    ThinkTime     `yaml:"think_time"`
}

func setupErr(op, msg string) error {
	return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op), svcerror.WithMsg(msg))
}

func (p Profile) Validate() error {
	const op = "Profile.Validate"

	switch p.Mode {
	case ModeSanity:
	case ModeMulti:
		if p.Iterations <= 0 {
			return setupErr(op, "multi mode needs a positive iteration count")
		}
	case ModeLoad:
		if len(p.Stages) == 0 {
			return setupErr(op, "load mode needs at least one stage")
		}
		for i, s := range p.Stages {
			if s.Target < 0 || s.Duration < 0 {
				return setupErr(op, fmt.Sprintf("stage %d has a negative target or duration", i))
			}
		}
	default:
		return setupErr(op, fmt.Sprintf("unknown mode %q", p.Mode))
	}

	if p.Actors < 0 {
		return setupErr(op, "actors must not be negative")
	}
	if p.ThinkTime.Max < p.ThinkTime.Min {
		return setupErr(op, "think time max is below min")
	}
	return nil
}

// TotalDuration is the sum of the stage durations.
func (p Profile) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range p.Stages {
		total += s.Duration
	}
	return total
}

// Deadline bounds the whole run. Zero means unbounded.
func (p Profile) Deadline() time.Duration {
	if p.MaxDuration > 0 {
		return p.MaxDuration
	}
	if p.Mode != ModeLoad {
		return 0
	}
	grace := p.GracefulStop
	if grace <= 0 {
		grace = DefaultGracefulStop
	}
	return p.TotalDuration() + grace
}

// PeakTarget is the largest stage target.
func (p Profile) PeakTarget() int {
	peak := 0
	for _, s := range p.Stages {
		if s.Target > peak {
			peak = s.Target
		}
	}
	return peak
}

type VUEvent struct {
	At    time.Duration
	VU    int
	Start bool
}

// Timeline compiles the stages into VU start/stop events ordered by offset.
// Ramping up starts VU a first; ramping down stops the highest-numbered VU
// first. Every VU still running after the last stage is stopped at the end.
func (p Profile) Timeline() []VUEvent {
	var (
		events  []VUEvent
		current int
		offset  time.Duration
	)

	for _, s := range p.Stages {
		switch {
		case s.Target > current:
			span := int64(s.Target - current)
			for i := current; i < s.Target; i++ {
				at := offset + time.Duration(int64(s.Duration)*int64(i-current)/span)
				events = append(events, VUEvent{At: at, VU: i, Start: true})
			}
		case s.Target < current:
			span := int64(current - s.Target)
			for i := current - 1; i >= s.Target; i-- {
				k := int64(current - 1 - i)
				at := offset + time.Duration(int64(s.Duration)*(k+1)/span)
				events = append(events, VUEvent{At: at, VU: i, Start: false})
			}
		}
		current = s.Target
		offset += s.Duration
	}

	for i := current - 1; i >= 0; i-- {
		events = append(events, VUEvent{At: offset, VU: i, Start: false})
	}
	return events
}

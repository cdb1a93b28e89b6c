// Package scenario names the traffic shapes a run can use. Built-in scenarios
// cover the usual sanity, lifecycle, multi, mixed and stress runs; a YAML file
// can add new ones or override built-ins by name.
package scenario

import (
	"fmt"
	"os"
	"sort"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/metrics"
	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/scheduler"
	"food-order-loadtest/pkg/workflow"

	"gopkg.in/yaml.v3"
)

type MixEntry struct {
	Workflow string `yaml:"workflow"`
	Weight   int    `yaml:"weight"`
}

type Scenario struct {
	Name        string             `yaml:"name"`
	Description string             `yaml:"description"`
	Profile     scheduler.Profile  `yaml:"profile"`
	Mix         []MixEntry         `yaml:"mix"`
	Lifecycle   workflow.Options   `yaml:"lifecycle"`
	Thresholds  metrics.Thresholds `yaml:"thresholds"`
}

func (s Scenario) Validate() error {
	const op = "Scenario.Validate"
	if s.Name == "" {
		return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op), svcerror.WithMsg("scenario has no name"))
	}
	if len(s.Mix) == 0 {
		return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op),
			svcerror.WithMsg(fmt.Sprintf("scenario %q has an empty workflow mix", s.Name)))
	}
	for _, m := range s.Mix {
		if !knownWorkflow(m.Workflow) {
			return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op),
				svcerror.WithMsg(fmt.Sprintf("scenario %q names unknown workflow %q", s.Name, m.Workflow)))
		}
	}
	return svcerror.AddOp(s.Profile.Validate(), op)
}

func knownWorkflow(name string) bool {
	switch name {
	case workflow.LifecycleName, workflow.BrowseName, workflow.TrackingName, workflow.MiscName:
		return true
	}
	return false
}

// Build resolves the mix against a shared environment.
func (s Scenario) Build(env workflow.Env) (*scheduler.Weighted[workflow.Workflow], error) {
	choices := make([]scheduler.Choice[workflow.Workflow], 0, len(s.Mix))
	for _, m := range s.Mix {
		var wf workflow.Workflow
		switch m.Workflow {
		case workflow.LifecycleName:
			wf = workflow.NewLifecycle(env, s.Lifecycle)
		case workflow.BrowseName:
			wf = workflow.NewBrowseFlow(env)
		case workflow.TrackingName:
			wf = workflow.NewTrackingFlow(env)
		case workflow.MiscName:
			wf = workflow.NewMiscFlow(env)
		default:
			return nil, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp("Scenario.Build"),
				svcerror.WithMsg(fmt.Sprintf("unknown workflow %q", m.Workflow)))
		}
		choices = append(choices, scheduler.Choice[workflow.Workflow]{Weight: m.Weight, Value: wf})
	}
	return scheduler.NewWeighted(choices...)
}

func lifecycleOnly() []MixEntry {
	return []MixEntry{{Workflow: workflow.LifecycleName, Weight: 1}}
}

func fullLifecycle() workflow.Options {
	opts := workflow.DefaultOptions()
	opts.IncludeDeliveryFulfillPhase = true
	opts.FulfillmentStatuses = models.FulfillmentFull
	opts.CallbackGap = time.Second
	return opts
}

// Builtins returns a fresh copy of the built-in scenarios keyed by name.
func Builtins() map[string]Scenario {
	return map[string]Scenario{
		"sanity": {
			Name:        "sanity",
			Description: "one actor, one full order lifecycle",
			Profile:     scheduler.Profile{Mode: scheduler.ModeSanity, MaxDuration: 2 * time.Minute},
			Mix:         lifecycleOnly(),
			Lifecycle:   workflow.DefaultOptions(),
			Thresholds:  metrics.Thresholds{MaxFailureRate: 0.01, MinOrdersDelivered: 1},
		},
		"lifecycle": {
			Name:        "lifecycle",
			Description: "ramping load through the full lifecycle including fulfill and arrival callbacks",
			Profile: scheduler.Profile{
				Mode: scheduler.ModeLoad,
				Stages: []scheduler.Stage{
					{Duration: time.Minute, Target: 5},
					{Duration: 3 * time.Minute, Target: 10},
					{Duration: time.Minute, Target: 0},
				},
				ThinkTime: scheduler.ThinkTime{Min: time.Second, Max: 3 * time.Second},
			},
			Mix:        lifecycleOnly(),
			Lifecycle:  fullLifecycle(),
			Thresholds: metrics.Thresholds{MaxFailureRate: 0.05, MaxP95: 3 * time.Second},
		},
		"multi": {
			Name:        "multi",
			Description: "exact number of completed orders over a bounded actor pool",
			Profile:     scheduler.Profile{Mode: scheduler.ModeMulti, Iterations: 10, MaxDuration: 30 * time.Minute},
			Mix:         lifecycleOnly(),
			Lifecycle:   workflow.DefaultOptions(),
			Thresholds:  metrics.Thresholds{MaxFailureRate: 0.05},
		},
		"mixed": {
			Name:        "mixed",
			Description: "weighted browse, order, tracking and misc traffic",
			Profile: scheduler.Profile{
				Mode: scheduler.ModeLoad,
				Stages: []scheduler.Stage{
					{Duration: 2 * time.Minute, Target: 20},
					{Duration: 5 * time.Minute, Target: 20},
					{Duration: time.Minute, Target: 0},
				},
				ThinkTime: scheduler.ThinkTime{Min: time.Second, Max: 5 * time.Second},
			},
			Mix: []MixEntry{
				{Workflow: workflow.BrowseName, Weight: 40},
				{Workflow: workflow.LifecycleName, Weight: 25},
				{Workflow: workflow.TrackingName, Weight: 20},
				{Workflow: workflow.MiscName, Weight: 15},
			},
			Lifecycle:  workflow.DefaultOptions(),
			Thresholds: metrics.Thresholds{MaxFailureRate: 0.05, MaxP95: 2 * time.Second},
		},
		"stress": {
			Name:        "stress",
			Description: "aggressive ramp to find the breaking point",
			Profile: scheduler.Profile{
				Mode: scheduler.ModeLoad,
				Stages: []scheduler.Stage{
					{Duration: 2 * time.Minute, Target: 50},
					{Duration: 3 * time.Minute, Target: 100},
					{Duration: 3 * time.Minute, Target: 200},
					{Duration: 2 * time.Minute, Target: 0},
				},
				ThinkTime: scheduler.ThinkTime{Max: time.Second},
			},
			Mix:        lifecycleOnly(),
			Lifecycle:  workflow.DefaultOptions(),
			Thresholds: metrics.Thresholds{MaxFailureRate: 0.25},
		},
	}
}

// Parse reads scenarios from YAML. Each entry is decoded on top of the
// built-in of the same name when there is one, so a file only needs to state
// what it changes.
func Parse(data []byte) (map[string]Scenario, error) {
	const op = "Scenario.Parse"

	var raw struct {
		Scenarios []yaml.Node `yaml:"scenarios"`
	}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op),
			svcerror.WithMsg("malformed scenario file"), svcerror.WithCause(err))
	}

	all := Builtins()
	for i := range raw.Scenarios {
		node := &raw.Scenarios[i]

		var head struct {
			Name string `yaml:"name"`
		}
		if err := node.Decode(&head); err != nil || head.Name == "" {
			return nil, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op),
				svcerror.WithMsg(fmt.Sprintf("scenario %d has no name", i)))
		}

		sc, ok := all[head.Name]
		if !ok {
			sc = Scenario{Lifecycle: workflow.DefaultOptions()}
		}
		if err := node.Decode(&sc); err != nil {
			return nil, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp(op),
				svcerror.WithMsg(fmt.Sprintf("scenario %q", head.Name)), svcerror.WithCause(err))
		}
		if err := sc.Validate(); err != nil {
			return nil, svcerror.AddOp(err, op)
		}
		all[sc.Name] = sc
	}
	return all, nil
}

func Load(path string) (map[string]Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp("Scenario.Load"),
			svcerror.WithMsg("cannot read "+path), svcerror.WithCause(err))
	}
	return Parse(data)
}

// Lookup resolves name against the built-ins, or against the file at path
// when one is given.
func Lookup(name, path string) (Scenario, error) {
	all := Builtins()
	if path != "" {
		var err error
		if all, err = Load(path); err != nil {
			return Scenario{}, err
		}
	}
	sc, ok := all[name]
	if !ok {
		return Scenario{}, svcerror.New(svcerror.ErrSetupError, svcerror.WithOp("Scenario.Lookup"),
			svcerror.WithMsg(fmt.Sprintf("unknown scenario %q (have %v)", name, Names(all))))
	}
	return sc, nil
}

func Names(all map[string]Scenario) []string {
	names := make([]string, 0, len(all))
	for n := range all {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

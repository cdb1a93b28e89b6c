package scenario

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/scheduler"
	"food-order-loadtest/pkg/workflow"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuiltins_AreValid(t *testing.T) {
	t.Parallel()

	all := Builtins()
	assert.Equal(t, []string{"lifecycle", "mixed", "multi", "sanity", "stress"}, Names(all))
	for name, sc := range all {
		assert.Equal(t, name, sc.Name)
		assert.NoError(t, sc.Validate(), name)
	}

	assert.Equal(t, 0.25, all["stress"].Thresholds.MaxFailureRate)
	assert.Equal(t, models.FulfillmentFull, all["lifecycle"].Lifecycle.FulfillmentStatuses)
	assert.True(t, all["lifecycle"].Lifecycle.IncludeDeliveryFulfillPhase)
}

func TestBuild_MixedWeights(t *testing.T) {
	t.Parallel()

	mix, err := Builtins()["mixed"].Build(workflow.Env{RestaurantId: "r-1"})
	require.NoError(t, err)
	assert.Equal(t, 100, mix.Total())

	names := map[string]int{}
	for _, c := range mix.Choices() {
		names[c.Value.Name()] = c.Weight
	}
	assert.Equal(t, map[string]int{
		workflow.BrowseName:    40,
		workflow.LifecycleName: 25,
		workflow.TrackingName:  20,
		workflow.MiscName:      15,
	}, names)
}

func TestParse_OverridesAndAdds(t *testing.T) {
	t.Parallel()

	data := []byte(`
scenarios:
  - name: multi
    profile:
      mode: multi
      iterations: 250
      actors: 25
  - name: smoke
    profile:
      mode: load
      stages:
        - {duration: 30s, target: 3}
        - {duration: 10s, target: 0}
      think_time: {min: 100ms, max: 500ms}
    mix:
      - {workflow: browse, weight: 1}
    lifecycle:
      payment_poll: {interval: 250ms, timeout: 5s}
    thresholds:
      max_failure_rate: 0.1
      max_p95: 1500ms
`)

	all, err := Parse(data)
	require.NoError(t, err)

	multi := all["multi"]
	assert.Equal(t, 250, multi.Profile.Iterations)
	assert.Equal(t, 25, multi.Profile.Actors)
	assert.Equal(t, "exact number of completed orders over a bounded actor pool", multi.Description)
	assert.Len(t, multi.Mix, 1)

	smoke := all["smoke"]
	assert.Equal(t, scheduler.ModeLoad, smoke.Profile.Mode)
	assert.Equal(t, []scheduler.Stage{{Duration: 30 * time.Second, Target: 3}, {Duration: 10 * time.Second, Target: 0}}, smoke.Profile.Stages)
	assert.Equal(t, 500*time.Millisecond, smoke.Profile.ThinkTime.Max)
	assert.Equal(t, 1500*time.Millisecond, smoke.Thresholds.MaxP95)
	assert.Equal(t, 250*time.Millisecond, smoke.Lifecycle.PaymentPoll.Interval)
	assert.True(t, smoke.Lifecycle.IncludeBrowsePhase)

	assert.Contains(t, all, "sanity")
}

func TestParse_Rejects(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"malformed":        "scenarios: [",
		"no name":          "scenarios:\n  - profile: {mode: sanity}\n",
		"unknown workflow": "scenarios:\n  - name: x\n    profile: {mode: sanity}\n    mix: [{workflow: checkout, weight: 1}]\n",
		"bad profile":      "scenarios:\n  - name: x\n    profile: {mode: multi}\n    mix: [{workflow: browse, weight: 1}]\n",
	}
	for name, data := range cases {
		data := data
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := Parse([]byte(data))
			assert.True(t, errors.Is(err, svcerror.ErrSetupError), "%v", err)
		})
	}
}

func TestLookup(t *testing.T) {
	t.Parallel()

	sc, err := Lookup("sanity", "")
	require.NoError(t, err)
	assert.Equal(t, scheduler.ModeSanity, sc.Profile.Mode)

	_, err = Lookup("soak", "")
	assert.True(t, errors.Is(err, svcerror.ErrSetupError))

	path := filepath.Join(t.TempDir(), "scenarios.yaml")
	require.NoError(t, os.WriteFile(path, []byte("scenarios:\n  - name: soak\n    profile: {mode: sanity}\n    mix: [{workflow: misc, weight: 1}]\n"), 0o600))
	sc, err = Lookup("soak", path)
	require.NoError(t, err)
	assert.Equal(t, workflow.MiscName, sc.Mix[0].Workflow)

	_, err = Lookup("sanity", filepath.Join(t.TempDir(), "missing.yaml"))
	assert.True(t, errors.Is(err, svcerror.ErrSetupError))
}

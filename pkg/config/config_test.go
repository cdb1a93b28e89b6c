package config

import (
	"errors"
	"flag"
	"testing"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/scenario"
	"food-order-loadtest/pkg/scheduler"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvThenFlags(t *testing.T) {
	t.Setenv("BASE_URL", "http://backend:3000")
	t.Setenv("RESTAURANT_ID", "r-env")
	t.Setenv("USER_POOL_SIZE", "12")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("KAFKA_BROKERS", "kafka:9092")

	conf := FromEnv()
	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	conf.BindFlags(fs)
	require.NoError(t, fs.Parse([]string{"-restaurant", "r-flag", "-orders", "40", "-mode", "multi"}))

	assert.Equal(t, "http://backend:3000", conf.BaseURL)
	assert.Equal(t, "r-flag", conf.RestaurantId)
	assert.Equal(t, 12, conf.PoolSize)
	assert.Equal(t, 40, conf.TargetOrders)
	assert.Equal(t, 5*time.Second, conf.Timeout)
	assert.Equal(t, []string{"kafka:9092"}, conf.KafkaBrokers)
	assert.Equal(t, DefaultResultsTopic, conf.ResultsTopic)
	assert.Equal(t, "123456", conf.OTP)
	assert.NoError(t, conf.Validate())
}

func TestValidate(t *testing.T) {
	t.Setenv("RESTAURANT_ID", "")
	base := FromEnv()
	base.RestaurantId = "r-1"
	require.NoError(t, base.Validate())

	cases := map[string]func(*Config){
		"missing restaurant": func(c *Config) { c.RestaurantId = " " },
		"missing base":       func(c *Config) { c.BaseURL = "" },
		"empty pool":         func(c *Config) { c.PoolSize = 0 },
		"negative orders":    func(c *Config) { c.TargetOrders = -1 },
		"zero timeout":       func(c *Config) { c.Timeout = 0 },
		"unknown mode":       func(c *Config) { c.Mode = "soak" },
	}
	for name, mutate := range cases {
		conf := base
		mutate(&conf)
		err := conf.Validate()
		assert.True(t, errors.Is(err, svcerror.ErrSetupError), name)
	}
}

func TestApply(t *testing.T) {
	t.Parallel()

	conf := Config{Mode: "multi", TargetOrders: 25}
	sc, err := conf.Apply(scenario.Builtins()["sanity"])
	require.NoError(t, err)
	assert.Equal(t, scheduler.ModeMulti, sc.Profile.Mode)
	assert.Equal(t, 25, sc.Profile.Iterations)

	conf = Config{Mode: "single"}
	sc, err = conf.Apply(scenario.Builtins()["multi"])
	require.NoError(t, err)
	assert.Equal(t, scheduler.ModeSanity, sc.Profile.Mode)

	conf = Config{Mode: "multi"}
	_, err = conf.Apply(scenario.Builtins()["sanity"])
	assert.True(t, errors.Is(err, svcerror.ErrSetupError))
}

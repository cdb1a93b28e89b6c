// Package config gathers the harness settings from the environment and lets
// command-line flags override them.
package config

import (
	"flag"
	"strings"
	"time"

	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/payload"
	"food-order-loadtest/pkg/scenario"
	"food-order-loadtest/pkg/scheduler"
	"food-order-loadtest/pkg/utils"
)

const DefaultResultsTopic = kafka.TopicResults

type Config struct {
	BaseURL      string
	RestaurantId string
	CustomerId   string
	PoolSize     int
	TargetOrders int
	Mode         string
	Scenario     string
	ScenarioFile string
	OTP          string
	Timeout      time.Duration
	MetricsAddr  string
	KafkaBrokers []string
	ResultsTopic string
	Seed         int64
}

func FromEnv() Config {
	return Config{
		BaseURL:      utils.GetEnv("BASE_URL", "http://localhost:3000"),
		RestaurantId: utils.GetEnv("RESTAURANT_ID", ""),
		CustomerId:   utils.GetEnv("CUSTOMER_ID", ""),
		PoolSize:     utils.GetEnvInt("USER_POOL_SIZE", 100),
		TargetOrders: utils.GetEnvInt("TARGET_ORDERS", 0),
		Mode:         utils.GetEnv("MODE", ""),
		Scenario:     utils.GetEnv("SCENARIO", "sanity"),
		ScenarioFile: utils.GetEnv("SCENARIO_FILE", ""),
		OTP:          utils.GetEnv("LOAD_TEST_OTP", payload.DefaultOTP),
		Timeout:      utils.GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		MetricsAddr:  utils.GetEnv("METRICS_ADDR", ""),
		KafkaBrokers: utils.GetEnvList("KAFKA_BROKERS"),
		ResultsTopic: utils.GetEnv("RESULTS_TOPIC", DefaultResultsTopic),
		Seed:         int64(utils.GetEnvInt("SEED", 0)),
	}
}

// BindFlags registers flags whose defaults are the current values, so an
// unset flag keeps what the environment said.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.BaseURL, "base", c.BaseURL, "backend base URL")
	fs.StringVar(&c.RestaurantId, "restaurant", c.RestaurantId, "restaurant id under test (required)")
	fs.StringVar(&c.CustomerId, "customer", c.CustomerId, "existing customer id for tracking traffic")
	fs.IntVar(&c.PoolSize, "pool", c.PoolSize, "number of pre-generated actors")
	fs.IntVar(&c.TargetOrders, "orders", c.TargetOrders, "exact number of workflows in multi mode")
	fs.StringVar(&c.Mode, "mode", c.Mode, "override the scenario mode: sanity, single, multi or load")
	fs.StringVar(&c.Scenario, "scenario", c.Scenario, "scenario name")
	fs.StringVar(&c.ScenarioFile, "scenario-file", c.ScenarioFile, "YAML file with extra scenarios")
	fs.StringVar(&c.OTP, "otp", c.OTP, "OTP the backend accepts in load-test mode")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "per-request timeout")
	fs.StringVar(&c.MetricsAddr, "metrics-addr", c.MetricsAddr, "serve Prometheus metrics on this address during the run")
	fs.Int64Var(&c.Seed, "seed", c.Seed, "random seed, 0 picks one")
}

func setupErr(msg string) error {
	return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp("Config.Validate"), svcerror.WithMsg(msg))
}

func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return setupErr("base URL is required")
	case strings.TrimSpace(c.RestaurantId) == "":
		return setupErr("restaurant id is required (RESTAURANT_ID or -restaurant)")
	case c.PoolSize <= 0:
		return setupErr("actor pool size must be positive")
	case c.TargetOrders < 0:
		return setupErr("target order count must not be negative")
	case c.Timeout <= 0:
		return setupErr("request timeout must be positive")
	}
	if _, err := c.mode(); err != nil {
		return err
	}
	return nil
}

// mode maps the configured override. "single" is the historical name for a
// one-iteration run.
func (c Config) mode() (scheduler.Mode, error) {
	switch strings.ToLower(c.Mode) {
	case "":
		return "", nil
	case "single", "sanity":
		return scheduler.ModeSanity, nil
	case "multi":
		return scheduler.ModeMulti, nil
	case "load":
		return scheduler.ModeLoad, nil
	default:
		return "", setupErr("unknown mode " + c.Mode)
	}
}

// Apply folds the command-line overrides into the chosen scenario.
func (c Config) Apply(sc scenario.Scenario) (scenario.Scenario, error) {
	mode, err := c.mode()
	if err != nil {
		return sc, err
	}
	if mode != "" {
		sc.Profile.Mode = mode
	}
	if sc.Profile.Mode == scheduler.ModeMulti && c.TargetOrders > 0 {
		sc.Profile.Iterations = c.TargetOrders
	}
	if err := sc.Validate(); err != nil {
		return sc, err
	}
	return sc, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/url"
	"os"
	"time"

	"food-order-loadtest/pkg/client"
	"food-order-loadtest/pkg/config"
	"food-order-loadtest/pkg/decode"
	svcerror "food-order-loadtest/pkg/error"
	"food-order-loadtest/pkg/events"
	"food-order-loadtest/pkg/kafka"
	"food-order-loadtest/pkg/metrics"
	"food-order-loadtest/pkg/models"
	"food-order-loadtest/pkg/outbox"
	"food-order-loadtest/pkg/payload"
	"food-order-loadtest/pkg/scenario"
	"food-order-loadtest/pkg/scheduler"
	"food-order-loadtest/pkg/workflow"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const producerName = "loadtest"

// run wires one harness run and returns the process exit code.
func run(ctx context.Context, cfg config.Config, logger *zap.Logger) int {
	runId := uuid.NewString()
	logger = logger.With(zap.String("run", runId))

	sc, err := scenario.Lookup(cfg.Scenario, cfg.ScenarioFile)
	if err == nil {
		sc, err = cfg.Apply(sc)
	}
	if err != nil {
		logger.Error("scenario setup failed", zap.Error(err))
		return exitSetup
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	httpClient := client.New(client.Config{BaseURL: cfg.BaseURL, Timeout: cfg.Timeout})
	sink := metrics.NewSink()

	env := workflow.Env{
		Client:       httpClient,
		Recorder:     sink,
		Logger:       logger,
		RestaurantId: cfg.RestaurantId,
		CustomerId:   cfg.CustomerId,
		OTP:          cfg.OTP,
	}
	env.Menu, env.MenuSharingCode = prefetch(ctx, httpClient, cfg.RestaurantId, logger)

	mix, err := sc.Build(env)
	if err != nil {
		logger.Error("workflow mix invalid", zap.Error(err))
		return exitSetup
	}
	actors, err := scheduler.NewActorPool(payload.GenerateActors(cfg.PoolSize, rand.New(rand.NewSource(seed))))
	if err != nil {
		logger.Error("actor pool", zap.Error(err))
		return exitSetup
	}

	opts := []scheduler.Option{scheduler.WithSeed(seed)}

	var (
		producer *kafka.Producer
		relay    *outbox.Relay
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer = kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.KafkaBrokers})
		defer producer.Close()
		relay = outbox.NewRelay(producer, cfg.ResultsTopic, runId, logger)
		opts = append(opts, scheduler.WithResultHandler(relay.HandleResult))
	}

	runner, err := scheduler.NewRunner(sc.Profile, mix, actors, sink, logger, opts...)
	if err != nil {
		logger.Error("scheduler setup failed", zap.Error(err))
		return exitSetup
	}

	logger.Info("starting run",
		zap.String("scenario", sc.Name),
		zap.String("mode", string(sc.Profile.Mode)),
		zap.String("base", cfg.BaseURL),
		zap.Int("actors", actors.Len()),
		zap.Int64("seed", seed),
	)

	// side services live until the run is over
	sideCtx, stopSide := context.WithCancel(context.Background())
	g, sideCtx := errgroup.WithContext(sideCtx)
	if cfg.MetricsAddr != "" {
		g.Go(func() error { return serveMetrics(sideCtx, cfg.MetricsAddr, sink, logger) })
	}
	if relay != nil {
		g.Go(func() error { return relay.Run(sideCtx) })
	}

	summary := runner.Run(ctx)

	stopSide()
	if err := g.Wait(); err != nil {
		logger.Warn("side service failed", zap.Error(err))
	}

	report, err := sink.Report()
	if err != nil {
		logger.Error("report unavailable", zap.Error(err))
		return exitSetup
	}
	report.Elapsed = summary.Elapsed

	fmt.Fprintf(os.Stdout, "\nscenario %s (%s), run %s\n", sc.Name, sc.Profile.Mode, runId)
	fmt.Fprintf(os.Stdout, "iterations %d, succeeded %d, failed %d, interrupted %d, peak VUs %d, requests %d\n\n",
		summary.Iterations, summary.Succeeded, summary.Failed, summary.Interrupted, summary.PeakVUs, httpClient.Calls())
	report.Render(os.Stdout)

	violations := report.Evaluate(sc.Thresholds)
	if producer != nil {
		publishRunFinished(producer, cfg.ResultsTopic, runId, sc, summary, violations, logger)
	}

	if len(violations) > 0 {
		fmt.Fprintln(os.Stdout, "\nthresholds violated:")
		for _, v := range violations {
			fmt.Fprintln(os.Stdout, "  "+v.String())
		}
		return exitViolation
	}
	fmt.Fprintln(os.Stdout, "\nall thresholds passed")
	return exitOK
}

// prefetch loads the menu snapshot and the restaurant's sharing code once per
// run. Either may be missing; the workflows fall back to sample items and the
// restaurant id.
func prefetch(ctx context.Context, c client.Doer, restaurantId string, logger *zap.Logger) (*models.MenuSnapshot, string) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	var menu *models.MenuSnapshot
	resp := c.Do(ctx, http.MethodGet, "/menu/category?restaurantId="+url.QueryEscape(restaurantId), nil)
	if resp.OK() {
		m, err := decode.MenuSnapshot(resp.Body)
		if err != nil {
			logger.Warn("menu snapshot unreadable, using sample items", zap.Error(err))
		} else {
			menu = m
		}
	} else {
		logger.Warn("menu prefetch failed, using sample items", zap.Int("status", resp.Status), zap.Error(resp.Err))
	}

	var code string
	resp = c.Do(ctx, http.MethodGet, "/restaurant/"+url.PathEscape(restaurantId), nil)
	if resp.OK() {
		if sc, err := decode.MenuSharingCode(resp.Body); err == nil {
			code = sc
		}
	}
	if code == "" {
		logger.Warn("menu sharing code unavailable, using restaurant id")
	}
	return menu, code
}

func serveMetrics(ctx context.Context, addr string, sink *metrics.Sink, logger *zap.Logger) error {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/metrics", gin.WrapH(sink.Handler()))

	srv := &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	logger.Info("serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return svcerror.New(svcerror.ErrSetupError, svcerror.WithOp("Loadtest.serveMetrics"),
			svcerror.WithMsg("metrics listener failed"), svcerror.WithCause(err))
	}
	return nil
}

func publishRunFinished(p *kafka.Producer, topic, runId string, sc scenario.Scenario, s scheduler.Summary, violations []metrics.Violation, logger *zap.Logger) {
	evt := events.EventRunFinished{
		Metadata:    events.NewMetadata(events.EvtTypeRunFinished, runId, "", producerName),
		Scenario:    sc.Name,
		Mode:        string(sc.Profile.Mode),
		Iterations:  s.Iterations,
		Succeeded:   s.Succeeded,
		Failed:      s.Failed,
		Interrupted: s.Interrupted,
		ElapsedMs:   s.Elapsed.Milliseconds(),
		Passed:      len(violations) == 0,
	}
	for _, v := range violations {
		evt.Violations = append(evt.Violations, v.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, kafka.EventMessage{Topic: topic, Key: runId, Event: evt}); err != nil {
		logger.Warn("run summary not published", zap.Error(err))
	}
}

package scheduler

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"food-order-loadtest/pkg/workflow"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Observer receives one call per finished iteration.
type Observer interface {
	ObserveWorkflow(workflow string, d time.Duration, ok bool)
	IterationInterrupted()
}

type ResultHandler func(workflow.Result)

type Summary struct {
	Iterations  int64
	Succeeded   int64
	Failed      int64
	Interrupted int64
	PeakVUs     int64
	Elapsed     time.Duration
}

type Runner struct {
	profile  Profile
	mix      *Weighted[workflow.Workflow]
	actors   *ActorPool
	observer Observer
	onResult ResultHandler
	log      *zap.Logger
	seed     int64

	iterations  atomic.Int64
	succeeded   atomic.Int64
	failed      atomic.Int64
	interrupted atomic.Int64
	activeVUs   atomic.Int64
	peakVUs     atomic.Int64
}

type Option func(*Runner)

func WithResultHandler(h ResultHandler) Option {
	return func(r *Runner) { r.onResult = h }
}

func WithSeed(seed int64) Option {
	return func(r *Runner) { r.seed = seed }
}

func NewRunner(profile Profile, mix *Weighted[workflow.Workflow], actors *ActorPool, observer Observer, logger *zap.Logger, opts ...Option) (*Runner, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	if mix == nil || actors == nil || observer == nil {
		return nil, setupErr("Scheduler.NewRunner", "runner needs a workflow mix, an actor pool and an observer")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Runner{
		profile:  profile,
		mix:      mix,
		actors:   actors,
		observer: observer,
		log:      logger.Named("scheduler"),
		seed:     time.Now().UnixNano(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Run blocks until the profile is exhausted or its deadline passes. Iterations
// still in flight at the deadline are abandoned and counted as interrupted.
func (r *Runner) Run(ctx context.Context) Summary {
	start := time.Now()
	if d := r.profile.Deadline(); d > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d)
		defer cancel()
	}

	r.log.Info("run starting",
		zap.String("mode", string(r.profile.Mode)),
		zap.Int("actors", r.actors.Len()),
		zap.Duration("deadline", r.profile.Deadline()),
	)

	switch r.profile.Mode {
	case ModeSanity:
		r.runSanity(ctx)
	case ModeMulti:
		r.runMulti(ctx)
	case ModeLoad:
		r.runLoad(ctx)
	}

	s := Summary{
		Iterations:  r.iterations.Load(),
		Succeeded:   r.succeeded.Load(),
		Failed:      r.failed.Load(),
		Interrupted: r.interrupted.Load(),
		PeakVUs:     r.peakVUs.Load(),
		Elapsed:     time.Since(start),
	}
	r.log.Info("run finished",
		zap.Int64("iterations", s.Iterations),
		zap.Int64("succeeded", s.Succeeded),
		zap.Int64("failed", s.Failed),
		zap.Int64("interrupted", s.Interrupted),
		zap.Duration("elapsed", s.Elapsed),
	)
	return s
}

func (r *Runner) runSanity(ctx context.Context) {
	r.enterVU()
	defer r.leaveVU()
	r.iterate(ctx, 0, rand.New(rand.NewSource(r.seed)))
}

func (r *Runner) runMulti(ctx context.Context) {
	limit := r.profile.Actors
	if limit <= 0 {
		limit = r.actors.Len()
	}

	// Iterations never return errors; the group only bounds concurrency.
	var g errgroup.Group
	g.SetLimit(limit)

	for i := 0; i < r.profile.Iterations; i++ {
		if ctx.Err() != nil {
			break
		}
		slot := i
		g.Go(func() error {
			r.enterVU()
			defer r.leaveVU()
			r.iterate(ctx, slot, rand.New(rand.NewSource(r.seed+int64(slot))))
			return nil
		})
	}
	_ = g.Wait()
}

func (r *Runner) runLoad(ctx context.Context) {
	events := r.profile.Timeline()
	queue := NewQueue[VUEvent](len(events))
	defer queue.Stop()

	start := time.Now()
	for i, ev := range events {
		if err := queue.Push(Entry[VUEvent]{ID: strconv.Itoa(i), Value: ev, ReadyAt: start.Add(ev.At)}); err != nil {
			r.log.Error("timeline push failed", zap.Error(err))
			return
		}
	}
	queue.Close()

	var wg sync.WaitGroup
	running := make(map[int]vuHandle)
	// done channels of stopped VUs whose last iteration may still be in flight
	stopping := make(map[int]chan struct{})

loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case entry, ok := <-queue.Out:
			if !ok {
				break loop
			}
			ev := entry.Value
			if !ev.Start {
				if h, ok := running[ev.VU]; ok {
					close(h.stop)
					stopping[ev.VU] = h.done
					delete(running, ev.VU)
					r.log.Debug("vu stopped", zap.Int("vu", ev.VU), zap.Duration("at", ev.At))
				}
				continue
			}
			if _, ok := running[ev.VU]; ok {
				continue
			}
			prev := stopping[ev.VU]
			delete(stopping, ev.VU)

			h := vuHandle{stop: make(chan struct{}), done: make(chan struct{})}
			running[ev.VU] = h
			wg.Add(1)
			go func(vu int) {
				defer wg.Done()
				defer close(h.done)
				// a restarted VU never overlaps its previous incarnation
				if prev != nil {
					select {
					case <-prev:
					case <-h.stop:
						return
					case <-ctx.Done():
						return
					}
				}
				r.vuLoop(ctx, vu, h.stop)
			}(ev.VU)
			r.log.Debug("vu started", zap.Int("vu", ev.VU), zap.Duration("at", ev.At))
		}
	}

	for _, h := range running {
		close(h.stop)
	}
	wg.Wait()
}

type vuHandle struct {
	stop chan struct{}
	done chan struct{}
}

func (r *Runner) vuLoop(ctx context.Context, vu int, stop <-chan struct{}) {
	r.enterVU()
	defer r.leaveVU()

	rng := rand.New(rand.NewSource(r.seed + int64(vu)))
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		r.iterate(ctx, vu, rng)

		if !r.think(ctx, stop, rng) {
			return
		}
	}
}

func (r *Runner) think(ctx context.Context, stop <-chan struct{}, rng *rand.Rand) bool {
	tt := r.profile.ThinkTime
	d := tt.Min
	if span := tt.Max - tt.Min; span > 0 {
		d += time.Duration(rng.Int63n(int64(span)))
	}
	if d <= 0 {
		return true
	}

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-stop:
		return false
	case <-ctx.Done():
		return false
	}
}

func (r *Runner) iterate(ctx context.Context, slot int, rng *rand.Rand) {
	wf := r.mix.Pick(rng)
	actor := r.actors.At(slot)

	res := wf.Run(ctx, actor)
	r.iterations.Add(1)

	if res.Interrupted || (!res.Success && ctx.Err() != nil) {
		r.interrupted.Add(1)
		r.observer.IterationInterrupted()
		return
	}

	r.observer.ObserveWorkflow(wf.Name(), res.Duration, res.Success)
	if res.Success {
		r.succeeded.Add(1)
	} else {
		r.failed.Add(1)
		r.log.Info("iteration failed",
			zap.String("workflow", res.Workflow),
			zap.Int("actor", actor.Index),
			zap.String("phase", string(res.FailedPhase)),
			zap.String("order", res.OrderId),
		)
	}

	if r.onResult != nil {
		r.onResult(res)
	}
}

func (r *Runner) enterVU() {
	n := r.activeVUs.Add(1)
	for {
		peak := r.peakVUs.Load()
		if n <= peak || r.peakVUs.CompareAndSwap(peak, n) {
			return
		}
	}
}

func (r *Runner) leaveVU() { r.activeVUs.Add(-1) }

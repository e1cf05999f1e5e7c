// Package orchestrator crosses targets with probe specs and executes every
// pair under its own deadline. Its central invariant: no failing pair may
// prevent any other pair's Outcome from appearing; the whole point is
// fleet-wide diagnosis where broken devices are expected, not exceptional.
package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/user/fleetprobe/internal/model"
	"github.com/user/fleetprobe/internal/probes"
	"github.com/user/fleetprobe/internal/util"
)

// deadlineSlack covers probe teardown so a forced deadline never lands
// exactly on the probe's own internal timeout.
const deadlineSlack = 500 * time.Millisecond

// Lookup resolves a probe kind to its prober. Tests inject stubs here;
// production uses probes.ForKind.
type Lookup func(model.ProbeKind) (probes.Prober, bool)

// Orchestrator executes (target, spec) pairs via a bounded worker pool.
type Orchestrator struct {
	lookup      Lookup
	concurrency int
	onOutcome   func(model.Outcome)
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithConcurrency bounds the worker pool. Over-parallelizing ping sweeps
// degrades their own accuracy, so the degree is always an explicit bound.
func WithConcurrency(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrency = n
		}
	}
}

// WithLookup overrides prober dispatch.
func WithLookup(l Lookup) Option {
	return func(o *Orchestrator) { o.lookup = l }
}

// WithOutcomeCallback streams each completed Outcome as it lands. Callback
// order follows completion, not canonical order.
func WithOutcomeCallback(fn func(model.Outcome)) Option {
	return func(o *Orchestrator) { o.onOutcome = fn }
}

// New creates an orchestrator with sequential execution by default.
func New(opts ...Option) *Orchestrator {
	o := &Orchestrator{
		lookup:      probes.ForKind,
		concurrency: 1,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

type pair struct {
	ti, si int
}

// Run executes every (target, spec) pair and returns exactly
// len(targets)*len(specs) Outcomes in canonical target-major, probe-minor
// order. It runs to completion even if every pair fails; on external
// cancellation, completed Outcomes are retained and remaining pairs are
// recorded as TIMEOUT with a "run cancelled" diagnostic.
func (o *Orchestrator) Run(ctx context.Context, targets []model.Target, specs []model.ProbeSpec) []model.Outcome {
	total := len(targets) * len(specs)
	outcomes := make([]model.Outcome, total)
	filled := make([]bool, total)
	var mu sync.Mutex

	jobs := make(chan pair, total)
	var wg sync.WaitGroup

	record := func(idx int, out model.Outcome) {
		mu.Lock()
		outcomes[idx] = out
		filled[idx] = true
		mu.Unlock()
		if o.onOutcome != nil {
			o.onOutcome(out)
		}
	}

	for i := 0; i < o.concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range jobs {
				idx := p.ti*len(specs) + p.si
				target := targets[p.ti]
				spec := specs[p.si]

				if ctx.Err() != nil {
					record(idx, cancelledOutcome(spec.Kind, target.ID))
					continue
				}
				record(idx, o.executePair(ctx, target, spec))
			}
		}()
	}

	// Target-major, probe-minor dispatch keeps streamed output readable
	// when running sequentially.
	for ti := range targets {
		for si := range specs {
			jobs <- pair{ti, si}
		}
	}
	close(jobs)
	wg.Wait()

	// Every requested pair gets exactly one Outcome, no matter what.
	for idx := range outcomes {
		if !filled[idx] {
			ti, si := idx/len(specs), idx%len(specs)
			outcomes[idx] = cancelledOutcome(specs[si].Kind, targets[ti].ID)
		}
	}
	return outcomes
}

// executePair runs one probe under a hard per-pair deadline. The probe runs
// in its own goroutine; if the deadline fires first, a TIMEOUT Outcome is
// forced regardless of the probe's internal state, so a hung external tool
// cannot stall the run. A panicking probe is captured as FAILURE.
func (o *Orchestrator) executePair(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	prober, ok := o.lookup(spec.Kind)
	if !ok {
		out := model.Outcome{
			Kind:      spec.Kind,
			Target:    target.ID,
			Status:    model.StatusUnsupported,
			Diag:      fmt.Sprintf("no prober for kind %s", spec.Kind),
			StartedAt: time.Now(),
			EndedAt:   time.Now(),
		}
		return out
	}

	budget := PairDeadline(spec)
	pairCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	start := time.Now()
	done := make(chan model.Outcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				util.Error("probe %s against %s panicked: %v", spec.Kind, target.ID, r)
				out := model.Outcome{
					Kind:      spec.Kind,
					Target:    target.ID,
					Status:    model.StatusFailure,
					Diag:      fmt.Sprintf("probe panic: %v", r),
					StartedAt: start,
					EndedAt:   time.Now(),
				}
				out.EnsureMetrics()
				done <- out
			}
		}()
		done <- prober.Execute(pairCtx, target, spec)
	}()

	select {
	case out := <-done:
		return out
	case <-pairCtx.Done():
		// Prefer a result that raced the deadline over a forced TIMEOUT.
		select {
		case out := <-done:
			return out
		case <-time.After(10 * time.Millisecond):
		}
		out := model.Outcome{
			Kind:      spec.Kind,
			Target:    target.ID,
			Status:    model.StatusTimeout,
			Diag:      "probe deadline exceeded",
			StartedAt: start,
			EndedAt:   time.Now(),
		}
		out.EnsureMetrics()
		return out
	}
}

// PairDeadline is the wall-clock budget for one (target, spec) pair. Probe
// kinds with internal repetition (ICMP's N packets) get count×timeout; the
// rest get their single timeout, everything plus teardown slack.
func PairDeadline(spec model.ProbeSpec) time.Duration {
	timeout := spec.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	switch spec.Kind {
	case model.KindICMP:
		count := spec.Count
		if count < 1 {
			count = 1
		}
		return time.Duration(count)*timeout + deadlineSlack
	case model.KindTCP:
		ports := len(spec.Ports)
		if ports < 1 {
			ports = 1
		}
		return time.Duration(ports)*timeout + deadlineSlack
	case model.KindARP:
		// Neighbor read plus one cache-priming echo.
		return 2*timeout + deadlineSlack
	default:
		return timeout + deadlineSlack
	}
}

func cancelledOutcome(kind model.ProbeKind, target string) model.Outcome {
	now := time.Now()
	out := model.Outcome{
		Kind:      kind,
		Target:    target,
		Status:    model.StatusTimeout,
		Diag:      "run cancelled",
		StartedAt: now,
		EndedAt:   now,
	}
	out.EnsureMetrics()
	return out
}

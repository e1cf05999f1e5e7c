package orchestrator

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/fleetprobe/internal/model"
	"github.com/user/fleetprobe/internal/probes"
)

// stubProbe lets tests control per-kind behavior.
type stubProbe struct {
	kind    model.ProbeKind
	execute func(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome
}

func (s *stubProbe) Kind() model.ProbeKind { return s.kind }

func (s *stubProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	return s.execute(ctx, target, spec)
}

func okProbe(kind model.ProbeKind) *stubProbe {
	return &stubProbe{
		kind: kind,
		execute: func(_ context.Context, target model.Target, _ model.ProbeSpec) model.Outcome {
			out := model.Outcome{Kind: kind, Target: target.ID, Status: model.StatusSuccess}
			out.EnsureMetrics()
			return out
		},
	}
}

func stubLookup(stubs map[model.ProbeKind]*stubProbe) Lookup {
	return func(kind model.ProbeKind) (probes.Prober, bool) {
		s, ok := stubs[kind]
		return s, ok
	}
}

func targets(ids ...string) []model.Target {
	ts := make([]model.Target, len(ids))
	for i, id := range ids {
		ts[i] = model.Target{ID: id}
	}
	return ts
}

func TestRun_ExactlyOneOutcomePerPair(t *testing.T) {
	t.Parallel()

	stubs := map[model.ProbeKind]*stubProbe{
		model.KindICMP: okProbe(model.KindICMP),
		model.KindTCP:  okProbe(model.KindTCP),
	}
	specs := []model.ProbeSpec{
		{Kind: model.KindICMP, Timeout: time.Second},
		{Kind: model.KindTCP, Timeout: time.Second},
	}
	ts := targets("a", "b", "c")

	o := New(WithLookup(stubLookup(stubs)), WithConcurrency(4))
	outcomes := o.Run(context.Background(), ts, specs)

	if len(outcomes) != len(ts)*len(specs) {
		t.Fatalf("got %d outcomes, want %d", len(outcomes), len(ts)*len(specs))
	}
	// Canonical order: target-major, probe-minor.
	for ti, target := range ts {
		for si, spec := range specs {
			out := outcomes[ti*len(specs)+si]
			if out.Target != target.ID || out.Kind != spec.Kind {
				t.Fatalf("slot (%d,%d) holds (%s,%s)", ti, si, out.Target, out.Kind)
			}
		}
	}
}

func TestRun_PanickingPairDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	stubs := map[model.ProbeKind]*stubProbe{
		model.KindICMP: {
			kind: model.KindICMP,
			execute: func(_ context.Context, target model.Target, _ model.ProbeSpec) model.Outcome {
				if target.ID == "broken" {
					panic("boom")
				}
				out := model.Outcome{Kind: model.KindICMP, Target: target.ID, Status: model.StatusSuccess}
				out.EnsureMetrics()
				return out
			},
		},
	}
	specs := []model.ProbeSpec{{Kind: model.KindICMP, Timeout: time.Second}}
	ts := targets("a", "broken", "b", "c", "d")

	o := New(WithLookup(stubLookup(stubs)), WithConcurrency(2))
	outcomes := o.Run(context.Background(), ts, specs)

	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	success := 0
	for _, out := range outcomes {
		if out.Status == model.StatusSuccess {
			success++
		}
		if out.Target == "broken" {
			if out.Status != model.StatusFailure {
				t.Fatalf("broken target status = %s", out.Status)
			}
			if out.ICMP == nil {
				t.Fatalf("failure outcome must carry metrics")
			}
		}
	}
	if success != 4 {
		t.Fatalf("success count = %d", success)
	}
}

func TestRun_HungProbeForcedTimeout(t *testing.T) {
	t.Parallel()

	stubs := map[model.ProbeKind]*stubProbe{
		model.KindDNS: {
			kind: model.KindDNS,
			execute: func(ctx context.Context, target model.Target, _ model.ProbeSpec) model.Outcome {
				// Ignores its context entirely, like a wedged tool.
				time.Sleep(10 * time.Second)
				return model.Outcome{Kind: model.KindDNS, Target: target.ID, Status: model.StatusSuccess}
			},
		},
	}
	specs := []model.ProbeSpec{{Kind: model.KindDNS, Timeout: 50 * time.Millisecond}}

	o := New(WithLookup(stubLookup(stubs)))
	start := time.Now()
	outcomes := o.Run(context.Background(), targets("hung"), specs)
	elapsed := time.Since(start)

	if outcomes[0].Status != model.StatusTimeout {
		t.Fatalf("status = %s", outcomes[0].Status)
	}
	if outcomes[0].DNS == nil {
		t.Fatalf("timeout outcome must carry metrics")
	}
	// Budget is timeout+slack; anything near the probe's 10s sleep means the
	// deadline was not enforced.
	if elapsed > 3*time.Second {
		t.Fatalf("deadline not enforced, took %v", elapsed)
	}
}

func TestRun_CancellationRetainsCompleted(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var executed atomic.Int32

	stubs := map[model.ProbeKind]*stubProbe{
		model.KindICMP: {
			kind: model.KindICMP,
			execute: func(_ context.Context, target model.Target, _ model.ProbeSpec) model.Outcome {
				if executed.Add(1) == 2 {
					cancel()
				}
				out := model.Outcome{Kind: model.KindICMP, Target: target.ID, Status: model.StatusSuccess}
				out.EnsureMetrics()
				return out
			},
		},
	}
	specs := []model.ProbeSpec{{Kind: model.KindICMP, Timeout: time.Second}}
	ts := targets("a", "b", "c", "d", "e")

	o := New(WithLookup(stubLookup(stubs))) // sequential
	outcomes := o.Run(ctx, ts, specs)

	if len(outcomes) != 5 {
		t.Fatalf("got %d outcomes", len(outcomes))
	}
	var succeeded, timedOut int
	for _, out := range outcomes {
		switch out.Status {
		case model.StatusSuccess:
			succeeded++
		case model.StatusTimeout:
			timedOut++
			if out.Diag != "run cancelled" {
				t.Fatalf("diag = %q", out.Diag)
			}
		default:
			t.Fatalf("unexpected status %s", out.Status)
		}
	}
	// The pair that triggered cancellation may land either way; everything
	// after it must be recorded as cancelled, never dropped.
	if succeeded < 1 || succeeded > 2 || succeeded+timedOut != 5 {
		t.Fatalf("succeeded=%d timedOut=%d", succeeded, timedOut)
	}
}

func TestRun_UnknownKindRecordedUnsupported(t *testing.T) {
	t.Parallel()

	o := New(WithLookup(stubLookup(nil)))
	outcomes := o.Run(context.Background(), targets("a"),
		[]model.ProbeSpec{{Kind: model.ProbeKind("bogus"), Timeout: time.Second}})

	if len(outcomes) != 1 || outcomes[0].Status != model.StatusUnsupported {
		t.Fatalf("got %+v", outcomes)
	}
}

func TestPairDeadline_ScalesWithRepetition(t *testing.T) {
	t.Parallel()

	icmp := PairDeadline(model.ProbeSpec{Kind: model.KindICMP, Count: 5, Timeout: time.Second})
	if icmp < 5*time.Second {
		t.Fatalf("icmp budget %v too small for 5 packets", icmp)
	}
	tcp := PairDeadline(model.ProbeSpec{Kind: model.KindTCP, Ports: []int{80, 443}, Timeout: time.Second})
	if tcp < 2*time.Second {
		t.Fatalf("tcp budget %v too small for 2 ports", tcp)
	}
	dns := PairDeadline(model.ProbeSpec{Kind: model.KindDNS, Timeout: time.Second})
	if dns < time.Second || dns > 2*time.Second {
		t.Fatalf("dns budget %v", dns)
	}
}

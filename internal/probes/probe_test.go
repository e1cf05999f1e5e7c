package probes

import (
	"testing"

	"github.com/user/fleetprobe/internal/model"
)

func TestForKind_CoversAllKinds(t *testing.T) {
	t.Parallel()

	for _, kind := range model.Kinds() {
		p, ok := ForKind(kind)
		if !ok {
			t.Fatalf("no prober for %s", kind)
		}
		if p.Kind() != kind {
			t.Fatalf("prober for %s reports %s", kind, p.Kind())
		}
	}

	if _, ok := ForKind(model.ProbeKind("bogus")); ok {
		t.Fatalf("unknown kind must not dispatch")
	}
}

func TestFinish_MetricsInvariant(t *testing.T) {
	t.Parallel()

	o := finish(newOutcome(model.KindICMP, "10.0.0.1"), model.StatusFailure, "")
	if o.ICMP == nil {
		t.Fatalf("failure outcome must carry the kind metric set")
	}

	o = finish(newOutcome(model.KindLink, "local"), model.StatusUnsupported, "no iw")
	if o.Link != nil {
		t.Fatalf("unsupported outcome must not carry metrics")
	}
	if o.EndedAt.IsZero() {
		t.Fatalf("end timestamp not set")
	}
}

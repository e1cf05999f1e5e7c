package aggregate

import (
	"reflect"
	"testing"
	"time"

	"github.com/user/fleetprobe/internal/model"
)

func fixtures() (model.RunMeta, []model.Target, []model.ProbeSpec, []model.Outcome) {
	meta := NewRunMeta(time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), "host1", "6.1.0")
	targets := []model.Target{{ID: "a"}, {ID: "b"}}
	specs := []model.ProbeSpec{
		{Kind: model.KindICMP, Timeout: time.Second},
		{Kind: model.KindTCP, Timeout: time.Second},
	}
	outcomes := []model.Outcome{
		{Kind: model.KindICMP, Target: "a", Status: model.StatusSuccess},
		{Kind: model.KindTCP, Target: "a", Status: model.StatusFailure},
		{Kind: model.KindICMP, Target: "b", Status: model.StatusTimeout},
		{Kind: model.KindTCP, Target: "b", Status: model.StatusUnsupported},
	}
	return meta, targets, specs, outcomes
}

func TestAggregate_OrderAndCompleteness(t *testing.T) {
	t.Parallel()

	meta, targets, specs, outcomes := fixtures()
	report := Aggregate(meta, targets, specs, outcomes)

	if len(report.Targets) != 2 {
		t.Fatalf("targets = %d", len(report.Targets))
	}
	total := 0
	for _, tr := range report.Targets {
		total += len(tr.Outcomes)
	}
	if total != len(targets)*len(specs) {
		t.Fatalf("entries = %d, want %d", total, len(targets)*len(specs))
	}

	if report.Targets[0].Target.ID != "a" || report.Targets[1].Target.ID != "b" {
		t.Fatalf("resolver order not preserved")
	}
	if report.Targets[1].Outcomes[0].Kind != model.KindICMP {
		t.Fatalf("spec order not preserved within target")
	}
}

func TestAggregate_SummaryCounts(t *testing.T) {
	t.Parallel()

	meta, targets, specs, outcomes := fixtures()
	s := Aggregate(meta, targets, specs, outcomes).Summary

	want := model.Summary{Total: 4, Succeeded: 1, Failed: 1, TimedOut: 1, Unsupported: 1}
	if s != want {
		t.Fatalf("summary = %+v", s)
	}
}

func TestAggregate_Pure(t *testing.T) {
	t.Parallel()

	meta, targets, specs, outcomes := fixtures()
	first := Aggregate(meta, targets, specs, outcomes)
	second := Aggregate(meta, targets, specs, outcomes)

	if !reflect.DeepEqual(first, second) {
		t.Fatalf("aggregate is not deterministic")
	}
}

func TestNewRunMeta_DeterministicID(t *testing.T) {
	t.Parallel()

	at := time.Date(2024, 3, 1, 12, 30, 45, 0, time.UTC)
	meta := NewRunMeta(at, "h", "")
	if meta.RunID != "20240301_123045" {
		t.Fatalf("run id = %s", meta.RunID)
	}
}

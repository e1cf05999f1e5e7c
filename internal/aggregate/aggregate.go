// Package aggregate merges probe outcomes into the final Report.
package aggregate

import (
	"time"

	"github.com/user/fleetprobe/internal/model"
)

// Aggregate builds the Report from the orchestrator's outcome slice. It is a
// pure function, total over its input: no Outcome is ever dropped, targets
// keep the resolver's order, and within a target outcomes keep spec order.
// Running it twice on the same input yields identical Reports.
func Aggregate(meta model.RunMeta, targets []model.Target, specs []model.ProbeSpec, outcomes []model.Outcome) model.Report {
	report := model.Report{
		Meta:    meta,
		Specs:   specs,
		Targets: make([]model.TargetReport, 0, len(targets)),
	}

	for ti, target := range targets {
		tr := model.TargetReport{
			Target:   target,
			Outcomes: make([]model.Outcome, 0, len(specs)),
		}
		for si := range specs {
			idx := ti*len(specs) + si
			if idx < len(outcomes) {
				tr.Outcomes = append(tr.Outcomes, outcomes[idx])
			}
		}
		report.Targets = append(report.Targets, tr)
	}

	report.Summary = summarize(outcomes)
	return report
}

// summarize derives run-level counts for quick-glance triage without
// touching the per-Outcome data.
func summarize(outcomes []model.Outcome) model.Summary {
	s := model.Summary{Total: len(outcomes)}
	for _, out := range outcomes {
		switch out.Status {
		case model.StatusSuccess:
			s.Succeeded++
		case model.StatusFailure:
			s.Failed++
		case model.StatusTimeout:
			s.TimedOut++
		case model.StatusUnsupported:
			s.Unsupported++
		}
	}
	return s
}

// NewRunMeta stamps run identity from a fixed instant so callers control
// determinism (the aggregator itself never reads the clock).
func NewRunMeta(at time.Time, host, kernel string) model.RunMeta {
	return model.RunMeta{
		RunID:     at.UTC().Format("20060102_150405"),
		StartedAt: at,
		Host:      host,
		Kernel:    kernel,
	}
}

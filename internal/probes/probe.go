// Package probes implements the probe variant family. Every variant honors
// the same contract: Execute never returns an error. Unreachable targets,
// refused connections, missing tools and expired deadlines are all captured
// in the Outcome status, because network unreliability is the thing being
// measured.
package probes

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"time"

	"github.com/user/fleetprobe/internal/model"
)

// Prober runs one probe kind against one target.
type Prober interface {
	Kind() model.ProbeKind
	Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome
}

// ForKind returns the prober for a kind. The switch is exhaustive over the
// closed kind set; an unknown kind returns false.
func ForKind(kind model.ProbeKind) (Prober, bool) {
	switch kind {
	case model.KindICMP:
		return &ICMPProbe{}, true
	case model.KindARP:
		return &ARPProbe{}, true
	case model.KindTCP:
		return &TCPProbe{}, true
	case model.KindDNS:
		return &DNSProbe{}, true
	case model.KindTLS:
		return &TLSProbe{}, true
	case model.KindLink:
		return &LinkProbe{}, true
	}
	return nil, false
}

// newOutcome stamps the common outcome fields.
func newOutcome(kind model.ProbeKind, target string) model.Outcome {
	return model.Outcome{
		Kind:      kind,
		Target:    target,
		StartedAt: time.Now(),
	}
}

// finish sets the end timestamp and keeps the metrics invariant: every
// non-UNSUPPORTED outcome carries its kind-specific metric set.
func finish(o model.Outcome, status model.Status, diag string) model.Outcome {
	o.Status = status
	o.Diag = diag
	o.EndedAt = time.Now()
	if status != model.StatusUnsupported {
		o.EnsureMetrics()
	}
	return o
}

// runCommand executes a system tool and returns its combined output.
// toolMissing reports whether the failure means the tool itself is absent,
// which maps to StatusUnsupported rather than StatusFailure.
func runCommand(ctx context.Context, name string, args ...string) (out string, toolMissing bool, err error) {
	cmd := exec.CommandContext(ctx, name, args...)
	b, err := cmd.CombinedOutput()
	if err != nil && errors.Is(err, exec.ErrNotFound) {
		return "", true, err
	}
	return string(b), false, err
}

// timedOut reports whether the probe's own context expired, so the variant
// can record TIMEOUT itself instead of relying on the orchestrator's forced
// deadline.
func timedOut(ctx context.Context) bool {
	return errors.Is(ctx.Err(), context.DeadlineExceeded)
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return s
}

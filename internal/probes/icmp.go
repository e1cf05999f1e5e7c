package probes

import (
	"context"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/fleetprobe/internal/model"
)

// ICMPProbe sends N echo requests via the system ping tool and derives
// loss and RTT statistics from its summary lines.
type ICMPProbe struct{}

func (p *ICMPProbe) Kind() model.ProbeKind { return model.KindICMP }

// Execute runs ping with the configured packet count. An all-lost run is a
// FAILURE with loss=100 and no RTT stats; a per-packet timeout is not a
// probe-level timeout.
func (p *ICMPProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindICMP, target.ID)

	count := spec.Count
	if count < 1 {
		count = 1
	}
	waitSec := int(spec.Timeout.Seconds())
	if waitSec < 1 {
		waitSec = 1
	}

	args := []string{"-n", "-c", strconv.Itoa(count), "-W", strconv.Itoa(waitSec)}
	if target.Interface != "" {
		args = append(args, "-I", target.Interface)
	}
	args = append(args, target.ID)

	raw, missing, err := runCommand(ctx, "ping", args...)
	if missing {
		return finish(out, model.StatusUnsupported, "ping tool not found")
	}
	if timedOut(ctx) {
		return finish(out, model.StatusTimeout, firstLine(raw))
	}

	metrics, ok := parsePingOutput(raw)
	if !ok {
		// ping exits non-zero on resolution failure etc. without the
		// usual summary; report what we attempted.
		out.ICMP = &model.ICMPMetrics{Sent: count, LossPct: 100}
		diag := firstLine(raw)
		if diag == "" && err != nil {
			diag = err.Error()
		}
		return finish(out, model.StatusFailure, diag)
	}
	out.ICMP = metrics

	status := model.StatusSuccess
	if metrics.Received == 0 {
		status = model.StatusFailure
	}

	diag := ""
	if status == model.StatusSuccess {
		if names, lerr := net.LookupAddr(target.ID); lerr == nil && len(names) > 0 {
			diag = fmt.Sprintf("reverse-dns: %s", names[0])
		}
	}
	return finish(out, status, diag)
}

var (
	pingStatsRe = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
	pingRTTRe   = regexp.MustCompile(`(?:rtt|round-trip) min/avg/max/(?:mdev|stddev) = ([\d.]+)/([\d.]+)/([\d.]+)/([\d.]+)`)
)

// parsePingOutput extracts the transmit/receive summary and, when at least
// one reply arrived, the RTT line. Returns ok=false when the output carries
// no summary at all.
func parsePingOutput(raw string) (*model.ICMPMetrics, bool) {
	m := pingStatsRe.FindStringSubmatch(raw)
	if m == nil {
		return nil, false
	}

	sent, _ := strconv.Atoi(m[1])
	received, _ := strconv.Atoi(m[2])

	metrics := &model.ICMPMetrics{
		Sent:     sent,
		Received: received,
	}
	if sent > 0 {
		metrics.LossPct = float64(sent-received) / float64(sent) * 100
	}

	if rtt := pingRTTRe.FindStringSubmatch(raw); rtt != nil && received > 0 {
		metrics.HasRTT = true
		metrics.MinMs, _ = strconv.ParseFloat(rtt[1], 64)
		metrics.AvgMs, _ = strconv.ParseFloat(rtt[2], 64)
		metrics.MaxMs, _ = strconv.ParseFloat(rtt[3], 64)
		metrics.MdevMs, _ = strconv.ParseFloat(strings.TrimSpace(rtt[4]), 64)
	}

	return metrics, true
}

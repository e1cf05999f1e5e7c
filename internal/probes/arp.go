package probes

import (
	"context"
	"regexp"
	"strings"

	"github.com/user/fleetprobe/internal/model"
)

// ARPProbe checks the local neighbor cache for the target's link-layer
// address. It never sends ARP itself; on a cache miss it primes the cache
// with one best-effort echo request and re-reads, the way fleet scripts
// traditionally do before consulting `ip neigh`.
type ARPProbe struct{}

func (p *ARPProbe) Kind() model.ProbeKind { return model.KindARP }

// reachableStates are neighbor states that count as a resolved entry.
var reachableStates = map[string]bool{
	"REACHABLE": true,
	"STALE":     true,
	"PERMANENT": true,
}

func (p *ARPProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindARP, target.ID)

	raw, missing, _ := runCommand(ctx, "ip", "neigh", "show", target.ID)
	if missing {
		return finish(out, model.StatusUnsupported, "ip tool not found")
	}
	if timedOut(ctx) {
		return finish(out, model.StatusTimeout, "")
	}

	mac, state := parseNeighborEntry(raw)
	if mac == "" {
		// Cache miss: one echo to populate the cache, then re-read.
		_, _, _ = runCommand(ctx, "ping", "-n", "-c", "1", "-W", "1", target.ID)
		if timedOut(ctx) {
			return finish(out, model.StatusTimeout, "")
		}
		raw, _, _ = runCommand(ctx, "ip", "neigh", "show", target.ID)
		mac, state = parseNeighborEntry(raw)
	}

	out.ARP = &model.ARPMetrics{MAC: mac, State: state}
	if mac != "" && reachableStates[state] {
		return finish(out, model.StatusSuccess, "")
	}
	diag := "no neighbor entry"
	if state != "" {
		diag = "neighbor state " + state
	}
	return finish(out, model.StatusFailure, diag)
}

var lladdrRe = regexp.MustCompile(`lladdr\s+([0-9a-fA-F:]{17})`)

// parseNeighborEntry extracts the MAC and state from `ip neigh show <ip>`
// output, e.g. "10.0.0.1 dev eth0 lladdr aa:bb:cc:dd:ee:ff REACHABLE".
func parseNeighborEntry(raw string) (mac, state string) {
	line := firstLine(raw)
	if line == "" {
		return "", ""
	}

	if m := lladdrRe.FindStringSubmatch(line); m != nil {
		mac = strings.ToUpper(m[1])
	}

	fields := strings.Fields(line)
	if len(fields) > 0 {
		last := fields[len(fields)-1]
		if last == strings.ToUpper(last) && last != "" {
			state = last
		}
	}
	return mac, state
}

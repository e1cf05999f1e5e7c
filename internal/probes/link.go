package probes

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/user/fleetprobe/internal/model"
)

// LinkProbe is local-only: it reads the association state of a wireless
// interface via iw (SSID, signal, bitrates, per-peer retry counters). No
// packets are sent to the target. UNSUPPORTED when the platform exposes no
// such interface or driver info.
type LinkProbe struct{}

func (p *LinkProbe) Kind() model.ProbeKind { return model.KindLink }

func (p *LinkProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindLink, target.ID)

	iface := target.Interface
	if iface == "" {
		iface = defaultRouteInterface(ctx)
	}
	if iface == "" {
		return finish(out, model.StatusUnsupported, "no interface available")
	}

	raw, missing, err := runCommand(ctx, "iw", "dev", iface, "link")
	if missing {
		return finish(out, model.StatusUnsupported, "iw tool not found")
	}
	if timedOut(ctx) {
		return finish(out, model.StatusTimeout, "")
	}
	if err != nil || strings.Contains(raw, "No such device") {
		return finish(out, model.StatusUnsupported, "interface "+iface+" has no wireless info")
	}

	metrics, connected := parseIwLink(raw)
	metrics.Interface = iface
	out.Link = metrics
	if !connected {
		return finish(out, model.StatusFailure, "not associated")
	}

	// Retry counters live in the station dump, best effort.
	if dump, _, derr := runCommand(ctx, "iw", "dev", iface, "station", "dump"); derr == nil {
		retries, failed := parseIwStationDump(dump)
		metrics.TxRetries = retries
		metrics.TxFailed = failed
	}

	return finish(out, model.StatusSuccess, "")
}

// defaultRouteInterface mirrors `ip route show default` parsing: the device
// carrying the default route is the active interface.
func defaultRouteInterface(ctx context.Context) string {
	raw, _, err := runCommand(ctx, "ip", "route", "show", "default")
	if err != nil {
		return ""
	}
	m := regexp.MustCompile(`\bdev\s+(\S+)`).FindStringSubmatch(raw)
	if m == nil {
		return ""
	}
	return m[1]
}

var (
	iwSSIDRe      = regexp.MustCompile(`(?m)^\s*SSID:\s*(.+)$`)
	iwSignalRe    = regexp.MustCompile(`(?m)^\s*signal:\s*(-?\d+)\s*dBm`)
	iwTxBitrateRe = regexp.MustCompile(`(?m)^\s*tx bitrate:\s*([\d.]+)\s*MBit/s`)
	iwRxBitrateRe = regexp.MustCompile(`(?m)^\s*rx bitrate:\s*([\d.]+)\s*MBit/s`)
	iwRetriesRe   = regexp.MustCompile(`(?m)^\s*tx retries:\s*(\d+)`)
	iwFailedRe    = regexp.MustCompile(`(?m)^\s*tx failed:\s*(\d+)`)
)

// parseIwLink reads `iw dev <iface> link` output. connected is false for
// the "Not connected." form.
func parseIwLink(raw string) (m *model.LinkMetrics, connected bool) {
	m = &model.LinkMetrics{}
	if strings.Contains(raw, "Not connected") || !strings.Contains(raw, "Connected to") {
		return m, false
	}

	if s := iwSSIDRe.FindStringSubmatch(raw); s != nil {
		m.SSID = strings.TrimSpace(s[1])
	}
	if s := iwSignalRe.FindStringSubmatch(raw); s != nil {
		m.SignalDbm, _ = strconv.Atoi(s[1])
	}
	if s := iwTxBitrateRe.FindStringSubmatch(raw); s != nil {
		m.TxBitrateMbps, _ = strconv.ParseFloat(s[1], 64)
	}
	if s := iwRxBitrateRe.FindStringSubmatch(raw); s != nil {
		m.RxBitrateMbps, _ = strconv.ParseFloat(s[1], 64)
	}
	return m, true
}

// parseIwStationDump sums retry/failure counters across peers; stations are
// normally a single AP entry in managed mode.
func parseIwStationDump(raw string) (retries, failed int64) {
	for _, s := range iwRetriesRe.FindAllStringSubmatch(raw, -1) {
		n, _ := strconv.ParseInt(s[1], 10, 64)
		retries += n
	}
	for _, s := range iwFailedRe.FindAllStringSubmatch(raw, -1) {
		n, _ := strconv.ParseInt(s[1], 10, 64)
		failed += n
	}
	return retries, failed
}

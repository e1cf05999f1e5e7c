package sink

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pkg/errors"

	"github.com/user/fleetprobe/internal/model"
	"github.com/user/fleetprobe/internal/probes"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("205")).
			Padding(0, 2)

	targetStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("46"))
	failureStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	timeoutStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	unsupportedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// TextSink renders a human-readable report.
type TextSink struct {
	w io.Writer
}

// NewTextSink creates a text sink writing to w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

func (s *TextSink) Write(report *model.Report) error {
	var b strings.Builder

	b.WriteString(headerStyle.Render(fmt.Sprintf("fleetprobe run %s", report.Meta.RunID)))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("host %s  started %s",
		report.Meta.Host,
		report.Meta.StartedAt.Format("2006-01-02 15:04:05"))))
	b.WriteString("\n\n")

	for _, tr := range report.Targets {
		b.WriteString(targetStyle.Render("▸ " + tr.Target.ID))
		b.WriteString("\n")
		for _, out := range tr.Outcomes {
			b.WriteString(fmt.Sprintf("  %-14s %s %s\n",
				out.Kind,
				renderStatus(out.Status),
				renderMetrics(out)))
		}
		b.WriteString("\n")
	}

	sum := report.Summary
	b.WriteString(fmt.Sprintf("probes: %d  %s  %s  %s  %s\n",
		sum.Total,
		successStyle.Render(fmt.Sprintf("%d ok", sum.Succeeded)),
		failureStyle.Render(fmt.Sprintf("%d failed", sum.Failed)),
		timeoutStyle.Render(fmt.Sprintf("%d timed out", sum.TimedOut)),
		unsupportedStyle.Render(fmt.Sprintf("%d unsupported", sum.Unsupported))))

	_, err := io.WriteString(s.w, b.String())
	return errors.Wrap(err, "failed to write text report")
}

func renderStatus(status model.Status) string {
	switch status {
	case model.StatusSuccess:
		return successStyle.Render("✓ " + string(status))
	case model.StatusFailure:
		return failureStyle.Render("✗ " + string(status))
	case model.StatusTimeout:
		return timeoutStyle.Render("⧗ " + string(status))
	default:
		return unsupportedStyle.Render("- " + string(status))
	}
}

// renderMetrics summarizes the kind-specific metric set in one line.
func renderMetrics(out model.Outcome) string {
	switch {
	case out.ICMP != nil:
		m := out.ICMP
		if m.HasRTT {
			return dimStyle.Render(fmt.Sprintf("loss %.0f%% rtt %.1f/%.1f/%.1f ms",
				m.LossPct, m.MinMs, m.AvgMs, m.MaxMs))
		}
		return dimStyle.Render(fmt.Sprintf("loss %.0f%% (%d/%d)", m.LossPct, m.Received, m.Sent))
	case out.TCP != nil:
		return dimStyle.Render(renderPorts(out.TCP.Ports))
	case out.DNS != nil:
		if len(out.DNS.Addresses) > 0 {
			return dimStyle.Render(fmt.Sprintf("%s (%.1f ms)",
				strings.Join(out.DNS.Addresses, ", "), out.DNS.LatencyMs))
		}
		return dimStyle.Render(out.Diag)
	case out.TLS != nil:
		if out.TLS.Version != "" {
			return dimStyle.Render(fmt.Sprintf("%s %s (%.1f ms)",
				out.TLS.Version, out.TLS.CipherSuite, out.TLS.LatencyMs))
		}
		return dimStyle.Render(out.Diag)
	case out.ARP != nil:
		if out.ARP.MAC != "" {
			return dimStyle.Render(fmt.Sprintf("%s %s", out.ARP.MAC, out.ARP.State))
		}
		return dimStyle.Render(out.Diag)
	case out.Link != nil:
		m := out.Link
		if m.SSID != "" {
			return dimStyle.Render(fmt.Sprintf("%s %d dBm tx %.0f Mbit/s retries %d",
				m.SSID, m.SignalDbm, m.TxBitrateMbps, m.TxRetries))
		}
		return dimStyle.Render(out.Diag)
	}
	return dimStyle.Render(out.Diag)
}

func renderPorts(ports map[int]model.PortState) string {
	if len(ports) == 0 {
		return "no ports"
	}
	keys := make([]int, 0, len(ports))
	for p := range ports {
		keys = append(keys, p)
	}
	sort.Ints(keys)

	parts := make([]string, 0, len(keys))
	for _, p := range keys {
		parts = append(parts, fmt.Sprintf("%d/%s %s", p, probes.ServiceName(p), ports[p]))
	}
	return strings.Join(parts, ", ")
}

package probes

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"syscall"

	"github.com/user/fleetprobe/internal/model"
)

// TCPProbe attempts a connection to each port in the target's port set,
// independently and under the per-port timeout. Open, closed and filtered
// are kept distinct: refusal means a host answered, silence means something
// dropped the packets.
type TCPProbe struct{}

func (p *TCPProbe) Kind() model.ProbeKind { return model.KindTCP }

func (p *TCPProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindTCP, target.ID)

	ports := spec.Ports
	if len(ports) == 0 {
		ports = target.Ports
	}
	if len(ports) == 0 {
		out.TCP = &model.TCPMetrics{Ports: map[int]model.PortState{}}
		return finish(out, model.StatusFailure, "no ports configured")
	}

	states := make(map[int]model.PortState, len(ports))
	open := 0
	for _, port := range ports {
		if timedOut(ctx) {
			break
		}
		state := probePort(ctx, target.ID, port, spec)
		states[port] = state
		if state == model.PortOpen {
			open++
		}
	}
	out.TCP = &model.TCPMetrics{Ports: states}

	if timedOut(ctx) {
		return finish(out, model.StatusTimeout, "")
	}
	if open > 0 {
		return finish(out, model.StatusSuccess, fmt.Sprintf("%d/%d ports open", open, len(ports)))
	}
	return finish(out, model.StatusFailure, "no open ports")
}

// serviceNames annotates well-known ports in human-readable renderings.
var serviceNames = map[int]string{
	21: "ftp", 22: "ssh", 23: "telnet", 25: "smtp", 53: "dns",
	80: "http", 110: "pop3", 123: "ntp", 143: "imap", 161: "snmp",
	443: "https", 445: "smb", 1883: "mqtt", 3306: "mysql", 3389: "rdp",
	5432: "postgresql", 5900: "vnc", 6379: "redis", 8080: "http-alt",
	8443: "https-alt", 8883: "mqtts",
}

// ServiceName returns the conventional service for a port, or "unknown".
func ServiceName(port int) string {
	if name, ok := serviceNames[port]; ok {
		return name
	}
	return "unknown"
}

func probePort(ctx context.Context, host string, port int, spec model.ProbeSpec) model.PortState {
	dialer := net.Dialer{Timeout: spec.Timeout}
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err == nil {
		conn.Close()
		return model.PortOpen
	}
	return classifyDialError(err)
}

// classifyDialError maps a connect failure to closed (active refusal) or
// filtered (no response before the deadline). Resolution failures and other
// errors count as filtered: nothing answered.
func classifyDialError(err error) model.PortState {
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return model.PortClosed
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.PortFiltered
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return model.PortFiltered
	}
	return model.PortFiltered
}

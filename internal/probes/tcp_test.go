package probes

import (
	"context"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/user/fleetprobe/internal/model"
)

func TestTCPProbe_OpenAndClosed(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	openPort := ln.Addr().(*net.TCPAddr).Port

	// Grab a port and release it so a connect gets refused.
	ln2, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	closedPort := ln2.Addr().(*net.TCPAddr).Port
	ln2.Close()

	probe := &TCPProbe{}
	out := probe.Execute(context.Background(),
		model.Target{ID: "127.0.0.1"},
		model.ProbeSpec{
			Kind:    model.KindTCP,
			Timeout: 2 * time.Second,
			Ports:   []int{openPort, closedPort},
		})

	if out.Status != model.StatusSuccess {
		t.Fatalf("status = %s, diag = %s", out.Status, out.Diag)
	}
	if got := out.TCP.Ports[openPort]; got != model.PortOpen {
		t.Fatalf("port %d = %s, want open", openPort, got)
	}
	if got := out.TCP.Ports[closedPort]; got != model.PortClosed {
		t.Fatalf("port %d = %s, want closed", closedPort, got)
	}
}

func TestTCPProbe_NoPortsConfigured(t *testing.T) {
	t.Parallel()

	probe := &TCPProbe{}
	out := probe.Execute(context.Background(),
		model.Target{ID: "127.0.0.1"},
		model.ProbeSpec{Kind: model.KindTCP, Timeout: time.Second})

	if out.Status != model.StatusFailure {
		t.Fatalf("status = %s", out.Status)
	}
	if out.TCP == nil {
		t.Fatalf("failure outcome must still carry the TCP metric set")
	}
}

func TestClassifyDialError_TimeoutIsFiltered(t *testing.T) {
	t.Parallel()

	err := &net.OpError{Op: "dial", Err: timeoutErr{}}
	if got := classifyDialError(err); got != model.PortFiltered {
		t.Fatalf("got %s, want filtered", got)
	}
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

func TestServiceName(t *testing.T) {
	t.Parallel()

	if ServiceName(443) != "https" {
		t.Fatalf("443 = %s", ServiceName(443))
	}
	if ServiceName(49152) != "unknown" {
		t.Fatalf("49152 = %s", ServiceName(49152))
	}
}

func TestTCPProbe_PortsFallBackToTarget(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	port := ln.Addr().(*net.TCPAddr).Port

	probe := &TCPProbe{}
	out := probe.Execute(context.Background(),
		model.Target{ID: "127.0.0.1", Ports: []int{port}},
		model.ProbeSpec{Kind: model.KindTCP, Timeout: 2 * time.Second})

	if out.Status != model.StatusSuccess {
		t.Fatalf("status = %s", out.Status)
	}
	if _, ok := out.TCP.Ports[port]; !ok {
		t.Fatalf("target port %s not probed", strconv.Itoa(port))
	}
}

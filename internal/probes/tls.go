package probes

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/user/fleetprobe/internal/model"
)

// TLSProbe performs only the handshake phase against (host, port) with the
// configured server name. Certificate validity is not evaluated; the point
// is reachability and negotiation, not trust.
type TLSProbe struct{}

func (p *TLSProbe) Kind() model.ProbeKind { return model.KindTLS }

func (p *TLSProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindTLS, target.ID)

	port := spec.Port
	if port == 0 {
		port = 443
	}
	serverName := spec.ServerName
	if serverName == "" {
		serverName = target.ID
	}

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: spec.Timeout},
		Config: &tls.Config{
			ServerName:         serverName,
			InsecureSkipVerify: true,
		},
	}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(target.ID, strconv.Itoa(port)))
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	out.TLS = &model.TLSMetrics{LatencyMs: latency}
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return finish(out, model.StatusTimeout, err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return finish(out, model.StatusTimeout, err.Error())
		}
		return finish(out, model.StatusFailure, err.Error())
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	out.TLS.Version = tls.VersionName(state.Version)
	out.TLS.CipherSuite = tls.CipherSuiteName(state.CipherSuite)
	return finish(out, model.StatusSuccess, "")
}

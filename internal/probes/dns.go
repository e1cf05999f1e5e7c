package probes

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/user/fleetprobe/internal/model"
)

// DNSProbe resolves the target's hostname. SUCCESS iff at least one address
// came back before the deadline.
type DNSProbe struct{}

func (p *DNSProbe) Kind() model.ProbeKind { return model.KindDNS }

func (p *DNSProbe) Execute(ctx context.Context, target model.Target, spec model.ProbeSpec) model.Outcome {
	out := newOutcome(model.KindDNS, target.ID)

	resolver := &net.Resolver{PreferGo: true}

	lookupCtx := ctx
	if spec.Timeout > 0 {
		var cancel context.CancelFunc
		lookupCtx, cancel = context.WithTimeout(ctx, spec.Timeout)
		defer cancel()
	}

	start := time.Now()
	addrs, err := resolver.LookupIPAddr(lookupCtx, target.ID)
	latency := float64(time.Since(start).Microseconds()) / 1000.0

	out.DNS = &model.DNSMetrics{LatencyMs: latency}
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsTimeout {
			return finish(out, model.StatusTimeout, err.Error())
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return finish(out, model.StatusTimeout, err.Error())
		}
		return finish(out, model.StatusFailure, err.Error())
	}
	if len(addrs) == 0 {
		return finish(out, model.StatusFailure, "no addresses returned")
	}

	for _, a := range addrs {
		out.DNS.Addresses = append(out.DNS.Addresses, a.IP.String())
	}
	return finish(out, model.StatusSuccess, "")
}

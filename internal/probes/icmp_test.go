package probes

import "testing"

const pingOKOutput = `PING 10.0.0.1 (10.0.0.1) 56(84) bytes of data.
64 bytes from 10.0.0.1: icmp_seq=1 ttl=64 time=1.01 ms
64 bytes from 10.0.0.1: icmp_seq=2 ttl=64 time=1.20 ms
64 bytes from 10.0.0.1: icmp_seq=4 ttl=64 time=1.11 ms

--- 10.0.0.1 ping statistics ---
5 packets transmitted, 3 received, 40% packet loss, time 4005ms
rtt min/avg/max/mdev = 1.010/1.107/1.200/0.078 ms
`

const pingAllLostOutput = `PING 10.0.0.9 (10.0.0.9) 56(84) bytes of data.

--- 10.0.0.9 ping statistics ---
5 packets transmitted, 0 received, 100% packet loss, time 4099ms
`

const pingBSDOutput = `PING 10.0.0.1 (10.0.0.1): 56 data bytes
64 bytes from 10.0.0.1: icmp_seq=0 ttl=64 time=2.5 ms

--- 10.0.0.1 ping statistics ---
1 packets transmitted, 1 packets received, 0.0% packet loss
round-trip min/avg/max/stddev = 2.500/2.500/2.500/0.000 ms
`

func TestParsePingOutput_PartialLoss(t *testing.T) {
	t.Parallel()

	m, ok := parsePingOutput(pingOKOutput)
	if !ok {
		t.Fatalf("expected summary")
	}
	if m.Sent != 5 || m.Received != 3 {
		t.Fatalf("sent/received = %d/%d", m.Sent, m.Received)
	}
	if m.LossPct != 40 {
		t.Fatalf("loss = %.1f", m.LossPct)
	}
	if !m.HasRTT || m.AvgMs != 1.107 {
		t.Fatalf("rtt = %+v", m)
	}
}

func TestParsePingOutput_AllLost(t *testing.T) {
	t.Parallel()

	m, ok := parsePingOutput(pingAllLostOutput)
	if !ok {
		t.Fatalf("expected summary")
	}
	if m.Received != 0 || m.LossPct != 100 {
		t.Fatalf("loss = %.1f received = %d", m.LossPct, m.Received)
	}
	if m.HasRTT {
		t.Fatalf("all-lost run must not carry RTT stats")
	}
}

func TestParsePingOutput_BSDVariant(t *testing.T) {
	t.Parallel()

	m, ok := parsePingOutput(pingBSDOutput)
	if !ok {
		t.Fatalf("expected summary")
	}
	if m.Sent != 1 || m.Received != 1 || !m.HasRTT || m.MinMs != 2.5 {
		t.Fatalf("got %+v", m)
	}
}

func TestParsePingOutput_NoSummary(t *testing.T) {
	t.Parallel()

	if _, ok := parsePingOutput("ping: unknown host nowhere.invalid\n"); ok {
		t.Fatalf("expected no summary")
	}
}

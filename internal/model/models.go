// Package model defines core data structures for fleetprobe.
package model

import "time"

// ProbeKind identifies one of the fixed probe variants. The set is closed:
// dispatch code switches exhaustively over these values.
type ProbeKind string

const (
	KindICMP ProbeKind = "icmp"
	KindARP  ProbeKind = "arp"
	KindTCP  ProbeKind = "tcp"
	KindDNS  ProbeKind = "dns"
	KindTLS  ProbeKind = "tls"
	KindLink ProbeKind = "link_quality"
)

// Kinds returns all probe kinds in canonical execution order.
func Kinds() []ProbeKind {
	return []ProbeKind{KindICMP, KindARP, KindTCP, KindDNS, KindTLS, KindLink}
}

// Status is the result classification of a single probe execution.
// Probe failures are data, never errors: a run always completes.
type Status string

const (
	StatusSuccess     Status = "success"
	StatusFailure     Status = "failure"
	StatusTimeout     Status = "timeout"
	StatusUnsupported Status = "unsupported"
)

// Target is one endpoint under test. Built by the resolver at run start and
// immutable afterwards.
type Target struct {
	ID        string `json:"id" yaml:"id"`
	Ports     []int  `json:"ports,omitempty" yaml:"ports,omitempty"`
	Interface string `json:"interface,omitempty" yaml:"interface,omitempty"`
}

// ProbeSpec configures one probe kind for a run. Immutable after run start.
type ProbeSpec struct {
	Kind       ProbeKind     `json:"kind" yaml:"kind"`
	Count      int           `json:"count,omitempty" yaml:"count,omitempty"`
	Timeout    time.Duration `json:"timeout" yaml:"timeout"`
	Ports      []int         `json:"ports,omitempty" yaml:"ports,omitempty"`
	ServerName string        `json:"server_name,omitempty" yaml:"server_name,omitempty"`
	Port       int           `json:"port,omitempty" yaml:"port,omitempty"`
}

// PortState classifies one TCP port. Filtered (no response before the
// deadline) is kept distinct from closed (active refusal) because the
// remediation differs: firewall vs service down.
type PortState string

const (
	PortOpen     PortState = "open"
	PortClosed   PortState = "closed"
	PortFiltered PortState = "filtered"
)

// ICMPMetrics holds echo statistics. RTT fields are only meaningful when
// HasRTT is set; an all-lost run reports loss=100 with no RTT stats.
type ICMPMetrics struct {
	Sent     int     `json:"sent" yaml:"sent"`
	Received int     `json:"received" yaml:"received"`
	LossPct  float64 `json:"loss_pct" yaml:"loss_pct"`
	HasRTT   bool    `json:"has_rtt" yaml:"has_rtt"`
	MinMs    float64 `json:"min_ms,omitempty" yaml:"min_ms,omitempty"`
	AvgMs    float64 `json:"avg_ms,omitempty" yaml:"avg_ms,omitempty"`
	MaxMs    float64 `json:"max_ms,omitempty" yaml:"max_ms,omitempty"`
	MdevMs   float64 `json:"mdev_ms,omitempty" yaml:"mdev_ms,omitempty"`
}

// ARPMetrics holds the neighbor cache entry for the target.
type ARPMetrics struct {
	MAC   string `json:"mac,omitempty" yaml:"mac,omitempty"`
	State string `json:"state,omitempty" yaml:"state,omitempty"`
}

// TCPMetrics maps each probed port to its classification.
type TCPMetrics struct {
	Ports map[int]PortState `json:"ports" yaml:"ports"`
}

// DNSMetrics holds resolution results.
type DNSMetrics struct {
	Addresses []string `json:"addresses,omitempty" yaml:"addresses,omitempty"`
	LatencyMs float64  `json:"latency_ms" yaml:"latency_ms"`
}

// TLSMetrics describes a completed handshake. Certificate validity is not
// evaluated; the probe measures reachability and negotiation only.
type TLSMetrics struct {
	Version     string  `json:"version,omitempty" yaml:"version,omitempty"`
	CipherSuite string  `json:"cipher_suite,omitempty" yaml:"cipher_suite,omitempty"`
	LatencyMs   float64 `json:"latency_ms" yaml:"latency_ms"`
}

// LinkMetrics holds local wireless association state.
type LinkMetrics struct {
	Interface     string  `json:"interface" yaml:"interface"`
	SSID          string  `json:"ssid,omitempty" yaml:"ssid,omitempty"`
	SignalDbm     int     `json:"signal_dbm" yaml:"signal_dbm"`
	TxBitrateMbps float64 `json:"tx_bitrate_mbps" yaml:"tx_bitrate_mbps"`
	RxBitrateMbps float64 `json:"rx_bitrate_mbps" yaml:"rx_bitrate_mbps"`
	TxRetries     int64   `json:"tx_retries" yaml:"tx_retries"`
	TxFailed      int64   `json:"tx_failed" yaml:"tx_failed"`
}

// Outcome is the result of one (Target, ProbeSpec) execution. Exactly one of
// the metric pointers matching Kind is set, except when Status is
// StatusUnsupported, in which case all metrics are absent.
type Outcome struct {
	Kind      ProbeKind    `json:"kind" yaml:"kind"`
	Target    string       `json:"target" yaml:"target"`
	Status    Status       `json:"status" yaml:"status"`
	ICMP      *ICMPMetrics `json:"icmp,omitempty" yaml:"icmp,omitempty"`
	ARP       *ARPMetrics  `json:"arp,omitempty" yaml:"arp,omitempty"`
	TCP       *TCPMetrics  `json:"tcp,omitempty" yaml:"tcp,omitempty"`
	DNS       *DNSMetrics  `json:"dns,omitempty" yaml:"dns,omitempty"`
	TLS       *TLSMetrics  `json:"tls,omitempty" yaml:"tls,omitempty"`
	Link      *LinkMetrics `json:"link,omitempty" yaml:"link,omitempty"`
	Diag      string       `json:"diag,omitempty" yaml:"diag,omitempty"`
	StartedAt time.Time    `json:"started_at" yaml:"started_at"`
	EndedAt   time.Time    `json:"ended_at" yaml:"ended_at"`
}

// EnsureMetrics attaches the zero-valued metric set for the outcome's kind,
// preserving the invariant that SUCCESS/FAILURE/TIMEOUT outcomes always carry
// their kind-specific metrics.
func (o *Outcome) EnsureMetrics() {
	switch o.Kind {
	case KindICMP:
		if o.ICMP == nil {
			o.ICMP = &ICMPMetrics{}
		}
	case KindARP:
		if o.ARP == nil {
			o.ARP = &ARPMetrics{}
		}
	case KindTCP:
		if o.TCP == nil {
			o.TCP = &TCPMetrics{Ports: map[int]PortState{}}
		}
	case KindDNS:
		if o.DNS == nil {
			o.DNS = &DNSMetrics{}
		}
	case KindTLS:
		if o.TLS == nil {
			o.TLS = &TLSMetrics{}
		}
	case KindLink:
		if o.Link == nil {
			o.Link = &LinkMetrics{}
		}
	}
}

// Summary holds run-level counts for quick triage.
type Summary struct {
	Total       int `json:"total" yaml:"total"`
	Succeeded   int `json:"succeeded" yaml:"succeeded"`
	Failed      int `json:"failed" yaml:"failed"`
	TimedOut    int `json:"timed_out" yaml:"timed_out"`
	Unsupported int `json:"unsupported" yaml:"unsupported"`
}

// TargetReport groups one target's outcomes in execution order.
type TargetReport struct {
	Target   Target    `json:"target" yaml:"target"`
	Outcomes []Outcome `json:"outcomes" yaml:"outcomes"`
}

// RunMeta describes the run itself.
type RunMeta struct {
	RunID     string    `json:"run_id" yaml:"run_id"`
	StartedAt time.Time `json:"started_at" yaml:"started_at"`
	Host      string    `json:"host" yaml:"host"`
	Kernel    string    `json:"kernel,omitempty" yaml:"kernel,omitempty"`
}

// Report is the complete result of one run: every requested (target, spec)
// pair appears exactly once, even on total failure.
type Report struct {
	Meta    RunMeta        `json:"meta" yaml:"meta"`
	Specs   []ProbeSpec    `json:"specs" yaml:"specs"`
	Targets []TargetReport `json:"targets" yaml:"targets"`
	Summary Summary        `json:"summary" yaml:"summary"`
}

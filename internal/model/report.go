package model

import "time"

// ClassRates are per-second rates for one traffic class over the current
// detection window.
type ClassRates struct {
	TotalPPS   float64 `json:"total_pps"`
	UDPPPS     float64 `json:"udp_pps"`
	SYNPPS     float64 `json:"syn_pps"`
	ICMPPPS    float64 `json:"icmp_pps"`
	HTTPPPS    float64 `json:"http_pps"`
	DNSPPS     float64 `json:"dns_pps"`
	NTPPPS     float64 `json:"ntp_pps"`
	PureACKPPS float64 `json:"pure_ack_pps"`
	FragPPS    float64 `json:"frag_pps"`
	Gbps       float64 `json:"gbps"`
}

// WindowRates is the detection engine input: current-window rates split by
// traffic class, plus how much of the window has elapsed.
type WindowRates struct {
	WindowSec float64    `json:"window_sec"`
	Baseline  ClassRates `json:"baseline"`
	Attack    ClassRates `json:"attack"`
}

// DetectionCounts are cumulative detection events per rule since start.
type DetectionCounts map[RuleID]uint64

// HeavyHitter is a best-effort top-K entry from the merged sketch. Collisions
// can misattribute addresses; reporting only.
type HeavyHitter struct {
	Addr  uint32 `json:"addr"`
	IP    string `json:"ip"`
	Count uint64 `json:"count"`
}

// Report is the periodic structured record handed to writers. All fields are
// coordinator-owned snapshots; writers must not retain references past Write.
type Report struct {
	WindowStart    time.Time `json:"window_start"`
	WindowDuration float64   `json:"window_duration_sec"`

	// Cumulative counters aggregated across workers.
	TotalPackets    uint64 `json:"total_packets"`
	TotalBytes      uint64 `json:"total_bytes"`
	BaselinePackets uint64 `json:"baseline_packets"`
	BaselineBytes   uint64 `json:"baseline_bytes"`
	AttackPackets   uint64 `json:"attack_packets"`
	AttackBytes     uint64 `json:"attack_bytes"`
	TCPPackets      uint64 `json:"tcp_packets"`
	UDPPackets      uint64 `json:"udp_packets"`
	ICMPPackets     uint64 `json:"icmp_packets"`
	OtherPackets    uint64 `json:"other_packets"`
	SYNPackets      uint64 `json:"syn_packets"`
	SYNACKPackets   uint64 `json:"syn_ack_packets"`
	PureACKPackets  uint64 `json:"pure_ack_packets"`
	RSTPackets      uint64 `json:"rst_packets"`
	FINPackets      uint64 `json:"fin_packets"`
	HTTPRequests    uint64 `json:"http_requests"`
	DNSQueries      uint64 `json:"dns_queries"`
	NTPQueries      uint64 `json:"ntp_queries"`
	FragPackets     uint64 `json:"frag_packets"`
	SmallPackets    uint64 `json:"small_packets"`

	Rates WindowRates `json:"rates"`

	// Approximate cardinalities from the merged estimators.
	UniqueSrcAddrs uint64 `json:"unique_src_addrs"`
	UniqueDstPorts uint64 `json:"unique_dst_ports"`

	// Sketch bookkeeping.
	SketchUpdates    uint64        `json:"sketch_updates"`
	SketchSampleRate int           `json:"sketch_sample_rate"`
	HeavyHitters     []HeavyHitter `json:"heavy_hitters,omitempty"`

	Detections DetectionCounts `json:"detections"`
	Alert      AlertState      `json:"alert"`

	// Resource diagnostics.
	BurstsTotal    uint64  `json:"bursts_total"`
	BurstsEmpty    uint64  `json:"bursts_empty"`
	EmptyBurstPct  float64 `json:"empty_burst_pct"`
	TrackedSources int     `json:"tracked_sources"`
	TableExhausted uint64  `json:"table_exhausted"`
	ThroughputGbps float64 `json:"throughput_gbps"`
}

package model

import (
	"fmt"
	"time"
)

// AlertLevel is rewritten wholesale by the coordinator on every detection
// cycle; it is read-only everywhere else.
type AlertLevel uint8

const (
	AlertNone AlertLevel = iota
	AlertLow
	AlertMedium
	AlertHigh
)

func (l AlertLevel) String() string {
	switch l {
	case AlertLow:
		return "LOW"
	case AlertMedium:
		return "MEDIUM"
	case AlertHigh:
		return "HIGH"
	default:
		return "NONE"
	}
}

// RuleID identifies a detection rule.
type RuleID string

const (
	RuleUDPFlood    RuleID = "udp_flood"
	RuleSYNFlood    RuleID = "syn_flood"
	RuleICMPFlood   RuleID = "icmp_flood"
	RuleHTTPFlood   RuleID = "http_flood"
	RuleDNSAmp      RuleID = "dns_amplification"
	RuleNTPAmp      RuleID = "ntp_amplification"
	RuleACKFlood    RuleID = "ack_flood"
	RuleFragAbuse   RuleID = "frag_abuse"
	RulePacketFlood RuleID = "packet_flood"
	RuleMultiVector RuleID = "multi_vector"
)

var ruleDisplay = map[RuleID]string{
	RuleUDPFlood:    "UDP FLOOD",
	RuleSYNFlood:    "SYN FLOOD",
	RuleICMPFlood:   "ICMP FLOOD",
	RuleHTTPFlood:   "HTTP FLOOD",
	RuleDNSAmp:      "DNS AMPLIFICATION",
	RuleNTPAmp:      "NTP AMPLIFICATION",
	RuleACKFlood:    "ACK FLOOD",
	RuleFragAbuse:   "FRAGMENTATION ABUSE",
	RulePacketFlood: "PACKET FLOOD",
	RuleMultiVector: "MULTI-VECTOR ATTACK",
}

// Reason is one triggered rule with the rate that breached its threshold.
// String rendering is a presentation concern; the tuple owns the data.
type Reason struct {
	Rule     RuleID       `json:"rule"`
	Class    TrafficClass `json:"class"`
	Level    AlertLevel   `json:"level"`
	Rate     float64      `json:"rate_pps"`
	Thresh   float64      `json:"threshold_pps"`
}

func (r Reason) String() string {
	return fmt.Sprintf("%s detected: %.0f pps from %s class (threshold %.0f)",
		ruleDisplay[r.Rule], r.Rate, r.Class, r.Thresh)
}

// LatencyStats tracks detection-latency bookkeeping across the process
// lifetime. First detection is measured from the first packet classified as
// attack-origin; later detections record inter-detection latency.
type LatencyStats struct {
	Triggered             bool      `json:"triggered"`
	FirstDetectionAt      time.Time `json:"first_detection_at,omitzero"`
	FirstLatencyMs        float64   `json:"first_latency_ms"`
	PacketsUntilDetection uint64    `json:"packets_until_detection"`
	BytesUntilDetection   uint64    `json:"bytes_until_detection"`

	TotalEvents uint64  `json:"total_events"`
	MinMs       float64 `json:"min_ms"`
	MaxMs       float64 `json:"max_ms"`
	SumMs       float64 `json:"sum_ms"`

	// Fixed-bucket histogram of inter-detection latency.
	Under20ms uint64 `json:"under_20ms"`
	Ms20to30  uint64 `json:"ms_20_30"`
	Ms30to40  uint64 `json:"ms_30_40"`
	Ms40to50  uint64 `json:"ms_40_50"`
	Over50ms  uint64 `json:"over_50ms"`
}

// AvgMs returns the running average inter-detection latency.
func (s *LatencyStats) AvgMs() float64 {
	if s.TotalEvents == 0 {
		return 0
	}
	return s.SumMs / float64(s.TotalEvents)
}

// AlertState is the detection outcome of one coordinator cycle.
type AlertState struct {
	Level   AlertLevel   `json:"level"`
	Reasons []Reason     `json:"reasons"`
	At      time.Time    `json:"at"`
	Latency LatencyStats `json:"latency"`
}

package model

import (
	"net"
	"testing"
)

func TestAddrConversionRoundTrip(t *testing.T) {
	for _, s := range []string{"0.0.0.0", "10.1.2.3", "172.16.0.5", "255.255.255.255"} {
		ip := net.ParseIP(s)
		if got := AddrToIP(IPToAddr(ip)).String(); got != s {
			t.Errorf("round trip of %s gave %s", s, got)
		}
	}
	if IPToAddr(net.ParseIP("::1")) != 0 {
		t.Error("IPv6 address should convert to 0")
	}
}

func TestTCPFlagPredicates(t *testing.T) {
	cases := []struct {
		flags                uint8
		syn, synack, pureACK bool
	}{
		{TCPFlagSYN, true, false, false},
		{TCPFlagSYN | TCPFlagACK, true, true, false},
		{TCPFlagACK, false, false, true},
		{TCPFlagACK | TCPFlagFIN, false, false, false},
		{TCPFlagRST, false, false, false},
	}
	for _, tc := range cases {
		c := Classification{Proto: ProtoTCP, TCPFlags: tc.flags}
		if c.SYN() != tc.syn || c.SYNACK() != tc.synack || c.PureACK() != tc.pureACK {
			t.Errorf("flags %#x: SYN=%v SYNACK=%v PureACK=%v, want %v/%v/%v",
				tc.flags, c.SYN(), c.SYNACK(), c.PureACK(), tc.syn, tc.synack, tc.pureACK)
		}
	}

	// Flag predicates never apply to non-TCP packets.
	udp := Classification{Proto: ProtoUDP, TCPFlags: TCPFlagSYN}
	if udp.SYN() {
		t.Error("SYN() true for a UDP packet")
	}
}

func TestReasonRendering(t *testing.T) {
	r := Reason{
		Rule: RuleUDPFlood, Class: ClassAttack,
		Level: AlertHigh, Rate: 6000, Thresh: 5000,
	}
	want := "UDP FLOOD detected: 6000 pps from attack class (threshold 5000)"
	if got := r.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestLatencyAverage(t *testing.T) {
	var s LatencyStats
	if s.AvgMs() != 0 {
		t.Error("AvgMs on empty stats should be 0")
	}
	s.TotalEvents = 4
	s.SumMs = 100
	if got := s.AvgMs(); got != 25 {
		t.Errorf("AvgMs = %v, want 25", got)
	}
}

package model

import (
	"encoding/binary"
	"net"
	"time"
)

// PacketView is a minimal descriptor of one received frame. Data points into
// buffers owned by the I/O layer and is only valid until the next burst.
type PacketView struct {
	Data      []byte
	Length    int
	Timestamp time.Time
}

// TrafficClass partitions source addresses by configured network prefix.
type TrafficClass uint8

const (
	ClassOther TrafficClass = iota
	ClassBaseline
	ClassAttack
)

func (c TrafficClass) String() string {
	switch c {
	case ClassBaseline:
		return "baseline"
	case ClassAttack:
		return "attack"
	default:
		return "other"
	}
}

// AppHint is a cheap port-number heuristic, not payload inspection.
type AppHint uint8

const (
	AppNone AppHint = iota
	AppHTTP
	AppDNS
	AppNTP
)

func (a AppHint) String() string {
	switch a {
	case AppHTTP:
		return "http"
	case AppDNS:
		return "dns"
	case AppNTP:
		return "ntp"
	default:
		return "none"
	}
}

// IP protocol numbers seen on the fast path.
const (
	ProtoICMP uint8 = 1
	ProtoTCP  uint8 = 6
	ProtoUDP  uint8 = 17
)

// TCP flag bits as they appear on the wire.
const (
	TCPFlagFIN uint8 = 1 << 0
	TCPFlagSYN uint8 = 1 << 1
	TCPFlagRST uint8 = 1 << 2
	TCPFlagACK uint8 = 1 << 4
)

// Classification is the per-packet record produced by the protocol classifier.
// It is ephemeral: consumed by the worker that created it, never retained.
type Classification struct {
	SrcAddr    uint32 // IPv4, host byte order
	DstAddr    uint32
	Proto      uint8
	TCPFlags   uint8
	SrcPort    uint16
	DstPort    uint16
	Length     int
	Fragmented bool
	App        AppHint
	Class      TrafficClass
}

// SYN reports a SYN with or without ACK.
func (c *Classification) SYN() bool {
	return c.Proto == ProtoTCP && c.TCPFlags&TCPFlagSYN != 0
}

// SYNACK reports SYN+ACK.
func (c *Classification) SYNACK() bool {
	return c.Proto == ProtoTCP && c.TCPFlags&(TCPFlagSYN|TCPFlagACK) == TCPFlagSYN|TCPFlagACK
}

// PureACK reports ACK with no other flag set, the signature of ACK floods.
func (c *Classification) PureACK() bool {
	return c.Proto == ProtoTCP && c.TCPFlags&(TCPFlagSYN|TCPFlagACK|TCPFlagFIN|TCPFlagRST) == TCPFlagACK
}

// AddrToIP converts a host-order IPv4 address back to net.IP for presentation.
func AddrToIP(addr uint32) net.IP {
	ip := make(net.IP, 4)
	binary.BigEndian.PutUint32(ip, addr)
	return ip
}

// IPToAddr converts an IPv4 net.IP to host byte order. Returns 0 for non-IPv4.
func IPToAddr(ip net.IP) uint32 {
	v4 := ip.To4()
	if v4 == nil {
		return 0
	}
	return binary.BigEndian.Uint32(v4)
}

package protocol

import (
	"FloodSight/internal/config"
	"FloodSight/internal/model"
	"errors"
	"fmt"
	"net"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// ErrUnparseable marks frames the fast path rejects: non-Ethernet/IPv4 or
// truncated headers. Callers count these as "other" and drop them.
var ErrUnparseable = errors.New("unparseable packet")

const (
	portHTTP = 80
	portDNS  = 53
	portNTP  = 123
)

// prefix is a pre-masked IPv4 network for host-order matching.
type prefix struct {
	network uint32
	mask    uint32
}

func parsePrefixes(cidrs []string) ([]prefix, error) {
	out := make([]prefix, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("invalid network prefix %q: %w", cidr, err)
		}
		v4 := ipnet.IP.To4()
		if v4 == nil {
			return nil, fmt.Errorf("network prefix %q is not IPv4", cidr)
		}
		out = append(out, prefix{
			network: model.IPToAddr(v4),
			mask:    model.IPToAddr(net.IP(ipnet.Mask)),
		})
	}
	return out, nil
}

func match(addr uint32, prefixes []prefix) bool {
	for _, p := range prefixes {
		if addr&p.mask == p.network {
			return true
		}
	}
	return false
}

// Classifier decodes Ethernet/IPv4/TCP/UDP/ICMP headers from a raw byte view
// and fills a Classification record. It is NOT safe for concurrent use: the
// decoding layers are reused across calls, so each worker owns one instance.
type Classifier struct {
	eth     layers.Ethernet
	ip4     layers.IPv4
	tcp     layers.TCP
	udp     layers.UDP
	icmp    layers.ICMPv4
	payload gopacket.Payload

	parser  *gopacket.DecodingLayerParser
	decoded []gopacket.LayerType

	baseline []prefix
	attack   []prefix
}

// NewClassifier builds a classifier with the configured class prefixes.
func NewClassifier(cfg config.ClassifierConfig) (*Classifier, error) {
	c := &Classifier{decoded: make([]gopacket.LayerType, 0, 8)}

	var err error
	if c.baseline, err = parsePrefixes(cfg.BaselineCIDRs); err != nil {
		return nil, err
	}
	if c.attack, err = parsePrefixes(cfg.AttackCIDRs); err != nil {
		return nil, err
	}

	c.parser = gopacket.NewDecodingLayerParser(layers.LayerTypeEthernet,
		&c.eth, &c.ip4, &c.tcp, &c.udp, &c.icmp, &c.payload)
	c.parser.IgnoreUnsupported = true
	return c, nil
}

// Classify parses one frame into rec. Returns ErrUnparseable for frames the
// engine does not measure (non-IPv4, truncated). rec holds no references into
// data after return.
func (c *Classifier) Classify(data []byte, length int, rec *model.Classification) error {
	// Reject non-IPv4 before handing the frame to the layer parser: the
	// EtherType sits at a fixed offset and this is the hottest branch.
	if len(data) < 34 || data[12] != 0x08 || data[13] != 0x00 {
		return ErrUnparseable
	}

	err := c.parser.DecodeLayers(data, &c.decoded)
	ipSeen := false
	for _, lt := range c.decoded {
		if lt == layers.LayerTypeIPv4 {
			ipSeen = true
			break
		}
	}
	if !ipSeen {
		return ErrUnparseable
	}
	// A decode error past the IP layer (e.g. a non-first fragment whose
	// payload is not a valid transport header) still yields a usable record.
	_ = err

	*rec = model.Classification{
		SrcAddr:    model.IPToAddr(c.ip4.SrcIP),
		DstAddr:    model.IPToAddr(c.ip4.DstIP),
		Proto:      uint8(c.ip4.Protocol),
		Length:     length,
		Fragmented: c.ip4.Flags&layers.IPv4MoreFragments != 0 || c.ip4.FragOffset > 0,
	}

	if rec.Fragmented {
		// The layer parser stops at fragments, so the first fragment's
		// transport header is read straight from the IP payload. Later
		// fragments carry none; their ports stay zero.
		if c.ip4.FragOffset == 0 {
			c.parseFragmentHeader(rec)
		}
	} else {
		for _, lt := range c.decoded {
			switch lt {
			case layers.LayerTypeTCP:
				rec.SrcPort = uint16(c.tcp.SrcPort)
				rec.DstPort = uint16(c.tcp.DstPort)
				rec.TCPFlags = tcpFlags(&c.tcp)
			case layers.LayerTypeUDP:
				rec.SrcPort = uint16(c.udp.SrcPort)
				rec.DstPort = uint16(c.udp.DstPort)
			}
		}
	}
	rec.App = appHint(rec.Proto, rec.SrcPort, rec.DstPort)

	rec.Class = c.classOf(rec.SrcAddr)
	return nil
}

// parseFragmentHeader extracts ports (and TCP flags) from the raw payload of a
// first fragment.
func (c *Classifier) parseFragmentHeader(rec *model.Classification) {
	p := c.ip4.Payload
	if rec.Proto != model.ProtoTCP && rec.Proto != model.ProtoUDP {
		return
	}
	if len(p) < 4 {
		return
	}
	rec.SrcPort = uint16(p[0])<<8 | uint16(p[1])
	rec.DstPort = uint16(p[2])<<8 | uint16(p[3])
	if rec.Proto == model.ProtoTCP && len(p) >= 14 {
		rec.TCPFlags = p[13] & (model.TCPFlagFIN | model.TCPFlagSYN |
			model.TCPFlagRST | model.TCPFlagACK)
	}
}

// appHint maps well-known ports to an application class. A port heuristic,
// not payload inspection.
func appHint(proto uint8, srcPort, dstPort uint16) model.AppHint {
	switch proto {
	case model.ProtoTCP:
		if dstPort == portHTTP {
			return model.AppHTTP
		}
	case model.ProtoUDP:
		switch {
		case dstPort == portDNS || srcPort == portDNS:
			return model.AppDNS
		case dstPort == portNTP || srcPort == portNTP:
			return model.AppNTP
		}
	}
	return model.AppNone
}

// classOf maps a source address to its configured traffic class.
func (c *Classifier) classOf(addr uint32) model.TrafficClass {
	if match(addr, c.attack) {
		return model.ClassAttack
	}
	if match(addr, c.baseline) {
		return model.ClassBaseline
	}
	return model.ClassOther
}

func tcpFlags(tcp *layers.TCP) uint8 {
	var f uint8
	if tcp.FIN {
		f |= model.TCPFlagFIN
	}
	if tcp.SYN {
		f |= model.TCPFlagSYN
	}
	if tcp.RST {
		f |= model.TCPFlagRST
	}
	if tcp.ACK {
		f |= model.TCPFlagACK
	}
	return f
}

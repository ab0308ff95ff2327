package protocol

import (
	"net"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"FloodSight/internal/config"
	"FloodSight/internal/model"
)

func testClassifier(t *testing.T) *Classifier {
	t.Helper()
	c, err := NewClassifier(config.ClassifierConfig{
		BaselineCIDRs: []string{"10.0.0.0/8"},
		AttackCIDRs:   []string{"172.16.0.0/12"},
	})
	if err != nil {
		t.Fatalf("NewClassifier failed: %v", err)
	}
	return c
}

var (
	srcMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x02, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, ip *layers.IPv4, transport gopacket.SerializableLayer) []byte {
	t.Helper()
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}

	var err error
	if transport != nil {
		err = gopacket.SerializeLayers(buf, opts, eth, ip, transport, gopacket.Payload([]byte("payload")))
	} else {
		err = gopacket.SerializeLayers(buf, opts, eth, ip, gopacket.Payload([]byte("payload")))
	}
	if err != nil {
		t.Fatalf("SerializeLayers failed: %v", err)
	}
	return buf.Bytes()
}

func tcpFrame(t *testing.T, src, dst string, dstPort uint16, syn, ack bool) []byte {
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolTCP,
		SrcIP: net.ParseIP(src), DstIP: net.ParseIP(dst),
	}
	tcp := &layers.TCP{SrcPort: 40000, DstPort: layers.TCPPort(dstPort), SYN: syn, ACK: ack, Window: 1024}
	tcp.SetNetworkLayerForChecksum(ip)
	return serialize(t, ip, tcp)
}

func udpFrame(t *testing.T, src, dst string, srcPort, dstPort uint16) []byte {
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.ParseIP(src), DstIP: net.ParseIP(dst),
	}
	udp := &layers.UDP{SrcPort: layers.UDPPort(srcPort), DstPort: layers.UDPPort(dstPort)}
	udp.SetNetworkLayerForChecksum(ip)
	return serialize(t, ip, udp)
}

func TestClassifySYNToHTTP(t *testing.T) {
	c := testClassifier(t)
	frame := tcpFrame(t, "172.16.0.5", "192.168.1.1", 80, true, false)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}

	if rec.Proto != model.ProtoTCP {
		t.Errorf("Proto = %d, want TCP", rec.Proto)
	}
	if !rec.SYN() || rec.SYNACK() {
		t.Errorf("flags = %#x, want bare SYN", rec.TCPFlags)
	}
	if rec.App != model.AppHTTP {
		t.Errorf("App = %v, want http", rec.App)
	}
	if rec.Class != model.ClassAttack {
		t.Errorf("Class = %v, want attack for 172.16.0.5", rec.Class)
	}
	if rec.DstPort != 80 {
		t.Errorf("DstPort = %d, want 80", rec.DstPort)
	}
	if rec.SrcAddr != 0xac100005 {
		t.Errorf("SrcAddr = %#x, want 0xac100005", rec.SrcAddr)
	}
}

func TestClassifyDNSQuery(t *testing.T) {
	c := testClassifier(t)
	frame := udpFrame(t, "10.1.2.3", "192.168.1.1", 40000, 53)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if rec.Proto != model.ProtoUDP || rec.App != model.AppDNS {
		t.Errorf("Proto=%d App=%v, want UDP dns", rec.Proto, rec.App)
	}
	if rec.Class != model.ClassBaseline {
		t.Errorf("Class = %v, want baseline for 10.1.2.3", rec.Class)
	}
}

func TestClassifyNTPBySourcePort(t *testing.T) {
	c := testClassifier(t)
	// Amplification responses arrive FROM port 123.
	frame := udpFrame(t, "172.16.9.9", "192.168.1.1", 123, 40000)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if rec.App != model.AppNTP {
		t.Errorf("App = %v, want ntp", rec.App)
	}
}

func TestClassifyPureACK(t *testing.T) {
	c := testClassifier(t)
	frame := tcpFrame(t, "172.16.0.5", "192.168.1.1", 443, false, true)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !rec.PureACK() {
		t.Errorf("flags = %#x, want pure ACK", rec.TCPFlags)
	}
	if rec.App != model.AppNone {
		t.Errorf("App = %v, want none for port 443", rec.App)
	}
}

func TestClassifyICMP(t *testing.T) {
	c := testClassifier(t)
	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolICMPv4,
		SrcIP: net.ParseIP("172.16.0.5"), DstIP: net.ParseIP("192.168.1.1"),
	}
	icmp := &layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0)}
	frame := serialize(t, ip, icmp)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if rec.Proto != model.ProtoICMP {
		t.Errorf("Proto = %d, want ICMP", rec.Proto)
	}
	if rec.SrcPort != 0 || rec.DstPort != 0 {
		t.Errorf("ports = %d/%d, want 0/0 for ICMP", rec.SrcPort, rec.DstPort)
	}
}

func TestClassifyFragment(t *testing.T) {
	c := testClassifier(t)

	ip := &layers.IPv4{
		Version: 4, TTL: 64, Protocol: layers.IPProtocolUDP,
		SrcIP: net.ParseIP("172.16.0.5"), DstIP: net.ParseIP("192.168.1.1"),
		Flags: layers.IPv4MoreFragments,
	}
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	udp.SetNetworkLayerForChecksum(ip)
	frame := serialize(t, ip, udp)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if !rec.Fragmented {
		t.Error("first fragment not marked Fragmented")
	}
	// The first fragment still carries the transport header.
	if rec.DstPort != 53 {
		t.Errorf("DstPort = %d, want 53 on the first fragment", rec.DstPort)
	}

	// A later fragment has no transport header; ports must stay zero.
	ip.FragOffset = 185
	frame = serialize(t, ip, nil)
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed on non-first fragment: %v", err)
	}
	if !rec.Fragmented {
		t.Error("non-first fragment not marked Fragmented")
	}
	if rec.SrcPort != 0 || rec.DstPort != 0 {
		t.Errorf("ports = %d/%d on a non-first fragment, want 0/0", rec.SrcPort, rec.DstPort)
	}
}

func TestClassifyRejectsNonIPv4(t *testing.T) {
	c := testClassifier(t)
	var rec model.Classification

	if err := c.Classify([]byte{1, 2, 3}, 3, &rec); err != ErrUnparseable {
		t.Errorf("short frame: err = %v, want ErrUnparseable", err)
	}

	// ARP frame: valid Ethernet, wrong EtherType.
	eth := &layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeARP}
	arp := &layers.ARP{
		AddrType: layers.LinkTypeEthernet, Protocol: layers.EthernetTypeIPv4,
		HwAddressSize: 6, ProtAddressSize: 4, Operation: layers.ARPRequest,
		SourceHwAddress: srcMAC, SourceProtAddress: []byte{10, 0, 0, 1},
		DstHwAddress: make([]byte, 6), DstProtAddress: []byte{10, 0, 0, 2},
	}
	buf := gopacket.NewSerializeBuffer()
	if err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{FixLengths: true},
		eth, arp, gopacket.Payload(make([]byte, 32))); err != nil {
		t.Fatalf("SerializeLayers failed: %v", err)
	}
	frame := buf.Bytes()
	if err := c.Classify(frame, len(frame), &rec); err != ErrUnparseable {
		t.Errorf("ARP frame: err = %v, want ErrUnparseable", err)
	}
}

func TestClassOfUnlistedSourceIsOther(t *testing.T) {
	c := testClassifier(t)
	frame := udpFrame(t, "8.8.8.8", "192.168.1.1", 40000, 9999)

	var rec model.Classification
	if err := c.Classify(frame, len(frame), &rec); err != nil {
		t.Fatalf("Classify failed: %v", err)
	}
	if rec.Class != model.ClassOther {
		t.Errorf("Class = %v, want other for 8.8.8.8", rec.Class)
	}
}

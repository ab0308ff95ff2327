package worker

import (
	"sync/atomic"

	"FloodSight/internal/engine/protocol"
	"FloodSight/internal/engine/sketch"
	"FloodSight/internal/engine/stats"
	"FloodSight/internal/model"
)

// Stats are cumulative per-worker counters. Each instance has exactly one
// writer (its worker, once per batch) and one reader (the coordinator, which
// tolerates reading a batch behind). Padded so adjacent workers never share a
// cache line.
type Stats struct {
	TotalPackets uint64
	TotalBytes   uint64

	BaselinePackets uint64
	BaselineBytes   uint64
	AttackPackets   uint64
	AttackBytes     uint64
	OtherPackets    uint64 // unparseable or unclassified origin

	TCPPackets  uint64
	UDPPackets  uint64
	ICMPPackets uint64

	SYNPackets     uint64
	SYNACKPackets  uint64
	PureACKPackets uint64
	RSTPackets     uint64
	FINPackets     uint64

	HTTPRequests uint64
	DNSQueries   uint64
	NTPQueries   uint64

	FragPackets  uint64
	SmallPackets uint64

	BurstsTotal uint64
	BurstsEmpty uint64

	_ [64]byte
}

// Add folds o into s. Used by the worker to flush batch-local counters and by
// the coordinator to aggregate across workers.
func (s *Stats) Add(o *Stats) {
	s.TotalPackets += o.TotalPackets
	s.TotalBytes += o.TotalBytes
	s.BaselinePackets += o.BaselinePackets
	s.BaselineBytes += o.BaselineBytes
	s.AttackPackets += o.AttackPackets
	s.AttackBytes += o.AttackBytes
	s.OtherPackets += o.OtherPackets
	s.TCPPackets += o.TCPPackets
	s.UDPPackets += o.UDPPackets
	s.ICMPPackets += o.ICMPPackets
	s.SYNPackets += o.SYNPackets
	s.SYNACKPackets += o.SYNACKPackets
	s.PureACKPackets += o.PureACKPackets
	s.RSTPackets += o.RSTPackets
	s.FINPackets += o.FINPackets
	s.HTTPRequests += o.HTTPRequests
	s.DNSQueries += o.DNSQueries
	s.NTPQueries += o.NTPQueries
	s.FragPackets += o.FragPackets
	s.SmallPackets += o.SmallPackets
	s.BurstsTotal += o.BurstsTotal
	s.BurstsEmpty += o.BurstsEmpty
}

// ClassWindow holds rotating per-class signal counters for the current
// detection window.
type ClassWindow struct {
	Packets uint64
	Bytes   uint64
	UDP     uint64
	SYN     uint64
	ICMP    uint64
	HTTP    uint64
	DNS     uint64
	NTP     uint64
	PureACK uint64
	Frag    uint64
}

// Add folds o into c.
func (c *ClassWindow) Add(o *ClassWindow) {
	c.Packets += o.Packets
	c.Bytes += o.Bytes
	c.UDP += o.UDP
	c.SYN += o.SYN
	c.ICMP += o.ICMP
	c.HTTP += o.HTTP
	c.DNS += o.DNS
	c.NTP += o.NTP
	c.PureACK += o.PureACK
	c.Frag += o.Frag
}

// Window groups the per-class rotating counters. Written by the worker per
// batch; zeroed only by the coordinator at window rollover, never while a
// detection cycle is reading it.
type Window struct {
	Baseline ClassWindow
	Attack   ClassWindow

	_ [64]byte
}

// Worker pulls bursts from one RX queue, classifies each frame, and folds the
// results into its private sketch engine, the shared statistics table and its
// batch-flushed counters. It never blocks: an empty burst is a counted no-op.
type Worker struct {
	ID int

	source     model.PacketSource
	classifier *protocol.Classifier
	Sketch     *sketch.Engine
	table      *stats.Table

	Stats  Stats
	Window Window

	burst         []model.PacketView
	smallCutoff   int
	sampleRate    int
	sampleCounter uint64

	// firstAttackNanos is shared across workers; set once (CAS from zero) at
	// the first packet classified as attack-origin.
	firstAttackNanos *atomic.Int64
}

// New creates a worker for the given queue.
func New(id int, source model.PacketSource, classifier *protocol.Classifier,
	eng *sketch.Engine, table *stats.Table, burstSize, sampleRate, smallCutoff int,
	firstAttackNanos *atomic.Int64) *Worker {
	if burstSize <= 0 {
		burstSize = 2048
	}
	if sampleRate <= 0 {
		sampleRate = 1
	}
	return &Worker{
		ID:               id,
		source:           source,
		classifier:       classifier,
		Sketch:           eng,
		table:            table,
		burst:            make([]model.PacketView, burstSize),
		smallCutoff:      smallCutoff,
		sampleRate:       sampleRate,
		firstAttackNanos: firstAttackNanos,
	}
}

// Run processes bursts until done is closed. Shutdown is cooperative: the
// flag is polled once per loop iteration.
func (w *Worker) Run(done <-chan struct{}) {
	var rec model.Classification

	for {
		select {
		case <-done:
			return
		default:
		}

		n := w.source.ReceiveBurst(w.ID, w.burst)

		var local Stats
		var window Window
		local.BurstsTotal = 1
		if n == 0 {
			local.BurstsEmpty = 1
			w.Stats.Add(&local)
			continue
		}

		for i := 0; i < n; i++ {
			view := &w.burst[i]
			if err := w.classifier.Classify(view.Data, view.Length, &rec); err != nil {
				local.OtherPackets++
				continue
			}
			w.process(&rec, view, &local, &window)
		}

		// One flush per batch, never per packet: bounds the write frequency
		// into the cache lines the coordinator reads.
		w.Stats.Add(&local)
		w.Window.Baseline.Add(&window.Baseline)
		w.Window.Attack.Add(&window.Attack)
	}
}

func (w *Worker) process(rec *model.Classification, view *model.PacketView, local *Stats, window *Window) {
	local.TotalPackets++
	local.TotalBytes += uint64(rec.Length)
	if rec.Length < w.smallCutoff {
		local.SmallPackets++
	}

	switch rec.Proto {
	case model.ProtoTCP:
		local.TCPPackets++
		if rec.SYN() {
			local.SYNPackets++
			if rec.SYNACK() {
				local.SYNACKPackets++
			}
		} else if rec.PureACK() {
			local.PureACKPackets++
		}
		if rec.TCPFlags&model.TCPFlagRST != 0 {
			local.RSTPackets++
		}
		if rec.TCPFlags&model.TCPFlagFIN != 0 {
			local.FINPackets++
		}
	case model.ProtoUDP:
		local.UDPPackets++
	case model.ProtoICMP:
		local.ICMPPackets++
	}

	switch rec.App {
	case model.AppHTTP:
		local.HTTPRequests++
	case model.AppDNS:
		local.DNSQueries++
	case model.AppNTP:
		local.NTPQueries++
	}

	if rec.Fragmented {
		local.FragPackets++
	}

	// Cardinality estimators are register updates, cheap enough to feed
	// unsampled.
	w.Sketch.ObserveSource(rec.SrcAddr)
	if rec.Proto == model.ProtoTCP || rec.Proto == model.ProtoUDP {
		w.Sketch.ObservePort(rec.DstPort)
	}

	switch rec.Class {
	case model.ClassBaseline:
		local.BaselinePackets++
		local.BaselineBytes += uint64(rec.Length)
		w.fold(&window.Baseline, rec)
		w.recordSource(rec, view)
	case model.ClassAttack:
		local.AttackPackets++
		local.AttackBytes += uint64(rec.Length)
		w.fold(&window.Attack, rec)
		w.recordSource(rec, view)

		if w.firstAttackNanos.Load() == 0 {
			w.firstAttackNanos.CompareAndSwap(0, view.Timestamp.UnixNano())
		}

		// Sketch matrix updates are sampled to bound overhead at extreme
		// packet rates; the weight restores the estimated volume.
		w.sampleCounter++
		if w.sampleCounter%uint64(w.sampleRate) == 0 {
			w.Sketch.Update(rec.SrcAddr, uint64(w.sampleRate))
			w.Sketch.AddBytes(uint64(rec.Length) * uint64(w.sampleRate))
		}
	default:
		local.OtherPackets++
	}
}

func (w *Worker) fold(c *ClassWindow, rec *model.Classification) {
	c.Packets++
	c.Bytes += uint64(rec.Length)
	switch rec.Proto {
	case model.ProtoUDP:
		c.UDP++
	case model.ProtoICMP:
		c.ICMP++
	case model.ProtoTCP:
		if rec.SYN() {
			c.SYN++
		} else if rec.PureACK() {
			c.PureACK++
		}
	}
	switch rec.App {
	case model.AppHTTP:
		c.HTTP++
	case model.AppDNS:
		c.DNS++
	case model.AppNTP:
		c.NTP++
	}
	if rec.Fragmented {
		c.Frag++
	}
}

// recordSource updates the per-source table. Capacity exhaustion degrades
// per-source precision; aggregate and sketch measurement continue.
func (w *Worker) recordSource(rec *model.Classification, view *model.PacketView) {
	entry, ok := w.table.GetOrCreate(rec.SrcAddr)
	if !ok {
		return
	}
	entry.Record(rec)
	entry.LastSeenNanos = view.Timestamp.UnixNano()
}

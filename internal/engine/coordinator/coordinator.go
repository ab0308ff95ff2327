package coordinator

import (
	"log"
	"sync"
	"sync/atomic"
	"time"

	"FloodSight/internal/config"
	"FloodSight/internal/engine/detect"
	"FloodSight/internal/engine/sketch"
	"FloodSight/internal/engine/stats"
	"FloodSight/internal/engine/worker"
	"FloodSight/internal/metrics"
	"FloodSight/internal/model"
)

// AlertSink receives alert state snapshots when a detection cycle fires.
// Publishing failures are logged, never fatal.
type AlertSink interface {
	PublishAlert(state *model.AlertState) error
}

// Coordinator is the single thread that aggregates worker state on a fixed
// cadence, runs the detection engine, maintains alert and latency state, and
// rolls the measurement window. It reads worker-owned memory without locks,
// tolerating one batch of staleness, and resets rotating worker state only
// between windows.
type Coordinator struct {
	workers  []*worker.Worker
	detector *detect.Engine
	table    *stats.Table
	merged   *sketch.Engine

	fastInterval time.Duration
	windowLen    time.Duration
	minFraction  float64
	sampleRate   int
	topK         int

	firstAttackNanos *atomic.Int64
	startTime        time.Time
	windowStart      time.Time

	sink AlertSink

	mu         sync.RWMutex
	alert      model.AlertState
	lastRates  model.WindowRates
	detections model.DetectionCounts
	lastDetect time.Time
}

// New wires a coordinator over the given workers. firstAttackNanos is the
// shared timestamp the workers set on the first attack-origin packet.
func New(cfg *config.Config, workers []*worker.Worker, table *stats.Table,
	firstAttackNanos *atomic.Int64, sink AlertSink) (*Coordinator, error) {

	fast, err := time.ParseDuration(cfg.Detection.FastInterval)
	if err != nil {
		return nil, err
	}
	window, err := time.ParseDuration(cfg.Detection.WindowLength)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Coordinator{
		workers:          workers,
		detector:         detect.New(cfg.Detection),
		table:            table,
		merged:           sketch.New(cfg.Sketch),
		fastInterval:     fast,
		windowLen:        window,
		minFraction:      cfg.Detection.MinWindowFraction,
		sampleRate:       cfg.Sketch.SampleRate,
		topK:             cfg.Sketch.TopK,
		firstAttackNanos: firstAttackNanos,
		startTime:        now,
		windowStart:      now,
		sink:             sink,
		detections:       make(model.DetectionCounts),
	}, nil
}

// Run executes detection cycles on the fast cadence until done is closed.
func (c *Coordinator) Run(done <-chan struct{}) {
	ticker := time.NewTicker(c.fastInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Cycle(time.Now())
		case <-done:
			return
		}
	}
}

// Cycle runs one fast-detection evaluation at the given instant. Exported so
// tests can drive the cadence deterministically.
func (c *Coordinator) Cycle(now time.Time) {
	c.mu.RLock()
	windowStart := c.windowStart
	c.mu.RUnlock()
	windowSec := now.Sub(windowStart).Seconds()

	// Rates are not meaningful until a minimum fraction of the window has
	// elapsed; the alert state is still rewritten (to NONE) each cycle.
	if windowSec < c.minFraction*c.windowLen.Seconds() {
		c.mu.Lock()
		c.alert.Level = model.AlertNone
		c.alert.Reasons = nil
		c.alert.At = now
		c.mu.Unlock()
		return
	}

	var baseline, attack worker.ClassWindow
	for _, w := range c.workers {
		baseline.Add(&w.Window.Baseline)
		attack.Add(&w.Window.Attack)
	}

	rates := model.WindowRates{
		WindowSec: windowSec,
		Baseline:  classRates(&baseline, windowSec),
		Attack:    classRates(&attack, windowSec),
	}

	level, reasons := c.detector.Evaluate(&rates)

	c.mu.Lock()
	c.lastRates = rates
	c.alert.Level = level
	c.alert.Reasons = reasons
	c.alert.At = now
	for _, r := range reasons {
		c.detections[r.Rule]++
		metrics.DetectionEvents.WithLabelValues(string(r.Rule)).Inc()
	}
	if len(reasons) > 0 {
		c.recordDetection(now)
	}
	alertCopy := c.alert
	c.mu.Unlock()

	metrics.AlertLevel.Set(float64(level))

	if len(reasons) > 0 && c.sink != nil {
		if err := c.sink.PublishAlert(&alertCopy); err != nil {
			log.Printf("Failed to publish alert: %v", err)
		}
	}

	// Merging the per-worker sketches is the slow path; only worth it while
	// attack-class traffic is present. The merged engine is read by report
	// builders on other goroutines, so the rewrite happens under the mutex.
	if attack.Packets > 0 {
		engines := make([]*sketch.Engine, len(c.workers))
		for i, w := range c.workers {
			engines[i] = w.Sketch
		}
		c.mu.Lock()
		err := sketch.Merge(c.merged, engines)
		c.mu.Unlock()
		if err != nil {
			log.Printf("Sketch merge failed: %v", err)
		}
	}

	if windowSec >= c.windowLen.Seconds() {
		c.Rollover(now)
	}
}

// recordDetection updates latency bookkeeping. Caller holds c.mu.
func (c *Coordinator) recordDetection(now time.Time) {
	l := &c.alert.Latency
	l.TotalEvents++

	if !l.Triggered {
		l.Triggered = true
		l.FirstDetectionAt = now

		if first := c.firstAttackNanos.Load(); first > 0 {
			l.FirstLatencyMs = float64(now.UnixNano()-first) / 1e6
		}
		var total worker.Stats
		for _, w := range c.workers {
			total.Add(&w.Stats)
		}
		l.PacketsUntilDetection = total.TotalPackets
		l.BytesUntilDetection = total.TotalBytes

		l.MinMs = l.FirstLatencyMs
		l.MaxMs = l.FirstLatencyMs
		l.SumMs = l.FirstLatencyMs
		metrics.DetectionLatency.Observe(l.FirstLatencyMs / 1e3)
	} else {
		interMs := float64(now.Sub(c.lastDetect)) / float64(time.Millisecond)
		if interMs < l.MinMs {
			l.MinMs = interMs
		}
		if interMs > l.MaxMs {
			l.MaxMs = interMs
		}
		l.SumMs += interMs

		switch {
		case interMs < 20:
			l.Under20ms++
		case interMs < 30:
			l.Ms20to30++
		case interMs < 40:
			l.Ms30to40++
		case interMs < 50:
			l.Ms40to50++
		default:
			l.Over50ms++
		}
		metrics.DetectionLatency.Observe(interMs / 1e3)
	}

	c.lastDetect = now
}

// Rollover starts a new detection window: rotating worker counters, the
// per-source window counters and the per-worker sketches are cleared. The
// table itself, cumulative stats and latency metrics persist.
func (c *Coordinator) Rollover(now time.Time) {
	c.mu.Lock()
	c.windowStart = now
	c.mu.Unlock()
	for _, w := range c.workers {
		w.Window.Baseline = worker.ClassWindow{}
		w.Window.Attack = worker.ClassWindow{}
		w.Sketch.Reset()
	}
	c.table.ResetWindow()
}

func classRates(w *worker.ClassWindow, windowSec float64) model.ClassRates {
	if windowSec <= 0 {
		return model.ClassRates{}
	}
	return model.ClassRates{
		TotalPPS:   float64(w.Packets) / windowSec,
		UDPPPS:     float64(w.UDP) / windowSec,
		SYNPPS:     float64(w.SYN) / windowSec,
		ICMPPPS:    float64(w.ICMP) / windowSec,
		HTTPPPS:    float64(w.HTTP) / windowSec,
		DNSPPS:     float64(w.DNS) / windowSec,
		NTPPPS:     float64(w.NTP) / windowSec,
		PureACKPPS: float64(w.PureACK) / windowSec,
		FragPPS:    float64(w.Frag) / windowSec,
		Gbps:       float64(w.Bytes) * 8 / (windowSec * 1e9),
	}
}

// Alert returns the current alert state.
func (c *Coordinator) Alert() model.AlertState {
	c.mu.RLock()
	defer c.mu.RUnlock()
	a := c.alert
	a.Reasons = append([]model.Reason(nil), c.alert.Reasons...)
	return a
}

// BuildReport assembles the periodic structured record from coordinator-owned
// state and the latest worker aggregates.
func (c *Coordinator) BuildReport(now time.Time) *model.Report {
	var total worker.Stats
	for _, w := range c.workers {
		total.Add(&w.Stats)
	}

	// The merged sketch and window start are rewritten by detection cycles;
	// all of them are snapshotted under the same read lock.
	c.mu.RLock()
	rates := c.lastRates
	alert := c.alert
	alert.Reasons = append([]model.Reason(nil), c.alert.Reasons...)
	detections := make(model.DetectionCounts, len(c.detections))
	for k, v := range c.detections {
		detections[k] = v
	}
	windowStart := c.windowStart
	uniqueSrc := c.merged.SourceCardinality()
	uniquePorts := c.merged.PortCardinality()
	sketchUpdates := c.merged.TotalUpdates()
	heavyHitters := c.merged.TopK(c.topK)
	c.mu.RUnlock()

	r := &model.Report{
		WindowStart:    windowStart,
		WindowDuration: now.Sub(windowStart).Seconds(),

		TotalPackets:    total.TotalPackets,
		TotalBytes:      total.TotalBytes,
		BaselinePackets: total.BaselinePackets,
		BaselineBytes:   total.BaselineBytes,
		AttackPackets:   total.AttackPackets,
		AttackBytes:     total.AttackBytes,
		TCPPackets:      total.TCPPackets,
		UDPPackets:      total.UDPPackets,
		ICMPPackets:     total.ICMPPackets,
		OtherPackets:    total.OtherPackets,
		SYNPackets:      total.SYNPackets,
		SYNACKPackets:   total.SYNACKPackets,
		PureACKPackets:  total.PureACKPackets,
		RSTPackets:      total.RSTPackets,
		FINPackets:      total.FINPackets,
		HTTPRequests:    total.HTTPRequests,
		DNSQueries:      total.DNSQueries,
		NTPQueries:      total.NTPQueries,
		FragPackets:     total.FragPackets,
		SmallPackets:    total.SmallPackets,

		Rates: rates,

		UniqueSrcAddrs: uniqueSrc,
		UniqueDstPorts: uniquePorts,

		SketchUpdates:    sketchUpdates,
		SketchSampleRate: c.sampleRate,
		HeavyHitters:     heavyHitters,

		Detections: detections,
		Alert:      alert,

		BurstsTotal:    total.BurstsTotal,
		BurstsEmpty:    total.BurstsEmpty,
		TrackedSources: c.table.Len(),
		TableExhausted: c.table.Exhausted(),
	}
	if r.BurstsTotal > 0 {
		r.EmptyBurstPct = float64(r.BurstsEmpty) * 100 / float64(r.BurstsTotal)
	}
	if elapsed := now.Sub(c.startTime).Seconds(); elapsed > 0.001 {
		r.ThroughputGbps = float64(r.TotalBytes) * 8 / (elapsed * 1e9)
	}

	metrics.PacketsTotal.WithLabelValues("baseline").Set(float64(r.BaselinePackets))
	metrics.PacketsTotal.WithLabelValues("attack").Set(float64(r.AttackPackets))
	metrics.PacketsTotal.WithLabelValues("other").Set(float64(r.OtherPackets))
	metrics.BytesTotal.WithLabelValues("baseline").Set(float64(r.BaselineBytes))
	metrics.BytesTotal.WithLabelValues("attack").Set(float64(r.AttackBytes))
	metrics.ProtocolPackets.WithLabelValues("tcp").Set(float64(r.TCPPackets))
	metrics.ProtocolPackets.WithLabelValues("udp").Set(float64(r.UDPPackets))
	metrics.ProtocolPackets.WithLabelValues("icmp").Set(float64(r.ICMPPackets))
	metrics.TrackedSources.Set(float64(r.TrackedSources))
	metrics.TableExhausted.Set(float64(r.TableExhausted))

	return r
}

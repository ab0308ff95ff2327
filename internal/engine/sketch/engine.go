package sketch

import (
	"FloodSight/internal/config"
	"FloodSight/internal/engine/sketch/statistic"
	"FloodSight/internal/model"
	"slices"
)

// hhSlots sizes the auxiliary per-address counter array used for Top-K
// extraction. Collisions overwrite the stored address, which can misattribute
// a count; heavy hitters are reporting output, never a detection input.
const hhSlots = 65536

type hhSlot struct {
	addr  uint32
	count uint64
}

// Engine bundles the approximate-counting structures one worker owns: a
// Count-Min matrix keyed by source address, cardinality estimators for source
// addresses and destination ports, a membership filter, and monotone totals.
// Zero sharing on the hot path: one Engine per worker, merged by the
// coordinator at low frequency.
type Engine struct {
	cm       *statistic.CountMin
	srcCard  *statistic.HyperLogLog
	portCard *statistic.HyperLogLog
	seen     *statistic.Bloom
	hh       []hhSlot

	updates uint64
	bytes   uint64
}

// New creates an engine from the sketch configuration. All engines built from
// the same configuration share hash seeds and therefore merge element-wise.
func New(cfg config.SketchConfig) *Engine {
	return &Engine{
		cm:       statistic.NewCountMin(cfg.Rows, cfg.Cols),
		srcCard:  statistic.NewHyperLogLog(cfg.HLLPrecision),
		portCard: statistic.NewHyperLogLog(cfg.HLLPrecision),
		seen:     statistic.NewBloom(cfg.BloomBits, cfg.BloomHashes),
		hh:       make([]hhSlot, hhSlots),
	}
}

// Update counts weight packets for key (a source address). weight carries the
// sampling factor when updates are sampled.
func (e *Engine) Update(key uint32, weight uint64) {
	e.cm.Update(key, weight)
	e.seen.Add(key)

	idx := statistic.HashWord(key, 0x5bd1e995) % hhSlots
	e.hh[idx].addr = key
	e.hh[idx].count += weight

	e.updates += weight
}

// AddBytes accumulates the byte total alongside sampled packet updates.
func (e *Engine) AddBytes(n uint64) {
	e.bytes += n
}

// ObserveSource feeds the source-address cardinality estimator. Called for
// every measured packet, unsampled: a register update is cheap.
func (e *Engine) ObserveSource(addr uint32) {
	e.srcCard.Add(addr)
}

// ObservePort feeds the destination-port cardinality estimator.
func (e *Engine) ObservePort(port uint16) {
	e.portCard.Add(uint32(port))
}

// Query returns the minimum-across-rows estimate for key, an over-estimate of
// the cumulative weight.
func (e *Engine) Query(key uint32) uint64 {
	return e.cm.Query(key)
}

// Seen reports whether addr may have been updated into this engine.
func (e *Engine) Seen(addr uint32) bool {
	return e.seen.Contains(addr)
}

// SourceCardinality estimates the number of distinct source addresses.
func (e *Engine) SourceCardinality() uint64 {
	return e.srcCard.Estimate()
}

// PortCardinality estimates the number of distinct destination ports.
func (e *Engine) PortCardinality() uint64 {
	return e.portCard.Estimate()
}

// TotalUpdates returns the monotone update total (sampling factor included).
func (e *Engine) TotalUpdates() uint64 {
	return e.updates
}

// TotalBytes returns the monotone byte total.
func (e *Engine) TotalBytes() uint64 {
	return e.bytes
}

// Merge resets dst and element-wise sums every source engine into it. Only
// the coordinator calls this, and only against engines it may read (workers
// keep writing; brief staleness is tolerated instead of locking).
func Merge(dst *Engine, sources []*Engine) error {
	dst.Reset()
	for _, src := range sources {
		if err := dst.cm.Merge(src.cm); err != nil {
			return err
		}
		if err := dst.srcCard.Merge(src.srcCard); err != nil {
			return err
		}
		if err := dst.portCard.Merge(src.portCard); err != nil {
			return err
		}
		if err := dst.seen.Merge(src.seen); err != nil {
			return err
		}
		for i := range src.hh {
			if src.hh[i].count == 0 {
				continue
			}
			dst.hh[i].addr = src.hh[i].addr
			dst.hh[i].count += src.hh[i].count
		}
		dst.updates += src.updates
		dst.bytes += src.bytes
	}
	return nil
}

// TopK extracts the k largest entries of the auxiliary counter array,
// descending. Best-effort: collisions may misattribute addresses.
func (e *Engine) TopK(k int) []model.HeavyHitter {
	out := make([]model.HeavyHitter, 0, k)
	for i := range e.hh {
		if e.hh[i].count == 0 {
			continue
		}
		out = append(out, model.HeavyHitter{
			Addr:  e.hh[i].addr,
			IP:    model.AddrToIP(e.hh[i].addr).String(),
			Count: e.hh[i].count,
		})
	}
	slices.SortFunc(out, func(a, b model.HeavyHitter) int {
		switch {
		case b.Count > a.Count:
			return 1
		case b.Count < a.Count:
			return -1
		default:
			return 0
		}
	})
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// Reset zeroes every structure. Called only between detection windows, never
// concurrently with in-flight updates on the same instance.
func (e *Engine) Reset() {
	e.cm.Reset()
	e.srcCard.Reset()
	e.portCard.Reset()
	e.seen.Reset()
	for i := range e.hh {
		e.hh[i] = hhSlot{}
	}
	e.updates = 0
	e.bytes = 0
}

// MemoryBytes reports the fixed footprint of all structures; it does not vary
// with the number of distinct keys observed.
func (e *Engine) MemoryBytes() int {
	return e.cm.MemoryBytes() + e.srcCard.MemoryBytes() +
		e.portCard.MemoryBytes() + e.seen.MemoryBytes() + len(e.hh)*16
}

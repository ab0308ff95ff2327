package stats

import (
	"sync"
	"sync/atomic"

	"FloodSight/internal/engine/sketch/statistic"
	"FloodSight/internal/model"
)

const (
	defaultCapacity = 65536
	defaultShards   = 256

	indexSeed = 0x1b873593
)

// Entry holds exact counters for one source address. The address is immutable
// once inserted. Counters are plain (non-atomic) because RSS guarantees every
// packet of a given source lands on the same worker: each entry has exactly
// one writer. Counters reset at detection-window rollover; the entry itself
// persists for the process lifetime.
type Entry struct {
	Addr uint32

	TotalPackets uint64
	TCPPackets   uint64
	UDPPackets   uint64
	ICMPPackets  uint64

	SYNPackets     uint64
	SYNACKPackets  uint64
	PureACKPackets uint64

	HTTPRequests uint64
	DNSQueries   uint64
	NTPQueries   uint64

	FragPackets uint64
	BytesIn     uint64

	LastSeenNanos int64
	Active        bool
}

// Record folds one classification into the entry.
func (e *Entry) Record(rec *model.Classification) {
	e.TotalPackets++
	e.BytesIn += uint64(rec.Length)

	switch rec.Proto {
	case model.ProtoTCP:
		e.TCPPackets++
		if rec.SYN() {
			e.SYNPackets++
			if rec.SYNACK() {
				e.SYNACKPackets++
			}
		} else if rec.PureACK() {
			e.PureACKPackets++
		}
	case model.ProtoUDP:
		e.UDPPackets++
	case model.ProtoICMP:
		e.ICMPPackets++
	}

	switch rec.App {
	case model.AppHTTP:
		e.HTTPRequests++
	case model.AppDNS:
		e.DNSQueries++
	case model.AppNTP:
		e.NTPQueries++
	}

	if rec.Fragmented {
		e.FragPackets++
	}
}

// resetWindow zeroes the rotating counters, keeping identity and liveness.
func (e *Entry) resetWindow() {
	addr, last, active := e.Addr, e.LastSeenNanos, e.Active
	*e = Entry{Addr: addr, LastSeenNanos: last, Active: active}
}

type shard struct {
	mu    sync.RWMutex
	index map[uint32]uint32 // addr -> slot in the entry array
}

// Table is the per-source statistics table: a fixed-capacity entry array plus
// a sharded hash index. Only the address-to-slot index is genuinely shared
// across workers and needs concurrent-safe insert-or-lookup; the entries
// themselves are single-writer by RSS partitioning. Insertion beyond capacity
// fails without evicting: a capacity bound, not a cache.
type Table struct {
	entries   []Entry
	count     atomic.Uint32
	exhausted atomic.Uint64

	shards    []shard
	shardMask uint32
}

// NewTable creates a table with the given capacity and index shard count.
// numShards must be a power of two; zeros fall back to 65536 / 256.
func NewTable(capacity, numShards uint32) *Table {
	if capacity == 0 {
		capacity = defaultCapacity
	}
	if numShards == 0 || numShards&(numShards-1) != 0 {
		numShards = defaultShards
	}
	t := &Table{
		entries:   make([]Entry, capacity),
		shards:    make([]shard, numShards),
		shardMask: numShards - 1,
	}
	for i := range t.shards {
		t.shards[i].index = make(map[uint32]uint32)
	}
	return t
}

func (t *Table) shardOf(addr uint32) *shard {
	return &t.shards[statistic.HashWord(addr, indexSeed)&t.shardMask]
}

// GetOrCreate returns a stable reference to the entry for addr, creating one
// if absent and table space remains. ok is false on capacity exhaustion;
// detection continues on aggregate and sketch data in that case.
func (t *Table) GetOrCreate(addr uint32) (entry *Entry, ok bool) {
	s := t.shardOf(addr)

	s.mu.RLock()
	slot, found := s.index[addr]
	s.mu.RUnlock()
	if found {
		return &t.entries[slot], true
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if slot, found = s.index[addr]; found {
		return &t.entries[slot], true
	}

	slot = t.count.Add(1) - 1
	if slot >= uint32(len(t.entries)) {
		t.count.Store(uint32(len(t.entries)))
		t.exhausted.Add(1)
		return nil, false
	}

	e := &t.entries[slot]
	e.Addr = addr
	e.Active = true
	s.index[addr] = slot
	return e, true
}

// Lookup returns the entry for addr or nil.
func (t *Table) Lookup(addr uint32) *Entry {
	s := t.shardOf(addr)
	s.mu.RLock()
	slot, found := s.index[addr]
	s.mu.RUnlock()
	if !found {
		return nil
	}
	return &t.entries[slot]
}

// Len reports how many addresses are tracked.
func (t *Table) Len() int {
	n := t.count.Load()
	if n > uint32(len(t.entries)) {
		n = uint32(len(t.entries))
	}
	return int(n)
}

// Exhausted reports how many insertions failed on a full table.
func (t *Table) Exhausted() uint64 {
	return t.exhausted.Load()
}

// ResetWindow zeroes the rotating counters of every tracked entry. Called
// only by the coordinator between detection windows.
func (t *Table) ResetWindow() {
	n := t.Len()
	for i := 0; i < n; i++ {
		t.entries[i].resetWindow()
	}
}

// ForEach visits every tracked entry in insertion order.
func (t *Table) ForEach(fn func(e *Entry)) {
	n := t.Len()
	for i := 0; i < n; i++ {
		fn(&t.entries[i])
	}
}

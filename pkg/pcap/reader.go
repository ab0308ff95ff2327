// Package pcap replays capture files into the engine as a multi-queue packet
// source, for offline analysis and testing.
package pcap

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/google/gopacket/pcap"

	"FloodSight/internal/model"
)

// Replay reads a capture file up front and serves its frames as bursts across
// numQueues queues, partitioned by source address the way hardware RSS would.
// Timestamps come from the capture, so detection windows measured against
// packet time stay faithful to the original trace.
type Replay struct {
	queues [][]model.PacketView

	mu  sync.Mutex
	pos []int
}

// NewReplay loads the capture at filePath into numQueues queues.
func NewReplay(filePath string, numQueues int) (*Replay, error) {
	if numQueues <= 0 {
		return nil, fmt.Errorf("replay needs at least one queue, got %d", numQueues)
	}
	handle, err := pcap.OpenOffline(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open capture %q: %w", filePath, err)
	}
	defer handle.Close()

	r := &Replay{
		queues: make([][]model.PacketView, numQueues),
		pos:    make([]int, numQueues),
	}

	for {
		data, ci, err := handle.ReadPacketData()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read capture %q: %w", filePath, err)
		}
		// The handle reuses its buffer between reads.
		frame := make([]byte, len(data))
		copy(frame, data)

		q := queueOf(frame, numQueues)
		r.queues[q] = append(r.queues[q], model.PacketView{
			Data:      frame,
			Length:    ci.Length,
			Timestamp: ci.Timestamp,
		})
	}
	return r, nil
}

// queueOf partitions by the IPv4 source address at its fixed Ethernet offset.
func queueOf(data []byte, numQueues int) int {
	if len(data) < 30 {
		return 0
	}
	src := binary.BigEndian.Uint32(data[26:30])
	return int(src % uint32(numQueues))
}

// ReceiveBurst serves the next burst from the given queue. Returns 0 once the
// queue is exhausted, which the worker counts as an empty burst.
func (r *Replay) ReceiveBurst(queue int, views []model.PacketView) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	q := r.queues[queue]
	p := r.pos[queue]
	n := copy(views, q[p:])
	r.pos[queue] = p + n
	return n
}

// Queues returns the queue count.
func (r *Replay) Queues() int {
	return len(r.queues)
}

// Exhausted reports whether every queue has been fully served.
func (r *Replay) Exhausted() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, q := range r.queues {
		if r.pos[i] < len(q) {
			return false
		}
	}
	return true
}

// Total returns the number of frames loaded from the capture.
func (r *Replay) Total() int {
	n := 0
	for _, q := range r.queues {
		n += len(q)
	}
	return n
}

// TimeSpan returns the first and last capture timestamps across all queues.
func (r *Replay) TimeSpan() (first, last time.Time) {
	for _, q := range r.queues {
		for i := range q {
			ts := q[i].Timestamp
			if first.IsZero() || ts.Before(first) {
				first = ts
			}
			if ts.After(last) {
				last = ts
			}
		}
	}
	return first, last
}

// Close is a no-op; the capture handle is closed after loading.
func (r *Replay) Close() error {
	return nil
}

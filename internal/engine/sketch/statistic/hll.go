package statistic

import (
	"fmt"
	"math"
	"math/bits"
)

const (
	defaultHLLPrecision = 14
	hllSeed             = 0x9747b28c
)

// HyperLogLog estimates the number of distinct 32-bit keys in constant
// memory (2^precision one-byte registers). Not safe for concurrent use.
type HyperLogLog struct {
	p         uint8
	m         uint32
	registers []uint8
}

// NewHyperLogLog creates an estimator with 2^p registers; p=0 falls back to
// the default precision (14, ~0.8% standard error).
func NewHyperLogLog(p uint8) *HyperLogLog {
	if p == 0 {
		p = defaultHLLPrecision
	}
	m := uint32(1) << p
	return &HyperLogLog{p: p, m: m, registers: make([]uint8, m)}
}

// Add observes one key.
func (h *HyperLogLog) Add(key uint32) {
	hash := HashWord(key, hllSeed)
	idx := hash & (h.m - 1)
	w := hash >> h.p
	// rho: leading-zero count of the remaining bits, one-based.
	rho := uint8(bits.LeadingZeros32(w<<h.p|1<<(h.p-1))) + 1
	if rho > h.registers[idx] {
		h.registers[idx] = rho
	}
}

// Estimate returns the cardinality estimate with the standard small-range
// (linear counting) correction.
func (h *HyperLogLog) Estimate() uint64 {
	m := float64(h.m)
	alpha := 0.7213 / (1 + 1.079/m)

	sum := 0.0
	zeros := 0
	for _, r := range h.registers {
		sum += math.Pow(2, -float64(r))
		if r == 0 {
			zeros++
		}
	}

	estimate := alpha * m * m / sum
	if estimate <= 2.5*m && zeros > 0 {
		estimate = m * math.Log(m/float64(zeros))
	}
	return uint64(estimate)
}

// Merge takes the register-wise maximum, the union of both key sets.
func (h *HyperLogLog) Merge(src *HyperLogLog) error {
	if src.m != h.m {
		return fmt.Errorf("hyperloglog: precision mismatch %d vs %d", h.p, src.p)
	}
	for i, r := range src.registers {
		if r > h.registers[i] {
			h.registers[i] = r
		}
	}
	return nil
}

// Reset clears all registers.
func (h *HyperLogLog) Reset() {
	for i := range h.registers {
		h.registers[i] = 0
	}
}

// MemoryBytes reports the register array footprint.
func (h *HyperLogLog) MemoryBytes() int {
	return len(h.registers)
}

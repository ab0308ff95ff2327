package statistic

import "fmt"

const (
	defaultBloomBits   = 1 << 20
	defaultBloomHashes = 7
)

// Bloom is a fixed-size membership filter over 32-bit keys. False positives
// only; a key once added is always reported present until Reset. Not safe for
// concurrent use.
type Bloom struct {
	bits []uint64
	m    uint32 // number of bits
	k    uint32 // number of hash functions
}

// NewBloom creates a filter with m bits and k hashes; zeros fall back to the
// defaults (1M bits, 7 hashes).
func NewBloom(m, k uint32) *Bloom {
	if m == 0 {
		m = defaultBloomBits
	}
	if k == 0 {
		k = defaultBloomHashes
	}
	return &Bloom{bits: make([]uint64, (m+63)/64), m: m, k: k}
}

// Add marks key as present.
func (b *Bloom) Add(key uint32) {
	for i := uint32(0); i < b.k; i++ {
		pos := HashWord(key, rowSeed(i)) % b.m
		b.bits[pos/64] |= 1 << (pos % 64)
	}
}

// Contains reports whether key may have been added.
func (b *Bloom) Contains(key uint32) bool {
	for i := uint32(0); i < b.k; i++ {
		pos := HashWord(key, rowSeed(i)) % b.m
		if b.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// Merge ORs src into b, the union of both key sets.
func (b *Bloom) Merge(src *Bloom) error {
	if src.m != b.m || src.k != b.k {
		return fmt.Errorf("bloom: parameter mismatch m=%d/k=%d vs m=%d/k=%d", b.m, b.k, src.m, src.k)
	}
	for i, w := range src.bits {
		b.bits[i] |= w
	}
	return nil
}

// Reset clears the filter.
func (b *Bloom) Reset() {
	for i := range b.bits {
		b.bits[i] = 0
	}
}

// MemoryBytes reports the bit array footprint.
func (b *Bloom) MemoryBytes() int {
	return len(b.bits) * 8
}

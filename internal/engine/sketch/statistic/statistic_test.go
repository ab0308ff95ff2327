package statistic

import (
	"testing"
)

func TestHashWordMatchesMurmur(t *testing.T) {
	// The single-word fast path must agree with the general implementation on
	// 4-byte keys, since sketches built from either must merge.
	keys := []uint32{0, 1, 0xdeadbeef, 0xffffffff, 0x0a000001}
	seeds := []uint32{0, 42, 0x9747b28c}
	for _, key := range keys {
		for _, seed := range seeds {
			buf := []byte{byte(key), byte(key >> 8), byte(key >> 16), byte(key >> 24)}
			want := MurmurHash3(buf, seed)
			if got := HashWord(key, seed); got != want {
				t.Errorf("HashWord(%#x, %d) = %#x, MurmurHash3 = %#x", key, seed, got, want)
			}
		}
	}
}

func TestCountMinNeverUnderestimates(t *testing.T) {
	cm := NewCountMin(4, 1024)
	exact := make(map[uint32]uint64)

	// Skewed workload: few heavy keys, many light ones.
	for i := uint32(0); i < 2000; i++ {
		key := i % 50
		if i%7 == 0 {
			key = 1000 + i
		}
		cm.Update(key, 1)
		exact[key]++
	}

	for key, want := range exact {
		got := cm.Query(key)
		if got < want {
			t.Errorf("Query(%d) = %d, below true count %d", key, got, want)
		}
	}
}

func TestCountMinWeightedUpdates(t *testing.T) {
	cm := NewCountMin(8, 4096)
	cm.Update(7, 32)
	cm.Update(7, 32)
	// With one key in an otherwise empty sketch there are no collisions.
	if got := cm.Query(7); got != 64 {
		t.Errorf("Query(7) = %d, want 64", got)
	}
}

func TestCountMinMerge(t *testing.T) {
	a := NewCountMin(4, 1024)
	b := NewCountMin(4, 1024)

	for i := uint32(0); i < 100; i++ {
		a.Update(i, 2)
		b.Update(i, 3)
	}

	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	for i := uint32(0); i < 100; i++ {
		if got := a.Query(i); got < 5 {
			t.Errorf("after merge Query(%d) = %d, want >= 5", i, got)
		}
	}
}

func TestCountMinMergeDimensionMismatch(t *testing.T) {
	a := NewCountMin(4, 1024)
	b := NewCountMin(8, 1024)
	if err := a.Merge(b); err == nil {
		t.Error("expected error merging sketches of different dimensions")
	}
}

func TestCountMinReset(t *testing.T) {
	cm := NewCountMin(4, 1024)
	cm.Update(1, 100)
	cm.Reset()
	if got := cm.Query(1); got != 0 {
		t.Errorf("Query after Reset = %d, want 0", got)
	}
}

func TestCountMinRejectsNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for non power-of-two width")
		}
	}()
	NewCountMin(4, 1000)
}

func TestHyperLogLogSmallRange(t *testing.T) {
	hll := NewHyperLogLog(14)
	for i := uint32(0); i < 10; i++ {
		hll.Add(i)
	}
	got := hll.Estimate()
	if got < 8 || got > 12 {
		t.Errorf("Estimate() = %d for 10 distinct keys, want near 10", got)
	}
}

func TestHyperLogLogAccuracy(t *testing.T) {
	hll := NewHyperLogLog(14)
	const n = 100000
	for i := uint32(0); i < n; i++ {
		hll.Add(i)
		hll.Add(i) // duplicates must not inflate the estimate
	}
	got := float64(hll.Estimate())
	// Standard error at precision 14 is about 0.8%; allow 5%.
	if got < n*0.95 || got > n*1.05 {
		t.Errorf("Estimate() = %.0f for %d distinct keys, outside 5%%", got, n)
	}
}

func TestHyperLogLogMerge(t *testing.T) {
	a := NewHyperLogLog(14)
	b := NewHyperLogLog(14)
	for i := uint32(0); i < 5000; i++ {
		a.Add(i)
		b.Add(i + 5000)
	}
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	got := float64(a.Estimate())
	if got < 10000*0.95 || got > 10000*1.05 {
		t.Errorf("merged Estimate() = %.0f, want near 10000", got)
	}
}

func TestBloomMembership(t *testing.T) {
	b := NewBloom(1<<20, 7)
	for i := uint32(0); i < 1000; i++ {
		b.Add(i)
	}
	for i := uint32(0); i < 1000; i++ {
		if !b.Contains(i) {
			t.Fatalf("Contains(%d) = false for an added key", i)
		}
	}

	// False positives exist but must be rare at this load factor.
	fp := 0
	for i := uint32(100000); i < 110000; i++ {
		if b.Contains(i) {
			fp++
		}
	}
	if fp > 100 {
		t.Errorf("%d false positives out of 10000 probes", fp)
	}
}

func TestBloomMerge(t *testing.T) {
	a := NewBloom(1<<20, 7)
	b := NewBloom(1<<20, 7)
	a.Add(1)
	b.Add(2)
	if err := a.Merge(b); err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if !a.Contains(1) || !a.Contains(2) {
		t.Error("merged filter lost membership")
	}
}

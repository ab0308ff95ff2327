package statistic

import "fmt"

const (
	defaultRows = 8
	defaultCols = 4096
)

// CountMin is a fixed-size matrix of rows x cols counters. Updates touch one
// bucket per row via independent hash functions; queries take the minimum
// across rows, a monotone over-estimate of the true count. Memory is constant
// regardless of how many distinct keys are observed.
//
// A CountMin instance is not safe for concurrent use; the engine gives each
// worker its own and merges them on the coordinator.
type CountMin struct {
	rows, cols uint32
	mask       uint32
	seeds      []uint32
	table      [][]uint64
}

// NewCountMin creates a sketch. cols must be a power of two; zero values fall
// back to the defaults (8 x 4096).
func NewCountMin(rows, cols uint32) *CountMin {
	if rows == 0 {
		rows = defaultRows
	}
	if cols == 0 {
		cols = defaultCols
	}
	if cols&(cols-1) != 0 {
		panic(fmt.Sprintf("countmin: cols must be a power of two, got %d", cols))
	}

	seeds := make([]uint32, rows)
	for i := range seeds {
		seeds[i] = rowSeed(uint32(i))
	}

	table := make([][]uint64, rows)
	for i := range table {
		table[i] = make([]uint64, cols)
	}

	return &CountMin{
		rows:  rows,
		cols:  cols,
		mask:  cols - 1,
		seeds: seeds,
		table: table,
	}
}

// Update increments one bucket per row by weight.
func (cm *CountMin) Update(key uint32, weight uint64) {
	for i := uint32(0); i < cm.rows; i++ {
		col := HashWord(key, cm.seeds[i]) & cm.mask
		cm.table[i][col] += weight
	}
}

// Query returns the minimum across the rows addressed by key. Collisions can
// only inflate the result, never deflate it.
func (cm *CountMin) Query(key uint32) uint64 {
	min := uint64(1<<64 - 1)
	for i := uint32(0); i < cm.rows; i++ {
		col := HashWord(key, cm.seeds[i]) & cm.mask
		if c := cm.table[i][col]; c < min {
			min = c
		}
	}
	return min
}

// Merge element-wise adds src into cm. Both sketches must share dimensions
// (and therefore, by construction, hash seeds).
func (cm *CountMin) Merge(src *CountMin) error {
	if src.rows != cm.rows || src.cols != cm.cols {
		return fmt.Errorf("countmin: dimension mismatch %dx%d vs %dx%d",
			cm.rows, cm.cols, src.rows, src.cols)
	}
	for i := uint32(0); i < cm.rows; i++ {
		dst, s := cm.table[i], src.table[i]
		for j := range dst {
			dst[j] += s[j]
		}
	}
	return nil
}

// Reset zeroes all counters. Never call concurrently with Update.
func (cm *CountMin) Reset() {
	for i := range cm.table {
		row := cm.table[i]
		for j := range row {
			row[j] = 0
		}
	}
}

// MemoryBytes reports the counter matrix footprint.
func (cm *CountMin) MemoryBytes() int {
	return int(cm.rows) * int(cm.cols) * 8
}

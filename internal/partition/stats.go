package partition

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/arkilian/vecgen/internal/bloom"
	"github.com/arkilian/vecgen/pkg/types"
)

// ScalarBloomFPR is the target false positive rate of scalar bloom filters.
const ScalarBloomFPR = 0.01

// StatsTracker accumulates per-file statistics from the batches written to a
// table file: row count, vector element min/max, lexicographic scalar min/max
// and a bloom filter over the scalar column.
type StatsTracker struct {
	rowCount int64

	hasVector bool
	minVector float32
	maxVector float32

	hasScalar bool
	minScalar string
	maxScalar string

	scalars *bloom.Filter
}

// NewStatsTracker creates a tracker whose bloom filter is sized for
// expectedRows scalars.
func NewStatsTracker(expectedRows int64) *StatsTracker {
	return &StatsTracker{
		scalars: bloom.NewForRows(expectedRows, ScalarBloomFPR),
	}
}

// Update folds one batch into the statistics.
func (s *StatsTracker) Update(rec arrow.Record) error {
	vectors, ok := rec.Column(0).(*array.Binary)
	if !ok {
		return fmt.Errorf("stats: column %q is %s, want binary", types.VectorColumn, rec.Column(0).DataType())
	}
	scalars, ok := rec.Column(1).(*array.String)
	if !ok {
		return fmt.Errorf("stats: column %q is %s, want utf8", types.ScalarColumn, rec.Column(1).DataType())
	}

	for i := 0; i < vectors.Len(); i++ {
		s.updateVector(vectors.Value(i))
	}
	for i := 0; i < scalars.Len(); i++ {
		s.updateScalar(scalars.Value(i))
	}
	s.rowCount += rec.NumRows()
	return nil
}

func (s *StatsTracker) updateVector(b []byte) {
	for off := 0; off+4 <= len(b); off += 4 {
		v := math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
		if !s.hasVector {
			s.minVector, s.maxVector, s.hasVector = v, v, true
			continue
		}
		if v < s.minVector {
			s.minVector = v
		}
		if v > s.maxVector {
			s.maxVector = v
		}
	}
}

func (s *StatsTracker) updateScalar(v string) {
	s.scalars.AddString(v)
	if !s.hasScalar {
		// Value() aliases the record buffer, which is released after the write.
		c := strings.Clone(v)
		s.minScalar, s.maxScalar, s.hasScalar = c, c, true
		return
	}
	if v < s.minScalar {
		s.minScalar = strings.Clone(v)
	}
	if v > s.maxScalar {
		s.maxScalar = strings.Clone(v)
	}
}

// RowCount returns the number of rows seen.
func (s *StatsTracker) RowCount() int64 {
	return s.rowCount
}

// FileStats returns the value statistics, or nil when no rows were seen.
func (s *StatsTracker) FileStats() *types.FileStats {
	if s.rowCount == 0 {
		return nil
	}
	return &types.FileStats{
		MinVectorValue: s.minVector,
		MaxVectorValue: s.maxVector,
		MinScalar:      s.minScalar,
		MaxScalar:      s.maxScalar,
	}
}

// ScalarFilter returns the bloom filter built over the scalar column.
func (s *StatsTracker) ScalarFilter() *bloom.Filter {
	return s.scalars
}

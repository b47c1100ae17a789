package partition

import "github.com/arkilian/vecgen/pkg/types"

// Per-value bookkeeping assumed on top of the payload bytes of the two
// variable-length columns. The estimate is taken before compression and is
// never corrected from measured file sizes.
const (
	BinaryOverheadBytes = 8
	StringOverheadBytes = 8
)

// SizeEstimator converts a target file size into a per-file row cap.
type SizeEstimator struct {
	binaryOverhead int64
	stringOverhead int64
}

// NewSizeEstimator returns the estimator used by the writers.
func NewSizeEstimator() *SizeEstimator {
	return &SizeEstimator{
		binaryOverhead: BinaryOverheadBytes,
		stringOverhead: StringOverheadBytes,
	}
}

// BytesPerRow is (dim*4 + binary overhead) + (scalar_len + string overhead).
func (e *SizeEstimator) BytesPerRow(cfg types.GenerationConfig) int64 {
	vector := int64(cfg.VectorDim)*4 + e.binaryOverhead
	scalar := int64(cfg.ScalarLen) + e.stringOverhead
	return vector + scalar
}

// EstimateRowsPerFile returns floor(target / bytes_per_row), never less than 1.
func (e *SizeEstimator) EstimateRowsPerFile(cfg types.GenerationConfig) int64 {
	bpr := e.BytesPerRow(cfg)
	if bpr <= 0 {
		return 1
	}
	rows := cfg.TargetFileSize / bpr
	if rows < 1 {
		return 1
	}
	return rows
}

// EstimateRowsPerFile is a shorthand for NewSizeEstimator().EstimateRowsPerFile.
func EstimateRowsPerFile(cfg types.GenerationConfig) int64 {
	return NewSizeEstimator().EstimateRowsPerFile(cfg)
}

// PlanFiles splits total rows into per-file quotas of perFile rows. Every
// quota is at least 1 and at most perFile, only the last may be smaller, and
// the quotas sum to total. A non-positive total yields no files.
func PlanFiles(total, perFile int64) []int64 {
	if total <= 0 {
		return nil
	}
	if perFile < 1 {
		perFile = 1
	}
	n := (total + perFile - 1) / perFile
	plan := make([]int64, 0, n)
	for remaining := total; remaining > 0; {
		q := min(perFile, remaining)
		plan = append(plan, q)
		remaining -= q
	}
	return plan
}

// FileCount returns the number of files PlanFiles would produce.
func FileCount(total, perFile int64) int {
	if total <= 0 {
		return 0
	}
	if perFile < 1 {
		perFile = 1
	}
	return int((total + perFile - 1) / perFile)
}

// FileQuota returns entry i of PlanFiles(total, perFile) without building the
// whole plan. Out-of-range indices yield 0.
func FileQuota(total, perFile int64, i int) int64 {
	if perFile < 1 {
		perFile = 1
	}
	if i < 0 || i >= FileCount(total, perFile) {
		return 0
	}
	return min(perFile, total-int64(i)*perFile)
}

// Package observability provides progress observers for generation runs:
// log lines, a terminal progress bar and in-memory throughput statistics.
package observability

import (
	"sort"
	"sync"
	"time"

	"github.com/arkilian/vecgen/pkg/types"
)

// RunStats accumulates per-file throughput for a run. It implements
// partition.Observer and is safe for concurrent use.
type RunStats struct {
	mu      sync.RWMutex
	files   []FileStat
	summary *types.RunSummary
}

// FileStat is the throughput record of one file.
type FileStat struct {
	FileIndex     int
	Rows          int64
	SizeBytes     int64
	Elapsed       time.Duration
	RowsPerSecond float64
	BytesPerRow   float64
}

// Totals aggregates the files seen so far.
type Totals struct {
	Files         int
	Rows          int64
	Bytes         int64
	Busy          time.Duration
	RowsPerSecond float64
	BytesPerRow   float64
}

// NewRunStats creates an empty tracker.
func NewRunStats() *RunStats {
	return &RunStats{}
}

// FileWritten records a closed file.
func (s *RunStats) FileWritten(r types.FileReport) {
	stat := FileStat{
		FileIndex:     r.FileIndex,
		Rows:          r.Rows,
		SizeBytes:     r.SizeBytes,
		Elapsed:       r.Elapsed,
		RowsPerSecond: r.RowsPerSecond(),
	}
	if r.Rows > 0 {
		stat.BytesPerRow = float64(r.SizeBytes) / float64(r.Rows)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, stat)
}

// RunCompleted records the run summary.
func (s *RunStats) RunCompleted(summary types.RunSummary) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &summary
}

// Summary returns the run summary, or false while the run is in progress.
func (s *RunStats) Summary() (types.RunSummary, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.summary == nil {
		return types.RunSummary{}, false
	}
	return *s.summary, true
}

// Totals returns aggregate counters. Busy is the summed per-file write time,
// which exceeds wall time when files are produced in parallel.
func (s *RunStats) Totals() Totals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var t Totals
	for _, f := range s.files {
		t.Files++
		t.Rows += f.Rows
		t.Bytes += f.SizeBytes
		t.Busy += f.Elapsed
	}
	if t.Busy > 0 {
		t.RowsPerSecond = float64(t.Rows) / t.Busy.Seconds()
	}
	if t.Rows > 0 {
		t.BytesPerRow = float64(t.Bytes) / float64(t.Rows)
	}
	return t
}

// SlowestFiles returns the n files with the lowest row throughput, slowest
// first. The result is a copy.
func (s *RunStats) SlowestFiles(n int) []FileStat {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || len(s.files) == 0 {
		return []FileStat{}
	}
	stats := make([]FileStat, len(s.files))
	copy(stats, s.files)
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].RowsPerSecond < stats[j].RowsPerSecond
	})
	if n > len(stats) {
		n = len(stats)
	}
	return stats[:n]
}

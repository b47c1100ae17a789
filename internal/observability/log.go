package observability

import (
	"fmt"
	"log"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/arkilian/vecgen/pkg/types"
)

// LogObserver writes per-file and summary lines through a standard logger.
type LogObserver struct {
	logger  *log.Logger
	verbose bool
}

// NewLogObserver logs through logger, or the standard logger when nil.
// Per-file lines are only written in verbose mode.
func NewLogObserver(logger *log.Logger, verbose bool) *LogObserver {
	if logger == nil {
		logger = log.Default()
	}
	return &LogObserver{logger: logger, verbose: verbose}
}

// FileWritten logs one closed file.
func (o *LogObserver) FileWritten(r types.FileReport) {
	if !o.verbose {
		return
	}
	o.logger.Printf("vecgen: wrote %s: %s rows in %d batches, %s, %s (%s rows/s)",
		filepath.Base(r.Path), humanize.Comma(r.Rows), r.Batches,
		humanize.Bytes(uint64(r.SizeBytes)), r.Elapsed.Round(time.Millisecond), formatRate(r.RowsPerSecond()))
}

// RunCompleted logs the run summary.
func (o *LogObserver) RunCompleted(s types.RunSummary) {
	rate := 0.0
	if s.Elapsed > 0 {
		rate = float64(s.TotalRows) / s.Elapsed.Seconds()
	}
	o.logger.Printf("vecgen: generated %s rows in %d files (%s, up to %s rows per file) in %s, %s rows/s",
		humanize.Comma(s.TotalRows), s.TotalFiles, humanize.Bytes(uint64(s.TotalBytes)),
		humanize.Comma(s.RowsPerFile), s.Elapsed.Round(time.Millisecond), formatRate(rate))
}

func formatRate(r float64) string {
	if r >= 1000 {
		return humanize.Comma(int64(r))
	}
	return fmt.Sprintf("%.1f", r)
}

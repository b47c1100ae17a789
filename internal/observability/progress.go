package observability

import (
	"io"
	"time"

	"github.com/schollz/progressbar/v3"

	"github.com/arkilian/vecgen/pkg/types"
)

// ProgressObserver renders a row-count progress bar, advanced once per file.
type ProgressObserver struct {
	bar *progressbar.ProgressBar
}

// NewProgressObserver creates a bar for totalRows rows written to w.
func NewProgressObserver(w io.Writer, totalRows int64) *ProgressObserver {
	bar := progressbar.NewOptions64(totalRows,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription("generating"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("rows"),
		progressbar.OptionShowIts(),
		progressbar.OptionSetWidth(30),
		progressbar.OptionThrottle(100*time.Millisecond),
		progressbar.OptionOnCompletion(func() { _, _ = io.WriteString(w, "\n") }),
	)
	return &ProgressObserver{bar: bar}
}

// FileWritten advances the bar by the file's rows.
func (p *ProgressObserver) FileWritten(r types.FileReport) {
	_ = p.bar.Add64(r.Rows)
}

// RunCompleted completes the bar.
func (p *ProgressObserver) RunCompleted(types.RunSummary) {
	_ = p.bar.Finish()
}

// Current returns the number of rows shown as done.
func (p *ProgressObserver) Current() int64 {
	return p.bar.State().CurrentNum
}

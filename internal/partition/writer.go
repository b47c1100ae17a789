// Package partition splits a generation run into size-bounded table files.
// FileSplitWriter drives one file at a time through open, batch writes and
// close; ParallelWriter produces several files at once with identical content.
package partition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

// writerOptions holds settings shared by the sequential and parallel writers.
type writerOptions struct {
	observer  Observer
	committer Committer
	mem       memory.Allocator
	sidecars  bool
	workers   int
}

// Option configures a writer.
type Option func(*writerOptions)

// WithObserver sets the progress observer.
func WithObserver(o Observer) Option {
	return func(w *writerOptions) {
		if o != nil {
			w.observer = o
		}
	}
}

// WithCommitter sets the hook run after each file is closed.
func WithCommitter(c Committer) Option {
	return func(w *writerOptions) { w.committer = c }
}

// WithAllocator sets the Arrow allocator used for batches.
func WithAllocator(mem memory.Allocator) Option {
	return func(w *writerOptions) { w.mem = mem }
}

// WithSidecars enables statistics collection and .meta.json sidecars.
func WithSidecars(enabled bool) Option {
	return func(w *writerOptions) { w.sidecars = enabled }
}

// WithWorkers bounds the number of files the parallel writer produces at once.
func WithWorkers(n int) Option {
	return func(w *writerOptions) { w.workers = n }
}

func buildOptions(opts []Option) writerOptions {
	o := writerOptions{
		observer: NopObserver{},
		mem:      memory.DefaultAllocator,
		workers:  1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.workers < 1 {
		o.workers = 1
	}
	return o
}

// progress is the lock-protected run state shared by both writers.
type progress struct {
	mu    sync.Mutex
	state types.RunState
}

func (p *progress) reset(total int64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = types.RunState{Phase: types.PhaseIdle, Remaining: total}
}

func (p *progress) enter(phase types.Phase, file int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.Phase = phase
	p.state.CurrentFile = file
}

func (p *progress) addRows(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.TotalRowsWritten += int64(n)
	p.state.Remaining -= int64(n)
}

func (p *progress) fileDone() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state.FilesWritten++
}

func (p *progress) snapshot() types.RunState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// FileSplitWriter writes TotalRows rows into consecutive table files of at
// most EstimateRowsPerFile rows each. A writer performs one run.
type FileSplitWriter struct {
	cfg      types.GenerationConfig
	tw       table.TableWriter
	opts     writerOptions
	estimate int64

	progress progress
}

// NewFileSplitWriter creates a sequential writer for cfg.
func NewFileSplitWriter(cfg types.GenerationConfig, tw table.TableWriter, opts ...Option) *FileSplitWriter {
	w := &FileSplitWriter{
		cfg:      cfg,
		tw:       tw,
		opts:     buildOptions(opts),
		estimate: EstimateRowsPerFile(cfg),
	}
	w.progress.reset(cfg.TotalRows)
	return w
}

// RowsPerFile returns the per-file row cap of the run.
func (w *FileSplitWriter) RowsPerFile() int64 {
	return w.estimate
}

// State returns a snapshot of the run progress.
func (w *FileSplitWriter) State() types.RunState {
	return w.progress.snapshot()
}

// Run writes every file and returns the run summary. The context is checked
// before each file is opened; a failure aborts the run leaving the files
// closed so far on disk.
func (w *FileSplitWriter) Run(ctx context.Context) (*types.RunSummary, error) {
	if err := w.cfg.Validate(); err != nil {
		return nil, err
	}
	if w.tw == nil {
		return nil, generrors.NewInternalError("partition: no table writer configured", nil)
	}

	start := time.Now()
	remaining := w.cfg.TotalRows
	w.progress.reset(remaining)

	var (
		index      int
		job        *fileJob
		totalBytes int64
		phase      = types.PhaseOpening
	)

	for phase != types.PhaseDone {
		w.progress.enter(phase, index)

		switch phase {
		case types.PhaseOpening:
			if err := ctx.Err(); err != nil {
				w.progress.enter(types.PhaseFailed, index)
				return nil, fmt.Errorf("partition: run cancelled before file %d: %w", index, err)
			}
			job = newFileJob(w.cfg, index, min(w.estimate, remaining), w.opts.mem, w.opts.sidecars)
			if err := job.open(w.tw); err != nil {
				w.progress.enter(types.PhaseFailed, index)
				return nil, err
			}
			phase = types.PhaseWriting

		case types.PhaseWriting:
			for !job.done() {
				n, err := job.writeBatch()
				if err != nil {
					job.abort()
					w.progress.enter(types.PhaseFailed, index)
					return nil, err
				}
				remaining -= int64(n)
				w.progress.addRows(n)
			}
			phase = types.PhaseClosing

		case types.PhaseClosing:
			report, err := job.close()
			if err != nil {
				w.progress.enter(types.PhaseFailed, index)
				return nil, err
			}
			totalBytes += report.SizeBytes
			w.progress.fileDone()
			w.opts.observer.FileWritten(*report)
			if w.opts.committer != nil {
				if err := w.opts.committer.Commit(ctx, *report); err != nil {
					w.progress.enter(types.PhaseFailed, index)
					return nil, fmt.Errorf("partition: commit file %d: %w", index, err)
				}
			}

			if remaining == 0 {
				phase = types.PhaseDone
			} else {
				index++
				phase = types.PhaseOpening
			}
		}
	}
	w.progress.enter(types.PhaseDone, index)

	summary := types.RunSummary{
		TotalFiles:  index + 1,
		TotalRows:   w.cfg.TotalRows - remaining,
		TotalBytes:  totalBytes,
		Elapsed:     time.Since(start),
		RowsPerFile: w.estimate,
	}
	w.opts.observer.RunCompleted(summary)
	return &summary, nil
}

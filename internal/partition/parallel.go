package partition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

// ParallelWriter produces the files of a run with a bounded number of
// concurrent workers. File i has the same quota and seed as in a sequential
// run, so contents are identical. Closed files are handed to the observer and
// committer strictly in index order.
type ParallelWriter struct {
	cfg      types.GenerationConfig
	tw       table.TableWriter
	opts     writerOptions
	estimate int64

	progress progress
}

// NewParallelWriter creates a parallel writer. The worker count comes from
// WithWorkers, falling back to cfg.Workers.
func NewParallelWriter(cfg types.GenerationConfig, tw table.TableWriter, opts ...Option) *ParallelWriter {
	o := buildOptions(append([]Option{WithWorkers(cfg.Workers)}, opts...))
	w := &ParallelWriter{
		cfg:      cfg,
		tw:       tw,
		opts:     o,
		estimate: EstimateRowsPerFile(cfg),
	}
	w.progress.reset(cfg.TotalRows)
	return w
}

// RowsPerFile returns the per-file row cap of the run.
func (w *ParallelWriter) RowsPerFile() int64 {
	return w.estimate
}

// State returns a snapshot of the run progress. CurrentFile is the next file
// awaiting in-order delivery.
func (w *ParallelWriter) State() types.RunState {
	return w.progress.snapshot()
}

// Run produces all files. The first failure cancels outstanding files;
// already delivered files stay on disk.
func (w *ParallelWriter) Run(ctx context.Context) (*types.RunSummary, error) {
	if err := w.cfg.Validate(); err != nil {
		return nil, err
	}
	if w.tw == nil {
		return nil, generrors.NewInternalError("partition: no table writer configured", nil)
	}

	start := time.Now()
	w.progress.reset(w.cfg.TotalRows)
	w.progress.enter(types.PhaseWriting, 0)

	count := FileCount(w.cfg.TotalRows, w.estimate)
	d := &deliverer{
		observer:  w.opts.observer,
		committer: w.opts.committer,
		progress:  &w.progress,
		pending:   make(map[int]types.FileReport),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.opts.workers)

	for i := 0; i < count; i++ {
		if gctx.Err() != nil {
			break
		}
		quota := FileQuota(w.cfg.TotalRows, w.estimate, i)
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return fmt.Errorf("partition: run cancelled before file %d: %w", i, err)
			}
			job := newFileJob(w.cfg, i, quota, w.opts.mem, w.opts.sidecars)
			report, err := job.run(w.tw, w.progress.addRows)
			if err != nil {
				return err
			}
			return d.deliver(gctx, *report)
		})
	}

	if err := g.Wait(); err != nil {
		w.progress.enter(types.PhaseFailed, d.next)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		w.progress.enter(types.PhaseFailed, d.next)
		return nil, fmt.Errorf("partition: run cancelled: %w", err)
	}
	w.progress.enter(types.PhaseDone, count-1)

	summary := types.RunSummary{
		TotalFiles:  count,
		TotalRows:   d.rows,
		TotalBytes:  d.bytes,
		Elapsed:     time.Since(start),
		RowsPerFile: w.estimate,
	}
	w.opts.observer.RunCompleted(summary)
	return &summary, nil
}

// deliverer buffers out-of-order completions and releases them in index order.
type deliverer struct {
	mu        sync.Mutex
	observer  Observer
	committer Committer
	progress  *progress

	pending map[int]types.FileReport
	next    int
	rows    int64
	bytes   int64
}

func (d *deliverer) deliver(ctx context.Context, report types.FileReport) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.pending[report.FileIndex] = report
	for {
		r, ok := d.pending[d.next]
		if !ok {
			return nil
		}
		delete(d.pending, d.next)

		d.rows += r.Rows
		d.bytes += r.SizeBytes
		d.progress.fileDone()
		d.observer.FileWritten(r)
		if d.committer != nil {
			if err := d.committer.Commit(ctx, r); err != nil {
				return fmt.Errorf("partition: commit file %d: %w", r.FileIndex, err)
			}
		}
		d.next++
		d.progress.enter(types.PhaseWriting, d.next)
	}
}

package partition

import (
	"errors"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/generator"
	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

// fileJob produces one table file: open, a sequence of batch writes, close.
// It is not safe for concurrent use; the parallel writer gives every file its
// own job.
type fileJob struct {
	cfg    types.GenerationConfig
	index  int
	path   string
	seed   uint64
	quota  int64
	needed int64

	gen     *generator.RowGenerator
	asm     *generator.BatchAssembler
	session table.Session
	stats   *StatsTracker

	batches int
	start   time.Time
}

func newFileJob(cfg types.GenerationConfig, index int, quota int64, mem memory.Allocator, sidecars bool) *fileJob {
	seed := types.FileSeed(cfg.Seed, index)
	j := &fileJob{
		cfg:    cfg,
		index:  index,
		path:   filepath.Join(cfg.OutputDir, cfg.FileName(index)),
		seed:   seed,
		quota:  quota,
		needed: quota,
		gen:    generator.NewRowGenerator(seed, cfg.VectorDim, cfg.ScalarLen),
		asm:    generator.NewBatchAssembler(mem),
	}
	if sidecars {
		j.stats = NewStatsTracker(quota)
	}
	return j
}

// open starts the table session.
func (j *fileJob) open(tw table.TableWriter) error {
	j.start = time.Now()
	session, err := tw.Open(j.path, j.asm.Schema(), j.cfg.Compression)
	if err != nil {
		return j.fail(generrors.CodeCreateFailed, "failed to open table file", err)
	}
	j.session = session
	return nil
}

// done reports whether the file quota has been written.
func (j *fileJob) done() bool {
	return j.needed == 0
}

// writeBatch assembles and writes min(batch size, rows still needed) rows and
// returns the row count written.
func (j *fileJob) writeBatch() (int, error) {
	n := int(min(int64(j.cfg.BatchSize), j.needed))
	rec, err := j.asm.Assemble(j.gen, n)
	if err != nil {
		return 0, j.fail(generrors.CodeWriteFailed, "failed to assemble batch", err)
	}
	defer rec.Release()

	if j.stats != nil {
		if err := j.stats.Update(rec); err != nil {
			return 0, j.fail(generrors.CodeWriteFailed, "failed to collect batch statistics", err)
		}
	}
	if err := j.session.Write(rec); err != nil {
		return 0, j.fail(generrors.CodeWriteFailed, "failed to write batch", err)
	}

	j.needed -= int64(n)
	j.batches++
	return n, nil
}

// close finalizes the file, writes its sidecar when enabled and returns the
// report. On failure the table file and any sidecar are removed.
func (j *fileJob) close() (*types.FileReport, error) {
	session := j.session
	j.session = nil
	if err := session.Close(); err != nil {
		j.discard()
		return nil, j.fail(generrors.CodeCloseFailed, "failed to close table file", err)
	}

	info, err := os.Stat(j.path)
	if err != nil {
		j.discard()
		return nil, j.fail(generrors.CodeStatFailed, "failed to stat table file", err)
	}

	report := &types.FileReport{
		FileIndex: j.index,
		Path:      j.path,
		Seed:      j.seed,
		Rows:      j.quota - j.needed,
		Batches:   j.batches,
		Elapsed:   time.Since(j.start),
		SizeBytes: info.Size(),
	}

	if j.stats != nil {
		report.Stats = j.stats.FileStats()
		sidecar, err := NewMetadataSidecar(*report, j.cfg.Compression, j.stats)
		if err != nil {
			j.discard()
			return nil, j.fail(generrors.CodeWriteFailed, "failed to build metadata sidecar", err)
		}
		sidecarPath := MetadataPath(j.path)
		if err := sidecar.WriteToFile(sidecarPath); err != nil {
			j.discard()
			return nil, j.fail(generrors.CodeWriteFailed, "failed to write metadata sidecar", err)
		}
		report.SidecarPath = sidecarPath
	}
	return report, nil
}

// abort closes an open session and removes the incomplete file. Files closed
// earlier in the run are not touched.
func (j *fileJob) abort() {
	if j.session == nil {
		return
	}
	if err := j.session.Close(); err != nil {
		log.Printf("partition: failed to close incomplete file %s: %v", j.path, err)
	}
	j.session = nil
	j.discard()
}

// discard removes the table file and its sidecar.
func (j *fileJob) discard() {
	for _, path := range []string{j.path, MetadataPath(j.path)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.Printf("partition: failed to remove incomplete file %s: %v", path, err)
		}
	}
}

// run executes the whole open/write/close sequence.
func (j *fileJob) run(tw table.TableWriter, onBatch func(rows int)) (*types.FileReport, error) {
	if err := j.open(tw); err != nil {
		return nil, err
	}
	for !j.done() {
		n, err := j.writeBatch()
		if err != nil {
			j.abort()
			return nil, err
		}
		if onBatch != nil {
			onBatch(n)
		}
	}
	return j.close()
}

// fail attaches the file index and path to err. Structured errors keep their
// category and code; anything else becomes an IO error with the given code.
func (j *fileJob) fail(code, message string, err error) error {
	var ge *generrors.GenError
	if errors.As(err, &ge) {
		return ge.WithFile(j.index, j.path)
	}
	return generrors.NewIOError(code, message, err).WithFile(j.index, j.path)
}

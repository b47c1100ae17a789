package partition

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

// testConfig returns a small run: 36 bytes per row, so a target of 900 bytes
// caps files at 25 rows.
func testConfig(t *testing.T, totalRows int64) types.GenerationConfig {
	t.Helper()
	return types.GenerationConfig{
		VectorDim:      4,
		ScalarLen:      4,
		TargetFileSize: 900,
		Compression:    types.CompressionSnappy,
		Seed:           42,
		BatchSize:      10,
		TotalRows:      totalRows,
		OutputDir:      t.TempDir(),
		FilePrefix:     "data",
		Workers:        1,
	}
}

// recordingObserver keeps every notification.
type recordingObserver struct {
	mu        sync.Mutex
	reports   []types.FileReport
	summaries []types.RunSummary
}

func (o *recordingObserver) FileWritten(r types.FileReport) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.reports = append(o.reports, r)
}

func (o *recordingObserver) RunCompleted(s types.RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summaries = append(o.summaries, s)
}

// batchRecorder wraps a real table writer and records batch sizes per path.
type batchRecorder struct {
	inner table.TableWriter

	mu      sync.Mutex
	batches map[string][]int64
}

func newBatchRecorder() *batchRecorder {
	return &batchRecorder{inner: table.NewParquetWriter(), batches: make(map[string][]int64)}
}

func (b *batchRecorder) Open(path string, schema *arrow.Schema, c types.Compression) (table.Session, error) {
	s, err := b.inner.Open(path, schema, c)
	if err != nil {
		return nil, err
	}
	return &recordedSession{Session: s, owner: b}, nil
}

func (b *batchRecorder) sizes(path string) []int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]int64(nil), b.batches[path]...)
}

type recordedSession struct {
	table.Session
	owner *batchRecorder
}

func (s *recordedSession) Write(rec arrow.Record) error {
	s.owner.mu.Lock()
	s.owner.batches[s.Path()] = append(s.owner.batches[s.Path()], rec.NumRows())
	s.owner.mu.Unlock()
	return s.Session.Write(rec)
}

var errDiskFull = errors.New("disk full")

// failingWriter delegates to a real writer but fails opening file failOpen,
// the failWrite-th batch (1-based) of file failWriteFile, or closing file
// failClose after the real session has been closed.
type failingWriter struct {
	inner         table.TableWriter
	failOpen      string
	failWriteFile string
	failWrite     int
	failClose     string
}

func (f *failingWriter) Open(path string, schema *arrow.Schema, c types.Compression) (table.Session, error) {
	if path == f.failOpen {
		return nil, errDiskFull
	}
	s, err := f.inner.Open(path, schema, c)
	if err != nil {
		return nil, err
	}
	if path != f.failWriteFile && path != f.failClose {
		return s, nil
	}
	fs := &failingSession{Session: s, failClose: path == f.failClose}
	if path == f.failWriteFile {
		fs.failAt = f.failWrite
	}
	return fs, nil
}

type failingSession struct {
	table.Session
	writes    int
	failAt    int
	failClose bool
}

func (s *failingSession) Close() error {
	if err := s.Session.Close(); err != nil {
		return err
	}
	if s.failClose {
		return errDiskFull
	}
	return nil
}

func (s *failingSession) Write(rec arrow.Record) error {
	s.writes++
	if s.writes == s.failAt {
		return errDiskFull
	}
	return s.Session.Write(rec)
}

func readContents(t *testing.T, path string) *table.Contents {
	t.Helper()
	c, err := table.ReadFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ReadFile(%s): %v", path, err)
	}
	return c
}

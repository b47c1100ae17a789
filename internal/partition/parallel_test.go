package partition

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

func TestParallelWriter_MatchesSequential(t *testing.T) {
	seq := testConfig(t, 230)
	par := seq
	par.OutputDir = t.TempDir()
	par.Workers = 4

	seqObs := &recordingObserver{}
	seqSummary, err := NewFileSplitWriter(seq, table.NewParquetWriter(), WithObserver(seqObs)).Run(context.Background())
	if err != nil {
		t.Fatalf("sequential Run: %v", err)
	}

	parObs := &recordingObserver{}
	pw := NewParallelWriter(par, table.NewParquetWriter(), WithObserver(parObs))
	parSummary, err := pw.Run(context.Background())
	if err != nil {
		t.Fatalf("parallel Run: %v", err)
	}

	if seqSummary.TotalFiles != parSummary.TotalFiles || seqSummary.TotalRows != parSummary.TotalRows {
		t.Fatalf("summaries differ: %+v vs %+v", seqSummary, parSummary)
	}
	if parSummary.TotalFiles != 10 {
		t.Errorf("TotalFiles = %d, want 10", parSummary.TotalFiles)
	}

	for i, r := range parObs.reports {
		if r.FileIndex != i {
			t.Fatalf("report %d delivered out of order (index %d)", i, r.FileIndex)
		}
		if r.Rows != seqObs.reports[i].Rows || r.Batches != seqObs.reports[i].Batches {
			t.Errorf("file %d: rows/batches %d/%d vs %d/%d", i, r.Rows, r.Batches, seqObs.reports[i].Rows, seqObs.reports[i].Batches)
		}

		a, err := os.ReadFile(seqObs.reports[i].Path)
		if err != nil {
			t.Fatal(err)
		}
		b, err := os.ReadFile(r.Path)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(a, b) {
			t.Errorf("file %d differs between sequential and parallel runs", i)
		}
	}

	if s := pw.State(); s.Phase != types.PhaseDone || s.FilesWritten != 10 || s.TotalRowsWritten != 230 || s.Remaining != 0 {
		t.Errorf("state = %+v", s)
	}
	if len(parObs.summaries) != 1 {
		t.Errorf("RunCompleted called %d times", len(parObs.summaries))
	}
}

func TestParallelWriter_OpenFailure(t *testing.T) {
	cfg := testConfig(t, 200)
	cfg.Workers = 3
	failPath := filepath.Join(cfg.OutputDir, cfg.FileName(4))
	tw := &failingWriter{inner: table.NewParquetWriter(), failOpen: failPath}

	obs := &recordingObserver{}
	_, err := NewParallelWriter(cfg, tw, WithObserver(obs)).Run(context.Background())
	if generrors.GetCode(err) != generrors.CodeCreateFailed {
		t.Fatalf("error = %v, want CREATE_FAILED", err)
	}
	if idx, _ := generrors.GetDetail(err, "file_index"); idx != 4 {
		t.Errorf("file_index = %v, want 4", idx)
	}
	for i, r := range obs.reports {
		if r.FileIndex != i {
			t.Errorf("report %d has index %d", i, r.FileIndex)
		}
		if r.FileIndex >= 4 {
			t.Errorf("file %d delivered after the failed file", r.FileIndex)
		}
	}
	if len(obs.summaries) != 0 {
		t.Error("failed run must not report a summary")
	}
}

func TestParallelWriter_CommitInOrder(t *testing.T) {
	cfg := testConfig(t, 180)
	cfg.Workers = 8

	var order []int
	commit := CommitFunc(func(ctx context.Context, r types.FileReport) error {
		order = append(order, r.FileIndex)
		return nil
	})
	if _, err := NewParallelWriter(cfg, table.NewParquetWriter(), WithCommitter(commit)).Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	for i, idx := range order {
		if idx != i {
			t.Fatalf("commit order = %v", order)
		}
	}
	if len(order) != 8 {
		t.Errorf("committed %d files, want 8", len(order))
	}
}

func TestParallelWriter_InvalidConfig(t *testing.T) {
	cfg := testConfig(t, 0)
	_, err := NewParallelWriter(cfg, table.NewParquetWriter()).Run(context.Background())
	if generrors.GetCode(err) != generrors.CodeInvalidRowCount {
		t.Fatalf("error = %v, want INVALID_ROW_COUNT", err)
	}
}

package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/arkilian/vecgen/internal/storage"
	"github.com/arkilian/vecgen/pkg/types"
)

func TestReconcile(t *testing.T) {
	catalog := newTestCatalog(t)
	store, err := storage.NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()

	src := filepath.Join(t.TempDir(), "src")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	runID, err := catalog.BeginRun(ctx, types.DefaultGenerationConfig())
	if err != nil {
		t.Fatal(err)
	}

	// File 0 is published with its sidecar, file 1 is registered but missing.
	for _, obj := range []string{"run/data-00000000.parquet", "run/data-00000000.meta.json", "run/stray.parquet"} {
		if err := store.Upload(ctx, src, obj); err != nil {
			t.Fatal(err)
		}
	}
	if err := catalog.RegisterFile(ctx, runID, testReport(0, 5), "run/data-00000000.parquet"); err != nil {
		t.Fatal(err)
	}
	if err := catalog.RegisterFile(ctx, runID, testReport(1, 5), "run/data-00000001.parquet"); err != nil {
		t.Fatal(err)
	}

	report, err := Reconcile(ctx, catalog, runID, store, "run")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !report.HasIssues() {
		t.Fatal("expected issues")
	}
	if len(report.DanglingEntries) != 1 || report.DanglingEntries[0].FileIndex != 1 {
		t.Errorf("dangling = %+v", report.DanglingEntries)
	}
	if len(report.OrphanedObjects) != 1 || report.OrphanedObjects[0] != "run/stray.parquet" {
		t.Errorf("orphans = %v", report.OrphanedObjects)
	}
	if report.TotalManifestEntries != 2 || report.TotalStorageObjects != 3 {
		t.Errorf("totals = %d/%d", report.TotalManifestEntries, report.TotalStorageObjects)
	}
}

func TestReconcile_Clean(t *testing.T) {
	catalog := newTestCatalog(t)
	store, _ := storage.NewLocalStorage(t.TempDir())
	ctx := context.Background()

	runID, _ := catalog.BeginRun(ctx, types.DefaultGenerationConfig())
	report, err := Reconcile(ctx, catalog, runID, store, "run")
	if err != nil {
		t.Fatal(err)
	}
	if report.HasIssues() {
		t.Errorf("empty run should reconcile cleanly: %+v", report)
	}
}

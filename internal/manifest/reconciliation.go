package manifest

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/arkilian/vecgen/internal/storage"
)

// ReconciliationReport compares the files of a run with the objects under
// the run's storage prefix.
type ReconciliationReport struct {
	RunID string
	// DanglingEntries are file records whose object does not exist in storage.
	DanglingEntries []DanglingEntry
	// OrphanedObjects are objects under the prefix no file record accounts for.
	OrphanedObjects []string
	// TotalManifestEntries is the number of file records checked.
	TotalManifestEntries int
	// TotalStorageObjects is the number of storage objects scanned.
	TotalStorageObjects int
	RunAt               time.Time
}

// DanglingEntry is a file record pointing to a missing object.
type DanglingEntry struct {
	FileIndex  int
	ObjectPath string
}

// HasIssues reports whether any dangling entries or orphaned objects exist.
func (r *ReconciliationReport) HasIssues() bool {
	return len(r.DanglingEntries) > 0 || len(r.OrphanedObjects) > 0
}

// Reconcile checks that every published file of runID exists in store and
// that nothing else lives under storagePrefix. Metadata sidecars next to a
// registered object are not orphans.
func Reconcile(ctx context.Context, catalog Catalog, runID string, store storage.ObjectStorage, storagePrefix string) (*ReconciliationReport, error) {
	report := &ReconciliationReport{RunID: runID, RunAt: time.Now()}

	files, err := catalog.ListFiles(ctx, runID)
	if err != nil {
		return nil, fmt.Errorf("reconciliation: failed to list manifest files: %w", err)
	}

	known := make(map[string]bool, 2*len(files))
	for _, f := range files {
		if f.ObjectPath == "" {
			continue
		}
		report.TotalManifestEntries++
		known[f.ObjectPath] = true
		known[sidecarObject(f.ObjectPath)] = true

		if err := ctx.Err(); err != nil {
			return nil, err
		}
		exists, err := store.Exists(ctx, f.ObjectPath)
		if err != nil {
			return nil, fmt.Errorf("reconciliation: failed to check object %s: %w", f.ObjectPath, err)
		}
		if !exists {
			report.DanglingEntries = append(report.DanglingEntries, DanglingEntry{
				FileIndex:  f.FileIndex,
				ObjectPath: f.ObjectPath,
			})
		}
	}

	objects, err := store.ListObjects(ctx, storagePrefix)
	if err != nil {
		return nil, fmt.Errorf("reconciliation: failed to list storage objects: %w", err)
	}
	report.TotalStorageObjects = len(objects)
	for _, obj := range objects {
		if !known[obj] {
			report.OrphanedObjects = append(report.OrphanedObjects, obj)
		}
	}
	return report, nil
}

func sidecarObject(objectPath string) string {
	return strings.TrimSuffix(objectPath, path.Ext(objectPath)) + ".meta.json"
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	generrors "github.com/arkilian/vecgen/internal/errors"
)

func writeTemp(t *testing.T, name string, content []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	return p
}

func TestLocalStorage_UploadExistsDelete(t *testing.T) {
	baseDir := t.TempDir()
	store, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	ctx := context.Background()
	src := writeTemp(t, "data-00000000.parquet", []byte("PAR1 payload"))

	objectPath := "runs/a/data-00000000.parquet"
	if err := store.Upload(ctx, src, objectPath); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	exists, err := store.Exists(ctx, objectPath)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v", exists, err)
	}
	got, err := os.ReadFile(filepath.Join(baseDir, "runs", "a", "data-00000000.parquet"))
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "PAR1 payload" {
		t.Errorf("content = %q", got)
	}

	if err := store.Delete(ctx, objectPath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	exists, _ = store.Exists(ctx, objectPath)
	if exists {
		t.Error("expected object to be deleted")
	}

	// Deleting again is not an error.
	if err := store.Delete(ctx, objectPath); err != nil {
		t.Errorf("second Delete failed: %v", err)
	}
}

func TestLocalStorage_UploadOverwrites(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	if err := store.Upload(ctx, writeTemp(t, "a", []byte("first")), "obj"); err != nil {
		t.Fatal(err)
	}
	if err := store.Upload(ctx, writeTemp(t, "b", []byte("second")), "obj"); err != nil {
		t.Fatal(err)
	}
	got, _ := os.ReadFile(filepath.Join(store.BasePath(), "obj"))
	if string(got) != "second" {
		t.Errorf("content = %q, want second", got)
	}
}

func TestLocalStorage_UploadMissingSource(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	err := store.Upload(context.Background(), filepath.Join(t.TempDir(), "missing"), "obj")
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if !generrors.IsRetryable(err) {
		t.Error("upload failures should be retryable")
	}
	if obj, _ := generrors.GetDetail(err, "object"); obj != "obj" {
		t.Errorf("object detail = %v", obj)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx := context.Background()

	src := writeTemp(t, "f", []byte("x"))
	for _, p := range []string{"run/b.parquet", "run/a.parquet", "run/a.meta.json", "other/c.parquet"} {
		if err := store.Upload(ctx, src, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := store.ListObjects(ctx, "run")
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"run/a.meta.json", "run/a.parquet", "run/b.parquet"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ListObjects = %v, want %v", got, want)
	}

	none, err := store.ListObjects(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("ListObjects(missing) = %v, %v", none, err)
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	store, _ := NewLocalStorage(t.TempDir())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := store.Upload(ctx, writeTemp(t, "f", nil), "obj"); !errors.Is(err, context.Canceled) {
		t.Errorf("Upload error = %v", err)
	}
	if _, err := store.Exists(ctx, "obj"); !errors.Is(err, context.Canceled) {
		t.Errorf("Exists error = %v", err)
	}
}

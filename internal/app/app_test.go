package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/vecgen/internal/config"
	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/manifest"
	"github.com/arkilian/vecgen/internal/storage"
)

// testConfig yields 25 rows per file: 36 bytes per row against a 900 byte target.
func testConfig(t *testing.T, totalRows int64) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Generation.VectorDim = 4
	cfg.Generation.ScalarLen = 4
	cfg.Generation.FileSize = "900"
	cfg.Generation.BatchSize = 10
	cfg.Generation.TotalRows = totalRows
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out")
	cfg.Progress = false
	return cfg
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newApp(t *testing.T, cfg *config.Config, opts ...Option) *App {
	t.Helper()
	a, err := New(cfg, append([]Option{WithLogger(quietLogger())}, opts...)...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	return a
}

func TestRun_PublishesAndRegistersFiles(t *testing.T) {
	cfg := testConfig(t, 60)
	cfg.Output.Sidecars = true
	cfg.Storage.Type = config.StorageLocal
	cfg.Manifest.Enabled = true

	a := newApp(t, cfg)
	result, err := a.Run(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, result.RunID)
	require.NotNil(t, result.Summary)
	assert.Equal(t, 3, result.Summary.TotalFiles)
	assert.Equal(t, int64(60), result.Summary.TotalRows)
	assert.Equal(t, int64(25), result.Summary.RowsPerFile)
	assert.Equal(t, 3, result.Totals.Files)
	assert.Len(t, result.SlowestFiles, 3)

	ctx := context.Background()
	run, err := a.catalog.GetRun(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, manifest.RunStatusCompleted, run.Status)
	assert.Equal(t, int64(60), run.TotalRows)
	assert.Equal(t, 3, run.TotalFiles)

	files, err := a.catalog.ListFiles(ctx, result.RunID)
	require.NoError(t, err)
	require.Len(t, files, 3)
	wantRows := []int64{25, 25, 10}
	for i, f := range files {
		assert.Equal(t, i, f.FileIndex)
		assert.Equal(t, wantRows[i], f.RowCount)
		assert.Equal(t, uint64(42+i), f.Seed)
		assert.Equal(t, "vecgen/"+filepath.Base(f.Path), f.ObjectPath)
		_, err := os.Stat(filepath.Join(cfg.Storage.Path, filepath.FromSlash(f.ObjectPath)))
		assert.NoError(t, err)
	}

	require.NotNil(t, result.Reconciliation)
	assert.False(t, result.Reconciliation.HasIssues(), "reconciliation: %+v", result.Reconciliation)
	assert.Equal(t, 6, result.Reconciliation.TotalStorageObjects, "3 tables and 3 sidecars")

	report, err := a.Verify(ctx, result.RunID)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Files)
	assert.Equal(t, int64(60), report.Rows)
}

func TestRun_ParallelWithVerify(t *testing.T) {
	cfg := testConfig(t, 130)
	cfg.Generation.Workers = 3
	cfg.Verify = true

	a := newApp(t, cfg)
	result, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.RunID)
	assert.Equal(t, 6, result.Summary.TotalFiles)
	require.NotNil(t, result.Verification)
	assert.Equal(t, 6, result.Verification.Files)
	assert.Equal(t, int64(130), result.Verification.Rows)
}

func TestRun_ProgressBar(t *testing.T) {
	cfg := testConfig(t, 30)
	cfg.Progress = true

	var buf bytes.Buffer
	a := newApp(t, cfg, WithProgressWriter(&buf))
	_, err := a.Run(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, buf.String())
}

func TestVerify_DetectsForeignContent(t *testing.T) {
	cfg := testConfig(t, 40)
	a := newApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	other := testConfig(t, 40)
	other.Output.Dir = cfg.Output.Dir
	other.Generation.Seed = 43
	b := newApp(t, other)

	_, err = b.Verify(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, generrors.CodeVerifyMismatch, generrors.GetCode(err))
	idx, ok := generrors.GetDetail(err, "file_index")
	require.True(t, ok)
	assert.Equal(t, 0, idx)
}

func TestVerify_DetectsTruncatedRun(t *testing.T) {
	cfg := testConfig(t, 40)
	a := newApp(t, cfg)
	_, err := a.Run(context.Background())
	require.NoError(t, err)

	require.NoError(t, os.Remove(filepath.Join(cfg.Output.Dir, "data-00000001.parquet")))
	_, err = a.Verify(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, generrors.CodeReadFailed, generrors.GetCode(err))
}

func TestVerify_RunIDRequiresManifest(t *testing.T) {
	a := newApp(t, testConfig(t, 10))
	_, err := a.Verify(context.Background(), "some-run")
	assert.ErrorContains(t, err, "requires the manifest")
}

type offlineStorage struct {
	storage.ObjectStorage
}

func (offlineStorage) Upload(ctx context.Context, localPath, objectPath string) error {
	return generrors.NewStorageError(generrors.CodeUploadFailed, "upload failed", errors.New("bucket offline"))
}

func TestRun_StorageFailureMarksRunFailed(t *testing.T) {
	cfg := testConfig(t, 60)
	cfg.Manifest.Enabled = true

	a := newApp(t, cfg, WithStorage(offlineStorage{}))
	result, err := a.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, storage.ErrUploadFailed))
	assert.True(t, generrors.IsRetryable(err))
	require.NotEmpty(t, result.RunID)
	assert.Nil(t, result.Summary)

	run, err := a.catalog.GetRun(context.Background(), result.RunID)
	require.NoError(t, err)
	assert.Equal(t, manifest.RunStatusFailed, run.Status)
	assert.Contains(t, run.Error, "bucket offline")
	assert.Equal(t, 0, run.TotalFiles)

	// the closed file stays on disk
	_, err = os.Stat(filepath.Join(cfg.Output.Dir, "data-00000000.parquet"))
	assert.NoError(t, err)
}

func TestRun_CancelledContext(t *testing.T) {
	a := newApp(t, testConfig(t, 60))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := a.Run(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNew_InvalidConfiguration(t *testing.T) {
	cfg := testConfig(t, 10)
	cfg.Generation.Compression = "brotli"
	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, generrors.ErrCategoryConfiguration, generrors.GetCategory(err))

	cfg = testConfig(t, 10)
	cfg.Storage.Type = config.StorageS3
	_, err = New(cfg)
	assert.Equal(t, generrors.CodeInvalidStorage, generrors.GetCode(err))
}

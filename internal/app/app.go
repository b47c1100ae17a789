// Package app wires configuration, storage, the manifest catalog and the
// file split writers into a single generation run.
package app

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"
	"sync"

	"github.com/arkilian/vecgen/internal/config"
	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/internal/generator"
	"github.com/arkilian/vecgen/internal/manifest"
	"github.com/arkilian/vecgen/internal/observability"
	"github.com/arkilian/vecgen/internal/partition"
	"github.com/arkilian/vecgen/internal/storage"
	"github.com/arkilian/vecgen/internal/table"
	"github.com/arkilian/vecgen/pkg/types"
)

// App runs dataset generation for one configuration.
type App struct {
	cfg *config.Config
	gen types.GenerationConfig

	// Shared resources, opened on first use
	storage   storage.ObjectStorage
	publisher *storage.Publisher
	catalog   manifest.Catalog
	opened    bool

	tableWriter table.TableWriter
	logger      *log.Logger
	progressOut io.Writer

	mu      sync.Mutex
	running bool
}

// Option customizes an App.
type Option func(*App)

// WithTableWriter replaces the Parquet writer.
func WithTableWriter(tw table.TableWriter) Option {
	return func(a *App) { a.tableWriter = tw }
}

// WithLogger sets the logger used for run output.
func WithLogger(l *log.Logger) Option {
	return func(a *App) { a.logger = l }
}

// WithProgressWriter renders a progress bar to w when progress is enabled.
func WithProgressWriter(w io.Writer) Option {
	return func(a *App) { a.progressOut = w }
}

// WithStorage publishes to store instead of the configured storage type.
func WithStorage(store storage.ObjectStorage) Option {
	return func(a *App) { a.storage = store }
}

// Result describes a finished run.
type Result struct {
	// RunID is empty when the manifest is disabled
	RunID          string
	Summary        *types.RunSummary
	Totals         observability.Totals
	SlowestFiles   []observability.FileStat
	Reconciliation *manifest.ReconciliationReport
	Verification   *VerifyReport
}

// VerifyReport counts the files and rows checked by Verify.
type VerifyReport struct {
	Files int
	Rows  int64
}

// New resolves and validates cfg and creates the output directories.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	gen, err := cfg.GenerationConfig()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}

	a := &App{cfg: cfg, gen: gen}
	for _, opt := range opts {
		opt(a)
	}
	if a.tableWriter == nil {
		a.tableWriter = table.NewParquetWriter()
	}
	if a.logger == nil {
		a.logger = log.Default()
	}
	return a, nil
}

// GenerationConfig returns the validated generation input.
func (a *App) GenerationConfig() types.GenerationConfig {
	return a.gen
}

// initSharedResources opens storage and the manifest catalog.
func (a *App) initSharedResources(ctx context.Context) error {
	if a.opened {
		return nil
	}

	if a.storage == nil {
		store, err := a.openStorage(ctx)
		if err != nil {
			return fmt.Errorf("failed to initialize storage: %w", err)
		}
		a.storage = store
	}
	if a.storage != nil {
		a.publisher = storage.NewPublisher(a.storage, a.cfg.Storage.Prefix, a.cfg.Verbose)
		a.logger.Printf("vecgen: storage initialized: type=%s prefix=%s", a.cfg.Storage.Type, a.cfg.Storage.Prefix)
	}

	if a.cfg.Manifest.Enabled {
		catalog, err := manifest.NewCatalog(a.cfg.Manifest.Path)
		if err != nil {
			return fmt.Errorf("failed to initialize manifest catalog: %w", err)
		}
		a.catalog = catalog
		a.logger.Printf("vecgen: manifest catalog initialized: %s", a.cfg.Manifest.Path)
	}

	a.opened = true
	return nil
}

func (a *App) openStorage(ctx context.Context) (storage.ObjectStorage, error) {
	switch a.cfg.Storage.Type {
	case config.StorageNone:
		return nil, nil
	case config.StorageLocal:
		return storage.NewLocalStorage(a.cfg.Storage.Path)
	case config.StorageS3:
		s3Cfg := storage.DefaultS3Config()
		if a.cfg.Storage.S3.Region != "" {
			s3Cfg.Region = a.cfg.Storage.S3.Region
		}
		s3Cfg.Endpoint = a.cfg.Storage.S3.Endpoint
		s3Cfg.UsePathStyle = a.cfg.Storage.S3.PathStyle
		return storage.NewS3Storage(ctx, a.cfg.Storage.S3.Bucket, s3Cfg)
	case config.StorageMinio:
		m, err := storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  a.cfg.Storage.Minio.Endpoint,
			Bucket:    a.cfg.Storage.Minio.Bucket,
			AccessKey: a.cfg.Storage.Minio.AccessKey,
			SecretKey: a.cfg.Storage.Minio.SecretKey,
			Secure:    a.cfg.Storage.Minio.Secure,
		})
		if err != nil {
			return nil, err
		}
		if err := m.EnsureBucket(ctx, ""); err != nil {
			return nil, err
		}
		return m, nil
	default:
		return nil, fmt.Errorf("unsupported storage type: %s", a.cfg.Storage.Type)
	}
}

// Run generates the dataset. When the manifest is enabled the run is
// recorded and marked failed on error; the returned Result carries the run
// ID in both cases.
func (a *App) Run(ctx context.Context) (*Result, error) {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return nil, fmt.Errorf("app is already running")
	}
	a.running = true
	a.mu.Unlock()
	defer func() {
		a.mu.Lock()
		a.running = false
		a.mu.Unlock()
	}()

	if err := a.initSharedResources(ctx); err != nil {
		return nil, err
	}

	result := &Result{}
	if a.catalog != nil {
		runID, err := a.catalog.BeginRun(ctx, a.gen)
		if err != nil {
			return nil, fmt.Errorf("failed to begin run: %w", err)
		}
		result.RunID = runID
	}

	stats := observability.NewRunStats()
	observers := partition.MultiObserver{
		observability.NewLogObserver(a.logger, a.cfg.Verbose),
		stats,
	}
	if a.cfg.Progress && a.progressOut != nil {
		observers = append(observers, observability.NewProgressObserver(a.progressOut, a.gen.TotalRows))
	}

	opts := []partition.Option{
		partition.WithObserver(observers),
		partition.WithSidecars(a.cfg.Output.Sidecars),
	}
	if a.publisher != nil || a.catalog != nil {
		opts = append(opts, partition.WithCommitter(a.committer(result.RunID)))
	}

	summary, err := a.write(ctx, opts)
	result.Totals = stats.Totals()
	result.SlowestFiles = stats.SlowestFiles(3)
	if err != nil {
		if a.catalog != nil {
			if ferr := a.catalog.FailRun(context.WithoutCancel(ctx), result.RunID, err); ferr != nil {
				a.logger.Printf("vecgen: failed to mark run %s failed: %v", result.RunID, ferr)
			}
		}
		return result, err
	}
	result.Summary = summary

	if a.catalog != nil {
		if err := a.catalog.CompleteRun(ctx, result.RunID, *summary); err != nil {
			return result, fmt.Errorf("failed to complete run: %w", err)
		}
		if a.storage != nil {
			rec, err := manifest.Reconcile(ctx, a.catalog, result.RunID, a.storage, a.cfg.Storage.Prefix)
			if err != nil {
				return result, err
			}
			if rec.HasIssues() {
				a.logger.Printf("vecgen: reconciliation found %d dangling entries and %d orphaned objects under %q",
					len(rec.DanglingEntries), len(rec.OrphanedObjects), a.cfg.Storage.Prefix)
			}
			result.Reconciliation = rec
		}
	}

	if a.cfg.Verify {
		report, err := a.Verify(ctx, result.RunID)
		if err != nil {
			return result, err
		}
		result.Verification = report
	}
	return result, nil
}

func (a *App) write(ctx context.Context, opts []partition.Option) (*types.RunSummary, error) {
	if a.gen.Workers > 1 {
		return partition.NewParallelWriter(a.gen, a.tableWriter, opts...).Run(ctx)
	}
	return partition.NewFileSplitWriter(a.gen, a.tableWriter, opts...).Run(ctx)
}

// committer publishes a closed file, then records it in the manifest.
func (a *App) committer(runID string) partition.Committer {
	return partition.CommitFunc(func(ctx context.Context, report types.FileReport) error {
		var objectPath string
		if a.publisher != nil {
			p, err := a.publisher.Publish(ctx, report)
			if err != nil {
				return err
			}
			objectPath = p
		}
		if a.catalog != nil {
			return a.catalog.RegisterFile(ctx, runID, report, objectPath)
		}
		return nil
	})
}

// verifyTarget is one file to check against a fresh generator.
type verifyTarget struct {
	index int
	path  string
	seed  uint64
	rows  int64
}

// Verify reads files back and compares every row with a freshly seeded
// generator. With a run ID the files come from the manifest; without one
// they are derived from the configuration.
func (a *App) Verify(ctx context.Context, runID string) (*VerifyReport, error) {
	if err := a.initSharedResources(ctx); err != nil {
		return nil, err
	}

	cfg, targets, err := a.verifyTargets(ctx, runID)
	if err != nil {
		return nil, err
	}

	report := &VerifyReport{}
	for _, t := range targets {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("app: verify cancelled before file %d: %w", t.index, err)
		}
		if err := verifyFile(ctx, cfg, t); err != nil {
			return nil, err
		}
		report.Files++
		report.Rows += t.rows
	}
	a.logger.Printf("vecgen: verified %d files, %d rows", report.Files, report.Rows)
	return report, nil
}

func (a *App) verifyTargets(ctx context.Context, runID string) (types.GenerationConfig, []verifyTarget, error) {
	if runID == "" {
		cfg := a.gen
		quotas := partition.PlanFiles(cfg.TotalRows, partition.EstimateRowsPerFile(cfg))
		targets := make([]verifyTarget, len(quotas))
		for i, rows := range quotas {
			targets[i] = verifyTarget{
				index: i,
				path:  filepath.Join(cfg.OutputDir, cfg.FileName(i)),
				seed:  types.FileSeed(cfg.Seed, i),
				rows:  rows,
			}
		}
		return cfg, targets, nil
	}

	if a.catalog == nil {
		return types.GenerationConfig{}, nil, fmt.Errorf("app: verifying run %s requires the manifest", runID)
	}
	run, err := a.catalog.GetRun(ctx, runID)
	if err != nil {
		return types.GenerationConfig{}, nil, err
	}
	files, err := a.catalog.ListFiles(ctx, runID)
	if err != nil {
		return types.GenerationConfig{}, nil, err
	}
	targets := make([]verifyTarget, len(files))
	for i, f := range files {
		targets[i] = verifyTarget{index: f.FileIndex, path: f.Path, seed: f.Seed, rows: f.RowCount}
	}
	return run.Config, targets, nil
}

func verifyFile(ctx context.Context, cfg types.GenerationConfig, t verifyTarget) error {
	contents, err := table.ReadFile(ctx, t.path)
	if err != nil {
		return fmt.Errorf("app: verify file %d: %w", t.index, err)
	}
	if int64(contents.NumRows()) != t.rows {
		return mismatch(t, fmt.Sprintf("file holds %d rows, expected %d", contents.NumRows(), t.rows))
	}

	gen := generator.NewRowGenerator(t.seed, cfg.VectorDim, cfg.ScalarLen)
	for i := range contents.NumRows() {
		vec := gen.NextVector()
		scalar := gen.NextScalar()
		if !bytes.Equal(vec, contents.Vectors[i]) {
			return mismatch(t, fmt.Sprintf("vector of row %d differs", i))
		}
		if scalar != contents.Scalars[i] {
			return mismatch(t, fmt.Sprintf("scalar of row %d is %q, expected %q", i, contents.Scalars[i], scalar))
		}
	}
	return nil
}

func mismatch(t verifyTarget, msg string) error {
	return generrors.New(generrors.ErrCategoryInternal, generrors.CodeVerifyMismatch, msg).WithFile(t.index, t.path)
}

// Close releases the manifest catalog.
func (a *App) Close() error {
	if a.catalog != nil {
		return a.catalog.Close()
	}
	return nil
}

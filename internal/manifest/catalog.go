package manifest

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/pkg/types"
)

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
)

// Catalog records runs and their files.
type Catalog interface {
	// BeginRun registers a new run and returns its ID.
	BeginRun(ctx context.Context, cfg types.GenerationConfig) (string, error)

	// RegisterFile records a closed file of a running run.
	RegisterFile(ctx context.Context, runID string, report types.FileReport, objectPath string) error

	// CompleteRun marks the run completed with its summary.
	CompleteRun(ctx context.Context, runID string, summary types.RunSummary) error

	// FailRun marks the run failed; files registered so far are kept.
	FailRun(ctx context.Context, runID string, cause error) error

	// GetRun retrieves a run by ID.
	GetRun(ctx context.Context, runID string) (*RunRecord, error)

	// ListFiles returns the files of a run in index order.
	ListFiles(ctx context.Context, runID string) ([]*FileRecord, error)

	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]*RunRecord, error)

	// Close closes the catalog database connection.
	Close() error
}

// RunRecord represents a run in the manifest.
type RunRecord struct {
	RunID      string
	StartedAt  time.Time
	FinishedAt *time.Time
	Status     RunStatus
	Config     types.GenerationConfig
	TotalRows  int64
	TotalFiles int
	TotalBytes int64
	Error      string
}

// FileRecord represents a produced file in the manifest.
type FileRecord struct {
	RunID      string
	FileIndex  int
	Path       string
	ObjectPath string
	Seed       uint64
	RowCount   int64
	BatchCount int
	SizeBytes  int64
	CreatedAt  time.Time
}

// SQLiteCatalog implements Catalog using SQLite.
type SQLiteCatalog struct {
	db     *sql.DB
	dbPath string
	mu     sync.Mutex
}

// NewCatalog opens (creating if needed) the catalog at dbPath.
func NewCatalog(dbPath string) (*SQLiteCatalog, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to open database", err)
	}
	db.SetMaxOpenConns(1) // Single writer
	db.SetMaxIdleConns(1)

	c := &SQLiteCatalog{db: db, dbPath: dbPath}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to initialize schema", err)
	}
	return c, nil
}

// Path returns the database file path.
func (c *SQLiteCatalog) Path() string {
	return c.dbPath
}

func (c *SQLiteCatalog) initSchema() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, stmt := range AllSchemaSQL() {
		if _, err := c.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

// BeginRun registers a new run in the running state.
func (c *SQLiteCatalog) BeginRun(ctx context.Context, cfg types.GenerationConfig) (string, error) {
	configJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to marshal config", err)
	}

	runID := uuid.New().String()

	c.mu.Lock()
	defer c.mu.Unlock()
	_, err = c.db.ExecContext(ctx,
		`INSERT INTO runs (run_id, started_at, status, config_json) VALUES (?, ?, ?, ?)`,
		runID, time.Now().UnixNano(), string(RunStatusRunning), string(configJSON))
	if err != nil {
		return "", generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to insert run", err)
	}
	return runID, nil
}

// RegisterFile records one closed file. Registering the same index twice
// replaces the earlier record.
func (c *SQLiteCatalog) RegisterFile(ctx context.Context, runID string, report types.FileReport, objectPath string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var objectPathValue interface{}
	if objectPath != "" {
		objectPathValue = objectPath
	}

	_, err := c.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO files (
			run_id, file_index, path, object_path, seed,
			row_count, batch_count, size_bytes, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, report.FileIndex, report.Path, objectPathValue, int64(report.Seed),
		report.Rows, report.Batches, report.SizeBytes, time.Now().UnixNano())
	if err != nil {
		return generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to insert file", err).
			WithFile(report.FileIndex, report.Path)
	}
	return nil
}

// CompleteRun marks the run completed.
func (c *SQLiteCatalog) CompleteRun(ctx context.Context, runID string, summary types.RunSummary) error {
	return c.finishRun(ctx, runID, RunStatusCompleted, summary.TotalRows, summary.TotalFiles, summary.TotalBytes, nil)
}

// FailRun marks the run failed, recording totals from the files registered so far.
func (c *SQLiteCatalog) FailRun(ctx context.Context, runID string, cause error) error {
	files, err := c.ListFiles(ctx, runID)
	if err != nil {
		return err
	}
	var rows, size int64
	for _, f := range files {
		rows += f.RowCount
		size += f.SizeBytes
	}
	var msg *string
	if cause != nil {
		s := cause.Error()
		msg = &s
	}
	return c.finishRun(ctx, runID, RunStatusFailed, rows, len(files), size, msg)
}

func (c *SQLiteCatalog) finishRun(ctx context.Context, runID string, status RunStatus, rows int64, files int, size int64, errMsg *string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	res, err := c.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, status = ?, total_rows = ?, total_files = ?, total_bytes = ?, error = ?
		WHERE run_id = ?`,
		time.Now().UnixNano(), string(status), rows, files, size, errMsg, runID)
	if err != nil {
		return generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to update run", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to update run", err)
	}
	if n == 0 {
		return runNotFound(runID)
	}
	return nil
}

const selectRunSQL = `
	SELECT run_id, started_at, finished_at, status, config_json,
	       total_rows, total_files, total_bytes, error
	FROM runs`

// GetRun retrieves a run by ID.
func (c *SQLiteCatalog) GetRun(ctx context.Context, runID string) (*RunRecord, error) {
	row := c.db.QueryRowContext(ctx, selectRunSQL+` WHERE run_id = ?`, runID)
	rec, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, runNotFound(runID)
	}
	if err != nil {
		return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to read run", err)
	}
	return rec, nil
}

// ListRuns returns the most recent runs, newest first. limit <= 0 returns all.
func (c *SQLiteCatalog) ListRuns(ctx context.Context, limit int) ([]*RunRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := c.db.QueryContext(ctx, selectRunSQL+` ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to list runs", err)
	}
	defer rows.Close()

	var runs []*RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to scan run", err)
		}
		runs = append(runs, rec)
	}
	return runs, rows.Err()
}

// ListFiles returns the files of a run in index order.
func (c *SQLiteCatalog) ListFiles(ctx context.Context, runID string) ([]*FileRecord, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT run_id, file_index, path, object_path, seed,
		       row_count, batch_count, size_bytes, created_at
		FROM files WHERE run_id = ? ORDER BY file_index`, runID)
	if err != nil {
		return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to list files", err)
	}
	defer rows.Close()

	var files []*FileRecord
	for rows.Next() {
		var (
			f          FileRecord
			objectPath sql.NullString
			seed       int64
			createdAt  int64
		)
		if err := rows.Scan(&f.RunID, &f.FileIndex, &f.Path, &objectPath, &seed,
			&f.RowCount, &f.BatchCount, &f.SizeBytes, &createdAt); err != nil {
			return nil, generrors.NewManifestError(generrors.CodeRegisterFailed, "failed to scan file", err)
		}
		f.ObjectPath = objectPath.String
		f.Seed = uint64(seed)
		f.CreatedAt = time.Unix(0, createdAt)
		files = append(files, &f)
	}
	return files, rows.Err()
}

// Close closes the catalog database connection.
func (c *SQLiteCatalog) Close() error {
	return c.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(s rowScanner) (*RunRecord, error) {
	var (
		rec        RunRecord
		startedAt  int64
		finishedAt sql.NullInt64
		status     string
		configJSON string
		errMsg     sql.NullString
	)
	if err := s.Scan(&rec.RunID, &startedAt, &finishedAt, &status, &configJSON,
		&rec.TotalRows, &rec.TotalFiles, &rec.TotalBytes, &errMsg); err != nil {
		return nil, err
	}
	rec.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		t := time.Unix(0, finishedAt.Int64)
		rec.FinishedAt = &t
	}
	rec.Status = RunStatus(status)
	rec.Error = errMsg.String
	if err := json.Unmarshal([]byte(configJSON), &rec.Config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &rec, nil
}

func runNotFound(runID string) error {
	return generrors.New(generrors.ErrCategoryManifest, generrors.CodeRunNotFound, "run not found").
		WithDetails(map[string]interface{}{"run_id": runID})
}

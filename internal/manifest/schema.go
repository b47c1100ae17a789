// Package manifest records generation runs and the files they produced in a
// SQLite catalog (manifest.db).
package manifest

// CreateRunsTableSQL creates the runs table. One row per generation run;
// config_json holds the validated generation config.
const CreateRunsTableSQL = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    started_at INTEGER NOT NULL,
    finished_at INTEGER,
    status TEXT NOT NULL,
    config_json TEXT NOT NULL,
    total_rows INTEGER NOT NULL DEFAULT 0,
    total_files INTEGER NOT NULL DEFAULT 0,
    total_bytes INTEGER NOT NULL DEFAULT 0,
    error TEXT
)`

// CreateFilesTableSQL creates the files table. seed stores the uint64 seed
// reinterpreted as a signed integer.
const CreateFilesTableSQL = `
CREATE TABLE IF NOT EXISTS files (
    run_id TEXT NOT NULL,
    file_index INTEGER NOT NULL,
    path TEXT NOT NULL,
    object_path TEXT,
    seed INTEGER NOT NULL,
    row_count INTEGER NOT NULL,
    batch_count INTEGER NOT NULL,
    size_bytes INTEGER NOT NULL,
    created_at INTEGER NOT NULL,
    PRIMARY KEY (run_id, file_index),
    FOREIGN KEY (run_id) REFERENCES runs(run_id)
)`

// CreateIndexesSQL creates secondary indexes.
var CreateIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at)`,
	`CREATE INDEX IF NOT EXISTS idx_files_object ON files(object_path)`,
}

// AllSchemaSQL returns all schema statements in execution order.
func AllSchemaSQL() []string {
	stmts := []string{CreateRunsTableSQL, CreateFilesTableSQL}
	return append(stmts, CreateIndexesSQL...)
}

package types

import "time"

// FileReport describes one closed table file.
type FileReport struct {
	FileIndex int           `json:"file_index"`
	Path      string        `json:"path"`
	Seed      uint64        `json:"seed"`
	Rows      int64         `json:"rows"`
	Batches   int           `json:"batches"`
	Elapsed   time.Duration `json:"elapsed"`
	SizeBytes int64         `json:"size_bytes"`

	// Stats and SidecarPath are filled when metadata sidecars are enabled
	Stats       *FileStats `json:"stats,omitempty"`
	SidecarPath string     `json:"sidecar_path,omitempty"`
}

// RowsPerSecond returns the write throughput of the file.
func (r FileReport) RowsPerSecond() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Rows) / r.Elapsed.Seconds()
}

// FileStats holds value statistics for one table file.
type FileStats struct {
	MinVectorValue float32 `json:"min_vector_value"`
	MaxVectorValue float32 `json:"max_vector_value"`
	MinScalar      string  `json:"min_scalar"`
	MaxScalar      string  `json:"max_scalar"`
}

// RunSummary is reported once the last file of a run is closed.
type RunSummary struct {
	TotalFiles  int           `json:"total_files"`
	TotalRows   int64         `json:"total_rows"`
	TotalBytes  int64         `json:"total_bytes"`
	Elapsed     time.Duration `json:"elapsed"`
	RowsPerFile int64         `json:"rows_per_file"`
}

// Phase is the lifecycle position of a file split writer.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseOpening Phase = "opening"
	PhaseWriting Phase = "writing"
	PhaseClosing Phase = "closing"
	PhaseDone    Phase = "done"
	PhaseFailed  Phase = "failed"
)

// RunState is a snapshot of writer progress.
type RunState struct {
	Phase            Phase `json:"phase"`
	CurrentFile      int   `json:"current_file"`
	TotalRowsWritten int64 `json:"total_rows_written"`
	FilesWritten     int   `json:"files_written"`
	Remaining        int64 `json:"remaining"`
}

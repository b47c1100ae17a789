package partition

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arkilian/vecgen/internal/bloom"
	"github.com/arkilian/vecgen/pkg/types"
)

// MetadataSidecar is the content of a table file's .meta.json companion.
type MetadataSidecar struct {
	FileName      string                    `json:"file_name"`
	FileIndex     int                       `json:"file_index"`
	Seed          uint64                    `json:"seed"`
	Compression   types.Compression         `json:"compression"`
	SchemaVersion int                       `json:"schema_version"`
	Columns       []types.ColumnDef         `json:"columns"`
	Stats         SidecarStats              `json:"stats"`
	BloomFilters  map[string]*bloom.Encoded `json:"bloom_filters,omitempty"`
	CreatedAt     int64                     `json:"created_at"`
}

// SidecarStats holds file-level statistics.
type SidecarStats struct {
	RowCount       int64    `json:"row_count"`
	SizeBytes      int64    `json:"size_bytes"`
	MinVectorValue *float32 `json:"min_vector_value,omitempty"`
	MaxVectorValue *float32 `json:"max_vector_value,omitempty"`
	MinScalar      *string  `json:"min_scalar,omitempty"`
	MaxScalar      *string  `json:"max_scalar,omitempty"`
}

// NewMetadataSidecar builds the sidecar of a closed file from its report and
// the statistics gathered while writing it.
func NewMetadataSidecar(report types.FileReport, compression types.Compression, tracker *StatsTracker) (*MetadataSidecar, error) {
	schema := types.TableSchema()
	sidecar := &MetadataSidecar{
		FileName:      filepath.Base(report.Path),
		FileIndex:     report.FileIndex,
		Seed:          report.Seed,
		Compression:   compression,
		SchemaVersion: schema.Version,
		Columns:       schema.Columns,
		Stats: SidecarStats{
			RowCount:  report.Rows,
			SizeBytes: report.SizeBytes,
		},
		CreatedAt: time.Now().Unix(),
	}
	if tracker == nil {
		return sidecar, nil
	}

	if fs := tracker.FileStats(); fs != nil {
		sidecar.Stats.MinVectorValue = &fs.MinVectorValue
		sidecar.Stats.MaxVectorValue = &fs.MaxVectorValue
		sidecar.Stats.MinScalar = &fs.MinScalar
		sidecar.Stats.MaxScalar = &fs.MaxScalar
	}
	if tracker.RowCount() > 0 {
		enc, err := tracker.ScalarFilter().Encode()
		if err != nil {
			return nil, fmt.Errorf("metadata: failed to encode scalar bloom filter: %w", err)
		}
		sidecar.BloomFilters = map[string]*bloom.Encoded{types.ScalarColumn: enc}
	}
	return sidecar, nil
}

// ScalarFilter decodes the scalar column bloom filter, if present.
func (s *MetadataSidecar) ScalarFilter() (*bloom.Filter, error) {
	enc, ok := s.BloomFilters[types.ScalarColumn]
	if !ok {
		return nil, fmt.Errorf("metadata: sidecar for %s has no %q filter", s.FileName, types.ScalarColumn)
	}
	return bloom.Decode(enc)
}

// WriteToFile writes the sidecar as indented JSON.
func (s *MetadataSidecar) WriteToFile(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("metadata: failed to marshal sidecar: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("metadata: failed to write sidecar file: %w", err)
	}
	return nil
}

// ReadMetadataFromFile loads a sidecar written by WriteToFile.
func ReadMetadataFromFile(path string) (*MetadataSidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("metadata: failed to read sidecar file: %w", err)
	}
	var sidecar MetadataSidecar
	if err := json.Unmarshal(data, &sidecar); err != nil {
		return nil, fmt.Errorf("metadata: failed to unmarshal sidecar: %w", err)
	}
	return &sidecar, nil
}

// MetadataPath returns the sidecar path of a table file:
// data-00000003.parquet -> data-00000003.meta.json.
func MetadataPath(tablePath string) string {
	return strings.TrimSuffix(tablePath, filepath.Ext(tablePath)) + ".meta.json"
}

// CreatedAtTime returns the creation time as time.Time.
func (s *MetadataSidecar) CreatedAtTime() time.Time {
	return time.Unix(s.CreatedAt, 0)
}

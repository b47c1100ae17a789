package types

import (
	"fmt"
	"strings"

	generrors "github.com/arkilian/vecgen/internal/errors"
)

// Compression selects the codec used for table file pages.
type Compression string

const (
	CompressionNone   Compression = "none"
	CompressionSnappy Compression = "snappy"
	CompressionGzip   Compression = "gzip"
	CompressionLz4    Compression = "lz4"
	CompressionZstd   Compression = "zstd"
)

// ParseCompression converts a user supplied codec name into a Compression.
// "uncompressed" is accepted as an alias of "none".
func ParseCompression(s string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "uncompressed":
		return CompressionNone, nil
	case "snappy":
		return CompressionSnappy, nil
	case "gzip":
		return CompressionGzip, nil
	case "lz4":
		return CompressionLz4, nil
	case "zstd":
		return CompressionZstd, nil
	default:
		return "", generrors.NewConfigurationError(generrors.CodeInvalidCompression,
			fmt.Sprintf("unknown compression %q (must be none, snappy, gzip, lz4, or zstd)", s))
	}
}

// Valid reports whether c is one of the supported codecs.
func (c Compression) Valid() bool {
	switch c {
	case CompressionNone, CompressionSnappy, CompressionGzip, CompressionLz4, CompressionZstd:
		return true
	}
	return false
}

// TableFileExtension is the extension of every generated table file.
const TableFileExtension = "parquet"

// GenerationConfig is the validated input of one generation run. It is never
// mutated by the pipeline; per-file variants are derived with ForFile.
type GenerationConfig struct {
	// VectorDim is the element count of the vector column
	VectorDim int `json:"vector_dim"`

	// ScalarLen is the byte length of the scalar string column
	ScalarLen int `json:"scalar_len"`

	// TargetFileSize is the soft upper bound of a table file in bytes
	TargetFileSize int64 `json:"target_file_size"`

	// Compression is the page codec for table files
	Compression Compression `json:"compression"`

	// Seed is the base determinism seed; file i uses Seed+i
	Seed uint64 `json:"seed"`

	// BatchSize caps the rows assembled into one columnar batch
	BatchSize int `json:"batch_size"`

	// TotalRows is the exact number of rows the run produces
	TotalRows int64 `json:"total_rows"`

	// OutputDir receives the table files
	OutputDir string `json:"output_dir"`

	// FilePrefix is the file name prefix: {prefix}-{index:08d}.parquet
	FilePrefix string `json:"file_prefix"`

	// Workers is the number of files produced concurrently (1 = sequential)
	Workers int `json:"workers"`
}

// DefaultGenerationConfig mirrors the defaults of the command line tool.
func DefaultGenerationConfig() GenerationConfig {
	return GenerationConfig{
		VectorDim:      1024,
		ScalarLen:      32,
		TargetFileSize: 512 * 1000 * 1000,
		Compression:    CompressionSnappy,
		Seed:           42,
		BatchSize:      10000,
		TotalRows:      1000,
		OutputDir:      "./output",
		FilePrefix:     "data",
		Workers:        1,
	}
}

// Validate rejects configurations the pipeline cannot run. All returned
// errors are in the CONFIGURATION category.
func (c GenerationConfig) Validate() error {
	if c.VectorDim <= 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidDimension,
			fmt.Sprintf("vector_dim must be positive, got %d", c.VectorDim))
	}
	if c.ScalarLen <= 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidLength,
			fmt.Sprintf("scalar_len must be positive, got %d", c.ScalarLen))
	}
	if c.TargetFileSize <= 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidFileSize,
			fmt.Sprintf("target_file_size must be positive, got %d", c.TargetFileSize))
	}
	if !c.Compression.Valid() {
		return generrors.NewConfigurationError(generrors.CodeInvalidCompression,
			fmt.Sprintf("unknown compression %q", c.Compression))
	}
	if c.BatchSize <= 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidBatchSize,
			fmt.Sprintf("batch_size must be positive, got %d", c.BatchSize))
	}
	if c.TotalRows <= 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidRowCount,
			fmt.Sprintf("total_rows must be positive, got %d", c.TotalRows))
	}
	if c.OutputDir == "" {
		return generrors.NewConfigurationError(generrors.CodeInvalidOutput, "output_dir is required")
	}
	if c.FilePrefix == "" || strings.ContainsAny(c.FilePrefix, `/\`) {
		return generrors.NewConfigurationError(generrors.CodeInvalidOutput,
			fmt.Sprintf("file_prefix must be a non-empty file name, got %q", c.FilePrefix))
	}
	if c.Workers < 0 {
		return generrors.NewConfigurationError(generrors.CodeInvalidWorkers,
			fmt.Sprintf("workers must not be negative, got %d", c.Workers))
	}
	return nil
}

// ForFile returns the configuration variant for file index i. Only the seed
// changes; addition wraps on overflow.
func (c GenerationConfig) ForFile(i int) GenerationConfig {
	c.Seed = FileSeed(c.Seed, i)
	return c
}

// FileSeed derives the seed of file i from the base seed.
func FileSeed(base uint64, i int) uint64 {
	return base + uint64(i)
}

// FileName returns the deterministic name of file i.
func (c GenerationConfig) FileName(i int) string {
	return fmt.Sprintf("%s-%08d.%s", c.FilePrefix, i, TableFileExtension)
}

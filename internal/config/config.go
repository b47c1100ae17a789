// Package config provides layered configuration for vecgen: defaults, then a
// YAML or JSON file, then VECGEN_* environment variables, then flags.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/pkg/types"
)

// EnvPrefix prefixes every environment variable read by LoadFromEnv.
const EnvPrefix = "VECGEN_"

// StorageType selects where closed files are published.
type StorageType string

const (
	StorageNone  StorageType = "none"
	StorageLocal StorageType = "local"
	StorageS3    StorageType = "s3"
	StorageMinio StorageType = "minio"
)

// Config holds the full configuration of a vecgen invocation.
type Config struct {
	// Generation configures row content and file sizing
	Generation GenerationConfig `json:"generation" yaml:"generation"`

	// Output configures the local output directory
	Output OutputConfig `json:"output" yaml:"output"`

	// Storage configures object storage publication
	Storage StorageConfig `json:"storage" yaml:"storage"`

	// Manifest configures the SQLite run catalog
	Manifest ManifestConfig `json:"manifest" yaml:"manifest"`

	// Verbose enables per-file log lines
	Verbose bool `json:"verbose" yaml:"verbose"`

	// Progress enables the terminal progress bar
	Progress bool `json:"progress" yaml:"progress"`

	// Verify reads every file back after the run
	Verify bool `json:"verify" yaml:"verify"`
}

// GenerationConfig is the file-facing form of types.GenerationConfig; the
// file size is a human readable string such as "512MB" (decimal units) or
// "256MiB" (binary units).
type GenerationConfig struct {
	VectorDim   int    `json:"vector_dim" yaml:"vector_dim"`
	ScalarLen   int    `json:"scalar_len" yaml:"scalar_len"`
	FileSize    string `json:"file_size" yaml:"file_size"`
	Compression string `json:"compression" yaml:"compression"`
	Seed        uint64 `json:"seed" yaml:"seed"`
	BatchSize   int    `json:"batch_size" yaml:"batch_size"`
	TotalRows   int64  `json:"total_rows" yaml:"total_rows"`
	Workers     int    `json:"workers" yaml:"workers"`
}

// OutputConfig holds local output settings.
type OutputConfig struct {
	// Dir receives the table files
	Dir string `json:"dir" yaml:"dir"`

	// Prefix is the table file name prefix
	Prefix string `json:"prefix" yaml:"prefix"`

	// Sidecars enables .meta.json statistics files
	Sidecars bool `json:"sidecars" yaml:"sidecars"`
}

// StorageConfig holds storage configuration.
type StorageConfig struct {
	// Type is the storage type: none, local, s3, minio
	Type StorageType `json:"type" yaml:"type"`

	// Path is the local storage root (for local type)
	Path string `json:"path" yaml:"path"`

	// Prefix is prepended to every object path
	Prefix string `json:"prefix" yaml:"prefix"`

	// S3 configuration (for s3 type)
	S3 S3Config `json:"s3" yaml:"s3"`

	// Minio configuration (for minio type)
	Minio MinioConfig `json:"minio" yaml:"minio"`
}

// S3Config holds S3 storage configuration.
type S3Config struct {
	Bucket    string `json:"bucket" yaml:"bucket"`
	Region    string `json:"region" yaml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	PathStyle bool   `json:"path_style" yaml:"path_style"`
}

// MinioConfig holds MinIO storage configuration.
type MinioConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint"`
	Bucket    string `json:"bucket" yaml:"bucket"`
	AccessKey string `json:"access_key" yaml:"access_key"`
	SecretKey string `json:"secret_key" yaml:"secret_key"`
	Secure    bool   `json:"secure" yaml:"secure"`
}

// ManifestConfig holds manifest catalog configuration.
type ManifestConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Path    string `json:"path" yaml:"path"`
}

// DefaultConfig returns the defaults of the command line tool.
func DefaultConfig() *Config {
	g := types.DefaultGenerationConfig()
	return &Config{
		Generation: GenerationConfig{
			VectorDim:   g.VectorDim,
			ScalarLen:   g.ScalarLen,
			FileSize:    "512MB",
			Compression: string(g.Compression),
			Seed:        g.Seed,
			BatchSize:   g.BatchSize,
			TotalRows:   g.TotalRows,
			Workers:     g.Workers,
		},
		Output: OutputConfig{
			Dir:    g.OutputDir,
			Prefix: g.FilePrefix,
		},
		Storage: StorageConfig{
			Type:   StorageNone,
			Prefix: "vecgen",
			S3: S3Config{
				Region: "us-east-1",
			},
		},
		Progress: true,
	}
}

// Resolve fills paths derived from the output directory.
func (c *Config) Resolve() {
	if c.Output.Dir == "" {
		c.Output.Dir = types.DefaultGenerationConfig().OutputDir
	}
	if c.Storage.Type == "" {
		c.Storage.Type = StorageNone
	}
	if c.Storage.Type == StorageLocal && c.Storage.Path == "" {
		c.Storage.Path = filepath.Join(c.Output.Dir, "published")
	}
	if c.Manifest.Enabled && c.Manifest.Path == "" {
		c.Manifest.Path = filepath.Join(c.Output.Dir, "manifest.db")
	}
}

// FileSizeBytes parses Generation.FileSize.
func (c *Config) FileSizeBytes() (int64, error) {
	n, err := humanize.ParseBytes(strings.TrimSpace(c.Generation.FileSize))
	if err != nil {
		return 0, generrors.NewConfigurationError(generrors.CodeInvalidFileSize,
			fmt.Sprintf("invalid file_size %q: %v", c.Generation.FileSize, err))
	}
	if n == 0 || n > 1<<62 {
		return 0, generrors.NewConfigurationError(generrors.CodeInvalidFileSize,
			fmt.Sprintf("file_size must be positive, got %q", c.Generation.FileSize))
	}
	return int64(n), nil
}

// GenerationConfig converts the configuration into the validated pipeline input.
func (c *Config) GenerationConfig() (types.GenerationConfig, error) {
	size, err := c.FileSizeBytes()
	if err != nil {
		return types.GenerationConfig{}, err
	}
	compression, err := types.ParseCompression(c.Generation.Compression)
	if err != nil {
		return types.GenerationConfig{}, err
	}

	g := types.GenerationConfig{
		VectorDim:      c.Generation.VectorDim,
		ScalarLen:      c.Generation.ScalarLen,
		TargetFileSize: size,
		Compression:    compression,
		Seed:           c.Generation.Seed,
		BatchSize:      c.Generation.BatchSize,
		TotalRows:      c.Generation.TotalRows,
		OutputDir:      c.Output.Dir,
		FilePrefix:     c.Output.Prefix,
		Workers:        c.Generation.Workers,
	}
	if err := g.Validate(); err != nil {
		return types.GenerationConfig{}, err
	}
	return g, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if _, err := c.GenerationConfig(); err != nil {
		return err
	}

	switch c.Storage.Type {
	case StorageNone, StorageLocal:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return invalidStorage("storage.s3.bucket is required when storage type is s3")
		}
	case StorageMinio:
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return invalidStorage("storage.minio.endpoint and storage.minio.bucket are required when storage type is minio")
		}
	default:
		return invalidStorage(fmt.Sprintf("invalid storage type: %s (must be none, local, s3, or minio)", c.Storage.Type))
	}
	if strings.HasPrefix(c.Storage.Prefix, "/") {
		return invalidStorage(fmt.Sprintf("storage.prefix must be relative, got %q", c.Storage.Prefix))
	}
	return nil
}

func invalidStorage(msg string) error {
	return generrors.NewConfigurationError(generrors.CodeInvalidStorage, msg)
}

// LoadFromFile loads configuration from a YAML or JSON file on top of the
// defaults.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := DefaultConfig()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse JSON config: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported config file format: %s", ext)
	}

	return cfg, nil
}

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// LoadFromEnv applies VECGEN_* environment variables to cfg.
func LoadFromEnv(cfg *Config) error {
	env := envReader{}

	env.intVar("VECTOR_DIM", &cfg.Generation.VectorDim)
	env.intVar("SCALAR_LEN", &cfg.Generation.ScalarLen)
	env.strVar("FILE_SIZE", &cfg.Generation.FileSize)
	env.strVar("COMPRESSION", &cfg.Generation.Compression)
	env.uint64Var("SEED", &cfg.Generation.Seed)
	env.intVar("BATCH_SIZE", &cfg.Generation.BatchSize)
	env.int64Var("TOTAL_ROWS", &cfg.Generation.TotalRows)
	env.intVar("WORKERS", &cfg.Generation.Workers)

	env.strVar("OUTPUT_DIR", &cfg.Output.Dir)
	env.strVar("PREFIX", &cfg.Output.Prefix)
	env.boolVar("SIDECARS", &cfg.Output.Sidecars)

	var storageType string
	if env.strVar("STORAGE_TYPE", &storageType) {
		cfg.Storage.Type = StorageType(storageType)
	}
	env.strVar("STORAGE_PATH", &cfg.Storage.Path)
	env.strVar("STORAGE_PREFIX", &cfg.Storage.Prefix)
	env.strVar("S3_BUCKET", &cfg.Storage.S3.Bucket)
	env.strVar("S3_REGION", &cfg.Storage.S3.Region)
	env.strVar("S3_ENDPOINT", &cfg.Storage.S3.Endpoint)
	env.boolVar("S3_PATH_STYLE", &cfg.Storage.S3.PathStyle)
	env.strVar("MINIO_ENDPOINT", &cfg.Storage.Minio.Endpoint)
	env.strVar("MINIO_BUCKET", &cfg.Storage.Minio.Bucket)
	env.strVar("MINIO_ACCESS_KEY", &cfg.Storage.Minio.AccessKey)
	env.strVar("MINIO_SECRET_KEY", &cfg.Storage.Minio.SecretKey)
	env.boolVar("MINIO_SECURE", &cfg.Storage.Minio.Secure)

	env.boolVar("MANIFEST_ENABLED", &cfg.Manifest.Enabled)
	env.strVar("MANIFEST_PATH", &cfg.Manifest.Path)

	env.boolVar("VERBOSE", &cfg.Verbose)
	env.boolVar("PROGRESS", &cfg.Progress)
	env.boolVar("VERIFY", &cfg.Verify)

	return env.err
}

// envReader reads prefixed variables and keeps the first parse error.
type envReader struct {
	err error
}

func (r *envReader) lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func (r *envReader) fail(name, value string, err error) {
	if r.err == nil {
		r.err = generrors.NewConfigurationError(generrors.CodeInvalidOutput,
			fmt.Sprintf("invalid %s%s=%q: %v", EnvPrefix, name, value, err))
	}
}

func (r *envReader) strVar(name string, dst *string) bool {
	v, ok := r.lookup(name)
	if ok {
		*dst = v
	}
	return ok
}

func (r *envReader) intVar(name string, dst *int) {
	if v, ok := r.lookup(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) int64Var(name string, dst *int64) {
	if v, ok := r.lookup(name); ok {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) uint64Var(name string, dst *uint64) {
	if v, ok := r.lookup(name); ok {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = n
	}
}

func (r *envReader) boolVar(name string, dst *bool) {
	if v, ok := r.lookup(name); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			r.fail(name, v, err)
			return
		}
		*dst = b
	}
}

// EnsureDirectories creates the output, local storage and manifest directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Output.Dir}
	if c.Storage.Type == StorageLocal {
		dirs = append(dirs, c.Storage.Path)
	}
	if c.Manifest.Enabled && c.Manifest.Path != "" {
		dirs = append(dirs, filepath.Dir(c.Manifest.Path))
	}

	for _, dir := range dirs {
		if dir == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return generrors.NewIOError(generrors.CodeCreateFailed,
				fmt.Sprintf("failed to create directory %s", dir), err)
		}
	}
	return nil
}

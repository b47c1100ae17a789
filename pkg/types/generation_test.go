package types

import (
	"testing"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func validConfig() GenerationConfig {
	cfg := DefaultGenerationConfig()
	cfg.OutputDir = "/tmp/out"
	return cfg
}

func TestGenerationConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*GenerationConfig)
		code   string
	}{
		{"valid", func(c *GenerationConfig) {}, ""},
		{"zero dim", func(c *GenerationConfig) { c.VectorDim = 0 }, generrors.CodeInvalidDimension},
		{"negative scalar", func(c *GenerationConfig) { c.ScalarLen = -1 }, generrors.CodeInvalidLength},
		{"zero file size", func(c *GenerationConfig) { c.TargetFileSize = 0 }, generrors.CodeInvalidFileSize},
		{"bad compression", func(c *GenerationConfig) { c.Compression = "brotli" }, generrors.CodeInvalidCompression},
		{"zero batch", func(c *GenerationConfig) { c.BatchSize = 0 }, generrors.CodeInvalidBatchSize},
		{"zero rows", func(c *GenerationConfig) { c.TotalRows = 0 }, generrors.CodeInvalidRowCount},
		{"no output", func(c *GenerationConfig) { c.OutputDir = "" }, generrors.CodeInvalidOutput},
		{"prefix with slash", func(c *GenerationConfig) { c.FilePrefix = "a/b" }, generrors.CodeInvalidOutput},
		{"negative workers", func(c *GenerationConfig) { c.Workers = -2 }, generrors.CodeInvalidWorkers},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("expected valid config, got %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected %s error", tt.code)
			}
			if generrors.GetCategory(err) != generrors.ErrCategoryConfiguration {
				t.Errorf("category = %q, want CONFIGURATION", generrors.GetCategory(err))
			}
			if generrors.GetCode(err) != tt.code {
				t.Errorf("code = %q, want %q", generrors.GetCode(err), tt.code)
			}
		})
	}
}

func TestParseCompression(t *testing.T) {
	cases := map[string]Compression{
		"none":         CompressionNone,
		"Uncompressed": CompressionNone,
		"snappy":       CompressionSnappy,
		"GZIP":         CompressionGzip,
		"lz4":          CompressionLz4,
		" zstd ":       CompressionZstd,
	}
	for in, want := range cases {
		got, err := ParseCompression(in)
		if err != nil {
			t.Errorf("ParseCompression(%q) error: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseCompression(%q) = %q, want %q", in, got, want)
		}
	}

	if _, err := ParseCompression("brotli"); generrors.GetCode(err) != generrors.CodeInvalidCompression {
		t.Errorf("expected INVALID_COMPRESSION, got %v", err)
	}
}

func TestGenerationConfig_FileName(t *testing.T) {
	cfg := validConfig()
	cfg.FilePrefix = "vectors"
	if got := cfg.FileName(7); got != "vectors-00000007.parquet" {
		t.Errorf("FileName(7) = %q", got)
	}
	if got := cfg.FileName(123456789); got != "vectors-123456789.parquet" {
		t.Errorf("FileName(123456789) = %q", got)
	}
}

func TestProperty_ForFileOnlyChangesSeed(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("ForFile derives base+index and leaves the base untouched", prop.ForAll(
		func(seed uint64, index int) bool {
			base := validConfig()
			base.Seed = seed
			derived := base.ForFile(index)

			if base.Seed != seed {
				return false
			}
			if derived.Seed != seed+uint64(index) {
				return false
			}
			derived.Seed = base.Seed
			return derived == base
		},
		gen.UInt64(),
		gen.IntRange(0, 1<<20),
	))

	properties.TestingRun(t)
}

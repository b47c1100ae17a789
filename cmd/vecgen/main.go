// Package main implements the vecgen command: it writes a synthetic dataset
// of vector and scalar rows as a sequence of bounded-size Parquet files.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/dustin/go-humanize"

	"github.com/arkilian/vecgen/internal/app"
	"github.com/arkilian/vecgen/internal/config"
	generrors "github.com/arkilian/vecgen/internal/errors"
)

var (
	version = "dev"
	commit  = "unknown"
)

// options holds the raw command line values. Only flags that were set on
// the command line override the file and environment configuration.
type options struct {
	configFile  string
	envFile     string
	outputDir   string
	totalRows   int64
	fileSize    string
	compression string
	vectorDim   int
	scalarLen   int
	seed        uint64
	batchSize   int
	prefix      string
	workers     int
	storage     string
	manifest    bool
	sidecars    bool
	verify      bool
	verbose     bool
	progress    bool
	showVersion bool
}

func newFlagSet(opts *options, output io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("vecgen", flag.ContinueOnError)
	fs.SetOutput(output)

	defaults := config.DefaultConfig()
	fs.StringVar(&opts.configFile, "config", "", "Path to configuration file (YAML or JSON)")
	fs.StringVar(&opts.envFile, "env-file", ".env", "Path to a .env file with VECGEN_* variables")
	fs.StringVar(&opts.outputDir, "output-dir", defaults.Output.Dir, "Directory receiving the table files")
	fs.Int64Var(&opts.totalRows, "total-rows", defaults.Generation.TotalRows, "Total number of rows to generate")
	fs.StringVar(&opts.fileSize, "file-size", defaults.Generation.FileSize, "Target size per file, e.g. 512MB or 1GiB")
	fs.StringVar(&opts.compression, "compression", defaults.Generation.Compression, "Compression: none, snappy, gzip, lz4, zstd")
	fs.IntVar(&opts.vectorDim, "vector-dim", defaults.Generation.VectorDim, "Number of float32 values per vector")
	fs.IntVar(&opts.scalarLen, "scalar-len", defaults.Generation.ScalarLen, "Length of the scalar string")
	fs.Uint64Var(&opts.seed, "seed", defaults.Generation.Seed, "Base random seed; file i uses seed+i")
	fs.IntVar(&opts.batchSize, "batch-size", defaults.Generation.BatchSize, "Maximum rows per write batch")
	fs.StringVar(&opts.prefix, "prefix", defaults.Output.Prefix, "File name prefix")
	fs.IntVar(&opts.workers, "workers", defaults.Generation.Workers, "Files produced concurrently")
	fs.StringVar(&opts.storage, "storage", string(defaults.Storage.Type), "Publish files to: none, local, s3, minio")
	fs.BoolVar(&opts.manifest, "manifest", defaults.Manifest.Enabled, "Record the run in the SQLite manifest")
	fs.BoolVar(&opts.sidecars, "sidecars", defaults.Output.Sidecars, "Write .meta.json statistics sidecars")
	fs.BoolVar(&opts.verify, "verify", defaults.Verify, "Read every file back and check its content")
	fs.BoolVar(&opts.verbose, "verbose", defaults.Verbose, "Log every file")
	fs.BoolVar(&opts.progress, "progress", defaults.Progress, "Show a progress bar on stderr")
	fs.BoolVar(&opts.showVersion, "version", false, "Show version information")

	fs.Usage = func() {
		fmt.Fprintf(output, "vecgen - synthetic vector dataset generator\n\n")
		fmt.Fprintf(output, "Usage: vecgen [options]\n\n")
		fmt.Fprintf(output, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(output, "\nExamples:\n")
		fmt.Fprintf(output, "  vecgen -total-rows 1000000 -file-size 256MB -output-dir /data/vectors\n")
		fmt.Fprintf(output, "  vecgen -config vecgen.yaml -workers 4 -manifest -verify\n")
		fmt.Fprintf(output, "\nEnvironment Variables:\n")
		fmt.Fprintf(output, "  VECGEN_OUTPUT_DIR       Directory receiving the table files\n")
		fmt.Fprintf(output, "  VECGEN_TOTAL_ROWS       Total number of rows\n")
		fmt.Fprintf(output, "  VECGEN_FILE_SIZE        Target size per file\n")
		fmt.Fprintf(output, "  VECGEN_STORAGE_TYPE     Storage type (none, local, s3, minio)\n")
		fmt.Fprintf(output, "  VECGEN_S3_*, VECGEN_MINIO_*  Object storage settings\n")
	}
	return fs
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var opts options
	fs := newFlagSet(&opts, os.Stderr)
	if err := fs.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	if opts.showVersion {
		fmt.Printf("vecgen version %s (commit: %s)\n", version, commit)
		return 0
	}

	cfg, err := loadConfig(fs, &opts)
	if err != nil {
		log.Printf("vecgen: failed to load configuration: %v", err)
		return exitCode(err)
	}

	application, err := app.New(cfg, app.WithProgressWriter(os.Stderr))
	if err != nil {
		log.Printf("vecgen: %v", err)
		return exitCode(err)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g := application.GenerationConfig()
	log.Printf("vecgen: writing %s rows to %s (%s per file, %s)",
		humanize.Comma(g.TotalRows), g.OutputDir, humanize.Bytes(uint64(g.TargetFileSize)), g.Compression)

	result, err := application.Run(ctx)
	if err != nil {
		if result != nil && result.RunID != "" {
			log.Printf("vecgen: run %s failed: %v", result.RunID, err)
		} else {
			log.Printf("vecgen: run failed: %v", err)
		}
		return exitCode(err)
	}
	if result.RunID != "" {
		log.Printf("vecgen: run %s recorded in %s", result.RunID, cfg.Manifest.Path)
	}
	return 0
}

// loadConfig layers the file, the .env file, the environment and the flags
// that were set explicitly.
func loadConfig(fs *flag.FlagSet, opts *options) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if opts.configFile != "" {
		cfg, err = config.LoadFromFile(opts.configFile)
		if err != nil {
			return nil, generrors.NewConfigurationError(generrors.CodeInvalidOutput, err.Error())
		}
	} else {
		cfg = config.DefaultConfig()
	}

	if err := config.LoadDotEnv(opts.envFile); err != nil {
		return nil, generrors.NewConfigurationError(generrors.CodeInvalidOutput, err.Error())
	}
	if err := config.LoadFromEnv(cfg); err != nil {
		return nil, err
	}

	applyFlags(cfg, fs, opts)
	return cfg, nil
}

// applyFlags copies the explicitly set flags into cfg.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, opts *options) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "output-dir":
			cfg.Output.Dir = opts.outputDir
		case "total-rows":
			cfg.Generation.TotalRows = opts.totalRows
		case "file-size":
			cfg.Generation.FileSize = opts.fileSize
		case "compression":
			cfg.Generation.Compression = opts.compression
		case "vector-dim":
			cfg.Generation.VectorDim = opts.vectorDim
		case "scalar-len":
			cfg.Generation.ScalarLen = opts.scalarLen
		case "seed":
			cfg.Generation.Seed = opts.seed
		case "batch-size":
			cfg.Generation.BatchSize = opts.batchSize
		case "prefix":
			cfg.Output.Prefix = opts.prefix
		case "workers":
			cfg.Generation.Workers = opts.workers
		case "storage":
			cfg.Storage.Type = config.StorageType(opts.storage)
		case "manifest":
			cfg.Manifest.Enabled = opts.manifest
		case "sidecars":
			cfg.Output.Sidecars = opts.sidecars
		case "verify":
			cfg.Verify = opts.verify
		case "verbose":
			cfg.Verbose = opts.verbose
		case "progress":
			cfg.Progress = opts.progress
		}
	})
}

// exitCode maps configuration errors to 2 and every other failure to 1.
func exitCode(err error) int {
	if generrors.GetCategory(err) == generrors.ErrCategoryConfiguration {
		return 2
	}
	return 1
}

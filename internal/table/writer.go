// Package table persists columnar batches as compressed Parquet files.
// It owns every on-disk format detail: codec, dictionary encoding, row group
// sizing and the file footer.
package table

import (
	"errors"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/pkg/types"
)

// DefaultMaxRowGroupLength bounds the rows buffered into one row group.
const DefaultMaxRowGroupLength = 100_000

// TableWriter opens write sessions for table files.
type TableWriter interface {
	// Open creates the file at path and prepares it for batches of schema.
	Open(path string, schema *arrow.Schema, compression types.Compression) (Session, error)
}

// Session is one open table file. Nothing written is durable until Close
// returns nil.
type Session interface {
	// Write appends a batch. Batches must share the schema given to Open.
	Write(rec arrow.Record) error

	// Close flushes buffered row groups, writes the footer and closes the file.
	Close() error

	// Path returns the file path of the session.
	Path() string
}

// ParquetWriter implements TableWriter with the Arrow Parquet writer.
type ParquetWriter struct {
	mem               memory.Allocator
	maxRowGroupLength int64
	dictionary        bool
}

// ParquetOption configures a ParquetWriter.
type ParquetOption func(*ParquetWriter)

// WithAllocator sets the allocator used for encoding buffers.
func WithAllocator(mem memory.Allocator) ParquetOption {
	return func(w *ParquetWriter) {
		w.mem = mem
	}
}

// WithMaxRowGroupLength sets the maximum rows per row group.
func WithMaxRowGroupLength(n int64) ParquetOption {
	return func(w *ParquetWriter) {
		if n > 0 {
			w.maxRowGroupLength = n
		}
	}
}

// WithDictionary toggles dictionary encoding.
func WithDictionary(enabled bool) ParquetOption {
	return func(w *ParquetWriter) {
		w.dictionary = enabled
	}
}

// NewParquetWriter creates a ParquetWriter with dictionary encoding enabled
// and DefaultMaxRowGroupLength rows per row group.
func NewParquetWriter(opts ...ParquetOption) *ParquetWriter {
	w := &ParquetWriter{
		mem:               memory.NewGoAllocator(),
		maxRowGroupLength: DefaultMaxRowGroupLength,
		dictionary:        true,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Codec maps a Compression onto the Parquet codec. Lz4 uses the raw LZ4 block
// codec, the non-deprecated Parquet LZ4 variant.
func Codec(c types.Compression) (compress.Compression, error) {
	switch c {
	case types.CompressionNone:
		return compress.Codecs.Uncompressed, nil
	case types.CompressionSnappy:
		return compress.Codecs.Snappy, nil
	case types.CompressionGzip:
		return compress.Codecs.Gzip, nil
	case types.CompressionLz4:
		return compress.Codecs.Lz4Raw, nil
	case types.CompressionZstd:
		return compress.Codecs.Zstd, nil
	default:
		return compress.Codecs.Uncompressed, generrors.NewConfigurationError(generrors.CodeInvalidCompression,
			fmt.Sprintf("unknown compression %q", c))
	}
}

func (w *ParquetWriter) properties(codec compress.Compression) *parquet.WriterProperties {
	return parquet.NewWriterProperties(
		parquet.WithCompression(codec),
		parquet.WithDictionaryDefault(w.dictionary),
		parquet.WithMaxRowGroupLength(w.maxRowGroupLength),
		parquet.WithAllocator(w.mem),
		parquet.WithCreatedBy("vecgen"),
	)
}

// Open creates the file and the Parquet writer on top of it.
func (w *ParquetWriter) Open(path string, schema *arrow.Schema, compression types.Compression) (Session, error) {
	codec, err := Codec(compression)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, generrors.NewIOError(generrors.CodeCreateFailed, "failed to create table file", err)
	}

	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithStoreSchema(),
		pqarrow.WithAllocator(w.mem),
	)
	fw, err := pqarrow.NewFileWriter(schema, f, w.properties(codec), arrowProps)
	if err != nil {
		f.Close()
		return nil, generrors.NewIOError(generrors.CodeCreateFailed, "failed to create parquet writer", err)
	}

	return &parquetSession{
		path:   path,
		file:   f,
		writer: fw,
	}, nil
}

type parquetSession struct {
	path   string
	file   *os.File
	writer *pqarrow.FileWriter
	closed bool
}

func (s *parquetSession) Path() string {
	return s.path
}

func (s *parquetSession) Write(rec arrow.Record) error {
	if s.closed {
		return generrors.NewIOError(generrors.CodeWriteFailed, "write after close", os.ErrClosed)
	}
	if err := s.writer.WriteBuffered(rec); err != nil {
		return generrors.NewIOError(generrors.CodeWriteFailed, "failed to write batch", err)
	}
	return nil
}

func (s *parquetSession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	werr := s.writer.Close()
	// The Parquet writer closes its sink; a second close only reports ErrClosed.
	ferr := s.file.Close()
	if errors.Is(ferr, os.ErrClosed) {
		ferr = nil
	}
	if err := errors.Join(werr, ferr); err != nil {
		return generrors.NewIOError(generrors.CodeCloseFailed, "failed to finalize table file", err)
	}
	return nil
}

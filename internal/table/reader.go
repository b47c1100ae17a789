package table

import (
	"context"
	"fmt"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	generrors "github.com/arkilian/vecgen/internal/errors"
	"github.com/arkilian/vecgen/pkg/types"
)

// Contents holds the rows of a table file in file order.
type Contents struct {
	Vectors [][]byte
	Scalars []string
}

// NumRows returns the number of rows read.
func (c *Contents) NumRows() int {
	return len(c.Scalars)
}

// FileInfo summarises the physical layout of a table file.
type FileInfo struct {
	NumRows      int64
	NumRowGroups int
	Codec        string
	Columns      []string
}

// ReadFile loads every row of a table file written by ParquetWriter.
func ReadFile(ctx context.Context, path string) (*Contents, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, generrors.NewIOError(generrors.CodeReadFailed, "failed to open table file", err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, generrors.NewIOError(generrors.CodeReadFailed, "failed to read table file", err)
	}
	defer tbl.Release()

	vecIdx := tbl.Schema().FieldIndices(types.VectorColumn)
	scalarIdx := tbl.Schema().FieldIndices(types.ScalarColumn)
	if len(vecIdx) != 1 || len(scalarIdx) != 1 {
		return nil, generrors.NewEncodingError(generrors.CodeSchemaMismatch,
			fmt.Sprintf("unexpected schema %s", tbl.Schema()))
	}

	out := &Contents{
		Vectors: make([][]byte, 0, tbl.NumRows()),
		Scalars: make([]string, 0, tbl.NumRows()),
	}
	for _, chunk := range tbl.Column(vecIdx[0]).Data().Chunks() {
		if err := appendBinary(&out.Vectors, chunk); err != nil {
			return nil, err
		}
	}
	for _, chunk := range tbl.Column(scalarIdx[0]).Data().Chunks() {
		if err := appendString(&out.Scalars, chunk); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func appendBinary(dst *[][]byte, chunk arrow.Array) error {
	switch arr := chunk.(type) {
	case *array.Binary:
		for i := 0; i < arr.Len(); i++ {
			*dst = append(*dst, append([]byte(nil), arr.Value(i)...))
		}
	case *array.LargeBinary:
		for i := 0; i < arr.Len(); i++ {
			*dst = append(*dst, append([]byte(nil), arr.Value(i)...))
		}
	default:
		return generrors.NewEncodingError(generrors.CodeSchemaMismatch,
			fmt.Sprintf("vector column has type %s", chunk.DataType()))
	}
	return nil
}

func appendString(dst *[]string, chunk arrow.Array) error {
	switch arr := chunk.(type) {
	case *array.String:
		for i := 0; i < arr.Len(); i++ {
			*dst = append(*dst, arr.Value(i))
		}
	case *array.LargeString:
		for i := 0; i < arr.Len(); i++ {
			*dst = append(*dst, arr.Value(i))
		}
	default:
		return generrors.NewEncodingError(generrors.CodeSchemaMismatch,
			fmt.Sprintf("scalar column has type %s", chunk.DataType()))
	}
	return nil
}

// Inspect reads only the footer of a table file.
func Inspect(path string) (*FileInfo, error) {
	rdr, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, generrors.NewIOError(generrors.CodeReadFailed, "failed to open table file", err)
	}
	defer rdr.Close()

	md := rdr.MetaData()
	info := &FileInfo{
		NumRows:      rdr.NumRows(),
		NumRowGroups: rdr.NumRowGroups(),
	}
	for i := 0; i < md.Schema.NumColumns(); i++ {
		info.Columns = append(info.Columns, md.Schema.Column(i).Name())
	}
	if rdr.NumRowGroups() > 0 {
		cc, err := md.RowGroup(0).ColumnChunk(0)
		if err != nil {
			return nil, generrors.NewIOError(generrors.CodeReadFailed, "failed to read column chunk metadata", err)
		}
		info.Codec = cc.Compression().String()
	}
	return info, nil
}

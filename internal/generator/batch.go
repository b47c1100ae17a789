package generator

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	generrors "github.com/arkilian/vecgen/internal/errors"
)

// BatchAssembler packs rows drawn from a RowGenerator into two-column Arrow
// records. Every record it returns shares TableSchema.
type BatchAssembler struct {
	mem    memory.Allocator
	schema *arrow.Schema
	vecBuf []byte
}

// NewBatchAssembler creates an assembler. A nil allocator selects the Go
// allocator.
func NewBatchAssembler(mem memory.Allocator) *BatchAssembler {
	if mem == nil {
		mem = memory.NewGoAllocator()
	}
	return &BatchAssembler{
		mem:    mem,
		schema: TableSchema(),
	}
}

// Schema returns the schema of every assembled record.
func (a *BatchAssembler) Schema() *arrow.Schema {
	return a.schema
}

// Assemble draws count rows from gen, in order, and returns them as one
// record. The caller owns the record and must Release it. count == 0 yields
// an empty record with the full schema.
func (a *BatchAssembler) Assemble(gen *RowGenerator, count int) (arrow.Record, error) {
	if count < 0 {
		return nil, generrors.NewEncodingError(generrors.CodeLengthMismatch,
			fmt.Sprintf("batch row count must not be negative, got %d", count))
	}

	vb := array.NewBinaryBuilder(a.mem, arrow.BinaryTypes.Binary)
	defer vb.Release()
	sb := array.NewStringBuilder(a.mem)
	defer sb.Release()

	vb.Reserve(count)
	vb.ReserveData(count * gen.VectorBytes())
	sb.Reserve(count)
	sb.ReserveData(count * gen.ScalarLen())

	for i := 0; i < count; i++ {
		a.vecBuf = gen.AppendVector(a.vecBuf[:0])
		vb.Append(a.vecBuf)
		sb.Append(gen.NextScalar())
	}

	vectors := vb.NewArray()
	defer vectors.Release()
	scalars := sb.NewArray()
	defer scalars.Release()

	cols := []arrow.Array{vectors, scalars}
	if err := ValidateColumns(a.schema, cols, int64(count)); err != nil {
		return nil, err
	}
	return array.NewRecord(a.schema, cols, int64(count)), nil
}

// ValidateColumns checks that cols match schema field by field and all hold
// rows values without nulls. A failure means the assembler itself is broken.
func ValidateColumns(schema *arrow.Schema, cols []arrow.Array, rows int64) error {
	if len(cols) != schema.NumFields() {
		return generrors.NewEncodingError(generrors.CodeSchemaMismatch,
			fmt.Sprintf("expected %d columns, got %d", schema.NumFields(), len(cols)))
	}
	for i, col := range cols {
		field := schema.Field(i)
		if !arrow.TypeEqual(field.Type, col.DataType()) {
			return generrors.NewEncodingError(generrors.CodeSchemaMismatch,
				fmt.Sprintf("column %q: expected type %s, got %s", field.Name, field.Type, col.DataType()))
		}
		if int64(col.Len()) != rows {
			return generrors.NewEncodingError(generrors.CodeLengthMismatch,
				fmt.Sprintf("column %q: expected %d values, got %d", field.Name, rows, col.Len()))
		}
		if !field.Nullable && col.NullN() > 0 {
			return generrors.NewEncodingError(generrors.CodeSchemaMismatch,
				fmt.Sprintf("column %q: %d nulls in non-nullable column", field.Name, col.NullN()))
		}
	}
	return nil
}

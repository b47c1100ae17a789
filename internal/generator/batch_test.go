package generator

import (
	"bytes"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	generrors "github.com/arkilian/vecgen/internal/errors"
)

func TestBatchAssembler_Assemble(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	asm := NewBatchAssembler(mem)
	g := NewRowGenerator(42, 16, 8)

	rec, err := asm.Assemble(g, 10)
	if err != nil {
		t.Fatalf("Assemble failed: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 10 {
		t.Errorf("NumRows = %d, want 10", rec.NumRows())
	}
	if rec.NumCols() != 2 {
		t.Errorf("NumCols = %d, want 2", rec.NumCols())
	}
	if rec.ColumnName(0) != "vector" || rec.ColumnName(1) != "scalar" {
		t.Errorf("column names = %q, %q", rec.ColumnName(0), rec.ColumnName(1))
	}

	// Rows are packed in draw order.
	ref := NewRowGenerator(42, 16, 8)
	vectors := rec.Column(0).(*array.Binary)
	scalars := rec.Column(1).(*array.String)
	for i := 0; i < 10; i++ {
		want := ref.Next()
		if !bytes.Equal(vectors.Value(i), want.Vector) {
			t.Fatalf("row %d vector mismatch", i)
		}
		if scalars.Value(i) != want.Scalar {
			t.Fatalf("row %d scalar = %q, want %q", i, scalars.Value(i), want.Scalar)
		}
	}
}

func TestBatchAssembler_ConsecutiveBatchesContinueSequence(t *testing.T) {
	asm := NewBatchAssembler(nil)
	g := NewRowGenerator(5, 4, 4)

	first, err := asm.Assemble(g, 2)
	if err != nil {
		t.Fatal(err)
	}
	defer first.Release()
	second, err := asm.Assemble(g, 3)
	if err != nil {
		t.Fatal(err)
	}
	defer second.Release()

	ref := NewRowGenerator(5, 4, 4)
	for _, rec := range []arrow.Record{first, second} {
		scalars := rec.Column(1).(*array.String)
		for i := 0; i < scalars.Len(); i++ {
			want := ref.Next()
			if scalars.Value(i) != want.Scalar {
				t.Fatalf("scalar = %q, want %q", scalars.Value(i), want.Scalar)
			}
		}
	}
}

func TestBatchAssembler_EmptyBatch(t *testing.T) {
	asm := NewBatchAssembler(nil)
	rec, err := asm.Assemble(NewRowGenerator(1, 4, 4), 0)
	if err != nil {
		t.Fatalf("Assemble(0) failed: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 0 {
		t.Errorf("NumRows = %d, want 0", rec.NumRows())
	}
	if !rec.Schema().Equal(TableSchema()) {
		t.Errorf("schema = %s, want %s", rec.Schema(), TableSchema())
	}
}

func TestBatchAssembler_NegativeCount(t *testing.T) {
	asm := NewBatchAssembler(nil)
	_, err := asm.Assemble(NewRowGenerator(1, 4, 4), -1)
	if generrors.GetCategory(err) != generrors.ErrCategoryEncoding {
		t.Errorf("expected ENCODING error, got %v", err)
	}
}

func TestValidateColumns(t *testing.T) {
	mem := memory.NewGoAllocator()
	schema := TableSchema()

	vb := array.NewBinaryBuilder(mem, arrow.BinaryTypes.Binary)
	vb.Append([]byte{1, 2, 3, 4})
	vectors := vb.NewArray()
	defer vectors.Release()
	vb.Release()

	sb := array.NewStringBuilder(mem)
	sb.Append("a")
	sb.Append("b")
	scalars := sb.NewArray()
	defer scalars.Release()
	sb.Release()

	err := ValidateColumns(schema, []arrow.Array{vectors, scalars}, 1)
	if generrors.GetCode(err) != generrors.CodeLengthMismatch {
		t.Errorf("expected LENGTH_MISMATCH, got %v", err)
	}

	err = ValidateColumns(schema, []arrow.Array{scalars, vectors}, 1)
	if generrors.GetCode(err) != generrors.CodeSchemaMismatch {
		t.Errorf("expected SCHEMA_MISMATCH for swapped columns, got %v", err)
	}

	err = ValidateColumns(schema, []arrow.Array{vectors}, 1)
	if generrors.GetCode(err) != generrors.CodeSchemaMismatch {
		t.Errorf("expected SCHEMA_MISMATCH for missing column, got %v", err)
	}
}

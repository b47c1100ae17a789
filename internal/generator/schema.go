package generator

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/arkilian/vecgen/pkg/types"
)

// ArrowSchema converts a table schema into the Arrow schema handed to table
// writers.
func ArrowSchema(s types.Schema) (*arrow.Schema, error) {
	fields := make([]arrow.Field, 0, len(s.Columns))
	for _, col := range s.Columns {
		var dt arrow.DataType
		switch col.Type {
		case "BINARY":
			dt = arrow.BinaryTypes.Binary
		case "UTF8":
			dt = arrow.BinaryTypes.String
		default:
			return nil, fmt.Errorf("generator: unsupported column type %q for %s", col.Type, col.Name)
		}
		fields = append(fields, arrow.Field{Name: col.Name, Type: dt, Nullable: col.Nullable})
	}
	return arrow.NewSchema(fields, nil), nil
}

// tableSchema is the Arrow form of types.TableSchema.
var tableSchema = mustArrowSchema(types.TableSchema())

func mustArrowSchema(s types.Schema) *arrow.Schema {
	as, err := ArrowSchema(s)
	if err != nil {
		panic(err)
	}
	return as
}

// TableSchema returns the fixed Arrow schema: vector (binary), scalar (utf8).
func TableSchema() *arrow.Schema {
	return tableSchema
}

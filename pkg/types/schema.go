package types

// Column names of the table file schema, in column order.
const (
	VectorColumn = "vector"
	ScalarColumn = "scalar"
)

// Schema describes the columns of a generated table file.
type Schema struct {
	// Version tracks schema changes of the generated files
	Version int `json:"version"`

	// Columns defines the columns in the schema
	Columns []ColumnDef `json:"columns"`
}

// ColumnDef defines a single column in the schema.
type ColumnDef struct {
	// Name is the column name
	Name string `json:"name"`

	// Type is the logical type: BINARY or UTF8
	Type string `json:"type"`

	// Nullable indicates whether the column can contain NULL values
	Nullable bool `json:"nullable"`
}

// TableSchema returns the fixed two-column schema shared by every file of a run.
func TableSchema() Schema {
	return Schema{
		Version: 1,
		Columns: []ColumnDef{
			{Name: VectorColumn, Type: "BINARY", Nullable: false},
			{Name: ScalarColumn, Type: "UTF8", Nullable: false},
		},
	}
}

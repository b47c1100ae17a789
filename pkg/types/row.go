// Package types provides the core data types shared by vecgen packages.
package types

// Row is one generated record. It only exists while a batch is assembled and
// is never persisted as an object.
type Row struct {
	// Vector holds VectorDim little-endian float32 values (4*VectorDim bytes)
	Vector []byte `json:"vector"`

	// Scalar is a ScalarLen alphanumeric string
	Scalar string `json:"scalar"`
}

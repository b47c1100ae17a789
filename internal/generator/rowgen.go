// Package generator produces deterministic pseudo-random rows and packs them
// into columnar Arrow batches.
package generator

import (
	"encoding/binary"
	"math"
	"math/rand/v2"

	"github.com/arkilian/vecgen/pkg/types"
)

// Alphabet is the character set scalar strings are drawn from.
const Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// pcgStream is mixed into the second PCG seed word so that seed 0 does not
// start from an all-zero state.
const pcgStream = 0x9e3779b97f4a7c15

// RowGenerator produces an unbounded sequence of rows from a 64-bit seed.
// Two generators built from the same seed and shape yield identical
// sequences on every platform. The only way to restart a sequence is to
// construct a new generator.
type RowGenerator struct {
	rng       *rand.Rand
	vectorDim int
	scalarLen int
	scratch   []byte
}

// NewRowGenerator creates a generator for vectors of vectorDim float32 values
// and scalars of scalarLen characters.
func NewRowGenerator(seed uint64, vectorDim, scalarLen int) *RowGenerator {
	return &RowGenerator{
		rng:       rand.New(rand.NewPCG(seed, seed^pcgStream)),
		vectorDim: vectorDim,
		scalarLen: scalarLen,
	}
}

// NewRowGeneratorForFile seeds a generator for file index i of cfg.
func NewRowGeneratorForFile(cfg types.GenerationConfig, i int) *RowGenerator {
	return NewRowGenerator(types.FileSeed(cfg.Seed, i), cfg.VectorDim, cfg.ScalarLen)
}

// VectorBytes is the encoded size of one vector.
func (g *RowGenerator) VectorBytes() int {
	return 4 * g.vectorDim
}

// ScalarLen is the length of one scalar.
func (g *RowGenerator) ScalarLen() int {
	return g.scalarLen
}

// NextVector draws vectorDim uniform samples in [-1.0, 1.0) and returns them
// as little-endian IEEE-754 float32 bytes.
func (g *RowGenerator) NextVector() []byte {
	return g.AppendVector(make([]byte, 0, g.VectorBytes()))
}

// AppendVector is NextVector writing into dst.
func (g *RowGenerator) AppendVector(dst []byte) []byte {
	var word [4]byte
	for i := 0; i < g.vectorDim; i++ {
		// Float32 is in [0, 1 - 2^-24]; doubling and shifting stays exact in
		// float32 and never reaches 1.0.
		v := g.rng.Float32()*2 - 1
		binary.LittleEndian.PutUint32(word[:], math.Float32bits(v))
		dst = append(dst, word[:]...)
	}
	return dst
}

// NextScalar draws scalarLen characters uniformly from Alphabet.
func (g *RowGenerator) NextScalar() string {
	if cap(g.scratch) < g.scalarLen {
		g.scratch = make([]byte, g.scalarLen)
	}
	buf := g.scratch[:g.scalarLen]
	for i := range buf {
		buf[i] = Alphabet[g.rng.IntN(len(Alphabet))]
	}
	return string(buf)
}

// Next draws one row: the vector first, then the scalar.
func (g *RowGenerator) Next() types.Row {
	vec := g.NextVector()
	return types.Row{Vector: vec, Scalar: g.NextScalar()}
}

// DecodeVector converts an encoded vector back into float32 values.
func DecodeVector(b []byte) []float32 {
	out := make([]float32, len(b)/4)
	for i := range out {
		out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return out
}

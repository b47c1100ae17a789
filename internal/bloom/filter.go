// Package bloom implements the membership filter embedded in metadata
// sidecars. A filter built over a file's scalar column answers "might this
// file contain scalar s" without reading the table file.
package bloom

import (
	"math"
	"sync"

	"github.com/spaolacci/murmur3"
)

// Algorithm names the hashing scheme recorded in serialized filters.
const Algorithm = "murmur3_128"

// DefaultFalsePositiveRate is used when a caller passes an out-of-range rate.
const DefaultFalsePositiveRate = 0.01

// Filter is a bit-array bloom filter using double hashing over a 128-bit
// murmur3 digest. Adding an item never produces a false negative.
type Filter struct {
	mu        sync.RWMutex
	bits      []uint64
	numBits   uint64
	numHashes uint64
	count     uint64
}

// New creates a filter with at least numBits bits (rounded up to a multiple
// of 64) and numHashes probes per item.
func New(numBits, numHashes int) *Filter {
	if numBits < 64 {
		numBits = 64
	}
	if numHashes <= 0 {
		numHashes = 1
	}
	words := (numBits + 63) / 64
	return &Filter{
		bits:      make([]uint64, words),
		numBits:   uint64(words * 64),
		numHashes: uint64(numHashes),
	}
}

// NewForRows sizes a filter for the expected number of rows of one file.
func NewForRows(expectedRows int64, fpr float64) *Filter {
	bits, hashes := Parameters(expectedRows, fpr)
	return New(bits, hashes)
}

// Parameters returns the bit count m = -n*ln(p)/ln(2)^2 and probe count
// k = (m/n)*ln(2) for n expected items at false positive rate p.
func Parameters(expectedItems int64, fpr float64) (numBits, numHashes int) {
	if expectedItems <= 0 {
		expectedItems = 1
	}
	if fpr <= 0 || fpr >= 1 {
		fpr = DefaultFalsePositiveRate
	}

	n := float64(expectedItems)
	m := -n * math.Log(fpr) / (math.Ln2 * math.Ln2)
	k := (m / n) * math.Ln2

	numBits = int(math.Ceil(m))
	numHashes = int(math.Ceil(k))
	if numBits < 64 {
		numBits = 64
	}
	if numHashes < 1 {
		numHashes = 1
	}
	return numBits, numHashes
}

// Add inserts item.
func (f *Filter) Add(item []byte) {
	h1, h2 := murmur3.Sum128(item)

	f.mu.Lock()
	defer f.mu.Unlock()
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		f.bits[pos/64] |= 1 << (pos % 64)
	}
	f.count++
}

// AddString inserts s without copying it into a new slice at the call site.
func (f *Filter) AddString(s string) {
	f.Add([]byte(s))
}

// Contains reports whether item might have been added. A false result is
// definitive.
func (f *Filter) Contains(item []byte) bool {
	h1, h2 := murmur3.Sum128(item)

	f.mu.RLock()
	defer f.mu.RUnlock()
	for i := uint64(0); i < f.numHashes; i++ {
		pos := (h1 + i*h2) % f.numBits
		if f.bits[pos/64]&(1<<(pos%64)) == 0 {
			return false
		}
	}
	return true
}

// ContainsString is Contains for string items.
func (f *Filter) ContainsString(s string) bool {
	return f.Contains([]byte(s))
}

func (f *Filter) NumBits() int   { return int(f.numBits) }
func (f *Filter) NumHashes() int { return int(f.numHashes) }

// Count returns the number of Add calls.
func (f *Filter) Count() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.count
}

// EstimatedFalsePositiveRate evaluates (1 - e^(-k*n/m))^k for the current fill.
func (f *Filter) EstimatedFalsePositiveRate() float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.count == 0 {
		return 0
	}
	k := float64(f.numHashes)
	n := float64(f.count)
	m := float64(f.numBits)
	return math.Pow(1-math.Exp(-k*n/m), k)
}

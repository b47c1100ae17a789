package bloom

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/golang/snappy"
)

const headerSize = 24

// Encoded is the JSON form of a filter stored in a metadata sidecar. Data is
// base64 of a 24-byte little-endian header (bits, hashes, count) followed by
// the snappy-compressed bit array.
type Encoded struct {
	Algorithm string `json:"algorithm"`
	NumBits   int    `json:"num_bits"`
	NumHashes int    `json:"num_hashes"`
	Count     uint64 `json:"count"`
	Data      string `json:"data"`
}

// MarshalBinary returns the header followed by the snappy-compressed bits.
func (f *Filter) MarshalBinary() ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	raw := make([]byte, len(f.bits)*8)
	for i, word := range f.bits {
		binary.LittleEndian.PutUint64(raw[i*8:], word)
	}
	compressed := snappy.Encode(nil, raw)

	buf := make([]byte, headerSize+len(compressed))
	binary.LittleEndian.PutUint64(buf[0:8], f.numBits)
	binary.LittleEndian.PutUint64(buf[8:16], f.numHashes)
	binary.LittleEndian.PutUint64(buf[16:24], f.count)
	copy(buf[headerSize:], compressed)
	return buf, nil
}

// UnmarshalBinary restores a filter produced by MarshalBinary.
func (f *Filter) UnmarshalBinary(data []byte) error {
	if len(data) < headerSize {
		return errors.New("bloom: encoded filter too short")
	}
	numBits := binary.LittleEndian.Uint64(data[0:8])
	numHashes := binary.LittleEndian.Uint64(data[8:16])
	count := binary.LittleEndian.Uint64(data[16:24])
	if numBits == 0 || numBits%64 != 0 || numHashes == 0 {
		return fmt.Errorf("bloom: invalid parameters bits=%d hashes=%d", numBits, numHashes)
	}

	raw, err := snappy.Decode(nil, data[headerSize:])
	if err != nil {
		return fmt.Errorf("bloom: snappy decode: %w", err)
	}
	words := numBits / 64
	if uint64(len(raw)) != words*8 {
		return fmt.Errorf("bloom: expected %d bit bytes, got %d", words*8, len(raw))
	}

	bits := make([]uint64, words)
	for i := range bits {
		bits[i] = binary.LittleEndian.Uint64(raw[i*8:])
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.bits = bits
	f.numBits = numBits
	f.numHashes = numHashes
	f.count = count
	return nil
}

// Encode converts the filter to its sidecar representation.
func (f *Filter) Encode() (*Encoded, error) {
	data, err := f.MarshalBinary()
	if err != nil {
		return nil, err
	}
	return &Encoded{
		Algorithm: Algorithm,
		NumBits:   f.NumBits(),
		NumHashes: f.NumHashes(),
		Count:     f.Count(),
		Data:      base64.StdEncoding.EncodeToString(data),
	}, nil
}

// Decode rebuilds a filter from its sidecar representation.
func Decode(e *Encoded) (*Filter, error) {
	if e == nil {
		return nil, errors.New("bloom: nil encoded filter")
	}
	if e.Algorithm != Algorithm {
		return nil, fmt.Errorf("bloom: unsupported algorithm %q", e.Algorithm)
	}
	data, err := base64.StdEncoding.DecodeString(e.Data)
	if err != nil {
		return nil, fmt.Errorf("bloom: invalid base64 data: %w", err)
	}
	f := &Filter{}
	if err := f.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return f, nil
}

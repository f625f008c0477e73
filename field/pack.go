package field

import (
	"fmt"
	"math/big"
)

// PackBytes packs bytes little-endian into elements of BytesPerElement bytes
func PackBytes(data []byte) []*big.Int {
	n := (len(data) + BytesPerElement - 1) / BytesPerElement
	packed := make([]*big.Int, n)
	for i := range packed {
		end := min((i+1)*BytesPerElement, len(data))
		packed[i] = packChunk(data[i*BytesPerElement : end])
	}
	return packed
}

// PackWithLayout packs data into len(layout) elements where element i holds
// layout[i] bytes. Missing trailing bytes are treated as zero.
func PackWithLayout(data []byte, layout []int) []*big.Int {
	packed := make([]*big.Int, len(layout))
	pos := 0
	for i, n := range layout {
		start := min(pos, len(data))
		end := min(pos+n, len(data))
		packed[i] = packChunk(data[start:end])
		pos += n
	}
	return packed
}

// UnpackWithLayout reverses PackWithLayout. Each element must fit in its
// declared byte count.
func UnpackWithLayout(packed []*big.Int, layout []int) ([]byte, error) {
	if len(packed) != len(layout) {
		return nil, fmt.Errorf("expected %d packed elements, got %d", len(layout), len(packed))
	}
	var out []byte
	for i, n := range layout {
		if packed[i] == nil {
			return nil, fmt.Errorf("element %d is missing", i)
		}
		if packed[i].Sign() < 0 || packed[i].BitLen() > n*8 {
			return nil, fmt.Errorf("element %d does not fit in %d bytes", i, n)
		}
		le := make([]byte, n)
		be := packed[i].Bytes()
		for j := range be {
			le[j] = be[len(be)-1-j]
		}
		out = append(out, le...)
	}
	return out, nil
}

func packChunk(chunk []byte) *big.Int {
	v := new(big.Int)
	for j := len(chunk) - 1; j >= 0; j-- {
		v.Lsh(v, 8)
		v.Or(v, big.NewInt(int64(chunk[j])))
	}
	return v
}

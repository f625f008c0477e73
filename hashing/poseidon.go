package hashing

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
)

// MaxArity is the widest Poseidon instance available
const MaxArity = 16

// Poseidon hashes 1 to 16 field elements with the instance matching their count
func Poseidon(elems ...*big.Int) (*big.Int, error) {
	if len(elems) == 0 || len(elems) > MaxArity {
		return nil, fmt.Errorf("%w: poseidon takes 1 to %d inputs, got %d",
			common.ErrTooManyElements, MaxArity, len(elems))
	}
	for _, e := range elems {
		if err := field.Check(e); err != nil {
			return nil, err
		}
	}
	return poseidon.Hash(elems)
}

// CustomHasher hashes an arbitrary number of elements. Fewer than 16 go
// straight to the matching instance; otherwise elements are grouped by 16
// (last group zero padded), each group is hashed with Poseidon16 and the
// group hashes are hashed together.
func CustomHasher(elems []*big.Int) (*big.Int, error) {
	if len(elems) < MaxArity {
		return Poseidon(elems...)
	}

	rounds := (len(elems) + MaxArity - 1) / MaxArity
	if rounds > MaxArity {
		return nil, fmt.Errorf("%w: %d elements need %d rounds, max is %d",
			common.ErrTooManyElements, len(elems), rounds, MaxArity)
	}

	hashes := make([]*big.Int, rounds)
	for i := range rounds {
		group := make([]*big.Int, MaxArity)
		for j := range group {
			if k := i*MaxArity + j; k < len(elems) {
				group[j] = elems[k]
			} else {
				group[j] = new(big.Int)
			}
		}
		h, err := Poseidon(group...)
		if err != nil {
			return nil, fmt.Errorf("round %d: %w", i, err)
		}
		hashes[i] = h
	}
	return Poseidon(hashes...)
}

// PackBytesAndPoseidon packs bytes into 31-byte field elements and hashes
// them with CustomHasher
func PackBytesAndPoseidon(data []byte) (*big.Int, error) {
	return CustomHasher(field.PackBytes(data))
}

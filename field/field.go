// Package field converts between integers, byte buffers and BN254 scalar
// field elements in the layouts the passport circuits expect.
package field

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/iden3/go-iden3-crypto/utils"
	"github.com/mynextid/zk-passport/common"
)

// BytesPerElement is the number of bytes packed into one field element
const BytesPerElement = 31

// Modulus returns the BN254 scalar field modulus
func Modulus() *big.Int {
	return ecc.BN254.ScalarField()
}

// Check returns an error unless 0 <= v < Modulus
func Check(v *big.Int) error {
	if v == nil {
		return fmt.Errorf("%w: nil value", common.ErrFieldOverflow)
	}
	if v.Sign() < 0 || !utils.CheckBigIntInField(v) {
		return fmt.Errorf("%w: %s", common.ErrFieldOverflow, v.String())
	}
	return nil
}

// SplitToWords decomposes v into wordCount little-endian limbs of wordSize
// bits. Values with bits beyond wordSize*wordCount are rejected.
func SplitToWords(v *big.Int, wordSize, wordCount int) ([]*big.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative or nil value", common.ErrIntegerTooLarge)
	}
	if wordSize <= 0 || wordCount <= 0 {
		return nil, fmt.Errorf("invalid word layout %dx%d", wordCount, wordSize)
	}
	if v.BitLen() > wordSize*wordCount {
		return nil, fmt.Errorf("%w: %d bits do not fit in %d words of %d bits",
			common.ErrIntegerTooLarge, v.BitLen(), wordCount, wordSize)
	}

	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), uint(wordSize)), big.NewInt(1))
	t := new(big.Int).Set(v)
	words := make([]*big.Int, wordCount)
	for i := range words {
		words[i] = new(big.Int).And(t, mask)
		t.Rsh(t, uint(wordSize))
	}
	return words, nil
}

// SplitToWordStrings is SplitToWords rendered as decimal strings
func SplitToWordStrings(v *big.Int, wordSize, wordCount int) ([]string, error) {
	words, err := SplitToWords(v, wordSize, wordCount)
	if err != nil {
		return nil, err
	}
	return ToStrings(words), nil
}

// JoinWords is the inverse of SplitToWords
func JoinWords(words []*big.Int, wordSize int) *big.Int {
	out := new(big.Int)
	for i := len(words) - 1; i >= 0; i-- {
		out.Lsh(out, uint(wordSize))
		out.Or(out, words[i])
	}
	return out
}

// ToStrings renders values as decimal strings
func ToStrings(values []*big.Int) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = v.String()
	}
	return out
}

// ParseDecimal parses a non-negative decimal (or 0x-prefixed hex) integer
func ParseDecimal(s string) (*big.Int, error) {
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("%w: negative value %q", common.ErrFieldOverflow, s)
	}
	return v, nil
}

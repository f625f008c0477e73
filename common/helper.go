package common

import (
	"crypto/rand"
	"math/big"
)

// LeftPad pads b with leading zeros up to size bytes
func LeftPad(b []byte, size int) []byte {
	if len(b) >= size {
		return b
	}
	padded := make([]byte, size)
	copy(padded[size-len(b):], b)
	return padded
}

// GenerateRandomBytes returns cryptographically secure random bytes
func GenerateRandomBytes(size int) ([]byte, error) {
	randomBytes := make([]byte, size)
	_, err := rand.Read(randomBytes)
	if err != nil {
		return nil, err
	}
	return randomBytes, nil
}

// GenerateSecret returns a random value below 2^248, which always fits the
// BN254 scalar field
func GenerateSecret() (*big.Int, error) {
	b, err := GenerateRandomBytes(31)
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(b), nil
}

// BytesToInts widens bytes to ints, the representation circuit inputs use
func BytesToInts(b []byte) []int {
	out := make([]int, len(b))
	for i, v := range b {
		out[i] = int(v)
	}
	return out
}

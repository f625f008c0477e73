package certificate

import (
	"crypto/ecdsa"
	"crypto/rsa"
	"math/big"

	"github.com/mynextid/zk-passport/hashing"
)

// PublicKey is one of *RSAPublicKey, *RSAPSSPublicKey or *ECDSAPublicKey
type PublicKey interface {
	Family() Family
	Bits() int
	isPublicKey()
}

type RSAPublicKey struct {
	Modulus  *big.Int
	Exponent int
	// bits is len(modulus bytes) * 8 as found in the encoding
	bits int
}

func (k *RSAPublicKey) Family() Family { return RSA }
func (k *RSAPublicKey) Bits() int {
	if k.bits == 0 {
		return (k.Modulus.BitLen() + 7) / 8 * 8
	}
	return k.bits
}
func (*RSAPublicKey) isPublicKey() {}

// Std converts the key for crypto/rsa
func (k *RSAPublicKey) Std() *rsa.PublicKey {
	return &rsa.PublicKey{N: k.Modulus, E: k.Exponent}
}

// RSAPSSPublicKey is an RSA key bound to RSASSA-PSS parameters
type RSAPSSPublicKey struct {
	RSAPublicKey
	Hash       hashing.Function
	MGFHash    hashing.Function
	SaltLength int
}

func (k *RSAPSSPublicKey) Family() Family { return RSAPSS }
func (*RSAPSSPublicKey) isPublicKey()     {}

type ECDSAPublicKey struct {
	Curve *Curve
	X, Y  *big.Int
}

func (k *ECDSAPublicKey) Family() Family { return ECDSA }
func (k *ECDSAPublicKey) Bits() int      { return k.Curve.Bits }
func (*ECDSAPublicKey) isPublicKey()     {}

// Std converts the key for crypto/ecdsa. It returns nil for curves the
// standard library does not implement.
func (k *ECDSAPublicKey) Std() *ecdsa.PublicKey {
	if k.Curve.std == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: k.Curve.std, X: k.X, Y: k.Y}
}

// Uncompressed returns the 04 || X || Y encoding
func (k *ECDSAPublicKey) Uncompressed() []byte {
	n := k.Curve.ByteLen()
	out := make([]byte, 1+2*n)
	out[0] = 0x04
	k.X.FillBytes(out[1 : 1+n])
	k.Y.FillBytes(out[1+n:])
	return out
}

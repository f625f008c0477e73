package certificate

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
)

// RSA limbs used by the register and dsc circuits
const (
	RSAWordSize  = 120
	RSAWordCount = 35
)

// WordLayout returns the limb size in bits and the limb count of one key
// component for pub
func WordLayout(pub PublicKey) (size, count int) {
	switch pub.Family() {
	case ECDSA:
		if pub.Bits() == 521 {
			return 66, 8
		}
		return 64, (pub.Bits() + 63) / 64
	default:
		return RSAWordSize, RSAWordCount
	}
}

// KeyWords splits a public key into circuit limbs: the modulus for RSA keys,
// x limbs followed by y limbs for ECDSA keys
func KeyWords(pub PublicKey) ([]*big.Int, error) {
	size, count := WordLayout(pub)
	switch k := pub.(type) {
	case *RSAPublicKey:
		return field.SplitToWords(k.Modulus, size, count)
	case *RSAPSSPublicKey:
		return field.SplitToWords(k.Modulus, size, count)
	case *ECDSAPublicKey:
		return splitPair(k.X, k.Y, size, count)
	default:
		return nil, fmt.Errorf("%w: %T", common.ErrUnsupportedSignatureAlgorithm, pub)
	}
}

type ecdsaSignature struct {
	R, S *big.Int
}

// SignatureWords splits a signature made by pub into circuit limbs. ECDSA
// signatures are DER SEQUENCE{r, s} and yield r limbs followed by s limbs.
func SignatureWords(pub PublicKey, signature []byte) ([]*big.Int, error) {
	size, count := WordLayout(pub)
	if pub.Family() != ECDSA {
		return field.SplitToWords(new(big.Int).SetBytes(signature), size, count)
	}
	var sig ecdsaSignature
	if _, err := asn1.Unmarshal(signature, &sig); err != nil {
		return nil, fmt.Errorf("%w: ecdsa signature: %v", common.ErrInvalidSignature, err)
	}
	return splitPair(sig.R, sig.S, size, count)
}

func splitPair(a, b *big.Int, size, count int) ([]*big.Int, error) {
	wa, err := field.SplitToWords(a, size, count)
	if err != nil {
		return nil, err
	}
	wb, err := field.SplitToWords(b, size, count)
	if err != nil {
		return nil, err
	}
	return append(wa, wb...), nil
}

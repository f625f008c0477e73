package certificate

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/rsa"
	"fmt"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
)

var cryptoHashes = map[hashing.Function]crypto.Hash{
	hashing.SHA1:   crypto.SHA1,
	hashing.SHA224: crypto.SHA224,
	hashing.SHA256: crypto.SHA256,
	hashing.SHA384: crypto.SHA384,
	hashing.SHA512: crypto.SHA512,
}

// Verify checks signature over message with the certificate key, using the
// scheme implied by the key type and hash h
func (c *Certificate) Verify(message, signature []byte, h hashing.Function) error {
	return c.VerifySignature(c.PublicKey.Family(), h, message, signature)
}

// VerifySignature checks signature over message using an explicit scheme.
// An RSA key may verify RSASSA-PSS signatures. MGF1 always uses h. ECDSA on
// curves without a standard library implementation is reported as
// unsupported.
func (c *Certificate) VerifySignature(family Family, h hashing.Function, message, signature []byte) error {
	ch, ok := cryptoHashes[h]
	if !ok {
		return fmt.Errorf("%w: hash %v", common.ErrUnsupportedSignatureAlgorithm, h)
	}
	digest := h.Sum(message)

	switch k := c.PublicKey.(type) {
	case *RSAPublicKey:
		return verifyRSA(k.Std(), family, ch, digest, signature)
	case *RSAPSSPublicKey:
		return verifyRSA(k.Std(), RSAPSS, ch, digest, signature)
	case *ECDSAPublicKey:
		pub := k.Std()
		if pub == nil {
			return fmt.Errorf("%w: signature verification on %s", common.ErrUnsupportedSignatureAlgorithm, k.Curve.Name)
		}
		if !ecdsa.VerifyASN1(pub, digest, signature) {
			return common.ErrInvalidSignature
		}
		return nil
	default:
		return fmt.Errorf("%w: %T", common.ErrUnsupportedSignatureAlgorithm, c.PublicKey)
	}
}

func verifyRSA(pub *rsa.PublicKey, family Family, ch crypto.Hash, digest, signature []byte) error {
	var err error
	if family == RSAPSS {
		err = rsa.VerifyPSS(pub, ch, digest, signature, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthAuto, Hash: ch})
	} else {
		err = rsa.VerifyPKCS1v15(pub, ch, digest, signature)
	}
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrInvalidSignature, err)
	}
	return nil
}

// CheckSignatureFrom verifies that parent signed c
func (c *Certificate) CheckSignatureFrom(parent *Certificate) error {
	return parent.VerifySignature(c.SignatureAlgorithm.Family, c.SignatureAlgorithm.Hash, c.RawTBS, c.Signature)
}

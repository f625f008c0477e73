package certificate

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"time"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
)

// KeySpec selects the key of a mock signing chain
type KeySpec struct {
	Family Family
	Hash   hashing.Function
	// Bits is the RSA modulus size
	Bits int
	// Curve is one of secp224r1, secp256r1, secp384r1, secp521r1
	Curve string
}

// MockChain is a CSCA and a document signer it issued, with private keys
type MockChain struct {
	CSCA    *Certificate
	DSC     *Certificate
	CSCAKey crypto.Signer
	DSCKey  crypto.Signer
	Spec    KeySpec
}

// GenerateMockChain creates a fresh CSCA and DSC for country. The DSC
// certificate is signed with the KeySpec scheme where crypto/x509 supports it
// and with the sha256 variant otherwise.
func GenerateMockChain(spec KeySpec, country string) (*MockChain, error) {
	cscaKey, err := generateKey(spec)
	if err != nil {
		return nil, err
	}
	dscKey, err := generateKey(spec)
	if err != nil {
		return nil, err
	}
	sigAlg := x509SignatureAlgorithm(spec)

	now := time.Now()
	cscaTemplate := &x509.Certificate{
		SerialNumber:          big.NewInt(1),
		Subject:               pkix.Name{CommonName: "Mock CSCA", Country: []string{country}},
		NotBefore:             now.Add(-24 * time.Hour),
		NotAfter:              now.Add(10 * 365 * 24 * time.Hour),
		KeyUsage:              x509.KeyUsageCertSign | x509.KeyUsageCRLSign,
		BasicConstraintsValid: true,
		IsCA:                  true,
		SignatureAlgorithm:    sigAlg,
	}
	cscaDER, err := x509.CreateCertificate(rand.Reader, cscaTemplate, cscaTemplate, cscaKey.Public(), cscaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create csca: %w", err)
	}
	cscaX509, err := x509.ParseCertificate(cscaDER)
	if err != nil {
		return nil, err
	}

	dscTemplate := &x509.Certificate{
		SerialNumber:       big.NewInt(2),
		Subject:            pkix.Name{CommonName: "Mock Document Signer", Country: []string{country}},
		NotBefore:          now.Add(-time.Hour),
		NotAfter:           now.Add(3 * 365 * 24 * time.Hour),
		KeyUsage:           x509.KeyUsageDigitalSignature,
		SubjectKeyId:       []byte{0xd5, 0xc0, 0x01},
		SignatureAlgorithm: sigAlg,
	}
	dscDER, err := x509.CreateCertificate(rand.Reader, dscTemplate, cscaX509, dscKey.Public(), cscaKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create dsc: %w", err)
	}

	chain := &MockChain{CSCAKey: cscaKey, DSCKey: dscKey, Spec: spec}
	if chain.CSCA, err = ParseDER(cscaDER); err != nil {
		return nil, err
	}
	if chain.DSC, err = ParseDER(dscDER); err != nil {
		return nil, err
	}
	return chain, nil
}

func generateKey(spec KeySpec) (crypto.Signer, error) {
	switch spec.Family {
	case RSA, RSAPSS:
		bits := spec.Bits
		if bits == 0 {
			bits = 2048
		}
		return rsa.GenerateKey(rand.Reader, bits)
	case ECDSA:
		var c elliptic.Curve
		switch spec.Curve {
		case "secp224r1":
			c = elliptic.P224()
		case "secp256r1", "":
			c = elliptic.P256()
		case "secp384r1":
			c = elliptic.P384()
		case "secp521r1":
			c = elliptic.P521()
		default:
			return nil, fmt.Errorf("%w: mock keys on %s", common.ErrUnsupportedSignatureAlgorithm, spec.Curve)
		}
		return ecdsa.GenerateKey(c, rand.Reader)
	default:
		return nil, fmt.Errorf("%w: family %v", common.ErrUnsupportedSignatureAlgorithm, spec.Family)
	}
}

func x509SignatureAlgorithm(spec KeySpec) x509.SignatureAlgorithm {
	switch spec.Family {
	case RSAPSS:
		switch spec.Hash {
		case hashing.SHA384:
			return x509.SHA384WithRSAPSS
		case hashing.SHA512:
			return x509.SHA512WithRSAPSS
		default:
			return x509.SHA256WithRSAPSS
		}
	case ECDSA:
		switch spec.Hash {
		case hashing.SHA384:
			return x509.ECDSAWithSHA384
		case hashing.SHA512:
			return x509.ECDSAWithSHA512
		default:
			return x509.ECDSAWithSHA256
		}
	default:
		switch spec.Hash {
		case hashing.SHA384:
			return x509.SHA384WithRSA
		case hashing.SHA512:
			return x509.SHA512WithRSA
		default:
			return x509.SHA256WithRSA
		}
	}
}

// Sign signs message with key using family and hash h. RSASSA-PSS uses a
// salt as long as the digest.
func Sign(key crypto.Signer, family Family, h hashing.Function, message []byte) ([]byte, error) {
	ch, ok := cryptoHashes[h]
	if !ok {
		return nil, fmt.Errorf("%w: hash %v", common.ErrUnsupportedSignatureAlgorithm, h)
	}
	digest := h.Sum(message)
	switch family {
	case RSAPSS:
		return key.Sign(rand.Reader, digest, &rsa.PSSOptions{SaltLength: rsa.PSSSaltLengthEqualsHash, Hash: ch})
	default:
		return key.Sign(rand.Reader, digest, ch)
	}
}

package certificate

import (
	"encoding/asn1"
	"fmt"

	"github.com/mynextid/zk-passport/hashing"
)

// Family is the signature scheme family of a key or signature
type Family int

const (
	RSA Family = iota + 1
	RSAPSS
	ECDSA
)

func (f Family) String() string {
	switch f {
	case RSA:
		return "rsa"
	case RSAPSS:
		return "rsapss"
	case ECDSA:
		return "ecdsa"
	default:
		return "unknown"
	}
}

// SignatureAlgorithm is the scheme a certificate was signed with
type SignatureAlgorithm struct {
	Family Family
	Hash   hashing.Function
}

func (s SignatureAlgorithm) String() string {
	return fmt.Sprintf("%s_%s", s.Family, s.Hash)
}

// Algorithm fully describes a signing key as the circuits see it. It is
// comparable and keys the supported algorithm table.
type Algorithm struct {
	Family Family
	Hash   hashing.Function
	// Exponent is set for RSA and RSA-PSS keys
	Exponent int
	// SaltLength is set for RSA-PSS keys
	SaltLength int
	// Curve is set for ECDSA keys
	Curve string
	Bits  int
}

// String renders the legacy algorithm name, e.g. rsa_sha256_65537_2048,
// rsapss_sha256_65537_32_2048 or ecdsa_sha256_secp256r1_256
func (a Algorithm) String() string {
	switch a.Family {
	case RSA:
		return fmt.Sprintf("rsa_%s_%d_%d", a.Hash, a.Exponent, a.Bits)
	case RSAPSS:
		return fmt.Sprintf("rsapss_%s_%d_%d_%d", a.Hash, a.Exponent, a.SaltLength, a.Bits)
	case ECDSA:
		return fmt.Sprintf("ecdsa_%s_%s_%d", a.Hash, a.Curve, a.Bits)
	default:
		return "unknown"
	}
}

// WithHash returns a copy of a using hash h
func (a Algorithm) WithHash(h hashing.Function) Algorithm {
	a.Hash = h
	return a
}

// AlgorithmFor combines a public key with the hash used alongside it
func AlgorithmFor(pub PublicKey, h hashing.Function) Algorithm {
	a := Algorithm{Family: pub.Family(), Hash: h, Bits: pub.Bits()}
	switch k := pub.(type) {
	case *RSAPublicKey:
		a.Exponent = k.Exponent
	case *RSAPSSPublicKey:
		a.Exponent = k.Exponent
		a.SaltLength = k.SaltLength
	case *ECDSAPublicKey:
		a.Curve = k.Curve.Name
	}
	return a
}

// SupportedDSCAlgorithms lists the passport signature algorithms the register
// circuits are compiled for
var SupportedDSCAlgorithms = map[Algorithm]bool{
	{Family: RSA, Hash: hashing.SHA1, Exponent: 65537, Bits: 2048}:                    true,
	{Family: RSA, Hash: hashing.SHA1, Exponent: 65537, Bits: 4096}:                    true,
	{Family: RSA, Hash: hashing.SHA224, Exponent: 65537, Bits: 2048}:                  true,
	{Family: RSA, Hash: hashing.SHA256, Exponent: 3, Bits: 2048}:                      true,
	{Family: RSA, Hash: hashing.SHA256, Exponent: 65537, Bits: 2048}:                  true,
	{Family: RSA, Hash: hashing.SHA256, Exponent: 65537, Bits: 3072}:                  true,
	{Family: RSA, Hash: hashing.SHA256, Exponent: 65537, Bits: 4096}:                  true,
	{Family: RSA, Hash: hashing.SHA384, Exponent: 65537, Bits: 4096}:                  true,
	{Family: RSA, Hash: hashing.SHA512, Exponent: 65537, Bits: 4096}:                  true,
	{Family: RSAPSS, Hash: hashing.SHA256, Exponent: 3, SaltLength: 32, Bits: 2048}:     true,
	{Family: RSAPSS, Hash: hashing.SHA256, Exponent: 65537, SaltLength: 32, Bits: 2048}: true,
	{Family: RSAPSS, Hash: hashing.SHA256, Exponent: 65537, SaltLength: 32, Bits: 3072}: true,
	{Family: RSAPSS, Hash: hashing.SHA256, Exponent: 65537, SaltLength: 32, Bits: 4096}: true,
	{Family: RSAPSS, Hash: hashing.SHA384, Exponent: 65537, SaltLength: 48, Bits: 2048}: true,
	{Family: RSAPSS, Hash: hashing.SHA384, Exponent: 65537, SaltLength: 48, Bits: 3072}: true,
	{Family: RSAPSS, Hash: hashing.SHA512, Exponent: 65537, SaltLength: 64, Bits: 2048}: true,
	{Family: RSAPSS, Hash: hashing.SHA512, Exponent: 65537, SaltLength: 64, Bits: 4096}: true,
	{Family: ECDSA, Hash: hashing.SHA1, Curve: "secp256r1", Bits: 256}:               true,
	{Family: ECDSA, Hash: hashing.SHA224, Curve: "secp224r1", Bits: 224}:             true,
	{Family: ECDSA, Hash: hashing.SHA256, Curve: "secp256r1", Bits: 256}:             true,
	{Family: ECDSA, Hash: hashing.SHA256, Curve: "secp384r1", Bits: 384}:             true,
	{Family: ECDSA, Hash: hashing.SHA384, Curve: "secp384r1", Bits: 384}:             true,
	{Family: ECDSA, Hash: hashing.SHA512, Curve: "secp521r1", Bits: 521}:             true,
	{Family: ECDSA, Hash: hashing.SHA1, Curve: "brainpoolP224r1", Bits: 224}:         true,
	{Family: ECDSA, Hash: hashing.SHA256, Curve: "brainpoolP224r1", Bits: 224}:       true,
	{Family: ECDSA, Hash: hashing.SHA256, Curve: "brainpoolP256r1", Bits: 256}:       true,
	{Family: ECDSA, Hash: hashing.SHA384, Curve: "brainpoolP256r1", Bits: 256}:       true,
	{Family: ECDSA, Hash: hashing.SHA384, Curve: "brainpoolP384r1", Bits: 384}:       true,
	{Family: ECDSA, Hash: hashing.SHA512, Curve: "brainpoolP384r1", Bits: 384}:       true,
	{Family: ECDSA, Hash: hashing.SHA512, Curve: "brainpoolP512r1", Bits: 512}:       true,
}

// Supported reports whether a register circuit exists for a
func Supported(a Algorithm) bool {
	return SupportedDSCAlgorithms[a]
}

var (
	oidRSAEncryption = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 1}
	oidRSASSAPSS     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 10}
	oidMGF1          = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 1, 8}
	oidECPublicKey   = asn1.ObjectIdentifier{1, 2, 840, 10045, 2, 1}

	oidSubjectKeyID   = asn1.ObjectIdentifier{2, 5, 29, 14}
	oidAuthorityKeyID = asn1.ObjectIdentifier{2, 5, 29, 35}
)

// signatureAlgorithms maps signature OIDs to family and hash. RSASSA-PSS
// takes its hash from the algorithm parameters.
var signatureAlgorithms = map[string]SignatureAlgorithm{
	"1.2.840.113549.1.1.5":  {RSA, hashing.SHA1},
	"1.3.14.3.2.29":         {RSA, hashing.SHA1},
	"1.2.840.113549.1.1.14": {RSA, hashing.SHA224},
	"1.2.840.113549.1.1.11": {RSA, hashing.SHA256},
	"1.2.840.113549.1.1.12": {RSA, hashing.SHA384},
	"1.2.840.113549.1.1.13": {RSA, hashing.SHA512},
	"1.2.840.113549.1.1.10": {RSAPSS, hashing.SHA1},
	"1.2.840.10045.4.1":     {ECDSA, hashing.SHA1},
	"1.2.840.10045.4.3.1":   {ECDSA, hashing.SHA224},
	"1.2.840.10045.4.3.2":   {ECDSA, hashing.SHA256},
	"1.2.840.10045.4.3.3":   {ECDSA, hashing.SHA384},
	"1.2.840.10045.4.3.4":   {ECDSA, hashing.SHA512},
}

var hashAlgorithms = map[string]hashing.Function{
	"1.3.14.3.2.26":          hashing.SHA1,
	"2.16.840.1.101.3.4.2.4": hashing.SHA224,
	"2.16.840.1.101.3.4.2.1": hashing.SHA256,
	"2.16.840.1.101.3.4.2.2": hashing.SHA384,
	"2.16.840.1.101.3.4.2.3": hashing.SHA512,
}

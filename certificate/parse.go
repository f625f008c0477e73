// Package certificate parses the X.509 certificates of the passport PKI
// (document signer and country signing CA) into the public key material the
// circuits consume.
//
// Parsing goes through encoding/asn1 directly instead of crypto/x509 so that
// brainpool keys, explicit curve parameters and negative serial numbers found
// on real document signer certificates are accepted.
package certificate

import (
	"crypto/x509/pkix"
	"encoding/asn1"
	"encoding/hex"
	"encoding/pem"
	"fmt"
	"math/big"
	"time"

	"github.com/mynextid/zk-passport/asn1/oids"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/logger"
)

type certificateASN1 struct {
	Raw                asn1.RawContent
	TBS                tbsCertificate
	SignatureAlgorithm pkix.AlgorithmIdentifier
	SignatureValue     asn1.BitString
}

type tbsCertificate struct {
	Raw                asn1.RawContent
	Version            int `asn1:"optional,explicit,default:0,tag:0"`
	SerialNumber       asn1.RawValue
	SignatureAlgorithm pkix.AlgorithmIdentifier
	Issuer             asn1.RawValue
	Validity           validity
	Subject            asn1.RawValue
	PublicKey          publicKeyInfo
	IssuerUniqueID     asn1.BitString   `asn1:"optional,tag:1"`
	SubjectUniqueID    asn1.BitString   `asn1:"optional,tag:2"`
	Extensions         []pkix.Extension `asn1:"omitempty,optional,explicit,tag:3"`
}

type validity struct {
	NotBefore, NotAfter time.Time
}

type publicKeyInfo struct {
	Raw       asn1.RawContent
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

type rsaPublicKeyASN1 struct {
	N *big.Int
	E int
}

type ecParametersASN1 struct {
	Version int
	FieldID struct {
		FieldType asn1.ObjectIdentifier
		Prime     *big.Int
	}
	Curve struct {
		A, B []byte
		Seed asn1.BitString `asn1:"optional"`
	}
	Base     []byte
	Order    *big.Int
	Cofactor int `asn1:"optional"`
}

type authorityKeyIDASN1 struct {
	ID []byte `asn1:"optional,tag:0"`
}

// Certificate is a parsed passport PKI certificate
type Certificate struct {
	Raw    []byte
	RawTBS []byte

	SerialNumber *big.Int
	Issuer       pkix.Name
	Subject      pkix.Name
	NotBefore    time.Time
	NotAfter     time.Time

	SignatureAlgorithmOID asn1.ObjectIdentifier
	SignatureAlgorithm    SignatureAlgorithm
	// PSS is set when the certificate signature is RSASSA-PSS
	PSS       *PSSParams
	Signature []byte

	PublicKeyOID asn1.ObjectIdentifier
	PublicKey    PublicKey

	// SubjectKeyID and AuthorityKeyID are lowercase hex, empty when absent
	SubjectKeyID   string
	AuthorityKeyID string
}

// Algorithm describes the certificate key together with the hash of the
// certificate's own signature
func (c *Certificate) Algorithm() Algorithm {
	return AlgorithmFor(c.PublicKey, c.SignatureAlgorithm.Hash)
}

// PEM re-encodes the certificate
func (c *Certificate) PEM() []byte {
	return pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: c.Raw})
}

// Parse decodes the first CERTIFICATE block of a PEM document. Input without
// a PEM block is tried as DER.
func Parse(data []byte) (*Certificate, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		if len(data) > 0 && data[0] == 0x30 {
			return ParseDER(data)
		}
		return nil, fmt.Errorf("%w: no PEM block found", common.ErrMalformedCertificate)
	}
	if block.Type != "CERTIFICATE" {
		return nil, fmt.Errorf("%w: unexpected PEM block %q", common.ErrMalformedCertificate, block.Type)
	}
	return ParseDER(block.Bytes)
}

// ParseDER decodes a DER certificate
func ParseDER(der []byte) (*Certificate, error) {
	var raw certificateASN1
	rest, err := asn1.Unmarshal(der, &raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedCertificate, err)
	}
	if len(rest) > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", common.ErrMalformedCertificate, len(rest))
	}

	c := &Certificate{
		Raw:                   raw.Raw,
		RawTBS:                raw.TBS.Raw,
		NotBefore:             raw.TBS.Validity.NotBefore,
		NotAfter:              raw.TBS.Validity.NotAfter,
		SignatureAlgorithmOID: raw.SignatureAlgorithm.Algorithm,
		Signature:             raw.SignatureValue.RightAlign(),
		PublicKeyOID:          raw.TBS.PublicKey.Algorithm.Algorithm,
	}

	if c.SerialNumber, err = parseSerial(raw.TBS.SerialNumber); err != nil {
		return nil, err
	}
	c.Issuer = parseName(raw.TBS.Issuer)
	c.Subject = parseName(raw.TBS.Subject)

	if err := c.parseSignatureAlgorithm(raw.SignatureAlgorithm); err != nil {
		return nil, err
	}
	if c.PublicKey, err = parsePublicKey(raw.TBS.PublicKey, c.PSS); err != nil {
		return nil, err
	}
	c.parseExtensions(raw.TBS.Extensions)

	return c, nil
}

func (c *Certificate) parseSignatureAlgorithm(alg pkix.AlgorithmIdentifier) error {
	sig, ok := signatureAlgorithms[alg.Algorithm.String()]
	if !ok {
		return fmt.Errorf("%w: %s (%s)", common.ErrUnsupportedSignatureAlgorithm,
			alg.Algorithm, oids.DefaultRegistry.Name(alg.Algorithm.String()))
	}
	if sig.Family == RSAPSS {
		params, err := ParsePSSParams(alg.Parameters.FullBytes)
		if err != nil {
			return err
		}
		c.PSS = &params
		sig.Hash = params.Hash
	}
	if oid := alg.Algorithm.String(); oids.DefaultRegistry.Weak(oid) {
		logger.Logger().Debug().Str("algorithm", oids.DefaultRegistry.Name(oid)).Msg("certificate signed with a weak algorithm")
	}
	c.SignatureAlgorithm = sig
	return nil
}

// parseSerial decodes a two's complement INTEGER without the minimal
// encoding checks of encoding/asn1
func parseSerial(v asn1.RawValue) (*big.Int, error) {
	if v.Class != asn1.ClassUniversal || v.Tag != asn1.TagInteger || len(v.Bytes) == 0 {
		return nil, fmt.Errorf("%w: serial number is not an INTEGER", common.ErrMalformedCertificate)
	}
	n := new(big.Int).SetBytes(v.Bytes)
	if v.Bytes[0]&0x80 != 0 {
		n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(v.Bytes)*8)))
	}
	return n, nil
}

func parseName(v asn1.RawValue) pkix.Name {
	var rdn pkix.RDNSequence
	var name pkix.Name
	if _, err := asn1.Unmarshal(v.FullBytes, &rdn); err != nil {
		logger.Logger().Debug().Err(err).Msg("unparseable distinguished name")
		return name
	}
	name.FillFromRDNSequence(&rdn)
	return name
}

// parsePublicKey selects the key variant from the SPKI algorithm. An
// rsaEncryption key on a certificate signed with RSASSA-PSS is bound to the
// signature's PSS parameters.
func parsePublicKey(spki publicKeyInfo, sigPSS *PSSParams) (PublicKey, error) {
	alg := spki.Algorithm.Algorithm
	keyBytes := spki.PublicKey.RightAlign()

	switch {
	case alg.Equal(oidRSAEncryption), alg.Equal(oidRSASSAPSS):
		rsaKey, err := parseRSAKey(keyBytes)
		if err != nil {
			return nil, err
		}
		if alg.Equal(oidRSAEncryption) && sigPSS == nil {
			return rsaKey, nil
		}
		params := defaultPSSParams
		switch {
		case alg.Equal(oidRSASSAPSS) && len(spki.Algorithm.Parameters.FullBytes) > 0:
			if params, err = ParsePSSParams(spki.Algorithm.Parameters.FullBytes); err != nil {
				return nil, err
			}
		case sigPSS != nil:
			params = *sigPSS
		}
		return &RSAPSSPublicKey{
			RSAPublicKey: *rsaKey,
			Hash:         params.Hash,
			MGFHash:      params.MGFHash,
			SaltLength:   params.SaltLength,
		}, nil

	case alg.Equal(oidECPublicKey):
		curve, err := parseCurve(spki.Algorithm.Parameters)
		if err != nil {
			return nil, err
		}
		x, y, err := curve.Unmarshal(keyBytes)
		if err != nil {
			return nil, err
		}
		return &ECDSAPublicKey{Curve: curve, X: x, Y: y}, nil

	default:
		return nil, fmt.Errorf("%w: public key %s (%s)", common.ErrUnsupportedSignatureAlgorithm,
			alg, oids.DefaultRegistry.Name(alg.String()))
	}
}

func parseRSAKey(der []byte) (*RSAPublicKey, error) {
	var k rsaPublicKeyASN1
	if _, err := asn1.Unmarshal(der, &k); err != nil {
		return nil, fmt.Errorf("%w: rsa public key: %v", common.ErrMalformedCertificate, err)
	}
	if k.N == nil || k.N.Sign() <= 0 || k.E <= 0 {
		return nil, fmt.Errorf("%w: rsa public key out of range", common.ErrMalformedCertificate)
	}
	return &RSAPublicKey{Modulus: k.N, Exponent: k.E, bits: len(k.N.Bytes()) * 8}, nil
}

// parseCurve resolves named curve OIDs and explicit ECParameters
func parseCurve(params asn1.RawValue) (*Curve, error) {
	if params.Tag == asn1.TagOID {
		var oid asn1.ObjectIdentifier
		if _, err := asn1.Unmarshal(params.FullBytes, &oid); err != nil {
			return nil, fmt.Errorf("%w: curve OID: %v", common.ErrMalformedCertificate, err)
		}
		curve, ok := CurveByOID(oid)
		if !ok {
			return nil, fmt.Errorf("%w: curve %s (%s)", common.ErrUnsupportedSignatureAlgorithm,
				oid, oids.DefaultRegistry.Name(oid.String()))
		}
		return curve, nil
	}

	var ec ecParametersASN1
	if _, err := asn1.Unmarshal(params.FullBytes, &ec); err != nil {
		return nil, fmt.Errorf("%w: explicit curve parameters: %v", common.ErrMalformedCertificate, err)
	}
	if ec.FieldID.Prime == nil {
		return nil, fmt.Errorf("%w: explicit curve without prime", common.ErrMalformedCertificate)
	}
	a := new(big.Int).SetBytes(ec.Curve.A)
	b := new(big.Int).SetBytes(ec.Curve.B)
	curve, ok := CurveByParams(ec.FieldID.Prime, a, b)
	if !ok {
		return nil, fmt.Errorf("%w: unknown explicit curve with %d bit prime",
			common.ErrUnsupportedSignatureAlgorithm, ec.FieldID.Prime.BitLen())
	}
	return curve, nil
}

func (c *Certificate) parseExtensions(exts []pkix.Extension) {
	for _, ext := range exts {
		switch {
		case ext.Id.Equal(oidSubjectKeyID):
			var id []byte
			if _, err := asn1.Unmarshal(ext.Value, &id); err == nil {
				c.SubjectKeyID = hex.EncodeToString(id)
			}
		case ext.Id.Equal(oidAuthorityKeyID):
			var aki authorityKeyIDASN1
			if _, err := asn1.Unmarshal(ext.Value, &aki); err == nil {
				c.AuthorityKeyID = hex.EncodeToString(aki.ID)
			}
		}
	}
}

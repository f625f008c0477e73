// Package passport models the electronic passport data a register proof is
// built from and reproduces the issuer's hash chain: DG1 → data group hash
// blob (eContent) → signed attributes → signature.
package passport

import (
	"bytes"
	"fmt"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/logger"
)

// Attestation identifiers of the supported document types
const (
	AttestationPassport = 1
	AttestationIDCard   = 2
)

// Passport is the data read from a passport chip
type Passport struct {
	MRZ  string
	DSC  *certificate.Certificate
	CSCA *certificate.Certificate

	EContent        []byte
	SignedAttr      []byte
	EncryptedDigest []byte
	// SecondaryDigest is an optional data group digest such as the photo hash
	SecondaryDigest []byte

	meta *Metadata
}

// Metadata is derived once by Parse
type Metadata struct {
	DG1HashFunction        hashing.Function
	DG1HashOffset          int
	EContentHashFunction   hashing.Function
	EContentHashOffset     int
	SignedAttrHashFunction hashing.Function
	// SignatureVerified is false when the signed attributes hash was taken
	// from the certificate instead of a verified signature
	SignatureVerified  bool
	SignatureAlgorithm certificate.Algorithm
	CSCAAlgorithm      *certificate.Algorithm
}

// Parsed reports whether Parse succeeded
func (p *Passport) Parsed() bool {
	return p.meta != nil
}

// Metadata returns the cached metadata or ErrNotParsed
func (p *Passport) Metadata() (*Metadata, error) {
	if p.meta == nil {
		return nil, common.ErrNotParsed
	}
	return p.meta, nil
}

// DG1 returns the formatted DG1 bytes
func (p *Passport) DG1() ([]byte, error) {
	return FormatMrz(p.MRZ)
}

// Parse locates the DG1 hash in eContent and the eContent hash in the signed
// attributes, discovers the signature hash and caches the result
func (p *Passport) Parse() error {
	p.meta = nil
	if p.DSC == nil {
		return fmt.Errorf("%w: passport has no document signer certificate", common.ErrMalformedCertificate)
	}
	dg1, err := FormatMrz(p.MRZ)
	if err != nil {
		return err
	}

	meta := &Metadata{}
	var ok bool
	if meta.DG1HashFunction, meta.DG1HashOffset, ok = locateDigest(dg1, p.EContent); !ok {
		return fmt.Errorf("%w: dg1 hash not found in eContent", common.ErrHashLocationMismatch)
	}
	if meta.EContentHashFunction, meta.EContentHashOffset, ok = locateDigest(p.EContent, p.SignedAttr); !ok {
		return fmt.Errorf("%w: eContent hash not found in signed attributes", common.ErrHashLocationMismatch)
	}

	meta.SignedAttrHashFunction, meta.SignatureVerified = p.signedAttrHash(meta.EContentHashFunction)
	meta.SignatureAlgorithm = certificate.AlgorithmFor(p.DSC.PublicKey, meta.SignedAttrHashFunction)
	if p.CSCA != nil {
		a := certificate.AlgorithmFor(p.CSCA.PublicKey, p.DSC.SignatureAlgorithm.Hash)
		meta.CSCAAlgorithm = &a
	}

	p.meta = meta
	logger.Logger().Debug().
		Str("dg1_hash", meta.DG1HashFunction.String()).
		Int("dg1_offset", meta.DG1HashOffset).
		Str("econtent_hash", meta.EContentHashFunction.String()).
		Int("econtent_offset", meta.EContentHashOffset).
		Str("algorithm", meta.SignatureAlgorithm.String()).
		Msg("parsed passport")
	return nil
}

// locateDigest tries every hash function and returns the first whose digest
// of data occurs in container
func locateDigest(data, container []byte) (hashing.Function, int, bool) {
	for _, fn := range hashing.Functions {
		if i := bytes.Index(container, fn.Sum(data)); i >= 0 {
			return fn, i, true
		}
	}
	return 0, 0, false
}

// signedAttrHash finds the hash under which the encrypted digest verifies,
// starting with the eContent hash. Without a verifying candidate it falls
// back to the hash the certificate declares.
func (p *Passport) signedAttrHash(first hashing.Function) (hashing.Function, bool) {
	candidates := append([]hashing.Function{first}, hashing.Functions...)
	for _, fn := range candidates {
		if err := p.DSC.Verify(p.SignedAttr, p.EncryptedDigest, fn); err == nil {
			return fn, true
		}
	}

	declared := p.DSC.SignatureAlgorithm.Hash
	if k, ok := p.DSC.PublicKey.(*certificate.RSAPSSPublicKey); ok {
		declared = k.Hash
	}
	logger.Logger().Warn().
		Str("fallback", declared.String()).
		Msg("passport signature did not verify, using the certificate's hash function")
	return declared, false
}

// ResolveCSCA looks up the issuer of the DSC in store and re-parses when
// metadata was already derived
func (p *Passport) ResolveCSCA(store *certificate.Store) error {
	if p.DSC == nil {
		return fmt.Errorf("%w: passport has no document signer certificate", common.ErrCSCANotResolved)
	}
	csca, err := store.Issuer(p.DSC)
	if err != nil {
		return err
	}
	p.CSCA = csca
	if p.meta != nil {
		return p.Parse()
	}
	return nil
}

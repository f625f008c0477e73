// Package commitment derives the registered identity commitment and the
// per-application nullifier.
package commitment

import (
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/passport"
)

// PubKeyHash folds a public key into one field element: CustomHasher over
// its circuit limbs
func PubKeyHash(pub certificate.PublicKey) (*big.Int, error) {
	words, err := certificate.KeyWords(pub)
	if err != nil {
		return nil, err
	}
	return hashing.CustomHasher(words)
}

// DSCPubKeyHash hashes the document signer key
func DSCPubKeyHash(p *passport.Passport) (*big.Int, error) {
	if p.DSC == nil {
		return nil, fmt.Errorf("%w: passport has no document signer certificate", common.ErrMalformedCertificate)
	}
	return PubKeyHash(p.DSC.PublicKey)
}

// CSCAPubKeyHash hashes the CSCA key. The CSCA must have been resolved.
func CSCAPubKeyHash(p *passport.Passport) (*big.Int, error) {
	if p.CSCA == nil {
		return nil, common.ErrCSCANotResolved
	}
	return PubKeyHash(p.CSCA.PublicKey)
}

// Components are the hashed inputs of a commitment
type Components struct {
	DG1Hash        *big.Int
	EContentHash   *big.Int
	DSCPubKeyHash  *big.Int
	CSCAPubKeyHash *big.Int
}

// ComputeComponents derives the four passport dependent commitment inputs
func ComputeComponents(p *passport.Passport) (*Components, error) {
	meta, err := p.Metadata()
	if err != nil {
		return nil, err
	}
	dg1, err := p.DG1()
	if err != nil {
		return nil, err
	}

	c := &Components{}
	if c.DG1Hash, err = hashing.PackBytesAndPoseidon(dg1); err != nil {
		return nil, fmt.Errorf("dg1 hash: %w", err)
	}
	if c.EContentHash, err = hashing.PackBytesAndPoseidon(meta.EContentHashFunction.Sum(p.EContent)); err != nil {
		return nil, fmt.Errorf("eContent hash: %w", err)
	}
	if c.DSCPubKeyHash, err = DSCPubKeyHash(p); err != nil {
		return nil, fmt.Errorf("dsc key hash: %w", err)
	}
	if c.CSCAPubKeyHash, err = CSCAPubKeyHash(p); err != nil {
		return nil, fmt.Errorf("csca key hash: %w", err)
	}
	return c, nil
}

// GenerateCommitment computes
// Poseidon6(secret, attestationID, dg1Hash, eContentHash, dscKeyHash, cscaKeyHash).
// The passport must be parsed.
func GenerateCommitment(secret *big.Int, attestationID int, p *passport.Passport) (*big.Int, error) {
	c, err := ComputeComponents(p)
	if err != nil {
		return nil, err
	}
	return c.Commit(secret, attestationID)
}

// Commit combines precomputed components with the secret
func (c *Components) Commit(secret *big.Int, attestationID int) (*big.Int, error) {
	if err := field.Check(secret); err != nil {
		return nil, fmt.Errorf("secret: %w", err)
	}
	return hashing.Poseidon(
		secret,
		big.NewInt(int64(attestationID)),
		c.DG1Hash,
		c.EContentHash,
		c.DSCPubKeyHash,
		c.CSCAPubKeyHash,
	)
}

// GenerateNullifier computes Poseidon2(secret, scope)
func GenerateNullifier(secret, scope *big.Int) (*big.Int, error) {
	return hashing.Poseidon(secret, scope)
}

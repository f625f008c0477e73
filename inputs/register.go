package inputs

import (
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/passport"
)

// RegisterInputs feed the register circuit, which checks the passport hash
// chain and signature and outputs the commitment
type RegisterInputs struct {
	Circuit string

	DG1                          []byte
	DG1HashOffset                int
	EContent                     []byte
	EContentPaddedLength         int
	SignedAttr                   []byte
	SignedAttrPaddedLength       int
	SignedAttrEContentHashOffset int
	PubKeyDSC                    []*big.Int
	SignaturePassport            []*big.Int
	PubKeyCSCAHash               *big.Int
	Secret                       *big.Int
	Salt                         *big.Int
}

// RegisterLayout returns the register circuit inputs for the given buffer
// and key sizes
func RegisterLayout(name string, dg1Len, eContentLen, signedAttrLen, keyWords, sigWords int) Layout {
	return Layout{
		Name: name,
		Fields: []Field{
			{Name: "dg1", Len: dg1Len},
			{Name: "dg1_hash_offset", Len: 1},
			{Name: "eContent", Len: eContentLen},
			{Name: "eContent_padded_length", Len: 1},
			{Name: "signed_attr", Len: signedAttrLen},
			{Name: "signed_attr_padded_length", Len: 1},
			{Name: "signed_attr_econtent_hash_offset", Len: 1},
			{Name: "pubKey_dsc", Len: keyWords},
			{Name: "signature_passport", Len: sigWords},
			{Name: "pubKey_csca_hash", Len: 1, Visibility: Public},
			{Name: "secret", Len: 1},
			{Name: "salt", Len: 1},
		},
	}
}

// Layout returns the circuit layout matching r
func (r *RegisterInputs) Layout() Layout {
	return RegisterLayout(r.Circuit, len(r.DG1), len(r.EContent), len(r.SignedAttr),
		len(r.PubKeyDSC), len(r.SignaturePassport))
}

// CircuitInputs normalizes r
func (r *RegisterInputs) CircuitInputs() (CircuitInputs, error) {
	c := CircuitInputs{}
	for _, in := range []struct {
		name string
		v    any
	}{
		{"dg1", r.DG1},
		{"dg1_hash_offset", r.DG1HashOffset},
		{"eContent", r.EContent},
		{"eContent_padded_length", r.EContentPaddedLength},
		{"signed_attr", r.SignedAttr},
		{"signed_attr_padded_length", r.SignedAttrPaddedLength},
		{"signed_attr_econtent_hash_offset", r.SignedAttrEContentHashOffset},
		{"pubKey_dsc", r.PubKeyDSC},
		{"signature_passport", r.SignaturePassport},
		{"pubKey_csca_hash", r.PubKeyCSCAHash},
		{"secret", r.Secret},
		{"salt", r.Salt},
	} {
		if err := c.Set(in.name, in.v); err != nil {
			return nil, err
		}
	}
	return c, c.Validate(r.Layout())
}

// RegisterCircuitName names the register circuit variant, e.g.
// register_sha256_sha256_sha256_rsa_65537_2048
func RegisterCircuitName(meta *passport.Metadata) string {
	a := meta.SignatureAlgorithm
	name := fmt.Sprintf("register_%s_%s_%s_%s", meta.DG1HashFunction, meta.EContentHashFunction, meta.SignedAttrHashFunction, a.Family)
	switch a.Family {
	case certificate.ECDSA:
		return fmt.Sprintf("%s_%s_%d", name, a.Curve, a.Bits)
	case certificate.RSAPSS:
		return fmt.Sprintf("%s_%d_%d_%d", name, a.Exponent, a.SaltLength, a.Bits)
	default:
		return fmt.Sprintf("%s_%d_%d", name, a.Exponent, a.Bits)
	}
}

// GenerateRegisterInputs builds the register inputs of a parsed passport
// whose CSCA is resolved. A nil secret or salt is drawn at random.
func GenerateRegisterInputs(p *passport.Passport, secret, salt *big.Int) (*RegisterInputs, error) {
	meta, err := p.Metadata()
	if err != nil {
		return nil, err
	}
	if secret, err = orRandom(secret); err != nil {
		return nil, err
	}
	if salt, err = orRandom(salt); err != nil {
		return nil, err
	}

	r := &RegisterInputs{
		Circuit:                      RegisterCircuitName(meta),
		DG1HashOffset:                meta.DG1HashOffset,
		SignedAttrEContentHashOffset: meta.EContentHashOffset,
		Secret:                       secret,
		Salt:                         salt,
	}
	if r.DG1, err = p.DG1(); err != nil {
		return nil, err
	}

	eFn, sFn := meta.EContentHashFunction, meta.SignedAttrHashFunction
	if r.EContent, r.EContentPaddedLength, err = hashing.Pad(eFn, p.EContent, hashing.MaxPaddedEContentLen[eFn]); err != nil {
		return nil, fmt.Errorf("eContent: %w", err)
	}
	if r.SignedAttr, r.SignedAttrPaddedLength, err = hashing.Pad(sFn, p.SignedAttr, hashing.MaxPaddedSignedAttrLen[sFn]); err != nil {
		return nil, fmt.Errorf("signed attributes: %w", err)
	}

	if r.PubKeyDSC, err = certificate.KeyWords(p.DSC.PublicKey); err != nil {
		return nil, fmt.Errorf("dsc key: %w", err)
	}
	if r.SignaturePassport, err = certificate.SignatureWords(p.DSC.PublicKey, p.EncryptedDigest); err != nil {
		return nil, fmt.Errorf("passport signature: %w", err)
	}
	if r.PubKeyCSCAHash, err = commitment.CSCAPubKeyHash(p); err != nil {
		return nil, err
	}
	return r, nil
}

func orRandom(v *big.Int) (*big.Int, error) {
	if v != nil {
		return v, nil
	}
	return common.GenerateSecret()
}

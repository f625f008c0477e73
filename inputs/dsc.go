package inputs

import (
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/asn1/der"
	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/passport"
)

// MaxPaddedDSCLen bounds the padded DSC TBS buffer of the dsc circuits
var MaxPaddedDSCLen = map[hashing.Function]int{
	hashing.SHA1:   1664,
	hashing.SHA224: 1664,
	hashing.SHA256: 1664,
	hashing.SHA384: 1792,
	hashing.SHA512: 1792,
}

// DSCInputs feed the dsc circuit, which checks the CSCA signature over the
// document signer certificate
type DSCInputs struct {
	Circuit string

	RawDSC             []byte
	RawDSCPaddedLength int
	DSCPubKeyOffset    int
	DSCPubKeyLength    int
	PubKeyCSCA         []*big.Int
	SignatureDSC       []*big.Int
	PubKeyCSCAHash     *big.Int
	Salt               *big.Int
}

// DSCLayout returns the dsc circuit inputs for the given buffer and key sizes
func DSCLayout(name string, rawLen, keyWords, sigWords int) Layout {
	return Layout{
		Name: name,
		Fields: []Field{
			{Name: "raw_dsc", Len: rawLen},
			{Name: "raw_dsc_padded_length", Len: 1},
			{Name: "dsc_pubKey_offset", Len: 1},
			{Name: "dsc_pubKey_length", Len: 1},
			{Name: "pubKey_csca", Len: keyWords},
			{Name: "signature_dsc", Len: sigWords},
			{Name: "pubKey_csca_hash", Len: 1, Visibility: Public},
			{Name: "salt", Len: 1},
		},
	}
}

// Layout returns the circuit layout matching d
func (d *DSCInputs) Layout() Layout {
	return DSCLayout(d.Circuit, len(d.RawDSC), len(d.PubKeyCSCA), len(d.SignatureDSC))
}

// CircuitInputs normalizes d
func (d *DSCInputs) CircuitInputs() (CircuitInputs, error) {
	c := CircuitInputs{}
	for _, in := range []struct {
		name string
		v    any
	}{
		{"raw_dsc", d.RawDSC},
		{"raw_dsc_padded_length", d.RawDSCPaddedLength},
		{"dsc_pubKey_offset", d.DSCPubKeyOffset},
		{"dsc_pubKey_length", d.DSCPubKeyLength},
		{"pubKey_csca", d.PubKeyCSCA},
		{"signature_dsc", d.SignatureDSC},
		{"pubKey_csca_hash", d.PubKeyCSCAHash},
		{"salt", d.Salt},
	} {
		if err := c.Set(in.name, in.v); err != nil {
			return nil, err
		}
	}
	return c, c.Validate(d.Layout())
}

// GenerateDSCInputs builds the dsc inputs of a passport whose CSCA is
// resolved. A nil salt is drawn at random.
func GenerateDSCInputs(p *passport.Passport, salt *big.Int) (*DSCInputs, error) {
	if p.DSC == nil {
		return nil, fmt.Errorf("%w: passport has no document signer certificate", common.ErrMalformedCertificate)
	}
	if p.CSCA == nil {
		return nil, common.ErrCSCANotResolved
	}
	var err error
	if salt, err = orRandom(salt); err != nil {
		return nil, err
	}

	dsc, csca := p.DSC, p.CSCA
	h := dsc.SignatureAlgorithm.Hash
	d := &DSCInputs{
		Circuit: "dsc_" + certificate.AlgorithmFor(csca.PublicKey, h).String(),
		Salt:    salt,
	}

	pos, err := der.FindSubjectPublicKeyPositionInTBS(dsc.RawTBS)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedCertificate, err)
	}
	hl, cl, err := der.Header(dsc.RawTBS, pos)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrMalformedCertificate, err)
	}
	// skip the unused bits byte of the BIT STRING
	d.DSCPubKeyOffset = pos + hl + 1
	d.DSCPubKeyLength = cl - 1

	if d.RawDSC, d.RawDSCPaddedLength, err = hashing.Pad(h, dsc.RawTBS, MaxPaddedDSCLen[h]); err != nil {
		return nil, fmt.Errorf("dsc tbs: %w", err)
	}
	if d.PubKeyCSCA, err = certificate.KeyWords(csca.PublicKey); err != nil {
		return nil, fmt.Errorf("csca key: %w", err)
	}
	if d.SignatureDSC, err = certificate.SignatureWords(csca.PublicKey, dsc.Signature); err != nil {
		return nil, fmt.Errorf("dsc signature: %w", err)
	}
	if d.PubKeyCSCAHash, err = commitment.CSCAPubKeyHash(p); err != nil {
		return nil, err
	}
	return d, nil
}

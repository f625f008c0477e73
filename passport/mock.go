package passport

import (
	"fmt"
	"strings"
	"time"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/hashing"
)

// SampleMRZ is a specimen TD3 MRZ
var SampleMRZ = "P<FRADUPONT<<ALPHONSE<HUGUES<ALBERT" + strings.Repeat("<", 9) +
	"24HB818324FRA0402111M3111115" + strings.Repeat("<", 14) + "02"

// MockOptions configure GenerateMock. Zero values select sha256, an RSA 2048
// key, SampleMRZ, the natural DG1 offset and MockSigningTime.
type MockOptions struct {
	Key            certificate.KeySpec
	DGHash         hashing.Function
	EContentHash   hashing.Function
	SignedAttrHash hashing.Function
	MRZ            string
	Country        string
	DG1Offset      int
	DataGroups     []int
	SigningTime    time.Time
	// Chain reuses an existing signing chain instead of generating keys
	Chain *certificate.MockChain
}

func (o *MockOptions) defaults() {
	if !o.DGHash.Valid() {
		o.DGHash = hashing.SHA256
	}
	if !o.EContentHash.Valid() {
		o.EContentHash = o.DGHash
	}
	if !o.SignedAttrHash.Valid() {
		o.SignedAttrHash = o.EContentHash
	}
	if o.Key.Family == 0 {
		o.Key = certificate.KeySpec{Family: certificate.RSA, Bits: 2048}
	}
	if !o.Key.Hash.Valid() {
		o.Key.Hash = o.SignedAttrHash
	}
	if o.MRZ == "" {
		o.MRZ = SampleMRZ
	}
	if o.Country == "" {
		o.Country = MRZ(o.MRZ).IssuingState()
	}
	if len(o.DataGroups) == 0 {
		o.DataGroups = []int{1, 2, 3, 11, 12, 14}
	}
	if o.DG1Offset == 0 {
		o.DG1Offset = DefaultDG1Offset(o.DGHash, len(o.DataGroups))
	}
	if o.SigningTime.IsZero() {
		o.SigningTime = MockSigningTime
	}
}

// GenerateMock builds a signed passport with a fresh (or supplied) CSCA and
// DSC. The returned passport is parsed.
func GenerateMock(opts MockOptions) (*Passport, *certificate.MockChain, error) {
	opts.defaults()

	chain := opts.Chain
	if chain == nil {
		var err error
		if chain, err = certificate.GenerateMockChain(opts.Key, opts.Country); err != nil {
			return nil, nil, err
		}
	}

	hashes := make(map[int][]byte, len(opts.DataGroups))
	for _, dg := range opts.DataGroups {
		if dg != 1 {
			hashes[dg] = opts.DGHash.Sum([]byte(fmt.Sprintf("data group %d", dg)))
		}
	}
	eContent, err := ConcatenateDataGroupHashes(opts.MRZ, opts.DGHash, hashes, opts.DG1Offset)
	if err != nil {
		return nil, nil, err
	}
	signedAttr, err := AssembleSignedAttributes(opts.EContentHash.Sum(eContent), opts.SigningTime)
	if err != nil {
		return nil, nil, err
	}
	sig, err := certificate.Sign(chain.DSCKey, chain.DSC.PublicKey.Family(), opts.SignedAttrHash, signedAttr)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to sign: %w", err)
	}

	p := &Passport{
		MRZ:             opts.MRZ,
		DSC:             chain.DSC,
		CSCA:            chain.CSCA,
		EContent:        eContent,
		SignedAttr:      signedAttr,
		EncryptedDigest: sig,
	}
	if err := p.Parse(); err != nil {
		return nil, nil, err
	}
	return p, chain, nil
}

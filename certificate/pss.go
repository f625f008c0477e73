package certificate

import (
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"golang.org/x/crypto/cryptobyte"
	cbasn1 "golang.org/x/crypto/cryptobyte/asn1"
)

// PSSParams are the decoded RSASSA-PSS-params
type PSSParams struct {
	Hash       hashing.Function
	MGFHash    hashing.Function
	SaltLength int
}

// defaultPSSParams are the RFC 4055 defaults: sha1, mgf1SHA1, 20 byte salt
var defaultPSSParams = PSSParams{Hash: hashing.SHA1, MGFHash: hashing.SHA1, SaltLength: 20}

// ParsePSSParams decodes RSASSA-PSS-params. Empty or NULL parameters yield
// the defaults. The salt length is accepted as an explicit INTEGER or as raw
// implicitly tagged bytes.
func ParsePSSParams(der []byte) (PSSParams, error) {
	params := defaultPSSParams
	if len(der) == 0 || (len(der) == 2 && der[0] == 0x05 && der[1] == 0x00) {
		return params, nil
	}

	input := cryptobyte.String(der)
	var seq cryptobyte.String
	if !input.ReadASN1(&seq, cbasn1.SEQUENCE) {
		return params, fmt.Errorf("%w: pss params are not a SEQUENCE", common.ErrMalformedCertificate)
	}

	var hashAlg cryptobyte.String
	var present bool
	if !seq.ReadOptionalASN1(&hashAlg, &present, cbasn1.Tag(0).Constructed().ContextSpecific()) {
		return params, fmt.Errorf("%w: pss hashAlgorithm", common.ErrMalformedCertificate)
	}
	if present {
		h, err := readHashAlgorithm(hashAlg)
		if err != nil {
			return params, err
		}
		params.Hash = h
	}

	var mgf cryptobyte.String
	if !seq.ReadOptionalASN1(&mgf, &present, cbasn1.Tag(1).Constructed().ContextSpecific()) {
		return params, fmt.Errorf("%w: pss maskGenAlgorithm", common.ErrMalformedCertificate)
	}
	if present {
		h, err := readMGF(mgf)
		if err != nil {
			return params, err
		}
		params.MGFHash = h
	}

	salt, err := readSaltLength(&seq)
	if err != nil {
		return params, err
	}
	if salt >= 0 {
		params.SaltLength = salt
	}
	return params, nil
}

// readHashAlgorithm reads an AlgorithmIdentifier naming a hash function
func readHashAlgorithm(s cryptobyte.String) (hashing.Function, error) {
	var alg cryptobyte.String
	var oid asn1.ObjectIdentifier
	if !s.ReadASN1(&alg, cbasn1.SEQUENCE) || !alg.ReadASN1ObjectIdentifier(&oid) {
		return 0, fmt.Errorf("%w: hash AlgorithmIdentifier", common.ErrMalformedCertificate)
	}
	h, ok := hashAlgorithms[oid.String()]
	if !ok {
		return 0, fmt.Errorf("%w: hash %s", common.ErrUnsupportedSignatureAlgorithm, oid)
	}
	return h, nil
}

// readMGF reads the mask generation AlgorithmIdentifier, which must be MGF1
func readMGF(s cryptobyte.String) (hashing.Function, error) {
	var alg cryptobyte.String
	var oid asn1.ObjectIdentifier
	if !s.ReadASN1(&alg, cbasn1.SEQUENCE) || !alg.ReadASN1ObjectIdentifier(&oid) {
		return 0, fmt.Errorf("%w: mask generation AlgorithmIdentifier", common.ErrMalformedCertificate)
	}
	if !oid.Equal(oidMGF1) {
		return 0, fmt.Errorf("%w: mask generation %s", common.ErrUnsupportedSignatureAlgorithm, oid)
	}
	if alg.Empty() {
		return hashing.SHA1, nil
	}
	return readHashAlgorithm(alg)
}

// readSaltLength returns -1 when the field is absent
func readSaltLength(seq *cryptobyte.String) (int, error) {
	explicit := cbasn1.Tag(2).Constructed().ContextSpecific()
	implicit := cbasn1.Tag(2).ContextSpecific()

	switch {
	case seq.PeekASN1Tag(explicit):
		var inner cryptobyte.String
		var salt int64
		if !seq.ReadASN1(&inner, explicit) || !inner.ReadASN1Integer(&salt) {
			return 0, fmt.Errorf("%w: pss saltLength", common.ErrMalformedCertificate)
		}
		return int(salt), nil
	case seq.PeekASN1Tag(implicit):
		var raw cryptobyte.String
		if !seq.ReadASN1(&raw, implicit) || len(raw) == 0 || len(raw) > 4 {
			return 0, fmt.Errorf("%w: pss saltLength", common.ErrMalformedCertificate)
		}
		return int(new(big.Int).SetBytes(raw).Int64()), nil
	default:
		return -1, nil
	}
}

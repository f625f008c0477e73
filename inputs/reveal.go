package inputs

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-rapidsnark/types"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/passport"
)

// RevealLayout is the number of revealed bytes packed little-endian into
// each public output element
type RevealLayout []int

// Reveal layouts of the disclose circuit versions. v1 carries the MRZ only,
// v2 adds the two older-than bytes.
var (
	RevealV1 = RevealLayout{31, 31, 26}
	RevealV2 = RevealLayout{31, 31, 28}
)

// Len returns the total number of revealed bytes
func (l RevealLayout) Len() int {
	n := 0
	for _, c := range l {
		n += c
	}
	return n
}

// ParseRevealLayout accepts v1 or v2
func ParseRevealLayout(s string) (RevealLayout, error) {
	switch s {
	case "v1", "":
		return RevealV1, nil
	case "v2":
		return RevealV2, nil
	default:
		return nil, fmt.Errorf("unknown reveal layout %q", s)
	}
}

// Revealed positions of the disclose circuit. The MRZ fields follow the TD3
// layout; older_than follows the MRZ.
var AttributeRanges = map[string]passport.Range{
	"issuing_state":   passport.IssuingState,
	"name":            passport.Name,
	"passport_number": passport.PassportNumber,
	"nationality":     passport.Nationality,
	"date_of_birth":   passport.DateOfBirth,
	"gender":          passport.Gender,
	"expiry_date":     passport.ExpiryDate,
	"older_than":      {Start: passport.MRZLengthTD3, End: passport.MRZLengthTD3 + 2},
}

// SelectorDG1 returns the MRZ byte selector revealing the named attributes
func SelectorDG1(attributes ...string) ([]int, error) {
	sel := make([]int, passport.MRZLengthTD3)
	for _, a := range attributes {
		r, ok := AttributeRanges[a]
		if !ok || r.End > passport.MRZLengthTD3 {
			return nil, fmt.Errorf("unknown MRZ attribute %q", a)
		}
		for i := r.Start; i < r.End; i++ {
			sel[i] = 1
		}
	}
	return sel, nil
}

// RevealedBytes reproduces the bytes the disclose circuit reveals: the
// selected MRZ bytes, zeros elsewhere, then majority when older-than is
// selected and the layout has room for it
func RevealedBytes(mrz string, selector []int, olderThan bool, majority string, l RevealLayout) ([]byte, error) {
	if len(mrz) != passport.MRZLengthTD3 || len(selector) != passport.MRZLengthTD3 {
		return nil, fmt.Errorf("%w: disclosure needs a TD3 MRZ and selector", common.ErrInvalidMRZ)
	}
	out := make([]byte, l.Len())
	for i := 0; i < passport.MRZLengthTD3 && i < len(out); i++ {
		if selector[i] != 0 {
			out[i] = mrz[i]
		}
	}
	r := AttributeRanges["older_than"]
	if olderThan && len(out) >= r.End {
		copy(out[r.Start:r.End], majority)
	}
	return out, nil
}

// PackReveal packs revealed bytes into the public outputs of layout l
func PackReveal(revealed []byte, l RevealLayout) ([]string, error) {
	if len(revealed) > l.Len() {
		return nil, fmt.Errorf("%w: %d revealed bytes exceed layout of %d", common.ErrTooManyElements, len(revealed), l.Len())
	}
	return field.ToStrings(field.PackWithLayout(revealed, l)), nil
}

// UnpackReveal decodes the packed public outputs of layout l
func UnpackReveal(signals []string, l RevealLayout) ([]byte, error) {
	packed := make([]*big.Int, len(signals))
	for i, s := range signals {
		v, err := field.ParseDecimal(s)
		if err != nil {
			return nil, fmt.Errorf("revealed element %d: %w", i, err)
		}
		packed[i] = v
	}
	return field.UnpackWithLayout(packed, l)
}

// UnpackRevealFromProof decodes the revealed outputs found at offset in the
// public signals of a circom proof
func UnpackRevealFromProof(proof *types.ZKProof, offset int, l RevealLayout) ([]byte, error) {
	if proof == nil {
		return nil, fmt.Errorf("nil proof")
	}
	if offset < 0 || offset+len(l) > len(proof.PubSignals) {
		return nil, fmt.Errorf("%w: %d public signals, revealed data at %d..%d",
			common.ErrTooManyElements, len(proof.PubSignals), offset, offset+len(l))
	}
	return UnpackReveal(proof.PubSignals[offset:offset+len(l)], l)
}

package watchlist

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/passport"
)

// Normalized field widths
const (
	PassportNumberLength = 9
	NameLength           = 44
	DOBLength            = 6
)

// Level selects one of the three watchlist trees
type Level int

const (
	LevelPassportNumber Level = 1
	LevelNameDOB        Level = 2
	LevelName           Level = 3
)

// Levels lists every level
var Levels = []Level{LevelPassportNumber, LevelNameDOB, LevelName}

func (l Level) String() string {
	switch l {
	case LevelPassportNumber:
		return "passport_number"
	case LevelNameDOB:
		return "name_dob"
	case LevelName:
		return "name"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Valid reports whether l names a tree
func (l Level) Valid() bool {
	return l >= LevelPassportNumber && l <= LevelName
}

// ParseLevel accepts a level number or name
func ParseLevel(s string) (Level, error) {
	for _, l := range Levels {
		if s == l.String() || s == fmt.Sprint(int(l)) {
			return l, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", common.ErrInvalidProofLevel, s)
}

func asciiElems(s string) []*big.Int {
	out := make([]*big.Int, len(s))
	for i := 0; i < len(s); i++ {
		out[i] = big.NewInt(int64(s[i]))
	}
	return out
}

func pad(s string, n int) string {
	if len(s) >= n {
		return s[:n]
	}
	return s + strings.Repeat("<", n-len(s))
}

// PassportNumberLeaf is Poseidon9 over the '<' padded passport number
func PassportNumberLeaf(number string) (*big.Int, error) {
	number = strings.ToUpper(strings.TrimSpace(number))
	if number == "" || len(number) > PassportNumberLength {
		return nil, fmt.Errorf("passport number %q must have 1 to %d characters", number, PassportNumberLength)
	}
	return hashing.Poseidon(asciiElems(pad(number, PassportNumberLength))...)
}

// DOBLeaf is Poseidon6 over the YYMMDD characters
func DOBLeaf(dob string) (*big.Int, error) {
	if len(dob) != DOBLength {
		return nil, fmt.Errorf("date of birth %q is not YYMMDD", dob)
	}
	return hashing.Poseidon(asciiElems(dob)...)
}

// NameLeaf hashes a 44 character normalized name. The name is split into
// chunks of 15, 15 and 14 characters; each chunk becomes the integer spelled
// by its 3 digit ASCII codes, and the three integers are hashed with
// Poseidon3.
func NameLeaf(name string) (*big.Int, error) {
	name = pad(name, NameLength)
	bounds := [][2]int{{0, 15}, {15, 30}, {30, NameLength}}
	elems := make([]*big.Int, len(bounds))
	for i, b := range bounds {
		var digits strings.Builder
		for j := b[0]; j < b[1]; j++ {
			fmt.Fprintf(&digits, "%03d", name[j])
		}
		v, ok := new(big.Int).SetString(digits.String(), 10)
		if !ok {
			return nil, fmt.Errorf("invalid name chunk %q", name[b[0]:b[1]])
		}
		elems[i] = v
	}
	return hashing.Poseidon(elems...)
}

// NameDOBLeaf is Poseidon2(DOBLeaf(dob), NameLeaf(name))
func NameDOBLeaf(name, dob string) (*big.Int, error) {
	d, err := DOBLeaf(dob)
	if err != nil {
		return nil, err
	}
	n, err := NameLeaf(name)
	if err != nil {
		return nil, err
	}
	return hashing.Poseidon(d, n)
}

// NormalizeName renders a name the way the MRZ does: LAST<<FIRST in upper
// case, apostrophes and dots removed, spaces and hyphens as '<', padded or
// truncated to 44 characters
func NormalizeName(first, last string) string {
	clean := func(s string) string {
		s = strings.ToUpper(strings.TrimSpace(s))
		s = strings.NewReplacer("'", "", ".", "", " ", "<", "-", "<").Replace(s)
		return s
	}
	return pad(clean(last)+"<<"+clean(first), NameLength)
}

// NormalizeDOB accepts YYMMDD or YYYY-MM-DD
func NormalizeDOB(dob string) (string, error) {
	dob = strings.TrimSpace(dob)
	switch {
	case len(dob) == DOBLength:
		return dob, nil
	case len(dob) == 10 && dob[4] == '-' && dob[7] == '-':
		return dob[2:4] + dob[5:7] + dob[8:10], nil
	default:
		return "", fmt.Errorf("unrecognised date of birth %q", dob)
	}
}

// LeafFromMRZ derives the key of level from a TD3 MRZ
func LeafFromMRZ(level Level, mrz string) (*big.Int, error) {
	if err := passport.ValidateMRZ(mrz); err != nil {
		return nil, err
	}
	m := passport.MRZ(mrz)
	name := pad(m.NameField(), NameLength)
	switch level {
	case LevelPassportNumber:
		return PassportNumberLeaf(m.PassportNumber())
	case LevelNameDOB:
		return NameDOBLeaf(name, m.DateOfBirth())
	case LevelName:
		return NameLeaf(name)
	default:
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidProofLevel, int(level))
	}
}

// Leaves derives the keys of level for a list entry. An entry yields one
// key per passport number on the passport number level and at most one key
// on the name levels; entries missing the needed fields yield none. A bad
// passport number does not hide the others: the valid keys are returned
// together with the joined errors of the rejected numbers.
func (e Entry) Leaves(level Level) ([]*big.Int, error) {
	switch level {
	case LevelPassportNumber:
		out := make([]*big.Int, 0, len(e.PassportNumbers))
		var errs []error
		for _, n := range e.PassportNumbers {
			leaf, err := PassportNumberLeaf(n)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			out = append(out, leaf)
		}
		return out, errors.Join(errs...)
	case LevelNameDOB:
		if e.LastName == "" || e.DOB == "" {
			return nil, nil
		}
		dob, err := NormalizeDOB(e.DOB)
		if err != nil {
			return nil, err
		}
		leaf, err := NameDOBLeaf(NormalizeName(e.FirstName, e.LastName), dob)
		if err != nil {
			return nil, err
		}
		return []*big.Int{leaf}, nil
	case LevelName:
		if e.LastName == "" {
			return nil, nil
		}
		leaf, err := NameLeaf(NormalizeName(e.FirstName, e.LastName))
		if err != nil {
			return nil, err
		}
		return []*big.Int{leaf}, nil
	default:
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidProofLevel, int(level))
	}
}

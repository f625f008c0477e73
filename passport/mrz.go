package passport

import (
	"fmt"
	"strings"

	"github.com/mynextid/zk-passport/common"
)

// MRZ lengths of the supported document formats
const (
	MRZLengthTD3 = 88
	MRZLengthTD1 = 90
)

// DG1 envelope tags
const (
	tagDG1     = 0x61
	tagMRZInfo = 0x5F
	tagMRZData = 0x1F
)

// FormatMrz wraps the MRZ in the DG1 envelope the chip stores and the
// issuer hashes: 61 L 5F 1F N || MRZ. A TD3 MRZ yields 93 bytes.
func FormatMrz(mrz string) ([]byte, error) {
	if err := ValidateMRZ(mrz); err != nil {
		return nil, err
	}
	n := len(mrz)
	out := make([]byte, 0, n+5)
	out = append(out, tagDG1, byte(n+3), tagMRZInfo, tagMRZData, byte(n))
	return append(out, mrz...), nil
}

// ValidateMRZ checks length and character set
func ValidateMRZ(mrz string) error {
	if len(mrz) != MRZLengthTD3 && len(mrz) != MRZLengthTD1 {
		return fmt.Errorf("%w: length %d, expected %d or %d", common.ErrInvalidMRZ, len(mrz), MRZLengthTD3, MRZLengthTD1)
	}
	for i := 0; i < len(mrz); i++ {
		c := mrz[i]
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') && c != '<' {
			return fmt.Errorf("%w: character %q at %d", common.ErrInvalidMRZ, c, i)
		}
	}
	return nil
}

// Range is a half-open byte range of the TD3 MRZ
type Range struct {
	Start, End int
}

// TD3 field positions
var (
	IssuingState   = Range{2, 5}
	Name           = Range{5, 44}
	PassportNumber = Range{44, 53}
	Nationality    = Range{54, 57}
	DateOfBirth    = Range{57, 63}
	Gender         = Range{64, 65}
	ExpiryDate     = Range{65, 71}
)

// MRZ is a TD3 machine readable zone
type MRZ string

func (m MRZ) field(r Range) string {
	if len(m) < r.End {
		return ""
	}
	return string(m[r.Start:r.End])
}

func (m MRZ) IssuingState() string   { return m.field(IssuingState) }
func (m MRZ) Nationality() string    { return m.field(Nationality) }
func (m MRZ) DateOfBirth() string    { return m.field(DateOfBirth) }
func (m MRZ) Gender() string         { return m.field(Gender) }
func (m MRZ) ExpiryDate() string     { return m.field(ExpiryDate) }
func (m MRZ) NameField() string      { return m.field(Name) }
func (m MRZ) PassportNumber() string { return m.field(PassportNumber) }

// Names splits the name field into surname and given names
func (m MRZ) Names() (last, first string) {
	parts := strings.SplitN(m.NameField(), "<<", 2)
	last = strings.ReplaceAll(strings.Trim(parts[0], "<"), "<", " ")
	if len(parts) == 2 {
		first = strings.TrimSpace(strings.ReplaceAll(strings.Trim(parts[1], "<"), "<", " "))
	}
	return last, first
}

package inputs

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/passport"
)

// Attributes are the human readable values revealed by a disclose proof.
// Fields that were not revealed are empty.
type Attributes struct {
	IssuingState   string `json:"issuing_state,omitempty"`
	Name           string `json:"name,omitempty"`
	PassportNumber string `json:"passport_number,omitempty"`
	Nationality    string `json:"nationality,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	ExpiryDate     string `json:"expiry_date,omitempty"`
	OlderThan      string `json:"older_than,omitempty"`
}

func revealedField(revealed []byte, r passport.Range) string {
	if r.End > len(revealed) {
		return ""
	}
	b := bytes.Trim(revealed[r.Start:r.End], "\x00")
	return strings.TrimRight(string(b), "<")
}

// ExtractAttributes reads the attributes out of unpacked revealed bytes
func ExtractAttributes(revealed []byte) (*Attributes, error) {
	if len(revealed) < passport.MRZLengthTD3 {
		return nil, fmt.Errorf("%w: %d revealed bytes", common.ErrInvalidMRZ, len(revealed))
	}
	get := func(name string) string {
		return revealedField(revealed, AttributeRanges[name])
	}
	return &Attributes{
		IssuingState:   get("issuing_state"),
		Name:           strings.Join(strings.Fields(strings.ReplaceAll(get("name"), "<", " ")), " "),
		PassportNumber: get("passport_number"),
		Nationality:    get("nationality"),
		DateOfBirth:    get("date_of_birth"),
		Gender:         get("gender"),
		ExpiryDate:     get("expiry_date"),
		OlderThan:      get("older_than"),
	}, nil
}

// Mismatch is one attribute that differs from the expected value
type Mismatch struct {
	Attribute string `json:"attribute"`
	Expected  string `json:"expected"`
	Actual    string `json:"actual"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: expected %q, got %q", m.Attribute, m.Expected, m.Actual)
}

// Compare checks a against the non-empty fields of expected. OlderThan
// matches when the revealed age bound is at least the expected one.
func (a *Attributes) Compare(expected *Attributes) []Mismatch {
	var out []Mismatch
	check := func(name, want, got string) {
		if want != "" && want != got {
			out = append(out, Mismatch{Attribute: name, Expected: want, Actual: got})
		}
	}
	check("issuing_state", expected.IssuingState, a.IssuingState)
	check("name", expected.Name, a.Name)
	check("passport_number", expected.PassportNumber, a.PassportNumber)
	check("nationality", expected.Nationality, a.Nationality)
	check("date_of_birth", expected.DateOfBirth, a.DateOfBirth)
	check("gender", expected.Gender, a.Gender)
	check("expiry_date", expected.ExpiryDate, a.ExpiryDate)

	if expected.OlderThan != "" {
		want, err1 := strconv.Atoi(expected.OlderThan)
		got, err2 := strconv.Atoi(a.OlderThan)
		if err1 != nil || err2 != nil || got < want {
			out = append(out, Mismatch{Attribute: "older_than", Expected: expected.OlderThan, Actual: a.OlderThan})
		}
	}
	return out
}

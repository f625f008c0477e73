package passport

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mynextid/zk-passport/certificate"
)

// ByteArray decodes JSON arrays of signed (-128..127) or unsigned (0..255)
// byte values, or a hex string, and encodes as an unsigned array
type ByteArray []byte

func (b ByteArray) MarshalJSON() ([]byte, error) {
	ints := make([]int, len(b))
	for i, v := range b {
		ints[i] = int(v)
	}
	return json.Marshal(ints)
}

func (b *ByteArray) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		raw, err := hex.DecodeString(strings.TrimPrefix(s, "0x"))
		if err != nil {
			return fmt.Errorf("invalid hex byte string: %w", err)
		}
		*b = raw
		return nil
	}

	var ints []int
	if err := json.Unmarshal(data, &ints); err != nil {
		return fmt.Errorf("expected a byte array: %w", err)
	}
	out := make([]byte, len(ints))
	for i, v := range ints {
		if v < -128 || v > 255 {
			return fmt.Errorf("byte %d out of range: %d", i, v)
		}
		out[i] = byte(v)
	}
	*b = out
	return nil
}

// jsonPassport is the transport form of Passport
type jsonPassport struct {
	MRZ             string    `json:"mrz"`
	DSC             string    `json:"dsc"`
	CSCA            string    `json:"csca,omitempty"`
	EContent        ByteArray `json:"eContent"`
	SignedAttr      ByteArray `json:"signedAttr"`
	EncryptedDigest ByteArray `json:"encryptedDigest"`
	SecondaryDigest ByteArray `json:"secondaryDigest,omitempty"`
}

func (p *Passport) MarshalJSON() ([]byte, error) {
	jp := jsonPassport{
		MRZ:             p.MRZ,
		EContent:        p.EContent,
		SignedAttr:      p.SignedAttr,
		EncryptedDigest: p.EncryptedDigest,
		SecondaryDigest: p.SecondaryDigest,
	}
	if p.DSC != nil {
		jp.DSC = string(p.DSC.PEM())
	}
	if p.CSCA != nil {
		jp.CSCA = string(p.CSCA.PEM())
	}
	return json.Marshal(jp)
}

// UnmarshalJSON decodes a passport. Certificates are PEM strings. The result
// is not parsed.
func (p *Passport) UnmarshalJSON(data []byte) error {
	var jp jsonPassport
	if err := json.Unmarshal(data, &jp); err != nil {
		return err
	}
	out := Passport{
		MRZ:             jp.MRZ,
		EContent:        jp.EContent,
		SignedAttr:      jp.SignedAttr,
		EncryptedDigest: jp.EncryptedDigest,
		SecondaryDigest: jp.SecondaryDigest,
	}
	if jp.DSC != "" {
		dsc, err := certificate.Parse([]byte(jp.DSC))
		if err != nil {
			return fmt.Errorf("dsc: %w", err)
		}
		out.DSC = dsc
	}
	if jp.CSCA != "" {
		csca, err := certificate.Parse([]byte(jp.CSCA))
		if err != nil {
			return fmt.Errorf("csca: %w", err)
		}
		out.CSCA = csca
	}
	*p = out
	return nil
}

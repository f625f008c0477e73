package der

import (
	"encoding/asn1"
	"encoding/hex"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/mynextid/zk-passport/asn1/oids"
)

var universalNames = map[int]string{
	asn1.TagBoolean:         "BOOLEAN",
	asn1.TagInteger:         "INTEGER",
	asn1.TagBitString:       "BIT STRING",
	asn1.TagOctetString:     "OCTET STRING",
	asn1.TagNull:            "NULL",
	asn1.TagOID:             "OBJECT IDENTIFIER",
	asn1.TagEnum:            "ENUMERATED",
	asn1.TagUTF8String:      "UTF8String",
	asn1.TagSequence:        "SEQUENCE",
	asn1.TagSet:             "SET",
	asn1.TagNumericString:   "NumericString",
	asn1.TagPrintableString: "PrintableString",
	asn1.TagT61String:       "T61String",
	asn1.TagIA5String:       "IA5String",
	asn1.TagUTCTime:         "UTCTime",
	asn1.TagGeneralizedTime: "GeneralizedTime",
	asn1.TagGeneralString:   "GeneralString",
	asn1.TagBMPString:       "BMPString",
}

// Print writes a listing of DER data to w in the style of dumpasn1: the
// offset and content length of every element, indented by depth. Offsets
// are those of data, so they can be used directly as circuit offsets. OCTET
// and BIT STRINGs holding a SEQUENCE are expanded. OIDs are named from
// registry; nil uses oids.DefaultRegistry. indent prefixes every line.
func Print(w io.Writer, data []byte, indent string, registry *oids.Registry) error {
	if registry == nil {
		registry = oids.DefaultRegistry
	}
	d := &dumper{w: w, indent: indent, registry: registry}
	return d.walk(data, 0, 0)
}

type dumper struct {
	w        io.Writer
	indent   string
	registry *oids.Registry
}

func (d *dumper) walk(data []byte, base, depth int) error {
	for off := 0; off < len(data); {
		var v asn1.RawValue
		rest, err := asn1.Unmarshal(data[off:], &v)
		if err != nil {
			return fmt.Errorf("der: offset %d: %w", base+off, err)
		}
		start := base + off + len(v.FullBytes) - len(v.Bytes)
		fmt.Fprintf(d.w, "%s%5d %4d: %s%s\n", d.indent, base+off, len(v.Bytes),
			strings.Repeat("  ", depth), d.describe(v))

		switch {
		case v.IsCompound:
			if err := d.walk(v.Bytes, start, depth+1); err != nil {
				return err
			}
		case v.Class == asn1.ClassUniversal && v.Tag == asn1.TagOctetString && encapsulates(v.Bytes):
			if err := d.walk(v.Bytes, start, depth+1); err != nil {
				return err
			}
		case v.Class == asn1.ClassUniversal && v.Tag == asn1.TagBitString && len(v.Bytes) > 1 &&
			v.Bytes[0] == 0 && encapsulates(v.Bytes[1:]):
			if err := d.walk(v.Bytes[1:], start+1, depth+1); err != nil {
				return err
			}
		}
		off = len(data) - len(rest)
	}
	return nil
}

// encapsulates reports whether b is exactly one DER SEQUENCE
func encapsulates(b []byte) bool {
	if len(b) < 2 || b[0] != TagSequence {
		return false
	}
	var v asn1.RawValue
	rest, err := asn1.Unmarshal(b, &v)
	return err == nil && len(rest) == 0
}

func tagName(v asn1.RawValue) string {
	switch v.Class {
	case asn1.ClassContextSpecific:
		return fmt.Sprintf("[%d]", v.Tag)
	case asn1.ClassApplication:
		return fmt.Sprintf("[APPLICATION %d]", v.Tag)
	case asn1.ClassPrivate:
		return fmt.Sprintf("[PRIVATE %d]", v.Tag)
	}
	if name, ok := universalNames[v.Tag]; ok {
		return name
	}
	return fmt.Sprintf("[UNIVERSAL %d]", v.Tag)
}

func hexPreview(b []byte, n int) string {
	s := strings.ToUpper(hex.EncodeToString(b[:min(n, len(b))]))
	if len(b) > n {
		s += "…"
	}
	return s
}

func (d *dumper) describe(v asn1.RawValue) string {
	name := tagName(v)
	if v.IsCompound || v.Class != asn1.ClassUniversal {
		return name
	}

	switch v.Tag {
	case asn1.TagNull:
		return name
	case asn1.TagBoolean:
		return fmt.Sprintf("%s %t", name, len(v.Bytes) > 0 && v.Bytes[0] != 0)
	case asn1.TagInteger, asn1.TagEnum:
		if len(v.Bytes) > 8 {
			return fmt.Sprintf("%s (%d bit) %s", name, new(big.Int).SetBytes(v.Bytes).BitLen(), hexPreview(v.Bytes, 8))
		}
		n := new(big.Int).SetBytes(v.Bytes)
		if len(v.Bytes) > 0 && v.Bytes[0]&0x80 != 0 {
			n.Sub(n, new(big.Int).Lsh(big.NewInt(1), uint(len(v.Bytes)*8)))
		}
		return fmt.Sprintf("%s %s", name, n)
	case asn1.TagOID:
		var oid asn1.ObjectIdentifier
		if _, err := asn1.Unmarshal(v.FullBytes, &oid); err != nil {
			return name + " (invalid)"
		}
		if desc := d.registry.LookupDescription(oid.String()); desc != "" {
			return fmt.Sprintf("%s %s %s", name, oid, desc)
		}
		return fmt.Sprintf("%s %s", name, oid)
	case asn1.TagUTCTime, asn1.TagGeneralizedTime:
		var t time.Time
		if _, err := asn1.Unmarshal(v.FullBytes, &t); err != nil {
			return fmt.Sprintf("%s '%s'", name, v.Bytes)
		}
		return fmt.Sprintf("%s %s", name, t.Format("2006-01-02 15:04:05 MST"))
	case asn1.TagPrintableString, asn1.TagIA5String, asn1.TagUTF8String,
		asn1.TagNumericString, asn1.TagT61String, asn1.TagGeneralString:
		s := string(v.Bytes)
		if len(s) > 64 {
			s = s[:64] + "…"
		}
		return fmt.Sprintf("%s '%s'", name, s)
	case asn1.TagBitString:
		if len(v.Bytes) == 0 {
			return name + " (empty)"
		}
		return fmt.Sprintf("%s (%d bit) %s", name, (len(v.Bytes)-1)*8-int(v.Bytes[0]), hexPreview(v.Bytes[1:], 16))
	default:
		return fmt.Sprintf("%s (%d byte) %s", name, len(v.Bytes), hexPreview(v.Bytes, 16))
	}
}

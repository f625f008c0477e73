// Package der walks and builds raw DER encodings. It complements
// encoding/asn1 where byte offsets into the original buffer matter, such as
// locating the TBS certificate or the subject public key for the circuits.
package der

import (
	"errors"
	"fmt"
)

var ErrTruncated = errors.New("der: truncated element")

// Common universal tags
const (
	TagInteger     = 0x02
	TagBitString   = 0x03
	TagOctetString = 0x04
	TagOID         = 0x06
	TagUTCTime     = 0x17
	TagSequence    = 0x30
	TagSet         = 0x31
)

// ReadLength decodes the length octets at idx and returns how many bytes
// they occupy and the length they encode
func ReadLength(data []byte, idx int) (lengthSize, length int, err error) {
	if idx >= len(data) {
		return 0, 0, ErrTruncated
	}
	first := data[idx]
	if first < 0x80 {
		return 1, int(first), nil
	}
	n := int(first & 0x7F)
	if n == 0 || n > 4 {
		return 0, 0, fmt.Errorf("der: unsupported length form 0x%02x at %d", first, idx)
	}
	if idx+1+n > len(data) {
		return 0, 0, ErrTruncated
	}
	for i := 0; i < n; i++ {
		length = (length << 8) | int(data[idx+1+i])
	}
	return 1 + n, length, nil
}

// Header returns the header size and content length of the element at idx
func Header(data []byte, idx int) (headerLen, contentLen int, err error) {
	if idx >= len(data) {
		return 0, 0, ErrTruncated
	}
	lengthSize, length, err := ReadLength(data, idx+1)
	if err != nil {
		return 0, 0, err
	}
	if idx+1+lengthSize+length > len(data) {
		return 0, 0, ErrTruncated
	}
	return 1 + lengthSize, length, nil
}

// SkipElement returns the offset just past the element at idx
func SkipElement(data []byte, idx int) (int, error) {
	h, l, err := Header(data, idx)
	if err != nil {
		return 0, err
	}
	return idx + h + l, nil
}

// Enter returns the offset of the first child of the constructed element at idx
func Enter(data []byte, idx int) (int, error) {
	h, _, err := Header(data, idx)
	if err != nil {
		return 0, err
	}
	return idx + h, nil
}

// Element returns the full encoding of the element at idx
func Element(data []byte, idx int) ([]byte, error) {
	end, err := SkipElement(data, idx)
	if err != nil {
		return nil, err
	}
	return data[idx:end], nil
}

// FindTBSStart returns the offset of the TBSCertificate inside a certificate
func FindTBSStart(certDER []byte) (int, error) {
	if len(certDER) == 0 || certDER[0] != TagSequence {
		return 0, fmt.Errorf("der: certificate does not start with a SEQUENCE")
	}
	return Enter(certDER, 0)
}

// FindSubjectPublicKeyPositionInTBS locates the subjectPublicKey BIT STRING
// within TBS bytes
func FindSubjectPublicKeyPositionInTBS(tbsDER []byte) (int, error) {
	idx, err := Enter(tbsDER, 0)
	if err != nil {
		return 0, err
	}

	// version is optional
	if idx < len(tbsDER) && tbsDER[idx] == 0xA0 {
		if idx, err = SkipElement(tbsDER, idx); err != nil {
			return 0, err
		}
	}

	// serialNumber, signature, issuer, validity, subject
	for i := 0; i < 5; i++ {
		if idx, err = SkipElement(tbsDER, idx); err != nil {
			return 0, fmt.Errorf("der: tbs field %d: %w", i+2, err)
		}
	}

	if idx >= len(tbsDER) || tbsDER[idx] != TagSequence {
		return 0, fmt.Errorf("der: subjectPublicKeyInfo not found at %d", idx)
	}
	if idx, err = Enter(tbsDER, idx); err != nil {
		return 0, err
	}
	// AlgorithmIdentifier
	if idx, err = SkipElement(tbsDER, idx); err != nil {
		return 0, err
	}
	if idx >= len(tbsDER) || tbsDER[idx] != TagBitString {
		return 0, fmt.Errorf("der: subjectPublicKey is not a BIT STRING")
	}
	return idx, nil
}

// EncodeLength encodes a DER length
func EncodeLength(length int) []byte {
	if length < 128 {
		return []byte{byte(length)}
	}

	var lenBytes []byte
	for length > 0 {
		lenBytes = append([]byte{byte(length & 0xFF)}, lenBytes...)
		length >>= 8
	}

	return append([]byte{0x80 | byte(len(lenBytes))}, lenBytes...)
}

// Wrap encodes content as a single TLV with the given tag
func Wrap(tag byte, content ...[]byte) []byte {
	n := 0
	for _, c := range content {
		n += len(c)
	}
	out := append([]byte{tag}, EncodeLength(n)...)
	for _, c := range content {
		out = append(out, c...)
	}
	return out
}

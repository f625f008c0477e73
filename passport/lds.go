package passport

import (
	"encoding/asn1"
	"fmt"
	"sort"
	"time"

	"github.com/mynextid/zk-passport/asn1/der"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
)

var (
	oidContentType       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 3}
	oidMessageDigest     = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 4}
	oidSigningTime       = asn1.ObjectIdentifier{1, 2, 840, 113549, 1, 9, 5}
	oidLDSSecurityObject = asn1.ObjectIdentifier{2, 23, 136, 1, 1, 1}
)

var hashOIDs = map[hashing.Function]asn1.ObjectIdentifier{
	hashing.SHA1:   {1, 3, 14, 3, 2, 26},
	hashing.SHA224: {2, 16, 840, 1, 101, 3, 4, 2, 4},
	hashing.SHA256: {2, 16, 840, 1, 101, 3, 4, 2, 1},
	hashing.SHA384: {2, 16, 840, 1, 101, 3, 4, 2, 2},
	hashing.SHA512: {2, 16, 840, 1, 101, 3, 4, 2, 3},
}

// MockSigningTime is the signing time used for generated passports
var MockSigningTime = time.Date(2019, time.December, 16, 17, 22, 38, 0, time.UTC)

// dataGroupHashLen is the encoded size of one DataGroupHash
// SEQUENCE{INTEGER dg, OCTET STRING hash}
func dataGroupHashLen(fn hashing.Function) int {
	return 2 + 3 + 2 + fn.Size()
}

// ldsHeader returns the LDSSecurityObject framing that precedes the DG1 hash:
// version, hash AlgorithmIdentifier, the opening of the hash sequence and the
// DG1 entry header. Lengths are those of a security object holding
// dataGroups hashes.
func ldsHeader(fn hashing.Function, dataGroups int) []byte {
	algID := der.Wrap(der.TagSequence,
		der.Wrap(der.TagOID, oidBytes(hashOIDs[fn])),
		[]byte{0x05, 0x00},
	)
	hashesLen := dataGroups * dataGroupHashLen(fn)
	dg1Entry := []byte{der.TagSequence, byte(3 + 2 + fn.Size()), der.TagInteger, 0x01, 0x01, der.TagOctetString, byte(fn.Size())}
	hashesHeader := append([]byte{der.TagSequence}, der.EncodeLength(hashesLen)...)

	body := append([]byte{der.TagInteger, 0x01, 0x00}, algID...)
	body = append(body, hashesHeader...)
	contentLen := len(body) + hashesLen
	body = append(body, dg1Entry...)

	outer := append([]byte{der.TagSequence}, der.EncodeLength(contentLen)...)
	return append(outer, body...)
}

func oidBytes(oid asn1.ObjectIdentifier) []byte {
	full, err := asn1.Marshal(oid)
	if err != nil {
		panic(err)
	}
	return full[2:]
}

// DefaultDG1Offset is the natural position of the DG1 hash for fn
func DefaultDG1Offset(fn hashing.Function, dataGroups int) int {
	return len(ldsHeader(fn, dataGroups))
}

// ConcatenateDataGroupHashes builds the data group hash blob: a prefix of
// dg1Offset bytes taken from the LDS framing, then the raw hash of every data
// group in ascending order. The DG1 hash is always recomputed from mrz.
func ConcatenateDataGroupHashes(mrz string, fn hashing.Function, hashes map[int][]byte, dg1Offset int) ([]byte, error) {
	if !fn.Valid() {
		return nil, fmt.Errorf("%w: hash function %v", common.ErrUnsupportedSignatureAlgorithm, fn)
	}
	if dg1Offset < 0 {
		return nil, fmt.Errorf("negative dg1 offset %d", dg1Offset)
	}
	dg1, err := FormatMrz(mrz)
	if err != nil {
		return nil, err
	}

	all := make(map[int][]byte, len(hashes)+1)
	for dg, h := range hashes {
		if dg < 1 || dg > 16 {
			return nil, fmt.Errorf("invalid data group number %d", dg)
		}
		if len(h) != fn.Size() {
			return nil, fmt.Errorf("%w: data group %d hash has %d bytes, %s needs %d",
				common.ErrHashLocationMismatch, dg, len(h), fn, fn.Size())
		}
		all[dg] = h
	}
	all[1] = fn.Sum(dg1)

	groups := make([]int, 0, len(all))
	for dg := range all {
		groups = append(groups, dg)
	}
	sort.Ints(groups)

	header := ldsHeader(fn, len(groups))
	prefix := make([]byte, dg1Offset)
	if dg1Offset <= len(header) {
		copy(prefix, header[len(header)-dg1Offset:])
	} else {
		copy(prefix[dg1Offset-len(header):], header)
	}

	out := prefix
	for _, dg := range groups {
		out = append(out, all[dg]...)
	}
	return out, nil
}

type attribute struct {
	Type   asn1.ObjectIdentifier
	Values asn1.RawValue `asn1:"set"`
}

func marshalAttributes(attrs []attribute) ([]byte, error) {
	seq, err := asn1.Marshal(attrs)
	if err != nil {
		return nil, err
	}
	// SET OF, not SEQUENCE OF
	seq[0] = der.TagSet
	return seq, nil
}

// AssembleSignedAttributes builds the signed attributes of the document
// security object: contentType (ldsSecurityObject), signingTime and
// messageDigest, in that order. A 32 byte digest gives 31 66 followed by 102
// content bytes.
func AssembleSignedAttributes(digest []byte, signingTime time.Time) ([]byte, error) {
	contentType, err := asn1.Marshal(oidLDSSecurityObject)
	if err != nil {
		return nil, fmt.Errorf("marshal content type: %w", err)
	}
	st, err := asn1.Marshal(signingTime.UTC())
	if err != nil {
		return nil, fmt.Errorf("marshal signing time: %w", err)
	}
	md, err := asn1.Marshal(digest)
	if err != nil {
		return nil, fmt.Errorf("marshal message digest: %w", err)
	}

	attrs := []attribute{
		{Type: oidContentType, Values: asn1.RawValue{FullBytes: der.Wrap(der.TagSet, contentType)}},
		{Type: oidSigningTime, Values: asn1.RawValue{FullBytes: der.Wrap(der.TagSet, st)}},
		{Type: oidMessageDigest, Values: asn1.RawValue{FullBytes: der.Wrap(der.TagSet, md)}},
	}
	return marshalAttributes(attrs)
}

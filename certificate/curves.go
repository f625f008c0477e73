package certificate

import (
	"crypto/elliptic"
	"encoding/asn1"
	"fmt"
	"math/big"

	"github.com/mynextid/zk-passport/common"
)

// Curve is a short Weierstrass curve y^2 = x^3 + ax + b over GF(p)
type Curve struct {
	Name    string
	OID     asn1.ObjectIdentifier
	P, A, B *big.Int
	Bits    int
	// std is set when the standard library can verify signatures on the curve
	std elliptic.Curve
}

// Elliptic returns the standard library curve, or nil when unavailable
func (c *Curve) Elliptic() elliptic.Curve {
	return c.std
}

// ByteLen is the encoded length of one coordinate
func (c *Curve) ByteLen() int {
	return (c.P.BitLen() + 7) / 8
}

// IsOnCurve checks the curve equation
func (c *Curve) IsOnCurve(x, y *big.Int) bool {
	if x.Sign() < 0 || x.Cmp(c.P) >= 0 || y.Sign() < 0 || y.Cmp(c.P) >= 0 {
		return false
	}
	lhs := new(big.Int).Mul(y, y)
	lhs.Mod(lhs, c.P)
	return lhs.Cmp(c.rhs(x)) == 0
}

// rhs computes x^3 + ax + b mod p
func (c *Curve) rhs(x *big.Int) *big.Int {
	r := new(big.Int).Exp(x, big.NewInt(3), c.P)
	ax := new(big.Int).Mul(c.A, x)
	r.Add(r, ax)
	r.Add(r, c.B)
	return r.Mod(r, c.P)
}

// Decompress recovers y from x and the parity of y
func (c *Curve) Decompress(x *big.Int, odd bool) (*big.Int, error) {
	y := new(big.Int).ModSqrt(c.rhs(x), c.P)
	if y == nil {
		return nil, fmt.Errorf("%w: x is not on %s", common.ErrMalformedCertificate, c.Name)
	}
	if (y.Bit(0) == 1) != odd {
		y.Sub(c.P, y)
	}
	return y, nil
}

// Unmarshal decodes an uncompressed (04) or compressed (02/03) SEC1 point
func (c *Curve) Unmarshal(data []byte) (x, y *big.Int, err error) {
	n := c.ByteLen()
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty EC point", common.ErrMalformedCertificate)
	}
	switch data[0] {
	case 0x04:
		if len(data) != 1+2*n {
			return nil, nil, fmt.Errorf("%w: EC point length %d for %s", common.ErrMalformedCertificate, len(data), c.Name)
		}
		x = new(big.Int).SetBytes(data[1 : 1+n])
		y = new(big.Int).SetBytes(data[1+n:])
	case 0x02, 0x03:
		if len(data) != 1+n {
			return nil, nil, fmt.Errorf("%w: compressed EC point length %d for %s", common.ErrMalformedCertificate, len(data), c.Name)
		}
		x = new(big.Int).SetBytes(data[1:])
		if y, err = c.Decompress(x, data[0] == 0x03); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, fmt.Errorf("%w: EC point prefix 0x%02x", common.ErrMalformedCertificate, data[0])
	}
	if !c.IsOnCurve(x, y) {
		return nil, nil, fmt.Errorf("%w: point is not on %s", common.ErrMalformedCertificate, c.Name)
	}
	return x, y, nil
}

func hexInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("certificate: bad curve constant " + s)
	}
	return v
}

func nistCurve(name string, oid asn1.ObjectIdentifier, c elliptic.Curve) *Curve {
	p := c.Params()
	return &Curve{
		Name: name,
		OID:  oid,
		P:    p.P,
		A:    new(big.Int).Sub(p.P, big.NewInt(3)),
		B:    p.B,
		Bits: p.BitSize,
		std:  c,
	}
}

// Curves lists the curves found on passport certificates
var Curves = []*Curve{
	nistCurve("secp224r1", asn1.ObjectIdentifier{1, 3, 132, 0, 33}, elliptic.P224()),
	nistCurve("secp256r1", asn1.ObjectIdentifier{1, 2, 840, 10045, 3, 1, 7}, elliptic.P256()),
	nistCurve("secp384r1", asn1.ObjectIdentifier{1, 3, 132, 0, 34}, elliptic.P384()),
	nistCurve("secp521r1", asn1.ObjectIdentifier{1, 3, 132, 0, 35}, elliptic.P521()),
	{
		Name: "brainpoolP224r1",
		OID:  asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 5},
		P:    hexInt("D7C134AA264366862A18302575D1D787B09F075797DA89F57EC8C0FF"),
		A:    hexInt("68A5E62CA9CE6C1C299803A6C1530B514E182AD8B0042A59CAD29F43"),
		B:    hexInt("2580F63CCFE44138870713B1A92369E33E2135D266DBB372386C400B"),
		Bits: 224,
	},
	{
		Name: "brainpoolP256r1",
		OID:  asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 7},
		P:    hexInt("A9FB57DBA1EEA9BC3E660A909D838D726E3BF623D52620282013481D1F6E5377"),
		A:    hexInt("7D5A0975FC2C3057EEF67530417AFFE7FB8055C126DC5C6CE94A4B44F330B5D9"),
		B:    hexInt("26DC5C6CE94A4B44F330B5D9BBD77CBF958416295CF7E1CE6BCCDC18FF8C07B6"),
		Bits: 256,
	},
	{
		Name: "brainpoolP384r1",
		OID:  asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 11},
		P:    hexInt("8CB91E82A3386D280F5D6F7E50E641DF152F7109ED5456B412B1DA197FB71123ACD3A729901D1A71874700133107EC53"),
		A:    hexInt("7BC382C63D8C150C3C72080ACE05AFA0C2BEA28E4FB22787139165EFBA91F90F8AA5814A503AD4EB04A8C7DD22CE2826"),
		B:    hexInt("04A8C7DD22CE28268B39B55416F0447C2FB77DE107DCD2A62E880EA53EEB62D57CB4390295DBC9943AB78696FA504C11"),
		Bits: 384,
	},
	{
		Name: "brainpoolP512r1",
		OID:  asn1.ObjectIdentifier{1, 3, 36, 3, 3, 2, 8, 1, 1, 13},
		P:    hexInt("AADD9DB8DBE9C48B3FD4E6AE33C9FC07CB308DB3B3C9D20ED6639CCA703308717D4D9B009BC66842AECDA12AE6A380E62881FF2F2D82C68528AA6056583A48F3"),
		A:    hexInt("7830A3318B603B89E2327145AC234CC594CBDD8D3DF91610A83441CAEA9863BC2DED5D5AA8253AA10A2EF1C98B9AC8B57F1117A72BF2C7B9E7C1AC4D77FC94CA"),
		B:    hexInt("3DF91610A83441CAEA9863BC2DED5D5AA8253AA10A2EF1C98B9AC8B57F1117A72BF2C7B9E7C1AC4D77FC94CADC083E67984050B75EBAE5DD2809BD638016F723"),
		Bits: 512,
	},
}

// CurveByOID finds a curve by its named curve OID
func CurveByOID(oid asn1.ObjectIdentifier) (*Curve, bool) {
	for _, c := range Curves {
		if c.OID.Equal(oid) {
			return c, true
		}
	}
	return nil, false
}

// CurveByName finds a curve by name
func CurveByName(name string) (*Curve, bool) {
	for _, c := range Curves {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}

// CurveByParams matches explicit domain parameters against the curve table
func CurveByParams(p, a, b *big.Int) (*Curve, bool) {
	for _, c := range Curves {
		if c.P.Cmp(p) == 0 && c.A.Cmp(a) == 0 && c.B.Cmp(b) == 0 {
			return c, true
		}
	}
	return nil, false
}

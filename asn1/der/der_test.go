package der_test

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/mynextid/zk-passport/asn1/der"
)

func TestEncodeLength(t *testing.T) {
	tests := []struct {
		length int
		want   []byte
	}{
		{0, []byte{0x00}},
		{102, []byte{0x66}},
		{127, []byte{0x7f}},
		{128, []byte{0x81, 0x80}},
		{300, []byte{0x82, 0x01, 0x2c}},
	}
	for _, tt := range tests {
		got := der.EncodeLength(tt.length)
		if !bytes.Equal(got, tt.want) {
			t.Errorf("EncodeLength(%d) = % x, want % x", tt.length, got, tt.want)
		}
		size, length, err := der.ReadLength(got, 0)
		if err != nil || size != len(got) || length != tt.length {
			t.Errorf("ReadLength(% x) = %d, %d, %v", got, size, length, err)
		}
	}
}

func TestReadLengthTruncated(t *testing.T) {
	if _, _, err := der.ReadLength([]byte{0x82, 0x01}, 0); err == nil {
		t.Fatal("expected an error for a truncated length")
	}
	if _, err := der.SkipElement([]byte{0x30, 0x05, 0x01}, 0); err == nil {
		t.Fatal("expected an error for truncated content")
	}
}

func TestWrap(t *testing.T) {
	got := der.Wrap(der.TagOctetString, []byte{1, 2}, []byte{3})
	if !bytes.Equal(got, []byte{0x04, 0x03, 1, 2, 3}) {
		t.Fatalf("Wrap = % x", got)
	}
}

func testCertificate(t *testing.T) *x509.Certificate {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	template := x509.Certificate{
		SerialNumber: big.NewInt(7),
		Subject:      pkix.Name{CommonName: "DER Test", Country: []string{"SI"}},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	raw, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		t.Fatal(err)
	}
	cert, err := x509.ParseCertificate(raw)
	if err != nil {
		t.Fatal(err)
	}
	return cert
}

func TestFindSubjectPublicKey(t *testing.T) {
	cert := testCertificate(t)

	start, err := der.FindTBSStart(cert.Raw)
	if err != nil {
		t.Fatalf("FindTBSStart failed: %v", err)
	}
	tbs, err := der.Element(cert.Raw, start)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(tbs, cert.RawTBSCertificate) {
		t.Fatal("TBS slice does not match the parsed certificate")
	}

	pos, err := der.FindSubjectPublicKeyPositionInTBS(tbs)
	if err != nil {
		t.Fatalf("FindSubjectPublicKeyPositionInTBS failed: %v", err)
	}
	// 03 42 00 04 || X || Y
	if tbs[pos] != 0x03 || tbs[pos+1] != 0x42 || tbs[pos+2] != 0x00 || tbs[pos+3] != 0x04 {
		t.Fatalf("unexpected key header % x", tbs[pos:pos+4])
	}
	pub := cert.PublicKey.(*ecdsa.PublicKey)
	x := pub.X.FillBytes(make([]byte, 32))
	if !bytes.Equal(tbs[pos+4:pos+36], x) {
		t.Error("X coordinate mismatch")
	}
}

func TestPrint(t *testing.T) {
	cert := testCertificate(t)
	var buf bytes.Buffer
	if err := der.Print(&buf, cert.Raw, "", nil); err != nil {
		t.Fatalf("Print failed: %v", err)
	}
	out := buf.String()
	_, length, err := der.Header(cert.Raw, 0)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, fmt.Sprintf("%5d %4d: SEQUENCE\n", 0, length)) {
		t.Errorf("unexpected first line:\n%s", out)
	}
	for _, want := range []string{"ecdsaWithSHA256", "'DER Test'", "BIT STRING"} {
		if !strings.Contains(out, want) {
			t.Errorf("output is missing %q:\n%s", want, out)
		}
	}
}

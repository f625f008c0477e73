package commitment_test

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/passport"
)

func mockPassport(t *testing.T) *passport.Passport {
	t.Helper()
	p, _, err := passport.GenerateMock(passport.MockOptions{
		Key: certificate.KeySpec{Family: certificate.ECDSA, Curve: "secp256r1"},
	})
	if err != nil {
		t.Fatalf("GenerateMock failed: %v", err)
	}
	return p
}

func TestGenerateCommitment(t *testing.T) {
	p := mockPassport(t)
	secret := big.NewInt(1234)

	c1, err := commitment.GenerateCommitment(secret, passport.AttestationPassport, p)
	if err != nil {
		t.Fatalf("GenerateCommitment failed: %v", err)
	}
	c2, err := commitment.GenerateCommitment(secret, passport.AttestationPassport, p)
	if err != nil {
		t.Fatal(err)
	}
	if c1.Cmp(c2) != 0 {
		t.Fatal("commitment is not deterministic")
	}

	other, _ := commitment.GenerateCommitment(big.NewInt(1235), passport.AttestationPassport, p)
	if other.Cmp(c1) == 0 {
		t.Error("different secrets produced the same commitment")
	}
	idCard, _ := commitment.GenerateCommitment(secret, passport.AttestationIDCard, p)
	if idCard.Cmp(c1) == 0 {
		t.Error("attestation id does not affect the commitment")
	}

	// recompute from the primitives
	meta, _ := p.Metadata()
	dg1, _ := passport.FormatMrz(p.MRZ)
	dg1Hash, _ := hashing.PackBytesAndPoseidon(dg1)
	eContentHash, _ := hashing.PackBytesAndPoseidon(meta.EContentHashFunction.Sum(p.EContent))
	dscWords, _ := certificate.KeyWords(p.DSC.PublicKey)
	dscHash, _ := hashing.CustomHasher(dscWords)
	cscaWords, _ := certificate.KeyWords(p.CSCA.PublicKey)
	cscaHash, _ := hashing.CustomHasher(cscaWords)

	want, err := hashing.Poseidon(secret, big.NewInt(1), dg1Hash, eContentHash, dscHash, cscaHash)
	if err != nil {
		t.Fatal(err)
	}
	if c1.Cmp(want) != 0 {
		t.Errorf("commitment = %s, want %s", c1, want)
	}
}

func TestGenerateCommitmentErrors(t *testing.T) {
	p := mockPassport(t)

	unparsed := &passport.Passport{MRZ: p.MRZ, DSC: p.DSC, CSCA: p.CSCA, EContent: p.EContent}
	if _, err := commitment.GenerateCommitment(big.NewInt(1), 1, unparsed); !errors.Is(err, common.ErrNotParsed) {
		t.Errorf("expected ErrNotParsed, got %v", err)
	}

	noCSCA := *p
	noCSCA.CSCA = nil
	if _, err := commitment.GenerateCommitment(big.NewInt(1), 1, &noCSCA); !errors.Is(err, common.ErrCSCANotResolved) {
		t.Errorf("expected ErrCSCANotResolved, got %v", err)
	}

	q, _ := new(big.Int).SetString("21888242871839275222246405745257275088548364400416034343698204186575808495617", 10)
	if _, err := commitment.GenerateCommitment(q, 1, p); !errors.Is(err, common.ErrFieldOverflow) {
		t.Errorf("expected ErrFieldOverflow, got %v", err)
	}
}

func TestGenerateNullifier(t *testing.T) {
	secret := big.NewInt(42)
	a, err := commitment.GenerateNullifier(secret, big.NewInt(1))
	if err != nil {
		t.Fatalf("GenerateNullifier failed: %v", err)
	}
	b, _ := commitment.GenerateNullifier(secret, big.NewInt(2))
	if a.Cmp(b) == 0 {
		t.Error("nullifier must change with the scope")
	}
	again, _ := commitment.GenerateNullifier(secret, big.NewInt(1))
	if a.Cmp(again) != 0 {
		t.Error("nullifier is not deterministic")
	}
	want, _ := hashing.Poseidon(secret, big.NewInt(1))
	if a.Cmp(want) != 0 {
		t.Error("nullifier is not Poseidon2(secret, scope)")
	}
}

func TestScopeFromString(t *testing.T) {
	s, err := commitment.ScopeFromString("abc")
	if err != nil {
		t.Fatal(err)
	}
	if s.Int64() != 0x616263 {
		t.Errorf("scope = %x", s)
	}
	if _, err := commitment.ScopeFromString(strings.Repeat("x", 32)); !errors.Is(err, common.ErrIntegerTooLarge) {
		t.Errorf("expected ErrIntegerTooLarge, got %v", err)
	}
}

func TestUserIdentifier(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"0x000000000000000000000000000000000000dEaD", "dead", false},
		{"123e4567-e89b-12d3-a456-426614174000", "123e4567e89b12d3a456426614174000", false},
		{"0x1234", "", true},
		{"not-a-uuid", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := commitment.ParseUserIdentifier(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected an error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseUserIdentifier failed: %v", err)
			}
			if got.Text(16) != tt.want {
				t.Errorf("got %x, want %s", got, tt.want)
			}
		})
	}
}

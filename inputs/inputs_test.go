package inputs_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/iden3/go-rapidsnark/types"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/inputs"
	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/passport"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/watchlist"
)

func init() {
	logger.Disable()
}

var (
	mockOnce sync.Once
	mock     *passport.Passport
	mockErr  error
)

func mockPassport(t *testing.T) *passport.Passport {
	t.Helper()
	mockOnce.Do(func() {
		mock, _, mockErr = passport.GenerateMock(passport.MockOptions{
			Key: certificate.KeySpec{Family: certificate.ECDSA, Curve: "secp256r1"},
		})
	})
	if mockErr != nil {
		t.Fatalf("GenerateMock failed: %v", mockErr)
	}
	return mock
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   any
		want []string
	}{
		{"int", 5, []string{"5"}},
		{"bool", true, []string{"1"}},
		{"big", big.NewInt(42), []string{"42"}},
		{"bytes", []byte{0, 255}, []string{"0", "255"}},
		{"ints", []int{1, 2, 3}, []string{"1", "2", "3"}},
		{"hex string", "0x10", []string{"16"}},
		{"decimal string", "0123", []string{"123"}},
		{"nested", []any{1, []byte{2, 3}}, []string{"1", "2", "3"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := inputs.Normalize(tt.in)
			if err != nil {
				t.Fatal(err)
			}
			if strings.Join(got, ",") != strings.Join(tt.want, ",") {
				t.Errorf("got %v want %v", got, tt.want)
			}
		})
	}

	bad := []any{-1, big.NewInt(-5), field.Modulus(), "-3", 1.5}
	for _, v := range bad {
		if _, err := inputs.Normalize(v); err == nil {
			t.Errorf("expected error for %v", v)
		}
	}
	if _, err := inputs.Normalize(field.Modulus()); !errors.Is(err, common.ErrFieldOverflow) {
		t.Errorf("expected ErrFieldOverflow, got %v", err)
	}
}

var testLayout = inputs.Layout{
	Name: "test",
	Fields: []inputs.Field{
		{Name: "a", Len: 2},
		{Name: "b", Len: 1, Visibility: inputs.Public},
	},
}

func TestValidate(t *testing.T) {
	ok := inputs.CircuitInputs{"a": {"1", "2"}, "b": {"3"}}
	if err := ok.Validate(testLayout); err != nil {
		t.Fatal(err)
	}

	bad := []inputs.CircuitInputs{
		{"a": {"1", "2"}},
		{"a": {"1"}, "b": {"3"}},
		{"a": {"1", "2"}, "b": {"3"}, "c": {"4"}},
		{"a": {"1", "x"}, "b": {"3"}},
		{"a": {"1", field.Modulus().String()}, "b": {"3"}},
	}
	for i, c := range bad {
		if err := c.Validate(testLayout); err == nil {
			t.Errorf("case %d: expected error", i)
		}
	}
}

func TestWitness(t *testing.T) {
	c := inputs.CircuitInputs{"a": {"1", "2"}, "b": {"3"}}
	w, err := c.Witness(testLayout)
	if err != nil {
		t.Fatal(err)
	}
	vec, ok := w.Vector().(fr.Vector)
	if !ok || len(vec) != 3 {
		t.Fatalf("unexpected witness vector %v", w.Vector())
	}
	// public values come first
	want := []int64{3, 1, 2}
	for i, v := range vec {
		if v.BigInt(new(big.Int)).Int64() != want[i] {
			t.Errorf("element %d: got %s want %d", i, v.String(), want[i])
		}
	}

	pub, err := w.Public()
	if err != nil {
		t.Fatal(err)
	}
	if pv := pub.Vector().(fr.Vector); len(pv) != 1 {
		t.Errorf("public witness has %d elements", len(pv))
	}
	if _, err := w.MarshalBinary(); err != nil {
		t.Errorf("MarshalBinary: %v", err)
	}
}

func TestGenerateRegisterInputs(t *testing.T) {
	p := mockPassport(t)
	meta, _ := p.Metadata()

	r, err := inputs.GenerateRegisterInputs(p, big.NewInt(1), big.NewInt(2))
	if err != nil {
		t.Fatal(err)
	}
	if r.Circuit != "register_sha256_sha256_sha256_ecdsa_secp256r1_256" {
		t.Errorf("circuit %s", r.Circuit)
	}
	if len(r.DG1) != 93 || r.DG1HashOffset != meta.DG1HashOffset {
		t.Errorf("dg1 %d bytes at offset %d", len(r.DG1), r.DG1HashOffset)
	}
	if len(r.EContent) != 512 || string(r.EContent[:len(p.EContent)]) != string(p.EContent) {
		t.Errorf("eContent not padded in place")
	}
	if r.EContentPaddedLength%64 != 0 || r.EContentPaddedLength <= len(p.EContent) {
		t.Errorf("eContent padded length %d", r.EContentPaddedLength)
	}
	if len(r.SignedAttr) != 128 || r.SignedAttrPaddedLength != 128 {
		t.Errorf("signed attributes %d padded to %d", len(r.SignedAttr), r.SignedAttrPaddedLength)
	}
	if len(r.PubKeyDSC) != 8 || len(r.SignaturePassport) != 8 {
		t.Errorf("key words %d signature words %d", len(r.PubKeyDSC), len(r.SignaturePassport))
	}

	c, err := r.CircuitInputs()
	if err != nil {
		t.Fatal(err)
	}
	if c["secret"][0] != "1" || c["salt"][0] != "2" {
		t.Errorf("secret and salt not carried")
	}
	if _, err := c.Witness(r.Layout()); err != nil {
		t.Errorf("Witness: %v", err)
	}

	random, err := inputs.GenerateRegisterInputs(p, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if random.Secret == nil || random.Salt == nil {
		t.Errorf("secret and salt not generated")
	}
}

func TestInputsDeterministic(t *testing.T) {
	p := mockPassport(t)
	secret, salt := big.NewInt(1234), big.NewInt(5678)

	encode := func(gen func() (inputs.CircuitInputs, error)) string {
		t.Helper()
		c, err := gen()
		if err != nil {
			t.Fatal(err)
		}
		out, err := c.MarshalIndent()
		if err != nil {
			t.Fatal(err)
		}
		return string(out)
	}
	register := func() (inputs.CircuitInputs, error) {
		r, err := inputs.GenerateRegisterInputs(p, secret, salt)
		if err != nil {
			return nil, err
		}
		return r.CircuitInputs()
	}
	dsc := func() (inputs.CircuitInputs, error) {
		d, err := inputs.GenerateDSCInputs(p, salt)
		if err != nil {
			return nil, err
		}
		return d.CircuitInputs()
	}

	if a, b := encode(register), encode(register); a != b {
		t.Error("register inputs differ between runs")
	}
	if a, b := encode(dsc), encode(dsc); a != b {
		t.Error("dsc inputs differ between runs")
	}
}

func TestGenerateRegisterInputsErrors(t *testing.T) {
	p := mockPassport(t)

	unparsed := &passport.Passport{MRZ: p.MRZ, DSC: p.DSC, EContent: p.EContent, SignedAttr: p.SignedAttr}
	if _, err := inputs.GenerateRegisterInputs(unparsed, nil, nil); !errors.Is(err, common.ErrNotParsed) {
		t.Errorf("expected ErrNotParsed, got %v", err)
	}

	noCSCA := *p
	noCSCA.CSCA = nil
	if _, err := inputs.GenerateRegisterInputs(&noCSCA, nil, nil); !errors.Is(err, common.ErrCSCANotResolved) {
		t.Errorf("expected ErrCSCANotResolved, got %v", err)
	}
}

func TestGenerateDSCInputs(t *testing.T) {
	p := mockPassport(t)
	d, err := inputs.GenerateDSCInputs(p, big.NewInt(9))
	if err != nil {
		t.Fatal(err)
	}
	if d.Circuit != "dsc_ecdsa_sha256_secp256r1_256" {
		t.Errorf("circuit %s", d.Circuit)
	}
	tbs := p.DSC.RawTBS
	if d.DSCPubKeyLength != 65 || tbs[d.DSCPubKeyOffset-1] != 0 || tbs[d.DSCPubKeyOffset] != 0x04 {
		t.Errorf("public key located at %d with length %d", d.DSCPubKeyOffset, d.DSCPubKeyLength)
	}
	if len(d.RawDSC) != inputs.MaxPaddedDSCLen[p.DSC.SignatureAlgorithm.Hash] {
		t.Errorf("raw dsc buffer %d", len(d.RawDSC))
	}
	if _, err := d.CircuitInputs(); err != nil {
		t.Fatal(err)
	}

	want, _ := commitment.CSCAPubKeyHash(p)
	if d.PubKeyCSCAHash.Cmp(want) != 0 {
		t.Errorf("csca key hash mismatch")
	}
}

func TestGenerateDiscloseInputs(t *testing.T) {
	p := mockPassport(t)
	ctx := context.Background()
	secret := big.NewInt(777)

	leaf, err := commitment.GenerateCommitment(secret, passport.AttestationPassport, p)
	if err != nil {
		t.Fatal(err)
	}
	tree := registry.New(registry.DefaultMaxDepth)
	for _, v := range []*big.Int{big.NewInt(11), leaf, big.NewInt(13)} {
		if _, err := tree.Insert(v); err != nil {
			t.Fatal(err)
		}
	}
	wl, err := watchlist.Build(ctx, watchlist.SliceSource{
		{FirstName: "John", LastName: "Doe", DOB: "700101", PassportNumbers: []string{"X1234567"}},
	}, watchlist.Options{})
	if err != nil {
		t.Fatal(err)
	}

	d, err := inputs.GenerateDiscloseInputs(ctx, inputs.DiscloseOptions{
		Passport:           p,
		Secret:             secret,
		Registry:           tree,
		Watchlist:          wl,
		Reveal:             []string{"nationality", "name"},
		Majority:           18,
		Scope:              big.NewInt(5),
		CurrentDate:        time.Date(2025, 3, 9, 0, 0, 0, 0, time.UTC),
		ForbiddenCountries: []string{"PRK", "IRN"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if d.MerkleRoot.Cmp(tree.Root()) != 0 || len(d.Siblings) != registry.DefaultMaxDepth {
		t.Errorf("registry proof not padded to the tree depth")
	}
	if !d.SelectorOFAC || len(d.SMTRoots) != 3 || len(d.SMTSiblings[0]) != wl.Depth() {
		t.Errorf("watchlist inputs missing")
	}

	c, err := d.CircuitInputs()
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(c["current_date"], "") != "250309" {
		t.Errorf("current_date %v", c["current_date"])
	}
	if strings.Join(c["majority"], ",") != "49,56" {
		t.Errorf("majority %v", c["majority"])
	}
	if c["forbidden_countries_list"][0] != "80" || c["forbidden_countries_list"][6] != "0" {
		t.Errorf("forbidden countries %v", c["forbidden_countries_list"][:7])
	}

	revealed, err := d.Revealed(inputs.RevealV2)
	if err != nil {
		t.Fatal(err)
	}
	attrs, err := inputs.ExtractAttributes(revealed)
	if err != nil {
		t.Fatal(err)
	}
	mismatches := attrs.Compare(&inputs.Attributes{
		Nationality: "FRA",
		Name:        "DUPONT ALPHONSE HUGUES ALBERT",
		OlderThan:   "18",
	})
	if len(mismatches) != 0 {
		t.Errorf("unexpected mismatches %v", mismatches)
	}
	if attrs.PassportNumber != "" || attrs.DateOfBirth != "" {
		t.Errorf("unselected attributes revealed: %+v", attrs)
	}

	n, err := d.Nullifier()
	if err != nil {
		t.Fatal(err)
	}
	want, _ := commitment.GenerateNullifier(secret, big.NewInt(5))
	if n.Cmp(want) != 0 {
		t.Errorf("nullifier mismatch")
	}
}

func TestGenerateDiscloseInputsNotRegistered(t *testing.T) {
	p := mockPassport(t)
	tree := registry.New(registry.DefaultMaxDepth)
	if _, err := tree.Insert(big.NewInt(1)); err != nil {
		t.Fatal(err)
	}
	_, err := inputs.GenerateDiscloseInputs(context.Background(), inputs.DiscloseOptions{
		Passport: p,
		Secret:   big.NewInt(1),
		Registry: tree,
	})
	if !errors.Is(err, common.ErrCommitmentNotFound) {
		t.Errorf("expected ErrCommitmentNotFound, got %v", err)
	}
}

func TestReveal(t *testing.T) {
	sel, err := inputs.SelectorDG1("passport_number", "date_of_birth")
	if err != nil {
		t.Fatal(err)
	}
	for _, l := range []inputs.RevealLayout{inputs.RevealV1, inputs.RevealV2} {
		revealed, err := inputs.RevealedBytes(passport.SampleMRZ, sel, true, "21", l)
		if err != nil {
			t.Fatal(err)
		}
		packed, err := inputs.PackReveal(revealed, l)
		if err != nil {
			t.Fatal(err)
		}
		if len(packed) != 3 {
			t.Fatalf("packed into %d elements", len(packed))
		}

		proof := &types.ZKProof{PubSignals: append([]string{"123"}, packed...)}
		unpacked, err := inputs.UnpackRevealFromProof(proof, 1, l)
		if err != nil {
			t.Fatal(err)
		}
		if string(unpacked) != string(revealed) {
			t.Errorf("round trip mismatch")
		}

		attrs, err := inputs.ExtractAttributes(unpacked)
		if err != nil {
			t.Fatal(err)
		}
		if attrs.PassportNumber != "24HB81832" || attrs.DateOfBirth != "040211" || attrs.Name != "" {
			t.Errorf("unexpected attributes %+v", attrs)
		}
		wantOlder := ""
		if l.Len() >= 90 {
			wantOlder = "21"
		}
		if attrs.OlderThan != wantOlder {
			t.Errorf("older than %q want %q", attrs.OlderThan, wantOlder)
		}
	}

	if _, err := inputs.UnpackRevealFromProof(&types.ZKProof{PubSignals: []string{"1"}}, 0, inputs.RevealV1); err == nil {
		t.Errorf("expected error for short public signals")
	}
	if _, err := inputs.UnpackReveal([]string{"1", "2"}, inputs.RevealV1); err == nil {
		t.Errorf("expected error for wrong element count")
	}
	if _, err := inputs.PackReveal(make([]byte, 91), inputs.RevealV2); !errors.Is(err, common.ErrTooManyElements) {
		t.Errorf("expected ErrTooManyElements, got %v", err)
	}
	if _, err := inputs.SelectorDG1("shoe_size"); err == nil {
		t.Errorf("expected error for unknown attribute")
	}
}

func TestCompare(t *testing.T) {
	a := &inputs.Attributes{Nationality: "FRA", OlderThan: "18"}
	tests := []struct {
		name     string
		expected inputs.Attributes
		n        int
	}{
		{"match", inputs.Attributes{Nationality: "FRA"}, 0},
		{"empty expects nothing", inputs.Attributes{}, 0},
		{"nationality", inputs.Attributes{Nationality: "DEU"}, 1},
		{"older than lower", inputs.Attributes{OlderThan: "16"}, 0},
		{"older than higher", inputs.Attributes{OlderThan: "21"}, 1},
		{"unrevealed", inputs.Attributes{Gender: "F", Nationality: "DEU"}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := a.Compare(&tt.expected); len(got) != tt.n {
				t.Errorf("got %v", got)
			}
		})
	}
}

func TestCountryList(t *testing.T) {
	if _, err := inputs.CountryList(make([]string, 21)); !errors.Is(err, common.ErrTooManyElements) {
		t.Errorf("expected ErrTooManyElements, got %v", err)
	}
	if _, err := inputs.CountryList([]string{"FR"}); err == nil {
		t.Errorf("expected error for two letter code")
	}
	l, err := inputs.CountryList([]string{"FRA"})
	if err != nil || len(l) != 60 || string(l[:3]) != "FRA" {
		t.Errorf("unexpected list %v %v", l, err)
	}
}

package server_test

import (
	"bytes"
	"context"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mynextid/zk-passport/certificate"
	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/config"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/inputs"
	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/passport"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/server"
	"github.com/mynextid/zk-passport/server/api"
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

func newTestServer(t *testing.T, opts api.Options) *httptest.Server {
	t.Helper()
	cfg := &server.ServeConfig{
		MaxRequestSize: 1 << 20,
		WriteTimeout:   30 * time.Second,
	}
	r := server.NewRouter(api.NewServer(opts), cfg, server.NewLogger(zerolog.Nop()))
	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}

func do(t *testing.T, ts *httptest.Server, method, path string, body any, out any) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestHealthAndAlgorithms(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	var health map[string]string
	if code := do(t, ts, http.MethodGet, "/health", nil, &health); code != http.StatusOK {
		t.Fatalf("health status %d", code)
	}
	if health["status"] != "healthy" {
		t.Errorf("status = %q", health["status"])
	}

	var algs api.AlgorithmListResponse
	if code := do(t, ts, http.MethodGet, "/algorithms", nil, &algs); code != http.StatusOK {
		t.Fatalf("algorithms status %d", code)
	}
	if algs.Count == 0 || algs.Count != len(algs.Algorithms) {
		t.Errorf("count %d with %d algorithms", algs.Count, len(algs.Algorithms))
	}
	for i := 1; i < len(algs.Algorithms); i++ {
		if algs.Algorithms[i-1].Name > algs.Algorithms[i].Name {
			t.Fatalf("algorithms not sorted at %d", i)
		}
	}
}

func TestParseCertificate(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	p := mockPassport(t)

	var resp api.CertificateResponse
	code := do(t, ts, http.MethodPost, "/certificates/parse", api.CertificateRequest{PEM: string(p.DSC.PEM())}, &resp)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if !resp.Supported {
		t.Errorf("algorithm %s not supported", resp.Algorithm)
	}
	if resp.PublicKey.Curve != "secp256r1" {
		t.Errorf("curve = %q", resp.PublicKey.Curve)
	}
	want, err := commitment.PubKeyHash(p.DSC.PublicKey)
	if err != nil {
		t.Fatal(err)
	}
	if resp.PublicKey.Hash.Value().Cmp(want) != 0 {
		t.Errorf("key hash = %s want %s", resp.PublicKey.Hash, want)
	}

	if code := do(t, ts, http.MethodPost, "/certificates/parse", api.CertificateRequest{PEM: "garbage"}, nil); code < 400 {
		t.Errorf("garbage certificate accepted with %d", code)
	}
}

func TestCommitmentAndRegistry(t *testing.T) {
	ts := newTestServer(t, api.Options{Registry: registry.New(registry.DefaultMaxDepth)})
	p := mockPassport(t)

	var c api.CommitmentResponse
	code := do(t, ts, http.MethodPost, "/commitments", api.PassportRequest{Passport: p, Secret: "1234"}, &c)
	if code != http.StatusOK {
		t.Fatalf("commitment status %d", code)
	}
	want, err := commitment.GenerateCommitment(big.NewInt(1234), passport.AttestationPassport, p)
	if err != nil {
		t.Fatal(err)
	}
	if c.Commitment.Value().Cmp(want) != 0 {
		t.Fatalf("commitment = %s want %s", c.Commitment, want)
	}
	if !c.SignatureVerified {
		t.Error("mock signature not verified")
	}

	if code := do(t, ts, http.MethodGet, "/registry/proof/"+want.String(), nil, nil); code != http.StatusNotFound {
		t.Errorf("unregistered proof status %d", code)
	}

	var ins api.InsertResponse
	code = do(t, ts, http.MethodPost, "/registry/commitments", api.InsertRequest{
		Commitments: []field.Decimal{field.NewDecimal(big.NewInt(7)), c.Commitment},
	}, &ins)
	if code != http.StatusCreated {
		t.Fatalf("insert status %d", code)
	}
	if ins.Inserted != 2 || ins.Registry.Size != 2 {
		t.Errorf("inserted %d size %d", ins.Inserted, ins.Registry.Size)
	}

	var proof api.ProofResponse
	if code := do(t, ts, http.MethodGet, "/registry/proof/"+want.String(), nil, &proof); code != http.StatusOK {
		t.Fatalf("proof status %d", code)
	}
	if proof.Index != 1 {
		t.Errorf("index = %d", proof.Index)
	}
	if proof.Root.Value().Cmp(ins.Registry.Root.Value()) != 0 {
		t.Error("proof root differs from registry root")
	}
	if len(proof.Siblings) != registry.DefaultMaxDepth {
		t.Errorf("siblings = %d", len(proof.Siblings))
	}
}

func TestNullifier(t *testing.T) {
	ts := newTestServer(t, api.Options{})

	var resp api.NullifierResponse
	code := do(t, ts, http.MethodPost, "/nullifiers", api.NullifierRequest{Secret: "1234", Scope: "my-app"}, &resp)
	if code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	scope, err := commitment.ScopeFromString("my-app")
	if err != nil {
		t.Fatal(err)
	}
	want, err := commitment.GenerateNullifier(big.NewInt(1234), scope)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Nullifier.Value().Cmp(want) != 0 {
		t.Errorf("nullifier = %s want %s", resp.Nullifier, want)
	}

	if code := do(t, ts, http.MethodPost, "/nullifiers", api.NullifierRequest{Scope: "my-app"}, nil); code != http.StatusBadRequest {
		t.Errorf("missing secret status %d", code)
	}
}

func TestWatchlist(t *testing.T) {
	ts := newTestServer(t, api.Options{})
	if code := do(t, ts, http.MethodGet, "/watchlist", nil, nil); code != http.StatusServiceUnavailable {
		t.Errorf("status without watchlist %d", code)
	}

	w, err := watchlist.Build(context.Background(), watchlist.SliceSource{
		{FirstName: "Alphonse Hugues Albert", LastName: "Dupont", DOB: "040211", PassportNumbers: []string{"24HB81832"}},
	}, watchlist.Options{Depth: 32})
	if err != nil {
		t.Fatal(err)
	}
	ts = newTestServer(t, api.Options{Watchlist: w})

	var roots api.WatchlistResponse
	if code := do(t, ts, http.MethodGet, "/watchlist", nil, &roots); code != http.StatusOK {
		t.Fatalf("status %d", code)
	}
	if len(roots.Roots) != 3 || roots.Depth != 32 {
		t.Errorf("roots %v depth %d", roots.Roots, roots.Depth)
	}

	var proof api.WatchlistProofResponse
	code := do(t, ts, http.MethodPost, "/watchlist/name/prove", api.WatchlistProveRequest{MRZ: passport.SampleMRZ}, &proof)
	if code != http.StatusOK {
		t.Fatalf("prove status %d", code)
	}
	if !proof.Member || len(proof.Siblings) != 32 {
		t.Errorf("member %v siblings %d", proof.Member, len(proof.Siblings))
	}

	if code := do(t, ts, http.MethodPost, "/watchlist/unknown/prove", api.WatchlistProveRequest{MRZ: passport.SampleMRZ}, nil); code != http.StatusBadRequest {
		t.Errorf("unknown level status %d", code)
	}
}

func TestInputs(t *testing.T) {
	ts := newTestServer(t, api.Options{Registry: registry.New(registry.DefaultMaxDepth)})
	p := mockPassport(t)

	var reg api.InputsResponse
	code := do(t, ts, http.MethodPost, "/inputs/register", api.PassportRequest{Passport: p, Secret: "1234", Salt: "5"}, &reg)
	if code != http.StatusOK {
		t.Fatalf("register status %d", code)
	}
	if reg.Circuit != "register_sha256_sha256_sha256_ecdsa_secp256r1_256" {
		t.Errorf("circuit = %q", reg.Circuit)
	}
	if got := reg.Inputs["secret"]; len(got) != 1 || got[0] != "1234" {
		t.Errorf("secret = %v", got)
	}

	disclose := api.DiscloseRequest{
		PassportRequest: api.PassportRequest{Passport: p, Secret: "1234"},
		Reveal:          []string{"nationality", "older_than"},
		Scope:           "my-app",
		CurrentDate:     "250309",
	}
	if code := do(t, ts, http.MethodPost, "/inputs/disclose", disclose, nil); code != http.StatusNotFound {
		t.Fatalf("unregistered disclose status %d", code)
	}

	var c api.CommitmentResponse
	do(t, ts, http.MethodPost, "/commitments", api.PassportRequest{Passport: p, Secret: "1234"}, &c)
	if code := do(t, ts, http.MethodPost, "/registry/commitments", api.InsertRequest{Commitments: []field.Decimal{c.Commitment}}, nil); code != http.StatusCreated {
		t.Fatalf("insert status %d", code)
	}

	var d api.DiscloseResponse
	if code := do(t, ts, http.MethodPost, "/inputs/disclose", disclose, &d); code != http.StatusOK {
		t.Fatalf("disclose status %d", code)
	}
	if d.Circuit != "vc_and_disclose" {
		t.Errorf("circuit = %q", d.Circuit)
	}
	if len(d.Revealed) != 3 {
		t.Fatalf("revealed elements = %d", len(d.Revealed))
	}

	var un api.UnpackResponse
	code = do(t, ts, http.MethodPost, "/reveal/unpack", api.UnpackRequest{
		Signals:  d.Revealed,
		Expected: &inputs.Attributes{Nationality: "FRA", OlderThan: "18"},
	}, &un)
	if code != http.StatusOK {
		t.Fatalf("unpack status %d", code)
	}
	if !un.Valid || un.Attributes.Nationality != "FRA" || un.Attributes.Name != "" {
		t.Errorf("unpacked %+v mismatches %v", un.Attributes, un.Mismatches)
	}

	if code := do(t, ts, http.MethodPost, "/reveal/unpack", api.UnpackRequest{}, nil); code != http.StatusBadRequest {
		t.Errorf("empty unpack status %d", code)
	}
}

func TestLoadOptions(t *testing.T) {
	conf := config.Default()
	conf.Registry.MaxDepth = 8
	opts, err := server.LoadOptions(context.Background(), conf, server.NewLogger(zerolog.Nop()))
	if err != nil {
		t.Fatal(err)
	}
	if opts.Registry.MaxDepth() != 8 || opts.Registry.Size() != 0 {
		t.Errorf("registry depth %d size %d", opts.Registry.MaxDepth(), opts.Registry.Size())
	}
	if opts.Watchlist != nil {
		t.Error("watchlist built without a source")
	}

	conf.CSCA.BundlePath = t.TempDir() + "/missing.pem"
	if _, err := server.LoadOptions(context.Background(), conf, server.NewLogger(zerolog.Nop())); err == nil {
		t.Error("expected error for a missing CSCA bundle")
	}
}

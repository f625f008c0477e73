package inputs

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/mynextid/zk-passport/commitment"
	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/passport"
	"github.com/mynextid/zk-passport/registry"
	"github.com/mynextid/zk-passport/watchlist"
)

// Disclose circuit constants
const (
	MaxForbiddenCountries = 20
	CountryCodeLength     = 3
	DefaultMajority       = 18
)

// DiscloseInputs feed the disclose circuit, which proves the commitment is
// registered, reveals selected MRZ bytes and optionally checks age, the
// watchlist and a country blocklist
type DiscloseInputs struct {
	Circuit string

	Secret         *big.Int
	AttestationID  int
	DG1            []byte
	EContentHash   *big.Int
	DSCPubKeyHash  *big.Int
	CSCAPubKeyHash *big.Int

	MerkleRoot *big.Int
	LeafDepth  int
	Path       []int
	Siblings   []*big.Int

	SelectorDG1       []int
	SelectorOlderThan bool
	Scope             *big.Int
	CurrentDate       string
	Majority          string
	UserIdentifier    *big.Int

	SMTRoots     []*big.Int
	SMTLeafKeys  []*big.Int
	SMTSiblings  [][]*big.Int
	SelectorOFAC bool

	ForbiddenCountries []string
}

// DiscloseLayout returns the disclose inputs for a registry tree of
// treeDepth levels and watchlist trees of smtDepth levels
func DiscloseLayout(dg1Len, treeDepth, smtDepth int) Layout {
	levels := len(watchlist.Levels)
	return Layout{
		Name: "vc_and_disclose",
		Fields: []Field{
			{Name: "secret", Len: 1},
			{Name: "attestation_id", Len: 1, Visibility: Public},
			{Name: "dg1", Len: dg1Len},
			{Name: "eContent_hash", Len: 1},
			{Name: "pubKey_dsc_hash", Len: 1},
			{Name: "pubKey_csca_hash", Len: 1},
			{Name: "merkle_root", Len: 1, Visibility: Public},
			{Name: "leaf_depth", Len: 1},
			{Name: "path", Len: treeDepth},
			{Name: "siblings", Len: treeDepth},
			{Name: "selector_dg1", Len: passport.MRZLengthTD3, Visibility: Public},
			{Name: "selector_older_than", Len: 1, Visibility: Public},
			{Name: "scope", Len: 1, Visibility: Public},
			{Name: "current_date", Len: 6, Visibility: Public},
			{Name: "majority", Len: 2, Visibility: Public},
			{Name: "user_identifier", Len: 1, Visibility: Public},
			{Name: "smt_root", Len: levels, Visibility: Public},
			{Name: "smt_leaf_key", Len: levels},
			{Name: "smt_siblings", Len: levels * smtDepth},
			{Name: "selector_ofac", Len: 1, Visibility: Public},
			{Name: "forbidden_countries_list", Len: MaxForbiddenCountries * CountryCodeLength, Visibility: Public},
		},
	}
}

// Layout returns the circuit layout matching d
func (d *DiscloseInputs) Layout() Layout {
	smtDepth := 0
	if len(d.SMTSiblings) > 0 {
		smtDepth = len(d.SMTSiblings[0])
	}
	l := DiscloseLayout(len(d.DG1), len(d.Siblings), smtDepth)
	l.Name = d.Circuit
	return l
}

// CircuitInputs normalizes d
func (d *DiscloseInputs) CircuitInputs() (CircuitInputs, error) {
	date, err := digits(d.CurrentDate, 6)
	if err != nil {
		return nil, fmt.Errorf("current_date: %w", err)
	}
	countries, err := CountryList(d.ForbiddenCountries)
	if err != nil {
		return nil, err
	}
	var smtSiblings []*big.Int
	for _, s := range d.SMTSiblings {
		smtSiblings = append(smtSiblings, s...)
	}

	c := CircuitInputs{}
	for _, in := range []struct {
		name string
		v    any
	}{
		{"secret", d.Secret},
		{"attestation_id", d.AttestationID},
		{"dg1", d.DG1},
		{"eContent_hash", d.EContentHash},
		{"pubKey_dsc_hash", d.DSCPubKeyHash},
		{"pubKey_csca_hash", d.CSCAPubKeyHash},
		{"merkle_root", d.MerkleRoot},
		{"leaf_depth", d.LeafDepth},
		{"path", d.Path},
		{"siblings", d.Siblings},
		{"selector_dg1", d.SelectorDG1},
		{"selector_older_than", d.SelectorOlderThan},
		{"scope", d.Scope},
		{"current_date", date},
		{"majority", []byte(d.Majority)},
		{"user_identifier", d.UserIdentifier},
		{"smt_root", d.SMTRoots},
		{"smt_leaf_key", d.SMTLeafKeys},
		{"smt_siblings", smtSiblings},
		{"selector_ofac", d.SelectorOFAC},
		{"forbidden_countries_list", countries},
	} {
		if err := c.Set(in.name, in.v); err != nil {
			return nil, err
		}
	}
	return c, c.Validate(d.Layout())
}

// Nullifier is the public nullifier the circuit derives for d
func (d *DiscloseInputs) Nullifier() (*big.Int, error) {
	return commitment.GenerateNullifier(d.Secret, d.Scope)
}

// Revealed returns the bytes the circuit reveals for d under layout l
func (d *DiscloseInputs) Revealed(l RevealLayout) ([]byte, error) {
	return RevealedBytes(string(d.DG1[len(d.DG1)-passport.MRZLengthTD3:]), d.SelectorDG1, d.SelectorOlderThan, d.Majority, l)
}

func digits(s string, n int) ([]int, error) {
	if len(s) != n {
		return nil, fmt.Errorf("expected %d digits, got %q", n, s)
	}
	out := make([]int, n)
	for i := 0; i < n; i++ {
		if s[i] < '0' || s[i] > '9' {
			return nil, fmt.Errorf("non digit in %q", s)
		}
		out[i] = int(s[i] - '0')
	}
	return out, nil
}

// CountryList encodes up to 20 ISO 3166 alpha-3 codes as ASCII bytes, zero
// padded to the circuit capacity
func CountryList(codes []string) ([]byte, error) {
	if len(codes) > MaxForbiddenCountries {
		return nil, fmt.Errorf("%w: %d forbidden countries, max %d", common.ErrTooManyElements, len(codes), MaxForbiddenCountries)
	}
	out := make([]byte, MaxForbiddenCountries*CountryCodeLength)
	for i, c := range codes {
		if len(c) != CountryCodeLength {
			return nil, fmt.Errorf("country code %q is not %d characters", c, CountryCodeLength)
		}
		copy(out[i*CountryCodeLength:], c)
	}
	return out, nil
}

// DiscloseOptions select what a disclose proof reveals and checks
type DiscloseOptions struct {
	Passport      *passport.Passport
	Secret        *big.Int
	AttestationID int
	Registry      *registry.Tree
	// Watchlist enables the watchlist check when set
	Watchlist *watchlist.Watchlist
	// SMTDepth pads watchlist siblings when no Watchlist is given
	SMTDepth int

	// Reveal names MRZ attributes; older_than enables the majority check
	Reveal []string
	// Majority enables the older-than check when positive
	Majority           int
	Scope              *big.Int
	UserIdentifier     *big.Int
	CurrentDate        time.Time
	ForbiddenCountries []string
}

// GenerateDiscloseInputs builds the disclose inputs of a registered,
// parsed TD3 passport
func GenerateDiscloseInputs(ctx context.Context, opts DiscloseOptions) (*DiscloseInputs, error) {
	p := opts.Passport
	if p == nil || opts.Registry == nil || opts.Secret == nil {
		return nil, fmt.Errorf("disclose inputs need a passport, a registry and a secret")
	}
	if len(p.MRZ) != passport.MRZLengthTD3 {
		return nil, fmt.Errorf("%w: disclosure needs a TD3 MRZ", common.ErrInvalidMRZ)
	}
	if opts.Majority > 99 || opts.Majority < 0 {
		return nil, fmt.Errorf("majority %d out of range", opts.Majority)
	}
	if opts.AttestationID == 0 {
		opts.AttestationID = passport.AttestationPassport
	}
	if opts.CurrentDate.IsZero() {
		opts.CurrentDate = time.Now().UTC()
	}
	reveal := make([]string, 0, len(opts.Reveal))
	for _, a := range opts.Reveal {
		if a != "older_than" {
			reveal = append(reveal, a)
		} else if opts.Majority == 0 {
			opts.Majority = DefaultMajority
		}
	}

	comps, err := commitment.ComputeComponents(p)
	if err != nil {
		return nil, err
	}
	leaf, err := comps.Commit(opts.Secret, opts.AttestationID)
	if err != nil {
		return nil, err
	}
	proof, err := opts.Registry.ProofOf(leaf)
	if err != nil {
		return nil, err
	}
	siblings, path, err := proof.Padded(opts.Registry.MaxDepth())
	if err != nil {
		return nil, err
	}

	d := &DiscloseInputs{
		Circuit:            "vc_and_disclose",
		Secret:             opts.Secret,
		AttestationID:      opts.AttestationID,
		EContentHash:       comps.EContentHash,
		DSCPubKeyHash:      comps.DSCPubKeyHash,
		CSCAPubKeyHash:     comps.CSCAPubKeyHash,
		MerkleRoot:         proof.Root,
		LeafDepth:          proof.Depth(),
		Path:               path,
		Siblings:           siblings,
		SelectorOlderThan:  opts.Majority > 0,
		Scope:              opts.Scope,
		CurrentDate:        opts.CurrentDate.Format("060102"),
		Majority:           fmt.Sprintf("%02d", opts.Majority),
		UserIdentifier:     opts.UserIdentifier,
		ForbiddenCountries: opts.ForbiddenCountries,
	}
	if d.Scope == nil {
		d.Scope = new(big.Int)
	}
	if d.UserIdentifier == nil {
		d.UserIdentifier = new(big.Int)
	}
	if d.DG1, err = p.DG1(); err != nil {
		return nil, err
	}
	if d.SelectorDG1, err = SelectorDG1(reveal...); err != nil {
		return nil, err
	}
	if err := d.fillWatchlist(ctx, p.MRZ, opts); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DiscloseInputs) fillWatchlist(ctx context.Context, mrz string, opts DiscloseOptions) error {
	depth := opts.SMTDepth
	if opts.Watchlist != nil {
		depth = opts.Watchlist.Depth()
	}
	if depth <= 0 {
		depth = watchlist.DefaultDepth
	}

	for _, level := range watchlist.Levels {
		if opts.Watchlist == nil {
			d.SMTRoots = append(d.SMTRoots, new(big.Int))
			d.SMTLeafKeys = append(d.SMTLeafKeys, new(big.Int))
			d.SMTSiblings = append(d.SMTSiblings, zeros(depth))
			continue
		}
		proof, err := opts.Watchlist.ProveMRZ(ctx, level, mrz)
		if err != nil {
			return fmt.Errorf("watchlist %s: %w", level, err)
		}
		if proof.Member {
			logger.Logger().Warn().Str("level", level.String()).Msg("passport is on the watchlist, the disclose proof will fail")
		}
		d.SMTRoots = append(d.SMTRoots, proof.Root)
		d.SMTLeafKeys = append(d.SMTLeafKeys, proof.ClosestKey)
		d.SMTSiblings = append(d.SMTSiblings, proof.Siblings)
	}
	d.SelectorOFAC = opts.Watchlist != nil
	return nil
}

func zeros(n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = new(big.Int)
	}
	return out
}

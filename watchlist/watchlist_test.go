package watchlist_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/logger"
	"github.com/mynextid/zk-passport/passport"
	"github.com/mynextid/zk-passport/watchlist"
)

func init() {
	logger.Disable()
}

var sample = []watchlist.Entry{
	{FirstName: "Alphonse Hugues Albert", LastName: "Dupont", DOB: "2004-02-11", PassportNumbers: []string{"24HB81832"}},
	{FirstName: "John", LastName: "Doe", DOB: "700101", PassportNumbers: []string{"X1234567", "Y7654321"}},
	{FirstName: "Jane", LastName: "Roe"},
}

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		first, last, want string
	}{
		{"Alphonse Hugues Albert", "Dupont", "DUPONT<<ALPHONSE<HUGUES<ALBERT"},
		{"Jean-Luc", "O'Brien", "OBRIEN<<JEAN<LUC"},
		{"j.r.", "smith", "SMITH<<JR"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			got := watchlist.NormalizeName(tt.first, tt.last)
			if len(got) != watchlist.NameLength {
				t.Fatalf("length %d", len(got))
			}
			want := tt.want + strings.Repeat("<", watchlist.NameLength-len(tt.want))
			if got != want {
				t.Errorf("got %q want %q", got, want)
			}
		})
	}

	long := watchlist.NormalizeName(strings.Repeat("A", 40), strings.Repeat("B", 40))
	if len(long) != watchlist.NameLength {
		t.Errorf("long name not truncated: %d", len(long))
	}
}

func TestLeaves(t *testing.T) {
	a, err := watchlist.PassportNumberLeaf("x1234567")
	if err != nil {
		t.Fatal(err)
	}
	b, err := watchlist.PassportNumberLeaf("X1234567<")
	if err != nil {
		t.Fatal(err)
	}
	if a.Cmp(b) != 0 {
		t.Errorf("padding not applied")
	}
	if _, err := watchlist.PassportNumberLeaf("1234567890"); err == nil {
		t.Errorf("expected error for 10 character passport number")
	}
	if _, err := watchlist.DOBLeaf("1970-01-01"); err == nil {
		t.Errorf("expected error for non YYMMDD date")
	}

	n1, _ := watchlist.NameLeaf(watchlist.NormalizeName("John", "Doe"))
	n2, _ := watchlist.NameLeaf(watchlist.NormalizeName("Jane", "Doe"))
	if n1.Cmp(n2) == 0 {
		t.Errorf("different names hash equal")
	}

	nd, err := watchlist.NameDOBLeaf(watchlist.NormalizeName("John", "Doe"), "700101")
	if err != nil {
		t.Fatal(err)
	}
	if nd.Cmp(n1) == 0 {
		t.Errorf("name+dob leaf equals name leaf")
	}
}

func TestParseLevel(t *testing.T) {
	for _, s := range []string{"1", "passport_number", "2", "name_dob", "3", "name"} {
		if _, err := watchlist.ParseLevel(s); err != nil {
			t.Errorf("%s: %v", s, err)
		}
	}
	if _, err := watchlist.ParseLevel("4"); !errors.Is(err, common.ErrInvalidProofLevel) {
		t.Errorf("expected ErrInvalidProofLevel, got %v", err)
	}
}

func build(t *testing.T, entries []watchlist.Entry) *watchlist.Watchlist {
	t.Helper()
	w, err := watchlist.Build(context.Background(), watchlist.SliceSource(entries), watchlist.Options{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return w
}

func TestBuild(t *testing.T) {
	w := build(t, sample)

	tests := []struct {
		level watchlist.Level
		size  int
	}{
		{watchlist.LevelPassportNumber, 3},
		{watchlist.LevelNameDOB, 2},
		{watchlist.LevelName, 3},
	}
	for _, tt := range tests {
		t.Run(tt.level.String(), func(t *testing.T) {
			tree, err := w.Tree(tt.level)
			if err != nil {
				t.Fatal(err)
			}
			if tree.Size != tt.size {
				t.Errorf("size %d want %d", tree.Size, tt.size)
			}
			if tree.Root().Sign() == 0 {
				t.Errorf("empty root")
			}
		})
	}

	if len(w.Roots()) != 3 {
		t.Errorf("expected three roots")
	}
}

func TestBuildSkips(t *testing.T) {
	entries := append([]watchlist.Entry{}, sample...)
	entries = append(entries,
		sample[1],
		watchlist.Entry{FirstName: "Too", LastName: "Long", PassportNumbers: []string{"ABCDEFGHIJK"}},
		watchlist.Entry{FirstName: "Bad", LastName: "Date", DOB: "1-1-1970"},
	)
	w := build(t, entries)

	pn, _ := w.Tree(watchlist.LevelPassportNumber)
	if pn.Size != 3 || pn.Skipped != 3 {
		t.Errorf("passport number tree size %d skipped %d", pn.Size, pn.Skipped)
	}
	nd, _ := w.Tree(watchlist.LevelNameDOB)
	if nd.Size != 2 || nd.Skipped != 2 {
		t.Errorf("name dob tree size %d skipped %d", nd.Size, nd.Skipped)
	}

	clean := build(t, sample)
	if pn.Root().Cmp(mustTree(t, clean, watchlist.LevelPassportNumber).Root()) != 0 {
		t.Errorf("skipped entries changed the root")
	}
}

func TestBadPassportNumberKeepsOthers(t *testing.T) {
	entry := watchlist.Entry{
		FirstName:       "John",
		LastName:        "Doe",
		PassportNumbers: []string{"ABCDEFGHIJK", "X1234567", "TOOLONGNUMBER", "Y7654321"},
	}
	leaves, err := entry.Leaves(watchlist.LevelPassportNumber)
	if err == nil {
		t.Error("expected the rejected numbers to be reported")
	}
	if len(leaves) != 2 {
		t.Fatalf("got %d leaves, want 2", len(leaves))
	}

	w := build(t, []watchlist.Entry{entry})
	pn := mustTree(t, w, watchlist.LevelPassportNumber)
	if pn.Size != 2 || pn.Skipped != 2 {
		t.Errorf("passport number tree size %d skipped %d", pn.Size, pn.Skipped)
	}

	for _, number := range []string{"X1234567", "Y7654321"} {
		key, err := watchlist.PassportNumberLeaf(number)
		if err != nil {
			t.Fatal(err)
		}
		proof, err := w.Prove(context.Background(), watchlist.LevelPassportNumber, key)
		if err != nil {
			t.Fatal(err)
		}
		if !proof.Member {
			t.Errorf("%s is listed but proves as absent", number)
		}
	}
}

func mustTree(t *testing.T, w *watchlist.Watchlist, l watchlist.Level) *watchlist.Tree {
	t.Helper()
	tree, err := w.Tree(l)
	if err != nil {
		t.Fatal(err)
	}
	return tree
}

func TestBuildDeterministic(t *testing.T) {
	reversed := make([]watchlist.Entry, len(sample))
	for i, e := range sample {
		reversed[len(sample)-1-i] = e
	}
	a := build(t, sample).Roots()
	b := build(t, reversed).Roots()
	for l, r := range a {
		if r.Cmp(b[l]) != 0 {
			t.Errorf("%s root depends on insertion order", l)
		}
	}
}

func TestProveMRZ(t *testing.T) {
	w := build(t, sample)
	ctx := context.Background()

	for _, level := range watchlist.Levels {
		t.Run(level.String(), func(t *testing.T) {
			p, err := w.ProveMRZ(ctx, level, passport.SampleMRZ)
			if err != nil {
				t.Fatal(err)
			}
			if !p.Member {
				t.Fatalf("sample passport not found")
			}
			if p.ClosestKey.Cmp(p.Key) != 0 {
				t.Errorf("closest key of a member must be the key")
			}
			if len(p.Siblings) != w.Depth() {
				t.Errorf("siblings %d want %d", len(p.Siblings), w.Depth())
			}
			if !w.Verify(p) {
				t.Errorf("proof does not verify")
			}
		})
	}
}

func TestProveNonMember(t *testing.T) {
	w := build(t, sample[1:])
	ctx := context.Background()

	p, err := w.ProveMRZ(ctx, watchlist.LevelName, passport.SampleMRZ)
	if err != nil {
		t.Fatal(err)
	}
	if p.Member {
		t.Fatalf("unexpected membership")
	}
	if !watchlist.Verify(p) || !w.Verify(p) {
		t.Errorf("non-membership proof does not verify")
	}
	if p.ClosestKey.Cmp(p.Key) == 0 {
		t.Errorf("closest key of a non member equals the key")
	}

	p.Root = new(big.Int).Add(p.Root, big.NewInt(1))
	if w.Verify(p) {
		t.Errorf("proof verified against a stale root")
	}
}

func TestProveErrors(t *testing.T) {
	w := build(t, sample)
	ctx := context.Background()

	if _, err := w.Prove(ctx, watchlist.Level(7), big.NewInt(1)); !errors.Is(err, common.ErrInvalidProofLevel) {
		t.Errorf("expected ErrInvalidProofLevel, got %v", err)
	}
	if _, err := w.Prove(ctx, watchlist.LevelName, big.NewInt(-1)); !errors.Is(err, common.ErrFieldOverflow) {
		t.Errorf("expected ErrFieldOverflow, got %v", err)
	}
	if _, err := w.ProveMRZ(ctx, watchlist.LevelName, "P<SHORT"); err == nil {
		t.Errorf("expected error for short MRZ")
	}
}

func TestReaderSource(t *testing.T) {
	src := watchlist.ReaderSource{R: strings.NewReader(`[
		{"first_name": "John", "last_name": "Doe", "dob": "700101", "passport_numbers": ["X1234567"]}
	]`)}
	entries, err := src.Entries(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].PassportNumbers[0] != "X1234567" {
		t.Errorf("unexpected entries %+v", entries)
	}

	if _, err := (watchlist.ReaderSource{R: strings.NewReader("{")}).Entries(context.Background()); err == nil {
		t.Errorf("expected decode error")
	}
	if _, err := (watchlist.JSONFileSource{Path: "does-not-exist.json"}).Entries(context.Background()); err == nil {
		t.Errorf("expected open error")
	}
}

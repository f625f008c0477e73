package registry_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/hashing"
	"github.com/mynextid/zk-passport/registry"
)

func leaves(from, n int) []*big.Int {
	out := make([]*big.Int, n)
	for i := range out {
		out[i] = big.NewInt(int64(from + i))
	}
	return out
}

func h(t *testing.T, a, b *big.Int) *big.Int {
	t.Helper()
	v, err := hashing.Poseidon(a, b)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestInsert(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	if tree.Root().Sign() != 0 {
		t.Fatal("empty tree must have a zero root")
	}

	one, two, three := big.NewInt(1), big.NewInt(2), big.NewInt(3)
	if _, err := tree.Insert(one); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if tree.Root().Cmp(one) != 0 || tree.Depth() != 0 {
		t.Fatalf("single leaf tree: root %s depth %d", tree.Root(), tree.Depth())
	}

	tree.Insert(two)
	tree.Insert(three)
	want := h(t, h(t, one, two), three)
	if tree.Root().Cmp(want) != 0 {
		t.Fatalf("root = %s, want %s", tree.Root(), want)
	}
	if tree.Depth() != 2 || tree.Size() != 3 {
		t.Errorf("depth %d size %d", tree.Depth(), tree.Size())
	}
}

func TestGenerateProof(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	for _, l := range leaves(1, 3) {
		tree.Insert(l)
	}

	// the third leaf has no sibling on level 0
	p, err := tree.GenerateProof(2)
	if err != nil {
		t.Fatalf("GenerateProof failed: %v", err)
	}
	if p.Depth() != 1 || p.Index != 1 {
		t.Fatalf("depth %d index %d", p.Depth(), p.Index)
	}
	if p.Siblings[0].Cmp(h(t, big.NewInt(1), big.NewInt(2))) != 0 {
		t.Error("unexpected sibling")
	}

	siblings, path, err := p.Padded(registry.DefaultMaxDepth)
	if err != nil {
		t.Fatal(err)
	}
	if len(siblings) != 33 || len(path) != 33 {
		t.Fatalf("padded lengths %d / %d", len(siblings), len(path))
	}
	if path[0] != 1 || siblings[1].Sign() != 0 || path[32] != 0 {
		t.Error("padding must be zero")
	}

	for i := 0; i < tree.Size(); i++ {
		p, err := tree.GenerateProof(i)
		if err != nil {
			t.Fatal(err)
		}
		ok, err := registry.VerifyProof(p)
		if err != nil || !ok {
			t.Errorf("proof %d does not verify: %v", i, err)
		}
	}

	if _, err := tree.GenerateProof(3); !errors.Is(err, common.ErrCommitmentNotFound) {
		t.Errorf("expected ErrCommitmentNotFound, got %v", err)
	}
}

func TestProofSurvivesLaterInserts(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	if err := tree.InsertMany(context.Background(), leaves(1, 5)); err != nil {
		t.Fatal(err)
	}
	old, err := tree.GenerateProof(2)
	if err != nil {
		t.Fatal(err)
	}
	oldRoot := new(big.Int).Set(tree.Root())

	if err := tree.InsertMany(context.Background(), leaves(100, 6)); err != nil {
		t.Fatal(err)
	}
	if _, err := tree.Insert(big.NewInt(500)); err != nil {
		t.Fatal(err)
	}
	if tree.Root().Cmp(oldRoot) == 0 {
		t.Fatal("root did not change after inserts")
	}

	if old.Root.Cmp(oldRoot) != 0 {
		t.Fatal("stored proof root was modified")
	}
	if ok, err := registry.VerifyProof(old); err != nil || !ok {
		t.Errorf("old proof no longer verifies against its root: %v", err)
	}

	stale := *old
	stale.Root = tree.Root()
	if ok, _ := registry.VerifyProof(&stale); ok {
		t.Error("old proof verifies against the new root")
	}

	fresh, err := tree.GenerateProof(2)
	if err != nil {
		t.Fatal(err)
	}
	if ok, err := registry.VerifyProof(fresh); err != nil || !ok {
		t.Errorf("fresh proof does not verify: %v", err)
	}
}

func TestInsertManyMatchesInsert(t *testing.T) {
	for _, tc := range []struct{ prefill, batch int }{{0, 1}, {0, 16}, {5, 12}, {7, 1}, {8, 33}} {
		t.Run(fmt.Sprintf("%d+%d", tc.prefill, tc.batch), func(t *testing.T) {
			seq := registry.New(registry.DefaultMaxDepth)
			bulk := registry.New(registry.DefaultMaxDepth)
			for _, l := range leaves(100, tc.prefill) {
				seq.Insert(l)
				bulk.Insert(l)
			}
			batch := leaves(1000, tc.batch)
			for _, l := range batch {
				seq.Insert(l)
			}
			if err := bulk.InsertMany(context.Background(), batch); err != nil {
				t.Fatalf("InsertMany failed: %v", err)
			}
			if seq.Root().Cmp(bulk.Root()) != 0 {
				t.Fatalf("roots differ: %s != %s", seq.Root(), bulk.Root())
			}

			last := bulk.Size() - 1
			p1, _ := seq.GenerateProof(last)
			p2, _ := bulk.GenerateProof(last)
			if p1.Index != p2.Index || len(p1.Siblings) != len(p2.Siblings) {
				t.Error("proofs differ")
			}
		})
	}
}

func TestInsertManyCancelled(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	tree.Insert(big.NewInt(1))
	root := tree.Root()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := tree.InsertMany(ctx, leaves(2, 64)); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if tree.Size() != 1 || tree.Root().Cmp(root) != 0 {
		t.Error("a cancelled batch must not modify the tree")
	}
}

func TestIndexOf(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	tree.InsertMany(context.Background(), leaves(10, 5))

	if i, err := tree.IndexOf(big.NewInt(12)); err != nil || i != 2 {
		t.Errorf("IndexOf(12) = %d, %v", i, err)
	}
	if i, err := tree.IndexOfString("13"); err != nil || i != 3 {
		t.Errorf("IndexOfString(13) = %d, %v", i, err)
	}
	if i, err := tree.IndexOfString("0x0e"); err != nil || i != 4 {
		t.Errorf("IndexOfString(0x0e) = %d, %v", i, err)
	}
	if _, err := tree.IndexOf(big.NewInt(99)); !errors.Is(err, common.ErrCommitmentNotFound) {
		t.Errorf("expected ErrCommitmentNotFound, got %v", err)
	}
	if _, err := tree.IndexOfString("nope"); !errors.Is(err, common.ErrCommitmentNotFound) {
		t.Errorf("expected ErrCommitmentNotFound, got %v", err)
	}

	p, err := tree.ProofOf(big.NewInt(11))
	if err != nil {
		t.Fatal(err)
	}
	if p.Leaf.Int64() != 11 {
		t.Errorf("proof leaf = %s", p.Leaf)
	}
}

func TestTreeFull(t *testing.T) {
	tree := registry.New(2)
	for _, l := range leaves(1, 4) {
		if _, err := tree.Insert(l); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}
	if _, err := tree.Insert(big.NewInt(5)); !errors.Is(err, common.ErrTreeFull) {
		t.Errorf("expected ErrTreeFull, got %v", err)
	}
	if err := registry.New(2).InsertMany(context.Background(), leaves(1, 5)); !errors.Is(err, common.ErrTreeFull) {
		t.Errorf("expected ErrTreeFull, got %v", err)
	}
}

func TestSnapshot(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	tree.InsertMany(context.Background(), leaves(1, 9))

	var buf bytes.Buffer
	if err := tree.Export(&buf); err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	restored, err := registry.Import(context.Background(), bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if restored.Root().Cmp(tree.Root()) != 0 {
		t.Fatal("restored root differs")
	}

	var s registry.Snapshot
	json.Unmarshal(buf.Bytes(), &s)
	s.Root.Int = big.NewInt(1)
	if _, err := registry.FromSnapshot(context.Background(), &s); err == nil {
		t.Error("expected a root mismatch error")
	}
}

func TestFetchSnapshot(t *testing.T) {
	tree := registry.New(registry.DefaultMaxDepth)
	tree.InsertMany(context.Background(), leaves(1, 4))

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tree.json" {
			http.NotFound(w, r)
			return
		}
		tree.Export(w)
	}))
	defer srv.Close()

	fetched, err := registry.FetchSnapshot(context.Background(), srv.URL+"/tree.json")
	if err != nil {
		t.Fatalf("FetchSnapshot failed: %v", err)
	}
	if fetched.RootHex() != tree.RootHex() {
		t.Errorf("root %s != %s", fetched.RootHex(), tree.RootHex())
	}
	if _, err := registry.FetchSnapshot(context.Background(), srv.URL+"/missing"); err == nil {
		t.Error("expected an error for a 404")
	}
}

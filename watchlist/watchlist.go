// Package watchlist keeps three sparse Merkle trees over a sanctions list so
// that a circuit can prove a passport holder is absent from it.
package watchlist

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	merkletree "github.com/iden3/go-merkletree-sql/v2"
	"github.com/iden3/go-merkletree-sql/v2/db/memory"
	"golang.org/x/sync/errgroup"

	"github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/logger"
)

// DefaultDepth is the number of key bits the trees branch on
const DefaultDepth = 64

var present = big.NewInt(1)

// Options configures Build
type Options struct {
	Depth int
}

// Tree is the sparse Merkle tree of one level
type Tree struct {
	Level   Level
	Size    int
	Skipped int

	mt *merkletree.MerkleTree
}

// Root returns the tree root as a field element
func (t *Tree) Root() *big.Int {
	return t.mt.Root().BigInt()
}

// Watchlist holds one tree per level
type Watchlist struct {
	depth int
	trees map[Level]*Tree
}

// Build reads the entries of src and fills the three trees concurrently.
// Entries that cannot be hashed, duplicates and keys colliding past the tree
// depth are skipped and logged.
func Build(ctx context.Context, src Source, opts Options) (*Watchlist, error) {
	if opts.Depth <= 0 {
		opts.Depth = DefaultDepth
	}
	entries, err := src.Entries(ctx)
	if err != nil {
		return nil, err
	}

	trees := make([]*Tree, len(Levels))
	g, gctx := errgroup.WithContext(ctx)
	for i, level := range Levels {
		g.Go(func() error {
			t, err := buildTree(gctx, level, entries, opts.Depth)
			if err != nil {
				return fmt.Errorf("building %s tree: %w", level, err)
			}
			trees[i] = t
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	w := &Watchlist{depth: opts.Depth, trees: make(map[Level]*Tree, len(trees))}
	for _, t := range trees {
		w.trees[t.Level] = t
		logger.Logger().Info().
			Str("level", t.Level.String()).
			Int("leaves", t.Size).
			Int("skipped", t.Skipped).
			Str("root", t.Root().String()).
			Msg("watchlist tree built")
	}
	return w, nil
}

func buildTree(ctx context.Context, level Level, entries []Entry, depth int) (*Tree, error) {
	mt, err := merkletree.NewMerkleTree(ctx, memory.NewMemoryStorage(), depth)
	if err != nil {
		return nil, err
	}
	t := &Tree{Level: level, mt: mt}
	log := logger.Logger().With().Str("level", level.String()).Logger()

	for i, e := range entries {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		leaves, err := e.Leaves(level)
		if err != nil {
			n := rejected(err)
			log.Warn().Err(err).Int("entry", i).Int("rejected", n).Str("name", e.LastName).Msg("skipping watchlist keys")
			t.Skipped += n
		}
		for _, leaf := range leaves {
			err := mt.Add(ctx, leaf, present)
			switch {
			case err == nil:
				t.Size++
			case errors.Is(err, merkletree.ErrEntryIndexAlreadyExists):
				log.Debug().Int("entry", i).Msg("duplicate watchlist key")
				t.Skipped++
			case errors.Is(err, merkletree.ErrReachedMaxLevel):
				log.Warn().Int("entry", i).Str("key", leaf.String()).Msg("watchlist key collides past tree depth")
				t.Skipped++
			default:
				return nil, err
			}
		}
	}
	return t, nil
}

// rejected counts the keys behind a Leaves error
func rejected(err error) int {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return len(joined.Unwrap())
	}
	return 1
}

// Depth returns the padded sibling count of proofs
func (w *Watchlist) Depth() int {
	return w.depth
}

// Tree returns the tree of level
func (w *Watchlist) Tree(level Level) (*Tree, error) {
	t, ok := w.trees[level]
	if !ok {
		return nil, fmt.Errorf("%w: %d", common.ErrInvalidProofLevel, int(level))
	}
	return t, nil
}

// Roots returns the root of every level
func (w *Watchlist) Roots() map[Level]*big.Int {
	out := make(map[Level]*big.Int, len(w.trees))
	for l, t := range w.trees {
		out[l] = t.Root()
	}
	return out
}

// Proof is a membership or non-membership proof for one key
type Proof struct {
	Level      Level
	Root       *big.Int
	Key        *big.Int
	ClosestKey *big.Int
	Siblings   []*big.Int
	Member     bool

	mtp *merkletree.Proof
}

// Prove builds the proof for key in the tree of level. ClosestKey is the key
// itself for members, the key of the leaf met on the path otherwise, or zero
// when the path ends in an empty node.
func (w *Watchlist) Prove(ctx context.Context, level Level, key *big.Int) (*Proof, error) {
	t, err := w.Tree(level)
	if err != nil {
		return nil, err
	}
	if err := field.Check(key); err != nil {
		return nil, err
	}
	root := t.mt.Root()
	mtp, _, err := t.mt.GenerateProof(ctx, key, root)
	if err != nil {
		return nil, err
	}

	p := &Proof{
		Level:      level,
		Root:       root.BigInt(),
		Key:        new(big.Int).Set(key),
		ClosestKey: new(big.Int),
		Member:     mtp.Existence,
		mtp:        mtp,
	}
	switch {
	case mtp.Existence:
		p.ClosestKey.Set(key)
	case mtp.NodeAux != nil:
		p.ClosestKey = mtp.NodeAux.Key.BigInt()
	}

	sibs := mtp.AllSiblings()
	p.Siblings = make([]*big.Int, w.depth)
	for i := range p.Siblings {
		if i < len(sibs) {
			p.Siblings[i] = sibs[i].BigInt()
		} else {
			p.Siblings[i] = new(big.Int)
		}
	}
	return p, nil
}

// ProveMRZ derives the key of level from a TD3 MRZ and proves it
func (w *Watchlist) ProveMRZ(ctx context.Context, level Level, mrz string) (*Proof, error) {
	key, err := LeafFromMRZ(level, mrz)
	if err != nil {
		return nil, err
	}
	return w.Prove(ctx, level, key)
}

// Verify checks p against the root it carries
func Verify(p *Proof) bool {
	if p == nil || p.mtp == nil {
		return false
	}
	root, err := merkletree.NewHashFromBigInt(p.Root)
	if err != nil {
		return false
	}
	return merkletree.VerifyProof(root, p.mtp, p.Key, present)
}

// Verify checks p and that it was issued against the current root of its level
func (w *Watchlist) Verify(p *Proof) bool {
	if p == nil {
		return false
	}
	t, err := w.Tree(p.Level)
	if err != nil || t.Root().Cmp(p.Root) != 0 {
		return false
	}
	return Verify(p)
}

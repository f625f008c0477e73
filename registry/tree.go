// Package registry implements the commitment registry: an append-only lean
// incremental Merkle tree (LeanIMT) hashed with Poseidon2. A node without a
// right sibling is carried to the next level unhashed, so the depth is
// always ceil(log2(size)).
package registry

import (
	"context"
	"fmt"
	"math/big"
	"math/bits"
	"runtime"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	zkcommon "github.com/mynextid/zk-passport/common"
	"github.com/mynextid/zk-passport/field"
	"github.com/mynextid/zk-passport/hashing"
	"golang.org/x/sync/errgroup"
)

// DefaultMaxDepth is the depth of the registry in the disclosure circuits
const DefaultMaxDepth = 33

// Tree is a LeanIMT safe for one writer and concurrent readers
type Tree struct {
	mu       sync.RWMutex
	nodes    [][]*big.Int
	index    map[string]int
	maxDepth int
}

// New creates an empty tree holding at most 2^maxDepth leaves
func New(maxDepth int) *Tree {
	if maxDepth <= 0 {
		maxDepth = DefaultMaxDepth
	}
	return &Tree{
		nodes:    [][]*big.Int{{}},
		index:    make(map[string]int),
		maxDepth: maxDepth,
	}
}

func hash(a, b *big.Int) (*big.Int, error) {
	return hashing.Poseidon(a, b)
}

// depthFor is ceil(log2(size))
func depthFor(size int) int {
	if size <= 1 {
		return 0
	}
	return bits.Len(uint(size - 1))
}

// MaxDepth returns the configured maximum depth
func (t *Tree) MaxDepth() int {
	return t.maxDepth
}

// Size returns the number of leaves
func (t *Tree) Size() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes[0])
}

// Depth returns the current depth
func (t *Tree) Depth() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.nodes) - 1
}

// Root returns the root, zero for an empty tree
func (t *Tree) Root() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.root()
}

func (t *Tree) root() *big.Int {
	top := t.nodes[len(t.nodes)-1]
	if len(top) == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(top[0])
}

// RootHex returns the root as a 32 byte hex string
func (t *Tree) RootHex() string {
	return common.BigToHash(t.Root()).Hex()
}

// Leaves returns a copy of the leaves in insertion order
func (t *Tree) Leaves() []*big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*big.Int, len(t.nodes[0]))
	for i, l := range t.nodes[0] {
		out[i] = new(big.Int).Set(l)
	}
	return out
}

func (t *Tree) checkLeaf(leaf *big.Int) error {
	if err := field.Check(leaf); err != nil {
		return fmt.Errorf("leaf: %w", err)
	}
	return nil
}

// Insert appends leaf and recomputes the path to the root. It returns the
// leaf index.
func (t *Tree) Insert(leaf *big.Int) (int, error) {
	if err := t.checkLeaf(leaf); err != nil {
		return 0, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	index := len(t.nodes[0])
	depth := depthFor(index + 1)
	if depth > t.maxDepth {
		return 0, fmt.Errorf("%w: max depth %d", zkcommon.ErrTreeFull, t.maxDepth)
	}
	for len(t.nodes)-1 < depth {
		t.nodes = append(t.nodes, []*big.Int{})
	}

	node := new(big.Int).Set(leaf)
	i := index
	for level := 0; level < depth; level++ {
		t.setNode(level, i, node)
		if i&1 == 1 {
			h, err := hash(t.nodes[level][i-1], node)
			if err != nil {
				return 0, err
			}
			node = h
		}
		i >>= 1
	}
	t.nodes[depth] = []*big.Int{node}

	t.remember(leaf, index)
	return index, nil
}

func (t *Tree) setNode(level, i int, node *big.Int) {
	if i < len(t.nodes[level]) {
		t.nodes[level][i] = node
		return
	}
	t.nodes[level] = append(t.nodes[level], node)
}

func (t *Tree) remember(leaf *big.Int, index int) {
	key := leaf.String()
	if _, ok := t.index[key]; !ok {
		t.index[key] = index
	}
}

// InsertMany appends leaves in one pass. Each level's new parents are hashed
// in parallel before moving up.
func (t *Tree) InsertMany(ctx context.Context, leaves []*big.Int) error {
	if len(leaves) == 0 {
		return nil
	}
	for i, l := range leaves {
		if err := t.checkLeaf(l); err != nil {
			return fmt.Errorf("leaf %d: %w", i, err)
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	oldSize := len(t.nodes[0])
	newSize := oldSize + len(leaves)
	depth := depthFor(newSize)
	if depth > t.maxDepth {
		return fmt.Errorf("%w: %d leaves exceed max depth %d", zkcommon.ErrTreeFull, newSize, t.maxDepth)
	}

	// work on copies so a cancelled batch leaves the tree untouched
	nodes := make([][]*big.Int, depth+1)
	for level := range nodes {
		if level < len(t.nodes) {
			nodes[level] = append([]*big.Int(nil), t.nodes[level]...)
		}
	}
	for _, l := range leaves {
		nodes[0] = append(nodes[0], new(big.Int).Set(l))
	}

	start := oldSize >> 1
	for level := 0; level < depth; level++ {
		count := (len(nodes[level]) + 1) / 2
		parents := make([]*big.Int, count)
		copy(parents, nodes[level+1])

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(runtime.NumCPU())
		children := nodes[level]
		for i := start; i < count; i++ {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				left := children[2*i]
				if 2*i+1 >= len(children) {
					parents[i] = left
					return nil
				}
				h, err := hash(left, children[2*i+1])
				if err != nil {
					return err
				}
				parents[i] = h
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		nodes[level+1] = parents
		start >>= 1
	}

	t.nodes = nodes
	for i, l := range leaves {
		t.remember(l, oldSize+i)
	}
	return nil
}

// IndexOf returns the index of the first occurrence of leaf
func (t *Tree) IndexOf(leaf *big.Int) (int, error) {
	if leaf == nil {
		return 0, zkcommon.ErrCommitmentNotFound
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i, ok := t.index[leaf.String()]; ok {
		return i, nil
	}
	return 0, fmt.Errorf("%w: %s", zkcommon.ErrCommitmentNotFound, leaf)
}

// IndexOfString looks a leaf up by its decimal or 0x hex form
func (t *Tree) IndexOfString(leaf string) (int, error) {
	v, err := field.ParseDecimal(leaf)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", zkcommon.ErrCommitmentNotFound, err)
	}
	return t.IndexOf(v)
}

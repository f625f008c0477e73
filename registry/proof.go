package registry

import (
	"fmt"
	"math/big"

	zkcommon "github.com/mynextid/zk-passport/common"
)

// Proof is a LeanIMT inclusion proof. Levels where the node had no sibling
// are omitted, and Index holds one path bit per present sibling.
type Proof struct {
	Root     *big.Int
	Leaf     *big.Int
	Index    uint64
	Siblings []*big.Int
}

// GenerateProof builds the inclusion proof of the leaf at index
func (t *Tree) GenerateProof(index int) (*Proof, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if index < 0 || index >= len(t.nodes[0]) {
		return nil, fmt.Errorf("%w: index %d of %d", zkcommon.ErrCommitmentNotFound, index, len(t.nodes[0]))
	}

	p := &Proof{
		Root: t.root(),
		Leaf: new(big.Int).Set(t.nodes[0][index]),
	}
	depth := len(t.nodes) - 1
	i := index
	bit := 0
	for level := 0; level < depth; level++ {
		isRight := i&1 == 1
		sibling := i + 1
		if isRight {
			sibling = i - 1
		}
		if sibling < len(t.nodes[level]) {
			if isRight {
				p.Index |= 1 << bit
			}
			p.Siblings = append(p.Siblings, new(big.Int).Set(t.nodes[level][sibling]))
			bit++
		}
		i >>= 1
	}
	return p, nil
}

// ProofOf builds the proof of the first occurrence of leaf
func (t *Tree) ProofOf(leaf *big.Int) (*Proof, error) {
	i, err := t.IndexOf(leaf)
	if err != nil {
		return nil, err
	}
	return t.GenerateProof(i)
}

// Depth is the number of hashes on the proof path
func (p *Proof) Depth() int {
	return len(p.Siblings)
}

// Path returns one bit per sibling, 1 when the proven node is on the right
func (p *Proof) Path() []int {
	path := make([]int, len(p.Siblings))
	for i := range path {
		path[i] = int(p.Index >> i & 1)
	}
	return path
}

// Padded returns siblings and path bits padded with zeros to depth
func (p *Proof) Padded(depth int) ([]*big.Int, []int, error) {
	if len(p.Siblings) > depth {
		return nil, nil, fmt.Errorf("%w: proof depth %d exceeds %d", zkcommon.ErrTreeFull, len(p.Siblings), depth)
	}
	siblings := make([]*big.Int, depth)
	path := make([]int, depth)
	copy(path, p.Path())
	for i := range siblings {
		if i < len(p.Siblings) {
			siblings[i] = p.Siblings[i]
		} else {
			siblings[i] = new(big.Int)
		}
	}
	return siblings, path, nil
}

// VerifyProof recomputes the root from the leaf and siblings
func VerifyProof(p *Proof) (bool, error) {
	if p == nil || p.Leaf == nil || p.Root == nil {
		return false, nil
	}
	node := p.Leaf
	for i, s := range p.Siblings {
		var err error
		if p.Index>>i&1 == 1 {
			node, err = hash(s, node)
		} else {
			node, err = hash(node, s)
		}
		if err != nil {
			return false, err
		}
	}
	return node.Cmp(p.Root) == 0, nil
}

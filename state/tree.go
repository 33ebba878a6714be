// Package state implements the balance ledger: a fixed-height sparse Merkle
// tree over the BN254 scalar field whose leaf updates produce delta proofs,
// chained into witnesses for the transfer circuit.
package state

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/zkgov/zkvote/crypto/hash/mimc"
	"github.com/zkgov/zkvote/util"
)

var (
	// ErrIndexOutOfRange is returned when a leaf index does not fit the
	// tree height.
	ErrIndexOutOfRange = errors.New("leaf index out of range")
)

// NodeKey addresses a tree node by coordinates. Level 0 holds the leaves,
// level Height holds the root.
type NodeKey struct {
	Level int
	Index uint64
}

// Tree is a sparse Merkle tree of fixed height. Unset leaves implicitly
// take the default value, so a tree of height 32 never materializes its
// 2^32 leaves: per-level digests of all-default subtrees are precomputed
// once and looked up wherever a node was never written.
type Tree struct {
	height      int
	defaultLeaf *big.Int
	nodes       map[NodeKey]*big.Int
	// empty[l] is the digest of an all-default subtree of depth l
	empty []*big.Int
}

// NewTree creates a sparse Merkle tree with 2^height leaves, all set to
// defaultLeaf.
func NewTree(height int, defaultLeaf *big.Int) (*Tree, error) {
	if height < 1 || height > 64 {
		return nil, fmt.Errorf("invalid tree height %d", height)
	}
	empty := make([]*big.Int, height+1)
	empty[0] = util.BigToFF(defaultLeaf)
	for l := 1; l <= height; l++ {
		digest, err := mimc.HashPair(empty[l-1], empty[l-1])
		if err != nil {
			return nil, fmt.Errorf("precompute empty subtree digests: %w", err)
		}
		empty[l] = digest
	}
	return &Tree{
		height:      height,
		defaultLeaf: empty[0],
		nodes:       make(map[NodeKey]*big.Int),
		empty:       empty,
	}, nil
}

// Height returns the tree height.
func (t *Tree) Height() int {
	return t.height
}

// Root returns the current root digest.
func (t *Tree) Root() *big.Int {
	return t.node(t.height, 0)
}

// node returns the digest stored at (level, index), falling back to the
// all-default subtree digest of that level.
func (t *Tree) node(level int, index uint64) *big.Int {
	if digest, ok := t.nodes[NodeKey{Level: level, Index: index}]; ok {
		return digest
	}
	return t.empty[level]
}

// siblings returns the sibling path of the leaf at index, ordered from the
// leaf level up to the level below the root.
func (t *Tree) siblings(index uint64) []*big.Int {
	path := make([]*big.Int, t.height)
	for l := 0; l < t.height; l++ {
		path[l] = t.node(l, (index>>uint(l))^1)
	}
	return path
}

// inRange reports whether index addresses one of the 2^height leaves.
func (t *Tree) inRange(index uint64) bool {
	return t.height >= 64 || index < uint64(1)<<uint(t.height)
}

// GetLeaf returns the value of the leaf at index together with its sibling
// path.
func (t *Tree) GetLeaf(index uint64) (*big.Int, []*big.Int, error) {
	if !t.inRange(index) {
		return nil, nil, fmt.Errorf("%w: index %d, height %d", ErrIndexOutOfRange, index, t.height)
	}
	return new(big.Int).Set(t.node(0, index)), t.siblings(index), nil
}

// SetLeaf writes value into the leaf at index, recomputes the ancestor
// digests up to the root and returns the delta proof of the update. The
// sibling path is untouched by the update, so the proof carries a single
// path valid for both the old and the new root.
func (t *Tree) SetLeaf(index uint64, value *big.Int) (*DeltaProof, error) {
	if !t.inRange(index) {
		return nil, fmt.Errorf("%w: index %d, height %d", ErrIndexOutOfRange, index, t.height)
	}
	oldValue := new(big.Int).Set(t.node(0, index))
	oldRoot := new(big.Int).Set(t.Root())
	siblings := t.siblings(index)

	digest := util.BigToFF(value)
	t.nodes[NodeKey{Level: 0, Index: index}] = digest
	for l := 0; l < t.height; l++ {
		idx := index >> uint(l)
		var err error
		if idx&1 == 0 {
			digest, err = mimc.HashPair(digest, siblings[l])
		} else {
			digest, err = mimc.HashPair(siblings[l], digest)
		}
		if err != nil {
			return nil, fmt.Errorf("recompute ancestor digest: %w", err)
		}
		t.nodes[NodeKey{Level: l + 1, Index: idx >> 1}] = digest
	}

	return &DeltaProof{
		LeafIndex: index,
		OldValue:  oldValue,
		NewValue:  util.BigToFF(value),
		OldRoot:   oldRoot,
		NewRoot:   new(big.Int).Set(digest),
		Siblings:  siblings,
	}, nil
}

// Snapshot returns a copy of the node mapping. Restoring it brings the tree
// back to the captured state, which is how batches roll back and how a
// checkpointing layer would persist the ledger.
func (t *Tree) Snapshot() map[NodeKey]*big.Int {
	nodes := make(map[NodeKey]*big.Int, len(t.nodes))
	for k, v := range t.nodes {
		nodes[k] = new(big.Int).Set(v)
	}
	return nodes
}

// Restore replaces the node mapping with a previously taken snapshot.
func (t *Tree) Restore(snapshot map[NodeKey]*big.Int) {
	t.nodes = snapshot
}

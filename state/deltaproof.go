package state

import (
	"math/big"

	"github.com/zkgov/zkvote/crypto/hash/mimc"
)

// DeltaProof certifies that writing NewValue into the leaf at LeafIndex
// transforms a tree with root OldRoot into one with root NewRoot. Since a
// single leaf changed, one sibling path authenticates both roots.
type DeltaProof struct {
	LeafIndex uint64
	OldValue  *big.Int
	NewValue  *big.Int
	OldRoot   *big.Int
	NewRoot   *big.Int
	Siblings  []*big.Int
}

// rootFromLeaf folds a leaf value through the sibling path, ordering each
// pair by the parity of the leaf index at that level. The transfer circuit
// re-derives this exact composition in-circuit, so the two must not diverge.
func rootFromLeaf(index uint64, value *big.Int, siblings []*big.Int) (*big.Int, error) {
	digest := value
	for l, sibling := range siblings {
		var err error
		if (index>>uint(l))&1 == 0 {
			digest, err = mimc.HashPair(digest, sibling)
		} else {
			digest, err = mimc.HashPair(sibling, digest)
		}
		if err != nil {
			return nil, err
		}
	}
	return digest, nil
}

// Verify recomputes both roots from the leaf values and the shared sibling
// path and reports whether they match the claimed ones.
func (p *DeltaProof) Verify() bool {
	oldRoot, err := rootFromLeaf(p.LeafIndex, p.OldValue, p.Siblings)
	if err != nil {
		return false
	}
	newRoot, err := rootFromLeaf(p.LeafIndex, p.NewValue, p.Siblings)
	if err != nil {
		return false
	}
	return oldRoot.Cmp(p.OldRoot) == 0 && newRoot.Cmp(p.NewRoot) == 0
}

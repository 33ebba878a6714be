package state

import (
	"math/big"
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestTreeEmptyRoot(t *testing.T) {
	c := qt.New(t)

	a, err := NewTree(4, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	b, err := NewTree(4, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Root().Cmp(b.Root()), qt.Equals, 0)

	shallow, err := NewTree(3, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	c.Assert(a.Root().Cmp(shallow.Root()), qt.Not(qt.Equals), 0)

	_, err = NewTree(0, big.NewInt(0))
	c.Assert(err, qt.IsNotNil)
	_, err = NewTree(65, big.NewInt(0))
	c.Assert(err, qt.IsNotNil)
}

func TestGetLeafDefaults(t *testing.T) {
	c := qt.New(t)

	tree, err := NewTree(3, big.NewInt(7))
	c.Assert(err, qt.IsNil)

	value, siblings, err := tree.GetLeaf(5)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Cmp(big.NewInt(7)), qt.Equals, 0)
	c.Assert(siblings, qt.HasLen, 3)

	_, _, err = tree.GetLeaf(8)
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
}

func TestSetLeafDeltaProof(t *testing.T) {
	c := qt.New(t)

	tree, err := NewTree(4, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	initialRoot := tree.Root()

	proof, err := tree.SetLeaf(9, big.NewInt(42))
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Verify(), qt.IsTrue)
	c.Assert(proof.OldRoot.Cmp(initialRoot), qt.Equals, 0)
	c.Assert(proof.NewRoot.Cmp(tree.Root()), qt.Equals, 0)
	c.Assert(proof.OldValue.Cmp(big.NewInt(0)), qt.Equals, 0)
	c.Assert(proof.NewValue.Cmp(big.NewInt(42)), qt.Equals, 0)

	// consecutive updates chain root to root
	second, err := tree.SetLeaf(3, big.NewInt(11))
	c.Assert(err, qt.IsNil)
	c.Assert(second.Verify(), qt.IsTrue)
	c.Assert(second.OldRoot.Cmp(proof.NewRoot), qt.Equals, 0)

	value, _, err := tree.GetLeaf(9)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Cmp(big.NewInt(42)), qt.Equals, 0)

	_, err = tree.SetLeaf(16, big.NewInt(1))
	c.Assert(err, qt.ErrorIs, ErrIndexOutOfRange)
}

func TestDeltaProofTampering(t *testing.T) {
	c := qt.New(t)

	tree, err := NewTree(4, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	proof, err := tree.SetLeaf(6, big.NewInt(100))
	c.Assert(err, qt.IsNil)
	c.Assert(proof.Verify(), qt.IsTrue)

	tamperedValue := *proof
	tamperedValue.NewValue = big.NewInt(101)
	c.Assert(tamperedValue.Verify(), qt.IsFalse)

	tamperedRoot := *proof
	tamperedRoot.NewRoot = new(big.Int).Add(proof.NewRoot, big.NewInt(1))
	c.Assert(tamperedRoot.Verify(), qt.IsFalse)

	tamperedPath := *proof
	tamperedPath.Siblings = append([]*big.Int{}, proof.Siblings...)
	tamperedPath.Siblings[2] = big.NewInt(999)
	c.Assert(tamperedPath.Verify(), qt.IsFalse)

	tamperedIndex := *proof
	tamperedIndex.LeafIndex = 7
	c.Assert(tamperedIndex.Verify(), qt.IsFalse)
}

func TestSnapshotRestore(t *testing.T) {
	c := qt.New(t)

	tree, err := NewTree(3, big.NewInt(0))
	c.Assert(err, qt.IsNil)
	_, err = tree.SetLeaf(1, big.NewInt(5))
	c.Assert(err, qt.IsNil)
	rootBefore := tree.Root()
	snapshot := tree.Snapshot()

	_, err = tree.SetLeaf(2, big.NewInt(9))
	c.Assert(err, qt.IsNil)
	c.Assert(tree.Root().Cmp(rootBefore), qt.Not(qt.Equals), 0)

	tree.Restore(snapshot)
	c.Assert(tree.Root().Cmp(rootBefore), qt.Equals, 0)
	value, _, err := tree.GetLeaf(2)
	c.Assert(err, qt.IsNil)
	c.Assert(value.Cmp(big.NewInt(0)), qt.Equals, 0)
}

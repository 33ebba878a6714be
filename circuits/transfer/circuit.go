// Package transfer implements the batch transfer circuit: a chain of
// balance updates against a sparse Merkle tree, proven correct end to end
// with only the first and last roots public.
package transfer

import (
	"errors"

	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/std/hash/mimc"
	"github.com/consensys/gnark/std/rangecheck"
)

// BalanceBits is the width balances are range-checked against. Values
// outside it could wrap in field arithmetic and fake conservation.
const BalanceBits = 32

// DeltaProofConstraints mirrors state.DeltaProof in-circuit: one leaf
// update authenticated against the old and the new root through a single
// sibling path.
type DeltaProofConstraints struct {
	LeafIndex frontend.Variable
	OldValue  frontend.Variable
	NewValue  frontend.Variable
	OldRoot   frontend.Variable
	NewRoot   frontend.Variable
	Siblings  []frontend.Variable
}

// verify folds both leaf values through the shared sibling path and
// asserts the resulting digests match the claimed roots. Pair ordering at
// level l follows bit l of the leaf index, the same composition the native
// tree uses; the two must stay bit-identical or no ledger witness would
// ever satisfy the circuit.
func (d *DeltaProofConstraints) verify(api frontend.API, hFunc *mimc.MiMC) {
	bits := api.ToBinary(d.LeafIndex, len(d.Siblings))
	oldDigest := d.OldValue
	newDigest := d.NewValue
	for l, sibling := range d.Siblings {
		hFunc.Reset()
		hFunc.Write(api.Select(bits[l], sibling, oldDigest), api.Select(bits[l], oldDigest, sibling))
		oldDigest = hFunc.Sum()

		hFunc.Reset()
		hFunc.Write(api.Select(bits[l], sibling, newDigest), api.Select(bits[l], newDigest, sibling))
		newDigest = hFunc.Sum()
	}
	api.AssertIsEqual(oldDigest, d.OldRoot)
	api.AssertIsEqual(newDigest, d.NewRoot)
}

// BalanceUpdateConstraints encodes the validity of one transfer: a sender
// debit chained into a receiver credit.
type BalanceUpdateConstraints struct {
	Sender   DeltaProofConstraints
	Receiver DeltaProofConstraints
}

func (u *BalanceUpdateConstraints) verify(api frontend.API, hFunc *mimc.MiMC, ranger frontend.Rangechecker) {
	u.Sender.verify(api, hFunc)
	u.Receiver.verify(api, hFunc)

	// conservation: the amount credited equals the amount debited
	amountReceived := api.Sub(u.Receiver.NewValue, u.Receiver.OldValue)
	amountSent := api.Sub(u.Sender.OldValue, u.Sender.NewValue)
	api.AssertIsEqual(amountReceived, amountSent)

	// balances fit the configured width and move in the right direction,
	// so neither the debit underflows nor the credit overflows
	ranger.Check(u.Sender.OldValue, BalanceBits)
	ranger.Check(u.Sender.NewValue, BalanceBits)
	ranger.Check(u.Receiver.OldValue, BalanceBits)
	ranger.Check(u.Receiver.NewValue, BalanceBits)
	api.AssertIsLessOrEqual(u.Sender.NewValue, u.Sender.OldValue)
	api.AssertIsLessOrEqual(u.Receiver.OldValue, u.Receiver.NewValue)

	// the credit applies to the tree state the debit left behind
	api.AssertIsEqual(u.Sender.NewRoot, u.Receiver.OldRoot)
}

// Circuit proves that a batch of transfers, applied in order, transforms
// the tree with root OldRoot into the tree with root NewRoot. All
// intermediate roots stay witness-only.
type Circuit struct {
	// SECRET INPUTS
	Updates []BalanceUpdateConstraints

	// PUBLIC INPUTS
	OldRoot frontend.Variable `gnark:",public"`
	NewRoot frontend.Variable `gnark:",public"`
}

// NewCircuit returns a placeholder circuit shaped for batchSize chained
// transfers over a tree of height treeHeight. Given equal parameters the
// resulting constraint system is structurally identical, which is what
// allows caching compiled systems per shape.
func NewCircuit(batchSize, treeHeight int) *Circuit {
	updates := make([]BalanceUpdateConstraints, batchSize)
	for i := range updates {
		updates[i].Sender.Siblings = make([]frontend.Variable, treeHeight)
		updates[i].Receiver.Siblings = make([]frontend.Variable, treeHeight)
	}
	return &Circuit{Updates: updates}
}

// Define declares the circuit's constraints.
func (circuit *Circuit) Define(api frontend.API) error {
	if len(circuit.Updates) == 0 {
		return errors.New("circuit needs at least one update")
	}
	hFunc, err := mimc.NewMiMC(api)
	if err != nil {
		return err
	}
	ranger := rangecheck.New(api)

	for i := range circuit.Updates {
		circuit.Updates[i].verify(api, &hFunc, ranger)
	}
	// chain of tree transitions, order here is fundamental
	for i := 1; i < len(circuit.Updates); i++ {
		api.AssertIsEqual(circuit.Updates[i-1].Receiver.NewRoot, circuit.Updates[i].Sender.OldRoot)
	}
	api.AssertIsEqual(circuit.OldRoot, circuit.Updates[0].Sender.OldRoot)
	api.AssertIsEqual(circuit.NewRoot, circuit.Updates[len(circuit.Updates)-1].Receiver.NewRoot)
	return nil
}

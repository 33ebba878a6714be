package transfer

import (
	"fmt"

	"github.com/consensys/gnark/frontend"
	"github.com/zkgov/zkvote/state"
)

// Assignment builds the full circuit witness from a chained sequence of
// ledger updates. The batch size and tree height must match the shape the
// circuit was compiled for.
func Assignment(batchSize, treeHeight int, updates []*state.BalanceUpdate) (*Circuit, error) {
	if len(updates) != batchSize {
		return nil, fmt.Errorf("%w: got %d updates for batch size %d",
			ErrBatchWitnessMismatch, len(updates), batchSize)
	}
	assignment := NewCircuit(batchSize, treeHeight)
	for i, update := range updates {
		if err := assignDeltaProof(&assignment.Updates[i].Sender, update.SenderUpdate, treeHeight); err != nil {
			return nil, fmt.Errorf("update %d sender: %w", i, err)
		}
		if err := assignDeltaProof(&assignment.Updates[i].Receiver, update.ReceiverUpdate, treeHeight); err != nil {
			return nil, fmt.Errorf("update %d receiver: %w", i, err)
		}
	}
	assignment.OldRoot = updates[0].SenderUpdate.OldRoot
	assignment.NewRoot = updates[len(updates)-1].ReceiverUpdate.NewRoot
	return assignment, nil
}

func assignDeltaProof(constraints *DeltaProofConstraints, proof *state.DeltaProof, treeHeight int) error {
	if len(proof.Siblings) != treeHeight {
		return fmt.Errorf("%w: sibling path of length %d for tree height %d",
			ErrBatchWitnessMismatch, len(proof.Siblings), treeHeight)
	}
	constraints.LeafIndex = proof.LeafIndex
	constraints.OldValue = proof.OldValue
	constraints.NewValue = proof.NewValue
	constraints.OldRoot = proof.OldRoot
	constraints.NewRoot = proof.NewRoot
	for l, sibling := range proof.Siblings {
		constraints.Siblings[l] = frontend.Variable(sibling)
	}
	return nil
}

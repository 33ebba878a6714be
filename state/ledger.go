package state

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

var (
	// ErrInsufficientFunds is returned when a transfer exceeds the sender's
	// balance.
	ErrInsufficientFunds = errors.New("insufficient funds")
	// ErrAmountOverflow is returned when a credit would push the receiver
	// beyond the 32-bit balance width enforced by the transfer circuit.
	ErrAmountOverflow = errors.New("amount overflows balance width")
)

// Transfer is the intent of moving amount from the sender leaf to the
// receiver leaf. It is consumed by the ledger and never stored.
type Transfer struct {
	Sender   uint64
	Receiver uint64
	Amount   uint32
}

// BalanceUpdate is the pair of delta proofs produced by executing one
// transfer: the sender debit followed by the receiver credit, applied to
// the tree state the debit left behind.
type BalanceUpdate struct {
	SenderUpdate   *DeltaProof
	ReceiverUpdate *DeltaProof
}

// Ledger owns a balance tree plus the ordered log of balance updates
// accumulated since it was created. The log is the witness material for
// one batch proof; a proposal consumes it read-only at finalization.
//
// The ledger itself is not safe for concurrent use: callers linearize
// access per ledger (the proposal lock does this).
type Ledger struct {
	tree        *Tree
	initialRoot *big.Int
	updates     []*BalanceUpdate
}

// NewLedger creates a ledger over a tree of the given height, with leaf i
// seeded to balances[i] and every further leaf holding zero.
func NewLedger(height int, balances []uint32) (*Ledger, error) {
	tree, err := NewTree(height, big.NewInt(0))
	if err != nil {
		return nil, err
	}
	for i, balance := range balances {
		if _, err := tree.SetLeaf(uint64(i), new(big.Int).SetUint64(uint64(balance))); err != nil {
			return nil, fmt.Errorf("seed balance %d: %w", i, err)
		}
	}
	return &Ledger{
		tree:        tree,
		initialRoot: tree.Root(),
	}, nil
}

// Root returns the current tree root.
func (l *Ledger) Root() *big.Int {
	return new(big.Int).Set(l.tree.Root())
}

// InitialRoot returns the root right after seeding, before any transfer.
func (l *Ledger) InitialRoot() *big.Int {
	return new(big.Int).Set(l.initialRoot)
}

// TreeHeight returns the height of the underlying tree.
func (l *Ledger) TreeHeight() int {
	return l.tree.Height()
}

// GetBalance returns the balance stored in the leaf at index.
func (l *Ledger) GetBalance(index uint64) (uint32, error) {
	value, _, err := l.tree.GetLeaf(index)
	if err != nil {
		return 0, err
	}
	return uint32(value.Uint64()), nil
}

// SetBalance writes a balance into the leaf at index and returns the
// delta proof of the update.
func (l *Ledger) SetBalance(index uint64, value uint32) (*DeltaProof, error) {
	return l.tree.SetLeaf(index, new(big.Int).SetUint64(uint64(value)))
}

// ProcessTransfer debits the sender, credits the receiver against the tree
// state left by the debit, appends the chained update pair to the log and
// returns it. On failure the tree is left untouched.
func (l *Ledger) ProcessTransfer(sender, receiver uint64, amount uint32) (*BalanceUpdate, error) {
	senderBalance, err := l.GetBalance(sender)
	if err != nil {
		return nil, err
	}
	receiverBalance, err := l.GetBalance(receiver)
	if err != nil {
		return nil, err
	}
	if amount > senderBalance {
		return nil, fmt.Errorf("%w: balance %d, amount %d", ErrInsufficientFunds, senderBalance, amount)
	}
	if sender != receiver && uint64(receiverBalance)+uint64(amount) > math.MaxUint32 {
		return nil, fmt.Errorf("%w: balance %d, amount %d", ErrAmountOverflow, receiverBalance, amount)
	}
	if sender == receiver {
		// self transfer degenerates to two updates of the same leaf
		receiverBalance = senderBalance - amount
	}

	senderUpdate, err := l.SetBalance(sender, senderBalance-amount)
	if err != nil {
		return nil, err
	}
	receiverUpdate, err := l.SetBalance(receiver, receiverBalance+amount)
	if err != nil {
		return nil, err
	}

	update := &BalanceUpdate{
		SenderUpdate:   senderUpdate,
		ReceiverUpdate: receiverUpdate,
	}
	l.updates = append(l.updates, update)
	return update, nil
}

// ProcessBatch applies the transfers in order. Batches are all-or-nothing:
// if any transfer fails, the tree rolls back to its pre-batch state, the
// log keeps its pre-batch length and the failure is returned. A partially
// applied batch would make the proof's root chaining unsatisfiable.
func (l *Ledger) ProcessBatch(transfers []Transfer) ([]*BalanceUpdate, error) {
	snapshot := l.tree.Snapshot()
	logLen := len(l.updates)
	for i, transfer := range transfers {
		if _, err := l.ProcessTransfer(transfer.Sender, transfer.Receiver, transfer.Amount); err != nil {
			l.tree.Restore(snapshot)
			l.updates = l.updates[:logLen]
			return nil, fmt.Errorf("transfer %d: %w", i, err)
		}
	}
	return l.updates[logLen:], nil
}

// Updates returns a read-only snapshot of the accumulated update log.
func (l *Ledger) Updates() []*BalanceUpdate {
	updates := make([]*BalanceUpdate, len(l.updates))
	copy(updates, l.updates)
	return updates
}

// UpdateCount returns the current length of the update log.
func (l *Ledger) UpdateCount() int {
	return len(l.updates)
}

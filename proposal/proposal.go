// Package proposal implements the proposal lifecycle: an open ballot
// ledger accepting votes and delegations, finalized exactly once by a
// verified batch transfer proof.
package proposal

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/zkgov/zkvote/circuits/transfer"
	"github.com/zkgov/zkvote/state"
	"github.com/zkgov/zkvote/util"
	"go.vocdoni.io/dvote/log"
)

// Reserved leaf layout of a proposal ledger: the two tally leaves come
// first, voter balances start right after.
const (
	NoTallyIndex     = 0
	YesTallyIndex    = 1
	VoterIndexOffset = 2
)

// Outcome values reported on finalization. A tie favors the veto.
const (
	OutcomePassed = "passed"
	OutcomeVetoed = "vetoed"
)

var (
	// ErrProposalFinalized is returned when mutating or re-finalizing an
	// already finalized proposal.
	ErrProposalFinalized = errors.New("proposal is finalized")
	// ErrUnauthorizedFinalizer is returned when the finalizer is not the
	// proposer.
	ErrUnauthorizedFinalizer = errors.New("finalizer is not the proposer")
	// ErrConcurrentModification is returned when votes were cast while the
	// finalization proof was being generated; the caller may retry.
	ErrConcurrentModification = errors.New("ledger changed during finalization")
	// ErrNothingToFinalize is returned when finalizing a proposal whose
	// ledger has no updates to prove.
	ErrNothingToFinalize = errors.New("no ballot updates to finalize")
)

// Status of a proposal. The transition Open -> Finalized is terminal.
type Status int

const (
	StatusOpen Status = iota
	StatusFinalized
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Result is the outcome of a finalized proposal, carrying the succinct
// proof that the whole ballot batch was applied correctly.
type Result struct {
	YesTally uint32
	NoTally  uint32
	Outcome  string
	Proof    *transfer.Proof
}

// Proposal owns one ballot ledger. All ledger access is linearized by the
// proposal's own lock; proving at finalization runs outside it so long
// proofs on one proposal never block voting on another.
type Proposal struct {
	ID         uuid.UUID
	Statement  string
	ProposerID uint64

	mu     sync.Mutex
	ledger *state.Ledger
	status Status
	result *Result
}

// New creates an open proposal with a freshly seeded ledger: leaf 0 and 1
// hold the no/yes tallies at zero, the numVoters leaves after them hold
// one vote weight each.
func New(statement string, proposerID uint64, treeHeight, numVoters int) (*Proposal, error) {
	balances := make([]uint32, VoterIndexOffset+numVoters)
	for i := 0; i < numVoters; i++ {
		balances[VoterIndexOffset+i] = 1
	}
	ledger, err := state.NewLedger(treeHeight, balances)
	if err != nil {
		return nil, fmt.Errorf("seed proposal ledger: %w", err)
	}
	return &Proposal{
		ID:         uuid.New(),
		Statement:  statement,
		ProposerID: proposerID,
		ledger:     ledger,
		status:     StatusOpen,
	}, nil
}

// Status returns the current lifecycle state.
func (p *Proposal) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.status
}

// Result returns the finalization result, or nil while the proposal is
// still open.
func (p *Proposal) Result() *Result {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.result
}

// Balance returns the current balance of a ledger leaf.
func (p *Proposal) Balance(index uint64) (uint32, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ledger.GetBalance(index)
}

// Vote moves the voter's full remaining balance onto the yes or no tally
// leaf. A repeat vote moves a zero balance, which is harmless and not
// double-counted.
func (p *Proposal) Vote(voterID uint64, isYes bool) error {
	target := uint64(NoTallyIndex)
	if isYes {
		target = YesTallyIndex
	}
	return p.transferBalance(voterID, target)
}

// Delegate moves the voter's full remaining balance onto another voter's
// leaf, letting the delegate cast it later.
func (p *Proposal) Delegate(voterID, delegateID uint64) error {
	return p.transferBalance(voterID, delegateID)
}

func (p *Proposal) transferBalance(from, to uint64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusOpen {
		return ErrProposalFinalized
	}
	balance, err := p.ledger.GetBalance(from)
	if err != nil {
		return err
	}
	if _, err := p.ledger.ProcessTransfer(from, to, balance); err != nil {
		return err
	}
	log.Debugw("ballot transfer applied",
		"proposal", p.ID.String(),
		"from", from,
		"to", to,
		"amount", balance,
		"root", util.PrettyHex(p.ledger.Root()))
	return nil
}

// Finalize proves the accumulated update log and, only after the proof
// verifies against the pre-batch and current roots, transitions the
// proposal to Finalized. Proving runs against a read-only snapshot taken
// under the lock; if the log advanced meanwhile the finalization fails
// with ErrConcurrentModification and the proposal stays open. Any proving
// or verification failure likewise leaves the ledger untouched and the
// proposal open.
func (p *Proposal) Finalize(ctx context.Context, finalizerID uint64) (*Result, error) {
	p.mu.Lock()
	if p.status != StatusOpen {
		p.mu.Unlock()
		return nil, ErrProposalFinalized
	}
	if finalizerID != p.ProposerID {
		p.mu.Unlock()
		return nil, ErrUnauthorizedFinalizer
	}
	updates := p.ledger.Updates()
	if len(updates) == 0 {
		p.mu.Unlock()
		return nil, ErrNothingToFinalize
	}
	oldRoot := updates[0].SenderUpdate.OldRoot
	newRoot := p.ledger.Root()
	treeHeight := p.ledger.TreeHeight()
	p.mu.Unlock()

	log.Infow("finalizing proposal",
		"proposal", p.ID.String(),
		"updates", len(updates),
		"oldRoot", util.PrettyHex(oldRoot),
		"newRoot", util.PrettyHex(newRoot))

	sys, err := transfer.SystemFor(len(updates), treeHeight)
	if err != nil {
		return nil, err
	}
	proof, err := proveWithContext(ctx, sys, updates)
	if err != nil {
		return nil, err
	}
	if err := sys.Verify(proof, oldRoot, newRoot); err != nil {
		return nil, err
	}
	return p.commitFinalization(len(updates), proof)
}

// commitFinalization is the atomic tail of Finalize: back under the lock
// it re-checks the lifecycle state and that the update log still matches
// what was proven, then records the result. Votes that raced in during
// proving make it fail with ErrConcurrentModification, leaving the
// proposal open for a retry over the grown log.
func (p *Proposal) commitFinalization(proven int, proof *transfer.Proof) (*Result, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status != StatusOpen {
		return nil, ErrProposalFinalized
	}
	if p.ledger.UpdateCount() != proven {
		return nil, fmt.Errorf("%w: %d updates proven, log has %d",
			ErrConcurrentModification, proven, p.ledger.UpdateCount())
	}
	yesTally, err := p.ledger.GetBalance(YesTallyIndex)
	if err != nil {
		return nil, err
	}
	noTally, err := p.ledger.GetBalance(NoTallyIndex)
	if err != nil {
		return nil, err
	}
	outcome := OutcomePassed
	if noTally >= yesTally {
		outcome = OutcomeVetoed
	}
	p.status = StatusFinalized
	p.result = &Result{
		YesTally: yesTally,
		NoTally:  noTally,
		Outcome:  outcome,
		Proof:    proof,
	}
	log.Infow("proposal finalized",
		"proposal", p.ID.String(),
		"yes", yesTally,
		"no", noTally,
		"outcome", outcome)
	return p.result, nil
}

// proveWithContext runs the prover in a goroutine so the finalize request
// can be abandoned on context cancellation. The prover itself is not
// interruptible; an abandoned run finishes in the background and its
// result is discarded.
func proveWithContext(ctx context.Context, sys *transfer.System, updates []*state.BalanceUpdate) (*transfer.Proof, error) {
	type proveResult struct {
		proof *transfer.Proof
		err   error
	}
	done := make(chan proveResult, 1)
	go func() {
		proof, err := sys.Prove(updates)
		done <- proveResult{proof: proof, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-done:
		return res.proof, res.err
	}
}

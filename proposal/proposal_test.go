package proposal

import (
	"context"
	"os"
	"testing"

	qt "github.com/frankban/quicktest"
	"github.com/zkgov/zkvote/circuits/transfer"
	"go.vocdoni.io/dvote/log"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

const (
	testTreeHeight = 3
	testNumVoters  = 6
	testProposer   = 42
)

func newTestProposal(t *testing.T) *Proposal {
	p, err := New("repaint the bikeshed", testProposer, testTreeHeight, testNumVoters)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

func TestProposalSeeding(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Status(), qt.Equals, StatusOpen)
	c.Assert(p.Result(), qt.IsNil)

	for _, index := range []uint64{NoTallyIndex, YesTallyIndex} {
		balance, err := p.Balance(index)
		c.Assert(err, qt.IsNil)
		c.Assert(balance, qt.Equals, uint32(0))
	}
	for i := 0; i < testNumVoters; i++ {
		balance, err := p.Balance(uint64(VoterIndexOffset + i))
		c.Assert(err, qt.IsNil)
		c.Assert(balance, qt.Equals, uint32(1))
	}
}

func TestVoteAndFinalize(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)

	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.YesTally, qt.Equals, uint32(1))
	c.Assert(result.NoTally, qt.Equals, uint32(0))
	c.Assert(result.Outcome, qt.Equals, OutcomePassed)
	c.Assert(result.Proof, qt.IsNotNil)
	c.Assert(p.Status(), qt.Equals, StatusFinalized)

	// the transition is terminal
	c.Assert(p.Vote(3, true), qt.ErrorIs, ErrProposalFinalized)
	c.Assert(p.Delegate(3, 4), qt.ErrorIs, ErrProposalFinalized)
	_, err = p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.ErrorIs, ErrProposalFinalized)
}

func TestDelegationAccumulates(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	// voter 2 delegates to voter 3, who then votes with weight 2
	c.Assert(p.Delegate(2, 3), qt.IsNil)
	c.Assert(p.Vote(3, true), qt.IsNil)
	c.Assert(p.Vote(4, false), qt.IsNil)

	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.YesTally, qt.Equals, uint32(2))
	c.Assert(result.NoTally, qt.Equals, uint32(1))
	c.Assert(result.Outcome, qt.Equals, OutcomePassed)
}

func TestTieIsVetoed(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)
	c.Assert(p.Vote(3, false), qt.IsNil)

	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.YesTally, qt.Equals, uint32(1))
	c.Assert(result.NoTally, qt.Equals, uint32(1))
	c.Assert(result.Outcome, qt.Equals, OutcomeVetoed)
}

func TestFinalizeAuthorization(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)
	_, err := p.Finalize(context.Background(), testProposer+1)
	c.Assert(err, qt.ErrorIs, ErrUnauthorizedFinalizer)
	c.Assert(p.Status(), qt.Equals, StatusOpen)
}

func TestFinalizeEmptyLog(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	_, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.ErrorIs, ErrNothingToFinalize)
	c.Assert(p.Status(), qt.Equals, StatusOpen)
}

func TestFinalizeCancelledContext(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.Finalize(ctx, testProposer)
	c.Assert(err, qt.ErrorIs, context.Canceled)
	c.Assert(p.Status(), qt.Equals, StatusOpen)

	// the proposal survives an abandoned finalization attempt
	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.Outcome, qt.Equals, OutcomePassed)
}

func TestFinalizeConcurrentModification(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)
	proven := p.ledger.UpdateCount()

	// a vote lands after the proving snapshot was taken; the commit must
	// reject the stale proof and leave the proposal open
	c.Assert(p.Vote(3, false), qt.IsNil)
	_, err := p.commitFinalization(proven, &transfer.Proof{})
	c.Assert(err, qt.ErrorIs, ErrConcurrentModification)
	c.Assert(p.Status(), qt.Equals, StatusOpen)
	c.Assert(p.Result(), qt.IsNil)

	// a retry proves the grown log and succeeds
	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.YesTally, qt.Equals, uint32(1))
	c.Assert(result.NoTally, qt.Equals, uint32(1))
	c.Assert(result.Outcome, qt.Equals, OutcomeVetoed)
	c.Assert(p.Status(), qt.Equals, StatusFinalized)
}

func TestRepeatVoteNotDoubleCounted(t *testing.T) {
	c := qt.New(t)
	p := newTestProposal(t)

	c.Assert(p.Vote(2, true), qt.IsNil)
	c.Assert(p.Vote(2, true), qt.IsNil)

	result, err := p.Finalize(context.Background(), testProposer)
	c.Assert(err, qt.IsNil)
	c.Assert(result.YesTally, qt.Equals, uint32(1))
}

func TestRegistry(t *testing.T) {
	c := qt.New(t)
	registry := NewRegistry(testTreeHeight, testNumVoters)

	first, err := registry.Create("first", 1)
	c.Assert(err, qt.IsNil)
	second, err := registry.Create("second", 2)
	c.Assert(err, qt.IsNil)

	got, err := registry.Get(first.ID)
	c.Assert(err, qt.IsNil)
	c.Assert(got, qt.Equals, first)

	list := registry.List()
	c.Assert(list, qt.HasLen, 2)
	c.Assert(list[0], qt.Equals, first)
	c.Assert(list[1], qt.Equals, second)

	_, err = registry.Get(second.ID)
	c.Assert(err, qt.IsNil)

	unknown := first.ID
	unknown[0] ^= 0xff
	_, err = registry.Get(unknown)
	c.Assert(err, qt.ErrorIs, ErrProposalNotFound)
}

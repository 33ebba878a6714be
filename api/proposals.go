package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/zkgov/zkvote/circuits/transfer"
	"github.com/zkgov/zkvote/proposal"
	"github.com/zkgov/zkvote/state"
	"github.com/zkgov/zkvote/types"
	"go.vocdoni.io/dvote/log"
)

// newProposal creates a new proposal with a freshly seeded ballot ledger
// and returns its ID.
func (a *API) newProposal(w http.ResponseWriter, r *http.Request) {
	req := &NewProposalRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	p, err := a.registry.Create(req.Statement, req.ProposerID)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	log.Infow("new proposal", "id", p.ID.String(), "proposer", p.ProposerID)
	httpWriteJSON(w, &NewProposalResponse{ProposalID: p.ID})
}

// proposalList returns every proposal in creation order. Tallies are only
// present on finalized entries.
func (a *API) proposalList(w http.ResponseWriter, r *http.Request) {
	proposals := a.registry.List()
	list := make([]*ProposalSummary, 0, len(proposals))
	for _, p := range proposals {
		summary := &ProposalSummary{
			ProposalID: p.ID,
			Statement:  p.Statement,
			ProposerID: p.ProposerID,
			Status:     p.Status().String(),
		}
		if result := p.Result(); result != nil {
			yes, no := result.YesTally, result.NoTally
			summary.YesTally = &yes
			summary.NoTally = &no
			summary.Outcome = result.Outcome
		}
		list = append(list, summary)
	}
	httpWriteJSON(w, list)
}

// castVote moves the voter's full remaining balance onto the yes or no
// tally leaf of the proposal ledger.
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	p, ok := a.proposalFromRequest(w, r)
	if !ok {
		return
	}
	req := &VoteRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := p.Vote(req.VoterID, req.IsYes); err != nil {
		writeLedgerError(w, err)
		return
	}
	httpWriteOK(w)
}

// delegateVote moves the voter's full remaining balance onto another
// voter's leaf.
func (a *API) delegateVote(w http.ResponseWriter, r *http.Request) {
	p, ok := a.proposalFromRequest(w, r)
	if !ok {
		return
	}
	req := &DelegateRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	if err := p.Delegate(req.VoterID, req.DelegateID); err != nil {
		writeLedgerError(w, err)
		return
	}
	httpWriteOK(w)
}

// finalizeProposal proves the accumulated ballot batch and, if the proof
// verifies, closes the proposal and returns the tallies together with the
// serialized proof.
func (a *API) finalizeProposal(w http.ResponseWriter, r *http.Request) {
	p, ok := a.proposalFromRequest(w, r)
	if !ok {
		return
	}
	req := &FinalizeRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		ErrMalformedBody.WithErr(err).Write(w)
		return
	}
	result, err := p.Finalize(r.Context(), req.FinalizerID)
	if err != nil {
		switch {
		case errors.Is(err, proposal.ErrProposalFinalized):
			ErrProposalFinalized.Write(w)
		case errors.Is(err, proposal.ErrUnauthorizedFinalizer):
			ErrUnauthorizedFinalizer.Write(w)
		case errors.Is(err, proposal.ErrNothingToFinalize):
			ErrNothingToFinalize.Write(w)
		case errors.Is(err, proposal.ErrConcurrentModification):
			ErrConcurrentModification.WithErr(err).Write(w)
		case errors.Is(err, transfer.ErrProofGeneration):
			ErrProofGenerationFailed.WithErr(err).Write(w)
		case errors.Is(err, transfer.ErrProofVerification):
			ErrProofVerificationFailed.WithErr(err).Write(w)
		default:
			ErrGenericInternalServerError.WithErr(err).Write(w)
		}
		return
	}
	proofBytes, err := result.Proof.Bytes()
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &FinalizeResponse{
		YesTally: result.YesTally,
		NoTally:  result.NoTally,
		Outcome:  result.Outcome,
		OldRoot:  types.BigToHexBytes(result.Proof.OldRoot),
		NewRoot:  types.BigToHexBytes(result.Proof.NewRoot),
		Proof:    types.HexBytes(proofBytes),
	})
}

// proposalFromRequest parses the proposal ID from the URL and looks it up
// in the registry, writing the appropriate error response on failure.
func (a *API) proposalFromRequest(w http.ResponseWriter, r *http.Request) (*proposal.Proposal, bool) {
	id, err := uuid.Parse(chi.URLParam(r, ProposalURLParam))
	if err != nil {
		ErrMalformedProposalID.WithErr(err).Write(w)
		return nil, false
	}
	p, err := a.registry.Get(id)
	if err != nil {
		ErrProposalNotFound.Withf("%s", id).Write(w)
		return nil, false
	}
	return p, true
}

// writeLedgerError maps the typed ledger and lifecycle failures of a vote
// or delegation to their API error.
func writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, proposal.ErrProposalFinalized):
		ErrProposalFinalized.Write(w)
	case errors.Is(err, state.ErrIndexOutOfRange):
		ErrIndexOutOfRange.WithErr(err).Write(w)
	case errors.Is(err, state.ErrInsufficientFunds):
		ErrInsufficientFunds.WithErr(err).Write(w)
	case errors.Is(err, state.ErrAmountOverflow):
		ErrBalanceOverflow.WithErr(err).Write(w)
	default:
		ErrGenericInternalServerError.WithErr(err).Write(w)
	}
}

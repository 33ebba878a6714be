package api

import (
	"github.com/google/uuid"
	"github.com/zkgov/zkvote/types"
)

// NewProposalRequest is the request to create a new proposal.
type NewProposalRequest struct {
	Statement  string `json:"statement"`
	ProposerID uint64 `json:"proposerId"`
}

// NewProposalResponse is the response to a new proposal creation request.
type NewProposalResponse struct {
	ProposalID uuid.UUID `json:"proposalId"`
}

// ProposalSummary is one entry of the proposal list. The tallies are only
// populated once the proposal is finalized.
type ProposalSummary struct {
	ProposalID uuid.UUID `json:"proposalId"`
	Statement  string    `json:"statement"`
	ProposerID uint64    `json:"proposerId"`
	Status     string    `json:"status"`
	YesTally   *uint32   `json:"yesTally,omitempty"`
	NoTally    *uint32   `json:"noTally,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
}

// VoteRequest is the request to cast a vote. The voter ID is the voter's
// leaf index in the proposal ledger.
type VoteRequest struct {
	VoterID uint64 `json:"voterId"`
	IsYes   bool   `json:"isYes"`
}

// DelegateRequest is the request to move a voter's balance onto another
// voter's leaf.
type DelegateRequest struct {
	VoterID    uint64 `json:"voterId"`
	DelegateID uint64 `json:"delegateId"`
}

// FinalizeRequest is the request to finalize a proposal. Only the proposer
// may finalize.
type FinalizeRequest struct {
	FinalizerID uint64 `json:"finalizerId"`
}

// FinalizeResponse is the outcome of a finalized proposal, including the
// batch proof and the two roots it transitions between.
type FinalizeResponse struct {
	YesTally uint32         `json:"yesTally"`
	NoTally  uint32         `json:"noTally"`
	Outcome  string         `json:"outcome"`
	OldRoot  types.HexBytes `json:"oldRoot"`
	NewRoot  types.HexBytes `json:"newRoot"`
	Proof    types.HexBytes `json:"proof"`
}

package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// ProposalsEndpoint is the endpoint for creating and listing proposals
	ProposalsEndpoint = "/proposals"
	// ProposalURLParam is the URL parameter that carries a proposal ID
	ProposalURLParam = "proposalId"
	// VotesEndpoint is the endpoint for casting a vote on a proposal
	VotesEndpoint = "/proposals/{" + ProposalURLParam + "}/votes"
	// DelegationsEndpoint is the endpoint for delegating voting balance to
	// another voter of the same proposal
	DelegationsEndpoint = "/proposals/{" + ProposalURLParam + "}/delegations"
	// FinalizeEndpoint is the endpoint for proving and closing a proposal
	FinalizeEndpoint = "/proposals/{" + ProposalURLParam + "}/finalize"
)

package proposal

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrProposalNotFound is returned when looking up an unknown proposal ID.
var ErrProposalNotFound = errors.New("proposal not found")

// Registry holds all live proposals. Lookup is guarded by its own RWMutex
// while every proposal carries its own lock, so a slow finalization on one
// proposal never blocks votes on another.
type Registry struct {
	mu        sync.RWMutex
	proposals map[uuid.UUID]*Proposal
	order     []uuid.UUID

	treeHeight int
	numVoters  int
}

// NewRegistry creates a registry whose proposals get ledgers of the given
// tree height seeded with numVoters voter balances.
func NewRegistry(treeHeight, numVoters int) *Registry {
	return &Registry{
		proposals:  make(map[uuid.UUID]*Proposal),
		treeHeight: treeHeight,
		numVoters:  numVoters,
	}
}

// Create builds a new open proposal and registers it.
func (r *Registry) Create(statement string, proposerID uint64) (*Proposal, error) {
	p, err := New(statement, proposerID, r.treeHeight, r.numVoters)
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.proposals[p.ID] = p
	r.order = append(r.order, p.ID)
	return p, nil
}

// Get returns the proposal with the given ID.
func (r *Registry) Get(id uuid.UUID) (*Proposal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.proposals[id]
	if !ok {
		return nil, ErrProposalNotFound
	}
	return p, nil
}

// List returns all proposals in creation order.
func (r *Registry) List() []*Proposal {
	r.mu.RLock()
	defer r.mu.RUnlock()
	list := make([]*Proposal, 0, len(r.order))
	for _, id := range r.order {
		list = append(list, r.proposals[id])
	}
	return list
}

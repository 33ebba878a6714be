package transfer

import (
	"bytes"
	"errors"
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend/groth16"
	"github.com/consensys/gnark/constraint"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/zkgov/zkvote/state"
	"go.vocdoni.io/dvote/log"
)

var (
	// ErrBatchWitnessMismatch is returned when the witness does not fit the
	// shape the circuit was compiled for.
	ErrBatchWitnessMismatch = errors.New("witness does not match circuit shape")
	// ErrProofGeneration is returned when the prover rejects the witness,
	// typically because a constraint is violated by tampered values.
	ErrProofGeneration = errors.New("proof generation failed")
	// ErrProofVerification is returned when a proof is invalid or its
	// public roots differ from the expected ones.
	ErrProofVerification = errors.New("proof verification failed")
)

// Proof is the succinct certificate of one applied batch, bound to the two
// roots it transitions between. It is only meaningful for the System that
// produced it.
type Proof struct {
	Proof   groth16.Proof
	OldRoot *big.Int
	NewRoot *big.Int
}

// Bytes serializes the groth16 proof.
func (p *Proof) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if _, err := p.Proof.WriteTo(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// System is a transfer circuit compiled for a fixed (batch size, tree
// height) shape, along with its Groth16 key pair. It is immutable after
// creation and safe for concurrent use.
type System struct {
	BatchSize  int
	TreeHeight int

	ccs constraint.ConstraintSystem
	pk  groth16.ProvingKey
	vk  groth16.VerifyingKey
}

// NewSystem compiles the transfer circuit for the given shape and runs the
// Groth16 setup.
func NewSystem(batchSize, treeHeight int) (*System, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("%w: batch size must be at least 1", ErrBatchWitnessMismatch)
	}
	if treeHeight < 1 {
		return nil, fmt.Errorf("%w: tree height must be at least 1", ErrBatchWitnessMismatch)
	}
	ccs, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder, NewCircuit(batchSize, treeHeight))
	if err != nil {
		return nil, fmt.Errorf("compile transfer circuit: %w", err)
	}
	pk, vk, err := groth16.Setup(ccs)
	if err != nil {
		return nil, fmt.Errorf("groth16 setup: %w", err)
	}
	log.Debugw("transfer circuit compiled",
		"batchSize", batchSize,
		"treeHeight", treeHeight,
		"constraints", ccs.GetNbConstraints())
	return &System{
		BatchSize:  batchSize,
		TreeHeight: treeHeight,
		ccs:        ccs,
		pk:         pk,
		vk:         vk,
	}, nil
}

// Prove generates a proof over the supplied update chain. Proving fails on
// any witness that violates the circuit's constraints; it never silently
// succeeds on tampered values.
func (s *System) Prove(updates []*state.BalanceUpdate) (*Proof, error) {
	assignment, err := Assignment(s.BatchSize, s.TreeHeight, updates)
	if err != nil {
		return nil, err
	}
	witness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	proof, err := groth16.Prove(s.ccs, s.pk, witness)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProofGeneration, err)
	}
	return &Proof{
		Proof:   proof,
		OldRoot: new(big.Int).Set(updates[0].SenderUpdate.OldRoot),
		NewRoot: new(big.Int).Set(updates[len(updates)-1].ReceiverUpdate.NewRoot),
	}, nil
}

// Verify checks the proof cryptographically and binds it to the expected
// roots: the roots are fed in as the public witness, never read back from
// the proof, so a valid proof for a different transition cannot be
// substituted.
func (s *System) Verify(proof *Proof, expectedOldRoot, expectedNewRoot *big.Int) error {
	assignment := &Circuit{
		OldRoot: expectedOldRoot,
		NewRoot: expectedNewRoot,
	}
	publicWitness, err := frontend.NewWitness(assignment, ecc.BN254.ScalarField(), frontend.PublicOnly())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerification, err)
	}
	if err := groth16.Verify(proof.Proof, s.vk, publicWitness); err != nil {
		return fmt.Errorf("%w: %v", ErrProofVerification, err)
	}
	return nil
}

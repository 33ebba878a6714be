package transfer_test

import (
	"math/big"
	"os"
	"testing"

	"github.com/consensys/gnark-crypto/ecc"
	"github.com/consensys/gnark/backend"
	"github.com/consensys/gnark/frontend"
	"github.com/consensys/gnark/frontend/cs/r1cs"
	"github.com/consensys/gnark/logger"
	"github.com/consensys/gnark/test"
	"github.com/rs/zerolog"
	"github.com/zkgov/zkvote/circuits/transfer"
	"github.com/zkgov/zkvote/state"
	"go.vocdoni.io/dvote/log"
)

func TestMain(m *testing.M) {
	log.Init(log.LogLevelDebug, "stdout", nil)
	os.Exit(m.Run())
}

// newBallotLedger returns a height 3 ledger with two tally leaves at zero
// and six voters holding one vote weight each.
func newBallotLedger(t *testing.T) *state.Ledger {
	ledger, err := state.NewLedger(3, []uint32{0, 0, 1, 1, 1, 1, 1, 1})
	if err != nil {
		t.Fatal(err)
	}
	return ledger
}

func TestCircuitCompile(t *testing.T) {
	if os.Getenv("RUN_CIRCUIT_TESTS") == "" || os.Getenv("RUN_CIRCUIT_TESTS") == "false" {
		t.Skip("skipping circuit tests...")
	}
	// enable log to see nbConstraints
	logger.Set(zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}).With().Timestamp().Logger())

	if _, err := frontend.Compile(ecc.BN254.ScalarField(), r1cs.NewBuilder,
		transfer.NewCircuit(4, 32),
	); err != nil {
		panic(err)
	}
}

func TestCircuitProveSingleTransfer(t *testing.T) {
	ledger := newBallotLedger(t)
	if _, err := ledger.ProcessTransfer(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	assignment, err := transfer.Assignment(1, 3, ledger.Updates())
	if err != nil {
		t.Fatal(err)
	}

	assert := test.NewAssert(t)
	assert.ProverSucceeded(
		transfer.NewCircuit(1, 3),
		assignment,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestCircuitProveChainedBatch(t *testing.T) {
	ledger := newBallotLedger(t)
	if _, err := ledger.ProcessTransfer(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := ledger.ProcessTransfer(3, 4, 1); err != nil {
		t.Fatal(err)
	}
	assignment, err := transfer.Assignment(2, 3, ledger.Updates())
	if err != nil {
		t.Fatal(err)
	}

	assert := test.NewAssert(t)
	assert.ProverSucceeded(
		transfer.NewCircuit(2, 3),
		assignment,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestCircuitRejectsTamperedWitness(t *testing.T) {
	ledger := newBallotLedger(t)
	if _, err := ledger.ProcessTransfer(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	assert := test.NewAssert(t)

	// a forged credit breaks conservation
	forgedCredit, err := transfer.Assignment(1, 3, ledger.Updates())
	if err != nil {
		t.Fatal(err)
	}
	forgedCredit.Updates[0].Receiver.NewValue = 2
	assert.ProverFailed(
		transfer.NewCircuit(1, 3),
		forgedCredit,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))

	// a swapped public root breaks the transition binding
	wrongRoot, err := transfer.Assignment(1, 3, ledger.Updates())
	if err != nil {
		t.Fatal(err)
	}
	wrongRoot.NewRoot = new(big.Int).Add(ledger.Root(), big.NewInt(1))
	assert.ProverFailed(
		transfer.NewCircuit(1, 3),
		wrongRoot,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))

	// a tampered sibling breaks the Merkle authentication
	brokenPath, err := transfer.Assignment(1, 3, ledger.Updates())
	if err != nil {
		t.Fatal(err)
	}
	brokenPath.Updates[0].Sender.Siblings[1] = 999
	assert.ProverFailed(
		transfer.NewCircuit(1, 3),
		brokenPath,
		test.WithCurves(ecc.BN254),
		test.WithBackends(backend.GROTH16))
}

func TestAssignmentShapeMismatch(t *testing.T) {
	ledger := newBallotLedger(t)
	if _, err := ledger.ProcessTransfer(2, 1, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := transfer.Assignment(2, 3, ledger.Updates()); err == nil {
		t.Fatal("expected batch witness mismatch")
	}
	if _, err := transfer.Assignment(1, 4, ledger.Updates()); err == nil {
		t.Fatal("expected sibling path length mismatch")
	}
}

// Package mimc wraps the native MiMC implementation over the BN254 scalar
// field. The write order is byte-identical to the in-circuit std/hash/mimc
// gadget, so digests computed here can be re-derived inside a SNARK.
package mimc

import (
	"fmt"
	"math/big"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
)

// Hash computes the MiMC hash of the given field elements. Inputs are
// reduced into the field before hashing, matching what the in-circuit
// hasher does during witness solving.
func Hash(inputs ...*big.Int) (*big.Int, error) {
	if len(inputs) == 0 {
		return nil, fmt.Errorf("no inputs provided")
	}
	h := mimc.NewMiMC()
	for _, input := range inputs {
		var e fr.Element
		e.SetBigInt(input)
		b := e.Bytes()
		if _, err := h.Write(b[:]); err != nil {
			return nil, err
		}
	}
	return new(big.Int).SetBytes(h.Sum(nil)), nil
}

// HashPair computes the MiMC hash of a left/right node pair. It is the
// node-combining function of the balance tree.
func HashPair(left, right *big.Int) (*big.Int, error) {
	return Hash(left, right)
}

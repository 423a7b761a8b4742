// Package pda derives deterministic program addresses for shielded pools.
package pda

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"filippo.io/edwards25519"
	"github.com/mr-tron/base58"
)

// ShieldProgramID is the on-chain program that owns all pool accounts.
const ShieldProgramID = "SPoo1Kc3yzy7dZVbvVzfaZ9K1XcSMVnLvLCnoByVGTY"

// PoolSeed is the fixed seed prefix for pool address derivation.
const PoolSeed = "shield-pool"

// ErrNoValidAddress is returned when no off-curve address exists for the
// given seeds. Probability is negligible for real inputs.
var ErrNoValidAddress = errors.New("no valid program address for seeds")

// pdaMarker is appended to the hash input per the Solana PDA scheme.
const pdaMarker = "ProgramDerivedAddress"

// DerivePoolAddress derives the deterministic pool address for a mint.
// Seeds are (PoolSeed, mint) under ShieldProgramID. The result is stable
// across processes: the same mint always maps to the same address.
func DerivePoolAddress(mint string) (string, error) {
	return DeriveAddress(ShieldProgramID, PoolSeed, mint)
}

// DeriveAddress derives a program address from seeds, walking the bump seed
// down from 255 until the candidate is off the ed25519 curve. Program
// addresses must not be valid public keys, so on-curve candidates are
// rejected.
func DeriveAddress(programID string, seeds ...string) (string, error) {
	program, err := base58.Decode(programID)
	if err != nil {
		return "", fmt.Errorf("decode program id: %w", err)
	}
	if len(program) != 32 {
		return "", fmt.Errorf("program id must be 32 bytes, got %d", len(program))
	}

	for bump := 255; bump >= 0; bump-- {
		h := sha256.New()
		for _, seed := range seeds {
			h.Write([]byte(seed))
		}
		h.Write([]byte{byte(bump)})
		h.Write(program)
		h.Write([]byte(pdaMarker))
		candidate := h.Sum(nil)

		if !isOnCurve(candidate) {
			return base58.Encode(candidate), nil
		}
	}

	return "", ErrNoValidAddress
}

// isOnCurve reports whether a 32-byte value decodes to a valid ed25519
// curve point.
func isOnCurve(b []byte) bool {
	_, err := new(edwards25519.Point).SetBytes(b)
	return err == nil
}

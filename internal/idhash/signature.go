package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSignature computes a deterministic synthetic transaction signature
// using SHA256. Used for send and unshield operations, which have no
// external on-chain signature of their own.
// Formula: SHA256(owner|recipient|mint|amount|nonce)
// Returns hex-encoded hash (64 characters).
func ComputeSignature(owner, recipient, mint, amount string, nonce int64) string {
	data := fmt.Sprintf("%s|%s|%s|%s|%d",
		owner,
		recipient,
		mint,
		amount,
		nonce,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

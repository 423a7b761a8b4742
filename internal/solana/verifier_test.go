package solana_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"shielded-pool/internal/solana"
	"shielded-pool/internal/solana/stub"
)

func newTestVerifier(rpc solana.RPCClient) *solana.Verifier {
	return solana.NewVerifier(rpc,
		solana.WithWaitTimeout(200*time.Millisecond),
		solana.WithPollInterval(20*time.Millisecond),
	)
}

func TestVerifier_VerifyDeposit(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(&solana.Transaction{
		Signature: "sig1",
		Slot:      100,
		Message:   &solana.TransactionMessage{AccountKeys: []string{"depositor", "poolAddr"}},
	})

	v := newTestVerifier(rpc)

	if err := v.VerifyDeposit(context.Background(), "sig1", "poolAddr"); err != nil {
		t.Fatalf("VerifyDeposit: %v", err)
	}
}

func TestVerifier_VerifyDeposit_NotFound(t *testing.T) {
	v := newTestVerifier(stub.NewRPCClient())

	err := v.VerifyDeposit(context.Background(), "missing", "poolAddr")
	if !errors.Is(err, solana.ErrDepositNotFound) {
		t.Fatalf("expected ErrDepositNotFound, got %v", err)
	}
}

func TestVerifier_VerifyDeposit_Failed(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(&solana.Transaction{
		Signature: "sig1",
		Meta:      &solana.TransactionMeta{Err: map[string]interface{}{"InstructionError": []interface{}{0, "Custom"}}},
		Message:   &solana.TransactionMessage{AccountKeys: []string{"poolAddr"}},
	})

	v := newTestVerifier(rpc)

	err := v.VerifyDeposit(context.Background(), "sig1", "poolAddr")
	if !errors.Is(err, solana.ErrDepositFailed) {
		t.Fatalf("expected ErrDepositFailed, got %v", err)
	}
}

func TestVerifier_VerifyDeposit_Mismatch(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(&solana.Transaction{
		Signature: "sig1",
		Message:   &solana.TransactionMessage{AccountKeys: []string{"depositor", "otherAccount"}},
	})

	v := newTestVerifier(rpc)

	err := v.VerifyDeposit(context.Background(), "sig1", "poolAddr")
	if !errors.Is(err, solana.ErrDepositMismatch) {
		t.Fatalf("expected ErrDepositMismatch, got %v", err)
	}
}

func TestVerifier_VerifyDeposit_NoPoolCheck(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.AddTransaction(&solana.Transaction{
		Signature: "sig1",
		Message:   &solana.TransactionMessage{AccountKeys: []string{"depositor"}},
	})

	v := newTestVerifier(rpc)

	if err := v.VerifyDeposit(context.Background(), "sig1", ""); err != nil {
		t.Fatalf("VerifyDeposit without pool check: %v", err)
	}
}

func TestVerifier_VerifyDeposit_RPCError(t *testing.T) {
	rpc := stub.NewRPCClient()
	rpc.Err = errors.New("rpc unavailable")

	v := newTestVerifier(rpc)

	err := v.VerifyDeposit(context.Background(), "sig1", "poolAddr")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if errors.Is(err, solana.ErrDepositNotFound) {
		t.Fatalf("transport error should not map to not-found, got %v", err)
	}
}

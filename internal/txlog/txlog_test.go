package txlog

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage/memory"
)

func TestLog_RecordAssignsTimestamp(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	tx, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(100), "sig1", nil)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if tx.Timestamp == 0 {
		t.Error("Timestamp must be assigned by the log")
	}
	if tx.Symbol != "SOL" {
		t.Errorf("Symbol mismatch: got %s", tx.Symbol)
	}
}

func TestLog_RecordWithRecipient(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	recipient := "ownerB"
	tx, err := l.Record(ctx, "ownerA", domain.TxTypeSend, "mint1", "SOL", decimal.NewFromInt(30), "sig1", &recipient)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if tx.Recipient == nil || *tx.Recipient != "ownerB" {
		t.Errorf("Recipient mismatch: %v", tx.Recipient)
	}
}

func TestLog_RecordDuplicateSignature(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	if _, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(100), "sig1", nil); err != nil {
		t.Fatalf("Record failed: %v", err)
	}

	_, err := l.Record(ctx, "ownerB", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(5), "sig1", nil)
	if !errors.Is(err, ErrDuplicateSignature) {
		t.Errorf("Expected ErrDuplicateSignature, got %v", err)
	}

	// The original entry is untouched.
	tx, err := l.FindBySignature(ctx, "sig1")
	if err != nil {
		t.Fatalf("FindBySignature failed: %v", err)
	}
	if tx.Owner != "ownerA" {
		t.Errorf("Duplicate write modified the log: %+v", tx)
	}
}

func TestLog_RecordRejections(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	if _, err := l.Record(ctx, "ownerA", domain.TxType("swap"), "mint1", "SOL", decimal.NewFromInt(1), "sig1", nil); !errors.Is(err, ErrInvalidType) {
		t.Errorf("Expected ErrInvalidType, got %v", err)
	}
	if _, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.Zero, "sig1", nil); err == nil {
		t.Error("Expected error for zero amount")
	}
	if _, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(1), "", nil); err == nil {
		t.Error("Expected error for empty signature")
	}
}

func TestLog_RecordEmptySymbolFallsBack(t *testing.T) {
	l := New(memory.NewTransactionStore())

	tx, err := l.Record(context.Background(), "ownerA", domain.TxTypeShield, "mint1", "", decimal.NewFromInt(1), "sig1", nil)
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if tx.Symbol != domain.SymbolPlaceholder {
		t.Errorf("Expected placeholder symbol, got %s", tx.Symbol)
	}
}

func TestLog_ListDefaultsAndCaps(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	for i := 0; i < DefaultLimit+10; i++ {
		sig := fmt.Sprintf("sig-%03d", i)
		if _, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(1), sig, nil); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	// Non-positive limit falls back to the default.
	result, err := l.List(ctx, "ownerA", "", 0)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result) != DefaultLimit {
		t.Errorf("Expected %d entries, got %d", DefaultLimit, len(result))
	}

	// An unreasonably large limit is capped, not rejected.
	result, err = l.List(ctx, "ownerA", "", MaxLimit*10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(result) != DefaultLimit+10 {
		t.Errorf("Expected %d entries, got %d", DefaultLimit+10, len(result))
	}
}

func TestLog_ListDescendingOrder(t *testing.T) {
	l := New(memory.NewTransactionStore())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		sig := fmt.Sprintf("sig-%d", i)
		if _, err := l.Record(ctx, "ownerA", domain.TxTypeShield, "mint1", "SOL", decimal.NewFromInt(1), sig, nil); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	result, err := l.List(ctx, "ownerA", "", 50)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	for i := 1; i < len(result); i++ {
		if result[i-1].Timestamp < result[i].Timestamp {
			t.Errorf("List not descending at %d: %d < %d", i, result[i-1].Timestamp, result[i].Timestamp)
		}
	}
}

package audit_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shielded-pool/internal/audit"
	"shielded-pool/internal/domain"
	"shielded-pool/internal/engine"
	"shielded-pool/internal/engine/stub"
	"shielded-pool/internal/ledger"
	"shielded-pool/internal/pda"
	"shielded-pool/internal/pool"
	"shielded-pool/internal/storage/memory"
	"shielded-pool/internal/txlog"
)

const testMint = "So11111111111111111111111111111111111111112"

type auditEnv struct {
	engine  *engine.Engine
	pools   *memory.PoolStore
	txs     *memory.TransactionStore
	auditor *audit.Auditor
}

func newAuditEnv(t *testing.T) *auditEnv {
	t.Helper()

	pools := memory.NewPoolStore()
	txs := memory.NewTransactionStore()

	eng := engine.New(engine.Options{
		Pools:     pool.NewRegistry(pools, pda.DerivePoolAddress),
		Balances:  ledger.New(memory.NewBalanceStore()),
		Txs:       txlog.New(txs),
		Deposits:  stub.DepositVerifier{},
		Proofs:    stub.ProofValidator{},
		Withdraws: &stub.WithdrawSubmitter{},
	})

	return &auditEnv{
		engine:  eng,
		pools:   pools,
		txs:     txs,
		auditor: audit.New(audit.Options{Pools: pools, Txs: txs}),
	}
}

func TestAuditor_ConsistentAfterOperations(t *testing.T) {
	env := newAuditEnv(t)
	ctx := context.Background()

	_, err := env.engine.Shield(ctx, "ownerA", testMint, decimal.NewFromInt(100), "depositsig1")
	require.NoError(t, err)
	_, err = env.engine.Send(ctx, "ownerA", "ownerB", testMint, decimal.NewFromInt(30), "proof")
	require.NoError(t, err)
	_, err = env.engine.Unshield(ctx, "ownerA", "pubAddr", testMint, decimal.NewFromInt(50), "proof")
	require.NoError(t, err)

	result, err := env.auditor.AuditMint(ctx, testMint)
	require.NoError(t, err)
	assert.True(t, result.Consistent, "divergences: %+v", result.Divergences)
	assert.Empty(t, result.Divergences)
}

func TestAuditor_DetectsMissingLogEntry(t *testing.T) {
	env := newAuditEnv(t)
	ctx := context.Background()

	_, err := env.engine.Shield(ctx, "ownerA", testMint, decimal.NewFromInt(100), "depositsig1")
	require.NoError(t, err)

	// Simulate a partial failure: pool total bumped without a log entry.
	_, err = env.pools.AddShielded(ctx, testMint, decimal.NewFromInt(25))
	require.NoError(t, err)

	result, err := env.auditor.AuditMint(ctx, testMint)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	require.Len(t, result.Divergences, 1)

	d := result.Divergences[0]
	assert.Equal(t, "TotalShielded", d.Field)
	assert.True(t, d.Expected.Equal(decimal.NewFromInt(100)), "expected = %s", d.Expected)
	assert.True(t, d.Actual.Equal(decimal.NewFromInt(125)), "actual = %s", d.Actual)
}

func TestAuditor_DetectsUnshieldedDrift(t *testing.T) {
	env := newAuditEnv(t)
	ctx := context.Background()

	_, err := env.engine.Shield(ctx, "ownerA", testMint, decimal.NewFromInt(100), "depositsig1")
	require.NoError(t, err)

	// A log entry with no matching pool update.
	err = env.txs.Insert(ctx, &domain.Transaction{
		Signature: "orphan-unshield",
		Owner:     "ownerA",
		Type:      domain.TxTypeUnshield,
		Mint:      testMint,
		Symbol:    "SOL",
		Amount:    decimal.NewFromInt(10),
		Timestamp: 1000,
	})
	require.NoError(t, err)

	result, err := env.auditor.AuditMint(ctx, testMint)
	require.NoError(t, err)
	assert.False(t, result.Consistent)
	require.Len(t, result.Divergences, 1)
	assert.Equal(t, "TotalUnshielded", result.Divergences[0].Field)
}

func TestAuditor_UnknownMint(t *testing.T) {
	env := newAuditEnv(t)

	_, err := env.auditor.AuditMint(context.Background(), "mint-unseen")
	assert.ErrorIs(t, err, audit.ErrPoolNotFound)
}

func TestAuditor_BatchReport(t *testing.T) {
	env := newAuditEnv(t)
	ctx := context.Background()

	const otherMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

	_, err := env.engine.Shield(ctx, "ownerA", testMint, decimal.NewFromInt(100), "depositsig1")
	require.NoError(t, err)
	_, err = env.engine.Shield(ctx, "ownerB", otherMint, decimal.NewFromInt(40), "depositsig2")
	require.NoError(t, err)

	// Drift on the second mint only.
	_, err = env.pools.AddShielded(ctx, otherMint, decimal.NewFromInt(1))
	require.NoError(t, err)

	report, err := env.auditor.AuditMints(ctx, []string{testMint, otherMint})
	require.NoError(t, err)
	assert.Equal(t, 2, report.TotalMints)
	assert.Equal(t, 1, report.ConsistentMints)
	assert.Equal(t, 1, report.DivergentMints)
	require.Len(t, report.Results, 2)
	assert.True(t, report.Results[0].Consistent)
	assert.False(t, report.Results[1].Consistent)
}

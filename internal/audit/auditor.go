// Package audit implements ledger consistency checks. It verifies that the
// aggregate totals on each pool record match the sums of the append-only
// transaction log, surfacing the drift left behind by partially applied
// operations.
package audit

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"shielded-pool/internal/domain"
	"shielded-pool/internal/storage"
)

// ErrPoolNotFound is returned when the audited mint has no pool record.
var ErrPoolNotFound = errors.New("pool not found")

// FieldDivergence represents a mismatch between a pool total and the
// corresponding transaction log sum.
type FieldDivergence struct {
	Field    string          // pool field name
	Expected decimal.Decimal // sum derived from the transaction log
	Actual   decimal.Decimal // value stored on the pool record
}

// AuditResult contains the result of auditing a single mint.
type AuditResult struct {
	Mint        string            // audited token mint
	Consistent  bool              // true if all totals match the log
	Divergences []FieldDivergence // list of divergent fields
}

// AuditReport contains results for batch audits.
type AuditReport struct {
	TotalMints      int           // total mints audited
	ConsistentMints int           // mints whose totals matched the log
	DivergentMints  int           // mints with divergences
	Results         []AuditResult // individual results
}

// Auditor compares pool totals against transaction log sums.
type Auditor struct {
	pools storage.PoolStore
	txs   storage.TransactionStore
}

// Options contains configuration for creating an Auditor.
type Options struct {
	Pools storage.PoolStore
	Txs   storage.TransactionStore
}

// New creates a new Auditor.
func New(opts Options) *Auditor {
	return &Auditor{
		pools: opts.Pools,
		txs:   opts.Txs,
	}
}

// AuditMint audits a single mint. It loads the pool record, sums the
// transaction log for that mint, and compares the shielded and unshielded
// totals. Returns ErrPoolNotFound when no pool exists for the mint.
func (a *Auditor) AuditMint(ctx context.Context, mint string) (*AuditResult, error) {
	pool, err := a.pools.Get(ctx, mint)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrPoolNotFound
		}
		return nil, err
	}

	sums, err := a.txs.SumByMint(ctx, mint)
	if err != nil {
		return nil, err
	}

	divergences := comparePoolTotals(pool, sums)

	return &AuditResult{
		Mint:        mint,
		Consistent:  len(divergences) == 0,
		Divergences: divergences,
	}, nil
}

// AuditMints audits each of the given mints and returns an aggregate report.
func (a *Auditor) AuditMints(ctx context.Context, mints []string) (*AuditReport, error) {
	report := &AuditReport{
		TotalMints: len(mints),
	}

	for _, mint := range mints {
		result, err := a.AuditMint(ctx, mint)
		if err != nil {
			return nil, err
		}
		if result.Consistent {
			report.ConsistentMints++
		} else {
			report.DivergentMints++
		}
		report.Results = append(report.Results, *result)
	}

	return report, nil
}

// comparePoolTotals compares stored pool totals against log-derived sums.
//
// TotalShielded must equal the sum of all shield amounts: every shield
// credits the pool, and send moves value inside the pool without changing
// the aggregate. TotalUnshielded must equal the sum of all unshield amounts.
func comparePoolTotals(pool *domain.TokenPool, sums map[domain.TxType]decimal.Decimal) []FieldDivergence {
	var divergences []FieldDivergence

	expectedShielded := sums[domain.TxTypeShield]
	if !pool.TotalShielded.Equal(expectedShielded) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalShielded",
			Expected: expectedShielded,
			Actual:   pool.TotalShielded,
		})
	}

	expectedUnshielded := sums[domain.TxTypeUnshield]
	if !pool.TotalUnshielded.Equal(expectedUnshielded) {
		divergences = append(divergences, FieldDivergence{
			Field:    "TotalUnshielded",
			Expected: expectedUnshielded,
			Actual:   pool.TotalUnshielded,
		})
	}

	return divergences
}

// Package httpapi exposes the shielded pool operations over HTTP.
// All operation routes are POST with JSON bodies. Validation errors
// echo the offending field; domain rejections surface their specific
// reason; everything else is logged and collapsed to a generic message.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"shielded-pool/internal/audit"
	"shielded-pool/internal/domain"
	"shielded-pool/internal/engine"
	"shielded-pool/internal/ledger"
	"shielded-pool/internal/pool"
	"shielded-pool/internal/storage"
	"shielded-pool/internal/txlog"
)

// Handler holds the dependencies for all routes.
type Handler struct {
	engine   *engine.Engine
	pools    *pool.Registry
	balances *ledger.Ledger
	txs      *txlog.Log
	activity storage.ActivityStore
	auditor  *audit.Auditor
	logger   *slog.Logger
}

// Options for creating Handler.
type Options struct {
	Engine   *engine.Engine
	Pools    *pool.Registry
	Balances *ledger.Ledger
	Txs      *txlog.Log

	// Activity enables the /stats route when set.
	Activity storage.ActivityStore

	// Auditor enables the /audit route when set.
	Auditor *audit.Auditor

	Logger *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		engine:   opts.Engine,
		pools:    opts.Pools,
		balances: opts.Balances,
		txs:      opts.Txs,
		activity: opts.Activity,
		auditor:  opts.Auditor,
		logger:   logger,
	}
}

// Router builds the chi router with all routes and middleware.
func (h *Handler) Router() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(RequestLogger(h.logger))
	r.Use(RequestMetrics)

	r.Get("/health", h.Health)

	r.Post("/pool/exists", h.PoolExists)
	r.Post("/pool/create", h.PoolCreate)
	r.Post("/balances", h.Balances)
	r.Post("/shield/notify", h.ShieldNotify)
	r.Post("/send", h.Send)
	r.Post("/unshield", h.Unshield)
	r.Post("/transactions", h.Transactions)
	r.Post("/stats", h.Stats)
	r.Post("/audit", h.Audit)

	return r
}

// API representations.

type apiPool struct {
	TokenMint       string          `json:"tokenMint"`
	Symbol          *string         `json:"symbol,omitempty"`
	Decimals        int             `json:"decimals"`
	PoolAddress     string          `json:"poolAddress"`
	TotalShielded   decimal.Decimal `json:"totalShielded"`
	TotalUnshielded decimal.Decimal `json:"totalUnshielded"`
	CreatedAt       int64           `json:"createdAt"`
}

func toAPIPool(p *domain.TokenPool) apiPool {
	return apiPool{
		TokenMint:       p.Mint,
		Symbol:          p.Symbol,
		Decimals:        p.Decimals,
		PoolAddress:     p.PoolAddress,
		TotalShielded:   p.TotalShielded,
		TotalUnshielded: p.TotalUnshielded,
		CreatedAt:       p.CreatedAt,
	}
}

type apiBalance struct {
	Owner           string          `json:"owner"`
	TokenMint       string          `json:"tokenMint"`
	Balance         decimal.Decimal `json:"balance"`
	CommitmentIndex int64           `json:"commitmentIndex"`
	UpdatedAt       int64           `json:"updatedAt"`
}

func toAPIBalance(b *domain.PrivateBalance) apiBalance {
	return apiBalance{
		Owner:           b.Owner,
		TokenMint:       b.Mint,
		Balance:         b.Balance,
		CommitmentIndex: b.CommitmentIndex,
		UpdatedAt:       b.UpdatedAt,
	}
}

type apiTransaction struct {
	Signature string          `json:"signature"`
	Owner     string          `json:"owner"`
	Type      string          `json:"type"`
	TokenMint string          `json:"tokenMint"`
	Symbol    string          `json:"symbol"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient *string         `json:"recipient,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

func toAPITransaction(tx *domain.Transaction) apiTransaction {
	return apiTransaction{
		Signature: tx.Signature,
		Owner:     tx.Owner,
		Type:      string(tx.Type),
		TokenMint: tx.Mint,
		Symbol:    tx.Symbol,
		Amount:    tx.Amount,
		Recipient: tx.Recipient,
		Timestamp: tx.Timestamp,
	}
}

type apiActivityPoint struct {
	Op       string  `json:"op"`
	BucketMs int64   `json:"bucketMs"`
	Amount   float64 `json:"amount"`
	Count    uint32  `json:"count"`
}

type errorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// Health responds 200 while the process is up.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// PoolExists reports whether a pool is registered for a mint.
func (h *Handler) PoolExists(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenMint string `json:"tokenMint"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TokenMint == "" {
		writeFieldError(w, "tokenMint")
		return
	}

	exists, err := h.pools.Exists(r.Context(), req.TokenMint)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"exists": exists})
}

// PoolCreate explicitly registers a pool for a mint.
func (h *Handler) PoolCreate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TokenMint string `json:"tokenMint"`
		Decimals  *int   `json:"decimals"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TokenMint == "" {
		writeFieldError(w, "tokenMint")
		return
	}

	decimals := domain.DefaultDecimals
	if req.Decimals != nil {
		if *req.Decimals < 0 {
			writeFieldError(w, "decimals")
			return
		}
		decimals = *req.Decimals
	}

	p, err := h.pools.GetOrCreate(r.Context(), req.TokenMint, decimals)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"pool":    toAPIPool(p),
	})
}

// Balances lists all private balances of an owner.
func (h *Handler) Balances(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner string `json:"owner"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Owner == "" {
		writeFieldError(w, "owner")
		return
	}

	balances, err := h.balances.GetAll(r.Context(), req.Owner)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]apiBalance, len(balances))
	for i, b := range balances {
		out[i] = toAPIBalance(b)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"balances": out})
}

// ShieldNotify credits a private balance after an on-chain deposit.
func (h *Handler) ShieldNotify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TxSignature string          `json:"txSignature"`
		TokenMint   string          `json:"tokenMint"`
		Amount      decimal.Decimal `json:"amount"`
		Commitment  string          `json:"commitment"`
		Owner       string          `json:"owner"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case req.TxSignature == "":
		writeFieldError(w, "txSignature")
		return
	case req.TokenMint == "":
		writeFieldError(w, "tokenMint")
		return
	case req.Owner == "":
		writeFieldError(w, "owner")
		return
	case req.Amount.Sign() <= 0:
		writeFieldError(w, "amount")
		return
	}

	_, err := h.engine.Shield(r.Context(), req.Owner, req.TokenMint, req.Amount, req.TxSignature)
	if err != nil {
		// An unresolvable deposit reference is the caller's fault.
		if errors.Is(err, engine.ErrValidationFailed) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// Send transfers private balance between owners.
func (h *Handler) Send(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransferRequest(w, r)
	if !ok {
		return
	}

	tx, err := h.engine.Send(r.Context(), req.Sender, req.Recipient, req.TokenMint, req.Amount, req.Proof)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"signature": tx.Signature,
	})
}

// Unshield withdraws private balance back to a public address.
func (h *Handler) Unshield(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeTransferRequest(w, r)
	if !ok {
		return
	}

	tx, err := h.engine.Unshield(r.Context(), req.Sender, req.Recipient, req.TokenMint, req.Amount, req.Proof)
	if err != nil {
		h.domainError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"signature": tx.Signature,
	})
}

// transferRequest is the shared body of /send and /unshield.
type transferRequest struct {
	TokenMint string          `json:"tokenMint"`
	Amount    decimal.Decimal `json:"amount"`
	Recipient string          `json:"recipient"`
	Proof     string          `json:"proof"`
	Sender    string          `json:"sender"`
}

func decodeTransferRequest(w http.ResponseWriter, r *http.Request) (transferRequest, bool) {
	var req transferRequest
	if !decodeBody(w, r, &req) {
		return req, false
	}
	switch {
	case req.TokenMint == "":
		writeFieldError(w, "tokenMint")
		return req, false
	case req.Sender == "":
		writeFieldError(w, "sender")
		return req, false
	case req.Recipient == "":
		writeFieldError(w, "recipient")
		return req, false
	case req.Proof == "":
		writeFieldError(w, "proof")
		return req, false
	case req.Amount.Sign() <= 0:
		writeFieldError(w, "amount")
		return req, false
	}
	return req, true
}

// Transactions lists logged operations of an owner, newest first.
func (h *Handler) Transactions(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Owner     string `json:"owner"`
		TokenMint string `json:"tokenMint"`
		Limit     int    `json:"limit"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Owner == "" {
		writeFieldError(w, "owner")
		return
	}

	txs, err := h.txs.List(r.Context(), req.Owner, req.TokenMint, req.Limit)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]apiTransaction, len(txs))
	for i, tx := range txs {
		out[i] = toAPITransaction(tx)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": out})
}

// Stats returns per-minute activity rollups for a mint.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	if h.activity == nil {
		writeError(w, http.StatusNotImplemented, "activity stats not configured")
		return
	}

	var req struct {
		TokenMint string `json:"tokenMint"`
		StartMs   int64  `json:"startMs"`
		EndMs     int64  `json:"endMs"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TokenMint == "" {
		writeFieldError(w, "tokenMint")
		return
	}
	if req.EndMs == 0 {
		req.EndMs = time.Now().UnixMilli()
	}

	points, err := h.activity.GetByMintRange(r.Context(), req.TokenMint, req.StartMs, req.EndMs)
	if err != nil {
		h.internalError(w, r, err)
		return
	}

	out := make([]apiActivityPoint, len(points))
	for i, p := range points {
		out[i] = apiActivityPoint{
			Op:       string(p.Op),
			BucketMs: p.BucketMs,
			Amount:   p.Amount,
			Count:    p.Count,
		}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"points": out})
}

type apiDivergence struct {
	Field    string          `json:"field"`
	Expected decimal.Decimal `json:"expected"`
	Actual   decimal.Decimal `json:"actual"`
}

// Audit compares a pool's totals against its transaction log sums.
func (h *Handler) Audit(w http.ResponseWriter, r *http.Request) {
	if h.auditor == nil {
		writeError(w, http.StatusNotImplemented, "audit not configured")
		return
	}

	var req struct {
		TokenMint string `json:"tokenMint"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.TokenMint == "" {
		writeFieldError(w, "tokenMint")
		return
	}

	result, err := h.auditor.AuditMint(r.Context(), req.TokenMint)
	if err != nil {
		if errors.Is(err, audit.ErrPoolNotFound) {
			writeError(w, http.StatusNotFound, err.Error())
			return
		}
		h.internalError(w, r, err)
		return
	}

	out := make([]apiDivergence, len(result.Divergences))
	for i, d := range result.Divergences {
		out[i] = apiDivergence{Field: d.Field, Expected: d.Expected, Actual: d.Actual}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"tokenMint":   result.Mint,
		"consistent":  result.Consistent,
		"divergences": out,
	})
}

// domainError maps a rejected operation to a response. Known domain
// rejections keep their specific reason; unknown errors are collapsed.
func (h *Handler) domainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrInvalidInput),
		errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, pool.ErrInvalidAmount):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ledger.ErrInsufficientBalance),
		errors.Is(err, ledger.ErrUnknownBalance),
		errors.Is(err, pool.ErrUnknownMint),
		errors.Is(err, pool.ErrDuplicateMint),
		errors.Is(err, txlog.ErrDuplicateSignature),
		errors.Is(err, engine.ErrValidationFailed):
		writeError(w, http.StatusInternalServerError, err.Error())
	case errors.Is(err, engine.ErrInconsistentState):
		// Surfaced as the distinct inconsistency it is, never as success.
		h.logger.Error("inconsistent operation state", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, engine.ErrInconsistentState.Error())
	default:
		h.internalError(w, r, err)
	}
}

// internalError logs the failure and returns a generic message.
func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("request failed",
		"path", r.URL.Path,
		"error", err,
	)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

func writeFieldError(w http.ResponseWriter, field string) {
	writeError(w, http.StatusBadRequest, "missing or invalid field: "+field)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Success: false, Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

package domain

// ActivityPoint is one per-minute volume rollup bucket for a (mint, op) pair.
// Analytics-only data: written best-effort after a transaction is logged,
// stored in ClickHouse. Not part of the accounting state.
type ActivityPoint struct {
	Mint     string  // token mint address
	Op       TxType  // shield | send | unshield
	BucketMs int64   // minute bucket start, Unix ms
	Amount   float64 // total volume in the bucket
	Count    uint32  // number of operations in the bucket
}

package domain

// TradeSide is the direction of a trade intent.
type TradeSide string

const (
	TradeSideBuy  TradeSide = "BUY"
	TradeSideSell TradeSide = "SELL"
)

// ExecutionStatus is the recorded outcome of a guarded operation.
type ExecutionStatus string

const (
	ExecutionConfirmed      ExecutionStatus = "confirmed"
	ExecutionFailed         ExecutionStatus = "failed"
	ExecutionTimeoutUnknown ExecutionStatus = "timeout_unknown"
	ExecutionBudgetExceeded ExecutionStatus = "budget_exceeded"
	ExecutionFeeUnavailable ExecutionStatus = "fee_unavailable"
	ExecutionDryRun         ExecutionStatus = "dry_run"
)

// ExecutionRecord is one journaled execution attempt.
// Corresponds to the executions table in PostgreSQL.
type ExecutionRecord struct {
	ID          string // uuid
	Mint        string
	Side        TradeSide
	Amount      float64 // SOL for BUY, token units for SELL
	Status      ExecutionStatus
	FeeLamports *uint64 // nil when no estimate was obtained
	Signature   *string // nil when nothing was submitted
	Error       *string
	CreatedAt   int64 // ms
}

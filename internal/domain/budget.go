package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// LamportsPerSOL is the number of lamports in one SOL.
const LamportsPerSOL = 1_000_000_000

// TransactionBudget bounds a fund-moving operation by fee and time.
type TransactionBudget struct {
	MaxFeeSOL decimal.Decimal // ceiling on the estimated network fee, native units
	Timeout   time.Duration   // submission deadline
}

// LamportsToSOL converts a lamport amount to SOL without float rounding.
func LamportsToSOL(lamports uint64) decimal.Decimal {
	return decimal.NewFromInt(int64(lamports)).Div(decimal.NewFromInt(LamportsPerSOL))
}

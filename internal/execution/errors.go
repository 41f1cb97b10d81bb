package execution

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrFeeUnavailable is returned when the network cannot price the operation.
	ErrFeeUnavailable = errors.New("fee unavailable")

	// ErrBudgetExceeded is returned when the estimated fee is above the ceiling.
	// The operation was not submitted.
	ErrBudgetExceeded = errors.New("budget exceeded")

	// ErrTimeout is returned when submission did not finish within the budget.
	ErrTimeout = errors.New("execution timeout")

	// ErrTransactionFailed is returned when the transaction landed with an error.
	ErrTransactionFailed = errors.New("transaction failed")

	// ErrNothingToSell is returned when the wallet holds none of the token.
	ErrNothingToSell = errors.New("nothing to sell")
)

// TimeoutError reports a submission that outlived its budget.
// The operation may or may not have been accepted by the network.
type TimeoutError struct {
	After time.Duration
	// Signature is set when Submit returned before the deadline but
	// confirmation did not.
	Signature      string
	OutcomeUnknown bool
}

func (e *TimeoutError) Error() string {
	if e.Signature != "" {
		return fmt.Sprintf("%s after %s: signature %s unconfirmed, outcome unknown", ErrTimeout, e.After, e.Signature)
	}
	return fmt.Sprintf("%s after %s: outcome unknown", ErrTimeout, e.After)
}

func (e *TimeoutError) Unwrap() error {
	return ErrTimeout
}

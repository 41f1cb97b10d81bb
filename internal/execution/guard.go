// Package execution bounds fund-moving operations by fee and time and turns
// safe tokens into guarded trade intents.
package execution

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/observability"
	"solana-token-gate/internal/solana"
)

// Defaults for TransactionBudget.
const (
	DefaultMaxFeeSOL = "0.01"
	DefaultTimeout   = 3000 * time.Millisecond
)

// DefaultBudget returns a 0.01 SOL fee ceiling and a 3s timeout.
func DefaultBudget() domain.TransactionBudget {
	return domain.TransactionBudget{
		MaxFeeSOL: decimal.RequireFromString(DefaultMaxFeeSOL),
		Timeout:   DefaultTimeout,
	}
}

// Operation is a fund-moving action. The guard does not know what it does.
type Operation interface {
	// Message compiles the unsigned message against blockhash, base64-encoded.
	Message(ctx context.Context, blockhash solana.Blockhash) (string, error)

	// Submit signs and broadcasts the operation and returns its signature.
	Submit(ctx context.Context) (string, error)
}

// Confirmer waits until a submitted signature lands.
type Confirmer interface {
	Confirm(ctx context.Context, signature string) error
}

// Result of a guarded operation. FeeLamports is set whenever an estimate
// was obtained, including when the budget rejected it.
type Result struct {
	Signature   string
	FeeLamports *uint64
}

// Guard enforces a TransactionBudget around an Operation.
type Guard struct {
	oracle    solana.FeeOracle
	confirmer Confirmer
	log       *zap.Logger
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithConfirmer makes the guard wait for confirmation inside the timeout.
func WithConfirmer(c Confirmer) GuardOption {
	return func(g *Guard) {
		g.confirmer = c
	}
}

// WithGuardLogger sets the logger.
func WithGuardLogger(l *zap.Logger) GuardOption {
	return func(g *Guard) {
		if l != nil {
			g.log = l
		}
	}
}

// NewGuard creates a guard that prices operations with oracle.
func NewGuard(oracle solana.FeeOracle, opts ...GuardOption) *Guard {
	g := &Guard{
		oracle: oracle,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// EstimateFee prices op against the latest blockhash.
func (g *Guard) EstimateFee(ctx context.Context, op Operation) (uint64, error) {
	bh, err := g.oracle.GetLatestBlockhash(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: latest blockhash: %v", ErrFeeUnavailable, err)
	}
	if bh == nil {
		return 0, fmt.Errorf("%w: empty blockhash", ErrFeeUnavailable)
	}

	msg, err := op.Message(ctx, *bh)
	if err != nil {
		return 0, fmt.Errorf("%w: compile message: %v", ErrFeeUnavailable, err)
	}

	fee, err := g.oracle.GetFeeForMessage(ctx, msg)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrFeeUnavailable, err)
	}
	if fee == nil {
		return 0, fmt.Errorf("%w: node returned no fee", ErrFeeUnavailable)
	}
	return *fee, nil
}

// WithBudget estimates the fee of op, rejects it when above budget and
// otherwise submits it racing budget.Timeout.
//
// Errors: ErrFeeUnavailable, ErrBudgetExceeded (op never submitted),
// *TimeoutError (outcome unknown), ErrTransactionFailed or the submit error.
func (g *Guard) WithBudget(ctx context.Context, op Operation, budget domain.TransactionBudget) (Result, error) {
	var res Result

	fee, err := g.EstimateFee(ctx, op)
	if err != nil {
		return res, err
	}
	res.FeeLamports = &fee

	feeSOL := domain.LamportsToSOL(fee)
	observability.RecordFeeEstimate(feeSOL.InexactFloat64())

	if feeSOL.GreaterThan(budget.MaxFeeSOL) {
		return res, fmt.Errorf("%w: fee %s SOL > max %s SOL", ErrBudgetExceeded, feeSOL, budget.MaxFeeSOL)
	}

	sig, err := g.submit(ctx, op, budget.Timeout)
	res.Signature = sig
	return res, err
}

type submitResult struct {
	signature string
	err       error
}

func (g *Guard) submit(ctx context.Context, op Operation, timeout time.Duration) (string, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	subCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var submitted atomic.Pointer[string]
	done := make(chan submitResult, 1)

	go func() {
		sig, err := op.Submit(subCtx)
		if err != nil {
			done <- submitResult{err: err}
			return
		}
		submitted.Store(&sig)

		if g.confirmer != nil {
			if err := g.confirmer.Confirm(subCtx, sig); err != nil {
				done <- submitResult{signature: sig, err: err}
				return
			}
		}
		done <- submitResult{signature: sig}
	}()

	timedOut := func() (string, error) {
		terr := &TimeoutError{After: timeout, OutcomeUnknown: true}
		if p := submitted.Load(); p != nil {
			terr.Signature = *p
		}
		g.log.Warn("submission timed out, outcome unknown",
			zap.Duration("timeout", timeout),
			zap.String("signature", terr.Signature))
		return terr.Signature, terr
	}

	select {
	case r := <-done:
		if r.err != nil {
			if ctx.Err() == nil && errors.Is(subCtx.Err(), context.DeadlineExceeded) {
				return timedOut()
			}
			return r.signature, r.err
		}
		return r.signature, nil
	case <-subCtx.Done():
		if ctx.Err() != nil {
			return "", fmt.Errorf("submission cancelled, outcome unknown: %w", ctx.Err())
		}
		return timedOut()
	}
}

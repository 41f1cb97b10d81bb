// Package risk decides whether a mint is a scam from on-chain signals.
//
// Evaluation is fail-closed: any error while checking yields Scam=true.
// Checks run in order (supply, liquidity, holders) and stop at the first
// one that flags the token.
package risk

import (
	"context"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/observability"
	"solana-token-gate/internal/solana"
)

// ErrRiskCheck wraps any failure inside a check. It is recorded on the
// verdict and never returned to the caller.
var ErrRiskCheck = errors.New("risk check failed")

// DefaultConcurrency bounds concurrent evaluations in EvaluateAll.
const DefaultConcurrency = 4

// Thresholds for the on-chain checks. Supply bounds are inclusive.
type Thresholds struct {
	MinSupply    decimal.Decimal
	MaxSupply    decimal.Decimal
	MinLiquidity decimal.Decimal
	MinHolders   int
}

// DefaultThresholds returns supply in [100, 1e15], pool liquidity >= 10
// and at least 50 distinct holders.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinSupply:    decimal.NewFromInt(100),
		MaxSupply:    decimal.New(1, 15),
		MinLiquidity: decimal.NewFromInt(10),
		MinHolders:   50,
	}
}

// Evaluator runs the risk checks against a chain reader.
type Evaluator struct {
	reader      solana.ChainReader
	ammProgram  string
	thresholds  Thresholds
	concurrency int
	log         *zap.Logger
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithThresholds overrides the default thresholds.
func WithThresholds(t Thresholds) Option {
	return func(e *Evaluator) {
		e.thresholds = t
	}
}

// WithConcurrency sets the EvaluateAll fan-out width.
func WithConcurrency(n int) Option {
	return func(e *Evaluator) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Evaluator) {
		if l != nil {
			e.log = l
		}
	}
}

// NewEvaluator creates an evaluator. ammProgram is the program that owns
// liquidity-pool token accounts.
func NewEvaluator(reader solana.ChainReader, ammProgram string, opts ...Option) *Evaluator {
	e := &Evaluator{
		reader:      reader,
		ammProgram:  ammProgram,
		thresholds:  DefaultThresholds(),
		concurrency: DefaultConcurrency,
		log:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate returns a fresh verdict for mint. It never returns an error:
// failures resolve to Scam=true with RiskCriterionError.
func (e *Evaluator) Evaluate(ctx context.Context, mint string) domain.RiskVerdict {
	verdict := e.evaluate(ctx, mint)
	observability.RecordRiskVerdict(verdict.Criterion.String())

	if verdict.Criterion == domain.RiskCriterionError {
		e.log.Error("risk evaluation failed, treating as scam",
			zap.String("mint", mint),
			zap.Error(verdict.Err))
	} else if verdict.Scam {
		e.log.Info("token flagged",
			zap.String("mint", mint),
			zap.String("criterion", verdict.Criterion.String()),
			zap.String("detail", verdict.Detail))
	}
	return verdict
}

func (e *Evaluator) evaluate(ctx context.Context, mint string) domain.RiskVerdict {
	if err := solana.ValidateAddress(mint); err != nil {
		return failed(mint, "validate mint", err)
	}

	checks := []struct {
		name string
		fn   func(context.Context, string) (*domain.RiskVerdict, error)
	}{
		{"supply", e.checkSupply},
		{"liquidity", e.checkLiquidity},
		{"holders", e.checkHolders},
	}

	for _, c := range checks {
		flagged, err := c.fn(ctx, mint)
		if err != nil {
			return failed(mint, c.name, err)
		}
		if flagged != nil {
			return *flagged
		}
	}

	return domain.RiskVerdict{Mint: mint}
}

func failed(mint, step string, err error) domain.RiskVerdict {
	wrapped := fmt.Errorf("%w: %s: %v", ErrRiskCheck, step, err)
	return domain.RiskVerdict{
		Mint:      mint,
		Scam:      true,
		Criterion: domain.RiskCriterionError,
		Detail:    wrapped.Error(),
		Err:       wrapped,
	}
}

func flag(mint string, criterion domain.RiskCriterion, detail string) *domain.RiskVerdict {
	return &domain.RiskVerdict{
		Mint:      mint,
		Scam:      true,
		Criterion: criterion,
		Detail:    detail,
	}
}

// checkSupply flags a supply outside [MinSupply, MaxSupply].
func (e *Evaluator) checkSupply(ctx context.Context, mint string) (*domain.RiskVerdict, error) {
	amount, err := e.reader.GetTokenSupply(ctx, mint)
	if err != nil {
		return nil, err
	}
	if amount == nil {
		return nil, fmt.Errorf("empty supply response")
	}
	supply, err := amount.UIAmount()
	if err != nil {
		return nil, err
	}

	if supply.LessThan(e.thresholds.MinSupply) || supply.GreaterThan(e.thresholds.MaxSupply) {
		return flag(mint, domain.RiskCriterionSupply,
			fmt.Sprintf("supply %s outside [%s, %s]", supply, e.thresholds.MinSupply, e.thresholds.MaxSupply)), nil
	}
	return nil, nil
}

// checkLiquidity sums the balances of pool token accounts owned by the AMM
// program. No pools means zero liquidity.
func (e *Evaluator) checkLiquidity(ctx context.Context, mint string) (*domain.RiskVerdict, error) {
	pools, err := e.reader.GetTokenAccountsByOwner(ctx, e.ammProgram, mint)
	if err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}

	total := decimal.Zero
	for _, pool := range pools {
		balance, err := e.reader.GetTokenAccountBalance(ctx, pool.Pubkey)
		if err != nil {
			return nil, fmt.Errorf("pool %s balance: %w", pool.Pubkey, err)
		}
		if balance == nil {
			return nil, fmt.Errorf("pool %s: empty balance response", pool.Pubkey)
		}
		ui, err := balance.UIAmount()
		if err != nil {
			return nil, fmt.Errorf("pool %s: %w", pool.Pubkey, err)
		}
		total = total.Add(ui)
	}

	if total.LessThan(e.thresholds.MinLiquidity) {
		return flag(mint, domain.RiskCriterionLiquidity,
			fmt.Sprintf("pool liquidity %s across %d pools below %s", total, len(pools), e.thresholds.MinLiquidity)), nil
	}
	return nil, nil
}

// checkHolders counts distinct owners across every account holding mint.
func (e *Evaluator) checkHolders(ctx context.Context, mint string) (*domain.RiskVerdict, error) {
	accounts, err := e.reader.GetTokenAccountsByMint(ctx, mint)
	if err != nil {
		return nil, fmt.Errorf("list holders: %w", err)
	}

	owners := make(map[string]struct{}, len(accounts))
	for _, acc := range accounts {
		if acc.Owner == "" {
			continue
		}
		owners[acc.Owner] = struct{}{}
	}

	if len(owners) < e.thresholds.MinHolders {
		return flag(mint, domain.RiskCriterionHolders,
			fmt.Sprintf("%d distinct holders below %d", len(owners), e.thresholds.MinHolders)), nil
	}
	return nil, nil
}

// EvaluateAll evaluates mints concurrently. Verdicts are returned in input
// order; each mint's own checks stay sequential.
func (e *Evaluator) EvaluateAll(ctx context.Context, mints []string) []domain.RiskVerdict {
	verdicts := make([]domain.RiskVerdict, len(mints))

	var g errgroup.Group
	g.SetLimit(e.concurrency)

	for i, mint := range mints {
		i, mint := i, mint
		g.Go(func() error {
			verdicts[i] = e.Evaluate(ctx, mint)
			return nil
		})
	}

	// Evaluate never fails; errors live on the verdicts.
	_ = g.Wait()

	return verdicts
}

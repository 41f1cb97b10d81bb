package execution

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/observability"
	"solana-token-gate/internal/solana"
)

// ErrNoWallet is returned by Sell when no wallet address is configured.
var ErrNoWallet = errors.New("wallet address not configured")

// TradeIntent describes a trade before it is built into an Operation.
type TradeIntent struct {
	Mint        string
	Side        domain.TradeSide
	Amount      decimal.Decimal // SOL for BUY, token units for SELL
	SlippagePct decimal.Decimal
}

// OperationBuilder turns an intent into a signed-on-submit Operation.
// Instruction encoding and key handling live behind this interface.
type OperationBuilder interface {
	Build(ctx context.Context, intent TradeIntent) (Operation, error)
}

// BalanceReader reads token account balances.
type BalanceReader interface {
	GetTokenAccountBalance(ctx context.Context, account string) (*solana.TokenAmount, error)
}

// Journal records execution attempts.
type Journal interface {
	Insert(ctx context.Context, r *domain.ExecutionRecord) error
}

// TraderConfig holds per-trade settings.
type TraderConfig struct {
	Wallet      string
	AmountSOL   decimal.Decimal
	SlippagePct decimal.Decimal
	Budget      domain.TransactionBudget
	DryRun      bool
}

// Trader hands trade intents to the Guard and journals the outcome.
// Without a builder, or in dry-run mode, intents are journaled only.
type Trader struct {
	guard    *Guard
	cfg      TraderConfig
	builder  OperationBuilder
	balances BalanceReader
	journal  Journal
	log      *zap.Logger
	now      func() time.Time
}

// TraderOption configures a Trader.
type TraderOption func(*Trader)

// WithBuilder sets the operation builder.
func WithBuilder(b OperationBuilder) TraderOption {
	return func(t *Trader) {
		t.builder = b
	}
}

// WithBalanceReader sets the reader used by Sell.
func WithBalanceReader(r BalanceReader) TraderOption {
	return func(t *Trader) {
		t.balances = r
	}
}

// WithJournal sets the execution journal.
func WithJournal(j Journal) TraderOption {
	return func(t *Trader) {
		t.journal = j
	}
}

// WithTraderLogger sets the logger.
func WithTraderLogger(l *zap.Logger) TraderOption {
	return func(t *Trader) {
		if l != nil {
			t.log = l
		}
	}
}

// NewTrader creates a trader.
func NewTrader(guard *Guard, cfg TraderConfig, opts ...TraderOption) *Trader {
	if cfg.Budget.Timeout <= 0 {
		cfg.Budget.Timeout = DefaultTimeout
	}
	t := &Trader{
		guard: guard,
		cfg:   cfg,
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Buy spends the configured SOL amount on token.
func (t *Trader) Buy(ctx context.Context, token domain.TrendingToken) (*domain.ExecutionRecord, error) {
	return t.execute(ctx, TradeIntent{
		Mint:        token.Mint(),
		Side:        domain.TradeSideBuy,
		Amount:      t.cfg.AmountSOL,
		SlippagePct: t.cfg.SlippagePct,
	})
}

// Sell sells the whole wallet balance of mint. The balance is read from the
// wallet's associated token account within the budget timeout.
func (t *Trader) Sell(ctx context.Context, mint string) (*domain.ExecutionRecord, error) {
	balance, err := t.walletBalance(ctx, mint)
	if err != nil {
		return nil, err
	}
	if !balance.IsPositive() {
		return nil, fmt.Errorf("%w: %s", ErrNothingToSell, mint)
	}

	return t.execute(ctx, TradeIntent{
		Mint:        mint,
		Side:        domain.TradeSideSell,
		Amount:      balance,
		SlippagePct: t.cfg.SlippagePct,
	})
}

func (t *Trader) walletBalance(ctx context.Context, mint string) (decimal.Decimal, error) {
	if t.cfg.Wallet == "" {
		return decimal.Zero, ErrNoWallet
	}
	if t.balances == nil {
		return decimal.Zero, errors.New("no balance reader configured")
	}

	ata, err := solana.FindAssociatedTokenAddress(t.cfg.Wallet, mint)
	if err != nil {
		return decimal.Zero, fmt.Errorf("derive token account: %w", err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, t.cfg.Budget.Timeout)
	defer cancel()

	amount, err := t.balances.GetTokenAccountBalance(probeCtx, ata)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance of %s: %w", ata, err)
	}
	if amount == nil {
		return decimal.Zero, nil
	}
	return amount.UIAmount()
}

func (t *Trader) execute(ctx context.Context, intent TradeIntent) (*domain.ExecutionRecord, error) {
	rec := &domain.ExecutionRecord{
		ID:        uuid.NewString(),
		Mint:      intent.Mint,
		Side:      intent.Side,
		Amount:    intent.Amount.InexactFloat64(),
		CreatedAt: t.now().UnixMilli(),
	}

	var execErr error
	if t.cfg.DryRun || t.builder == nil {
		rec.Status = domain.ExecutionDryRun
		t.log.Info("dry run, trade not submitted",
			zap.String("mint", intent.Mint),
			zap.String("side", string(intent.Side)),
			zap.String("amount", intent.Amount.String()))
	} else {
		execErr = t.submit(ctx, intent, rec)
	}

	observability.RecordExecution(string(rec.Side), string(rec.Status))
	t.record(ctx, rec)

	return rec, execErr
}

func (t *Trader) submit(ctx context.Context, intent TradeIntent, rec *domain.ExecutionRecord) error {
	op, err := t.builder.Build(ctx, intent)
	if err != nil {
		err = fmt.Errorf("build operation: %w", err)
		rec.Status = domain.ExecutionFailed
		rec.Error = strPtr(err.Error())
		return err
	}

	res, err := t.guard.WithBudget(ctx, op, t.cfg.Budget)
	rec.FeeLamports = res.FeeLamports
	if res.Signature != "" {
		rec.Signature = strPtr(res.Signature)
	}
	rec.Status = statusOf(err)
	if err != nil {
		rec.Error = strPtr(err.Error())
		t.log.Warn("trade not executed",
			zap.String("mint", intent.Mint),
			zap.String("side", string(intent.Side)),
			zap.String("status", string(rec.Status)),
			zap.Error(err))
		return err
	}

	t.log.Info("trade confirmed",
		zap.String("mint", intent.Mint),
		zap.String("side", string(intent.Side)),
		zap.String("signature", res.Signature))
	return nil
}

func (t *Trader) record(ctx context.Context, rec *domain.ExecutionRecord) {
	if t.journal == nil {
		return
	}
	if err := t.journal.Insert(ctx, rec); err != nil {
		t.log.Error("journal insert failed", zap.String("id", rec.ID), zap.Error(err))
	}
}

func statusOf(err error) domain.ExecutionStatus {
	switch {
	case err == nil:
		return domain.ExecutionConfirmed
	case errors.Is(err, ErrFeeUnavailable):
		return domain.ExecutionFeeUnavailable
	case errors.Is(err, ErrBudgetExceeded):
		return domain.ExecutionBudgetExceeded
	case errors.Is(err, ErrTimeout):
		return domain.ExecutionTimeoutUnknown
	default:
		return domain.ExecutionFailed
	}
}

func strPtr(s string) *string {
	return &s
}

// PresignedOperation submits an already signed transaction. Message returns
// the message it was compiled from, ignoring the fresh blockhash.
type PresignedOperation struct {
	message string
	tx      string
	sender  solana.TxSender
}

var _ Operation = (*PresignedOperation)(nil)

// NewPresignedOperation wraps a base64 message and its signed transaction.
func NewPresignedOperation(sender solana.TxSender, message, tx string) *PresignedOperation {
	return &PresignedOperation{message: message, tx: tx, sender: sender}
}

// Message returns the compiled message.
func (o *PresignedOperation) Message(_ context.Context, _ solana.Blockhash) (string, error) {
	return o.message, nil
}

// Submit broadcasts the signed transaction.
func (o *PresignedOperation) Submit(ctx context.Context) (string, error) {
	return o.sender.SendTransaction(ctx, o.tx)
}

package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-gate/internal/dexscreener"
	"solana-token-gate/internal/discovery"
	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/execution"
	"solana-token-gate/internal/filter"
	"solana-token-gate/internal/risk"
	"solana-token-gate/internal/solana/stub"
	"solana-token-gate/internal/storage"
	"solana-token-gate/internal/storage/memory"
)

const (
	mintSocial   = "So11111111111111111111111111111111111111112"
	mintNoSocial = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	mintOffChain = "0x6982508145454ce325ddbe47a25d4ec3d2311933"
	ammProgram   = "RVKd61ztZW9wrJ2e7aJMgDo8m8FZPq8TVDajdKD4zjv"
)

type fakeFeed struct {
	profiles    []dexscreener.Profile
	profilesErr error
	pairs       map[string][]dexscreener.Pair
}

func (f *fakeFeed) LatestProfiles(context.Context) ([]dexscreener.Profile, error) {
	return f.profiles, f.profilesErr
}

func (f *fakeFeed) TokenPairs(_ context.Context, address string) ([]dexscreener.Pair, error) {
	return f.pairs[address], nil
}

type recordingNotifier struct {
	mu    sync.Mutex
	mints []string
}

func (n *recordingNotifier) NotifySafe(_ context.Context, t domain.TrendingToken) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.mints = append(n.mints, t.Mint())
}

func fptr(v float64) *float64 { return &v }
func iptr(v int64) *int64     { return &v }

func pair(socials ...dexscreener.Link) dexscreener.Pair {
	return dexscreener.Pair{
		ChainID:     "solana",
		Liquidity:   &dexscreener.Liquidity{USD: fptr(500)},
		PriceChange: &dexscreener.PriceChange{H24: fptr(10)},
		MarketCap:   fptr(200000),
		Txns:        &dexscreener.Txns{H24: &dexscreener.TxnCount{Buys: iptr(60), Sells: iptr(55)}},
		Info:        &dexscreener.PairInfo{Socials: socials},
	}
}

func scenarioFeed() *fakeFeed {
	return &fakeFeed{
		profiles: []dexscreener.Profile{
			{ChainID: "solana", TokenAddress: mintSocial},
			{ChainID: "ethereum", TokenAddress: mintOffChain},
			{ChainID: "solana", TokenAddress: mintNoSocial},
		},
		pairs: map[string][]dexscreener.Pair{
			mintSocial:   {pair(dexscreener.Link{Type: "twitter", URL: "https://x.com/token"})},
			mintNoSocial: {pair()},
			mintOffChain: {pair(dexscreener.Link{Type: "twitter", URL: "https://x.com/eth"})},
		},
	}
}

func safeChain(mints ...string) *stub.RPCClient {
	rpc := stub.NewRPCClient()
	for _, mint := range mints {
		rpc.SetSupply(mint, "1000000")
		rpc.AddPool(ammProgram, mint, mint+"-pool", "500")
		rpc.AddHolders(mint, 60)
	}
	return rpc
}

func TestRunOnce_EndToEnd(t *testing.T) {
	rpc := safeChain(mintSocial, mintNoSocial)
	journal := memory.NewExecutionStore()
	runStats := memory.NewRunStatsStore()
	notifier := &recordingNotifier{}

	trader := execution.NewTrader(execution.NewGuard(rpc), execution.TraderConfig{
		AmountSOL: decimal.RequireFromString("0.1"),
		Budget:    execution.DefaultBudget(),
		DryRun:    true,
	}, execution.WithJournal(journal))

	p := New(Options{
		Source:   discovery.NewSource(scenarioFeed(), discovery.Options{ChainID: "solana"}),
		Criteria: filter.DefaultCriteria(),
		Risk:     risk.NewEvaluator(rpc, ammProgram),
		Trader:   trader,
		Notifier: notifier,
		RunStats: runStats,
	})

	result, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Fetched, 2)
	assert.Equal(t, mintSocial, result.Fetched[0].Mint())
	assert.Equal(t, mintNoSocial, result.Fetched[1].Mint())

	require.Len(t, result.Passed, 1)
	assert.Equal(t, mintSocial, result.Passed[0].Mint())
	require.Len(t, result.Verdicts, 1)
	assert.False(t, result.Verdicts[0].Scam)
	require.Len(t, result.Safe, 1)

	require.Len(t, result.Executions, 1)
	assert.Equal(t, domain.ExecutionDryRun, result.Executions[0].Status)
	assert.Empty(t, result.Errors)
	assert.Equal(t, []string{mintSocial}, notifier.mints)

	// Risk checks ran only for the survivor; dry run never priced a message.
	assert.Equal(t, 1, rpc.Calls(stub.MethodGetTokenSupply))
	assert.Zero(t, rpc.Calls(stub.MethodGetFeeForMessage))

	recs, err := journal.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, mintSocial, recs[0].Mint)

	stats, err := runStats.Latest(context.Background())
	require.NoError(t, err)
	assert.Equal(t, result.RunID, stats.RunID)
	assert.Equal(t, 2, stats.Fetched)
	assert.Equal(t, 1, stats.Passed)
	assert.Equal(t, 1, stats.Safe)
	assert.Equal(t, 0, stats.Scam)
	assert.Equal(t, 1, stats.Executions)
	assert.Empty(t, stats.SourceError)

	assert.Equal(t, int64(1), p.Iterations())
	require.NotNil(t, p.LastRun())
	assert.Equal(t, result.RunID, p.LastRun().RunID)
}

func TestRunOnce_SourceUnavailable(t *testing.T) {
	feed := &fakeFeed{profilesErr: errors.New("502 bad gateway")}
	runStats := memory.NewRunStatsStore()
	risky := &fakeRisk{}

	p := New(Options{
		Source:   discovery.NewSource(feed, discovery.Options{ChainID: "solana"}),
		Criteria: filter.DefaultCriteria(),
		Risk:     risky,
		RunStats: runStats,
	})

	result, err := p.RunOnce(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, discovery.ErrSourceUnavailable)
	assert.Empty(t, result.Fetched)
	assert.Empty(t, result.Safe)
	assert.Len(t, result.Errors, 1)
	assert.Zero(t, risky.calls.Load())

	stats, err := runStats.Latest(context.Background())
	require.NoError(t, err)
	assert.NotEmpty(t, stats.SourceError)
	assert.Equal(t, int64(1), p.Iterations())
}

type fakeRisk struct {
	scam  map[string]bool
	calls atomic.Int32
}

func (r *fakeRisk) EvaluateAll(_ context.Context, mints []string) []domain.RiskVerdict {
	r.calls.Add(1)
	out := make([]domain.RiskVerdict, len(mints))
	for i, m := range mints {
		out[i] = domain.RiskVerdict{Mint: m}
		if r.scam[m] {
			out[i].Scam = true
			out[i].Criterion = domain.RiskCriterionHolders
		}
	}
	return out
}

type fakeSource struct {
	tokens []domain.TrendingToken
}

func (s *fakeSource) FetchCandidates(context.Context) ([]domain.TrendingToken, error) {
	return s.tokens, nil
}

type spyBuyer struct {
	mints []string
	err   error
}

func (b *spyBuyer) Buy(_ context.Context, t domain.TrendingToken) (*domain.ExecutionRecord, error) {
	b.mints = append(b.mints, t.Mint())
	rec := &domain.ExecutionRecord{ID: t.Mint(), Mint: t.Mint(), Side: domain.TradeSideBuy, Status: domain.ExecutionConfirmed}
	if b.err != nil {
		rec.Status = domain.ExecutionBudgetExceeded
	}
	return rec, b.err
}

func passing(mint string) domain.TrendingToken {
	return domain.TrendingToken{
		TokenProfile: domain.TokenProfile{ChainID: "solana", TokenAddress: mint},
		MarketSnapshot: domain.MarketSnapshot{
			Liquidity: 500, MarketCap: 200000, PriceChange: 10, Buys: 60, Sells: 55,
			Socials: []domain.Link{{Type: "twitter", URL: "https://x.com/t"}},
		},
	}
}

func TestRunOnce_ScamTokensAreNeitherTradedNorNotified(t *testing.T) {
	buyer := &spyBuyer{}
	notifier := &recordingNotifier{}
	p := New(Options{
		Source:   &fakeSource{tokens: []domain.TrendingToken{passing("A"), passing("B"), passing("C")}},
		Criteria: filter.DefaultCriteria(),
		Risk:     &fakeRisk{scam: map[string]bool{"B": true}},
		Trader:   buyer,
		Notifier: notifier,
	})

	result, err := p.RunOnce(context.Background())
	require.NoError(t, err)

	require.Len(t, result.Verdicts, 3)
	assert.Equal(t, []string{"A", "C"}, buyer.mints)
	assert.Equal(t, []string{"A", "C"}, notifier.mints)
	assert.Equal(t, 1, p.LastRun().Scam)
	assert.Equal(t, 2, p.LastRun().Safe)
}

func TestRunOnce_TradeErrorIsCollected(t *testing.T) {
	buyer := &spyBuyer{err: execution.ErrBudgetExceeded}
	notifier := &recordingNotifier{}
	p := New(Options{
		Source:   &fakeSource{tokens: []domain.TrendingToken{passing("A")}},
		Criteria: filter.DefaultCriteria(),
		Risk:     &fakeRisk{},
		Trader:   buyer,
		Notifier: notifier,
	})

	result, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0], execution.ErrBudgetExceeded)
	require.Len(t, result.Executions, 1)
	assert.Equal(t, domain.ExecutionBudgetExceeded, result.Executions[0].Status)
	assert.Equal(t, []string{"A"}, notifier.mints)
}

func TestRunOnce_NothingPassesSkipsRisk(t *testing.T) {
	risky := &fakeRisk{}
	thin := passing("A")
	thin.Socials = []domain.Link{}

	p := New(Options{
		Source:   &fakeSource{tokens: []domain.TrendingToken{thin}},
		Criteria: filter.DefaultCriteria(),
		Risk:     risky,
	})

	result, err := p.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Len(t, result.Fetched, 1)
	assert.Empty(t, result.Passed)
	assert.Zero(t, risky.calls.Load())
}

type failingRunStats struct {
	storage.RunStatsStore
}

func (failingRunStats) Insert(context.Context, *domain.RunStats) error {
	return errors.New("clickhouse down")
}

func TestRunOnce_RunStatsFailureIsNotFatal(t *testing.T) {
	p := New(Options{
		Source:   &fakeSource{},
		Criteria: filter.DefaultCriteria(),
		Risk:     &fakeRisk{},
		RunStats: failingRunStats{},
	})

	_, err := p.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.NotNil(t, p.LastRun())
}

type countingRunner struct {
	calls atomic.Int32
	err   error
}

func (r *countingRunner) RunOnce(context.Context) (*ScanResult, error) {
	r.calls.Add(1)
	return &ScanResult{}, r.err
}

func TestSupervisor_LoopsUntilCancelled(t *testing.T) {
	runner := &countingRunner{err: discovery.ErrSourceUnavailable}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := NewSupervisor(runner, 10*time.Millisecond, nil).Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.GreaterOrEqual(t, runner.calls.Load(), int32(2))
}

func TestSupervisor_WaitsBetweenIterations(t *testing.T) {
	runner := &countingRunner{}
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := NewSupervisor(runner, time.Hour, nil).Run(ctx)

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, int32(1), runner.calls.Load())
}

func TestNewSupervisor_DefaultInterval(t *testing.T) {
	s := NewSupervisor(&countingRunner{}, 0, nil)
	assert.Equal(t, DefaultInterval, s.interval)
}

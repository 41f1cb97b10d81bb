// Package pipeline runs one discovery iteration end to end and repeats it
// on an interval.
//
// Flow: source → filter → risk fan-out → trader → notifier
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/filter"
	"solana-token-gate/internal/notify"
	"solana-token-gate/internal/observability"
	"solana-token-gate/internal/storage"
)

// Pipeline run statuses, used as metric labels.
const (
	StatusSuccess     = "success"
	StatusSourceError = "source_error"
	StatusCancelled   = "cancelled"
)

// CandidateSource yields candidates in feed order.
type CandidateSource interface {
	FetchCandidates(ctx context.Context) ([]domain.TrendingToken, error)
}

// RiskEvaluator returns one verdict per mint, in input order.
type RiskEvaluator interface {
	EvaluateAll(ctx context.Context, mints []string) []domain.RiskVerdict
}

// Buyer turns a safe token into a guarded buy.
type Buyer interface {
	Buy(ctx context.Context, token domain.TrendingToken) (*domain.ExecutionRecord, error)
}

// Options for creating Pipeline.
type Options struct {
	// Required
	Source   CandidateSource
	Criteria filter.Criteria
	Risk     RiskEvaluator

	// Optional
	Trader   Buyer
	Notifier notify.Notifier
	RunStats storage.RunStatsStore
	Logger   *zap.Logger
}

// ScanResult is the outcome of one iteration.
type ScanResult struct {
	RunID      string
	Fetched    []domain.TrendingToken
	Passed     []domain.TrendingToken
	Verdicts   []domain.RiskVerdict // aligned with Passed
	Safe       []domain.TrendingToken
	Executions []*domain.ExecutionRecord
	Errors     []error
}

// Pipeline wires the stages of one iteration.
type Pipeline struct {
	source   CandidateSource
	criteria filter.Criteria
	risk     RiskEvaluator
	trader   Buyer
	notifier notify.Notifier
	runStats storage.RunStatsStore
	log      *zap.Logger
	now      func() time.Time

	iterations atomic.Int64
	mu         sync.RWMutex
	last       *domain.RunStats
}

// New creates a new Pipeline.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		source:   opts.Source,
		criteria: opts.Criteria,
		risk:     opts.Risk,
		trader:   opts.Trader,
		notifier: opts.Notifier,
		runStats: opts.RunStats,
		log:      opts.Logger,
		now:      time.Now,
	}
	if p.notifier == nil {
		p.notifier = notify.Nop{}
	}
	if p.log == nil {
		p.log = zap.NewNop()
	}
	return p
}

// RunOnce executes one iteration. The returned error is non-nil only when
// the candidate feed was unavailable or ctx was cancelled; everything else
// is recovered per candidate and collected in ScanResult.Errors.
func (p *Pipeline) RunOnce(ctx context.Context) (*ScanResult, error) {
	start := p.now()
	result := &ScanResult{RunID: uuid.NewString()}
	defer p.iterations.Add(1)

	fetched, err := p.source.FetchCandidates(ctx)
	if err != nil {
		status := StatusSourceError
		if ctx.Err() != nil {
			status = StatusCancelled
		}
		p.log.Error("candidate fetch failed", zap.String("run_id", result.RunID), zap.Error(err))
		result.Errors = append(result.Errors, err)
		p.finish(ctx, result, start, status, err.Error())
		return result, err
	}
	observability.UpdateLastSuccessfulScan(p.now().Unix())
	result.Fetched = fetched

	result.Passed = p.criteria.Apply(fetched)
	if len(result.Passed) > 0 {
		mints := make([]string, len(result.Passed))
		for i, t := range result.Passed {
			mints[i] = t.Mint()
		}
		result.Verdicts = p.risk.EvaluateAll(ctx, mints)
	}

	for i, v := range result.Verdicts {
		if v.Scam {
			p.log.Info("token rejected",
				zap.String("mint", v.Mint),
				zap.String("criterion", v.Criterion.String()),
				zap.String("detail", v.Detail))
			continue
		}
		result.Safe = append(result.Safe, result.Passed[i])
	}

	for _, token := range result.Safe {
		if ctx.Err() != nil {
			break
		}
		p.handleSafe(ctx, token, result)
	}

	status := StatusSuccess
	if ctx.Err() != nil {
		status = StatusCancelled
	}
	p.finish(ctx, result, start, status, "")

	p.log.Info("scan completed",
		zap.String("run_id", result.RunID),
		zap.Int("fetched", len(result.Fetched)),
		zap.Int("passed", len(result.Passed)),
		zap.Int("safe", len(result.Safe)),
		zap.Duration("duration", p.now().Sub(start)))

	return result, ctx.Err()
}

func (p *Pipeline) handleSafe(ctx context.Context, token domain.TrendingToken, result *ScanResult) {
	p.log.Info("token passed risk checks", zap.String("mint", token.Mint()))

	if p.trader != nil {
		rec, err := p.trader.Buy(ctx, token)
		if rec != nil {
			result.Executions = append(result.Executions, rec)
		}
		if err != nil {
			result.Errors = append(result.Errors, err)
		}
	}

	p.notifier.NotifySafe(ctx, token)
}

func (p *Pipeline) finish(ctx context.Context, result *ScanResult, start time.Time, status, sourceErr string) {
	elapsed := p.now().Sub(start)
	observability.RecordPipelineRun(status, elapsed.Seconds())

	stats := &domain.RunStats{
		RunID:       result.RunID,
		StartedAt:   start.UnixMilli(),
		DurationMs:  elapsed.Milliseconds(),
		Fetched:     len(result.Fetched),
		Passed:      len(result.Passed),
		Safe:        len(result.Safe),
		Scam:        len(result.Verdicts) - len(result.Safe),
		Executions:  len(result.Executions),
		SourceError: sourceErr,
	}

	p.mu.Lock()
	p.last = stats
	p.mu.Unlock()

	if p.runStats == nil {
		return
	}
	// Stats are bookkeeping; a cancelled iteration still records them.
	if err := p.runStats.Insert(context.WithoutCancel(ctx), stats); err != nil {
		p.log.Error("failed to store run stats", zap.String("run_id", stats.RunID), zap.Error(err))
	}
}

// Iterations returns how many iterations have completed.
func (p *Pipeline) Iterations() int64 {
	return p.iterations.Load()
}

// LastRun returns a copy of the most recent iteration stats, or nil.
func (p *Pipeline) LastRun() *domain.RunStats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.last == nil {
		return nil
	}
	cp := *p.last
	return &cp
}

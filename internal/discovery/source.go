// Package discovery turns the market feeds into TrendingToken candidates.
package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"solana-token-gate/internal/dexscreener"
	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/observability"
)

// DefaultConcurrency bounds concurrent pair fetches.
const DefaultConcurrency = 4

var (
	// ErrSourceUnavailable means the profile feed was unreachable or malformed.
	// The whole fetch is aborted and no candidates are returned.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrCandidateSkipped marks a single profile excluded for missing or
	// mismatching pair data. It never escapes FetchCandidates.
	ErrCandidateSkipped = errors.New("candidate skipped")
)

// Skip reasons, used as log fields and metric labels.
const (
	SkipNoPairs       = "no_pairs"
	SkipChainMismatch = "chain_mismatch"
	SkipFetchError    = "fetch_error"
)

// Feed is the two-stage market data source.
type Feed interface {
	LatestProfiles(ctx context.Context) ([]dexscreener.Profile, error)
	TokenPairs(ctx context.Context, address string) ([]dexscreener.Pair, error)
}

// Options configures Source.
type Options struct {
	ChainID     string
	Concurrency int
	Logger      *zap.Logger
}

// Source fetches candidates for one chain.
type Source struct {
	feed        Feed
	chainID     string
	concurrency int
	log         *zap.Logger
}

// NewSource creates a candidate source.
func NewSource(feed Feed, opts Options) *Source {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Source{
		feed:        feed,
		chainID:     opts.ChainID,
		concurrency: opts.Concurrency,
		log:         opts.Logger,
	}
}

// FetchCandidates returns a TrendingToken for every profile on the configured
// chain that has a usable pair record. Output follows feed order.
// A per-candidate failure is logged and skipped; only a profile feed failure
// is returned, wrapped in ErrSourceUnavailable.
func (s *Source) FetchCandidates(ctx context.Context) ([]domain.TrendingToken, error) {
	profiles, err := s.feed.LatestProfiles(ctx)
	if err != nil {
		observability.RecordSourceError()
		return nil, fmt.Errorf("%w: %v", ErrSourceUnavailable, err)
	}
	observability.RecordProfilesFetched(len(profiles))

	onChain := make([]dexscreener.Profile, 0, len(profiles))
	for _, p := range profiles {
		if p.ChainID == s.chainID {
			onChain = append(onChain, p)
		}
	}

	results := make([]*domain.TrendingToken, len(onChain))

	var g errgroup.Group
	g.SetLimit(s.concurrency)

	for i, profile := range onChain {
		i, profile := i, profile
		g.Go(func() error {
			token, err := s.fetchOne(ctx, profile)
			if err != nil {
				reason := SkipFetchError
				var skip *skipError
				if errors.As(err, &skip) {
					reason = skip.reason
				}
				observability.RecordCandidateSkipped(reason)
				s.log.Warn("candidate skipped",
					zap.String("mint", profile.TokenAddress),
					zap.String("reason", reason),
					zap.Error(err))
				return nil
			}
			results[i] = token
			return nil
		})
	}

	// Workers never return errors; failures are per-candidate skips.
	_ = g.Wait()

	candidates := make([]domain.TrendingToken, 0, len(results))
	for _, r := range results {
		if r != nil {
			candidates = append(candidates, *r)
		}
	}
	return candidates, nil
}

func (s *Source) fetchOne(ctx context.Context, profile dexscreener.Profile) (*domain.TrendingToken, error) {
	pairs, err := s.feed.TokenPairs(ctx, profile.TokenAddress)
	if err != nil {
		return nil, fmt.Errorf("fetch pairs: %w", err)
	}
	return BuildCandidate(s.chainID, profile, pairs)
}

// skipError carries the skip reason alongside ErrCandidateSkipped.
type skipError struct {
	reason string
	detail string
}

func (e *skipError) Error() string {
	return fmt.Sprintf("%s: %s: %s", ErrCandidateSkipped, e.reason, e.detail)
}

func (e *skipError) Unwrap() error {
	return ErrCandidateSkipped
}

// BuildCandidate joins a profile with its first pair record.
// Returns an error wrapping ErrCandidateSkipped when there is no pair or the
// first pair is on another chain.
func BuildCandidate(chainID string, profile dexscreener.Profile, pairs []dexscreener.Pair) (*domain.TrendingToken, error) {
	if len(pairs) == 0 {
		return nil, &skipError{reason: SkipNoPairs, detail: profile.TokenAddress}
	}

	pair := pairs[0]
	if pair.ChainID != chainID {
		return nil, &skipError{
			reason: SkipChainMismatch,
			detail: fmt.Sprintf("pair chain %q, want %q", pair.ChainID, chainID),
		}
	}

	return &domain.TrendingToken{
		TokenProfile:   ToProfile(profile),
		MarketSnapshot: Normalize(pair),
	}, nil
}

// ToProfile converts a feed profile.
func ToProfile(p dexscreener.Profile) domain.TokenProfile {
	return domain.TokenProfile{
		ChainID:      p.ChainID,
		TokenAddress: p.TokenAddress,
		URL:          p.URL,
		Icon:         p.Icon,
		Header:       p.Header,
		Description:  p.Description,
		Links:        toLinks(p.Links),
	}
}

// Normalize extracts a MarketSnapshot with zero for every missing field.
// Socials is never nil.
func Normalize(pair dexscreener.Pair) domain.MarketSnapshot {
	var snap domain.MarketSnapshot

	if pair.Liquidity != nil && pair.Liquidity.USD != nil {
		snap.Liquidity = *pair.Liquidity.USD
	}
	if pair.PriceChange != nil && pair.PriceChange.H24 != nil {
		snap.PriceChange = *pair.PriceChange.H24
	}
	if pair.MarketCap != nil {
		snap.MarketCap = *pair.MarketCap
	}
	if pair.Txns != nil && pair.Txns.H24 != nil {
		if pair.Txns.H24.Buys != nil {
			snap.Buys = *pair.Txns.H24.Buys
		}
		if pair.Txns.H24.Sells != nil {
			snap.Sells = *pair.Txns.H24.Sells
		}
	}

	snap.Socials = []domain.Link{}
	if pair.Info != nil {
		if links := toLinks(pair.Info.Socials); links != nil {
			snap.Socials = links
		}
	}

	return snap
}

func toLinks(in []dexscreener.Link) []domain.Link {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Link, len(in))
	for i, l := range in {
		out[i] = domain.Link{Type: l.Type, Label: l.Label, URL: l.URL}
	}
	return out
}

// Package filter applies the quantitative bar a candidate must meet before
// it is risk-evaluated. Filtering is pure: no network I/O.
package filter

import (
	"fmt"
	"math"

	"solana-token-gate/internal/domain"
	"solana-token-gate/internal/observability"
)

// Default thresholds.
const (
	DefaultMinLiquidity   = 100
	DefaultMinMarketCap   = 100000
	DefaultMaxPriceChange = 50
	DefaultMinBuys        = 50
	DefaultMinSells       = 50
)

// Criteria holds the filter thresholds. All bounds are inclusive.
type Criteria struct {
	MinLiquidity   float64
	MinMarketCap   float64
	MaxPriceChange float64 // absolute percent
	MinBuys        int64
	MinSells       int64
}

// DefaultCriteria returns the documented default thresholds.
func DefaultCriteria() Criteria {
	return Criteria{
		MinLiquidity:   DefaultMinLiquidity,
		MinMarketCap:   DefaultMinMarketCap,
		MaxPriceChange: DefaultMaxPriceChange,
		MinBuys:        DefaultMinBuys,
		MinSells:       DefaultMinSells,
	}
}

// CriterionResult is the outcome of a single threshold check.
type CriterionResult struct {
	Name      string
	Threshold string
	Actual    string
	Pass      bool
}

// Check evaluates every criterion against the token.
func (c Criteria) Check(t domain.TrendingToken) []CriterionResult {
	return []CriterionResult{
		{
			Name:      "liquidity",
			Threshold: fmt.Sprintf(">= %g", c.MinLiquidity),
			Actual:    fmt.Sprintf("%g", t.Liquidity),
			Pass:      t.Liquidity >= c.MinLiquidity,
		},
		{
			Name:      "market_cap",
			Threshold: fmt.Sprintf(">= %g", c.MinMarketCap),
			Actual:    fmt.Sprintf("%g", t.MarketCap),
			Pass:      t.MarketCap >= c.MinMarketCap,
		},
		{
			Name:      "price_change",
			Threshold: fmt.Sprintf("|x| <= %g", c.MaxPriceChange),
			Actual:    fmt.Sprintf("%g", t.PriceChange),
			Pass:      math.Abs(t.PriceChange) <= c.MaxPriceChange,
		},
		{
			Name:      "buys",
			Threshold: fmt.Sprintf(">= %d", c.MinBuys),
			Actual:    fmt.Sprintf("%d", t.Buys),
			Pass:      t.Buys >= c.MinBuys,
		},
		{
			Name:      "sells",
			Threshold: fmt.Sprintf(">= %d", c.MinSells),
			Actual:    fmt.Sprintf("%d", t.Sells),
			Pass:      t.Sells >= c.MinSells,
		},
		{
			Name:      "socials",
			Threshold: ">= 1",
			Actual:    fmt.Sprintf("%d", len(t.Socials)),
			Pass:      len(t.Socials) > 0,
		},
	}
}

// Passes reports whether the token meets every criterion.
func (c Criteria) Passes(t domain.TrendingToken) bool {
	for _, r := range c.Check(t) {
		if !r.Pass {
			return false
		}
	}
	return true
}

// Failed returns the names of the criteria the token misses.
func (c Criteria) Failed(t domain.TrendingToken) []string {
	var failed []string
	for _, r := range c.Check(t) {
		if !r.Pass {
			failed = append(failed, r.Name)
		}
	}
	return failed
}

// Apply returns the tokens that pass, in input order.
func (c Criteria) Apply(tokens []domain.TrendingToken) []domain.TrendingToken {
	passed := make([]domain.TrendingToken, 0, len(tokens))
	for _, t := range tokens {
		ok := c.Passes(t)
		observability.RecordFilterResult(ok)
		if ok {
			passed = append(passed, t)
		}
	}
	return passed
}

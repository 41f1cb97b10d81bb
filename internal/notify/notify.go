// Package notify sends alerts about tokens that passed every gate.
package notify

import (
	"context"
	"fmt"
	"strings"

	"solana-token-gate/internal/domain"
)

// Notifier reports safe candidates. Implementations log their own failures
// and never block the pipeline on delivery.
type Notifier interface {
	NotifySafe(ctx context.Context, token domain.TrendingToken)
}

// Nop discards notifications.
type Nop struct{}

var _ Notifier = Nop{}

// NotifySafe does nothing.
func (Nop) NotifySafe(context.Context, domain.TrendingToken) {}

// FormatSafe renders the alert text for a safe token.
func FormatSafe(t domain.TrendingToken) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Safe candidate on %s\n", t.ChainID)
	fmt.Fprintf(&b, "Mint: %s\n", t.Mint())
	fmt.Fprintf(&b, "Liquidity: $%.2f\n", t.Liquidity)
	fmt.Fprintf(&b, "Market cap: $%.0f\n", t.MarketCap)
	fmt.Fprintf(&b, "24h change: %.2f%%\n", t.PriceChange)
	fmt.Fprintf(&b, "24h txns: %d buys / %d sells\n", t.Buys, t.Sells)
	for _, s := range t.Socials {
		fmt.Fprintf(&b, "%s: %s\n", s.Type, s.URL)
	}
	if t.URL != "" {
		b.WriteString(t.URL)
	}
	return strings.TrimRight(b.String(), "\n")
}

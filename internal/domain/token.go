package domain

// Link is a descriptive link attached to a token profile or pair info
// (website, twitter, telegram, ...).
type Link struct {
	Type  string
	Label string
	URL   string
}

// TokenProfile is the identity and metadata of a discovered token.
// Built from the discovery feed; never mutated afterwards.
type TokenProfile struct {
	ChainID      string // chain identifier, e.g. "solana"
	TokenAddress string // mint address
	URL          string
	Icon         string
	Header       string
	Description  string
	Links        []Link // nil when the feed carried none
}

// MarketSnapshot is per-token market state from the pair feed.
// Missing sub-fields are normalized to zero.
type MarketSnapshot struct {
	Liquidity   float64 // quote-currency units (USD)
	PriceChange float64 // 24h price change, percent
	MarketCap   float64
	Buys        int64 // 24h buy count
	Sells       int64 // 24h sell count
	Socials     []Link // never nil; empty when the pair has no socials
}

// TrendingToken is a profile joined with its market snapshot.
type TrendingToken struct {
	TokenProfile
	MarketSnapshot
}

// Mint returns the token mint address.
func (t TrendingToken) Mint() string {
	return t.TokenAddress
}

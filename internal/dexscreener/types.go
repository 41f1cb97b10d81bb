package dexscreener

// Profile is an entry of the latest token-profiles feed.
type Profile struct {
	URL          string `json:"url"`
	ChainID      string `json:"chainId"`
	TokenAddress string `json:"tokenAddress"`
	Icon         string `json:"icon"`
	Header       string `json:"header"`
	Description  string `json:"description"`
	Links        []Link `json:"links"`
}

// Link is a profile link or pair social entry.
type Link struct {
	Type  string `json:"type"`
	Label string `json:"label"`
	URL   string `json:"url"`
}

// Pair is a trading pair record. Optional nested objects are pointers so
// that a missing field can be told apart from a zero value.
type Pair struct {
	ChainID     string       `json:"chainId"`
	DexID       string       `json:"dexId"`
	PairAddress string       `json:"pairAddress"`
	BaseToken   *PairToken   `json:"baseToken"`
	QuoteToken  *PairToken   `json:"quoteToken"`
	PriceUSD    string       `json:"priceUsd"`
	Liquidity   *Liquidity   `json:"liquidity"`
	PriceChange *PriceChange `json:"priceChange"`
	MarketCap   *float64     `json:"marketCap"`
	FDV         *float64     `json:"fdv"`
	Txns        *Txns        `json:"txns"`
	Info        *PairInfo    `json:"info"`
}

// PairToken identifies one side of a pair.
type PairToken struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Liquidity in quote units.
type Liquidity struct {
	USD   *float64 `json:"usd"`
	Base  *float64 `json:"base"`
	Quote *float64 `json:"quote"`
}

// PriceChange percentages by window.
type PriceChange struct {
	H1  *float64 `json:"h1"`
	H6  *float64 `json:"h6"`
	H24 *float64 `json:"h24"`
}

// Txns holds transaction counts by window.
type Txns struct {
	H1  *TxnCount `json:"h1"`
	H24 *TxnCount `json:"h24"`
}

// TxnCount is a buy/sell count pair.
type TxnCount struct {
	Buys  *int64 `json:"buys"`
	Sells *int64 `json:"sells"`
}

// PairInfo carries optional pair metadata.
type PairInfo struct {
	ImageURL string `json:"imageUrl"`
	Websites []Link `json:"websites"`
	Socials  []Link `json:"socials"`
}

// pairsResponse is the body of the token pairs endpoint.
type pairsResponse struct {
	SchemaVersion string `json:"schemaVersion"`
	Pairs         []Pair `json:"pairs"`
}

package execution

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// SlippageBounds returns the accepted price range around expected for a
// tolerance of pct percent. A negative pct is treated as zero.
func SlippageBounds(expected, pct decimal.Decimal) (low, high decimal.Decimal) {
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	delta := expected.Mul(pct).Div(hundred)
	return expected.Sub(delta), expected.Add(delta)
}

// MinOut returns the lowest acceptable output for amount under pct slippage.
func MinOut(amount, pct decimal.Decimal) decimal.Decimal {
	low, _ := SlippageBounds(amount, pct)
	return low
}

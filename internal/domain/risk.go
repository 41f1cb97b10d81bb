package domain

// RiskCriterion identifies which check flagged a token.
type RiskCriterion string

const (
	RiskCriterionNone      RiskCriterion = ""
	RiskCriterionSupply    RiskCriterion = "SUPPLY"
	RiskCriterionLiquidity RiskCriterion = "LIQUIDITY"
	RiskCriterionHolders   RiskCriterion = "HOLDERS"
	RiskCriterionError     RiskCriterion = "EVALUATION_ERROR"
)

// String returns the string representation of RiskCriterion.
func (c RiskCriterion) String() string {
	return string(c)
}

// RiskVerdict is the point-in-time outcome of a risk evaluation.
// Produced fresh per evaluation; never cached.
type RiskVerdict struct {
	Mint      string
	Scam      bool
	Criterion RiskCriterion // RiskCriterionNone when Scam is false
	Detail    string        // human-readable reason
	Err       error         // set when Criterion is RiskCriterionError
}

// Safe reports whether the token passed every check.
func (v RiskVerdict) Safe() bool {
	return !v.Scam
}

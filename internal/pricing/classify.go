package pricing

import (
	"github.com/shopspring/decimal"
)

// RangeResult reports whether a current price falls inside an action range.
type RangeResult struct {
	Levels       LevelSet
	InRange      bool
	MatchedRange RangeLabel
	// ChangePct is the signed change of current vs reference, rounded to 2 places.
	ChangePct decimal.Decimal
}

// Classify derives the level set from the reference price and checks which
// action range, if any, the current price occupies. Membership is inclusive on
// both ends; the two ranges never overlap for a positive reference. Ranges stay
// anchored to the original reference price for the life of a position.
func Classify(current, reference decimal.Decimal, cfg Config) (RangeResult, error) {
	levels, err := Levels(reference, cfg)
	if err != nil {
		return RangeResult{}, err
	}

	result := RangeResult{
		Levels:       levels,
		MatchedRange: RangeNone,
		ChangePct:    current.Sub(reference).Div(reference).Mul(hundred).Round(2),
	}

	switch {
	case current.GreaterThanOrEqual(levels.Plus3) && current.LessThanOrEqual(levels.Plus5):
		result.InRange = true
		result.MatchedRange = RangeUpper
	case current.GreaterThanOrEqual(levels.Minus5) && current.LessThanOrEqual(levels.Minus3):
		result.InRange = true
		result.MatchedRange = RangeLower
	}

	return result, nil
}

package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// LevelSet holds the six boundary prices derived from one reference price.
// Fields carry the high-precision values used for all comparisons.
type LevelSet struct {
	Plus10  decimal.Decimal
	Plus5   decimal.Decimal
	Plus3   decimal.Decimal
	Minus3  decimal.Decimal
	Minus5  decimal.Decimal
	Minus10 decimal.Decimal
}

// Level returns the boundary price for a band.
func (ls LevelSet) Level(b Band) decimal.Decimal {
	switch b {
	case BandPlus10:
		return ls.Plus10
	case BandPlus5:
		return ls.Plus5
	case BandPlus3:
		return ls.Plus3
	case BandMinus3:
		return ls.Minus3
	case BandMinus5:
		return ls.Minus5
	case BandMinus10:
		return ls.Minus10
	}
	return decimal.Decimal{}
}

// Levels computes the boundary prices reference*(1±3%/5%/10%), each rounded to
// cfg.CalcPrecision. Rounding is half-up (half away from zero), pinned by tests.
// A non-positive reference price is a precondition violation.
func Levels(reference decimal.Decimal, cfg Config) (LevelSet, error) {
	cfg = cfg.normalized()

	if !reference.IsPositive() {
		return LevelSet{}, fmt.Errorf("%w: reference price must be positive, got %s", ErrInvalidInput, reference)
	}

	at := func(delta decimal.Decimal) decimal.Decimal {
		return reference.Mul(one.Add(delta)).Round(cfg.CalcPrecision)
	}

	return LevelSet{
		Plus10:  at(deltaPlus10),
		Plus5:   at(deltaPlus5),
		Plus3:   at(deltaPlus3),
		Minus3:  at(deltaMinus3),
		Minus5:  at(deltaMinus5),
		Minus10: at(deltaMinus10),
	}, nil
}

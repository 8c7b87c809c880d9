package pricing

import (
	"errors"

	"github.com/shopspring/decimal"
)

// ErrInvalidInput marks precondition violations rejected before any arithmetic.
var ErrInvalidInput = errors.New("pricing: invalid input")

const (
	defaultCalcPrecision    = 4
	defaultDisplayPrecision = 2
)

// Config carries the precision settings shared by the pure price functions.
// Values are passed explicitly so the calculators stay free of process-wide state.
type Config struct {
	CalcPrecision    int32 `mapstructure:"calc_precision"`
	DisplayPrecision int32 `mapstructure:"display_precision"`
}

// DefaultConfig returns the built-in precision tiers: four decimal places for
// internal arithmetic, two for display.
func DefaultConfig() Config {
	return Config{
		CalcPrecision:    defaultCalcPrecision,
		DisplayPrecision: defaultDisplayPrecision,
	}
}

func (c Config) normalized() Config {
	if c.CalcPrecision <= 0 {
		c.CalcPrecision = defaultCalcPrecision
	}
	if c.DisplayPrecision <= 0 {
		c.DisplayPrecision = defaultDisplayPrecision
	}
	return c
}

// Band identifies one of the six boundary levels derived from a reference price.
type Band string

const (
	BandPlus10  Band = "+10%"
	BandPlus5   Band = "+5%"
	BandPlus3   Band = "+3%"
	BandMinus3  Band = "-3%"
	BandMinus5  Band = "-5%"
	BandMinus10 Band = "-10%"
)

// Bands lists all bands in display order, gains first.
func Bands() []Band {
	return []Band{BandPlus10, BandPlus5, BandPlus3, BandMinus3, BandMinus5, BandMinus10}
}

// RangeLabel names an action range a price can fall into.
type RangeLabel string

const (
	// RangeUpper is the near-profit-take range between +3% and +5%.
	RangeUpper RangeLabel = "[+3%~+5%]"
	// RangeLower is the near-stop-loss range between -5% and -3%.
	RangeLower RangeLabel = "[-5%~-3%]"
	// RangeNone means the price sits outside both action ranges.
	RangeNone RangeLabel = ""
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)

	deltaPlus10  = decimal.RequireFromString("0.10")
	deltaPlus5   = decimal.RequireFromString("0.05")
	deltaPlus3   = decimal.RequireFromString("0.03")
	deltaMinus3  = decimal.RequireFromString("-0.03")
	deltaMinus5  = decimal.RequireFromString("-0.05")
	deltaMinus10 = decimal.RequireFromString("-0.10")
)

// Display reduces a price to the coarser display precision. The result is for
// presentation only and must never feed back into band comparisons.
func Display(price decimal.Decimal, cfg Config) decimal.Decimal {
	return price.Round(cfg.normalized().DisplayPrecision)
}

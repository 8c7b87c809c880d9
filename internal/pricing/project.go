package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Projection values a holding at one price. Price is display-rounded; Amount,
// ProfitAmount and ProfitPct are rounded to 2 places after computing from the
// high-precision price.
type Projection struct {
	Price        decimal.Decimal
	Amount       decimal.Decimal
	ProfitAmount decimal.Decimal
	ProfitPct    decimal.Decimal
}

// ReferenceLeg records the transaction the projections are measured against.
type ReferenceLeg struct {
	Price    decimal.Decimal
	Quantity int64
	Amount   decimal.Decimal
}

// ProjectionTable values a holding at the current price and at every band boundary.
type ProjectionTable struct {
	Reference ReferenceLeg
	Current   Projection
	Plus10    Projection
	Plus5     Projection
	Plus3     Projection
	Minus3    Projection
	Minus5    Projection
	Minus10   Projection
}

// Band returns the projection for a band boundary.
func (t ProjectionTable) Band(b Band) Projection {
	switch b {
	case BandPlus10:
		return t.Plus10
	case BandPlus5:
		return t.Plus5
	case BandPlus3:
		return t.Plus3
	case BandMinus3:
		return t.Minus3
	case BandMinus5:
		return t.Minus5
	case BandMinus10:
		return t.Minus10
	}
	return Projection{}
}

// Project computes profit/loss at the current price and at each band boundary.
// Preconditions: reference > 0, quantity >= 0, and the reference amount must be
// non-zero so the profit percentage is defined.
func Project(current, reference decimal.Decimal, quantity int64, cfg Config) (ProjectionTable, error) {
	cfg = cfg.normalized()

	if quantity < 0 {
		return ProjectionTable{}, fmt.Errorf("%w: quantity must not be negative, got %d", ErrInvalidInput, quantity)
	}

	levels, err := Levels(reference, cfg)
	if err != nil {
		return ProjectionTable{}, err
	}

	qty := decimal.NewFromInt(quantity)
	refAmount := reference.Mul(qty).Round(cfg.DisplayPrecision)
	if refAmount.IsZero() {
		return ProjectionTable{}, fmt.Errorf("%w: reference amount is zero, profit percentage undefined", ErrInvalidInput)
	}

	at := func(price decimal.Decimal) Projection {
		amount := price.Mul(qty).Round(cfg.DisplayPrecision)
		profit := amount.Sub(refAmount)
		return Projection{
			Price:        Display(price, cfg),
			Amount:       amount,
			ProfitAmount: profit,
			ProfitPct:    profit.Div(refAmount).Mul(hundred).Round(2),
		}
	}

	return ProjectionTable{
		Reference: ReferenceLeg{Price: reference, Quantity: quantity, Amount: refAmount},
		Current:   at(current),
		Plus10:    at(levels.Plus10),
		Plus5:     at(levels.Plus5),
		Plus3:     at(levels.Plus3),
		Minus3:    at(levels.Minus3),
		Minus5:    at(levels.Minus5),
		Minus10:   at(levels.Minus10),
	}, nil
}

package fetcher

import (
	"context"

	"github.com/shopspring/decimal"
)

// Quote is one observed market price for an instrument.
type Quote struct {
	Code  string
	Name  string
	Price decimal.Decimal
}

// QuoteFetcher retrieves the current market price for an instrument code.
// A failed fetch means no classification is possible for that cycle; fetchers
// perform no retries themselves.
type QuoteFetcher interface {
	FetchQuote(ctx context.Context, code string) (Quote, error)
}

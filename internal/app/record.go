package app

import (
	"context"
	"fmt"
	"os"
)

// Record persists a new transaction, establishing a fresh reference price for
// the code. The instrument name is resolved from the quote source when
// reachable; recording never fails on a naming lookup.
func (a *App) Record(ctx context.Context, opts RecordOptions) error {
	if !opts.Price.IsPositive() {
		return fmt.Errorf("transaction price must be positive, got %s", opts.Price)
	}
	if opts.Quantity <= 0 {
		return fmt.Errorf("transaction quantity must be positive, got %d", opts.Quantity)
	}

	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	name := opts.Code
	if quote, err := a.newFetcher().FetchQuote(ctx, opts.Code); err != nil {
		a.Logger.Warn().Err(err).Str("code", opts.Code).Msg("could not resolve instrument name, using code")
	} else {
		name = quote.Name
	}

	position, err := store.RecordTransaction(ctx, opts.Code, name, opts.Price, opts.Quantity)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "recorded transaction for %s (%s): %s × %d\n", name, opts.Code, opts.Price, opts.Quantity)
	fmt.Fprintf(os.Stdout, "position id: %s\n", position.ID)
	return nil
}

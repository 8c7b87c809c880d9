package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"

	"etf-tracker/internal/alert"
	"etf-tracker/internal/pricing"
	"etf-tracker/internal/storage"
)

// Analyze runs one check cycle for a single position and prints the level set,
// range classification, alert decision, and profit/loss projection. The check
// persists state exactly as a scheduled cycle would.
func (a *App) Analyze(ctx context.Context, opts AnalyzeOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	position, err := a.resolvePosition(ctx, store, opts)
	if err != nil {
		return err
	}

	quote, err := a.newFetcher().FetchQuote(ctx, position.Code)
	if err != nil {
		return fmt.Errorf("quote unavailable for %s: %w", position.Code, err)
	}

	if _, err := store.InsertSample(ctx, storage.PriceSample{
		Code:       quote.Code,
		Name:       quote.Name,
		Price:      quote.Price,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		a.Logger.Error().Err(err).Msg("failed to record price sample")
	}

	decision, err := a.newEngine(store).Check(ctx, position.ID, quote.Price, position.ReferencePrice)
	if err != nil {
		return err
	}
	if decision.DegradedRead != nil {
		fmt.Fprintf(os.Stdout, "warning: prior state unavailable (%v); treated as first check\n\n", decision.DegradedRead)
	}

	table, err := pricing.Project(quote.Price, position.ReferencePrice, position.Quantity, a.Config.Pricing)
	if err != nil {
		return err
	}

	printAnalysis(position, quote.Name, decision, table, a.Config.Pricing)
	return nil
}

func (a *App) resolvePosition(ctx context.Context, store *storage.Store, opts AnalyzeOptions) (storage.Position, error) {
	if opts.PositionID != "" {
		id, err := uuid.Parse(opts.PositionID)
		if err != nil {
			return storage.Position{}, fmt.Errorf("invalid position id: %w", err)
		}
		position, found, err := store.GetPosition(ctx, id)
		if err != nil {
			return storage.Position{}, err
		}
		if !found {
			return storage.Position{}, fmt.Errorf("position %s not found", opts.PositionID)
		}
		return position, nil
	}

	if opts.Code == "" {
		return storage.Position{}, errors.New("either --position or --code must be provided")
	}

	position, found, err := store.LatestPositionByCode(ctx, opts.Code)
	if err != nil {
		return storage.Position{}, err
	}
	if !found {
		return storage.Position{}, fmt.Errorf("no recorded transaction for %s; run the record command first", opts.Code)
	}
	return position, nil
}

func printAnalysis(position storage.Position, name string, decision alert.Decision, table pricing.ProjectionTable, cfg pricing.Config) {
	result := decision.Result

	fmt.Fprintf(os.Stdout, "%s (%s)\n", name, position.Code)
	fmt.Fprintf(os.Stdout, "position: %s\n", position.ID)
	fmt.Fprintf(os.Stdout, "reference: %s × %d = %s\n",
		pricing.Display(position.ReferencePrice, cfg), position.Quantity, table.Reference.Amount.StringFixed(2))
	fmt.Fprintf(os.Stdout, "current: %s (%s%%)\n\n", table.Current.Price.StringFixed(2), result.ChangePct.StringFixed(2))

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Band\tLevel\tAmount\tProfit\tProfit%")
	for _, band := range pricing.Bands() {
		projection := table.Band(band)
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
			band,
			result.Levels.Level(band).String(),
			projection.Amount.StringFixed(2),
			projection.ProfitAmount.StringFixed(2),
			projection.ProfitPct.StringFixed(2),
		)
	}
	writer.Flush()

	fmt.Fprintln(os.Stdout)
	if result.InRange {
		fmt.Fprintf(os.Stdout, "price is inside %s\n", result.MatchedRange)
	} else {
		fmt.Fprintln(os.Stdout, "price is outside both action ranges")
	}
	if decision.ShouldAlert {
		fmt.Fprintf(os.Stdout, "alert: %s\n", decision.Reason)
	} else {
		fmt.Fprintln(os.Stdout, "alert: not needed")
	}
}

package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"
)

// Show prints recent fired alerts and the most recent price samples.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	store, closeStore, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	alerts, err := store.ListRecentAlerts(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if len(alerts) == 0 {
		fmt.Fprintln(os.Stdout, "no alerts fired yet")
	} else {
		writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(writer, "Triggered (UTC)\tPosition\tRange\tCurrent\tReference")
		for _, event := range alerts {
			fmt.Fprintf(writer, "%s\t%s\t%s\t%s\t%s\n",
				event.TriggeredAt.UTC().Format(time.RFC3339),
				event.PositionID,
				event.RangeType,
				event.CurrentPrice.StringFixed(2),
				event.ReferencePrice.StringFixed(2),
			)
		}
		writer.Flush()
	}

	samples, err := store.ListRecentSamples(ctx, opts.Limit)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return nil
	}

	fmt.Fprintln(os.Stdout)
	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tCode\tName\tPrice")
	for _, sample := range samples {
		fmt.Fprintf(writer, "%s\t%s\t%s\t%s\n",
			sample.RecordedAt.UTC().Format(time.RFC3339),
			sample.Code,
			sanitizeInline(sample.Name),
			sample.Price.StringFixed(2),
		)
	}
	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}

package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"etf-tracker/internal/app"
)

var (
	analyzeCode       string
	analyzePositionID string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Fetch the latest quote for a position and print the action bands",
	RunE: func(cmd *cobra.Command, args []string) error {
		if analyzeCode == "" && analyzePositionID == "" {
			return errors.New("either --code or --position is required")
		}

		opts := app.AnalyzeOptions{
			Code:       analyzeCode,
			PositionID: analyzePositionID,
		}

		return getApp().Analyze(cmd.Context(), opts)
	},
}

func init() {
	analyzeCmd.Flags().StringVar(&analyzeCode, "code", "", "ETF code, e.g. SZ159915")
	analyzeCmd.Flags().StringVar(&analyzePositionID, "position", "", "Position ID (UUID); overrides --code")
}

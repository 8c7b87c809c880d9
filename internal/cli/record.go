package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"etf-tracker/internal/app"
)

var (
	recordCode     string
	recordPrice    float64
	recordQuantity int64
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "记录一笔买入，作为后续分析的参考价",
	RunE: func(cmd *cobra.Command, args []string) error {
		if recordCode == "" {
			return errors.New("--code is required")
		}
		if recordPrice <= 0 || recordQuantity <= 0 {
			return errors.New("--price 与 --quantity 必须大于 0")
		}

		opts := app.RecordOptions{
			Code:     recordCode,
			Price:    decimal.NewFromFloat(recordPrice),
			Quantity: recordQuantity,
		}

		return getApp().Record(cmd.Context(), opts)
	},
}

func init() {
	recordCmd.Flags().StringVar(&recordCode, "code", "", "ETF code, e.g. SZ159915")
	recordCmd.Flags().Float64Var(&recordPrice, "price", 0, "Purchase price per share")
	recordCmd.Flags().Int64Var(&recordQuantity, "quantity", 0, "Number of shares purchased")
}

package cli

import (
	"errors"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"etf-tracker/internal/app"
)

var (
	simulateCode      string
	simulateCurrent   float64
	simulateReference float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "模拟一次价格触线并触发告警",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateCurrent <= 0 || simulateReference <= 0 {
			return errors.New("--current 与 --reference 必须大于 0")
		}

		code := simulateCode
		if code == "" {
			code = "TEST000000"
		}

		opts := app.SimulateOptions{
			Code:      code,
			Current:   decimal.NewFromFloat(simulateCurrent),
			Reference: decimal.NewFromFloat(simulateReference),
		}

		return getApp().SimulateAlert(cmd.Context(), opts)
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simulateCode, "code", "", "ETF code to show in the message")
	simulateCmd.Flags().Float64Var(&simulateCurrent, "current", 0, "当前价")
	simulateCmd.Flags().Float64Var(&simulateReference, "reference", 0, "参考价（买入价）")
}

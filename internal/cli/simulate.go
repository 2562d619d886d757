package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"stockpulse/internal/app"
)

var simulateOpts app.SimulateOptions

var simulateCmd = &cobra.Command{
	Use:   "simulate-alert",
	Short: "Evaluate a synthetic rule and quote and dispatch if it triggers",
	RunE: func(cmd *cobra.Command, args []string) error {
		if simulateOpts.Symbol == "" || simulateOpts.Price == "" {
			return errors.New("--symbol and --price are required")
		}
		opts := simulateOpts
		opts.Identity = email
		return getApp().SimulateAlert(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func init() {
	f := simulateCmd.Flags()
	f.StringVar(&simulateOpts.Symbol, "symbol", "", "Ticker symbol")
	f.StringVar(&simulateOpts.AlertType, "type", "above", "Alert type: above, below or range")
	f.StringVar(&simulateOpts.MinPrice, "min-price", "", "Rule minimum price")
	f.StringVar(&simulateOpts.MaxPrice, "max-price", "", "Rule maximum price")
	f.StringVar(&simulateOpts.MinVolume, "min-volume", "", "Rule minimum volume")
	f.StringVar(&simulateOpts.Price, "price", "", "Quoted price")
	f.StringVar(&simulateOpts.ChangePct, "change", "0", "Quoted daily change in percent")
	f.Int64Var(&simulateOpts.Volume, "volume", 0, "Quoted volume")
}

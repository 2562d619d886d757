package cli

import (
	"github.com/spf13/cobra"

	"stockpulse/internal/app"
)

var chartOpts app.ChartOptions

var chartCmd = &cobra.Command{
	Use:   "chart SYMBOL",
	Short: "Export daily price history as CSV and/or PNG chart",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := chartOpts
		opts.Symbol = args[0]
		// Thresholds are drawn only when an identity is known.
		if id, err := identity(); err == nil {
			opts.Identity = id
		}
		return getApp().Chart(cmd.Context(), opts)
	},
}

func init() {
	chartCmd.Flags().StringVar(&chartOpts.Range, "range", "", "History range such as 1mo, 6mo, 1y (defaults to config)")
	chartCmd.Flags().StringVar(&chartOpts.PNGPath, "png", "", "Path to write PNG chart")
	chartCmd.Flags().StringVar(&chartOpts.CSVPath, "csv", "", "Path to write CSV data")
	chartCmd.Flags().IntVar(&chartOpts.MaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}

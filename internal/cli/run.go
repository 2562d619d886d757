package cli

import (
	"github.com/spf13/cobra"

	"stockpulse/internal/app"
)

var runMaxCycles int

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the polling loop and the optional status API",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := identity()
		if err != nil {
			return err
		}
		return getApp().Run(cmd.Context(), app.RunOptions{Identity: id, MaxCycles: runMaxCycles})
	},
}

func init() {
	runCmd.Flags().IntVar(&runMaxCycles, "max-cycles", 0, "Stop after this many cycles (0 runs until interrupted)")
}

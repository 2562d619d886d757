package cli

import (
	"github.com/spf13/cobra"

	"stockpulse/internal/app"
)

var checkJSON bool

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run one cycle and print a card per rule",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := identity()
		if err != nil {
			return err
		}
		return getApp().Check(cmd.Context(), app.CheckOptions{Identity: id, JSON: checkJSON}, cmd.OutOrStdout())
	},
}

func init() {
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Print the snapshot as JSON")
}

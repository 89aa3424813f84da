package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset <learner-id>",
	Short: "Delete all stored data for a learner",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Store.DeleteLearner(cmd.Context(), args[0]); err != nil {
			return fmt.Errorf("delete learner: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted all data for learner %s\n", args[0])
		return nil
	},
}

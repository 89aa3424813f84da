package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var dueCmd = &cobra.Command{
	Use:   "due <learner-id>",
	Short: "List concepts due for review, most overdue first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		entries, err := a.Engine.DueReviews(cmd.Context(), args[0])
		if err != nil {
			return fmt.Errorf("due reviews: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "Nothing due for review.")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s/%s  last practiced %s  (%d repetitions, level %.2f)\n",
				e.SkillArea, e.ConceptID,
				e.LastPracticedAt.Format("2006-01-02 15:04"),
				e.RepetitionCount, e.PerformanceLevel)
		}
		return nil
	},
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats <learner-id>",
	Short: "Show a learner's performance profile and mastery states",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		learnerID := args[0]

		profile, err := a.Engine.Analyze(ctx, learnerID, 0)
		if err != nil {
			return fmt.Errorf("analyze: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Learner %s (last %d days)\n", learnerID, profile.WindowDays)
		fmt.Fprintf(out, "  activities:   %d\n", profile.TotalActivities)
		fmt.Fprintf(out, "  accuracy:     %.2f\n", profile.OverallAccuracy)
		fmt.Fprintf(out, "  consistency:  %.2f\n", profile.Consistency)
		fmt.Fprintf(out, "  trend:        %s\n", profile.Trend)
		for skill, acc := range profile.SkillAccuracy {
			fmt.Fprintf(out, "  skill %-20s %.2f\n", skill, acc)
		}

		states, err := a.Engine.MasteryStates(ctx, learnerID)
		if err != nil {
			return fmt.Errorf("mastery states: %w", err)
		}
		if len(states) > 0 {
			fmt.Fprintln(out, "Concepts:")
			for _, cm := range states {
				fmt.Fprintf(out, "  %s/%s: %s (avg %.2f, %d attempts)\n",
					cm.SkillArea, cm.ConceptID, cm.Status, cm.RollingAverage(), cm.AttemptCount)
			}
		}
		return nil
	},
}

package cmd

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/ui/report"
)

var progressCmd = &cobra.Command{
	Use:   "progress <track>",
	Short: "Show lesson, test and streak progress for a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		snap, err := a.Service.GetProgress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprint(cmd.OutOrStdout(), report.Progress(args[0], snap))
		return nil
	},
}

var progressTestCmd = &cobra.Command{
	Use:   "test <track> <test-id> <score>",
	Short: "Record a test score (0-100)",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		score, err := strconv.ParseFloat(args[2], 64)
		if err != nil {
			return fmt.Errorf("invalid score %q: %w", args[2], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		tier, err := a.Service.SubmitTest(cmd.Context(), args[0], args[1], score)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if tier == "" {
			fmt.Fprintf(out, "Recorded %s: %g. No star this time.\n", args[1], score)
			return nil
		}
		fmt.Fprintf(out, "Recorded %s: %g. Earned %s\n", args[1], score, report.Star(tier, 1))
		return nil
	},
}

var progressTimeCmd = &cobra.Command{
	Use:   "time <track> <lesson-id> <minutes>",
	Short: "Log study time against a lesson",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		minutes, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid minutes %q: %w", args[2], err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Service.LogTime(cmd.Context(), args[0], args[1], minutes); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged %d minutes on %s\n", minutes, args[1])
		return nil
	},
}

func init() {
	progressCmd.AddCommand(progressTestCmd)
	progressCmd.AddCommand(progressTimeCmd)
}

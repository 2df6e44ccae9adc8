package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/ui/report"
)

var achievementsCmd = &cobra.Command{
	Use:   "achievements <track>",
	Short: "Evaluate and list achievements for a track",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		recent, _ := cmd.Flags().GetInt("recent")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		all, newly, err := a.Service.GetAchievements(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, report.Achievements(args[0], all, newly))

		if recent <= 0 {
			return nil
		}
		unlocks, err := a.Recent(cmd.Context(), args[0], recent)
		if err != nil {
			return err
		}
		if len(unlocks) == 0 {
			return nil
		}
		fmt.Fprintln(out, "\nRecently unlocked:")
		for _, u := range unlocks {
			fmt.Fprintf(out, "  %s  %s\n", u.UnlockedAt.Local().Format(time.DateTime), u.Title)
		}
		return nil
	},
}

func init() {
	achievementsCmd.Flags().Int("recent", 0, "Also list the last N unlocks published to Redis")
}

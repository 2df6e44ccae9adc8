package cmd

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/trackwise/internal/app"
	"github.com/abhisek/trackwise/internal/calendar"
	"github.com/abhisek/trackwise/internal/schedule"
	"github.com/abhisek/trackwise/internal/track"
	"github.com/abhisek/trackwise/internal/ui/report"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Generate and follow a track's study schedule",
}

var scheduleGenerateCmd = &cobra.Command{
	Use:   "generate <track>",
	Short: "Pack a track's lessons into sessions",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		c, err := constraintsFromFlags(cmd, a)
		if err != nil {
			return err
		}

		s, err := a.Service.GenerateSchedule(cmd.Context(), args[0], c)
		var capErr *schedule.CapacityExceededError
		if errors.As(err, &capErr) {
			out := cmd.OutOrStdout()
			if capErr.Partial != nil {
				if err := printSchedule(cmd, a, args[0], capErr.Partial); err != nil {
					return err
				}
			}
			fmt.Fprintf(out, "\nNot placed before %s: %s\n", capErr.Deadline, strings.Join(capErr.Unplaced, ", "))
			fmt.Fprintln(out, "Nothing was saved. Add study days, raise the capacity or move the deadline.")
			return err
		}
		if err != nil {
			return err
		}
		return printSchedule(cmd, a, args[0], s)
	},
}

var scheduleShowCmd = &cobra.Command{
	Use:   "show <track>",
	Short: "Show the current schedule",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Service.GetSchedule(cmd.Context(), args[0])
		if errors.Is(err, track.ErrNoSchedule) {
			fmt.Fprintf(cmd.OutOrStdout(), "No schedule for %s. Run `trackwise schedule generate %s`.\n", args[0], args[0])
			return nil
		}
		if err != nil {
			return err
		}
		return printSchedule(cmd, a, args[0], s)
	},
}

var scheduleCompleteCmd = &cobra.Command{
	Use:   "complete <track> <session-or-lesson-id>",
	Short: "Mark a session or a single lesson as completed",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		itemID, err := resolveItemID(cmd, a, args[0], args[1])
		if err != nil {
			return err
		}
		s, err := a.Service.MarkSessionItemCompleted(cmd.Context(), args[0], itemID)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Completed %s (%d/%d lessons in finished sessions)\n", args[1], s.CompletedLessons, s.TotalLessons)

		_, newly, err := a.Service.GetAchievements(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, u := range newly {
			fmt.Fprintf(cmd.OutOrStdout(), "Achievement unlocked: %s\n", u.Title)
		}
		return nil
	},
}

var scheduleMoveCmd = &cobra.Command{
	Use:   "move <track> <lesson>",
	Short: "Move one lesson to a different date and time",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dateFlag, _ := cmd.Flags().GetString("date")
		startFlag, _ := cmd.Flags().GetString("start")
		endFlag, _ := cmd.Flags().GetString("end")

		date, err := calendar.ParseDate(dateFlag)
		if err != nil {
			return fmt.Errorf("invalid --date %q: %w", dateFlag, err)
		}
		start, err := calendar.ParseClock(startFlag)
		if err != nil {
			return fmt.Errorf("invalid --start: %w", err)
		}
		end, err := calendar.ParseClock(endFlag)
		if err != nil {
			return fmt.Errorf("invalid --end: %w", err)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		s, err := a.Service.RescheduleItem(cmd.Context(), args[0], args[1], date, start, end)
		if err != nil {
			return err
		}
		return printSchedule(cmd, a, args[0], s)
	},
}

func init() {
	scheduleGenerateCmd.Flags().String("start", "", "First study date, YYYY-MM-DD (default today)")
	scheduleGenerateCmd.Flags().String("days", "mon-fri", "Study weekdays, e.g. mon,wed,fri or mon-fri")
	scheduleGenerateCmd.Flags().Int("capacity", 60, "Study minutes per day")
	scheduleGenerateCmd.Flags().String("deadline", "", "Last allowed study date, YYYY-MM-DD")
	scheduleGenerateCmd.Flags().StringSlice("exclude", nil, "Dates to skip, YYYY-MM-DD (repeatable)")

	scheduleMoveCmd.Flags().String("date", "", "New date, YYYY-MM-DD")
	scheduleMoveCmd.Flags().String("start", "", "Start time, HH:MM")
	scheduleMoveCmd.Flags().String("end", "", "End time, HH:MM")
	scheduleMoveCmd.MarkFlagRequired("date")
	scheduleMoveCmd.MarkFlagRequired("start")
	scheduleMoveCmd.MarkFlagRequired("end")

	scheduleCmd.AddCommand(scheduleGenerateCmd)
	scheduleCmd.AddCommand(scheduleShowCmd)
	scheduleCmd.AddCommand(scheduleCompleteCmd)
	scheduleCmd.AddCommand(scheduleMoveCmd)
}

func constraintsFromFlags(cmd *cobra.Command, a *app.App) (schedule.Constraints, error) {
	var c schedule.Constraints

	days, _ := cmd.Flags().GetString("days")
	set, err := calendar.ParseWeekdays(days)
	if err != nil {
		return c, err
	}
	c.AllowedWeekdays = set
	c.DailyCapacityMinutes, _ = cmd.Flags().GetInt("capacity")

	start, _ := cmd.Flags().GetString("start")
	if start == "" {
		c.StartDate = calendar.Today(time.Now(), a.Config.Location)
	} else if c.StartDate, err = calendar.ParseDate(start); err != nil {
		return c, fmt.Errorf("invalid --start %q: %w", start, err)
	}

	if deadline, _ := cmd.Flags().GetString("deadline"); deadline != "" {
		d, err := calendar.ParseDate(deadline)
		if err != nil {
			return c, fmt.Errorf("invalid --deadline %q: %w", deadline, err)
		}
		c.Deadline = &d
	}

	excluded, _ := cmd.Flags().GetStringSlice("exclude")
	for _, s := range excluded {
		d, err := calendar.ParseDate(s)
		if err != nil {
			return c, fmt.Errorf("invalid --exclude %q: %w", s, err)
		}
		c.ExclusionDates = append(c.ExclusionDates, d)
	}
	return c, nil
}

// resolveItemID expands a session id prefix, as printed by `schedule show`,
// to the full id. Lesson ids and unknown ids are returned unchanged.
func resolveItemID(cmd *cobra.Command, a *app.App, trackID, id string) (string, error) {
	s, err := a.Service.GetSchedule(cmd.Context(), trackID)
	if err != nil {
		return "", err
	}
	if s.SessionByID(id) != nil || s.SessionFor(id) != nil {
		return id, nil
	}
	var match string
	for _, sess := range s.Sessions {
		if strings.HasPrefix(sess.ID, id) {
			if match != "" {
				return "", fmt.Errorf("session prefix %q is ambiguous", id)
			}
			match = sess.ID
		}
	}
	if match == "" {
		return id, nil
	}
	return match, nil
}

func printSchedule(cmd *cobra.Command, a *app.App, trackID string, s *schedule.Schedule) error {
	units, err := a.Service.Units(cmd.Context(), trackID)
	if err != nil {
		return err
	}
	titles := make(map[string]string, len(units))
	for _, u := range units {
		titles[u.ID] = u.Title
	}
	fmt.Fprint(cmd.OutOrStdout(), report.Schedule(s, titles))
	return nil
}

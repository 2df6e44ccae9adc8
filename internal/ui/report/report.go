// Package report renders schedules, progress and achievements for the
// terminal.
package report

import (
	"fmt"
	"strings"
	"time"

	"github.com/abhisek/trackwise/internal/achievement"
	"github.com/abhisek/trackwise/internal/calendar"
	"github.com/abhisek/trackwise/internal/lesson"
	"github.com/abhisek/trackwise/internal/progress"
	"github.com/abhisek/trackwise/internal/schedule"
	"github.com/abhisek/trackwise/internal/ui/theme"
)

// Width is the default report width in cells.
const Width = 64

// Schedule renders one line per session. titles maps lesson ids to
// display titles; ids without a title are shown as is.
func Schedule(s *schedule.Schedule, titles map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n",
		theme.Title.Render("Schedule "+s.TrackID),
		theme.Dim.Render(fmt.Sprintf("%s → %s", s.StartDate, s.EndDate)))
	b.WriteString(Bar{Label: "Completed", Fraction: ratio(s.CompletedLessons, s.TotalLessons), Width: Width}.String())
	b.WriteString("\n\n")

	for _, sess := range s.Sessions {
		status := theme.Pending.Render("○")
		switch {
		case sess.IsCompleted:
			status = theme.Done.Render("✓")
		case sess.IsMissed:
			status = theme.Missed.Render("✗")
		}
		fmt.Fprintf(&b, "%s %s %s  %s-%s  %s\n",
			status,
			theme.Heading.Render(sess.Date.String()),
			theme.Dim.Render(calendar.Weekday(sess.Date).String()[:3]),
			sess.StartTime, sess.EndTime,
			theme.Dim.Render("session "+shortID(sess.ID)))
		for _, id := range sess.LessonIDs {
			mark := theme.Dim.Render("·")
			if sess.LessonDone(id) {
				mark = theme.Done.Render("✓")
			}
			title := titles[id]
			if title == "" || title == id {
				title = id
			} else {
				title = fmt.Sprintf("%s %s", title, theme.Dim.Render("("+id+")"))
			}
			fmt.Fprintf(&b, "    %s %s\n", mark, theme.Body.Render(title))
		}
	}
	return b.String()
}

// Progress renders a progress snapshot.
func Progress(trackID string, snap progress.Snapshot) string {
	var b strings.Builder
	b.WriteString(theme.Title.Render("Progress "+trackID) + "\n")
	b.WriteString(Bar{Label: "Lessons", Fraction: snap.LessonPercent() / 100, Width: Width}.String())
	fmt.Fprintf(&b, "  %d/%d\n", snap.CompletedLessons, snap.TotalLessons)
	b.WriteString(Bar{Label: "Tests  ", Fraction: snap.TestPercent() / 100, Width: Width}.String())
	fmt.Fprintf(&b, "  %d/%d\n\n", snap.CompletedTests, snap.TotalTests)

	row := func(k, v string) {
		fmt.Fprintf(&b, "%s %s\n", theme.Dim.Render(fmt.Sprintf("%-16s", k)), theme.Body.Render(v))
	}
	row("Average score", fmt.Sprintf("%.1f", snap.AverageScore))
	row("Time spent", formatMinutes(snap.TotalTimeSpentMinutes))
	row("Current streak", days(snap.CurrentStreakDays))
	row("Longest streak", days(snap.LongestStreakDays))
	last := "never"
	if snap.LastActivityDate != nil {
		last = snap.LastActivityDate.String()
	}
	row("Last activity", last)
	fmt.Fprintf(&b, "%s %s %s %s\n",
		theme.Dim.Render(fmt.Sprintf("%-16s", "Stars")),
		Star(progress.TierGold, snap.StarsByTier.Gold),
		Star(progress.TierSilver, snap.StarsByTier.Silver),
		Star(progress.TierBronze, snap.StarsByTier.Bronze))
	return b.String()
}

// Star renders a star count in its tier colour.
func Star(tier progress.Tier, n int) string {
	style := theme.Body
	switch tier {
	case progress.TierGold:
		style = style.Foreground(theme.Gold)
	case progress.TierSilver:
		style = style.Foreground(theme.Silver)
	case progress.TierBronze:
		style = style.Foreground(theme.Bronze)
	}
	return style.Render(fmt.Sprintf("★ %d %s", n, tier))
}

// Achievements renders the achievement list, highlighting fresh unlocks.
func Achievements(trackID string, all, newly []achievement.Achievement) string {
	fresh := make(map[string]bool, len(newly))
	for _, a := range newly {
		fresh[a.ID] = true
	}

	var b strings.Builder
	b.WriteString(theme.Title.Render("Achievements "+trackID) + "\n")
	for _, a := range all {
		label := fmt.Sprintf("%-18s %s", a.Title, theme.Dim.Render(a.Category.DisplayName()))
		if a.IsCompleted {
			line := theme.Done.Render("✓ ") + label
			if a.CompletedAt != nil {
				line += theme.Dim.Render("  " + a.CompletedAt.Local().Format(time.DateOnly))
			}
			if fresh[a.ID] {
				line += "  " + theme.Pending.Render("NEW")
			}
			b.WriteString(line + "\n")
			continue
		}
		b.WriteString("  " + label + "\n")
		fmt.Fprintf(&b, "  %s %s\n", Bar{Fraction: a.Progress(), Width: Width - 2}.String(),
			theme.Dim.Render(fmt.Sprintf("%g/%g", a.CurrentValue, a.RequiredValue)))
	}
	return b.String()
}

// Tracks renders the track catalog.
func Tracks(tracks []lesson.Track) string {
	var b strings.Builder
	for _, t := range tracks {
		minutes := 0
		for _, u := range t.Units {
			minutes += u.EstimatedMinutes
		}
		fmt.Fprintf(&b, "%s  %s  %s\n",
			theme.Heading.Render(t.ID),
			theme.Body.Render(t.Title),
			theme.Dim.Render(fmt.Sprintf("%d units, %d tests, ~%s", len(t.Units), len(t.TestIDs()), formatMinutes(minutes))))
	}
	return b.String()
}

func ratio(a, b int) float64 {
	if b == 0 {
		return 0
	}
	return float64(a) / float64(b)
}

func days(n int) string {
	if n == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", n)
}

func formatMinutes(m int) string {
	if m < 60 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%dh%02dm", m/60, m%60)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

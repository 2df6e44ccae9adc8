package report

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/trackwise/internal/ui/theme"
)

// Bar is a horizontal progress bar with an optional label.
type Bar struct {
	Label    string
	Fraction float64 // 0..1
	Width    int     // total width including label and percentage
}

// String renders the bar.
func (b Bar) String() string {
	var out strings.Builder
	if b.Label != "" {
		out.WriteString(theme.Body.Render(b.Label))
		out.WriteString("  ")
	}

	const pctWidth = 6
	width := b.Width - lipgloss.Width(out.String()) - pctWidth
	if width < 4 {
		width = 4
	}
	frac := min(max(b.Fraction, 0), 1)
	filled := int(float64(width) * frac)

	out.WriteString(theme.BarFilled.Render(strings.Repeat(" ", filled)))
	out.WriteString(theme.BarEmpty.Render(strings.Repeat(" ", width-filled)))
	out.WriteString(theme.Dim.Render(fmt.Sprintf(" %4d%%", int(frac*100+0.5))))
	return out.String()
}

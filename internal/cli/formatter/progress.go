package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/verify"
)

const (
	filledBlock = "█"
	emptyBlock  = "░"
)

// RenderProgress renders a progress bar like [████░░░░] 45%.
// The bar is colored based on percentage: green >66%, yellow 33-66%, red <33%.
func RenderProgress(pct float64, width int) string {
	pct = min(max(pct, 0), 1)
	width = max(width, 2)

	filled := min(int(pct*float64(width)), width)
	bar := strings.Repeat(filledBlock, filled) + strings.Repeat(emptyBlock, width-filled)

	style := StyleGreen
	if pct < 0.33 {
		style = StyleRed
	} else if pct < 0.66 {
		style = StyleYellow
	}
	return fmt.Sprintf("[%s] %3.0f%%", style.Render(bar), pct*100)
}

// FormatProgress summarises how many message steps have their text.
func FormatProgress(p verify.Progress) string {
	if p.Total == 0 {
		return Dim("no message steps")
	}
	return fmt.Sprintf("%s %s", RenderProgress(p.Fraction(), 12), Dim(fmt.Sprintf("%d/%d messages written", p.Written, p.Total)))
}

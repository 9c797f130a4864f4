package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/charmbracelet/lipgloss"
)

// Gruvbox-inspired color palette.
var (
	ColorGreen  = lipgloss.Color("#8ec07c")
	ColorYellow = lipgloss.Color("#fabd2f")
	ColorRed    = lipgloss.Color("#fb4934")
	ColorBlue   = lipgloss.Color("#83a598")
	ColorPurple = lipgloss.Color("#d3869b")
	ColorDim    = lipgloss.Color("#928374")
	ColorFg     = lipgloss.Color("#ebdbb2")
	ColorHeader = lipgloss.Color("#fe8019")
)

// Predefined lipgloss styles.
var (
	StyleGreen      = lipgloss.NewStyle().Foreground(ColorGreen)
	StyleYellow     = lipgloss.NewStyle().Foreground(ColorYellow)
	StyleYellowBold = lipgloss.NewStyle().Foreground(ColorYellow).Bold(true)
	StyleRed        = lipgloss.NewStyle().Foreground(ColorRed)
	StyleRedBold    = lipgloss.NewStyle().Foreground(ColorRed).Bold(true)
	StyleBlue       = lipgloss.NewStyle().Foreground(ColorBlue)
	StylePurple     = lipgloss.NewStyle().Foreground(ColorPurple)
	StyleDim        = lipgloss.NewStyle().Foreground(ColorDim)
	StyleFg         = lipgloss.NewStyle().Foreground(ColorFg)
	StyleHeader     = lipgloss.NewStyle().Foreground(ColorHeader).Bold(true)
	StyleBold       = lipgloss.NewStyle().Foreground(ColorFg).Bold(true)
)

// RoleStyle returns the style a node of the given role is drawn with.
func RoleStyle(role domain.NodeRole) lipgloss.Style {
	switch role {
	case domain.RoleRoot:
		return StyleBold
	case domain.RoleSingleChild:
		return StyleFg
	case domain.RoleBranching:
		return StylePurple
	case domain.RolePending:
		return StyleYellow
	case domain.RoleTerminal:
		return StyleGreen
	case domain.RoleDelay:
		return StyleBlue
	default:
		return StyleDim
	}
}

// RoleGlyph returns the one-character marker drawn before a node.
func RoleGlyph(role domain.NodeRole) string {
	switch role {
	case domain.RoleRoot:
		return "◆"
	case domain.RoleSingleChild:
		return "●"
	case domain.RoleBranching:
		return "◇"
	case domain.RolePending:
		return "○"
	case domain.RoleTerminal:
		return "■"
	case domain.RoleDelay:
		return "⏱"
	default:
		return "?"
	}
}

// ChannelBadge renders a channel type as a purple label.
func ChannelBadge(c domain.ChannelType) string {
	switch c {
	case domain.ChannelLinkedIn:
		return StylePurple.Render("LinkedIn")
	case domain.ChannelSalesNavigator:
		return StylePurple.Render("Sales Navigator")
	case domain.ChannelRecruiter:
		return StylePurple.Render("Recruiter")
	default:
		return StyleDim.Render(string(c))
	}
}

// Header renders a section header with the orange header style and an underline.
func Header(text string) string {
	upper := strings.ToUpper(text)
	line := strings.Repeat("─", lipgloss.Width(upper))
	return fmt.Sprintf("%s\n%s", StyleHeader.Render(upper), StyleDim.Render(line))
}

// Dim renders text in the muted/dim color.
func Dim(text string) string {
	return StyleDim.Render(text)
}

// Bold renders text in bold with the foreground color.
func Bold(text string) string {
	return StyleBold.Render(text)
}

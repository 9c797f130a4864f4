package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// cadenceHuhTheme returns a huh theme matching the formatter palette.
func cadenceHuhTheme() *huh.Theme {
	t := huh.ThemeBase()

	// Focused state: orange accent
	t.Focused.Title = lipgloss.NewStyle().Foreground(formatter.ColorHeader).Bold(true)
	t.Focused.SelectSelector = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.SelectedOption = lipgloss.NewStyle().Foreground(formatter.ColorGreen)
	t.Focused.UnselectedOption = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Cursor = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorHeader)
	t.Focused.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorFg)
	t.Focused.TextInput.Placeholder = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.Description = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Focused.ErrorMessage = lipgloss.NewStyle().Foreground(formatter.ColorRed)

	// Blurred state: dimmed
	t.Blurred.Title = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Prompt = lipgloss.NewStyle().Foreground(formatter.ColorDim)
	t.Blurred.TextInput.Text = lipgloss.NewStyle().Foreground(formatter.ColorDim)

	return t
}

func validateRequired(what string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", what)
		}
		return nil
	}
}

// configureForm edits tpl in place for a text-bearing command. Subjects are
// only asked for InMail. Returns nil for commands without text.
func configureForm(cmd domain.Command, tpl *domain.TextTemplate) *huh.Form {
	var groups []*huh.Group
	switch cmd {
	case domain.CommandMessage:
		groups = append(groups,
			huh.NewGroup(
				huh.NewText().
					Title("Message").
					Description("Use {{first_name}} and {{company}} placeholders.").
					Value(&tpl.PrimaryText).
					Validate(validateRequired("message text")),
				huh.NewText().
					Title("Fallback message").
					Description("Sent when a placeholder cannot be filled.").
					Value(&tpl.FallbackText).
					Validate(validateRequired("fallback message text")),
			),
		)
	case domain.CommandInEmail:
		groups = append(groups,
			huh.NewGroup(
				huh.NewInput().Title("InMail subject").Value(&tpl.PrimarySubject).
					Validate(validateRequired("InMail subject")),
				huh.NewText().Title("InMail text").Value(&tpl.PrimaryText).
					Validate(validateRequired("InMail text")),
			),
			huh.NewGroup(
				huh.NewInput().Title("Fallback subject").Value(&tpl.FallbackSubject).
					Validate(validateRequired("fallback InMail subject")),
				huh.NewText().Title("Fallback text").Value(&tpl.FallbackText).
					Validate(validateRequired("fallback InMail text")),
			),
		)
	default:
		return nil
	}
	return huh.NewForm(groups...).WithTheme(cadenceHuhTheme()).WithShowHelp(false)
}

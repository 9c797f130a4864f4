package cli

import (
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

// App holds references to all service interfaces used by CLI commands.
type App struct {
	Drafts    service.DraftService
	Sequences service.SequenceService

	// Interactive reports whether forms and the editor may take over the
	// terminal. Nil means never.
	Interactive func() bool
	// RunForm runs a configuration form. Nil runs it on the terminal.
	RunForm func(f *huh.Form) error
}

func (a *App) interactive() bool {
	return a.Interactive != nil && a.Interactive()
}

func (a *App) runForm(f *huh.Form) error {
	if a.RunForm != nil {
		return a.RunForm(f)
	}
	return f.Run()
}

// NewRootCmd creates the top-level "cadence" command and registers all
// subcommands against the provided App.
func NewRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:           "cadence",
		Short:         "Build and save outreach automation sequences",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	// Read by main before the command tree is built.
	root.PersistentFlags().String("config", "", "Config file (default ~/.cadence/config.yaml)")

	root.AddCommand(
		newDraftCmd(app),
		newNodeCmd(app),
		newEditCmd(app),
		newSequenceCmd(app),
	)

	return root
}

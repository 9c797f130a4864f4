package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/spf13/cobra"
)

func newSequenceCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "sequence",
		Aliases: []string{"seq"},
		Short:   "Inspect saved sequences",
	}

	cmd.AddCommand(
		newSequenceListCmd(app),
		newSequenceShowCmd(app),
	)

	return cmd
}

func newSequenceListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved sequences, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			seqs, err := app.Sequences.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSequenceList(seqs))
			return nil
		},
	}
}

func newSequenceShowCmd(app *App) *cobra.Command {
	var format serializer.Format

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show the steps of a saved sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveSequenceID(ctx, app, args[0])
			if err != nil {
				return err
			}
			_, steps, err := app.Sequences.Get(ctx, id)
			if err != nil {
				return err
			}
			if format != "" {
				return serializer.Encode(cmd.OutOrStdout(), steps, format)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSteps(steps))
			return nil
		},
	}

	cmd.Flags().Var(formatFlag{&format}, "format", "Print the raw document (json|yaml)")

	return cmd
}

// resolveSequenceID resolves a full saved-sequence ID or a unique prefix.
func resolveSequenceID(ctx context.Context, app *App, input string) (string, error) {
	seqs, err := app.Sequences.List(ctx)
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range seqs {
		if s.ID == input {
			return s.ID, nil
		}
		if strings.HasPrefix(s.ID, input) {
			matches = append(matches, s.ID)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("sequence not found: %q", input)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("sequence ID prefix %q is ambiguous (%d matches)", input, len(matches))
	}
}

package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/editor"
	"github.com/alexanderramin/cadence/internal/highlight"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/alexanderramin/cadence/internal/verify"
	"github.com/spf13/cobra"
)

func newDraftCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "draft",
		Short: "Manage sequence drafts",
	}

	cmd.AddCommand(
		newDraftNewCmd(app),
		newDraftListCmd(app),
		newDraftShowCmd(app),
		newDraftRenameCmd(app),
		newDraftDeleteCmd(app),
		newDraftExportCmd(app),
		newDraftVerifyCmd(app),
		newDraftSaveCmd(app),
		newDraftBuiltinsCmd(),
	)

	return cmd
}

func newDraftNewCmd(app *App) *cobra.Command {
	var channel domain.ChannelType
	var from string

	cmd := &cobra.Command{
		Use:   "new [NAME]",
		Short: "Create a draft, empty or seeded from a builtin or a JSON/YAML file",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := service.CreateDraftInput{Channel: channel, From: from}
			if len(args) == 1 {
				in.Name = args[0]
			}
			od, err := app.Drafts.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created draft %s (%s)\n", formatter.Bold(od.Record.Name), od.Record.ID)
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDraftTree(od.Graph, nil))
			return nil
		},
	}

	cmd.Flags().Var(channelFlag{&channel}, "channel", "Channel (linkedin|sales_navigator|recruiter)")
	cmd.Flags().StringVar(&from, "from", "", "Builtin sequence name or path to a JSON/YAML sequence")

	return cmd
}

func newDraftListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List drafts",
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := app.Drafts.List(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDraftList(drafts))
			return nil
		},
	}
}

func newDraftShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a draft as a tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			od, err := app.Drafts.Open(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatter.FormatDraft(od.Record, od.Graph, nil))
			return nil
		},
	}
}

func newDraftRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename ID NAME",
		Short: "Rename a draft",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			od, err := app.Drafts.Open(ctx, id)
			if err != nil {
				return err
			}
			od.Graph.Name = args[1]
			if err := app.Drafts.Persist(ctx, od); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed draft to %s\n", formatter.Bold(args[1]))
			return nil
		},
	}
}

func newDraftDeleteCmd(app *App) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a draft and its saved sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			if !yes && app.interactive() {
				rec, err := app.Drafts.GetByID(ctx, id)
				if err != nil {
					return err
				}
				question := fmt.Sprintf("Delete draft %q and its saved sequence? [y/N]: ", rec.Name)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), question) {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancelled.")
					return nil
				}
			}
			if err := app.Drafts.Delete(ctx, id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted draft %s\n", id)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func newDraftExportCmd(app *App) *cobra.Command {
	format := serializer.FormatJSON
	var output string

	cmd := &cobra.Command{
		Use:   "export ID",
		Short: "Write a draft as an ordered JSON/YAML sequence document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			seq, err := app.Drafts.Export(ctx, id)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				if !cmd.Flags().Changed("format") {
					if f, err := serializer.FormatFromPath(output); err == nil {
						format = f
					}
				}
				file, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer file.Close()
				w = file
			}
			if err := serializer.Encode(w, seq, format); err != nil {
				return err
			}
			if output != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d steps to %s\n", seq.Len(), output)
			}
			return nil
		},
	}

	cmd.Flags().Var(formatFlag{&format}, "format", "Output format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")

	return cmd
}

func newDraftVerifyCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "verify ID",
		Short: "Check that every step is configured",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			od, err := app.Drafts.Open(ctx, id)
			if err != nil {
				return err
			}
			res, err := app.Drafts.Verify(ctx, id)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatVerifyResult(res, od.Graph))
			if !res.Valid {
				return fmt.Errorf("draft is not ready to save")
			}
			return nil
		},
	}
}

func newDraftSaveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "save ID",
		Short: "Verify a draft and store it as a saved sequence",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			od, err := app.Drafts.Open(ctx, id)
			if err != nil {
				return err
			}
			return saveDraft(ctx, cmd.OutOrStdout(), app, od)
		},
	}
}

// saveDraft runs the save protocol. When a node is rejected on an
// interactive terminal, its configuration form opens and the save is retried
// once the form completes. A node rejected twice in a row ends the loop.
func saveDraft(ctx context.Context, out io.Writer, app *App, od *service.OpenDraft) error {
	hl := highlight.New()
	var last string
	for {
		var requested string
		modal := editor.ModalOpenerFunc(func(nodeID string) { requested = nodeID })

		res, err := app.Drafts.Save(ctx, od, modal, hl)
		if err != nil {
			return err
		}
		if res.OK {
			fmt.Fprintf(out, "%s Saved %s (%d steps)\n", formatter.StyleGreen.Render("✔"), formatter.Bold(od.Graph.Name), res.Sequence.Len())
			return nil
		}

		fmt.Fprint(out, formatter.FormatDraftTree(od.Graph, hl.IsHighlighted))
		if res.NodeID == "" {
			fmt.Fprintln(out, formatter.StyleRed.Render("✖ "+res.Reason))
		} else {
			fmt.Fprint(out, formatter.FormatVerifyResult(verify.Result{NodeID: res.NodeID, Message: res.Reason}, od.Graph))
		}

		if requested == "" || requested == last || !app.interactive() {
			if requested != "" {
				fmt.Fprintln(out, formatter.Dim(fmt.Sprintf("Fix it with: cadence node configure %s --node %s", od.Record.ID, formatter.ShortID(requested))))
			}
			return fmt.Errorf("save rejected: %s", res.Reason)
		}
		configured, err := configureInteractively(ctx, app, od, requested)
		if err != nil {
			return err
		}
		if !configured {
			return fmt.Errorf("save rejected: %s", res.Reason)
		}
		last = requested
	}
}

func newDraftBuiltinsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "builtins",
		Short: "List the builtin starter sequences usable with --from",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := serializer.Builtins()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				seq, err := serializer.Builtin(name)
				if err != nil {
					return err
				}
				rows = append(rows, []string{name, seq.Name, formatter.ChannelBadge(seq.Channel), fmt.Sprintf("%d", seq.Len())})
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.RenderTable([]string{"BUILTIN", "NAME", "CHANNEL", "STEPS"}, rows))
			return nil
		},
	}
}

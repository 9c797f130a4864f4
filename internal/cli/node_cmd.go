package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

func newNodeCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Edit the steps of a draft",
		Long: `Edit the steps of a draft. Nodes are addressed with --node, which takes
"root", a step number as shown by "cadence draft show" (#3), or a node ID prefix.`,
	}

	cmd.AddCommand(
		newNodeAddCmd(app),
		newNodeDelayCmd(app),
		newNodeDelaySetCmd(app),
		newNodeEndCmd(app),
		newNodeReopenCmd(app),
		newNodeRemoveCmd(app),
		newNodeTruncateCmd(app),
		newNodeConfigureCmd(app),
		newNodeMoveCmd(app),
	)

	return cmd
}

// mutateNode resolves the draft and node, applies fn inside a transaction
// and prints the resulting tree.
func mutateNode(cmd *cobra.Command, app *App, draftArg, nodeArg string, fn func(d *sequence.Draft, nodeID string) (string, error)) error {
	ctx := cmd.Context()
	draftID, err := resolveDraftID(ctx, app, draftArg)
	if err != nil {
		return err
	}
	var msg string
	od, err := app.Drafts.Mutate(ctx, draftID, func(d *sequence.Draft) error {
		nodeID, err := resolveNodeID(d, nodeArg)
		if err != nil {
			return err
		}
		msg, err = fn(d, nodeID)
		return err
	})
	if err != nil {
		return err
	}
	if msg != "" {
		fmt.Fprintln(cmd.OutOrStdout(), msg)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDraftTree(od.Graph, nil))
	return nil
}

func newNodeAddCmd(app *App) *cobra.Command {
	var parent string
	var action domain.Command

	cmd := &cobra.Command{
		Use:   "add ID",
		Short: "Choose an action for a step and open the next step below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], parent, func(d *sequence.Draft, nodeID string) (string, error) {
				child, err := d.CreateChild(action, nodeID)
				if err != nil {
					return "", err
				}
				edge, _ := d.ParentOf(child)
				return fmt.Sprintf("Added step %s on %s of %s", formatter.ShortID(child), edge.SourcePort, formatter.ShortID(nodeID)), nil
			})
		},
	}

	cmd.Flags().StringVar(&parent, "parent", "", "Step that runs the action")
	cmd.Flags().Var(actionFlag{&action}, "action", "Action ("+joinCommands(domain.Actions)+")")
	_ = cmd.MarkFlagRequired("parent")
	_ = cmd.MarkFlagRequired("action")

	return cmd
}

func newNodeDelayCmd(app *App) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "delay ID",
		Short: "Turn an open step into a delay",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				if _, err := d.InsertDelay(nodeID); err != nil {
					return "", err
				}
				return fmt.Sprintf("Step %s is now a delay", formatter.ShortID(nodeID)), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Open step to turn into a delay")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeDelaySetCmd(app *App) *cobra.Command {
	var node string
	var count int
	unit := domain.UnitDays

	cmd := &cobra.Command{
		Use:   "delay-set ID",
		Short: "Set how long a delay step waits",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				if err := d.ConfigureDelay(nodeID, count, unit); err != nil {
					return "", err
				}
				return fmt.Sprintf("Delay %s: %s", formatter.ShortID(nodeID), domain.DelaySetting{Count: count, Unit: unit}), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Delay step")
	cmd.Flags().IntVar(&count, "count", 0, "Number of units to wait (0 for no wait)")
	cmd.Flags().Var(unitFlag{&unit}, "unit", "Unit (minutes|hours|days|weeks)")
	_ = cmd.MarkFlagRequired("node")
	_ = cmd.MarkFlagRequired("count")

	return cmd
}

func newNodeEndCmd(app *App) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "end ID",
		Short: "Mark an open step as the end of its branch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				return "", d.MarkTerminal(nodeID)
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Open step")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeReopenCmd(app *App) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "reopen ID",
		Short: "Turn an end marker back into an open step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				return "", d.UnmarkTerminal(nodeID)
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "End marker")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeRemoveCmd(app *App) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a step and everything below it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				removed, err := d.RemoveSubtree(nodeID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Removed %d step(s)", len(removed)), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Step to remove")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeTruncateCmd(app *App) *cobra.Command {
	var node string

	cmd := &cobra.Command{
		Use:   "truncate ID",
		Short: "Remove everything below a step, keeping the step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				removed, err := d.TruncateEdges(nodeID)
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("Removed %d step(s) below %s", len(removed), formatter.ShortID(nodeID)), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Step to truncate below")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeConfigureCmd(app *App) *cobra.Command {
	var node string
	var tpl domain.TextTemplate

	cmd := &cobra.Command{
		Use:   "configure ID",
		Short: "Set the message text of a step",
		Long: `Set the message text of a step. Without text flags on an interactive
terminal, a form opens for the step's command.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			textFlags := []string{"primary-subject", "primary", "fallback-subject", "fallback"}
			anySet := false
			for _, name := range textFlags {
				anySet = anySet || cmd.Flags().Changed(name)
			}

			if !anySet {
				if !app.interactive() {
					return fmt.Errorf("no text given: pass --primary/--fallback (and subjects for InMail)")
				}
				ctx := cmd.Context()
				draftID, err := resolveDraftID(ctx, app, args[0])
				if err != nil {
					return err
				}
				od, err := app.Drafts.Open(ctx, draftID)
				if err != nil {
					return err
				}
				nodeID, err := resolveNodeID(od.Graph, node)
				if err != nil {
					return err
				}
				if _, err := configureInteractively(ctx, app, od, nodeID); err != nil {
					return err
				}
				fmt.Fprint(cmd.OutOrStdout(), formatter.FormatDraftTree(od.Graph, nil))
				return nil
			}

			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				n, _ := d.Node(nodeID)
				if !n.Command.UsesTemplate() || n.Role == domain.RoleTerminal {
					return "", fmt.Errorf("step %s (%s) has no message text to configure", formatter.ShortID(nodeID), formatter.NodeTitle(n))
				}
				merged := domain.TextTemplate{}
				if n.Config.Template != nil {
					merged = *n.Config.Template
				}
				flags := cmd.Flags()
				if flags.Changed("primary-subject") {
					merged.PrimarySubject = tpl.PrimarySubject
				}
				if flags.Changed("primary") {
					merged.PrimaryText = tpl.PrimaryText
				}
				if flags.Changed("fallback-subject") {
					merged.FallbackSubject = tpl.FallbackSubject
				}
				if flags.Changed("fallback") {
					merged.FallbackText = tpl.FallbackText
				}
				if err := d.ApplyConfiguration(nodeID, domain.Configuration{Template: &merged}); err != nil {
					return "", err
				}
				return fmt.Sprintf("Configured %s", formatter.ShortID(nodeID)), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Step to configure")
	cmd.Flags().StringVar(&tpl.PrimarySubject, "primary-subject", "", "InMail subject")
	cmd.Flags().StringVar(&tpl.PrimaryText, "primary", "", "Message text")
	cmd.Flags().StringVar(&tpl.FallbackSubject, "fallback-subject", "", "Fallback InMail subject")
	cmd.Flags().StringVar(&tpl.FallbackText, "fallback", "", "Fallback message text")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

func newNodeMoveCmd(app *App) *cobra.Command {
	var node string
	var x, y float64

	cmd := &cobra.Command{
		Use:   "move ID",
		Short: "Store a canvas position for a step",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return mutateNode(cmd, app, args[0], node, func(d *sequence.Draft, nodeID string) (string, error) {
				if err := d.MoveNode(nodeID, domain.Position{X: x, Y: y}); err != nil {
					return "", err
				}
				return fmt.Sprintf("Moved %s to (%g, %g)", formatter.ShortID(nodeID), x, y), nil
			})
		},
	}

	cmd.Flags().StringVar(&node, "node", "", "Step to move")
	cmd.Flags().Float64Var(&x, "x", 0, "Canvas X")
	cmd.Flags().Float64Var(&y, "y", 0, "Canvas Y")
	_ = cmd.MarkFlagRequired("node")

	return cmd
}

// configureInteractively opens the form matching the node's role and stores
// the result. It reports false when the node has nothing to configure.
func configureInteractively(ctx context.Context, app *App, od *service.OpenDraft, nodeID string) (bool, error) {
	n, ok := od.Graph.Node(nodeID)
	if !ok {
		return false, fmt.Errorf("node not found: %q", nodeID)
	}

	if n.Role == domain.RoleDelay {
		answers := newDelayAnswers(n)
		if err := app.runForm(answers.form()); err != nil {
			return false, err
		}
		if err := answers.apply(od.Graph, nodeID); err != nil {
			return false, err
		}
		return true, app.Drafts.Persist(ctx, od)
	}

	tpl := domain.TextTemplate{}
	if n.Config.Template != nil {
		tpl = *n.Config.Template
	}
	form := configureForm(n.Command, &tpl)
	if form == nil {
		return false, nil
	}
	if err := app.runForm(form); err != nil {
		return false, err
	}
	if err := od.Graph.ApplyConfiguration(nodeID, domain.Configuration{Template: &tpl}); err != nil {
		return false, err
	}
	return true, app.Drafts.Persist(ctx, od)
}

// delayAnswers holds the delay form's fields between display and apply.
type delayAnswers struct {
	count string
	unit  domain.DelayUnit
}

// newDelayAnswers seeds the form from the node's current wait.
func newDelayAnswers(n domain.SequenceNode) *delayAnswers {
	a := &delayAnswers{count: "0", unit: domain.UnitDays}
	if n.Config.Delay != nil {
		a.count, a.unit = strconv.Itoa(n.Config.Delay.Count), n.Config.Delay.Unit
	}
	return a
}

func (a *delayAnswers) form() *huh.Form { return delayForm(&a.count, &a.unit) }

// apply stores the answers on nodeID. An empty count means no wait.
func (a *delayAnswers) apply(d *sequence.Draft, nodeID string) error {
	count := 0
	if s := strings.TrimSpace(a.count); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return fmt.Errorf("wait %q is not a number", s)
		}
		count = v
	}
	return d.ConfigureDelay(nodeID, count, a.unit)
}

// delayForm asks for a delay's count and unit.
func delayForm(count *string, unit *domain.DelayUnit) *huh.Form {
	options := make([]huh.Option[domain.DelayUnit], 0, len(domain.DelayUnits))
	for _, u := range domain.DelayUnits {
		options = append(options, huh.NewOption(string(u), u))
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Wait").Value(count).Validate(validateNonNegativeInt),
			huh.NewSelect[domain.DelayUnit]().Title("Unit").Options(options...).Value(unit),
		),
	).WithTheme(cadenceHuhTheme()).WithShowHelp(false)
}

// validateNonNegativeInt accepts empty or a non-negative integer.
func validateNonNegativeInt(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return fmt.Errorf("enter a number of 0 or more")
	}
	return nil
}

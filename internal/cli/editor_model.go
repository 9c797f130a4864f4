package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/cadence/internal/cli/formatter"
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/editor"
	"github.com/alexanderramin/cadence/internal/highlight"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/service"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
)

type editorMode int

const (
	modeBrowse editorMode = iota
	modePickAction
	modeForm
)

// highlightExpiredMsg asks for a redraw once a highlight may have lapsed.
type highlightExpiredMsg struct{}

// editorModel is a keyboard editor over one draft. Every change is applied
// to the engine first and persisted right after, so the stored draft always
// matches the screen.
type editorModel struct {
	ctx  context.Context
	app  *App
	od   *service.OpenDraft
	hl   *highlight.Channel
	keys editorKeyMap

	mode         editorMode
	cursor       int
	actionCursor int
	form         *huh.Form
	formApply    func() error
	formInit     tea.Cmd

	status    string
	statusErr bool
	saved     bool
	quitting  bool
	width     int
}

func newEditorModel(ctx context.Context, app *App, od *service.OpenDraft, clock highlight.Clock) *editorModel {
	return &editorModel{
		ctx:  ctx,
		app:  app,
		od:   od,
		hl:   highlight.New(highlight.WithClock(clock)),
		keys: defaultEditorKeys(),
	}
}

func newEditCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "edit ID",
		Short: "Edit a draft in the terminal editor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !app.interactive() {
				return fmt.Errorf("edit needs an interactive terminal; use the node commands instead")
			}
			ctx := cmd.Context()
			id, err := resolveDraftID(ctx, app, args[0])
			if err != nil {
				return err
			}
			od, err := app.Drafts.Open(ctx, id)
			if err != nil {
				return err
			}
			m := newEditorModel(ctx, app, od, highlight.RealClock{})
			_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx)).Run()
			return err
		},
	}
}

func (m *editorModel) Init() tea.Cmd { return nil }

func (m *editorModel) visits() []sequence.Visit { return m.od.Graph.Traverse() }

func (m *editorModel) selected() domain.SequenceNode {
	visits := m.visits()
	m.cursor = min(max(m.cursor, 0), len(visits)-1)
	return visits[m.cursor].Node
}

func (m *editorModel) setStatus(s string) { m.status, m.statusErr = s, false }
func (m *editorModel) setError(err error) { m.status, m.statusErr = err.Error(), true }

// apply runs fn against the selected node and persists the result.
func (m *editorModel) apply(done string, fn func(d *sequence.Draft, id string) error) {
	id := m.selected().ID
	if err := m.commit(func() error { return fn(m.od.Graph, id) }); err != nil {
		m.setError(err)
		return
	}
	m.setStatus(done)
}

// commit runs a mutation and persists it. When the write fails the draft is
// reloaded from storage so the screen never shows an unsaved graph.
func (m *editorModel) commit(mutate func() error) error {
	if err := mutate(); err != nil {
		return err
	}
	if err := m.app.Drafts.Persist(m.ctx, m.od); err != nil {
		if stored, rerr := m.app.Drafts.Open(m.ctx, m.od.Record.ID); rerr == nil {
			m.od = stored
		}
		m.cursor = min(m.cursor, len(m.visits())-1)
		return fmt.Errorf("saving draft: %w", err)
	}
	m.saved = false
	m.cursor = min(m.cursor, len(m.visits())-1)
	return nil
}

func (m *editorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case highlightExpiredMsg:
		return m, nil
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modePickAction:
		return m.updatePicker(msg)
	}

	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit
	case key.Matches(keyMsg, m.keys.Up):
		m.cursor = max(m.cursor-1, 0)
	case key.Matches(keyMsg, m.keys.Down):
		m.cursor = min(m.cursor+1, len(m.visits())-1)
	case key.Matches(keyMsg, m.keys.Add):
		m.add()
	case key.Matches(keyMsg, m.keys.Delay):
		m.apply("Inserted delay", func(d *sequence.Draft, id string) error {
			_, err := d.InsertDelay(id)
			return err
		})
	case key.Matches(keyMsg, m.keys.Longer):
		m.adjustDelay(1, "")
	case key.Matches(keyMsg, m.keys.Shorter):
		m.adjustDelay(-1, "")
	case key.Matches(keyMsg, m.keys.Unit):
		m.adjustDelay(0, nextUnit(m.selected()))
	case key.Matches(keyMsg, m.keys.End):
		m.apply("Marked end of branch", func(d *sequence.Draft, id string) error { return d.MarkTerminal(id) })
	case key.Matches(keyMsg, m.keys.Reopen):
		m.apply("Reopened step", func(d *sequence.Draft, id string) error { return d.UnmarkTerminal(id) })
	case key.Matches(keyMsg, m.keys.Remove):
		m.apply("Removed step and everything below it", func(d *sequence.Draft, id string) error {
			_, err := d.RemoveSubtree(id)
			return err
		})
	case key.Matches(keyMsg, m.keys.Truncate):
		m.apply("Truncated", func(d *sequence.Draft, id string) error {
			_, err := d.TruncateEdges(id)
			return err
		})
	case key.Matches(keyMsg, m.keys.Configure):
		return m, m.openConfigure(m.selected().ID)
	case key.Matches(keyMsg, m.keys.Save):
		return m, m.save()
	}
	return m, nil
}

// add opens the action picker on an open step, or adds the next branch
// below a step that already runs an action.
func (m *editorModel) add() {
	n := m.selected()
	if n.Role == domain.RolePending || (n.Role == domain.RoleRoot && n.Command == domain.CommandNone) {
		m.mode = modePickAction
		m.actionCursor = 0
		return
	}
	m.apply("Added branch", func(d *sequence.Draft, id string) error {
		_, err := d.CreateChild(n.Command, id)
		return err
	})
}

func (m *editorModel) updatePicker(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return m, nil
	}
	switch {
	case key.Matches(keyMsg, m.keys.Back):
		m.mode = modeBrowse
	case key.Matches(keyMsg, m.keys.Up):
		m.actionCursor = max(m.actionCursor-1, 0)
	case key.Matches(keyMsg, m.keys.Down):
		m.actionCursor = min(m.actionCursor+1, len(domain.Actions)-1)
	case key.Matches(keyMsg, m.keys.Select):
		action := domain.Actions[m.actionCursor]
		m.mode = modeBrowse
		m.apply("Added "+action.Label(), func(d *sequence.Draft, id string) error {
			_, err := d.CreateChild(action, id)
			return err
		})
	}
	return m, nil
}

func nextUnit(n domain.SequenceNode) domain.DelayUnit {
	if n.Config.Delay == nil {
		return domain.UnitDays
	}
	for i, u := range domain.DelayUnits {
		if u == n.Config.Delay.Unit {
			return domain.DelayUnits[(i+1)%len(domain.DelayUnits)]
		}
	}
	return domain.UnitDays
}

// adjustDelay changes the selected delay's count by step and, when unit is
// set, its unit.
func (m *editorModel) adjustDelay(step int, unit domain.DelayUnit) {
	n := m.selected()
	current := domain.DelaySetting{Unit: domain.UnitDays}
	if n.Config.Delay != nil {
		current = *n.Config.Delay
	}
	current.Count = max(current.Count+step, 0)
	if unit != "" {
		current.Unit = unit
	}
	m.apply("Delay: "+current.String(), func(d *sequence.Draft, id string) error {
		return d.ConfigureDelay(id, current.Count, current.Unit)
	})
}

// openConfigure switches to the form for nodeID. It is also the modal
// collaborator of save, so a rejected save lands on the offending node.
func (m *editorModel) openConfigure(nodeID string) tea.Cmd {
	n, ok := m.od.Graph.Node(nodeID)
	if !ok {
		return nil
	}
	for i, v := range m.visits() {
		if v.Node.ID == nodeID {
			m.cursor = i
		}
	}

	var form *huh.Form
	var apply func() error
	switch {
	case n.Role == domain.RoleDelay:
		answers := newDelayAnswers(n)
		form = answers.form()
		apply = func() error { return answers.apply(m.od.Graph, nodeID) }
	case n.Command.UsesTemplate() && n.Role != domain.RoleTerminal:
		tpl := domain.TextTemplate{}
		if n.Config.Template != nil {
			tpl = *n.Config.Template
		}
		form = configureForm(n.Command, &tpl)
		apply = func() error {
			return m.od.Graph.ApplyConfiguration(nodeID, domain.Configuration{Template: &tpl})
		}
	default:
		return nil
	}

	m.mode = modeForm
	m.form = form
	m.formApply = apply
	return form.Init()
}

func (m *editorModel) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if keyMsg, ok := msg.(tea.KeyMsg); ok && keyMsg.Type == tea.KeyEsc {
		m.closeForm()
		m.setStatus("Cancelled.")
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}
	if m.form.State == huh.StateCompleted {
		apply := m.formApply
		m.closeForm()
		if err := m.commit(apply); err != nil {
			m.setError(err)
			return m, cmd
		}
		m.setStatus("Configured")
	}
	return m, cmd
}

func (m *editorModel) closeForm() {
	m.mode = modeBrowse
	m.form = nil
	m.formApply = nil
}

func (m *editorModel) save() tea.Cmd {
	var opened tea.Cmd
	modal := editor.ModalOpenerFunc(func(nodeID string) { opened = m.openConfigure(nodeID) })

	res, err := m.app.Drafts.Save(m.ctx, m.od, modal, m.hl)
	if err != nil {
		m.setError(err)
		return nil
	}
	if res.OK {
		m.saved = true
		m.setStatus(fmt.Sprintf("Saved %d steps", res.Sequence.Len()))
		return nil
	}

	m.status, m.statusErr = res.Reason, true
	if res.NodeID != "" {
		for i, v := range m.visits() {
			if v.Node.ID == res.NodeID {
				m.cursor = i
			}
		}
	}
	cmds := []tea.Cmd{opened}
	if _, ok := m.hl.Deadline(); ok {
		wait := m.app.Drafts.Settings().HighlightFor
		if wait <= 0 {
			wait = editor.DefaultHighlightDuration
		}
		cmds = append(cmds, tea.Tick(wait, func(time.Time) tea.Msg { return highlightExpiredMsg{} }))
	}
	return tea.Batch(cmds...)
}

func (m *editorModel) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	d := m.od.Graph
	fmt.Fprintf(&b, "%s  %s\n\n", formatter.Bold(d.Name), formatter.ChannelBadge(d.Channel))

	switch m.mode {
	case modeForm:
		n := m.selected()
		fmt.Fprintf(&b, "%s\n\n", formatter.Header(fmt.Sprintf("Configure #%d ", m.cursor+1)+formatter.NodeTitle(n)))
		b.WriteString(m.form.View())
		b.WriteString("\n" + formatter.Dim("esc cancel") + "\n")
		return b.String()
	case modePickAction:
		b.WriteString(formatter.Header("Choose action") + "\n")
		for i, a := range domain.Actions {
			marker := "  "
			label := a.Label()
			if i == m.actionCursor {
				marker = formatter.StyleYellowBold.Render("› ")
				label = formatter.StyleYellowBold.Render(label)
			}
			b.WriteString(marker + label + "\n")
		}
		b.WriteString("\n" + formatter.Dim("enter select · esc back") + "\n")
		return b.String()
	}

	lines := strings.Split(strings.TrimRight(formatter.FormatDraftTree(d, m.hl.IsHighlighted), "\n"), "\n")
	for i, line := range lines {
		if i == m.cursor {
			b.WriteString(formatter.StyleYellowBold.Render("› ") + line + "\n")
		} else {
			b.WriteString("  " + line + "\n")
		}
	}

	b.WriteString("\n")
	if m.status != "" {
		if m.statusErr {
			b.WriteString(formatter.StyleRed.Render(m.status) + "\n")
		} else {
			b.WriteString(formatter.StyleGreen.Render(m.status) + "\n")
		}
	}
	b.WriteString(renderHelp(m.keys.ShortHelp()) + "\n")
	return b.String()
}

func renderHelp(bindings []key.Binding) string {
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return formatter.Dim(strings.Join(parts, " · "))
}

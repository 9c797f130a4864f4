package formatter

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/verify"
)

// NodeTitle is the one-line description of a node.
func NodeTitle(n domain.SequenceNode) string {
	switch n.Role {
	case domain.RoleDelay:
		if n.Config.Delay == nil {
			return "Delay (not set)"
		}
		return "Delay: " + n.Config.Delay.String()
	case domain.RoleTerminal:
		return domain.CommandEnd.Label()
	case domain.RolePending:
		return domain.CommandNone.Label()
	}
	if n.Role == domain.RoleRoot && n.Command == domain.CommandNone {
		return "Start (choose first action)"
	}
	return n.Command.Label()
}

func portTag(p domain.Port) string {
	switch p {
	case domain.PortLeft:
		return Dim("L ")
	case domain.PortRight:
		return Dim("R ")
	}
	return ""
}

// nodeDetail summarizes the payload of a text-bearing node.
func nodeDetail(n domain.SequenceNode) string {
	t := n.Config.Template
	if !n.Command.UsesTemplate() || n.Role == domain.RoleTerminal {
		return ""
	}
	if t == nil || strings.TrimSpace(t.PrimaryText) == "" {
		return "no text"
	}
	return Truncate(t.PrimaryText, 32)
}

// FormatDraftTree draws the draft in traversal order, numbering steps from 1.
// isHighlighted may be nil.
func FormatDraftTree(d *sequence.Draft, isHighlighted func(id string) bool) string {
	visits := d.Traverse()

	last := make(map[string]bool, len(visits))
	for _, v := range visits {
		children := d.ChildrenOf(v.Node.ID)
		if len(children) > 0 {
			last[children[len(children)-1].TargetID] = true
		}
	}

	// guides[depth] tracks whether the ancestor at that depth has later siblings.
	var guides []bool
	items := make([]TreeItem, 0, len(visits))
	for i, v := range visits {
		n := v.Node
		isLast := last[n.ID]
		if v.Depth > 0 {
			guides = append(guides[:v.Depth-1], !isLast)
		}
		item := TreeItem{
			Title:  portTag(v.Port) + RoleStyle(n.Role).Render(RoleGlyph(n.Role)+" "+NodeTitle(n)),
			Seq:    i + 1,
			Level:  v.Depth,
			IsLast: isLast,
			Detail: ShortID(n.ID),
		}
		if v.Depth > 1 {
			item.Guides = append([]bool(nil), guides[:v.Depth-1]...)
		}
		if detail := nodeDetail(n); detail != "" {
			item.Detail = detail + " · " + item.Detail
		}
		if isHighlighted != nil && isHighlighted(n.ID) {
			item.Highlighted = true
		}
		items = append(items, item)
	}
	return RenderTree(items)
}

// FormatDraft renders a draft with its header inside a box.
func FormatDraft(rec *domain.DraftRecord, d *sequence.Draft, isHighlighted func(id string) bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %s\n", Bold(d.Name), ChannelBadge(d.Channel))
	fmt.Fprintf(&b, "%s\n", Dim(fmt.Sprintf("id %s · %d steps · updated %s", rec.ID, d.Len(), RelativeDate(rec.UpdatedAt))))
	if rec.Source != "" {
		fmt.Fprintf(&b, "%s\n", Dim("seeded from "+rec.Source))
	}
	fmt.Fprintf(&b, "%s\n\n", FormatProgress(verify.Measure(d)))
	b.WriteString(strings.TrimRight(FormatDraftTree(d, isHighlighted), "\n"))
	return RenderBox("Draft", b.String())
}

func FormatDraftList(drafts []*domain.DraftRecord) string {
	if len(drafts) == 0 {
		return Dim("No drafts yet. Create one with: cadence draft new NAME") + "\n"
	}
	rows := make([][]string, 0, len(drafts))
	for _, d := range drafts {
		source := d.Source
		if source == "" {
			source = "--"
		}
		rows = append(rows, []string{
			TruncID(d.ID),
			d.Name,
			ChannelBadge(d.Channel),
			Dim(source),
			RelativeDate(d.UpdatedAt),
		})
	}
	return RenderTable([]string{"ID", "NAME", "CHANNEL", "SOURCE", "UPDATED"}, rows)
}

func FormatSequenceList(seqs []*domain.SavedSequence) string {
	if len(seqs) == 0 {
		return Dim("No saved sequences.") + "\n"
	}
	rows := make([][]string, 0, len(seqs))
	for _, s := range seqs {
		rows = append(rows, []string{
			TruncID(s.ID),
			s.Name,
			ChannelBadge(s.Channel),
			fmt.Sprintf("%d", s.StepCount),
			TruncID(s.DraftID),
			RelativeDate(s.SavedAt),
		})
	}
	return RenderTable([]string{"ID", "NAME", "CHANNEL", "STEPS", "DRAFT", "SAVED"}, rows)
}

// FormatSteps lists a flattened sequence one step per row.
func FormatSteps(seq *serializer.OrderedSequence) string {
	rows := make([][]string, 0, seq.Len())
	for _, st := range seq.Steps {
		parent := st.ParentRef
		if parent == "" {
			parent = "--"
		}
		detail := ""
		switch {
		case st.Delay != nil:
			detail = domain.DelaySetting{Count: st.Delay.Count, Unit: st.Delay.Unit}.String()
		case st.Template != nil:
			detail = Truncate(st.Template.PrimaryText, 40)
		}
		rows = append(rows, []string{
			st.Ref,
			Dim(parent),
			Dim(string(st.Port)),
			RoleStyle(st.Role).Render(string(st.Role)),
			string(st.Command),
			detail,
		})
	}
	title := fmt.Sprintf("%s  %s", Bold(seq.Name), ChannelBadge(seq.Channel))
	return title + "\n\n" + RenderTable([]string{"REF", "PARENT", "PORT", "ROLE", "COMMAND", "DETAIL"}, rows)
}

// FormatVerifyResult renders a verification outcome. The offending node is
// named by its short id and title when it is still in the draft.
func FormatVerifyResult(res verify.Result, d *sequence.Draft) string {
	if res.Valid {
		return StyleGreen.Render("✔ Ready to save") + "\n"
	}
	where := ShortID(res.NodeID)
	if n, ok := d.Node(res.NodeID); ok {
		where = fmt.Sprintf("%s (%s)", NodeTitle(n), ShortID(n.ID))
	}
	return StyleRed.Render("✖ "+res.Message) + Dim(" at "+where) + "\n"
}

// Truncate shortens s to n visible runes, adding an ellipsis when cut.
func Truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

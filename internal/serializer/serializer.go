package serializer

import (
	"fmt"
	"strconv"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
)

// Flatten lists every node of the draft exactly once, in the traversal
// order shared with the validator. Refs are positional ("s1", "s2", ...),
// so two structurally equal drafts flatten to equal documents whatever
// their node ids.
func Flatten(d *sequence.Draft) *OrderedSequence {
	visits := d.Traverse()
	out := &OrderedSequence{
		Name:    d.Name,
		Channel: d.Channel,
		Steps:   make([]Step, 0, len(visits)),
	}
	refs := make(map[string]string, len(visits))
	for i, v := range visits {
		ref := "s" + strconv.Itoa(i+1)
		refs[v.Node.ID] = ref
		st := Step{
			Ref:     ref,
			Port:    v.Port,
			Role:    v.Node.Role,
			Command: v.Node.Command,
		}
		if v.ParentID != "" {
			st.ParentRef = refs[v.ParentID]
		}
		cfg := v.Node.Config.Clone()
		st.Template = cfg.Template
		if cfg.Delay != nil {
			st.Delay = &Delay{Count: cfg.Delay.Count, Unit: cfg.Delay.Unit}
		}
		if !v.Node.Position.IsZero() {
			pos := v.Node.Position
			st.Position = &pos
		}
		out.Steps = append(out.Steps, st)
	}
	return out
}

// Hydrate rebuilds a draft from a document with freshly allocated ids. A nil
// document yields a new draft holding only ROOT.
func Hydrate(seq *OrderedSequence, opts ...sequence.Option) (*sequence.Draft, error) {
	if seq == nil {
		return sequence.New("", domain.ChannelLinkedIn, opts...), nil
	}
	if errs := ValidateOrdered(seq); len(errs) > 0 {
		return nil, &InvalidError{Errs: errs}
	}

	newID := sequence.Allocator(opts...)
	ids := make(map[string]string, len(seq.Steps))
	nodes := make([]domain.SequenceNode, 0, len(seq.Steps))
	edges := make([]domain.SequenceEdge, 0, len(seq.Steps))
	for _, st := range seq.Steps {
		id := newID()
		ids[st.Ref] = id
		n := domain.SequenceNode{
			ID:      id,
			Role:    st.Role,
			Command: st.Command,
		}
		if st.Template != nil {
			t := *st.Template
			n.Config.Template = &t
		}
		if st.Delay != nil {
			n.Config.Delay = &domain.DelaySetting{Count: st.Delay.Count, Unit: st.Delay.Unit}
		}
		if st.Position != nil {
			n.Position = *st.Position
		}
		nodes = append(nodes, n)
		if st.ParentRef != "" {
			edges = append(edges, domain.SequenceEdge{
				ID:         newID(),
				SourceID:   ids[st.ParentRef],
				SourcePort: st.Port,
				TargetID:   id,
				TargetPort: domain.PortTop,
			})
		}
	}

	d, err := sequence.Restore(seq.Name, seq.Channel, nodes, edges, opts...)
	if err != nil {
		return nil, fmt.Errorf("rebuilding draft: %w", err)
	}
	return d, nil
}

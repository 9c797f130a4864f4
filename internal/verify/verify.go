// Package verify checks that a draft is complete enough to be executed:
// every text-bearing step carries its message text.
package verify

import (
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
)

// Result is the outcome of Verify. When Valid is false, NodeID names the
// first offending node in traversal order.
type Result struct {
	Valid   bool
	NodeID  string
	Message string
}

// Options toggles the optional rules.
type Options struct {
	// RequireTerminatedBranches rejects every branch that does not end on an
	// END marker: an open PENDING leaf as well as an action or delay with
	// nothing below it.
	RequireTerminatedBranches bool
}

// rule inspects one node and returns a non-empty message when it fails.
type rule func(n domain.SequenceNode) string

var rules = map[domain.Command]rule{
	domain.CommandMessage: func(n domain.SequenceNode) string {
		t := n.Config.Template
		switch {
		case t == nil || blank(t.PrimaryText):
			return "message text is required"
		case blank(t.FallbackText):
			return "fallback message text is required"
		}
		return ""
	},
	domain.CommandInEmail: func(n domain.SequenceNode) string {
		t := n.Config.Template
		switch {
		case t == nil || blank(t.PrimarySubject):
			return "InMail subject is required"
		case blank(t.PrimaryText):
			return "InMail text is required"
		case blank(t.FallbackSubject):
			return "fallback InMail subject is required"
		case blank(t.FallbackText):
			return "fallback InMail text is required"
		}
		return ""
	},
}

func blank(s string) bool { return strings.TrimSpace(s) == "" }

// Verify walks the draft depth-first from ROOT (BOTTOM, LEFT, RIGHT) and
// reports the first node that fails its command's rule. A draft whose ROOT
// has no action is an empty sequence and is rejected on ROOT.
func Verify(d *sequence.Draft, opts Options) Result {
	root := d.Root()
	if root.Command == domain.CommandNone {
		return Result{NodeID: root.ID, Message: "add at least one action before saving"}
	}
	for _, v := range d.Traverse() {
		if msg := check(v.Node, opts); msg != "" {
			return Result{NodeID: v.Node.ID, Message: msg}
		}
		if opts.RequireTerminatedBranches && v.Node.Role != domain.RoleTerminal && v.Node.Role != domain.RolePending &&
			len(d.ChildrenOf(v.Node.ID)) == 0 {
			return Result{NodeID: v.Node.ID, Message: "branch ends without an end marker"}
		}
	}
	return Result{Valid: true}
}

func check(n domain.SequenceNode, opts Options) string {
	switch n.Role {
	case domain.RolePending:
		if opts.RequireTerminatedBranches {
			return "branch has no action or end marker"
		}
		return ""
	case domain.RoleDelay:
		if n.Config.Delay == nil {
			return "delay is not configured"
		}
		return ""
	case domain.RoleTerminal:
		return ""
	case domain.RoleRoot, domain.RoleSingleChild, domain.RoleBranching:
		if r, ok := rules[n.Command]; ok {
			return r(n)
		}
		return ""
	}
	return ""
}

// Progress counts the text-bearing steps of a draft and how many of them
// already pass their rule.
type Progress struct {
	Written int
	Total   int
}

// Fraction is Written/Total, or 1 for a draft with nothing to write.
func (p Progress) Fraction() float64 {
	if p.Total == 0 {
		return 1
	}
	return float64(p.Written) / float64(p.Total)
}

// Measure walks the draft in traversal order and counts the MESSAGE and
// INEMAIL steps that carry an action, skipping open, delay and END steps.
func Measure(d *sequence.Draft) Progress {
	var p Progress
	for _, v := range d.Traverse() {
		n := v.Node
		r, ok := rules[n.Command]
		if !ok || n.Role == domain.RoleTerminal || n.Role == domain.RolePending || n.Role == domain.RoleDelay {
			continue
		}
		p.Total++
		if r(n) == "" {
			p.Written++
		}
	}
	return p
}

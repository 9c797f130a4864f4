package sequence

import (
	"github.com/alexanderramin/cadence/internal/domain"
)

// atomically runs fn against a working copy of the graph and only publishes
// it when fn succeeds (and, in checked mode, the result is consistent).
func (d *Draft) atomically(op string, fn func(g *graph) error) error {
	work := d.g.clone()
	if err := fn(work); err != nil {
		return err
	}
	if d.checkInvariants {
		if err := work.check(); err != nil {
			return bug(op, "", ErrInvariant, "%v", err)
		}
	}
	d.g = work
	return nil
}

func target(g *graph, op, id string) (*domain.SequenceNode, error) {
	if id == "" {
		return nil, bug(op, "", ErrNoTarget, "an explicit node id is required")
	}
	n, ok := g.findNode(id)
	if !ok {
		return nil, bug(op, id, ErrNodeNotFound, "")
	}
	return n, nil
}

// removeBelow deletes every subtree hanging off id's outgoing edges and
// returns the deleted node ids.
func removeBelow(g *graph, id string) []string {
	var removed []string
	for _, e := range g.childrenOf(id) {
		sub := g.descendants(e.TargetID)
		for _, nid := range sub {
			g.deleteNode(nid)
		}
		removed = append(removed, sub...)
	}
	return removed
}

// CreateChild sets parentID's command to action, promotes it per the policy
// and attaches a new PENDING child on the first free port. It returns the
// new child's id.
//
// Accepted parents: a PENDING node, ROOT without an action, or a promoted
// node already running action that still has a free slot.
func (d *Draft) CreateChild(action domain.Command, parentID string) (string, error) {
	const op = "createChild"
	var childID string
	err := d.atomically(op, func(g *graph) error {
		parent, err := target(g, op, parentID)
		if err != nil {
			return err
		}
		if !action.IsAction() {
			return bug(op, parentID, ErrInvalidArgument, "%q is not a selectable action", action)
		}

		switch parent.Role {
		case domain.RolePending:
			removeBelow(g, parent.ID)
			promote(parent, action, d.policy.RoleFor(action))
		case domain.RoleRoot:
			if parent.Command == domain.CommandNone {
				removeBelow(g, parent.ID)
				promote(parent, action, domain.RoleRoot)
			} else if parent.Command != action {
				return bug(op, parentID, ErrWrongRole, "root already runs %s", parent.Command)
			}
		case domain.RoleSingleChild, domain.RoleBranching:
			if parent.Command != action {
				return bug(op, parentID, ErrWrongRole, "%s node already runs %s", parent.Role, parent.Command)
			}
		case domain.RoleTerminal, domain.RoleDelay:
			return bug(op, parentID, ErrWrongRole, "%s node cannot take an action", parent.Role)
		default:
			return bug(op, parentID, ErrInvariant, "unknown role %q", parent.Role)
		}

		port, ok := g.freeSlot(parent, d.policy)
		if !ok {
			return bug(op, parentID, ErrSlotsFull, "%s node has no free port", parent.Role)
		}
		childID = d.allocate()
		return attach(g, parent.ID, port, childID, d.allocate())
	})
	if err != nil {
		return "", err
	}
	return childID, nil
}

func promote(n *domain.SequenceNode, action domain.Command, role domain.NodeRole) {
	n.Command = action
	n.Role = role
	n.Config.Delay = nil
	if !action.UsesTemplate() {
		n.Config.Template = nil
	}
}

func attach(g *graph, parentID string, port domain.Port, childID, edgeID string) error {
	child := domain.SequenceNode{
		ID:      childID,
		Role:    domain.RolePending,
		Command: domain.CommandNone,
	}
	if err := g.insertNode(child); err != nil {
		return bug("attach", childID, ErrInvariant, "%v", err)
	}
	edge := domain.SequenceEdge{
		ID:         edgeID,
		SourceID:   parentID,
		SourcePort: port,
		TargetID:   childID,
		TargetPort: domain.PortTop,
	}
	if err := g.insertEdge(edge); err != nil {
		return bug("attach", parentID, ErrInvariant, "%v", err)
	}
	return nil
}

// RemoveSubtree deletes nodeID, everything below it and every edge touching
// that set. A parent left without children is demoted: it becomes PENDING
// with no action (ROOT keeps its role and only loses its action) and keeps
// its message text so re-choosing the action restores it.
func (d *Draft) RemoveSubtree(nodeID string) ([]string, error) {
	const op = "removeSubtree"
	var removed []string
	err := d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		if n.Role == domain.RoleRoot {
			return bug(op, nodeID, ErrRootImmutable, "")
		}
		parentEdge, ok := g.parentOf(nodeID)
		if !ok {
			return bug(op, nodeID, ErrInvariant, "non-root node without parent")
		}
		parentID := parentEdge.SourceID

		removed = g.descendants(nodeID)
		for _, id := range removed {
			g.deleteNode(id)
		}
		if len(g.childrenOf(parentID)) == 0 {
			demote(g.nodes[parentID])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

func demote(n *domain.SequenceNode) {
	n.Command = domain.CommandNone
	n.Config.Delay = nil
	if n.Role != domain.RoleRoot {
		n.Role = domain.RolePending
	}
}

// TruncateEdges detaches every child of nodeID. The detached subtrees are
// deleted in the same step so no orphan is ever observable; the node keeps
// its role and command. A DELAY node always passes through to one step, so
// it gets a fresh PENDING child on BOTTOM. It returns the deleted node ids.
func (d *Draft) TruncateEdges(nodeID string) ([]string, error) {
	const op = "truncateEdges"
	var removed []string
	err := d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		removed = removeBelow(g, nodeID)
		if n.Role == domain.RoleDelay {
			return attach(g, nodeID, domain.PortBottom, d.allocate(), d.allocate())
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// MarkTerminal closes a PENDING branch with an END marker. It is a no-op on
// a node that is already TERMINAL.
func (d *Draft) MarkTerminal(nodeID string) error {
	const op = "markTerminal"
	return d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		switch n.Role {
		case domain.RoleTerminal:
			return nil
		case domain.RolePending:
			n.Role = domain.RoleTerminal
			n.Command = domain.CommandEnd
			return nil
		default:
			return bug(op, nodeID, ErrWrongRole, "want pending, got %s", n.Role)
		}
	})
}

// UnmarkTerminal reverses MarkTerminal.
func (d *Draft) UnmarkTerminal(nodeID string) error {
	const op = "unmarkTerminal"
	return d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		if n.Role != domain.RoleTerminal {
			return bug(op, nodeID, ErrWrongRole, "want terminal, got %s", n.Role)
		}
		n.Role = domain.RolePending
		n.Command = domain.CommandNone
		return nil
	})
}

// InsertDelay turns a PENDING node into a DELAY step with no wait and hangs
// a new PENDING node below it. It returns the new child's id.
func (d *Draft) InsertDelay(nodeID string) (string, error) {
	const op = "insertDelay"
	var childID string
	err := d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		if n.Role != domain.RolePending {
			return bug(op, nodeID, ErrWrongRole, "want pending, got %s", n.Role)
		}
		removeBelow(g, nodeID)
		n.Role = domain.RoleDelay
		n.Command = domain.CommandNone
		n.Config = domain.Configuration{Delay: &domain.DelaySetting{Count: 0, Unit: domain.UnitDays}}
		childID = d.allocate()
		return attach(g, nodeID, domain.PortBottom, childID, d.allocate())
	})
	if err != nil {
		return "", err
	}
	return childID, nil
}

// ConfigureDelay replaces the wait of a DELAY node. A count of zero means no
// wait.
func (d *Draft) ConfigureDelay(nodeID string, count int, unit domain.DelayUnit) error {
	const op = "configureDelay"
	return d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		if n.Role != domain.RoleDelay {
			return bug(op, nodeID, ErrWrongRole, "want delay, got %s", n.Role)
		}
		if count < 0 {
			return bug(op, nodeID, ErrInvalidArgument, "negative count %d", count)
		}
		if !unit.Valid() {
			return bug(op, nodeID, ErrInvalidArgument, "unknown unit %q", unit)
		}
		n.Config = domain.Configuration{Delay: &domain.DelaySetting{Count: count, Unit: unit}}
		return nil
	})
}

// ApplyConfiguration stores the result of the configuration modal. Only the
// message template is accepted; delays go through ConfigureDelay and END
// markers carry nothing.
func (d *Draft) ApplyConfiguration(nodeID string, cfg domain.Configuration) error {
	const op = "applyConfiguration"
	return d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		switch n.Role {
		case domain.RoleDelay, domain.RoleTerminal:
			return bug(op, nodeID, ErrWrongRole, "%s node takes no template", n.Role)
		}
		if cfg.Delay != nil {
			return bug(op, nodeID, ErrInvalidArgument, "delay settings go through configureDelay")
		}
		n.Config = cfg.Clone()
		return nil
	})
}

// MoveNode updates only the canvas hint of a node.
func (d *Draft) MoveNode(nodeID string, pos domain.Position) error {
	const op = "moveNode"
	return d.atomically(op, func(g *graph) error {
		n, err := target(g, op, nodeID)
		if err != nil {
			return err
		}
		n.Position = pos
		return nil
	})
}

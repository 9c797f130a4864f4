package sequence

import (
	"fmt"
	"sort"

	"github.com/alexanderramin/cadence/internal/domain"
)

// Policy decides which role a node is promoted to when an action is chosen
// for it. Actions absent from the branching table promote to SINGLE_CHILD.
type Policy struct {
	branching map[domain.Command]bool
}

// DefaultPolicy promotes every action to SINGLE_CHILD.
func DefaultPolicy() Policy {
	return Policy{branching: map[domain.Command]bool{}}
}

// NewPolicy builds a policy where the listed actions fork into LEFT/RIGHT.
func NewPolicy(branching ...domain.Command) (Policy, error) {
	p := DefaultPolicy()
	for _, c := range branching {
		if !c.IsAction() {
			return Policy{}, fmt.Errorf("branching action %q is not a selectable action", c)
		}
		p.branching[c] = true
	}
	return p, nil
}

// RoleFor returns the promoted role for a node whose command becomes action.
func (p Policy) RoleFor(action domain.Command) domain.NodeRole {
	if p.branching[action] {
		return domain.RoleBranching
	}
	return domain.RoleSingleChild
}

// BranchingActions lists the configured branching actions in stable order.
func (p Policy) BranchingActions() []domain.Command {
	out := make([]domain.Command, 0, len(p.branching))
	for c := range p.branching {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// portsFor lists the outgoing ports of a role, in traversal order.
func portsFor(role domain.NodeRole) []domain.Port {
	switch role {
	case domain.RoleSingleChild, domain.RoleDelay:
		return []domain.Port{domain.PortBottom}
	case domain.RoleBranching:
		return []domain.Port{domain.PortLeft, domain.PortRight}
	case domain.RolePending, domain.RoleTerminal, domain.RoleRoot:
		return nil
	}
	return nil
}

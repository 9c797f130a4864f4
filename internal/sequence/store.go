package sequence

import (
	"fmt"

	"github.com/alexanderramin/cadence/internal/domain"
)

// portOrder is the order children are visited in.
var portOrder = []domain.Port{domain.PortBottom, domain.PortLeft, domain.PortRight}

// graph holds the node and edge collections plus the adjacency indices that
// keep parentOf/childrenOf constant time. Every primitive keeps the indices
// in step with the collections.
type graph struct {
	rootID   string
	nodes    map[string]*domain.SequenceNode
	edges    map[string]*domain.SequenceEdge
	incoming map[string]string                 // target node -> edge
	outgoing map[string]map[domain.Port]string // source node -> port -> edge
}

func newGraph() *graph {
	return &graph{
		nodes:    make(map[string]*domain.SequenceNode),
		edges:    make(map[string]*domain.SequenceEdge),
		incoming: make(map[string]string),
		outgoing: make(map[string]map[domain.Port]string),
	}
}

func (g *graph) clone() *graph {
	c := newGraph()
	c.rootID = g.rootID
	for id, n := range g.nodes {
		cp := n.Clone()
		c.nodes[id] = &cp
	}
	for id, e := range g.edges {
		cp := *e
		c.edges[id] = &cp
	}
	for k, v := range g.incoming {
		c.incoming[k] = v
	}
	for src, ports := range g.outgoing {
		m := make(map[domain.Port]string, len(ports))
		for p, e := range ports {
			m[p] = e
		}
		c.outgoing[src] = m
	}
	return c
}

func (g *graph) findNode(id string) (*domain.SequenceNode, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

func (g *graph) insertNode(n domain.SequenceNode) error {
	if _, exists := g.nodes[n.ID]; exists {
		return fmt.Errorf("node %s already present", n.ID)
	}
	cp := n.Clone()
	g.nodes[n.ID] = &cp
	return nil
}

func (g *graph) insertEdge(e domain.SequenceEdge) error {
	if _, exists := g.edges[e.ID]; exists {
		return fmt.Errorf("edge %s already present", e.ID)
	}
	if _, ok := g.nodes[e.SourceID]; !ok {
		return fmt.Errorf("edge %s: source %s missing", e.ID, e.SourceID)
	}
	if _, ok := g.nodes[e.TargetID]; !ok {
		return fmt.Errorf("edge %s: target %s missing", e.ID, e.TargetID)
	}
	if prev, ok := g.incoming[e.TargetID]; ok {
		return fmt.Errorf("edge %s: node %s already attached by %s", e.ID, e.TargetID, prev)
	}
	if prev, ok := g.outgoing[e.SourceID][e.SourcePort]; ok {
		return fmt.Errorf("edge %s: port %s of %s already used by %s", e.ID, e.SourcePort, e.SourceID, prev)
	}
	cp := e
	g.edges[e.ID] = &cp
	g.incoming[e.TargetID] = e.ID
	if g.outgoing[e.SourceID] == nil {
		g.outgoing[e.SourceID] = make(map[domain.Port]string)
	}
	g.outgoing[e.SourceID][e.SourcePort] = e.ID
	return nil
}

func (g *graph) deleteEdge(id string) {
	e, ok := g.edges[id]
	if !ok {
		return
	}
	delete(g.edges, id)
	delete(g.incoming, e.TargetID)
	if ports := g.outgoing[e.SourceID]; ports != nil {
		delete(ports, e.SourcePort)
		if len(ports) == 0 {
			delete(g.outgoing, e.SourceID)
		}
	}
}

// deleteNode removes the node and every edge touching it.
func (g *graph) deleteNode(id string) {
	if eid, ok := g.incoming[id]; ok {
		g.deleteEdge(eid)
	}
	for _, eid := range g.outgoing[id] {
		g.deleteEdge(eid)
	}
	delete(g.nodes, id)
}

// childrenOf returns the outgoing edges of id in traversal order.
func (g *graph) childrenOf(id string) []*domain.SequenceEdge {
	ports := g.outgoing[id]
	if len(ports) == 0 {
		return nil
	}
	out := make([]*domain.SequenceEdge, 0, len(ports))
	for _, p := range portOrder {
		if eid, ok := ports[p]; ok {
			out = append(out, g.edges[eid])
		}
	}
	return out
}

func (g *graph) parentOf(id string) (*domain.SequenceEdge, bool) {
	eid, ok := g.incoming[id]
	if !ok {
		return nil, false
	}
	return g.edges[eid], true
}

// descendants returns id and everything below it, parents first.
func (g *graph) descendants(id string) []string {
	var out []string
	stack := []string{id}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		children := g.childrenOf(cur)
		for i := len(children) - 1; i >= 0; i-- {
			stack = append(stack, children[i].TargetID)
		}
	}
	return out
}

// slots returns the outgoing ports a node may use. ROOT has no fixed shape:
// an attached child pins it, otherwise the promotion policy for its command
// decides.
func (g *graph) slots(n *domain.SequenceNode, policy Policy) []domain.Port {
	if n.Role != domain.RoleRoot {
		return portsFor(n.Role)
	}
	if n.Command == domain.CommandNone {
		return nil
	}
	ports := g.outgoing[n.ID]
	if _, ok := ports[domain.PortBottom]; ok {
		return portsFor(domain.RoleSingleChild)
	}
	if len(ports) > 0 {
		return portsFor(domain.RoleBranching)
	}
	return portsFor(policy.RoleFor(n.Command))
}

// freeSlot returns the first unused port of n.
func (g *graph) freeSlot(n *domain.SequenceNode, policy Policy) (domain.Port, bool) {
	for _, p := range g.slots(n, policy) {
		if _, used := g.outgoing[n.ID][p]; !used {
			return p, true
		}
	}
	return "", false
}

// check walks the whole graph and reports the first structural violation.
func (g *graph) check() error {
	root, ok := g.nodes[g.rootID]
	if !ok {
		return fmt.Errorf("root %q missing", g.rootID)
	}
	roots := 0
	for id, n := range g.nodes {
		if !n.Role.Valid() {
			return fmt.Errorf("node %s: unknown role %q", id, n.Role)
		}
		if !n.Command.Valid() {
			return fmt.Errorf("node %s: unknown command %q", id, n.Command)
		}
		if n.Role == domain.RoleRoot {
			roots++
		}
	}
	if roots != 1 {
		return fmt.Errorf("expected exactly one root, found %d", roots)
	}
	if _, ok := g.incoming[root.ID]; ok {
		return fmt.Errorf("root %s has an incoming edge", root.ID)
	}
	for id, e := range g.edges {
		if e.TargetPort != domain.PortTop {
			return fmt.Errorf("edge %s: target port %q, want top", id, e.TargetPort)
		}
		if _, ok := g.nodes[e.SourceID]; !ok {
			return fmt.Errorf("edge %s: dangling source %s", id, e.SourceID)
		}
		if _, ok := g.nodes[e.TargetID]; !ok {
			return fmt.Errorf("edge %s: dangling target %s", id, e.TargetID)
		}
	}
	for id, n := range g.nodes {
		if n.Role != domain.RoleRoot {
			if _, ok := g.incoming[id]; !ok {
				return fmt.Errorf("node %s has no incoming edge", id)
			}
		}
		if err := g.checkPorts(n); err != nil {
			return err
		}
	}
	if seen := len(g.descendants(root.ID)); seen != len(g.nodes) {
		return fmt.Errorf("%d of %d nodes reachable from root", seen, len(g.nodes))
	}
	return nil
}

func (g *graph) checkPorts(n *domain.SequenceNode) error {
	ports := g.outgoing[n.ID]
	var allowed []domain.Port
	switch n.Role {
	case domain.RoleRoot:
		if n.Command == domain.CommandNone {
			allowed = nil
		} else if _, single := ports[domain.PortBottom]; single {
			allowed = portsFor(domain.RoleSingleChild)
		} else {
			allowed = portsFor(domain.RoleBranching)
		}
	default:
		allowed = portsFor(n.Role)
	}
	for p := range ports {
		ok := false
		for _, a := range allowed {
			if a == p {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("node %s (%s): outgoing edge on port %s not allowed", n.ID, n.Role, p)
		}
	}
	return nil
}

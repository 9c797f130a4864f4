package sequence

import (
	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/google/uuid"
)

// Draft is the editable graph of one outreach plan. It is a single-writer
// structure: callers serialize access themselves.
type Draft struct {
	Name    string
	Channel domain.ChannelType

	g               *graph
	policy          Policy
	newID           func() string
	used            map[string]bool
	checkInvariants bool
}

type options struct {
	idFunc          func() string
	policy          Policy
	checkInvariants bool
}

// Option configures a Draft.
type Option func(*options)

// WithIDFunc replaces the uuid allocator, mostly for deterministic tests.
func WithIDFunc(fn func() string) Option {
	return func(o *options) { o.idFunc = fn }
}

// WithPolicy sets the promotion policy used by CreateChild.
func WithPolicy(p Policy) Option {
	return func(o *options) { o.policy = p }
}

// WithInvariantChecks re-validates the full graph after every mutation and
// rolls back any mutation that leaves it inconsistent.
func WithInvariantChecks(enabled bool) Option {
	return func(o *options) { o.checkInvariants = enabled }
}

func resolve(opts []Option) options {
	o := options{idFunc: uuid.NewString, policy: DefaultPolicy()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.policy.branching == nil {
		o.policy = DefaultPolicy()
	}
	return o
}

// Allocator returns the id allocator the given options would install. It
// lets loaders mint ids from the same source a Draft will continue with.
func Allocator(opts ...Option) func() string {
	return resolve(opts).idFunc
}

func newDraft(name string, channel domain.ChannelType, o options) *Draft {
	if channel == "" {
		channel = domain.ChannelLinkedIn
	}
	return &Draft{
		Name:            name,
		Channel:         channel,
		g:               newGraph(),
		policy:          o.policy,
		newID:           o.idFunc,
		used:            make(map[string]bool),
		checkInvariants: o.checkInvariants,
	}
}

// New returns a draft holding a single ROOT node with no action.
func New(name string, channel domain.ChannelType, opts ...Option) *Draft {
	d := newDraft(name, channel, resolve(opts))
	root := domain.SequenceNode{
		ID:      d.allocate(),
		Role:    domain.RoleRoot,
		Command: domain.CommandNone,
	}
	// A fresh graph always accepts its first node.
	_ = d.g.insertNode(root)
	d.g.rootID = root.ID
	return d
}

// Restore rebuilds a draft from stored nodes and edges. The result must
// satisfy every structural invariant or an ErrInvariant BugError is returned.
func Restore(name string, channel domain.ChannelType, nodes []domain.SequenceNode, edges []domain.SequenceEdge, opts ...Option) (*Draft, error) {
	d := newDraft(name, channel, resolve(opts))
	for _, n := range nodes {
		if err := d.g.insertNode(n); err != nil {
			return nil, bug("restore", n.ID, ErrInvariant, "%v", err)
		}
		d.used[n.ID] = true
		if n.Role == domain.RoleRoot {
			d.g.rootID = n.ID
		}
	}
	for _, e := range edges {
		if err := d.g.insertEdge(e); err != nil {
			return nil, bug("restore", e.ID, ErrInvariant, "%v", err)
		}
		d.used[e.ID] = true
	}
	if err := d.g.check(); err != nil {
		return nil, bug("restore", "", ErrInvariant, "%v", err)
	}
	return d, nil
}

// allocate mints an id that was never handed out in this session, even for
// entities that have since been deleted.
func (d *Draft) allocate() string {
	for {
		id := d.newID()
		if !d.used[id] {
			d.used[id] = true
			return id
		}
	}
}

// Policy returns the promotion policy in effect.
func (d *Draft) Policy() Policy { return d.policy }

// RootID returns the id of the ROOT node.
func (d *Draft) RootID() string { return d.g.rootID }

// Root returns a copy of the ROOT node.
func (d *Draft) Root() domain.SequenceNode {
	return d.g.nodes[d.g.rootID].Clone()
}

// Node returns a copy of the node with the given id.
func (d *Draft) Node(id string) (domain.SequenceNode, bool) {
	n, ok := d.g.findNode(id)
	if !ok {
		return domain.SequenceNode{}, false
	}
	return n.Clone(), true
}

// Len is the number of nodes in the draft.
func (d *Draft) Len() int { return len(d.g.nodes) }

// EdgeCount is the number of edges in the draft.
func (d *Draft) EdgeCount() int { return len(d.g.edges) }

// ChildrenOf returns the outgoing edges of id ordered BOTTOM, LEFT, RIGHT.
func (d *Draft) ChildrenOf(id string) []domain.SequenceEdge {
	edges := d.g.childrenOf(id)
	out := make([]domain.SequenceEdge, len(edges))
	for i, e := range edges {
		out[i] = *e
	}
	return out
}

// ParentOf returns the edge attaching id to its parent. ROOT has none.
func (d *Draft) ParentOf(id string) (domain.SequenceEdge, bool) {
	e, ok := d.g.parentOf(id)
	if !ok {
		return domain.SequenceEdge{}, false
	}
	return *e, true
}

// FreeSlot reports the port a CreateChild on id would use, if any.
func (d *Draft) FreeSlot(id string) (domain.Port, bool) {
	n, ok := d.g.findNode(id)
	if !ok {
		return "", false
	}
	return d.g.freeSlot(n, d.policy)
}

// CheckInvariants validates the whole graph.
func (d *Draft) CheckInvariants() error {
	if err := d.g.check(); err != nil {
		return bug("check", "", ErrInvariant, "%v", err)
	}
	return nil
}

// Visit is one node reached by Traverse.
type Visit struct {
	Node     domain.SequenceNode
	ParentID string
	Port     domain.Port
	Depth    int
}

// Traverse lists the nodes depth-first in pre-order from ROOT, visiting the
// children of a node BOTTOM, then LEFT, then RIGHT. The validator, the
// serializer and renderers all share this order.
func (d *Draft) Traverse() []Visit {
	out := make([]Visit, 0, len(d.g.nodes))
	type frame struct {
		id, parent string
		port       domain.Port
		depth      int
	}
	stack := []frame{{id: d.g.rootID}}
	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := d.g.nodes[f.id]
		out = append(out, Visit{Node: n.Clone(), ParentID: f.parent, Port: f.port, Depth: f.depth})
		children := d.g.childrenOf(f.id)
		for i := len(children) - 1; i >= 0; i-- {
			e := children[i]
			stack = append(stack, frame{id: e.TargetID, parent: f.id, port: e.SourcePort, depth: f.depth + 1})
		}
	}
	return out
}

// Snapshot is a detached copy of the graph for renderers.
type Snapshot struct {
	Name    string
	Channel domain.ChannelType
	Nodes   []domain.SequenceNode
	Edges   []domain.SequenceEdge
}

// Snapshot copies nodes and edges in traversal order. Edges appear in the
// order of the child they attach.
func (d *Draft) Snapshot() Snapshot {
	s := Snapshot{Name: d.Name, Channel: d.Channel}
	for _, v := range d.Traverse() {
		s.Nodes = append(s.Nodes, v.Node)
		if e, ok := d.g.parentOf(v.Node.ID); ok {
			s.Edges = append(s.Edges, *e)
		}
	}
	return s
}

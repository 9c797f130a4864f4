package sequence

import (
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustChild(t *testing.T, d *Draft, action domain.Command, parent string) string {
	t.Helper()
	id, err := d.CreateChild(action, parent)
	require.NoError(t, err)
	return id
}

func requireNode(t *testing.T, d *Draft, id string) domain.SequenceNode {
	t.Helper()
	n, ok := d.Node(id)
	require.True(t, ok, "node %s missing", id)
	return n
}

func TestCreateChild_PromotesPendingParent(t *testing.T) {
	d := newTestDraft(t)
	p := mustChild(t, d, domain.CommandInvite, d.RootID())

	c := mustChild(t, d, domain.CommandMessage, p)

	parent := requireNode(t, d, p)
	assert.NotEqual(t, domain.RolePending, parent.Role)
	assert.Equal(t, domain.RoleSingleChild, parent.Role)
	assert.Equal(t, domain.CommandMessage, parent.Command)

	children := d.ChildrenOf(p)
	require.Len(t, children, 1)
	assert.Equal(t, c, children[0].TargetID)
	assert.Equal(t, domain.PortBottom, children[0].SourcePort)
	assert.Equal(t, domain.PortTop, children[0].TargetPort)

	child := requireNode(t, d, c)
	assert.Equal(t, domain.RolePending, child.Role)
	assert.Equal(t, domain.CommandNone, child.Command)
	assert.True(t, child.Config.IsEmpty())

	edge, ok := d.ParentOf(c)
	require.True(t, ok)
	assert.Equal(t, p, edge.SourceID)
}

func TestCreateChild_RootTakesActionAndKeepsRole(t *testing.T) {
	d := newTestDraft(t)
	c := mustChild(t, d, domain.CommandMessage, d.RootID())

	root := d.Root()
	assert.Equal(t, domain.RoleRoot, root.Role)
	assert.Equal(t, domain.CommandMessage, root.Command)

	_, err := d.CreateChild(domain.CommandMessage, d.RootID())
	assert.ErrorIs(t, err, ErrSlotsFull)
	_, err = d.CreateChild(domain.CommandLike, d.RootID())
	assert.ErrorIs(t, err, ErrWrongRole)

	_, hasParent := d.ParentOf(d.RootID())
	assert.False(t, hasParent)
	assert.Equal(t, domain.RolePending, requireNode(t, d, c).Role)
}

func TestCreateChild_BranchingFillsLeftThenRight(t *testing.T) {
	policy, err := NewPolicy(domain.CommandInvite)
	require.NoError(t, err)
	d := newTestDraft(t, WithPolicy(policy))
	p := mustChild(t, d, domain.CommandMessage, d.RootID())

	left := mustChild(t, d, domain.CommandInvite, p)
	right := mustChild(t, d, domain.CommandInvite, p)

	assert.Equal(t, domain.RoleBranching, requireNode(t, d, p).Role)
	children := d.ChildrenOf(p)
	require.Len(t, children, 2)
	assert.Equal(t, domain.PortLeft, children[0].SourcePort)
	assert.Equal(t, left, children[0].TargetID)
	assert.Equal(t, domain.PortRight, children[1].SourcePort)
	assert.Equal(t, right, children[1].TargetID)

	_, ok := d.FreeSlot(p)
	assert.False(t, ok)
	_, err = d.CreateChild(domain.CommandInvite, p)
	assert.ErrorIs(t, err, ErrSlotsFull)
}

func TestCreateChild_BranchingRoot(t *testing.T) {
	policy, err := NewPolicy(domain.CommandFollow)
	require.NoError(t, err)
	d := newTestDraft(t, WithPolicy(policy))

	mustChild(t, d, domain.CommandFollow, d.RootID())
	port, ok := d.FreeSlot(d.RootID())
	require.True(t, ok)
	assert.Equal(t, domain.PortRight, port)
	mustChild(t, d, domain.CommandFollow, d.RootID())
	assert.Len(t, d.ChildrenOf(d.RootID()), 2)
}

func TestCreateChild_Preconditions(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	c2 := mustChild(t, d, domain.CommandInvite, c1)
	require.NoError(t, d.MarkTerminal(c2))

	tests := []struct {
		name   string
		action domain.Command
		parent string
		kind   error
	}{
		{"empty target", domain.CommandMessage, "", ErrNoTarget},
		{"unknown node", domain.CommandMessage, "nope", ErrNodeNotFound},
		{"terminal parent", domain.CommandMessage, c2, ErrWrongRole},
		{"different action on promoted node", domain.CommandLike, c1, ErrWrongRole},
		{"same action but full", domain.CommandInvite, c1, ErrSlotsFull},
		{"end is not an action", domain.CommandEnd, c2, ErrInvalidArgument},
		{"none is not an action", domain.CommandNone, c1, ErrInvalidArgument},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := d.Snapshot()
			_, err := d.CreateChild(tt.action, tt.parent)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.kind)
			assert.True(t, IsBug(err))
			assert.Equal(t, before, d.Snapshot())
		})
	}
}

func TestCreateChild_DelayNodeRejected(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	_, err := d.InsertDelay(c1)
	require.NoError(t, err)

	_, err = d.CreateChild(domain.CommandMessage, c1)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestCreateChild_DropsTemplateForNonTextAction(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	require.NoError(t, d.ApplyConfiguration(c1, domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "hi", FallbackText: "hey"},
	}))

	mustChild(t, d, domain.CommandFollow, c1)
	assert.True(t, requireNode(t, d, c1).Config.IsEmpty())
}

func TestRemoveSubtree_LeavesNoTrace(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	c2 := mustChild(t, d, domain.CommandInvite, c1)
	c3 := mustChild(t, d, domain.CommandFollow, c2)

	removed, err := d.RemoveSubtree(c2)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c2, c3}, removed)

	snap := d.Snapshot()
	for _, n := range snap.Nodes {
		assert.NotContains(t, removed, n.ID)
	}
	for _, e := range snap.Edges {
		assert.NotContains(t, removed, e.SourceID)
		assert.NotContains(t, removed, e.TargetID)
	}
	assert.Equal(t, 2, d.Len())
	assert.Equal(t, 1, d.EdgeCount())
}

func TestRemoveSubtree_DemotesChildlessParent(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	c2 := mustChild(t, d, domain.CommandMessage, c1)
	require.NoError(t, d.ApplyConfiguration(c1, domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "hi", FallbackText: "hey"},
	}))

	_, err := d.RemoveSubtree(c2)
	require.NoError(t, err)

	parent := requireNode(t, d, c1)
	assert.Equal(t, domain.RolePending, parent.Role)
	assert.Equal(t, domain.CommandNone, parent.Command)
	require.NotNil(t, parent.Config.Template)
	assert.Equal(t, "hi", parent.Config.Template.PrimaryText)

	// re-choosing the action keeps the text
	mustChild(t, d, domain.CommandMessage, c1)
	assert.Equal(t, "hi", requireNode(t, d, c1).Config.Template.PrimaryText)
}

func TestRemoveSubtree_BranchingParentKeepsRoleWhileOneChildRemains(t *testing.T) {
	policy, err := NewPolicy(domain.CommandInvite)
	require.NoError(t, err)
	d := newTestDraft(t, WithPolicy(policy))
	p := mustChild(t, d, domain.CommandMessage, d.RootID())
	left := mustChild(t, d, domain.CommandInvite, p)
	mustChild(t, d, domain.CommandInvite, p)

	_, err = d.RemoveSubtree(left)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleBranching, requireNode(t, d, p).Role)

	// the freed LEFT slot is reused
	again := mustChild(t, d, domain.CommandInvite, p)
	edge, _ := d.ParentOf(again)
	assert.Equal(t, domain.PortLeft, edge.SourcePort)
	assert.NotEqual(t, left, again)
}

func TestRemoveSubtree_LastChildOfRootResetsAction(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())

	_, err := d.RemoveSubtree(c1)
	require.NoError(t, err)
	root := d.Root()
	assert.Equal(t, domain.RoleRoot, root.Role)
	assert.Equal(t, domain.CommandNone, root.Command)
	assert.Equal(t, 1, d.Len())
}

func TestRemoveSubtree_DelayParentBecomesPending(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	after, err := d.InsertDelay(c1)
	require.NoError(t, err)

	_, err = d.RemoveSubtree(after)
	require.NoError(t, err)
	n := requireNode(t, d, c1)
	assert.Equal(t, domain.RolePending, n.Role)
	assert.Nil(t, n.Config.Delay)
}

func TestRemoveSubtree_Preconditions(t *testing.T) {
	d := newTestDraft(t)
	_, err := d.RemoveSubtree(d.RootID())
	assert.ErrorIs(t, err, ErrRootImmutable)
	_, err = d.RemoveSubtree("")
	assert.ErrorIs(t, err, ErrNoTarget)
	_, err = d.RemoveSubtree("ghost")
	assert.ErrorIs(t, err, ErrNodeNotFound)
}

func TestTruncateEdges_DeletesDetachedSubtrees(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	c2 := mustChild(t, d, domain.CommandInvite, c1)
	c3 := mustChild(t, d, domain.CommandFollow, c2)

	removed, err := d.TruncateEdges(c1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{c2, c3}, removed)

	n := requireNode(t, d, c1)
	assert.Equal(t, domain.RoleSingleChild, n.Role)
	assert.Equal(t, domain.CommandMessage, n.Command)
	assert.Empty(t, d.ChildrenOf(c1))
	assert.NoError(t, d.CheckInvariants())

	// the emptied slot can be refilled with the same action
	mustChild(t, d, domain.CommandMessage, c1)
}

func TestTruncateEdges_DelayGetsFreshStep(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	after, err := d.InsertDelay(c1)
	require.NoError(t, err)
	require.NoError(t, d.ConfigureDelay(c1, 2, domain.UnitWeeks))
	below := mustChild(t, d, domain.CommandFollow, after)

	removed, err := d.TruncateEdges(c1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{after, below}, removed)

	n := requireNode(t, d, c1)
	assert.Equal(t, domain.RoleDelay, n.Role)
	require.NotNil(t, n.Config.Delay)
	assert.Equal(t, domain.DelaySetting{Count: 2, Unit: domain.UnitWeeks}, *n.Config.Delay)

	children := d.ChildrenOf(c1)
	require.Len(t, children, 1)
	assert.Equal(t, domain.PortBottom, children[0].SourcePort)
	fresh := requireNode(t, d, children[0].TargetID)
	assert.Equal(t, domain.RolePending, fresh.Role)
	assert.NotContains(t, removed, fresh.ID)
	assert.NoError(t, d.CheckInvariants())

	// the branch below the delay can be continued again
	next := mustChild(t, d, domain.CommandLike, fresh.ID)
	require.NoError(t, d.MarkTerminal(next))
	assert.NoError(t, d.CheckInvariants())
}

func TestTruncateEdges_OnLeafIsNoop(t *testing.T) {
	d := newTestDraft(t)
	before := d.Snapshot()
	removed, err := d.TruncateEdges(d.RootID())
	require.NoError(t, err)
	assert.Empty(t, removed)
	assert.Equal(t, before, d.Snapshot())
}

func TestMarkUnmarkTerminal_Identity(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())

	require.NoError(t, d.MarkTerminal(c1))
	n := requireNode(t, d, c1)
	assert.Equal(t, domain.RoleTerminal, n.Role)
	assert.Equal(t, domain.CommandEnd, n.Command)

	require.NoError(t, d.MarkTerminal(c1), "idempotent on terminal")

	require.NoError(t, d.UnmarkTerminal(c1))
	n = requireNode(t, d, c1)
	assert.Equal(t, domain.RolePending, n.Role)
	assert.Equal(t, domain.CommandNone, n.Command)

	mustChild(t, d, domain.CommandLike, c1)
}

func TestMarkTerminal_Preconditions(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())

	assert.ErrorIs(t, d.MarkTerminal(d.RootID()), ErrWrongRole)
	assert.ErrorIs(t, d.UnmarkTerminal(c1), ErrWrongRole)
	assert.ErrorIs(t, d.MarkTerminal(""), ErrNoTarget)
	assert.ErrorIs(t, d.UnmarkTerminal("ghost"), ErrNodeNotFound)
}

func TestInsertDelay(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())

	after, err := d.InsertDelay(c1)
	require.NoError(t, err)

	n := requireNode(t, d, c1)
	assert.Equal(t, domain.RoleDelay, n.Role)
	assert.Equal(t, domain.CommandNone, n.Command)
	require.NotNil(t, n.Config.Delay)
	assert.Equal(t, domain.DelaySetting{Count: 0, Unit: domain.UnitDays}, *n.Config.Delay)

	children := d.ChildrenOf(c1)
	require.Len(t, children, 1)
	assert.Equal(t, after, children[0].TargetID)
	assert.Equal(t, domain.PortBottom, children[0].SourcePort)

	_, err = d.InsertDelay(c1)
	assert.ErrorIs(t, err, ErrWrongRole)
}

func TestConfigureDelay(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	_, err := d.InsertDelay(c1)
	require.NoError(t, err)

	require.NoError(t, d.ConfigureDelay(c1, 2, domain.UnitHours))
	assert.Equal(t, domain.DelaySetting{Count: 2, Unit: domain.UnitHours}, *requireNode(t, d, c1).Config.Delay)

	assert.ErrorIs(t, d.ConfigureDelay(c1, -1, domain.UnitDays), ErrInvalidArgument)
	assert.ErrorIs(t, d.ConfigureDelay(c1, 1, domain.DelayUnit("fortnights")), ErrInvalidArgument)
	assert.ErrorIs(t, d.ConfigureDelay(d.RootID(), 1, domain.UnitDays), ErrWrongRole)
	assert.Equal(t, 2, requireNode(t, d, c1).Config.Delay.Count, "failed calls leave the node alone")
}

func TestApplyConfiguration(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandInEmail, d.RootID())

	tmpl := &domain.TextTemplate{PrimarySubject: "s", PrimaryText: "t", FallbackSubject: "fs", FallbackText: "ft"}
	require.NoError(t, d.ApplyConfiguration(d.RootID(), domain.Configuration{Template: tmpl}))
	tmpl.PrimaryText = "changed after apply"
	assert.Equal(t, "t", d.Root().Config.Template.PrimaryText)

	require.NoError(t, d.MarkTerminal(c1))
	assert.ErrorIs(t, d.ApplyConfiguration(c1, domain.Configuration{Template: tmpl}), ErrWrongRole)

	err := d.ApplyConfiguration(d.RootID(), domain.Configuration{Delay: &domain.DelaySetting{Count: 1, Unit: domain.UnitDays}})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestMoveNode_OnlyTouchesPosition(t *testing.T) {
	d := newTestDraft(t)
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	before := requireNode(t, d, c1)

	require.NoError(t, d.MoveNode(c1, domain.Position{X: 10, Y: 42}))

	after := requireNode(t, d, c1)
	assert.Equal(t, domain.Position{X: 10, Y: 42}, after.Position)
	after.Position = before.Position
	assert.Equal(t, before, after)
	assert.ErrorIs(t, d.MoveNode("", domain.Position{}), ErrNoTarget)
}

func TestIDs_NeverReused(t *testing.T) {
	d := newTestDraft(t)
	seen := map[string]bool{d.RootID(): true}
	c1 := mustChild(t, d, domain.CommandMessage, d.RootID())
	seen[c1] = true
	for i := 0; i < 5; i++ {
		c := mustChild(t, d, domain.CommandMessage, c1)
		assert.False(t, seen[c], "id %s reused", c)
		seen[c] = true
		_, err := d.RemoveSubtree(c)
		require.NoError(t, err)
	}
}

func TestIDs_CollidingAllocatorSkipsUsedIDs(t *testing.T) {
	ids := []string{"a", "a", "b", "a", "c", "d"}
	i := 0
	next := func() string {
		id := ids[i]
		i++
		return id
	}
	d := New("x", domain.ChannelLinkedIn, WithIDFunc(next))
	c, err := d.CreateChild(domain.CommandMessage, d.RootID())
	require.NoError(t, err)

	assert.Equal(t, "a", d.RootID())
	assert.Equal(t, "b", c)
	edge, _ := d.ParentOf(c)
	assert.Equal(t, "c", edge.ID)
}

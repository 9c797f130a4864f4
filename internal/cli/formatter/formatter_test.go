package formatter

import (
	"fmt"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/alexanderramin/cadence/internal/verify"
	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ansiPattern matches ANSI escape sequences so assertions are terminal-independent.
var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*[a-zA-Z]`)

func stripANSI(s string) string {
	return ansiPattern.ReplaceAllString(s, "")
}

func counterIDs() sequence.Option {
	n := 0
	return sequence.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("n%d", n)
	})
}

// branchingDraft builds root(message) -> a(invite, branching) with an END on
// the left and an open branch on the right.
func branchingDraft(t *testing.T) (*sequence.Draft, string, string, string) {
	t.Helper()
	policy, err := sequence.NewPolicy(domain.CommandInvite)
	require.NoError(t, err)
	d := sequence.New("Fork", domain.ChannelLinkedIn, counterIDs(), sequence.WithPolicy(policy))
	a, err := d.CreateChild(domain.CommandMessage, d.RootID())
	require.NoError(t, err)
	left, err := d.CreateChild(domain.CommandInvite, a)
	require.NoError(t, err)
	right, err := d.CreateChild(domain.CommandInvite, a)
	require.NoError(t, err)
	require.NoError(t, d.MarkTerminal(left))
	return d, a, left, right
}

func TestRenderTable_AlignsColumns(t *testing.T) {
	out := stripANSI(RenderTable(
		[]string{"ID", "NAME"},
		[][]string{{"abc", "First"}, {"a", StyleRed.Render("Second")}},
	))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "ID   NAME", lines[0])
	assert.Equal(t, "───  ──────", lines[1])
	assert.Equal(t, "abc  First", lines[2])
	assert.Equal(t, "a    Second", lines[3])
}

func TestRenderTable_NoHeaders(t *testing.T) {
	assert.Empty(t, RenderTable(nil, [][]string{{"x"}}))
}

func TestRenderTree_Connectors(t *testing.T) {
	out := stripANSI(RenderTree([]TreeItem{
		{Title: "root"},
		{Title: "a", Level: 1},
		{Title: "a1", Level: 2, IsLast: true, Guides: []bool{true}},
		{Title: "b", Level: 1, IsLast: true},
		{Title: "b1", Level: 2, IsLast: true, Guides: []bool{false}},
	}))
	assert.Equal(t, "root\n├─ a\n│  └─ a1\n└─ b\n   └─ b1\n", out)
}

func TestRenderTree_HighlightAndBadges(t *testing.T) {
	out := stripANSI(RenderTree([]TreeItem{
		{Title: "short", Detail: "x"},
		{Title: "longer title", Level: 1, IsLast: true, Highlighted: true, Detail: "y"},
	}))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[1], "! longer title")
	badgeCol := func(line, badge string) int {
		return lipgloss.Width(line[:strings.Index(line, badge)])
	}
	assert.Equal(t, badgeCol(lines[0], "[ x ]"), badgeCol(lines[1], "[ y ]"))
}

func TestFormatDraftTree_TraversalOrderAndPorts(t *testing.T) {
	d, a, left, right := branchingDraft(t)

	out := stripANSI(FormatDraftTree(d, func(id string) bool { return id == right }))
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	require.Len(t, lines, 4)

	assert.True(t, strings.HasPrefix(lines[0], "#1 ◆ Send message"), lines[0])
	assert.Contains(t, lines[0], "no text · "+d.RootID())
	assert.True(t, strings.HasPrefix(lines[1], "└─ #2 ◇ Connection invite"), lines[1])
	assert.Contains(t, lines[1], a)
	assert.True(t, strings.HasPrefix(lines[2], "   ├─ #3 L ■ End of sequence"), lines[2])
	assert.Contains(t, lines[2], left)
	assert.True(t, strings.HasPrefix(lines[3], "   └─ ! #4 R ○ (choose action)"), lines[3])
}

func TestNodeTitle(t *testing.T) {
	tests := []struct {
		name string
		node domain.SequenceNode
		want string
	}{
		{"empty root", domain.SequenceNode{Role: domain.RoleRoot, Command: domain.CommandNone}, "Start (choose first action)"},
		{"root with action", domain.SequenceNode{Role: domain.RoleRoot, Command: domain.CommandFollow}, "Follow"},
		{"pending", domain.SequenceNode{Role: domain.RolePending, Command: domain.CommandNone}, "(choose action)"},
		{"terminal", domain.SequenceNode{Role: domain.RoleTerminal, Command: domain.CommandEnd}, "End of sequence"},
		{"unset delay", domain.SequenceNode{Role: domain.RoleDelay}, "Delay (not set)"},
		{"delay", domain.SequenceNode{
			Role:   domain.RoleDelay,
			Config: domain.Configuration{Delay: &domain.DelaySetting{Count: 2, Unit: domain.UnitDays}},
		}, "Delay: wait 2 days"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NodeTitle(tt.node))
		})
	}
}

func TestFormatVerifyResult(t *testing.T) {
	d, _, _, _ := branchingDraft(t)

	ok := stripANSI(FormatVerifyResult(verify.Result{Valid: true}, d))
	assert.Equal(t, "✔ Ready to save\n", ok)

	bad := stripANSI(FormatVerifyResult(verify.Result{NodeID: d.RootID(), Message: "message text is required"}, d))
	assert.Equal(t, "✖ message text is required at Send message ("+d.RootID()+")\n", bad)

	gone := stripANSI(FormatVerifyResult(verify.Result{NodeID: "0123456789", Message: "x"}, d))
	assert.Contains(t, gone, "at 01234567")
}

func TestFormatDraftList(t *testing.T) {
	assert.Contains(t, stripANSI(FormatDraftList(nil)), "No drafts yet")

	now := time.Now().UTC()
	out := stripANSI(FormatDraftList([]*domain.DraftRecord{
		{ID: "0123456789abcdef", Name: "Warm intro", Channel: domain.ChannelSalesNavigator, Source: "builtin:inmail-nurture", UpdatedAt: now},
	}))
	assert.Contains(t, out, "01234567")
	assert.NotContains(t, out, "0123456789")
	assert.Contains(t, out, "Warm intro")
	assert.Contains(t, out, "Sales Navigator")
	assert.Contains(t, out, "builtin:inmail-nurture")
	assert.Contains(t, out, "Just now")
}

func TestFormatSteps(t *testing.T) {
	d, _, _, _ := branchingDraft(t)
	require.NoError(t, d.ApplyConfiguration(d.RootID(), domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "Hello\nthere", FallbackText: "Hi"},
	}))

	out := stripANSI(FormatSteps(serializer.Flatten(d)))
	assert.Contains(t, out, "Fork  LinkedIn")
	assert.Contains(t, out, "Hello there")
	assert.Regexp(t, `s3\s+s2\s+left\s+terminal\s+end`, out)
	assert.Regexp(t, `s4\s+s2\s+right\s+pending\s+none`, out)
}

func TestRelativeDateFrom(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{10 * time.Second, "Just now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{26 * time.Hour, "Yesterday"},
		{5 * 24 * time.Hour, "5d ago"},
		{21 * 24 * time.Hour, "3w ago"},
		{90 * 24 * time.Hour, "3mo ago"},
		{-time.Hour, "Just now"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RelativeDateFrom(now.Add(-tt.ago), now), tt.want)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcd…", Truncate("abcdefgh", 5))
	assert.Equal(t, "a b", Truncate("a\n  b", 10))
}

package serializer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/sequence"
	"github.com/alexanderramin/cadence/internal/verify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ids(prefix string) sequence.Option {
	n := 0
	return sequence.WithIDFunc(func() string {
		n++
		return fmt.Sprintf("%s%d", prefix, n)
	})
}

// buildBranchingDraft returns root(message) -> a(invite, branching);
// a.left -> b(follow) -> b1(end); a.right -> c(delay) -> c1(pending).
func buildBranchingDraft(t *testing.T) *sequence.Draft {
	t.Helper()
	policy, err := sequence.NewPolicy(domain.CommandInvite)
	require.NoError(t, err)
	d := sequence.New("Branching", domain.ChannelRecruiter, ids("n"), sequence.WithPolicy(policy))

	a, err := d.CreateChild(domain.CommandMessage, d.RootID())
	require.NoError(t, err)
	require.NoError(t, d.ApplyConfiguration(d.RootID(), domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "hi", FallbackText: "hello"},
	}))
	require.NoError(t, d.MoveNode(d.RootID(), domain.Position{X: 40, Y: 10}))
	b, err := d.CreateChild(domain.CommandInvite, a)
	require.NoError(t, err)
	c, err := d.CreateChild(domain.CommandInvite, a)
	require.NoError(t, err)
	b1, err := d.CreateChild(domain.CommandFollow, b)
	require.NoError(t, err)
	require.NoError(t, d.MarkTerminal(b1))
	_, err = d.InsertDelay(c)
	require.NoError(t, err)
	require.NoError(t, d.ConfigureDelay(c, 3, domain.UnitHours))
	return d
}

func TestFlatten_VisitsEveryNodeOnce(t *testing.T) {
	d := buildBranchingDraft(t)
	seq := Flatten(d)

	require.Equal(t, d.Len(), seq.Len())
	seen := map[string]bool{}
	for _, st := range seq.Steps {
		assert.False(t, seen[st.Ref], "ref %s repeated", st.Ref)
		seen[st.Ref] = true
	}

	var roles []domain.NodeRole
	for _, st := range seq.Steps {
		roles = append(roles, st.Role)
	}
	assert.Equal(t, []domain.NodeRole{
		domain.RoleRoot, domain.RoleBranching, domain.RoleSingleChild,
		domain.RoleTerminal, domain.RoleDelay, domain.RolePending,
	}, roles)

	assert.Equal(t, "s2", seq.Steps[2].ParentRef)
	assert.Equal(t, domain.PortLeft, seq.Steps[2].Port)
	assert.Equal(t, domain.PortRight, seq.Steps[4].Port)
	assert.Equal(t, &Delay{Count: 3, Unit: domain.UnitHours}, seq.Steps[4].Delay)
	assert.Equal(t, &domain.Position{X: 40, Y: 10}, seq.Steps[0].Position)
	assert.Nil(t, seq.Steps[1].Position)
}

func TestFlatten_DoesNotAliasDraft(t *testing.T) {
	d := buildBranchingDraft(t)
	seq := Flatten(d)
	seq.Steps[0].Template.PrimaryText = "mutated"
	assert.Equal(t, "hi", d.Root().Config.Template.PrimaryText)
}

func TestHydrate_NilGivesRootOnlyDraft(t *testing.T) {
	d, err := Hydrate(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, d.Len())
	assert.Equal(t, domain.RoleRoot, d.Root().Role)
	assert.Equal(t, domain.CommandNone, d.Root().Command)
}

func TestHydrate_RoundTrip(t *testing.T) {
	d := buildBranchingDraft(t)
	flat := Flatten(d)

	restored, err := Hydrate(flat, ids("fresh"))
	require.NoError(t, err)

	assert.Equal(t, flat, Flatten(restored))
	assert.NotEqual(t, d.RootID(), restored.RootID(), "ids are remapped")
	assert.Equal(t, "fresh1", restored.RootID())
	assert.NoError(t, restored.CheckInvariants())
	assert.Equal(t, d.Channel, restored.Channel)
	assert.Equal(t, d.Name, restored.Name)
}

func TestHydrate_RestoredDraftStaysEditable(t *testing.T) {
	restored, err := Hydrate(Flatten(buildBranchingDraft(t)))
	require.NoError(t, err)

	last := restored.Traverse()[restored.Len()-1].Node
	require.Equal(t, domain.RolePending, last.Role)
	_, err = restored.CreateChild(domain.CommandLike, last.ID)
	require.NoError(t, err)
}

func TestScenario_MessageInviteEnd(t *testing.T) {
	d, err := Hydrate(nil, ids("n"))
	require.NoError(t, err)
	r := d.RootID()

	c1, err := d.CreateChild(domain.CommandMessage, r)
	require.NoError(t, err)
	assert.Equal(t, domain.RolePending, mustNode(t, d, c1).Role)

	assert.ErrorIs(t, d.ConfigureDelay(c1, 1, domain.UnitDays), sequence.ErrWrongRole)

	require.NoError(t, d.ApplyConfiguration(r, domain.Configuration{
		Template: &domain.TextTemplate{PrimaryText: "Hi {{first_name}}", FallbackText: "Hi there"},
	}))
	c2, err := d.CreateChild(domain.CommandInvite, c1)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleSingleChild, mustNode(t, d, c1).Role)

	require.NoError(t, d.MarkTerminal(c2))
	assert.Equal(t, domain.CommandEnd, mustNode(t, d, c2).Command)

	seq := Flatten(d)
	require.Len(t, seq.Steps, 3)
	assert.Equal(t, domain.CommandMessage, seq.Steps[0].Command)
	assert.Equal(t, domain.CommandInvite, seq.Steps[1].Command)
	assert.Equal(t, "s1", seq.Steps[1].ParentRef)
	assert.Equal(t, domain.CommandEnd, seq.Steps[2].Command)
	assert.Equal(t, "s2", seq.Steps[2].ParentRef)

	assert.True(t, verify.Verify(d, verify.Options{RequireTerminatedBranches: true}).Valid)
}

func mustNode(t *testing.T, d *sequence.Draft, id string) domain.SequenceNode {
	t.Helper()
	n, ok := d.Node(id)
	require.True(t, ok)
	return n
}

func TestValidateOrdered_ReportsEveryProblem(t *testing.T) {
	seq := &OrderedSequence{
		Channel: "carrier_pigeon",
		Steps: []Step{
			{Ref: "a", Role: domain.RoleRoot, Command: domain.CommandMessage},
			{Ref: "b", ParentRef: "a", Port: domain.PortBottom, Role: domain.RolePending, Command: domain.CommandLike},
			{Ref: "b", ParentRef: "a", Port: domain.PortBottom, Role: domain.RolePending, Command: domain.CommandNone},
			{Ref: "c", ParentRef: "zzz", Port: domain.PortBottom, Role: domain.RoleTerminal, Command: domain.CommandEnd},
			{Ref: "d", ParentRef: "b", Port: domain.PortBottom, Role: domain.RoleDelay, Command: domain.CommandNone},
			{Ref: "e", ParentRef: "a", Port: domain.PortLeft, Role: "sideways", Command: domain.CommandNone},
		},
	}
	errs := ValidateOrdered(seq)

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}
	assert.Contains(t, msgs, `channel: failed "channel" (value carrier_pigeon)`)
	assert.Contains(t, msgs, `steps[5].role: failed "role" (value sideways)`)
	assert.Contains(t, msgs, `steps[1]: pending step cannot run "like"`)
	assert.Contains(t, msgs, `steps[2]: duplicate ref "b"`)
	assert.Contains(t, msgs, `steps[2]: port "bottom" of "a" already taken by "b"`)
	assert.Contains(t, msgs, `steps[3]: parent_ref "zzz" does not name an earlier step`)
	assert.Contains(t, msgs, `steps[4]: port "bottom" not allowed below pending step "b"`)
	assert.Contains(t, msgs, `steps[4]: delay step needs a delay`)
	assert.Contains(t, msgs, `steps[5]: port "left" not allowed below root step "a"`)
}

func TestValidateOrdered_RootRules(t *testing.T) {
	errs := ValidateOrdered(&OrderedSequence{
		Channel: domain.ChannelLinkedIn,
		Steps: []Step{
			{Ref: "a", Role: domain.RolePending, Command: domain.CommandNone},
			{Ref: "b", ParentRef: "a", Port: domain.PortBottom, Role: domain.RoleRoot, Command: domain.CommandNone},
		},
	})
	require.Len(t, errs, 3)
	assert.EqualError(t, errs[0], `steps[0]: first step must be the root, got "pending"`)
	assert.EqualError(t, errs[1], "steps[1]: only the first step may be the root")

	assert.NotEmpty(t, ValidateOrdered(&OrderedSequence{Channel: domain.ChannelLinkedIn}))
	assert.NotEmpty(t, ValidateOrdered(nil))
}

func TestHydrate_InvalidDocument(t *testing.T) {
	_, err := Hydrate(&OrderedSequence{
		Channel: domain.ChannelLinkedIn,
		Steps: []Step{
			{Ref: "a", Role: domain.RoleRoot, Command: domain.CommandNone},
			{Ref: "b", ParentRef: "a", Port: domain.PortBottom, Role: domain.RolePending, Command: domain.CommandNone},
		},
	})
	require.Error(t, err)
	var invalid *InvalidError
	require.ErrorAs(t, err, &invalid)
	assert.Len(t, invalid.Errs, 1)
	assert.Contains(t, err.Error(), "1 problem(s)")
}

func TestCodec_RoundTripBothFormats(t *testing.T) {
	seq := Flatten(buildBranchingDraft(t))
	for _, f := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(f), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, Encode(&buf, seq, f))
			decoded, err := Decode(buf.Bytes(), f)
			require.NoError(t, err)
			assert.Equal(t, seq, decoded)
		})
	}
}

func TestDecode_RejectsUnknownFields(t *testing.T) {
	_, err := Decode([]byte(`{"name":"x","channel":"linkedin","steps":[],"extra":1}`), FormatJSON)
	assert.Error(t, err)
	_, err = Decode([]byte("name: x\nbogus: true\n"), FormatYAML)
	assert.Error(t, err)
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("YML")
	require.NoError(t, err)
	assert.Equal(t, FormatYAML, f)
	_, err = ParseFormat("xml")
	assert.Error(t, err)
	_, err = FormatFromPath("noext")
	assert.Error(t, err)
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	seq := Flatten(buildBranchingDraft(t))

	path := filepath.Join(dir, "plan.yaml")
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, seq, FormatYAML))
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, seq, loaded)

	_, err = LoadFile(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
	_, err = LoadFile("")
	assert.Error(t, err)
}

func TestBuiltins_AllHydrateAndVerify(t *testing.T) {
	names, err := Builtins()
	require.NoError(t, err)
	require.Equal(t, []string{"connect-and-follow-up", "inmail-nurture", "invite-or-withdraw"}, names)

	for _, name := range names {
		t.Run(name, func(t *testing.T) {
			seq, err := Builtin(name)
			require.NoError(t, err)
			d, err := Hydrate(seq)
			require.NoError(t, err)
			res := verify.Verify(d, verify.Options{RequireTerminatedBranches: true})
			assert.True(t, res.Valid, "builtin %s: %s", name, res.Message)
			assert.Equal(t, seq, Flatten(d))
		})
	}

	_, err = Builtin("nope")
	assert.Error(t, err)
}

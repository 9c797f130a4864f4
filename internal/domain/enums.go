package domain

import "fmt"

// NodeRole is the structural shape of a sequence node. It decides how many
// outgoing edges the node may carry and on which ports.
type NodeRole string

const (
	RoleRoot        NodeRole = "root"
	RoleSingleChild NodeRole = "single_child"
	RoleBranching   NodeRole = "branching"
	RolePending     NodeRole = "pending"
	RoleTerminal    NodeRole = "terminal"
	RoleDelay       NodeRole = "delay"
)

// ValidNodeRoles is the canonical set of accepted role strings.
var ValidNodeRoles = map[NodeRole]bool{
	RoleRoot: true, RoleSingleChild: true, RoleBranching: true,
	RolePending: true, RoleTerminal: true, RoleDelay: true,
}

func (r NodeRole) Valid() bool { return ValidNodeRoles[r] }

// Command is the outreach action a node performs.
type Command string

const (
	CommandNone           Command = "none"
	CommandMessage        Command = "message"
	CommandInvite         Command = "invite"
	CommandInEmail        Command = "inemail"
	CommandEndorse        Command = "endorse"
	CommandFollow         Command = "follow"
	CommandLike           Command = "like"
	CommandWithdrawInvite Command = "withdraw_invite"
	CommandEnd            Command = "end"
)

// Actions lists the commands an operator can pick for a step, in menu order.
var Actions = []Command{
	CommandMessage,
	CommandInEmail,
	CommandInvite,
	CommandEndorse,
	CommandFollow,
	CommandLike,
	CommandWithdrawInvite,
}

var validCommands = map[Command]bool{
	CommandNone: true, CommandMessage: true, CommandInvite: true,
	CommandInEmail: true, CommandEndorse: true, CommandFollow: true,
	CommandLike: true, CommandWithdrawInvite: true, CommandEnd: true,
}

func (c Command) Valid() bool { return validCommands[c] }

// IsAction reports whether c can be chosen for a step (anything but NONE/END).
func (c Command) IsAction() bool {
	return c.Valid() && c != CommandNone && c != CommandEnd
}

// UsesTemplate reports whether the command carries message text.
func (c Command) UsesTemplate() bool {
	return c == CommandMessage || c == CommandInEmail
}

// Label is the human-readable command name used by renderers.
func (c Command) Label() string {
	switch c {
	case CommandNone:
		return "(choose action)"
	case CommandMessage:
		return "Send message"
	case CommandInvite:
		return "Connection invite"
	case CommandInEmail:
		return "Send InMail"
	case CommandEndorse:
		return "Endorse skills"
	case CommandFollow:
		return "Follow"
	case CommandLike:
		return "Like latest post"
	case CommandWithdrawInvite:
		return "Withdraw invite"
	case CommandEnd:
		return "End of sequence"
	}
	return string(c)
}

// ParseCommand maps a user-supplied string onto a Command.
func ParseCommand(s string) (Command, error) {
	c := Command(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown command %q", s)
	}
	return c, nil
}

// Port names an edge attachment point on a node.
type Port string

const (
	PortTop    Port = "top"
	PortBottom Port = "bottom"
	PortLeft   Port = "left"
	PortRight  Port = "right"
)

func (p Port) Valid() bool {
	switch p {
	case PortTop, PortBottom, PortLeft, PortRight:
		return true
	}
	return false
}

// ChannelType identifies the automation channel a sequence targets.
type ChannelType string

const (
	ChannelLinkedIn       ChannelType = "linkedin"
	ChannelSalesNavigator ChannelType = "sales_navigator"
	ChannelRecruiter      ChannelType = "recruiter"
)

// ValidChannelTypes is the canonical set of accepted channel strings.
var ValidChannelTypes = map[ChannelType]bool{
	ChannelLinkedIn: true, ChannelSalesNavigator: true, ChannelRecruiter: true,
}

func (c ChannelType) Valid() bool { return ValidChannelTypes[c] }

// ParseChannelType maps a user-supplied string onto a ChannelType. The empty
// string yields the default channel.
func ParseChannelType(s string) (ChannelType, error) {
	if s == "" {
		return ChannelLinkedIn, nil
	}
	c := ChannelType(s)
	if !c.Valid() {
		return "", fmt.Errorf("unknown channel type %q", s)
	}
	return c, nil
}

// DelayUnit is the granularity of a delay step.
type DelayUnit string

const (
	UnitMinutes DelayUnit = "minutes"
	UnitHours   DelayUnit = "hours"
	UnitDays    DelayUnit = "days"
	UnitWeeks   DelayUnit = "weeks"
)

// DelayUnits lists the units in ascending order.
var DelayUnits = []DelayUnit{UnitMinutes, UnitHours, UnitDays, UnitWeeks}

func (u DelayUnit) Valid() bool {
	switch u {
	case UnitMinutes, UnitHours, UnitDays, UnitWeeks:
		return true
	}
	return false
}

// ParseDelayUnit maps a user-supplied string onto a DelayUnit.
func ParseDelayUnit(s string) (DelayUnit, error) {
	u := DelayUnit(s)
	if !u.Valid() {
		return "", fmt.Errorf("unknown delay unit %q", s)
	}
	return u, nil
}

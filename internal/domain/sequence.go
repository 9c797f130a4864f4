package domain

import (
	"fmt"
	"time"
)

// Position is the canvas hint for a node. The engine stores it and never
// interprets it.
type Position struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// IsZero reports whether the hint was never set.
func (p Position) IsZero() bool { return p.X == 0 && p.Y == 0 }

// TextTemplate is the payload of text-bearing commands. Subjects are only
// meaningful for InMail.
type TextTemplate struct {
	PrimarySubject  string `json:"primary_subject,omitempty" yaml:"primary_subject,omitempty"`
	PrimaryText     string `json:"primary_text,omitempty" yaml:"primary_text,omitempty"`
	FallbackSubject string `json:"fallback_subject,omitempty" yaml:"fallback_subject,omitempty"`
	FallbackText    string `json:"fallback_text,omitempty" yaml:"fallback_text,omitempty"`
}

// DelaySetting is the payload of a DELAY node. Count zero means no wait.
type DelaySetting struct {
	Count int       `json:"count" yaml:"count"`
	Unit  DelayUnit `json:"unit" yaml:"unit"`
}

// Duration converts the setting into wall-clock time.
func (d DelaySetting) Duration() time.Duration {
	n := time.Duration(d.Count)
	switch d.Unit {
	case UnitMinutes:
		return n * time.Minute
	case UnitHours:
		return n * time.Hour
	case UnitDays:
		return n * 24 * time.Hour
	case UnitWeeks:
		return n * 7 * 24 * time.Hour
	}
	return 0
}

func (d DelaySetting) String() string {
	if d.Count == 0 {
		return "no delay"
	}
	return fmt.Sprintf("wait %d %s", d.Count, d.Unit)
}

// Configuration is the command-specific payload of a node. At most one of
// the fields is set.
type Configuration struct {
	Template *TextTemplate `json:"template,omitempty" yaml:"template,omitempty"`
	Delay    *DelaySetting `json:"delay,omitempty" yaml:"delay,omitempty"`
}

// IsEmpty reports whether no payload is stored.
func (c Configuration) IsEmpty() bool {
	return c.Template == nil && c.Delay == nil
}

// Clone returns a deep copy so callers cannot alias engine state.
func (c Configuration) Clone() Configuration {
	var out Configuration
	if c.Template != nil {
		t := *c.Template
		out.Template = &t
	}
	if c.Delay != nil {
		d := *c.Delay
		out.Delay = &d
	}
	return out
}

// SequenceNode is one step of a draft.
type SequenceNode struct {
	ID       string
	Role     NodeRole
	Command  Command
	Config   Configuration
	Position Position
}

// Clone returns a deep copy of the node.
func (n SequenceNode) Clone() SequenceNode {
	n.Config = n.Config.Clone()
	return n
}

// SequenceEdge links a parent port to a child's TOP port.
type SequenceEdge struct {
	ID         string
	SourceID   string
	SourcePort Port
	TargetID   string
	TargetPort Port
}

// DraftRecord is the persisted header of a draft.
type DraftRecord struct {
	ID        string
	Name      string
	Channel   ChannelType
	Source    string // builtin name or file path the draft was seeded from
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SavedSequence is the header of a sequence accepted by save.
type SavedSequence struct {
	ID        string
	DraftID   string
	Name      string
	Channel   ChannelType
	StepCount int
	SavedAt   time.Time
}

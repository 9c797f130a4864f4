// Package serializer converts drafts to and from the ordered,
// parent-referencing representation handed to persistence.
package serializer

import (
	"github.com/alexanderramin/cadence/internal/domain"
)

// OrderedSequence is a draft flattened into traversal order. Every step
// after the first names its parent by ref, and parents always precede their
// children.
type OrderedSequence struct {
	Name    string             `json:"name" yaml:"name"`
	Channel domain.ChannelType `json:"channel" yaml:"channel" validate:"required,channel"`
	Steps   []Step             `json:"steps" yaml:"steps" validate:"required,min=1,dive"`
}

// Step is one node of an OrderedSequence.
type Step struct {
	Ref       string               `json:"ref" yaml:"ref" validate:"required"`
	ParentRef string               `json:"parent_ref,omitempty" yaml:"parent_ref,omitempty"`
	Port      domain.Port          `json:"port,omitempty" yaml:"port,omitempty" validate:"omitempty,oneof=bottom left right"`
	Role      domain.NodeRole      `json:"role" yaml:"role" validate:"required,role"`
	Command   domain.Command       `json:"command" yaml:"command" validate:"required,command"`
	Template  *domain.TextTemplate `json:"template,omitempty" yaml:"template,omitempty"`
	Delay     *Delay               `json:"delay,omitempty" yaml:"delay,omitempty"`
	Position  *domain.Position     `json:"position,omitempty" yaml:"position,omitempty"`
}

// Delay is the wire form of a delay setting.
type Delay struct {
	Count int              `json:"count" yaml:"count" validate:"gte=0"`
	Unit  domain.DelayUnit `json:"unit" yaml:"unit" validate:"required,delay_unit"`
}

// Len is the number of steps.
func (s *OrderedSequence) Len() int { return len(s.Steps) }

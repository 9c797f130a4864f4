package cli

import (
	"fmt"
	"strings"

	"github.com/alexanderramin/cadence/internal/domain"
	"github.com/alexanderramin/cadence/internal/serializer"
	"github.com/spf13/pflag"
)

// actionFlag accepts any selectable action.
type actionFlag struct{ v *domain.Command }

var _ pflag.Value = actionFlag{}

func (f actionFlag) String() string {
	if f.v == nil {
		return ""
	}
	return string(*f.v)
}

func (f actionFlag) Set(s string) error {
	c, err := domain.ParseCommand(strings.ToLower(s))
	if err != nil || !c.IsAction() {
		return fmt.Errorf("must be one of %s", joinCommands(domain.Actions))
	}
	*f.v = c
	return nil
}

func (actionFlag) Type() string { return "action" }

// unitFlag accepts a delay unit.
type unitFlag struct{ v *domain.DelayUnit }

func (f unitFlag) String() string {
	if f.v == nil {
		return ""
	}
	return string(*f.v)
}

func (f unitFlag) Set(s string) error {
	u, err := domain.ParseDelayUnit(strings.ToLower(s))
	if err != nil {
		return fmt.Errorf("must be one of minutes|hours|days|weeks")
	}
	*f.v = u
	return nil
}

func (unitFlag) Type() string { return "unit" }

// channelFlag accepts a channel type.
type channelFlag struct{ v *domain.ChannelType }

func (f channelFlag) String() string {
	if f.v == nil {
		return ""
	}
	return string(*f.v)
}

func (f channelFlag) Set(s string) error {
	c, err := domain.ParseChannelType(strings.ToLower(s))
	if err != nil {
		return fmt.Errorf("must be one of linkedin|sales_navigator|recruiter")
	}
	*f.v = c
	return nil
}

func (channelFlag) Type() string { return "channel" }

// formatFlag accepts a document format.
type formatFlag struct{ v *serializer.Format }

func (f formatFlag) String() string {
	if f.v == nil {
		return ""
	}
	return string(*f.v)
}

func (f formatFlag) Set(s string) error {
	format, err := serializer.ParseFormat(s)
	if err != nil {
		return err
	}
	*f.v = format
	return nil
}

func (formatFlag) Type() string { return "format" }

func joinCommands(cmds []domain.Command) string {
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = string(c)
	}
	return strings.Join(names, "|")
}

package cli

import "github.com/charmbracelet/bubbles/key"

type editorKeyMap struct {
	Up        key.Binding
	Down      key.Binding
	Add       key.Binding
	Delay     key.Binding
	Longer    key.Binding
	Shorter   key.Binding
	Unit      key.Binding
	End       key.Binding
	Reopen    key.Binding
	Remove    key.Binding
	Truncate  key.Binding
	Configure key.Binding
	Save      key.Binding
	Quit      key.Binding
	Select    key.Binding
	Back      key.Binding
}

func defaultEditorKeys() editorKeyMap {
	return editorKeyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Delay:     key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delay")),
		Longer:    key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+/-", "wait")),
		Shorter:   key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "shorter")),
		Unit:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "unit")),
		End:       key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "end")),
		Reopen:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reopen")),
		Remove:    key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "remove")),
		Truncate:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "truncate")),
		Configure: key.NewBinding(key.WithKeys("c", "enter"), key.WithHelp("c", "configure")),
		Save:      key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "save")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Select:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "select")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
	}
}

// ShortHelp lists the bindings shown in the browse-mode help bar.
func (k editorKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Add, k.Delay, k.Longer, k.Unit, k.End, k.Reopen, k.Remove, k.Truncate, k.Configure, k.Save, k.Quit}
}

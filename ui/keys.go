package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Send     key.Binding
	Complete key.Binding
	Prev     key.Binding
	Next     key.Binding
	Stop     key.Binding
	Clear    key.Binding
	Note     key.Binding
	Copy     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Send")),
		Complete: key.NewBinding(key.WithKeys("tab"), key.WithHelp("Tab", "Complete command")),
		Prev:     key.NewBinding(key.WithKeys("up"), key.WithHelp("↑", "Previous")),
		Next:     key.NewBinding(key.WithKeys("down"), key.WithHelp("↓", "Next")),
		Stop:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("Esc", "Stop")),
		Clear:    key.NewBinding(key.WithKeys("ctrl+l"), key.WithHelp("Ctrl+L", "Clear chat")),
		Note:     key.NewBinding(key.WithKeys("ctrl+n"), key.WithHelp("Ctrl+N", "Note context")),
		Copy:     key.NewBinding(key.WithKeys("ctrl+y"), key.WithHelp("Ctrl+Y", "Copy answer")),
		PageUp:   key.NewBinding(key.WithKeys("pgup"), key.WithHelp("PgUp", "Scroll up")),
		PageDown: key.NewBinding(key.WithKeys("pgdown"), key.WithHelp("PgDn", "Scroll down")),
		Help:     key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Help")),
		Quit:     key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("Ctrl+C", "Quit")),
	}
}

// footer lists the bindings shown under the input.
func (k keyMap) footer(busy bool) string {
	if busy {
		return FormatFooter(k.Stop.Help().Key, k.Stop.Help().Desc, k.Quit.Help().Key, k.Quit.Help().Desc)
	}
	return FormatFooter(
		k.Send.Help().Key, k.Send.Help().Desc,
		k.Note.Help().Key, k.Note.Help().Desc,
		k.Help.Help().Key, k.Help.Help().Desc,
		k.Quit.Help().Key, k.Quit.Help().Desc,
	)
}

func (k keyMap) all() []key.Binding {
	return []key.Binding{
		k.Send, k.Complete, k.Prev, k.Next, k.Stop, k.Clear,
		k.Note, k.Copy, k.PageUp, k.PageDown, k.Help, k.Quit,
	}
}

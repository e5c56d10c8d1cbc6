package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Hit      key.Binding
	Miss     key.Binding
	Shitsu   key.Binding
	Toggle   key.Binding
	Left     key.Binding
	Right    key.Binding
	Register key.Binding
	Refresh  key.Binding
	Close    key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Hit:      key.NewBinding(key.WithKeys("o", "O"), key.WithHelp("o", "hit")),
		Miss:     key.NewBinding(key.WithKeys("x", "X"), key.WithHelp("x", "miss")),
		Shitsu:   key.NewBinding(key.WithKeys("/", "s"), key.WithHelp("/", "shitsu")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "cycle")),
		Left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev arrow")),
		Right:    key.NewBinding(key.WithKeys("right", "l", "tab"), key.WithHelp("→/l", "next arrow")),
		Register: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "register set")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "save")),
		Close:    key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "close session")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "more")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c", "esc"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Register, k.Refresh, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Hit, k.Miss, k.Shitsu, k.Toggle},
		{k.Left, k.Right, k.Register},
		{k.Refresh, k.Close, k.Help, k.Quit},
	}
}

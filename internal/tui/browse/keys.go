package browse

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Locale  key.Binding
	Refresh key.Binding
	Search  key.Binding
	Submit  key.Binding
	Cancel  key.Binding
	Quit    key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Locale: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "language"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Search: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "search"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "done"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "clear"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// shortHelp returns the bindings shown in the footer.
func (k keyMap) shortHelp(searchEnabled, typing bool) []key.Binding {
	if typing {
		return []key.Binding{k.Submit, k.Cancel}
	}
	bindings := []key.Binding{k.Locale, k.Refresh}
	if searchEnabled {
		bindings = append(bindings, k.Search)
	}
	return append(bindings, k.Quit)
}

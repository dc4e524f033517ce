package query

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/campusweb/sitedata/internal/locale"
)

// LocaleChangedMsg is sent when the observed locale source changes.
type LocaleChangedMsg struct {
	Locale string
}

// LocaleWatcher turns a locale source subscription into Bubble Tea messages.
type LocaleWatcher struct {
	ch     <-chan string
	cancel func()
}

// WatchLocale subscribes to src. Call Next to wait for the first change and
// again after every LocaleChangedMsg; call Close when the view goes away.
func WatchLocale(src locale.Source) *LocaleWatcher {
	ch, cancel := src.Subscribe()
	return &LocaleWatcher{ch: ch, cancel: cancel}
}

// Next returns a Cmd that blocks until the locale changes. It yields nil
// once the watcher is closed.
func (w *LocaleWatcher) Next() tea.Cmd {
	return func() tea.Msg {
		code, ok := <-w.ch
		if !ok {
			return nil
		}
		return LocaleChangedMsg{Locale: code}
	}
}

// Close ends the subscription.
func (w *LocaleWatcher) Close() {
	w.cancel()
}

package tui

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// SpinnerStyle selects the spinner animation.
type SpinnerStyle int

const (
	SpinnerDots SpinnerStyle = iota
	SpinnerLine
	SpinnerPoints
	SpinnerMeter
)

// spinnerModel shows an animated line until the work it waits on reports done.
type spinnerModel struct {
	spinner  spinner.Model
	message  string
	styles   *Styles
	done     bool
	err      error
	quitting bool
}

// SpinnerOption configures a Spinner.
type SpinnerOption func(*Spinner)

// WithSpinnerStyle sets the animation.
func WithSpinnerStyle(style SpinnerStyle) SpinnerOption {
	return func(s *Spinner) { s.style = style }
}

// WithSpinnerStyles sets the colors used for the spinner and message.
func WithSpinnerStyles(styles *Styles) SpinnerOption {
	return func(s *Spinner) { s.styles = styles }
}

// WithSpinnerOutput sets where the spinner is drawn. Defaults to stderr so
// command output on stdout stays clean.
func WithSpinnerOutput(w io.Writer) SpinnerOption {
	return func(s *Spinner) { s.output = w }
}

// WithSpinnerInput sets the key input. A nil reader disables keys.
func WithSpinnerInput(r io.Reader) SpinnerOption {
	return func(s *Spinner) {
		s.input = r
		s.inputSet = true
	}
}

func newSpinnerModel(message string, style SpinnerStyle, styles *Styles) spinnerModel {
	s := spinner.New()
	switch style {
	case SpinnerLine:
		s.Spinner = spinner.Line
	case SpinnerPoints:
		s.Spinner = spinner.Points
	case SpinnerMeter:
		s.Spinner = spinner.Meter
	default:
		s.Spinner = spinner.Dot
	}
	s.Style = lipgloss.NewStyle().Foreground(styles.theme.Primary)
	return spinnerModel{spinner: s, message: message, styles: styles}
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

// spinnerDoneMsg reports that the awaited work returned.
type spinnerDoneMsg struct {
	err error
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	case spinnerDoneMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

// View is empty once finished: the command prints its own result.
func (m spinnerModel) View() string {
	if m.done || m.quitting {
		return ""
	}
	return m.spinner.View() + " " + m.styles.Muted.Render(m.message) + "\n"
}

// Spinner shows a loading line while work runs.
type Spinner struct {
	message  string
	style    SpinnerStyle
	styles   *Styles
	output   io.Writer
	input    io.Reader
	inputSet bool
}

// NewSpinner creates a spinner showing message.
func NewSpinner(message string, opts ...SpinnerOption) *Spinner {
	s := &Spinner{message: message}
	for _, opt := range opts {
		opt(s)
	}
	if s.styles == nil {
		s.styles = NewStyles()
	}
	if s.output == nil {
		s.output = os.Stderr
	}
	return s
}

// Run calls fn while the spinner is drawn and returns fn's error. Quitting
// the spinner cancels the context passed to fn, waits for fn to return, and
// reports context.Canceled.
func (s *Spinner) Run(ctx context.Context, fn func(context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	opts := []tea.ProgramOption{tea.WithOutput(s.output), tea.WithContext(ctx)}
	if s.inputSet {
		opts = append(opts, tea.WithInput(s.input))
	}
	p := tea.NewProgram(newSpinnerModel(s.message, s.style, s.styles), opts...)

	result := make(chan error, 1)
	go func() {
		err := fn(ctx)
		result <- err
		p.Send(spinnerDoneMsg{err: err})
	}()

	// A spinner that fails to draw does not abort the work.
	final, _ := p.Run()
	m, ok := final.(spinnerModel)
	quit := ok && m.quitting
	if quit {
		cancel()
	}
	err := <-result
	if quit {
		return context.Canceled
	}
	return err
}

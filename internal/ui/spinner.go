package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type doneMsg struct{ err error }

type spinnerModel struct {
	spinner spinner.Model
	text    string
	done    bool
}

func (m spinnerModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m spinnerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	case doneMsg:
		m.done = true
		return m, tea.Quit
	}
	return m, nil
}

func (m spinnerModel) View() string {
	if m.done {
		return ""
	}
	return fmt.Sprintf(" %s %s\n", m.spinner.View(), lipgloss.NewStyle().Foreground(ColorCyan).Render(m.text))
}

// RunWithSpinner runs f while drawing a spinner on out. When animate is
// false (out is not a terminal) f simply runs. The spinner reads no input;
// interrupting f is the caller's job through its context.
func RunWithSpinner(out io.Writer, animate bool, text string, f func() error) error {
	if !animate {
		return f()
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPurple)

	p := tea.NewProgram(spinnerModel{spinner: s, text: text},
		tea.WithOutput(out),
		tea.WithInput(nil),
		tea.WithoutSignalHandler(),
	)

	errChan := make(chan error, 1)
	go func() {
		err := f()
		errChan <- err
		p.Send(doneMsg{err: err})
	}()

	// A failed animation does not affect the work.
	_, _ = p.Run()
	return <-errChan
}

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/leonardotrapani/webtranscriber/internal/client"
	"github.com/leonardotrapani/webtranscriber/internal/session"
)

// SnapshotMsg carries a session change into the live view.
type SnapshotMsg session.Snapshot

// DoneMsg reports that the stream returned.
type DoneMsg struct {
	Result client.Result
	Err    error
}

// chrome is the number of lines the view uses around the transcript.
const chrome = 6

// LiveModel renders a session while its transcript streams in.
type LiveModel struct {
	snap    session.Snapshot
	spinner spinner.Model
	width   int
	height  int
	onClear func()

	done    bool
	aborted bool
	result  client.Result
	err     error
}

func NewLiveModel(initial session.Snapshot, onClear func()) LiveModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ColorPrimary)
	return LiveModel{snap: initial, spinner: s, onClear: onClear}
}

func (m LiveModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m LiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.aborted = !m.done
			return m, tea.Quit
		case "c":
			if !m.done && m.onClear != nil {
				// off the event loop: clearing publishes a snapshot back to us
				onClear := m.onClear
				return m, func() tea.Msg {
					onClear()
					return nil
				}
			}
		}

	case SnapshotMsg:
		// observers may deliver out of order
		if msg.Seq >= m.snap.Seq {
			m.snap = session.Snapshot(msg)
		}

	case DoneMsg:
		m.done = true
		m.result = msg.Result
		m.err = msg.Err
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

func (m LiveModel) View() string {
	var b strings.Builder

	b.WriteString(StyleHeader.Render("webtranscriber"))
	if m.snap.File != "" {
		b.WriteString("  " + StyleMuted.Render(filepath.Base(m.snap.File)))
	}
	b.WriteString("  " + stateBadge(m.snap.State) + "\n\n")

	lines := m.snap.Lines
	if !m.done && m.height > chrome && len(lines) > m.height-chrome {
		lines = lines[len(lines)-(m.height-chrome):]
	}
	for _, l := range lines {
		b.WriteString(renderLine(l))
		b.WriteString("\n")
	}
	if len(m.snap.Lines) == 0 && !m.done {
		b.WriteString(StyleMuted.Render("waiting for the first line..."))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.statusLine())
	b.WriteString("\n")
	return b.String()
}

func (m LiveModel) statusLine() string {
	switch {
	case m.aborted:
		return StyleError.Render("aborted")
	case !m.done:
		return fmt.Sprintf("%s transcribing  %s   %s",
			m.spinner.View(),
			StyleMuted.Render(fmt.Sprintf("%d lines", len(m.snap.Lines))),
			StyleSubtle.Render("c clear • q quit"))
	case m.err != nil:
		return StyleError.Render(m.err.Error())
	case m.snap.State == session.Idle:
		return StyleMuted.Render("cleared")
	}

	status := lipgloss.NewStyle().Foreground(statusColor(m.result.Status)).Bold(true).Render(string(m.result.Status))
	line := fmt.Sprintf("%s  %d lines", status, m.result.Lines)
	if m.result.JobID != "" {
		line += StyleMuted.Render("  job " + m.result.JobID)
	}
	if m.result.Err != nil {
		line += "\n" + StyleError.Render(m.result.Err.Error())
	}
	return line
}

// Aborted reports whether the user quit before the stream finished.
func (m LiveModel) Aborted() bool {
	return m.aborted
}

// RunLive starts the session's stream and shows it until it finishes.
// Quitting early cancels the stream.
func RunLive(ctx context.Context, sess *session.Session) (client.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	p := tea.NewProgram(NewLiveModel(sess.Snapshot(), sess.Clear))
	sess.Observe(func(s session.Snapshot) { p.Send(SnapshotMsg(s)) })

	type outcome struct {
		result client.Result
		err    error
	}
	out := make(chan outcome, 1)
	go func() {
		res, err := sess.Start(ctx)
		out <- outcome{res, err}
		p.Send(DoneMsg{Result: res, Err: err})
	}()

	final, err := p.Run()
	if err != nil {
		cancel()
		<-out
		return client.Result{}, fmt.Errorf("live view: %w", err)
	}
	if m, ok := final.(LiveModel); ok && m.Aborted() {
		cancel()
	}

	o := <-out
	return o.result, o.err
}

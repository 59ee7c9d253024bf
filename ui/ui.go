// Package ui provides the interactive chat.
package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/termenv"

	"github.com/durgesh-ai/durgesh/internal/session"
)

const (
	statusMessageTimeout = 3 * time.Second
	quitCommand          = "quit"
	ellipsis             = "…"
)

// Responder answers one utterance.
type Responder interface {
	Respond(ctx context.Context, input string) session.Turn
}

// NewProgram returns a new Tea program.
func NewProgram(cfg Config, r Responder) *tea.Program {
	log.Debug("Starting chat", "watch", cfg.Watch, "rules", cfg.RulesPath)
	return tea.NewProgram(newModel(cfg, r))
}

type (
	turnMsg                 session.Turn
	reloadMsg               struct{}
	reloadedMsg             struct{ err error }
	statusMessageTimeoutMsg struct{}
)

type model struct {
	cfg       Config
	responder Responder

	input   textinput.Model
	spinner spinner.Model
	width   int

	turns   []session.Turn
	busy    bool
	pending string
	cancel  context.CancelFunc

	status  string
	isError bool

	watcher *session.Watcher
}

func newModel(cfg Config, r Responder) model {
	if cfg.History <= 0 {
		cfg.History = 100
	}

	ti := textinput.New()
	ti.Prompt = cfg.Prompt
	ti.Placeholder = "say something"
	ti.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = sp.Style.Foreground(darkGreen)

	m := model{
		cfg:       cfg,
		responder: r,
		input:     ti,
		spinner:   sp,
	}

	if cfg.Watch && cfg.RulesPath != "" {
		w, err := session.NewWatcher(cfg.RulesPath)
		if err != nil {
			log.Error("Unable to watch rules", "path", cfg.RulesPath, "error", err)
		} else {
			m.watcher = w
		}
	}
	return m
}

func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{textinput.Blink}
	if m.watcher != nil {
		cmds = append(cmds, m.watchFile)
	}
	return tea.Batch(cmds...)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = max(msg.Width-len(m.cfg.Prompt)-1, 0)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m, m.quit()

		case "esc":
			if m.busy && m.cancel != nil {
				m.cancel()
			}
			return m, nil

		case "ctrl+y":
			last := m.lastReply()
			if last == "" {
				return m, nil
			}
			// Copy using OSC 52
			termenv.Copy(last)
			// Copy using native system clipboard
			_ = clipboard.WriteAll(last)
			cmd := m.showStatusMessage("Copied reply", false)
			return m, cmd

		case "enter":
			if m.busy {
				return m, nil
			}
			// Empty input is looked up like any other, as in line mode.
			text := m.input.Value()
			if text == quitCommand {
				return m, m.quit()
			}
			m.input.Reset()
			m.busy = true
			m.pending = text

			var cmd tea.Cmd
			m.cancel, cmd = m.respond(text)
			return m, tea.Batch(cmd, m.spinner.Tick)
		}

	case turnMsg:
		m.busy = false
		m.pending = ""
		m.cancel = nil
		m.turns = append(m.turns, session.Turn(msg))
		if n := len(m.turns) - m.cfg.History; n > 0 {
			m.turns = m.turns[n:]
		}
		return m, nil

	case spinner.TickMsg:
		if !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case reloadMsg:
		return m, tea.Batch(m.reload(), m.watchFile)

	case reloadedMsg:
		if msg.err != nil {
			log.Error("Unable to reload rules", "error", msg.err)
			cmd := m.showStatusMessage("Reload failed: "+msg.err.Error(), true)
			return m, cmd
		}
		cmd := m.showStatusMessage("Reloaded rules", false)
		return m, cmd

	case statusMessageTimeoutMsg:
		m.status = ""
		m.isError = false
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m model) View() string {
	var b strings.Builder

	for _, t := range m.turns {
		b.WriteString(m.turnView(t))
	}

	if m.busy {
		fmt.Fprintf(&b, "%s\n", userStyle(m.truncate(m.cfg.Prompt+m.pending)))
		fmt.Fprintf(&b, "%s replying\n", m.spinner.View())
	} else {
		b.WriteString(m.input.View())
		b.WriteString("\n")
	}

	b.WriteString(m.statusBarView())
	return b.String()
}

func (m model) turnView(t session.Turn) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", userStyle(m.truncate(m.cfg.Prompt+t.Input)))

	var line string
	switch {
	case t.Reply != "":
		line = replyStyle(m.wrap(t.Reply))
		if t.Err != nil {
			line += "\n" + errorStyle(m.wrap(t.Err.Error()))
		}
	case t.Err != nil:
		line = errorStyle(m.wrap(t.Err.Error()))
	default:
		line = missStyle("(no reply)")
	}
	if m.cfg.ShowTimings {
		line += missStyle(fmt.Sprintf(" %s", t.Elapsed.Round(time.Millisecond)))
	}

	fmt.Fprintf(&b, "%s\n\n", indent(line, 2))
	return b.String()
}

func (m model) statusBarView() string {
	if m.status != "" {
		if m.isError {
			return errorStyle(" " + m.truncate(m.status) + " ")
		}
		return statusBarMessageStyle(" " + m.truncate(m.status) + " ")
	}
	help := " enter send • esc stop • ctrl+y copy • ctrl+c quit "
	if m.watcher != nil {
		help += "• watching rules "
	}
	return statusBarNoteStyle(m.truncate(help))
}

func (m model) wrap(s string) string {
	if m.width <= 4 {
		return s
	}
	return wordwrap.String(s, m.width-2)
}

func (m model) truncate(s string) string {
	if m.width <= 0 {
		return s
	}
	return truncate.StringWithTail(s, uint(m.width), ellipsis) //nolint:gosec
}

func (m model) lastReply() string {
	for i := len(m.turns) - 1; i >= 0; i-- {
		if m.turns[i].Reply != "" {
			return m.turns[i].Reply
		}
	}
	return ""
}

func (m *model) showStatusMessage(s string, isError bool) tea.Cmd {
	m.status = s
	m.isError = isError
	return tea.Tick(statusMessageTimeout, func(time.Time) tea.Msg {
		return statusMessageTimeoutMsg{}
	})
}

func (m model) quit() tea.Cmd {
	if m.cancel != nil {
		m.cancel()
	}
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
	return tea.Quit
}

// COMMANDS

func (m model) respond(input string) (context.CancelFunc, tea.Cmd) {
	ctx, cancel := context.WithCancel(context.Background())
	r := m.responder
	return cancel, func() tea.Msg {
		defer cancel()
		return turnMsg(r.Respond(ctx, input))
	}
}

func (m model) watchFile() tea.Msg {
	if err := m.watcher.Next(); err != nil {
		return nil
	}
	return reloadMsg{}
}

func (m model) reload() tea.Cmd {
	reload := m.cfg.Reload
	return func() tea.Msg {
		if reload == nil {
			return reloadedMsg{}
		}
		return reloadedMsg{err: reload()}
	}
}

func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	pad := strings.Repeat(" ", n)
	return pad + strings.ReplaceAll(s, "\n", "\n"+pad)
}

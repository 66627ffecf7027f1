// Package ui is the full-screen chat view. It renders the session state and
// forwards key presses and commands to the session manager; it keeps no
// conversation state of its own.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"ollama-chat/internal/session"
	"ollama-chat/internal/terminal"
)

const helpLine = "Entrée: envoyer · Alt+Entrée/Ctrl+J: nouvelle ligne · Ctrl+O: historique · Ctrl+L: effacer · /help · Ctrl+C: quitter"

// Options configures the view.
type Options struct {
	RenderMarkdown bool
	// MarkdownStyle is a glamour style name or terminal.StyleAuto.
	MarkdownStyle string
	// Notice is shown in the status line until the first command or message.
	Notice string
}

// changeMsg wakes the view after the session changed.
type changeMsg session.Change

type commandResultMsg struct {
	result terminal.Result
	err    error
}

// Model is the bubbletea model of the chat view
type Model struct {
	ctx    context.Context
	mgr    *session.Manager
	opts   Options
	styles Styles

	textarea textarea.Model
	viewport viewport.Model
	spinner  spinner.Model
	renderer *glamour.TermRenderer
	// rendererWidth is the wrap width renderer was built for.
	rendererWidth int

	changes     chan session.Change
	unsubscribe func()

	confirm   *session.Confirmation
	status    string
	statusErr bool

	width  int
	height int
	ready  bool
}

// New creates the view and subscribes it to mgr. Call Close when done.
func New(ctx context.Context, mgr *session.Manager, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Tapez votre message..."
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.KeyMap.InsertNewline.SetEnabled(false)
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	// The session may announce changes from any goroutine. One buffered slot
	// is enough: every wake-up redraws from the current state.
	changes := make(chan session.Change, 1)
	unsubscribe := mgr.Subscribe(func(c session.Change) {
		select {
		case changes <- c:
		default:
		}
	})

	return Model{
		ctx:         ctx,
		mgr:         mgr,
		opts:        opts,
		styles:      DefaultStyles(),
		textarea:    ta,
		spinner:     sp,
		changes:     changes,
		unsubscribe: unsubscribe,
		status:      opts.Notice,
		statusErr:   opts.Notice != "",
	}
}

// Close detaches the view from the session.
func (m Model) Close() {
	m.unsubscribe()
}

func waitForChange(ch <-chan session.Change) tea.Cmd {
	return func() tea.Msg {
		return changeMsg(<-ch)
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForChange(m.changes),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.layout()
		return m, nil

	case changeMsg:
		m.layout()
		return m, waitForChange(m.changes)

	case commandResultMsg:
		if msg.result.Quit {
			return m, tea.Quit
		}
		m.applyResult(msg.result, msg.err)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.answerConfirm(msg), nil
		}

		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlO:
			m.mgr.ToggleHistoryPanel()
			return m, nil
		case tea.KeyCtrlL:
			c := m.mgr.RequestClearConversation()
			m.confirm = &c
			return m, nil
		case tea.KeyPgUp, tea.KeyPgDown:
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

		if ev, ok := keyEvent(msg); ok {
			return m.handleEnter(ev)
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// handleEnter runs a slash command or hands the key to the session, which
// submits on a plain Enter. Any other Enter becomes a newline.
func (m Model) handleEnter(ev session.KeyEvent) (tea.Model, tea.Cmd) {
	value := m.textarea.Value()

	if !ev.Shift {
		if cmd, ok := terminal.ParseCommand(value); ok {
			m.textarea.Reset()
			m.status = ""
			return m, m.runCommand(cmd)
		}
	}

	m.mgr.SetInput(value)
	if !m.mgr.HandleSubmitKey(&ev) {
		m.textarea.InsertString("\n")
		return m, nil
	}
	m.textarea.SetValue(m.mgr.Input())
	m.status = ""
	return m, nil
}

func (m Model) runCommand(cmd terminal.Command) tea.Cmd {
	ctx, mgr := m.ctx, m.mgr
	return func() tea.Msg {
		res, err := terminal.Execute(ctx, mgr, cmd)
		return commandResultMsg{result: res, err: err}
	}
}

func (m *Model) applyResult(res terminal.Result, err error) {
	switch {
	case err != nil:
		m.setStatus(fmt.Sprintf("Erreur : %v", err), true)
	case res.Confirm != nil:
		m.confirm = res.Confirm
	default:
		m.setStatus(res.Output, false)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
	m.layout()
}

func (m Model) answerConfirm(msg tea.KeyMsg) Model {
	c := *m.confirm
	m.confirm = nil

	var err error
	if msg.Type == tea.KeyRunes && terminal.IsAffirmative(msg.String()) {
		err = m.mgr.Confirm(c.Token)
	} else {
		err = m.mgr.Cancel(c.Token)
	}
	if err != nil {
		m.setStatus(fmt.Sprintf("Erreur : %v", err), true)
	}
	return m
}

// layout sizes the components for the window and the current state and
// redraws the conversation.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}

	chatWidth := m.width
	if m.mgr.HistoryVisible() {
		chatWidth = m.width - m.panelWidth()
	}

	const headerHeight, helpHeight = 1, 1
	vpHeight := m.height - headerHeight - helpHeight - m.textarea.Height() - lipgloss.Height(m.statusView())
	if vpHeight < 3 {
		vpHeight = 3
	}

	if !m.ready {
		m.viewport = viewport.New(chatWidth, vpHeight)
		m.ready = true
	} else {
		m.viewport.Width = chatWidth
		m.viewport.Height = vpHeight
	}
	m.textarea.SetWidth(m.width)

	if m.opts.RenderMarkdown && m.rendererWidth != chatWidth {
		style := m.opts.MarkdownStyle
		if style == "" {
			style = terminal.StyleAuto
		}
		if r, err := terminal.NewMarkdownRenderer(chatWidth-4, style); err == nil {
			m.renderer = r
			m.rendererWidth = chatWidth
		}
	}

	m.viewport.SetContent(renderMessages(m.mgr.Messages(), m.styles, m.renderer))
	m.viewport.GotoBottom()
}

func (m Model) panelWidth() int {
	return m.width / 3
}

func (m Model) statusView() string {
	switch {
	case m.mgr.IsPending():
		return m.spinner.View() + " L'IA réfléchit..."
	case m.status == "":
		return ""
	case m.statusErr:
		return m.styles.Error.Render(m.status)
	default:
		return m.styles.Meta.Render(m.status)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initialisation..."
	}

	cfg := m.mgr.Config()
	header := m.styles.Header.Render("ollama-chat") +
		m.styles.Meta.Render(fmt.Sprintf(" · modèle %s · température %.1f", cfg.Model, cfg.Temperature))

	body := m.viewport.View()
	if m.mgr.HistoryVisible() {
		inner := m.panelWidth() - 4
		content := renderHistoryPanel(m.mgr.History(), inner, m.styles)
		lines := strings.Split(content, "\n")
		if limit := m.viewport.Height - 2; limit > 0 && len(lines) > limit {
			lines = lines[:limit]
		}
		panel := m.styles.Panel.
			Width(m.panelWidth() - 2).
			Height(m.viewport.Height - 2).
			Render(strings.Join(lines, "\n"))
		body = lipgloss.JoinHorizontal(lipgloss.Top, body, panel)
	}

	input := m.textarea.View()
	if m.confirm != nil {
		input = m.styles.Prompt.Render("? " + m.confirm.Prompt + " (o/N)")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		body,
		m.statusView(),
		input,
		m.styles.Help.Render(helpLine),
	)
}

// Run shows the chat view until the user quits or ctx is cancelled.
func Run(ctx context.Context, mgr *session.Manager, opts Options) error {
	if opts.RenderMarkdown && opts.MarkdownStyle == "" {
		opts.MarkdownStyle = "light"
		if lipgloss.HasDarkBackground() {
			opts.MarkdownStyle = "dark"
		}
	}

	m := New(ctx, mgr, opts)
	defer m.Close()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("failed to run chat view: %w", err)
	}
	return nil
}

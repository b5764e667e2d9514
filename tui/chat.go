// Package tui is the terminal chat client. It drives the same turn processor
// as the web UI, one conversation per process.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"github.com/papercomputeco/docchat/pkg/attachment"
	"github.com/papercomputeco/docchat/pkg/catalog"
	"github.com/papercomputeco/docchat/pkg/conversation"
	"github.com/papercomputeco/docchat/pkg/llm"
)

const (
	// DefaultViewportWidth is the transcript width before the first window size message.
	DefaultViewportWidth = 80
	// DefaultViewportHeight is the transcript height before the first window size message.
	DefaultViewportHeight = 20

	modelsTimeout = 30 * time.Second
)

var errNoProcessor = errors.New("tui: processor is required")

// Options configures a ChatModel.
type Options struct {
	Processor *conversation.Processor
	Catalog   *catalog.Catalog
	Logger    *zap.Logger

	// Model is the initial model identifier (catalog.DefaultModel when empty).
	Model string

	// MarkdownStyle overrides the glamour style detected from the terminal.
	MarkdownStyle string
}

type fragmentMsg string

type turnDoneMsg struct {
	result conversation.TurnResult
}

type modelsMsg []string

// ChatModel is the bubbletea model of the chat client.
type ChatModel struct {
	processor *conversation.Processor
	catalog   *catalog.Catalog
	logger    *zap.Logger

	model   string
	log     conversation.Log
	pairs   []llm.DisplayPair
	pending *attachment.Attachment

	input    textinput.Model
	viewport viewport.Model
	md       *markdown
	width    int
	height   int

	// in-flight turn
	streaming bool
	draft     string
	partial   string
	cancel    context.CancelFunc
	events    <-chan tea.Msg

	status    string
	statusErr bool
}

// NewChatModel creates a chat model with an empty conversation.
func NewChatModel(opts Options) (*ChatModel, error) {
	if opts.Processor == nil {
		return nil, errNoProcessor
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Model == "" {
		opts.Model = catalog.DefaultModel
	}

	ti := textinput.New()
	ti.Placeholder = "Type your message, or /attach a PDF..."
	ti.Prompt = "> "
	ti.Focus()

	vp := viewport.New(DefaultViewportWidth, DefaultViewportHeight)

	m := &ChatModel{
		processor: opts.Processor,
		catalog:   opts.Catalog,
		logger:    opts.Logger,
		model:     opts.Model,
		log:       conversation.Reset(),
		input:     ti,
		viewport:  vp,
		md:        newMarkdown(opts.MarkdownStyle),
		width:     DefaultViewportWidth,
		status:    helpText,
	}
	m.refresh()
	return m, nil
}

// Init starts the cursor blinking.
func (m *ChatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles terminal events and turn progress.
func (m *ChatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.abort()
			return m, tea.Quit
		case "esc":
			if m.streaming {
				m.abort()
				m.setStatus("canceling...", false)
			}
			return m, nil
		case "enter":
			if m.streaming {
				return m, nil
			}
			return m, m.submit()
		case "pgup", "pgdown", "up", "down":
			var cmd tea.Cmd
			m.viewport, cmd = m.viewport.Update(msg)
			return m, cmd
		}

	case fragmentMsg:
		m.partial += string(msg)
		m.refresh()
		return m, waitForEvent(m.events)

	case turnDoneMsg:
		m.finishTurn(msg.result)
		return m, nil

	case modelsMsg:
		m.setStatus("models: "+strings.Join(msg, ", "), false)
		return m, nil

	case tea.MouseMsg:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the header, transcript and input line.
func (m *ChatModel) View() string {
	return fmt.Sprintf("%s\n%s\n%s", m.headerView(), m.viewport.View(), m.footerView())
}

// Conversation returns the current log.
func (m *ChatModel) Conversation() conversation.Log {
	return m.log
}

func (m *ChatModel) submit() tea.Cmd {
	line := m.input.Value()
	c := parseCommand(line)

	switch c.kind {
	case cmdNone:
		if strings.TrimSpace(line) == "" && m.pending == nil {
			return nil
		}
		return m.startTurn(line)

	case cmdAttach:
		if c.arg == "" {
			m.setStatus("usage: /attach <file>", true)
			return nil
		}
		att, err := attachment.Load(c.arg)
		if err != nil {
			m.setStatus(err.Error(), true)
			return nil
		}
		m.pending = att
		m.input.Reset()
		if !att.IsPDF() {
			m.setStatus(fmt.Sprintf("attached %s (only PDF files are read)", att.Name), false)
			return nil
		}
		m.setStatus("attached "+att.Name, false)

	case cmdModel:
		m.input.Reset()
		if c.arg != "" {
			m.model = c.arg
			m.logger.Info("model selected", zap.String("model", m.model))
		}
		m.setStatus("model: "+m.model, false)

	case cmdModels:
		m.input.Reset()
		if m.catalog == nil {
			m.setStatus("models: "+strings.Join(catalog.Fallback(), ", "), false)
			return nil
		}
		m.setStatus("listing models...", false)
		return listModels(m.catalog)

	case cmdClear:
		m.input.Reset()
		m.log = conversation.Reset()
		m.pairs = nil
		m.logger.Info("conversation cleared")
		m.setStatus("conversation cleared", false)
		m.refresh()

	case cmdClearForm:
		m.input.Reset()
		m.pending = nil
		m.setStatus("form cleared", false)

	case cmdQuit:
		return tea.Quit

	case cmdUnknown:
		m.setStatus(fmt.Sprintf("unknown command %s: %s", c.name, helpText), true)
	}

	return nil
}

// startTurn runs the turn in the background. Fragments and the final result
// come back as messages through events.
func (m *ChatModel) startTurn(text string) tea.Cmd {
	ctx, cancel := context.WithCancel(context.Background())
	events := make(chan tea.Msg, 64)

	processor := m.processor
	log := m.log
	in := conversation.TurnInput{Text: text, Attachment: m.pending, Model: m.model}

	go func() {
		defer close(events)
		res := processor.RunTurn(ctx, log, in, func(fragment string) error {
			select {
			case events <- fragmentMsg(fragment):
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
		events <- turnDoneMsg{result: res}
	}()

	m.streaming = true
	m.cancel = cancel
	m.events = events
	m.draft = text
	if in.Attachment != nil {
		m.draft = strings.TrimSpace(fmt.Sprintf("%s [%s]", text, in.Attachment.Name))
	}
	m.partial = ""
	m.input.Reset()
	m.setStatus(fmt.Sprintf("%s is answering... (esc cancels)", m.model), false)
	m.refresh()

	return waitForEvent(events)
}

func (m *ChatModel) finishTurn(res conversation.TurnResult) {
	if m.cancel != nil {
		m.cancel()
	}
	m.streaming = false
	m.cancel = nil
	m.events = nil
	m.draft, m.partial = "", ""

	m.log = res.Log
	m.pairs = res.Pairs
	m.input.SetValue(res.Input)
	m.input.CursorEnd()

	if res.Err != nil {
		m.setStatus(res.Input, true)
	} else {
		m.pending = nil
		m.setStatus(helpText, false)
	}
	m.refresh()
}

// abort cancels the in-flight turn; its result still arrives as a turnDoneMsg.
func (m *ChatModel) abort() {
	if m.cancel != nil {
		m.cancel()
	}
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func listModels(c *catalog.Catalog) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), modelsTimeout)
		defer cancel()
		return modelsMsg(c.List(ctx))
	}
}

func (m *ChatModel) setStatus(status string, isErr bool) {
	m.status = status
	m.statusErr = isErr
}

func (m *ChatModel) resize(width, height int) {
	m.width = width
	m.height = height

	m.input.Width = max(width-4, 1)
	m.viewport.Width = width
	m.viewport.Height = max(height-lipgloss.Height(m.headerView())-lipgloss.Height(m.footerView()), 1)
	m.refresh()
}

func (m *ChatModel) refresh() {
	width := m.viewport.Width - 4

	var parts []string
	for _, pair := range m.pairs {
		parts = append(parts,
			userStyle.Render("You:"),
			plain(pair.User, width),
			"",
			assistantStyle.Render(m.model+":"),
			m.md.render(pair.Assistant, width),
			"",
		)
	}
	if m.streaming {
		parts = append(parts,
			userStyle.Render("You:"),
			plain(m.draft, width),
			"",
			assistantStyle.Render(m.model+":"),
			plain(m.partial+"▌", width),
		)
	}

	m.viewport.SetContent(strings.Join(parts, newlineChar))
	m.viewport.GotoBottom()
}

func (m *ChatModel) headerView() string {
	info := "model: " + m.model
	if m.pending != nil {
		info += " · attachment: " + m.pending.Name
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("docchat"),
		subtitleStyle.Render(fit(info, m.width-2)),
	)
}

func (m *ChatModel) footerView() string {
	style := statusStyle
	if m.statusErr {
		style = errorStyle
	}
	return footerStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		m.input.View(),
		style.Render(fit(m.status, m.width)),
	))
}

// Run starts the chat client and blocks until the user quits or ctx is canceled.
func Run(ctx context.Context, opts Options) error {
	model, err := NewChatModel(opts)
	if err != nil {
		return fmt.Errorf("failed to create chat model: %w", err)
	}
	defer model.abort()

	p := tea.NewProgram(model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("chat client failed: %w", err)
	}
	return nil
}

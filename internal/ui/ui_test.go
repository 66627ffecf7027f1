package ui

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/session"
	"ollama-chat/internal/terminal"
)

type fakeBackend struct {
	mu       sync.Mutex
	messages []string
	history  []chatapi.HistoryEntry
}

func (f *fakeBackend) Chat(_ context.Context, req chatapi.ChatRequest) (*chatapi.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, req.Message)
	return &chatapi.ChatResponse{Response: "**réponse**", ResponseTime: 120}, nil
}

func (f *fakeBackend) History(context.Context) ([]chatapi.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.history, nil
}

func (f *fakeBackend) RecentHistory(ctx context.Context) ([]chatapi.HistoryEntry, error) {
	return f.History(ctx)
}

func (f *fakeBackend) ClearHistory(context.Context) (string, error) {
	return "ok", nil
}

func (f *fakeBackend) Health(context.Context) (string, error) {
	return "", errors.New("down")
}

func (f *fakeBackend) sent() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.messages...)
}

func setupModel(t *testing.T, backend *fakeBackend) (Model, *session.Manager) {
	t.Helper()

	mgr := session.NewManager(backend, session.Config{Model: "llama2", Temperature: 0.7})
	t.Cleanup(mgr.Close)

	m := New(context.Background(), mgr, Options{})
	t.Cleanup(m.Close)

	m = update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30})
	return m, mgr
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	require.True(t, ok)
	return out
}

func typeText(t *testing.T, m Model, s string) Model {
	t.Helper()
	return update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)})
}

func TestKeyEvent(t *testing.T) {
	tests := []struct {
		name   string
		msg    tea.KeyMsg
		want   session.KeyEvent
		wantOK bool
	}{
		{"enter", tea.KeyMsg{Type: tea.KeyEnter}, session.KeyEvent{Key: session.KeyEnter}, true},
		{"alt+enter", tea.KeyMsg{Type: tea.KeyEnter, Alt: true}, session.KeyEvent{Key: session.KeyEnter, Shift: true}, true},
		{"ctrl+j", tea.KeyMsg{Type: tea.KeyCtrlJ}, session.KeyEvent{Key: session.KeyEnter, Shift: true}, true},
		{"rune", tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")}, session.KeyEvent{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := keyEvent(tt.msg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestModel_EnterSubmits(t *testing.T) {
	backend := &fakeBackend{}
	m, mgr := setupModel(t, backend)

	m = typeText(t, m, "Hello")
	assert.Equal(t, "Hello", m.textarea.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Empty(t, m.textarea.Value())

	mgr.Wait()
	assert.Equal(t, []string{"Hello"}, backend.sent())

	msgs := mgr.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, session.OriginUser, msgs[1].Origin)
	assert.Equal(t, "**réponse**", msgs[2].Content)
	assert.Equal(t, 120*time.Millisecond, msgs[2].Latency)
}

func TestModel_AltEnterInsertsNewline(t *testing.T) {
	backend := &fakeBackend{}
	m, mgr := setupModel(t, backend)

	m = typeText(t, m, "ligne 1")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter, Alt: true})
	m = typeText(t, m, "ligne 2")
	assert.Equal(t, "ligne 1\nligne 2", m.textarea.Value())

	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	mgr.Wait()
	assert.Equal(t, []string{"ligne 1\nligne 2"}, backend.sent())
}

func TestModel_BlankEnterKeepsNothing(t *testing.T) {
	backend := &fakeBackend{}
	m, mgr := setupModel(t, backend)

	m = typeText(t, m, "   ")
	_ = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	mgr.Wait()

	assert.Empty(t, backend.sent())
	assert.Len(t, mgr.Messages(), 1)
}

func TestModel_Command(t *testing.T) {
	m, mgr := setupModel(t, &fakeBackend{})

	m = typeText(t, m, "/model qwen3")
	next, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = next.(Model)
	require.NotNil(t, cmd)
	assert.Empty(t, m.textarea.Value())

	m = update(t, m, cmd())
	assert.Equal(t, "qwen3", mgr.Config().Model)
	assert.Equal(t, "Modèle : qwen3", m.status)
	assert.Contains(t, m.View(), "modèle qwen3")

	m = typeText(t, m, "/health")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, cmd())
	assert.True(t, m.statusErr)
	assert.Contains(t, m.status, "down")

	m = typeText(t, m, "/quit")
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	_, quit := m.Update(cmd())
	require.NotNil(t, quit)
	assert.Equal(t, tea.QuitMsg{}, quit())
}

func TestModel_ClearConversationConfirm(t *testing.T) {
	m, mgr := setupModel(t, &fakeBackend{})

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	require.NotNil(t, m.confirm)
	assert.Contains(t, m.View(), session.ClearConversationPrompt)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("n")})
	assert.Nil(t, m.confirm)
	assert.Equal(t, session.WelcomeMessage, mgr.Messages()[0].Content)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlL})
	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("o")})
	assert.Nil(t, m.confirm)

	msgs := mgr.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, session.ConversationClearedMessage, msgs[0].Content)
}

func TestModel_ClearHistoryCommandConfirm(t *testing.T) {
	m, mgr := setupModel(t, &fakeBackend{})

	m = typeText(t, m, "/clear-history")
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = update(t, m, cmd())
	require.NotNil(t, m.confirm)
	assert.Equal(t, session.ClearRemoteHistory, m.confirm.Target)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("y")})
	mgr.Wait()

	msgs := mgr.Messages()
	assert.Equal(t, session.HistoryClearedMessage, msgs[len(msgs)-1].Content)
}

func TestModel_HistoryPanel(t *testing.T) {
	backend := &fakeBackend{history: []chatapi.HistoryEntry{
		chatapi.HistoryEntry(`{"id":1,"userMessage":"Bonjour","aiResponse":"Salut","model":"llama2","timestamp":"2025-03-01T10:00:00Z"}`),
	}}
	m, mgr := setupModel(t, backend)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})
	mgr.Wait()
	m = update(t, m, changeMsg(session.ChangeHistory))

	assert.True(t, mgr.HistoryVisible())
	view := m.View()
	assert.Contains(t, view, "Historique (1)")
	assert.Contains(t, view, "Bonjour")
	assert.Less(t, m.viewport.Width, 100)
}

func TestModel_ViewShowsConversation(t *testing.T) {
	m, mgr := setupModel(t, &fakeBackend{})

	m = typeText(t, m, "Salut")
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	mgr.Wait()
	m = update(t, m, changeMsg(session.ChangeMessages))

	view := m.View()
	assert.Contains(t, view, session.WelcomeMessage)
	assert.Contains(t, view, "Salut")
	assert.Contains(t, view, "⏱ 120ms")
	assert.Contains(t, view, "ollama-chat")
}

func TestRenderMessage_Markdown(t *testing.T) {
	r, err := terminal.NewMarkdownRenderer(60, terminal.StylePlain)
	require.NoError(t, err)

	out := renderMessage(session.Message{
		Content: "# Titre\n\n- un\n- deux",
		Origin:  session.OriginAssistant,
		Latency: 2 * time.Second,
	}, DefaultStyles(), r)

	assert.Contains(t, out, "Titre")
	assert.Contains(t, out, "deux")
	assert.Contains(t, out, "2.0s")
}

func TestRenderHistoryPanel(t *testing.T) {
	styles := DefaultStyles()
	assert.Contains(t, renderHistoryPanel(nil, 30, styles), "Aucun historique.")

	out := renderHistoryPanel([]chatapi.HistoryEntry{
		chatapi.HistoryEntry(`{"userMessage":"premier","model":"llama2"}`),
		chatapi.HistoryEntry(`{"userMessage":"second","model":"qwen3"}`),
	}, 30, styles)
	assert.Less(t, indexOf(out, "second"), indexOf(out, "premier"))
}

func indexOf(s, sub string) int {
	for i := 0; i+len(sub) <= len(s); i++ {
		if s[i:i+len(sub)] == sub {
			return i
		}
	}
	return -1
}

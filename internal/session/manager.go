// Package session holds the client-side conversation state: the message
// log, the pending flag, the model selection and the cached copy of the
// backend's history. Every backend call goes through the Manager, and every
// mutation is announced to subscribers so a view layer can redraw.
package session

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/logging"
)

// Backend is the remote chat API as seen by the session.
type Backend interface {
	Chat(ctx context.Context, req chatapi.ChatRequest) (*chatapi.ChatResponse, error)
	History(ctx context.Context) ([]chatapi.HistoryEntry, error)
	RecentHistory(ctx context.Context) ([]chatapi.HistoryEntry, error)
	ClearHistory(ctx context.Context) (string, error)
	Health(ctx context.Context) (string, error)
}

// Option customises a Manager.
type Option func(*Manager)

// WithLogger sets the diagnostic logger. Failures that are not shown in the
// conversation are reported here.
func WithLogger(logger zerolog.Logger) Option {
	return func(m *Manager) { m.logger = logger }
}

// WithClock overrides the clock used for message timestamps.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// WithModels sets the models offered for selection.
func WithModels(models []string) Option {
	return func(m *Manager) { m.models = append([]string(nil), models...) }
}

// Manager owns one conversation session. It is safe for concurrent use.
type Manager struct {
	backend Backend
	logger  zerolog.Logger
	now     func() time.Time
	models  []string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu             sync.Mutex
	messages       []Message
	inFlight       int
	config         Config
	input          string
	history        []chatapi.HistoryEntry
	historyVisible bool
	// fetchSeq numbers history fetches; historySeq is the newest one applied.
	// Results older than historySeq are dropped.
	fetchSeq      uint64
	historySeq    uint64
	confirmations map[string]ClearTarget
	observers     map[int]func(Change)
	nextObserver  int
}

// NewManager starts a session seeded with the welcome message.
func NewManager(backend Backend, cfg Config, opts ...Option) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	m := &Manager{
		backend:       backend,
		logger:        zerolog.Nop(),
		now:           time.Now,
		ctx:           ctx,
		cancel:        cancel,
		config:        cfg,
		history:       []chatapi.HistoryEntry{},
		confirmations: make(map[string]ClearTarget),
		observers:     make(map[int]func(Change)),
	}
	for _, opt := range opts {
		opt(m)
	}

	m.messages = []Message{m.newMessage(WelcomeMessage, OriginSystem)}
	return m
}

// Subscribe registers fn to be called after every state mutation with the
// set of changed parts. fn runs on the goroutine that made the change, never
// while the Manager's lock is held. The returned func unsubscribes.
func (m *Manager) Subscribe(fn func(Change)) (unsubscribe func()) {
	m.mu.Lock()
	id := m.nextObserver
	m.nextObserver++
	m.observers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.observers, id)
		m.mu.Unlock()
	}
}

func (m *Manager) notify(c Change) {
	m.mu.Lock()
	observers := make([]func(Change), 0, len(m.observers))
	for _, fn := range m.observers {
		observers = append(observers, fn)
	}
	m.mu.Unlock()

	for _, fn := range observers {
		fn(c)
	}
}

func (m *Manager) newMessage(content string, origin Origin) Message {
	return Message{
		Content:   content,
		Origin:    origin,
		Timestamp: m.now(),
	}
}

// goAsync runs fn on its own goroutine, tracked by Wait and cancelled by Close.
func (m *Manager) goAsync(fn func(ctx context.Context)) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		fn(m.ctx)
	}()
}

// Submit sends raw as a user message. Blank input is ignored. The user
// message is appended before Submit returns; the reply (or a failure notice)
// is appended when the backend answers. Overlapping submissions are allowed
// and each one is sent.
func (m *Manager) Submit(raw string) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	m.mu.Lock()
	m.messages = append(m.messages, m.newMessage(text, OriginUser))
	temperature := m.config.Temperature
	req := chatapi.ChatRequest{
		Message:     text,
		Model:       m.config.Model,
		Temperature: &temperature,
	}
	m.input = ""
	m.inFlight++
	m.mu.Unlock()

	m.notify(ChangeMessages | ChangeInput | ChangePending)

	m.goAsync(func(ctx context.Context) {
		m.send(ctx, req)
	})
}

func (m *Manager) send(ctx context.Context, req chatapi.ChatRequest) {
	resp, err := m.backend.Chat(ctx, req)

	m.mu.Lock()
	m.inFlight--
	if err != nil {
		m.messages = append(m.messages, m.newMessage(SendFailedMessage, OriginSystem))
	} else {
		reply := m.newMessage(resp.Response, OriginAssistant)
		reply.Latency = resp.Latency()
		m.messages = append(m.messages, reply)
	}
	m.mu.Unlock()

	if err != nil {
		m.logger.Error().
			Err(err).
			Str(logging.FieldOperation, "chat").
			Str(logging.FieldModel, req.Model).
			Msg("failed to send message")
	} else {
		m.logger.Debug().
			Str(logging.FieldModel, resp.Model).
			Int64(logging.FieldMessageID, resp.MessageID).
			Int64(logging.FieldLatency, resp.ResponseTime).
			Msg("reply received")
	}

	m.notify(ChangeMessages | ChangePending)

	if err == nil {
		m.fetchHistory(ctx)
	}
}

// FetchHistory refreshes the history snapshot in the background. On failure
// the previous snapshot is kept and the error is only logged.
func (m *Manager) FetchHistory() {
	m.goAsync(m.fetchHistory)
}

func (m *Manager) fetchHistory(ctx context.Context) {
	m.mu.Lock()
	m.fetchSeq++
	seq := m.fetchSeq
	m.mu.Unlock()

	entries, err := m.backend.History(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Str(logging.FieldOperation, "history").Msg("failed to load history")
		return
	}

	m.mu.Lock()
	if seq < m.historySeq {
		m.mu.Unlock()
		return
	}
	m.history = entries
	m.historySeq = seq
	m.mu.Unlock()

	m.notify(ChangeHistory)
}

// ToggleHistoryPanel flips the panel visibility and refreshes the history
// snapshot when the panel becomes visible.
func (m *Manager) ToggleHistoryPanel() {
	m.mu.Lock()
	m.historyVisible = !m.historyVisible
	visible := m.historyVisible
	m.mu.Unlock()

	m.notify(ChangePanel)

	if visible {
		m.FetchHistory()
	}
}

func (m *Manager) clearConversation() {
	m.mu.Lock()
	m.messages = []Message{m.newMessage(ConversationClearedMessage, OriginSystem)}
	m.mu.Unlock()

	m.notify(ChangeMessages)
}

func (m *Manager) clearRemoteHistory(ctx context.Context) {
	if _, err := m.backend.ClearHistory(ctx); err != nil {
		m.logger.Error().Err(err).Str(logging.FieldOperation, "clear_history").Msg("failed to clear history")
		return
	}

	m.mu.Lock()
	m.history = []chatapi.HistoryEntry{}
	// Fetches started before the delete must not resurrect old entries.
	m.fetchSeq++
	m.historySeq = m.fetchSeq
	m.messages = append(m.messages, m.newMessage(HistoryClearedMessage, OriginSystem))
	m.mu.Unlock()

	m.notify(ChangeHistory | ChangeMessages)
}

// HandleSubmitKey submits the input buffer on Enter without Shift and marks
// the event as consumed. It reports whether the event was handled.
func (m *Manager) HandleSubmitKey(ev *KeyEvent) bool {
	if ev == nil || ev.Key != KeyEnter || ev.Shift {
		return false
	}
	ev.PreventDefault = true
	m.Submit(m.Input())
	return true
}

// RecentHistory returns the backend's most recent entries without touching
// the snapshot.
func (m *Manager) RecentHistory(ctx context.Context) ([]chatapi.HistoryEntry, error) {
	entries, err := m.backend.RecentHistory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load recent history: %w", err)
	}
	return entries, nil
}

// CheckHealth asks the backend for its health text.
func (m *Manager) CheckHealth(ctx context.Context) (string, error) {
	status, err := m.backend.Health(ctx)
	if err != nil {
		return "", fmt.Errorf("backend health check failed: %w", err)
	}
	return strings.TrimSpace(status), nil
}

// SetInput replaces the input buffer. It does not notify; the caller is the
// source of the change.
func (m *Manager) SetInput(s string) {
	m.mu.Lock()
	m.input = s
	m.mu.Unlock()
}

// Input returns the input buffer.
func (m *Manager) Input() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.input
}

// SetModel selects the model for subsequent requests.
func (m *Manager) SetModel(model string) error {
	model = strings.TrimSpace(model)
	if model == "" {
		return fmt.Errorf("model name cannot be empty")
	}

	m.mu.Lock()
	m.config.Model = model
	m.mu.Unlock()

	m.notify(ChangeConfig)
	return nil
}

// SetTemperature sets the temperature for subsequent requests.
func (m *Manager) SetTemperature(t float64) error {
	if t < 0 || t > 2 {
		return fmt.Errorf("temperature must be between 0 and 2")
	}

	m.mu.Lock()
	m.config.Temperature = t
	m.mu.Unlock()

	m.notify(ChangeConfig)
	return nil
}

// Config returns the current model selection.
func (m *Manager) Config() Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Models returns the models offered for selection.
func (m *Manager) Models() []string {
	return append([]string(nil), m.models...)
}

// Messages returns a copy of the conversation log.
func (m *Manager) Messages() []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Message(nil), m.messages...)
}

// IsPending reports whether a sent message is still awaiting its reply.
func (m *Manager) IsPending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.inFlight > 0
}

// History returns a copy of the last fetched history snapshot.
func (m *Manager) History() []chatapi.HistoryEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]chatapi.HistoryEntry{}, m.history...)
}

// HistoryVisible reports whether the history panel is shown.
func (m *Manager) HistoryVisible() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.historyVisible
}

// Wait blocks until every background operation has completed.
func (m *Manager) Wait() {
	m.wg.Wait()
}

// Close cancels outstanding requests and waits for them to resolve.
func (m *Manager) Close() {
	m.cancel()
	m.wg.Wait()
}

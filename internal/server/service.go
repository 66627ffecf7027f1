package server

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"ollama-chat/internal/cache"
	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/config"
	"ollama-chat/internal/history"
	"ollama-chat/internal/logging"
	"ollama-chat/internal/ollama"
)

var (
	// ErrLLMUnavailable wraps every failure talking to the language model.
	ErrLLMUnavailable = errors.New("language model unavailable")
	ErrEmptyMessage   = errors.New("message is required")
)

// LLM is the subset of the Ollama client the service needs.
type LLM interface {
	Chat(ctx context.Context, req ollama.ChatRequest) (*ollama.ChatResponse, error)
	Stream(ctx context.Context, req ollama.ChatRequest, callbacks ollama.StreamCallbacks) (string, string, error)
	ListModels(ctx context.Context) ([]string, error)
}

// HistoryFilter narrows GET /history. Zero values match everything.
type HistoryFilter struct {
	Model string
	Since time.Time
}

// StreamResult summarises a completed streamed reply.
type StreamResult struct {
	Model        string `json:"model"`
	ResponseTime int64  `json:"responseTime"`
	MessageID    int64  `json:"messageId"`
}

// ChatService proxies chat requests to the model and records every exchange.
type ChatService struct {
	llm      LLM
	repo     history.Repository
	cache    cache.HistoryCache
	cacheTTL time.Duration
	defaults config.OllamaConfig
	sf       singleflight.Group
	now      func() time.Time
	// writes counts history mutations; a cache fill that overlapped one is
	// dropped again.
	writes atomic.Uint64
}

// NewChatService creates the service. historyCache may be nil.
func NewChatService(llm LLM, repo history.Repository, historyCache cache.HistoryCache, defaults config.OllamaConfig, cacheTTL time.Duration) *ChatService {
	return &ChatService{
		llm:      llm,
		repo:     repo,
		cache:    historyCache,
		cacheTTL: cacheTTL,
		defaults: defaults,
		now:      time.Now,
	}
}

// resolve applies the configured model and temperature to whatever the
// request left out.
func (s *ChatService) resolve(model string, temperature *float64) (string, float64) {
	if model == "" {
		model = s.defaults.Model
	}
	temp := s.defaults.Temperature
	if temperature != nil {
		temp = *temperature
	}
	return model, temp
}

func (s *ChatService) ollamaRequest(message, model string, temperature float64) ollama.ChatRequest {
	return ollama.ChatRequest{
		Model:    model,
		Messages: []ollama.Message{{Role: ollama.RoleUser, Content: message}},
		Options:  &ollama.Options{Temperature: &temperature},
	}
}

// Chat sends one message to the model, stores the exchange and returns the
// reply with its latency and history id.
func (s *ChatService) Chat(ctx context.Context, req chatapi.ChatRequest) (*chatapi.ChatResponse, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	model, temp := s.resolve(req.Model, req.Temperature)
	l := logging.Ctx(ctx)

	start := s.now()
	resp, err := s.llm.Chat(ctx, s.ollamaRequest(req.Message, model, temp))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	elapsed := s.now().Sub(start).Milliseconds()

	entry := history.Entry{
		UserMessage:  req.Message,
		AIResponse:   resp.Message.Content,
		Model:        model,
		Timestamp:    s.now(),
		ResponseTime: elapsed,
	}
	if err := s.save(ctx, &entry); err != nil {
		return nil, err
	}

	l.Info().
		Str(logging.FieldModel, model).
		Float64(logging.FieldTemperature, temp).
		Int64(logging.FieldLatency, elapsed).
		Int64(logging.FieldMessageID, entry.ID).
		Msg("chat completed")

	return &chatapi.ChatResponse{
		Response:     entry.AIResponse,
		Model:        model,
		Timestamp:    entry.Timestamp.Format(time.RFC3339),
		ResponseTime: elapsed,
		MessageID:    entry.ID,
	}, nil
}

// Ask is the single-turn diagnostic call: defaults only, nothing stored.
func (s *ChatService) Ask(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", ErrEmptyMessage
	}

	model, temp := s.resolve("", nil)
	resp, err := s.llm.Chat(ctx, s.ollamaRequest(message, model, temp))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	return resp.Message.Content, nil
}

// Stream relays model tokens through callbacks and stores the exchange once
// the reply is complete.
func (s *ChatService) Stream(ctx context.Context, req chatapi.ChatRequest, callbacks ollama.StreamCallbacks) (*StreamResult, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, ErrEmptyMessage
	}

	model, temp := s.resolve(req.Model, req.Temperature)

	start := s.now()
	_, answer, err := s.llm.Stream(ctx, s.ollamaRequest(req.Message, model, temp), callbacks)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	elapsed := s.now().Sub(start).Milliseconds()

	entry := history.Entry{
		UserMessage:  req.Message,
		AIResponse:   answer,
		Model:        model,
		Timestamp:    s.now(),
		ResponseTime: elapsed,
	}
	if err := s.save(ctx, &entry); err != nil {
		return nil, err
	}

	return &StreamResult{Model: model, ResponseTime: elapsed, MessageID: entry.ID}, nil
}

func (s *ChatService) save(ctx context.Context, entry *history.Entry) error {
	if err := s.repo.Save(ctx, entry); err != nil {
		return fmt.Errorf("failed to save history: %w", err)
	}
	s.invalidate(ctx)
	return nil
}

// History lists stored exchanges oldest first.
func (s *ChatService) History(ctx context.Context, filter HistoryFilter) ([]history.Entry, error) {
	var (
		entries []history.Entry
		err     error
	)

	switch {
	case filter.Model != "":
		entries, err = s.repo.FindByModel(ctx, filter.Model)
	case !filter.Since.IsZero():
		entries, err = s.repo.FindSince(ctx, filter.Since)
	default:
		entries, err = s.repo.FindAll(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}

	if filter.Model != "" && !filter.Since.IsZero() {
		kept := entries[:0]
		for _, e := range entries {
			if e.Timestamp.After(filter.Since) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}
	return entries, nil
}

func (s *ChatService) Entry(ctx context.Context, id int64) (*history.Entry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get history entry %d: %w", id, err)
	}
	return entry, nil
}

// Recent returns the newest exchanges, newest first. Reads go through the
// cache when one is configured.
func (s *ChatService) Recent(ctx context.Context) ([]history.Entry, error) {
	if s.cache == nil {
		entries, err := s.repo.FindRecent(ctx, history.DefaultRecentLimit)
		if err != nil {
			return nil, fmt.Errorf("failed to get recent history: %w", err)
		}
		return entries, nil
	}

	cacheKey := s.cache.BuildKey("recent", history.DefaultRecentLimit)

	// Use singleflight to prevent duplicate requests for the same key
	result, err, _ := s.sf.Do(cacheKey, func() (interface{}, error) {
		return s.fetchRecentWithCache(ctx, cacheKey)
	})
	if err != nil {
		return nil, err
	}

	entries, ok := result.([]history.Entry)
	if !ok {
		return nil, fmt.Errorf("unexpected result type from singleflight")
	}
	return entries, nil
}

func (s *ChatService) fetchRecentWithCache(ctx context.Context, cacheKey string) ([]history.Entry, error) {
	l := logging.Ctx(ctx)

	cached, err := s.cache.Get(ctx, cacheKey)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// Log error but continue to fetch from DB
		l.Warn().Err(err).Msg("cache get error")
	}

	gen := s.writes.Load()
	entries, err := s.repo.FindRecent(ctx, history.DefaultRecentLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent history: %w", err)
	}

	if err := s.cache.Set(ctx, cacheKey, entries, s.cacheTTL); err != nil {
		l.Warn().Err(err).Msg("cache set error")
	}
	if s.writes.Load() != gen {
		s.invalidate(ctx)
	}
	return entries, nil
}

// Clear deletes the whole history.
func (s *ChatService) Clear(ctx context.Context) error {
	if err := s.repo.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear history: %w", err)
	}
	s.invalidate(ctx)

	l := logging.Ctx(ctx)
	l.Info().Msg("history cleared")
	return nil
}

func (s *ChatService) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	s.writes.Add(1)
	if err := s.cache.Invalidate(ctx); err != nil {
		l := logging.Ctx(ctx)
		l.Warn().Err(err).Msg("cache invalidate error")
	}
}

// Models lists the models installed in Ollama.
func (s *ChatService) Models(ctx context.Context) ([]string, error) {
	models, err := s.llm.ListModels(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLLMUnavailable, err)
	}
	return models, nil
}

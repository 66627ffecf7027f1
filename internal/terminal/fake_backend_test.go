package terminal

import (
	"context"
	"errors"
	"sync"

	"ollama-chat/internal/chatapi"
)

type fakeBackend struct {
	mu      sync.Mutex
	history []chatapi.HistoryEntry
	chatErr error
	cleared bool
}

func (f *fakeBackend) Chat(_ context.Context, req chatapi.ChatRequest) (*chatapi.ChatResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.chatErr != nil {
		return nil, f.chatErr
	}
	return &chatapi.ChatResponse{Response: "echo: " + req.Message, Model: req.Model, ResponseTime: 120}, nil
}

func (f *fakeBackend) History(context.Context) ([]chatapi.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]chatapi.HistoryEntry{}, f.history...), nil
}

func (f *fakeBackend) RecentHistory(ctx context.Context) ([]chatapi.HistoryEntry, error) {
	return f.History(ctx)
}

func (f *fakeBackend) ClearHistory(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = true
	f.history = nil
	return "Historique supprimé avec succès", nil
}

func (f *fakeBackend) Health(context.Context) (string, error) {
	if f.chatErr != nil {
		return "", errors.New("backend down")
	}
	return "✅ API is running!", nil
}

func entry(raw string) chatapi.HistoryEntry {
	return chatapi.HistoryEntry(raw)
}

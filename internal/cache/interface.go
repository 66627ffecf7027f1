package cache

import (
	"context"
	"time"

	"ollama-chat/internal/history"
)

// HistoryCache caches read views of the chat history.
type HistoryCache interface {
	Get(ctx context.Context, key string) ([]history.Entry, error)
	Set(ctx context.Context, key string, entries []history.Entry, ttl time.Duration) error
	// Invalidate drops every cached view.
	Invalidate(ctx context.Context) error
	BuildKey(view string, limit int) string
	Close() error
}

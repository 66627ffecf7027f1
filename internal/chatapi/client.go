package chatapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ollama-chat/internal/logging"
)

// ErrUnexpectedStatus is wrapped by every error caused by a non-2xx reply.
var ErrUnexpectedStatus = errors.New("unexpected status")

// maxErrorBody bounds how much of a failed response body ends up in errors.
const maxErrorBody = 4 << 10

// Client talks to the chat backend's /api endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewClient creates a new chat API client. baseURL includes the /api prefix.
func NewClient(baseURL string, timeout time.Duration, logger zerolog.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Chat sends a message through POST /chat.
func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/chat", bytes.NewReader(jsonData))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var chatResp ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&chatResp); err != nil {
		return nil, fmt.Errorf("failed to parse chat response: %w", err)
	}

	return &chatResp, nil
}

// ChatSimple sends a message through the diagnostic GET /chat?message= and
// returns the plain-text reply.
func (c *Client) ChatSimple(ctx context.Context, message string) (string, error) {
	params := url.Values{}
	params.Set("message", message)
	return c.text(ctx, http.MethodGet, "/chat?"+params.Encode())
}

// History fetches the full server-side history.
func (c *Client) History(ctx context.Context) ([]HistoryEntry, error) {
	return c.entries(ctx, "/history")
}

// RecentHistory fetches the ten most recent history entries.
func (c *Client) RecentHistory(ctx context.Context) ([]HistoryEntry, error) {
	return c.entries(ctx, "/history/recent")
}

// ClearHistory deletes the server-side history and returns the confirmation text.
func (c *Client) ClearHistory(ctx context.Context) (string, error) {
	return c.text(ctx, http.MethodDelete, "/history")
}

// Health returns the backend's health text.
func (c *Client) Health(ctx context.Context) (string, error) {
	return c.text(ctx, http.MethodGet, "/health")
}

func (c *Client) entries(ctx context.Context, path string) ([]HistoryEntry, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var entries []HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&entries); err != nil {
		return nil, fmt.Errorf("failed to parse history: %w", err)
	}
	if entries == nil {
		entries = []HistoryEntry{}
	}
	return entries, nil
}

func (c *Client) text(ctx context.Context, method, path string) (string, error) {
	resp, err := c.do(ctx, method, path, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}
	return string(body), nil
}

// do executes a request and returns the response when its status is 2xx.
// The caller closes the body.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	reqID := uuid.New().String()
	httpReq.Header.Set(logging.HeaderRequestID, reqID)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}

	c.logger.Debug().
		Str(logging.FieldRequestID, reqID).
		Str(logging.FieldMethod, method).
		Str(logging.FieldPath, path).
		Int(logging.FieldStatus, resp.StatusCode).
		Int64(logging.FieldLatency, time.Since(start).Milliseconds()).
		Msg("api call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("%w: backend returned status %d: %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return resp, nil
}

package chatapi

import (
	"encoding/json"
	"time"
)

// ChatRequest is the body of POST /chat. Model and Temperature are optional;
// the backend applies its defaults when they are absent.
type ChatRequest struct {
	Message     string   `json:"message"`
	Model       string   `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ChatResponse is returned by POST /chat.
type ChatResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
	// Timestamp is the server's clock, passed through untouched.
	Timestamp string `json:"timestamp"`
	// ResponseTime is the server-measured latency in milliseconds.
	ResponseTime int64 `json:"responseTime"`
	MessageID    int64 `json:"messageId"`
}

// Latency converts ResponseTime to a duration.
func (r ChatResponse) Latency() time.Duration {
	return time.Duration(r.ResponseTime) * time.Millisecond
}

// HistoryEntry is one server-side history record. The client keeps it as
// raw JSON and only decodes it for display.
type HistoryEntry json.RawMessage

// MarshalJSON returns the raw record.
func (e HistoryEntry) MarshalJSON() ([]byte, error) {
	if e == nil {
		return []byte("null"), nil
	}
	return e, nil
}

// UnmarshalJSON keeps a copy of the raw record.
func (e *HistoryEntry) UnmarshalJSON(data []byte) error {
	*e = append((*e)[0:0], data...)
	return nil
}

// HistoryView is the best-effort display projection of a HistoryEntry.
type HistoryView struct {
	ID           int64  `json:"id"`
	UserMessage  string `json:"userMessage"`
	AIResponse   string `json:"aiResponse"`
	Model        string `json:"model"`
	Timestamp    string `json:"timestamp"`
	ResponseTime int64  `json:"responseTime"`
}

// View decodes the fields used for display. Unknown shapes yield a zero view.
func (e HistoryEntry) View() HistoryView {
	var v HistoryView
	_ = json.Unmarshal(e, &v)
	return v
}

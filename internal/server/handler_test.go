package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/history"
)

func setupRouter(t *testing.T, llm *fakeLLM) *gin.Engine {
	t.Helper()

	gin.SetMode(gin.TestMode)
	svc, _ := setupService(t, llm, false)

	r := gin.New()
	NewHTTPHandler(svc).RegisterRoutes(r)
	return r
}

func serve(r http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHandler_Chat(t *testing.T) {
	r := setupRouter(t, &fakeLLM{reply: "Hi!"})

	w := serve(r, http.MethodPost, "/api/chat", `{"message":"Hello","model":"llama3.2","temperature":0.2}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp chatapi.ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Hi!", resp.Response)
	assert.Equal(t, "llama3.2", resp.Model)
	assert.Equal(t, int64(1), resp.MessageID)
	assert.Contains(t, w.Body.String(), `"responseTime"`)
}

func TestHandler_ChatErrors(t *testing.T) {
	tests := []struct {
		name   string
		llmErr error
		body   string
		want   int
	}{
		{"malformed body", nil, `{"message":`, http.StatusBadRequest},
		{"empty message", nil, `{"message":"  "}`, http.StatusBadRequest},
		{"model down", errors.New("dial tcp: connection refused"), `{"message":"Ping"}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := setupRouter(t, &fakeLLM{err: tt.llmErr})

			w := serve(r, http.MethodPost, "/api/chat", tt.body)
			assert.Equal(t, tt.want, w.Code)

			var body map[string]string
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestHandler_ChatSimple(t *testing.T) {
	r := setupRouter(t, &fakeLLM{reply: "pong"})

	w := serve(r, http.MethodGet, "/api/chat?message=ping", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())

	w = serve(r, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ChatStream(t *testing.T) {
	r := setupRouter(t, &fakeLLM{tokens: []string{"Bon", "jour"}})

	w := serve(r, http.MethodGet, "/api/chat/stream?message=Salut&temperature=0.1", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/event-stream", w.Header().Get("Content-Type"))

	body := w.Body.String()
	assert.Contains(t, body, "event:message")
	assert.Contains(t, body, `"content":"Bon"`)
	assert.Contains(t, body, `"content":"jour"`)
	assert.Contains(t, body, "event:done")
	assert.Contains(t, body, `"messageId":1`)
}

func TestHandler_ChatStreamErrors(t *testing.T) {
	r := setupRouter(t, &fakeLLM{err: errors.New("boom")})

	w := serve(r, http.MethodGet, "/api/chat/stream?message=Salut&temperature=hot", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/api/chat/stream", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/api/chat/stream?message=%20%20", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.NotEqual(t, "text/event-stream", w.Header().Get("Content-Type"))

	w = serve(r, http.MethodGet, "/api/chat/stream?message=Salut", "")
	body := w.Body.String()
	assert.Contains(t, body, "event:error")
	assert.Contains(t, body, `data:{"error":"`)
	assert.NotContains(t, body, `"message":`)
	assert.NotContains(t, body, "event:done")
}

func TestHandler_History(t *testing.T) {
	r := setupRouter(t, &fakeLLM{reply: "Hi!"})

	w := serve(r, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())

	serve(r, http.MethodPost, "/api/chat", `{"message":"Hello"}`)
	serve(r, http.MethodPost, "/api/chat", `{"message":"Again","model":"qwen3"}`)

	w = serve(r, http.MethodGet, "/api/history", "")
	require.Equal(t, http.StatusOK, w.Code)
	var entries []history.Entry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Hello", entries[0].UserMessage)
	assert.Equal(t, "Hi!", entries[0].AIResponse)
	assert.Contains(t, w.Body.String(), `"userMessage"`)
	assert.Contains(t, w.Body.String(), `"aiResponse"`)

	w = serve(r, http.MethodGet, "/api/history?model=qwen3", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, "Again", entries[0].UserMessage)

	w = serve(r, http.MethodGet, "/api/history?since=2000-01-01T00:00:00Z", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	assert.Len(t, entries, 2)

	w = serve(r, http.MethodGet, "/api/history?since=yesterday", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = serve(r, http.MethodGet, "/api/history/recent", "")
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &entries))
	require.Len(t, entries, 2)
	assert.Equal(t, "Again", entries[0].UserMessage)
}

func TestHandler_HistoryEntry(t *testing.T) {
	r := setupRouter(t, &fakeLLM{reply: "Hi!"})
	serve(r, http.MethodPost, "/api/chat", `{"message":"Hello"}`)

	w := serve(r, http.MethodGet, "/api/history/1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"userMessage":"Hello"`)

	w = serve(r, http.MethodGet, "/api/history/7", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(r, http.MethodGet, "/api/history/abc", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_ClearHistory(t *testing.T) {
	r := setupRouter(t, &fakeLLM{reply: "Hi!"})
	serve(r, http.MethodPost, "/api/chat", `{"message":"Hello"}`)

	w := serve(r, http.MethodDelete, "/api/history", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, HistoryClearedReply, w.Body.String())

	w = serve(r, http.MethodGet, "/api/history", "")
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestHandler_HealthAndModels(t *testing.T) {
	r := setupRouter(t, &fakeLLM{models: []string{"llama2", "qwen3"}})

	w := serve(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "✅ API is running!", w.Body.String())

	w = serve(r, http.MethodGet, "/api/models", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"models":["llama2","qwen3"]}`, w.Body.String())
}

func TestHandler_CORS(t *testing.T) {
	r := setupRouter(t, &fakeLLM{})

	w := serve(r, http.MethodOptions, "/api/chat", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))

	w = serve(r, http.MethodGet, "/api/health", "")
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"ollama-chat/internal/chatapi"
	"ollama-chat/internal/history"
	"ollama-chat/internal/logging"
	"ollama-chat/internal/ollama"
)

const (
	HealthMessage       = "✅ API is running!"
	HistoryClearedReply = "Historique supprimé avec succès"
)

type HTTPHandler struct {
	chatService *ChatService
}

func NewHTTPHandler(chatService *ChatService) *HTTPHandler {
	return &HTTPHandler{
		chatService: chatService,
	}
}

func (h *HTTPHandler) RegisterRoutes(r *gin.Engine) {
	r.Use(CORS())

	api := r.Group("/api")
	{
		api.POST("/chat", h.Chat)
		api.GET("/chat", h.ChatSimple)
		api.GET("/chat/stream", h.ChatStream)
		api.GET("/history", h.History)
		api.GET("/history/recent", h.RecentHistory)
		api.GET("/history/:id", h.HistoryEntry)
		api.DELETE("/history", h.ClearHistory)
		api.GET("/models", h.Models)
		api.GET("/health", h.HealthCheck)
	}
}

func (h *HTTPHandler) Chat(c *gin.Context) {
	var req chatapi.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	resp, err := h.chatService.Chat(c.Request.Context(), req)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *HTTPHandler) ChatSimple(c *gin.Context) {
	reply, err := h.chatService.Ask(c.Request.Context(), c.Query("message"))
	if err != nil {
		h.fail(c, err)
		return
	}

	c.String(http.StatusOK, reply)
}

// ChatStream relays the reply as server-sent events: "thinking" and
// "message" events carry tokens, "done" closes a successful stream and
// "error" a failed one.
func (h *HTTPHandler) ChatStream(c *gin.Context) {
	req := chatapi.ChatRequest{
		Message: c.Query("message"),
		Model:   c.Query("model"),
	}
	if raw := c.Query("temperature"); raw != "" {
		temp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "temperature must be a number"})
			return
		}
		req.Temperature = &temp
	}
	if strings.TrimSpace(req.Message) == "" {
		h.fail(c, ErrEmptyMessage)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	result, err := h.chatService.Stream(c.Request.Context(), req, ollama.StreamCallbacks{
		OnThinking: func(token string) {
			c.SSEvent("thinking", gin.H{"content": token})
			c.Writer.Flush()
		},
		OnAnswer: func(token string) {
			c.SSEvent("message", gin.H{"content": token})
			c.Writer.Flush()
		},
	})
	if err != nil {
		l := logging.Ctx(c.Request.Context())
		l.Error().Err(err).Msg("stream failed")
		c.SSEvent("error", gin.H{"error": err.Error()})
		c.Writer.Flush()
		return
	}

	c.SSEvent("done", result)
	c.Writer.Flush()
}

func (h *HTTPHandler) History(c *gin.Context) {
	filter := HistoryFilter{Model: c.Query("model")}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "since must be an RFC3339 timestamp"})
			return
		}
		filter.Since = since
	}

	entries, err := h.chatService.History(c.Request.Context(), filter)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(entries))
}

func (h *HTTPHandler) RecentHistory(c *gin.Context) {
	entries, err := h.chatService.Recent(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, nonNil(entries))
}

func (h *HTTPHandler) HistoryEntry(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id < 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "id must be a positive integer"})
		return
	}

	entry, err := h.chatService.Entry(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, entry)
}

func (h *HTTPHandler) ClearHistory(c *gin.Context) {
	if err := h.chatService.Clear(c.Request.Context()); err != nil {
		h.fail(c, err)
		return
	}

	c.String(http.StatusOK, HistoryClearedReply)
}

func (h *HTTPHandler) Models(c *gin.Context) {
	models, err := h.chatService.Models(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"models": models})
}

func (h *HTTPHandler) HealthCheck(c *gin.Context) {
	c.String(http.StatusOK, HealthMessage)
}

// fail maps service errors to a status code and a JSON error body.
func (h *HTTPHandler) fail(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrEmptyMessage):
		status = http.StatusBadRequest
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, ErrLLMUnavailable):
		status = http.StatusBadGateway
	}

	c.Error(err)
	c.JSON(status, gin.H{"error": err.Error()})
}

func nonNil(entries []history.Entry) []history.Entry {
	if entries == nil {
		return []history.Entry{}
	}
	return entries
}

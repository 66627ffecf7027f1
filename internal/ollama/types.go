package ollama

// ChatRequest represents a chat request to Ollama
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
	Stream   bool      `json:"stream"`
	Options  *Options  `json:"options,omitempty"`
}

// Options are the sampling parameters Ollama accepts per request.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role     string `json:"role"` // "user", "assistant", or "system"
	Content  string `json:"content"`
	Thinking string `json:"thinking,omitempty"` // For reasoning models like deepseek-r1
}

// ChatResponse represents a response (or streaming chunk) from Ollama
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	// TotalDuration is reported in nanoseconds on the final chunk.
	TotalDuration int64 `json:"total_duration,omitempty"`
}

// Role names.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// TagsResponse is the body of GET /api/tags.
type TagsResponse struct {
	Models []ModelInfo `json:"models"`
}

// ModelInfo describes one installed model.
type ModelInfo struct {
	Name       string `json:"name"`
	Size       int64  `json:"size,omitempty"`
	ModifiedAt string `json:"modified_at,omitempty"`
}

package session

import "time"

// Origin is the author category of a message.
type Origin int

const (
	OriginUser Origin = iota
	OriginAssistant
	OriginSystem
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginAssistant:
		return "assistant"
	case OriginSystem:
		return "system"
	default:
		return "unknown"
	}
}

// Message is one entry of the conversation log.
type Message struct {
	Content string
	Origin  Origin
	// Timestamp is the client clock when the message was appended.
	Timestamp time.Time
	// Latency is the backend-reported response time. It is only set on
	// assistant replies to successful requests.
	Latency time.Duration
}

// Config is the model selection applied to new requests.
type Config struct {
	Model       string
	Temperature float64
}

// Fixed conversation texts.
const (
	WelcomeMessage             = "Bienvenue ! Posez-moi vos questions. 🤖"
	SendFailedMessage          = "❌ Erreur: Impossible de contacter le serveur. Vérifiez que Ollama et le backend sont démarrés."
	ConversationClearedMessage = "Conversation effacée. 🗑️"
	HistoryClearedMessage      = "Historique effacé. 🗑️"

	ClearConversationPrompt = "Voulez-vous vraiment effacer la conversation actuelle ?"
	ClearHistoryPrompt      = "Voulez-vous vraiment effacer TOUT l'historique ?"
)

// KeyEnter is the key name HandleSubmitKey reacts to.
const KeyEnter = "Enter"

// KeyEvent is a key press delivered by the view layer.
type KeyEvent struct {
	Key   string
	Shift bool
	// PreventDefault is set by HandleSubmitKey when it consumed the event.
	PreventDefault bool
}

// Change is a bit set describing which parts of the session state mutated.
type Change uint8

const (
	ChangeMessages Change = 1 << iota
	ChangePending
	ChangeHistory
	ChangePanel
	ChangeConfig
	ChangeInput
)

// Has reports whether c includes all bits of other.
func (c Change) Has(other Change) bool {
	return c&other == other
}

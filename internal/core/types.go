package core

// Message represents a chat message in OpenRouter/OpenAI wire format.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Sender values for persisted messages.
const (
	SenderUser = "user"
	SenderBot  = "bot"
)

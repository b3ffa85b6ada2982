package models

const (
	RoleAssistant = "assistant"
	RoleUser      = "user"
)

// Message is one entry of a conversation transcript
type Message struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

package chat

import "time"

// Role identifies the author of a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// Message is a single turn in a session's transcript. A message is immutable
// once IsStreaming is false; while streaming, Text is replaced wholesale on
// each snapshot until the reply is finalized.
type Message struct {
	ID          string       `json:"id"`
	Role        Role         `json:"role"`
	Text        string       `json:"text"`
	Attachments []Attachment `json:"attachments,omitempty"`
	IsStreaming bool         `json:"isStreaming,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
}

// Package domain holds the types shared by every chat handler: messages,
// intent labels and taxonomies, the proposals a completion may carry and
// the request/response contract with the UI.
package domain

import "strings"

// Role is the author of a message in a completion request.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged entry of the conversation sent to the model.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// SentinelPrefix marks a completion that failed upstream. The completion
// client returns it as text instead of an error.
const SentinelPrefix = "[ERROR]"

// NoCompletionText is returned when the provider answers without choices.
const NoCompletionText = "No se recibió respuesta del modelo."

// IsSentinel reports whether text is a failed completion.
func IsSentinel(text string) bool {
	return strings.HasPrefix(strings.TrimSpace(text), SentinelPrefix)
}

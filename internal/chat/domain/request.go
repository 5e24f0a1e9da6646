package domain

import "strings"

// ChatRequest is the body every chat endpoint accepts. Handlers historically
// used either a flat messages array or message+history; both are accepted.
type ChatRequest struct {
	Messages       []Message `json:"messages,omitempty"`
	Message        string    `json:"message,omitempty"`
	History        []Message `json:"history,omitempty"`
	IsFirstMessage bool      `json:"isFirstMessage"`

	// UserID is set from the authenticated token, never from the body.
	UserID string `json:"-"`
}

// Conversation splits the request into prior history and the new utterance.
//
// With message set, history is taken from History. Otherwise the last
// entry of Messages must come from the user and becomes the utterance.
// Only user and assistant turns survive: client-supplied system messages
// are dropped.
func (r *ChatRequest) Conversation() (history []Message, utterance string) {
	if strings.TrimSpace(r.Message) != "" {
		return filterTurns(r.History), strings.TrimSpace(r.Message)
	}
	turns := filterTurns(r.Messages)
	if len(turns) == 0 {
		return nil, ""
	}
	last := turns[len(turns)-1]
	if last.Role != RoleUser {
		return turns, ""
	}
	return turns[:len(turns)-1], strings.TrimSpace(last.Content)
}

// WantsGreeting reports whether this is the opening request of a chat:
// flagged as first and carrying no prior turns.
func (r *ChatRequest) WantsGreeting() bool {
	return r.IsFirstMessage && len(r.Messages) == 0 && len(r.History) == 0
}

func filterTurns(msgs []Message) []Message {
	out := make([]Message, 0, len(msgs))
	for _, m := range msgs {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			out = append(out, m)
		}
	}
	return out
}

// ChatResponse is what every chat endpoint returns.
type ChatResponse struct {
	Response    string           `json:"response"`
	Task        *ProposedTask    `json:"task,omitempty"`
	Action      *ProposedAction  `json:"action,omitempty"`
	Insight     *ProposedInsight `json:"insight,omitempty"`
	Intent      Label            `json:"intencion,omitempty"`
	BotType     string           `json:"botType,omitempty"`
	DelegatedTo string           `json:"delegatedTo,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// ApologyText is the fallback response shown when a request fails.
const ApologyText = "Disculpa, hubo un error procesando tu consulta. Por favor intenta de nuevo."

package core

// ModelID is a string identifier for a model.
// Using string avoids coupling to a fixed model enum; new models work without
// a library release.
type ModelID string

// Role represents a message participant role.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TokenUsage tracks token consumption for a request.
// Streams report input tokens on message_start and cumulative output tokens on
// message_delta.
type TokenUsage struct {
	InputTokens              int `json:"input_tokens"`
	OutputTokens             int `json:"output_tokens"`
	CacheCreationInputTokens int `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int `json:"cache_read_input_tokens,omitempty"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

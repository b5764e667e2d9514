package llm

// DefaultMaxTokens is the output ceiling sent with every completion request.
const DefaultMaxTokens = 4096

// ChatRequest is the completion request sent to the provider.
// The provider client builds its SDK parameters from it; it is also what gets
// logged at debug level and archived alongside the response.
type ChatRequest struct {
	Model       string    `json:"model"`       // Model identifier (e.g., "gpt-3.5-turbo")
	Messages    []Message `json:"messages"`    // Full ordered conversation log
	Stream      bool      `json:"stream"`      // Always true for chat turns
	Temperature float64   `json:"temperature"` // 0 for deterministic answers
	MaxTokens   int       `json:"max_tokens"`  // Output length ceiling
}

// NewChatRequest builds a streaming request for messages with the given sampling settings.
func NewChatRequest(model string, messages []Message, temperature float64, maxTokens int) *ChatRequest {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	// role+content only, copied so later appends to the log never leak in
	msgs := make([]Message, len(messages))
	copy(msgs, messages)

	return &ChatRequest{
		Model:       model,
		Messages:    msgs,
		Stream:      true,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}

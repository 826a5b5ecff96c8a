package llm

// Role tags who authored a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Chat builds the two-message prompt shape every extraction call uses.
func Chat(system, user string) []Message {
	return []Message{
		{Role: RoleSystem, Content: system},
		{Role: RoleUser, Content: user},
	}
}

// DefaultMaxTokens bounds responses when the caller does not set a
// limit.
const DefaultMaxTokens = 4096

// CompletionRequest describes one model call. Model overrides the
// provider default when set. JSONMode asks the provider for a JSON
// object response where the API supports it.
type CompletionRequest struct {
	Model       string
	Messages    []Message
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// CompletionResponse carries the model output plus the token counts
// the budget ledger needs.
type CompletionResponse struct {
	Content      string
	InputTokens  int
	OutputTokens int
	Model        string
	FinishReason string
}

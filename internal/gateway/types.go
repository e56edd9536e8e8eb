package gateway

// Message is one chat message in an OpenAI-style completion request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Roles understood by the gateway.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatRequest is the OpenAI-compatible chat completion request.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
}

// ChatResponse is the subset of the completion response the assistant reads.
type ChatResponse struct {
	ID      string   `json:"id,omitempty"`
	Choices []Choice `json:"choices"`
}

// Choice is one completion candidate.
type Choice struct {
	Message Message `json:"message"`
}

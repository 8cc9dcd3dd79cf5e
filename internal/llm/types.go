package llm

//go:generate go run go.uber.org/mock/mockgen@latest -destination=mocks/mock_llm.go -package=mocks github.com/darshan-sc/lab-assistant/internal/llm Generator,Embedder

import "context"

// Generator produces free text from a system prompt and a user prompt.
//
// There is no structural guarantee on the output beyond best-effort adherence
// to the prompt instructions; callers must parse defensively.
type Generator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Embedder maps texts to fixed-dimension float vectors, one vector per input
// text, order-preserving.
type Embedder interface {
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)
}

// Message represents a single message in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

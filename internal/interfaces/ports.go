package interfaces

import "context"

// Messenger sends messages back to the chat platform.
type Messenger interface {
	Reply(ctx context.Context, replyToken, text string) error
	Push(ctx context.Context, to, text string) error
}

// Embedder turns text into a vector. Queries and documents use different
// task types, so they are separate methods.
type Embedder interface {
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
	EmbedDocument(ctx context.Context, text string) ([]float32, error)
}

// Generator produces a completion for a fully composed prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Notifier delivers operational notifications (digest copies, alerts)
// outside the chat platform.
type Notifier interface {
	Notify(text string) error
}

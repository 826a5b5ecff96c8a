// Package llm is the model-call boundary. Providers are plain remote
// functions (messages in, text out); rate limiting and the daily spend
// cutoff are wrappers applied by the caller, never provider logic.
package llm

import "context"

// Provider is one model backend. Implementations must be safe for
// concurrent use.
type Provider interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Name() string
}

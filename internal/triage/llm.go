package triage

import "context"

// Provider is the interface for any text-generation backend. Model identity
// is fixed at construction time; the engine never branches on model names.
type Provider interface {
	Generate(ctx context.Context, req *GenerateRequest) (*GenerateResponse, error)
}

// GenerateRequest is a single completion request.
type GenerateRequest struct {
	System    string
	Prompt    string
	MaxTokens int
}

// GenerateResponse is the provider's reply.
type GenerateResponse struct {
	Text  string
	Model string
	Usage Usage
}

// Usage reports token consumption for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

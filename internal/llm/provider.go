package llm

//go:generate mockgen -source=provider.go -destination=mocks/mocks.go -package=mocks

import "context"

// GenerationParams are sampling settings passed through to the provider untouched.
// Zero fields inherit the client's defaults.
type GenerationParams struct {
	MaxTokens   int32
	Temperature float32
	TopP        float32
	TopK        float32
	// JSON asks the provider for an application/json response when it supports one.
	JSON bool
}

// merge fills zero fields of p from defaults.
func (p GenerationParams) merge(defaults GenerationParams) GenerationParams {
	if p.MaxTokens == 0 {
		p.MaxTokens = defaults.MaxTokens
	}
	if p.Temperature == 0 {
		p.Temperature = defaults.Temperature
	}
	if p.TopP == 0 {
		p.TopP = defaults.TopP
	}
	if p.TopK == 0 {
		p.TopK = defaults.TopK
	}
	p.JSON = p.JSON || defaults.JSON
	return p
}

// Provider is the generative AI boundary: one prompt in, one text out.
// Implementations do not retry; Client owns the retry policy.
type Provider interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

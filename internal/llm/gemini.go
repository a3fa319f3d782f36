package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"papertimes/internal/core"
)

// DefaultModel is the Gemini model used when none is configured.
const DefaultModel = "gemini-flash-lite-latest"

// GeminiConfig configures a GeminiProvider.
type GeminiConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	// BaseURL overrides the API endpoint; empty uses the SDK default.
	BaseURL string
}

// GeminiProvider implements Provider on the Google Gen AI SDK.
type GeminiProvider struct {
	client  *genai.Client
	model   string
	timeout time.Duration
}

// NewGeminiProvider creates a provider for the Gemini API.
func NewGeminiProvider(ctx context.Context, cfg GeminiConfig) (*GeminiProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini API key is required. Set GEMINI_API_KEY environment variable or ai.gemini.api_key in config file")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}

	gClient, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &GeminiProvider{client: gClient, model: cfg.Model, timeout: cfg.Timeout}, nil
}

// Model returns the configured model name.
func (p *GeminiProvider) Model() string { return p.model }

// Generate issues a single GenerateContent call. Failures are returned as *core.ProviderError.
func (p *GeminiProvider) Generate(ctx context.Context, prompt string, params GenerationParams) (string, error) {
	callCtx := ctx
	if p.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	contents := []*genai.Content{{
		Parts: []*genai.Part{{Text: prompt}},
		Role:  "user",
	}}

	resp, err := p.client.Models.GenerateContent(callCtx, p.model, contents, generateConfig(params))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", classifyError(err)
	}

	text := resp.Text()
	if text == "" {
		return "", &core.ProviderError{Code: CodeEmptyResponse, Err: errors.New("empty response from model")}
	}
	return text, nil
}

func generateConfig(params GenerationParams) *genai.GenerateContentConfig {
	config := &genai.GenerateContentConfig{}
	if params.MaxTokens > 0 {
		config.MaxOutputTokens = params.MaxTokens
	}
	if params.Temperature > 0 {
		config.Temperature = genai.Ptr(params.Temperature)
	}
	if params.TopP > 0 {
		config.TopP = genai.Ptr(params.TopP)
	}
	if params.TopK > 0 {
		config.TopK = genai.Ptr(params.TopK)
	}
	if params.JSON {
		config.ResponseMIMEType = "application/json"
	}
	return config
}

// classifyError maps SDK errors onto provider status codes.
func classifyError(err error) error {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.Status
		if code == "" {
			code = statusFromHTTP(apiErr.Code)
		}
		return &core.ProviderError{Code: code, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.ProviderError{Code: CodeDeadlineExceeded, Err: err}
	}
	return &core.ProviderError{Code: CodeUnknown, Err: err}
}

func statusFromHTTP(status int) string {
	switch status {
	case http.StatusTooManyRequests:
		return CodeResourceExhausted
	case http.StatusServiceUnavailable:
		return CodeUnavailable
	case http.StatusGatewayTimeout:
		return CodeDeadlineExceeded
	case http.StatusBadRequest:
		return CodeInvalidArgument
	case http.StatusUnauthorized:
		return CodeUnauthenticated
	case http.StatusForbidden:
		return CodePermissionDenied
	case http.StatusNotFound:
		return CodeNotFound
	case http.StatusInternalServerError:
		return CodeInternal
	}
	return CodeUnknown
}

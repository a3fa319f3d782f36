package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/cenkalti/backoff/v4"

	"papertimes/internal/core"
	"papertimes/internal/logger"
)

// Provider status codes. The first three are transient and retried.
const (
	CodeResourceExhausted = "RESOURCE_EXHAUSTED"
	CodeUnavailable       = "UNAVAILABLE"
	CodeDeadlineExceeded  = "DEADLINE_EXCEEDED"
	CodeInvalidArgument   = "INVALID_ARGUMENT"
	CodePermissionDenied  = "PERMISSION_DENIED"
	CodeUnauthenticated   = "UNAUTHENTICATED"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL"
	CodeEmptyResponse     = "EMPTY_RESPONSE"
	CodeUnknown           = "UNKNOWN"
)

var transientCodes = map[string]bool{
	CodeResourceExhausted: true,
	CodeUnavailable:       true,
	CodeDeadlineExceeded:  true,
}

// IsTransient reports whether err is a provider error worth retrying.
func IsTransient(err error) bool {
	var pe *core.ProviderError
	return errors.As(err, &pe) && transientCodes[pe.Code]
}

// RetryPolicy bounds retries of transient provider errors.
// Attempt i (0-indexed) waits BaseDelay * 2^i before the next try.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Jitter is the backoff randomization factor in [0, 1). Zero gives exact doubling.
	Jitter float64
}

// DefaultRetryPolicy is three attempts starting at one second.
var DefaultRetryPolicy = RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}

// RetryFunc observes a scheduled retry: the attempt that failed (1-based), its error and the wait before the next one.
type RetryFunc func(attempt int, err error, delay time.Duration)

// Client renders prompt templates and calls a Provider with retries. It holds no per-request state.
type Client struct {
	provider Provider
	params   GenerationParams
	policy   RetryPolicy
	onRetry  RetryFunc
	log      *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithParams sets the default generation params.
func WithParams(p GenerationParams) Option {
	return func(c *Client) { c.params = p }
}

// WithRetryPolicy replaces DefaultRetryPolicy.
func WithRetryPolicy(p RetryPolicy) Option {
	return func(c *Client) { c.policy = p }
}

// WithRetryObserver registers fn to be called before every retry wait.
func WithRetryObserver(fn RetryFunc) Option {
	return func(c *Client) { c.onRetry = fn }
}

// NewClient creates a Client over provider.
func NewClient(provider Provider, opts ...Option) *Client {
	c := &Client{
		provider: provider,
		policy:   DefaultRetryPolicy,
		log:      logger.Get().With("component", "llm"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.policy.MaxAttempts < 1 {
		c.policy.MaxAttempts = 1
	}
	return c
}

// Complete renders tmpl with vars and returns the provider's raw text.
// Transient provider errors are retried per the client's RetryPolicy; the last
// error is returned as a *core.ProviderError once attempts run out.
func (c *Client) Complete(ctx context.Context, tmpl string, vars map[string]string, params GenerationParams) (string, error) {
	prompt := RenderTemplate(tmpl, vars)
	params = params.merge(c.params)

	var (
		text    string
		attempt int
	)
	op := func() error {
		attempt++
		out, err := c.provider.Generate(ctx, prompt, params)
		if err == nil {
			text = out
			return nil
		}
		if ctx.Err() != nil {
			return backoff.Permanent(ctx.Err())
		}
		err = asProviderError(err)
		if !IsTransient(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		code := CodeUnknown
		var pe *core.ProviderError
		if errors.As(err, &pe) {
			code = pe.Code
		}
		c.log.Warn("Transient provider error, retrying",
			"attempt", attempt,
			"max_attempts", c.policy.MaxAttempts,
			"delay", delay,
			"code", code)
		if c.onRetry != nil {
			c.onRetry(attempt, err, delay)
		}
	}

	if err := backoff.RetryNotify(op, c.backOff(ctx), notify); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("ai completion canceled after %d attempt(s): %w", attempt, ctxErr)
		}
		return "", err
	}
	return text, nil
}

func (c *Client) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.policy.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = c.policy.Jitter
	b.MaxInterval = time.Duration(math.MaxInt64)
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(c.policy.MaxAttempts-1)), ctx)
}

func asProviderError(err error) error {
	var pe *core.ProviderError
	if errors.As(err, &pe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &core.ProviderError{Code: CodeDeadlineExceeded, Err: err}
	}
	return &core.ProviderError{Code: CodeUnknown, Err: err}
}

var placeholder = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// RenderTemplate substitutes {name} placeholders with vars[name].
// Placeholders without a matching variable are left as written.
func RenderTemplate(tmpl string, vars map[string]string) string {
	return placeholder.ReplaceAllStringFunc(tmpl, func(m string) string {
		if v, ok := vars[m[1:len(m)-1]]; ok {
			return v
		}
		return m
	})
}

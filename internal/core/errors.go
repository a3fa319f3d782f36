package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned when a referenced document, newspaper, account or template does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput is returned for malformed requests.
	ErrInvalidInput = errors.New("invalid input")
	// ErrConflict is returned when an entity is not in a state that allows the operation.
	ErrConflict = errors.New("conflict")
)

// Error codes stored in ErrorRecord.Code.
const (
	CodeFetch         = "fetch_error"
	CodeFormat        = "format_error"
	CodeProvider      = "provider_error"
	CodeNotFound      = "not_found"
	CodeTimeout       = "timeout"
	CodeEnqueueFailed = "enqueue_failed"
	CodeInternal      = "internal"
)

// FetchError means a source document could not be retrieved. It is never retried.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// FormatError means the retrieved content could not be parsed as a supported document type.
type FormatError struct {
	ContentType string
	Err         error
}

func (e *FormatError) Error() string {
	if e.ContentType == "" {
		return fmt.Sprintf("unsupported document: %v", e.Err)
	}
	return fmt.Sprintf("unsupported document (%s): %v", e.ContentType, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// ProviderError is a failure reported by the generative AI service.
// Code is the provider status name, e.g. UNAVAILABLE or RESOURCE_EXHAUSTED.
type ProviderError struct {
	Code string
	Err  error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("ai provider %s: %v", e.Code, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// DenyReason explains why the quota guard refused a generation.
type DenyReason string

const (
	DenyQuotaExceeded   DenyReason = "quota_exceeded"
	DenyPremiumTemplate DenyReason = "premium_template"
)

// QuotaDeniedError is surfaced synchronously when a generation is not allowed.
type QuotaDeniedError struct {
	Reason DenyReason
}

func (e *QuotaDeniedError) Error() string {
	switch e.Reason {
	case DenyQuotaExceeded:
		return "generation quota exceeded for this period"
	case DenyPremiumTemplate:
		return "template requires a premium membership"
	}
	return "generation denied: " + string(e.Reason)
}

// NotReadyError is returned when a newspaper references documents that have not completed analysis.
type NotReadyError struct {
	DocumentIDs []string
}

func (e *NotReadyError) Error() string {
	return "documents not ready: " + strings.Join(e.DocumentIDs, ", ")
}

// ErrorCode maps an error to the code recorded in an ErrorRecord.
func ErrorCode(err error) string {
	var (
		fetchErr    *FetchError
		formatErr   *FormatError
		providerErr *ProviderError
	)
	switch {
	case errors.As(err, &fetchErr):
		return CodeFetch
	case errors.As(err, &formatErr):
		return CodeFormat
	case errors.As(err, &providerErr):
		return CodeProvider + ":" + providerErr.Code
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	}
	return CodeInternal
}

package transport

import (
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-saved/core"
)

const maxErrorBodyPreview = 256

// StatusError is a non-2xx provider response.
type StatusError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *StatusError) Error() string {
	if e == nil {
		return "transport: unexpected status"
	}
	msg := fmt.Sprintf("transport: unexpected status %d", e.StatusCode)
	if e.URL != "" {
		msg += " from " + e.URL
	}
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

func (e *StatusError) HTTPStatus() int {
	if e == nil {
		return 0
	}
	return e.StatusCode
}

// Unwrap exposes the rejection sentinel for 401 and 403 so callers can test
// with errors.Is.
func (e *StatusError) Unwrap() error {
	if e == nil {
		return nil
	}
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return core.ErrCredentialRejected
	}
	return nil
}

// CheckStatus returns a *StatusError for responses outside 2xx.
func CheckStatus(url string, res core.TransportResponse) error {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return nil
	}
	body := strings.TrimSpace(string(res.Body))
	if len(body) > maxErrorBodyPreview {
		body = body[:maxErrorBodyPreview]
	}
	return &StatusError{StatusCode: res.StatusCode, URL: url, Body: body}
}

func transportError(
	message string,
	category goerrors.Category,
	code int,
	metadata map[string]any,
) error {
	err := goerrors.New(message, category).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportWrapError(
	source error,
	category goerrors.Category,
	message string,
	code int,
	metadata map[string]any,
) error {
	if source == nil {
		return transportError(message, category, code, metadata)
	}
	err := goerrors.Wrap(source, category, message).
		WithCode(code).
		WithTextCode(transportTextCode(category))
	if len(metadata) > 0 {
		err.WithMetadata(metadata)
	}
	return err
}

func transportTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return core.ServiceErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return core.ServiceErrorAuthRejected
	case goerrors.CategoryExternal:
		return core.ServiceErrorTransport
	default:
		return core.ServiceErrorInternal
	}
}

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

// StatusCoder is implemented by transport errors that carry the provider's
// HTTP status.
type StatusCoder interface {
	HTTPStatus() int
}

// ContentClient fetches one page of saved items for an identity.
type ContentClient struct {
	pageSize int
}

func NewContentClient(pageSize int) ContentClient {
	if pageSize <= 0 || pageSize > MaxPageSize {
		pageSize = DefaultPageSize
	}
	return ContentClient{pageSize: pageSize}
}

func (c ContentClient) clampLimit(limit int) int {
	if limit <= 0 {
		limit = c.pageSize
		if limit <= 0 {
			limit = DefaultPageSize
		}
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	return limit
}

// FetchPage requests one page in provider order. Rejected credentials come
// back as *AuthRejectedError, every other failure as *TransportError.
func (c ContentClient) FetchPage(ctx context.Context, client ClientHandle, identity Identity, req PageRequest) (RawPage, error) {
	if client == nil {
		return RawPage{}, &NotAuthenticatedError{}
	}
	if strings.TrimSpace(identity.Name) == "" {
		return RawPage{}, &TransportError{Cause: fmt.Errorf("core: identity name is required")}
	}
	req.Cursor = strings.TrimSpace(req.Cursor)
	req.Limit = c.clampLimit(req.Limit)

	page, err := client.FetchSavedPage(ctx, identity, req)
	if err != nil {
		return RawPage{}, classifyTransportError(err)
	}
	return page, nil
}

func classifyTransportError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	var rejected *AuthRejectedError
	if errors.As(err, &rejected) {
		return err
	}
	var transportErr *TransportError
	if errors.As(err, &transportErr) {
		if transportErr.StatusCode == http.StatusUnauthorized || transportErr.StatusCode == http.StatusForbidden {
			return &AuthRejectedError{StatusCode: transportErr.StatusCode, Cause: err}
		}
		return err
	}
	if errors.Is(err, ErrCredentialRejected) {
		return &AuthRejectedError{Cause: err}
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		if richErr.Category == goerrors.CategoryAuth || richErr.Code == http.StatusUnauthorized || richErr.Code == http.StatusForbidden {
			return &AuthRejectedError{StatusCode: richErr.Code, Cause: err}
		}
		return &TransportError{StatusCode: richErr.Code, Cause: err}
	}
	var coder StatusCoder
	if errors.As(err, &coder) {
		if status := coder.HTTPStatus(); status == http.StatusUnauthorized || status == http.StatusForbidden {
			return &AuthRejectedError{StatusCode: status, Cause: err}
		}
		return &TransportError{StatusCode: coder.HTTPStatus(), Cause: err}
	}
	return &TransportError{Cause: err}
}

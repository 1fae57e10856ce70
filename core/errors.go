package core

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	ServiceErrorBadInput         = "SAVED_BAD_INPUT"
	ServiceErrorStorage          = "SAVED_STORAGE_FAILED"
	ServiceErrorStateMismatch    = "SAVED_OAUTH_STATE_MISMATCH"
	ServiceErrorExchangeFailed   = "SAVED_EXCHANGE_FAILED"
	ServiceErrorNotAuthenticated = "SAVED_NOT_AUTHENTICATED"
	ServiceErrorAuthRejected     = "SAVED_AUTH_REJECTED"
	ServiceErrorTransport        = "SAVED_TRANSPORT_FAILED"
	ServiceErrorMalformedItem    = "SAVED_MALFORMED_ITEM"
	ServiceErrorProfileNotFound  = "SAVED_PROFILE_NOT_FOUND"
	ServiceErrorInternal         = "SAVED_INTERNAL_ERROR"
)

var (
	ErrStorage          = errors.New("core: storage failed")
	ErrStateMismatch    = errors.New("core: oauth state mismatch")
	ErrExchange         = errors.New("core: grant exchange failed")
	ErrNotAuthenticated = errors.New("core: not authenticated")
	ErrTransport        = errors.New("core: transport failed")
	ErrAuthRejected     = errors.New("core: credential rejected")
	ErrMalformedItem    = errors.New("core: malformed item")
)

type ServiceErrorConvertible interface {
	ToServiceError() *goerrors.Error
}

type StorageError struct {
	Op    string
	Key   string
	Cause error
}

func (e *StorageError) Error() string {
	if e == nil {
		return ErrStorage.Error()
	}
	msg := ErrStorage.Error()
	if e.Op != "" {
		msg += ": " + e.Op
	}
	if e.Key != "" {
		msg += " " + e.Key
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *StorageError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrStorage
	}
	return errors.Join(ErrStorage, e.Cause)
}

func (e *StorageError) ToServiceError() *goerrors.Error {
	var key string
	if e != nil {
		key = e.Key
	}
	return goerrors.New(e.Error(), goerrors.CategoryInternal).
		WithCode(http.StatusInternalServerError).
		WithTextCode(ServiceErrorStorage).
		WithMetadata(map[string]any{"key": key})
}

type StateMismatchError struct{}

func (e *StateMismatchError) Error() string {
	return ErrStateMismatch.Error()
}

func (e *StateMismatchError) Unwrap() error {
	return ErrStateMismatch
}

func (e *StateMismatchError) ToServiceError() *goerrors.Error {
	return goerrors.New(ErrStateMismatch.Error(), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ServiceErrorStateMismatch)
}

type ExchangeError struct {
	Cause error
}

func (e *ExchangeError) Error() string {
	if e == nil || e.Cause == nil {
		return ErrExchange.Error()
	}
	return ErrExchange.Error() + ": " + e.Cause.Error()
}

func (e *ExchangeError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrExchange
	}
	return errors.Join(ErrExchange, e.Cause)
}

func (e *ExchangeError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ServiceErrorExchangeFailed)
}

type NotAuthenticatedError struct {
	State SessionState
}

func (e *NotAuthenticatedError) Error() string {
	if e == nil || e.State == "" {
		return ErrNotAuthenticated.Error()
	}
	return fmt.Sprintf("%s: session is %s", ErrNotAuthenticated.Error(), e.State)
}

func (e *NotAuthenticatedError) Unwrap() error {
	return ErrNotAuthenticated
}

func (e *NotAuthenticatedError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ServiceErrorNotAuthenticated)
}

type AuthRejectedError struct {
	StatusCode int
	Cause      error
}

func (e *AuthRejectedError) Error() string {
	if e == nil {
		return ErrAuthRejected.Error()
	}
	msg := ErrAuthRejected.Error()
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *AuthRejectedError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrAuthRejected
	}
	return errors.Join(ErrAuthRejected, e.Cause)
}

func (e *AuthRejectedError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryAuth).
		WithCode(http.StatusUnauthorized).
		WithTextCode(ServiceErrorAuthRejected)
}

type TransportError struct {
	StatusCode int
	Cause      error
}

func (e *TransportError) Error() string {
	if e == nil {
		return ErrTransport.Error()
	}
	msg := ErrTransport.Error()
	if e.StatusCode > 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *TransportError) Unwrap() error {
	if e == nil || e.Cause == nil {
		return ErrTransport
	}
	return errors.Join(ErrTransport, e.Cause)
}

func (e *TransportError) ToServiceError() *goerrors.Error {
	return goerrors.New(e.Error(), goerrors.CategoryExternal).
		WithCode(http.StatusBadGateway).
		WithTextCode(ServiceErrorTransport)
}

type MalformedItemError struct {
	Index  int
	Name   string
	Reason string
}

func (e *MalformedItemError) Error() string {
	if e == nil || strings.TrimSpace(e.Reason) == "" {
		return ErrMalformedItem.Error()
	}
	return ErrMalformedItem.Error() + ": " + e.Reason
}

func (e *MalformedItemError) Unwrap() error {
	return ErrMalformedItem
}

func (e *MalformedItemError) ToServiceError() *goerrors.Error {
	var fields []goerrors.FieldError
	if e != nil {
		fields = append(fields, goerrors.FieldError{Field: "name", Message: e.Reason})
	}
	return goerrors.NewValidation(e.Error(), fields...).
		WithCode(http.StatusUnprocessableEntity).
		WithTextCode(ServiceErrorMalformedItem)
}

// ErrorReason returns the taxonomy name reported to the UI for err.
func ErrorReason(err error) string {
	if err == nil {
		return ""
	}
	var (
		authRejected *AuthRejectedError
		transport    *TransportError
		notAuth      *NotAuthenticatedError
		mismatch     *StateMismatchError
		exchange     *ExchangeError
		storage      *StorageError
		malformed    *MalformedItemError
	)
	switch {
	case errors.As(err, &authRejected):
		return "AuthRejectedError"
	case errors.As(err, &mismatch):
		return "StateMismatchError"
	case errors.As(err, &exchange):
		return "ExchangeError"
	case errors.As(err, &notAuth):
		return "NotAuthenticatedError"
	case errors.As(err, &transport):
		return "TransportError"
	case errors.As(err, &storage):
		return "StorageError"
	case errors.As(err, &malformed):
		return "MalformedItemError"
	default:
		return "InternalError"
	}
}

// MapError converts err into a go-errors envelope.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}
	var convertible ServiceErrorConvertible
	if errors.As(err, &convertible) {
		if mapped := convertible.ToServiceError(); mapped != nil {
			return ensureServiceErrorEnvelope(mapped)
		}
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureServiceErrorEnvelope(richErr)
	}
	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureServiceErrorEnvelope(mapped)
}

func ensureServiceErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = serviceHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultServiceTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultServiceTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return ServiceErrorBadInput
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return ServiceErrorNotAuthenticated
	case goerrors.CategoryExternal:
		return ServiceErrorTransport
	default:
		return ServiceErrorInternal
	}
}

func serviceHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

var errServiceNotConfigured = errors.New("core: service is not configured")

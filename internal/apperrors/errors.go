// Package apperrors defines the shared error taxonomy for the Service Bus
// console engine: a single tagged error type plus helpers, in the style of
// the broader system-design-library's pkg/errors.
package apperrors

import (
	"errors"
	"fmt"
	"time"
)

// Kind identifies a class of failure. Components switch on Kind rather than
// comparing error strings.
type Kind string

const (
	KindConnectionFailed        Kind = "CONNECTION_FAILED"
	KindConnectionLost          Kind = "CONNECTION_LOST"
	KindAuthenticationFailed    Kind = "AUTHENTICATION_FAILED"
	KindConsumerCreationFailed  Kind = "CONSUMER_CREATION_FAILED"
	KindConsumerNotFound        Kind = "CONSUMER_NOT_FOUND"
	KindConsumerAlreadyExists   Kind = "CONSUMER_ALREADY_EXISTS"
	KindProducerCreationFailed  Kind = "PRODUCER_CREATION_FAILED"
	KindProducerNotFound        Kind = "PRODUCER_NOT_FOUND"
	KindMessageReceiveFailed    Kind = "MESSAGE_RECEIVE_FAILED"
	KindMessageSendFailed       Kind = "MESSAGE_SEND_FAILED"
	KindMessageCompleteFailed   Kind = "MESSAGE_COMPLETE_FAILED"
	KindMessageAbandonFailed    Kind = "MESSAGE_ABANDON_FAILED"
	KindMessageDeadLetterFailed Kind = "MESSAGE_DEAD_LETTER_FAILED"
	KindBulkOperationFailed     Kind = "BULK_OPERATION_FAILED"
	KindBulkPartialFailure      Kind = "BULK_OPERATION_PARTIAL_FAILURE"
	KindQueueNotFound           Kind = "QUEUE_NOT_FOUND"
	KindInvalidQueueName        Kind = "INVALID_QUEUE_NAME"
	KindQueueSwitchFailed       Kind = "QUEUE_SWITCH_FAILED"
	KindConfigurationError      Kind = "CONFIGURATION_ERROR"
	KindInvalidConfiguration    Kind = "INVALID_CONFIGURATION"
	KindOperationTimeout        Kind = "OPERATION_TIMEOUT"
	KindRateLimited             Kind = "RATE_LIMITED"
	KindCancelled               Kind = "CANCELLED"
	KindInternal                Kind = "INTERNAL_ERROR"
	KindUnknown                 Kind = "UNKNOWN"

	// Token-refresh specific kinds (spec §7). MapTokenRefreshError maps
	// most refresh failures into the kinds above; max-retries-exceeded and
	// refresh-not-supported come out as KindMaxRetriesExceeded and
	// KindRefreshNotSupported, not as one of the kinds above.
	KindMaxRetriesExceeded  Kind = "MAX_RETRIES_EXCEEDED"
	KindInvalidRefreshToken Kind = "INVALID_REFRESH_TOKEN"
	KindRefreshNotSupported Kind = "REFRESH_NOT_SUPPORTED"
	KindRefreshTokenExpired Kind = "REFRESH_TOKEN_EXPIRED"
	KindServiceUnavailable  Kind = "SERVICE_UNAVAILABLE"
)

// Error is the common error type returned across the engine. It always
// carries a Kind so callers (and the Command Bus response boundary) can
// render structured, kind-specific UI behavior.
type Error struct {
	Kind       Kind
	Message    string
	Err        error
	RetryAfter time.Duration // populated for KindRateLimited
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error of the given kind.
func New(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Err: cause}
}

// RateLimitedf builds a KindRateLimited error carrying the retry-after hint.
func RateLimitedf(retryAfter time.Duration, format string, args ...any) *Error {
	return &Error{Kind: KindRateLimited, Message: fmt.Sprintf(format, args...), RetryAfter: retryAfter}
}

// Is reports whether err's Kind matches k.
func Is(err error, k Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == k
	}
	return false
}

// KindOf extracts the Kind of err, or KindUnknown if err is not (or does
// not wrap) an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// TokenRefreshKind enumerates the auth-layer-specific refresh failures
// (spec.md §7) before they are mapped into the common taxonomy.
type TokenRefreshKind string

const (
	TokenRefreshMaxRetriesExceeded TokenRefreshKind = "max_retries_exceeded"
	TokenRefreshNetworkError       TokenRefreshKind = "network_error"
	TokenRefreshInvalidToken       TokenRefreshKind = "invalid_refresh_token"
	TokenRefreshNotSupported       TokenRefreshKind = "refresh_not_supported"
	TokenRefreshTokenExpired       TokenRefreshKind = "refresh_token_expired"
	TokenRefreshRateLimited        TokenRefreshKind = "rate_limited"
	TokenRefreshServiceUnavailable TokenRefreshKind = "service_unavailable"
)

// MapTokenRefreshError maps a token-refresh-specific failure into an
// *Error. Expired/invalid refresh tokens become KindAuthenticationFailed,
// network and service-unavailable failures KindConnectionFailed, and rate
// limiting KindRateLimited; max-retries-exceeded and refresh-not-supported
// keep their own refresh kinds and are not mapped into the common kinds.
func MapTokenRefreshError(kind TokenRefreshKind, msg string, retryAfter time.Duration) *Error {
	switch kind {
	case TokenRefreshTokenExpired, TokenRefreshInvalidToken:
		return New(KindAuthenticationFailed, msg, nil)
	case TokenRefreshNetworkError, TokenRefreshServiceUnavailable:
		return New(KindConnectionFailed, msg, nil)
	case TokenRefreshRateLimited:
		return RateLimitedf(retryAfter, "%s", msg)
	case TokenRefreshMaxRetriesExceeded:
		return New(KindMaxRetriesExceeded, msg, nil)
	case TokenRefreshNotSupported:
		return New(KindRefreshNotSupported, msg, nil)
	default:
		return New(KindAuthenticationFailed, msg, nil)
	}
}

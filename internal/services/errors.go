package services

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure kinds surfaced to callers.
// It implements error so errors.Is(err, KindNotFound) matches a *ServiceError.
type ErrorKind string

const (
	KindUnsupportedPlatform    ErrorKind = "unsupported_platform"
	KindInvalidState           ErrorKind = "invalid_state"
	KindTokenExchangeFailed    ErrorKind = "token_exchange_failed"
	KindAccountInfoFailed      ErrorKind = "account_info_failed"
	KindInvalidToken           ErrorKind = "invalid_token"
	KindInsufficientPermission ErrorKind = "insufficient_permission"
	KindMissingRequiredMedia   ErrorKind = "missing_required_media"
	KindRateLimited            ErrorKind = "rate_limited"
	KindNotFound               ErrorKind = "not_found"
	KindProviderUnavailable    ErrorKind = "provider_unavailable"
	KindUnknownProviderError   ErrorKind = "unknown_provider_error"

	// KindInternal covers persistence and configuration failures. Provider
	// codes never translate to it.
	KindInternal ErrorKind = "internal_error"
)

func (k ErrorKind) Error() string { return string(k) }

var defaultHelp = map[ErrorKind]string{
	KindUnsupportedPlatform:    "This platform is not available. Contact support if you expected it to be enabled.",
	KindInvalidState:           "The connection request expired or was tampered with. Start the connection again.",
	KindTokenExchangeFailed:    "The platform did not accept the authorization. Try connecting again.",
	KindAccountInfoFailed:      "We could not find an account to publish as. Check the account type and permissions, then reconnect.",
	KindInvalidToken:           "Your connection has expired or was revoked. Reconnect the account.",
	KindInsufficientPermission: "The connection is missing a required permission. Reconnect and grant all requested permissions.",
	KindMissingRequiredMedia:   "This platform requires an image. Add an image URL and try again.",
	KindRateLimited:            "The platform is limiting requests. Wait before publishing again.",
	KindNotFound:               "No active connection for this platform. Connect the account first.",
	KindProviderUnavailable:    "The platform is temporarily unavailable. Try again later.",
	KindUnknownProviderError:   "The platform returned an unexpected error.",
	KindInternal:               "Something went wrong on our side. Try again later.",
}

// HelpFor returns the default remediation text for a kind.
func HelpFor(kind ErrorKind) string {
	return defaultHelp[kind]
}

// ServiceError is the discriminated failure returned by every operation in
// this package.
type ServiceError struct {
	Kind     ErrorKind
	Platform string
	Message  string
	Help     string
	Raw      string // provider payload, for logs only
	Err      error
}

// NewError creates a ServiceError with the kind's default help text.
func NewError(kind ErrorKind, message string) *ServiceError {
	return &ServiceError{Kind: kind, Message: message, Help: HelpFor(kind)}
}

// WrapError creates a ServiceError that keeps err as its cause.
func WrapError(kind ErrorKind, err error) *ServiceError {
	se := NewError(kind, "")
	se.Err = err
	if err != nil {
		se.Message = err.Error()
	}
	return se
}

func (e *ServiceError) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	if e.Platform != "" {
		return fmt.Sprintf("%s: %s: %s", e.Platform, e.Kind, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// Is matches a target ErrorKind.
func (e *ServiceError) Is(target error) bool {
	k, ok := target.(ErrorKind)
	return ok && k == e.Kind
}

// KindOf classifies any error returned by this package.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Kind
	}
	switch {
	case errors.Is(err, ErrConnectionNotFound):
		return KindNotFound
	case errors.Is(err, ErrInvalidPlatform):
		return KindUnsupportedPlatform
	}
	return KindInternal
}

// AsServiceError converts err into a *ServiceError, classifying it with KindOf
// when it is not one already.
func AsServiceError(err error) *ServiceError {
	if err == nil {
		return nil
	}
	var se *ServiceError
	if errors.As(err, &se) {
		return se
	}
	return WrapError(KindOf(err), err)
}

// Package domainerrors defines the code-based error layer shared by services
// and transport. Services create errors with a Code; transport translates the
// Code to an HTTP status and never leaks internal detail to remote parties.
package domainerrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Code identifies a class of failure in the payment protocol.
type Code string

const (
	// Wire / crypto failures. These are deliberately indistinguishable to
	// remote callers: a malformed envelope and a bad signature both surface
	// as a generic bad request so the crypto layer cannot be used as an
	// oracle.
	CodeInvalidEnvelope Code = "invalid_envelope"
	CodeCryptoFailure   Code = "crypto_failure"

	// Protocol rejections.
	CodeUnknownBank       Code = "unknown_bank"
	CodeStateTampered     Code = "state_tampered"
	CodeForbidden         Code = "forbidden"
	CodeInsufficientFunds Code = "insufficient_funds"
	CodeSameAccount       Code = "same_account"

	// CodeTransient marks network/timeout failures. It is the only class a
	// client may retry by resubmission; everything else needs a fresh user
	// decision.
	CodeTransient Code = "transient"

	CodeBadRequest   Code = "bad_request"
	CodeUnauthorized Code = "unauthorized"
	CodeNotFound     Code = "not_found"
	CodeInternal     Code = "internal"
)

// GatewayError is the concrete error type carrying a Code.
type GatewayError struct {
	Code    Code
	Message string
	err     error
}

func (e GatewayError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e GatewayError) Unwrap() error { return e.err }

// New creates a GatewayError with the given code and message.
func New(code Code, message string) error {
	return GatewayError{Code: code, Message: message}
}

// Wrap attaches a code to an underlying error while preserving the chain.
func Wrap(code Code, message string, err error) error {
	return GatewayError{Code: code, Message: message, err: err}
}

// Is reports whether err carries the given code anywhere in its chain.
func Is(err error, code Code) bool {
	var gw GatewayError
	if errors.As(err, &gw) {
		return gw.Code == code
	}
	return false
}

// CodeOf extracts the code from err, defaulting to CodeInternal.
func CodeOf(err error) Code {
	var gw GatewayError
	if errors.As(err, &gw) {
		return gw.Code
	}
	return CodeInternal
}

// ToHTTPStatus maps a code to the HTTP status transport should answer with.
// Crypto and envelope failures collapse to 400 with no further detail.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidEnvelope, CodeCryptoFailure, CodeBadRequest:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound, CodeUnknownBank:
		return http.StatusNotFound
	case CodeStateTampered, CodeSameAccount, CodeInsufficientFunds:
		return http.StatusConflict
	case CodeTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

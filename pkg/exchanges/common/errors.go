package common

import (
	"errors"
	"fmt"
)

// Error codes shared by both venues. Exchange business-rule rejections keep
// the upstream code verbatim instead of one of these.
const (
	CodeInsufficientFunds = "INSUFFICIENT_FUNDS"
	CodeNoBalanceToSell   = "NO_BALANCE_TO_SELL"
	CodeTransportError    = "TRANSPORT_ERROR"
	CodeExchangeRejected  = "EXCHANGE_REJECTED"
	CodeSizeTooSmall      = "SIZE_TOO_SMALL"
)

// APIError is the uniform {code, message} fault shape. Every failure leaving
// an exchange client or gateway is one of these, regardless of origin.
type APIError struct {
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewAPIError builds a typed fault.
func NewAPIError(code, message string) *APIError {
	return &APIError{Code: code, Message: message}
}

// WrapTransport converts a network/HTTP failure into the uniform shape.
func WrapTransport(err error) *APIError {
	return &APIError{Code: CodeTransportError, Message: err.Error()}
}

// ErrorCode extracts the code from err, or "" when err is not an APIError.
func ErrorCode(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code
	}
	return ""
}

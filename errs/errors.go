package errs

import (
	"errors"
	"fmt"
)

// Domain groups error codes by the layer that produced them. The
// domain/code pair is stable and safe to surface across process
// boundaries (e.g. to a host-app UI).
type Domain string

const (
	DomainConfiguration Domain = "configuration"
	DomainInput         Domain = "input"
	DomainProvider      Domain = "provider"
	DomainBackend       Domain = "backend"
	DomainEnvironment   Domain = "environment"
)

type Code string

const (
	CodeNotInitialized Code = "not_initialized"

	CodeInvalidArgument Code = "invalid_argument"
	CodeNoProductIDs    Code = "no_product_ids"
	CodeProductNotFound Code = "product_not_found"

	CodeStoreProductNotFound  Code = "store_product_not_found"
	CodePurchaseFailed        Code = "purchase_failed"
	CodePurchaseCancelled     Code = "purchase_cancelled"
	CodePurchasePending       Code = "purchase_pending"
	CodeUnverifiedTransaction Code = "unverified_transaction"
	CodeRestoreFailed         Code = "restore_failed"

	CodeInvalidEndpoint             Code = "invalid_endpoint"
	CodeNoResponse                  Code = "no_response"
	CodeUnexpectedStatus            Code = "unexpected_status"
	CodeTransportFailure            Code = "transport_failure"
	CodeFetchFailed                 Code = "fetch_failed"
	CodeUserUpdateFailed            Code = "user_update_failed"
	CodeUnauthorized                Code = "unauthorized"
	CodeRetryExhausted              Code = "retry_exhausted"
	CodeDecodeFailure               Code = "decode_failure"
	CodePaymentCompletedWithFailure Code = "payment_completed_with_failure"

	CodeInvalidReceipt  Code = "invalid_receipt"
	CodeNoWindowContext Code = "no_window_context"
	CodeBadURL          Code = "bad_url"
)

// Error carries a stable domain/code pair plus an optional cause.
// Adapter and backend failures are mapped 1:1 into these pairs and the
// original cause is always preserved for errors.Is/As chains.
type Error struct {
	Domain  Domain
	Code    Code
	Message string

	cause error
}

func New(domain Domain, code Code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message}
}

func Newf(domain Domain, code Code, format string, args ...any) *Error {
	return &Error{Domain: domain, Code: code, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a domain/code pair to err without discarding it.
func Wrap(err error, domain Domain, code Code, message string) *Error {
	return &Error{Domain: domain, Code: code, Message: message, cause: err}
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s/%s: %s: %v", e.Domain, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s/%s: %s", e.Domain, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause implements the github.com/pkg/errors causer interface.
func (e *Error) Cause() error { return e.cause }

// Is matches on the domain/code pair so callers can compare against a
// template value, e.g. errors.Is(err, errs.New(errs.DomainBackend,
// errs.CodeUnauthorized, "")).
func (e *Error) Is(target error) bool {
	var other *Error
	if !errors.As(target, &other) {
		return false
	}
	return e.Domain == other.Domain && e.Code == other.Code
}

// CodeOf extracts the stable code from any error produced by the SDK.
// Unknown errors report CodePurchaseFailed in DomainProvider only when
// forced through FromUnknown; here they report ok=false.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

func IsCode(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}

package errs

// Convenience constructors for the well-known failure kinds. Message
// text is part of the public surface only insofar as it is
// human-readable; programs must branch on the domain/code pair.

func NotInitialized(message string) *Error {
	return New(DomainConfiguration, CodeNotInitialized, message)
}

func InvalidArgument(message string) *Error {
	return New(DomainInput, CodeInvalidArgument, message)
}

func NoProductIDs() *Error {
	return New(DomainInput, CodeNoProductIDs, "no product ids provided")
}

func ProductNotFound(productID string) *Error {
	return Newf(DomainInput, CodeProductNotFound, "product %q not found", productID)
}

func StoreProductNotFound(productID string) *Error {
	return Newf(DomainProvider, CodeStoreProductNotFound, "store product %q not found", productID)
}

func PurchaseFailed(cause error) *Error {
	return Wrap(cause, DomainProvider, CodePurchaseFailed, "purchase failed")
}

func PurchaseCancelled() *Error {
	return New(DomainProvider, CodePurchaseCancelled, "purchase cancelled by user")
}

func PurchasePending() *Error {
	return New(DomainProvider, CodePurchasePending, "purchase is pending approval")
}

func UnverifiedTransaction(transactionID string) *Error {
	return Newf(DomainProvider, CodeUnverifiedTransaction, "transaction %q failed verification", transactionID)
}

func RestoreFailed(cause error) *Error {
	return Wrap(cause, DomainProvider, CodeRestoreFailed, "restore failed")
}

func FetchFailed(cause error) *Error {
	return Wrap(cause, DomainBackend, CodeFetchFailed, "fetch failed")
}

func UserUpdateFailed(cause error) *Error {
	return Wrap(cause, DomainBackend, CodeUserUpdateFailed, "user update failed")
}

func Unauthorized() *Error {
	return New(DomainBackend, CodeUnauthorized, "unauthorized")
}

func RetryExhausted(attempts int) *Error {
	return Newf(DomainBackend, CodeRetryExhausted, "request failed after %d attempts", attempts)
}

func DecodeFailure(cause error) *Error {
	return Wrap(cause, DomainBackend, CodeDecodeFailure, "response decode failure")
}

func PaymentCompletedWithFailure(cause error) *Error {
	return Wrap(cause, DomainBackend, CodePaymentCompletedWithFailure,
		"payment completed but backend reconciliation failed")
}

func InvalidReceipt(cause error) *Error {
	return Wrap(cause, DomainEnvironment, CodeInvalidReceipt, "invalid receipt")
}

func NoWindowContext() *Error {
	return New(DomainEnvironment, CodeNoWindowContext, "no window context to present from")
}

func BadURL(raw string) *Error {
	return Newf(DomainEnvironment, CodeBadURL, "malformed url %q", raw)
}

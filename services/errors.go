package services

import "errors"

// Machine-readable error codes returned by the workflow engines.
// Handlers map them to HTTP statuses; clients switch on the code.
const (
	CodeInvalidSelection    = "INVALID_SELECTION"
	CodeIllegalTransition   = "ILLEGAL_TRANSITION"
	CodeSlotUnavailable     = "SLOT_UNAVAILABLE"
	CodePreconditionNotMet  = "PRECONDITION_NOT_MET"
	CodeDeadlineExceeded    = "DEADLINE_EXCEEDED"
	CodeOverpaymentRejected = "OVERPAYMENT_REJECTED"
	CodeDuplicateInvoice    = "DUPLICATE_INVOICE"
	CodePermissionDenied    = "PERMISSION_DENIED"
	CodeNotFound            = "NOT_FOUND"
)

// DomainError is a typed failure returned by the quote, scheduling,
// workflow and billing engines. Validation failures never leave partial
// state behind; anything that isn't a DomainError is an infrastructure
// error and the whole operation has been rolled back.
type DomainError struct {
	Code    string
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError builds a typed failure with the given code
func NewDomainError(code, message string) *DomainError {
	return &DomainError{Code: code, Message: message}
}

// CodeOf returns the machine code of a DomainError, or "" for other errors
func CodeOf(err error) string {
	var de *DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// IsDomainError reports whether err is a typed domain failure
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}

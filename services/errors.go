package services

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"idealtransport/utils"
)

type Kind string

const (
	KindNotFound     Kind = "not_found"
	KindConflict     Kind = "conflict"
	KindValidation   Kind = "validation_rejected"
	KindUnauthorized Kind = "unauthorized"
	KindForbidden    Kind = "forbidden"
)

// Error is a domain failure the caller can act on. Anything else reaching
// the HTTP layer is treated as internal.
type Error struct {
	Kind   Kind
	Code   string
	Detail string

	// Set for overpayment rejections.
	RemainingAmount *decimal.Decimal
	// Set when a delete is blocked by payments.
	TransactionCount int

	Err error
}

func (e *Error) Error() string { return e.Detail }

func (e *Error) Unwrap() error { return e.Err }

// AsError extracts a domain error from err's chain.
func AsError(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsKind reports whether err carries a domain error of kind k.
func IsKind(err error, k Kind) bool {
	e, ok := AsError(err)
	return ok && e.Kind == k
}

func newError(kind Kind, code, format string, args ...any) *Error {
	return &Error{Kind: kind, Code: code, Detail: fmt.Sprintf(format, args...)}
}

func notFound(code, format string, args ...any) *Error {
	return newError(KindNotFound, code, format, args...)
}

func conflict(code, format string, args ...any) *Error {
	return newError(KindConflict, code, format, args...)
}

func invalid(code, format string, args ...any) *Error {
	return newError(KindValidation, code, format, args...)
}

func invalidInput(format string, args ...any) *Error {
	return invalid("invalid_input", format, args...)
}

func overpayment(proposed, remaining decimal.Decimal) *Error {
	e := invalid("overpayment", "Payment amount $%s exceeds remaining due amount $%s",
		proposed.StringFixed(2), remaining.StringFixed(2))
	e.RemainingAmount = &remaining
	return e
}

func amountOutOfRange(field string) *Error {
	return invalid("amount_out_of_range", "%s must be at most %s with at most two decimal places",
		field, utils.MaxAmount.StringFixed(2))
}

func hasAssociatedTransactions(workOrderNo string, count int) *Error {
	e := invalid("has_associated_transactions",
		"Cannot delete bill of lading: %d transaction(s) reference work order %s", count, workOrderNo)
	e.TransactionCount = count
	return e
}

func workOrderNotFound(workOrderNo string) *Error {
	return notFound("work_order_not_found", "Work order %s not found", workOrderNo)
}

var errInvalidCredentials = &Error{
	Kind:   KindUnauthorized,
	Code:   "invalid_credentials",
	Detail: "Incorrect email or password",
}

var errInvalidToken = &Error{
	Kind:   KindUnauthorized,
	Code:   "invalid_token",
	Detail: "Could not validate credentials",
}

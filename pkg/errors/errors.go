package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeUpstream      Code = "UPSTREAM_ERROR"

	// Checkout and order lifecycle.
	CodeEmptyCart            Code = "EMPTY_CART"
	CodeCartLocked           Code = "CART_LOCKED"
	CodeDiscountLimitReached Code = "DISCOUNT_LIMIT_REACHED"
	CodeDiscountExpired      Code = "DISCOUNT_EXPIRED"
	CodeInvalidTransition    Code = "INVALID_TRANSITION"
	CodeCannotCancel         Code = "CANNOT_CANCEL"

	// Payments.
	CodeInvalidAmount  Code = "INVALID_AMOUNT"
	CodeMissingEmail   Code = "MISSING_EMAIL"
	CodeInvalidPayload Code = "INVALID_PAYLOAD"
)

// Metadata describes how a code is surfaced to API callers. Number is the
// stable numeric identifier clients can switch on.
type Metadata struct {
	HTTPStatus     int
	Number         int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		HTTPStatus:     http.StatusBadRequest,
		Number:         1001,
		PublicMessage:  "validation failed",
		DetailsAllowed: true,
	},
	CodeUnauthorized: {
		HTTPStatus:    http.StatusUnauthorized,
		Number:        1002,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		HTTPStatus:    http.StatusForbidden,
		Number:        1003,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		HTTPStatus:    http.StatusNotFound,
		Number:        1004,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		HTTPStatus:     http.StatusConflict,
		Number:         1005,
		PublicMessage:  "conflict detected",
		DetailsAllowed: true,
	},
	CodeStateConflict: {
		HTTPStatus:     http.StatusUnprocessableEntity,
		Number:         1006,
		PublicMessage:  "state transition disallowed",
		DetailsAllowed: true,
	},
	CodeIdempotency: {
		HTTPStatus:     http.StatusConflict,
		Number:         1007,
		PublicMessage:  "idempotency key reused",
		DetailsAllowed: true,
	},
	CodeRateLimit: {
		HTTPStatus:    http.StatusTooManyRequests,
		Number:        1008,
		PublicMessage: "rate limit exceeded",
	},
	CodeEmptyCart: {
		HTTPStatus:    http.StatusBadRequest,
		Number:        2001,
		PublicMessage: "cart is empty",
	},
	CodeCartLocked: {
		HTTPStatus:     http.StatusConflict,
		Number:         2002,
		PublicMessage:  "cart is already locked",
		DetailsAllowed: true,
	},
	CodeDiscountLimitReached: {
		HTTPStatus:     http.StatusConflict,
		Number:         2101,
		PublicMessage:  "discount usage limit reached",
		DetailsAllowed: true,
	},
	CodeDiscountExpired: {
		HTTPStatus:     http.StatusConflict,
		Number:         2102,
		PublicMessage:  "discount has expired",
		DetailsAllowed: true,
	},
	CodeInvalidTransition: {
		HTTPStatus:     http.StatusConflict,
		Number:         2201,
		PublicMessage:  "invalid status transition",
		DetailsAllowed: true,
	},
	CodeCannotCancel: {
		HTTPStatus:     http.StatusConflict,
		Number:         2202,
		PublicMessage:  "order can no longer be cancelled",
		DetailsAllowed: true,
	},
	CodeInvalidAmount: {
		HTTPStatus:    http.StatusBadRequest,
		Number:        2301,
		PublicMessage: "invalid payment amount",
	},
	CodeMissingEmail: {
		HTTPStatus:    http.StatusBadRequest,
		Number:        2302,
		PublicMessage: "customer email is required",
	},
	CodeInvalidPayload: {
		HTTPStatus:     http.StatusBadRequest,
		Number:         2303,
		PublicMessage:  "invalid payload",
		DetailsAllowed: true,
	},
	CodeInternal: {
		HTTPStatus:    http.StatusInternalServerError,
		Number:        5000,
		Retryable:     true,
		PublicMessage: "internal server error",
	},
	CodeUpstream: {
		HTTPStatus:    http.StatusBadGateway,
		Number:        5002,
		Retryable:     true,
		PublicMessage: "upstream service failed",
	},
	CodeDependency: {
		HTTPStatus:     http.StatusServiceUnavailable,
		Number:         5003,
		Retryable:      true,
		PublicMessage:  "dependency unavailable",
		DetailsAllowed: true,
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether err carries the provided code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

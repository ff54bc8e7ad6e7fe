package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation         Code = "VALIDATION_ERROR"
	CodeNotFound           Code = "NOT_FOUND"
	CodeUnauthorized       Code = "UNAUTHORIZED"
	CodeConflict           Code = "CONFLICT"
	CodeDuplicateSKU       Code = "DUPLICATE_SKU"
	CodeDuplicateName      Code = "DUPLICATE_NAME"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodeNotificationFailed Code = "NOTIFICATION_FAILED"
	CodePersistenceFailed  Code = "PERSISTENCE_FAILED"
	CodeInternal           Code = "INTERNAL_ERROR"
	CodeDependency         Code = "DEPENDENCY_ERROR"
)

// Metadata is how a code surfaces over HTTP.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:         {http.StatusBadRequest, false, "validation failed", true},
	CodeNotFound:           {http.StatusNotFound, false, "resource not found", false},
	CodeUnauthorized:       {http.StatusUnauthorized, false, "authentication required", false},
	CodeConflict:           {http.StatusConflict, false, "conflict detected", false},
	CodeDuplicateSKU:       {http.StatusConflict, false, "a product with this sku already exists", true},
	CodeDuplicateName:      {http.StatusConflict, false, "a product with this name already exists", true},
	CodeInsufficientStock:  {http.StatusConflict, false, "insufficient stock", true},
	CodeNotificationFailed: {http.StatusServiceUnavailable, true, "failed to publish inventory update event", false},
	CodePersistenceFailed:  {http.StatusInternalServerError, false, "failed to persist inventory update", false},
	CodeInternal:           {http.StatusInternalServerError, true, "internal server error", false},
	CodeDependency:         {http.StatusServiceUnavailable, true, "dependency unavailable", true},
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

// IsCode reports whether any *Error in err's chain carries code.
func IsCode(err error, code Code) bool {
	for err != nil {
		if typed, ok := err.(*Error); ok && typed != nil && typed.code == code {
			return true
		}
		err = stdErrors.Unwrap(err)
	}
	return false
}

// IsRetryable reports whether the outermost coded error may succeed on retry.
// Uncoded errors are treated as retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	typed := As(err)
	if typed == nil {
		return true
	}
	return MetadataFor(typed.code).Retryable
}

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

type ErrorCode string

// Kind groups error codes into the outcomes a caller can act on.
type Kind string

const (
	KindNotFound        Kind = "not_found"
	KindUnauthorized    Kind = "unauthorized"
	KindUnauthenticated Kind = "unauthenticated"
	KindInvalidState    Kind = "invalid_state"
	KindConflict        Kind = "conflict"
	KindValidation      Kind = "validation"
	KindInternal        Kind = "internal"
)

const (
	InvalidInput           ErrorCode = "invalid_input"
	InvalidID              ErrorCode = "invalid_id"
	InvalidPrice           ErrorCode = "invalid_price"
	InvalidPagination      ErrorCode = "invalid_pagination"
	CategoryNotFound       ErrorCode = "category_not_found"
	SelfPurchase           ErrorCode = "self_purchase"
	Unauthenticated        ErrorCode = "unauthenticated"
	InvalidToken           ErrorCode = "invalid_token"
	InvalidCredentials     ErrorCode = "invalid_credentials"
	UserNotFound           ErrorCode = "user_not_found"
	ProductNotFound        ErrorCode = "product_not_found"
	TransactionNotFound    ErrorCode = "transaction_not_found"
	NotAuthorized          ErrorCode = "not_authorized"
	NotPurchasable         ErrorCode = "not_purchasable"
	InvalidTxState         ErrorCode = "invalid_transaction_state"
	AlreadyTransacted      ErrorCode = "already_transacted"
	InvalidStatusChange    ErrorCode = "invalid_status_change"
	AlreadyOrdered         ErrorCode = "already_ordered"
	ConcurrentModification ErrorCode = "concurrent_modification"
	DuplicateUsername      ErrorCode = "duplicate_username"
	DuplicatePhone         ErrorCode = "duplicate_phone"
	DuplicateCampusCard    ErrorCode = "duplicate_campus_card"
	InternalError          ErrorCode = "internal_error"
)

type AppError struct {
	Kind    Kind      `json:"-"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is matches on the error code so that copies produced by WithDetails still
// compare equal to the predefined errors below.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Kind:    kindOf(code),
		Code:    code,
		Message: message,
	}
}

func NewAppErrorf(code ErrorCode, format string, args ...interface{}) *AppError {
	return NewAppError(code, fmt.Sprintf(format, args...))
}

// WithDetails returns a copy of the error carrying details. The receiver is
// left untouched so package-level errors can be decorated safely.
func (e *AppError) WithDetails(details string) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

// HTTPStatus maps the error kind onto a response status code.
func (e *AppError) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindInvalidState:
		return http.StatusUnprocessableEntity
	case KindConflict:
		return http.StatusConflict
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// From returns the AppError wrapped in err, or an internal error carrying
// err's text when err is not an AppError.
func From(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}
	return NewAppError(InternalError, "an unexpected error occurred").WithDetails(err.Error())
}

// Internal wraps an infrastructure failure.
func Internal(message string, err error) *AppError {
	appErr := NewAppError(InternalError, message)
	if err != nil {
		return appErr.WithDetails(err.Error())
	}
	return appErr
}

func kindOf(code ErrorCode) Kind {
	switch code {
	case UserNotFound, ProductNotFound, TransactionNotFound:
		return KindNotFound
	case NotAuthorized:
		return KindUnauthorized
	case Unauthenticated, InvalidToken, InvalidCredentials:
		return KindUnauthenticated
	case NotPurchasable, InvalidTxState, AlreadyTransacted, InvalidStatusChange:
		return KindInvalidState
	case AlreadyOrdered, ConcurrentModification, DuplicateUsername, DuplicatePhone, DuplicateCampusCard:
		return KindConflict
	case InvalidInput, InvalidID, InvalidPrice, InvalidPagination, CategoryNotFound, SelfPurchase:
		return KindValidation
	default:
		return KindInternal
	}
}

// Predefined errors for common cases
var (
	ErrInvalidInput           = NewAppError(InvalidInput, "invalid input")
	ErrInvalidID              = NewAppError(InvalidID, "malformed identifier")
	ErrInvalidPrice           = NewAppError(InvalidPrice, "invalid price")
	ErrInvalidPagination      = NewAppError(InvalidPagination, "page or page_size out of range")
	ErrCategoryNotFound       = NewAppError(CategoryNotFound, "category does not exist")
	ErrSelfPurchase           = NewAppError(SelfPurchase, "cannot buy own listing")
	ErrUnauthenticated        = NewAppError(Unauthenticated, "authentication required")
	ErrInvalidToken           = NewAppError(InvalidToken, "session token is invalid or expired")
	ErrInvalidCredentials     = NewAppError(InvalidCredentials, "invalid username or password")
	ErrUserNotFound           = NewAppError(UserNotFound, "user not found")
	ErrProductNotFound        = NewAppError(ProductNotFound, "product not found")
	ErrTransactionNotFound    = NewAppError(TransactionNotFound, "transaction not found")
	ErrNotAuthorized          = NewAppError(NotAuthorized, "not authorized")
	ErrNotPurchasable         = NewAppError(NotPurchasable, "product not purchasable")
	ErrInvalidTxState         = NewAppError(InvalidTxState, "invalid transaction state")
	ErrAlreadyTransacted      = NewAppError(AlreadyTransacted, "cannot withdraw, already transacted")
	ErrInvalidStatusChange    = NewAppError(InvalidStatusChange, "status change not allowed")
	ErrAlreadyOrdered         = NewAppError(AlreadyOrdered, "already ordered, awaiting seller/buyer resolution")
	ErrConcurrentModification = NewAppError(ConcurrentModification, "product is being modified by another request")
	ErrDuplicateUsername      = NewAppError(DuplicateUsername, "username already exists")
	ErrDuplicatePhone         = NewAppError(DuplicatePhone, "phone number already registered")
	ErrDuplicateCampusCard    = NewAppError(DuplicateCampusCard, "campus card already registered")
)

package errors

import (
	"errors"
	"fmt"

	"hearth-backend/ledger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type ErrorCode string

const (
	CodeUnauthorized       ErrorCode = "AUTH_001"
	CodeTokenExpired       ErrorCode = "AUTH_002"
	CodeTokenInvalid       ErrorCode = "AUTH_003"
	CodeNotHouseholdMember ErrorCode = "AUTH_005"

	CodeInvalidRequest       ErrorCode = "VALIDATION_001"
	CodeMissingRequiredField ErrorCode = "VALIDATION_002"
	CodeInvalidAmount        ErrorCode = "VALIDATION_004"
	CodeAmountMismatch       ErrorCode = "VALIDATION_005"
	CodeInvalidCurrency      ErrorCode = "VALIDATION_006"
	CodeInvalidUUID          ErrorCode = "VALIDATION_007"
	CodeInvalidSplit         ErrorCode = "VALIDATION_008"

	CodeHouseholdNotFound  ErrorCode = "NOT_FOUND_003"
	CodeExpenseNotFound    ErrorCode = "NOT_FOUND_004"
	CodeSettlementNotFound ErrorCode = "NOT_FOUND_006"

	CodeConflict       ErrorCode = "CONFLICT_001"
	CodeDuplicateEntry ErrorCode = "CONFLICT_002"

	CodeInvalidSettlement ErrorCode = "BUSINESS_005"
	CodeFeatureDisabled   ErrorCode = "BUSINESS_006"

	CodeDatabaseError ErrorCode = "DATABASE_001"

	CodeStorageError   ErrorCode = "EXTERNAL_002"
	CodeAIServiceError ErrorCode = "EXTERNAL_003"

	CodeInternalError ErrorCode = "INTERNAL_001"
)

type ErrorType int

const (
	ErrorTypeUnauthorized ErrorType = iota
	ErrorTypeForbidden
	ErrorTypeBadRequest
	ErrorTypeNotFound
	ErrorTypeConflict
	ErrorTypeUnprocessable
	ErrorTypeInternal
	ErrorTypeServiceUnavailable
)

type AppError struct {
	Type    ErrorType `json:"-"`
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	Err     error     `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func (e *AppError) UserMessage() string {
	return e.Message
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeUnauthorized,
		Message: message,
	}
}

func TokenExpired() *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeTokenExpired,
		Message: "Your session has expired. Please log in again.",
	}
}

func TokenInvalid() *AppError {
	return &AppError{
		Type:    ErrorTypeUnauthorized,
		Code:    CodeTokenInvalid,
		Message: "Invalid authentication token.",
	}
}

func NotHouseholdMember() *AppError {
	return &AppError{
		Type:    ErrorTypeForbidden,
		Code:    CodeNotHouseholdMember,
		Message: "You are not a member of this household.",
	}
}

func InvalidRequest(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
	}
}

func InvalidRequestWithDetails(message, details string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidRequest,
		Message: message,
		Details: details,
	}
}

func MissingRequiredField(fieldName string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeMissingRequiredField,
		Message: fmt.Sprintf("%s is required.", fieldName),
	}
}

func InvalidUUID(fieldName string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidUUID,
		Message: fmt.Sprintf("Invalid format for %s.", fieldName),
		Details: "Expected format: UUID",
	}
}

func InvalidAmount(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidAmount,
		Message: message,
	}
}

func InvalidCurrency(code string) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidCurrency,
		Message: fmt.Sprintf("Unsupported currency code '%s'.", code),
		Details: "Expected a three-letter ISO 4217 code such as USD.",
	}
}

func AmountMismatch(splitTotalCents, expectedTotalCents int64, splitType string) *AppError {
	return &AppError{
		Type: ErrorTypeBadRequest,
		Code: CodeAmountMismatch,
		Message: fmt.Sprintf("Sum of %s amounts (%s) does not equal total amount (%s).",
			splitType, ledger.FormatAmount(splitTotalCents), ledger.FormatAmount(expectedTotalCents)),
	}
}

// InvalidSplit reports a rejected split directive. The ledger message is
// shown to the user as is.
func InvalidSplit(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidSplit,
		Message: err.Error(),
		Err:     err,
	}
}

func HouseholdNotFound() *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeHouseholdNotFound,
		Message: "Household not found.",
	}
}

func ExpenseNotFound() *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeExpenseNotFound,
		Message: "Expense not found.",
	}
}

func SettlementNotFound() *AppError {
	return &AppError{
		Type:    ErrorTypeNotFound,
		Code:    CodeSettlementNotFound,
		Message: "Settlement not found.",
	}
}

func Conflict(message string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeConflict,
		Message: message,
	}
}

func DuplicateEntry(resourceType string) *AppError {
	return &AppError{
		Type:    ErrorTypeConflict,
		Code:    CodeDuplicateEntry,
		Message: fmt.Sprintf("%s already exists.", resourceType),
	}
}

func CannotSettleToSelf() *AppError {
	return &AppError{
		Type:    ErrorTypeBadRequest,
		Code:    CodeInvalidSettlement,
		Message: "Cannot settle payment to yourself.",
	}
}

func FeatureDisabled(feature string) *AppError {
	return &AppError{
		Type:    ErrorTypeUnprocessable,
		Code:    CodeFeatureDisabled,
		Message: fmt.Sprintf("%s is not enabled on this server.", feature),
	}
}

func DatabaseError(operation string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeDatabaseError,
		Message: "A database error occurred. Please try again.",
		Details: operation,
		Err:     err,
	}
}

func StorageError(operation string, err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeStorageError,
		Message: "Failed to process file storage. Please try again.",
		Details: operation,
		Err:     err,
	}
}

func AIServiceError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeServiceUnavailable,
		Code:    CodeAIServiceError,
		Message: "AI service is temporarily unavailable. Please try again later.",
		Err:     err,
	}
}

func InternalError(err error) *AppError {
	return &AppError{
		Type:    ErrorTypeInternal,
		Code:    CodeInternalError,
		Message: "An unexpected error occurred. Please try again.",
		Err:     err,
	}
}

func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

func GetHTTPStatus(errType ErrorType) int {
	switch errType {
	case ErrorTypeUnauthorized:
		return 401
	case ErrorTypeForbidden:
		return 403
	case ErrorTypeBadRequest:
		return 400
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeConflict:
		return 409
	case ErrorTypeUnprocessable:
		return 422
	case ErrorTypeServiceUnavailable:
		return 503
	default:
		return 500
	}
}

func IsNotFoundError(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// IsDuplicateError reports a Postgres unique_violation.
func IsDuplicateError(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

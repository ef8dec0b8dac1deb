package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrorCode standardizes failure semantics across stores, services and transports.
type ErrorCode string

const (
	CodeValidation         ErrorCode = "validation"
	CodeNotFoundOrConflict ErrorCode = "not_found_or_conflict"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodeStoreUnavailable   ErrorCode = "store_unavailable"
	CodeInternal           ErrorCode = "internal"
)

// Error is the canonical error wrapper.
type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	op := strings.TrimSpace(e.Op)
	msg := strings.TrimSpace(e.Message)
	switch {
	case op != "" && msg != "":
		return fmt.Sprintf("%s: %s (%s)", op, msg, e.Code)
	case op != "":
		return fmt.Sprintf("%s (%s)", op, e.Code)
	case msg != "":
		return fmt.Sprintf("%s (%s)", msg, e.Code)
	default:
		return string(e.Code)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// NewError builds an error with explicit code + operation.
func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap annotates an existing error with a code.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

// IsCode checks whether err (or a wrapped err) carries the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}

// CodeOf extracts the code when available.
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

// ValidationError tags a message as a validation failure.
func ValidationError(op, msg string) error {
	return NewError(CodeValidation, op, msg, nil)
}

// NotFoundOrConflict reports a store write that did not affect exactly one row.
func NotFoundOrConflict(op string, affected int64) error {
	return NewError(CodeNotFoundOrConflict, op, fmt.Sprintf("expected 1 affected row, got %d", affected), nil)
}

// RequireSingleRow converts an affected-row count into the uniform update/delete failure.
func RequireSingleRow(op string, affected int64) error {
	if affected == 1 {
		return nil
	}
	return NotFoundOrConflict(op, affected)
}

// MapStoreError maps driver failures into domain error codes.
func MapStoreError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*Error); ok {
		return err
	}
	switch {
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return Wrap(CodeNotFoundOrConflict, op, err)
	case errors.Is(err, gorm.ErrRecordNotFound):
		return Wrap(CodeNotFoundOrConflict, op, err)
	case errors.Is(err, gorm.ErrCheckConstraintViolated):
		return Wrap(CodeInvariantViolation, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return Wrap(CodeStoreUnavailable, op, err)
	case errors.Is(err, syscall.ECONNREFUSED):
		return Wrap(CodeStoreUnavailable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return Wrap(CodeNotFoundOrConflict, op, err) // unique_violation
		case "23514", "22003":
			return Wrap(CodeInvariantViolation, op, err) // check_violation, numeric_value_out_of_range
		}
	}

	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return Wrap(CodeNotFoundOrConflict, op, err)
	}
	var txErr *types.TransactionCanceledException
	if errors.As(err, &txErr) {
		return Wrap(CodeNotFoundOrConflict, op, err)
	}

	var awsErr smithy.APIError
	if errors.As(err, &awsErr) {
		switch awsErr.ErrorCode() {
		case "ValidationException":
			return Wrap(CodeInvariantViolation, op, err)
		default:
			return Wrap(CodeStoreUnavailable, op, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return Wrap(CodeStoreUnavailable, op, err)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "unique constraint failed"), strings.Contains(msg, "duplicate key"):
		return Wrap(CodeNotFoundOrConflict, op, err)
	case strings.Contains(msg, "check constraint failed"), strings.Contains(msg, "out of range"):
		return Wrap(CodeInvariantViolation, op, err)
	default:
		return Wrap(CodeStoreUnavailable, op, err)
	}
}

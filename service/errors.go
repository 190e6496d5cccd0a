package service

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures returned by the core services
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindValidation
	KindNotRegistered
	KindInsufficientFunds
	KindPermissionDenied
	KindNoFundsToSteal
	KindConcurrencyConflict
	KindStorage
)

func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotRegistered:
		return "not_registered"
	case KindInsufficientFunds:
		return "insufficient_funds"
	case KindPermissionDenied:
		return "permission_denied"
	case KindNoFundsToSteal:
		return "no_funds_to_steal"
	case KindConcurrencyConflict:
		return "concurrency_conflict"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// Error is the error type returned by service operations
type Error struct {
	Kind      ErrorKind
	Message   string
	Err       error
	retryable bool
}

func (e *Error) Error() string {
	switch {
	case e.Message != "" && e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	case e.Message != "":
		return e.Message
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the kind sentinels below, so errors.Is(err, ErrInsufficientFunds)
// holds for any insufficient funds error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Message == "" && t.Err == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// Kind sentinels for use with errors.Is
var (
	ErrValidation          = &Error{Kind: KindValidation}
	ErrNotRegistered       = &Error{Kind: KindNotRegistered}
	ErrInsufficientFunds   = &Error{Kind: KindInsufficientFunds}
	ErrPermissionDenied    = &Error{Kind: KindPermissionDenied}
	ErrNoFundsToSteal      = &Error{Kind: KindNoFundsToSteal}
	ErrConcurrencyConflict = &Error{Kind: KindConcurrencyConflict}
	ErrStorage             = &Error{Kind: KindStorage}
)

// KindOf returns the kind of a service error, or KindUnknown
func KindOf(err error) ErrorKind {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.Kind
	}
	return KindUnknown
}

// Retryable reports whether the caller may retry the same request later
func Retryable(err error) bool {
	var svcErr *Error
	if errors.As(err, &svcErr) {
		return svcErr.retryable
	}
	return false
}

// IsBusinessError reports whether err is a rule violation the actor can act on,
// as opposed to a system failure.
func IsBusinessError(err error) bool {
	switch KindOf(err) {
	case KindValidation, KindNotRegistered, KindInsufficientFunds, KindPermissionDenied, KindNoFundsToSteal:
		return true
	}
	return false
}

func validationError(format string, args ...any) error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

func notRegisteredError(actorID int64) error {
	return &Error{Kind: KindNotRegistered, Message: fmt.Sprintf("account %d is not registered", actorID)}
}

func insufficientFundsError(have, need int64) error {
	return &Error{Kind: KindInsufficientFunds, Message: fmt.Sprintf("insufficient funds: have %d, need %d", have, need)}
}

func permissionDeniedError(format string, args ...any) error {
	return &Error{Kind: KindPermissionDenied, Message: fmt.Sprintf(format, args...)}
}

func noFundsToStealError(targetID int64) error {
	return &Error{Kind: KindNoFundsToSteal, Message: fmt.Sprintf("account %d has no cash to steal", targetID)}
}

func conflictError(err error) error {
	return &Error{Kind: KindConcurrencyConflict, Message: "concurrent update conflict", Err: err, retryable: true}
}

func storageError(err error, retryable bool) error {
	return &Error{Kind: KindStorage, Message: "storage failure", Err: err, retryable: retryable}
}

// NewValidationError reports input the actor can correct and resend
func NewValidationError(format string, args ...any) error {
	return validationError(format, args...)
}

// NewPermissionDeniedError reports an action above the actor's level
func NewPermissionDeniedError(format string, args ...any) error {
	return permissionDeniedError(format, args...)
}

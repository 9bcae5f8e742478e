package model

import (
	"errors"
	"fmt"
)

// Kind classifies a failure so that callers can decide how to react
// without inspecting message text.  Every Kind maps to exactly one
// sentinel below; handlers translate them into HTTP status codes.
type Kind int

const (
	KindValidation Kind = iota + 1
	KindNotFound
	KindSeatConflict
	KindNotAvailable
	KindAlreadyCancelled
	KindForbidden
	KindInsufficientPoints
	KindStorage
)

// Sentinel values used with errors.Is.  An *Error of a given Kind
// matches the sentinel of the same Kind.
var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrSeatConflict       = errors.New("seat conflict")
	ErrNotAvailable       = errors.New("not available")
	ErrAlreadyCancelled   = errors.New("already cancelled")
	ErrForbidden          = errors.New("forbidden")
	ErrInsufficientPoints = errors.New("insufficient credit points")
	ErrStorage            = errors.New("storage error")
)

var sentinels = map[Kind]error{
	KindValidation:         ErrValidation,
	KindNotFound:           ErrNotFound,
	KindSeatConflict:       ErrSeatConflict,
	KindNotAvailable:       ErrNotAvailable,
	KindAlreadyCancelled:   ErrAlreadyCancelled,
	KindForbidden:          ErrForbidden,
	KindInsufficientPoints: ErrInsufficientPoints,
	KindStorage:            ErrStorage,
}

// Error carries a Kind, a human readable Reason suitable for returning
// to clients, and an optional underlying cause.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is the sentinel for this error's Kind.
func (e *Error) Is(target error) bool {
	s, ok := sentinels[e.Kind]
	return ok && s == target
}

// Validation reports bad input rejected before any mutation.
func Validation(format string, args ...any) error {
	return &Error{Kind: KindValidation, Reason: fmt.Sprintf(format, args...)}
}

// NotFound reports an unknown entity, e.g. NotFound("booking", 42).
func NotFound(entity string, id any) error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf("%s %v not found", entity, id)}
}

// SeatConflict reports seats that were taken by a concurrent booker.
func SeatConflict(seatIDs []string) error {
	return &Error{Kind: KindSeatConflict, Reason: fmt.Sprintf("seats no longer available: %v", seatIDs)}
}

// NotAvailable reports exhausted capacity or a non-bookable event.
func NotAvailable(format string, args ...any) error {
	return &Error{Kind: KindNotAvailable, Reason: fmt.Sprintf(format, args...)}
}

// AlreadyCancelled reports a cancellation attempt on a finished booking.
func AlreadyCancelled(bookingID int64) error {
	return &Error{Kind: KindAlreadyCancelled, Reason: fmt.Sprintf("booking %d is already cancelled", bookingID)}
}

// Forbidden reports an operation on a resource owned by someone else.
func Forbidden(reason string) error {
	return &Error{Kind: KindForbidden, Reason: reason}
}

// InsufficientPoints reports a redemption larger than the balance.
func InsufficientPoints(balance, requested int) error {
	return &Error{Kind: KindInsufficientPoints, Reason: fmt.Sprintf("insufficient credit points: have %d, need %d", balance, requested)}
}

// Storage wraps a backing store failure.  The operation name is kept in
// the reason so that logs show where the failure happened.
func Storage(op string, err error) error {
	if err == nil {
		return nil
	}
	var me *Error
	if errors.As(err, &me) {
		return err
	}
	return &Error{Kind: KindStorage, Reason: "storage failure during " + op, Err: err}
}

// Reason returns the client facing reason for err.  Non-model errors
// produce a generic message so internal details do not leak.
func Reason(err error) string {
	var me *Error
	if errors.As(err, &me) {
		return me.Reason
	}
	return "internal error"
}

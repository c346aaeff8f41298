package world

import "fmt"

// Code is a machine-readable failure code.
type Code string

const (
	CodeInvalidConfig      Code = "INVALID_CONFIG"
	CodeInvalidShape       Code = "INVALID_SHAPE"
	CodeUnknownTile        Code = "UNKNOWN_TILE"
	CodeHexNotFound        Code = "HEX_NOT_FOUND"
	CodeInvalidEdge        Code = "INVALID_EDGE"
	CodeNoHolding          Code = "NO_HOLDING"
	CodeSeatOfPowerCleared Code = "SEAT_OF_POWER_CLEARED"
	CodeMythExists         Code = "MYTH_EXISTS"
	CodeMythNotFound       Code = "MYTH_NOT_FOUND"
	CodeMythOccupied       Code = "MYTH_OCCUPIED"
	CodeMalformedImport    Code = "MALFORMED_IMPORT"
	CodeInvariant          Code = "INVARIANT_VIOLATION"
	CodeInvalidEdit        Code = "INVALID_EDIT"
)

// Error is a structured rejection. The realm it concerns is left unchanged.
type Error struct {
	Code    Code
	Field   string // Offending option or JSON path, when there is one
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is an *Error with the same code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// NewError creates an error with a code and formatted message.
func NewError(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// FieldError creates an error naming the offending field.
func FieldError(code Code, field, format string, args ...any) *Error {
	return &Error{Code: code, Field: field, Message: fmt.Sprintf(format, args...)}
}

// Sentinels for errors.Is checks by code.
var (
	ErrInvalidConfig      = &Error{Code: CodeInvalidConfig}
	ErrInvalidShape       = &Error{Code: CodeInvalidShape}
	ErrUnknownTile        = &Error{Code: CodeUnknownTile}
	ErrHexNotFound        = &Error{Code: CodeHexNotFound}
	ErrInvalidEdge        = &Error{Code: CodeInvalidEdge}
	ErrNoHolding          = &Error{Code: CodeNoHolding}
	ErrSeatOfPowerCleared = &Error{Code: CodeSeatOfPowerCleared}
	ErrMythExists         = &Error{Code: CodeMythExists}
	ErrMythNotFound       = &Error{Code: CodeMythNotFound}
	ErrMythOccupied       = &Error{Code: CodeMythOccupied}
	ErrMalformedImport    = &Error{Code: CodeMalformedImport}
	ErrInvariant          = &Error{Code: CodeInvariant}
	ErrInvalidEdit        = &Error{Code: CodeInvalidEdit}
)

// WarningCode classifies a non-fatal shortfall.
type WarningCode string

const (
	WarnUnderPlacement WarningCode = "UNDER_PLACEMENT"
	WarnSeatUnset      WarningCode = "SEAT_UNSET"
	WarnSeatDangling   WarningCode = "SEAT_DANGLING"
)

// Warning reports something the caller asked for that could not be done in
// full. The operation still succeeded.
type Warning struct {
	Code      WarningCode `json:"code"`
	Message   string      `json:"message"`
	Requested int         `json:"requested,omitempty"`
	Placed    int         `json:"placed,omitempty"`
}

package cache

import "fmt"

// --------------------------------------------------------------------------
// Custom Error Type
// --------------------------------------------------------------------------

// Error is a typed error carrying a return code. Local cache operations never
// fail because of replication or peer state; these errors only surface for
// unsupported operations or invalid configuration.
type Error struct {
	Code RetCode // The return code
	Msg  string  // The error message
}

// Error implements the error interface.
func (e *Error) Error() string {
	code := "Unknown"
	switch e.Code {
	case RetCInternalError:
		code = "InternalError"
	case RetCUnsupportedOperation:
		code = "UnsupportedOperation"
	case RetCInvalidConfig:
		code = "InvalidConfig"
	}
	return fmt.Sprintf("CacheError (code %s): %s", code, e.Msg)
}

// NewError creates a new Error with the given code and message.
func NewError(code RetCode, msg string) *Error {
	return &Error{Code: code, Msg: msg}
}

// --------------------------------------------------------------------------
// Return Codes
// --------------------------------------------------------------------------

type RetCode uint64

const (
	RetCSuccess              RetCode = iota // 0: Operation executed successfully.
	RetCInternalError                       // 1: Operation failed due to an internal error.
	RetCUnsupportedOperation                // 2: Operation is not supported by the engine.
	RetCInvalidConfig                       // 3: Invalid configuration.
)

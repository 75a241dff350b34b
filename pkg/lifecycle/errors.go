package lifecycle

import (
	"errors"
	"fmt"
)

// ErrorClass classifies lifecycle failures.
type ErrorClass string

const (
	// ErrorClassConfiguration indicates bad wiring: an unresolvable system
	// reference, a capability mismatch or an empty level catalog. Surfaces
	// during construction, before any setup runs.
	ErrorClassConfiguration ErrorClass = "configuration"

	// ErrorClassPrecondition indicates a transition requested in a state
	// that does not allow it, such as entering a session twice.
	ErrorClassPrecondition ErrorClass = "precondition"

	// ErrorClassNotFound indicates expected absence, such as no save data
	// to continue.
	ErrorClassNotFound ErrorClass = "not_found"

	// ErrorClassExternal indicates a collaborator (system, loader, save
	// store) failed.
	ErrorClassExternal ErrorClass = "external"
)

// Error is a classified lifecycle error.
type Error struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Operation is the controller operation that failed.
	Operation string `json:"operation,omitempty"`

	// System is the system involved, if any.
	System string `json:"system,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`

	// Details contains additional context.
	Details map[string]interface{} `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Class, e.Message)
	if e.Operation != "" {
		msg += fmt.Sprintf(" (operation=%s", e.Operation)
		if e.System != "" {
			msg += fmt.Sprintf(", system=%s", e.System)
		}
		msg += ")"
	} else if e.System != "" {
		msg += fmt.Sprintf(" (system=%s)", e.System)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches on class and code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string, err error) *Error {
	return &Error{Class: ErrorClassConfiguration, Message: message, Err: err}
}

// NewPreconditionError creates a precondition error.
func NewPreconditionError(message string, err error) *Error {
	return &Error{Class: ErrorClassPrecondition, Message: message, Err: err}
}

// NewNotFoundError creates a not-found error.
func NewNotFoundError(message string, err error) *Error {
	return &Error{Class: ErrorClassNotFound, Message: message, Err: err}
}

// NewExternalError creates an external error.
func NewExternalError(message string, err error) *Error {
	return &Error{Class: ErrorClassExternal, Message: message, Err: err}
}

// WithOperation adds operation context to an error.
func (e *Error) WithOperation(operation string) *Error {
	e.Operation = operation
	return e
}

// WithSystem adds the system name to an error.
func (e *Error) WithSystem(name string) *Error {
	e.System = name
	return e
}

// WithCode adds an error code to an error.
func (e *Error) WithCode(code string) *Error {
	e.Code = code
	return e
}

// WithDetail adds a detail field to the error context.
func (e *Error) WithDetail(key string, value interface{}) *Error {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

func classOf(err error) (ErrorClass, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Class, true
	}
	return "", false
}

// IsConfiguration reports whether err is a configuration error.
func IsConfiguration(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassConfiguration
}

// IsPrecondition reports whether err is a precondition error.
func IsPrecondition(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassPrecondition
}

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassNotFound
}

// IsExternal reports whether err is an external error.
func IsExternal(err error) bool {
	c, ok := classOf(err)
	return ok && c == ErrorClassExternal
}

// IsFatal reports whether err indicates a wiring or programming bug the
// host must not continue past.
func IsFatal(err error) bool {
	return IsConfiguration(err) || IsPrecondition(err)
}

// Common error codes.
const (
	ErrCodeInvalidRef         = "INVALID_SYSTEM_REF"
	ErrCodeMissingDependency  = "MISSING_DEPENDENCY"
	ErrCodeEmptyProgression   = "EMPTY_PROGRESSION"
	ErrCodeAlreadyStarted     = "ALREADY_STARTED"
	ErrCodeNotSetUp           = "NOT_SET_UP"
	ErrCodeAlreadyInSession   = "ALREADY_IN_SESSION"
	ErrCodeNotInSession       = "NOT_IN_SESSION"
	ErrCodeLoadInFlight       = "LOAD_IN_FLIGHT"
	ErrCodeNoCurrentLevel     = "NO_CURRENT_LEVEL"
	ErrCodeUnknownLevel       = "UNKNOWN_LEVEL"
	ErrCodeNoCurrentSave      = "NO_CURRENT_SAVE"
	ErrCodeNoSaveData         = "NO_SAVE_DATA"
	ErrCodeSystemSetupFailed  = "SYSTEM_SETUP_FAILED"
	ErrCodeSystemTeardownFail = "SYSTEM_TEARDOWN_FAILED"
	ErrCodeSaveStoreFailed    = "SAVE_STORE_FAILED"
)

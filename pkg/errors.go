package protocore

// errors.go defines the recoverable-condition error family spec.md's error
// handling model describes: a closed set of ErrorKind values, each wrapped
// in a Go error via fmt.Errorf's %w so callers can errors.Is/errors.As
// against the kind regardless of the message text. OutOfMemory is handled
// separately (WithOutOfMemoryCallback) since it is fatal unless an embedder
// callback is registered to recover from it.
//
// © 2025 protocore authors. MIT License.

import (
	"errors"
	"fmt"
)

// ErrorKind enumerates the recoverable error conditions spec.md names.
type ErrorKind uint8

const (
	// WrongKind: an operation received a value of the wrong tag/shape.
	WrongKind ErrorKind = iota
	// IndexOutOfRange: a sequence index or slice bound was out of range.
	IndexOutOfRange
	// DivideByZero: integer division or modulo by zero.
	DivideByZero
	// Overflow: a conversion could not be represented in the target type.
	Overflow
	// ArgumentMismatch: wrong arity or unrecognized keyword argument.
	ArgumentMismatch
	// CycleInPrototype: AddParent would introduce a prototype-chain cycle.
	CycleInPrototype
	// InvalidConversion: a cross-kind coercion has no defined result
	// (SPEC_FULL.md §4 Open Question 5 — raised uniformly for every such
	// coercion rather than ad hoc per call site).
	InvalidConversion
	// ModuleNotFound: get_import_module exhausted its resolution chain.
	ModuleNotFound
)

func (k ErrorKind) String() string {
	switch k {
	case WrongKind:
		return "wrong_kind"
	case IndexOutOfRange:
		return "index_out_of_range"
	case DivideByZero:
		return "divide_by_zero"
	case Overflow:
		return "overflow"
	case ArgumentMismatch:
		return "argument_mismatch"
	case CycleInPrototype:
		return "cycle_in_prototype"
	case InvalidConversion:
		return "invalid_conversion"
	case ModuleNotFound:
		return "module_not_found"
	default:
		return "unknown"
	}
}

// Error wraps an ErrorKind with a human-readable message. errors.Is matches
// on Kind, not on Message, so embedders can branch on the condition without
// parsing text.
type Error struct {
	Kind    ErrorKind
	Message string
}

func (e *Error) Error() string { return fmt.Sprintf("protocore: %s: %s", e.Kind, e.Message) }

// Is implements errors.Is support: two *Error values match if their Kind
// matches, regardless of Message.
func (e *Error) Is(target error) bool {
	var other *Error
	if errors.As(target, &other) {
		return e.Kind == other.Kind
	}
	return false
}

// newError builds an *Error for kind with a formatted message.
func newError(kind ErrorKind, format string, args ...any) error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Sentinel values usable directly with errors.Is(err, protocore.ErrDivideByZero).
var (
	ErrWrongKind         = &Error{Kind: WrongKind, Message: "wrong kind"}
	ErrIndexOutOfRange   = &Error{Kind: IndexOutOfRange, Message: "index out of range"}
	ErrDivideByZero      = &Error{Kind: DivideByZero, Message: "divide by zero"}
	ErrOverflow          = &Error{Kind: Overflow, Message: "overflow"}
	ErrArgumentMismatch  = &Error{Kind: ArgumentMismatch, Message: "argument mismatch"}
	ErrCycleInPrototype  = &Error{Kind: CycleInPrototype, Message: "cycle in prototype chain"}
	ErrInvalidConversion = &Error{Kind: InvalidConversion, Message: "invalid conversion"}
	ErrModuleNotFound    = &Error{Kind: ModuleNotFound, Message: "module not found"}
)

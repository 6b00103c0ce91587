package errors

import (
	"fmt"
	"strconv"
	"strings"
)

// Phase indicates where in the bridge the error occurred
type Phase string

const (
	PhaseLoad      Phase = "load"      // module compile and instantiate
	PhaseEncode    Phase = "encode"    // host to module envelope
	PhaseDecode    Phase = "decode"    // module to host envelope
	PhasePump      Phase = "pump"      // invoke and dispatch
	PhaseTimer     Phase = "timer"     // timer registry
	PhaseSocket    Phase = "socket"    // socket channel manager
	PhaseProvision Phase = "provision" // execution context provisioning
	PhaseInput     Phase = "input"     // input normalization
	PhaseStartup   Phase = "startup"   // dependency handshake
	PhaseHost      Phase = "host"      // host capability calls
	PhaseMemory    Phase = "memory"    // linear memory access
	PhaseConfig    Phase = "config"    // configuration loading
)

// Kind categorizes the error
type Kind string

const (
	KindCapability     Kind = "capability"
	KindMissingExport  Kind = "missing_export"
	KindMisaligned     Kind = "misaligned"
	KindDuplicateID    Kind = "duplicate_id"
	KindDigitMiss      Kind = "digit_miss"
	KindTransport      Kind = "transport"
	KindUnimplemented  Kind = "unimplemented"
	KindClosed         Kind = "closed"
	KindOutOfBounds    Kind = "out_of_bounds"
	KindInvalidData    Kind = "invalid_data"
	KindStale          Kind = "stale_reference"
	KindAllocation     Kind = "allocation"
	KindNotFound       Kind = "not_found"
	KindNotInitialized Kind = "not_initialized"
	KindInvalidInput   Kind = "invalid_input"
	KindInstantiation  Kind = "instantiation"
	KindTrap           Kind = "trap"
)

// Error is the structured error type used throughout the bridge
type Error struct {
	Value  any
	Cause  error
	Phase  Phase
	Kind   Kind
	Tag    string
	Detail string
	ID     string
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if e.Tag != "" {
		b.WriteString(" in ")
		b.WriteString(e.Tag)
	}

	if e.ID != "" {
		b.WriteString(" id=")
		b.WriteString(e.ID)
	}

	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Tag sets the message tag the error relates to
func (b *Builder) Tag(tag string) *Builder {
	b.err.Tag = tag
	return b
}

// ID sets the identifier (timer, socket, digit) the error relates to
func (b *Builder) ID(id uint64) *Builder {
	b.err.ID = strconv.FormatUint(id, 10)
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for the error taxonomy

// Capability creates an error for a host or module capability that is absent
func Capability(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindCapability,
		Detail: what,
	}
}

// MissingExport creates an error for a required module export that is absent
func MissingExport(name string) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindMissingExport,
		Detail: fmt.Sprintf("module does not export %q", name),
		Value:  name,
	}
}

// Misaligned creates an alignment error
func Misaligned(phase Phase, what string, value uint64, align uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindMisaligned,
		Detail: fmt.Sprintf("%s %d is not %d-byte aligned", what, value, align),
		Value:  value,
	}
}

// DuplicateID creates an id collision error
func DuplicateID(phase Phase, what string, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindDuplicateID,
		ID:     strconv.FormatUint(id, 10),
		Detail: fmt.Sprintf("%s id collision", what),
		Value:  id,
	}
}

// DigitMiss creates an error for a touch identifier with no allocated digit
func DigitMiss(identifier int64) *Error {
	return &Error{
		Phase:  PhaseInput,
		Kind:   KindDigitMiss,
		ID:     strconv.FormatInt(identifier, 10),
		Detail: "no digit allocated for touch identifier",
		Value:  identifier,
	}
}

// Transport creates a socket transport error
func Transport(id uint64, cause error) *Error {
	return &Error{
		Phase:  PhaseSocket,
		Kind:   KindTransport,
		ID:     strconv.FormatUint(id, 10),
		Detail: "transport failure",
		Cause:  cause,
	}
}

// Unimplemented creates an error marker for a host capability with no implementation
func Unimplemented(what string) *Error {
	return &Error{
		Phase:  PhaseHost,
		Kind:   KindUnimplemented,
		Detail: fmt.Sprintf("%s is not implemented by this host", what),
	}
}

// Closed creates an error for use of a released or closed resource
func Closed(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindClosed,
		Detail: fmt.Sprintf("%s is closed", what),
	}
}

// OutOfBounds creates a linear memory bounds error
func OutOfBounds(phase Phase, offset, length, size uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Detail: fmt.Sprintf("range [%d, %d) outside memory of %d bytes", offset, uint64(offset)+uint64(length), size),
		Value:  offset,
	}
}

// Stale creates an error for a memory view used after the arena moved on
func Stale(offset uint32, have, want uint64) *Error {
	return &Error{
		Phase:  PhaseMemory,
		Kind:   KindStale,
		Detail: fmt.Sprintf("view at %d taken in generation %d, arena is at %d", offset, have, want),
		Value:  offset,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, units uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d 8-byte units", units),
		Value:  units,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, tag string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Tag:    tag,
		Detail: detail,
	}
}

// NotInitialized creates a not-initialized error
func NotInitialized(phase Phase, component string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotInitialized,
		Detail: fmt.Sprintf("%s not initialized", component),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what string, id uint64) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		ID:     strconv.FormatUint(id, 10),
		Detail: fmt.Sprintf("%s not found", what),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// Instantiation creates an instantiation error
func Instantiation(cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInstantiation,
		Detail: "instantiate module",
		Cause:  cause,
	}
}

// Load creates a module loading error
func Load(detail string, cause error) *Error {
	return &Error{
		Phase:  PhaseLoad,
		Kind:   KindInvalidData,
		Detail: detail,
		Cause:  cause,
	}
}

// Trap creates an error for a guest call that trapped
func Trap(phase Phase, export string, cause error) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindTrap,
		Tag:    export,
		Detail: "guest call trapped",
		Cause:  cause,
	}
}

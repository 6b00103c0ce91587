// Package errors provides structured error types for the wasm-bridge library.
//
// Errors are categorized by Phase (which bridge component raised it) and Kind
// (error category). The Error type carries the message tag or identifier it
// relates to, a human readable detail and the cause chain.
//
// Use the Builder for structured error construction:
//
//	err := errors.New(errors.PhaseTimer, errors.KindDuplicateID).
//		ID(7).
//		Detail("timer already registered").
//		Build()
//
// Or use convenience constructors for the error taxonomy:
//
//	err := errors.Capability(errors.PhaseProvision, "module built without thread support")
//	err := errors.DigitMiss(touchID)
//	err := errors.Unimplemented("hide text IME")
//
// None of these errors is fatal to the host. Callers log them and apply the
// documented fallback. All errors implement the standard error interface and
// support errors.Is/As; Is matches on Phase and Kind.
package errors

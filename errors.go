package webdom

import "errors"

// Error classes surfaced by DOM operations. Every failure returned or
// delivered through a promise wraps exactly one of these, so callers
// can classify with errors.Is.
var (
	// ErrOperation reports caller misuse or a runtime inability to
	// proceed: bad offsets, misaligned or overlapping ranges, send
	// failures. The object remains usable afterwards unless its state
	// machine says otherwise.
	ErrOperation = errors.New("webdom: operation error")

	// ErrAbort reports that the remote side rejected this specific
	// asynchronous operation, or that the operation was invalid for the
	// object's current state.
	ErrAbort = errors.New("webdom: abort error")

	// ErrSecurity reports access to an object whose origin is not
	// clean, such as cross-origin stylesheet rules.
	ErrSecurity = errors.New("webdom: security error")

	// ErrSyntax reports a malformed or reserved name or rule.
	ErrSyntax = errors.New("webdom: syntax error")

	// ErrType reports an argument of the wrong shape, such as a matrix
	// initialized from a sequence that is neither 6 nor 16 entries.
	ErrType = errors.New("webdom: type error")
)

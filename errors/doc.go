// Package errors provides standardized error handling for rsvpstream
// components.
//
// # Overview
//
// The package implements a three-class error classification: Transient
// (temporary, retry recommended), Invalid (bad input, do not retry), and
// Fatal (unrecoverable, stop processing). Classification drives behavior
// throughout the receiver: transient connection failures re-enter the
// backoff loop indefinitely, invalid frames are dropped and counted, and
// fatal errors abort startup.
//
// # Quick Start
//
// Return standard variables for known conditions:
//
//	if started {
//	    return errors.ErrAlreadyStarted
//	}
//
// Wrap errors with component context:
//
//	if err := conn.Read(buf); err != nil {
//	    return errors.WrapTransient(err, "Receiver", "stream", "read body")
//	}
//
// Check classification for retry decisions:
//
//	if errors.IsTransient(err) {
//	    // back off and reconnect
//	}
//
// # Error Wrapping Pattern
//
// All wrapping follows the format:
//
//	"component.method: action failed: %w"
//
// The Wrap function preserves the wrapped error's existing classification;
// WrapTransient, WrapInvalid, and WrapFatal set it explicitly.
//
// Context errors (context.Canceled, context.DeadlineExceeded) classify as
// Transient, so a cancelled read and a network timeout take the same path
// through the reconnect loop.
//
// All types support errors.Is and errors.As through wrapping chains.
package errors

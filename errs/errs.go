// Package errs defines the error kinds surfaced across the search core and
// the evaluator broker, per the propagation policy: recoverable channel
// errors are handled locally inside the broker; everything else surfaces to
// the originating caller.
package errs

import "github.com/pkg/errors"

// Sentinel error values. Wrap these with errors.Wrap/WithMessage at call
// sites that need extra context, and compare with errors.Is at call sites
// that need to branch on the kind.
var (
	// ErrInvalidMove is reported by the rules engine for a UCI string that
	// is not in the current legal set. The search core only ever feeds
	// legal moves to it, so this indicates a programming error upstream.
	ErrInvalidMove = errors.New("game: invalid move")

	// ErrBrokerClosed is returned when a client handle is used after the
	// broker has been stopped. Never retried by the caller.
	ErrBrokerClosed = errors.New("broker: closed")

	// ErrPeerDisconnected marks a client channel that closed mid-session.
	// The broker logs it, drops the connection and continues; it is not
	// normally seen by MCTS workers.
	ErrPeerDisconnected = errors.New("broker: peer disconnected")

	// ErrModelFailure is returned to every caller whose request was part of
	// a batch that failed during model invocation.
	ErrModelFailure = errors.New("broker: model invocation failed")
)

package cmx

import "errors"

// Sentinel errors. Callers distinguish kinds with errors.Is; wrapped
// context is added with fmt.Errorf("...: %w").
var (
	// ErrInvalidArgument covers a zero conference id, a nil channel, or
	// adding a channel that is already in a conference.
	ErrInvalidArgument = errors.New("cmx: invalid argument")

	// ErrNotFound is returned when removing a channel that is in no
	// conference, or is not a member of the conference it claims to
	// belong to.
	ErrNotFound = errors.New("cmx: channel not in conference")

	// ErrResourceExhausted covers allocation failure for a conference
	// or member node.
	ErrResourceExhausted = errors.New("cmx: resource exhausted")

	// ErrBusy marks soft, drop-and-log conditions: an inbound frame too
	// large to accept, or ring-buffer backpressure. Callers are
	// expected to treat ErrBusy as "dropped, try again later", not as
	// a hard failure.
	ErrBusy = errors.New("cmx: busy")
)

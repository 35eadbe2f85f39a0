// Package cmxtrace implements the boolean-mask debug-trace collaborator
// described by the CMX engine's external-interfaces contract: a way to
// switch on verbose per-subsystem tracing (ring-pointer arithmetic,
// mix-cycle decisions, DTMF bin power, hardware classification) without
// touching the ambient operational logger.
//
// This is deliberately a second, narrower logging surface from the
// structured log/slog output the rest of the engine emits: it exists
// only to be flipped on while chasing a specific ring-buffer or
// Goertzel bug.
package cmxtrace

import (
	"io"
	"os"

	charmlog "github.com/charmbracelet/log"
)

// Flag identifies one traceable subsystem. Flags are combined with
// bitwise OR to enable tracing for more than one subsystem at once.
type Flag uint32

const (
	// Ring traces ring-buffer pointer arithmetic (W_rx/R_rx/W_tx/R_tx,
	// W_min/W_max envelope updates).
	Ring Flag = 1 << iota
	// Mix traces per-sample mixing decisions in the send path.
	Mix
	// DTMF traces Goertzel bin power and group-selection decisions.
	DTMF
	// HW traces hardware classifier transitions and offload dispatch.
	HW
)

// None enables no tracing. All enables every flag.
const (
	None Flag = 0
	All  Flag = Ring | Mix | DTMF | HW
)

// Tracer gates structured trace output behind a bitmask. The zero value
// is a valid, fully-disabled Tracer: every Tracef call is a no-op, so
// callers that never configure tracing pay only the cost of a mask
// check per call.
type Tracer struct {
	mask   Flag
	logger *charmlog.Logger
}

// New creates a Tracer that writes enabled trace lines to w, tagged
// with the given subsystem mask. Pass None to build a disabled tracer
// (equivalent to the zero value, but explicit).
func New(w io.Writer, mask Flag) *Tracer {
	if w == nil {
		w = os.Stderr
	}
	logger := charmlog.NewWithOptions(w, charmlog.Options{
		Level:           charmlog.DebugLevel,
		ReportTimestamp: true,
		Prefix:          "cmx",
	})
	return &Tracer{mask: mask, logger: logger}
}

// Enabled reports whether the given flag is set in the tracer's mask.
func (t *Tracer) Enabled(flag Flag) bool {
	return t != nil && t.mask&flag != 0
}

// SetMask replaces the tracer's active flag mask.
func (t *Tracer) SetMask(mask Flag) {
	if t == nil {
		return
	}
	t.mask = mask
}

// Tracef emits a trace line for the given subsystem flag if it is
// enabled in the tracer's mask. keyvals follow log/slog/charmbracelet's
// alternating key-value convention. A nil Tracer is a safe no-op, so
// every CMX entry point can hold an unconfigured *Tracer field.
func (t *Tracer) Tracef(flag Flag, msg string, keyvals ...any) {
	if !t.Enabled(flag) {
		return
	}
	t.logger.Debug(msg, keyvals...)
}

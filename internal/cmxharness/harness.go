// Package cmxharness provides reusable fixtures for exercising the CMX
// engine end to end: a recording hardware-offload stub and helpers for
// building synthetic PCM frames: mock collaborators plus small builder
// functions, not a full DSL.
package cmxharness

import (
	"sync"

	"github.com/google/uuid"

	"github.com/flowpbx/cmx/internal/cmx"
	"github.com/flowpbx/cmx/internal/companding"
)

// RecordingOffload is a cmx.HardwareOffload that records every
// dispatch it receives, for assertions in end-to-end tests.
type RecordingOffload struct {
	mu            sync.Mutex
	Crossconnects []CrossconnectCall
	Conferences   []ConferenceCall
}

// CrossconnectCall records one Crossconnect dispatch.
type CrossconnectCall struct {
	A, B   string
	Enable bool
}

// ConferenceCall records one Conference dispatch.
type ConferenceCall struct {
	Channel string
	Unit    int
}

// NewRecordingOffload creates an empty recorder.
func NewRecordingOffload() *RecordingOffload {
	return &RecordingOffload{}
}

// Crossconnect implements cmx.HardwareOffload.
func (r *RecordingOffload) Crossconnect(a, b *cmx.Channel, enable bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Crossconnects = append(r.Crossconnects, CrossconnectCall{A: a.ID, B: b.ID, Enable: enable})
}

// Conference implements cmx.HardwareOffload.
func (r *RecordingOffload) Conference(ch *cmx.Channel, unit int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Conferences = append(r.Conferences, ConferenceCall{Channel: ch.ID, Unit: unit})
}

// Join sets a channel active against confID and reconfigures it,
// mirroring how the link layer drives membership changes.
func Join(ctx *cmx.Context, ch *cmx.Channel, confID uint32) error {
	ch.ConfID = confID
	ch.Active = true
	return ctx.Reconfigure(ch)
}

// Leave marks a channel inactive and reconfigures it out of whatever
// conference it currently belongs to.
func Leave(ctx *cmx.Context, ch *cmx.Channel) error {
	ch.Active = false
	return ctx.Reconfigure(ch)
}

// ConstantFrame builds an n-byte frame where every byte is level
// encoded under law (so every sample decodes to the same quantized
// approximation of level), simulating a sustained DC level on a
// channel's receive path.
func ConstantFrame(law companding.Law, level int16, n int) []byte {
	b := law.Encode(int32(level))
	out := make([]byte, n)
	for i := range out {
		out[i] = b
	}
	return out
}

// SilenceFrame builds an n-byte frame of law's silence byte.
func SilenceFrame(law companding.Law, n int) []byte {
	out := make([]byte, n)
	silence := law.Silence()
	for i := range out {
		out[i] = silence
	}
	return out
}

// NewAnonymousChannel creates a channel with a random uuid as its ID,
// for scenarios that exercise the mixing engine but don't care about a
// particular channel identity.
func NewAnonymousChannel(law companding.Law) *cmx.Channel {
	return cmx.NewChannel(uuid.NewString(), law)
}

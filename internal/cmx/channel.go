package cmx

import (
	"github.com/flowpbx/cmx/internal/companding"
	"github.com/flowpbx/cmx/internal/dtmf"
)

// ToneSource fills an outbound frame with generator audio (ringback,
// comfort tones, conference join/leave announcements). It is an
// external collaborator: the engine never synthesizes tone samples
// itself. CopyInto writes up to len(out) encoded bytes into out and
// returns the number written; a return of 0 means no tone is active
// and the engine should fall through to its normal mix/echo branches.
type ToneSource interface {
	CopyInto(ch *Channel, out []byte) int
}

// HardwareOffload notifies a DSP chip of crossconnect/conference
// changes decided by the classifier. A nil HardwareOffload is a
// documented no-op: every call site checks for nil before dispatching,
// so a pure software build simply leaves it unset.
type HardwareOffload interface {
	// Crossconnect enables or disables a 2-party hardware tie between
	// a and b.
	Crossconnect(a, b *Channel, enable bool)
	// Conference enables (unit > 0) or disables (unit == 0) an N-party
	// hardware conference unit for ch.
	Conference(ch *Channel, unit int)
}

// Channel is one endpoint: an ISDN B-channel's mixing state. The core
// only ever mutates the fields below; allocation, teardown, and the
// surrounding call/signaling state belong to the embedding application.
type Channel struct {
	// ID is an opaque label used for logging and hardware-offload
	// correlation; it carries no meaning to the engine itself.
	ID string

	// Law selects A-law or μ-law companding for this channel's bytes.
	Law companding.Law

	rxBuff [BuffSize]byte
	txBuff [BuffSize]byte

	wRx, rRx uint32
	wTx, rTx uint32

	// largest is twice the biggest inbound frame recently seen on this
	// channel; it doubles as the per-frame backpressure budget.
	largest uint32

	// Echo includes this channel's own received audio in its outbound
	// stream when true.
	Echo bool

	// TxMix, when true, means enqueued tx audio is additively mixed
	// into the outbound stream; when false, tx bytes play out verbatim
	// in place of the mix-derived audio until the tx ring drains.
	TxMix bool

	// HWID identifies the hardware instance hosting this channel. Zero
	// means pure software.
	HWID uint32

	// Tone is the optional tone generator collaborator. Nil means no
	// tone source is attached.
	Tone ToneSource

	// DTMF is the optional in-band DTMF decoder state for this
	// channel's receive path. Nil disables DTMF decoding.
	DTMF *dtmf.State

	// ConfID and Active drive Reconfigure: ConfID is the target
	// conference id (0 = none); Active marks the media channel up.
	ConfID uint32
	Active bool

	conference *Conference
}

// NewChannel creates a channel using the given companding law, with rx
// and tx buffers pre-filled with the law's silence byte.
func NewChannel(id string, law companding.Law) *Channel {
	ch := &Channel{ID: id, Law: law}
	fillSilence(&ch.rxBuff, law)
	fillSilence(&ch.txBuff, law)
	return ch
}

func fillSilence(buf *[BuffSize]byte, law companding.Law) {
	silence := law.Silence()
	for i := range buf {
		buf[i] = silence
	}
}

// InConference reports whether the channel currently belongs to a
// conference.
func (ch *Channel) InConference() bool {
	return ch.conference != nil
}

// Conference returns the conference this channel currently belongs to,
// or nil.
func (ch *Channel) Conference() *Conference {
	return ch.conference
}

// WRx returns the channel's current receive write pointer, for tests
// and diagnostics.
func (ch *Channel) WRx() uint32 { return ch.wRx }

// RRx returns the channel's current receive read pointer.
func (ch *Channel) RRx() uint32 { return ch.rRx }

// Largest returns the channel's current backpressure budget (twice the
// largest frame recently seen).
func (ch *Channel) Largest() uint32 { return ch.largest }

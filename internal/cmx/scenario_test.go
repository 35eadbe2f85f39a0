package cmx_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/flowpbx/cmx/internal/cmx"
	"github.com/flowpbx/cmx/internal/cmxharness"
	"github.com/flowpbx/cmx/internal/companding"
	"github.com/flowpbx/cmx/internal/dtmf"
)

// Scenario 1: solo echo. A channel with no conference and Echo=true
// hears back whatever it received.
func TestScenarioSoloEcho(t *testing.T) {
	ctx := cmx.NewContext()
	ch := cmx.NewChannel("a", companding.ALaw)
	ch.Echo = true

	frame := cmxharness.SilenceFrame(companding.ALaw, 160)
	if err := ctx.Receive(ch, frame); err != nil {
		t.Fatal(err)
	}

	out, _, err := ctx.Send(ch, 160, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, b := range out {
		if b != frame[i] {
			t.Fatalf("out[%d] = %#x, want %#x (echoed silence)", i, b, frame[i])
		}
	}
	if ch.RRx() != 160 {
		t.Fatalf("R_rx = %d, want 160", ch.RRx())
	}
}

// Scenario 2: a two-party conference crossconnects audio in software;
// B hears what A sent.
func TestScenarioPairCrossconnect(t *testing.T) {
	ctx := cmx.NewContext()
	a := cmx.NewChannel("a", companding.ALaw)
	b := cmx.NewChannel("b", companding.ALaw)

	if err := cmxharness.Join(ctx, a, 1); err != nil {
		t.Fatal(err)
	}
	if err := cmxharness.Join(ctx, b, 1); err != nil {
		t.Fatal(err)
	}

	frame := cmxharness.SilenceFrame(companding.ALaw, 160)
	if err := ctx.Receive(a, frame); err != nil {
		t.Fatal(err)
	}

	out, _, err := ctx.Send(b, 160, nil)
	if err != nil {
		t.Fatal(err)
	}
	for i, got := range out {
		decoded := int32(a.Law.Decode(frame[i]))
		want := b.Law.Encode(int32(companding.Saturate16(decoded)))
		if got != want {
			t.Fatalf("out[%d] = %#x, want %#x", i, got, want)
		}
	}
}

// Scenario 3 (three-party sum, all members holding a +1000 DC level)
// lives in scenario_group_test.go: it needs to start from an already
// converged mixing window, which package cmx's own tests reach via
// direct field setup rather than a cold sequence of Receive calls (see
// the comment there).

// Scenario 4: two channels sharing a hardware id join the same
// conference and the classifier offloads them as a hardware
// crossconnect exactly once.
func TestScenarioReconfigureToHardwareCrossconnect(t *testing.T) {
	offload := cmxharness.NewRecordingOffload()
	ctx := cmx.NewContext(cmx.WithHardwareOffload(offload))

	a := cmx.NewChannel("a", companding.ALaw)
	b := cmx.NewChannel("b", companding.ALaw)
	a.HWID, b.HWID = 7, 7

	if err := cmxharness.Join(ctx, a, 1); err != nil {
		t.Fatal(err)
	}
	if err := cmxharness.Join(ctx, b, 1); err != nil {
		t.Fatal(err)
	}

	require.Len(t, offload.Crossconnects, 1, "expected exactly one crossconnect dispatch")
	require.Equal(t, cmxharness.CrossconnectCall{A: "a", B: "b", Enable: true}, offload.Crossconnects[0])
	require.EqualValues(t, 1, ctx.HardwareTransitions())
}

// Scenario 5: a 500-byte frame on a solo channel exceeds the largest
// accepted frame (BuffHalf/4 = 256 bytes) and is dropped outright; the
// receive pointer does not move.
func TestScenarioBackpressureDropsOversizedFrame(t *testing.T) {
	ctx := cmx.NewContext()
	ch := cmx.NewChannel("a", companding.ALaw)

	frame := make([]byte, 500)
	err := ctx.Receive(ch, frame)
	if err == nil {
		t.Fatalf("Receive(500-byte frame) should fail when the budget is %d", cmx.BuffHalf/4)
	}
	if ch.WRx() != 0 {
		t.Fatalf("W_rx = %d, want 0 (frame dropped, not partially absorbed)", ch.WRx())
	}
	if ctx.RxFramesDropped() != 1 {
		t.Fatalf("RxFramesDropped() = %d, want 1", ctx.RxFramesDropped())
	}
}

// Scenario 6: a sustained 852Hz+1477Hz tone (digit '9') at 8kHz, fed
// as six consecutive NPoints-sample windows of linear samples, yields
// exactly one decoded digit.
func TestScenarioDTMFNine(t *testing.T) {
	state := dtmf.NewState(companding.ULaw)

	const sampleRate = 8000.0
	const lowHz, highHz = 852.0, 1477.0

	// A 30ms burst (240 samples) fills only two of the decoder's
	// NPoints-sample analysis windows, one short of the three the
	// debounce needs; drive several consecutive windows of
	// continuous-phase tone so the debounce state machine has enough
	// frames to settle, mirroring a caller holding the key down.
	sample := 0
	for frame := 0; frame < 6; frame++ {
		buf := make([]int16, dtmf.NPoints)
		for i := range buf {
			n := float64(sample + i)
			lo := 8000.0 * math.Sin(2*math.Pi*lowHz*n/sampleRate)
			hi := 8000.0 * math.Sin(2*math.Pi*highHz*n/sampleRate)
			buf[i] = int16(lo + hi)
		}
		state.DecodeSamples(buf)
		sample += dtmf.NPoints
	}

	digits := state.Drain()
	if len(digits) != 1 || digits[0] != '9' {
		t.Fatalf("digits = %q, want [9]", digits)
	}
}

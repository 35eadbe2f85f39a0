package cmx

import (
	"testing"
)

type fakeOffload struct {
	crossconnects []string
	conferences   []string
}

func (f *fakeOffload) Crossconnect(a, b *Channel, enable bool) {
	f.crossconnects = append(f.crossconnects, event(a.ID+"-"+b.ID, enable))
}

func (f *fakeOffload) Conference(ch *Channel, unit int) {
	f.conferences = append(f.conferences, event(ch.ID, unit > 0))
}

func event(id string, enable bool) string {
	if enable {
		return id + ":on"
	}
	return id + ":off"
}

func TestReconfigureJoinsUnassignedChannel(t *testing.T) {
	ctx := NewContext()
	ch := newTestChannel("a")
	ch.Active = true
	ch.ConfID = 1

	if err := ctx.Reconfigure(ch); err != nil {
		t.Fatal(err)
	}
	if !ch.InConference() {
		t.Fatalf("channel should have joined conference 1")
	}
	if ctx.Find(1) == nil {
		t.Fatalf("conference 1 should have been created")
	}
}

func TestReconfigureLeavesAndDestroysEmptyConference(t *testing.T) {
	ctx := NewContext()
	ch := newTestChannel("a")
	ch.Active = true
	ch.ConfID = 1
	_ = ctx.Reconfigure(ch)

	ch.Active = false
	if err := ctx.Reconfigure(ch); err != nil {
		t.Fatal(err)
	}
	if ch.InConference() {
		t.Fatalf("channel should have left the conference")
	}
	if ctx.Find(1) != nil {
		t.Fatalf("conference 1 should have been destroyed once empty")
	}
}

func TestReconfigureMovesBetweenConferences(t *testing.T) {
	ctx := NewContext()
	ch := newTestChannel("a")
	ch.Active = true
	ch.ConfID = 1
	_ = ctx.Reconfigure(ch)

	ch.ConfID = 2
	if err := ctx.Reconfigure(ch); err != nil {
		t.Fatal(err)
	}
	if ch.Conference().ID != 2 {
		t.Fatalf("channel should now be in conference 2")
	}
	if ctx.Find(1) != nil {
		t.Fatalf("conference 1 should have been destroyed after the move emptied it")
	}
}

func TestReconfigureIsIdempotent(t *testing.T) {
	ctx := NewContext()
	ch := newTestChannel("a")
	ch.Active = true
	ch.ConfID = 1
	_ = ctx.Reconfigure(ch)

	before := ch.Conference()
	if err := ctx.Reconfigure(ch); err != nil {
		t.Fatal(err)
	}
	if ch.Conference() != before {
		t.Fatalf("Reconfigure should be a no-op when already in the requested state")
	}
}

func TestReconfigureDispatchesCrossconnectOnHardwarePair(t *testing.T) {
	offload := &fakeOffload{}
	ctx := NewContext(WithHardwareOffload(offload))

	a, b := newTestChannel("a"), newTestChannel("b")
	a.HWID, b.HWID = 7, 7
	a.Active, b.Active = true, true
	a.ConfID, b.ConfID = 1, 1

	if err := ctx.Reconfigure(a); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Reconfigure(b); err != nil {
		t.Fatal(err)
	}

	if len(offload.crossconnects) != 1 {
		t.Fatalf("expected exactly 1 crossconnect dispatch, got %d: %v", len(offload.crossconnects), offload.crossconnects)
	}
	if offload.crossconnects[0] != "a-b:on" {
		t.Fatalf("crossconnect dispatch = %q, want %q", offload.crossconnects[0], "a-b:on")
	}
	if ctx.HardwareTransitions() != 1 {
		t.Fatalf("HardwareTransitions() = %d, want 1", ctx.HardwareTransitions())
	}
}

func TestReconfigureDispatchesCrossconnectDisableOnLeave(t *testing.T) {
	offload := &fakeOffload{}
	ctx := NewContext(WithHardwareOffload(offload))

	a, b := newTestChannel("a"), newTestChannel("b")
	a.HWID, b.HWID = 7, 7
	a.Active, b.Active = true, true
	a.ConfID, b.ConfID = 1, 1
	_ = ctx.Reconfigure(a)
	_ = ctx.Reconfigure(b)

	b.Active = false
	if err := ctx.Reconfigure(b); err != nil {
		t.Fatal(err)
	}

	if len(offload.crossconnects) != 2 || offload.crossconnects[1] != "a-b:off" {
		t.Fatalf("expected a trailing disable dispatch, got %v", offload.crossconnects)
	}
}

func TestReconfigureReclassifiesOnFieldChangeWithoutMembershipChange(t *testing.T) {
	offload := &fakeOffload{}
	ctx := NewContext(WithHardwareOffload(offload))

	a, b := newTestChannel("a"), newTestChannel("b")
	a.HWID, b.HWID = 7, 7
	a.Active, b.Active = true, true
	a.ConfID, b.ConfID = 1, 1
	_ = ctx.Reconfigure(a)
	_ = ctx.Reconfigure(b)

	if got := a.Conference().Solution.Kind; got != SolutionHWCrossconnect {
		t.Fatalf("solution = %v, want HWCrossconnect before tx_mix flips", got)
	}

	// Same membership, but tx_mix now forces a software mix.
	a.TxMix = true
	if err := ctx.Reconfigure(a); err != nil {
		t.Fatal(err)
	}

	if got := a.Conference().Solution.Kind; got != SolutionSoftware {
		t.Fatalf("solution = %v, want Software after tx_mix set", got)
	}
	if len(offload.crossconnects) != 2 || offload.crossconnects[1] != "a-b:off" {
		t.Fatalf("expected a disable dispatch on demotion, got %v", offload.crossconnects)
	}
}

func TestReconfigureNilChannelIsInvalidArgument(t *testing.T) {
	ctx := NewContext()
	if err := ctx.Reconfigure(nil); err == nil {
		t.Fatalf("Reconfigure(nil) should fail")
	}
}

package cmx

import (
	"fmt"

	"github.com/flowpbx/cmx/internal/cmxtrace"
)

// Reconfigure reconciles a channel's conference membership with its
// current ConfID/Active fields. It must be called
// whenever either field changes (or HWID/TxMix/Echo, which affect the
// hardware classifier without changing membership).
//
//   - Active with a different ConfID than currently assigned: leave,
//     then join the new conference (creating it if necessary).
//   - Inactive, or ConfID == 0, while currently in a conference: leave.
//   - Active with a nonzero ConfID while currently unassigned: join
//     (creating the conference if it doesn't exist).
//   - Anything else (already in the requested state): no-op.
//
// After every membership change, the hardware classifier is
// re-evaluated for every conference touched and hardware-offload
// notifications are dispatched for any solution transition.
func (ctx *Context) Reconfigure(ch *Channel) error {
	if ch == nil {
		return ErrInvalidArgument
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	current := ch.conference
	wantsLeave := !ch.Active || ch.ConfID == 0

	switch {
	case current != nil && wantsLeave:
		prevSolution, prevMembers := snapshot(current)
		if err := ctx.removeMember(ch); err != nil {
			return fmt.Errorf("leaving conference %d: %w", current.ID, err)
		}
		ctx.settle(current, prevSolution, prevMembers)
		return nil

	case current != nil && ch.Active && ch.ConfID != 0 && current.ID != ch.ConfID:
		prevSolution, prevMembers := snapshot(current)
		if err := ctx.removeMember(ch); err != nil {
			return fmt.Errorf("leaving conference %d: %w", current.ID, err)
		}
		ctx.settle(current, prevSolution, prevMembers)
		return ctx.join(ch)

	case current == nil && ch.Active && ch.ConfID != 0:
		return ctx.join(ch)

	default:
		// Membership is already in the requested state, but HWID,
		// TxMix, or Echo may have changed under it: re-run the
		// classifier so the hardware solution tracks the new fields.
		// With unchanged inputs this is a no-op, keeping Reconfigure
		// idempotent.
		if current != nil {
			prevSolution, prevMembers := snapshot(current)
			ctx.settle(current, prevSolution, prevMembers)
		}
		return nil
	}
}

// join resolves ch.ConfID (creating the conference if needed), adds ch
// to it, and settles the hardware classification. Caller holds ctx.mu.
func (ctx *Context) join(ch *Channel) error {
	target, err := ctx.resolveConference(ch.ConfID)
	if err != nil {
		return fmt.Errorf("joining conference %d: %w", ch.ConfID, err)
	}
	prevSolution, prevMembers := snapshot(target)
	if err := ctx.addMember(ch, target); err != nil {
		return fmt.Errorf("joining conference %d: %w", ch.ConfID, err)
	}
	ctx.settle(target, prevSolution, prevMembers)
	return nil
}

// resolveConference finds or creates the conference for id.
func (ctx *Context) resolveConference(id uint32) (*Conference, error) {
	if conf := ctx.find(id); conf != nil {
		return conf, nil
	}
	return ctx.create(id)
}

// snapshot captures a conference's solution and member list before a
// membership mutation, so the post-mutation classifier result can be
// compared against it.
func snapshot(conf *Conference) (Solution, []*Channel) {
	members := append([]*Channel(nil), conf.Members...)
	return conf.Solution, members
}

// settle re-evaluates conf's hardware classification after a
// membership change, dispatches any resulting hardware-offload
// transition, and destroys the conference if it is now empty.
func (ctx *Context) settle(conf *Conference, prevSolution Solution, prevMembers []*Channel) {
	if len(conf.Members) == 0 {
		ctx.dispatchTransition(prevSolution, Solution{Kind: SolutionSoftware}, prevMembers, nil)
		ctx.destroy(conf)
		return
	}

	next := ctx.classify(conf)
	if next != prevSolution {
		ctx.tracer.Tracef(cmxtrace.HW, "hw solution transition",
			"conference_id", conf.ID, "from", prevSolution.Kind.String(), "to", next.Kind.String(), "unit", next.Unit)
	}
	ctx.dispatchTransition(prevSolution, next, prevMembers, conf.Members)

	conf.Solution = next
	if next.Kind == SolutionSoftware {
		conf.HWID = 0
	} else {
		conf.HWID = conf.Members[0].HWID
	}
}

// dispatchTransition sends the hardware-offload notifications implied
// by moving from prev to next:
//
//   - HWConference -> anything else: disable conference on every prior
//     member.
//   - HWCrossconnect -> anything else: disable crossconnect on the two
//     prior members.
//   - -> HWConference(u): enable conference u on every current member.
//   - -> HWCrossconnect: enable crossconnect on the two current
//     members.
func (ctx *Context) dispatchTransition(prev, next Solution, prevMembers, currMembers []*Channel) {
	if prev.Kind == SolutionHWConference && next.Kind != SolutionHWConference {
		if ctx.offload != nil {
			for _, m := range prevMembers {
				ctx.offload.Conference(m, 0)
			}
		}
		ctx.hardwareTransitions.Add(1)
	}

	if prev.Kind == SolutionHWCrossconnect && next.Kind != SolutionHWCrossconnect {
		if ctx.offload != nil && len(prevMembers) == 2 {
			ctx.offload.Crossconnect(prevMembers[0], prevMembers[1], false)
		}
		ctx.hardwareTransitions.Add(1)
	}

	if next.Kind == SolutionHWConference && (prev.Kind != SolutionHWConference || prev.Unit != next.Unit) {
		if ctx.offload != nil {
			for _, m := range currMembers {
				ctx.offload.Conference(m, next.Unit)
			}
		}
		ctx.hardwareTransitions.Add(1)
	}

	if next.Kind == SolutionHWCrossconnect && prev.Kind != SolutionHWCrossconnect {
		if ctx.offload != nil && len(currMembers) == 2 {
			ctx.offload.Crossconnect(currMembers[0], currMembers[1], true)
		}
		ctx.hardwareTransitions.Add(1)
	}
}

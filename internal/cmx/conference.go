package cmx

// SolutionKind identifies how a conference's audio is currently being
// realized.
type SolutionKind int

const (
	// SolutionSoftware mixes entirely in this package.
	SolutionSoftware SolutionKind = iota
	// SolutionHWCrossconnect offloads a 2-party tie to hardware.
	SolutionHWCrossconnect
	// SolutionHWConference offloads an N-party tie to a hardware
	// conference unit (1..8).
	SolutionHWConference
)

// String names the solution kind for logging.
func (k SolutionKind) String() string {
	switch k {
	case SolutionSoftware:
		return "software"
	case SolutionHWCrossconnect:
		return "hw-crossconnect"
	case SolutionHWConference:
		return "hw-conference"
	default:
		return "unknown"
	}
}

// Solution is a conference's current realization: software, a hardware
// crossconnect, or a hardware conference on a specific unit (1..8).
type Solution struct {
	Kind SolutionKind
	Unit int // valid only when Kind == SolutionHWConference
}

// MaxHardwareUnits is the number of hardware conference units available
// per hardware instance; valid unit numbers run 1..8.
const MaxHardwareUnits = 8

// Conference is an aggregation of one or more channels whose audio is
// mixed. It is created lazily on first join and destroyed when its
// last member leaves.
type Conference struct {
	// ID is the conference's nonzero unique key.
	ID uint32

	// Members is the ordered list of channels currently in the
	// conference. Order carries no semantic meaning; it is preserved
	// only for deterministic iteration.
	Members []*Channel

	confBuff [BuffSize]int32

	wMin, wMax uint32

	// largest is the max of every member channel's largest value.
	largest uint32

	Solution Solution

	// HWID is the hardware instance hosting this conference when
	// Solution.Kind != SolutionSoftware, else 0.
	HWID uint32
}

// MemberCount returns the number of channels currently in the
// conference.
func (c *Conference) MemberCount() int { return len(c.Members) }

// WMin and WMax expose the mix-buffer pointer envelope for tests and
// diagnostics.
func (c *Conference) WMin() uint32 { return c.wMin }
func (c *Conference) WMax() uint32 { return c.wMax }

// debugAssertions gates the consistency checks below. They guard
// invariants that are unreachable in correct use, so a violation
// panics rather than returning an error nothing can act on.
const debugAssertions = true

// assertMembership panics if ch claims a conference that does not list
// it as a member (or vice versa is caught by the caller holding the
// member list).
func assertMembership(ch *Channel) {
	if !debugAssertions {
		return
	}
	if ch.conference != nil && ch.conference.indexOf(ch) < 0 {
		panic("cmx: channel/conference membership out of sync")
	}
}

// indexOf returns the position of ch in c.Members, or -1.
func (c *Conference) indexOf(ch *Channel) int {
	for i, m := range c.Members {
		if m == ch {
			return i
		}
	}
	return -1
}

// find returns the conference registered under id, or nil.
func (ctx *Context) find(id uint32) *Conference {
	return ctx.conferences[id]
}

// create registers a new, empty conference under id. Fails if id is
// zero: conference ids are nonzero, 0 means "no conference".
func (ctx *Context) create(id uint32) (*Conference, error) {
	if id == 0 {
		return nil, ErrInvalidArgument
	}
	conf := &Conference{
		ID:       id,
		Solution: Solution{Kind: SolutionSoftware},
	}
	ctx.conferences[id] = conf
	return conf, nil
}

// destroy unregisters an empty conference. Refuses if members remain.
func (ctx *Context) destroy(conf *Conference) error {
	if len(conf.Members) != 0 {
		return ErrInvalidArgument
	}
	delete(ctx.conferences, conf.ID)
	return nil
}

// addMember joins ch to conf: the channel's rx ring is reset to
// silence and its pointers align with the conference's leading edge, so
// it reads silence until a real sample overwrites.
func (ctx *Context) addMember(ch *Channel, conf *Conference) error {
	if ch.conference != nil {
		return ErrInvalidArgument
	}

	fillSilence(&ch.rxBuff, ch.Law)
	ch.wRx = conf.wMax
	ch.rRx = conf.wMax

	conf.Members = append(conf.Members, ch)

	// Zero the mix buffer the moment membership crosses from 2 to 3:
	// from here on conf_buff is live and must start from a known
	// baseline. The count is sampled after the append.
	if len(conf.Members) == 3 {
		for i := range conf.confBuff {
			conf.confBuff[i] = 0
		}
	}

	ch.conference = conf
	return nil
}

// removeMember unlinks ch from its current conference. The caller
// destroys the conference if it is now empty.
func (ctx *Context) removeMember(ch *Channel) error {
	conf := ch.conference
	if conf == nil {
		return ErrNotFound
	}
	idx := conf.indexOf(ch)
	if idx < 0 {
		return ErrNotFound
	}
	conf.Members = append(conf.Members[:idx], conf.Members[idx+1:]...)
	ch.conference = nil
	return nil
}

// classify computes the hardware-path solution for conf: software if
// any member mixes tx, lacks a hardware id, spans a different hardware
// instance, or membership is below two; a crossconnect for exactly two
// co-located members; otherwise a hardware conference unit if one is
// free.
func (ctx *Context) classify(conf *Conference) Solution {
	members := conf.Members
	if len(members) < 2 {
		return Solution{Kind: SolutionSoftware}
	}

	hwID := members[0].HWID
	for _, m := range members {
		if m.TxMix || m.HWID == 0 || m.HWID != hwID {
			return Solution{Kind: SolutionSoftware}
		}
	}

	if len(members) == 2 {
		return Solution{Kind: SolutionHWCrossconnect, Unit: 0}
	}

	unit := ctx.allocateHardwareUnit(conf, hwID)
	if unit == 0 {
		return Solution{Kind: SolutionSoftware}
	}
	return Solution{Kind: SolutionHWConference, Unit: unit}
}

// allocateHardwareUnit scans every other conference sharing hwID,
// marking the hardware conference units they already claim, then
// returns conf's own current unit if it is still free, or else the
// lowest free unit in 1..MaxHardwareUnits. Returns 0 if none is free.
func (ctx *Context) allocateHardwareUnit(conf *Conference, hwID uint32) int {
	var taken [MaxHardwareUnits + 1]bool

	for _, other := range ctx.conferences {
		if other == conf || other.HWID != hwID {
			continue
		}
		if other.Solution.Kind == SolutionHWConference && other.Solution.Unit >= 1 && other.Solution.Unit <= MaxHardwareUnits {
			taken[other.Solution.Unit] = true
		}
	}

	if conf.Solution.Kind == SolutionHWConference && conf.Solution.Unit >= 1 && !taken[conf.Solution.Unit] {
		return conf.Solution.Unit
	}

	for unit := 1; unit <= MaxHardwareUnits; unit++ {
		if !taken[unit] {
			return unit
		}
	}
	return 0
}

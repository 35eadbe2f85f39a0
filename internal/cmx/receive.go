package cmx

import "github.com/flowpbx/cmx/internal/cmxtrace"

// maxReceiveFrame is the largest inbound frame this engine accepts
// before failing softly.
const maxReceiveFrame = BuffHalf / 4

// Receive absorbs an inbound encoded PCM frame into ch's rx ring buffer
// and, if ch belongs to a conference with three or more members, into
// the conference's live mix buffer.
//
// Overload is soft: an oversized frame or a ring-buffer overflow is
// dropped, counted, and reported as ErrBusy, which callers are
// expected to accept rather than treat as a hard failure.
func (ctx *Context) Receive(ch *Channel, frame []byte) error {
	if ch == nil {
		return ErrInvalidArgument
	}
	n := len(frame)
	if n == 0 {
		return ErrInvalidArgument
	}
	if n > maxReceiveFrame {
		ctx.rxFramesDropped.Add(1)
		ctx.logger.Warn("cmx: rx frame too large, dropped", "channel_id", ch.ID, "len", n, "max", maxReceiveFrame)
		return ErrBusy
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	assertMembership(ch)

	frameLen := uint32(n)
	ch.largest = maxU32(ch.largest, 2*frameLen)

	conf := ch.conference
	if conf == nil {
		// No conference: no shared envelope to race against, just
		// absorb into the channel's own rx ring.
		copyIntoRing(&ch.rxBuff, ch.wRx, frame)
		ch.wRx = advance(ch.wRx, frameLen)
		if ch.DTMF != nil {
			ch.DTMF.Decode(frame)
		}
		return nil
	}

	conf.largest = maxU32(conf.largest, ch.largest)
	ch.largest = conf.largest

	candidate := advance(ch.wRx, frameLen)
	for _, m := range conf.Members {
		if m == ch {
			continue
		}
		if behind(m.wRx, candidate) {
			candidate = m.wRx
		}
	}
	newWMin := candidate

	oldWMax := conf.wMax
	newWMax := oldWMax
	if ahead(newWMin, oldWMax) {
		newWMax = newWMin
	}

	if distance(newWMax, newWMin) > ch.largest {
		ctx.rxFramesDropped.Add(1)
		ctx.logger.Debug("cmx: rx frame dropped by overflow guard",
			"channel_id", ch.ID, "conference_id", conf.ID, "len", n)
		ctx.tracer.Tracef(cmxtrace.Ring, "rx frame dropped: overflow guard",
			"channel_id", ch.ID, "conference_id", conf.ID,
			"w_min", newWMin, "w_max", newWMax, "largest", ch.largest)
		return ErrBusy
	}

	oldWMaxRel := distance(oldWMax, ch.wRx)

	copyIntoRing(&ch.rxBuff, ch.wRx, frame)

	if len(conf.Members) >= 3 {
		for k := uint32(0); k < frameLen; k++ {
			idx := advance(ch.wRx, k)
			decoded := int32(ch.Law.Decode(frame[k]))
			if k < oldWMaxRel {
				conf.confBuff[idx] += decoded
			} else {
				conf.confBuff[idx] = decoded
			}
		}
	}

	ch.wRx = advance(ch.wRx, frameLen)
	conf.wMin = newWMin
	conf.wMax = newWMax

	if ch.DTMF != nil {
		ch.DTMF.Decode(frame)
	}

	return nil
}

// copyIntoRing writes src into buf starting at idx, wrapping modulo
// BuffSize.
func copyIntoRing(buf *[BuffSize]byte, idx uint32, src []byte) {
	for i, b := range src {
		buf[advance(idx, uint32(i))] = b
	}
}

func maxU32(a, b uint32) uint32 {
	if a > b {
		return a
	}
	return b
}

package cmx

import "github.com/flowpbx/cmx/internal/companding"

// Send produces exactly length encoded PCM bytes for ch's outbound
// stream: tone if one is active, queued tx audio, and otherwise the
// solo/pair/group mix branch for the channel's conference size. tag is
// opaque pass-through metadata returned to the caller unchanged.
func (ctx *Context) Send(ch *Channel, length int, tag any) ([]byte, any, error) {
	if ch == nil {
		return nil, tag, ErrInvalidArgument
	}
	if length <= 0 {
		return nil, tag, ErrInvalidArgument
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	assertMembership(ch)

	n := uint32(length)
	out := make([]byte, length)

	r := ch.rRx
	var rrBound uint32
	if ch.conference != nil {
		rrBound = ch.conference.wMin
	} else {
		rrBound = ch.wRx
	}
	if distance(rrBound, r) < n {
		r = (rrBound - n) & BuffMask
		ch.rRx = rrBound
	} else {
		ch.rRx = advance(r, n)
	}

	t := ch.rTx
	txAvail := distance(ch.wTx, t)

	if ch.Tone != nil {
		produced := uint32(ch.Tone.CopyInto(ch, out))
		if produced > 0 {
			// Tone preempts everything: any unfilled tail is padded
			// with silence, the pending tx audio is discarded, and
			// none of the mix branches run this tick.
			if produced > n {
				produced = n
			}
			for i := produced; i < n; i++ {
				out[i] = ch.Law.Silence()
			}
			ch.rTx = ch.wTx
			return out, tag, nil
		}
	}

	offset := uint32(0)

	conf := ch.conference
	members := 1
	if conf != nil {
		members = len(conf.Members)
	}

	for ; offset < n; offset++ {
		idx := advance(r, offset)

		if !ch.TxMix && txAvail > 0 {
			out[offset] = ch.txBuff[t]
			t = advance(t, 1)
			txAvail--
			continue
		}

		useTx := ch.TxMix && txAvail > 0
		var txSample int32
		if useTx {
			txSample = int32(ch.Law.Decode(ch.txBuff[t]))
		}

		switch {
		case members < 2:
			out[offset] = ch.sendSolo(idx, txSample, useTx)
		case members == 2:
			other := conf.Members[0]
			if other == ch {
				other = conf.Members[1]
			}
			out[offset] = ch.sendPair(other, idx, txSample, useTx)
		default:
			out[offset] = ch.sendGroup(conf, idx, txSample, useTx)
		}

		if useTx {
			t = advance(t, 1)
			txAvail--
		}
	}

	ch.rTx = t
	return out, tag, nil
}

// sendSolo produces one byte for a channel outside any conference (or
// alone in one).
func (ch *Channel) sendSolo(idx uint32, txSample int32, useTx bool) byte {
	if !ch.Echo {
		if useTx {
			return ch.Law.Encode(txSample)
		}
		return ch.Law.Silence()
	}
	if !useTx {
		return ch.rxBuff[idx]
	}
	sum := txSample + int32(ch.Law.Decode(ch.rxBuff[idx]))
	return ch.Law.Encode(int32(companding.Saturate16(sum)))
}

// sendPair produces one byte for a two-member conference. other's
// samples are decoded with its own law table to normalize mismatched
// encodings before summing.
func (ch *Channel) sendPair(other *Channel, idx uint32, txSample int32, useTx bool) byte {
	sum := other.Law.Decode(other.rxBuff[idx])
	total := int32(sum)
	if useTx {
		total += txSample
	}
	if ch.Echo {
		total += int32(ch.Law.Decode(ch.rxBuff[idx]))
	}
	return ch.Law.Encode(int32(companding.Saturate16(total)))
}

// sendGroup produces one byte for a conference of three or more.
// conf_buff already includes this channel's own contribution from the
// receive path, so the echo-off case subtracts it back out.
func (ch *Channel) sendGroup(conf *Conference, idx uint32, txSample int32, useTx bool) byte {
	total := conf.confBuff[idx]
	if !ch.Echo {
		total -= int32(ch.Law.Decode(ch.rxBuff[idx]))
	}
	if useTx {
		total += txSample
	}
	return ch.Law.Encode(int32(companding.Saturate16(total)))
}

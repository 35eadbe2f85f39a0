package cmx

// Transmit enqueues user-space playout bytes into ch's tx ring buffer.
// The tx ring reserves one slot to disambiguate full from empty, so
// usable capacity is BuffSize-1.
//
// Transmit is producer-paced and tolerates loss: if frame does not fit
// in the free space currently available, the tail is dropped rather
// than blocking or erroring the caller. TxBytesDropped counts the
// bytes discarded this way.
func (ctx *Context) Transmit(ch *Channel, frame []byte) error {
	if ch == nil {
		return ErrInvalidArgument
	}
	if len(frame) == 0 {
		return ErrInvalidArgument
	}

	ctx.mu.Lock()
	defer ctx.mu.Unlock()

	free := (distance(ch.rTx, ch.wTx) - 1) & BuffMask

	n := uint32(len(frame))
	if n > free {
		dropped := n - free
		ctx.txBytesDropped.Add(uint64(dropped))
		ctx.logger.Warn("cmx: tx buffer full, dropping tail",
			"channel_id", ch.ID, "free", free, "frame_len", n, "dropped", dropped)
		for i := uint32(0); i < free; i++ {
			ch.txBuff[advance(ch.wTx, i)] = frame[i]
		}
		ch.wTx = advance(ch.rTx, BuffMask)
		return nil
	}

	for i := uint32(0); i < n; i++ {
		ch.txBuff[advance(ch.wTx, i)] = frame[i]
	}
	ch.wTx = advance(ch.wTx, n)

	return nil
}

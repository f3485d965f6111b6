package kernel

// Synchronous message-passing IPC: Send blocks the caller
// until the destination is ready to Receive (or delivers immediately if it
// already is), Receive is the dual, SendRec composes the two into one
// round trip, and Notify is a non-blocking, best-effort variant.
//
// A process blocked sending sits in its destination's sender queue
// (senderQHead/nextSender); a process blocked receiving is marked
// FlagReceiving with ReceiveFrom recording which proc_nr it's waiting on
// (noLink meaning "any"). Neither state keeps the process on a ready
// queue — DequeueSchedule/EnqueueHeadSchedule move it off and back on.

// deliver copies msg into dst's waiting buffer, stamps its source, and
// wakes dst at the head of its ready queue so a reply runs promptly.
func (k *Kernel) deliver(dst *Proc, fromPid int, msg *Message) {
	if dst.MsgBuf != nil {
		*dst.MsgBuf = *msg
		dst.MsgBuf.Source = fromPid
		dst.MsgBuf.ReplyRes = int(OK)
	}
	dst.Flags &^= FlagReceiving
	dst.ReceiveFrom = noLink
	k.EnqueueHeadSchedule(dst)
}

// addSender appends src to dst's sender queue, tail-first (FIFO fairness
// among multiple blocked senders).
func (k *Kernel) addSender(dst, src *Proc) {
	src.nextSender = noLink
	if dst.senderQHead == noLink {
		dst.senderQHead = src.ProcNr
		return
	}
	cur := dst.senderQHead
	for k.procTable[cur].nextSender != noLink {
		cur = k.procTable[cur].nextSender
	}
	k.procTable[cur].nextSender = src.ProcNr
}

// popMatchingSender removes and returns the first proc in dst's sender
// queue whose proc_nr is fromPid (or the very first, if fromPid == noLink,
// meaning "receive from anyone").
func (k *Kernel) popMatchingSender(dst *Proc, fromPid int) *Proc {
	prev := noLink
	cur := dst.senderQHead
	for cur != noLink {
		c := &k.procTable[cur]
		if fromPid == noLink || c.ProcNr == fromPid {
			if prev == noLink {
				dst.senderQHead = c.nextSender
			} else {
				k.procTable[prev].nextSender = c.nextSender
			}
			c.nextSender = noLink
			return c
		}
		prev = cur
		cur = c.nextSender
	}
	return nil
}

// removeFromSenderQueue unlinks p from dst's sender queue wherever it sits,
// used when a signal interrupts a blocked send.
func (k *Kernel) removeFromSenderQueue(dst, p *Proc) {
	prev := noLink
	cur := dst.senderQHead
	for cur != noLink {
		if cur == p.ProcNr {
			if prev == noLink {
				dst.senderQHead = k.procTable[cur].nextSender
			} else {
				k.procTable[prev].nextSender = k.procTable[cur].nextSender
			}
			k.procTable[cur].nextSender = noLink
			return
		}
		prev = cur
		cur = k.procTable[cur].nextSender
	}
}

// wouldDeadlock reports whether src sending to dst would complete a cycle
// of processes each blocked sending to the next: walk dst's own
// send-target chain looking for src.
func (k *Kernel) wouldDeadlock(src, dst *Proc) bool {
	cur := dst
	seen := map[int]bool{}
	for cur.Flags&FlagSending != 0 {
		if seen[cur.ProcNr] {
			return false
		}
		seen[cur.ProcNr] = true
		next := k.GetProc(cur.ReceiveFrom)
		if next == nil {
			return false
		}
		if next.ProcNr == src.ProcNr {
			return true
		}
		cur = next
	}
	return false
}

// Send implements the `send` syscall. If dst is already blocked receiving
// from src (or from anyone), the message is delivered immediately and Send
// returns OK. Otherwise src blocks in dst's sender queue and Send returns
// Suspend.
func (k *Kernel) Send(src *Proc, dstPid int, msg *Message) Errno {
	if src.ProcNr == dstPid {
		return EDEADLK
	}
	dst := k.GetProc(dstPid)
	if dst == nil {
		return ESRCH
	}
	if k.wouldDeadlock(src, dst) {
		return EDEADLK
	}
	if dst.Flags&FlagReceiving != 0 && (dst.ReceiveFrom == noLink || dst.ReceiveFrom == src.ProcNr) {
		k.deliver(dst, src.ProcNr, msg)
		return OK
	}
	src.Flags |= FlagSending
	src.ReceiveFrom = dstPid
	src.MsgBuf = msg
	k.addSender(dst, src)
	k.DequeueSchedule(src)
	return Suspend
}

// completeSend finishes a sender's blocked Send once receiver has taken its
// message: copies it into msg, stamps Source, and either wakes the sender
// (plain send) or parks it straight into the "waiting for a reply" state
// (sendrec, via FlagSendRec).
func (k *Kernel) completeSend(receiver, sender *Proc, msg *Message) {
	if sender.MsgBuf != nil {
		*msg = *sender.MsgBuf
	}
	msg.Source = sender.ProcNr
	sender.Flags &^= FlagSending

	if sender.Flags&FlagSendRec != 0 {
		// sender.MsgBuf still points at its own original buffer (the
		// one Send was called with) — that's where the reply lands
		// once receiver eventually sends back to it.
		sender.Flags &^= FlagSendRec
		sender.Flags |= FlagReceiving
		sender.ReceiveFrom = receiver.ProcNr
		return
	}
	if sender.MsgBuf != nil {
		sender.MsgBuf.ReplyRes = int(OK)
	}
	k.EnqueueHeadSchedule(sender)
}

// Receive implements the `receive` syscall: take the first queued message
// from fromPid (or from anyone, if fromPid == noLink), or block until one
// arrives.
func (k *Kernel) Receive(p *Proc, fromPid int, msg *Message) Errno {
	if sender := k.popMatchingSender(p, fromPid); sender != nil {
		k.completeSend(p, sender, msg)
		return OK
	}
	p.Flags |= FlagReceiving
	p.ReceiveFrom = fromPid
	p.MsgBuf = msg
	k.DequeueSchedule(p)
	return Suspend
}

// SendRec implements the `sendrec` syscall: send msg to dstPid, then block
// for its reply into the same buffer. Mirrors do_sendrec's fused
// send-then-receive.
func (k *Kernel) SendRec(p *Proc, dstPid int, msg *Message) Errno {
	p.Flags |= FlagSendRec
	res := k.Send(p, dstPid, msg)
	if res == Suspend {
		return Suspend
	}
	p.Flags &^= FlagSendRec
	if res != OK {
		return res
	}
	return k.Receive(p, dstPid, msg)
}

// Notify implements the `notify` syscall: a non-blocking IPC primitive.
// If dst is ready to receive from src, the notification is delivered; if
// not, it is silently dropped rather than queued (an Open Question this
// kernel resolves in favor of fire-and-forget semantics, matching the
// original's asynchronous notify over a strict queueing send).
func (k *Kernel) Notify(src *Proc, dstPid int) Errno {
	dst := k.GetProc(dstPid)
	if dst == nil {
		return ESRCH
	}
	if dst.Flags&FlagReceiving != 0 && (dst.ReceiveFrom == noLink || dst.ReceiveFrom == src.ProcNr) {
		notif := Message{Type: int(SysNotify), Source: src.ProcNr}
		k.deliver(dst, src.ProcNr, &notif)
	}
	return OK
}

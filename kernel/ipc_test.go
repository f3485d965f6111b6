package kernel

import "testing"

func mustStart(t *testing.T, k *Kernel, name string) *Proc {
	t.Helper()
	p, err := k.StartKernelProc(0, UserPriority, name)
	if err != OK {
		t.Fatalf("StartKernelProc(%s): %v", name, err)
	}
	return p
}

func TestReceiveThenSendDeliversImmediately(t *testing.T) {
	k := New(Config{PageCount: 64})
	receiver := mustStart(t, k, "receiver")
	sender := mustStart(t, k, "sender")

	var inbox Message
	if err := k.Receive(receiver, noLink, &inbox); err != Suspend {
		t.Fatalf("expected Receive with no sender yet to Suspend, got %v", err)
	}

	out := &Message{Type: 7, I: [3]int{1, 2, 3}}
	if err := k.Send(sender, receiver.ProcNr, out); err != OK {
		t.Fatalf("Send: %v", err)
	}
	if inbox.Type != 7 || inbox.Source != sender.ProcNr {
		t.Fatalf("expected the message to be delivered into receiver's buffer, got %+v", inbox)
	}
	if receiver.State != Runnable || receiver.Flags&FlagReceiving != 0 {
		t.Fatalf("expected receiver to be woken and runnable")
	}
}

func TestSendBeforeReceiveBlocksSender(t *testing.T) {
	k := New(Config{PageCount: 64})
	receiver := mustStart(t, k, "receiver")
	sender := mustStart(t, k, "sender")

	out := &Message{Type: 1}
	if err := k.Send(sender, receiver.ProcNr, out); err != Suspend {
		t.Fatalf("expected Send with no receiver waiting to Suspend, got %v", err)
	}
	if sender.Flags&FlagSending == 0 {
		t.Fatalf("expected sender to be marked FlagSending")
	}
	if k.DequeueSchedule(sender) {
		t.Fatalf("expected a blocked sender to already be off its ready queue")
	}

	var inbox Message
	if err := k.Receive(receiver, noLink, &inbox); err != OK {
		t.Fatalf("Receive: %v", err)
	}
	if inbox.Source != sender.ProcNr {
		t.Fatalf("expected to receive from the blocked sender")
	}
	if sender.State != Runnable || sender.Flags&FlagSending != 0 {
		t.Fatalf("expected the sender to be woken once received")
	}
}

func TestSendToUnknownPidFails(t *testing.T) {
	k := New(Config{PageCount: 64})
	sender := mustStart(t, k, "sender")
	if err := k.Send(sender, 99, &Message{}); err != ESRCH {
		t.Fatalf("expected ESRCH sending to an out-of-range pid, got %v", err)
	}
}

func TestSendDetectsTwoProcessDeadlock(t *testing.T) {
	k := New(Config{PageCount: 64})
	a := mustStart(t, k, "a")
	b := mustStart(t, k, "b")

	// a blocks sending to b.
	if err := k.Send(a, b.ProcNr, &Message{}); err != Suspend {
		t.Fatalf("expected a's send to suspend, got %v", err)
	}
	// b sending to a would close the cycle.
	if err := k.Send(b, a.ProcNr, &Message{}); err != EDEADLK {
		t.Fatalf("expected EDEADLK, got %v", err)
	}
}

func TestSendToSelfFailsWithEDEADLK(t *testing.T) {
	k := New(Config{PageCount: 64})
	p := mustStart(t, k, "p")

	if err := k.Send(p, p.ProcNr, &Message{}); err != EDEADLK {
		t.Fatalf("expected EDEADLK sending to self, got %v", err)
	}
	if p.Flags&FlagSending != 0 {
		t.Fatalf("expected a self-send to fail without changing state")
	}
	if !k.DequeueSchedule(p) {
		t.Fatalf("expected p to still be sitting on its ready queue, untouched by a failed self-send")
	}
}

func TestSendRecRoundTrip(t *testing.T) {
	k := New(Config{PageCount: 64})
	client := mustStart(t, k, "client")
	server := mustStart(t, k, "server")

	req := &Message{Type: 10, I: [3]int{42}}
	if err := k.SendRec(client, server.ProcNr, req); err != Suspend {
		t.Fatalf("expected SendRec to suspend the client until the server replies, got %v", err)
	}
	if client.Flags&(FlagSending|FlagSendRec) != FlagSending|FlagSendRec {
		t.Fatalf("expected client to be parked in the server's sender queue, marked mid-sendrec")
	}

	var fromClient Message
	if err := k.Receive(server, noLink, &fromClient); err != OK {
		t.Fatalf("server Receive: %v", err)
	}
	if fromClient.I[0] != 42 {
		t.Fatalf("expected the server to see the client's request, got %+v", fromClient)
	}

	reply := &Message{Type: 11, I: [3]int{7}}
	if err := k.Send(server, client.ProcNr, reply); err != OK {
		t.Fatalf("server reply Send: %v", err)
	}
	if req.I[0] != 7 {
		t.Fatalf("expected the reply to land in the client's original buffer, got %+v", req)
	}
	if client.State != Runnable {
		t.Fatalf("expected the client to be woken by the reply")
	}
}

func TestNotifyDeliversWhenReceiverReadyElseDrops(t *testing.T) {
	k := New(Config{PageCount: 64})
	src := mustStart(t, k, "src")
	dst := mustStart(t, k, "dst")

	// Not yet receiving: notify is dropped, not queued.
	if err := k.Notify(src, dst.ProcNr); err != OK {
		t.Fatalf("Notify: %v", err)
	}
	var inbox Message
	if err := k.Receive(dst, noLink, &inbox); err != Suspend {
		t.Fatalf("expected nothing pending for dst, got %v", err)
	}

	// Now ready: delivered immediately.
	var inbox2 Message
	k.Receive(dst, noLink, &inbox2)
	_ = k.Notify(src, dst.ProcNr)
	if inbox2.Source != src.ProcNr {
		t.Fatalf("expected the notify to be delivered once dst was receiving, got %+v", inbox2)
	}
}

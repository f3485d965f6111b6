package kernel

import "testing"

func TestCauseSigMarksPending(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	k.CauseSig(p, SIGUSR1)
	if !p.Pending.Has(SIGUSR1) {
		t.Fatalf("expected SIGUSR1 to be pending")
	}
}

func TestCauseSigWakesBlockedReceiverWithEINTR(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")

	var inbox Message
	if err := k.Receive(p, noLink, &inbox); err != Suspend {
		t.Fatalf("expected Receive to suspend, got %v", err)
	}

	k.CauseSig(p, SIGINT)

	if p.State != Runnable {
		t.Fatalf("expected the signal to wake p, got %v", p.State)
	}
	if inbox.ReplyRes != int(EINTR) {
		t.Fatalf("expected EINTR written into the pending receive, got %d", inbox.ReplyRes)
	}
}

func TestCauseSigDoesNotWakeWhenBlocked(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	p.Blocked = p.Blocked.With(SIGINT)

	var inbox Message
	k.Receive(p, noLink, &inbox)
	k.CauseSig(p, SIGINT)

	if p.Flags&FlagReceiving == 0 {
		t.Fatalf("expected p to remain blocked on receive since SIGINT is masked")
	}
	if !p.Pending.Has(SIGINT) {
		t.Fatalf("expected SIGINT to still be recorded pending")
	}
}

func TestDeliverPendingDefaultTerminatesProcess(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartUserProc([]byte{1}, 0, UserPriority, "p")
	k.CauseSig(p, SIGTERM)

	sig, terminated := k.DeliverPending(p)
	if sig != SIGTERM || !terminated {
		t.Fatalf("expected SIGTERM to terminate p by default, got sig=%v terminated=%v", sig, terminated)
	}
	if p.State != Zombie {
		t.Fatalf("expected p to be ZOMBIE after the default action ran, got %v", p.State)
	}
	if p.ExitStatus != -int(SIGTERM) {
		t.Fatalf("expected exit status to encode the killing signal, got %d", p.ExitStatus)
	}
}

func TestDeliverPendingIgnoredSignalLeavesProcessRunning(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	k.CauseSig(p, SIGCHLD)

	sig, terminated := k.DeliverPending(p)
	if sig != SIGCHLD || terminated {
		t.Fatalf("expected SIGCHLD to be ignored by default, got sig=%v terminated=%v", sig, terminated)
	}
	if p.State != Runnable {
		t.Fatalf("expected p to keep running, got %v", p.State)
	}
}

func TestKillRefusesProcNrZeroAndOne(t *testing.T) {
	k := New(Config{PageCount: 64})
	init, _ := k.StartKernelProc(0, KernelPriority, "init")
	if init.ProcNr > 1 {
		t.Skipf("init landed at proc_nr %d, not within the protected range", init.ProcNr)
	}
	if err := k.Kill(init.ProcNr, SIGKILL); err != EINVAL {
		t.Fatalf("expected EINVAL killing a low proc_nr, got %v", err)
	}
}

func TestSigSuspendRestoresMaskAndDeliversEINTROnWake(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	p.Blocked = sigBit(SIGUSR1)

	var msg Message
	old := k.SigSuspend(p, sigBit(SIGCHLD), &msg)
	if old != sigBit(SIGUSR1) {
		t.Fatalf("expected SigSuspend to return the previous mask, got %d", old)
	}
	if p.Blocked != sigBit(SIGCHLD) {
		t.Fatalf("expected the blocked mask to become the suspend mask, got %d", p.Blocked)
	}

	k.CauseSig(p, SIGINT)

	if p.State != Runnable {
		t.Fatalf("expected SIGINT to wake p out of sigsuspend")
	}
	if p.Blocked != sigBit(SIGUSR1) {
		t.Fatalf("expected the previous mask to be restored on wake, got %d", p.Blocked)
	}
	if p.Flags&FlagSigSuspend != 0 {
		t.Fatalf("expected FlagSigSuspend to be cleared on wake")
	}
	if msg.ReplyRes != int(EINTR) {
		t.Fatalf("expected EINTR delivered into the caller's own message, got %d", msg.ReplyRes)
	}
}

func TestSigProcMaskRoundTrip(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")

	old := k.SigProcMask(p, sigBit(SIGUSR1))
	if old != 0 {
		t.Fatalf("expected an empty previous mask, got %d", old)
	}
	old2 := k.SigProcMask(p, 0)
	if old2 != sigBit(SIGUSR1) {
		t.Fatalf("expected the mask we just installed back, got %d", old2)
	}
}

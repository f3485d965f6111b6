package kernel

import "testing"

func TestDispatchForkGetpidGetppid(t *testing.T) {
	k := New(Config{PageCount: 64})
	parent, err := k.StartUserProc([]byte{1, 2}, 0, UserPriority, "parent")
	if err != OK {
		t.Fatalf("StartUserProc: %v", err)
	}

	msg := &Message{Type: int(SysFork)}
	if res := k.Dispatch(parent, msg); res != OK {
		t.Fatalf("Dispatch(fork): %v", res)
	}
	childPid := msg.I[0]
	if childPid == parent.Pid {
		t.Fatalf("expected fork to return a distinct child pid")
	}

	child := k.GetProc(childPid)
	getppid := &Message{Type: int(SysGetPPid)}
	if res := k.Dispatch(child, getppid); res != OK {
		t.Fatalf("Dispatch(getppid): %v", res)
	}
	if getppid.I[0] != parent.ProcNr {
		t.Fatalf("expected child's getppid to report the parent, got %d", getppid.I[0])
	}
}

func TestDispatchExitThenWait(t *testing.T) {
	k := New(Config{PageCount: 64})
	parent, _ := k.StartUserProc([]byte{1}, 0, UserPriority, "parent")
	forkMsg := &Message{Type: int(SysFork)}
	k.Dispatch(parent, forkMsg)
	child := k.GetProc(forkMsg.I[0])

	exitMsg := &Message{Type: int(SysExit), I: [3]int{3}}
	if res := k.Dispatch(child, exitMsg); res != OK {
		t.Fatalf("Dispatch(exit): %v", res)
	}
	if child.State != Zombie {
		t.Fatalf("expected child to be ZOMBIE after exit, got %v", child.State)
	}

	waitMsg := &Message{Type: int(SysWait)}
	if res := k.Dispatch(parent, waitMsg); res != OK {
		t.Fatalf("Dispatch(wait): %v", res)
	}
	if waitMsg.I[0] != child.Pid || waitMsg.I[1] != 3 {
		t.Fatalf("expected wait to report (pid=%d,status=3), got %+v", child.Pid, waitMsg)
	}
}

func TestDispatchSendReceiveRoundTrip(t *testing.T) {
	k := New(Config{PageCount: 64})
	a, _ := k.StartKernelProc(0, UserPriority, "a")
	b, _ := k.StartKernelProc(0, UserPriority, "b")

	recvMsg := &Message{Type: int(SysReceive), I: [3]int{noLink}}
	if res := k.Dispatch(b, recvMsg); res != Suspend {
		t.Fatalf("expected Dispatch(receive) to suspend with no sender, got %v", res)
	}

	sendMsg := &Message{Type: int(SysSend), I: [3]int{b.ProcNr, 5}}
	if res := k.Dispatch(a, sendMsg); res != OK {
		t.Fatalf("Dispatch(send): %v", res)
	}
	if recvMsg.I[1] != 5 || recvMsg.Source != a.ProcNr {
		t.Fatalf("expected the send's payload to land in b's receive buffer, got %+v", recvMsg)
	}
}

func TestDispatchSigProcMaskRoundTrip(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")

	setMsg := &Message{Type: int(SysSigProcMask), I: [3]int{int(sigBit(SIGUSR1))}}
	if res := k.Dispatch(p, setMsg); res != OK {
		t.Fatalf("Dispatch(sigprocmask): %v", res)
	}
	if setMsg.I[0] != 0 {
		t.Fatalf("expected the previous mask (empty) back, got %d", setMsg.I[0])
	}
	if !p.Blocked.Has(SIGUSR1) {
		t.Fatalf("expected SIGUSR1 to now be blocked")
	}

	getMsg := &Message{Type: int(SysSigProcMask), I: [3]int{0}}
	if res := k.Dispatch(p, getMsg); res != OK {
		t.Fatalf("Dispatch(sigprocmask clear): %v", res)
	}
	if SignalSet(getMsg.I[0]) != sigBit(SIGUSR1) {
		t.Fatalf("expected the mask we just set back, got %d", getMsg.I[0])
	}
}

func TestDispatchKillUnknownPidFails(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	msg := &Message{Type: int(SysKill), I: [3]int{99, int(SIGTERM)}}
	if res := k.Dispatch(p, msg); res != ESRCH {
		t.Fatalf("expected ESRCH for kill of an unknown pid, got %v", res)
	}
}

func TestDispatchUnknownSyscallIsEinval(t *testing.T) {
	k := New(Config{PageCount: 64})
	p, _ := k.StartKernelProc(0, UserPriority, "p")
	msg := &Message{Type: 9999}
	if res := k.Dispatch(p, msg); res != EINVAL {
		t.Fatalf("expected EINVAL for an unrecognized syscall number, got %v", res)
	}
}

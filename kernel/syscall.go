package kernel

// Dispatch routes a trapped syscall Message from caller to the kernel
// operation it names, writing any result back into msg and returning the
// errno to report (or Suspend, meaning caller stays descheduled until
// something else completes the call — an IPC match, a terminated child,
// a delivered signal).
//
// SysExec is deliberately not handled here: execing a named image needs a
// variable-length name, which Message's fixed int/uintptr slots can't
// carry. Callers that need it call Kernel.ExecImage directly instead of
// trapping through Dispatch.
func (k *Kernel) Dispatch(caller *Proc, msg *Message) Errno {
	switch SyscallType(msg.Type) {
	case SysFork, SysVFork:
		// vfork is routed to the same Fork as fork (Open Question,
		// see DESIGN.md): this kernel never models the
		// share-the-parent's-memory-until-exec optimization.
		child, err := k.Fork(caller)
		if err != OK {
			return err
		}
		msg.I[0] = child.Pid
		return OK

	case SysExit:
		k.Exit(caller, msg.I[0])
		return OK

	case SysWait:
		pid, status, err := k.Wait(caller)
		if err != OK {
			return err
		}
		msg.I[0] = pid
		msg.I[1] = status
		return OK

	case SysGetPid:
		msg.I[0] = caller.Pid
		return OK

	case SysGetPPid:
		msg.I[0] = caller.ParentPid
		return OK

	case SysKill:
		return k.Kill(msg.I[0], Signal(msg.I[1]))

	case SysBrk:
		return k.Brk(caller, msg.P[0])

	case SysSbrk:
		newBreak, err := k.Sbrk(caller, msg.I[0])
		if err != OK {
			return err
		}
		msg.P[0] = newBreak
		return OK

	case SysSend:
		return k.Send(caller, msg.I[0], msg)

	case SysReceive:
		return k.Receive(caller, msg.I[0], msg)

	case SysSendRec:
		return k.SendRec(caller, msg.I[0], msg)

	case SysNotify:
		return k.Notify(caller, msg.I[0])

	case SysSigAction:
		sig := Signal(msg.I[0])
		if sig <= 0 || int(sig) >= NumSignals {
			return EINVAL
		}
		old := caller.SigDisposition[sig]
		caller.SigDisposition[sig] = SigDisposition{
			Disposition: Disposition(msg.I[1]),
			Handler:     msg.P[0],
		}
		msg.I[1] = int(old.Disposition)
		msg.P[0] = old.Handler
		return OK

	case SysSigProcMask:
		old := k.SigProcMask(caller, SignalSet(msg.I[0]))
		msg.I[0] = int(old)
		return OK

	case SysSigPending:
		msg.I[0] = int(caller.Pending)
		return OK

	case SysSigSuspend:
		old := k.SigSuspend(caller, SignalSet(msg.I[0]), msg)
		msg.I[0] = int(old)
		return Suspend

	case SysAlarm:
		msg.I[0] = k.Alarm(caller, msg.I[0])
		return OK

	case SysSetItimer:
		// Modeled identically to alarm: both are tick-counted, not
		// wall-clock, in this simulated kernel.
		msg.I[0] = k.Alarm(caller, msg.I[0])
		return OK

	case SysSchedYield:
		k.SchedYield(caller)
		return OK

	case SysWinfo:
		nr := msg.I[0]
		p := k.GetProc(nr)
		if p == nil {
			return ESRCH
		}
		msg.I[0] = p.Pid
		msg.I[1] = int(p.State)
		msg.I[2] = p.Priority
		return OK

	default:
		return EINVAL
	}
}

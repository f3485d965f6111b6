package kernel

// Priority round-robin scheduling: five ready queues, strict
// priority order between them, FIFO round-robin within one. The idle
// process is never created at boot; Schedule creates it the first time
// every real queue is empty, at IdlePriority so anything real always
// preempts it.

// PickProc dequeues and returns the head of the highest (numerically
// lowest) non-empty ready queue, or nil if every queue is empty.
func (k *Kernel) PickProc() *Proc {
	for pr := 0; pr < NumQueues; pr++ {
		if idx, ok := k.dequeue(&k.readyQ[pr]); ok {
			return &k.procTable[idx]
		}
	}
	return nil
}

// Schedule requeues the current process (if it's still runnable — a
// process that exited during its quantum is not, and one that blocked
// mid-syscall on IPC, wait, or sigsuspend is linked elsewhere and must not
// be requeued), picks the next process to run, and refills its quantum if
// its ticks are used up. Returns nil only if there is truly nothing
// runnable and the idle process could not be started (process table
// exhausted).
func (k *Kernel) Schedule() *Proc {
	const blocked = FlagSending | FlagReceiving | FlagWaitingChild
	if cur := k.CurrentProc(); cur != nil && cur.State == Runnable && cur.Flags&blocked == 0 {
		k.EnqueueSchedule(cur)
	}
	k.currentProc = noLink

	next := k.PickProc()
	if next == nil {
		k.ensureIdleProc()
		next = k.PickProc()
	}
	if next == nil {
		return nil
	}

	if next.TicksLeft <= 0 {
		next.TicksLeft = next.Quantum
	}
	k.currentProc = next.ProcNr
	return next
}

// ensureIdleProc lazily starts the idle process the first time the ready
// queues are found completely empty.
func (k *Kernel) ensureIdleProc() {
	if k.idleProc != noLink {
		return
	}
	p, err := k.StartKernelProc(0, IdlePriority, "idle")
	if err != OK {
		return
	}
	k.idleProc = p.ProcNr
}

// SchedYield implements the `sched_yield` syscall: voluntarily give up the
// remainder of the current quantum.
func (k *Kernel) SchedYield(p *Proc) {
	p.TicksLeft = 0
	if k.currentProc == p.ProcNr {
		k.Schedule()
	}
}

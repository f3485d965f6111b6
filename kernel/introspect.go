package kernel

import "fmt"

// ProcSnapshot is a read-only view of one process-table slot, assembled
// for introspection callers (winixctl ps/mem, webui) that want more than
// the three fixed integer slots a Message can carry through Dispatch's
// SysWinfo case.
type ProcSnapshot struct {
	ProcNr     int
	Pid        int
	ParentPid  int
	Name       string
	State      ProcState
	Priority   int
	Quantum    int
	TicksLeft  int
	TimeUsed   int
	PageCount  int
	RBase      uintptr
	Length     int
	IsCurrent  bool
}

// Snapshot returns a ProcSnapshot for every non-DEAD slot, ordered by
// proc_nr. Used by the `ps` command and the webui process table.
func (k *Kernel) Snapshot() []ProcSnapshot {
	out := make([]ProcSnapshot, 0, NumProcs)
	for i := range k.procTable {
		p := &k.procTable[i]
		if p.State == Dead {
			continue
		}
		out = append(out, ProcSnapshot{
			ProcNr:    p.ProcNr,
			Pid:       p.Pid,
			ParentPid: p.ParentPid,
			Name:      ProcName(p),
			State:     p.State,
			Priority:  p.Priority,
			Quantum:   p.Quantum,
			TicksLeft: p.TicksLeft,
			TimeUsed:  p.TimeUsed,
			PageCount: p.PTable.PopCount(),
			RBase:     p.RBase,
			Length:    p.Length,
			IsCurrent: p.ProcNr == k.currentProc,
		})
	}
	return out
}

// MemStats summarizes the global page bitmap for `winixctl mem`.
type MemStats struct {
	TotalPages int
	FreePages  int
	PageSize   int
}

func (k *Kernel) MemStats() MemStats {
	return MemStats{
		TotalPages: k.pageCount,
		FreePages:  k.MemMap.PopCount(),
		PageSize:   PageSize,
	}
}

// ReadyProcNrs returns the proc_nr list of every process currently on a
// ready queue, in priority-then-FIFO order — the order Schedule would
// select them in if nothing more urgent arrived.
func (k *Kernel) ReadyProcNrs() []int {
	var out []int
	for pr := 0; pr < NumQueues; pr++ {
		out = append(out, k.ReadyQueueProcs(pr)...)
	}
	return out
}

// DumpRunnable renders the ready process table as a fixed-width text
// table, one line per non-DEAD, non-ZOMBIE slot, for winixctl/webui
// observability.
func (k *Kernel) DumpRunnable() string {
	out := "NAME     PID PPID RBASE      PC         STACK      HEAP       PROTECTION            FLAGS\n"
	for i := range k.procTable {
		p := &k.procTable[i]
		if p.State == Dead || p.State == Zombie {
			continue
		}
		ptableIdx := int(p.RBase) / PageSize / 32
		var protection uint64
		if ptableIdx >= 0 && ptableIdx < len(p.PTable.words) {
			protection = p.PTable.words[ptableIdx]
		}
		out += fmt.Sprintf("%-8s %-3d %-4d 0x%08x 0x%08x 0x%08x 0x%08x %-10d 0x%08x %d\n",
			ProcName(p), p.Pid, p.ParentPid, p.RBase, p.PC, p.SP, p.HeapBreak,
			ptableIdx, protection, p.Flags)
	}
	return out
}

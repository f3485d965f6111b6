// Package kernel implements the WINIX kernel core: the process table and
// its scheduling queues, the priority round-robin scheduler, synchronous
// message-passing IPC, process lifecycle, signals/alarms, and the physical
// page bitmap backing per-process memory protection.
//
// Every operation is a method on a single *Kernel: there is deliberately
// no package-level mutable state, so a Kernel can be constructed, driven,
// and inspected entirely from tests running in ordinary user space.
package kernel

// Config sizes a Kernel at boot. Zero-valued fields fall back to the
// compatibility-bearing defaults.
type Config struct {
	// PageCount is the number of physical pages in the simulated machine,
	// i.e. the length of mem_map. Defaults to DefaultPageCount.
	// winixctl boot sizes this from the real host via hostinfo.Memory.
	PageCount int
}

// Kernel owns every piece of process-wide mutable state: the process
// table, per-priority ready queues, the free list, the current-process
// pointer, the global page bitmap, and the alarm wheel.
type Kernel struct {
	procTable [NumProcs]Proc
	readyQ    [NumQueues]queue
	freeList  queue

	currentProc int // proc_nr of the running process, or noLink

	MemMap    *Bitmap
	pageCount int

	// PhysMem backs every page mem_map covers, so image loads, bss
	// zeroing, and fork's page copies have real bytes to move instead of
	// only bookkeeping the pages as claimed.
	PhysMem []byte

	alarmHead int
	clock     int64

	idleProc int // proc_nr of the lazily-created idle process, or noLink
}

// New constructs a Kernel with every slot on the free list and an empty
// schedule, mirroring init_proc.
func New(conf Config) *Kernel {
	pageCount := conf.PageCount
	if pageCount <= 0 {
		pageCount = DefaultPageCount
	}

	k := &Kernel{
		pageCount:   pageCount,
		MemMap:      NewBitmap(pageCount),
		PhysMem:     make([]byte, pageCount*PageSize),
		currentProc: noLink,
		alarmHead:   noLink,
		idleProc:    noLink,
	}
	k.MemMap.SetNBits(0, pageCount) // every page starts free

	for i := range k.readyQ {
		k.readyQ[i] = queue{head: noLink, tail: noLink}
	}
	k.freeList = queue{head: noLink, tail: noLink}

	for i := 0; i < NumProcs; i++ {
		p := &k.procTable[i]
		p.ProcNr = i
		p.reset(pageCount)
		p.State = Dead
		k.enqueueTail(&k.freeList, i)
	}

	return k
}

// CurrentProc returns the currently running process, or nil if none.
func (k *Kernel) CurrentProc() *Proc {
	if k.currentProc == noLink {
		return nil
	}
	return &k.procTable[k.currentProc]
}

// Clock returns the kernel's tick count, advanced by Tick.
func (k *Kernel) Clock() int64 { return k.clock }

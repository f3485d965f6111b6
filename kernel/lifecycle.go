package kernel

import (
	"encoding/binary"
	"strings"
)

// Process-image sizing constants, expressed in pages.
const (
	DefaultStackSize = 1
	DefaultHeapSize  = 1

	// KernelStackPages is how many pages a kernel process's private stack
	// occupies, allocated from the high end of mem_map.
	KernelStackPages = 4
)

// AllocMemFlags selects which of a freshly allocated image's derived
// pointers allocProcMem also sets, mirroring alloc_proc_mem's flag
// arguments in the original source.
type AllocMemFlags int

const (
	ProcSetSP AllocMemFlags = 1 << iota
	ProcSetHeap
)

// ImageSource resolves a named process image to its loadable bytes. It is
// the seam between this package and imagestore: the kernel depends on this
// small interface rather than on git or GitHub directly.
type ImageSource interface {
	Load(name string) ([]byte, error)
}

func truncateName(name string) string {
	if len(name) > ProcNameLen {
		return name[:ProcNameLen]
	}
	return name
}

func alignPage(n int) int {
	if n%PageSize == 0 {
		return n
	}
	return (n/PageSize + 1) * PageSize
}

// allocProcMem lays out a process image of textDataLen bytes of text+data,
// followed by bss padding out to a page boundary (at least MinBSSSize), a
// stackSize-byte stack, and a heapSize-byte heap, and claims the physical
// pages for it from k.MemMap. It mirrors alloc_proc_mem.
func (k *Kernel) allocProcMem(p *Proc, textDataLen, stackSize, heapSize int, flags AllocMemFlags) Errno {
	tdAligned := alignPage(textDataLen)
	bssSize := tdAligned - textDataLen
	if bssSize < MinBSSSize {
		bssSize += PageSize
	}
	stackSize = alignPage(stackSize)
	heapSize = alignPage(heapSize)

	total := textDataLen + bssSize + stackSize + heapSize
	pages := total / PageSize

	start, ok := k.MemMap.SearchFreeRun(pages, AllocNormal)
	if !ok {
		return ENOMEM
	}
	k.MemMap.ClearNBits(start, pages)
	p.PTable.SetNBits(start, pages)

	p.RBase = uintptr(start * PageSize)
	p.Length = total

	bssStart := int(p.RBase) + textDataLen
	for i := bssStart; i < bssStart+bssSize; i++ {
		k.PhysMem[i] = 0
	}

	if flags&ProcSetSP != 0 {
		stackTopOff := textDataLen + bssSize
		p.StackTop = p.RBase + uintptr(stackTopOff)
		p.SP = uintptr(stackTopOff + stackSize - 1)
		binary.LittleEndian.PutUint32(k.PhysMem[p.StackTop:], StackMagic)
	}
	if flags&ProcSetHeap != 0 {
		heapBreakOff := textDataLen + bssSize + stackSize
		p.HeapBreak = p.RBase + uintptr(heapBreakOff)
		p.HeapStart = p.HeapBreak
		p.HeapBottom = p.HeapBreak + uintptr(heapSize) - 1
	}
	return OK
}

// allocKernelStack claims KernelStackPages pages from the high end of
// mem_map for a kernel process and points StackTop/SP at them.
func (k *Kernel) allocKernelStack(p *Proc) Errno {
	start, ok := k.MemMap.SearchFreeRun(KernelStackPages, AllocHigh)
	if !ok {
		return ENOMEM
	}
	k.MemMap.ClearNBits(start, KernelStackPages)
	p.PTable.SetNBits(start, KernelStackPages)
	p.StackTop = uintptr(start * PageSize)
	p.SP = p.StackTop + uintptr(KernelStackPages*PageSize) - 1
	return OK
}

// freeSlot returns p to the free list head, matching free_slot's LIFO
// reuse order.
func (k *Kernel) freeSlot(p *Proc) {
	p.State = Dead
	p.Flags = 0
	k.enqueueHead(&k.freeList, p.ProcNr)
}

// StartKernelProc creates a kernel-space process: one with no user memory
// image, full access to every physical page (it trusts itself), and a
// private stack allocated from the high end of mem_map. Mirrors
// start_kernel_proc.
func (k *Kernel) StartKernelProc(entry uintptr, priority int, name string) (*Proc, Errno) {
	if priority < 0 || priority >= NumQueues {
		return nil, EINVAL
	}
	p := k.GetFreeSlot()
	if p == nil {
		return nil, ENOMEM
	}
	p.Priority = priority
	p.PC = entry
	p.Name = truncateName(name)
	p.PTable.SetNBits(0, k.pageCount)

	if err := k.allocKernelStack(p); err != OK {
		k.freeSlot(p)
		return nil, err
	}
	p.Quantum = DefaultKernelQuantum
	k.EnqueueSchedule(p)
	return p, OK
}

// execProc lays out a fresh user image for p (already a live slot) and
// schedules it. Shared by StartUserProc and Exec.
func (k *Kernel) execProc(p *Proc, img []byte, entry uintptr, priority int, name string) Errno {
	if priority < 0 || priority >= NumQueues {
		return EINVAL
	}
	textDataLen := len(img)
	if err := k.allocProcMem(p, textDataLen, DefaultStackSize*PageSize, DefaultHeapSize*PageSize, ProcSetSP|ProcSetHeap); err != OK {
		return err
	}
	copy(k.PhysMem[p.RBase:], img)

	p.Priority = priority
	p.PC = entry
	p.Name = truncateName(name)
	k.EnqueueSchedule(p)
	return OK
}

// StartUserProc creates a fresh user-space process running img starting at
// entry. Mirrors start_user_proc.
func (k *Kernel) StartUserProc(img []byte, entry uintptr, priority int, name string) (*Proc, Errno) {
	p := k.GetFreeSlot()
	if p == nil {
		return nil, ENOMEM
	}
	if err := k.execProc(p, img, entry, priority, name); err != OK {
		k.freeSlot(p)
		return nil, err
	}
	return p, OK
}

// Exec implements the `exec` syscall: release p's current image (if any)
// and replace it with img, as if p had just been created fresh. An empty
// img reforms p into a kernel-space process instead, per
// start_kernel_proc's allocation shape.
func (k *Kernel) Exec(p *Proc, img []byte, entry uintptr, priority int, name string) Errno {
	if priority < 0 || priority >= NumQueues {
		return EINVAL
	}
	k.MemMap.Xor(p.PTable)
	k.DequeueSchedule(p)
	p.PTable = NewBitmap(k.pageCount)
	p.RBase, p.Length = 0, 0
	p.StackTop, p.HeapBreak, p.HeapBottom = 0, 0, 0

	if len(img) == 0 {
		p.Priority = priority
		p.PC = entry
		p.Name = truncateName(name)
		p.PTable.SetNBits(0, k.pageCount)
		if err := k.allocKernelStack(p); err != OK {
			return err
		}
		p.Quantum = DefaultKernelQuantum
		k.EnqueueSchedule(p)
		return OK
	}
	return k.execProc(p, img, entry, priority, name)
}

// ExecImage resolves imageName through src and execs it into p, translating
// a resolution failure into ENOENT. This is the only place the kernel
// package touches an ImageSource.
func (k *Kernel) ExecImage(p *Proc, src ImageSource, imageName string, entry uintptr, priority int, procName string) Errno {
	img, err := src.Load(imageName)
	if err != nil {
		return ENOENT
	}
	if procName == "" {
		procName = imageName
	}
	return k.Exec(p, img, entry, priority, procName)
}

// Fork implements the `fork` syscall: clone parent into a new slot sharing
// parent's page layout pattern but backed by freshly allocated, copied
// physical pages. It extracts the parent's occupied-page pattern, searches
// mem_map for a free run matching that exact pattern, claims it, and
// copies page-by-page.
func (k *Kernel) Fork(parent *Proc) (*Proc, Errno) {
	if parent.Length == 0 {
		return nil, EINVAL
	}
	child := k.GetFreeSlot()
	if child == nil {
		return nil, ENOMEM
	}
	childNr := child.ProcNr
	childPTable := child.PTable

	*child = *parent
	child.ProcNr = childNr
	child.Pid = childNr
	child.PTable = childPTable
	child.next = noLink
	child.senderQHead = noLink
	child.nextSender = noLink
	child.Flags = 0
	child.MsgBuf = nil
	child.ExitStatus = 0
	child.State = Initialising

	fromPage := int(parent.RBase) / PageSize
	toPage := int(parent.HeapBottom)/PageSize + 1
	nPages := toPage - fromPage
	pattern := parent.PTable.ExtractPattern(fromPage, nPages)

	start, ok := k.MemMap.SearchFreeRunMatching(pattern)
	if !ok {
		k.freeSlot(child)
		return nil, ENOMEM
	}

	for i := 0; i < nPages; i++ {
		if !pattern.IsSet(i) {
			continue
		}
		k.MemMap.ClearBit(start + i)
		child.PTable.SetBit(start + i)
		srcOff := (fromPage + i) * PageSize
		dstOff := (start + i) * PageSize
		copy(k.PhysMem[dstOff:dstOff+PageSize], k.PhysMem[srcOff:srcOff+PageSize])
	}

	delta := uintptr((start - fromPage) * PageSize)
	child.RBase = parent.RBase + delta
	child.StackTop = parent.StackTop + delta
	child.HeapStart = parent.HeapStart + delta
	child.HeapBreak = parent.HeapBreak + delta
	child.HeapBottom = parent.HeapBottom + delta
	child.SP = parent.SP

	if parent.MsgBuf != nil {
		msgCopy := *parent.MsgBuf
		child.MsgBuf = &msgCopy
	}

	child.ParentPid = parent.ProcNr
	k.EnqueueSchedule(child)
	return child, OK
}

// Exit implements the unsched/terminate half of `exit`: release p's pages
// back to mem_map and remove it from scheduling. If p's parent is already
// blocked in Wait, p is reaped immediately and the parent is woken;
// otherwise p becomes a ZOMBIE awaiting its parent's Wait call.
func (k *Kernel) Exit(p *Proc, status int) {
	k.MemMap.Xor(p.PTable)
	k.DequeueSchedule(p)
	if k.currentProc == p.ProcNr {
		k.currentProc = noLink
	}
	p.ExitStatus = status

	if parent := k.GetProc(p.ParentPid); parent != nil && parent.State != Dead && parent.Flags&FlagWaitingChild != 0 {
		parent.Flags &^= FlagWaitingChild
		if parent.MsgBuf != nil {
			parent.MsgBuf.I[0] = p.Pid
			parent.MsgBuf.I[1] = p.ExitStatus
			parent.MsgBuf.ReplyRes = int(OK)
		}
		k.freeSlot(p)
		k.EnqueueHeadSchedule(parent)
		return
	}
	p.State = Zombie
}

// reap frees a ZOMBIE slot once its parent has collected its status.
func (k *Kernel) reap(p *Proc) {
	k.freeSlot(p)
}

// Wait implements the `wait` syscall: if parent already has a ZOMBIE child,
// reap it immediately and return its pid and status with OK. If parent has
// no children at all, returns ECHILD. Otherwise marks parent blocked (Exit
// completes the wait once a child terminates) and returns Suspend.
func (k *Kernel) Wait(parent *Proc) (pid, status int, err Errno) {
	hasChildren := false
	for i := range k.procTable {
		c := &k.procTable[i]
		if c.State == Dead || c.ProcNr == parent.ProcNr || c.ParentPid != parent.ProcNr {
			continue
		}
		hasChildren = true
		if c.State == Zombie {
			pid, status = c.Pid, c.ExitStatus
			k.reap(c)
			return pid, status, OK
		}
	}
	if !hasChildren {
		return 0, 0, ECHILD
	}
	parent.Flags |= FlagWaitingChild
	k.DequeueSchedule(parent)
	return 0, 0, Suspend
}

// ProcName returns p.Name trimmed of any trailing NUL padding, for
// introspection callers (winfo, webui).
func ProcName(p *Proc) string {
	return strings.TrimRight(p.Name, "\x00")
}

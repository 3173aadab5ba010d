package machine

import (
	"fmt"
	"sync"
)

// Register numbers for the user-visible register file.
const (
	RegV0       = 2
	RegV1       = 3
	RegA0       = 4
	RegA1       = 5
	RegA2       = 6
	RegA3       = 7
	RegSP       = 29
	RegRA       = 31
	RegLo       = 32
	RegHi       = 33
	RegPC       = 34
	RegNextPC   = 35
	RegCause    = 36
	RegBadVAddr = 37

	// NumUserRegisters is the size of the register file.
	NumUserRegisters = 38
)

// DefaultPageSize is the page size used when none is configured.
const DefaultPageSize = 0x400

// ExceptionCause identifies why user code trapped into the kernel.
type ExceptionCause int

const (
	ExceptionSyscall ExceptionCause = iota
	ExceptionPageFault
	ExceptionTLBMiss
	ExceptionReadOnly
	ExceptionBusError
	ExceptionAddressError
	ExceptionOverflow
	ExceptionIllegalInstruction
)

var exceptionNames = [...]string{
	"syscall",
	"page fault",
	"TLB miss",
	"read-only",
	"bus error",
	"address error",
	"overflow",
	"illegal instruction",
}

// String returns the human readable exception name.
func (c ExceptionCause) String() string {
	if c < 0 || int(c) >= len(exceptionNames) {
		return fmt.Sprintf("exception(%d)", int(c))
	}
	return exceptionNames[c]
}

// TranslationEntry maps one virtual page to one physical page.
type TranslationEntry struct {
	// VPN is the virtual page number.
	VPN int
	// PPN is the physical page number.
	PPN int
	// Valid is false when the virtual page has no backing physical page.
	Valid bool
	// ReadOnly pages reject user writes.
	ReadOnly bool
	// Used is set whenever the page is read or written.
	Used bool
	// Dirty is set whenever the page is written.
	Dirty bool
}

// Processor is the simulated CPU: a register file, physical memory and the
// page table of the process currently running on it.
type Processor struct {
	mu        sync.Mutex
	registers [NumUserRegisters]int32
	memory    []byte
	pageSize  int
	numPages  int
	pageTable []TranslationEntry
}

// NewProcessor creates a processor with numPhysPages pages of pageSize bytes.
func NewProcessor(numPhysPages, pageSize int) *Processor {
	if numPhysPages <= 0 || pageSize <= 0 {
		panic(fmt.Sprintf("machine: invalid geometry %d pages of %d bytes", numPhysPages, pageSize))
	}
	return &Processor{
		memory:   make([]byte, numPhysPages*pageSize),
		pageSize: pageSize,
		numPages: numPhysPages,
	}
}

// ReadRegister returns the value of register r.
func (p *Processor) ReadRegister(r int) int32 {
	checkRegister(r)
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.registers[r]
}

// WriteRegister sets register r to v.
func (p *Processor) WriteRegister(r int, v int32) {
	checkRegister(r)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registers[r] = v
}

// AdvancePC moves the program counter past the current instruction.
func (p *Processor) AdvancePC() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registers[RegPC] = p.registers[RegNextPC]
	p.registers[RegNextPC] += 4
}

// Memory returns the physical memory array. The slice aliases the
// processor's memory; writes through it are visible to every process.
func (p *Processor) Memory() []byte {
	return p.memory
}

// PageSize returns the size of a page in bytes.
func (p *Processor) PageSize() int {
	return p.pageSize
}

// NumPhysPages returns the number of physical pages.
func (p *Processor) NumPhysPages() int {
	return p.numPages
}

// SetPageTable installs the page table of the process about to run.
func (p *Processor) SetPageTable(pt []TranslationEntry) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.pageTable = pt
}

// PageTable returns the installed page table.
func (p *Processor) PageTable() []TranslationEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.pageTable
}

func checkRegister(r int) {
	if r < 0 || r >= NumUserRegisters {
		panic(fmt.Sprintf("machine: register %d out of range", r))
	}
}

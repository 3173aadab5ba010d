package userprog

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/machine"
)

// Process is a user process: an address space, a descriptor table and the
// image loaded into it.
type Process struct {
	pid    int
	kernel *Kernel
	logger hclog.Logger

	pageTable  PageTable
	files      *FileTable
	image      Image
	dispatcher dispatcher

	mu         sync.Mutex
	state      ProcessState
	exitStatus int32
	saved      *[machine.NumUserRegisters]int32
}

// NewProcess allocates a process with an identity page table covering all
// of physical memory and an empty descriptor table.
func NewProcess(k *Kernel) *Process {
	p := &Process{
		kernel:    k,
		pageTable: NewPageTable(k.Processor().NumPhysPages()),
	}
	p.pid = k.register(p)
	p.logger = k.logger.Named("process").With("pid", p.pid)
	p.files = NewFileTable(k.fs, k.console, k.config.MaxFiles, p.logger.Named("files"))
	p.dispatcher.logger = k.logger.Named("syscall").With("pid", p.pid)
	return p
}

// PID returns the process identifier.
func (p *Process) PID() int { return p.pid }

// Kernel returns the kernel the process belongs to.
func (p *Process) Kernel() *Kernel { return p.kernel }

// PageTable returns the process page table.
func (p *Process) PageTable() PageTable { return p.pageTable }

// Files returns the process descriptor table.
func (p *Process) Files() *FileTable { return p.files }

// Image returns the metadata of the loaded executable.
func (p *Process) Image() Image { return p.image }

// State returns the lifecycle state.
func (p *Process) State() ProcessState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// ExitStatus returns the status passed to Exit.
func (p *Process) ExitStatus() int32 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.exitStatus
}

func (p *Process) transitionTo(to ProcessState) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !IsValidProcessTransition(p.state, to) {
		return fmt.Errorf("process %d %s -> %s: %w", p.pid, p.state, to, ErrInvalidTransition)
	}
	p.state = to
	return nil
}

func (p *Process) memory() []byte { return p.kernel.Processor().Memory() }

func (p *Process) pageSize() int { return p.kernel.Processor().PageSize() }

// Execute loads name with args and forks a thread that runs it. Nothing is
// forked when loading fails.
func (p *Process) Execute(name string, args []string) error {
	if err := p.Load(name, args); err != nil {
		return err
	}

	if err := p.kernel.scheduler.Fork(name, p.run); err != nil {
		p.transitionTo(StateFailed)
		return fmt.Errorf("execute %q: %w", name, err)
	}
	return nil
}

// run is the body of the process thread.
func (p *Process) run(ctx context.Context) {
	p.RestoreState()
	p.InitRegisters()
	if err := p.transitionTo(StateRunning); err != nil {
		p.logger.Error("cannot start", "error", err)
		return
	}
	p.logger.Debug("running", "name", p.image.Name)

	if err := p.kernel.runner.Run(ctx, p); err != nil {
		p.logger.Error("user program failed", "error", err)
		return
	}

	// Falling off the end of the program is an implicit exit(0).
	if p.State() == StateRunning && !p.kernel.machine.Halted() {
		p.Exit(0)
	}
}

// InitRegisters clears the register file and points it at the loaded
// image: PC at the entry point, SP at the top of the stack, A0 and A1 at
// argc and argv.
func (p *Process) InitRegisters() {
	proc := p.kernel.Processor()
	for r := 0; r < machine.NumUserRegisters; r++ {
		proc.WriteRegister(r, 0)
	}

	proc.WriteRegister(machine.RegPC, p.image.EntryPoint)
	proc.WriteRegister(machine.RegNextPC, p.image.EntryPoint+4)
	proc.WriteRegister(machine.RegSP, p.image.InitialSP)
	proc.WriteRegister(machine.RegA0, int32(p.image.Argc))
	proc.WriteRegister(machine.RegA1, p.image.ArgvAddr)
}

// SaveState records the register file before a context switch.
func (p *Process) SaveState() {
	proc := p.kernel.Processor()
	var regs [machine.NumUserRegisters]int32
	for r := range regs {
		regs[r] = proc.ReadRegister(r)
	}
	p.saved = &regs
}

// RestoreState installs the page table on the processor and restores any
// registers recorded by SaveState.
func (p *Process) RestoreState() {
	proc := p.kernel.Processor()
	proc.SetPageTable(p.pageTable)
	if p.saved == nil {
		return
	}
	for r, v := range p.saved {
		proc.WriteRegister(r, v)
	}
	p.saved = nil
}

// Exit terminates the process with status.
//
// If p is the root process the root reference is cleared and the machine
// halts. If no root process is tracked any more the kernel is terminated.
// Otherwise only the calling thread finishes and the machine keeps
// running. Open descriptors are not closed.
//
// With a real scheduler Exit does not return.
func (p *Process) Exit(status int32) {
	p.mu.Lock()
	p.exitStatus = status
	p.mu.Unlock()
	if err := p.transitionTo(StateExited); err != nil {
		p.logger.Warn("exit from unexpected state", "error", err)
	}

	k := p.kernel
	switch {
	case k.clearRoot(p):
		p.logger.Info("root process exited", "status", status)
		k.Halt()
	case k.Root() == nil:
		p.logger.Info("process exited with no root process", "status", status)
		k.Terminate()
	default:
		p.logger.Debug("process exited", "status", status)
	}

	k.scheduler.Finish()
}

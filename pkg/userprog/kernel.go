package userprog

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/config"
	"nachos/pkg/console"
	"nachos/pkg/filesys"
	"nachos/pkg/machine"
)

// Scheduler runs kernel threads.
type Scheduler interface {
	// Fork queues a new thread running body.
	Fork(name string, body func(context.Context)) error
	// Finish ends the calling thread. Real schedulers do not return.
	Finish()
}

// Runner executes user code for a process until it stops trapping into the
// kernel. It plays the part of the processor's fetch-execute loop.
type Runner interface {
	Run(ctx context.Context, p *Process) error
}

// Services are the collaborators a Kernel is built from.
type Services struct {
	Machine    *machine.Machine
	FileSystem filesys.FileSystem
	Console    console.Console
	Scheduler  Scheduler
	Runner     Runner
	Logger     hclog.Logger
	Config     *config.Config
}

// Kernel bundles the services user processes depend on and tracks the root
// process, whose exit halts the machine.
type Kernel struct {
	machine   *machine.Machine
	fs        filesys.FileSystem
	console   console.Console
	scheduler Scheduler
	runner    Runner
	logger    hclog.Logger
	config    *config.Config

	mu        sync.Mutex
	root      *Process
	nextPID   int
	processes []*Process
}

// NewKernel checks the services and builds a kernel from them. A nil
// Config means config.Default and a nil Logger discards output.
func NewKernel(s Services) (*Kernel, error) {
	switch {
	case s.Machine == nil:
		return nil, errors.New("kernel: machine is required")
	case s.FileSystem == nil:
		return nil, errors.New("kernel: file system is required")
	case s.Console == nil:
		return nil, errors.New("kernel: console is required")
	case s.Scheduler == nil:
		return nil, errors.New("kernel: scheduler is required")
	case s.Runner == nil:
		return nil, errors.New("kernel: runner is required")
	}

	cfg := s.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("kernel: %w", err)
	}
	if cfg.PageSize != s.Machine.Processor().PageSize() {
		return nil, fmt.Errorf("kernel: config page size %d does not match machine page size %d",
			cfg.PageSize, s.Machine.Processor().PageSize())
	}

	logger := s.Logger
	if logger == nil {
		logger = hclog.NewNullLogger()
	}

	return &Kernel{
		machine:   s.Machine,
		fs:        s.FileSystem,
		console:   s.Console,
		scheduler: s.Scheduler,
		runner:    s.Runner,
		logger:    logger,
		config:    cfg,
		nextPID:   1,
	}, nil
}

// Machine returns the machine the kernel runs on.
func (k *Kernel) Machine() *machine.Machine { return k.machine }

// Processor returns the machine's processor.
func (k *Kernel) Processor() *machine.Processor { return k.machine.Processor() }

// FileSystem returns the backing file system.
func (k *Kernel) FileSystem() filesys.FileSystem { return k.fs }

// Logger returns the kernel logger.
func (k *Kernel) Logger() hclog.Logger { return k.logger }

// Config returns the kernel settings.
func (k *Kernel) Config() *config.Config { return k.config }

// Root returns the root process, or nil once it has exited.
func (k *Kernel) Root() *Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.root
}

// Processes returns every process allocated so far.
func (k *Kernel) Processes() []*Process {
	k.mu.Lock()
	defer k.mu.Unlock()
	out := make([]*Process, len(k.processes))
	copy(out, k.processes)
	return out
}

// Start creates the root process and executes name in it.
func (k *Kernel) Start(name string, args []string) (*Process, error) {
	if k.Root() != nil {
		return nil, ErrAlreadyStarted
	}

	p := NewProcess(k)
	k.mu.Lock()
	k.root = p
	k.mu.Unlock()

	if err := p.Execute(name, args); err != nil {
		k.clearRoot(p)
		return nil, err
	}
	k.logger.Info("started root process", "pid", p.PID(), "name", name, "args", args)
	return p, nil
}

// Halt powers the machine off.
func (k *Kernel) Halt() {
	k.logger.Info("machine halting")
	k.machine.Halt()
}

// Terminate tears the kernel down after the last tracked process is gone.
func (k *Kernel) Terminate() {
	k.logger.Info("kernel terminating")
	k.machine.Abort(ErrKernelTerminated)
}

// Abort stops the machine because of an unrecoverable error.
func (k *Kernel) Abort(err error) {
	k.logger.Error("kernel aborting", "error", err)
	k.machine.Abort(err)
}

func (k *Kernel) register(p *Process) int {
	k.mu.Lock()
	defer k.mu.Unlock()
	pid := k.nextPID
	k.nextPID++
	k.processes = append(k.processes, p)
	return pid
}

func (k *Kernel) isRoot(p *Process) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.root == p
}

// clearRoot drops the root reference if it still points at p.
func (k *Kernel) clearRoot(p *Process) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.root != p {
		return false
	}
	k.root = nil
	return true
}

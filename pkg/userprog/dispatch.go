package userprog

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/machine"
)

// dispatcher tracks where a process is in handling a syscall trap.
type dispatcher struct {
	logger hclog.Logger
	state  DispatchState
}

func (d *dispatcher) transitionTo(to DispatchState) {
	if !IsValidDispatchTransition(d.state, to) {
		panic(fmt.Sprintf("userprog: dispatcher %s -> %s", d.state, to))
	}
	d.state = to
}

// DispatchState returns the state of the syscall dispatcher.
func (p *Process) DispatchState() DispatchState {
	return p.dispatcher.state
}

// HandleException is called when user code traps into the kernel. Syscalls
// are decoded from V0 and A0-A3, the result is stored in V0 and the PC
// is advanced past the syscall instruction. Any other cause, and any
// unknown syscall, aborts the kernel and is returned as a *FatalError.
func (p *Process) HandleException(cause machine.ExceptionCause) error {
	if cause != machine.ExceptionSyscall {
		return p.fatal(&FatalError{PID: p.pid, Cause: cause, Err: ErrUnexpected})
	}

	proc := p.kernel.Processor()
	number := proc.ReadRegister(machine.RegV0)
	args := [4]int32{
		proc.ReadRegister(machine.RegA0),
		proc.ReadRegister(machine.RegA1),
		proc.ReadRegister(machine.RegA2),
		proc.ReadRegister(machine.RegA3),
	}

	res, err := p.HandleSyscall(number, args)
	if err != nil {
		return err
	}

	proc.WriteRegister(machine.RegV0, res.Word())
	proc.AdvancePC()
	p.dispatcher.transitionTo(DispatchIdle)
	return nil
}

// HandleSyscall runs syscall number with args and returns its result. The
// caller is responsible for storing the result; HandleException does that
// and returns the dispatcher to idle.
func (p *Process) HandleSyscall(number int32, args [4]int32) (Result, error) {
	d := &p.dispatcher
	if d.state == DispatchReturning {
		d.transitionTo(DispatchIdle)
	}
	d.transitionTo(DispatchDecoding)

	h, ok := handlers[number]
	if !ok {
		d.transitionTo(DispatchIdle)
		return Result{Value: -1, Err: ErrUnknownSyscall},
			p.fatal(&FatalError{PID: p.pid, Cause: machine.ExceptionSyscall, Syscall: number, Err: ErrUnknownSyscall})
	}

	d.transitionTo(DispatchExecuting)
	d.logger.Trace("syscall", "name", SyscallName(number),
		"a0", args[0], "a1", args[1], "a2", args[2], "a3", args[3])
	res := h(p, args)
	d.transitionTo(DispatchReturning)

	if res.Err != nil {
		d.logger.Debug("syscall failed", "name", SyscallName(number), "error", res.Err)
	}
	return res, nil
}

func (p *Process) fatal(err *FatalError) error {
	p.kernel.Abort(err)
	return err
}

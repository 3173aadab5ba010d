package script

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/machine"
	"nachos/pkg/userprog"
)

// Runner errors.
var (
	ErrExpectation = errors.New("expectation failed")
	ErrFault       = errors.New("memory fault")
)

// Runner executes a script as the user program of a process. It
// implements userprog.Runner.
type Runner struct {
	script *Script
	out    io.Writer
	logger hclog.Logger
}

// NewRunner creates a runner for s. echo and peek output goes to out.
func NewRunner(s *Script, out io.Writer, logger hclog.Logger) *Runner {
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Runner{script: s, out: out, logger: logger.Named("script")}
}

// Run executes the script until it ends, the machine halts, ctx is done, or
// a command fails.
func (r *Runner) Run(ctx context.Context, p *userprog.Process) error {
	m := p.Kernel().Machine()
	last := int32(0)

	for _, cmd := range r.script.Commands {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.Halted() {
			return nil
		}

		r.logger.Trace("step", "pid", p.PID(), "line", cmd.Line, "op", cmd.Op.String())
		if err := r.step(p, cmd, &last); err != nil {
			return fmt.Errorf("line %d: %s: %w", cmd.Line, cmd.Op, err)
		}
	}
	return nil
}

func (r *Runner) step(p *userprog.Process, cmd Command, last *int32) error {
	args := make([]int32, len(cmd.Args))
	for i, v := range cmd.Args {
		args[i] = resolve(p, v)
	}

	switch cmd.Op {
	case OpPoke:
		data := append([]byte(cmd.Text), 0)
		if n := p.WriteVirtualMemory(int(args[0]), data); n != len(data) {
			return fmt.Errorf("%w: stored %d of %d bytes at %#x", ErrFault, n, len(data), args[0])
		}

	case OpPokeWord:
		var word [4]byte
		binary.LittleEndian.PutUint32(word[:], uint32(args[1]))
		if n := p.WriteVirtualMemory(int(args[0]), word[:]); n != len(word) {
			return fmt.Errorf("%w: stored %d of 4 bytes at %#x", ErrFault, n, args[0])
		}

	case OpPeek:
		if args[1] < 0 {
			return fmt.Errorf("negative length %d", args[1])
		}
		buf := make([]byte, args[1])
		n := p.ReadVirtualMemory(int(args[0]), buf)
		fmt.Fprintln(r.out, strconv.Quote(string(buf[:n])))

	case OpSyscall:
		proc := p.Kernel().Processor()
		proc.WriteRegister(machine.RegV0, cmd.Syscall)
		regs := [4]int{machine.RegA0, machine.RegA1, machine.RegA2, machine.RegA3}
		for i, reg := range regs {
			var v int32
			if i < len(args) {
				v = args[i]
			}
			proc.WriteRegister(reg, v)
		}
		if err := p.HandleException(machine.ExceptionSyscall); err != nil {
			return err
		}
		*last = proc.ReadRegister(machine.RegV0)
		r.logger.Debug("syscall returned", "pid", p.PID(),
			"name", userprog.SyscallName(cmd.Syscall), "result", *last)

	case OpExpect:
		if *last != args[0] {
			return fmt.Errorf("%w: got %d, want %d", ErrExpectation, *last, args[0])
		}

	case OpEcho:
		fmt.Fprintln(r.out, cmd.Text)
	}
	return nil
}

func resolve(p *userprog.Process, v Value) int32 {
	img := p.Image()
	switch v.Symbol {
	case "argc":
		return int32(img.Argc)
	case "argv":
		return img.ArgvAddr
	case "sp":
		return img.InitialSP
	case "entry":
		return img.EntryPoint
	case "pagesize":
		return int32(p.Kernel().Processor().PageSize())
	}
	return v.Num
}

package userprog

import (
	"fmt"
	"strconv"
)

// Syscall numbers.
const (
	SyscallHalt   int32 = 0
	SyscallExit   int32 = 1
	SyscallExec   int32 = 2
	SyscallJoin   int32 = 3
	SyscallCreate int32 = 4
	SyscallOpen   int32 = 5
	SyscallRead   int32 = 6
	SyscallWrite  int32 = 7
	SyscallClose  int32 = 8
	SyscallUnlink int32 = 9
)

var syscallNames = map[int32]string{
	SyscallHalt:   "halt",
	SyscallExit:   "exit",
	SyscallExec:   "exec",
	SyscallJoin:   "join",
	SyscallCreate: "create",
	SyscallOpen:   "open",
	SyscallRead:   "read",
	SyscallWrite:  "write",
	SyscallClose:  "close",
	SyscallUnlink: "unlink",
}

// SyscallName returns the name of syscall number n.
func SyscallName(n int32) string {
	if name, ok := syscallNames[n]; ok {
		return name
	}
	return "syscall" + strconv.Itoa(int(n))
}

// SyscallNumber returns the number of the named syscall.
func SyscallNumber(name string) (int32, bool) {
	for n, s := range syscallNames {
		if s == name {
			return n, true
		}
	}
	return 0, false
}

// Result is what a syscall handler produces. The dispatcher returns Value
// to user code on success and -1 when Err is set.
type Result struct {
	Value int32
	Err   error
}

// Word returns the value user code sees.
func (r Result) Word() int32 {
	if r.Err != nil {
		return -1
	}
	return r.Value
}

func success(v int) Result { return Result{Value: int32(v)} }

func failure(err error) Result { return Result{Value: -1, Err: err} }

type handler func(p *Process, args [4]int32) Result

// handlers maps each implemented syscall to its handler. exec and join are
// reserved but not implemented.
var handlers map[int32]handler

func init() {
	handlers = map[int32]handler{
		SyscallHalt:   (*Process).handleHalt,
		SyscallExit:   (*Process).handleExit,
		SyscallCreate: (*Process).handleCreate,
		SyscallOpen:   (*Process).handleOpen,
		SyscallRead:   (*Process).handleRead,
		SyscallWrite:  (*Process).handleWrite,
		SyscallClose:  (*Process).handleClose,
		SyscallUnlink: (*Process).handleUnlink,
	}
}

func (p *Process) handleHalt(_ [4]int32) Result {
	if !p.kernel.isRoot(p) {
		return failure(ErrNotRoot)
	}
	p.kernel.Halt()
	return success(0)
}

func (p *Process) handleExit(args [4]int32) Result {
	p.Exit(args[0])
	return success(0)
}

func (p *Process) handleCreate(args [4]int32) Result {
	name, err := p.readName(args[0])
	if err != nil {
		return failure(err)
	}
	fd, err := p.files.Create(name)
	if err != nil {
		return failure(err)
	}
	return success(fd)
}

func (p *Process) handleOpen(args [4]int32) Result {
	name, err := p.readName(args[0])
	if err != nil {
		return failure(err)
	}
	fd, err := p.files.Open(name)
	if err != nil {
		return failure(err)
	}
	return success(fd)
}

// handleRead reads from a descriptor into user memory. The read is clamped
// to the addressable part of the buffer before any file data is consumed.
func (p *Process) handleRead(args [4]int32) Result {
	fd, vaddr, size := int(args[0]), int(args[1]), int(args[2])

	if fd == StdoutFD {
		return failure(fmt.Errorf("read fd %d: %w", fd, ErrBadDescriptor))
	}
	if err := p.files.checkReadable(fd); err != nil {
		return failure(err)
	}
	if size < 0 {
		return failure(fmt.Errorf("read size %d: %w", size, ErrBadLength))
	}

	span := p.AddressableSpan(vaddr, size, true)
	if span == 0 {
		return failure(fmt.Errorf("read buffer %#x: %w", vaddr, ErrBadAddress))
	}

	buf := make([]byte, span)
	n, err := p.files.Read(fd, buf)
	if err != nil {
		return failure(err)
	}
	return success(p.WriteVirtualMemory(vaddr, buf[:n]))
}

// handleWrite writes user memory to a descriptor.
func (p *Process) handleWrite(args [4]int32) Result {
	fd, vaddr, size := int(args[0]), int(args[1]), int(args[2])

	if fd == StdinFD {
		return failure(fmt.Errorf("write fd %d: %w", fd, ErrBadDescriptor))
	}
	if err := p.files.checkWritable(fd); err != nil {
		return failure(err)
	}
	if size < 0 {
		return failure(fmt.Errorf("write size %d: %w", size, ErrBadLength))
	}

	buf := make([]byte, p.AddressableSpan(vaddr, size, false))
	n := p.ReadVirtualMemory(vaddr, buf)
	if n == 0 {
		return failure(fmt.Errorf("write buffer %#x: %w", vaddr, ErrBadAddress))
	}

	written, err := p.files.Write(fd, buf[:n])
	if err != nil {
		return failure(err)
	}
	return success(written)
}

func (p *Process) handleClose(args [4]int32) Result {
	if err := p.files.Close(int(args[0])); err != nil {
		return failure(err)
	}
	return success(0)
}

// handleUnlink succeeds whenever the name can be read, whether or not the
// file existed.
func (p *Process) handleUnlink(args [4]int32) Result {
	name, err := p.readName(args[0])
	if err != nil {
		return failure(err)
	}
	p.files.Unlink(name)
	return success(0)
}

func (p *Process) readName(vaddr int32) (string, error) {
	name, ok := p.ReadVirtualMemoryString(int(vaddr), p.kernel.config.MaxNameLength)
	if !ok {
		return "", fmt.Errorf("name at %#x: %w", vaddr, ErrBadName)
	}
	return name, nil
}

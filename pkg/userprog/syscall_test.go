package userprog

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"nachos/pkg/machine"
)

const (
	nameAddr = 0x100
	bufAddr  = 0x800
)

func TestSyscallCreateOpenClose(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)
	putString(t, p, nameAddr, "out.txt")

	if fd := trap(t, p, SyscallOpen, nameAddr); fd != -1 {
		t.Errorf("open() of a missing file = %d, want -1", fd)
	}
	fd := trap(t, p, SyscallCreate, nameAddr)
	if fd != 2 {
		t.Fatalf("create() = %d, want 2", fd)
	}
	if again := trap(t, p, SyscallCreate, nameAddr); again != fd {
		t.Errorf("create() of an open name = %d, want %d", again, fd)
	}
	if got := trap(t, p, SyscallOpen, nameAddr); got != fd {
		t.Errorf("open() of an open name = %d, want %d", got, fd)
	}
	if p.Files().Len() != 1 {
		t.Errorf("Files().Len() = %d, want 1", p.Files().Len())
	}

	if rc := trap(t, p, SyscallClose, fd); rc != 0 {
		t.Errorf("close() = %d, want 0", rc)
	}
	if rc := trap(t, p, SyscallClose, fd); rc != -1 {
		t.Errorf("second close() = %d, want -1", rc)
	}
	if got := trap(t, p, SyscallOpen, nameAddr); got != 2 {
		t.Errorf("open() after close = %d, want 2", got)
	}
}

func TestSyscallTableFull(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)

	for i := 2; i < DefaultMaxFiles; i++ {
		putString(t, p, nameAddr, fmt.Sprintf("f%d", i))
		if fd := trap(t, p, SyscallCreate, nameAddr); fd != int32(i) {
			t.Fatalf("create(f%d) = %d, want %d", i, fd, i)
		}
	}

	env.fs.WriteFile("extra", []byte("x"))
	putString(t, p, nameAddr, "extra")
	if fd := trap(t, p, SyscallOpen, nameAddr); fd != -1 {
		t.Errorf("open() on a full table = %d, want -1", fd)
	}
}

func TestSyscallBadNames(t *testing.T) {
	env := newTestEnv(t, 2, "")
	p := NewProcess(env.kernel)
	end := int32(2 * testPageSize)

	long := bytes.Repeat([]byte{'n'}, 300)
	p.WriteVirtualMemory(nameAddr, long)

	tests := []struct {
		name string
		ptr  int32
	}{
		{"negative pointer", -1},
		{"outside memory", end + 10},
		{"unterminated", nameAddr},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, num := range []int32{SyscallCreate, SyscallOpen, SyscallUnlink} {
				if rc := trap(t, p, num, tt.ptr); rc != -1 {
					t.Errorf("%s() = %d, want -1", SyscallName(num), rc)
				}
			}
		})
	}
	if p.Files().Len() != 0 {
		t.Error("bad names opened files")
	}
}

func TestSyscallReadWriteFile(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)
	putString(t, p, nameAddr, "data")
	p.WriteVirtualMemory(bufAddr, []byte("hello"))

	fd := trap(t, p, SyscallCreate, nameAddr)
	if n := trap(t, p, SyscallWrite, fd, bufAddr, 5); n != 5 {
		t.Fatalf("write() = %d, want 5", n)
	}
	trap(t, p, SyscallClose, fd)

	if got, _ := env.fs.ReadFile("data"); string(got) != "hello" {
		t.Fatalf("file contents = %q, want %q", got, "hello")
	}

	fd = trap(t, p, SyscallOpen, nameAddr)
	dst := bufAddr + 0x100
	if n := trap(t, p, SyscallRead, fd, int32(dst), 100); n != 5 {
		t.Fatalf("read() = %d, want 5", n)
	}
	got := make([]byte, 5)
	p.ReadVirtualMemory(dst, got)
	if string(got) != "hello" {
		t.Errorf("read into memory %q, want %q", got, "hello")
	}
	if n := trap(t, p, SyscallRead, fd, int32(dst), 100); n != -1 {
		t.Errorf("read() at end of file = %d, want -1", n)
	}
}

func TestSyscallConsole(t *testing.T) {
	env := newTestEnv(t, 16, "keys")
	p := NewProcess(env.kernel)
	p.WriteVirtualMemory(bufAddr, []byte("printed\n"))

	if n := trap(t, p, SyscallWrite, StdoutFD, bufAddr, 8); n != 8 {
		t.Errorf("write(1) = %d, want 8", n)
	}
	if env.out.String() != "printed\n" {
		t.Errorf("console output = %q", env.out.String())
	}

	if n := trap(t, p, SyscallRead, StdinFD, bufAddr, 10); n != 4 {
		t.Fatalf("read(0) = %d, want 4", n)
	}
	got := make([]byte, 4)
	p.ReadVirtualMemory(bufAddr, got)
	if string(got) != "keys" {
		t.Errorf("read(0) stored %q, want %q", got, "keys")
	}
	if n := trap(t, p, SyscallRead, StdinFD, bufAddr, 10); n != -1 {
		t.Errorf("read(0) with no input left = %d, want -1", n)
	}
}

func TestSyscallWrongConsoleDirection(t *testing.T) {
	env := newTestEnv(t, 16, "pending")
	p := NewProcess(env.kernel)
	p.WriteVirtualMemory(bufAddr, []byte("secret"))
	p.pageTable.reset()
	mem := env.kernel.Processor().Memory()
	before := bytes.Clone(mem)

	if n := trap(t, p, SyscallWrite, StdinFD, bufAddr, 6); n != -1 {
		t.Errorf("write(0) = %d, want -1", n)
	}
	if n := trap(t, p, SyscallRead, StdoutFD, bufAddr, 6); n != -1 {
		t.Errorf("read(1) = %d, want -1", n)
	}

	if !bytes.Equal(mem, before) {
		t.Error("memory changed")
	}
	if env.out.Len() != 0 {
		t.Errorf("console output = %q, want none", env.out.String())
	}
	for i, e := range p.PageTable() {
		if e.Used {
			t.Errorf("page %d touched", i)
		}
	}
	// Input was not consumed.
	if n := trap(t, p, SyscallRead, StdinFD, bufAddr, 7); n != 7 {
		t.Errorf("read(0) = %d, want 7", n)
	}
}

func TestSyscallReadClampsToMemory(t *testing.T) {
	env := newTestEnv(t, 2, "")
	p := NewProcess(env.kernel)
	env.fs.WriteFile("big", []byte("0123456789"))
	putString(t, p, nameAddr, "big")
	end := 2 * testPageSize
	const buf = 0x200

	fd := trap(t, p, SyscallOpen, nameAddr)
	if n := trap(t, p, SyscallRead, fd, int32(end-3), 10); n != 3 {
		t.Fatalf("read() at the end of memory = %d, want 3", n)
	}
	if n := trap(t, p, SyscallRead, fd, buf, 10); n != 7 {
		t.Errorf("next read() = %d, want the 7 unread bytes", n)
	}
	got := make([]byte, 7)
	p.ReadVirtualMemory(buf, got)
	if string(got) != "3456789" {
		t.Errorf("second read stored %q, want %q", got, "3456789")
	}

	if n := trap(t, p, SyscallRead, fd, int32(end), 10); n != -1 {
		t.Errorf("read() outside memory = %d, want -1", n)
	}
}

func TestSyscallReadWriteArguments(t *testing.T) {
	env := newTestEnv(t, 4, "")
	p := NewProcess(env.kernel)
	putString(t, p, nameAddr, "f")
	fd := trap(t, p, SyscallCreate, nameAddr)

	tests := []struct {
		name string
		num  int32
		args []int32
	}{
		{"read negative size", SyscallRead, []int32{fd, bufAddr, -1}},
		{"write negative size", SyscallWrite, []int32{fd, bufAddr, -1}},
		{"read zero bytes", SyscallRead, []int32{fd, bufAddr, 0}},
		{"write zero bytes", SyscallWrite, []int32{fd, bufAddr, 0}},
		{"write bad buffer", SyscallWrite, []int32{fd, -5, 4}},
		{"read unopened", SyscallRead, []int32{9, bufAddr, 4}},
		{"write unopened", SyscallWrite, []int32{9, bufAddr, 4}},
		{"read past table", SyscallRead, []int32{99, bufAddr, 4}},
		{"close console", SyscallClose, []int32{StdoutFD}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rc := trap(t, p, tt.num, tt.args...); rc != -1 {
				t.Errorf("%s = %d, want -1", tt.name, rc)
			}
		})
	}
}

func TestSyscallUnlink(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)
	putString(t, p, nameAddr, "gone")

	fd := trap(t, p, SyscallCreate, nameAddr)
	if rc := trap(t, p, SyscallUnlink, nameAddr); rc != 0 {
		t.Errorf("unlink() = %d, want 0", rc)
	}
	if env.fs.Exists("gone") {
		t.Error("unlink() left the file")
	}
	if rc := trap(t, p, SyscallClose, fd); rc != -1 {
		t.Errorf("close() after unlink = %d, want -1", rc)
	}
	if rc := trap(t, p, SyscallUnlink, nameAddr); rc != 0 {
		t.Errorf("unlink() of a missing file = %d, want 0", rc)
	}
}

func TestSyscallHalt(t *testing.T) {
	env := newTestEnv(t, 16, "")
	env.installProgram(t, "prog")
	m := env.kernel.Machine()

	root, err := env.kernel.Start("prog", nil)
	if err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	other := NewProcess(env.kernel)

	if rc := trap(t, other, SyscallHalt); rc != -1 {
		t.Errorf("halt() from a non-root process = %d, want -1", rc)
	}
	if m.Halted() {
		t.Fatal("non-root halt() stopped the machine")
	}

	if rc := trap(t, root, SyscallHalt); rc != 0 {
		t.Errorf("halt() from root = %d, want 0", rc)
	}
	if !errors.Is(m.Err(), machine.ErrHalted) {
		t.Errorf("machine Err() = %v, want ErrHalted", m.Err())
	}
}

func TestSyscallAdvancesPC(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)
	proc := env.kernel.Processor()
	proc.WriteRegister(machine.RegPC, 0x100)
	proc.WriteRegister(machine.RegNextPC, 0x104)

	trap(t, p, SyscallClose, 7)

	if pc := proc.ReadRegister(machine.RegPC); pc != 0x104 {
		t.Errorf("PC = %#x, want 0x104", pc)
	}
	if next := proc.ReadRegister(machine.RegNextPC); next != 0x108 {
		t.Errorf("NextPC = %#x, want 0x108", next)
	}
	if p.DispatchState() != DispatchIdle {
		t.Errorf("DispatchState() = %s, want idle", p.DispatchState())
	}
}

func TestUnknownSyscallIsFatal(t *testing.T) {
	for _, num := range []int32{SyscallExec, SyscallJoin, 10, -1} {
		t.Run(SyscallName(num), func(t *testing.T) {
			env := newTestEnv(t, 16, "")
			p := NewProcess(env.kernel)
			proc := env.kernel.Processor()
			proc.WriteRegister(machine.RegV0, num)
			proc.WriteRegister(machine.RegPC, 0x40)

			err := p.HandleException(machine.ExceptionSyscall)

			var fatal *FatalError
			if !errors.As(err, &fatal) || !errors.Is(err, ErrUnknownSyscall) {
				t.Fatalf("HandleException() = %v, want *FatalError wrapping ErrUnknownSyscall", err)
			}
			if fatal.Syscall != num || fatal.PID != p.PID() {
				t.Errorf("FatalError = %+v", fatal)
			}
			if !errors.Is(env.kernel.Machine().Err(), ErrUnknownSyscall) {
				t.Errorf("machine Err() = %v, want the fatal error", env.kernel.Machine().Err())
			}
			if pc := proc.ReadRegister(machine.RegPC); pc != 0x40 {
				t.Errorf("PC advanced to %#x", pc)
			}
			if p.DispatchState() != DispatchIdle {
				t.Errorf("DispatchState() = %s, want idle", p.DispatchState())
			}
		})
	}
}

func TestUnexpectedExceptionIsFatal(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)

	err := p.HandleException(machine.ExceptionAddressError)

	var fatal *FatalError
	if !errors.As(err, &fatal) || fatal.Cause != machine.ExceptionAddressError {
		t.Fatalf("HandleException() = %v, want *FatalError for an address error", err)
	}
	if !errors.Is(err, ErrUnexpected) {
		t.Errorf("error %v does not wrap ErrUnexpected", err)
	}
	if !env.kernel.Machine().Halted() {
		t.Error("machine still running after a fatal exception")
	}
}

func TestHandleSyscallResult(t *testing.T) {
	env := newTestEnv(t, 16, "")
	p := NewProcess(env.kernel)

	res, err := p.HandleSyscall(SyscallClose, [4]int32{3})
	if err != nil {
		t.Fatalf("HandleSyscall() failed: %v", err)
	}
	if !errors.Is(res.Err, ErrNotOpen) || res.Word() != -1 {
		t.Errorf("close(3) = %+v, want ErrNotOpen", res)
	}
	if p.DispatchState() != DispatchReturning {
		t.Errorf("DispatchState() = %s, want returning", p.DispatchState())
	}

	putString(t, p, nameAddr, "r")
	res, _ = p.HandleSyscall(SyscallCreate, [4]int32{nameAddr})
	if res.Err != nil || res.Word() != 2 {
		t.Errorf("create() = %+v, want 2", res)
	}
}

func TestSyscallNames(t *testing.T) {
	for n := int32(0); n <= SyscallUnlink; n++ {
		name := SyscallName(n)
		got, ok := SyscallNumber(name)
		if !ok || got != n {
			t.Errorf("SyscallNumber(%q) = %d, %v; want %d", name, got, ok, n)
		}
	}
	if _, ok := SyscallNumber("fork"); ok {
		t.Error("SyscallNumber(fork) should not resolve")
	}
	if SyscallName(42) != "syscall42" {
		t.Errorf("SyscallName(42) = %q", SyscallName(42))
	}
}

func TestDispatchTransitions(t *testing.T) {
	tests := []struct {
		from, to DispatchState
		want     bool
	}{
		{DispatchIdle, DispatchDecoding, true},
		{DispatchDecoding, DispatchExecuting, true},
		{DispatchDecoding, DispatchIdle, true},
		{DispatchExecuting, DispatchReturning, true},
		{DispatchReturning, DispatchIdle, true},
		{DispatchIdle, DispatchExecuting, false},
		{DispatchExecuting, DispatchIdle, false},
		{DispatchReturning, DispatchDecoding, false},
	}
	for _, tt := range tests {
		if got := IsValidDispatchTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("IsValidDispatchTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

package userprog

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/hashicorp/go-hclog"

	"nachos/pkg/coff"
	"nachos/pkg/config"
	"nachos/pkg/console"
	"nachos/pkg/filesys/memfs"
	"nachos/pkg/machine"
)

const testPageSize = 1024

// fakeScheduler records forks and finishes without running anything.
type fakeScheduler struct {
	forked   []string
	bodies   []func(context.Context)
	finished int
	forkErr  error
}

func (s *fakeScheduler) Fork(name string, body func(context.Context)) error {
	if s.forkErr != nil {
		return s.forkErr
	}
	s.forked = append(s.forked, name)
	s.bodies = append(s.bodies, body)
	return nil
}

func (s *fakeScheduler) Finish() { s.finished++ }

type runnerFunc func(ctx context.Context, p *Process) error

func (f runnerFunc) Run(ctx context.Context, p *Process) error { return f(ctx, p) }

var idleRunner = runnerFunc(func(context.Context, *Process) error { return nil })

type testEnv struct {
	kernel *Kernel
	fs     *memfs.FS
	sched  *fakeScheduler
	out    *bytes.Buffer
}

func newTestEnv(t *testing.T, numPages int, input string) *testEnv {
	t.Helper()
	return newTestEnvWith(t, numPages, input, &fakeScheduler{}, idleRunner)
}

func newTestEnvWith(t *testing.T, numPages int, input string, s Scheduler, r Runner) *testEnv {
	t.Helper()

	cfg := config.Default()
	cfg.NumPhysPages = numPages
	cfg.PageSize = testPageSize

	fs := memfs.New()
	out := &bytes.Buffer{}
	k, err := NewKernel(Services{
		Machine:    machine.New(numPages, testPageSize),
		FileSystem: fs,
		Console:    console.NewStream(strings.NewReader(input), out),
		Scheduler:  s,
		Runner:     r,
		Logger:     hclog.NewNullLogger(),
		Config:     cfg,
	})
	if err != nil {
		t.Fatalf("NewKernel() failed: %v", err)
	}

	env := &testEnv{kernel: k, fs: fs, out: out}
	if fake, ok := s.(*fakeScheduler); ok {
		env.sched = fake
	}
	return env
}

type testSection struct {
	name     string
	firstVPN int
	data     []byte
	pages    int
	readOnly bool
}

// installImage writes an executable named name into the file system.
func (e *testEnv) installImage(t *testing.T, name string, entry int32, sections ...testSection) {
	t.Helper()
	w := coff.NewWriter(testPageSize)
	w.SetEntryPoint(entry)
	for _, s := range sections {
		w.AddSectionAt(s.name, s.firstVPN, s.data, s.pages, s.readOnly)
	}
	img, err := w.Bytes()
	if err != nil {
		t.Fatalf("building image: %v", err)
	}
	if err := e.fs.WriteFile(name, img); err != nil {
		t.Fatalf("WriteFile(%s) failed: %v", name, err)
	}
}

// installProgram writes a two section program: one read-only text page and
// one data page.
func (e *testEnv) installProgram(t *testing.T, name string) {
	t.Helper()
	e.installImage(t, name, 0x40,
		testSection{name: ".text", firstVPN: 0, data: bytes.Repeat([]byte{0x11}, 100), pages: 1, readOnly: true},
		testSection{name: ".data", firstVPN: 1, data: []byte("data section"), pages: 1},
	)
}

// trap traps into p with the given registers and returns V0.
func trap(t *testing.T, p *Process, number int32, args ...int32) int32 {
	t.Helper()
	proc := p.kernel.Processor()
	proc.WriteRegister(machine.RegV0, number)
	regs := []int{machine.RegA0, machine.RegA1, machine.RegA2, machine.RegA3}
	for i, r := range regs {
		var v int32
		if i < len(args) {
			v = args[i]
		}
		proc.WriteRegister(r, v)
	}
	if err := p.HandleException(machine.ExceptionSyscall); err != nil {
		t.Fatalf("HandleException(%s) failed: %v", SyscallName(number), err)
	}
	return proc.ReadRegister(machine.RegV0)
}

// putString stores s and a terminating NUL at vaddr.
func putString(t *testing.T, p *Process, vaddr int, s string) {
	t.Helper()
	data := append([]byte(s), 0)
	if n := p.WriteVirtualMemory(vaddr, data); n != len(data) {
		t.Fatalf("WriteVirtualMemory(%#x) = %d, want %d", vaddr, n, len(data))
	}
}

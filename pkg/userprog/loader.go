package userprog

import (
	"encoding/binary"
	"errors"
	"fmt"

	"nachos/pkg/coff"
	"nachos/pkg/filesys"
)

// Image describes the program loaded into a process.
type Image struct {
	// Name is the executable's file name.
	Name string
	// EntryPoint is the initial program counter.
	EntryPoint int32
	// InitialSP is the initial stack pointer, the top of the stack pages.
	InitialSP int32
	// NumPages counts section, stack and argument pages.
	NumPages int
	// Argc is the number of program arguments.
	Argc int
	// ArgvAddr is the virtual address of the argv pointer array.
	ArgvAddr int32
}

// Load reads the executable name into memory and lays out the stack and
// the argument page. On failure the executable is closed and the process
// is left in StateFailed.
func (p *Process) Load(name string, args []string) error {
	if st := p.State(); st != StateNew {
		return fmt.Errorf("load %q in state %s: %w", name, st, ErrInvalidTransition)
	}
	if err := p.load(name, args); err != nil {
		p.logger.Debug("load failed", "name", name, "error", err)
		p.UnloadSections()
		p.transitionTo(StateFailed)
		return err
	}
	return p.transitionTo(StateLoaded)
}

func (p *Process) load(name string, args []string) error {
	src, err := p.kernel.fs.Open(name, false)
	if err != nil {
		if errors.Is(err, filesys.ErrNotFound) {
			return fmt.Errorf("load %q: %w", name, ErrExecutableNotFound)
		}
		return fmt.Errorf("load %q: %w: %v", name, ErrExecutableNotFound, err)
	}

	pageSize := p.pageSize()
	exe, err := coff.New(src, pageSize)
	if err != nil {
		src.Close()
		return fmt.Errorf("load %q: %w: %v", name, ErrBadImage, err)
	}
	defer exe.Close()

	// Sections must tile the address space from page 0 with no gaps.
	numPages := 0
	for i := 0; i < exe.NumSections(); i++ {
		s := exe.Section(i)
		if s.FirstVPN() != numPages {
			return fmt.Errorf("load %q: section %q starts at page %d, want %d: %w",
				name, s.Name(), s.FirstVPN(), numPages, ErrFragmentedExecutable)
		}
		numPages += s.Length()
	}

	argBytes := 0
	for _, a := range args {
		argBytes += 4 + len(a) + 1
	}
	if argBytes > pageSize {
		return fmt.Errorf("load %q: %d argument bytes exceed one page: %w",
			name, argBytes, ErrArgumentsTooLong)
	}

	entry := exe.EntryPoint()
	numPages += p.kernel.config.StackPages
	initialSP := int32(numPages * pageSize)
	numPages++

	if numPages > len(p.pageTable) {
		return fmt.Errorf("load %q: needs %d pages, have %d: %w",
			name, numPages, len(p.pageTable), ErrInsufficientMemory)
	}

	if err := p.loadSections(exe); err != nil {
		return fmt.Errorf("load %q: %w: %v", name, ErrBadImage, err)
	}

	argvAddr := (numPages - 1) * pageSize
	if err := p.storeArguments(argvAddr, args); err != nil {
		return fmt.Errorf("load %q: %w", name, err)
	}

	p.image = Image{
		Name:       name,
		EntryPoint: entry,
		InitialSP:  initialSP,
		NumPages:   numPages,
		Argc:       len(args),
		ArgvAddr:   int32(argvAddr),
	}
	p.logger.Debug("loaded executable", "name", name, "pages", numPages,
		"entry", entry, "sp", initialSP, "argc", len(args))
	return nil
}

// loadSections copies every section page into the physical page its
// virtual page maps to.
func (p *Process) loadSections(exe *coff.File) error {
	pageSize := p.pageSize()
	mem := p.memory()

	for i := 0; i < exe.NumSections(); i++ {
		s := exe.Section(i)
		p.logger.Trace("loading section", "section", s.Name(), "pages", s.Length())

		for spn := 0; spn < s.Length(); spn++ {
			vpn := s.FirstVPN() + spn
			e := &p.pageTable[vpn]
			paddr := e.PPN * pageSize
			if err := s.LoadPage(spn, mem[paddr:paddr+pageSize]); err != nil {
				return err
			}
			e.ReadOnly = s.IsReadOnly()
		}
	}
	return nil
}

// storeArguments writes the argv pointer array at argvAddr followed by the
// NUL-terminated argument strings.
func (p *Process) storeArguments(argvAddr int, args []string) error {
	entryOffset := argvAddr
	stringOffset := argvAddr + 4*len(args)

	var word [4]byte
	for _, a := range args {
		binary.LittleEndian.PutUint32(word[:], uint32(stringOffset))
		if p.WriteVirtualMemory(entryOffset, word[:]) != len(word) {
			return fmt.Errorf("argv entry at %#x: %w", entryOffset, ErrBadAddress)
		}
		entryOffset += 4

		str := append([]byte(a), 0)
		if p.WriteVirtualMemory(stringOffset, str) != len(str) {
			return fmt.Errorf("argument at %#x: %w", stringOffset, ErrBadAddress)
		}
		stringOffset += len(str)
	}
	return nil
}

// UnloadSections forgets the loaded image and restores the page table to
// its baseline mapping. Physical memory is left as is.
func (p *Process) UnloadSections() {
	p.pageTable.reset()
	p.image = Image{}
}

package userprog

import (
	"bytes"
	"fmt"

	"nachos/pkg/machine"
)

// ReadVirtualMemory copies bytes at vaddr into data and returns how many
// were copied. Fewer than len(data) bytes are copied when the range runs
// off the addressable part of the address space.
func (p *Process) ReadVirtualMemory(vaddr int, data []byte) int {
	return p.ReadVirtualMemoryAt(vaddr, data, 0, len(data))
}

// ReadVirtualMemoryAt copies up to length bytes at vaddr into
// data[offset:]. offset and length must lie within data.
func (p *Process) ReadVirtualMemoryAt(vaddr int, data []byte, offset, length int) int {
	checkBounds(data, offset, length)
	mem := p.memory()
	return p.pageTable.walk(vaddr, length, p.pageSize(), len(mem), false,
		func(e *machine.TranslationEntry, paddr, pos, n int) {
			e.Used = true
			copy(data[offset+pos:offset+pos+n], mem[paddr:paddr+n])
		})
}

// WriteVirtualMemory copies data to vaddr and returns how many bytes were
// written. Read-only and invalid pages end the transfer.
func (p *Process) WriteVirtualMemory(vaddr int, data []byte) int {
	return p.WriteVirtualMemoryAt(vaddr, data, 0, len(data))
}

// WriteVirtualMemoryAt copies up to length bytes from data[offset:] to
// vaddr. offset and length must lie within data.
func (p *Process) WriteVirtualMemoryAt(vaddr int, data []byte, offset, length int) int {
	checkBounds(data, offset, length)
	mem := p.memory()
	return p.pageTable.walk(vaddr, length, p.pageSize(), len(mem), true,
		func(e *machine.TranslationEntry, paddr, pos, n int) {
			e.Used = true
			e.Dirty = true
			copy(mem[paddr:paddr+n], data[offset+pos:offset+pos+n])
		})
}

// AddressableSpan returns how many of the length bytes at vaddr could be
// transferred, without touching memory or the page table bits.
func (p *Process) AddressableSpan(vaddr, length int, write bool) int {
	return p.pageTable.walk(vaddr, length, p.pageSize(), len(p.memory()), write, nil)
}

// ReadVirtualMemoryString reads a NUL-terminated string of at most
// maxLength bytes at vaddr. It reports false when no terminator is found
// within maxLength+1 bytes.
func (p *Process) ReadVirtualMemoryString(vaddr, maxLength int) (string, bool) {
	if maxLength < 0 {
		panic(fmt.Sprintf("userprog: negative string length %d", maxLength))
	}

	buf := make([]byte, maxLength+1)
	n := p.ReadVirtualMemory(vaddr, buf)
	if i := bytes.IndexByte(buf[:n], 0); i >= 0 {
		return string(buf[:i]), true
	}
	return "", false
}

func checkBounds(data []byte, offset, length int) {
	if offset < 0 || length < 0 || offset+length > len(data) {
		panic(fmt.Sprintf("userprog: transfer [%d:%d] outside buffer of %d bytes",
			offset, offset+length, len(data)))
	}
}

package userprog

import (
	"fmt"

	"nachos/pkg/machine"
)

// PageTable maps virtual page numbers to physical pages. Index i holds the
// entry for virtual page i.
type PageTable []machine.TranslationEntry

// NewPageTable returns an identity mapping of numPages valid, writable
// pages.
func NewPageTable(numPages int) PageTable {
	pt := make(PageTable, numPages)
	for i := range pt {
		pt[i] = machine.TranslationEntry{VPN: i, PPN: i, Valid: true}
	}
	return pt
}

// Validate checks that every valid entry maps inside physical memory and
// that no two valid entries share a physical page.
func (pt PageTable) Validate(numPhysPages int) error {
	owner := make(map[int]int, len(pt))
	for vpn, e := range pt {
		if !e.Valid {
			continue
		}
		if e.VPN != vpn {
			return fmt.Errorf("page table: entry %d has vpn %d", vpn, e.VPN)
		}
		if e.PPN < 0 || e.PPN >= numPhysPages {
			return fmt.Errorf("page table: vpn %d maps to ppn %d outside memory", vpn, e.PPN)
		}
		if prev, dup := owner[e.PPN]; dup {
			return fmt.Errorf("page table: vpn %d and %d share ppn %d", prev, vpn, e.PPN)
		}
		owner[e.PPN] = vpn
	}
	return nil
}

// entry returns the entry for vpn if it can be accessed. Writes also
// require the page to be writable.
func (pt PageTable) entry(vpn int, write bool) (*machine.TranslationEntry, bool) {
	if vpn < 0 || vpn >= len(pt) {
		return nil, false
	}
	e := &pt[vpn]
	if !e.Valid || (write && e.ReadOnly) {
		return nil, false
	}
	return e, true
}

// walk visits the physical extents backing [vaddr, vaddr+length) in order,
// stopping at the first virtual page that cannot be accessed. visit gets
// the physical address, the offset into the transfer and the extent
// length. It returns the number of bytes covered.
func (pt PageTable) walk(vaddr, length, pageSize, memSize int, write bool,
	visit func(e *machine.TranslationEntry, paddr, pos, n int)) int {
	if vaddr < 0 || length <= 0 {
		return 0
	}

	done := 0
	for done < length {
		va := vaddr + done
		e, ok := pt.entry(va/pageSize, write)
		if !ok {
			break
		}

		off := va % pageSize
		paddr := e.PPN*pageSize + off
		if paddr >= memSize {
			break
		}
		n := min(pageSize-off, length-done, memSize-paddr)

		if visit != nil {
			visit(e, paddr, done, n)
		}
		done += n
	}
	return done
}

// reset restores every entry to a plain valid, writable mapping.
func (pt PageTable) reset() {
	for i := range pt {
		pt[i].ReadOnly = false
		pt[i].Used = false
		pt[i].Dirty = false
	}
}

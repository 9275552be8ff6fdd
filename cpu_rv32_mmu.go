// cpu_rv32_mmu.go - Sv32 address translation

/*
The MMU wraps the machine bus. Translation is bypassed in machine mode or
while satp.mode is clear; otherwise every access performs a full two-level
Sv32 walk — there is no TLB, so SFENCE.VMA has nothing to flush.

A failed walk does not return an error: it sets the invalid flag and the
access yields zero (reads) or is dropped (writes). The flag short-circuits
every subsequent access until the core clears it at the top of the next
cycle; the fetch and load/store paths inspect it and raise the page fault
matching the access kind, with the faulting virtual address as trap value.

Walk (unrolled for the two levels):

  a    = satp.ppn << 12
  pte  = bus[a + vpn1*4]
  fault if !pte.v or (!pte.r and pte.w)
  if pte.r or pte.x:                       superpage leaf
      fault unless checks pass and pte.ppn0 == 0
      pa = pte.ppn1<<22 | vpn0<<12 | offset
  else:                                    pointer to second level
      pte = bus[(pte.ppn << 12) + vpn0*4]
      fault if !pte.v or (!pte.r and pte.w) or (!pte.r and !pte.x)
      fault unless checks pass
      pa = pte.ppn<<12 | offset

Leaf checks: r for loads, x for fetches, w for stores; the u bit must match
the privilege level (S-mode may not touch user pages and U-mode may only
touch user pages — sum is hardwired to zero); a must be set, and d too for
stores.
*/

package main

// MMU translates virtual addresses through Sv32 when enabled.
type MMU struct {
	csr *CSR
	bus *MachineBus

	invalid  bool
	lastVA   uint32
}

func NewMMU(csr *CSR, bus *MachineBus) *MMU {
	return &MMU{csr: csr, bus: bus}
}

// Invalid reports whether a translation has failed since the last clear.
func (m *MMU) Invalid() bool { return m.invalid }

// ClearInvalid re-arms the MMU at the start of a cycle.
func (m *MMU) ClearInvalid() { m.invalid = false }

// FaultVA returns the virtual address of the most recent failed translation.
func (m *MMU) FaultVA() uint32 { return m.lastVA }

func (m *MMU) pageFault() uint32 {
	m.invalid = true
	return 0
}

// checkLeaf validates the access-kind and privilege bits of a leaf PTE.
func (m *MMU) checkLeaf(pte uint32, isStore, isExec bool) bool {
	if !isStore && !isExec && pte&PTE_R == 0 {
		return false
	}
	if isStore && pte&PTE_W == 0 {
		return false
	}
	if isExec && pte&PTE_X == 0 {
		return false
	}
	if m.csr.CurPriv() == PRIV_S && pte&PTE_U != 0 {
		return false
	}
	if m.csr.CurPriv() == PRIV_U && pte&PTE_U == 0 {
		return false
	}
	return true
}

// translate maps a virtual address to a physical one, flagging a page fault
// of the access's kind on any failed check.
func (m *MMU) translate(addr uint32, isStore, isExec bool) uint32 {
	m.lastVA = addr
	satp := m.csr.SATP()
	if m.csr.CurPriv() == PRIV_M || satp&SATP_MODE == 0 {
		return addr
	}

	vpn1 := (addr >> 22) & 0x3ff
	vpn0 := (addr >> 12) & 0x3ff
	offset := addr & 0xfff

	a := (satp & SATP_PPN_MASK) << 12
	pte := m.bus.Read32(a + vpn1*4)
	if pte&PTE_V == 0 || (pte&PTE_R == 0 && pte&PTE_W != 0) {
		return m.pageFault()
	}

	if pte&(PTE_R|PTE_X) == 0 {
		// pointer to the second level
		ppn := pte >> 10 // {ppn1, ppn0}, 22 bits
		pte = m.bus.Read32((ppn&0x3fffff)<<12 + vpn0*4)
		if pte&PTE_V == 0 || (pte&PTE_R == 0 && pte&PTE_W != 0) {
			return m.pageFault()
		}
		if pte&(PTE_R|PTE_X) == 0 {
			return m.pageFault() // pointer at the last level
		}
		if !m.checkLeaf(pte, isStore, isExec) {
			return m.pageFault()
		}
		if pte&PTE_A == 0 || (isStore && pte&PTE_D == 0) {
			return m.pageFault()
		}
		return ((pte >> 10) & 0x3fffff << 12) | offset
	}

	// leaf at the top level: a 4 MiB superpage
	if !m.checkLeaf(pte, isStore, isExec) {
		return m.pageFault()
	}
	if (pte>>10)&0x3ff != 0 {
		return m.pageFault() // misaligned superpage (ppn0 != 0)
	}
	if pte&PTE_A == 0 || (isStore && pte&PTE_D == 0) {
		return m.pageFault()
	}
	ppn1 := (pte >> 20) & 0xfff
	return ppn1<<22 | vpn0<<12 | offset
}

func (m *MMU) Read8(addr uint32) uint8 {
	if m.invalid {
		return 0
	}
	pa := m.translate(addr, false, false)
	if m.invalid {
		return 0
	}
	return m.bus.Read8(pa)
}

func (m *MMU) Write8(addr uint32, value uint8) {
	if m.invalid {
		return
	}
	pa := m.translate(addr, true, false)
	if !m.invalid {
		m.bus.Write8(pa, value)
	}
}

func (m *MMU) Read16(addr uint32) uint16 {
	if m.invalid {
		return 0
	}
	pa := m.translate(addr, false, false)
	if m.invalid {
		return 0
	}
	return m.bus.Read16(pa)
}

func (m *MMU) Write16(addr uint32, value uint16) {
	if m.invalid {
		return
	}
	pa := m.translate(addr, true, false)
	if !m.invalid {
		m.bus.Write16(pa, value)
	}
}

func (m *MMU) Read32(addr uint32) uint32 {
	if m.invalid {
		return 0
	}
	pa := m.translate(addr, false, false)
	if m.invalid {
		return 0
	}
	return m.bus.Read32(pa)
}

func (m *MMU) Write32(addr uint32, value uint32) {
	if m.invalid {
		return
	}
	pa := m.translate(addr, true, false)
	if !m.invalid {
		m.bus.Write32(pa, value)
	}
}

// ReadInst fetches an instruction word (execute permission required).
func (m *MMU) ReadInst(addr uint32) uint32 {
	if m.invalid {
		return 0
	}
	pa := m.translate(addr, false, true)
	if m.invalid {
		return 0
	}
	return m.bus.Read32(pa)
}

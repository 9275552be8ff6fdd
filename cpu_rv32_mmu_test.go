// cpu_rv32_mmu_test.go - Sv32 translation tests

package main

import "testing"

// mmuFixture builds a bus with RAM, a CSR file and an MMU, with the page
// tables living in RAM.
type mmuFixture struct {
	csr *CSR
	bus *MachineBus
	mmu *MMU
	ram *RAM
}

func newMMUFixture(t testing.TB) *mmuFixture {
	t.Helper()
	bus := NewMachineBus()
	ram := NewRAM(256 * 1024)
	if err := bus.AddPeripheral(MMIO_ADDR_RAM, ram); err != nil {
		t.Fatal(err)
	}
	csr := NewCSR()
	return &mmuFixture{csr: csr, bus: bus, mmu: NewMMU(csr, bus), ram: ram}
}

// rootTablePA is where the fixtures place the first-level page table.
const rootTablePA = MMIO_ADDR_RAM + 0x4000

// secondTablePA holds the second-level table used by 4 KiB mappings.
const secondTablePA = MMIO_ADDR_RAM + 0x5000

// enablePaging points satp at the root table and drops to the given
// privilege.
func (f *mmuFixture) enablePaging(priv uint32) {
	f.csr.WriteData(CSR_SATP, SATP_MODE|rootTablePA>>12)
	f.csr.SetCurPriv(priv)
}

// mapPage installs VA -> PA with the given leaf flags through a two-level
// walk.
func (f *mmuFixture) mapPage(va, pa uint32, flags uint32) {
	vpn1 := va >> 22 & 0x3ff
	vpn0 := va >> 12 & 0x3ff
	// first level: pointer to the second table
	f.bus.Write32(rootTablePA+vpn1*4, secondTablePA>>12<<10|PTE_V)
	// second level: leaf
	f.bus.Write32(secondTablePA+vpn0*4, pa>>12<<10|flags)
}

// TestTranslationBypassed verifies virtual equals physical in M-mode and
// whenever satp.mode is clear.
func TestTranslationBypassed(t *testing.T) {
	f := newMMUFixture(t)
	f.ram.Write32(0x100, 0xdeadbeef)

	// satp off
	if got := f.mmu.Read32(MMIO_ADDR_RAM + 0x100); got != 0xdeadbeef {
		t.Errorf("read = 0x%08x, expected identity mapping with satp off", got)
	}
	// M-mode ignores satp entirely
	f.enablePaging(PRIV_M)
	if got := f.mmu.Read32(MMIO_ADDR_RAM + 0x100); got != 0xdeadbeef {
		t.Errorf("read = 0x%08x, expected identity mapping in M-mode", got)
	}
	if f.mmu.Invalid() {
		t.Error("no fault expected")
	}
}

// TestTwoLevelWalk verifies a 4 KiB mapping translates loads, stores and
// fetches with the right permission bits.
func TestTwoLevelWalk(t *testing.T) {
	f := newMMUFixture(t)
	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_W|PTE_X|PTE_A|PTE_D)
	f.ram.Write32(0x1000, 0x11223344)
	f.enablePaging(PRIV_S)

	if got := f.mmu.Read32(0x00002000); got != 0x11223344 {
		t.Fatalf("read = 0x%08x, expected 0x11223344", got)
	}
	f.mmu.Write32(0x00002004, 0x55667788)
	if got := f.ram.Read32(0x1004); got != 0x55667788 {
		t.Errorf("store landed at the wrong physical address")
	}
	if got := f.mmu.ReadInst(0x00002000); got != 0x11223344 {
		t.Errorf("fetch = 0x%08x, expected 0x11223344", got)
	}
	if f.mmu.Invalid() {
		t.Error("no fault expected")
	}
}

// TestUserPageFromSMode verifies a U-bit page faults for S-mode and a
// non-U page faults for... the S-mode-accessible case and its U-mode
// counterpart (the documented scenario pair).
func TestUserPageFromSMode(t *testing.T) {
	f := newMMUFixture(t)
	// pte.u = 0: S-mode may access, U-mode must fault
	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_X|PTE_A)
	f.ram.Write32(0x1000, 42)

	f.enablePaging(PRIV_S)
	if got := f.mmu.Read32(0x00002000); got != 42 || f.mmu.Invalid() {
		t.Fatalf("S-mode read = %d (invalid=%v), expected 42", got, f.mmu.Invalid())
	}

	f.mmu.ClearInvalid()
	f.csr.SetCurPriv(PRIV_U)
	f.mmu.Read32(0x00002000)
	if !f.mmu.Invalid() {
		t.Fatal("U-mode access to a non-U page must fault")
	}
	if got := f.mmu.FaultVA(); got != 0x00002000 {
		t.Errorf("fault va = 0x%08x, expected 0x00002000", got)
	}

	// and the inverse: pte.u = 1 faults for S-mode
	f.mmu.ClearInvalid()
	f.mapPage(0x00003000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_U|PTE_A)
	f.csr.SetCurPriv(PRIV_S)
	f.mmu.Read32(0x00003000)
	if !f.mmu.Invalid() {
		t.Fatal("S-mode access to a U page must fault")
	}
}

// TestPermissionBitsPerAccessKind verifies r/w/x select by access kind.
func TestPermissionBitsPerAccessKind(t *testing.T) {
	f := newMMUFixture(t)
	f.enablePaging(PRIV_S)

	// read-only page: store faults, load does not
	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_A|PTE_D)
	f.mmu.Read32(0x00002000)
	if f.mmu.Invalid() {
		t.Fatal("load from a readable page must not fault")
	}
	f.mmu.Write32(0x00002000, 1)
	if !f.mmu.Invalid() {
		t.Fatal("store to a non-writable page must fault")
	}

	// executable-only page: fetch ok, load faults
	f.mmu.ClearInvalid()
	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_X|PTE_A)
	f.mmu.ReadInst(0x00002000)
	if f.mmu.Invalid() {
		t.Fatal("fetch from an executable page must not fault")
	}
	f.mmu.Read32(0x00002000)
	if !f.mmu.Invalid() {
		t.Fatal("load from a non-readable page must fault")
	}
}

// TestAccessedDirtyBits verifies the a/d requirements: a clear A bit always
// faults, a clear D bit faults stores only.
func TestAccessedDirtyBits(t *testing.T) {
	f := newMMUFixture(t)
	f.enablePaging(PRIV_S)

	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_W)
	f.mmu.Read32(0x00002000)
	if !f.mmu.Invalid() {
		t.Fatal("access with pte.a clear must fault")
	}

	f.mmu.ClearInvalid()
	f.mapPage(0x00002000, MMIO_ADDR_RAM+0x1000, PTE_V|PTE_R|PTE_W|PTE_A)
	f.mmu.Read32(0x00002000)
	if f.mmu.Invalid() {
		t.Fatal("load with pte.a set must not fault")
	}
	f.mmu.Write32(0x00002000, 1)
	if !f.mmu.Invalid() {
		t.Fatal("store with pte.d clear must fault")
	}
}

// TestInvalidPTEs verifies the validity checks of the walk.
func TestInvalidPTEs(t *testing.T) {
	f := newMMUFixture(t)
	f.enablePaging(PRIV_S)

	// v = 0
	f.bus.Write32(rootTablePA, 0)
	f.mmu.Read32(0x00000000)
	if !f.mmu.Invalid() {
		t.Fatal("invalid first-level pte must fault")
	}

	// w without r is reserved
	f.mmu.ClearInvalid()
	f.bus.Write32(rootTablePA, PTE_V|PTE_W)
	f.mmu.Read32(0x00000000)
	if !f.mmu.Invalid() {
		t.Fatal("write-only pte must fault")
	}

	// pointer at the second level
	f.mmu.ClearInvalid()
	f.bus.Write32(rootTablePA, secondTablePA>>12<<10|PTE_V)
	f.bus.Write32(secondTablePA, secondTablePA>>12<<10|PTE_V) // still a pointer
	f.mmu.Read32(0x00000000)
	if !f.mmu.Invalid() {
		t.Fatal("a second-level pointer pte must fault")
	}
}

// TestSuperpageMapping verifies an aligned superpage translates and a
// misaligned one (ppn0 != 0) faults.
func TestSuperpageMapping(t *testing.T) {
	f := newMMUFixture(t)
	f.enablePaging(PRIV_S)

	// map the 4 MiB region at VA 0x00400000 onto the RAM superpage frame:
	// leaf at the first level, ppn1 = 0x80000000 >> 22, ppn0 = 0
	vpn1 := uint32(0x00400000) >> 22
	f.bus.Write32(rootTablePA+vpn1*4, MMIO_ADDR_RAM>>12<<10|PTE_V|PTE_R|PTE_A)
	f.ram.Write32(0x2345*4, 99)

	if got := f.mmu.Read32(0x00400000 | 0x2345*4); got != 99 || f.mmu.Invalid() {
		t.Fatalf("superpage read = %d (invalid=%v), expected 99", got, f.mmu.Invalid())
	}

	// the same mapping with a nonzero ppn0 is a misaligned superpage
	f.mmu.ClearInvalid()
	f.bus.Write32(rootTablePA+vpn1*4, (MMIO_ADDR_RAM>>12|1)<<10|PTE_V|PTE_R|PTE_A)
	f.mmu.Read32(0x00400000)
	if !f.mmu.Invalid() {
		t.Fatal("misaligned superpage must fault")
	}
}

// TestInvalidFlagShortCircuits verifies that once a fault is flagged, every
// later access is suppressed until the flag is cleared.
func TestInvalidFlagShortCircuits(t *testing.T) {
	f := newMMUFixture(t)
	f.ram.Write32(0x100, 7)
	f.enablePaging(PRIV_S)

	f.mmu.Read32(0x00002000) // unmapped, faults
	if !f.mmu.Invalid() {
		t.Fatal("expected a fault")
	}
	// even an identity-translatable M-mode style access is suppressed now
	if got := f.mmu.Read32(MMIO_ADDR_RAM + 0x100); got != 0 {
		t.Fatalf("read after fault = %d, expected short-circuited 0", got)
	}
	f.mmu.Write32(MMIO_ADDR_RAM+0x100, 55)
	if got := f.ram.Read32(0x100); got != 7 {
		t.Fatal("write after fault must be dropped")
	}

	f.mmu.ClearInvalid()
	f.csr.SetCurPriv(PRIV_M)
	if got := f.mmu.Read32(MMIO_ADDR_RAM + 0x100); got != 7 {
		t.Fatalf("read after clear = %d, expected 7", got)
	}
}

// TestLoadPageFaultThroughCore verifies the documented scenario at the core
// level: an LW from U-mode to a non-U page raises a load page fault with the
// virtual address as trap value.
func TestLoadPageFaultThroughCore(t *testing.T) {
	tc := newTestCore(t, nil)
	// tables in RAM: VA 0x2000 -> PA 0x80001000, r=1 x=1 a=1 u=0
	root := uint32(MMIO_ADDR_RAM + 0x4000)
	second := uint32(MMIO_ADDR_RAM + 0x5000)
	tc.bus.Write32(root+0*4, second>>12<<10|PTE_V)
	tc.bus.Write32(second+2*4, (MMIO_ADDR_RAM+0x1000)>>12<<10|PTE_V|PTE_R|PTE_X|PTE_A)
	tc.ram.Write32(0x1000, 1234)
	tc.csr.WriteData(CSR_SATP, SATP_MODE|root>>12)

	// from S-mode the load succeeds
	tc.csr.SetCurPriv(PRIV_S)
	tc.core.SetReg(1, 0x00002000)
	tc.exec(encI(OP_LOAD, 2, F3_LW, 1, 0))
	if got := tc.core.Reg(2); got != 1234 {
		t.Fatalf("S-mode lw = %d, expected 1234", got)
	}

	// from U-mode it faults with tval = the virtual address
	tc.csr.SetCurPriv(PRIV_U)
	tc.exec(encI(OP_LOAD, 3, F3_LW, 1, 0))
	if got := tc.csr.MCause(); got != EXC_LOAD_PAGE_FAULT {
		t.Fatalf("mcause = %d, expected load page fault", got)
	}
	if got := tc.csr.ReadDataForce(CSR_MTVAL); got != 0x00002000 {
		t.Errorf("mtval = 0x%08x, expected the virtual address 0x00002000", got)
	}
	if got := tc.core.Reg(3); got != 0 {
		t.Errorf("x3 = %d, expected the load result to be discarded", got)
	}
}

// TestInstPageFaultOnFetch verifies a fetch from an unmapped page raises an
// instruction page fault with the pc as trap value.
func TestInstPageFaultOnFetch(t *testing.T) {
	tc := newTestCore(t, nil)
	root := uint32(MMIO_ADDR_RAM + 0x4000)
	tc.csr.WriteData(CSR_SATP, SATP_MODE|root>>12)
	tc.csr.SetCurPriv(PRIV_S)
	tc.core.SetPC(0x00002000)
	tc.core.NextCycle()
	if got := tc.csr.MCause(); got != EXC_INST_PAGE_FAULT {
		t.Fatalf("mcause = %d, expected instruction page fault", got)
	}
	if got := tc.csr.ReadDataForce(CSR_MTVAL); got != 0x00002000 {
		t.Errorf("mtval = 0x%08x, expected the fetch address", got)
	}
}

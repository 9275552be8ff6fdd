// memory_devices.go - RAM, ROM and Flash peripherals

package main

// byteStore implements the little-endian byte/halfword/word composition
// shared by every byte-addressable memory device. Accesses beyond the backing
// slice (possible when the bus window is the declared size rounded up to a
// power of two) read as zero and drop writes.
type byteStore struct {
	mem []byte
}

func (s *byteStore) Read8(addr uint32) uint8 {
	if addr >= uint32(len(s.mem)) {
		return 0
	}
	return s.mem[addr]
}

func (s *byteStore) write8(addr uint32, value uint8) {
	if addr < uint32(len(s.mem)) {
		s.mem[addr] = value
	}
}

func (s *byteStore) Read16(addr uint32) uint16 {
	return uint16(s.Read8(addr)) | uint16(s.Read8(addr+1))<<8
}

func (s *byteStore) write16(addr uint32, value uint16) {
	s.write8(addr, uint8(value))
	s.write8(addr+1, uint8(value>>8))
}

func (s *byteStore) Read32(addr uint32) uint32 {
	return uint32(s.Read16(addr)) | uint32(s.Read16(addr+2))<<16
}

func (s *byteStore) write32(addr uint32, value uint32) {
	s.write16(addr, uint16(value))
	s.write16(addr+2, uint16(value>>16))
}

// RAM is plain writable memory.
type RAM struct {
	byteStore
}

func NewRAM(size uint32) *RAM {
	return &RAM{byteStore{mem: make([]byte, size)}}
}

func (r *RAM) Write8(addr uint32, value uint8)   { r.write8(addr, value) }
func (r *RAM) Write16(addr uint32, value uint16) { r.write16(addr, value) }
func (r *RAM) Write32(addr uint32, value uint32) { r.write32(addr, value) }
func (r *RAM) Size() uint32                      { return uint32(len(r.mem)) }

func (r *RAM) Reset() {
	for i := range r.mem {
		r.mem[i] = 0
	}
}

// ROM holds the boot image. Bus writes are silently dropped; the debugger
// patches breakpoint sentinels in through PokeWord instead.
type ROM struct {
	byteStore
}

func NewROM(image []byte) *ROM {
	return &ROM{byteStore{mem: image}}
}

func (r *ROM) Write8(addr uint32, value uint8)   {}
func (r *ROM) Write16(addr uint32, value uint16) {}
func (r *ROM) Write32(addr uint32, value uint32) {}
func (r *ROM) Size() uint32                      { return uint32(len(r.mem)) }

// PokeWord overwrites a word in the image, bypassing the read-only bus view.
func (r *ROM) PokeWord(addr uint32, value uint32) {
	r.write32(addr, value)
}

// Flash is file-backed writable storage mapped at MMIO_ADDR_FLASH.
type Flash struct {
	byteStore
}

func NewFlash(image []byte) *Flash {
	return &Flash{byteStore{mem: image}}
}

func (f *Flash) Write8(addr uint32, value uint8)   { f.write8(addr, value) }
func (f *Flash) Write16(addr uint32, value uint16) { f.write16(addr, value) }
func (f *Flash) Write32(addr uint32, value uint32) { f.write32(addr, value) }
func (f *Flash) Size() uint32                      { return uint32(len(f.mem)) }

// machine.go - Machine assembly and run loop

/*
A Machine wires the full system together: the physical bus with its
peripheral windows, the MMU on top of it, the CSR file, the core, and the
optional debugger overlay. The memory map is fixed:

    0x00001000  ROM (boot image, execution starts here)
    0x10000000  configuration register block
    0x80000000  RAM (-m size)
    0x90000000  GPIO (halt flag + console byte channel)
    0x90010000  CLINT
    0x90020000  Flash (optional, -f image)
    0xfffffff0  debugger MMIO port

The run loop executes cycles until the guest raises the GPIO halt flag; the
process exit status is whatever the guest left in a0.
*/

package main

import (
	"fmt"
	"io"
)

type MachineConfig struct {
	RAMSize    uint32
	ROMImage   []byte
	FlashImage []byte // nil: no flash window
	Debug      bool

	// console endpoints; nil selects the process stdio
	ConsoleIn  io.Reader
	ConsoleOut io.Writer

	// exit hook for the ConfReg exit register; nil selects os.Exit
	ExitFn func(int)
}

type Machine struct {
	bus  *MachineBus
	mmu  *MMU
	csr  *CSR
	core *Core

	rom     *ROM
	ram     *RAM
	flash   *Flash
	gpio    *GPIO
	confReg *ConfReg
	clint   *CLINT

	monitor *Monitor

	components []Resettable
}

func NewMachine(cfg MachineConfig) (*Machine, error) {
	m := &Machine{
		bus:     NewMachineBus(),
		csr:     NewCSR(),
		rom:     NewROM(cfg.ROMImage),
		ram:     NewRAM(cfg.RAMSize),
		gpio:    NewGPIO(cfg.ConsoleIn, cfg.ConsoleOut),
		confReg: NewConfReg(cfg.ConsoleOut, cfg.ExitFn),
		clint:   NewCLINT(),
	}
	if len(cfg.ROMImage) == 0 {
		return nil, fmt.Errorf("machine: empty boot image")
	}

	if err := m.bus.AddPeripheral(MMIO_ADDR_ROM, m.rom); err != nil {
		return nil, err
	}
	if err := m.bus.AddPeripheral(MMIO_ADDR_CONFREG, m.confReg); err != nil {
		return nil, err
	}
	if err := m.bus.AddPeripheral(MMIO_ADDR_RAM, m.ram); err != nil {
		return nil, err
	}
	if err := m.bus.AddPeripheral(MMIO_ADDR_GPIO, m.gpio); err != nil {
		return nil, err
	}
	if err := m.bus.AddPeripheral(MMIO_ADDR_CLINT, m.clint); err != nil {
		return nil, err
	}
	if cfg.FlashImage != nil {
		m.flash = NewFlash(cfg.FlashImage)
		if err := m.bus.AddPeripheral(MMIO_ADDR_FLASH, m.flash); err != nil {
			return nil, err
		}
	}

	m.mmu = NewMMU(m.csr, m.bus)
	m.core = NewCore(m.mmu, m.csr)
	m.core.SetInterruptSources(m.clint.TimerInt(), m.clint.SoftInt(), nil)
	m.csr.SetMTimeSource(m.clint.MTime)

	if cfg.Debug {
		m.monitor = NewMonitor(m.core, m.bus, m.rom)
		if err := m.bus.AddPeripheral(MMIO_ADDR_DEBUGGER, m.monitor.Port()); err != nil {
			return nil, err
		}
	}

	m.components = []Resettable{m.core, m.clint, m.ram, m.gpio}
	return m, nil
}

// Core exposes the hart (tests and the debugger reach in through here).
func (m *Machine) Core() *Core { return m.core }

// Bus exposes the raw physical bus.
func (m *Machine) Bus() *MachineBus { return m.bus }

// CLINT exposes the interrupt controller.
func (m *Machine) CLINT() *CLINT { return m.clint }

// Monitor returns the debugger overlay, or nil when not enabled.
func (m *Machine) Monitor() *Monitor { return m.monitor }

// Reset returns the machine to its power-on state. The ROM image survives.
func (m *Machine) Reset() {
	resetAll(m.components)
}

// Step runs exactly one machine cycle (timer update + one instruction).
func (m *Machine) Step() {
	m.clint.UpdateTimer()
	if m.monitor != nil {
		m.monitor.NextCycle()
	} else {
		m.core.NextCycle()
	}
}

// Run executes until the guest halts and returns the guest's exit status
// (the value of a0 at halt).
func (m *Machine) Run() int {
	for !m.gpio.Halted() {
		m.Step()
	}
	return int(m.core.Reg(10))
}

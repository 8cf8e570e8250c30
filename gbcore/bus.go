package gbcore

import (
	"github.com/corwin-hale/go-dmg/gbcore/addr"
)

// Read resolves address through the bus router described in spec.md
// section 4.1: cartridge ROM/RAM through the mapper, VRAM/OAM through the
// PPU (which enforces its own Drawing/OamScan blocking), WRAM/HRAM/echo
// locally, and every memory-mapped register through the owning component.
// While OAM DMA is active only HRAM is reachable to the CPU; every other
// address reads 0xFF, matching hardware (spec.md section 4.4).
func (e *Emulator) Read(address uint16) byte {
	if e.dma.active && !(address >= 0xFF80 && address <= 0xFFFE) {
		return 0xFF
	}
	return e.routedRead(address)
}

// routedRead is the dispatch table itself, with no DMA-blocking gate. The
// DMA controller reads its own source bytes through this directly (via
// dmaBus below): the gate in Read models what the CPU sees fighting the
// DMA controller for the bus, not a restriction on the DMA transfer's own
// source reads.
func (e *Emulator) routedRead(address uint16) byte {
	switch {
	case address <= 0x7FFF:
		return e.cart.Read(address)
	case address >= 0x8000 && address <= 0x9FFF:
		return e.ppu.Read(address)
	case address >= 0xA000 && address <= 0xBFFF:
		return e.cart.Read(address)
	case address >= 0xC000 && address <= 0xDFFF:
		return e.readWRAM(address)
	case address >= 0xE000 && address <= 0xFDFF:
		return e.readWRAM(address - 0x2000)
	case address >= 0xFE00 && address <= 0xFE9F:
		return e.ppu.Read(address)
	case address >= 0xFEA0 && address <= 0xFEFF:
		return 0xFF
	case address == addr.P1:
		return e.joypad.Read()
	case address == addr.SB || address == addr.SC:
		return e.serial.Read(address)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		return e.timer.Read(address)
	case address == addr.IF:
		return e.interrupts.readIF()
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		return 0xFF
	case address == addr.KEY1:
		return e.readKEY1()
	case address == addr.SVBK:
		return e.wramBank | 0xF8
	case address >= 0xFF40 && address <= 0xFF4B:
		return e.ppu.Read(address)
	case address == addr.VBK || address == addr.BCPS || address == addr.BCPD || address == addr.OCPS || address == addr.OCPD:
		return e.ppu.Read(address)
	case address >= 0xFF80 && address <= 0xFFFE:
		return e.hram[address-0xFF80]
	case address == addr.IE:
		return e.interrupts.readIE()
	default:
		return 0xFF
	}
}

// Write mirrors Read's dispatch. Writes to unmapped or mode-blocked
// addresses are silently dropped, matching hardware (spec.md section 7).
func (e *Emulator) Write(address uint16, value byte) {
	if e.dma.active && !(address >= 0xFF80 && address <= 0xFFFE) {
		return
	}

	switch {
	case address <= 0x7FFF:
		e.cart.Write(address, value)
	case address >= 0x8000 && address <= 0x9FFF:
		e.ppu.Write(address, value)
	case address >= 0xA000 && address <= 0xBFFF:
		e.cart.Write(address, value)
	case address >= 0xC000 && address <= 0xDFFF:
		e.writeWRAM(address, value)
	case address >= 0xE000 && address <= 0xFDFF:
		e.writeWRAM(address-0x2000, value)
	case address >= 0xFE00 && address <= 0xFE9F:
		e.ppu.Write(address, value)
	case address >= 0xFEA0 && address <= 0xFEFF:
		// unusable, writes ignored
	case address == addr.P1:
		e.joypad.Write(value)
	case address == addr.SB || address == addr.SC:
		e.serial.Write(address, value)
	case address == addr.DIV || address == addr.TIMA || address == addr.TMA || address == addr.TAC:
		e.timer.Write(address, value)
	case address == addr.IF:
		e.interrupts.writeIF(value)
	case address >= addr.AudioStart && address <= addr.AudioEnd:
		// APU out of scope; writes accepted and discarded
	case address == addr.DMA:
		e.dma.Start(value)
	case address == addr.KEY1:
		e.writeKEY1(value)
	case address == addr.SVBK:
		if e.cgb {
			e.wramBank = value & 0x07
		}
	case address >= 0xFF40 && address <= 0xFF4B:
		e.ppu.Write(address, value)
	case address == addr.VBK || address == addr.BCPS || address == addr.BCPD || address == addr.OCPS || address == addr.OCPD:
		e.ppu.Write(address, value)
	case address >= 0xFF80 && address <= 0xFFFE:
		e.hram[address-0xFF80] = value
	case address == addr.IE:
		e.interrupts.writeIE(value)
	}
}

// readWRAM/writeWRAM implement the fixed-bank-0 + selectable-bank-1..7
// window described in spec.md section 4.1. On DMG the select register
// never moves off bank 1, so this degenerates to two fixed 4 KiB banks.
func (e *Emulator) readWRAM(address uint16) byte {
	if address < 0xD000 {
		return e.wram[0][address-0xC000]
	}
	return e.wram[e.effectiveWRAMBank()][address-0xD000]
}

func (e *Emulator) writeWRAM(address uint16, value byte) {
	if address < 0xD000 {
		e.wram[0][address-0xC000] = value
		return
	}
	e.wram[e.effectiveWRAMBank()][address-0xD000] = value
}

func (e *Emulator) effectiveWRAMBank() int {
	bank := e.wramBank
	if bank == 0 {
		bank = 1
	}
	return int(bank)
}

// writeOAMDMA lets the dma controller bypass the PPU's own Drawing/OamScan
// access blocking, since a running DMA transfer owns the bus exclusively
// for its duration (spec.md section 4.4).
func (e *Emulator) writeOAMDMA(offset uint8, value byte) {
	e.ppu.WriteOAMRaw(offset, value)
}

// dmaBus is the bus view the DMA controller clocks against: its Read
// bypasses the CPU-facing DMA-active gate in Emulator.Read (the transfer
// must see its own source bytes regardless of the region it started in),
// while writes still land through the same OAM bypass the CPU would use.
type dmaBus struct{ e *Emulator }

func (b dmaBus) Read(address uint16) byte             { return b.e.routedRead(address) }
func (b dmaBus) writeOAMDMA(offset uint8, value byte) { b.e.writeOAMDMA(offset, value) }

func (e *Emulator) readKEY1() byte {
	v := uint8(0x7E)
	if e.doubleSpeed {
		v |= 0x80
	}
	if e.speedSwitchArmed {
		v |= 0x01
	}
	return v
}

func (e *Emulator) writeKEY1(value byte) {
	if !e.cgb {
		return
	}
	e.speedSwitchArmed = value&0x01 != 0
}

// RequestInterrupt implements the small RequestInterrupt interface shared
// by the PPU, timer, joypad, and serial port, so none of them need to
// reach into InterruptState directly (spec.md Design Notes, "Bus-to-
// component references").
func (e *Emulator) RequestInterrupt(i addr.Interrupt) {
	e.interrupts.RequestInterrupt(i)
}

func (e *Emulator) requestTimerInterrupt()  { e.interrupts.RequestInterrupt(addr.TimerInterrupt) }
func (e *Emulator) requestJoypadInterrupt() { e.interrupts.RequestInterrupt(addr.JoypadInterrupt) }

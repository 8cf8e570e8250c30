// Package gbcore implements the deterministic hardware simulator for a
// DMG/CGB-compatible handheld console: CPU fetch/decode/execute, memory
// bus routing, cartridge mapper dispatch, pixel-fetcher PPU, serial link,
// and the master clock that sequences them one T-cycle at a time.
package gbcore

import (
	"fmt"
	"log/slog"

	"github.com/corwin-hale/go-dmg/gbcore/cart"
	"github.com/corwin-hale/go-dmg/gbcore/cpu"
	"github.com/corwin-hale/go-dmg/gbcore/ppu"
	"github.com/corwin-hale/go-dmg/gbcore/serial"
)

// Emulator is the root aggregate (spec.md section 3): it exclusively owns
// every piece of hardware state and is mutated only by Clock and the input
// setters below. There is no internal locking; callers on another thread
// must serialize their own access (spec.md section 5).
type Emulator struct {
	cart *cart.Cartridge
	cpu  *cpu.CPU
	ppu  *ppu.PPU

	serial *serial.Port
	timer  *timer
	joypad *joypad
	dma    dma

	interrupts interruptState

	wram     [8][4096]byte
	wramBank uint8
	hram     [127]byte

	cgb              bool
	doubleSpeed      bool
	speedSwitchArmed bool

	masterClock uint64
}

// New parses rom, builds the matching mapper, and returns a ready
// Emulator. save, if non-nil, is loaded into cartridge RAM before the
// first Clock call. A non-nil error means no Emulator is constructed
// (spec.md section 7: load errors are reported at construction).
func New(rom []byte, save []byte) (*Emulator, error) {
	c, err := cart.Load(rom)
	if err != nil {
		return nil, fmt.Errorf("gbcore: %w", err)
	}
	if save != nil {
		if err := c.LoadSave(save); err != nil {
			return nil, fmt.Errorf("gbcore: loading save data: %w", err)
		}
	}

	e := &Emulator{
		cart: c,
		cpu:  cpu.New(),
		cgb:  c.Header.CGBFlag == 0x80 || c.Header.CGBFlag == 0xC0,
	}
	e.ppu = ppu.New(e, e.cgb)
	e.serial = serial.NewPort(e)
	e.timer = newTimer(e)
	e.joypad = newJoypad(e)
	e.wramBank = 1

	slog.Debug("emulator created", "title", c.Header.Title, "cgb", e.cgb)

	return e, nil
}

// Clock advances every component by exactly one T-cycle (spec.md section
// 2): the PPU advances one dot unconditionally; the CPU advances one
// M-cycle every fourth tick (every second in CGB double-speed); the
// serial port advances its own rate-divided bit clock; the DMA controller
// and timer advance every tick. It returns the completed frame buffer and
// true exactly on the tick where a new frame finishes (VBlank entry).
func (e *Emulator) Clock() (*ppu.FrameBuffer, bool) {
	e.ppu.Clock()
	e.timer.Clock()
	e.dma.Clock(dmaBus{e})
	e.serial.Clock(e.doubleSpeed)

	e.masterClock++
	cpuDivisor := uint64(4)
	if e.doubleSpeed {
		cpuDivisor = 2
	}
	if e.masterClock%cpuDivisor == 0 {
		e.cpu.Clock(e)
		if e.cpu.ConsumeStop() {
			e.commitSpeedSwitch()
		}
	}

	if e.ppu.ConsumeFrame() {
		return e.ppu.FrameBuffer(), true
	}
	return nil, false
}

func (e *Emulator) commitSpeedSwitch() {
	if !e.cgb || !e.speedSwitchArmed {
		return
	}
	e.doubleSpeed = !e.doubleSpeed
	e.speedSwitchArmed = false
}

// SetJoypad presses or releases one physical button, raising the Joypad
// interrupt on a pressed-edge into a selected line (spec.md section 6).
func (e *Emulator) SetJoypad(k Key, pressed bool) {
	if pressed {
		e.joypad.Press(k)
	} else {
		e.joypad.Release(k)
	}
}

// AttachSerialTransport swaps the serial port's transport (spec.md section
// 4.5), e.g. to a socket link or a printer-style line logger.
func (e *Emulator) AttachSerialTransport(t serial.Transport) {
	e.serial.Attach(t)
}

// RequestSave returns a snapshot of cartridge RAM (plus RTC tail for
// MBC3), valid only until the next Clock call (spec.md section 5: save
// data is a borrowed snapshot). Returns nil if the cartridge has no
// battery-backed RAM.
func (e *Emulator) RequestSave() []byte {
	if !e.cart.HasBatteryRAM() {
		return nil
	}
	snap := e.cart.Save()
	e.cart.ClearDirty()
	return snap
}

// SaveDirty reports whether cartridge RAM has changed since the last
// RequestSave call.
func (e *Emulator) SaveDirty() bool { return e.cart.Dirty() }

// FrameBuffer returns the PPU's current frame buffer, valid between ticks.
func (e *Emulator) FrameBuffer() *ppu.FrameBuffer { return e.ppu.FrameBuffer() }

// CPU exposes the CPU for diagnostics and tests.
func (e *Emulator) CPU() *cpu.CPU { return e.cpu }

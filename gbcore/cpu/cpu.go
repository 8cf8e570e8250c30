// Package cpu implements the LR35902 fetch/decode/execute engine: register
// file, bit-pattern instruction decoder, and the M-cycle state machine that
// drives them from the shared master clock.
package cpu

import "github.com/corwin-hale/go-dmg/gbcore/addr"

// Bus is the minimal memory-mapped interface the CPU needs. It never
// performs accesses wider than one byte; 16-bit operations are lowered to
// two byte accesses in little-endian order by the instructions that need
// them.
type Bus interface {
	Read(address uint16) byte
	Write(address uint16, value byte)
}

type runState uint8

const (
	stateFetch runState = iota
	stateRun
	stateStall
)

// CPU holds all LR35902 register state and the fetch/execute pipeline.
type CPU struct {
	af, bc, de, hl Register16
	sp, pc         Register16

	ime       bool
	eiPending bool
	halted    bool
	stopped   bool

	state     runState
	remaining int // M-cycles left in the current state
	latch     Opcode
}

// New returns a CPU with the post-boot-ROM register state a DMG leaves
// behind (the core has no boot ROM emulation, a spec.md Non-goal, so
// execution starts exactly where the boot ROM would have handed off).
func New() *CPU {
	c := &CPU{}
	c.af.set(0x01B0)
	c.bc.set(0x0013)
	c.de.set(0x00D8)
	c.hl.set(0x014D)
	c.sp.set(0xFFFE)
	c.pc.set(0x0100)
	c.state = stateFetch
	return c
}

// Clock advances the CPU by exactly one M-cycle (spec.md section 4.2).
func (c *CPU) Clock(bus Bus) {
	if c.halted {
		if c.interruptsPending(bus) {
			c.halted = false
		} else {
			return
		}
	}

	switch c.state {
	case stateFetch:
		c.fetchCycle(bus)
	case stateRun:
		c.remaining--
		if c.remaining == 0 {
			extra := c.execute(bus, c.latch)
			c.enterStall(extra)
		}
	case stateStall:
		c.remaining--
		if c.remaining <= 0 {
			c.state = stateFetch
		}
	}
}

func (c *CPU) fetchCycle(bus Bus) {
	if c.ime {
		if c.serviceInterrupt(bus) {
			return
		}
	}

	op := c.fetchDecode(bus)

	// EI's IME takes effect after the instruction following EI has been
	// fetched, so that instruction still runs with interrupts disabled and
	// only the fetch after it can be preempted (spec.md section 4.2).
	if c.eiPending {
		c.ime = true
		c.eiPending = false
	}

	c.latch = op
	m := op.Cycles / 4
	if m <= 1 {
		extra := c.execute(bus, op)
		c.enterStall(extra)
		return
	}
	c.remaining = m - 1
	c.state = stateRun
}

func (c *CPU) enterStall(extraT int) {
	m := extraT / 4
	if m <= 0 {
		c.state = stateFetch
		return
	}
	c.remaining = m
	c.state = stateStall
}

func (c *CPU) fetchDecode(bus Bus) Opcode {
	b := bus.Read(c.pc.get())
	c.pc.incr()
	if b == 0xCB {
		cb := bus.Read(c.pc.get())
		c.pc.incr()
		return DecodeCB(cb)
	}
	return Decode(b)
}

func (c *CPU) interruptsPending(bus Bus) bool {
	return bus.Read(addr.IE)&bus.Read(addr.IF)&0x1F != 0
}

// serviceInterrupt services the highest-priority pending interrupt if IME
// is set and (IE & IF) != 0, consuming 5 M-cycles (spec.md section 4.2).
// Returns true if an interrupt was serviced this call.
func (c *CPU) serviceInterrupt(bus Bus) bool {
	pending := bus.Read(addr.IE) & bus.Read(addr.IF) & 0x1F
	if pending == 0 {
		return false
	}

	var bit addr.Interrupt
	switch {
	case pending&uint8(addr.VBlankInterrupt) != 0:
		bit = addr.VBlankInterrupt
	case pending&uint8(addr.LCDSTATInterrupt) != 0:
		bit = addr.LCDSTATInterrupt
	case pending&uint8(addr.TimerInterrupt) != 0:
		bit = addr.TimerInterrupt
	case pending&uint8(addr.SerialInterrupt) != 0:
		bit = addr.SerialInterrupt
	default:
		bit = addr.JoypadInterrupt
	}

	bus.Write(addr.IF, bus.Read(addr.IF)&^uint8(bit))
	c.ime = false
	c.pushStack(bus, c.pc.get())
	c.pc.set(addr.InterruptVector(bit))

	c.latch = Opcode{}
	c.enterStall(20 - 4) // this call is M-cycle 1 of 5
	return true
}

// ConsumeStop reports and clears whether a STOP instruction executed since
// the last call, so the Emulator can commit a pending CGB speed switch.
func (c *CPU) ConsumeStop() bool {
	v := c.stopped
	c.stopped = false
	return v
}

// --- accessors used by the Emulator / tests ---

func (c *CPU) PC() uint16 { return c.pc.get() }
func (c *CPU) SP() uint16 { return c.sp.get() }
func (c *CPU) AF() uint16 { return c.af.get() }
func (c *CPU) BC() uint16 { return c.bc.get() }
func (c *CPU) DE() uint16 { return c.de.get() }
func (c *CPU) HL() uint16 { return c.hl.get() }
func (c *CPU) A() uint8   { return c.af.high() }
func (c *CPU) F() uint8   { return c.af.low() }
func (c *CPU) IME() bool  { return c.ime }
func (c *CPU) Halted() bool { return c.halted }

func (c *CPU) SetPC(v uint16) { c.pc.set(v) }
func (c *CPU) SetSP(v uint16) { c.sp.set(v) }
func (c *CPU) SetAF(v uint16) { c.af.set(v & 0xFFF0) }
func (c *CPU) SetBC(v uint16) { c.bc.set(v) }
func (c *CPU) SetDE(v uint16) { c.de.set(v) }
func (c *CPU) SetHL(v uint16) { c.hl.set(v) }
func (c *CPU) SetIME(v bool)  { c.ime = v }

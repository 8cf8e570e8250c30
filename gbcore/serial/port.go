// Package serial implements the link-cable state machine: SB/SC register
// access, the Idle/Transferring bit-shift state machine, and a pluggable
// Transport for whatever sits on the other end of the cable (nothing, a
// printer-style line logger, or another emulator instance over a socket).
package serial

import (
	"log/slog"

	"github.com/corwin-hale/go-dmg/gbcore/addr"
)

const (
	bitsPerByte      = 8
	divideNormal     = 4194304 / 8192   // T-cycles per bit at 8192 Hz
	divideFast       = 4194304 / 262144 // T-cycles per bit at 262144 Hz (CGB double-speed)
	controlUnused    = 0x7C
	controlMaster    = 0x01
	controlFast      = 0x02
	controlStart     = 0x80
	printLineMax     = 64
)

// State is the serial port's Idle/Transferring state machine (spec.md
// section 4.5).
type State uint8

const (
	StateIdle State = iota
	StateTransferring
)

// IRQRequester lets the port raise the Serial interrupt on completion.
type IRQRequester interface {
	RequestInterrupt(addr.Interrupt)
}

// Port is the serial link peripheral: register access plus the bit-shift
// state machine that moves one byte to/from the attached Transport.
type Port struct {
	irq       IRQRequester
	transport Transport

	sb, sc byte

	state     State
	downscale int
	bitCycle  int
	recvLatch byte

	skipHandshake bool
}

// NewPort returns a serial port with no transport attached (equivalent to
// an unplugged link cable; reads return 0xFF after any attempted transfer).
func NewPort(irq IRQRequester) *Port {
	return &Port{
		irq:       irq,
		transport: NullTransport{},
		sc:        controlUnused | controlFast,
	}
}

// Attach replaces the port's transport. Passing a *PrinterTransport routes
// outgoing bytes to the line-buffered logger instead of a socket peer.
func (p *Port) Attach(t Transport) { p.transport = t }

func (p *Port) Read(address uint16) byte {
	switch address {
	case addr.SB:
		return p.sb
	case addr.SC:
		return p.sc
	default:
		return 0xFF
	}
}

func (p *Port) Write(address uint16, value byte) {
	switch address {
	case addr.SB:
		p.sb = value
	case addr.SC:
		p.sc = value | controlUnused
		if p.state == StateIdle && p.sc&controlStart != 0 {
			p.state = StateTransferring
			p.bitCycle = 0
			p.downscale = 0
		}
	}
}

// Clock advances the serial port by one T-cycle. The bit clock is divided
// down from the master clock (8192 Hz normal, 262144 Hz in CGB double
// speed, selected by SC bit 1) the same way the original downscales
// freq_downscale_cycle before touching bit_cycle.
func (p *Port) Clock(doubleSpeed bool) {
	if p.state != StateTransferring {
		return
	}

	divisor := divideNormal
	if p.sc&controlFast != 0 && doubleSpeed {
		divisor = divideFast
	}

	p.downscale++
	if p.downscale < divisor {
		return
	}
	p.downscale = 0

	p.stepBit()
}

// stepBit advances the bit counter by one divided tick. The transport is
// only exchanged once per byte, on the first bit (spec.md section 4.5:
// "master sends first, then receives"); a would-block result retries the
// same bit slot on the next divided tick without advancing bitCycle,
// grounded on the original's run_socket gating the exchange on
// bit_cycle == 0 (_examples/original_source/gband/src/serial.rs).
func (p *Port) stepBit() {
	if p.bitCycle == 0 {
		if err := p.runLinked(); err != nil {
			if err == ErrWouldBlock {
				return
			}
			slog.Warn("serial: transport fault, transfer abandoned", "error", err)
			p.abandonTransfer()
			return
		}
	}

	p.bitCycle++
	if p.bitCycle < bitsPerByte {
		return
	}

	p.bitCycle = 0
	p.sb = p.recvLatch
	p.sc &^= controlStart
	p.state = StateIdle
	p.irq.RequestInterrupt(addr.SerialInterrupt)
}

// resetter lets a Transport drop connection-level state (a listening or
// connected socket) so the next transfer starts a fresh connection attempt.
type resetter interface{ Reset() }

// abandonTransfer implements the non-WouldBlock branch of spec.md section
// 4.5 ("On transport error, abandon the transfer and leave SB undefined")
// and section 7 ("the serial module resets its bit counter and drops any
// listener/socket state so that the next transfer retries connection").
func (p *Port) abandonTransfer() {
	p.bitCycle = 0
	p.downscale = 0
	p.skipHandshake = false
	p.state = StateIdle
	p.sc &^= controlStart
	if r, ok := p.transport.(resetter); ok {
		r.Reset()
	}
}

// runLinked shuttles one byte with whatever Transport is attached,
// following the master/slave send-then-recv (or recv-then-send) order
// from _examples/original_source/gband/src/serial.rs's run_socket.
func (p *Port) runLinked() error {
	if p.sc&controlMaster != 0 {
		if !p.skipHandshake {
			if err := p.transport.Send(p.sb); err != nil {
				return err
			}
		}
		b, err := p.transport.Recv()
		if err != nil {
			if err == ErrWouldBlock {
				p.skipHandshake = true
			}
			return err
		}
		p.skipHandshake = false
		p.recvLatch = b
		return nil
	}

	b, err := p.transport.Recv()
	if err != nil {
		return err
	}
	p.recvLatch = b
	return p.transport.Send(p.sb)
}

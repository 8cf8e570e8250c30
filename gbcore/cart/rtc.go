package cart

import "time"

// RTC models the MBC3 real-time clock: seconds, minutes, hours, and a
// 9-bit day counter (low byte + high byte carrying bit 8, halt, and
// day-overflow carry). It runs off wall-clock time from a base instant,
// the common approach for cartridges with a battery-backed clock.
type RTC struct {
	base    time.Time
	halted  bool
	haltAcc time.Duration // accumulated elapsed time while halted, frozen

	// Latched snapshot, visible to reads until the next latch pulse.
	latched     [5]byte
	latchStage  byte // tracks the 0x00-then-0x01 write sequence
	dayOverflow bool
}

func NewRTC() *RTC {
	return &RTC{base: time.Now()}
}

func (r *RTC) elapsed() time.Duration {
	if r.halted {
		return r.haltAcc
	}
	return time.Since(r.base)
}

func (r *RTC) Latch() {
	d := r.elapsed()
	totalSeconds := int64(d.Seconds())
	seconds := totalSeconds % 60
	minutes := (totalSeconds / 60) % 60
	hours := (totalSeconds / 3600) % 24
	days := totalSeconds / 86400

	if days > 0x1FF {
		r.dayOverflow = true
		days %= 0x200
	}

	r.latched[0] = byte(seconds)
	r.latched[1] = byte(minutes)
	r.latched[2] = byte(hours)
	r.latched[3] = byte(days & 0xFF)
	dh := byte((days >> 8) & 0x01)
	if r.halted {
		dh |= 0x40
	}
	if r.dayOverflow {
		dh |= 0x80
	}
	r.latched[4] = dh
}

// WriteLatchTrigger feeds the 0x6000-0x7FFF latch sequence (write 0x00 then
// write 0x01 pulses the latch).
func (r *RTC) WriteLatchTrigger(value byte) {
	if value == 0x00 {
		r.latchStage = 0x00
	} else if value == 0x01 && r.latchStage == 0x00 {
		r.Latch()
	}
	r.latchStage = value
}

// ReadRegister returns one of the latched S/M/H/DL/DH bytes (index 0-4).
func (r *RTC) ReadRegister(index int) byte {
	return r.latched[index]
}

// WriteRegister sets one of the visible RTC registers directly. Only a DH
// write (index 4) affects the running clock: its halt bit freezes or
// resumes it and its carry bit sets the day-overflow flag. Writes to S, M,
// H and DL change the visible byte only; the running clock is not rebased,
// so the next latch replaces them with the clock's own values.
func (r *RTC) WriteRegister(index int, value byte) {
	r.latched[index] = value
	switch index {
	case 4:
		wasHalted := r.halted
		r.halted = value&0x40 != 0
		r.dayOverflow = value&0x80 != 0
		if r.halted && !wasHalted {
			r.haltAcc = time.Since(r.base)
		} else if !r.halted && wasHalted {
			r.base = time.Now().Add(-r.haltAcc)
		}
	}
}

// Snapshot returns the five RTC bytes plus a reference unix timestamp, for
// save-file persistence.
func (r *RTC) Snapshot() (regs [5]byte, unixSeconds int64) {
	r.Latch()
	return r.latched, time.Now().Unix()
}

// Restore loads RTC state from a save file's appended RTC tail. A missing
// tail is tolerated by the caller (RTC simply resets, per spec.md section 6).
func (r *RTC) Restore(regs [5]byte, unixSeconds int64) {
	elapsedSinceSave := time.Now().Unix() - unixSeconds
	if elapsedSinceSave < 0 {
		elapsedSinceSave = 0
	}

	seconds := int64(regs[0]) + int64(regs[1])*60 + int64(regs[2])*3600 + int64(regs[3])*86400 + int64(regs[4]&0x01)*0x100*86400
	seconds += elapsedSinceSave

	r.halted = regs[4]&0x40 != 0
	r.dayOverflow = regs[4]&0x80 != 0
	if r.halted {
		r.haltAcc = time.Duration(seconds) * time.Second
	} else {
		r.base = time.Now().Add(-time.Duration(seconds) * time.Second)
	}
	r.Latch()
}

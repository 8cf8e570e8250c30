// Package cart decodes a Game Boy cartridge header and routes reads and
// writes through the matching memory-bank-controller variant.
package cart

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// Cartridge owns the raw ROM image, any external RAM, and the mapper that
// arbitrates access to both.
type Cartridge struct {
	Header Header

	rom []byte
	ram []byte

	mapper Mapper
	dirty  bool
}

// Load parses a header, builds the matching mapper, and returns a ready
// Cartridge. A non-nil error means no Emulator should be constructed.
func Load(rom []byte) (*Cartridge, error) {
	header, err := ParseHeader(rom)
	if err != nil {
		return nil, err
	}

	c := &Cartridge{
		Header: header,
		rom:    rom,
		ram:    make([]byte, header.RAMSize),
	}

	switch header.Kind {
	case KindNoMapper:
		c.mapper = NewNoMapper(header.HasRAM)
	case KindMBC1:
		c.mapper = NewMBC1(header.ROMBankCount, header.RAMBankCount)
	case KindMBC2:
		c.ram = make([]byte, 512)
		c.mapper = NewMBC2(header.ROMBankCount)
	case KindMBC3:
		c.mapper = NewMBC3(header.ROMBankCount, header.RAMBankCount, header.HasRTC)
	case KindMBC5:
		c.mapper = NewMBC5(header.ROMBankCount, header.RAMBankCount)
	default:
		return nil, fmt.Errorf("cart: unhandled mapper kind %v", header.Kind)
	}

	slog.Debug("cartridge loaded", "title", header.Title, "kind", header.Kind, "romBanks", header.ROMBankCount, "ramBytes", header.RAMSize, "battery", header.HasBattery, "rtc", header.HasRTC)

	return c, nil
}

// Read resolves addr through the mapper to ROM, RAM, or open bus (0xFF).
func (c *Cartridge) Read(addr uint16) byte {
	if mbc3, ok := c.mapper.(*MBC3); ok {
		if idx, sel := mbc3.RTCSelected(); sel && addr >= 0xA000 && addr <= 0xBFFF {
			if rtc := mbc3.RTC(); rtc != nil {
				return rtc.ReadRegister(idx)
			}
			return 0xFF
		}
	}

	mapped := c.mapper.MapRead(addr)
	switch mapped.Space {
	case SpaceROM:
		if mapped.Offset < 0 || mapped.Offset >= len(c.rom) {
			return 0xFF
		}
		return c.rom[mapped.Offset]
	case SpaceRAM:
		if mapped.Offset < 0 || mapped.Offset >= len(c.ram) {
			return 0xFF
		}
		v := c.ram[mapped.Offset]
		if mbc2, ok := c.mapper.(*MBC2); ok {
			v = mbc2.MaskRAMRead(v)
		}
		return v
	default:
		return 0xFF
	}
}

// Write routes a byte through the mapper. Writes that land in RAM are
// applied here and mark the cartridge dirty for save purposes; all other
// writes are control writes fully consumed by the mapper.
func (c *Cartridge) Write(addr uint16, value byte) {
	offset, ok := c.mapper.MapWrite(addr, value)
	if ok && offset >= 0 && offset < len(c.ram) {
		c.ram[offset] = value
		c.dirty = true
	}
}

// Dirty reports whether RAM has been written since the last call to
// ClearDirty, so callers can avoid needless disk I/O.
func (c *Cartridge) Dirty() bool { return c.dirty }

// ClearDirty resets the dirty flag after a save has been persisted.
func (c *Cartridge) ClearDirty() { c.dirty = false }

// HasBatteryRAM reports whether this cartridge's RAM should be persisted.
func (c *Cartridge) HasBatteryRAM() bool {
	return c.Header.HasBattery && len(c.ram) > 0
}

// Save returns a snapshot of cartridge RAM (plus, for MBC3 with an RTC, the
// five RTC registers and a reference timestamp appended), per spec.md
// section 6. The snapshot is only valid until the next tick — the caller
// must copy it before resuming emulation.
func (c *Cartridge) Save() []byte {
	out := make([]byte, len(c.ram))
	copy(out, c.ram)

	if mbc3, ok := c.mapper.(*MBC3); ok {
		if rtc := mbc3.RTC(); rtc != nil {
			regs, ts := rtc.Snapshot()
			tail := make([]byte, 5+8)
			copy(tail, regs[:])
			binary.LittleEndian.PutUint64(tail[5:], uint64(ts))
			out = append(out, tail...)
		}
	}

	return out
}

// LoadSave restores cartridge RAM from a save file. A missing or short RTC
// tail is tolerated: the RTC simply resets to the current wall-clock time.
func (c *Cartridge) LoadSave(data []byte) error {
	ramLen := len(c.ram)
	if len(data) < ramLen {
		return fmt.Errorf("cart: save data too short: got %d bytes, want at least %d", len(data), ramLen)
	}
	copy(c.ram, data[:ramLen])

	if mbc3, ok := c.mapper.(*MBC3); ok {
		if rtc := mbc3.RTC(); rtc != nil {
			tail := data[ramLen:]
			if len(tail) >= 5+8 {
				var regs [5]byte
				copy(regs[:], tail[:5])
				ts := int64(binary.LittleEndian.Uint64(tail[5:13]))
				rtc.Restore(regs, ts)
			}
		}
	}

	return nil
}

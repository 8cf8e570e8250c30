package cart

// MBC1 implements the first and most common banking chip: a 5-bit primary
// ROM bank register, a 2-bit secondary register shared between RAM banking
// and the upper ROM bank bits, and a banking-mode flag that picks which
// role the secondary register plays.
//
// Per the platform reference (spec.md section 9, open question on MBC1):
// the secondary register only perturbs the ROM bank number on cartridges
// larger than 512KiB (i.e. more than 32 ROM banks); on smaller ROMs it only
// ever selects a RAM bank.
type MBC1 struct {
	romBankCount int
	ramBankCount int

	ramEnabled bool
	romBank    uint8 // 5 bits, writes to 0x2000-0x3FFF
	secondary  uint8 // 2 bits, writes to 0x4000-0x5FFF
	mode       uint8 // 1 bit, writes to 0x6000-0x7FFF
}

func NewMBC1(romBankCount, ramBankCount int) *MBC1 {
	return &MBC1{romBankCount: romBankCount, ramBankCount: ramBankCount, romBank: 1}
}

func (m *MBC1) usesUpperBits() bool {
	return m.romBankCount > 32
}

func (m *MBC1) lowerBank() int {
	bank := int(m.romBank)
	if bank == 0 {
		bank = 1
	}
	if m.usesUpperBits() {
		bank |= int(m.secondary) << 5
	}
	return bank % m.romBankCount
}

func (m *MBC1) zeroBank() int {
	// On a ROM with more than 32 banks, mode 1 lets the secondary register
	// map bank 0x20/0x40/0x60 into the 0x0000-0x3FFF window; otherwise that
	// window always holds bank 0.
	if m.mode == 1 && m.usesUpperBits() {
		return (int(m.secondary) << 5) % m.romBankCount
	}
	return 0
}

func (m *MBC1) ramBank() int {
	if m.mode == 1 && !m.usesUpperBits() && m.ramBankCount > 0 {
		return int(m.secondary) % m.ramBankCount
	}
	return 0
}

func (m *MBC1) MapRead(addr uint16) MappedAddr {
	switch {
	case addr <= 0x3FFF:
		return MappedAddr{Space: SpaceROM, Offset: romOffset(m.zeroBank(), int(addr), 0x4000)}
	case addr <= 0x7FFF:
		return MappedAddr{Space: SpaceROM, Offset: romOffset(m.lowerBank(), int(addr-0x4000), 0x4000)}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || m.ramBankCount == 0 {
			return MappedAddr{Space: SpaceOpenBus}
		}
		return MappedAddr{Space: SpaceRAM, Offset: romOffset(m.ramBank(), int(addr-0xA000), 0x2000)}
	default:
		return MappedAddr{Space: SpaceOpenBus}
	}
}

func (m *MBC1) MapWrite(addr uint16, value byte) (int, bool) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x3FFF:
		m.romBank = value & 0x1F
	case addr <= 0x5FFF:
		m.secondary = value & 0x03
	case addr <= 0x7FFF:
		m.mode = value & 0x01
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled && m.ramBankCount > 0 {
			return romOffset(m.ramBank(), int(addr-0xA000), 0x2000), true
		}
	}
	return 0, false
}

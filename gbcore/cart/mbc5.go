package cart

// MBC5 has a 9-bit ROM bank register split across two write windows (low
// 8 bits at 0x2000-0x2FFF, bit 8 at 0x3000-0x3FFF) and a 4-bit RAM bank.
// Unlike MBC1/2/3, bank 0 is addressable directly in the high window: there
// is no 0-to-1 remap (grounded on
// _examples/original_source/gband/src/cartridge/mappers/mbc5.rs).
type MBC5 struct {
	romBankCount int
	ramBankCount int

	ramEnabled bool
	romBankLo  uint8
	romBankHi  uint8 // bit 8 only
	ramBank    uint8 // 4 bits
}

func NewMBC5(romBankCount, ramBankCount int) *MBC5 {
	return &MBC5{romBankCount: romBankCount, ramBankCount: ramBankCount, romBankLo: 1}
}

func (m *MBC5) bank() int {
	bank := int(m.romBankHi)<<8 | int(m.romBankLo)
	return bank % m.romBankCount
}

func (m *MBC5) MapRead(addr uint16) MappedAddr {
	switch {
	case addr <= 0x3FFF:
		return MappedAddr{Space: SpaceROM, Offset: int(addr)}
	case addr <= 0x7FFF:
		return MappedAddr{Space: SpaceROM, Offset: romOffset(m.bank(), int(addr-0x4000), 0x4000)}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled || m.ramBankCount == 0 {
			return MappedAddr{Space: SpaceOpenBus}
		}
		return MappedAddr{Space: SpaceRAM, Offset: romOffset(int(m.ramBank)%m.ramBankCount, int(addr-0xA000), 0x2000)}
	default:
		return MappedAddr{Space: SpaceOpenBus}
	}
}

func (m *MBC5) MapWrite(addr uint16, value byte) (int, bool) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x2FFF:
		m.romBankLo = value
	case addr <= 0x3FFF:
		m.romBankHi = value & 0x01
	case addr <= 0x5FFF:
		m.ramBank = value & 0x0F
	case addr >= 0xA000 && addr <= 0xBFFF:
		if m.ramEnabled && m.ramBankCount > 0 {
			return romOffset(int(m.ramBank)%m.ramBankCount, int(addr-0xA000), 0x2000), true
		}
	}
	return 0, false
}

package cart

// MBC3 has a 7-bit ROM bank register (0 remaps to 1) and a 2-bit register
// that selects either a RAM bank (0x00-0x03) or, for values 0x08-0x0C, one
// of the five real-time-clock registers. Writing 0x00 then 0x01 to
// 0x6000-0x7FFF latches the running clock into the visible RTC registers.
type MBC3 struct {
	romBankCount int
	ramBankCount int
	hasRTC       bool

	ramEnabled bool
	romBank    uint8 // 7 bits
	select_    uint8 // RAM bank (0-3) or RTC register select (0x08-0x0C)

	rtc *RTC
}

func NewMBC3(romBankCount, ramBankCount int, hasRTC bool) *MBC3 {
	m := &MBC3{romBankCount: romBankCount, ramBankCount: ramBankCount, hasRTC: hasRTC, romBank: 1}
	if hasRTC {
		m.rtc = NewRTC()
	}
	return m
}

func (m *MBC3) RTC() *RTC { return m.rtc }

func (m *MBC3) bank() int {
	bank := int(m.romBank)
	if bank == 0 {
		bank = 1
	}
	return bank % m.romBankCount
}

// RTCSelected reports whether the RAM-bank-select register currently
// addresses one of the RTC registers (0x08-0x0C) rather than a RAM bank,
// so the Cartridge can route the access to the RTC instead of RAM.
func (m *MBC3) RTCSelected() (index int, ok bool) {
	if m.hasRTC && m.select_ >= 0x08 && m.select_ <= 0x0C {
		return int(m.select_ - 0x08), true
	}
	return 0, false
}

func (m *MBC3) MapRead(addr uint16) MappedAddr {
	switch {
	case addr <= 0x3FFF:
		return MappedAddr{Space: SpaceROM, Offset: int(addr)}
	case addr <= 0x7FFF:
		return MappedAddr{Space: SpaceROM, Offset: romOffset(m.bank(), int(addr-0x4000), 0x4000)}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return MappedAddr{Space: SpaceOpenBus}
		}
		if _, ok := m.RTCSelected(); ok {
			return MappedAddr{Space: SpaceOpenBus} // caller special-cases RTCSelected first
		}
		if m.ramBankCount == 0 {
			return MappedAddr{Space: SpaceOpenBus}
		}
		return MappedAddr{Space: SpaceRAM, Offset: romOffset(int(m.select_)%m.ramBankCount, int(addr-0xA000), 0x2000)}
	default:
		return MappedAddr{Space: SpaceOpenBus}
	}
}

func (m *MBC3) MapWrite(addr uint16, value byte) (int, bool) {
	switch {
	case addr <= 0x1FFF:
		m.ramEnabled = (value & 0x0F) == 0x0A
	case addr <= 0x3FFF:
		m.romBank = value & 0x7F
	case addr <= 0x5FFF:
		m.select_ = value
	case addr <= 0x7FFF:
		if m.rtc != nil {
			m.rtc.WriteLatchTrigger(value)
		}
	case addr >= 0xA000 && addr <= 0xBFFF:
		if !m.ramEnabled {
			return 0, false
		}
		if idx, ok := m.RTCSelected(); ok {
			if m.rtc != nil {
				m.rtc.WriteRegister(idx, value)
			}
			return 0, false
		}
		if m.ramBankCount > 0 {
			return romOffset(int(m.select_)%m.ramBankCount, int(addr-0xA000), 0x2000), true
		}
	}
	return 0, false
}

package ppu

import "github.com/corwin-hale/go-dmg/gbcore/addr"

// vramBank adapts one VRAM bank to the vramReader interface the fetcher
// and sprite-tile lookup use internally; it always has access regardless
// of the CPU-visible blocking rules below.
type vramBank struct {
	p    *PPU
	bank int
}

func (v vramBank) Read(a uint16) byte { return v.p.vram[v.bank][a-0x8000] }

type oamInternalBus struct{ p *PPU }

func (o oamInternalBus) Read(a uint16) byte { return o.p.oam[a-addr.OAMStart] }

// Read services a CPU/DMA-visible memory access. VRAM is inaccessible
// (reads as 0xFF) while Mode is Drawing, and OAM is inaccessible during
// OamScan and Drawing, matching hardware (spec.md section 4.3).
func (p *PPU) Read(address uint16) byte {
	switch {
	case address >= 0x8000 && address < 0xA000:
		if p.mode == ModeDrawing {
			return 0xFF
		}
		return p.vram[p.vbk][address-0x8000]
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if p.mode == ModeOamScan || p.mode == ModeDrawing {
			return 0xFF
		}
		return p.oam[address-addr.OAMStart]
	}

	switch address {
	case addr.LCDC:
		return p.lcdc
	case addr.STAT:
		return 0x80 | p.stat | uint8(p.mode)
	case addr.SCY:
		return p.scy
	case addr.SCX:
		return p.scx
	case addr.LY:
		return p.ly
	case addr.LYC:
		return p.lyc
	case addr.BGP:
		return p.bgp
	case addr.OBP0:
		return p.obp0
	case addr.OBP1:
		return p.obp1
	case addr.WY:
		return p.wy
	case addr.WX:
		return p.wx
	case addr.VBK:
		return p.vbk | 0xFE
	case addr.BCPS:
		return p.bcps
	case addr.BCPD:
		return p.bgPalRAM[p.bcps&0x3F]
	case addr.OCPS:
		return p.ocps
	case addr.OCPD:
		return p.objPalRAM[p.ocps&0x3F]
	default:
		return 0xFF
	}
}

// Write services a CPU/DMA-visible memory write under the same blocking
// rules as Read. A write to LY is ignored (read-only hardware register).
func (p *PPU) Write(address uint16, value byte) {
	switch {
	case address >= 0x8000 && address < 0xA000:
		if p.mode == ModeDrawing {
			return
		}
		p.vram[p.vbk][address-0x8000] = value
		return
	case address >= addr.OAMStart && address <= addr.OAMEnd:
		if p.mode == ModeOamScan || p.mode == ModeDrawing {
			return
		}
		p.oam[address-addr.OAMStart] = value
		return
	}

	switch address {
	case addr.LCDC:
		wasOn := p.lcdc&0x80 != 0
		p.lcdc = value
		if wasOn && value&0x80 == 0 {
			p.ly = 0
			p.mode = ModeHBlank
		} else if !wasOn && value&0x80 != 0 {
			p.mode = ModeOamScan
			p.scan.reset()
			p.dot = 0
		}
	case addr.STAT:
		p.stat = (p.stat & 0x07) | (value &^ 0x07)
	case addr.SCY:
		p.scy = value
	case addr.SCX:
		p.scx = value
	case addr.LYC:
		p.lyc = value
	case addr.BGP:
		p.bgp = value
	case addr.OBP0:
		p.obp0 = value
	case addr.OBP1:
		p.obp1 = value
	case addr.WY:
		p.wy = value
	case addr.WX:
		p.wx = value
	case addr.VBK:
		if p.cgb {
			p.vbk = value & 0x01
		}
	case addr.BCPS:
		p.bcps = value & 0xBF
	case addr.BCPD:
		idx := p.bcps & 0x3F
		p.bgPalRAM[idx] = value
		if p.bcps&0x80 != 0 {
			p.bcps = 0x80 | ((idx + 1) & 0x3F)
		}
	case addr.OCPS:
		p.ocps = value & 0xBF
	case addr.OCPD:
		idx := p.ocps & 0x3F
		p.objPalRAM[idx] = value
		if p.ocps&0x80 != 0 {
			p.ocps = 0x80 | ((idx + 1) & 0x3F)
		}
	}
}

// WriteOAMRaw bypasses the blocking rules above; used by the root
// Emulator's OAM DMA controller, which has exclusive bus access for its
// whole transfer and is not subject to the PPU's own access windows.
func (p *PPU) WriteOAMRaw(offset uint8, value byte) {
	p.oam[offset] = value
}

// Package ppu implements the pixel-fetcher PPU: OAM scan, a background/
// window pixel fetcher with its own FIFO, sprite overlay, and the mode/STAT
// state machine that drives them one dot (T-cycle) at a time.
package ppu

import "github.com/corwin-hale/go-dmg/gbcore/addr"

// Mode is the PPU's current rendering stage, mirroring STAT bits 1-0 and
// tagged the way the Rust reference's FifoMode enum is
// (_examples/original_source/gband/src/ppu/fifo_mode.rs): OamScan and
// Drawing carry their own sub-state.
type Mode uint8

const (
	ModeHBlank Mode = iota
	ModeVBlank
	ModeOamScan
	ModeDrawing
)

const (
	dotsPerLine  = 456
	oamScanDots  = 80
	linesPerFrame = 154
)

// IRQRequester lets the PPU raise VBlank/LCDSTAT without depending on the
// root Emulator's interrupt state directly.
type IRQRequester interface {
	RequestInterrupt(addr.Interrupt)
}

// PPU owns VRAM, OAM, the LCD registers, and the fetcher/FIFO pipeline.
type PPU struct {
	irq IRQRequester

	vram    [2][0x2000]byte
	vbk     uint8
	oam     [160]byte
	cgb     bool

	lcdc, stat             uint8
	scy, scx               uint8
	ly, lyc                uint8
	wy, wx                 uint8
	bgp, obp0, obp1        uint8
	bcps, ocps             uint8
	bgPalRAM, objPalRAM    [64]byte

	mode Mode
	dot  int

	scan            oamScan
	lineSprite      spritePriority
	fetcher         fetcher
	windowLine      int
	windowDrew      bool
	windowTriggered bool

	pixelX  int // pixels emitted so far this scanline
	discard int // leading SCX%8 pixels still to discard
	bgCfg   bgFetchConfig

	fb        FrameBuffer
	frameDone bool
}

// ConsumeFrame reports whether a frame completed (entered VBlank) during
// the most recent Clock call, clearing the flag so each completed frame is
// reported exactly once to the caller.
func (p *PPU) ConsumeFrame() bool {
	v := p.frameDone
	p.frameDone = false
	return v
}

// New returns a PPU starting in OAM scan for line 0, matching the Rust
// reference's Default (FifoMode::OamScan).
func New(irq IRQRequester, cgb bool) *PPU {
	p := &PPU{irq: irq, cgb: cgb}
	p.mode = ModeOamScan
	p.lcdc = 0x91
	p.bgp = 0xFC
	return p
}

func (p *PPU) FrameBuffer() *FrameBuffer { return &p.fb }

// Clock advances the PPU by one T-cycle (spec.md section 2: the PPU steps
// every dot, regardless of CGB double-speed). p.dot counts elapsed T-cycles
// within the current scanline (0-455) and is the single source of truth
// for line timing; mode transitions never reset it except at a genuine
// line boundary, so total per-line length is always exactly 456 T-cycles
// even though Drawing's own length varies with fetcher stalls.
func (p *PPU) Clock() {
	if p.lcdc&0x80 == 0 {
		return // LCD off: PPU is fully suspended, LY/STAT frozen
	}

	switch p.mode {
	case ModeOamScan:
		p.tickOamScan()
	case ModeDrawing:
		p.tickDrawing()
	case ModeHBlank:
	case ModeVBlank:
	}

	p.dot++

	switch p.mode {
	case ModeHBlank:
		if p.dot >= dotsPerLine {
			p.endHBlankLine()
		}
	case ModeVBlank:
		if p.dot >= dotsPerLine {
			p.endVBlankLine()
		}
	}
}

func (p *PPU) tickOamScan() {
	if p.dot%2 == 0 {
		p.scan.step(oamInternalBus{p}, int(p.ly), p.spriteHeight())
	}
	if p.dot+1 >= oamScanDots {
		p.enterDrawing()
	}
}

func (p *PPU) enterDrawing() {
	p.mode = ModeDrawing
	p.pixelX = 0
	p.discard = int(p.scx) % 8
	p.windowTriggered = false
	p.lineSprite.clear()
	for _, s := range p.scan.sprites() {
		for x := 0; x < 8; x++ {
			p.lineSprite.tryClaim(s.x+x, s.oamIndex, s.x)
		}
	}

	mapBase := uint16(0x9800)
	if p.lcdc&0x08 != 0 {
		mapBase = 0x9C00
	}
	fineYTile := (int(p.ly) + int(p.scy)) / 8 % 32
	fineY := (int(p.ly) + int(p.scy)) % 8

	p.fetcher.reset()
	p.fetcher.fetchX = (int(p.scx) / 8) & 0x1F
	p.fetcher.windowed = false
	p.bgCfg = bgFetchConfig{
		mapBase:            mapBase,
		unsignedAddressing: p.lcdc&0x10 != 0,
		fineY:              fineY,
		fineYTile:          fineYTile,
	}
}

// maybeTriggerWindow implements spec.md section 4.4's "when the fetcher's
// current X reaches WX-7, the BG fetcher resets to the window state".
// Window timing is an explicit Open Question (SPEC_FULL.md section D); this
// checks the trigger against the output pixel counter (pixelX) rather than
// the fetcher's own column, which is consistent with a core that is not
// cycle-exact at M-cycle granularity (spec.md section 1, Non-goals) and
// still produces a genuine mid-scanline switch instead of a whole-line one.
func (p *PPU) maybeTriggerWindow() {
	if p.windowTriggered || p.fetcher.windowed {
		return
	}
	if p.lcdc&0x20 == 0 || int(p.ly) < int(p.wy) {
		return
	}
	trigger := int(p.wx) - 7
	if trigger < 0 {
		trigger = 0
	}
	if p.pixelX < trigger {
		return
	}

	p.windowTriggered = true
	p.windowDrew = true

	mapBase := uint16(0x9800)
	if p.lcdc&0x40 != 0 {
		mapBase = 0x9C00
	}

	p.fetcher.reset()
	p.fetcher.windowed = true
	p.discard = 0
	p.bgCfg = bgFetchConfig{
		mapBase:            mapBase,
		unsignedAddressing: p.lcdc&0x10 != 0,
		fineY:              p.windowLine % 8,
		fineYTile:          p.windowLine / 8,
	}
}

func (p *PPU) tickDrawing() {
	p.maybeTriggerWindow()
	vram := vramBank{p: p, bank: 0}
	p.fetcher.tick(vram, p.bgCfg)

	if p.fetcher.fifo.len() <= 8 {
		return
	}

	if p.discard > 0 {
		if _, ok := p.fetcher.fifo.pop(); ok {
			p.discard--
		}
		return
	}

	bg, ok := p.fetcher.fifo.pop()
	if !ok {
		return
	}

	shade := p.resolveBG(bg)
	p.resolveSprite(p.pixelX, &shade)
	p.fb.Set(p.pixelX, int(p.ly), shade)

	p.pixelX++
	if p.pixelX >= Width {
		p.mode = ModeHBlank
		if p.stat&0x08 != 0 {
			p.irq.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	}
}

func (p *PPU) resolveBG(px pixel) Color {
	if p.lcdc&0x01 == 0 {
		return ShadeToColor(0)
	}
	shade := (p.bgp >> (px.color * 2)) & 0x03
	return ShadeToColor(shade)
}

func (p *PPU) resolveSprite(x int, bg *Color) {
	if p.lcdc&0x02 == 0 {
		return
	}
	owner := p.lineSprite.owner(x)
	if owner == -1 {
		return
	}
	for _, s := range p.scan.sprites() {
		if s.oamIndex != owner {
			continue
		}
		row := int(p.ly) - s.y
		if s.flipY {
			row = s.height - 1 - row
		}
		tileID := s.tileIndex
		if s.height == 16 {
			tileID &= 0xFE
			if row >= 8 {
				tileID |= 1
				row -= 8
			}
		}
		base := 0x8000 + uint16(tileID)*16
		tr := fetchTileRow(vramBank{p: p, bank: 0}, base, row)
		px := x - s.x
		var color uint8
		if s.flipX {
			color = tr.pixelFlipped(px)
		} else {
			color = tr.pixel(px)
		}
		if color == 0 {
			return // transparent
		}
		if s.behindBG && *bg != ShadeToColor(0) {
			return
		}
		pal := p.obp0
		if s.paletteOBP1 {
			pal = p.obp1
		}
		shade := (pal >> (color * 2)) & 0x03
		*bg = ShadeToColor(shade)
		return
	}
}

func (p *PPU) endHBlankLine() {
	p.dot = 0
	p.setLY(int(p.ly) + 1)

	if p.ly == 144 {
		p.mode = ModeVBlank
		p.windowLine = 0
		p.windowDrew = false
		p.frameDone = true
		p.irq.RequestInterrupt(addr.VBlankInterrupt)
		if p.stat&0x10 != 0 {
			p.irq.RequestInterrupt(addr.LCDSTATInterrupt)
		}
		return
	}

	if p.windowDrew {
		p.windowLine++
		p.windowDrew = false
	}
	p.mode = ModeOamScan
	p.scan.reset()
	if p.stat&0x20 != 0 {
		p.irq.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (p *PPU) endVBlankLine() {
	p.dot = 0
	p.setLY(int(p.ly) + 1)
	if int(p.ly) >= linesPerFrame {
		p.setLY(0)
		p.mode = ModeOamScan
		p.scan.reset()
		if p.stat&0x20 != 0 {
			p.irq.RequestInterrupt(addr.LCDSTATInterrupt)
		}
	}
}

func (p *PPU) setLY(v int) {
	p.ly = uint8(v)
	coincident := p.ly == p.lyc
	if coincident {
		p.stat |= 0x04
	} else {
		p.stat &^= 0x04
	}
	if coincident && p.stat&0x40 != 0 {
		p.irq.RequestInterrupt(addr.LCDSTATInterrupt)
	}
}

func (p *PPU) spriteHeight() int {
	if p.lcdc&0x04 != 0 {
		return 16
	}
	return 8
}

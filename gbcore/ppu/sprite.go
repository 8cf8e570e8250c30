package ppu

import "github.com/corwin-hale/go-dmg/gbcore/addr"

// sprite is one parsed OAM entry, visible on the scanline it was collected
// for. y and x are the sprite's signed screen-space coordinates (OAM's
// stored Y-16/X-8 can run negative for a sprite scrolled off the top or
// left edge); keeping them signed is what lets resolveSprite compute a
// correct tile row/column instead of wrapping into a bogus VRAM address.
type sprite struct {
	y, x      int
	tileIndex uint8
	flags     uint8
	oamIndex  int
	height    int

	paletteOBP1 bool
	flipX       bool
	flipY       bool
	behindBG    bool
}

func (s *sprite) parseFlags() {
	s.paletteOBP1 = s.flags&0x10 != 0
	s.flipX = s.flags&0x20 != 0
	s.flipY = s.flags&0x40 != 0
	s.behindBG = s.flags&0x80 != 0
}

// cgbPalette returns the OBP 0-7 palette index from bits 0-2 of the flags
// byte, used in place of paletteOBP1 when running in CGB mode.
func (s *sprite) cgbPalette() uint8 { return s.flags & 0x07 }

// oamScan walks OAM two T-cycles per entry (spec.md section 4.3: OAM scan
// takes 80 T-cycles to examine all 40 sprites) and fills spriteBuf with the
// first 10 sprites that overlap the target scanline. This mirrors the Rust
// reference's OamScanState{oam_pointer, secondary_oam_pointer, is_visible}
// incremental state (_examples/original_source/gband/src/ppu/fifo_mode.rs)
// rather than the teacher's single-shot GetSpritesForScanline.
type oamScan struct {
	pointer    int // next OAM entry to examine (0..40)
	secondary  int // number of sprites collected so far
	spriteBuf  [10]sprite
	tallHeight bool
}

func (o *oamScan) reset() {
	o.pointer = 0
	o.secondary = 0
}

func (o *oamScan) done() bool { return o.pointer >= 40 }

// step examines one OAM entry (called once every 2 T-cycles during OAM
// scan) against the given scanline and LCDC-derived sprite height.
func (o *oamScan) step(bus interface{ Read(uint16) byte }, scanline int, spriteHeight int) {
	if o.done() {
		return
	}
	i := o.pointer
	o.pointer++

	if o.secondary >= 10 {
		return
	}

	base := addr.OAMStart + uint16(i*4)
	rawY := bus.Read(base)
	y := int(rawY) - 16
	if y > scanline || scanline >= y+spriteHeight {
		return
	}

	rawX := bus.Read(base + 1)
	s := sprite{
		y:         y,
		x:         int(rawX) - 8,
		tileIndex: bus.Read(base + 2),
		flags:     bus.Read(base + 3),
		oamIndex:  i,
		height:    spriteHeight,
	}
	s.parseFlags()
	o.spriteBuf[o.secondary] = s
	o.secondary++
}

func (o *oamScan) sprites() []sprite {
	return o.spriteBuf[:o.secondary]
}

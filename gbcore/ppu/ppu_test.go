package ppu

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/corwin-hale/go-dmg/gbcore/addr"
)

type stubIRQ struct {
	requested []addr.Interrupt
}

func (s *stubIRQ) RequestInterrupt(i addr.Interrupt) { s.requested = append(s.requested, i) }

func runFrame(p *PPU) {
	for {
		p.Clock()
		if p.ConsumeFrame() {
			return
		}
	}
}

// TestAllWhiteFrame is the literal scenario from spec.md section 8: with
// LCDC=0x91, BGP=0xE4, a tilemap filled with tile 0, and tile 0 set to
// all-zero pixels, the entire 160x144 frame is color 0 (white) after one
// frame.
func TestAllWhiteFrame(t *testing.T) {
	p := New(&stubIRQ{}, false)
	p.Write(addr.LCDC, 0x91)
	p.Write(addr.BGP, 0xE4)
	p.Write(addr.SCX, 0)
	p.Write(addr.SCY, 0)

	// tile 0 is already all-zero (fresh VRAM); the default 0x9800 tilemap
	// is already all-zero (tile id 0), so no further VRAM setup is needed.

	runFrame(p)

	fb := p.FrameBuffer()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			assert.Equal(t, White, fb.Get(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

// expectedBGColor computes, purely from the tile layout TestSCXScroll
// writes into VRAM, the color the background should produce at absolute
// background column col (0-255): even tiles are all-zero (white), odd
// tiles alternate 1/0 columns per the 0xAA/0x00 row bytes.
func expectedBGColor(col int) Color {
	tile := (col / 8) % 32
	within := col % 8
	if tile%2 == 0 {
		return ShadeToColor(0)
	}
	bit := uint(7 - within)
	id := uint8(0)
	if (0xAA>>bit)&1 != 0 {
		id = 1
	}
	shade := (uint8(0xE4) >> (id * 2)) & 0x03
	return ShadeToColor(shade)
}

// TestSCXScroll checks spec.md section 8's horizontal-scroll property:
// pixel (x, y) equals the background's column (x+SCX) mod 256, for all x.
func TestSCXScroll(t *testing.T) {
	setup := func(p *PPU) {
		p.Write(addr.LCDC, 0x91)
		p.Write(addr.BGP, 0xE4)
		base := uint16(0x8000 + 16)
		for row := 0; row < 8; row++ {
			p.vram[0][base+uint16(row)*2-0x8000] = 0xAA
			p.vram[0][base+uint16(row)*2+1-0x8000] = 0x00
		}
		for i := 0; i < 32*32; i++ {
			if i%2 == 1 { // rows are 32 entries wide, so i%2 is the column's parity
				p.vram[0][0x9800+uint16(i)-0x8000] = 1
			}
		}
	}

	const scx = 17
	p := New(&stubIRQ{}, false)
	setup(p)
	p.Write(addr.SCX, scx)
	runFrame(p)

	fb := p.FrameBuffer()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			want := expectedBGColor((x + scx) % 256)
			assert.Equal(t, want, fb.Get(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

// TestWindowTriggersMidScanline matches spec.md section 4.4: the window
// must take over the fetcher partway through a scanline, once the output
// column reaches WX-7, rather than being an all-or-nothing choice for the
// whole line. WX=87 (a common status-bar offset) triggers at pixel 80; the
// background tilemap is filled with a distinct tile from the window's.
func TestWindowTriggersMidScanline(t *testing.T) {
	p := New(&stubIRQ{}, false)
	p.Write(addr.LCDC, 0x91|0x20|0x40) // LCD+BG on, unsigned tile data, window enabled, window map at 0x9C00
	p.Write(addr.BGP, 0xE4)
	p.Write(addr.WY, 0)
	p.Write(addr.WX, 87)

	// tile 1: every row is color id 1 (light grey under BGP=0xE4)
	base1 := uint16(0x8000 + 16)
	for row := 0; row < 8; row++ {
		p.vram[0][base1+uint16(row)*2-0x8000] = 0xFF
		p.vram[0][base1+uint16(row)*2+1-0x8000] = 0x00
	}
	// tile 2: every row is color id 2 (dark grey under BGP=0xE4)
	base2 := uint16(0x8000 + 32)
	for row := 0; row < 8; row++ {
		p.vram[0][base2+uint16(row)*2-0x8000] = 0x00
		p.vram[0][base2+uint16(row)*2+1-0x8000] = 0xFF
	}
	for i := 0; i < 32*32; i++ {
		p.vram[0][0x9800+uint16(i)-0x8000] = 2 // whole BG map uses tile 2
	}
	for row := 0; row < 32; row++ {
		p.vram[0][0x9C00+uint16(row)*32-0x8000] = 1 // window map's first column uses tile 1, rest default tile 0
	}

	runFrame(p)

	fb := p.FrameBuffer()
	for y := 0; y < Height; y++ {
		for x := 0; x < 80; x++ {
			assert.Equal(t, DarkGrey, fb.Get(x, y), "BG pixel (%d,%d) before the window triggers", x, y)
		}
		for x := 80; x < 88; x++ {
			assert.Equal(t, LightGrey, fb.Get(x, y), "window pixel (%d,%d) in its first tile", x, y)
		}
		for x := 88; x < Width; x++ {
			assert.Equal(t, White, fb.Get(x, y), "window pixel (%d,%d) must keep coming from the window map, not revert to BG", x, y)
		}
	}
}

// TestSCXScrollOddTileShift matches the same spec.md section 8 scroll
// property as TestSCXScroll but with SCX=8 (tile-shift SCX>>3 = 1, an odd
// shift): the period-2 BG tile pattern only exposes a missing SCX>>3 coarse
// offset when the shift is odd, since an even shift leaves the even/odd
// tile parity unchanged by coincidence.
func TestSCXScrollOddTileShift(t *testing.T) {
	setup := func(p *PPU) {
		p.Write(addr.LCDC, 0x91)
		p.Write(addr.BGP, 0xE4)
		base := uint16(0x8000 + 16)
		for row := 0; row < 8; row++ {
			p.vram[0][base+uint16(row)*2-0x8000] = 0xAA
			p.vram[0][base+uint16(row)*2+1-0x8000] = 0x00
		}
		for i := 0; i < 32*32; i++ {
			if i%2 == 1 { // rows are 32 entries wide, so i%2 is the column's parity
				p.vram[0][0x9800+uint16(i)-0x8000] = 1
			}
		}
	}

	const scx = 8
	p := New(&stubIRQ{}, false)
	setup(p)
	p.Write(addr.SCX, scx)
	runFrame(p)

	fb := p.FrameBuffer()
	for y := 0; y < Height; y++ {
		for x := 0; x < Width; x++ {
			want := expectedBGColor((x + scx) % 256)
			assert.Equal(t, want, fb.Get(x, y), "pixel (%d,%d)", x, y)
		}
	}
}

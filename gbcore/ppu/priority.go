package ppu

// spritePriority resolves per-pixel sprite ownership for DMG-style priority:
// lower X wins, ties broken by lower OAM index (https://gbdev.io/pandocs/OAM.html#drawing-priority).
// Built once per scanline from the sprites the OAM scan selected, then
// consulted by the fetcher's sprite overlay step during Drawing.
type spritePriority struct {
	ownerIndex [Width]int
	ownerX     [Width]int
}

func (s *spritePriority) clear() {
	for i := range s.ownerIndex {
		s.ownerIndex[i] = -1
		s.ownerX[i] = 0xFF
	}
}

func (s *spritePriority) tryClaim(pixelX, spriteIndex, spriteX int) bool {
	if pixelX < 0 || pixelX >= Width {
		return false
	}
	owner := s.ownerIndex[pixelX]
	if owner == -1 {
		s.ownerIndex[pixelX], s.ownerX[pixelX] = spriteIndex, spriteX
		return true
	}
	ownerX := s.ownerX[pixelX]
	if spriteX < ownerX || (spriteX == ownerX && spriteIndex < owner) {
		s.ownerIndex[pixelX], s.ownerX[pixelX] = spriteIndex, spriteX
		return true
	}
	return false
}

func (s *spritePriority) owner(pixelX int) int {
	if pixelX < 0 || pixelX >= Width {
		return -1
	}
	return s.ownerIndex[pixelX]
}

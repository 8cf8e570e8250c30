package gbcore

import "github.com/corwin-hale/go-dmg/gbcore/addr"

// interruptState holds the IE/IF registers. The upper 3 bits of IF always
// read back as 1 on real hardware (grounded on the teacher's MMU.Read,
// which ORs in 0xE0 for addr.IF).
type interruptState struct {
	ie, iff uint8
}

func (s *interruptState) RequestInterrupt(i addr.Interrupt) {
	s.iff |= uint8(i)
}

func (s *interruptState) readIE() uint8 { return s.ie }
func (s *interruptState) readIF() uint8 { return s.iff | 0xE0 }

func (s *interruptState) writeIE(v uint8) { s.ie = v }
func (s *interruptState) writeIF(v uint8) { s.iff = v & 0x1F }

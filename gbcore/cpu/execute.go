package cpu

import "github.com/corwin-hale/go-dmg/gbcore/bit"

// execute applies the semantics of a decoded Opcode and returns any extra
// T-cycles consumed by a taken branch (0 for opcodes with a fixed cost).
// All register/flag/PC mutations happen here, atomically, on the final
// cycle of the instruction's budget (spec.md section 4.2).
func (c *CPU) execute(bus Bus, op Opcode) int {
	switch op.Kind {
	case KindNOP, KindUnknown, KindCBPrefix:
		return 0

	case KindLoadRR:
		c.setReg8(bus, op.Dst, c.getReg8(bus, op.Src))
		return 0

	case KindLoadRImm:
		n := c.readImm8(bus)
		c.setReg8(bus, op.Dst, n)
		return 0

	case KindLoadIndirect:
		addr16, delta := c.indirectPairAddr(op.Pair)
		if op.CBOp == 0 {
			bus.Write(addr16, c.af.high())
		} else {
			c.af.setHigh(bus.Read(addr16))
		}
		if delta != 0 {
			c.hl.set(uint16(int32(c.hl.get()) + int32(delta)))
		}
		return 0

	case KindLoadHighPage:
		return c.execLoadHighPage(bus, op)

	case KindLoadAddrA:
		lo := c.readImm8(bus)
		hi := c.readImm8(bus)
		nn := uint16(hi)<<8 | uint16(lo)
		if op.CBOp == 0 {
			bus.Write(nn, c.af.high())
		} else {
			c.af.setHigh(bus.Read(nn))
		}
		return 0

	case KindLoad16Imm:
		lo := c.readImm8(bus)
		hi := c.readImm8(bus)
		c.setPair(op.Pair, uint16(hi)<<8|uint16(lo))
		return 0

	case KindLoadAddrSP:
		lo := c.readImm8(bus)
		hi := c.readImm8(bus)
		nn := uint16(hi)<<8 | uint16(lo)
		sp := c.sp.get()
		bus.Write(nn, uint8(sp))
		bus.Write(nn+1, uint8(sp>>8))
		return 0

	case KindLoadSPHL:
		c.sp.set(c.hl.get())
		return 0

	case KindLoadHLSPOff:
		c.hl.set(c.addSPSigned(bus))
		return 0

	case KindPush:
		v := c.getPair(op.Pair)
		if op.Pair == PairAF {
			v = c.af.get()
		}
		c.pushStack(bus, v)
		return 0

	case KindPop:
		v := c.popStack(bus)
		if op.Pair == PairAF {
			c.af.set(v & 0xFFF0)
			return 0
		}
		c.setPair(op.Pair, v)
		return 0

	case KindAluReg:
		c.alu(op.Alu, c.getReg8(bus, op.Src))
		return 0

	case KindAluImm:
		c.alu(op.Alu, c.readImm8(bus))
		return 0

	case KindIncReg:
		v := c.getReg8(bus, op.Dst) + 1
		c.setReg8(bus, op.Dst, v)
		c.setFlagTo(flagZ, v == 0)
		c.clearFlag(flagN)
		c.setFlagTo(flagH, v&0x0F == 0x00)
		return 0

	case KindDecReg:
		v := c.getReg8(bus, op.Dst) - 1
		c.setReg8(bus, op.Dst, v)
		c.setFlagTo(flagZ, v == 0)
		c.setFlag(flagN)
		c.setFlagTo(flagH, v&0x0F == 0x0F)
		return 0

	case KindIncPair:
		c.setPair(op.Pair, c.getPair(op.Pair)+1)
		return 0

	case KindDecPair:
		c.setPair(op.Pair, c.getPair(op.Pair)-1)
		return 0

	case KindAddHL:
		c.addHL(op.Pair)
		return 0

	case KindAddSPImm:
		c.sp.set(c.addSPSigned(bus))
		return 0

	case KindRotateA:
		c.rotateA(op.CBOp)
		return 0

	case KindCBRotate:
		c.cbRotate(bus, op)
		return 0

	case KindCBBit:
		v := c.getReg8(bus, op.Src)
		c.setFlagTo(flagZ, !bit.IsSet(op.BitIndex, v))
		c.clearFlag(flagN)
		c.setFlag(flagH)
		return 0

	case KindCBRes:
		c.setReg8(bus, op.Src, bit.Clear(op.BitIndex, c.getReg8(bus, op.Src)))
		return 0

	case KindCBSet:
		c.setReg8(bus, op.Src, bit.Set(op.BitIndex, c.getReg8(bus, op.Src)))
		return 0

	case KindJR:
		e := int8(c.readImm8(bus))
		if op.CBOp != 1 && !c.condHolds(op) {
			return 0
		}
		c.pc.set(uint16(int32(c.pc.get()) + int32(e)))
		if op.CBOp != 1 {
			return 4
		}
		return 0

	case KindJP:
		lo := c.readImm8(bus)
		hi := c.readImm8(bus)
		nn := uint16(hi)<<8 | uint16(lo)
		if op.CBOp == 1 && !c.condHolds(op) {
			return 0
		}
		c.pc.set(nn)
		if op.CBOp == 1 {
			return 4
		}
		return 0

	case KindJPHL:
		c.pc.set(c.hl.get())
		return 0

	case KindCall:
		lo := c.readImm8(bus)
		hi := c.readImm8(bus)
		nn := uint16(hi)<<8 | uint16(lo)
		if op.CBOp == 1 || c.condHolds(op) {
			c.pushStack(bus, c.pc.get())
			c.pc.set(nn)
			if op.CBOp != 1 {
				return 12
			}
		}
		return 0

	case KindRet:
		if op.CBOp == 1 || c.condHolds(op) {
			c.pc.set(c.popStack(bus))
			if op.CBOp != 1 {
				return 12
			}
		}
		return 0

	case KindRetI:
		c.pc.set(c.popStack(bus))
		c.ime = true
		return 0

	case KindRestart:
		c.pushStack(bus, c.pc.get())
		c.pc.set(uint16(op.Vector))
		return 0

	case KindDAA:
		c.daa()
		return 0

	case KindCPL:
		c.af.setHigh(^c.af.high())
		c.setFlag(flagN)
		c.setFlag(flagH)
		return 0

	case KindCCF:
		c.setFlagTo(flagC, !c.flag(flagC))
		c.clearFlag(flagN)
		c.clearFlag(flagH)
		return 0

	case KindSCF:
		c.setFlag(flagC)
		c.clearFlag(flagN)
		c.clearFlag(flagH)
		return 0

	case KindHalt:
		c.halted = true
		return 0

	case KindStop:
		c.readImm8(bus) // STOP's second byte is always 0x00 and discarded
		c.halted = true
		c.stopped = true
		return 0

	case KindDI:
		c.ime = false
		c.eiPending = false
		return 0

	case KindEI:
		c.eiPending = true
		return 0

	default:
		return 0
	}
}

func (c *CPU) readImm8(bus Bus) uint8 {
	v := bus.Read(c.pc.get())
	c.pc.incr()
	return v
}

func (c *CPU) condHolds(op Opcode) bool {
	switch op.Cond {
	case CondNZ:
		return !c.flag(flagZ)
	case CondZ:
		return c.flag(flagZ)
	case CondNC:
		return !c.flag(flagC)
	default:
		return c.flag(flagC)
	}
}

func (c *CPU) execLoadHighPage(bus Bus, op Opcode) int {
	switch op.CBOp {
	case 0: // LDH (n), A
		n := c.readImm8(bus)
		bus.Write(0xFF00+uint16(n), c.af.high())
	case 1: // LDH A, (n)
		n := c.readImm8(bus)
		c.af.setHigh(bus.Read(0xFF00 + uint16(n)))
	case 2: // LD (C), A
		bus.Write(0xFF00+uint16(c.bc.low()), c.af.high())
	default: // LD A, (C)
		c.af.setHigh(bus.Read(0xFF00 + uint16(c.bc.low())))
	}
	return 0
}

// indirectPairAddr resolves the z=2 block's non-uniform pair field: 0=BC,
// 1=DE, 2=HL with post-increment, 3=HL with post-decrement.
func (c *CPU) indirectPairAddr(p Pair) (address uint16, delta int) {
	switch p {
	case PairBC:
		return c.bc.get(), 0
	case PairDE:
		return c.de.get(), 0
	case PairHL:
		return c.hl.get(), 1
	default:
		return c.hl.get(), -1
	}
}

func (c *CPU) getReg8(bus Bus, r Reg8) uint8 {
	switch r {
	case RegB:
		return c.bc.high()
	case RegC:
		return c.bc.low()
	case RegD:
		return c.de.high()
	case RegE:
		return c.de.low()
	case RegH:
		return c.hl.high()
	case RegL:
		return c.hl.low()
	case RegHLInd:
		return bus.Read(c.hl.get())
	default:
		return c.af.high()
	}
}

func (c *CPU) setReg8(bus Bus, r Reg8, v uint8) {
	switch r {
	case RegB:
		c.bc.setHigh(v)
	case RegC:
		c.bc.setLow(v)
	case RegD:
		c.de.setHigh(v)
	case RegE:
		c.de.setLow(v)
	case RegH:
		c.hl.setHigh(v)
	case RegL:
		c.hl.setLow(v)
	case RegHLInd:
		bus.Write(c.hl.get(), v)
	default:
		c.af.setHigh(v)
	}
}

func (c *CPU) getPair(p Pair) uint16 {
	switch p {
	case PairBC:
		return c.bc.get()
	case PairDE:
		return c.de.get()
	case PairHL:
		return c.hl.get()
	default:
		return c.sp.get()
	}
}

func (c *CPU) setPair(p Pair, v uint16) {
	switch p {
	case PairBC:
		c.bc.set(v)
	case PairDE:
		c.de.set(v)
	case PairHL:
		c.hl.set(v)
	default:
		c.sp.set(v)
	}
}

func (c *CPU) pushStack(bus Bus, v uint16) {
	c.sp.decr()
	bus.Write(c.sp.get(), uint8(v>>8))
	c.sp.decr()
	bus.Write(c.sp.get(), uint8(v))
}

func (c *CPU) popStack(bus Bus) uint16 {
	lo := bus.Read(c.sp.get())
	c.sp.incr()
	hi := bus.Read(c.sp.get())
	c.sp.incr()
	return uint16(hi)<<8 | uint16(lo)
}

func (c *CPU) addHL(p Pair) {
	hl := c.hl.get()
	operand := c.getPair(p)
	result := uint32(hl) + uint32(operand)

	c.clearFlag(flagN)
	c.setFlagTo(flagH, (hl&0x0FFF)+(operand&0x0FFF) > 0x0FFF)
	c.setFlagTo(flagC, result > 0xFFFF)
	c.hl.set(uint16(result))
}

// addSPSigned implements both ADD SP,e and LD HL,SP+e: the displacement is
// sign-extended for the addition itself, but H/C are derived from the
// unsigned low-byte addition of SP and the raw immediate byte (spec.md
// section 4.2, Open Question resolved per standard LR35902 behavior).
func (c *CPU) addSPSigned(bus Bus) uint16 {
	raw := c.readImm8(bus)
	e := int8(raw)
	sp := c.sp.get()
	result := uint16(int32(sp) + int32(e))

	c.clearFlag(flagZ)
	c.clearFlag(flagN)
	c.setFlagTo(flagH, (sp&0x0F)+(uint16(raw)&0x0F) > 0x0F)
	c.setFlagTo(flagC, (sp&0xFF)+uint16(raw) > 0xFF)
	return result
}

func (c *CPU) alu(op AluOp, rhs uint8) {
	a := c.af.high()
	carryIn := uint8(0)

	switch op {
	case AluAdd, AluAdc:
		if op == AluAdc {
			carryIn = c.flagBit(flagC)
		}
		result := uint16(a) + uint16(rhs) + uint16(carryIn)
		c.af.setHigh(uint8(result))
		c.setFlagTo(flagZ, uint8(result) == 0)
		c.clearFlag(flagN)
		c.setFlagTo(flagH, (a&0x0F)+(rhs&0x0F)+carryIn > 0x0F)
		c.setFlagTo(flagC, result > 0xFF)

	case AluSub, AluSbc, AluCp:
		if op == AluSbc {
			carryIn = c.flagBit(flagC)
		}
		result := int16(a) - int16(rhs) - int16(carryIn)
		if op != AluCp {
			c.af.setHigh(uint8(result))
		}
		c.setFlagTo(flagZ, uint8(result) == 0)
		c.setFlag(flagN)
		c.setFlagTo(flagH, int16(a&0x0F)-int16(rhs&0x0F)-int16(carryIn) < 0)
		c.setFlagTo(flagC, result < 0)

	case AluAnd:
		a &= rhs
		c.af.setHigh(a)
		c.setFlagTo(flagZ, a == 0)
		c.clearFlag(flagN)
		c.setFlag(flagH)
		c.clearFlag(flagC)

	case AluXor:
		a ^= rhs
		c.af.setHigh(a)
		c.setFlagTo(flagZ, a == 0)
		c.clearFlag(flagN)
		c.clearFlag(flagH)
		c.clearFlag(flagC)

	case AluOr:
		a |= rhs
		c.af.setHigh(a)
		c.setFlagTo(flagZ, a == 0)
		c.clearFlag(flagN)
		c.clearFlag(flagH)
		c.clearFlag(flagC)
	}
}

// daa performs the canonical binary-coded-decimal adjustment following the
// preceding ADD/ADC (N=0) or SUB/SBC (N=1), correcting A into valid BCD and
// folding the correction into the carry flag.
func (c *CPU) daa() {
	a := c.af.high()
	carry := c.flag(flagC)
	var adjust uint8

	if c.flag(flagH) || (!c.flag(flagN) && a&0x0F > 0x09) {
		adjust |= 0x06
	}
	if carry || (!c.flag(flagN) && a > 0x99) {
		adjust |= 0x60
		carry = true
	}

	if c.flag(flagN) {
		a -= adjust
	} else {
		a += adjust
	}

	c.af.setHigh(a)
	c.setFlagTo(flagZ, a == 0)
	c.clearFlag(flagH)
	c.setFlagTo(flagC, carry)
}

// rotateA implements RLCA/RRCA/RLA/RRA (CBOp holds the raw y field: 0..3),
// which always clear Z unlike their CB-prefixed counterparts.
func (c *CPU) rotateA(which uint8) {
	a := c.af.high()
	var result uint8
	var carryOut bool

	switch which {
	case 0: // RLCA
		carryOut = a&0x80 != 0
		result = a<<1 | a>>7
	case 1: // RRCA
		carryOut = a&0x01 != 0
		result = a>>1 | a<<7
	case 2: // RLA
		carryOut = a&0x80 != 0
		result = a<<1 | c.flagBit(flagC)
	default: // RRA
		carryOut = a&0x01 != 0
		result = a>>1 | c.flagBit(flagC)<<7
	}

	c.af.setHigh(result)
	c.clearFlag(flagZ)
	c.clearFlag(flagN)
	c.clearFlag(flagH)
	c.setFlagTo(flagC, carryOut)
}

// cbRotate implements the CB-prefixed rotate/shift space (CBOp 0..7: RLC,
// RRC, RL, RR, SLA, SRA, SWAP, SRL), which set Z from the result unlike the
// unprefixed accumulator rotates.
func (c *CPU) cbRotate(bus Bus, op Opcode) {
	v := c.getReg8(bus, op.Src)
	var result uint8
	var carryOut bool

	switch op.CBOp {
	case 0: // RLC
		carryOut = v&0x80 != 0
		result = v<<1 | v>>7
	case 1: // RRC
		carryOut = v&0x01 != 0
		result = v>>1 | v<<7
	case 2: // RL
		carryOut = v&0x80 != 0
		result = v<<1 | c.flagBit(flagC)
	case 3: // RR
		carryOut = v&0x01 != 0
		result = v>>1 | c.flagBit(flagC)<<7
	case 4: // SLA
		carryOut = v&0x80 != 0
		result = v << 1
	case 5: // SRA
		carryOut = v&0x01 != 0
		result = v>>1 | v&0x80
	case 6: // SWAP
		result = v<<4 | v>>4
	default: // SRL
		carryOut = v&0x01 != 0
		result = v >> 1
	}

	c.setReg8(bus, op.Src, result)
	c.setFlagTo(flagZ, result == 0)
	c.clearFlag(flagN)
	c.clearFlag(flagH)
	if op.CBOp == 6 {
		c.clearFlag(flagC)
	} else {
		c.setFlagTo(flagC, carryOut)
	}
}

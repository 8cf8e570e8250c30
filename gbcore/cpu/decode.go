package cpu

import "github.com/corwin-hale/go-dmg/gbcore/bit"

// Decode reads a single non-prefixed opcode byte and produces its Opcode
// value. Instruction bytes are decoded by matching over the bit patterns
// `xx yyy zzz` and `xx ppq zzz` (spec.md section 4.2): x = bits 7-6,
// y = bits 5-3, z = bits 2-0, p = y>>1, q = y&1.
//
// Unassigned opcodes (0xD3, 0xDB, 0xDD, 0xE3, 0xE4, 0xEB, 0xEC, 0xED, 0xF4,
// 0xFC, 0xFD) decode as NOP.
func Decode(b uint8) Opcode {
	x := bit.ExtractBits(b, 7, 6)
	y := bit.ExtractBits(b, 5, 3)
	z := bit.ExtractBits(b, 2, 0)
	p := y >> 1
	q := y & 1

	switch x {
	case 0:
		return decodeX0(b, y, z, p, q)
	case 1:
		return decodeX1(b, y, z)
	case 2:
		return decodeX2(b, y, z)
	default:
		return decodeX3(b, y, z, p, q)
	}
}

func reg8Cycles(r Reg8, baseReg, baseHL int) int {
	if r == RegHLInd {
		return baseHL
	}
	return baseReg
}

func decodeX0(b, y, z, p, q uint8) Opcode {
	switch z {
	case 0:
		switch {
		case y == 0:
			return Opcode{Kind: KindNOP, Raw: b, Len: 1, Cycles: 4}
		case y == 1:
			return Opcode{Kind: KindLoadAddrSP, Raw: b, Len: 3, Cycles: 20}
		case y == 2:
			return Opcode{Kind: KindStop, Raw: b, Len: 2, Cycles: 4}
		case y == 3:
			return Opcode{Kind: KindJR, CBOp: 1, Raw: b, Len: 2, Cycles: 12}
		default: // y = 4..7 -> JR cc,d
			return Opcode{Kind: KindJR, Cond: Cond(y - 4), Raw: b, Len: 2, Cycles: 8}
		}
	case 1:
		if q == 0 {
			return Opcode{Kind: KindLoad16Imm, Pair: Pair(p), Raw: b, Len: 3, Cycles: 12}
		}
		return Opcode{Kind: KindAddHL, Pair: Pair(p), Raw: b, Len: 1, Cycles: 8}
	case 2:
		return Opcode{Kind: KindLoadIndirect, Pair: Pair(p), CBOp: q, Raw: b, Len: 1, Cycles: 8}
	case 3:
		k := KindIncPair
		if q == 1 {
			k = KindDecPair
		}
		return Opcode{Kind: k, Pair: Pair(p), Raw: b, Len: 1, Cycles: 8}
	case 4:
		r := Reg8(y)
		return Opcode{Kind: KindIncReg, Dst: r, Raw: b, Len: 1, Cycles: reg8Cycles(r, 4, 12)}
	case 5:
		r := Reg8(y)
		return Opcode{Kind: KindDecReg, Dst: r, Raw: b, Len: 1, Cycles: reg8Cycles(r, 4, 12)}
	case 6:
		r := Reg8(y)
		return Opcode{Kind: KindLoadRImm, Dst: r, Raw: b, Len: 2, Cycles: reg8Cycles(r, 8, 12)}
	default: // z == 7: RLCA,RRCA,RLA,RRA,DAA,CPL,SCF,CCF
		switch y {
		case 0, 1, 2, 3:
			return Opcode{Kind: KindRotateA, CBOp: y, Raw: b, Len: 1, Cycles: 4}
		case 4:
			return Opcode{Kind: KindDAA, Raw: b, Len: 1, Cycles: 4}
		case 5:
			return Opcode{Kind: KindCPL, Raw: b, Len: 1, Cycles: 4}
		case 6:
			return Opcode{Kind: KindSCF, Raw: b, Len: 1, Cycles: 4}
		default:
			return Opcode{Kind: KindCCF, Raw: b, Len: 1, Cycles: 4}
		}
	}
}

func decodeX1(b, y, z uint8) Opcode {
	if y == 6 && z == 6 {
		return Opcode{Kind: KindHalt, Raw: b, Len: 1, Cycles: 4}
	}
	dst, src := Reg8(y), Reg8(z)
	cycles := 4
	if dst == RegHLInd || src == RegHLInd {
		cycles = 8
	}
	return Opcode{Kind: KindLoadRR, Dst: dst, Src: src, Raw: b, Len: 1, Cycles: cycles}
}

func decodeX2(b, y, z uint8) Opcode {
	src := Reg8(z)
	return Opcode{Kind: KindAluReg, Alu: AluOp(y), Src: src, Raw: b, Len: 1, Cycles: reg8Cycles(src, 4, 8)}
}

func decodeX3(b, y, z, p, q uint8) Opcode {
	switch z {
	case 0:
		switch {
		case y <= 3:
			return Opcode{Kind: KindRet, Cond: Cond(y), Raw: b, Len: 1, Cycles: 8}
		case y == 4:
			return Opcode{Kind: KindLoadHighPage, CBOp: 0, Raw: b, Len: 2, Cycles: 12}
		case y == 5:
			return Opcode{Kind: KindAddSPImm, Raw: b, Len: 2, Cycles: 16}
		case y == 6:
			return Opcode{Kind: KindLoadHighPage, CBOp: 1, Raw: b, Len: 2, Cycles: 12}
		default:
			return Opcode{Kind: KindLoadHLSPOff, Raw: b, Len: 2, Cycles: 12}
		}
	case 1:
		if q == 0 {
			return Opcode{Kind: KindPop, Pair: Pair(p), Raw: b, Len: 1, Cycles: 12}
		}
		switch p {
		case 0:
			return Opcode{Kind: KindRet, Cond: CondNZ, CBOp: 1, Raw: b, Len: 1, Cycles: 16}
		case 1:
			return Opcode{Kind: KindRetI, Raw: b, Len: 1, Cycles: 16}
		case 2:
			return Opcode{Kind: KindJPHL, Raw: b, Len: 1, Cycles: 4}
		default:
			return Opcode{Kind: KindLoadSPHL, Raw: b, Len: 1, Cycles: 8}
		}
	case 2:
		switch {
		case y <= 3:
			return Opcode{Kind: KindJP, Cond: Cond(y), CBOp: 1, Raw: b, Len: 3, Cycles: 12}
		case y == 4:
			return Opcode{Kind: KindLoadHighPage, CBOp: 2, Raw: b, Len: 1, Cycles: 8}
		case y == 5:
			return Opcode{Kind: KindLoadAddrA, CBOp: 0, Raw: b, Len: 3, Cycles: 16}
		case y == 6:
			return Opcode{Kind: KindLoadHighPage, CBOp: 3, Raw: b, Len: 1, Cycles: 8}
		default:
			return Opcode{Kind: KindLoadAddrA, CBOp: 1, Raw: b, Len: 3, Cycles: 16}
		}
	case 3:
		switch y {
		case 0:
			return Opcode{Kind: KindJP, CBOp: 0, Raw: b, Len: 3, Cycles: 16}
		case 1:
			return Opcode{Kind: KindCBPrefix, Raw: b, Len: 1, Cycles: 4}
		case 6:
			return Opcode{Kind: KindDI, Raw: b, Len: 1, Cycles: 4}
		case 7:
			return Opcode{Kind: KindEI, Raw: b, Len: 1, Cycles: 4}
		default: // 2,3,4,5 unassigned on DMG/CGB -> NOP
			return Opcode{Kind: KindUnknown, Raw: b, Len: 1, Cycles: 4}
		}
	case 4:
		if y <= 3 {
			return Opcode{Kind: KindCall, Cond: Cond(y), Raw: b, Len: 3, Cycles: 12}
		}
		return Opcode{Kind: KindUnknown, Raw: b, Len: 1, Cycles: 4}
	case 5:
		if q == 0 {
			return Opcode{Kind: KindPush, Pair: Pair(p), Raw: b, Len: 1, Cycles: 16}
		}
		if p == 0 {
			return Opcode{Kind: KindCall, Cond: CondNZ, CBOp: 1, Raw: b, Len: 3, Cycles: 24}
		}
		return Opcode{Kind: KindUnknown, Raw: b, Len: 1, Cycles: 4}
	case 6:
		return Opcode{Kind: KindAluImm, Alu: AluOp(y), Raw: b, Len: 2, Cycles: 8}
	default: // z == 7
		return Opcode{Kind: KindRestart, Vector: y * 8, Raw: b, Len: 1, Cycles: 16}
	}
}

// DecodeCB reads the second byte of a 0xCB-prefixed instruction. The CB
// prefix opens a second decode space of rotate/shift/BIT/RES/SET opcodes
// uniform over the eight register slots, with slot 6 meaning (HL).
func DecodeCB(b uint8) Opcode {
	x := bit.ExtractBits(b, 7, 6)
	y := bit.ExtractBits(b, 5, 3)
	z := bit.ExtractBits(b, 2, 0)
	r := Reg8(z)

	switch x {
	case 0:
		cycles := reg8Cycles(r, 8, 16)
		return Opcode{Kind: KindCBRotate, Src: r, CBOp: y, Raw: b, Len: 2, Cycles: cycles}
	case 1:
		cycles := reg8Cycles(r, 8, 12)
		return Opcode{Kind: KindCBBit, Src: r, BitIndex: y, Raw: b, Len: 2, Cycles: cycles}
	case 2:
		cycles := reg8Cycles(r, 8, 16)
		return Opcode{Kind: KindCBRes, Src: r, BitIndex: y, Raw: b, Len: 2, Cycles: cycles}
	default:
		cycles := reg8Cycles(r, 8, 16)
		return Opcode{Kind: KindCBSet, Src: r, BitIndex: y, Raw: b, Len: 2, Cycles: cycles}
	}
}

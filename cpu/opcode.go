package cpu

import (
	"fmt"
)

//go:generate go tool stringer -linecomment -type=CodeFamily

// CodeFamily is the instruction family, selected by the leading nibble.
type CodeFamily int

const (
	OP_SYS  = CodeFamily(0x0) // sys
	OP_JP   = CodeFamily(0x1) // jp
	OP_CALL = CodeFamily(0x2) // call
	OP_SE   = CodeFamily(0x3) // se
	OP_SNE  = CodeFamily(0x4) // sne
	OP_SER  = CodeFamily(0x5) // se.r
	OP_LD   = CodeFamily(0x6) // ld
	OP_ADD  = CodeFamily(0x7) // add
	OP_ALU  = CodeFamily(0x8) // alu
	OP_SNER = CodeFamily(0x9) // sne.r
	OP_LDI  = CodeFamily(0xa) // ld.i
	OP_JPV0 = CodeFamily(0xb) // jp.v0
	OP_RND  = CodeFamily(0xc) // rnd
	OP_DRW  = CodeFamily(0xd) // drw
	OP_KEY  = CodeFamily(0xe) // key
	OP_MISC = CodeFamily(0xf) // misc
)

// System operations (family 0), selected by the low 12 bits.
const (
	SYS_OP_NOP = uint16(0x000) // nop
	SYS_OP_CLS = uint16(0x0e0) // cls
	SYS_OP_RET = uint16(0x0ee) // ret
)

//go:generate go tool stringer -linecomment -type=CodeAluOp

// CodeAluOp is a register-register operation (family 8), selected by the low nibble.
type CodeAluOp int

const (
	ALU_OP_SET  = CodeAluOp(0x0) // ld
	ALU_OP_OR   = CodeAluOp(0x1) // or
	ALU_OP_AND  = CodeAluOp(0x2) // and
	ALU_OP_XOR  = CodeAluOp(0x3) // xor
	ALU_OP_ADD  = CodeAluOp(0x4) // add
	ALU_OP_SUB  = CodeAluOp(0x5) // sub
	ALU_OP_SHR  = CodeAluOp(0x6) // shr
	ALU_OP_SUBN = CodeAluOp(0x7) // subn
	ALU_OP_SHL  = CodeAluOp(0xe) // shl
)

// Keypad skips (family E), selected by the low byte.
const (
	KEY_OP_SKP  = uint8(0x9e) // skp
	KEY_OP_SKNP = uint8(0xa1) // sknp
)

// Miscellaneous operations (family F), selected by the low byte.
const (
	MISC_OP_GET_DT  = uint8(0x07) // ld vx dt
	MISC_OP_WAITKEY = uint8(0x0a) // ld vx k
	MISC_OP_SET_DT  = uint8(0x15) // ld dt vx
	MISC_OP_SET_ST  = uint8(0x18) // ld st vx
	MISC_OP_ADD_I   = uint8(0x1e) // add i vx
	MISC_OP_FONT    = uint8(0x29) // ld f vx
	MISC_OP_BCD     = uint8(0x33) // ld b vx
	MISC_OP_STORE   = uint8(0x55) // ld [i] vx
	MISC_OP_LOAD    = uint8(0x65) // ld vx [i]
)

// Opcode represents a line of assembled code with its source location and generated bytes.
type Opcode struct {
	LineNo    int
	Addr      int
	Words     []string
	Data      []byte
	LinkLabel string
}

// Code is a single 16-bit instruction word.
type Code uint16

// MakeCodeNNN creates an instruction with a 12-bit address operand.
func MakeCodeNNN(family CodeFamily, nnn uint16) Code {
	return Code(uint16(family)<<12 | (nnn & 0xfff))
}

// MakeCodeXNN creates an instruction with a register and byte operand.
func MakeCodeXNN(family CodeFamily, x int, nn uint8) Code {
	return Code(uint16(family)<<12 | uint16(x&0xf)<<8 | uint16(nn))
}

// MakeCodeXYN creates an instruction with two registers and a nibble operand.
func MakeCodeXYN(family CodeFamily, x, y int, n uint8) Code {
	return Code(uint16(family)<<12 | uint16(x&0xf)<<8 | uint16(y&0xf)<<4 | uint16(n&0xf))
}

// MakeCodeAlu creates a register-register operation.
func MakeCodeAlu(op CodeAluOp, x, y int) Code {
	return MakeCodeXYN(OP_ALU, x, y, uint8(op))
}

// Nibbles splits the word into its four 4-bit fields, most significant first.
func (code Code) Nibbles() (n1, n2, n3, n4 uint8) {
	word := uint16(code)
	n1 = uint8((word >> 12) & 0xf)
	n2 = uint8((word >> 8) & 0xf)
	n3 = uint8((word >> 4) & 0xf)
	n4 = uint8((word >> 0) & 0xf)
	return
}

// Family returns the instruction family.
func (code Code) Family() CodeFamily {
	family, _, _, _ := code.Nibbles()
	return CodeFamily(family)
}

// X returns the first register operand.
func (code Code) X() int {
	_, x, _, _ := code.Nibbles()
	return int(x)
}

// Y returns the second register operand.
func (code Code) Y() int {
	_, _, y, _ := code.Nibbles()
	return int(y)
}

// N returns the low nibble.
func (code Code) N() (n uint8) {
	_, _, _, n = code.Nibbles()
	return
}

// NN returns the low byte.
func (code Code) NN() uint8 {
	return uint8(code)
}

// NNN returns the low 12 bits.
func (code Code) NNN() uint16 {
	return uint16(code) & 0xfff
}

// Bytes returns the big-endian encoding of the word.
func (code Code) Bytes() []byte {
	return []byte{byte(code >> 8), byte(code)}
}

func (code Code) String() string {
	return fmt.Sprintf("0x%04X (%v)", uint16(code), code.Family())
}

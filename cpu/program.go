package cpu

import (
	"iter"
)

// Program is an assembled program listing.
type Program struct {
	Opcodes []Opcode
}

// Debug locates the opcode covering an address.
type Debug struct {
	*Opcode
	Index int // Byte offset of the address within the opcode.
}

func (prog *Program) Debug(addr uint16) (dbg Debug) {
	for n, op := range prog.Opcodes {
		if int(addr) >= op.Addr && int(addr) < op.Addr+len(op.Data) {
			dbg = Debug{
				Opcode: &prog.Opcodes[n],
				Index:  int(addr) - op.Addr,
			}
			break
		}
	}

	return
}

// Binary returns the program image, to be loaded at PROGRAM_START.
func (prog *Program) Binary() (bins []byte) {
	for _, data := range prog.Bytes() {
		bins = append(bins, data)
	}

	return
}

// Bytes iterates over the program bytes and their load addresses.
func (prog *Program) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, data byte) bool) {
		for _, op := range prog.Opcodes {
			addr := uint16(op.Addr)
			for n, data := range op.Data {
				if !yield(addr+uint16(n), data) {
					return
				}
			}
		}
	}
}

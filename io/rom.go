// Package io holds program image containers for the chip8 emulator.
package io

import (
	"bytes"
	"fmt"
	"io"
	"iter"
	"maps"

	"github.com/cespare/xxhash"

	"github.com/ezrec/chip8/cpu"
)

const ROM_SIZE = cpu.PROGRAM_SIZE // Largest ROM image, in bytes.

var _rom_defines = map[string]string{
	"ROM_SIZE": fmt.Sprintf("%#x", ROM_SIZE),
}

// Rom is a raw, unframed CHIP-8 program image.
type Rom struct {
	Data []byte
}

var _ io.ReaderFrom = (*Rom)(nil)
var _ io.WriterTo = (*Rom)(nil)

// Defines returns an iter of defines for the ROM.
func (rc *Rom) Defines() iter.Seq2[string, string] {
	return maps.All(_rom_defines)
}

// Empty is true if the ROM holds no image.
func (rc *Rom) Empty() bool {
	return len(rc.Data) == 0
}

// Hash returns a fingerprint of the ROM image.
func (rc *Rom) Hash() uint64 {
	return xxhash.Sum64(rc.Data)
}

// ReadFrom replaces the ROM image with the contents of the reader.
// On error, the previous image is retained.
func (rc *Rom) ReadFrom(r io.Reader) (n int64, err error) {
	var buff bytes.Buffer

	n, err = buff.ReadFrom(io.LimitReader(r, ROM_SIZE+1))
	if err != nil {
		return
	}

	if n > ROM_SIZE {
		err = ErrRomTooLarge
		return
	}

	if n == 0 {
		err = ErrRomEmpty
		return
	}

	rc.Data = buff.Bytes()

	return
}

// WriteTo writes the ROM image to the writer.
func (rc *Rom) WriteTo(w io.Writer) (n int64, err error) {
	count, err := w.Write(rc.Data)
	n = int64(count)
	return
}

// Bytes iterates over the ROM bytes and their load addresses.
func (rc *Rom) Bytes() iter.Seq2[uint16, byte] {
	return func(yield func(addr uint16, data byte) bool) {
		for n, data := range rc.Data {
			if !yield(uint16(cpu.PROGRAM_START+n), data) {
				return
			}
		}
	}
}

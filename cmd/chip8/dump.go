// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"fmt"
	"strings"

	"github.com/ezrec/chip8/io"
)

const DUMP_WIDTH = 16 // Bytes per hex dump line.

// dumpRom formats the ROM image as a hex listing, one line per
// DUMP_WIDTH bytes, each prefixed with its load address.
func dumpRom(rom *io.Rom) string {
	var sb strings.Builder

	n := 0
	for addr, data := range rom.Bytes() {
		switch {
		case n == 0:
			fmt.Fprintf(&sb, "%03x:", addr)
		case n%DUMP_WIDTH == 0:
			fmt.Fprintf(&sb, "\n%03x:", addr)
		}
		fmt.Fprintf(&sb, " %02x", data)
		n++
	}
	if n != 0 {
		sb.WriteString("\n")
	}

	return sb.String()
}

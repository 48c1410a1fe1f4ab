// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"slices"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/internal"
	"github.com/ezrec/chip8/io"
)

const (
	TICKS_PER_FRAME = 10 // Default instructions executed per frame.
	FRAME_RATE      = 60 // Frames per second; timers decrement once per frame.
)

var _emulator_defines = map[string]string{
	"TICKS_PER_FRAME": fmt.Sprintf("%d", TICKS_PER_FRAME),
	"FRAME_RATE":      fmt.Sprintf("%d", FRAME_RATE),
}

// Emulator state. CPU + ROM image + frame pacing.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Rom io.Rom // Program image reloaded on Reset.

	TicksPerFrame int    // Instructions executed per Frame.
	Beep          func() // Called when the sound timer expires.

	Frames int // Frames run since reset.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Cpu:           cpu.NewCpu(nil),
		Program:       &cpu.Program{},
		TicksPerFrame: TICKS_PER_FRAME,
	}

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.ConcatSeq2(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
		emu.Rom.Defines(),
	)
}

// Load a raw ROM image. The program listing is discarded.
func (emu *Emulator) Load(rom []byte) (err error) {
	if len(rom) > io.ROM_SIZE {
		err = cpu.ErrMemoryOverflow
		return
	}

	emu.Rom.Data = slices.Clone(rom)
	emu.Program = &cpu.Program{}

	return emu.Reset()
}

// LoadProgram loads an assembled program listing.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	bin := prog.Binary()
	if len(bin) > io.ROM_SIZE {
		err = cpu.ErrMemoryOverflow
		return
	}

	emu.Rom.Data = bin
	emu.Program = prog

	return emu.Reset()
}

// Reset the CPU, and reload the ROM image.
func (emu *Emulator) Reset() (err error) {
	emu.Cpu.Verbose = emu.Verbose

	emu.Cpu.Reset()
	emu.Frames = 0

	if emu.Rom.Empty() {
		if emu.Verbose {
			log.Printf("emulator: reset, no image")
		}
		return
	}

	err = emu.Cpu.Load(emu.Rom.Data)
	if err != nil {
		return
	}

	if emu.Verbose {
		log.Printf("emulator: reset, %d byte image", len(emu.Rom.Data))
	}

	return
}

// LineNo returns the current line number for the executing opcode.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.Pc)
	if dbg.Opcode == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick performs a single instruction of the emulator.
func (emu *Emulator) Tick() (err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Tick()
	if err != nil {
		// A failed tick leaves PC at the faulting instruction.
		err = &ErrRuntime{Pc: emu.Cpu.Pc, LineNo: emu.LineNo(), Err: err}
		return
	}

	return
}

// Frame runs TicksPerFrame instructions, then decrements the timers.
func (emu *Emulator) Frame() (err error) {
	for range emu.TicksPerFrame {
		err = emu.Tick()
		if err != nil {
			return
		}
	}

	if emu.Cpu.TickTimers() {
		if emu.Verbose {
			log.Printf("emulator: beep")
		}
		if emu.Beep != nil {
			emu.Beep()
		}
	}

	emu.Frames++

	return
}

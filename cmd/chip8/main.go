// Copyright 2025, Jason S. McMullan <jason.mcmullan@gmail.com>

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
	"github.com/ezrec/chip8/io"
	"github.com/ezrec/chip8/translate"
)

func main() {
	var compile string
	var output string
	var save bool
	var dump bool
	var ticks int
	var scale int
	var frames int
	var bell bool
	var terminal bool
	var hold int
	var lang string
	var verbose bool

	flag.StringVar(&compile, "c", "", ".asm file to compile")
	flag.StringVar(&output, "o", "", "ROM file to write")
	flag.BoolVar(&save, "s", false, "Save ROM, do not execute")
	flag.BoolVar(&dump, "d", false, "Print a hex dump of the ROM, do not execute")
	flag.IntVar(&ticks, "t", emulator.TICKS_PER_FRAME, "Instructions per frame")
	flag.IntVar(&scale, "x", 15, "Window scale")
	flag.IntVar(&frames, "n", 0, "Run headless for N frames, then print the display")
	flag.BoolVar(&bell, "b", false, "Ring the terminal bell when the sound timer expires")
	flag.BoolVar(&terminal, "T", false, "Run in the terminal, instead of a window")
	flag.IntVar(&hold, "k", 6, "Frames a key stays pressed in terminal mode")
	flag.StringVar(&lang, "l", "", "Message language (default from the environment)")
	flag.BoolVar(&verbose, "v", false, "Verbose mode")

	flag.Parse()

	if len(lang) != 0 {
		translate.SetLanguage(lang)
	}

	emu := emulator.NewEmulator()
	emu.Verbose = verbose
	emu.TicksPerFrame = ticks

	if bell {
		emu.Beep = func() {
			os.Stderr.WriteString("\a")
		}
	}

	var title string

	switch {
	case len(compile) != 0:
		if flag.NArg() != 0 {
			log.Fatalf("%v: Unknown arguments: %v", os.Args[0], flag.Args())
		}

		inf, err := os.Open(compile)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		defer inf.Close()

		asm := &cpu.Assembler{Verbose: verbose}
		for key, value := range emu.Defines() {
			asm.Predefine(key, value)
		}

		prog, err := asm.Parse(inf)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}

		err = emu.LoadProgram(prog)
		if err != nil {
			log.Fatalf("%v: %v", compile, err)
		}
		title = compile
	case flag.NArg() == 1:
		path := flag.Arg(0)

		inf, err := os.Open(path)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
		defer inf.Close()

		rom := &io.Rom{}
		_, err = rom.ReadFrom(inf)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}

		err = emu.Load(rom.Data)
		if err != nil {
			log.Fatalf("%v: %v", path, err)
		}
		title = path
	default:
		log.Fatalf("%v: A ROM file, or a -c source file, is required", os.Args[0])
	}

	if verbose {
		log.Printf("%v: %d bytes, xxhash %016x", title, len(emu.Rom.Data), emu.Rom.Hash())
	}

	if len(output) != 0 {
		ouf, err := os.Create(output)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
		defer ouf.Close()

		_, err = emu.Rom.WriteTo(ouf)
		if err != nil {
			log.Fatalf("%v: %v", output, err)
		}
	}

	if dump {
		fmt.Print(dumpRom(&emu.Rom))
		return
	}

	if save {
		return
	}

	if frames > 0 {
		for range frames {
			err := emu.Frame()
			if err != nil {
				log.Fatalf("%v: %v", title, err)
			}
		}

		display := emu.Display()
		fmt.Print(display.String())
		return
	}

	var err error
	if terminal {
		err = runTerminal(emu, hold)
	} else {
		err = runWindow(emu, "chip8: "+filepath.Base(title), scale)
	}
	if err != nil {
		log.Fatalf("%v: %v", title, err)
	}
}

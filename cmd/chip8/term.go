package main

import (
	stdio "io"
	"strings"
	"time"
	"unicode"

	"github.com/pkg/term"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

const (
	ASCII_ETX = 0x03 // Ctrl-C, in raw mode.
	ASCII_ESC = 0x1b
)

// blocks renders the display with half-block characters, two pixel rows
// per line of text.
func blocks(display *cpu.Display) string {
	var sb strings.Builder
	for y := 0; y < cpu.DISPLAY_HEIGHT; y += 2 {
		for x := range cpu.DISPLAY_WIDTH {
			top := display.Pixel(x, y)
			bottom := display.Pixel(x, y+1)
			switch {
			case top && bottom:
				sb.WriteRune('█')
			case top:
				sb.WriteRune('▀')
			case bottom:
				sb.WriteRune('▄')
			default:
				sb.WriteRune(' ')
			}
		}
		sb.WriteString("\r\n")
	}

	return sb.String()
}

// readKeys forwards bytes read from r until r fails or done is closed.
// The returned channel is closed when reading stops.
func readKeys(r stdio.Reader, done <-chan struct{}) <-chan byte {
	input := make(chan byte, cpu.KEY_COUNT)
	go func() {
		defer close(input)
		var buff [1]byte
		for {
			n, err := r.Read(buff[:])
			if err != nil {
				return
			}
			if n == 1 {
				select {
				case input <- buff[0]:
				case <-done:
					return
				}
			}
		}
	}()

	return input
}

// runTerminal runs the emulator on the controlling terminal until ESC is
// pressed. Terminals do not report key release, so each key press is held
// for a number of frames.
func runTerminal(emu *emulator.Emulator, hold int) (err error) {
	tty, err := term.Open("/dev/tty", term.RawMode)
	if err != nil {
		return
	}
	defer tty.Close()
	defer tty.Restore()

	done := make(chan struct{})
	defer close(done)

	input := readKeys(tty, done)

	// Clear the screen, and hide the cursor.
	_, err = tty.Write([]byte("\x1b[2J\x1b[?25l"))
	if err != nil {
		return
	}
	defer tty.Write([]byte("\x1b[?25h\r\n"))

	var held [cpu.KEY_COUNT]int

	ticker := time.NewTicker(time.Second / emulator.FRAME_RATE)
	defer ticker.Stop()

	for range ticker.C {
	drain:
		for {
			select {
			case ch, ok := <-input:
				if !ok || ch == ASCII_ESC || ch == ASCII_ETX {
					return
				}
				key, found := keyLayout[unicode.ToLower(rune(ch))]
				if found {
					held[key] = hold
				}
			default:
				break drain
			}
		}

		for key, frames := range held {
			if frames > 0 {
				held[key]--
			}
			err = emu.SetKey(key, frames > 0)
			if err != nil {
				return
			}
		}

		err = emu.Frame()
		if err != nil {
			return
		}

		display := emu.Display()
		_, err = tty.Write([]byte("\x1b[H" + blocks(&display)))
		if err != nil {
			return
		}
	}

	return
}

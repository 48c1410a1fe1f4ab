package main

import (
	"runtime"
	"time"

	"github.com/veandco/go-sdl2/sdl"

	"github.com/ezrec/chip8/cpu"
	"github.com/ezrec/chip8/emulator"
)

// SDL must be driven from the main thread.
func init() {
	runtime.LockOSThread()
}

// runWindow runs the emulator in an SDL window until it is closed.
func runWindow(emu *emulator.Emulator, title string, scale int) (err error) {
	err = sdl.Init(sdl.INIT_VIDEO)
	if err != nil {
		return
	}
	defer sdl.Quit()

	window, err := sdl.CreateWindow(title,
		int32(sdl.WINDOWPOS_UNDEFINED), int32(sdl.WINDOWPOS_UNDEFINED),
		int32(cpu.DISPLAY_WIDTH*scale), int32(cpu.DISPLAY_HEIGHT*scale),
		uint32(sdl.WINDOW_SHOWN))
	if err != nil {
		return
	}
	defer window.Destroy()

	renderer, err := sdl.CreateRenderer(window, -1, uint32(sdl.RENDERER_ACCELERATED))
	if err != nil {
		return
	}
	defer renderer.Destroy()

	ticker := time.NewTicker(time.Second / emulator.FRAME_RATE)
	defer ticker.Stop()

	for range ticker.C {
		for ev := sdl.PollEvent(); ev != nil; ev = sdl.PollEvent() {
			switch ev := ev.(type) {
			case *sdl.QuitEvent:
				return
			case *sdl.KeyboardEvent:
				if ev.Keysym.Sym == sdl.K_ESCAPE {
					return
				}
				// Printable keycodes are their lower case character.
				key, ok := keyLayout[rune(ev.Keysym.Sym)]
				if !ok || ev.Repeat != 0 {
					continue
				}
				err = emu.SetKey(key, ev.Type == sdl.KEYDOWN)
				if err != nil {
					return
				}
			}
		}

		err = emu.Frame()
		if err != nil {
			return
		}

		err = render(renderer, emu.Display(), scale)
		if err != nil {
			return
		}
	}

	return
}

// render draws the framebuffer, one scale x scale square per lit pixel.
func render(renderer *sdl.Renderer, display cpu.Display, scale int) (err error) {
	renderer.SetDrawColor(0, 0, 0, 255)
	err = renderer.Clear()
	if err != nil {
		return
	}

	renderer.SetDrawColor(255, 255, 255, 255)
	for n, lit := range display.Pixels() {
		if !lit {
			continue
		}
		x := n % cpu.DISPLAY_WIDTH
		y := n / cpu.DISPLAY_WIDTH
		err = renderer.FillRect(&sdl.Rect{
			X: int32(x * scale),
			Y: int32(y * scale),
			W: int32(scale),
			H: int32(scale),
		})
		if err != nil {
			return
		}
	}

	renderer.Present()

	return
}

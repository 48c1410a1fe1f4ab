package cpu

import (
	"strings"
)

const (
	DISPLAY_WIDTH  = 64 // Display width, in pixels.
	DISPLAY_HEIGHT = 32 // Display height, in pixels.
)

// Display is the monochrome framebuffer, row-major, true for a lit pixel.
// Pixel (x, y) is at index x + DISPLAY_WIDTH*y.
type Display [DISPLAY_WIDTH * DISPLAY_HEIGHT]bool

// Clear unlights every pixel.
func (d *Display) Clear() {
	clear(d[:])
}

// Pixel reports if the pixel at (x, y) is lit. Coordinates wrap.
func (d *Display) Pixel(x, y int) bool {
	return d[d.index(x, y)]
}

func (d *Display) index(x, y int) int {
	x = ((x % DISPLAY_WIDTH) + DISPLAY_WIDTH) % DISPLAY_WIDTH
	y = ((y % DISPLAY_HEIGHT) + DISPLAY_HEIGHT) % DISPLAY_HEIGHT
	return x + DISPLAY_WIDTH*y
}

// Draw XORs an 8-pixel wide sprite onto the display, one byte per row with
// the most significant bit leftmost. Pixels off an edge wrap to the other
// side. Returns true if any lit pixel was turned off.
func (d *Display) Draw(x, y int, sprite []byte) (collision bool) {
	for row, bits := range sprite {
		for col := range 8 {
			if bits&(0x80>>col) == 0 {
				continue
			}
			n := d.index(x+col, y+row)
			collision = collision || d[n]
			d[n] = !d[n]
		}
	}

	return
}

// Lit counts the lit pixels.
func (d *Display) Lit() (count int) {
	for _, on := range d {
		if on {
			count++
		}
	}

	return
}

// Pixels returns a copy of the framebuffer as a flat row-major slice.
func (d *Display) Pixels() []bool {
	return append([]bool(nil), d[:]...)
}

// String renders the display as text, '#' for lit and '.' for unlit.
func (d *Display) String() string {
	var sb strings.Builder
	sb.Grow((DISPLAY_WIDTH + 1) * DISPLAY_HEIGHT)
	for y := range DISPLAY_HEIGHT {
		for x := range DISPLAY_WIDTH {
			if d[x+DISPLAY_WIDTH*y] {
				sb.WriteByte('#')
			} else {
				sb.WriteByte('.')
			}
		}
		sb.WriteByte('\n')
	}

	return sb.String()
}

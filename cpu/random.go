package cpu

import (
	"math/rand"
)

// Random supplies the bytes used by the RND instruction.
type Random interface {
	Byte() uint8
}

// RandomFunc adapts a function to the Random interface.
type RandomFunc func() uint8

func (rf RandomFunc) Byte() uint8 {
	return rf()
}

// DefaultRandom draws from the math/rand global source.
var DefaultRandom Random = RandomFunc(func() uint8 {
	return uint8(rand.Uint32())
})

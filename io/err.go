package io

import (
	"errors"

	"github.com/ezrec/chip8/translate"
)

var f = translate.From

var (
	// Rom errors
	ErrRomTooLarge = errors.New(f("rom image too large"))
	ErrRomEmpty    = errors.New(f("rom image empty"))
)

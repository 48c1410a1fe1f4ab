package emulator

import (
	"github.com/ezrec/chip8/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint16
	LineNo int
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return f("pc %03X %v", err.Pc, err.Err)
	}
	return f("line %d pc %03X %v", err.LineNo, err.Pc, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}

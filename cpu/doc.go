// Package cpu implements the interpreter and assembler for the CHIP-8 virtual machine.
//
// The machine consists of 4K of memory, sixteen 8-bit registers (v0-vf, with
// vf doubling as the carry/borrow/collision flag), a 16-bit index register,
// a program counter, a 16-deep call stack, delay and sound timers, a 16-key
// hexadecimal keypad and a 64x32 monochrome display.
//
// The interpreter advances one instruction per Tick. Timers are advanced
// separately by TickTimers, at whatever real-time rate the host chooses
// (conventionally 60Hz).
//
// The assembler provides a small assembly language for the CHIP-8 instruction
// set, supporting macros, labels, equates, and compile-time expression evaluation.
package cpu

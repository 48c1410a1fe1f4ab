package cpu

import (
	"fmt"
	"iter"
	"log"
	"maps"
)

const (
	MEMORY_SIZE     = 4096                        // Addressable memory, in bytes.
	ADDRESS_MASK    = MEMORY_SIZE - 1             // Mask of the 12-bit address space.
	PROGRAM_START   = 0x200                       // Load address and initial PC.
	PROGRAM_SIZE    = MEMORY_SIZE - PROGRAM_START // Largest loadable program image.
	FONT_START      = 0x000                       // Address of the built-in font.
	FONT_GLYPH_SIZE = 5                           // Bytes per font glyph.
	REGISTER_COUNT  = 16                          // General purpose registers.
	REG_FLAG        = 0xf                         // Carry, borrow and collision flag register.
)

// Font is the built-in sprite set for the hexadecimal digits 0-F.
var Font = [16 * FONT_GLYPH_SIZE]byte{
	0xF0, 0x90, 0x90, 0x90, 0xF0, // 0
	0x20, 0x60, 0x20, 0x20, 0x70, // 1
	0xF0, 0x10, 0xF0, 0x80, 0xF0, // 2
	0xF0, 0x10, 0xF0, 0x10, 0xF0, // 3
	0x90, 0x90, 0xF0, 0x10, 0x10, // 4
	0xF0, 0x80, 0xF0, 0x10, 0xF0, // 5
	0xF0, 0x80, 0xF0, 0x90, 0xF0, // 6
	0xF0, 0x10, 0x20, 0x40, 0x40, // 7
	0xF0, 0x90, 0xF0, 0x90, 0xF0, // 8
	0xF0, 0x90, 0xF0, 0x10, 0xF0, // 9
	0xF0, 0x90, 0xF0, 0x90, 0x90, // A
	0xE0, 0x90, 0xE0, 0x90, 0xE0, // B
	0xF0, 0x80, 0x80, 0x80, 0xF0, // C
	0xE0, 0x90, 0x90, 0x90, 0xE0, // D
	0xF0, 0x80, 0xF0, 0x80, 0xF0, // E
	0xF0, 0x80, 0xF0, 0x80, 0x80, // F
}

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":     fmt.Sprintf("%#x", MEMORY_SIZE),
	"PROGRAM_START":   fmt.Sprintf("%#x", PROGRAM_START),
	"FONT_START":      fmt.Sprintf("%#x", FONT_START),
	"FONT_GLYPH_SIZE": fmt.Sprintf("%d", FONT_GLYPH_SIZE),
	"DISPLAY_WIDTH":   fmt.Sprintf("%d", DISPLAY_WIDTH),
	"DISPLAY_HEIGHT":  fmt.Sprintf("%d", DISPLAY_HEIGHT),
	"KEY_COUNT":       fmt.Sprintf("%d", KEY_COUNT),
}

// Cpu is the simulation context for the CHIP-8 interpreter.
//
// A Cpu is owned by a single caller; it performs no locking.
type Cpu struct {
	Verbose bool   // Set to enable verbose logging.
	Random  Random // Source of bytes for the RND instruction.

	Memory [MEMORY_SIZE]uint8    // Main memory.
	V      [REGISTER_COUNT]uint8 // Register bank; V[REG_FLAG] is the flag register.
	I      uint16                // Index register.
	Pc     uint16                // Program counter.
	Stack  Stack                 // Return address stack.
	Delay  uint8                 // Delay timer.
	Sound  uint8                 // Sound timer.
	Keys   Keypad                // Keypad state.

	Ticks int // Instructions executed since reset.

	display Display
}

// NewCpu creates a CPU in its reset state. A nil random uses DefaultRandom.
func NewCpu(random Random) (cpu *Cpu) {
	if random == nil {
		random = DefaultRandom
	}

	cpu = &Cpu{
		Random: random,
	}

	cpu.Reset()

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	text += fmt.Sprintf("   pc: %03X\n", cpu.Pc)
	text += fmt.Sprintf("    i: %03X\n", cpu.I)
	for n, val := range cpu.V {
		text += fmt.Sprintf("   v%x: %02X\n", n, val)
	}
	val, ok := cpu.Stack.Peek()
	if ok {
		text += fmt.Sprintf("stack: %03X (%d)\n", val, cpu.Stack.Depth)
	} else {
		text += "stack: ---\n"
	}
	text += fmt.Sprintf("   dt: %02X\n", cpu.Delay)
	text += fmt.Sprintf("   st: %02X\n", cpu.Sound)

	return
}

// Reset the CPU state.
// - Clears memory, then installs the font.
// - Clears registers, stack, timers, keys and display.
// - Sets PC to PROGRAM_START.
func (cpu *Cpu) Reset() {
	if cpu.Verbose {
		log.Printf("cpu: reset")
	}

	clear(cpu.Memory[:])
	copy(cpu.Memory[FONT_START:], Font[:])

	clear(cpu.V[:])
	cpu.I = 0
	cpu.Pc = PROGRAM_START
	cpu.Stack.Reset()
	cpu.Delay = 0
	cpu.Sound = 0
	cpu.Keys.Reset()
	cpu.display.Clear()
	cpu.Ticks = 0
}

// Load copies a program image into memory at PROGRAM_START.
// Registers and PC are not affected.
func (cpu *Cpu) Load(program []byte) (err error) {
	if len(program) > PROGRAM_SIZE {
		err = ErrMemoryOverflow
		return
	}

	copy(cpu.Memory[PROGRAM_START:], program)

	if cpu.Verbose {
		log.Printf("cpu: loaded %d bytes", len(program))
	}

	return
}

// Display returns a copy of the framebuffer.
func (cpu *Cpu) Display() Display {
	return cpu.display
}

// SetKey sets the pressed state of a keypad key.
func (cpu *Cpu) SetKey(index int, pressed bool) error {
	return cpu.Keys.Set(index, pressed)
}

// TickTimers decrements the delay and sound timers.
// Returns true when the sound timer has just expired.
func (cpu *Cpu) TickTimers() (expired bool) {
	if cpu.Delay > 0 {
		cpu.Delay--
	}

	if cpu.Sound > 0 {
		cpu.Sound--
		expired = cpu.Sound == 0
	}

	return
}

// Fetch reads the instruction word at PC, and advances PC.
func (cpu *Cpu) Fetch() (code Code) {
	hi := cpu.Memory[cpu.Pc&ADDRESS_MASK]
	lo := cpu.Memory[(cpu.Pc+1)&ADDRESS_MASK]

	code = Code(uint16(hi)<<8 | uint16(lo))
	cpu.Pc += 2

	return
}

// Tick performs a single fetch and execute cycle.
// On error, the CPU is left in the state it had before the call.
func (cpu *Cpu) Tick() (err error) {
	pc := cpu.Pc
	code := cpu.Fetch()

	if cpu.Verbose {
		log.Printf("cpu: %03X: %v", pc, code)
	}

	err = cpu.Execute(code)
	if err != nil {
		cpu.Pc = pc
		return
	}

	cpu.Ticks++

	return
}

// read returns memory at an offset from the index register.
func (cpu *Cpu) read(offset int) uint8 {
	return cpu.Memory[(int(cpu.I)+offset)&ADDRESS_MASK]
}

// write sets memory at an offset from the index register.
func (cpu *Cpu) write(offset int, value uint8) {
	cpu.Memory[(int(cpu.I)+offset)&ADDRESS_MASK] = value
}

// skip the next instruction if cond is met.
func (cpu *Cpu) skip(cond bool) {
	if cond {
		cpu.Pc += 2
	}
}

func flag(set bool) uint8 {
	if set {
		return 1
	}
	return 0
}

// Execute a single instruction. PC is expected to already point past it.
// Instructions that fail do not modify the CPU state.
func (cpu *Cpu) Execute(code Code) (err error) {
	x := code.X()
	y := code.Y()
	nn := code.NN()
	nnn := code.NNN()

	switch code.Family() {
	case OP_SYS:
		switch nnn {
		case SYS_OP_NOP:
		case SYS_OP_CLS:
			cpu.display.Clear()
		case SYS_OP_RET:
			pc, ok := cpu.Stack.Pop()
			if !ok {
				err = ErrStackEmpty
				return
			}
			cpu.Pc = pc
		default:
			err = ErrOpcode(code)
		}
	case OP_JP:
		cpu.Pc = nnn
	case OP_CALL:
		if !cpu.Stack.Push(cpu.Pc) {
			err = ErrStackFull
			return
		}
		cpu.Pc = nnn
	case OP_SE:
		cpu.skip(cpu.V[x] == nn)
	case OP_SNE:
		cpu.skip(cpu.V[x] != nn)
	case OP_SER:
		if code.N() != 0 {
			err = ErrOpcode(code)
			return
		}
		cpu.skip(cpu.V[x] == cpu.V[y])
	case OP_LD:
		cpu.V[x] = nn
	case OP_ADD:
		cpu.V[x] += nn
	case OP_ALU:
		err = cpu.executeAlu(code, x, y)
	case OP_SNER:
		if code.N() != 0 {
			err = ErrOpcode(code)
			return
		}
		cpu.skip(cpu.V[x] != cpu.V[y])
	case OP_LDI:
		cpu.I = nnn
	case OP_JPV0:
		cpu.Pc = uint16(cpu.V[0]) + nnn
	case OP_RND:
		cpu.V[x] = cpu.Random.Byte() & nn
	case OP_DRW:
		sprite := make([]byte, code.N())
		for row := range sprite {
			sprite[row] = cpu.read(row)
		}
		collision := cpu.display.Draw(int(cpu.V[x]), int(cpu.V[y]), sprite)
		cpu.V[REG_FLAG] = flag(collision)
	case OP_KEY:
		switch nn {
		case KEY_OP_SKP:
			cpu.skip(cpu.Keys.Pressed(cpu.V[x]))
		case KEY_OP_SKNP:
			cpu.skip(!cpu.Keys.Pressed(cpu.V[x]))
		default:
			err = ErrOpcode(code)
		}
	case OP_MISC:
		err = cpu.executeMisc(code, x)
	}

	return
}

// executeAlu executes the register-register operations.
func (cpu *Cpu) executeAlu(code Code, x, y int) (err error) {
	vx := cpu.V[x]
	vy := cpu.V[y]

	switch CodeAluOp(code.N()) {
	case ALU_OP_SET:
		cpu.V[x] = vy
	case ALU_OP_OR:
		cpu.V[x] = vx | vy
	case ALU_OP_AND:
		cpu.V[x] = vx & vy
	case ALU_OP_XOR:
		cpu.V[x] = vx ^ vy
	case ALU_OP_ADD:
		sum := uint16(vx) + uint16(vy)
		cpu.V[x] = uint8(sum)
		cpu.V[REG_FLAG] = flag(sum > 0xff)
	case ALU_OP_SUB:
		cpu.V[x] = vx - vy
		cpu.V[REG_FLAG] = flag(vx >= vy)
	case ALU_OP_SHR:
		cpu.V[x] = vx >> 1
		cpu.V[REG_FLAG] = vx & 1
	case ALU_OP_SUBN:
		cpu.V[x] = vy - vx
		cpu.V[REG_FLAG] = flag(vy >= vx)
	case ALU_OP_SHL:
		cpu.V[x] = vx << 1
		cpu.V[REG_FLAG] = vx >> 7
	default:
		err = ErrOpcode(code)
	}

	return
}

// executeMisc executes the timer, keypad wait, and index register operations.
func (cpu *Cpu) executeMisc(code Code, x int) (err error) {
	switch code.NN() {
	case MISC_OP_GET_DT:
		cpu.V[x] = cpu.Delay
	case MISC_OP_WAITKEY:
		key, ok := cpu.Keys.First()
		if !ok {
			// Run this instruction again on the next tick.
			cpu.Pc -= 2
			return
		}
		cpu.V[x] = key
	case MISC_OP_SET_DT:
		cpu.Delay = cpu.V[x]
	case MISC_OP_SET_ST:
		cpu.Sound = cpu.V[x]
	case MISC_OP_ADD_I:
		cpu.I += uint16(cpu.V[x])
	case MISC_OP_FONT:
		cpu.I = FONT_START + uint16(cpu.V[x])*FONT_GLYPH_SIZE
	case MISC_OP_BCD:
		vx := cpu.V[x]
		cpu.write(0, vx/100)
		cpu.write(1, (vx/10)%10)
		cpu.write(2, vx%10)
	case MISC_OP_STORE:
		for n := 0; n <= x; n++ {
			cpu.write(n, cpu.V[n])
		}
	case MISC_OP_LOAD:
		for n := 0; n <= x; n++ {
			cpu.V[n] = cpu.read(n)
		}
	default:
		err = ErrOpcode(code)
	}

	return
}

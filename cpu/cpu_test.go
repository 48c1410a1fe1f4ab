package cpu

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedRandom always returns the same byte.
func fixedRandom(value uint8) Random {
	return RandomFunc(func() uint8 { return value })
}

// loadWords loads a program of instruction words at PROGRAM_START.
func loadWords(t *testing.T, cpu *Cpu, words ...uint16) {
	var program []byte
	for _, word := range words {
		program = append(program, Code(word).Bytes()...)
	}

	assert.NoError(t, cpu.Load(program))
}

func TestCpuReset(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	assert.NotNil(cpu.Random)

	// Dirty everything.
	loadWords(t, cpu, 0xd015)
	cpu.V[0] = 0x10
	cpu.V[REG_FLAG] = 1
	cpu.I = 0x123
	cpu.Pc = 0x456
	cpu.Stack.Push(0x202)
	cpu.Delay = 3
	cpu.Sound = 4
	cpu.Keys[5] = true
	cpu.Memory[0x10] = 0xff
	cpu.Tick()

	cpu.Reset()

	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.Equal([REGISTER_COUNT]uint8{}, cpu.V)
	assert.Equal(uint16(0), cpu.I)
	assert.Equal(0, cpu.Stack.Depth)
	assert.Equal(uint8(0), cpu.Delay)
	assert.Equal(uint8(0), cpu.Sound)
	assert.Equal(Keypad{}, cpu.Keys)
	assert.Equal(0, cpu.Ticks)
	display := cpu.Display()
	assert.Equal(0, display.Lit())
	assert.Equal(Font[:], cpu.Memory[:len(Font)])
	assert.Equal(make([]byte, MEMORY_SIZE-len(Font)), cpu.Memory[len(Font):])
}

func TestCpuLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	cpu.V[3] = 9
	cpu.Pc = 0x300

	assert.NoError(cpu.Load([]byte{0x12, 0x34}))
	assert.Equal(uint8(9), cpu.V[3])
	assert.Equal(uint16(0x300), cpu.Pc)

	cpu.Pc = PROGRAM_START
	assert.Equal(Code(0x1234), cpu.Fetch())
	assert.Equal(uint16(PROGRAM_START+2), cpu.Pc)

	// A tick executes the fetched word; 0x1234 is 'jp 0x234'.
	cpu.Pc = PROGRAM_START
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x234), cpu.Pc)
}

func TestCpuLoadOverflow(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)

	big := make([]byte, PROGRAM_SIZE+1)
	for n := range big {
		big[n] = 0xaa
	}

	err := cpu.Load(big)
	assert.ErrorIs(err, ErrMemoryOverflow)
	assert.Equal(make([]byte, PROGRAM_SIZE), cpu.Memory[PROGRAM_START:])

	err = cpu.Load(big[:PROGRAM_SIZE])
	assert.NoError(err)
	assert.Equal(uint8(0xaa), cpu.Memory[PROGRAM_START])
	assert.Equal(uint8(0xaa), cpu.Memory[MEMORY_SIZE-1])
}

func TestCpuClear(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu,
		0xd015, // drw v0 v1 5
		0x00e0, // cls
	)

	assert.NoError(cpu.Tick())
	display := cpu.Display()
	assert.NotEqual(0, display.Lit())

	assert.NoError(cpu.Tick())
	display = cpu.Display()
	assert.Equal(0, display.Lit())
	assert.Equal(Display{}, display)
}

func TestCpuCallReturn(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu, 0x2300) // call 0x300
	cpu.Memory[0x300] = 0x00  // ret
	cpu.Memory[0x301] = 0xee

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x300), cpu.Pc)
	assert.Equal(1, cpu.Stack.Depth)
	top, ok := cpu.Stack.Peek()
	assert.True(ok)
	assert.Equal(uint16(PROGRAM_START+2), top)

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(PROGRAM_START+2), cpu.Pc)
	assert.Equal(0, cpu.Stack.Depth)
}

func TestCpuStackBounds(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu, 0x00ee) // ret

	err := cpu.Tick()
	assert.ErrorIs(err, ErrStackEmpty)
	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.Equal(0, cpu.Ticks)

	cpu.Reset()
	loadWords(t, cpu, 0x2200) // call 0x200, forever
	for range STACK_LIMIT {
		assert.NoError(cpu.Tick())
	}
	assert.True(cpu.Stack.Full())

	err = cpu.Tick()
	assert.ErrorIs(err, ErrStackFull)
	assert.Equal(uint16(PROGRAM_START), cpu.Pc)
	assert.Equal(STACK_LIMIT, cpu.Stack.Depth)
	assert.Equal(STACK_LIMIT, cpu.Ticks)
}

func TestCpuJump(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name string
		word uint16
		v0   uint8
		pc   uint16
	}){
		{"jp", 0x1234, 0, 0x234},
		{"jp_v0", 0xb300, 0x10, 0x310},
		{"jp_v0_zero", 0xb300, 0x00, 0x300},
		{"nop", 0x0000, 0, PROGRAM_START + 2},
	}

	for _, entry := range table {
		cpu := NewCpu(nil)
		loadWords(t, cpu, entry.word)
		cpu.V[0] = entry.v0

		assert.NoError(cpu.Tick(), entry.name)
		assert.Equal(entry.pc, cpu.Pc, entry.name)
	}
}

func TestCpuSkip(t *testing.T) {
	assert := assert.New(t)

	const next = PROGRAM_START + 2
	const skip = PROGRAM_START + 4

	table := [](struct {
		name   string
		word   uint16
		v0, v1 uint8
		key    int
		pc     uint16
	}){
		{"se_eq", 0x3012, 0x12, 0, -1, skip},
		{"se_ne", 0x3012, 0x13, 0, -1, next},
		{"sne_eq", 0x4012, 0x12, 0, -1, next},
		{"sne_ne", 0x4012, 0x13, 0, -1, skip},
		{"se_r_eq", 0x5010, 0x20, 0x20, -1, skip},
		{"se_r_ne", 0x5010, 0x20, 0x21, -1, next},
		{"sne_r_eq", 0x9010, 0x20, 0x20, -1, next},
		{"sne_r_ne", 0x9010, 0x20, 0x21, -1, skip},
		{"skp_pressed", 0xe09e, 0x5, 0, 0x5, skip},
		{"skp_released", 0xe09e, 0x5, 0, 0x6, next},
		{"sknp_pressed", 0xe0a1, 0x5, 0, 0x5, next},
		{"sknp_released", 0xe0a1, 0x5, 0, -1, skip},
	}

	for _, entry := range table {
		cpu := NewCpu(nil)
		loadWords(t, cpu, entry.word)
		cpu.V[0] = entry.v0
		cpu.V[1] = entry.v1
		if entry.key >= 0 {
			assert.NoError(cpu.SetKey(entry.key, true), entry.name)
		}

		assert.NoError(cpu.Tick(), entry.name)
		assert.Equal(uint16(entry.pc), cpu.Pc, entry.name)
	}
}

func TestCpuAlu(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name   string
		word   uint16
		vx, vy uint8
		result uint8
		flag   uint8
	}){
		{"ld_imm", 0x60ab, 0x00, 0x00, 0xab, 0x55},
		{"add_imm", 0x7005, 0x10, 0x00, 0x15, 0x55},
		{"add_imm_wrap", 0x7005, 0xff, 0x00, 0x04, 0x55},
		{"ld", 0x8010, 0x01, 0x02, 0x02, 0x55},
		{"or", 0x8011, 0x0c, 0x0a, 0x0e, 0x55},
		{"and", 0x8012, 0x0c, 0x0a, 0x08, 0x55},
		{"xor", 0x8013, 0x0c, 0x0a, 0x06, 0x55},
		{"add", 0x8014, 0x10, 0x20, 0x30, 0},
		{"add_carry", 0x8014, 0xff, 0x01, 0x00, 1},
		{"sub", 0x8015, 0x05, 0x03, 0x02, 1},
		{"sub_equal", 0x8015, 0x05, 0x05, 0x00, 1},
		{"sub_borrow", 0x8015, 0x01, 0x02, 0xff, 0},
		{"shr_odd", 0x8016, 0x05, 0x00, 0x02, 1},
		{"shr_even", 0x8016, 0x04, 0x00, 0x02, 0},
		{"subn", 0x8017, 0x03, 0x05, 0x02, 1},
		{"subn_borrow", 0x8017, 0x05, 0x03, 0xfe, 0},
		{"shl_high", 0x801e, 0x81, 0x00, 0x02, 1},
		{"shl_low", 0x801e, 0x41, 0x00, 0x82, 0},
	}

	for _, entry := range table {
		cpu := NewCpu(nil)
		loadWords(t, cpu, entry.word)
		cpu.V[0] = entry.vx
		cpu.V[1] = entry.vy
		cpu.V[REG_FLAG] = 0x55

		assert.NoError(cpu.Tick(), entry.name)
		assert.Equal(entry.result, cpu.V[0], entry.name)
		assert.Equal(entry.flag, cpu.V[REG_FLAG], entry.name)
		assert.Equal(uint16(PROGRAM_START+2), cpu.Pc, entry.name)
	}
}

func TestCpuAluFlagRegister(t *testing.T) {
	assert := assert.New(t)

	// When vf is the destination, the flag is written after the result.
	table := [](struct {
		word uint16
		vf   uint8
		v0   uint8
		flag uint8
	}){
		{0x8f04, 0x10, 0x01, 0}, // add vf v0
		{0x8f04, 0xff, 0x01, 1},
		{0x8f05, 0x10, 0x01, 1}, // sub vf v0
		{0x8f05, 0x01, 0x10, 0},
		{0x8f06, 0x10, 0x00, 0}, // shr vf
		{0x8f06, 0x11, 0x00, 1},
		{0x8f07, 0x10, 0x01, 0}, // subn vf v0
		{0x8f07, 0x01, 0x10, 1},
		{0x8f0e, 0x10, 0x00, 0}, // shl vf
		{0x8f0e, 0x81, 0x00, 1},
	}

	for _, entry := range table {
		cpu := NewCpu(nil)
		loadWords(t, cpu, entry.word)
		cpu.V[0] = entry.v0
		cpu.V[REG_FLAG] = entry.vf

		assert.NoError(cpu.Tick())
		assert.Equal(entry.flag, cpu.V[REG_FLAG], Code(entry.word).String())
	}
}

func TestCpuDraw(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu,
		0xa000, // ld i 0        ; glyph '0'
		0xd015, // drw v0 v1 5
		0xd015, // drw v0 v1 5
	)
	cpu.V[0] = 10
	cpu.V[1] = 4

	assert.NoError(cpu.Tick())
	assert.NoError(cpu.Tick())
	assert.Equal(uint8(0), cpu.V[REG_FLAG])
	display := cpu.Display()
	assert.Equal(14, display.Lit())
	assert.True(display.Pixel(10, 4))
	assert.True(display.Pixel(13, 8))
	assert.False(display.Pixel(11, 5))

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(1), cpu.V[REG_FLAG])
	display = cpu.Display()
	assert.Equal(Display{}, display)
}

func TestCpuDrawWrap(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu, 0xd011) // drw v0 v1 1
	cpu.I = 0x300
	cpu.Memory[0x300] = 0xff
	cpu.V[0] = DISPLAY_WIDTH - 4
	cpu.V[1] = DISPLAY_HEIGHT + 2 // wraps to row 2

	assert.NoError(cpu.Tick())
	display := cpu.Display()
	assert.Equal(8, display.Lit())
	assert.True(display.Pixel(DISPLAY_WIDTH-1, 2))
	assert.True(display.Pixel(0, 2))
	assert.True(display.Pixel(3, 2))
	assert.False(display.Pixel(4, 2))
}

func TestCpuRandomMask(t *testing.T) {
	assert := assert.New(t)

	for _, random := range []uint8{0x00, 0xff, 0xa5, 0x5a, 0x81} {
		for _, nn := range []uint8{0x00, 0x0f, 0xf0, 0xff, 0x3c} {
			cpu := NewCpu(fixedRandom(random))
			loadWords(t, cpu, uint16(MakeCodeXNN(OP_RND, 7, nn)))

			assert.NoError(cpu.Tick())
			assert.Equal(uint8(0), cpu.V[7]&^nn)
			assert.Equal(random&nn, cpu.V[7])
		}
	}
}

func TestCpuWaitKey(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu, 0xf30a) // ld v3 k
	cpu.V[3] = 0x42

	for range 3 {
		assert.NoError(cpu.Tick())
		assert.Equal(uint16(PROGRAM_START), cpu.Pc)
		assert.Equal(uint8(0x42), cpu.V[3])
	}

	assert.NoError(cpu.SetKey(0xc, true))
	assert.NoError(cpu.SetKey(0x7, true))
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(PROGRAM_START+2), cpu.Pc)
	assert.Equal(uint8(0x7), cpu.V[3])
}

func TestCpuTimers(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu,
		0x6002, // ld v0 2
		0xf015, // ld dt v0
		0xf018, // ld st v0
		0x6000, // ld v0 0
		0xf107, // ld v1 dt
	)

	for range 4 {
		assert.NoError(cpu.Tick())
	}
	assert.Equal(uint8(2), cpu.Delay)
	assert.Equal(uint8(2), cpu.Sound)

	assert.False(cpu.TickTimers())
	assert.Equal(uint8(1), cpu.Delay)
	assert.Equal(uint8(1), cpu.Sound)

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(1), cpu.V[1])

	assert.True(cpu.TickTimers())
	assert.Equal(uint8(0), cpu.Delay)
	assert.Equal(uint8(0), cpu.Sound)

	assert.False(cpu.TickTimers())
	assert.Equal(uint8(0), cpu.Delay)
	assert.Equal(uint8(0), cpu.Sound)
}

func TestCpuIndex(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu,
		0xa123, // ld i 0x123
		0xf01e, // add i v0
		0xf129, // ld f v1
		0xf01e, // add i v0
	)
	cpu.V[0] = 0x10
	cpu.V[1] = 0xa

	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x123), cpu.I)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x133), cpu.I)
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(FONT_START+0xa*FONT_GLYPH_SIZE), cpu.I)

	cpu.I = 0xfff8
	assert.NoError(cpu.Tick())
	assert.Equal(uint16(0x0008), cpu.I)
}

func TestCpuBcd(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		value  uint8
		digits []uint8
	}){
		{0, []uint8{0, 0, 0}},
		{7, []uint8{0, 0, 7}},
		{42, []uint8{0, 4, 2}},
		{123, []uint8{1, 2, 3}},
		{255, []uint8{2, 5, 5}},
	}

	for _, entry := range table {
		cpu := NewCpu(nil)
		loadWords(t, cpu, 0xf533) // ld b v5
		cpu.V[5] = entry.value
		cpu.I = 0x300

		assert.NoError(cpu.Tick())
		assert.Equal(entry.digits, cpu.Memory[0x300:0x303], entry.value)
		assert.Equal(uint16(0x300), cpu.I)
	}
}

func TestCpuStoreLoad(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu,
		0xf355, // ld [i] v3
		0xf265, // ld v2 [i]
	)
	cpu.V = [REGISTER_COUNT]uint8{1, 2, 3, 4, 5}
	cpu.I = 0x300

	assert.NoError(cpu.Tick())
	assert.Equal([]uint8{1, 2, 3, 4, 0}, cpu.Memory[0x300:0x305])
	assert.Equal(uint16(0x300), cpu.I)

	cpu.V = [REGISTER_COUNT]uint8{}
	assert.NoError(cpu.Tick())
	assert.Equal([REGISTER_COUNT]uint8{1, 2, 3}, cpu.V)
	assert.Equal(uint16(0x300), cpu.I)
}

func TestCpuAddressWrap(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	loadWords(t, cpu, 0xf155) // ld [i] v1
	cpu.V[0] = 0x11
	cpu.V[1] = 0x22
	cpu.I = MEMORY_SIZE - 1

	assert.NoError(cpu.Tick())
	assert.Equal(uint8(0x11), cpu.Memory[MEMORY_SIZE-1])
	assert.Equal(uint8(0x22), cpu.Memory[0])
}

func TestCpuBadOpcode(t *testing.T) {
	assert := assert.New(t)

	for _, word := range []uint16{0x0123, 0x00e1, 0x5121, 0x8008, 0x800f, 0x9001, 0xe000, 0xe19f, 0xf000, 0xf1ff, 0xffff} {
		cpu := NewCpu(nil)
		cpu.Random = nil // funcs never compare equal
		loadWords(t, cpu, word)
		cpu.V[1] = 0x33
		before := *cpu

		err := cpu.Tick()
		assert.Error(err, "%04x", word)
		assert.ErrorIs(err, ErrOpcode(0), "%04x", word)

		var eo ErrOpcode
		assert.True(errors.As(err, &eo), "%04x", word)
		assert.Equal(Code(word), Code(eo))

		// The machine state is untouched.
		assert.Equal(before, *cpu, "%04x", word)

		// And the failure is reproducible.
		assert.Equal(err, cpu.Tick())
	}
}

func TestCpuSetKey(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)

	assert.NoError(cpu.SetKey(0, true))
	assert.NoError(cpu.SetKey(0xf, true))
	assert.True(cpu.Keys[0])
	assert.True(cpu.Keys[0xf])

	assert.NoError(cpu.SetKey(0, false))
	assert.False(cpu.Keys[0])

	assert.ErrorIs(cpu.SetKey(16, true), ErrKeyIndex)
	assert.ErrorIs(cpu.SetKey(-1, true), ErrKeyIndex)
}

func TestCpuString(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)
	cpu.V[0xa] = 0x5c
	cpu.Stack.Push(0x246)

	text := cpu.String()
	assert.Contains(text, "   pc: 200\n")
	assert.Contains(text, "   va: 5C\n")
	assert.Contains(text, "stack: 246 (1)\n")
}

func TestCpuDefines(t *testing.T) {
	assert := assert.New(t)

	cpu := NewCpu(nil)

	defines := map[string]string{}
	for key, value := range cpu.Defines() {
		defines[key] = value
	}

	assert.Equal("0x200", defines["PROGRAM_START"])
	assert.Equal("64", defines["DISPLAY_WIDTH"])
	assert.Equal("5", defines["FONT_GLYPH_SIZE"])
}

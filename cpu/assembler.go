// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

const (
	MACRO_DEPTH_LIMIT = 16 // Maximum depth of nested macro expansions.
)

// Predefined system equates, in addition to the cpu defines.
var sysEquate = map[string]string{
	"LINENO": "0",
}

// Assembler is a single pass macro assembler for the CHIP-8 instruction set.
type Assembler struct {
	Verbose bool     // If set, verbosely logs the assembler actions.
	Opcode  []Opcode // List of generated opcodes.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	depth int // Current macro expansion depth.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

var (
	reCharacter  = regexp.MustCompile(`'\\?[^']'`)
	reExpression = regexp.MustCompile(`\$\([^\$]*\)`)
	reLabel      = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

// valueOf returns the value of a simple word.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	if len(word) == 0 {
		err = ErrParseNumber(word)
		return
	}
	if word[0] == '\'' {
		// Character quotes should have been expanded into
		// values in parseLine()
		if len(word) < 2 || word[len(word)-1] != '\'' {
			err = ErrParseCharacter(word)
			return
		}
		err = ErrParseCharacter(word[1 : len(word)-1])
		return
	}
	v64, err := strconv.ParseInt(word, 0, 32)
	if err != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)

	return
}

// registerOf returns the index of a vX register name.
func registerOf(word string) (x int, ok bool) {
	if len(word) != 2 || (word[0] != 'v' && word[0] != 'V') {
		return
	}

	v64, err := strconv.ParseUint(word[1:], 16, 4)
	if err != nil {
		return
	}

	return int(v64), true
}

// byteOf returns a byte operand. Negative values are two's complement.
func (asm *Assembler) byteOf(word string) (value uint8, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < -0x80 || v > 0xff {
		err = ErrValueRange
		return
	}

	value = uint8(v)

	return
}

// nibbleOf returns a 4-bit operand.
func (asm *Assembler) nibbleOf(word string) (value uint8, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		return
	}
	if v < 0 || v > 0xf {
		err = ErrValueRange
		return
	}

	value = uint8(v)

	return
}

// addrOf returns a 12-bit address operand, or the label to link it to.
func (asm *Assembler) addrOf(word string) (addr uint16, label string, err error) {
	v, err := asm.valueOf(word)
	if err != nil {
		if reLabel.MatchString(word) {
			err = nil
			label = word
		}
		return
	}
	if v < 0 || v > ADDRESS_MASK {
		err = ErrValueRange
		return
	}

	addr = uint16(v)

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var v int
		v, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(v)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// splitWords splits a line on whitespace and commas.
func splitWords(line string) []string {
	return strings.FieldsFunc(line, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t'
	})
}

// parseLine parses a single line as an opcode.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	// Do 'x' evaluations
	line = reCharacter.ReplaceAllStringFunc(line, func(word string) string {
		str := word[1 : len(word)-1]
		if str[0] == '\\' {
			str = str[1:]
			switch str {
			case "\\":
				str = "\\"
			case "n":
				str = "\n"
			case "r":
				str = "\r"
			case "e":
				str = "\033"
			default:
				return word
			}
		} else if len(str) != 1 {
			return word
		}
		return fmt.Sprintf("%v", str[0])
	})

	// Do $() evaluations
	line = reExpression.ReplaceAllStringFunc(line, func(str string) string {
		value, _err := asm.parenEval(str[2 : len(str)-1])
		if _err != nil {
			err = _err
		}
		return fmt.Sprintf("%d", value)
	})
	if err != nil {
		return
	}

	words = splitWords(line)

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if words[0] == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		asm.Equate[words[1]] = words[2]
		words = words[:0]
		return
	}

	for n, word := range words {
		// Check for equate next
		equate, ok := asm.Equate[word]
		if ok {
			words[n] = equate
		}
	}

	for strings.HasSuffix(words[0], ":") {
		label := words[0][:len(words[0])-1]
		_, ok := asm.Label[label]
		if ok {
			err = ErrLabelDuplicate
			return
		}

		if asm.Label == nil {
			asm.Label = make(map[string]int, 16)
		}
		asm.Label[label] = asm.currentAddr()
		words = words[1:]
		if len(words) == 0 {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		if asm.depth >= MACRO_DEPTH_LIMIT {
			err = ErrMacroDepth
			return
		}
		asm.depth++
		defer func() { asm.depth-- }()

		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = words[1+n]
		}
		defer func() { asm.Equate = old_equate }()

		// '@' makes labels unique to this expansion.
		unique := fmt.Sprintf("%v_%v_", name, lineno)
		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", unique)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// currentAddr gets the load address of the next generated byte.
func (asm *Assembler) currentAddr() int {
	if len(asm.Opcode) == 0 {
		return PROGRAM_START
	}

	last := asm.Opcode[len(asm.Opcode)-1]

	return last.Addr + len(last.Data)
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {
	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	clear(asm.Label)
	asm.depth = 0
	asm.Opcode = asm.Opcode[:0]
	if asm.Macro == nil {
		asm.Macro = make(map[string](*Macro))
	}
	clear(asm.Macro)
	asm.Equate = maps.Clone(sysEquate)
	maps.Copy(asm.Equate, _cpu_defines)
	maps.Copy(asm.Equate, asm.predefine)

	for scanner.Scan() {
		text := scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("%v: %v\n", lineno, text)
		}

		text_comment := strings.Split(text, ";")
		line = strings.TrimSpace(text_comment[0])
		words := strings.Fields(line)

		// .macro NAME arg...
		if len(words) > 0 && words[0] == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
			}
			if len(words) > 2 {
				macro.Args = words[2:]
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && words[0] == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	if err = scanner.Err(); err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	// Final linking of address labels.
	for n := range asm.Opcode {
		op := &asm.Opcode[n]

		if len(op.LinkLabel) == 0 {
			continue
		}
		label := op.LinkLabel
		addr, ok := asm.Label[label]
		if !ok {
			lineno = op.LineNo
			line = strings.Join(op.Words, " ")
			err = ErrLabelMissing(label)
			return
		}
		if len(op.Data) != 2 {
			log.Fatalf("Unable to link label '%s' to line %d: %v", label, op.LineNo, op.Words)
		}
		op.Data[0] |= uint8(addr>>8) & 0xf
		op.Data[1] |= uint8(addr)
	}

	prog = &Program{
		Opcodes: slices.Clone(asm.Opcode),
	}

	return
}

// aluMap maps register-register operation names.
var aluMap = map[string]CodeAluOp{
	"or":   ALU_OP_OR,
	"and":  ALU_OP_AND,
	"xor":  ALU_OP_XOR,
	"sub":  ALU_OP_SUB,
	"subn": ALU_OP_SUBN,
	"shr":  ALU_OP_SHR,
	"shl":  ALU_OP_SHL,
}

// ldMap maps the special 'ld ..., vX' destinations to their family F operation.
var ldMap = map[string]uint8{
	"dt":  MISC_OP_SET_DT,
	"st":  MISC_OP_SET_ST,
	"f":   MISC_OP_FONT,
	"b":   MISC_OP_BCD,
	"[i]": MISC_OP_STORE,
}

// ldRegMap maps the special 'ld vX, ...' sources to their family F operation.
var ldRegMap = map[string]uint8{
	"dt":  MISC_OP_GET_DT,
	"k":   MISC_OP_WAITKEY,
	"[i]": MISC_OP_LOAD,
}

// argCount verifies the operand count of an instruction.
func argCount(words []string, count int) (err error) {
	switch {
	case len(words)-1 < count:
		err = ErrOpcodeMissing
	case len(words)-1 > count:
		err = ErrOpcodeExtraArgs
	}
	return
}

// parseWords evaluates the words in a line of assembly text.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var data []byte
	var label string

	// no-op
	if len(words) == 0 {
		return
	}

	initial_words := slices.Clone(words)

	defer func() {
		for _, code := range codes {
			data = append(data, code.Bytes()...)
		}
		if err != nil || len(data) == 0 {
			return
		}
		opcode := Opcode{LineNo: lineno, Addr: asm.currentAddr(), Words: initial_words, Data: data, LinkLabel: label}
		asm.Opcode = append(asm.Opcode, opcode)
	}()

	op := strings.ToLower(words[0])
	args := make([]string, len(words)-1)
	for n, word := range words[1:] {
		// Keywords are case insensitive; labels are not.
		lower := strings.ToLower(word)
		_, is_reg := registerOf(word)
		_, is_ld := ldMap[lower]
		_, is_ldreg := ldRegMap[lower]
		if is_reg || is_ld || is_ldreg || lower == "i" {
			args[n] = lower
		} else {
			args[n] = word
		}
	}

	reg := func(n int) (x int, err error) {
		x, ok := registerOf(args[n])
		if !ok {
			err = ErrRegisterInvalid
		}
		return
	}

	switch op {
	case ".byte":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var b uint8
			b, err = asm.byteOf(arg)
			if err != nil {
				return
			}
			data = append(data, b)
		}
	case ".word":
		if len(args) == 0 {
			err = ErrOpcodeMissing
			return
		}
		for _, arg := range args {
			var v int
			v, err = asm.valueOf(arg)
			if err != nil {
				return
			}
			if v < -0x8000 || v > 0xffff {
				err = ErrValueRange
				return
			}
			codes = append(codes, Code(uint16(v)))
		}
	case "nop", "cls", "ret":
		if err = argCount(words, 0); err != nil {
			return
		}
		sys := map[string]uint16{"nop": SYS_OP_NOP, "cls": SYS_OP_CLS, "ret": SYS_OP_RET}[op]
		codes = append(codes, MakeCodeNNN(OP_SYS, sys))
	case "jp":
		family := OP_JP
		if len(args) == 2 && args[0] == "v0" {
			family = OP_JPV0
			args = args[1:]
			words = words[1:]
		}
		if err = argCount(words, 1); err != nil {
			return
		}
		var addr uint16
		addr, label, err = asm.addrOf(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNNN(family, addr))
	case "call":
		if err = argCount(words, 1); err != nil {
			return
		}
		var addr uint16
		addr, label, err = asm.addrOf(args[0])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNNN(OP_CALL, addr))
	case "se", "sne":
		if err = argCount(words, 2); err != nil {
			return
		}
		var x int
		x, err = reg(0)
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			family := map[string]CodeFamily{"se": OP_SER, "sne": OP_SNER}[op]
			codes = append(codes, MakeCodeXYN(family, x, y, 0))
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		family := map[string]CodeFamily{"se": OP_SE, "sne": OP_SNE}[op]
		codes = append(codes, MakeCodeXNN(family, x, nn))
	case "ld":
		if err = argCount(words, 2); err != nil {
			return
		}
		if args[0] == "i" {
			var addr uint16
			addr, label, err = asm.addrOf(args[1])
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeNNN(OP_LDI, addr))
			return
		}
		if ld, ok := ldMap[args[0]]; ok {
			var x int
			x, err = reg(1)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeXNN(OP_MISC, x, ld))
			return
		}
		var x int
		x, err = reg(0)
		if err != nil {
			return
		}
		if misc, ok := ldRegMap[args[1]]; ok {
			codes = append(codes, MakeCodeXNN(OP_MISC, x, misc))
			return
		}
		if y, ok := registerOf(args[1]); ok {
			codes = append(codes, MakeCodeAlu(ALU_OP_SET, x, y))
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeXNN(OP_LD, x, nn))
	case "add":
		if err = argCount(words, 2); err != nil {
			return
		}
		if args[0] == "i" {
			var x int
			x, err = reg(1)
			if err != nil {
				return
			}
			codes = append(codes, MakeCodeXNN(OP_MISC, x, MISC_OP_ADD_I))
			return
		}
		var x int
		x, err = reg(0)
		if err != nil {
			return
		}
		if y, ok := registerOf(args[1]); ok {
			codes = append(codes, MakeCodeAlu(ALU_OP_ADD, x, y))
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeXNN(OP_ADD, x, nn))
	case "or", "and", "xor", "sub", "subn", "shr", "shl":
		alu := aluMap[op]
		if (alu == ALU_OP_SHR || alu == ALU_OP_SHL) && len(args) == 1 {
			args = append(args, args[0])
			words = append(words, words[1])
		}
		if err = argCount(words, 2); err != nil {
			return
		}
		var x, y int
		x, err = reg(0)
		if err != nil {
			return
		}
		y, err = reg(1)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAlu(alu, x, y))
	case "rnd":
		if err = argCount(words, 2); err != nil {
			return
		}
		var x int
		x, err = reg(0)
		if err != nil {
			return
		}
		var nn uint8
		nn, err = asm.byteOf(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeXNN(OP_RND, x, nn))
	case "drw":
		if err = argCount(words, 3); err != nil {
			return
		}
		var x, y int
		x, err = reg(0)
		if err != nil {
			return
		}
		y, err = reg(1)
		if err != nil {
			return
		}
		var n uint8
		n, err = asm.nibbleOf(args[2])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeXYN(OP_DRW, x, y, n))
	case "skp", "sknp":
		if err = argCount(words, 1); err != nil {
			return
		}
		var x int
		x, err = reg(0)
		if err != nil {
			return
		}
		key := map[string]uint8{"skp": KEY_OP_SKP, "sknp": KEY_OP_SKNP}[op]
		codes = append(codes, MakeCodeXNN(OP_KEY, x, key))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}

package cpu

const (
	STACK_LIMIT = 16 // Maximum call depth
)

// Stack is the fixed-size return address stack.
type Stack struct {
	Data  [STACK_LIMIT]uint16
	Depth int // Stack pointer; number of valid entries in Data.
}

// Push a return address. Reports false, leaving the stack unchanged, when full.
func (s *Stack) Push(value uint16) (ok bool) {
	if s.Full() {
		return
	}

	s.Data[s.Depth] = value
	s.Depth++

	return true
}

func (s *Stack) Pop() (value uint16, ok bool) {
	value, ok = s.Peek()
	if ok {
		s.Depth--
	}
	return
}

func (s *Stack) Empty() bool {
	return s.Depth == 0
}

func (s *Stack) Full() bool {
	return s.Depth == STACK_LIMIT
}

func (s *Stack) Peek() (value uint16, ok bool) {
	if s.Empty() {
		return
	}

	return s.Data[s.Depth-1], true
}

func (s *Stack) Reset() {
	clear(s.Data[:])
	s.Depth = 0
}

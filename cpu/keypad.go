package cpu

const (
	KEY_COUNT = 16 // Keys on the hexadecimal keypad.
)

// Keypad is the pressed state of keys 0x0 through 0xF.
type Keypad [KEY_COUNT]bool

// Set the state of a key.
func (kp *Keypad) Set(index int, pressed bool) (err error) {
	if index < 0 || index >= KEY_COUNT {
		err = ErrKeyIndex
		return
	}

	kp[index] = pressed

	return
}

// Pressed reports the state of a key. Only the low nibble of key is used.
func (kp *Keypad) Pressed(key uint8) bool {
	return kp[key&0xf]
}

// First returns the lowest numbered pressed key.
func (kp *Keypad) First() (key uint8, ok bool) {
	for n, pressed := range kp {
		if pressed {
			return uint8(n), true
		}
	}

	return
}

func (kp *Keypad) Reset() {
	clear(kp[:])
}

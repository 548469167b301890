// keyboard.go - 10x8 key matrix with 3-key ghosting emulation
//
// The matrix and its clash overlay are both held inverted (1 = not
// pressed), matching the hardware's active-low wiring. Clash() rescans
// every line/bit rectangle after each key transition: whenever three
// corners of a rectangle are pressed, the fourth reads as pressed too,
// because the diode matrix can't distinguish it from a real key.

package main

const (
	keyboardLines = 10
	keyboardBits  = 8
)

type Keyboard struct {
	matrix      [keyboardLines]byte
	matrixClash [keyboardLines]byte
	selectedLine byte
}

func NewKeyboard() *Keyboard {
	k := &Keyboard{}
	k.Reset()
	return k
}

func (k *Keyboard) Reset() {
	for i := range k.matrix {
		k.matrix[i] = 0xFF
		k.matrixClash[i] = 0xFF
	}
	k.selectedLine = 0
}

func bitClear(b byte, bit byte) bool {
	return b&(1<<bit) == 0
}

func setLineState(matrix *byte, bit byte, pressed bool) bool {
	before := *matrix
	if pressed {
		*matrix &^= 1 << bit
	} else {
		*matrix |= 1 << bit
	}
	return before != *matrix
}

// Clash recomputes the ghosting overlay for the full matrix from scratch.
func (k *Keyboard) Clash() {
	for i := range k.matrixClash {
		k.matrixClash[i] = 0xFF
	}

	for line0 := 0; line0 < keyboardLines; line0++ {
		for line1 := line0 + 1; line1 < keyboardLines; line1++ {
			for bit0 := byte(0); bit0 < keyboardBits; bit0++ {
				for bit1 := bit0 + 1; bit1 < keyboardBits; bit1++ {
					p00 := bitClear(k.matrix[line0], bit0)
					p01 := bitClear(k.matrix[line0], bit1)
					p10 := bitClear(k.matrix[line1], bit0)
					p11 := bitClear(k.matrix[line1], bit1)

					if p01 && p10 && p11 {
						setLineState(&k.matrixClash[line0], bit0, true)
					}
					if p00 && p10 && p11 {
						setLineState(&k.matrixClash[line0], bit1, true)
					}
					if p00 && p01 && p11 {
						setLineState(&k.matrixClash[line1], bit0, true)
					}
					if p00 && p01 && p10 {
						setLineState(&k.matrixClash[line1], bit1, true)
					}
				}
			}
		}
	}
}

// KeyPress updates a single matrix bit and recomputes ghosting, returning
// whether the addressed bit actually changed state.
func (k *Keyboard) KeyPress(line, bit byte, down bool) bool {
	if line >= keyboardLines || bit >= keyboardBits {
		return false
	}
	changed := setLineState(&k.matrix[line], bit, down)
	k.Clash()
	return changed
}

func (k *Keyboard) SelectLine(line byte) {
	k.selectedLine = line
}

func (k *Keyboard) SelectedLine() byte {
	return k.selectedLine
}

// ReadSelectedLine returns the ghosted matrix byte for the currently
// selected line, or 0xFF (nothing pressed) if no line is selected.
func (k *Keyboard) ReadSelectedLine() byte {
	if k.selectedLine >= keyboardLines {
		return 0xFF
	}
	return k.matrix[k.selectedLine] & k.matrixClash[k.selectedLine]
}

func (k *Keyboard) Write_(w *StreamWriter) {
	w.WriteArray(k.matrix[:])
	w.WriteArray(k.matrixClash[:])
	w.WriteU8(k.selectedLine)
}

func (k *Keyboard) Read_(r *StreamReader) error {
	m, err := r.ReadArray(keyboardLines)
	if err != nil {
		return err
	}
	copy(k.matrix[:], m)
	c, err := r.ReadArray(keyboardLines)
	if err != nil {
		return err
	}
	copy(k.matrixClash[:], c)
	k.selectedLine, err = r.ReadU8()
	return err
}

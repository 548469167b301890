// gatearray.go - pen/border palette, screen mode select, ROM/RAM control
//
// The gate array owns the 32-entry hardware palette (16 pens + border,
// each an index into the fixed hardware color table) and precomputes a
// per-mode, per-byte-value pixel table on every palette write so the
// video renderer never has to decode bits per pixel at render time. Mode
// 3 is the undocumented fourth mode: each byte yields two pixels, each four
// columns wide, decoded from the first two mode-1 bit pairs, so only pens
// 0-3 are reachable.

package main

type GateArray struct {
	memory             *Memory
	interruptRequested *bool
	scanLineCount      *int

	selectedPen byte
	pen         [16]byte
	border      byte
	mode        byte

	renderedPenBytes [4][256][8]byte
}

func NewGateArray(memory *Memory, interruptRequested *bool, scanLineCount *int) *GateArray {
	g := &GateArray{memory: memory, interruptRequested: interruptRequested, scanLineCount: scanLineCount}
	g.Reset()
	return g
}

func (g *GateArray) Reset() {
	g.selectedPen = 0
	for i := range g.pen {
		g.pen[i] = 0
	}
	g.border = 0
	g.mode = 0
	g.RenderPens()
}

func bitSet(b byte, n byte) bool { return b&(1<<n) != 0 }

func nibble(b3, b2, b1, b0 bool) byte {
	var n byte
	if b3 {
		n |= 0x08
	}
	if b2 {
		n |= 0x04
	}
	if b1 {
		n |= 0x02
	}
	if b0 {
		n |= 0x01
	}
	return n
}

func mode0Pixels(pens [16]byte, b byte) [8]byte {
	p0 := nibble(bitSet(b, 1), bitSet(b, 5), bitSet(b, 3), bitSet(b, 7))
	p1 := nibble(bitSet(b, 0), bitSet(b, 4), bitSet(b, 2), bitSet(b, 6))
	var out [8]byte
	for i := 0; i < 4; i++ {
		out[i] = pens[p0]
	}
	for i := 4; i < 8; i++ {
		out[i] = pens[p1]
	}
	return out
}

func mode1Pixels(pens [16]byte, b byte) [8]byte {
	idx := [4]byte{
		nibble(false, false, bitSet(b, 3), bitSet(b, 7)),
		nibble(false, false, bitSet(b, 2), bitSet(b, 6)),
		nibble(false, false, bitSet(b, 1), bitSet(b, 5)),
		nibble(false, false, bitSet(b, 0), bitSet(b, 4)),
	}
	var out [8]byte
	for i, ix := range idx {
		out[i*2] = pens[ix]
		out[i*2+1] = pens[ix]
	}
	return out
}

func mode2Pixels(pens [16]byte, b byte) [8]byte {
	var out [8]byte
	for i := 0; i < 8; i++ {
		bit := byte(7 - i)
		if bitSet(b, bit) {
			out[i] = pens[1]
		} else {
			out[i] = pens[0]
		}
	}
	return out
}

func mode3Pixels(pens [16]byte, b byte) [8]byte {
	idx := [4]byte{
		nibble(false, false, bitSet(b, 3), bitSet(b, 7)),
		nibble(false, false, bitSet(b, 2), bitSet(b, 6)),
		nibble(false, false, bitSet(b, 1), bitSet(b, 5)),
		nibble(false, false, bitSet(b, 0), bitSet(b, 4)),
	}
	var out [8]byte
	for i, ix := range idx[:2] {
		out[i*4] = pens[ix&0x03]
		out[i*4+1] = pens[ix&0x03]
		out[i*4+2] = pens[ix&0x03]
		out[i*4+3] = pens[ix&0x03]
	}
	return out
}

// RenderPens rebuilds the per-mode color lookup table from the current
// pen/border palette. Called on reset, palette write, and state load.
func (g *GateArray) RenderPens() {
	var pens [16]byte
	copy(pens[:], g.pen[:])

	for b := 0; b < 256; b++ {
		g.renderedPenBytes[0][b] = mode0Pixels(pens, byte(b))
		g.renderedPenBytes[1][b] = mode1Pixels(pens, byte(b))
		g.renderedPenBytes[2][b] = mode2Pixels(pens, byte(b))
		g.renderedPenBytes[3][b] = mode3Pixels(pens, byte(b))
	}
}

// PixelsForByte returns the 8 hardware color values a screen byte decodes
// to in the currently-selected mode.
func (g *GateArray) PixelsForByte(b byte) [8]byte {
	return g.renderedPenBytes[g.mode&0x03][b]
}

func (g *GateArray) Mode() byte { return g.mode }

func (g *GateArray) Read(addr uint16) byte { return 0 }

func (g *GateArray) Write(b byte) {
	switch b & 0xC0 {
	case 0x00:
		g.selectedPen = b & 0x1F
	case 0x40:
		if bitSet(g.selectedPen, 4) {
			g.border = b & 0x1F
		} else {
			g.pen[g.selectedPen&0x0F] = b & 0x1F
		}
		g.RenderPens()
	case 0x80:
		if bitSet(b, 4) {
			*g.scanLineCount = 0
			*g.interruptRequested = false
		}
		g.mode = b & 0x03
		g.memory.EnableLowerROM(b&0x04 == 0)
		g.memory.EnableUpperROM(b&0x08 == 0)
		g.memory.ConfigureRAM()
	case 0xC0:
		// Same physical port as the pen/colour/mode writes above; the
		// hardware distinguishes RAM-bank configuration purely by these
		// top two data bits, not by address.
		g.memory.SetRAMConfig(b & 0x07)
	}
}

func (g *GateArray) Write_(w *StreamWriter) {
	w.WriteU8(g.selectedPen)
	w.WriteArray(g.pen[:])
	w.WriteU8(g.border)
	w.WriteU8(g.mode)
}

func (g *GateArray) Read_(r *StreamReader) error {
	var err error
	if g.selectedPen, err = r.ReadU8(); err != nil {
		return err
	}
	pen, err := r.ReadArray(16)
	if err != nil {
		return err
	}
	copy(g.pen[:], pen)
	if g.border, err = r.ReadU8(); err != nil {
		return err
	}
	g.mode, err = r.ReadU8()
	if err != nil {
		return err
	}
	g.RenderPens()
	return nil
}

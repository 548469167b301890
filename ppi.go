// ppi.go - 8255-style peripheral interface
//
// Port A carries the PSG's shared data bus; port B is read-only status
// (vsync, refresh rate, manufacturer ID, printer ready); port C is split
// into a keyboard-line-select nibble and a control nibble (PSG BDIR/BC1,
// tape motor, tape write level). Every port-C write re-issues the current
// port A value to the PSG, since the PSG's own Write() gates on BDIR/BC1
// rather than on the PPI deciding when to forward data.

package main

type PPI struct {
	psg       *PSG
	keyboard  *Keyboard
	vsync     *bool
	tapeMotor *bool
	tapeLevel *bool

	printerReady  bool
	exp           bool
	refreshRate   bool
	manufacturer  byte
	tapeWriteData bool

	portA, portB, portC, control byte
}

func NewPPI(psg *PSG, keyboard *Keyboard, vsync, tapeMotor, tapeLevel *bool) *PPI {
	p := &PPI{psg: psg, keyboard: keyboard, vsync: vsync, tapeMotor: tapeMotor, tapeLevel: tapeLevel}
	p.Reset()
	return p
}

func (p *PPI) Reset() {
	p.printerReady = false
	p.exp = false
	p.refreshRate = true
	p.manufacturer = 0x07
	p.tapeWriteData = false
	*p.tapeMotor = false
	p.portA = 0
	p.portB = 0
	p.portC = 0
	p.control = 0
}

func (p *PPI) portAInput() bool    { return p.control&0x10 != 0 }
func (p *PPI) portBInput() bool    { return p.control&0x02 != 0 }
func (p *PPI) portCLowInput() bool { return p.control&0x01 != 0 }
func (p *PPI) portCHighInput() bool { return p.control&0x08 != 0 }

func (p *PPI) Read(addr uint16) byte {
	switch addr & 0x0300 {
	case 0x0000:
		if p.portAInput() {
			return p.psg.Read()
		}
		return p.portA
	case 0x0100:
		if p.portBInput() {
			var b byte
			if *p.tapeLevel {
				b |= 0x80
			}
			if p.printerReady {
				b |= 0x40
			}
			if p.exp {
				b |= 0x20
			}
			if p.refreshRate {
				b |= 0x10
			}
			b |= (p.manufacturer & 0x07) << 1
			if *p.vsync {
				b |= 0x01
			}
			return b
		}
		return p.portB
	case 0x0200:
		// The original computes a high-nibble overlay here but discards it,
		// returning the raw port C latch unconditionally on reads.
		return p.portC
	default:
		return 0
	}
}

// writePortC pushes the current port-C latch out to the keyboard selector
// and the PSG control pins/tape lines, depending on direction bits.
func (p *PPI) writePortC() {
	if !p.portCLowInput() {
		p.keyboard.SelectLine(p.portC & 0x0F)
	}
	if !p.portCHighInput() {
		*p.tapeMotor = p.portC&0x10 != 0
		p.tapeWriteData = p.portC&0x20 != 0
		p.psg.SetControl(p.portC&0x80 != 0, p.portC&0x40 != 0)
		p.psg.Write(p.portA)
	}
}

func (p *PPI) Write(addr uint16, b byte) {
	switch addr & 0x0300 {
	case 0x0000:
		p.portA = b
		if !p.portAInput() {
			p.psg.Write(p.portA)
		}
	case 0x0100:
		p.portB = b
	case 0x0200:
		p.portC = b
		p.writePortC()
	case 0x0300:
		if b&0x80 != 0 {
			p.control = b
			p.portA = 0
			p.portB = 0
			p.portC = 0
		} else if !p.portCHighInput() && !p.portCLowInput() {
			bit := (b >> 1) & 0x07
			if b&0x01 != 0 {
				p.portC |= 1 << bit
			} else {
				p.portC &^= 1 << bit
			}
			p.writePortC()
		}
	}
}

func (p *PPI) Write_(w *StreamWriter) {
	w.WriteBool(p.printerReady)
	w.WriteBool(p.exp)
	w.WriteBool(p.refreshRate)
	w.WriteU8(p.manufacturer)
	w.WriteBool(p.tapeWriteData)
	w.WriteU8(p.portA)
	w.WriteU8(p.portB)
	w.WriteU8(p.portC)
	w.WriteU8(p.control)
}

func (p *PPI) Read_(r *StreamReader) error {
	var err error
	if p.printerReady, err = r.ReadBool(); err != nil {
		return err
	}
	if p.exp, err = r.ReadBool(); err != nil {
		return err
	}
	if p.refreshRate, err = r.ReadBool(); err != nil {
		return err
	}
	if p.manufacturer, err = r.ReadU8(); err != nil {
		return err
	}
	if p.tapeWriteData, err = r.ReadBool(); err != nil {
		return err
	}
	if p.portA, err = r.ReadU8(); err != nil {
		return err
	}
	if p.portB, err = r.ReadU8(); err != nil {
		return err
	}
	if p.portC, err = r.ReadU8(); err != nil {
		return err
	}
	p.control, err = r.ReadU8()
	return err
}

// bus.go - Z80 IO address decode
//
// Reproduces the exact bit tests the hardware's address decode logic
// performs on the low byte and high nibble of the IO address; there is no
// single flat decode table, only a chain of individual bit checks against
// address lines A7, A10, A11, A13, A14. RAM-bank configuration shares the
// gate array's own address decode (A15=0, A14=1) and is distinguished
// purely by the top two bits of the data byte, handled inside
// GateArray.Write itself.

package main

type Bus struct {
	memory    *Memory
	gateArray *GateArray
	ppi       *PPI
	crtc      *CRTC
	fdc       *FDC
}

func NewBus(memory *Memory, gateArray *GateArray, ppi *PPI, crtc *CRTC, fdc *FDC) *Bus {
	return &Bus{memory: memory, gateArray: gateArray, ppi: ppi, crtc: crtc, fdc: fdc}
}

func addrBit(addr uint16, n uint) bool {
	return addr&(1<<n) != 0
}

func (b *Bus) Read(addr uint16) byte {
	if !addrBit(addr, 11) {
		return b.ppi.Read(addr)
	}
	if !addrBit(addr, 10) && !addrBit(addr, 7) {
		return b.fdc.Read(addr)
	}
	return 0
}

func (b *Bus) Write(addr uint16, v byte) {
	if !addrBit(addr, 11) {
		b.ppi.Write(addr, v)
		return
	}
	if addr&0xC000 == 0x4000 {
		b.gateArray.Write(v)
		return
	}
	if !addrBit(addr, 14) {
		b.crtc.Write(addr, v)
		return
	}
	if !addrBit(addr, 13) {
		b.memory.SelectROM(v)
		return
	}
	if !addrBit(addr, 10) && !addrBit(addr, 7) {
		b.fdc.Write(addr, v)
		return
	}
}

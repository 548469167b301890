package main

import "testing"

// TestMemoryReadWriteVideoInvariant checks that across every RAM config /
// ROM overlay combination, a write always lands in RAM (visible via
// VideoRead) and Read reflects the active overlay.
func TestMemoryReadWriteVideoInvariant(t *testing.T) {
	addrs := []uint16{0x0000, 0x3FFF, 0x4000, 0x7FFF, 0x8000, 0xBFFF, 0xC000, 0xFFFF}
	values := []byte{0x00, 0xFF}

	for cfg := 0; cfg < 8; cfg++ {
		for _, lowerOn := range []bool{false, true} {
			for _, upperOn := range []bool{false, true} {
				m := NewMemory()
				m.SetRAMConfig(byte(cfg))

				lowerROM := make([]byte, bankSize)
				for i := range lowerROM {
					lowerROM[i] = 0xAA
				}
				m.SetLowerROM(lowerROM)
				m.EnableLowerROM(lowerOn)

				upperROM := make([]byte, bankSize)
				for i := range upperROM {
					upperROM[i] = 0x55
				}
				m.AddUpperROM(3, upperROM)
				m.SelectROM(3)
				m.EnableUpperROM(upperOn)

				for _, addr := range addrs {
					for _, b := range values {
						m.Write(addr, b)
						if got := m.VideoRead(addr); got != b {
							t.Fatalf("cfg=%d lowerOn=%v upperOn=%v addr=%04x: VideoRead=%02x want %02x", cfg, lowerOn, upperOn, addr, got, b)
						}

						slot := addr >> 14
						overlayActive := (slot == 0 && lowerOn) || (slot == 3 && upperOn)
						got := m.Read(addr)
						if overlayActive {
							want := byte(0xAA)
							if slot == 3 {
								want = 0x55
							}
							if got != want {
								t.Fatalf("cfg=%d addr=%04x: Read=%02x want overlay byte %02x", cfg, addr, got, want)
							}
						} else if got != b {
							t.Fatalf("cfg=%d addr=%04x: Read=%02x want RAM byte %02x", cfg, addr, got, b)
						}
					}
				}
			}
		}
	}
}

func TestMemoryRAMConfigTable(t *testing.T) {
	want := [8][4]int{
		{0, 1, 2, 3},
		{0, 1, 2, 7},
		{4, 5, 6, 7},
		{0, 3, 2, 7},
		{0, 4, 2, 3},
		{0, 5, 2, 3},
		{0, 6, 2, 3},
		{0, 7, 2, 3},
	}
	if ramConfigs != want {
		t.Fatalf("ramConfigs = %v, want %v", ramConfigs, want)
	}
}

// TestMemorySelectAbsentUpperSlotFallsBackToSlotZero checks that selecting
// an absent upper ROM slot leaves the currently loaded slot-0 image bound.
func TestMemorySelectAbsentUpperSlotFallsBackToSlotZero(t *testing.T) {
	m := NewMemory()
	slot0 := make([]byte, bankSize)
	for i := range slot0 {
		slot0[i] = 0x11
	}
	m.AddUpperROM(0, slot0)
	m.SelectROM(0)
	m.EnableUpperROM(true)

	m.SelectROM(9) // never loaded
	if got := m.Read(0xC000); got != 0x11 {
		t.Fatalf("selecting absent slot 9 changed upper ROM image: Read(0xC000)=%02x want 0x11", got)
	}
}

// TestMemoryE1 is the spec's end-to-end scenario E1.
func TestMemoryE1(t *testing.T) {
	m := NewMemory()
	rom := make([]byte, bankSize)
	for i := range rom {
		rom[i] = 0xFF
	}
	m.SetLowerROM(rom)

	m.EnableLowerROM(true)
	if got := m.Read(0x0000); got != 0xFF {
		t.Fatalf("lower ROM enabled: Read(0x0000)=%02x want 0xFF", got)
	}

	m.EnableLowerROM(false)
	if got := m.Read(0x0000); got != 0x00 {
		t.Fatalf("lower ROM disabled: Read(0x0000)=%02x want 0x00", got)
	}
}

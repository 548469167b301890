package main

import "testing"

// TestCRTCRegisterReadWrite checks that writing any register then reading
// it back reproduces the masked value for the read-back registers (12-17),
// write-only registers (0-11) always read 0, and read-only registers
// (16, 17) ignore writes entirely.
func TestCRTCRegisterReadWrite(t *testing.T) {
	flag := false
	for reg := byte(0); reg < 18; reg++ {
		for b := 0; b < 256; b++ {
			c := NewCRTC(&flag)
			c.Write(0x0000, reg) // select register
			c.Write(0x0100, byte(b))
			got := c.Read(0x0300)

			switch {
			case reg < 12:
				if got != 0 {
					t.Fatalf("reg=%d: write-only register read back %02x, want 0", reg, got)
				}
			case reg == 16 || reg == 17:
				if got != 0 {
					t.Fatalf("reg=%d: read-only register should ignore writes and read back its reset value 0, got %02x", reg, got)
				}
			default:
				want := byte(b) & crtcWriteMask[reg]
				if got != want {
					t.Fatalf("reg=%d b=%02x: read back %02x, want %02x", reg, b, got, want)
				}
			}
		}
	}
}

// TestCRTCVSyncCadence checks that over one real-time second (1,000,000
// CRTC ticks, one per microsecond) the CRTC enters vsync 50 or 51 times at
// power-on defaults.
func TestCRTCVSyncCadence(t *testing.T) {
	flag := false
	c := NewCRTC(&flag)

	transitions := 0
	wasVSync := c.InVSync()
	for i := 0; i < 1_000_000; i++ {
		c.Tick()
		if !wasVSync && c.InVSync() {
			transitions++
		}
		wasVSync = c.InVSync()
	}

	if transitions < 50 || transitions > 51 {
		t.Fatalf("vsync transitions over 1s = %d, want 50 or 51", transitions)
	}
}

// crtc.go - 6845-style CRT controller
//
// Eighteen raw registers plus the horizontal/vertical/raster counters that
// derive hsync, vsync, and the video memory address from them. Only
// registers 12-17 read back; the rest are write-only on real hardware.
// Tick() is called once per microsecond and reproduces the exact counter
// interactions (vertical total adjust, the 2-tick vsync interrupt delay,
// the 52-scanline interrupt cadence) the gate array depends on for its
// own interrupt-request line.

package main

type CRTC struct {
	interruptRequested *bool

	register         [18]byte
	selectedRegister byte

	x, y         int
	hCount       int
	vCount       int
	raster       int

	inHSync     bool
	hSyncCount  int
	inVSync     bool
	vSyncCount  int

	inVTotalAdjust   bool
	vTotalAdjustCount int

	scanLineCount int
	vSyncDelay    int

	memoryAddress uint16
}

var crtcResetDefaults = [18]byte{
	0x3F, 0x28, 0x2E, 0x8E, 0x26, 0x00, 0x19, 0x1E,
	0x00, 0x07, 0x00, 0x00, 0x30, 0x00, 0xC0, 0x00,
	0x00, 0x00,
}

var crtcWriteMask = [18]byte{
	0xFF, 0xFF, 0xFF, 0xFF, 0x7F, 0x1F, 0x7F, 0x7F,
	0x03, 0x1F, 0x7F, 0x1F, 0x3F, 0xFF, 0x3F, 0xFF,
	0xFF, 0xFF,
}

func NewCRTC(interruptRequested *bool) *CRTC {
	c := &CRTC{interruptRequested: interruptRequested}
	c.Reset()
	return c
}

func (c *CRTC) Reset() {
	c.register = crtcResetDefaults
	c.selectedRegister = 0
	c.x, c.y = 0, 0
	c.hCount, c.vCount, c.raster = 0, 0, 0
	c.inHSync, c.hSyncCount = false, 0
	c.inVSync, c.vSyncCount = false, 0
	c.inVTotalAdjust, c.vTotalAdjustCount = false, 0
	c.scanLineCount = 0
	c.vSyncDelay = 0
	c.memoryAddress = 0
}

func (c *CRTC) horizontalTotal() byte          { return c.register[0] }
func (c *CRTC) horizontalDisplayed() byte      { return c.register[1] }
func (c *CRTC) horizontalSyncPosition() byte   { return c.register[2] }
func (c *CRTC) syncWidths() byte               { return c.register[3] }
func (c *CRTC) verticalTotal() byte            { return c.register[4] }
func (c *CRTC) verticalTotalAdjust() byte      { return c.register[5] }
func (c *CRTC) verticalDisplayed() byte        { return c.register[6] }
func (c *CRTC) verticalSyncPosition() byte     { return c.register[7] }
func (c *CRTC) maximumRasterAddress() byte     { return c.register[9] }

func (c *CRTC) ReadRegister() byte {
	switch c.selectedRegister {
	case 12, 13, 14, 15, 16, 17:
		return c.register[c.selectedRegister]
	default:
		return 0
	}
}

func (c *CRTC) WriteRegister(b byte) {
	// Registers 16 and 17 are read-only; 18 and up do not exist.
	if c.selectedRegister >= 16 {
		return
	}
	c.register[c.selectedRegister] = b & crtcWriteMask[c.selectedRegister]
}

func (c *CRTC) Read(addr uint16) byte {
	if addr&0x0300 == 0x0300 {
		return c.ReadRegister()
	}
	return 0
}

func (c *CRTC) Write(addr uint16, b byte) {
	switch addr & 0x0300 {
	case 0x0000:
		c.selectedRegister = b & 0x1F
	case 0x0100:
		c.WriteRegister(b)
	}
}

func (c *CRTC) vSyncStart() {
	c.vSyncDelay = 2
}

func (c *CRTC) hSyncEnd() {
	c.scanLineCount++
	if c.scanLineCount >= 52 {
		c.scanLineCount = 0
		*c.interruptRequested = true
	}

	if c.vSyncDelay > 0 {
		c.vSyncDelay--
		if c.vSyncDelay == 0 {
			if c.scanLineCount >= 32 {
				*c.interruptRequested = true
			}
			c.scanLineCount = 0
		}
	}
}

// Tick advances the CRTC by one microsecond.
func (c *CRTC) Tick() {
	c.x++
	c.hCount++

	if c.inHSync {
		c.hSyncCount = (c.hSyncCount + 1) & 0x0F
		if c.hSyncCount == int(c.syncWidths()&0x0F) {
			c.inHSync = false
			c.x = 0
			c.y++
			c.hSyncEnd()
		}
	} else if c.hCount == int(c.horizontalSyncPosition()) {
		c.inHSync = true
		c.hSyncCount = 0
	}

	newFrame := false
	if c.hCount == int(c.horizontalTotal())+1 {
		c.hCount = 0
		c.raster = (c.raster + 1) & 0x1F

		if c.inVTotalAdjust {
			c.vTotalAdjustCount++
			if c.vTotalAdjustCount == int(c.verticalTotalAdjust()) {
				c.inVTotalAdjust = false
				newFrame = true
			}
		} else if c.inVSync {
			c.vSyncCount = (c.vSyncCount + 1) & 0x0F
			if c.vSyncCount == int(c.syncWidths()>>4) {
				c.inVSync = false
				c.y = 0
			}
		}

		if !c.inVTotalAdjust && !newFrame && c.raster == int(c.maximumRasterAddress())+1 {
			c.raster = 0
			c.vCount = (c.vCount + 1) & 0x7F
			c.memoryAddress += uint16(c.horizontalDisplayed())

			if c.vCount == int(c.verticalSyncPosition()) {
				c.inVSync = true
				c.vSyncCount = 0
				c.vSyncStart()
			}

			if !c.inVSync {
				if c.vCount == int(c.verticalTotal())+1 {
					if c.verticalTotalAdjust() == 0 {
						newFrame = true
					} else {
						c.inVTotalAdjust = true
						c.vTotalAdjustCount = 0
					}
				}
			}
		}
	}

	if newFrame {
		c.vCount = 0
		c.raster = 0
		c.memoryAddress = uint16(c.register[12])<<8 | uint16(c.register[13])
	}
}

// MemoryAddress returns the CRTC's current video memory address output.
func (c *CRTC) MemoryAddress() uint16 { return c.memoryAddress }

// Raster returns the current raster line within the character row.
func (c *CRTC) Raster() int { return c.raster }

func (c *CRTC) InHSync() bool { return c.inHSync }
func (c *CRTC) InVSync() bool { return c.inVSync }

func (c *CRTC) Write_(w *StreamWriter) {
	w.WriteInt(c.x)
	w.WriteInt(c.y)
	w.WriteInt(c.hCount)
	w.WriteInt(c.vCount)
	w.WriteInt(c.raster)
	w.WriteBool(c.inHSync)
	w.WriteInt(c.hSyncCount)
	w.WriteBool(c.inVSync)
	w.WriteInt(c.vSyncCount)
	w.WriteBool(c.inVTotalAdjust)
	w.WriteInt(c.vTotalAdjustCount)
	w.WriteInt(c.scanLineCount)
	w.WriteInt(c.vSyncDelay)
	w.WriteU16(c.memoryAddress)
	w.WriteArray(c.register[:])
	w.WriteU8(c.selectedRegister)
}

func (c *CRTC) Read_(r *StreamReader) error {
	var err error
	if c.x, err = r.ReadInt(); err != nil {
		return err
	}
	if c.y, err = r.ReadInt(); err != nil {
		return err
	}
	if c.hCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.vCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.raster, err = r.ReadInt(); err != nil {
		return err
	}
	if c.inHSync, err = r.ReadBool(); err != nil {
		return err
	}
	if c.hSyncCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.inVSync, err = r.ReadBool(); err != nil {
		return err
	}
	if c.vSyncCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.inVTotalAdjust, err = r.ReadBool(); err != nil {
		return err
	}
	if c.vTotalAdjustCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.scanLineCount, err = r.ReadInt(); err != nil {
		return err
	}
	if c.vSyncDelay, err = r.ReadInt(); err != nil {
		return err
	}
	if c.memoryAddress, err = r.ReadU16(); err != nil {
		return err
	}
	reg, err := r.ReadArray(18)
	if err != nil {
		return err
	}
	copy(c.register[:], reg)
	c.selectedRegister, err = r.ReadU8()
	return err
}

// core.go - top-level machine wiring and the synchronous run_until entry point
//
// Core composes every component exactly the way the hardware wires them:
// a Z80 driving an IO bus (PPI/CRTC/FDC decode) plus direct RAM/ROM access,
// with the gate array and CRTC sharing an interrupt-request latch and the
// CRTC's vsync line feeding the PPI's port B status bit. RunUntil is the
// single synchronous entry point a host binding drives: it steps the CPU
// one instruction at a time, ticking every peripheral by the instruction's
// exact T-state count, until the deadline or a requested stop condition
// is reached.

package main

const (
	StopNone        byte = 0x00
	StopAudioOverrun byte = 0x01
	StopVSync       byte = 0x02
)

// defaultSampleRate is the audio output rate in Hz a new Core starts with;
// SetFrequency replaces it and recomputes the microseconds-per-sample
// divider.
const defaultSampleRate = 44100

// ticksPerFrame is one 50Hz PAL frame's worth of quarter-microsecond ticks
// at the machine's 4MHz master clock; the demonstration front ends use it
// to bound a single RunUntil call to roughly one displayed field.
const ticksPerFrame = 4_000_000 / 50

type Core struct {
	memory    *Memory
	bus       *Bus
	fdc       *FDC
	keyboard  *Keyboard
	crtc      *CRTC
	psg       *PSG
	ppi       *PPI
	gateArray *GateArray
	tape      *Tape
	cpu       *CPU_Z80
	audio     *AudioRing

	interruptRequested bool

	ticks uint64

	sampleRate      int
	ticksPerSample  uint32
	sampleTickAccum uint32

	screen    []byte
	scrPitch  int
	scrHeight int
	scrWidth  int

	stopReason byte
}

// z80Bus adapts Core's component wiring to the CPU_Z80's Z80Bus interface:
// memory reads/writes go straight to RAM/ROM, IO reads/writes go through
// the address-decoded Bus, and every tick advances the whole machine by
// the CPU's own T-state clock.
type z80Bus struct {
	core *Core
}

func (z z80Bus) Read(addr uint16) byte         { return z.core.memory.Read(addr) }
func (z z80Bus) Write(addr uint16, value byte) { z.core.memory.Write(addr, value) }
func (z z80Bus) In(port uint16) byte           { return z.core.bus.Read(port) }
func (z z80Bus) Out(port uint16, value byte)   { z.core.bus.Write(port, value) }
func (z z80Bus) Tick(cycles int)               { z.core.advance(cycles) }

func NewCore() *Core {
	c := &Core{sampleRate: defaultSampleRate}
	c.Init()
	return c
}

// Init constructs every component and wires their cross-references.
func (c *Core) Init() {
	c.memory = NewMemory()
	c.keyboard = NewKeyboard()
	c.psg = NewPSG(c.keyboard)
	c.tape = NewTape()
	c.audio = NewAudioRing()

	c.crtc = NewCRTC(&c.interruptRequested)
	c.gateArray = NewGateArray(c.memory, &c.interruptRequested, &c.crtc.scanLineCount)
	c.ppi = NewPPI(c.psg, c.keyboard, &c.crtc.inVSync, &c.tape.motor, &c.tape.level)
	c.fdc = NewFDC()

	c.bus = NewBus(c.memory, c.gateArray, c.ppi, c.crtc, c.fdc)
	c.cpu = NewCPU_Z80(z80Bus{core: c})

	c.SetFrequency(defaultSampleRate)
}

// Reset reinitializes every component to its power-on state without
// discarding loaded media or the installed ROM set.
func (c *Core) Reset() {
	c.memory.Reset()
	c.keyboard.Reset()
	c.psg.Reset()
	c.crtc.Reset()
	c.gateArray.Reset()
	c.ppi.Reset()
	c.fdc.Init()
	c.interruptRequested = false
	c.sampleTickAccum = 0
	c.cpu.Reset()
}

func (c *Core) KeyPress(line, bit byte, down bool) {
	if c.keyboard.KeyPress(line, bit, down) {
		c.keyboard.Clash()
	}
}

func (c *Core) LoadTape(buf []byte) bool {
	return c.tape.Load(buf)
}

func (c *Core) EjectTape() {
	c.tape.Eject()
}

func (c *Core) LoadDisc(drive int, buf []byte) bool {
	d, ok := LoadDisk(buf)
	if !ok {
		return false
	}
	c.fdc.drives[drive&0x01].Load(d)
	return true
}

func (c *Core) EjectDisc(drive int) {
	c.fdc.drives[drive&0x01].Eject()
}

// SetScreen installs the caller-owned framebuffer the core paints hardware-
// palette-index pixels into every microsecond: pitch is the byte stride
// between rows, height the number of rows, width the number of displayed
// pixel columns (16 pixels per CRTC character, so width/16 characters wide).
// A nil buf disables rendering.
func (c *Core) SetScreen(buf []byte, pitch, height, width int) {
	c.screen = buf
	c.scrPitch = pitch
	c.scrHeight = height
	c.scrWidth = width / 16
}

// GetAudioBuffers copies up to numSamples queued samples per channel into
// the caller's buffers and returns the number actually copied.
func (c *Core) GetAudioBuffers(numSamples int, channels [3][]byte) int {
	return c.audio.GetBuffers(numSamples, channels)
}

// SetFrequency reconfigures the audio sample rate the core generates
// GetAudioBuffers data at, recomputing the microsecond-to-sample divider.
// Audio is paced on the same microsecond step as the CRTC/PSG/FDC, so the
// divider is against a 1MHz (microsecond) base, not the raw quarter-
// microsecond tick clock.
func (c *Core) SetFrequency(hz int) {
	if hz <= 0 {
		hz = defaultSampleRate
	}
	c.sampleRate = hz
	const masterMicrosecondsPerSecond = 1_000_000
	c.ticksPerSample = uint32(masterMicrosecondsPerSecond / hz)
	if c.ticksPerSample == 0 {
		c.ticksPerSample = 1
	}
	c.sampleTickAccum = 0
}

func (c *Core) EnableLowerROM(enabled bool)  { c.memory.EnableLowerROM(enabled) }
func (c *Core) SetLowerRom(rom []byte)       { c.memory.SetLowerROM(rom) }
func (c *Core) EnableUpperROM(enabled bool)  { c.memory.EnableUpperROM(enabled) }
func (c *Core) SetUpperRom(slot byte, rom []byte) {
	c.memory.AddUpperROM(slot, rom)
}

func (c *Core) ReadRAM(addr uint16) byte       { return c.memory.VideoRead(addr) }
func (c *Core) WriteRAM(addr uint16, b byte)   { c.memory.banks[0][addr&(bankSize-1)] = b }

func (c *Core) Ticks() uint64 { return c.ticks }

// advance is called by the Z80 bus adapter after every instruction with
// its exact T-state count. The tape's pulse generator runs at quarter-
// microsecond granularity and steps on every raw tick; every other
// component advances once per microsecond, the four-tick boundary this
// loop checks below, in the fixed order the hardware observes: video
// render, audio sample, then CRTC/sound-generator/floppy-controller tick.
func (c *Core) advance(cycles int) {
	wasVSync := c.crtc.InVSync()

	for i := 0; i < cycles; i++ {
		c.ticks++
		c.tape.Tick()

		if c.ticks&0x03 != 0 {
			continue
		}

		c.renderPixel()
		c.sampleAudio()

		c.crtc.Tick()
		c.psg.Tick()
		c.fdc.Tick()

		if !wasVSync && c.crtc.InVSync() {
			c.stopReason |= StopVSync
		}
		wasVSync = c.crtc.InVSync()
	}

	c.cpu.SetIRQLine(c.interruptRequested)
	if c.cpu.LastIRQServiced {
		c.interruptRequested = false
	}
}

// sampleAudio emits one sample per channel whenever enough microseconds
// have elapsed at the configured rate. While the tape motor is running and
// either the replay level or the write-data line is high, all three
// channels are pinned to maximum amplitude, matching real hardware where
// the tape signal is mixed directly onto the same amplifier the PSG drives.
func (c *Core) sampleAudio() {
	c.sampleTickAccum++
	if c.sampleTickAccum < c.ticksPerSample {
		return
	}
	c.sampleTickAccum = 0

	amps := [3]byte{c.psg.Amplitude(0), c.psg.Amplitude(1), c.psg.Amplitude(2)}
	if c.tape.motor && (c.tape.level || c.ppi.tapeWriteData) {
		amps[0], amps[1], amps[2] = 15, 15, 15
	}
	c.audio.WriteSample(amps)
	if c.audio.Overrun() {
		c.stopReason |= StopAudioOverrun
	}
}

// videoAddress reproduces the gate array's MA-to-RAM-address bit shuffle:
// the CRTC's 14-bit memory address interleaves with the raster line's low
// 3 bits so that successive raster lines within a character row land 2K
// apart, matching the real hardware's interleaved bank addressing.
func videoAddress(ma, raster uint16) uint16 {
	return ((ma & 0x3000) << 2) | ((raster & 0x07) << 11) | ((ma & 0x03FF) << 1)
}

// renderPixel fires once per microsecond, before the CRTC advances past the
// state it reads, and paints one 16-pixel cell (two adjacent screen bytes'
// worth) into the caller's framebuffer at the CRTC's current x/y position.
// Cells in horizontal or vertical sync are left untouched; cells outside
// the displayed area but outside sync are painted with the gate array's
// border color; displayed cells are fetched through the MA bit shuffle and
// expanded through the current mode's pen table.
func (c *Core) renderPixel() {
	if c.screen == nil {
		return
	}
	if c.crtc.x >= c.scrWidth || c.crtc.y >= c.scrHeight {
		return
	}

	inSync := c.crtc.inHSync || c.crtc.inVSync
	if inSync {
		return
	}

	offset := c.scrPitch*c.crtc.y + c.crtc.x*16
	if offset < 0 || offset+16 > len(c.screen) {
		return
	}
	pixel := c.screen[offset : offset+16 : offset+16]

	inScreen := c.crtc.hCount < int(c.crtc.horizontalDisplayed()) && c.crtc.vCount < int(c.crtc.verticalDisplayed())
	if !inScreen {
		for i := range pixel {
			pixel[i] = c.gateArray.border
		}
		return
	}

	ma := c.crtc.memoryAddress + uint16(c.crtc.hCount)
	addr := videoAddress(ma, uint16(c.crtc.raster))
	px0 := c.gateArray.PixelsForByte(c.memory.VideoRead(addr))
	px1 := c.gateArray.PixelsForByte(c.memory.VideoRead(addr + 1))
	copy(pixel[0:8], px0[:])
	copy(pixel[8:16], px1[:])
}

// RunUntil steps the CPU and every peripheral forward until deadlineTicks
// quarter-microsecond ticks have elapsed or a bit in stopMask is set,
// returning the bits in stopMask that actually triggered the stop (0 if
// the deadline was reached cleanly).
func (c *Core) RunUntil(deadlineTicks uint64, stopMask byte) byte {
	c.stopReason = StopNone
	for c.ticks < deadlineTicks {
		c.cpu.Step()
		if c.stopReason&stopMask != 0 {
			break
		}
	}
	return c.stopReason & stopMask
}

//go:build !headless

// video_backend_ebiten.go - ebiten window driving Core's run_until loop
//
// The window owns the emulation clock: Update() advances Core one frame's
// worth of ticks via RunUntil, stopping early on a vsync edge so the
// displayed frame always lands on a real CRTC frame boundary. Core paints
// hardware-palette indices directly into a pixel buffer this backend owns;
// Draw() expands that buffer through the hardware color palette into an
// RGBA image and blits it unscaled to the window.

package main

import (
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	screenWidth  = 768
	screenHeight = 272
)

// hardwarePalette is the CPC's 27 distinct displayable colors (of the 32
// indices the gate array addresses, 5 are aliases), expressed as RGBA.
var hardwarePalette = [32][4]byte{
	{0x68, 0x68, 0x68, 0xFF}, {0x68, 0x68, 0x68, 0xFF}, {0x2A, 0xFC, 0x68, 0xFF}, {0xFC, 0xFC, 0x68, 0xFF},
	{0x00, 0x00, 0x68, 0xFF}, {0xFC, 0x00, 0x68, 0xFF}, {0x00, 0x7C, 0x68, 0xFF}, {0xFC, 0x7C, 0x68, 0xFF},
	{0xFC, 0x00, 0x68, 0xFF}, {0xFC, 0xFC, 0x68, 0xFF}, {0xFC, 0xFC, 0x2A, 0xFF}, {0xFC, 0xFC, 0xFC, 0xFF},
	{0xFC, 0x00, 0x00, 0xFF}, {0xFC, 0x00, 0xFC, 0xFF}, {0xFC, 0x7C, 0x00, 0xFF}, {0xFC, 0x7C, 0xFC, 0xFF},
	{0x00, 0x00, 0x68, 0xFF}, {0x00, 0xFC, 0x68, 0xFF}, {0x2A, 0xFC, 0x2A, 0xFF}, {0x2A, 0xFC, 0xFC, 0xFF},
	{0x00, 0x00, 0x00, 0xFF}, {0x00, 0x00, 0xFC, 0xFF}, {0x00, 0x7C, 0x00, 0xFF}, {0x00, 0x7C, 0xFC, 0xFF},
	{0x00, 0x00, 0xFC, 0xFF}, {0x00, 0xFC, 0xFC, 0xFF}, {0x00, 0xFC, 0x2A, 0xFF}, {0x00, 0xFC, 0xFC, 0xFF},
	{0x68, 0x00, 0x68, 0xFF}, {0x68, 0x00, 0xFC, 0xFF}, {0x68, 0x7C, 0x68, 0xFF}, {0x68, 0x7C, 0xFC, 0xFF},
}

// cpcKey pairs a keyboard matrix address with the ebiten key that drives it.
type cpcKey struct {
	key  ebiten.Key
	line byte
	bit  byte
}

// cpcKeyMatrix maps host keys onto the standard CPC 464/664/6128 keyboard
// matrix addresses (10 lines x 8 bits). Only the alphanumeric and control
// keys needed to drive BASIC and most software are mapped; the CPC's
// joystick-only and numeric-keypad rows are left unmapped.
var cpcKeyMatrix = []cpcKey{
	{ebiten.KeyEnter, 0, 2}, {ebiten.KeyF9, 0, 1}, {ebiten.KeyPeriod, 0, 4}, {ebiten.KeyArrowRight, 0, 0},
	{ebiten.KeyArrowDown, 0, 6}, {ebiten.KeyF6, 0, 7}, {ebiten.KeyF7, 0, 5}, {ebiten.KeyF8, 0, 3},

	{ebiten.KeySlash, 1, 0}, {ebiten.KeyArrowUp, 1, 1}, {ebiten.KeyComma, 1, 3}, {ebiten.KeyArrowLeft, 1, 4},
	{ebiten.KeyControl, 1, 2}, {ebiten.KeyF3, 1, 5}, {ebiten.KeyF1, 1, 6}, {ebiten.KeyF2, 1, 7},

	{ebiten.KeyQuote, 2, 1}, {ebiten.KeyBracketRight, 2, 5}, {ebiten.KeyM, 2, 2}, {ebiten.KeyK, 2, 3},
	{ebiten.KeyL, 2, 4}, {ebiten.KeySemicolon, 2, 0}, {ebiten.KeyF5, 2, 6}, {ebiten.KeyF4, 2, 7},

	{ebiten.KeyP, 3, 0}, {ebiten.KeyBracketLeft, 3, 1}, {ebiten.KeyMinus, 3, 3}, {ebiten.KeyI, 3, 4},
	{ebiten.KeyBackslash, 3, 5}, {ebiten.KeyO, 3, 6}, {ebiten.Key9, 3, 7}, {ebiten.Key0, 3, 2},

	{ebiten.KeyY, 4, 3}, {ebiten.KeyH, 4, 4}, {ebiten.KeyU, 4, 5}, {ebiten.Key7, 4, 6}, {ebiten.Key8, 4, 7},
	{ebiten.KeyN, 4, 0}, {ebiten.KeyJ, 4, 1}, {ebiten.KeyB, 4, 2},

	{ebiten.KeyT, 5, 3}, {ebiten.KeyG, 5, 4}, {ebiten.Key5, 5, 5}, {ebiten.Key6, 5, 6},
	{ebiten.KeySpace, 5, 7}, {ebiten.KeyV, 5, 0}, {ebiten.KeyF, 5, 1}, {ebiten.KeyC, 5, 2},

	{ebiten.Key1, 6, 5}, {ebiten.KeyEscape, 6, 7}, {ebiten.KeyTab, 6, 3}, {ebiten.KeyQ, 6, 4},
	{ebiten.Key2, 6, 6}, {ebiten.KeyX, 6, 0}, {ebiten.KeyW, 6, 1}, {ebiten.KeyS, 6, 2},

	{ebiten.KeyZ, 7, 1}, {ebiten.KeyA, 7, 2}, {ebiten.Key3, 7, 5}, {ebiten.Key4, 7, 6},
	{ebiten.KeyE, 7, 4}, {ebiten.KeyShift, 7, 0}, {ebiten.KeyD, 7, 3}, {ebiten.KeyCapsLock, 7, 7},

	{ebiten.KeyAlt, 8, 5}, {ebiten.KeyBackspace, 9, 7},
}

type EbitenOutput struct {
	core       *Core
	img        *ebiten.Image
	pixels     [screenWidth * screenHeight]byte
	frame      [screenWidth * screenHeight * 4]byte
	fullscreen bool
	keyState   map[ebiten.Key]bool
}

func NewEbitenOutput(core *Core) *EbitenOutput {
	eo := &EbitenOutput{core: core, keyState: make(map[ebiten.Key]bool, len(cpcKeyMatrix))}
	eo.img = ebiten.NewImage(screenWidth, screenHeight)
	core.SetScreen(eo.pixels[:], screenWidth, screenHeight, screenWidth)
	return eo
}

// pollKeys diffs the host key state against the last poll and forwards any
// transitions to the core's keyboard matrix.
func (eo *EbitenOutput) pollKeys() {
	for _, k := range cpcKeyMatrix {
		down := ebiten.IsKeyPressed(k.key)
		if down != eo.keyState[k.key] {
			eo.keyState[k.key] = down
			eo.core.KeyPress(k.line, k.bit, down)
		}
	}
}

// expandFrame converts the core's hardware-palette-index pixel buffer into
// the RGBA frame ebiten's image wants, one pixel at a time through the
// fixed hardware color table.
func (eo *EbitenOutput) expandFrame() {
	for i, p := range eo.pixels {
		rgba := hardwarePalette[p&0x1F]
		copy(eo.frame[i*4:i*4+4], rgba[:])
	}
}

func (eo *EbitenOutput) Start() {
	ebiten.SetWindowSize(screenWidth*2, screenHeight*2)
	ebiten.SetWindowTitle("cpccore")
	ebiten.SetWindowResizable(true)
	ebiten.SetVsyncEnabled(true)
}

// Update runs one frame's worth of emulation, stopping early at the first
// vsync edge within the frame budget so the window never draws a partial
// field.
func (eo *EbitenOutput) Update() error {
	if ebiten.IsWindowBeingClosed() {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		eo.fullscreen = !eo.fullscreen
		ebiten.SetFullscreen(eo.fullscreen)
	}
	eo.pollKeys()
	eo.core.RunUntil(eo.core.Ticks()+ticksPerFrame, StopVSync)
	return nil
}

func (eo *EbitenOutput) Draw(screen *ebiten.Image) {
	eo.expandFrame()
	eo.img.WritePixels(eo.frame[:])
	screen.DrawImage(eo.img, nil)
	ebiten.SetWindowTitle(fmt.Sprintf("cpccore - %0.1f fps", ebiten.CurrentFPS()))
}

func (eo *EbitenOutput) Layout(outsideWidth, outsideHeight int) (int, int) {
	return screenWidth, screenHeight
}

// Run hands the event loop to ebiten; it owns frame pacing from here on,
// calling Update/Draw itself. frames is ignored in this backend since
// ebiten runs until the window closes, not for a fixed frame count.
func (eo *EbitenOutput) Run(frames int) error {
	return ebiten.RunGame(eo)
}

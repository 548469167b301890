//go:build !headless

// audio_backend_oto.go - oto/v3 audio output, driven by Core's sample ring

package main

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// OtoPlayer drains Core's 3-channel audio ring into a stereo PCM stream:
// channels A and C panned to the left/right outputs and channel B mixed to
// both, matching the conventional CPC/Spectrum-beeper-era PSG stereo
// separation most CPC emulators use.
type OtoPlayer struct {
	ctx     *oto.Context
	player  *oto.Player
	core    atomic.Pointer[Core]
	started bool
	mutex   sync.Mutex

	chanA, chanB, chanC [4096]byte
}

func NewOtoPlayer(sampleRate int) (*OtoPlayer, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoPlayer{ctx: ctx}, nil
}

func (op *OtoPlayer) SetupPlayer(core *Core) {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	op.core.Store(core)
	op.player = op.ctx.NewPlayer(op)
}

func amplitudeToFloat(level byte) float32 {
	return float32(level) / 15.0
}

func (op *OtoPlayer) Read(p []byte) (n int, err error) {
	core := op.core.Load()
	if core == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	numFrames := len(p) / 8 // 2 channels * 4 bytes/float32
	if numFrames > len(op.chanA) {
		numFrames = len(op.chanA)
	}

	got := core.GetAudioBuffers(numFrames, [3][]byte{op.chanA[:numFrames], op.chanB[:numFrames], op.chanC[:numFrames]})

	for i := 0; i < got; i++ {
		a := amplitudeToFloat(op.chanA[i])
		b := amplitudeToFloat(op.chanB[i])
		c := amplitudeToFloat(op.chanC[i])
		left := (a + b*0.5) / 1.5
		right := (c + b*0.5) / 1.5
		writeFloat32LE(p[i*8:], left)
		writeFloat32LE(p[i*8+4:], right)
	}
	for i := got; i < numFrames; i++ {
		writeFloat32LE(p[i*8:], 0)
		writeFloat32LE(p[i*8+4:], 0)
	}
	return numFrames * 8, nil
}

func writeFloat32LE(b []byte, f float32) {
	bits := math.Float32bits(f)
	b[0] = byte(bits)
	b[1] = byte(bits >> 8)
	b[2] = byte(bits >> 16)
	b[3] = byte(bits >> 24)
}

func (op *OtoPlayer) Start() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if !op.started && op.player != nil {
		op.player.Play()
		op.started = true
	}
}

func (op *OtoPlayer) Stop() {
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.started && op.player != nil {
		op.player.Close()
		op.started = false
	}
}

func (op *OtoPlayer) Close() {
	op.Stop()
	op.mutex.Lock()
	defer op.mutex.Unlock()

	if op.player != nil {
		op.player.Close()
		op.player = nil
	}
}

func (op *OtoPlayer) IsStarted() bool {
	op.mutex.Lock()
	defer op.mutex.Unlock()
	return op.started
}

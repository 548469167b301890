// audioring.go - fixed-size 3-channel audio sample ring buffer
//
// Read and write positions are monotonically increasing counters wrapped
// to the buffer size only at access time, so overrun detection is a plain
// comparison of the two counters rather than a separate full/empty flag.

package main

const audioRingSize = 4800 * 2

type AudioRing struct {
	writePos uint64
	readPos  uint64
	channel  [3][audioRingSize]byte
}

func NewAudioRing() *AudioRing {
	return &AudioRing{}
}

func (a *AudioRing) WriteSample(amplitudes [3]byte) {
	p := a.writePos % audioRingSize
	for c := 0; c < 3; c++ {
		a.channel[c][p] = amplitudes[c]
	}
	a.writePos++
}

func (a *AudioRing) Overrun() bool {
	return a.readPos < a.writePos && (a.writePos-a.readPos) >= audioRingSize
}

// GetBuffers copies up to numSamples samples from each channel into the
// caller's buffers, returning the number of samples actually copied.
func (a *AudioRing) GetBuffers(numSamples int, channels [3][]byte) int {
	samples := 0
	for samples < numSamples && a.readPos < a.writePos {
		p := a.readPos % audioRingSize
		for c := 0; c < 3; c++ {
			if channels[c] != nil {
				channels[c][samples] = a.channel[c][p]
			}
		}
		a.readPos++
		samples++
	}
	return samples
}

func (a *AudioRing) Write_(w *StreamWriter) {
	w.WriteU64(a.writePos)
	w.WriteU64(a.readPos)
	for c := range a.channel {
		w.WriteArray(a.channel[c][:])
	}
}

func (a *AudioRing) Read_(r *StreamReader) error {
	var err error
	if a.writePos, err = r.ReadU64(); err != nil {
		return err
	}
	if a.readPos, err = r.ReadU64(); err != nil {
		return err
	}
	for c := range a.channel {
		b, err := r.ReadArray(audioRingSize)
		if err != nil {
			return err
		}
		copy(a.channel[c][:], b)
	}
	return nil
}

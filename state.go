// state.go - full-machine state blob round-trip
//
// GetState concatenates every component's Write_ output in the fixed order
// the format defines: clock, CPU registers, memory, floppy controller,
// keyboard, CRTC, PSG, PPI, gate array, tape, then the audio pacing
// counters. LoadState replays the same order through each component's
// Read_. A short or truncated blob fails on the first under-read, which
// is reported back to the caller rather than panicking.

package main

// GetState serializes the entire machine to a byte blob that LoadState can
// later restore bit-for-bit, including the tick counter (unlike Reset,
// which leaves it alone, a state load fully replaces it).
func (c *Core) GetState() []byte {
	w := NewStreamWriter()

	w.WriteU64(c.ticks)
	c.cpu.Write_(w)
	c.memory.Write_(w)
	c.fdc.Write_(w)
	c.keyboard.Write_(w)
	c.crtc.Write_(w)
	c.psg.Write_(w)
	c.ppi.Write_(w)
	c.gateArray.Write_(w)
	c.tape.Write_(w)
	c.audio.Write_(w)

	w.WriteBool(c.interruptRequested)
	w.WriteU32(c.sampleTickAccum)
	w.WriteU32(c.ticksPerSample)
	w.WriteInt(c.sampleRate)

	return w.Bytes()
}

// LoadState restores a blob produced by GetState. On error the Core's
// state is left partially overwritten; callers that need atomicity should
// snapshot with GetState first and reload on failure.
func (c *Core) LoadState(data []byte) error {
	r := NewStreamReader(data)

	var err error
	if c.ticks, err = r.ReadU64(); err != nil {
		return err
	}
	if err = c.cpu.Read_(r); err != nil {
		return err
	}
	if err = c.memory.Read_(r); err != nil {
		return err
	}
	if err = c.fdc.Read_(r); err != nil {
		return err
	}
	if err = c.keyboard.Read_(r); err != nil {
		return err
	}
	if err = c.crtc.Read_(r); err != nil {
		return err
	}
	if err = c.psg.Read_(r); err != nil {
		return err
	}
	if err = c.ppi.Read_(r); err != nil {
		return err
	}
	if err = c.gateArray.Read_(r); err != nil {
		return err
	}
	if err = c.tape.Read_(r); err != nil {
		return err
	}
	if err = c.audio.Read_(r); err != nil {
		return err
	}
	if c.interruptRequested, err = r.ReadBool(); err != nil {
		return err
	}
	if c.sampleTickAccum, err = r.ReadU32(); err != nil {
		return err
	}
	if c.ticksPerSample, err = r.ReadU32(); err != nil {
		return err
	}
	if c.sampleRate, err = r.ReadInt(); err != nil {
		return err
	}

	return nil
}

// tape.go - block-structured tape image playback
//
// A loaded image is a sequence of self-describing blocks (pilot tone,
// sync pulses, data bytes, pauses) each with its own pulse-length recipe.
// Tick() walks forward one quarter-microsecond at a time, toggling the
// output level whenever the current block's pulse generator says a level
// change is due; ticksToNextLevelChange dispatches by block ID to the
// block-specific state machine and returns -1 once the image is exhausted.

package main

const tapeHeaderSize = 10

func adjustTicks(t int) int { return (8 * t) / 7 }

type tapeBlockPhase int

const (
	phaseStart tapeBlockPhase = iota
	phasePilot
	phaseSyncOne
	phaseSyncTwo
	phaseData
	phasePause
	phasePauseZero
	phaseEnd
)

type speedBlockData struct {
	pilotPulseLength int
	sync1Length      int
	sync2Length      int
	pilotPulseCount  int
}

type dataBlockData struct {
	zeroLength      int
	oneLength       int
	usedBitsLastByte int
	pause           int
	length          int
}

type Tape struct {
	buffer []byte

	currentBlockIndex int
	blockIndex        int
	phase             tapeBlockPhase
	pulsesRemaining   int
	dataIndex         int
	levelChanged      bool
	dataByte          byte
	remainingBits     int
	pulseIndex        int
	pause             int

	dataBlock  dataBlockData
	speedBlock speedBlockData

	playing bool
	level   bool
	motor   bool

	tickPos                   int
	ticksToNextLevelChangeVal int
	dataBlockBase             int
}

func NewTape() *Tape {
	t := &Tape{}
	t.Eject()
	return t
}

func (t *Tape) Eject() {
	t.buffer = nil
	t.playing = false
	t.level = false
	t.motor = false
	t.currentBlockIndex = 0
	t.blockIndex = 0
	t.phase = phaseStart
}

// Load validates the "ZXTape!"+0x1A signature and rewinds to the first block.
func (t *Tape) Load(buf []byte) bool {
	sig := []byte{'Z', 'X', 'T', 'a', 'p', 'e', '!', 0x1A}
	if len(buf) < tapeHeaderSize || !bytesEqual(buf[:8], sig) {
		return false
	}
	t.buffer = buf
	t.Rewind()
	return true
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func (t *Tape) Rewind() {
	t.phase = phaseStart
	t.blockIndex = 0
	t.currentBlockIndex = tapeHeaderSize
	t.level = true
	v := t.ticksToNextLevelChange()
	t.ticksToNextLevelChangeVal = v
	if v < 0 {
		t.playing = false
	} else {
		t.playing = true
	}
}

func (t *Tape) blockByte(off int) byte {
	if t.currentBlockIndex+off >= len(t.buffer) {
		return 0
	}
	return t.buffer[t.currentBlockIndex+off]
}

func (t *Tape) blockWord(off int) int {
	return int(t.blockByte(off)) | int(t.blockByte(off+1))<<8
}

func (t *Tape) blockTripleByte(off int) int {
	return int(t.blockByte(off)) | int(t.blockByte(off+1))<<8 | int(t.blockByte(off+2))<<16
}

// blockSize returns the total byte size of the block starting at the
// current index, per its ID, or -1 for an unrecognized ID.
func (t *Tape) blockSize() int {
	id := t.blockByte(0)
	switch id {
	case 0x10:
		return 5 + t.blockWord(3)
	case 0x11:
		return 0x13 + t.blockTripleByte(16)
	case 0x12:
		return 5
	case 0x13:
		return 2 + int(t.blockByte(1))*2
	case 0x14:
		return 0x0B + t.blockTripleByte(8)
	case 0x15:
		return 9 + t.blockTripleByte(8)
	case 0x20:
		return 3
	case 0x21:
		return 2 + int(t.blockByte(1))
	case 0x22:
		return 1
	case 0x31:
		return 3 + int(t.blockByte(2))
	case 0x32:
		return 3 + t.blockWord(1)
	case 0x33:
		return 2 + int(t.blockByte(1))*3
	default:
		return -1
	}
}

func (t *Tape) endPhase() {
	size := t.blockSize()
	if size < 0 {
		t.currentBlockIndex = len(t.buffer)
	} else {
		t.currentBlockIndex += size
	}
	t.phase = phaseStart
}

// dataPhase serializes the current data byte a half-bit at a time,
// toggling level only on the second half of each bit.
func (t *Tape) dataPhase() int {
	pulseLen := t.dataBlock.zeroLength
	if t.dataByte&0x80 != 0 {
		pulseLen = t.dataBlock.oneLength
	}

	if !t.levelChanged {
		t.levelChanged = true
		return pulseLen
	}

	t.levelChanged = false
	t.dataByte <<= 1
	t.remainingBits--
	if t.remainingBits == 0 {
		t.dataIndex++
		if t.dataIndex >= t.dataBlock.length {
			t.phase = phasePause
		} else if t.dataIndex == t.dataBlock.length-1 {
			t.remainingBits = t.dataBlock.usedBitsLastByte
			if t.remainingBits == 0 {
				t.remainingBits = 8
			}
			t.dataByte = t.blockByte(t.dataBlockDataOffset() + t.dataIndex)
		} else {
			t.remainingBits = 8
			t.dataByte = t.blockByte(t.dataBlockDataOffset() + t.dataIndex)
		}
	}

	return pulseLen
}

// dataBlockDataOffset is overridden per-block-type by the caller setting
// dataIndex's base before entering phaseData; kept as a small helper so
// dataPhase doesn't need to know which block ID it is serving.
func (t *Tape) dataBlockDataOffset() int {
	return t.dataBlockBase
}

// stepSpeedDataBlock implements the shared pilot -> sync1 -> sync2 -> data
// -> pause -> end state machine used by both standard and turbo blocks.
func (t *Tape) stepSpeedDataBlock() int {
	switch t.phase {
	case phasePilot:
		t.pulsesRemaining--
		if t.pulsesRemaining <= 0 {
			t.phase = phaseSyncOne
		}
		return t.speedBlock.pilotPulseLength
	case phaseSyncOne:
		t.phase = phaseSyncTwo
		return t.speedBlock.sync1Length
	case phaseSyncTwo:
		t.phase = phaseData
		t.dataIndex = 0
		t.remainingBits = 8
		if t.dataBlock.length == 1 {
			t.remainingBits = t.dataBlock.usedBitsLastByte
			if t.remainingBits == 0 {
				t.remainingBits = 8
			}
		}
		t.dataByte = t.blockByte(t.dataBlockBase)
		t.levelChanged = false
		return t.speedBlock.sync2Length
	case phaseData:
		return t.dataPhase()
	case phasePause:
		t.phase = phaseEnd
		if t.dataBlock.pause == 0 {
			return -1
		}
		return 4000
	case phasePauseZero:
		t.phase = phaseEnd
		return 4000 * t.dataBlock.pause
	default:
		return -1
	}
}

func (t *Tape) stepID10() int {
	if t.phase == phaseStart {
		t.phase = phasePilot
		firstByte := t.blockByte(4)
		if firstByte&0x80 != 0 {
			t.pulsesRemaining = 3223
		} else {
			t.pulsesRemaining = 8063
		}
		t.speedBlock = speedBlockData{
			pilotPulseLength: adjustTicks(2168),
			sync1Length:      adjustTicks(667),
			sync2Length:      adjustTicks(735),
		}
		t.dataBlock = dataBlockData{
			zeroLength:       adjustTicks(855),
			oneLength:        adjustTicks(1710),
			usedBitsLastByte: 8,
			pause:            t.blockWord(1),
			length:           t.blockWord(3),
		}
		t.dataBlockBase = 5
	}
	return t.stepSpeedDataBlock()
}

func (t *Tape) stepID11() int {
	if t.phase == phaseStart {
		t.phase = phasePilot
		t.pulsesRemaining = t.blockTripleByte(10)
		t.speedBlock = speedBlockData{
			pilotPulseLength: adjustTicks(t.blockWord(0)),
			sync1Length:      adjustTicks(t.blockWord(2)),
			sync2Length:      adjustTicks(t.blockWord(4)),
		}
		t.dataBlock = dataBlockData{
			zeroLength:       adjustTicks(t.blockWord(6)),
			oneLength:        adjustTicks(t.blockWord(8)),
			usedBitsLastByte: int(t.blockByte(13)),
			pause:            t.blockWord(14),
			length:           t.blockTripleByte(16),
		}
		t.dataBlockBase = 0x13
	}
	return t.stepSpeedDataBlock()
}

func (t *Tape) stepID12() int {
	if t.phase == phaseStart {
		t.phase = phasePilot
		t.pulsesRemaining = t.blockWord(3)
	}
	if t.phase == phasePilot {
		t.pulsesRemaining--
		if t.pulsesRemaining <= 0 {
			t.phase = phaseEnd
		}
		return adjustTicks(t.blockWord(1))
	}
	return -1
}

func (t *Tape) stepID13() int {
	if t.phase == phaseStart {
		t.phase = phaseData
		t.pulseIndex = 0
	}
	n := int(t.blockByte(1))
	if t.pulseIndex >= n {
		t.phase = phaseEnd
		return -1
	}
	v := adjustTicks(t.blockWord(2 + t.pulseIndex*2))
	t.pulseIndex++
	return v
}

func (t *Tape) stepID14() int {
	if t.phase == phaseStart {
		t.dataBlock = dataBlockData{
			zeroLength:       adjustTicks(t.blockWord(0)),
			oneLength:        adjustTicks(t.blockWord(2)),
			usedBitsLastByte: int(t.blockByte(4)),
			pause:            t.blockWord(5),
			length:           t.blockTripleByte(7),
		}
		t.dataBlockBase = 0x0B
		t.phase = phaseData
		t.dataIndex = 0
		t.remainingBits = 8
		if t.dataBlock.length == 1 {
			t.remainingBits = t.dataBlock.usedBitsLastByte
			if t.remainingBits == 0 {
				t.remainingBits = 8
			}
		}
		t.dataByte = t.blockByte(t.dataBlockBase)
		t.levelChanged = false
	}
	if t.phase == phaseData {
		return t.dataPhase()
	}
	return t.stepSpeedDataBlock()
}

func (t *Tape) stepID15() int {
	if t.phase == phaseStart {
		t.dataBlock = dataBlockData{
			pause:  t.blockWord(3),
			length: t.blockTripleByte(5),
		}
		t.dataBlockBase = 0x08
		t.phase = phaseData
		t.dataIndex = 0
		t.remainingBits = 8
		t.dataByte = t.blockByte(t.dataBlockBase)
	}
	if t.phase == phaseData {
		if t.dataByte&0x80 != 0 {
			t.level = true
		} else {
			t.level = false
		}
		t.dataByte <<= 1
		t.remainingBits--
		if t.remainingBits == 0 {
			t.remainingBits = 8
			t.dataIndex++
			if t.dataIndex >= t.dataBlock.length {
				t.phase = phasePause
			} else {
				t.dataByte = t.blockByte(t.dataBlockBase + t.dataIndex)
			}
		}
		return adjustTicks(t.blockWord(1))
	}
	return t.stepSpeedDataBlock()
}

func (t *Tape) stepID20() int {
	pause := t.blockWord(1)
	if pause == 0 {
		return -1
	}
	if t.phase != phasePauseZero {
		t.phase = phasePauseZero
		return 4000
	}
	t.phase = phaseEnd
	return 4000 * pause
}

// ticksToNextLevelChange dispatches by block ID to its pulse generator,
// skipping over end-phase-only block types with no level change of their own.
func (t *Tape) ticksToNextLevelChange() int {
	for {
		if t.currentBlockIndex >= len(t.buffer) {
			return -1
		}
		id := t.blockByte(0)
		switch id {
		case 0x10:
			return t.stepID10()
		case 0x11:
			return t.stepID11()
		case 0x12:
			return t.stepID12()
		case 0x13:
			return t.stepID13()
		case 0x14:
			return t.stepID14()
		case 0x15:
			return t.stepID15()
		case 0x20:
			return t.stepID20()
		case 0x21, 0x22, 0x31, 0x32, 0x33:
			t.endPhase()
			continue
		default:
			// Unknown block with no known size: treat as end of tape.
			return -1
		}
	}
}

// Tick advances playback by one quarter-microsecond, toggling the output
// level whenever the current pulse's remaining length reaches zero.
func (t *Tape) Tick() {
	if !t.playing || !t.motor {
		return
	}

	t.tickPos++
	if t.tickPos < t.ticksToNextLevelChangeVal {
		return
	}

	for {
		t.level = !t.level
		t.tickPos = 0

		if t.phase == phaseEnd {
			t.endPhase()
		}

		v := t.ticksToNextLevelChange()
		if v < 0 {
			t.playing = false
			return
		}
		if v > 0 {
			t.ticksToNextLevelChangeVal = v
			return
		}
		// v == 0: zero-length transition, fold and loop again.
	}
}

func (t *Tape) Level() bool { return t.level }
func (t *Tape) SetMotor(on bool) { t.motor = on }

func (t *Tape) Write_(w *StreamWriter) {
	w.WriteInt(t.currentBlockIndex)
	w.WriteInt(t.blockIndex)
	w.WriteInt(int(t.phase))
	w.WriteInt(t.pulsesRemaining)
	w.WriteInt(t.dataIndex)
	w.WriteBool(t.levelChanged)
	w.WriteU8(t.dataByte)
	w.WriteInt(t.remainingBits)
	w.WriteInt(t.pulseIndex)
	w.WriteInt(t.pause)
	w.WriteInt(t.dataBlock.zeroLength)
	w.WriteInt(t.dataBlock.oneLength)
	w.WriteInt(t.dataBlock.usedBitsLastByte)
	w.WriteInt(t.dataBlock.pause)
	w.WriteInt(t.dataBlock.length)
	w.WriteInt(t.speedBlock.pilotPulseLength)
	w.WriteInt(t.speedBlock.sync1Length)
	w.WriteInt(t.speedBlock.sync2Length)
	w.WriteInt(t.speedBlock.pilotPulseCount)
	w.WriteBool(t.playing)
	w.WriteBool(t.level)
	w.WriteBool(t.motor)
	w.WriteInt(t.tickPos)
	w.WriteInt(t.ticksToNextLevelChangeVal)
	w.WriteVector(t.buffer)
}

func (t *Tape) Read_(r *StreamReader) error {
	var err error
	if t.currentBlockIndex, err = r.ReadInt(); err != nil {
		return err
	}
	if t.blockIndex, err = r.ReadInt(); err != nil {
		return err
	}
	ph, err := r.ReadInt()
	if err != nil {
		return err
	}
	t.phase = tapeBlockPhase(ph)
	if t.pulsesRemaining, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataIndex, err = r.ReadInt(); err != nil {
		return err
	}
	if t.levelChanged, err = r.ReadBool(); err != nil {
		return err
	}
	if t.dataByte, err = r.ReadU8(); err != nil {
		return err
	}
	if t.remainingBits, err = r.ReadInt(); err != nil {
		return err
	}
	if t.pulseIndex, err = r.ReadInt(); err != nil {
		return err
	}
	if t.pause, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataBlock.zeroLength, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataBlock.oneLength, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataBlock.usedBitsLastByte, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataBlock.pause, err = r.ReadInt(); err != nil {
		return err
	}
	if t.dataBlock.length, err = r.ReadInt(); err != nil {
		return err
	}
	if t.speedBlock.pilotPulseLength, err = r.ReadInt(); err != nil {
		return err
	}
	if t.speedBlock.sync1Length, err = r.ReadInt(); err != nil {
		return err
	}
	if t.speedBlock.sync2Length, err = r.ReadInt(); err != nil {
		return err
	}
	if t.speedBlock.pilotPulseCount, err = r.ReadInt(); err != nil {
		return err
	}
	if t.playing, err = r.ReadBool(); err != nil {
		return err
	}
	if t.level, err = r.ReadBool(); err != nil {
		return err
	}
	if t.motor, err = r.ReadBool(); err != nil {
		return err
	}
	if t.tickPos, err = r.ReadInt(); err != nil {
		return err
	}
	if t.ticksToNextLevelChangeVal, err = r.ReadInt(); err != nil {
		return err
	}
	t.buffer, err = r.ReadVector()
	return err
}

// fdc.go - disc image loading, per-drive seek/read/write, FDC phase machine
//
// Two on-wire disc image formats are supported: v1 ("MV - CPC", fixed
// per-disc track size) and v2 ("EXTENDED CPC DSK File", variable
// per-track size table). The FDC itself is a classic command/execute/
// result byte-stream state machine fed one byte at a time through the
// data register, with a 4-byte streaming read FIFO for the Read Data
// command's sector-at-a-time execute phase.

package main

// ---- Sector / Track / Disk image model ----

type Sector struct {
	track, side     byte
	id              byte
	size            byte
	fdcRegister1    byte
	fdcRegister2    byte
	dataLength      int
	data            []byte
}

type Track struct {
	id, side      byte
	sectorSize    byte
	gap3Length    byte
	fillerByte    byte
	formatted     bool
	dataRate      byte
	recordingMode byte
	numSectors    byte
	sectors       []Sector
}

type Disk struct {
	tracks []Track
}

func bufByte(buf []byte, off int) byte {
	if off < 0 || off >= len(buf) {
		return 0
	}
	return buf[off]
}

func bufWord(buf []byte, off int) int {
	return int(bufByte(buf, off)) | int(bufByte(buf, off+1))<<8
}

func bufString(buf []byte, off, n int) string {
	end := off + n
	if end > len(buf) {
		end = len(buf)
	}
	if off > len(buf) {
		off = len(buf)
	}
	return string(buf[off:end])
}

// LoadDisk dispatches on the two known disc-image signatures.
func LoadDisk(buf []byte) (*Disk, bool) {
	if bufString(buf, 0, 0x22) == "EXTENDED CPC DSK File\r\nDisk-Info\r\n" {
		return loadDiskV2(buf)
	}
	if bufString(buf, 0, 8) == "MV - CPC" {
		return loadDiskV1(buf)
	}
	return nil, false
}

func loadDiskV1(buf []byte) (*Disk, bool) {
	tracksCount := int(bufByte(buf, 0x30))
	sideCount := int(bufByte(buf, 0x31))
	if sideCount < 1 {
		sideCount = 1
	}
	trackSize := bufWord(buf, 0x32)

	d := &Disk{}
	off := 0x100
	for tr := 0; tr < tracksCount; tr++ {
		for sd := 0; sd < sideCount; sd++ {
			if off >= len(buf) {
				return d, true
			}
			track, ok := loadTrackV1(buf, off)
			if ok {
				d.tracks = append(d.tracks, track)
			}
			off += trackSize
		}
	}
	return d, true
}

func loadTrackV1(buf []byte, off int) (Track, bool) {
	if bufString(buf, off, 12) != "Track-Info\r\n" {
		return Track{}, false
	}
	t := Track{
		id:         bufByte(buf, off+0x10),
		side:       bufByte(buf, off+0x11),
		sectorSize: bufByte(buf, off+0x14),
		numSectors: bufByte(buf, off+0x15),
		gap3Length: bufByte(buf, off+0x16),
		fillerByte: bufByte(buf, off+0x17),
	}
	t.formatted = true

	dataOff := off + 0x100
	for i := 0; i < int(t.numSectors); i++ {
		infoOff := off + 0x18 + 8*i
		size := bufByte(buf, infoOff+3)
		dataLen := int(size) * 0x100
		sec := Sector{
			track:        bufByte(buf, infoOff+0),
			side:         bufByte(buf, infoOff+1),
			id:           bufByte(buf, infoOff+2),
			size:         size,
			fdcRegister1: bufByte(buf, infoOff+4),
			fdcRegister2: bufByte(buf, infoOff+5),
			dataLength:   dataLen,
		}
		end := dataOff + dataLen
		if end > len(buf) {
			end = len(buf)
		}
		if dataOff < len(buf) {
			sec.data = append([]byte(nil), buf[dataOff:end]...)
		}
		t.sectors = append(t.sectors, sec)
		dataOff += dataLen
	}
	return t, true
}

func loadDiskV2(buf []byte) (*Disk, bool) {
	tracksCount := int(bufByte(buf, 0x30))
	sideCount := int(bufByte(buf, 0x31))
	if sideCount < 1 {
		sideCount = 1
	}
	numEntries := tracksCount * sideCount

	d := &Disk{}
	off := 0x100
	for i := 0; i < numEntries; i++ {
		sizeEntry := int(bufByte(buf, 0x34+i))
		trackSize := sizeEntry * 0x100
		if trackSize == 0 {
			continue
		}
		if off >= len(buf) {
			break
		}
		track, ok := loadTrackV2(buf, off)
		if ok {
			d.tracks = append(d.tracks, track)
		}
		off += trackSize
	}
	return d, true
}

func loadTrackV2(buf []byte, off int) (Track, bool) {
	if bufString(buf, off, 12) != "Track-Info\r\n" {
		return Track{}, false
	}
	t := Track{
		id:            bufByte(buf, off+0x10),
		side:          bufByte(buf, off+0x11),
		sectorSize:    bufByte(buf, off+0x14),
		numSectors:    bufByte(buf, off+0x15),
		gap3Length:    bufByte(buf, off+0x16),
		fillerByte:    bufByte(buf, off+0x17),
		dataRate:      bufByte(buf, off+0x1C),
		recordingMode: bufByte(buf, off+0x1D),
	}
	t.formatted = true

	infoBase := off + 0x18
	dataOff := off + 0x100
	for i := 0; i < int(t.numSectors); i++ {
		infoOff := infoBase + 8*i
		dataLen := bufWord(buf, infoOff+6)
		sec := Sector{
			track:        bufByte(buf, infoOff+0),
			side:         bufByte(buf, infoOff+1),
			id:           bufByte(buf, infoOff+2),
			size:         bufByte(buf, infoOff+3),
			fdcRegister1: bufByte(buf, infoOff+4),
			fdcRegister2: bufByte(buf, infoOff+5),
			dataLength:   dataLen,
		}
		end := dataOff + dataLen
		if end > len(buf) {
			end = len(buf)
		}
		if dataOff < len(buf) {
			sec.data = append([]byte(nil), buf[dataOff:end]...)
		}
		t.sectors = append(t.sectors, sec)
		dataOff += dataLen
	}
	return t, true
}

// ---- Floppy disc drive ----

type chrn struct {
	cylinder, head, record, num byte
}

type FDD struct {
	currentSector int
	currentTrack  int
	hasDisk       bool
	disk          Disk
}

func (f *FDD) Init() {
	f.currentSector = 0
	f.currentTrack = 0
	f.hasDisk = false
}

func (f *FDD) Eject() { f.Init() }

func (f *FDD) Load(d *Disk) {
	f.hasDisk = true
	f.disk = *d
}

func (f *FDD) IsReady() bool { return f.hasDisk }

// Seek locates the track with the given cylinder id and binds
// currentTrack to its index in the track list.
func (f *FDD) Seek(cylinder byte) bool {
	for i, tr := range f.disk.tracks {
		if tr.id == cylinder {
			f.currentTrack = i
			return true
		}
	}
	return false
}

func (f *FDD) ReadId(c *chrn) bool {
	if f.currentTrack < 0 || f.currentTrack >= len(f.disk.tracks) {
		return false
	}
	tr := f.disk.tracks[f.currentTrack]
	if f.currentSector < 0 || f.currentSector >= len(tr.sectors) {
		return false
	}
	sec := tr.sectors[f.currentSector]
	c.cylinder, c.head, c.record, c.num = sec.track, sec.side, sec.id, sec.size
	return true
}

func (f *FDD) findSector(track, head, sector, numBytes byte) (*Sector, bool) {
	if f.currentTrack < 0 || f.currentTrack >= len(f.disk.tracks) {
		return nil, false
	}
	tr := &f.disk.tracks[f.currentTrack]
	n := len(tr.sectors)
	if n == 0 {
		return nil, false
	}
	start := f.currentSector
	for i := 0; i < n; i++ {
		idx := (start + i) % n
		sec := &tr.sectors[idx]
		if sec.track == track && sec.side == head && sec.id == sector && sec.size == numBytes {
			f.currentSector = idx
			return sec, true
		}
	}
	return nil, false
}

// ReadData locates the sector and returns its stored data.
func (f *FDD) ReadData(track, head, sector, numBytes, endOfTrack, gapLength, dataLength byte) ([]byte, bool) {
	sec, ok := f.findSector(track, head, sector, numBytes)
	if !ok {
		return nil, false
	}
	return sec.data, true
}

// WriteData only locates the target sector; it deliberately never mutates
// sector data, preserving the quirk in the implementation this core was
// ported from (see the Write Data command's Open Question in the floppy
// module's documentation).
func (f *FDD) WriteData(track, head, sector, numBytes, endOfTrack, gapLength, dataLengthCode byte, data []byte, dataLength int) bool {
	_, ok := f.findSector(track, head, sector, numBytes)
	return ok
}

// ReadDataResult advances to the next sector (wrapping to the next
// cylinder's lowest sector id at the end of a track), used for
// multi-sector reads that cross a track boundary.
func (f *FDD) ReadDataResult(cylinder, head, sector, numBytes *byte) {
	if _, ok := f.findSector(*cylinder, *head, *sector, *numBytes); ok {
		return
	}
	*cylinder++
	if f.Seek(*cylinder) {
		tr := f.disk.tracks[f.currentTrack]
		lowest := byte(0xFF)
		for _, sec := range tr.sectors {
			if sec.id < lowest {
				lowest = sec.id
			}
		}
		*sector = lowest
		f.currentSector = 0
	}
}

func (f *FDD) GetTrack() byte {
	if !f.hasDisk {
		return 0
	}
	return byte(f.currentTrack)
}

// ---- FDC command/execute/result phase machine ----

const (
	st0NormalTerm       = 0x00
	st0AbnormalTerm     = 0x40
	st0InvalidCommand   = 0x80
	st0AbnormalReadyTerm = 0xC0
	st0SeekEnd          = 0x20
	st0EquipmentCheck   = 0x10
	st0NotReady         = 0x08
	st0UnitSelect0      = 0x00
	st0UnitSelect1      = 0x01

	st1EndOfCylinder = 0x80
	st1Overrun       = 0x10

	statusControllerBusy    = 0x10
	statusExecutionMode     = 0x20
	statusTransferDirection = 0x40
	statusRequestMaster     = 0x80

	fdcDataIn  = 0
	fdcDataOut = 1

	fdcReadTimeoutFM = 27

	cmdReadTrack            = 0x02
	cmdSpecify              = 0x03
	cmdSenseDriveStatus     = 0x04
	cmdWriteData            = 0x05
	cmdReadData             = 0x06
	cmdRecalibrate          = 0x07
	cmdSenseInterruptStatus = 0x08
	cmdWriteDeletedData     = 0x09
	cmdReadId               = 0x0A
	cmdReadDeletedData      = 0x0C
	cmdFormatTrack          = 0x0D
	cmdSeek                 = 0x0F
	cmdScanLow              = 0x11
	cmdScanLowOrEqual       = 0x19
	cmdScanHighOrEqual      = 0x1D

	readBufferSize = 4
)

var fdcCommandLengths = [32]byte{
	1, 1, 9, 3, 2, 9, 9, 2,
	1, 9, 2, 1, 9, 6, 1, 3,
	1, 9, 1, 9, 1, 1, 1, 1,
	1, 9, 1, 1, 1, 9, 1, 1,
}

type fdcPhase int

const (
	phCommand fdcPhase = iota
	phExecute
	phResult
)

type FDC struct {
	drives [2]FDD

	readTimeout int8

	mainStatus    byte
	data          byte
	dataDirection byte
	motor         bool
	currentDrive  byte
	currentHead   byte
	status        [4]byte

	seekCompleted [2]bool
	statusChanged [2]bool

	phase            fdcPhase
	commandBytes     [100]byte
	commandByteCount int
	execBytes        [1024]byte
	execByteCount    int
	execIndex        int
	resultBytes      [100]byte
	resultByteCount  int
	resultIndex      int

	stepReadTime   byte
	headLoadTime   byte
	headUnloadTime byte
	nonDmaMode     byte

	readBuffer      [readBufferSize]byte
	readBufferIndex int
}

func NewFDC() *FDC {
	f := &FDC{}
	f.Init()
	return f
}

func (f *FDC) Init() {
	f.Reset()
	f.drives[0].Init()
	f.drives[1].Init()
}

func (f *FDC) Reset() {
	f.mainStatus = statusRequestMaster
	f.data = 0
	f.setDataDirection(fdcDataIn)
	f.motor = false
	f.currentDrive = 0
	f.currentHead = 0
	f.status = [4]byte{}
	f.seekCompleted = [2]bool{}
	f.statusChanged = [2]bool{true, true}
	f.setPhase(phCommand)
	f.commandBytes = [100]byte{}
	f.commandByteCount = 0
	f.execBytes = [1024]byte{}
	f.execByteCount = 0
	f.execIndex = 0
	f.resultBytes = [100]byte{}
	f.resultByteCount = 0
	f.resultIndex = 0
	f.stepReadTime, f.headLoadTime, f.headUnloadTime, f.nonDmaMode = 0, 0, 0, 0
	f.readBuffer = [readBufferSize]byte{}
	f.readBufferIndex = 0
	f.readTimeout = 0
}

func (f *FDC) Read(addr uint16) byte {
	bit0 := addr&0x01 != 0
	bit8 := addr&0x100 != 0
	if !bit8 {
		return 0
	}
	if bit0 {
		return f.getData()
	}
	return f.getStatus()
}

func (f *FDC) setMotor(on bool) {
	f.motor = on
	f.statusChanged[0] = true
	f.statusChanged[1] = true
}

func (f *FDC) Write(addr uint16, b byte) {
	switch addr & 0x0101 {
	case 0x0000:
		f.setMotor(b&0x01 != 0)
	case 0x0101:
		f.setData(b)
	}
}

func (f *FDC) commandLength(cmd byte) byte {
	return fdcCommandLengths[cmd&0x1F]
}

func (f *FDC) executeCommand() {
	f.setPhase(phExecute)
	switch f.commandBytes[0] & 0x1F {
	case cmdSpecify:
		f.cmdSpecify()
	case cmdSenseDriveStatus:
		f.cmdSenseDriveStatus()
	case cmdRecalibrate:
		f.cmdRecalibrate()
	case cmdSenseInterruptStatus:
		f.cmdSenseInterruptStatus()
	case cmdSeek:
		f.cmdSeek()
	case cmdReadTrack:
		f.setDataDirection(fdcDataOut)
	case cmdWriteData:
		f.cmdWriteData()
	case cmdReadData:
		f.cmdReadData()
	case cmdWriteDeletedData:
		f.setDataDirection(fdcDataIn)
	case cmdReadId:
		f.cmdReadId()
	case cmdReadDeletedData:
		f.setDataDirection(fdcDataOut)
	case cmdFormatTrack:
		f.setDataDirection(fdcDataIn)
	case cmdScanLow, cmdScanLowOrEqual, cmdScanHighOrEqual:
		f.setDataDirection(fdcDataIn)
	}
	f.commandByteCount = 0
}

func (f *FDC) setData(b byte) {
	switch f.phase {
	case phCommand:
		f.commandBytes[f.commandByteCount] = b
		f.commandByteCount++
		if byte(f.commandByteCount) == f.commandLength(f.commandBytes[0]) {
			f.executeCommand()
		}
	case phExecute:
		f.execBytes[f.execIndex] = b
		f.execIndex++
		if f.execIndex >= f.execByteCount {
			if f.commandBytes[0]&0x1F == cmdWriteData {
				f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = f.status[0], f.status[1], f.status[2]
				f.currentFDD().WriteData(
					f.commandBytes[2], f.commandBytes[3], f.commandBytes[4], f.commandBytes[5],
					0, 0, byte(f.execByteCount), f.execBytes[:f.execByteCount], f.execByteCount)
			}
			f.execIndex = 0
			f.execByteCount = 0
			f.setPhase(phResult)
		}
	case phResult:
	}
}

func (f *FDC) getStatus() byte {
	ret := f.mainStatus
	switch f.phase {
	case phResult:
		ret |= statusTransferDirection | statusControllerBusy
	case phCommand:
		if f.commandByteCount > 0 {
			ret |= statusControllerBusy
		}
	}
	return ret
}

func (f *FDC) getData() byte {
	var ret byte
	switch f.phase {
	case phExecute:
		if b, ok := f.popReadBuffer(); ok {
			ret = b
		}
		if f.execIndex >= f.execByteCount && f.readBufferIndex == 0 {
			f.execIndex = 0
			f.execByteCount = 0
			f.setPhase(phResult)
			if f.commandBytes[0]&0x1F == cmdReadData {
				f.status[0] |= st0AbnormalTerm
				f.status[1] |= st1EndOfCylinder
				f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = f.status[0], f.status[1], f.status[2]
				f.setDataReady(true)
			}
		}
	case phResult:
		ret = f.resultBytes[f.resultIndex]
		f.resultIndex++
		if f.resultIndex >= f.resultByteCount {
			f.resultIndex = 0
			f.resultByteCount = 0
			f.setPhase(phCommand)
			f.setDataDirection(fdcDataIn)
		}
	}
	return ret
}

func (f *FDC) setDataDirection(dir byte) {
	f.dataDirection = dir
	if dir == fdcDataOut {
		f.mainStatus |= statusTransferDirection
	} else {
		f.mainStatus &^= statusTransferDirection
	}
}

func (f *FDC) setPhase(p fdcPhase) {
	f.phase = p
	switch p {
	case phCommand:
		f.setDataDirection(fdcDataIn)
		f.mainStatus &^= statusExecutionMode
		f.setDataReady(true)
	case phExecute:
		if f.nonDmaMode != 0 {
			f.mainStatus |= statusExecutionMode
		}
	case phResult:
		f.mainStatus &^= statusExecutionMode
	}
}

func (f *FDC) selectDrive(dsByte byte) {
	f.currentDrive = dsByte & 0x03
	f.currentHead = (dsByte & 0x04) >> 2
	f.status[0] = (f.status[0] & 0xF8) | (dsByte & 0x07)
	f.status[3] = (f.status[0] & 0xF8) | (dsByte & 0x07)
}

func (f *FDC) currentFDD() *FDD {
	return &f.drives[f.currentDrive&0x01]
}

func (f *FDC) pushReadBuffer(b byte) {
	if f.readBufferIndex >= readBufferSize {
		f.readBufferIndex = readBufferSize - 1
		copy(f.readBuffer[0:readBufferSize-1], f.readBuffer[1:readBufferSize])
		f.status[1] |= st1Overrun
	}
	f.readBuffer[f.readBufferIndex] = b
	f.readBufferIndex++
	f.setDataReady(true)
}

func (f *FDC) popReadBuffer() (byte, bool) {
	if f.readBufferIndex == 0 {
		return 0, false
	}
	b := f.readBuffer[0]
	copy(f.readBuffer[0:readBufferSize-1], f.readBuffer[1:readBufferSize])
	f.readBufferIndex--
	if f.readBufferIndex == 0 {
		f.setDataReady(false)
	}
	return b, true
}

func (f *FDC) setDataReady(ready bool) {
	if ready {
		f.mainStatus |= statusRequestMaster
	} else {
		f.mainStatus &^= statusRequestMaster
	}
}

// Tick streams the next sector byte into the read FIFO once per
// fdcReadTimeoutFM microseconds while a Read Data execute phase is active.
func (f *FDC) Tick() {
	if f.commandBytes[0]&0x1F != cmdReadData {
		return
	}
	f.readTimeout--
	if f.readTimeout > 0 {
		return
	}
	if f.execIndex >= f.execByteCount {
		return
	}

	drive := f.currentFDD()
	if drive.currentTrack < 0 || drive.currentTrack >= len(drive.disk.tracks) {
		f.readTimeout = fdcReadTimeoutFM
		return
	}
	tr := &drive.disk.tracks[drive.currentTrack]
	if drive.currentSector < 0 || drive.currentSector >= len(tr.sectors) {
		f.readTimeout = fdcReadTimeoutFM
		return
	}
	sec := &tr.sectors[drive.currentSector]
	if f.execIndex >= len(sec.data) {
		f.readTimeout = fdcReadTimeoutFM
		return
	}
	b := sec.data[f.execIndex]
	f.pushReadBuffer(b)
	f.execIndex++

	if f.execIndex == int(f.commandBytes[5])*0x100 {
		f.commandBytes[4]++
		if f.commandBytes[4] <= f.commandBytes[6] {
			if data, ok := drive.ReadData(f.commandBytes[2], f.commandBytes[3], f.commandBytes[4], f.commandBytes[5], f.commandBytes[6], f.commandBytes[7], f.commandBytes[8]); ok {
				_ = data
			}
			f.execIndex = 0
		} else {
			f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = f.status[0], f.status[1], f.status[2]
			f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] =
				f.commandBytes[2], f.commandBytes[3], f.commandBytes[4], f.commandBytes[5]
			oldTrack := f.resultBytes[3]
			drive.ReadDataResult(&f.resultBytes[3], &f.resultBytes[4], &f.resultBytes[5], &f.resultBytes[6])
			if f.resultBytes[3] != oldTrack {
				f.status[1] |= st1EndOfCylinder
			}
		}
	}

	f.readTimeout = fdcReadTimeoutFM
}

func (f *FDC) cmdReadData() {
	f.setDataDirection(fdcDataOut)
	f.setDataReady(false)
	f.selectDrive(f.commandBytes[1])

	cylinder, head, sector, numBytes := f.commandBytes[2], f.commandBytes[3], f.commandBytes[4], f.commandBytes[5]
	endOfTrack, gapLength, dataLength := f.commandBytes[6], f.commandBytes[7], f.commandBytes[8]

	drive := f.currentFDD()
	if !drive.hasDisk {
		f.setPhase(phResult)
		f.status[0] = st0AbnormalTerm | st0EquipmentCheck | st0NotReady
		f.resultByteCount = 7
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1], f.resultBytes[2] = 0, 0
		f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] = cylinder, head, sector, numBytes
		return
	}

	drive.currentTrack = int(cylinder)
	drive.currentSector = 0

	data, _ := drive.ReadData(cylinder, head, sector, numBytes, endOfTrack, gapLength, dataLength)

	f.execIndex = 0
	f.execByteCount = len(data)
	copy(f.execBytes[:], data)

	f.setPhase(phExecute)
	f.readTimeout = fdcReadTimeoutFM
	f.readBufferIndex = 0

	f.resultByteCount = 7
	f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = 0, 0, 0
	f.status = [4]byte{}

	f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] = cylinder, head, sector, numBytes
}

func (f *FDC) cmdWriteData() {
	f.setDataDirection(fdcDataIn)
	f.selectDrive(f.commandBytes[1])

	cylinder, head, sector, numBytes := f.commandBytes[2], f.commandBytes[3], f.commandBytes[4], f.commandBytes[5]

	if !f.currentFDD().hasDisk {
		f.setPhase(phResult)
		f.status[0] = st0AbnormalTerm | st0EquipmentCheck | st0NotReady
		f.resultByteCount = 7
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1], f.resultBytes[2] = 0, 0
		f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] = cylinder, head, sector, numBytes
		return
	}

	bufferSize := int(numBytes) * 0x0100
	f.execIndex = 0
	f.execByteCount = bufferSize

	f.setPhase(phExecute)

	f.resultByteCount = 7
	f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = 0, 0, 0
	f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] = cylinder, head, sector, numBytes
}

func (f *FDC) cmdReadId() {
	f.setDataDirection(fdcDataOut)
	f.selectDrive(f.commandBytes[1])
	f.status[2] = 0

	var c chrn
	if !f.currentFDD().ReadId(&c) {
		f.status[0] = (f.status[0] & 0x1F) | st0AbnormalTerm | st0NotReady
		f.status[1] = 0
	} else {
		f.status[0] = 0
		f.status[1] = 0
	}

	f.setPhase(phResult)
	f.resultByteCount = 7
	f.resultBytes[0], f.resultBytes[1], f.resultBytes[2] = f.status[0], f.status[1], f.status[2]
	f.resultBytes[3], f.resultBytes[4], f.resultBytes[5], f.resultBytes[6] = c.cylinder, c.head, c.record, c.num
}

func (f *FDC) cmdRecalibrate() {
	f.setDataDirection(fdcDataOut)
	f.selectDrive(f.commandBytes[1])
	f.commandBytes[2] = 0
	f.cmdSeek()
}

func (f *FDC) cmdSenseInterruptStatus() {
	f.setDataDirection(fdcDataOut)
	f.resultByteCount = 2

	if !f.motor || !f.currentFDD().IsReady() {
		f.status[0] |= st0NotReady
	} else {
		f.status[0] &^= st0NotReady
	}

	switch {
	case f.seekCompleted[0]:
		f.seekCompleted[0] = false
		f.statusChanged[0] = false
		f.status[0] |= st0SeekEnd | st0UnitSelect0
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1] = f.drives[0].GetTrack()
	case f.seekCompleted[1]:
		f.seekCompleted[1] = false
		f.statusChanged[1] = false
		f.status[0] |= st0SeekEnd | st0UnitSelect1
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1] = f.drives[1].GetTrack()
	case f.statusChanged[0]:
		f.statusChanged[0] = false
		f.status[0] = st0AbnormalReadyTerm | st0UnitSelect0
		if !f.motor || !f.drives[0].IsReady() {
			f.status[0] |= st0NotReady
		}
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1] = f.drives[0].GetTrack()
	case f.statusChanged[1]:
		f.statusChanged[1] = false
		f.status[0] = st0AbnormalReadyTerm | st0UnitSelect1
		if !f.motor || !f.drives[1].IsReady() {
			f.status[0] |= st0NotReady
		}
		f.resultBytes[0] = f.status[0]
		f.resultBytes[1] = f.drives[1].GetTrack()
	default:
		f.resultBytes[0] = st0InvalidCommand
		f.resultByteCount = 1
	}

	f.setPhase(phResult)
}

func (f *FDC) cmdSpecify() {
	f.setDataDirection(fdcDataOut)
	f.stepReadTime = (f.commandBytes[1] & 0xF0) >> 4
	f.headUnloadTime = f.commandBytes[1] & 0x0F
	f.headLoadTime = (f.commandBytes[2] & 0xFE) >> 1
	f.nonDmaMode = f.commandBytes[2] & 0x01
	f.setPhase(phCommand)
}

func (f *FDC) cmdSeek() {
	f.setDataDirection(fdcDataOut)
	f.selectDrive(f.commandBytes[1])

	f.status[0] &^= st0AbnormalReadyTerm
	switch {
	case !f.motor || !f.currentFDD().IsReady():
		f.status[0] |= st0AbnormalReadyTerm
	case !f.currentFDD().Seek(f.commandBytes[2]):
		f.status[0] |= st0AbnormalTerm
	default:
		f.status[0] |= st0NormalTerm
	}

	if f.currentDrive&0x01 == 0 {
		f.seekCompleted[0] = true
	} else {
		f.seekCompleted[1] = true
	}

	f.setPhase(phCommand)
}

func (f *FDC) cmdSenseDriveStatus() {
	f.setDataDirection(fdcDataOut)
	f.resultBytes[0] = f.status[3]
	f.resultByteCount = 1
	f.setPhase(phResult)
}

func (f *FDC) Write_(w *StreamWriter) {
	for _, d := range f.drives {
		w.WriteInt(d.currentSector)
		w.WriteInt(d.currentTrack)
		w.WriteBool(d.hasDisk)
		if d.hasDisk {
			w.WriteInt(len(d.disk.tracks))
			for _, tr := range d.disk.tracks {
				w.WriteU8(tr.id)
				w.WriteU8(tr.side)
				w.WriteU8(tr.sectorSize)
				w.WriteU8(tr.gap3Length)
				w.WriteU8(tr.fillerByte)
				w.WriteBool(tr.formatted)
				w.WriteU8(tr.dataRate)
				w.WriteU8(tr.recordingMode)
				w.WriteU8(tr.numSectors)
				w.WriteInt(len(tr.sectors))
				for _, sec := range tr.sectors {
					w.WriteU8(sec.track)
					w.WriteU8(sec.side)
					w.WriteU8(sec.id)
					w.WriteU8(sec.size)
					w.WriteU8(sec.fdcRegister1)
					w.WriteU8(sec.fdcRegister2)
					w.WriteVector(sec.data)
				}
			}
		}
	}

	w.WriteInt(int(f.readTimeout))
	w.WriteU8(f.mainStatus)
	w.WriteU8(f.data)
	w.WriteU8(f.dataDirection)
	w.WriteBool(f.motor)
	w.WriteU8(f.currentDrive)
	w.WriteU8(f.currentHead)
	w.WriteArray(f.status[:])
	w.WriteBool(f.seekCompleted[0])
	w.WriteBool(f.seekCompleted[1])
	w.WriteBool(f.statusChanged[0])
	w.WriteBool(f.statusChanged[1])
	w.WriteInt(int(f.phase))
	w.WriteArray(f.commandBytes[:])
	w.WriteInt(f.commandByteCount)
	w.WriteArray(f.execBytes[:])
	w.WriteInt(f.execByteCount)
	w.WriteInt(f.execIndex)
	w.WriteArray(f.resultBytes[:])
	w.WriteInt(f.resultByteCount)
	w.WriteInt(f.resultIndex)
	w.WriteU8(f.stepReadTime)
	w.WriteU8(f.headLoadTime)
	w.WriteU8(f.headUnloadTime)
	w.WriteU8(f.nonDmaMode)
	w.WriteArray(f.readBuffer[:])
	w.WriteInt(f.readBufferIndex)
}

func (f *FDC) Read_(r *StreamReader) error {
	for i := range f.drives {
		d := &f.drives[i]
		var err error
		if d.currentSector, err = r.ReadInt(); err != nil {
			return err
		}
		if d.currentTrack, err = r.ReadInt(); err != nil {
			return err
		}
		if d.hasDisk, err = r.ReadBool(); err != nil {
			return err
		}
		if d.hasDisk {
			n, err := r.ReadInt()
			if err != nil {
				return err
			}
			if err := r.need(n); err != nil {
				return err
			}
			d.disk.tracks = make([]Track, n)
			for ti := 0; ti < n; ti++ {
				tr := &d.disk.tracks[ti]
				if tr.id, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.side, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.sectorSize, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.gap3Length, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.fillerByte, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.formatted, err = r.ReadBool(); err != nil {
					return err
				}
				if tr.dataRate, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.recordingMode, err = r.ReadU8(); err != nil {
					return err
				}
				if tr.numSectors, err = r.ReadU8(); err != nil {
					return err
				}
				sn, err := r.ReadInt()
				if err != nil {
					return err
				}
				if err := r.need(sn); err != nil {
					return err
				}
				tr.sectors = make([]Sector, sn)
				for si := 0; si < sn; si++ {
					sec := &tr.sectors[si]
					if sec.track, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.side, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.id, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.size, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.fdcRegister1, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.fdcRegister2, err = r.ReadU8(); err != nil {
						return err
					}
					if sec.data, err = r.ReadVector(); err != nil {
						return err
					}
					sec.dataLength = len(sec.data)
				}
			}
		}
	}

	rt, err := r.ReadInt()
	if err != nil {
		return err
	}
	f.readTimeout = int8(rt)
	if f.mainStatus, err = r.ReadU8(); err != nil {
		return err
	}
	if f.data, err = r.ReadU8(); err != nil {
		return err
	}
	if f.dataDirection, err = r.ReadU8(); err != nil {
		return err
	}
	if f.motor, err = r.ReadBool(); err != nil {
		return err
	}
	if f.currentDrive, err = r.ReadU8(); err != nil {
		return err
	}
	if f.currentHead, err = r.ReadU8(); err != nil {
		return err
	}
	status, err := r.ReadArray(4)
	if err != nil {
		return err
	}
	copy(f.status[:], status)
	if f.seekCompleted[0], err = r.ReadBool(); err != nil {
		return err
	}
	if f.seekCompleted[1], err = r.ReadBool(); err != nil {
		return err
	}
	if f.statusChanged[0], err = r.ReadBool(); err != nil {
		return err
	}
	if f.statusChanged[1], err = r.ReadBool(); err != nil {
		return err
	}
	ph, err := r.ReadInt()
	if err != nil {
		return err
	}
	f.phase = fdcPhase(ph)
	cb, err := r.ReadArray(100)
	if err != nil {
		return err
	}
	copy(f.commandBytes[:], cb)
	if f.commandByteCount, err = r.ReadInt(); err != nil {
		return err
	}
	eb, err := r.ReadArray(1024)
	if err != nil {
		return err
	}
	copy(f.execBytes[:], eb)
	if f.execByteCount, err = r.ReadInt(); err != nil {
		return err
	}
	if f.execIndex, err = r.ReadInt(); err != nil {
		return err
	}
	rb, err := r.ReadArray(100)
	if err != nil {
		return err
	}
	copy(f.resultBytes[:], rb)
	if f.resultByteCount, err = r.ReadInt(); err != nil {
		return err
	}
	if f.resultIndex, err = r.ReadInt(); err != nil {
		return err
	}
	if f.stepReadTime, err = r.ReadU8(); err != nil {
		return err
	}
	if f.headLoadTime, err = r.ReadU8(); err != nil {
		return err
	}
	if f.headUnloadTime, err = r.ReadU8(); err != nil {
		return err
	}
	if f.nonDmaMode, err = r.ReadU8(); err != nil {
		return err
	}
	readBuf, err := r.ReadArray(readBufferSize)
	if err != nil {
		return err
	}
	copy(f.readBuffer[:], readBuf)
	f.readBufferIndex, err = r.ReadInt()
	return err
}

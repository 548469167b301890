package main

import "testing"

// buildV2Disk constructs a minimal "EXTENDED CPC DSK File" image with a
// single formatted track holding one sector at the given CHRN.
func buildV2Disk(track, head, sector, size byte, data []byte) []byte {
	const trackHeaderLen = 0x100
	buf := make([]byte, 0x100+trackHeaderLen+len(data))
	copy(buf, []byte("EXTENDED CPC DSK File\r\nDisk-Info\r\n"))
	buf[0x30] = 1 // one track
	buf[0x31] = 1 // one side
	buf[0x34] = 2 // track size entry (x0x100), unused beyond this disk

	off := 0x100
	copy(buf[off:], []byte("Track-Info\r\n"))
	buf[off+0x10] = track
	buf[off+0x11] = head
	buf[off+0x14] = size
	buf[off+0x15] = 1 // one sector
	buf[off+0x16] = 0x4E
	buf[off+0x17] = 0xE5

	infoOff := off + 0x18
	buf[infoOff+0] = track
	buf[infoOff+1] = head
	buf[infoOff+2] = sector
	buf[infoOff+3] = size
	dataLen := len(data)
	buf[infoOff+6] = byte(dataLen & 0xFF)
	buf[infoOff+7] = byte((dataLen >> 8) & 0xFF)

	copy(buf[off+0x100:], data)
	return buf
}

// buildV2DiskTracks constructs an unformatted-sector disk with one track
// per id, for exercising seek/sense commands that don't touch sector data.
func buildV2DiskTracks(ids []byte) []byte {
	const trackLen = 0x100
	buf := make([]byte, 0x100+trackLen*len(ids))
	copy(buf, []byte("EXTENDED CPC DSK File\r\nDisk-Info\r\n"))
	buf[0x30] = byte(len(ids))
	buf[0x31] = 1
	for i := range ids {
		buf[0x34+i] = 1
	}
	off := 0x100
	for _, id := range ids {
		copy(buf[off:], []byte("Track-Info\r\n"))
		buf[off+0x10] = id
		buf[off+0x15] = 0
		off += trackLen
	}
	return buf
}

func TestFDCLoadDiskV2RejectsUnknownSignature(t *testing.T) {
	if _, ok := LoadDisk([]byte("not a disk image at all............")); ok {
		t.Fatal("garbage buffer should not parse as a disk image")
	}
}

func TestFDCSpecifyCommand(t *testing.T) {
	f := NewFDC()
	f.Write(0x0101, 0x03) // command byte: Specify
	f.Write(0x0101, 0xA5) // step rate 0xA, head unload 0x5
	f.Write(0x0101, 0x09) // head load 0x04, non-DMA mode set

	if f.stepReadTime != 0x0A {
		t.Fatalf("stepReadTime = %#x, want 0xA", f.stepReadTime)
	}
	if f.headUnloadTime != 0x05 {
		t.Fatalf("headUnloadTime = %#x, want 0x5", f.headUnloadTime)
	}
	if f.headLoadTime != 0x04 {
		t.Fatalf("headLoadTime = %#x, want 0x4", f.headLoadTime)
	}
	if f.nonDmaMode != 1 {
		t.Fatal("non-DMA mode bit should be latched")
	}
	if f.phase != phCommand {
		t.Fatal("Specify should return directly to command phase")
	}
}

func TestFDCSeekThenSenseInterruptStatus(t *testing.T) {
	f := NewFDC()
	disk, ok := LoadDisk(buildV2DiskTracks([]byte{0, 1, 2}))
	if !ok {
		t.Fatal("failed to parse test disk image")
	}
	f.drives[0].Load(disk)
	f.Write(0x0000, 0x01) // motor on

	f.Write(0x0101, 0x0F) // Seek
	f.Write(0x0101, 0x00) // drive 0, head 0
	f.Write(0x0101, 0x02) // target cylinder 2

	f.Write(0x0101, cmdSenseInterruptStatus)
	st0 := f.Read(0x0101)
	track := f.Read(0x0101)

	if st0&st0SeekEnd == 0 {
		t.Fatalf("sense interrupt status st0 = %#x, want seek-end bit set", st0)
	}
	if track != 2 {
		t.Fatalf("sensed track = %d, want 2", track)
	}
}

func TestFDCReadIdReturnsCurrentSectorCHRN(t *testing.T) {
	f := NewFDC()
	data := []byte{0xAA}
	disk, ok := LoadDisk(buildV2Disk(3, 0, 0xC1, 0x02, data))
	if !ok {
		t.Fatal("failed to parse test disk image")
	}
	f.drives[0].Load(disk)
	f.drives[0].Seek(3)

	f.Write(0x0101, cmdReadId)
	f.Write(0x0101, 0x00)

	status0 := f.Read(0x0101)
	_ = f.Read(0x0101) // status1
	_ = f.Read(0x0101) // status2
	cyl := f.Read(0x0101)
	head := f.Read(0x0101)
	rec := f.Read(0x0101)
	num := f.Read(0x0101)

	if status0 != 0 {
		t.Fatalf("ReadId status0 = %#x, want 0 (normal termination)", status0)
	}
	if cyl != 3 || head != 0 || rec != 0xC1 || num != 0x02 {
		t.Fatalf("ReadId CHRN = (%d,%d,%#x,%#x), want (3,0,0xC1,0x02)", cyl, head, rec, num)
	}
}

// TestFDCReadDataStreamsSectorBytes exercises the Read Data command end to
// end: a 16-byte sector is streamed one byte every 27 ticks through the
// data register, in order.
func TestFDCReadDataStreamsSectorBytes(t *testing.T) {
	f := NewFDC()
	data := make([]byte, 16)
	for i := range data {
		data[i] = byte(i)
	}
	disk, ok := LoadDisk(buildV2Disk(0, 0, 0xC1, 0x10, data))
	if !ok {
		t.Fatal("failed to parse test disk image")
	}
	f.drives[0].Load(disk)
	f.Write(0x0000, 0x01) // motor on

	cmd := []byte{cmdReadData, 0x00, 0x00, 0x00, 0xC1, 0x10, 0x00, 0x00, 0x10}
	for _, b := range cmd {
		f.Write(0x0101, b)
	}

	for i := 0; i < len(data); i++ {
		for tick := 0; tick < fdcReadTimeoutFM; tick++ {
			f.Tick()
		}
		got := f.Read(0x0101)
		if got != byte(i) {
			t.Fatalf("sector byte %d = %#x, want %#x", i, got, i)
		}
	}
}

func TestFDCReadDataNoDiscReturnsNotReady(t *testing.T) {
	f := NewFDC()
	cmd := []byte{cmdReadData, 0x00, 0x00, 0x00, 0x01, 0x02, 0x00, 0x00, 0x02}
	for _, b := range cmd {
		f.Write(0x0101, b)
	}
	st0 := f.Read(0x0101)
	if st0&st0NotReady == 0 {
		t.Fatalf("Read Data with no disc loaded should report not-ready, got %#x", st0)
	}
}

// memory.go - 256K RAM banking, lower/upper ROM overlay
//
// Eight 16K RAM banks are addressed through a 4-slot configuration table
// exactly as the hardware's memory management gate decodes it. Reads go
// through whichever bank is bound to the addressed 16K slot, then through
// the ROM overlay if one is enabled for slot 0 or slot 3; writes and video
// fetches always land on the underlying RAM bank, never the ROM overlay.

package main

const (
	bankSize = 16 * 1024
	numBanks = 8
)

// ramConfigs[config][slot] gives the RAM bank index bound to each of the
// four 16K address slots for each of the gate array's 8 RAM configurations.
var ramConfigs = [8][4]int{
	{0, 1, 2, 3},
	{0, 1, 2, 7},
	{4, 5, 6, 7},
	{0, 3, 2, 7},
	{0, 4, 2, 3},
	{0, 5, 2, 3},
	{0, 6, 2, 3},
	{0, 7, 2, 3},
}

type Memory struct {
	banks [numBanks][bankSize]byte

	ramConfig int

	readRAM  [4]*[bankSize]byte
	writeRAM [4]*[bankSize]byte

	lowerROM       [bankSize]byte
	lowerROMEnable bool
	upperROMEnable bool
	selectedUpper  byte
	upperROM       [bankSize]byte
	roms           map[byte][]byte
}

func NewMemory() *Memory {
	m := &Memory{roms: make(map[byte][]byte)}
	m.Reset()
	return m
}

func (m *Memory) Reset() {
	for i := range m.banks {
		for j := range m.banks[i] {
			m.banks[i][j] = 0
		}
	}
	m.ramConfig = 0
	m.lowerROMEnable = false
	m.upperROMEnable = false
	m.selectedUpper = 0
	m.ConfigureRAM()
}

// ConfigureRAM rebinds the four read/write slots to the banks named by the
// active RAM configuration, then overlays the lower/upper ROM images onto
// the read-path slots 0 and 3 when enabled. The write path always targets
// RAM regardless of ROM overlay state.
func (m *Memory) ConfigureRAM() {
	cfg := ramConfigs[m.ramConfig&0x07]
	for slot, bank := range cfg {
		m.readRAM[slot] = &m.banks[bank]
		m.writeRAM[slot] = &m.banks[bank]
	}
	if m.lowerROMEnable {
		m.readRAM[0] = &m.lowerROM
	}
	if m.upperROMEnable {
		m.readRAM[3] = &m.upperROM
	}
}

// SetRAMConfig is called with the low 3 bits of a gate array port write
// whose top two data bits were 11 (RAM bank configuration).
func (m *Memory) SetRAMConfig(b byte) {
	m.ramConfig = int(b & 0x07)
	m.ConfigureRAM()
}

func (m *Memory) EnableLowerROM(enabled bool) {
	m.lowerROMEnable = enabled
	m.ConfigureRAM()
}

func (m *Memory) SetLowerROM(rom []byte) {
	copy(m.lowerROM[:], rom)
}

func (m *Memory) EnableUpperROM(enabled bool) {
	m.upperROMEnable = enabled
	m.ConfigureRAM()
}

func (m *Memory) AddUpperROM(slot byte, rom []byte) {
	img := make([]byte, bankSize)
	copy(img, rom)
	m.roms[slot] = img
}

func (m *Memory) RemoveUpperROM(slot byte) {
	delete(m.roms, slot)
}

// SelectROM is invoked on every write with address bit 13 clear; the low
// byte of the value selects which loaded upper ROM image is mapped in,
// falling back to ROM slot 0 if the requested slot was never loaded.
func (m *Memory) SelectROM(slot byte) {
	m.selectedUpper = slot
	if img, ok := m.roms[slot]; ok {
		copy(m.upperROM[:], img)
	} else if img, ok := m.roms[0]; ok {
		copy(m.upperROM[:], img)
	}
}

func (m *Memory) Read(addr uint16) byte {
	slot := addr >> 14
	return m.readRAM[slot][addr&(bankSize-1)]
}

func (m *Memory) Write(addr uint16, b byte) {
	slot := addr >> 14
	m.writeRAM[slot][addr&(bankSize-1)] = b
}

// VideoRead always goes through RAM, bypassing any ROM overlay, since the
// gate array's video fetch path reads the banks directly.
func (m *Memory) VideoRead(addr uint16) byte {
	slot := addr >> 14
	bank := ramConfigs[m.ramConfig&0x07][slot]
	return m.banks[bank][addr&(bankSize-1)]
}

func (m *Memory) Write_(w *StreamWriter) {
	for i := range m.banks {
		w.WriteArray(m.banks[i][:])
	}
	w.WriteInt(m.ramConfig)
	w.WriteBool(m.lowerROMEnable)
	w.WriteBool(m.upperROMEnable)
	w.WriteU8(m.selectedUpper)
	w.WriteArray(m.lowerROM[:])
	romMap := make(map[byte][]byte, len(m.roms))
	for k, v := range m.roms {
		romMap[k] = v
	}
	w.WriteMap(romMap)
}

func (m *Memory) Read_(r *StreamReader) error {
	for i := range m.banks {
		b, err := r.ReadArray(bankSize)
		if err != nil {
			return err
		}
		copy(m.banks[i][:], b)
	}
	cfg, err := r.ReadInt()
	if err != nil {
		return err
	}
	m.ramConfig = cfg
	if m.lowerROMEnable, err = r.ReadBool(); err != nil {
		return err
	}
	if m.upperROMEnable, err = r.ReadBool(); err != nil {
		return err
	}
	if m.selectedUpper, err = r.ReadU8(); err != nil {
		return err
	}
	lo, err := r.ReadArray(bankSize)
	if err != nil {
		return err
	}
	copy(m.lowerROM[:], lo)
	roms, err := r.ReadMap()
	if err != nil {
		return err
	}
	m.roms = roms

	// Belt-and-braces: rebind the bank pointers, then re-run ROM selection
	// so the upper ROM image held by selectedUpper is copied back in, the
	// same two-step sequence the original loader performs.
	m.ConfigureRAM()
	m.SelectROM(m.selectedUpper)
	return nil
}

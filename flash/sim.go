package flash

// MemDevice is an in-memory Device used by tests and by the host-side
// flashtool. It enforces the same alignment rules a real board would. Every
// sector counts as erased from creation on and Program never clears that
// state, so a sector may be programmed again without a re-erase.
type MemDevice struct {
	buf    []byte
	erased []bool // one entry per sector; set by NewMemDevice and Erase, never cleared
}

// NewMemDevice returns a MemDevice of the given size, pre-seeded with fill
// (typically 0xFF, matching an erased NOR/NAND part) and marked erased.
func NewMemDevice(size uint32, fill byte) *MemDevice {
	buf := make([]byte, size)
	for i := range buf {
		buf[i] = fill
	}
	erased := make([]bool, size/SectorSize)
	for i := range erased {
		erased[i] = true
	}
	return &MemDevice{buf: buf, erased: erased}
}

func (d *MemDevice) sector(addr uint32) uint32 { return addr / SectorSize }

func (d *MemDevice) Erase(addr, length uint32) error {
	if addr%SectorSize != 0 || length%SectorSize != 0 {
		return ErrNotAligned
	}
	if addr+length > uint32(len(d.buf)) {
		return ErrHardware
	}
	for i := addr; i < addr+length; i++ {
		d.buf[i] = 0xFF
	}
	for s := d.sector(addr); s < d.sector(addr+length); s++ {
		d.erased[s] = true
	}
	return nil
}

func (d *MemDevice) Program(addr uint32, src []byte) error {
	if addr%Align != 0 || len(src)%Align != 0 {
		return ErrNotAligned
	}
	if addr+uint32(len(src)) > uint32(len(d.buf)) {
		return ErrHardware
	}
	if !d.erased[d.sector(addr)] {
		return ErrHardware
	}
	copy(d.buf[addr:], src)
	// Programming does not clear the sector's erased state: on real NOR
	// flash a second program without a re-erase only clears bits (AND-only
	// writes), which MemDevice does not model — further programs simply
	// overwrite the bytes.
	return nil
}

func (d *MemDevice) Read(addr uint32, dst []byte) error {
	if addr+uint32(len(dst)) > uint32(len(d.buf)) {
		return ErrHardware
	}
	copy(dst, d.buf[addr:])
	return nil
}

// Bytes exposes the raw backing array for assertions in tests.
func (d *MemDevice) Bytes() []byte { return d.buf }

// Len returns the device's total size.
func (d *MemDevice) Len() uint32 { return uint32(len(d.buf)) }

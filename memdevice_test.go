package fat

// memDevice is an in-memory BlockDevice: a flat byte slice addressed by
// sector, with a fixed sector size and an optional read-only flag to
// exercise ErrReadOnly.
type memDevice struct {
	sectorSize int
	data       []byte
	readOnly   bool
}

func newMemDevice(sectorSize, sectorCount int) *memDevice {
	return &memDevice{sectorSize: sectorSize, data: make([]byte, sectorSize*sectorCount)}
}

func (m *memDevice) ReadSectors(lbaStart uint32, count int, dst []byte) error {
	off := int(lbaStart) * m.sectorSize
	n := count * m.sectorSize
	copy(dst[:n], m.data[off:off+n])
	return nil
}

func (m *memDevice) WriteSectors(lbaStart uint32, count int, src []byte) error {
	if m.readOnly {
		return ErrDeviceReadOnly
	}
	off := int(lbaStart) * m.sectorSize
	n := count * m.sectorSize
	copy(m.data[off:off+n], src[:n])
	return nil
}

package fat

// BlockDevice is the capability set the driver requires from its backing
// storage: sector-addressed reads and writes. The driver never assumes a
// file, memory, or any particular backing -- only that reads and writes are
// sector granular and synchronous.
type BlockDevice interface {
	// ReadSectors reads count sectors starting at lba into dst.
	// len(dst) must equal count*sectorSize.
	ReadSectors(lba uint32, count int, dst []byte) error
	// WriteSectors writes count sectors starting at lba from src.
	// len(src) must equal count*sectorSize.
	WriteSectors(lba uint32, count int, src []byte) error
}

// lba is a logical block address: a sector index on the device.
type lba uint32

// readSectors reads a run of sectors through the volume's device handle,
// translating I/O failures into the core's error taxonomy.
func readSectors(dev BlockDevice, start lba, count int, dst []byte) FSError {
	return deviceError(dev.ReadSectors(uint32(start), count, dst))
}

func writeSectors(dev BlockDevice, start lba, count int, src []byte) FSError {
	return deviceError(dev.WriteSectors(uint32(start), count, src))
}

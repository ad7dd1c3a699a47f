package fat

import "time"

// clusterSizeRule maps a volume size threshold (in bytes) to the sectors-
// per-cluster value Format should pick when the caller doesn't specify
// one. Thresholds are GiB-scaled (1<<30), not the 1024*1024 ("MiB-sized
// GiB") arithmetic error that appears in some FAT formatting tools --
// with this first-match lookup, MiB-scaled rows would sit below the
// earlier 256/260 MiB rows and never match, so every volume above those
// sizes would get the largest cluster size.
type clusterSizeRule struct {
	maxBytes   uint64
	secPerClus uint8
}

var fat16ClusterTable = []clusterSizeRule{
	{16 << 20, 1},
	{128 << 20, 4},
	{256 << 20, 8},
	{8 << 30, 16},
	{16 << 30, 32},
	{1 << 63, 64},
}

var fat32ClusterTable = []clusterSizeRule{
	{260 << 20, 1}, // below this a FAT32 volume isn't legal; callers should pick FAT16
	{8 << 30, 8},
	{16 << 30, 16},
	{32 << 30, 32},
	{1 << 63, 64},
}

func pickSectorsPerCluster(totalBytes uint64, variant Variant) uint8 {
	table := fat16ClusterTable
	if variant == VariantFAT32 {
		table = fat32ClusterTable
	}
	for _, rule := range table {
		if totalBytes <= rule.maxBytes {
			return rule.secPerClus
		}
	}
	return table[len(table)-1].secPerClus
}

// FormatParams configures Format (§4.6). A zero value picks every
// parameter automatically from TotalSectors and BytesPerSector.
type FormatParams struct {
	TotalSectors      uint32
	BytesPerSector    uint16
	SectorsPerCluster uint8   // 0 = auto-select
	Variant           Variant // VariantUnknown = auto-classify
	VolumeLabel       string
	OEMName           string
}

// resolvedFormatParams is the fully computed, internally consistent set
// of geometry values Format writes to disk.
type resolvedFormatParams struct {
	bytesPerSector  uint16
	secPerClus      uint8
	reservedSectors uint16
	numFATs         uint8
	rootEntryCount  uint16
	fatSizeSectors  uint32
	totalSectors    uint32
	variant         Variant
	rootCluster     uint32
	fsInfoSector    uint16
}

// calculateFormatParams runs the fixed-point solver for FAT size: FAT
// size depends on cluster count, which depends on FAT size (since the FAT
// region itself consumes sectors), so the two are solved by iterating to
// convergence, re-classifying the variant each pass, exactly mirroring
// the approach in original FAT formatting tools (§4.6).
func calculateFormatParams(p FormatParams) (resolvedFormatParams, FSError) {
	if p.TotalSectors == 0 {
		return resolvedFormatParams{}, ErrInvalidParam
	}
	bps := p.BytesPerSector
	if bps == 0 {
		bps = 512
	}
	if bps < 512 || bps > 4096 || bps&(bps-1) != 0 {
		return resolvedFormatParams{}, ErrInvalidParam
	}

	totalBytes := uint64(p.TotalSectors) * uint64(bps)
	variant := p.Variant
	if variant == VariantUnknown {
		if totalBytes < 260<<20 {
			variant = VariantFAT16
		} else {
			variant = VariantFAT32
		}
	}

	secPerClus := p.SectorsPerCluster
	if secPerClus == 0 {
		secPerClus = pickSectorsPerCluster(totalBytes, variant)
	}

	var r resolvedFormatParams
	r.bytesPerSector = bps
	r.secPerClus = secPerClus
	r.numFATs = 2
	r.totalSectors = p.TotalSectors
	r.variant = variant

	if variant == VariantFAT32 {
		r.reservedSectors = 32
		r.rootEntryCount = 0
		r.rootCluster = 2
		r.fsInfoSector = 1
	} else {
		r.reservedSectors = 1
		r.rootEntryCount = 512
	}

	rootDirSectors := (uint32(r.rootEntryCount)*sizeDirEntry + uint32(bps) - 1) / uint32(bps)

	fatSize := uint32(1)
	for i := 0; i < 10; i++ {
		nonData := uint32(r.reservedSectors) + uint32(r.numFATs)*fatSize + rootDirSectors
		if r.totalSectors < nonData {
			return resolvedFormatParams{}, ErrInvalidParam
		}
		dataSectors := r.totalSectors - nonData
		totalClusters := dataSectors / uint32(secPerClus)

		reclassified := classify(totalClusters)
		if reclassified != variant {
			variant = reclassified
			if variant == VariantFAT32 {
				r.reservedSectors = 32
				r.rootEntryCount = 0
				r.rootCluster = 2
				r.fsInfoSector = 1
			} else {
				r.reservedSectors = 1
				r.rootEntryCount = 512
				r.rootCluster = 0
				r.fsInfoSector = 0
			}
			rootDirSectors = (uint32(r.rootEntryCount)*sizeDirEntry + uint32(bps) - 1) / uint32(bps)
		}
		r.variant = variant

		var entBytes uint32
		switch variant {
		case VariantFAT12:
			entBytes = 0 // computed below via nFatEnt*1.5, rounded
		case VariantFAT16:
			entBytes = 2
		default:
			entBytes = 4
		}
		nFatEnt := totalClusters + 2
		var fatBytes uint32
		if variant == VariantFAT12 {
			fatBytes = (nFatEnt*3 + 1) / 2
		} else {
			fatBytes = nFatEnt * entBytes
		}
		newFatSize := (fatBytes + uint32(bps) - 1) / uint32(bps)
		if newFatSize == fatSize {
			fatSize = newFatSize
			break
		}
		fatSize = newFatSize
	}
	r.fatSizeSectors = fatSize

	nonData := uint32(r.reservedSectors) + uint32(r.numFATs)*fatSize + rootDirSectors
	if r.totalSectors < nonData {
		return resolvedFormatParams{}, ErrInvalidParam
	}
	totalClusters := (r.totalSectors - nonData) / uint32(secPerClus)
	if classify(totalClusters) != r.variant {
		return resolvedFormatParams{}, ErrInvalidBootSector
	}

	return r, ErrOK
}

// writeBootSector encodes the resolved parameters into a 512-byte boot
// sector buffer, including the trailing 0xAA55 signature (§4.6, §6.2).
func writeBootSector(buf []byte, r resolvedFormatParams, oemName, volumeLabel string) {
	for i := range buf {
		buf[i] = 0
	}
	buf[bsJmpBoot] = 0xEB
	buf[bsJmpBoot+1] = 0x3C
	buf[bsJmpBoot+2] = 0x90

	oem := []byte("FATDRV  ")
	if oemName != "" {
		oem = encodeOEMField(oemName, 8)
	}
	copy(buf[bsOEMName:], oem)

	putLE16(buf[bpbBytsPerSec:], r.bytesPerSector)
	buf[bpbSecPerClus] = r.secPerClus
	putLE16(buf[bpbRsvdSecCnt:], r.reservedSectors)
	buf[bpbNumFATs] = r.numFATs
	putLE16(buf[bpbRootEntCnt:], r.rootEntryCount)
	buf[bpbMedia] = 0xF8

	if r.totalSectors <= 0xFFFF {
		putLE16(buf[bpbTotSec16:], uint16(r.totalSectors))
	} else {
		putLE32(buf[bpbTotSec32:], r.totalSectors)
	}

	label11 := resolveVolumeLabel(volumeLabel)
	volID := uint32(time.Now().Unix())

	if r.variant == VariantFAT32 {
		putLE32(buf[bpbFATSz32:], r.fatSizeSectors)
		putLE32(buf[bpbRootClus32:], r.rootCluster)
		putLE16(buf[bpbFSInfo32:], r.fsInfoSector)
		buf[bsDrvNum32] = 0x80
		buf[bsBootSig32] = 0x29
		putLE32(buf[bsVolID32:], volID)
		copy(buf[bsVolLab32:], encodeOEMField(label11, 11))
		copy(buf[bsFilSysType32:], padASCII("FAT32", 8))
	} else {
		putLE16(buf[bpbFATSz16:], uint16(r.fatSizeSectors))
		buf[bsDrvNum] = 0x80
		buf[bsBootSig] = 0x29
		putLE32(buf[bsVolID:], volID)
		copy(buf[bsVolLab:], encodeOEMField(label11, 11))
		label := "FAT16   "
		if r.variant == VariantFAT12 {
			label = "FAT12   "
		}
		copy(buf[bsFilSysType:], padASCII(label, 8))
	}

	putLE16(buf[bs55AASig:], bootSectorSignature)
}

// resolveVolumeLabel applies the same "NO NAME" default the boot sector
// and the root directory's volume-ID entry must agree on.
func resolveVolumeLabel(label string) string {
	if label == "" {
		return "NO NAME"
	}
	return label
}

func padASCII(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	copy(out, s)
	return out
}

// volumeIDEntry builds the 32-byte VOLUME_ID directory entry every fresh
// root directory carries: the padded label, the VOLUME_ID attribute, and
// the current wall-clock time in both the creation and write timestamp
// fields (§4.6, original_source/src/fat_format.c's
// fat_initialize_root_directory).
func volumeIDEntry(label string) []byte {
	ent := make([]byte, sizeDirEntry)
	copy(ent[dirNameOff:], encodeOEMField(label, 11))
	ent[dirAttrOff] = amVolumeID
	date, tm := encodeDateTime(nowDateTime())
	putLE16(ent[dirCrtDateOff:], date)
	putLE16(ent[dirCrtTimeOff:], tm)
	putLE16(ent[dirWrtDateOff:], date)
	putLE16(ent[dirWrtTimeOff:], tm)
	return ent
}

func nowDateTime() DateTime {
	t := time.Now()
	return DateTime{
		Year: t.Year(), Month: int(t.Month()), Day: t.Day(),
		Hour: t.Hour(), Minute: t.Minute(), Second: t.Second(),
	}
}

// Format writes a fresh FAT filesystem to dev: boot sector, FSInfo sector
// (FAT32 only), zeroed FAT tables (with the two reserved entries and, for
// FAT32, the root directory's end-of-chain marker pre-written), and a root
// directory containing a single VOLUME_ID entry (§4.6).
func Format(dev BlockDevice, p FormatParams) FSError {
	r, fe := calculateFormatParams(p)
	if fe != ErrOK {
		return fe
	}
	label := resolveVolumeLabel(p.VolumeLabel)

	boot := make([]byte, r.bytesPerSector)
	writeBootSector(boot, r, p.OEMName, label)
	if fe := writeSectors(dev, 0, 1, boot); fe != ErrOK {
		return fe
	}

	if r.variant == VariantFAT32 {
		fsinfo := make([]byte, r.bytesPerSector)
		rootDirSectors := uint32(0)
		totalClusters := (r.totalSectors - uint32(r.reservedSectors) - uint32(r.numFATs)*r.fatSizeSectors - rootDirSectors) / uint32(r.secPerClus)
		encodeFSInfo(fsinfo, totalClusters-1, 3) // cluster 2 consumed by root
		if fe := writeSectors(dev, lba(r.fsInfoSector), 1, fsinfo); fe != ErrOK {
			return fe
		}
	}

	fatBuf := make([]byte, r.fatSizeSectors*uint32(r.bytesPerSector))
	writeInitialFAT(fatBuf, r)
	for i := uint8(0); i < r.numFATs; i++ {
		start := lba(r.reservedSectors) + lba(i)*lba(r.fatSizeSectors)
		if fe := writeSectors(dev, start, int(r.fatSizeSectors), fatBuf); fe != ErrOK {
			return fe
		}
	}

	rootDirSectors := (uint32(r.rootEntryCount)*sizeDirEntry + uint32(r.bytesPerSector) - 1) / uint32(r.bytesPerSector)
	fatBegin := lba(r.reservedSectors)
	dataBegin := fatBegin + lba(uint32(r.numFATs)*r.fatSizeSectors) + lba(rootDirSectors)

	var rootLBA lba
	var rootSectors uint32
	if r.variant == VariantFAT32 {
		rootLBA = dataBegin // cluster 2 is the first data cluster
		rootSectors = uint32(r.secPerClus)
	} else {
		rootLBA = fatBegin + lba(uint32(r.numFATs)*r.fatSizeSectors)
		rootSectors = rootDirSectors
	}

	first := make([]byte, r.bytesPerSector)
	copy(first[0:sizeDirEntry], volumeIDEntry(label))
	if fe := writeSectors(dev, rootLBA, 1, first); fe != ErrOK {
		return fe
	}
	if rootSectors > 1 {
		zero := make([]byte, (rootSectors-1)*uint32(r.bytesPerSector))
		return writeSectors(dev, rootLBA+1, int(rootSectors-1), zero)
	}
	return ErrOK
}

// writeInitialFAT sets the two reserved entries (media descriptor + EOC)
// that every fresh FAT table must carry, and for FAT32 marks cluster 2
// (the root directory) end-of-chain.
func writeInitialFAT(buf []byte, r resolvedFormatParams) {
	switch r.variant {
	case VariantFAT12:
		buf[0], buf[1], buf[2] = 0xF8, 0xFF, 0xFF
	case VariantFAT16:
		putLE16(buf[0:], 0xFFF8)
		putLE16(buf[2:], 0xFFFF)
	case VariantFAT32:
		putLE32(buf[0:], 0x0FFFFFF8)
		putLE32(buf[4:], 0x0FFFFFFF)
		putLE32(buf[8:], 0x0FFFFFFF) // cluster 2 (root) is end-of-chain
	}
}

package fat

import "time"

// clusterLBA converts a cluster number to its first sector, per §3.
func (v *Volume) clusterLBA(n uint32) lba {
	return v.dataBegin + lba(n-clusterFirst)*lba(v.sectorsPerClust)
}

// dirRegion is a stream of sectors backing one directory: either the
// fixed root region (FAT12/16) or a cluster chain (FAT32 root, and every
// subdirectory regardless of variant). Advancing past the last sector of
// a cluster chain follows the FAT to the next cluster; advancing past
// the fixed root region simply ends.
type dirRegion struct {
	v       *Volume
	fixed   bool // true for the FAT12/16 fixed root region
	sector  lba  // current sector
	remain  uint32 // sectors left in the fixed region (fixed==true only)
	cluster uint32 // current cluster (fixed==false only)
	clusOff uint32 // sector offset within the current cluster
}

func (v *Volume) rootRegion() dirRegion {
	if v.variant == VariantFAT32 {
		return dirRegion{v: v, cluster: v.rootCluster, sector: v.clusterLBA(v.rootCluster)}
	}
	return dirRegion{v: v, fixed: true, sector: v.rootBegin, remain: v.rootDirSectors}
}

func (v *Volume) chainRegion(firstCluster uint32) dirRegion {
	return dirRegion{v: v, cluster: firstCluster, sector: v.clusterLBA(firstCluster)}
}

// next advances the region by one sector, reading it into buf. Returns
// ErrEOF once the region is exhausted.
func (r *dirRegion) next(buf []byte) FSError {
	if r.fixed {
		if r.remain == 0 {
			return ErrEOF
		}
		if fe := readSectors(r.v.dev, r.sector, 1, buf); fe != ErrOK {
			return fe
		}
		r.sector++
		r.remain--
		return ErrOK
	}

	if r.cluster == 0 {
		return ErrEOF
	}
	if fe := readSectors(r.v.dev, r.sector, 1, buf); fe != ErrOK {
		return fe
	}
	r.clusOff++
	if r.clusOff < uint32(r.v.sectorsPerClust) {
		r.sector++
		return ErrOK
	}
	next, fe := r.v.nextCluster(r.cluster)
	if fe != ErrOK {
		return fe
	}
	if r.v.isEOC(next) {
		r.cluster = 0
		return ErrOK // exhausted() now reports true; a further next() returns ErrEOF
	}
	r.cluster = next
	r.clusOff = 0
	r.sector = r.v.clusterLBA(next)
	return ErrOK
}

func (r *dirRegion) exhausted() bool {
	if r.fixed {
		return r.remain == 0
	}
	return r.cluster == 0
}

// DirEntry is one resolved directory entry, short name and (if present)
// reassembled long name combined (§4.4 / §3).
type DirEntry struct {
	Name      string // long name if present, else the decoded short name
	ShortName string
	Attr      byte
	Size      uint32
	Cluster   uint32
	ModTime   time.Time
	IsDir     bool
}

// Dir is an open directory iterator (§4.4, §5). It is bound to the
// Volume's mount generation and becomes invalid after Unmount.
type Dir struct {
	vol    *Volume
	genID  uint64
	region dirRegion
	sector []byte
	idx    int // next entry index within sector
	closed bool
}

// OpenDir begins iterating the directory whose first cluster is given;
// pass 0 to open the root directory. Per §5, the returned Dir must be
// closed with CloseDir before Unmount.
func (v *Volume) OpenDir(cluster uint32) (*Dir, FSError) {
	var region dirRegion
	if cluster == 0 {
		region = v.rootRegion()
	} else {
		if !v.validCluster(cluster) {
			return nil, ErrInvalidCluster
		}
		region = v.chainRegion(cluster)
	}
	d := &Dir{vol: v, genID: v.id, region: region, sector: make([]byte, v.bytesPerSector)}
	if fe := d.region.next(d.sector); fe != ErrOK && fe != ErrEOF {
		return nil, fe
	}
	return d, ErrOK
}

func (d *Dir) checkGeneration() FSError {
	if d.closed {
		return ErrInvalidParam
	}
	if d.genID != d.vol.id {
		return ErrInvalidParam
	}
	return ErrOK
}

// ReadDir returns the next live entry, skipping deleted slots, volume-ID
// entries, and the "." / ".." pseudo-entries; a never-used slot (first
// byte 0x00) ends the iteration with ErrEOF. It reassembles
// any preceding LFN slots, falling back silently to the short name on a
// checksum mismatch (§4.4).
func (d *Dir) ReadDir() (DirEntry, FSError) {
	if fe := d.checkGeneration(); fe != ErrOK {
		return DirEntry{}, fe
	}
	var pending []lfnSlot
	for {
		if d.idx >= len(d.sector)/sizeDirEntry {
			if d.region.exhausted() {
				return DirEntry{}, ErrEOF
			}
			if fe := d.region.next(d.sector); fe != ErrOK {
				return DirEntry{}, fe
			}
			d.idx = 0
		}
		ent := direntry(d.sector[d.idx*sizeDirEntry : (d.idx+1)*sizeDirEntry])
		d.idx++

		if ent.isFree() {
			return DirEntry{}, ErrEOF
		}
		if ent.isDeleted() {
			pending = pending[:0]
			continue
		}
		if ent.isLFN() {
			// Copy the slot: loading the next sector overwrites d.sector.
			pending = append(pending, lfnSlot(append([]byte(nil), ent...)))
			continue
		}
		if ent.isVolumeID() {
			pending = pending[:0]
			continue
		}
		name := shortNameToString(ent.shortName())
		if name == "." || name == ".." {
			pending = pending[:0]
			continue
		}
		if long, ok := reassembleLFN(pending, ent); ok {
			name = long
		}
		pending = pending[:0]
		dt := ent.modifiedAt()
		return DirEntry{
			Name:      name,
			ShortName: shortNameToString(ent.shortName()),
			Attr:      ent.attr(),
			Size:      ent.size(),
			Cluster:   ent.cluster(),
			ModTime:   time.Date(dt.Year, time.Month(dt.Month), dt.Day, dt.Hour, dt.Minute, dt.Second, 0, time.UTC),
			IsDir:     ent.isDir(),
		}, ErrOK
	}
}

// CloseDir invalidates the iterator. Subsequent ReadDir calls return
// ErrInvalidParam.
func (d *Dir) CloseDir() FSError {
	d.closed = true
	return ErrOK
}

// shortNameToString renders an 11-byte 8.3 field as "NAME.EXT", trimming
// trailing spaces and restoring a deleted-entry's aliased first byte
// (0x05 means a literal 0xE5, used by Shift-JIS names, §3).
func shortNameToString(raw [11]byte) string {
	if raw[0] == direntDeletedJP {
		raw[0] = 0xE5
	}
	base := trimSpaces(raw[0:8])
	ext := trimSpaces(raw[8:11])
	if ext == "" {
		return base
	}
	return base + "." + ext
}

func trimSpaces(b []byte) string {
	end := len(b)
	for end > 0 && b[end-1] == ' ' {
		end--
	}
	return string(b[:end])
}

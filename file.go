package fat

import (
	"strings"
)

// Access flags for OpenFile (§6.3).
const (
	RDONLY = 0x01
	WRONLY = 0x02
	RDWR   = 0x03
	CREATE = 0x04
	TRUNC  = 0x08
)

// Seek origins for File.Seek (§6.3).
const (
	SET = 0
	CUR = 1
	END = 2
)

// dirSlot locates one 32-byte directory entry on disk, so its size and
// first-cluster fields can be rewritten when a file is extended or closed.
type dirSlot struct {
	sector lba
	offset int
}

// File is an open regular file (§4.2, §5). It is bound to the Volume's
// mount generation; using it after Unmount returns ErrInvalidParam.
type File struct {
	vol     *Volume
	genID   uint64
	flags   int
	slot    dirSlot // location of this file's short directory entry
	first   uint32  // first cluster; 0 for an empty file
	current uint32  // cluster backing the current position
	clusOff uint32  // sector-within-cluster offset at current position's sector
	pos     int64
	size    uint32
	dirty   bool
	closed  bool
}

func (f *File) checkOpen() FSError {
	if f.closed || f.genID != f.vol.id {
		return ErrInvalidParam
	}
	return ErrOK
}

// OpenFile resolves path and opens it per the given access flags (§6.3).
// CREATE creates the file (and its short/long directory entries) if it
// does not exist; TRUNC, combined with WRONLY or RDWR, truncates an
// existing file to zero length.
func (v *Volume) OpenFile(path string, flags int) (*File, FSError) {
	r, fe := v.resolve(path)
	if fe != ErrOK {
		return nil, fe
	}
	if !r.found {
		if flags&CREATE == 0 {
			return nil, ErrNotFound
		}
		return v.createFile(path, flags)
	}
	if r.entry.IsDir {
		return nil, ErrIsADirectory
	}
	if flags&WRONLY != 0 && flags&TRUNC != 0 {
		if fe := v.truncateEntry(r); fe != ErrOK {
			return nil, fe
		}
		r.entry.Size = 0
		r.entry.Cluster = 0
	}
	slot, fe := v.locateSlot(r.parentCluster, r.entry)
	if fe != ErrOK {
		return nil, fe
	}
	return &File{
		vol: v, genID: v.id, flags: flags, slot: slot,
		first: r.entry.Cluster, current: r.entry.Cluster, size: r.entry.Size,
	}, ErrOK
}

// locateSlot re-finds the on-disk position of the short entry for name,
// since resolve() does not thread dirSlot through ReadDir.
func (v *Volume) locateSlot(parentCluster uint32, want DirEntry) (dirSlot, FSError) {
	region := v.rootRegionOrChain(parentCluster)
	buf := make([]byte, v.bytesPerSector)
	for {
		readSector := region.sector
		if fe := region.next(buf); fe != ErrOK {
			return dirSlot{}, fe
		}
		n := len(buf) / sizeDirEntry
		for i := 0; i < n; i++ {
			ent := direntry(buf[i*sizeDirEntry : (i+1)*sizeDirEntry])
			if ent.isFree() {
				return dirSlot{}, ErrNotFound
			}
			if ent.isDeleted() || ent.isLFN() || ent.isVolumeID() {
				continue
			}
			if ent.cluster() == want.Cluster && shortNameToString(ent.shortName()) == want.ShortName {
				return dirSlot{sector: readSector, offset: i * sizeDirEntry}, ErrOK
			}
		}
		if region.exhausted() {
			return dirSlot{}, ErrNotFound
		}
	}
}

func (v *Volume) rootRegionOrChain(cluster uint32) dirRegion {
	if cluster == 0 {
		return v.rootRegion()
	}
	return v.chainRegion(cluster)
}

// truncateEntry frees an existing file's cluster chain in place.
func (v *Volume) truncateEntry(r resolved) FSError {
	if r.entry.Cluster == 0 {
		return ErrOK
	}
	if fe := v.freeChain(r.entry.Cluster); fe != ErrOK {
		return fe
	}
	slot, fe := v.locateSlot(r.parentCluster, r.entry)
	if fe != ErrOK {
		return fe
	}
	return v.writeEntryFields(slot, 0, 0)
}

// writeEntryFields rewrites the size and first-cluster fields of the
// directory entry at slot.
func (v *Volume) writeEntryFields(slot dirSlot, size, cluster uint32) FSError {
	buf := make([]byte, v.bytesPerSector)
	if fe := readSectors(v.dev, slot.sector, 1, buf); fe != ErrOK {
		return fe
	}
	ent := direntry(buf[slot.offset : slot.offset+sizeDirEntry])
	ent.setSize(size)
	ent.setCluster(cluster)
	return writeSectors(v.dev, slot.sector, 1, buf)
}

// createFile builds the short (and, if needed, long) directory entries
// for a new empty file at path, grounded on §4.4/§4.5's register+alloc
// sequence.
func (v *Volume) createFile(path string, flags int) (*File, FSError) {
	parts := splitPath(path)
	if len(parts) == 0 {
		return nil, ErrInvalidParam
	}
	name := parts[len(parts)-1]
	var parentCluster uint32
	if len(parts) > 1 {
		r, fe := v.resolve(strings.Join(parts[:len(parts)-1], "/"))
		if fe != ErrOK {
			return nil, fe
		}
		if !r.found || !r.entry.IsDir {
			return nil, ErrNotFound
		}
		parentCluster = r.entry.Cluster
	}

	short, needLFN, fe := v.makeShortName(parentCluster, name)
	if fe != ErrOK {
		return nil, fe
	}

	var slots []lfnSlot
	if needLFN {
		slots = buildLFNSlots(name, shortNameChecksum(short))
	}
	total := len(slots) + 1
	locs, fe := v.allocDirSlots(parentCluster, total)
	if fe != ErrOK {
		return nil, fe
	}

	for i, s := range slots {
		if fe := v.writeRawSlot(locs[i], []byte(s)); fe != ErrOK {
			return nil, fe
		}
	}
	shortBuf := make(direntry, sizeDirEntry)
	copy(shortBuf[dirNameOff:], short[:])
	shortBuf[dirAttrOff] = amArchive
	if fe := v.writeRawSlot(locs[len(locs)-1], []byte(shortBuf)); fe != ErrOK {
		return nil, fe
	}

	return &File{vol: v, genID: v.id, flags: flags, slot: locs[len(locs)-1]}, ErrOK
}

func (v *Volume) writeRawSlot(slot dirSlot, entry []byte) FSError {
	buf := make([]byte, v.bytesPerSector)
	if fe := readSectors(v.dev, slot.sector, 1, buf); fe != ErrOK {
		return fe
	}
	copy(buf[slot.offset:slot.offset+sizeDirEntry], entry)
	return writeSectors(v.dev, slot.sector, 1, buf)
}

// allocDirSlots finds `count` consecutive free/deleted entries in the
// directory, extending its cluster chain with a fresh zeroed cluster if
// a cluster-backed directory runs out of room. A fixed FAT12/16 root
// directory that runs out returns ErrDiskFull (it cannot grow, §4.5).
func (v *Volume) allocDirSlots(parentCluster uint32, count int) ([]dirSlot, FSError) {
	region := v.rootRegionOrChain(parentCluster)
	buf := make([]byte, v.bytesPerSector)
	var run []dirSlot
	lastCluster := region.cluster // region.cluster before next() turns it into an exhaustion sentinel

	for {
		if region.cluster != 0 {
			lastCluster = region.cluster
		}
		sector := region.sector
		if fe := region.next(buf); fe != ErrOK {
			return nil, fe
		}
		n := len(buf) / sizeDirEntry
		for i := 0; i < n; i++ {
			ent := direntry(buf[i*sizeDirEntry : (i+1)*sizeDirEntry])
			if ent.isFree() || ent.isDeleted() {
				run = append(run, dirSlot{sector: sector, offset: i * sizeDirEntry})
				if len(run) == count {
					return run, ErrOK
				}
			} else {
				run = run[:0]
			}
		}
		if region.exhausted() {
			if region.fixed {
				return nil, ErrDiskFull
			}
			newClus, fe := v.extendChain(lastCluster)
			if fe != ErrOK {
				return nil, fe
			}
			if fe := v.zeroCluster(newClus); fe != ErrOK {
				return nil, fe
			}
			region.cluster = newClus
			lastCluster = newClus
			region.clusOff = 0
			region.sector = v.clusterLBA(newClus)
		}
	}
}

func (v *Volume) zeroCluster(cluster uint32) FSError {
	buf := make([]byte, int(v.sectorsPerClust)*int(v.bytesPerSector))
	return writeSectors(v.dev, v.clusterLBA(cluster), int(v.sectorsPerClust), buf)
}

// makeShortName derives an 8.3 name from name, uppercased and truncated,
// appending a numeric tail ("~1".."~9") on collision within parentCluster
// (§4.5). This is a simple first-nine-tail search rather than an
// exhaustive generator.
func (v *Volume) makeShortName(parentCluster uint32, name string) ([11]byte, bool, FSError) {
	base, ext, needLFN := split83(name)
	for n := 0; n < 10; n++ {
		candidate := base
		if n > 0 {
			tail := "~" + string(rune('0'+n))
			if len(candidate) > 8-len(tail) {
				candidate = candidate[:8-len(tail)]
			}
			candidate += tail
		}
		var raw [11]byte
		for i := range raw {
			raw[i] = ' '
		}
		copy(raw[0:8], candidate)
		copy(raw[8:11], ext)

		collide, fe := v.shortNameExists(parentCluster, raw)
		if fe != ErrOK {
			return [11]byte{}, false, fe
		}
		if !collide {
			return raw, needLFN || n > 0, ErrOK
		}
	}
	return [11]byte{}, false, ErrAlreadyExists
}

func (v *Volume) shortNameExists(parentCluster uint32, raw [11]byte) (bool, FSError) {
	d, fe := v.OpenDir(parentCluster)
	if fe != ErrOK {
		return false, fe
	}
	defer d.CloseDir()
	target := shortNameToString(raw)
	for {
		ent, fe := d.ReadDir()
		if fe == ErrEOF {
			return false, ErrOK
		}
		if fe != ErrOK {
			return false, fe
		}
		if strings.EqualFold(ent.ShortName, target) {
			return true, ErrOK
		}
	}
}

// split83 uppercases name and splits it into an 8-char base and 3-char
// extension, reporting whether anything had to be discarded (meaning an
// LFN entry is required to preserve the original name).
func split83(name string) (base, ext string, needLFN bool) {
	upper := strings.ToUpper(name)
	dot := strings.LastIndexByte(upper, '.')
	b, e := upper, ""
	if dot >= 0 {
		b, e = upper[:dot], upper[dot+1:]
	}
	if len(b) > 8 {
		b = b[:8]
		needLFN = true
	}
	if len(e) > 3 {
		e = e[:3]
		needLFN = true
	}
	if upper != name {
		needLFN = true
	}
	return b, e, needLFN
}

// Read copies up to len(buf) bytes starting at the file's current
// position into buf, following the cluster chain as needed (§4.2).
func (f *File) Read(buf []byte) (int, FSError) {
	if fe := f.checkOpen(); fe != ErrOK {
		return 0, fe
	}
	if f.flags&RDWR == WRONLY {
		return 0, ErrInvalidParam
	}
	if uint32(f.pos) >= f.size || f.first == 0 {
		return 0, ErrEOF
	}
	remaining := f.size - uint32(f.pos)
	if uint32(len(buf)) > remaining {
		buf = buf[:remaining]
	}
	v := f.vol
	clusterBytes := uint32(v.sectorsPerClust) * uint32(v.bytesPerSector)
	cluster := f.first
	skip := uint32(f.pos)
	for skip >= clusterBytes {
		next, fe := v.nextCluster(cluster)
		if fe != ErrOK {
			return 0, fe
		}
		cluster = next
		skip -= clusterBytes
	}

	sectorBuf := make([]byte, v.bytesPerSector)
	n := 0
	for n < len(buf) {
		sectorInClus := skip / uint32(v.bytesPerSector)
		offInSector := skip % uint32(v.bytesPerSector)
		if fe := readSectors(v.dev, v.clusterLBA(cluster)+lba(sectorInClus), 1, sectorBuf); fe != ErrOK {
			return n, fe
		}
		copied := copy(buf[n:], sectorBuf[offInSector:])
		n += copied
		skip += uint32(copied)
		if skip >= clusterBytes {
			next, fe := v.nextCluster(cluster)
			if fe != ErrOK && n < len(buf) {
				return n, fe
			}
			cluster = next
			skip -= clusterBytes
		}
	}
	f.pos += int64(n)
	return n, ErrOK
}

// Write copies buf into the file starting at its current position,
// extending the cluster chain and growing Size as needed (§4.2).
func (f *File) Write(buf []byte) (int, FSError) {
	if fe := f.checkOpen(); fe != ErrOK {
		return 0, fe
	}
	if f.flags&RDWR == RDONLY {
		return 0, ErrInvalidParam
	}
	v := f.vol
	clusterBytes := uint32(v.sectorsPerClust) * uint32(v.bytesPerSector)

	if f.first == 0 {
		first, fe := v.allocateCluster()
		if fe != ErrOK {
			return 0, fe
		}
		f.first = first
	}

	cluster := f.first
	pos := uint32(f.pos)
	skip := pos
	for skip >= clusterBytes {
		next, fe := v.nextCluster(cluster)
		if fe != ErrOK {
			return 0, fe
		}
		if v.isEOC(next) {
			next, fe = v.extendChain(cluster)
			if fe != ErrOK {
				return 0, fe
			}
		}
		cluster = next
		skip -= clusterBytes
	}

	sectorBuf := make([]byte, v.bytesPerSector)
	n := 0
	for n < len(buf) {
		sectorInClus := skip / uint32(v.bytesPerSector)
		offInSector := skip % uint32(v.bytesPerSector)
		lbaSec := v.clusterLBA(cluster) + lba(sectorInClus)
		if fe := readSectors(v.dev, lbaSec, 1, sectorBuf); fe != ErrOK {
			return n, fe
		}
		copied := copy(sectorBuf[offInSector:], buf[n:])
		if fe := writeSectors(v.dev, lbaSec, 1, sectorBuf); fe != ErrOK {
			return n, fe
		}
		n += copied
		skip += uint32(copied)
		if skip >= clusterBytes && n < len(buf) {
			entry, fe := v.nextCluster(cluster)
			if fe != ErrOK {
				return n, fe
			}
			if v.isEOC(entry) {
				entry, fe = v.extendChain(cluster)
				if fe != ErrOK {
					return n, fe
				}
			}
			cluster = entry
			skip -= clusterBytes
		}
	}
	f.pos += int64(n)
	if uint32(f.pos) > f.size {
		f.size = uint32(f.pos)
	}
	f.dirty = true
	return n, ErrOK
}

// Seek repositions the file's cursor per whence (§6.3). It does not
// itself extend the file; a subsequent Write beyond Size does.
func (f *File) Seek(offset int64, whence int) (int64, FSError) {
	if fe := f.checkOpen(); fe != ErrOK {
		return 0, fe
	}
	var base int64
	switch whence {
	case SET:
		base = 0
	case CUR:
		base = f.pos
	case END:
		base = int64(f.size)
	default:
		return 0, ErrInvalidParam
	}
	newPos := base + offset
	if newPos < 0 {
		return 0, ErrInvalidParam
	}
	f.pos = newPos
	return newPos, ErrOK
}

// CloseFile flushes the file's size/cluster fields to its directory
// entry and invalidates the handle (§4.2, §5).
func (f *File) CloseFile() FSError {
	if fe := f.checkOpen(); fe != ErrOK {
		return fe
	}
	f.closed = true
	if !f.dirty {
		return ErrOK
	}
	return f.vol.writeEntryFields(f.slot, f.size, f.first)
}

// Mkdir creates a new subdirectory at path, pre-populated with "." and
// ".." entries pointing at itself and its parent (§6.3).
func (v *Volume) Mkdir(path string) FSError {
	r, fe := v.resolve(path)
	if fe != ErrOK {
		return fe
	}
	if r.found {
		return ErrAlreadyExists
	}
	parts := splitPath(path)
	name := parts[len(parts)-1]
	parentCluster := r.parentCluster

	cluster, fe := v.allocateCluster()
	if fe != ErrOK {
		return fe
	}
	if fe := v.zeroCluster(cluster); fe != ErrOK {
		return fe
	}
	if fe := v.writeDotEntries(cluster, parentCluster); fe != ErrOK {
		return fe
	}

	short, needLFN, fe := v.makeShortName(parentCluster, name)
	if fe != ErrOK {
		return fe
	}
	var slots []lfnSlot
	if needLFN {
		slots = buildLFNSlots(name, shortNameChecksum(short))
	}
	locs, fe := v.allocDirSlots(parentCluster, len(slots)+1)
	if fe != ErrOK {
		return fe
	}
	for i, s := range slots {
		if fe := v.writeRawSlot(locs[i], []byte(s)); fe != ErrOK {
			return fe
		}
	}
	entry := make(direntry, sizeDirEntry)
	copy(entry[dirNameOff:], short[:])
	entry[dirAttrOff] = amDir
	entry.setCluster(cluster)
	return v.writeRawSlot(locs[len(locs)-1], []byte(entry))
}

func (v *Volume) writeDotEntries(selfCluster, parentCluster uint32) FSError {
	buf := make([]byte, v.bytesPerSector)
	if fe := readSectors(v.dev, v.clusterLBA(selfCluster), 1, buf); fe != ErrOK {
		return fe
	}
	dot := direntry(buf[0:sizeDirEntry])
	copy(dot[dirNameOff:], ".          ")
	dot[dirAttrOff] = amDir
	dot.setCluster(selfCluster)

	dotdot := direntry(buf[sizeDirEntry : 2*sizeDirEntry])
	copy(dotdot[dirNameOff:], "..         ")
	dotdot[dirAttrOff] = amDir
	dotdot.setCluster(parentCluster)

	return writeSectors(v.dev, v.clusterLBA(selfCluster), 1, buf)
}

// Unlink removes a file's directory entries and frees its cluster chain
// (§6.3). It refuses a directory; use Rmdir for those.
func (v *Volume) Unlink(path string) FSError {
	r, fe := v.resolve(path)
	if fe != ErrOK {
		return fe
	}
	if !r.found {
		return ErrNotFound
	}
	if r.entry.IsDir {
		return ErrIsADirectory
	}
	return v.removeEntry(r)
}

// Rmdir removes an empty subdirectory (§6.3). Non-empty directories
// (anything besides "." and "..") return ErrDirectoryNotEmpty.
func (v *Volume) Rmdir(path string) FSError {
	r, fe := v.resolve(path)
	if fe != ErrOK {
		return fe
	}
	if !r.found {
		return ErrNotFound
	}
	if !r.entry.IsDir {
		return ErrNotADirectory
	}
	empty, fe := v.dirIsEmpty(r.entry.Cluster)
	if fe != ErrOK {
		return fe
	}
	if !empty {
		return ErrDirectoryNotEmpty
	}
	return v.removeEntry(r)
}

func (v *Volume) dirIsEmpty(cluster uint32) (bool, FSError) {
	d, fe := v.OpenDir(cluster)
	if fe != ErrOK {
		return false, fe
	}
	defer d.CloseDir()
	for {
		_, fe := d.ReadDir()
		if fe == ErrEOF {
			return true, ErrOK
		}
		if fe != ErrOK {
			return false, fe
		}
		return false, ErrOK
	}
}

// removeEntry marks the short entry as deleted and frees the entry's
// cluster chain, if any. LFN slots that precede the short entry are left
// in place.
func (v *Volume) removeEntry(r resolved) FSError {
	if r.entry.Cluster != 0 {
		if fe := v.freeChain(r.entry.Cluster); fe != ErrOK {
			return fe
		}
	}
	slot, fe := v.locateSlot(r.parentCluster, r.entry)
	if fe != ErrOK {
		return fe
	}
	buf := make([]byte, v.bytesPerSector)
	if fe := readSectors(v.dev, slot.sector, 1, buf); fe != ErrOK {
		return fe
	}
	buf[slot.offset] = direntDeleted
	return writeSectors(v.dev, slot.sector, 1, buf)
}

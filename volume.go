package fat

import (
	"context"
	"log/slog"
	"sync"
)

// slogLevelTrace sits one tier below slog.LevelDebug and is the level the
// Volume.trace helper logs at. Nothing in the package calls trace; the only
// log output is Mount's debug and warn messages.
const slogLevelTrace = slog.LevelDebug - 4

// Volume is a mounted FAT filesystem. All operations hang off it; a Volume
// is not safe for concurrent use (§5) and must be Unmounted before the
// underlying BlockDevice is reused or closed.
type Volume struct {
	dev BlockDevice
	log *slog.Logger

	bpb BPB
	geometry

	fsinfoSector lba // FAT32 only; 0 if absent.
	freeCount    uint32
	nextFree     uint32 // allocator hint; 0xFFFFFFFF means "unknown, scan from 2".

	fatCache *fatCacheState

	// id is bumped by Mount and again by Unmount. File and Dir handles
	// record it when opened and are rejected once Unmount has bumped it (§5).
	id uint64

	mu sync.Mutex
}

func (v *Volume) trace(msg string, args ...any) {
	if v.log != nil {
		v.log.Log(context.Background(), slogLevelTrace, msg, args...)
	}
}

func (v *Volume) debug(msg string, args ...any) {
	if v.log != nil {
		v.log.Debug(msg, args...)
	}
}

func (v *Volume) warn(msg string, args ...any) {
	if v.log != nil {
		v.log.Warn(msg, args...)
	}
}

// MountOption configures a Mount call. Options are plain functions over
// Volume rather than a config struct, keeping the constructor surface small.
type MountOption func(*Volume)

// WithLogger attaches a structured logger to the volume. A nil logger (the
// default) disables all logging.
func WithLogger(l *slog.Logger) MountOption {
	return func(v *Volume) { v.log = l }
}

const noFreeHint = 0xFFFFFFFF

// Mount reads and validates the boot sector from dev, derives the volume
// geometry, and (for FAT32) loads the FSInfo sector, per §4.1-§4.2.
func Mount(dev BlockDevice, opts ...MountOption) (*Volume, FSError) {
	v := &Volume{dev: dev, nextFree: noFreeHint}
	for _, opt := range opts {
		opt(v)
	}

	sector := make([]byte, 512)
	bpb, fe := parseBootSector(dev, sector)
	if fe != ErrOK {
		v.warn("mount: invalid boot sector", "err", fe)
		return nil, fe
	}
	v.bpb = bpb

	g, fe := deriveGeometry(bpb)
	if fe != ErrOK {
		v.warn("mount: invalid geometry", "err", fe)
		return nil, fe
	}
	v.geometry = g
	v.bpb.VolumeLabel = decodeVolumeLabel(sector, g.variant)

	v.freeCount = noFreeHint
	if g.variant == VariantFAT32 && bpb.FSInfoSector != 0 {
		v.fsinfoSector = lba(bpb.FSInfoSector)
		fsinfo := make([]byte, g.bytesPerSector)
		if fe := readSectors(dev, v.fsinfoSector, 1, fsinfo); fe == ErrOK {
			free, next := decodeFSInfo(fsinfo)
			v.freeCount = free
			v.nextFree = next
		}
	}

	v.id++
	v.debug("mounted", "variant", v.geometry.variant, "clusters", v.totalClusters)
	return v, ErrOK
}

// VolumeLabel returns the decoded volume label, empty if unset.
func (v *Volume) VolumeLabel() string { return v.bpb.VolumeLabel }

// OEMName returns the decoded OEM name field from the boot sector.
func (v *Volume) OEMName() string { return v.bpb.OEMName }

// Variant reports which FAT flavor this volume was classified as.
func (v *Volume) Variant() Variant { return v.geometry.variant }

// Flush writes back the FAT cache and FSInfo sector if dirty, per §4.2.
// It does not invalidate the volume; callers may continue using it.
func (v *Volume) Flush() FSError {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.flushLocked()
}

func (v *Volume) flushLocked() FSError {
	dirty := v.fatCache != nil && v.fatCache.dirty
	if fe := v.flushFATCacheLocked(); fe != ErrOK {
		return fe
	}
	if dirty && v.geometry.variant == VariantFAT32 && v.fsinfoSector != 0 {
		buf := make([]byte, v.bytesPerSector)
		encodeFSInfo(buf, v.freeCount, v.nextFree)
		if fe := writeSectors(v.dev, v.fsinfoSector, 1, buf); fe != ErrOK {
			return fe
		}
	}
	return ErrOK
}

// Unmount flushes pending writes and invalidates every File and Dir handle
// obtained from this Volume (§5). The Volume itself must not be used again.
func (v *Volume) Unmount() FSError {
	v.mu.Lock()
	defer v.mu.Unlock()
	fe := v.flushLocked()
	v.fatCache = nil
	v.id++
	return fe
}

// decodeFSInfo reads the free-cluster count and next-free hint out of a
// FAT32 FSInfo sector (§4.2). Either value may be 0xFFFFFFFF, meaning
// "unknown" -- callers must not trust it without a rescan.
func decodeFSInfo(sector []byte) (freeCount, nextFree uint32) {
	const (
		fsiLeadSig  = 0
		fsiStrucSig = 484
		fsiFreeCnt  = 488
		fsiNxtFree  = 492
		leadSigVal  = 0x41615252
		strucSigVal = 0x61417272
	)
	lead := le32(sector[fsiLeadSig:])
	struc := le32(sector[fsiStrucSig:])
	if lead != leadSigVal || struc != strucSigVal {
		return noFreeHint, noFreeHint
	}
	return le32(sector[fsiFreeCnt:]), le32(sector[fsiNxtFree:])
}

func encodeFSInfo(sector []byte, freeCount, nextFree uint32) {
	const (
		fsiLeadSig  = 0
		fsiStrucSig = 484
		fsiFreeCnt  = 488
		fsiNxtFree  = 492
		fsiTrailSig = 508
		leadSigVal  = 0x41615252
		strucSigVal = 0x61417272
		trailSigVal = 0xAA550000
	)
	putLE32(sector[fsiLeadSig:], leadSigVal)
	putLE32(sector[fsiStrucSig:], strucSigVal)
	putLE32(sector[fsiFreeCnt:], freeCount)
	putLE32(sector[fsiNxtFree:], nextFree)
	putLE32(sector[fsiTrailSig:], trailSigVal)
}

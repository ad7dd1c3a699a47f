package fat

// ValidateClusterChain walks the chain starting at head using Floyd's
// tortoise-and-hare algorithm, returning ErrCorrupted if a cycle is
// detected and ErrInvalidCluster if any link points outside the valid
// cluster range (§4.7). It never loops more than maxClusterChainLen
// times even without a cycle, since that bound is itself a corruption
// signal for any volume this driver targets.
func (v *Volume) ValidateClusterChain(head uint32) FSError {
	if head == 0 {
		return ErrOK
	}
	slow, fast := head, head
	for i := 0; i < maxClusterChainLen; i++ {
		if !v.validCluster(slow) {
			return ErrInvalidCluster
		}
		slowNext, fe := v.readEntry(slow)
		if fe != ErrOK {
			return fe
		}
		if v.isBad(slowNext) {
			return ErrCorrupted
		}
		if v.isEOC(slowNext) {
			return ErrOK
		}
		slow = slowNext

		for step := 0; step < 2; step++ {
			if v.isEOC(fast) {
				return ErrOK
			}
			if !v.validCluster(fast) {
				return ErrInvalidCluster
			}
			fastNext, fe := v.readEntry(fast)
			if fe != ErrOK {
				return fe
			}
			fast = fastNext
		}
		if slow == fast {
			return ErrCorrupted
		}
	}
	return ErrCorrupted
}

// CheckFATConsistency compares every redundant FAT copy against FAT #0
// byte for byte, returning ErrCorrupted on the first mismatch (§4.7).
// A single-FAT volume (NumFATs==1) trivially passes.
func (v *Volume) CheckFATConsistency() FSError {
	if fe := v.loadFATCache(); fe != ErrOK {
		return fe
	}
	if v.numFATs < 2 {
		return ErrOK
	}
	size := int(v.fatSizeSectors) * int(v.bytesPerSector)
	buf := make([]byte, size)
	for i := uint(1); i < v.numFATs; i++ {
		start := v.fatBegin + lba(i)*lba(v.fatSizeSectors)
		if fe := readSectors(v.dev, start, int(v.fatSizeSectors), buf); fe != ErrOK {
			return fe
		}
		for j := range buf {
			if buf[j] != v.fatCache.data[j] {
				return ErrCorrupted
			}
		}
	}
	return ErrOK
}

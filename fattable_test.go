package fat

import "testing"

func newTestVolume(variant Variant, nFatEnt uint32) *Volume {
	v := &Volume{nextFree: noFreeHint}
	v.geometry.variant = variant
	v.geometry.nFatEnt = nFatEnt
	v.geometry.totalClusters = nFatEnt - 2
	v.geometry.bytesPerSector = 512
	// Size the cache to hold all nFatEnt entries at the widest (FAT32) width.
	fatSectors := (nFatEnt*4 + 511) / 512
	v.geometry.fatSizeSectors = fatSectors
	v.geometry.numFATs = 1
	v.fatCache = &fatCacheState{data: make([]byte, fatSectors*512)}
	return v
}

func TestFAT12EntryRoundTrip(t *testing.T) {
	v := newTestVolume(VariantFAT12, 4096)
	for _, c := range []uint32{2, 3, 4, 4095} {
		if fe := v.writeEntry(c, 0xABC); fe != ErrOK {
			t.Fatalf("writeEntry(%d): %v", c, fe)
		}
		got, fe := v.readEntry(c)
		if fe != ErrOK {
			t.Fatalf("readEntry(%d): %v", c, fe)
		}
		if got != 0xABC {
			t.Fatalf("cluster %d: got %#x, want 0xABC", c, got)
		}
	}
}

func TestFAT12NeighboringEntriesIndependent(t *testing.T) {
	v := newTestVolume(VariantFAT12, 4096)
	if fe := v.writeEntry(2, 0x123); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	if fe := v.writeEntry(3, 0x456); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	got2, _ := v.readEntry(2)
	got3, _ := v.readEntry(3)
	if got2 != 0x123 || got3 != 0x456 {
		t.Fatalf("got (%#x, %#x), want (0x123, 0x456)", got2, got3)
	}
}

func TestFAT16EntryRoundTrip(t *testing.T) {
	v := newTestVolume(VariantFAT16, 8192)
	if fe := v.writeEntry(100, 0xBEEF); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	got, fe := v.readEntry(100)
	if fe != ErrOK || got != 0xBEEF {
		t.Fatalf("got %#x, fe=%v", got, fe)
	}
}

func TestFAT32EntryPreservesTopNibble(t *testing.T) {
	v := newTestVolume(VariantFAT32, 100000)
	raw := v.fatCache.data
	putLE32(raw[100*4:], 0xF0000000) // pre-existing reserved top nibble
	if fe := v.writeEntry(100, 0x0ABCDEF0); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	got, fe := v.readEntry(100)
	if fe != ErrOK || got != 0x0ABCDEF0 {
		t.Fatalf("got %#x, fe=%v", got, fe)
	}
	if le32(raw[100*4:])&0xF0000000 != 0xF0000000 {
		t.Fatalf("reserved top nibble was clobbered")
	}
}

func TestIsEOCAndIsBad(t *testing.T) {
	v12 := newTestVolume(VariantFAT12, 4096)
	if !v12.isEOC(0x0FFF) {
		t.Fatalf("FAT12 0x0FFF should be EOC")
	}
	if !v12.isBad(badFAT12) {
		t.Fatalf("FAT12 bad marker not detected")
	}

	v32 := newTestVolume(VariantFAT32, 100000)
	if !v32.isEOC(0x0FFFFFFF) {
		t.Fatalf("FAT32 0x0FFFFFFF should be EOC")
	}
}

func TestAllocateAndFreeChain(t *testing.T) {
	v := newTestVolume(VariantFAT16, 100)
	first, fe := v.allocateCluster()
	if fe != ErrOK {
		t.Fatalf("allocateCluster: %v", fe)
	}
	second, fe := v.extendChain(first)
	if fe != ErrOK {
		t.Fatalf("extendChain: %v", fe)
	}
	if first == second {
		t.Fatalf("extendChain returned the same cluster")
	}
	next, fe := v.nextCluster(first)
	if fe != ErrOK || next != second {
		t.Fatalf("nextCluster(first) = %d, %v; want %d", next, fe, second)
	}
	if fe := v.freeChain(first); fe != ErrOK {
		t.Fatalf("freeChain: %v", fe)
	}
	entry, _ := v.readEntry(first)
	if entry != clusterFree {
		t.Fatalf("cluster %d not freed: %#x", first, entry)
	}
	entry, _ = v.readEntry(second)
	if entry != clusterFree {
		t.Fatalf("cluster %d not freed: %#x", second, entry)
	}
}

package fat

import "testing"

func TestValidateClusterChainDetectsCycle(t *testing.T) {
	v := newTestVolume(VariantFAT16, 100)
	// Build a cycle: 2 -> 3 -> 2.
	if fe := v.writeEntry(2, 3); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	if fe := v.writeEntry(3, 2); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	if fe := v.ValidateClusterChain(2); fe != ErrCorrupted {
		t.Fatalf("got %v, want ErrCorrupted", fe)
	}
}

func TestValidateClusterChainAcceptsWellFormedChain(t *testing.T) {
	v := newTestVolume(VariantFAT16, 100)
	if fe := v.writeEntry(2, 3); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	if fe := v.writeEntry(3, v.eocMarker()); fe != ErrOK {
		t.Fatalf("writeEntry: %v", fe)
	}
	if fe := v.ValidateClusterChain(2); fe != ErrOK {
		t.Fatalf("got %v, want ErrOK", fe)
	}
}

func TestCheckFATConsistencyDetectsMismatch(t *testing.T) {
	dev := newMemDevice(512, 8192)
	if fe := Format(dev, FormatParams{TotalSectors: 8192, BytesPerSector: 512}); fe != ErrOK {
		t.Fatalf("Format: %v", fe)
	}
	v, fe := Mount(dev)
	if fe != ErrOK {
		t.Fatalf("Mount: %v", fe)
	}
	defer v.Unmount()

	if fe := v.CheckFATConsistency(); fe != ErrOK {
		t.Fatalf("freshly formatted FATs should match: %v", fe)
	}

	// Corrupt the second FAT copy directly on the device.
	corrupt := make([]byte, v.bytesPerSector)
	corrupt[0] = 0xFF
	secondFAT := v.fatBegin + lba(v.fatSizeSectors)
	if fe := writeSectors(v.dev, secondFAT, 1, corrupt); fe != ErrOK {
		t.Fatalf("writeSectors: %v", fe)
	}
	if fe := v.CheckFATConsistency(); fe != ErrCorrupted {
		t.Fatalf("got %v, want ErrCorrupted", fe)
	}
}

package fat

import "testing"

func TestFormatAndMountFAT16(t *testing.T) {
	dev := newMemDevice(512, 8192)
	if fe := Format(dev, FormatParams{TotalSectors: 8192, BytesPerSector: 512}); fe != ErrOK {
		t.Fatalf("Format: %v", fe)
	}
	v, fe := Mount(dev)
	if fe != ErrOK {
		t.Fatalf("Mount: %v", fe)
	}
	if v.Variant() != VariantFAT16 {
		t.Fatalf("got variant %v, want FAT16", v.Variant())
	}
	if fe := v.Unmount(); fe != ErrOK {
		t.Fatalf("Unmount: %v", fe)
	}
}

func TestFormatAndMountFAT32(t *testing.T) {
	dev := newMemDevice(512, 200000)
	if fe := Format(dev, FormatParams{TotalSectors: 200000, BytesPerSector: 512, Variant: VariantFAT32}); fe != ErrOK {
		t.Fatalf("Format: %v", fe)
	}
	v, fe := Mount(dev)
	if fe != ErrOK {
		t.Fatalf("Mount: %v", fe)
	}
	if v.Variant() != VariantFAT32 {
		t.Fatalf("got variant %v, want FAT32", v.Variant())
	}
	if fe := v.Unmount(); fe != ErrOK {
		t.Fatalf("Unmount: %v", fe)
	}
}

func TestFormatRejectsZeroTotalSectors(t *testing.T) {
	dev := newMemDevice(512, 10)
	if fe := Format(dev, FormatParams{}); fe != ErrInvalidParam {
		t.Fatalf("got %v, want ErrInvalidParam", fe)
	}
}

func TestFormatWithVolumeLabel(t *testing.T) {
	dev := newMemDevice(512, 8192)
	if fe := Format(dev, FormatParams{TotalSectors: 8192, BytesPerSector: 512, VolumeLabel: "MYDISK"}); fe != ErrOK {
		t.Fatalf("Format: %v", fe)
	}
	v, fe := Mount(dev)
	if fe != ErrOK {
		t.Fatalf("Mount: %v", fe)
	}
	defer v.Unmount()
	if got := v.VolumeLabel(); got != "MYDISK" {
		t.Fatalf("VolumeLabel() = %q, want %q", got, "MYDISK")
	}
}

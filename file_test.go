package fat

import (
	"bytes"
	"testing"
)

func mustMount(t *testing.T, sectors int) (*Volume, *memDevice) {
	t.Helper()
	dev := newMemDevice(512, sectors)
	if fe := Format(dev, FormatParams{TotalSectors: uint32(sectors), BytesPerSector: 512}); fe != ErrOK {
		t.Fatalf("Format: %v", fe)
	}
	v, fe := Mount(dev)
	if fe != ErrOK {
		t.Fatalf("Mount: %v", fe)
	}
	return v, dev
}

func TestCreateWriteReadRoundTrip(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	f, fe := v.OpenFile("hello.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile create: %v", fe)
	}
	want := []byte("hello, filesystem")
	if n, fe := f.Write(want); fe != ErrOK || n != len(want) {
		t.Fatalf("Write: n=%d fe=%v", n, fe)
	}
	if fe := f.CloseFile(); fe != ErrOK {
		t.Fatalf("CloseFile: %v", fe)
	}

	f2, fe := v.OpenFile("hello.txt", RDONLY)
	if fe != ErrOK {
		t.Fatalf("OpenFile read: %v", fe)
	}
	got := make([]byte, len(want))
	if n, fe := f2.Read(got); fe != ErrOK || n != len(want) {
		t.Fatalf("Read: n=%d fe=%v", n, fe)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("got %q, want %q", got, want)
	}
	if fe := f2.CloseFile(); fe != ErrOK {
		t.Fatalf("CloseFile: %v", fe)
	}
}

func TestMkdirAndReadDir(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	if fe := v.Mkdir("docs"); fe != ErrOK {
		t.Fatalf("Mkdir: %v", fe)
	}
	f, fe := v.OpenFile("docs/readme.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile create in subdir: %v", fe)
	}
	if _, fe := f.Write([]byte("note")); fe != ErrOK {
		t.Fatalf("Write: %v", fe)
	}
	if fe := f.CloseFile(); fe != ErrOK {
		t.Fatalf("CloseFile: %v", fe)
	}

	info, fe := v.Stat("docs")
	if fe != ErrOK || !info.IsDir {
		t.Fatalf("Stat(docs): info=%+v fe=%v", info, fe)
	}

	d, fe := v.OpenDir(info.Cluster)
	if fe != ErrOK {
		t.Fatalf("OpenDir: %v", fe)
	}
	defer d.CloseDir()
	ent, fe := d.ReadDir()
	if fe != ErrOK {
		t.Fatalf("ReadDir: %v", fe)
	}
	if ent.Name != "readme.txt" && ent.ShortName != "README.TXT" {
		t.Fatalf("unexpected entry: %+v", ent)
	}
}

func TestUnlinkRemovesFile(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	f, fe := v.OpenFile("gone.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile: %v", fe)
	}
	f.CloseFile()

	if fe := v.Unlink("gone.txt"); fe != ErrOK {
		t.Fatalf("Unlink: %v", fe)
	}
	if _, fe := v.Stat("gone.txt"); fe != ErrNotFound {
		t.Fatalf("Stat after Unlink: got %v, want ErrNotFound", fe)
	}
}

func TestRmdirRejectsNonEmpty(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	if fe := v.Mkdir("full"); fe != ErrOK {
		t.Fatalf("Mkdir: %v", fe)
	}
	f, fe := v.OpenFile("full/a.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile: %v", fe)
	}
	f.CloseFile()

	if fe := v.Rmdir("full"); fe != ErrDirectoryNotEmpty {
		t.Fatalf("Rmdir: got %v, want ErrDirectoryNotEmpty", fe)
	}
}

func TestOpenFileWithoutCreateFailsWhenMissing(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	if _, fe := v.OpenFile("missing.txt", RDONLY); fe != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", fe)
	}
}

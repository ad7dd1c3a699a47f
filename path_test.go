package fat

import "testing"

func TestResolveNestedPath(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	if fe := v.Mkdir("a"); fe != ErrOK {
		t.Fatalf("Mkdir a: %v", fe)
	}
	if fe := v.Mkdir("a/b"); fe != ErrOK {
		t.Fatalf("Mkdir a/b: %v", fe)
	}
	f, fe := v.OpenFile("a/b/c.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile: %v", fe)
	}
	f.CloseFile()

	info, fe := v.Stat("a/b/c.txt")
	if fe != ErrOK {
		t.Fatalf("Stat: %v", fe)
	}
	if info.IsDir {
		t.Fatalf("c.txt should not be a directory")
	}
}

func TestResolveThroughNonDirectoryFails(t *testing.T) {
	v, _ := mustMount(t, 8192)
	defer v.Unmount()

	f, fe := v.OpenFile("plain.txt", CREATE|RDWR)
	if fe != ErrOK {
		t.Fatalf("OpenFile: %v", fe)
	}
	f.CloseFile()

	if _, fe := v.Stat("plain.txt/nested"); fe != ErrNotADirectory {
		t.Fatalf("got %v, want ErrNotADirectory", fe)
	}
}

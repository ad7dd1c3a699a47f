package fat

import "fmt"

// Example_basicUsage formats a small volume, writes a file, and reads it
// back, mirroring the mount/open/write/close/open/read round trip every
// caller of this package performs.
func Example_basicUsage() {
	dev := newMemDevice(512, 8192)
	if fe := Format(dev, FormatParams{TotalSectors: 8192, BytesPerSector: 512}); fe != ErrOK {
		fmt.Println("format error:", fe)
		return
	}

	v, fe := Mount(dev)
	if fe != ErrOK {
		fmt.Println("mount error:", fe)
		return
	}
	defer v.Unmount()

	f, fe := v.OpenFile("greeting.txt", CREATE|RDWR)
	if fe != ErrOK {
		fmt.Println("open error:", fe)
		return
	}
	f.Write([]byte("hello"))
	f.CloseFile()

	f, fe = v.OpenFile("greeting.txt", RDONLY)
	if fe != ErrOK {
		fmt.Println("reopen error:", fe)
		return
	}
	buf := make([]byte, 5)
	f.Read(buf)
	f.CloseFile()

	fmt.Println(string(buf))
	// Output: hello
}

package fat

import (
	"github.com/soypat/fatfs/internal/utf16x"
)

// sizeDirEntry is the fixed size of every directory slot, short or long
// (§3, §6.2).
const sizeDirEntry = 32

// Byte offsets within a 32-byte short (8.3) directory entry.
const (
	dirNameOff    = 0  // 8.3 name, space padded (11 bytes)
	dirAttrOff    = 11 // attribute byte
	dirNTResOff   = 12 // case flags, reserved by Windows
	dirCrtTimeTenth = 13
	dirCrtTimeOff = 14
	dirCrtDateOff = 16
	dirLstAccDateOff = 18
	dirFstClusHIOff = 20
	dirWrtTimeOff = 22
	dirWrtDateOff = 24
	dirFstClusLOOff = 26
	dirFileSizeOff  = 28
)

// Attribute bits (§3).
const (
	amReadOnly = 0x01
	amHidden   = 0x02
	amSystem   = 0x04
	amVolumeID = 0x08
	amDir      = 0x10
	amArchive  = 0x20
	amLFN      = amReadOnly | amHidden | amSystem | amVolumeID // 0x0F
	amMask     = amReadOnly | amHidden | amSystem | amVolumeID | amDir | amArchive
)

// Special values for the first byte of a directory entry name.
const (
	direntFree     = 0x00 // this and all following entries are free
	direntDeleted  = 0xE5
	direntDeletedJP = 0x05 // 0x05 aliases 0xE5 for Shift-JIS's first byte
)

// Byte offsets within a 32-byte long-filename (LFN) entry.
const (
	ldirOrdOff    = 0  // ordinal, OR'd with ldirLastLongEntry on the highest-ordinal slot (first on disk)
	ldirName1Off  = 1  // 5 UCS-2 chars
	ldirAttrOff   = 11 // always amLFN
	ldirTypeOff   = 12 // always 0
	ldirChksumOff = 13
	ldirName2Off  = 14 // 6 UCS-2 chars
	ldirFstClusLOOff = 26 // always 0
	ldirName3Off  = 28 // 2 UCS-2 chars

	ldirLastLongEntry = 0x40
	ldirOrdMask       = 0x1F
	maxLFNSlots       = 20 // 20 slots * 13 chars covers the 255-char LFN limit
)

type direntry []byte

func (d direntry) firstByte() byte   { return d[dirNameOff] }
func (d direntry) isFree() bool      { return d.firstByte() == direntFree }
func (d direntry) isDeleted() bool   { return d.firstByte() == direntDeleted }
func (d direntry) attr() byte        { return d[dirAttrOff] }
func (d direntry) isLFN() bool       { return d.attr()&amMask == amLFN }
func (d direntry) isDir() bool       { return d.attr()&amDir != 0 }
func (d direntry) isVolumeID() bool  { return d.attr()&amVolumeID != 0 }

func (d direntry) shortName() [11]byte {
	var name [11]byte
	copy(name[:], d[dirNameOff:dirNameOff+11])
	return name
}

func (d direntry) cluster() uint32 {
	hi := uint32(le16(d[dirFstClusHIOff:]))
	lo := uint32(le16(d[dirFstClusLOOff:]))
	return hi<<16 | lo
}

func (d direntry) setCluster(n uint32) {
	putLE16(d[dirFstClusHIOff:], uint16(n>>16))
	putLE16(d[dirFstClusLOOff:], uint16(n))
}

func (d direntry) size() uint32 { return le32(d[dirFileSizeOff:]) }
func (d direntry) setSize(n uint32) { putLE32(d[dirFileSizeOff:], n) }

func (d direntry) createdAt() DateTime {
	return decodeDateTime(le16(d[dirCrtDateOff:]), le16(d[dirCrtTimeOff:]))
}

func (d direntry) modifiedAt() DateTime {
	return decodeDateTime(le16(d[dirWrtDateOff:]), le16(d[dirWrtTimeOff:]))
}

// lfnSlot views a direntry as a long-filename continuation slot.
type lfnSlot direntry

func (l lfnSlot) ordinal() byte  { return l[ldirOrdOff] &^ ldirLastLongEntry }
func (l lfnSlot) isLast() bool   { return l[ldirOrdOff]&ldirLastLongEntry != 0 }
func (l lfnSlot) checksum() byte { return l[ldirChksumOff] }

// chars returns the up-to-13 UCS-2 code units this slot carries, stopping
// at the first 0x0000 terminator (padding past it is 0xFFFF and ignored).
func (l lfnSlot) chars() []uint16 {
	var out [13]uint16
	n := 0
	spans := [][2]int{{ldirName1Off, 5}, {ldirName2Off, 6}, {ldirName3Off, 2}}
	for _, sp := range spans {
		for i := 0; i < sp[1]; i++ {
			c := le16(l[sp[0]+i*2:])
			out[n] = c
			n++
		}
	}
	trimmed := out[:n]
	for i, c := range trimmed {
		if c == 0x0000 {
			return trimmed[:i]
		}
	}
	return trimmed
}

// shortNameChecksum implements the standard 8.3-name checksum (§3): every
// LFN slot's checksum byte must match this value for the slots to be
// trusted as belonging to the short entry that follows them.
func shortNameChecksum(name [11]byte) byte {
	var sum byte
	for _, c := range name {
		sum = (sum>>1 | sum<<7) + c
	}
	return sum
}

// reassembleLFN concatenates LFN slots (given in on-disk order: highest
// ordinal first) into a UTF-8 long name, verifying the checksum against
// the trailing short entry. Returns ok=false if the checksum fails or the
// ordinal sequence is broken, in which case the caller must fall back to
// the short name (§4.4).
func reassembleLFN(slots []lfnSlot, short direntry) (string, bool) {
	if len(slots) == 0 || len(slots) > maxLFNSlots {
		return "", false
	}
	want := shortNameChecksum(short.shortName())
	// slots arrive in on-disk order: highest ordinal (the tail of the
	// name) first, ordinal 1 (the start of the name) last. Reassemble by
	// walking them in reverse so the text comes out in reading order.
	chunks := make([][]uint16, len(slots))
	for i, s := range slots {
		if s.checksum() != want {
			return "", false
		}
		if int(s.ordinal()) != len(slots)-i {
			return "", false
		}
		chunks[i] = s.chars()
	}
	if !slots[0].isLast() {
		return "", false
	}
	units := make([]uint16, 0, len(slots)*13)
	for i := len(chunks) - 1; i >= 0; i-- {
		units = append(units, chunks[i]...)
	}
	return utf16x.ToUTF8(units), true
}

// buildLFNSlots encodes name into the LFN continuation slots needed to
// store it, most-significant ordinal first (on-disk order), terminated
// and padded per §6.2. The caller is responsible for placing the short
// entry immediately after the last (lowest-ordinal) slot.
func buildLFNSlots(name string, shortSum byte) []lfnSlot {
	units := utf16x.FromUTF8(name)
	n := (len(units) + 12) / 13
	if n == 0 {
		n = 1
	}
	slots := make([]lfnSlot, n)
	for i := 0; i < n; i++ {
		buf := make(direntry, sizeDirEntry)
		ord := byte(n - i)
		if i == 0 {
			ord |= ldirLastLongEntry
		}
		buf[ldirOrdOff] = ord
		buf[ldirAttrOff] = amLFN
		buf[ldirChksumOff] = shortSum

		chunk := units[(n-1-i)*13:]
		var padded [13]uint16
		for j := range padded {
			padded[j] = 0xFFFF
		}
		terminated := false
		for j := 0; j < 13 && j < len(chunk); j++ {
			padded[j] = chunk[j]
			if chunk[j] == 0 {
				terminated = true
				break
			}
		}
		if !terminated && len(chunk) <= 13 {
			if len(chunk) < 13 {
				padded[len(chunk)] = 0x0000
			}
		}
		spans := [][2]int{{ldirName1Off, 5}, {ldirName2Off, 6}, {ldirName3Off, 2}}
		idx := 0
		for _, sp := range spans {
			for k := 0; k < sp[1]; k++ {
				putLE16(buf[sp[0]+k*2:], padded[idx])
				idx++
			}
		}
		slots[i] = lfnSlot(buf)
	}
	return slots
}

// DateTime is a decoded FAT timestamp, §3.
type DateTime struct {
	Year, Month, Day       int
	Hour, Minute, Second   int
}

func decodeDateTime(date, time uint16) DateTime {
	return DateTime{
		Year:   1980 + int(date>>9),
		Month:  int(date>>5) & 0x0F,
		Day:    int(date) & 0x1F,
		Hour:   int(time>>11) & 0x1F,
		Minute: int(time>>5) & 0x3F,
		Second: (int(time) & 0x1F) * 2,
	}
}

func encodeDateTime(dt DateTime) (date, time uint16) {
	date = uint16((dt.Year-1980)<<9) | uint16(dt.Month&0x0F)<<5 | uint16(dt.Day&0x1F)
	time = uint16(dt.Hour&0x1F)<<11 | uint16(dt.Minute&0x3F)<<5 | uint16((dt.Second/2)&0x1F)
	return date, time
}

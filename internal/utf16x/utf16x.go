// Package utf16x converts between UTF-8 and the UCS-2/UTF-16 code units
// stored in FAT long-filename directory entries.
package utf16x

import "unicode/utf16"

const (
	surr1    = 0xd800
	surr2    = 0xdc00
	surr3    = 0xe000
	surrSelf = 0x10000

	replacementChar = '�'
	maxRune         = '\U0010FFFF'
)

// ToUTF8 decodes a slice of UCS-2/UTF-16 code units (already split out of
// the on-disk little-endian bytes by the caller) into a UTF-8 string.
// Invalid or unpaired surrogates decode to the Unicode replacement
// character rather than failing, since a corrupt LFN slot must not stop
// directory iteration (§4.4).
func ToUTF8(units []uint16) string {
	runes := make([]rune, 0, len(units))
	for i := 0; i < len(units); {
		r, size := decodeRune(units[i:])
		runes = append(runes, r)
		i += size
	}
	return string(runes)
}

// FromUTF8 encodes s into UCS-2/UTF-16 code units, expanding runes above
// the BMP into surrogate pairs.
func FromUTF8(s string) []uint16 {
	units := make([]uint16, 0, len(s))
	for _, r := range s {
		units = append(units, encodeRune(r)...)
	}
	return units
}

func encodeRune(v rune) []uint16 {
	switch {
	case 0 <= v && v < surr1, surr3 <= v && v < surrSelf:
		return []uint16{uint16(v)}
	case surrSelf <= v && v <= maxRune:
		r1, r2 := utf16.EncodeRune(v)
		return []uint16{uint16(r1), uint16(r2)}
	default:
		return []uint16{replacementChar}
	}
}

func decodeRune(units []uint16) (r rune, size int) {
	if len(units) == 0 {
		return replacementChar, 1
	}
	r = rune(units[0])
	switch {
	case r < surr1, surr3 <= r:
		return r, 1
	case surr1 <= r && r < surr2:
		if len(units) < 2 {
			return replacementChar, 1
		}
		r2 := rune(units[1])
		if !(surr2 <= r2 && r2 < surr3) {
			return replacementChar, 1
		}
		return utf16.DecodeRune(r, r2), 2
	default:
		return replacementChar, 1
	}
}

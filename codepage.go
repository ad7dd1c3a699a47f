package fat

import (
	"golang.org/x/text/encoding/charmap"
)

// encodeOEMField renders s as up to n bytes of IBM code page 437, the
// historical default for the OEM-name and volume-label boot-sector
// fields. Pure-ASCII names round-trip identically; anything outside
// ASCII (accented Latin letters, box-drawing characters carried over
// from old label conventions) is transliterated via CodePage437 rather
// than assumed to fit verbatim (§3.1).
func encodeOEMField(s string, n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = ' '
	}
	enc, err := charmap.CodePage437.NewEncoder().Bytes([]byte(s))
	if err != nil {
		copy(out, s) // best effort: fields with no CP437 mapping keep raw bytes
		return out
	}
	copy(out, enc)
	return out
}

// decodeOEMField converts a fixed-width code page 437 field back to
// UTF-8, trimming trailing spaces (§3.1).
func decodeOEMField(raw []byte) string {
	dec, err := charmap.CodePage437.NewDecoder().Bytes(raw)
	if err != nil {
		dec = raw
	}
	end := len(dec)
	for end > 0 && (dec[end-1] == ' ' || dec[end-1] == 0) {
		end--
	}
	return string(dec[:end])
}

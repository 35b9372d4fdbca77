package rope

import (
	"unicode/utf8"

	"github.com/Voskan/protocore/internal/valueword"
)

// Cmp compares two ropes of TagString by Unicode scalar sequence, strict
// lexicographic order (spec §4.5). Returns -1, 0, or +1.
func Cmp(a, b valueword.Handle) int {
	na, nb := Size(a), Size(b)
	n := na
	if nb < n {
		n = nb
	}
	for i := uint64(0); i < n; i++ {
		ra, _ := GetAt(a, i)
		rb, _ := GetAt(b, i)
		sa, _ := valueword.AsRune(ra)
		sb, _ := valueword.AsRune(rb)
		if sa != sb {
			if sa < sb {
				return -1
			}
			return 1
		}
	}
	switch {
	case na < nb:
		return -1
	case na > nb:
		return 1
	default:
		return 0
	}
}

// ToUTF8 appends the canonical UTF-8 encoding of the string rope to out.
func ToUTF8(h valueword.Handle, out []byte) []byte {
	var buf [utf8.UTFMax]byte
	ForEach(h, func(elem valueword.Handle) bool {
		r, _ := valueword.AsRune(elem)
		n := utf8.EncodeRune(buf[:], r)
		out = append(out, buf[:n]...)
		return true
	})
	return out
}

// FromUTF8 decodes bytes into a string rope. Decoding is total: a malformed
// byte is inserted as an isolated scalar whose value is that byte itself
// (per spec §4.5's "fall back to inserting the first byte as an
// isolated scalar"), so the caller never has to handle failure.
func FromUTF8(alloc Allocator, bytes []byte) valueword.Handle {
	elems := make([]valueword.Handle, 0, len(bytes))
	for len(bytes) > 0 {
		r, size := utf8.DecodeRune(bytes)
		if r == utf8.RuneError && size <= 1 {
			elems = append(elems, valueword.EncodeRune(rune(bytes[0])))
			bytes = bytes[1:]
			continue
		}
		elems = append(elems, valueword.EncodeRune(r))
		bytes = bytes[size:]
	}
	return Build(alloc, valueword.TagString, elems)
}

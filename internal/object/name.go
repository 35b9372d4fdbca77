package object

import (
	"hash/maphash"

	"golang.org/x/text/unicode/norm"

	"github.com/Voskan/protocore/internal/rope"
	"github.com/Voskan/protocore/internal/valueword"
)

// CanonicalizeName normalizes an attribute-name string to NFC so that
// visually/semantically identical names coming from different sources
// (source text, embedder API, deserialized data) always compare and hash
// equal (spec §4.8). Grounded on golang.org/x/text/unicode/norm, already
// part of the pack's domain stack for Unicode text handling.
func CanonicalizeName(raw string) string {
	return norm.NFC.String(raw)
}

// NameHash computes the structural hash of an interned attribute-name
// string rope, reusing internal/rope's structural hash so that attribute
// lookup and string interning agree on what "the same name" means.
func NameHash(seed maphash.Seed, name valueword.Handle) uint64 {
	return rope.StructuralHash(seed, valueword.TagString, name)
}

package protocore

// object.go is the public facade over internal/object (spec §4.7 "Objects
// and prototypes", §4.8 "Attribute resolution"): every operation here
// forwards to the internal package against a Space's own MutableRoots
// table, translating internal/object's cycle sentinel into the public
// ErrCycleInPrototype and wiring the attribute_not_found_get embedder
// callback spec §6 describes into the WithAttributeNotFoundCallback knob
// pkg/config.go exposes.
//
// © 2025 protocore authors. MIT License.

import (
	"errors"

	"github.com/Voskan/protocore/internal/object"
)

// AttrCache is the attribute-resolution cache GetAttribute consults and
// warms (internal/object.AttrCache re-exported so embedders never import
// internal/object directly).
type AttrCache = object.AttrCache

// NewAttrCache allocates an empty attribute cache.
func NewAttrCache() *AttrCache { return object.NewAttrCache() }

// NewObject creates an object with an empty parent chain and attribute map
// (spec §4.7).
func NewObject(alloc Allocator, sp *Space, mutable bool) Value {
	return object.New(alloc, sp.MutableRoots(), mutable)
}

// CloneObject produces a new object sharing o's current parent chain and
// attribute map (spec §4.7).
func CloneObject(alloc Allocator, sp *Space, o Value, mutable bool) Value {
	return object.Clone(alloc, sp.MutableRoots(), o, mutable)
}

// NewChildObject creates an object whose parent chain begins with o (spec
// §4.7).
func NewChildObject(alloc Allocator, sp *Space, o Value, mutable bool) Value {
	return object.NewChild(alloc, sp.MutableRoots(), o, mutable)
}

// ObjectHasParent reports whether p appears in o's current parent-link
// chain.
func ObjectHasParent(sp *Space, o, p Value) bool {
	return object.HasParent(sp.MutableRoots(), o, p)
}

// AddParent linearizes p into o's parent chain (spec §4.7). Returns
// ErrCycleInPrototype, leaving o untouched, if doing so would make o
// reachable from itself (spec §3.7 invariant (d)).
func AddParent(alloc Allocator, sp *Space, o, p Value) (Value, error) {
	h, err := object.AddParent(alloc, sp.MutableRoots(), o, p)
	if err != nil {
		if errors.Is(err, object.ErrCycle) {
			return o, newError(CycleInPrototype, "AddParent: %v", err)
		}
		return o, err
	}
	return h, nil
}

// SetAttribute binds name (hashed against sp's shared NameSeed) to value on
// o (spec §4.7).
func SetAttribute(alloc Allocator, sp *Space, o, name, value Value) Value {
	hash := object.NameHash(sp.NameSeed(), name)
	return object.SetAttribute(alloc, sp.MutableRoots(), o, hash, value)
}

// GetAttribute resolves name on o: the cache first (cache may be nil),
// then o's own attributes, then each ancestor in linearization order
// (spec §4.8). If the chain is exhausted, the Space's configured
// attribute_not_found_get callback (WithAttributeNotFoundCallback) is
// consulted as the final fallback before reporting (none, false).
func GetAttribute(sp *Space, cache *AttrCache, o, name Value) (Value, bool) {
	hash := object.NameHash(sp.NameSeed(), name)
	var onNotFound object.AttributeNotFoundFunc
	if sp.cfg.attributeNotFound != nil {
		onNotFound = func(o, name Value) (Value, bool) { return sp.cfg.attributeNotFound(o, name) }
	}
	return object.GetAttribute(cache, sp.MutableRoots(), o, name, hash, onNotFound)
}

// HasAttribute reports whether name resolves on o or any ancestor. The
// attribute_not_found_get callback is never consulted (spec §4.8): an
// existence check must not trigger the embedder's "get" recovery path.
func HasAttribute(sp *Space, cache *AttrCache, o, name Value) bool {
	hash := object.NameHash(sp.NameSeed(), name)
	return object.HasAttribute(cache, sp.MutableRoots(), o, name, hash)
}

// GetAttributes returns o's full attribute view: its own attributes merged
// over every ancestor's (spec §4.8).
func GetAttributes(alloc Allocator, sp *Space, o Value) Value {
	return object.GetAttributes(alloc, sp.MutableRoots(), o)
}

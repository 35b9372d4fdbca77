package object

import "github.com/Voskan/protocore/internal/valueword"

// attrCacheDepth is the direct-mapped attribute cache's slot count: a power
// of two so the slot index reduces to a mask, per SPEC_FULL.md §4 Open
// Question resolution on cache sizing.
const attrCacheDepth = 1024

type attrCacheEntry struct {
	valid  bool
	object valueword.Handle
	name   valueword.Handle
	value  valueword.Handle
}

// AttrCache is a thread-private direct-mapped cache of resolved attribute
// lookups (spec §4.8). It is never shared across threads: each thread
// (internal/threadmgr.Thread) owns one. A hit is only trusted when both the object and
// attribute-name handles stored in the slot are identical to the ones being
// looked up, so collisions silently degrade to a cache miss rather than
// returning a wrong value.
type AttrCache struct {
	slots [attrCacheDepth]attrCacheEntry
}

func NewAttrCache() *AttrCache { return &AttrCache{} }

func slotFor(object, name valueword.Handle, nameHash uint64) int {
	return int((uint64(object) ^ nameHash) & (attrCacheDepth - 1))
}

// Lookup returns the cached value for (object, name) if the slot is still
// valid for that exact pair.
func (c *AttrCache) Lookup(object, name valueword.Handle, nameHash uint64) (valueword.Handle, bool) {
	e := &c.slots[slotFor(object, name, nameHash)]
	if e.valid && e.object == object && e.name == name {
		return e.value, true
	}
	return valueword.None, false
}

// Store installs a resolved (object, name) -> value binding.
func (c *AttrCache) Store(object, name, value valueword.Handle, nameHash uint64) {
	e := &c.slots[slotFor(object, name, nameHash)]
	e.valid = true
	e.object = object
	e.name = name
	e.value = value
}

// Invalidate evicts any cached entry for (object, name), if present in its
// slot. Called whenever SetAttribute mutates an object's attribute map.
func (c *AttrCache) Invalidate(object, name valueword.Handle, nameHash uint64) {
	e := &c.slots[slotFor(object, name, nameHash)]
	if e.object == object && e.name == name {
		e.valid = false
	}
}

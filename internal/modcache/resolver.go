package modcache

import (
	"context"
	"errors"
	"fmt"
	"hash/maphash"
	"strings"

	"golang.org/x/sync/singleflight"

	"github.com/Voskan/protocore/internal/object"
	"github.com/Voskan/protocore/internal/rope"
	"github.com/Voskan/protocore/internal/valueword"
)

// providerPrefix marks a resolution-chain entry as a provider reference
// rather than a directory path (spec §4.13: "provider:<alias-or-guid>").
const providerPrefix = "provider:"

// ErrNotFound is returned (wrapped, never bare) by resolveChain when no
// resolution-chain entry resolves logicalPath. The pkg-level wrapper
// translates this into protocore.ErrModuleNotFound.
var ErrNotFound = errors.New("modcache: logical path not found in resolution chain")

// Allocator is the cell-allocation seam used to build the wrapper object
// and its string content.
type Allocator = object.Allocator

// Resolver implements get_import_module (spec §4.13): consult the module
// cache first, then walk the resolution chain delegating to the provider
// registry or the filesystem provider, install the hit into the cache and
// the module-root list, and return a thin wrapper object with the
// resolved content installed under attr_name.
//
// Concurrent resolution of the same logical path is deduplicated with
// singleflight (spec.md's suspension point (c): "get_import_module
// waiting on the cache"), the same de-dup discipline the teacher's
// loaderGroup applies to cache misses — here keyed directly on the
// logical path string rather than a hashed key, since logical paths are
// already short, stable strings rather than arbitrary comparable keys.
type Resolver struct {
	cache     *ModuleCache
	providers *ProviderRegistry
	seed      maphash.Seed
	group     singleflight.Group
}

// NewResolver builds a Resolver over an already-open ModuleCache and
// ProviderRegistry. seed must be the same maphash.Seed the owning space
// uses for every other attribute-name hash (internal/object.NameHash) —
// module wrapper objects are plain objects like any other, so their
// installed attribute must hash under the space's one shared seed or
// later lookups by name will miss.
func NewResolver(cache *ModuleCache, providers *ProviderRegistry, seed maphash.Seed) *Resolver {
	return &Resolver{cache: cache, providers: providers, seed: seed}
}

// GetImportModule resolves logicalPath by consulting the cache, then the
// resolution chain in order, and returns a wrapper object with the module
// installed under attrName (spec §4.13).
func (r *Resolver) GetImportModule(
	ctx context.Context,
	alloc Allocator,
	mr *object.MutableRoots,
	chain []string,
	logicalPath, attrName string,
) (valueword.Handle, error) {
	content, found := r.cache.get(logicalPath)
	if !found {
		v, err, _ := r.group.Do(logicalPath, func() (any, error) {
			if c, ok := r.cache.get(logicalPath); ok {
				return c, nil
			}
			c, err := r.resolveChain(chain, logicalPath)
			if err != nil {
				return nil, err
			}
			r.cache.put(logicalPath, c)
			return c, nil
		})
		if err != nil {
			return valueword.None, err
		}
		content = v.([]byte)
	}
	if ctx != nil {
		if err := ctx.Err(); err != nil {
			return valueword.None, err
		}
	}

	contentHandle := rope.FromUTF8(alloc, content)
	wrapper := object.New(alloc, mr, false)
	nameHandle := rope.FromUTF8(alloc, []byte(object.CanonicalizeName(attrName)))
	nameHash := object.NameHash(r.seed, nameHandle)
	wrapper = object.SetAttribute(alloc, mr, wrapper, nameHash, contentHandle)

	r.cache.appendModuleRoot(wrapper)
	return wrapper, nil
}

// resolveChain walks chain in order, routing each entry to the provider
// registry or the filesystem provider (spec §4.13), returning the first
// hit.
func (r *Resolver) resolveChain(chain []string, logicalPath string) ([]byte, error) {
	for _, entry := range chain {
		if ref, ok := strings.CutPrefix(entry, providerPrefix); ok {
			p, ok := r.providers.Lookup(ref)
			if !ok {
				continue
			}
			content, ok, err := p.Resolve(logicalPath)
			if err != nil {
				return nil, fmt.Errorf("modcache: provider %q: %w", ref, err)
			}
			if ok {
				return content, nil
			}
			continue
		}
		fp := FilesystemProvider{Root: entry}
		content, ok, err := fp.Resolve(logicalPath)
		if err != nil {
			return nil, fmt.Errorf("modcache: filesystem %q: %w", entry, err)
		}
		if ok {
			return content, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNotFound, logicalPath)
}

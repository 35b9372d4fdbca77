package modcache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	set3 "github.com/TomTonic/Set3"
)

// Provider resolves a logical module path to raw content. GUID identifies
// it uniquely; Alias is an optional, embedder-chosen short name (spec
// §4.13: "the registry deduplicates providers by GUID and optional alias;
// alias lookup takes precedence").
type Provider interface {
	GUID() string
	Alias() string
	Resolve(logicalPath string) ([]byte, bool, error)
}

// ProviderRegistry deduplicates registered providers by GUID, with an
// optional alias index consulted first on lookup.
//
// Membership is tracked in a Set3 of GUIDs — the same TomTonic-multimap-
// grounded idiom internal/threadmgr uses for its thread-id set. Set3.
// Contains is the registry's actual duplicate-GUID check (Register); the
// byGUID/byAlias maps hold the GUID→Provider and alias→Provider
// associations Set3 itself does not store values for.
type ProviderRegistry struct {
	mu      sync.Mutex
	guids   *set3.Set3[string]
	byGUID  map[string]Provider
	byAlias map[string]Provider
}

// NewProviderRegistry constructs an empty registry.
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{
		guids:   set3.Empty[string](),
		byGUID:  make(map[string]Provider),
		byAlias: make(map[string]Provider),
	}
}

// Register adds p, keyed by its GUID and (if non-empty) its alias.
// Re-registering an already-known GUID is an error: the registry
// deduplicates by GUID, it does not silently overwrite.
func (r *ProviderRegistry) Register(p Provider) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	guid := p.GUID()
	if guid == "" {
		return fmt.Errorf("modcache: provider has empty GUID")
	}
	if r.guids.Contains(guid) {
		return fmt.Errorf("modcache: provider GUID %q already registered", guid)
	}
	r.guids.Add(guid)
	r.byGUID[guid] = p
	if alias := p.Alias(); alias != "" {
		r.byAlias[alias] = p
	}
	return nil
}

// Unregister drops p's GUID and alias (if any) from the registry.
func (r *ProviderRegistry) Unregister(guid string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.byGUID[guid]
	if !ok {
		return
	}
	r.guids.Remove(guid)
	delete(r.byGUID, guid)
	if alias := p.Alias(); alias != "" {
		delete(r.byAlias, alias)
	}
}

// Lookup resolves an "alias-or-guid" reference, alias lookup taking
// precedence per spec §4.13.
func (r *ProviderRegistry) Lookup(aliasOrGUID string) (Provider, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.byAlias[aliasOrGUID]; ok {
		return p, true
	}
	p, ok := r.byGUID[aliasOrGUID]
	return p, ok
}

// FilesystemProvider resolves directory-path resolution-chain entries
// (spec §4.13: "filesystem entries to the filesystem provider"). It is
// not registered in a ProviderRegistry — resolution chain entries that
// are plain directory paths are routed here directly, never through
// "provider:<...>" syntax.
type FilesystemProvider struct {
	Root string
}

// Resolve reads Root/logicalPath, treating a missing file as a clean miss
// rather than an error, so the resolver can keep walking the rest of the
// chain. Any other read failure is returned as an error.
func (f FilesystemProvider) Resolve(logicalPath string) ([]byte, bool, error) {
	full := filepath.Join(f.Root, filepath.FromSlash(logicalPath))
	content, err := os.ReadFile(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return content, true, nil
}

package modcache_test

import (
	"context"
	"hash/maphash"
	"os"
	"path/filepath"
	"testing"

	"github.com/Voskan/protocore/internal/cellpool"
	"github.com/Voskan/protocore/internal/modcache"
	"github.com/Voskan/protocore/internal/object"
	"github.com/Voskan/protocore/internal/rope"
	"github.com/Voskan/protocore/internal/valueword"
)

type testAlloc struct{ pool *cellpool.Pool }

func (a testAlloc) AllocCell() *cellpool.Cell {
	head, n := a.pool.RefillBatch(1)
	if n != 1 {
		panic("out of cells")
	}
	return head
}

type fakeProvider struct {
	guid, alias string
	content     map[string][]byte
}

func (f fakeProvider) GUID() string  { return f.guid }
func (f fakeProvider) Alias() string { return f.alias }
func (f fakeProvider) Resolve(logicalPath string) ([]byte, bool, error) {
	c, ok := f.content[logicalPath]
	return c, ok, nil
}

func openCache(t *testing.T) *modcache.ModuleCache {
	t.Helper()
	c, err := modcache.Open(modcache.Options{})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestProviderRegistryAliasTakesPrecedence(t *testing.T) {
	reg := modcache.NewProviderRegistry()
	p := fakeProvider{guid: "guid-1", alias: "std", content: map[string][]byte{"a": []byte("A")}}
	if err := reg.Register(p); err != nil {
		t.Fatalf("register: %v", err)
	}

	byAlias, ok := reg.Lookup("std")
	if !ok || byAlias.GUID() != "guid-1" {
		t.Fatalf("expected alias lookup to resolve the provider")
	}
	byGUID, ok := reg.Lookup("guid-1")
	if !ok || byGUID.GUID() != "guid-1" {
		t.Fatalf("expected GUID lookup to resolve the provider")
	}
}

func TestProviderRegistryRejectsDuplicateGUID(t *testing.T) {
	reg := modcache.NewProviderRegistry()
	p1 := fakeProvider{guid: "dup"}
	p2 := fakeProvider{guid: "dup"}
	if err := reg.Register(p1); err != nil {
		t.Fatalf("register p1: %v", err)
	}
	if err := reg.Register(p2); err == nil {
		t.Fatalf("expected duplicate GUID registration to fail")
	}
}

func TestFilesystemProviderResolvesRelativeToRoot(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "foo.pc"), []byte("module foo"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	fp := modcache.FilesystemProvider{Root: dir}
	content, ok, err := fp.Resolve("foo.pc")
	if err != nil || !ok {
		t.Fatalf("expected fixture to resolve, got ok=%v err=%v", ok, err)
	}
	if string(content) != "module foo" {
		t.Fatalf("got %q", content)
	}
}

func TestGetImportModuleResolvesInstallsAttrAndRecordsModuleRoot(t *testing.T) {
	pool := cellpool.NewPool(0)
	alloc := testAlloc{pool}
	mr := &object.MutableRoots{}

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "greet.pc"), []byte("hello"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	cache := openCache(t)
	providers := modcache.NewProviderRegistry()
	seed := maphash.MakeSeed()
	resolver := modcache.NewResolver(cache, providers, seed)

	wrapper, err := resolver.GetImportModule(context.Background(), alloc, mr, []string{dir}, "greet.pc", "greet")
	if err != nil {
		t.Fatalf("GetImportModule: %v", err)
	}

	nameHandle := rope.FromUTF8(alloc, []byte("greet"))
	nameHash := object.NameHash(seed, nameHandle)
	val, ok := object.GetAttribute(nil, mr, wrapper, nameHandle, nameHash, nil)
	if !ok {
		t.Fatalf("expected wrapper to carry the installed attribute")
	}
	var got []byte
	got = rope.ToUTF8(val, got)
	if string(got) != "hello" {
		t.Fatalf("got %q, want %q", got, "hello")
	}

	count := 0
	cache.ForEachModuleRoot(func(h valueword.Handle) { count++ })
	if count != 1 {
		t.Fatalf("expected 1 module root recorded, got %d", count)
	}
}

func TestGetImportModuleMissingReturnsError(t *testing.T) {
	pool := cellpool.NewPool(0)
	alloc := testAlloc{pool}
	mr := &object.MutableRoots{}

	cache := openCache(t)
	providers := modcache.NewProviderRegistry()
	resolver := modcache.NewResolver(cache, providers, maphash.MakeSeed())

	_, err := resolver.GetImportModule(context.Background(), alloc, mr, []string{t.TempDir()}, "nope.pc", "nope")
	if err == nil {
		t.Fatalf("expected error for unresolved logical path")
	}
}

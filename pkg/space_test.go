package protocore_test

import (
	"context"
	"errors"
	"testing"

	protocore "github.com/Voskan/protocore/pkg"
)

type fakeModuleProvider struct {
	guid, alias string
	content     map[string][]byte
}

func (f fakeModuleProvider) GUID() string  { return f.guid }
func (f fakeModuleProvider) Alias() string { return f.alias }
func (f fakeModuleProvider) Resolve(logicalPath string) ([]byte, bool, error) {
	c, ok := f.content[logicalPath]
	return c, ok, nil
}

func TestNewSpaceBootstrapsRootContext(t *testing.T) {
	sp, err := protocore.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Shutdown()

	if sp.RootContext() == nil {
		t.Fatal("RootContext is nil")
	}
	if sp.RootThread() == nil {
		t.Fatal("RootThread is nil")
	}
	total, free := sp.Stats()
	if total == 0 {
		t.Fatalf("expected a non-zero initial heap extent, got total=%d free=%d", total, free)
	}
}

func TestSpaceArithmeticRoundTrip(t *testing.T) {
	sp, err := protocore.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Shutdown()

	a := mustSmallInt(t, 7)
	b := mustSmallInt(t, 35)
	sum, err := protocore.Add(sp, a, b)
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	cmp, err := protocore.Compare(sp, sum, mustSmallInt(t, 42))
	if err != nil {
		t.Fatalf("Compare: %v", err)
	}
	if cmp != 0 {
		t.Fatalf("7+35 should equal 42, got compare=%d", cmp)
	}
}

func mustSmallInt(t *testing.T, v int64) protocore.Value {
	t.Helper()
	h, ok := protocore.SmallInt(v)
	if !ok {
		t.Fatalf("value %d does not fit the small-int range", v)
	}
	return h
}

func TestSpaceCollectIsSafeWithNoGarbage(t *testing.T) {
	sp, err := protocore.New()
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Shutdown()

	// A freshly constructed space's root set (root context, empty
	// mutable-root table, empty interner, no modules) is already fully
	// live; forcing a cycle must not reclaim the root context's own
	// bootstrap cell or panic walking an empty root set.
	sp.Collect()
}

func TestSpaceGetImportModuleViaProvider(t *testing.T) {
	sp, err := protocore.New(protocore.WithProvider(fakeModuleProvider{
		guid:    "test-provider",
		content: map[string][]byte{"greeter": []byte("hello")},
	}), protocore.WithResolutionChain("provider:test-provider"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Shutdown()

	wrapper, err := sp.GetImportModule(context.Background(), sp, "greeter", "content")
	if err != nil {
		t.Fatalf("GetImportModule: %v", err)
	}
	if protocore.IsNone(wrapper) {
		t.Fatal("expected a non-none module wrapper")
	}

	// A second call for the same logical path must hit the cache rather
	// than the provider again; both are equally required to succeed.
	if _, err := sp.GetImportModule(context.Background(), sp, "greeter", "content"); err != nil {
		t.Fatalf("GetImportModule (cached): %v", err)
	}
}

func TestSpaceGetImportModuleNotFound(t *testing.T) {
	sp, err := protocore.New(protocore.WithResolutionChain())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer sp.Shutdown()

	if _, err := sp.GetImportModule(context.Background(), sp, "missing", "content"); !errors.Is(err, protocore.ErrModuleNotFound) {
		t.Fatalf("expected ErrModuleNotFound for an unresolvable module path, got %v", err)
	}
}

package protocore

// config.go defines Space's functional-option configuration surface,
// generalizing the teacher's Option[K,V]/config[K,V]/applyOptions pattern
// (originally the generic key-value cache's capacity/TTL/shard knobs) to
// the knobs a protocore Space actually has: logging, metrics, the
// out-of-memory callback, the module resolution chain and provider
// registry, and the invalid-conversion callback (SPEC_FULL.md §4 Open
// Question 5). The struct stays unexported — embedders only ever
// influence it through Option values, the same forward-compatibility
// guarantee the teacher's config[K,V] documents.
//
// © 2025 protocore authors. MIT License.

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/Voskan/protocore/internal/modcache"
)

// InvalidConversionFunc is invoked whenever a cross-kind coercion has no
// defined result (SPEC_FULL.md §4 Open Question 5): every such coercion
// routes through this single callback rather than being handled ad hoc
// per call site. Returning ok == false propagates ErrInvalidConversion to
// the caller; ok == true substitutes the returned value.
type InvalidConversionFunc func(from, to string) (substitute Value, ok bool)

// AttributeNotFoundFunc is the attribute_not_found_get callback (spec
// §4.8 step 3, §6): invoked by GetAttribute once o's full parent chain has
// been walked with no binding for name found. Returning ok == false
// reports the attribute as not found, same as if no callback were
// registered; ok == true substitutes the returned value. Never consulted
// by HasAttribute, which must reflect the chain's own contents.
type AttributeNotFoundFunc func(o, name Value) (substitute Value, ok bool)

// Option configures a Space, in the same functional-options shape the
// teacher's cache.New uses.
type Option func(*config)

// config bundles every knob that influences a Space's behavior. Fields
// are copied in at construction time; there is no live reconfiguration.
type config struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	maxCells int64 // 0 means unbounded, matching cellpool.NewPool's own convention

	outOfMemory       func()
	invalidConversion InvalidConversionFunc
	attributeNotFound AttributeNotFoundFunc

	resolutionChain []string
	providers       []modcache.Provider
	moduleCacheDir  string // "" selects Badger's in-memory mode
}

func defaultConfig() *config {
	return &config{
		logger:   zap.NewNop(),
		registry: nil, // embedder must opt in to metrics
	}
}

// WithLogger plugs an external zap.Logger. The runtime never logs on the
// hot path (cell allocation, attribute lookup, arithmetic); the logger is
// handed to the module cache, which logs failed Badger writes at Warn
// level. The collector, the safepoint protocol and module resolution do
// not log.
func WithLogger(l *zap.Logger) Option {
	return func(c *config) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMetrics enables Prometheus metrics collection for the Space.
// Passing nil disables metrics (the default).
func WithMetrics(reg *prometheus.Registry) Option {
	return func(c *config) { c.registry = reg }
}

// WithMaxCells bounds the Space's cellpool.Pool to at most n live cells;
// n <= 0 means unbounded (cellpool.NewPool's own zero-value convention).
func WithMaxCells(n int64) Option {
	return func(c *config) { c.maxCells = n }
}

// WithOutOfMemoryCallback registers the embedder hook run when allocation
// cannot be satisfied even after a full collection. If unset, out-of-
// memory is fatal (spec's stance: recoverable conditions are errors,
// OutOfMemory alone is fatal unless a callback opts out of that).
func WithOutOfMemoryCallback(fn func()) Option {
	return func(c *config) { c.outOfMemory = fn }
}

// WithInvalidConversionCallback registers the single callback every
// cross-kind coercion with no defined result invokes uniformly
// (SPEC_FULL.md §4 Open Question 5).
func WithInvalidConversionCallback(fn InvalidConversionFunc) Option {
	return func(c *config) { c.invalidConversion = fn }
}

// WithAttributeNotFoundCallback registers the attribute_not_found_get
// fallback GetAttribute consults once an attribute lookup exhausts o's
// full parent chain (spec §4.8 step 3, §6).
func WithAttributeNotFoundCallback(fn AttributeNotFoundFunc) Option {
	return func(c *config) { c.attributeNotFound = fn }
}

// WithResolutionChain sets the ordered list of resolution-chain entries
// get_import_module walks on a cache miss (spec §4.13): each entry is
// either a bare filesystem directory or a "provider:<alias-or-guid>"
// reference into the provider registry.
func WithResolutionChain(chain ...string) Option {
	return func(c *config) { c.resolutionChain = append([]string(nil), chain...) }
}

// WithProvider registers a module provider up front, equivalent to
// calling Space.RegisterProvider after construction.
func WithProvider(p modcache.Provider) Option {
	return func(c *config) { c.providers = append(c.providers, p) }
}

// WithModuleCacheDir persists the module cache to disk at dir instead of
// the default in-memory Badger instance.
func WithModuleCacheDir(dir string) Option {
	return func(c *config) { c.moduleCacheDir = dir }
}

// applyOptions runs every opt against cfg and validates the result.
func applyOptions(opts []Option) (*config, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxCells < 0 {
		return nil, errInvalidMaxCells
	}
	return cfg, nil
}

var errInvalidMaxCells = errors.New("protocore: max cells must be >= 0")

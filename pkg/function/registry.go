package function

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry is a name-keyed catalog of function factories.
//
// Functions are instantiated lazily and cached as singletons: implementations
// are stateless aside from lazily initialized service handles, so one
// instance per process is safe. Registration is explicit rather than
// import-time so the available-function set is statically auditable and a
// fresh registry can be built per test.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*registryEntry
	logger  *slog.Logger
}

type registryEntry struct {
	factory  func() Function
	once     sync.Once
	instance Function
	meta     Meta
}

// NewRegistry creates an empty registry. A nil logger falls back to
// slog.Default().
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		entries: make(map[string]*registryEntry),
		logger:  logger,
	}
}

// Register adds a function factory under the metadata's name.
// Registering a duplicate name logs a warning and overwrites the previous
// entry (last registration wins); this enables test doubles to shadow real
// implementations without ceremony.
func (r *Registry) Register(meta Meta, factory func() Function) error {
	if meta.Name == "" {
		return fmt.Errorf("cannot register function with empty name")
	}
	if !ValidCategories[meta.Category] {
		return fmt.Errorf("cannot register function %q: invalid category %q", meta.Name, meta.Category)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[meta.Name]; exists {
		r.logger.Warn("overwriting registered function",
			"function", meta.Name,
			"category", string(meta.Category),
		)
	}
	r.entries[meta.Name] = &registryEntry{factory: factory, meta: meta}
	return nil
}

// RegisterFunction adds an already-constructed function. The instance itself
// is used as the singleton.
func (r *Registry) RegisterFunction(fn Function) error {
	return r.Register(fn.Meta(), func() Function { return fn })
}

// Get returns the cached singleton instance for the given name,
// instantiating it on first access.
func (r *Registry) Get(name string) (Function, error) {
	r.mu.RLock()
	entry, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown function: %s", name)
	}

	entry.once.Do(func() {
		entry.instance = entry.factory()
	})
	return entry.instance, nil
}

// Lookup returns the registered metadata for a name without instantiating
// the implementation. The second return is false for unknown names.
func (r *Registry) Lookup(name string) (Meta, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[name]
	if !ok {
		return Meta{}, false
	}
	return entry.meta, true
}

// Names returns every registered function name in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListByCategory returns the metadata of all functions in a category,
// sorted by name.
func (r *Registry) ListByCategory(category Category) []Meta {
	return r.list(func(m Meta) bool { return m.Category == category })
}

// ListByTag returns the metadata of all functions carrying a tag,
// sorted by name.
func (r *Registry) ListByTag(tag string) []Meta {
	return r.list(func(m Meta) bool {
		for _, t := range m.Tags {
			if t == tag {
				return true
			}
		}
		return false
	})
}

// Catalog returns the metadata of every registered function sorted by name.
// This is the wire form consumed by documentation and codegen tooling.
func (r *Registry) Catalog() []Meta {
	return r.list(func(Meta) bool { return true })
}

// Categories returns a map from category to the sorted names of functions
// registered under it.
func (r *Registry) Categories() map[Category][]string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Category][]string)
	for name, entry := range r.entries {
		out[entry.meta.Category] = append(out[entry.meta.Category], name)
	}
	for _, names := range out {
		sort.Strings(names)
	}
	return out
}

// Len returns the number of registered functions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

func (r *Registry) list(keep func(Meta) bool) []Meta {
	r.mu.RLock()
	defer r.mu.RUnlock()

	metas := make([]Meta, 0, len(r.entries))
	for _, entry := range r.entries {
		if keep(entry.meta) {
			metas = append(metas, entry.meta)
		}
	}
	sort.Slice(metas, func(i, j int) bool { return metas[i].Name < metas[j].Name })
	return metas
}

package function

import (
	"context"
	"fmt"
	"sync"
)

// Well-known ambient service names.
const (
	ServiceSearch  = "search"
	ServiceLLM     = "llm"
	ServiceStorage = "storage"
	ServiceNotify  = "notify"
)

// SearchService is the boundary contract for document search backends.
// Concrete implementations (index queries, SharePoint, SAM) live outside
// this core and are registered as service resolvers.
type SearchService interface {
	Search(ctx context.Context, query string, opts map[string]any) ([]map[string]any, error)
}

// LLMService is the boundary contract for language model generation.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts map[string]any) (string, error)
}

// ObjectStore is the boundary contract for generated-document storage.
type ObjectStore interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
}

// Notifier is the boundary contract for email/webhook delivery.
type Notifier interface {
	Send(ctx context.Context, target, subject, body string) error
}

// ServiceSet resolves ambient services lazily and caches the result for the
// lifetime of a run. Expensive clients are only constructed for procedures
// that actually use them, and at most one instance exists per set. Child
// contexts share their parent's set, so one client pool serves a whole run
// rather than one per branch.
//
// Resolved services must be safe for concurrent use by sibling branches.
type ServiceSet struct {
	mu        sync.Mutex
	resolvers map[string]func() (any, error)
	cache     map[string]any
}

// NewServiceSet creates an empty service set.
func NewServiceSet() *ServiceSet {
	return &ServiceSet{
		resolvers: make(map[string]func() (any, error)),
		cache:     make(map[string]any),
	}
}

// RegisterResolver installs the constructor for a named service.
// The constructor runs at most once, on first Resolve.
func (s *ServiceSet) RegisterResolver(name string, resolver func() (any, error)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolvers[name] = resolver
}

// RegisterService installs an already-constructed service instance.
func (s *ServiceSet) RegisterService(name string, service any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[name] = service
}

// Resolve returns the named service, constructing and caching it on first
// access.
func (s *ServiceSet) Resolve(name string) (any, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.cache[name]; ok {
		return svc, nil
	}
	resolver, ok := s.resolvers[name]
	if !ok {
		return nil, fmt.Errorf("no resolver registered for service %q", name)
	}
	svc, err := resolver()
	if err != nil {
		return nil, fmt.Errorf("failed to resolve service %q: %w", name, err)
	}
	s.cache[name] = svc
	return svc, nil
}

// resolveAs resolves a named service and asserts its interface type.
func resolveAs[T any](s *ServiceSet, name string) (T, error) {
	var zero T
	svc, err := s.Resolve(name)
	if err != nil {
		return zero, err
	}
	typed, ok := svc.(T)
	if !ok {
		return zero, fmt.Errorf("service %q is %T, not %T", name, svc, zero)
	}
	return typed, nil
}

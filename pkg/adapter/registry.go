package adapter

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"sync"
)

// Factory builds an unconnected store adapter that logs to logger.
type Factory func(logger *slog.Logger) Adapter

// ErrNoStoreType is returned by NewAdapter when target.type is empty.
var ErrNoStoreType = errors.New("store type not specified")

// stores maps a lower-case target.type to its factory.
var stores = struct {
	sync.RWMutex
	byType map[string]Factory
}{byType: make(map[string]Factory)}

// Register makes a store available under target.type name.
// Store packages call it from init, so importing the package is enough.
func Register(name string, factory Factory) {
	stores.Lock()
	defer stores.Unlock()
	stores.byType[strings.ToLower(name)] = factory
}

// Get returns the factory registered for name.
func Get(name string) (Factory, bool) {
	stores.RLock()
	defer stores.RUnlock()
	f, ok := stores.byType[strings.ToLower(name)]
	return f, ok
}

// NewAdapter builds the store named by cfg.Type without connecting it.
// A nil logger is handed to the factory as is.
func NewAdapter(cfg Config, logger *slog.Logger) (Adapter, error) {
	if cfg.Type == "" {
		return nil, ErrNoStoreType
	}
	factory, ok := Get(cfg.Type)
	if !ok {
		return nil, &UnknownAdapterError{Type: cfg.Type, Available: ListAdapters()}
	}
	return factory(logger), nil
}

// ListAdapters returns the registered store types in sorted order.
func ListAdapters() []string {
	stores.RLock()
	defer stores.RUnlock()
	return slices.Sorted(maps.Keys(stores.byType))
}

// IsRegistered reports whether target.type name can be built.
func IsRegistered(name string) bool {
	_, ok := Get(name)
	return ok
}

// UnknownAdapterError names a target.type no store package registered.
type UnknownAdapterError struct {
	Type      string
	Available []string
}

func (e *UnknownAdapterError) Error() string {
	return fmt.Sprintf("unknown store type %q\nAvailable stores: %v\nHint: Check target.type in vendorsummary.yaml", e.Type, e.Available)
}

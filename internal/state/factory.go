package state

import (
	"fmt"
	"sync"
)

// Builder creates a store from config.
type Builder func(cfg Config) (Store, error)

// DefaultFactory maps store type names to builders.
type DefaultFactory struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

var globalFactory = &DefaultFactory{builders: make(map[string]Builder)}

func init() {
	RegisterStoreType("json", func(cfg Config) (Store, error) {
		return NewFileStore(cfg.Path), nil
	})
	RegisterStoreType("sqlite", func(cfg Config) (Store, error) {
		return NewSQLiteStore(cfg.Path)
	})
	RegisterStoreType("postgres", func(cfg Config) (Store, error) {
		return NewPostgresStore(cfg.DSN)
	})
	RegisterStoreType("postgresql", func(cfg Config) (Store, error) {
		return NewPostgresStore(cfg.DSN)
	})
}

// RegisterStoreType registers a builder with the global factory.
func RegisterStoreType(storeType string, b Builder) {
	globalFactory.mu.Lock()
	defer globalFactory.mu.Unlock()
	globalFactory.builders[storeType] = b
}

// CreateStore builds a store from the config. An empty type defaults
// to the JSON file store.
func CreateStore(cfg Config) (Store, error) {
	typ := cfg.Type
	if typ == "" {
		typ = "json"
	}
	globalFactory.mu.RLock()
	b, ok := globalFactory.builders[typ]
	globalFactory.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unsupported state store type: %s (supported: %v)", typ, SupportedTypes())
	}
	return b(cfg)
}

// SupportedTypes lists the registered store types.
func SupportedTypes() []string {
	globalFactory.mu.RLock()
	defer globalFactory.mu.RUnlock()
	types := make([]string, 0, len(globalFactory.builders))
	for t := range globalFactory.builders {
		types = append(types, t)
	}
	return types
}

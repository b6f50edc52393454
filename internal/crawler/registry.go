package crawler

import (
	"fmt"
	"sort"
	"sync"

	"github.com/myaku-dev/myaku/internal/fetcher"
	"github.com/myaku-dev/myaku/internal/logger"
)

// AdapterFactory builds a source adapter around the shared rate-limited
// fetcher. Adapter packages register themselves from init.
type AdapterFactory func(fetch *fetcher.Fetcher, log logger.Logger) (SourceAdapter, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]AdapterFactory{}
)

// RegisterAdapter adds a named adapter factory. Names are the values used in
// the crawler.enabled_sources config list.
func RegisterAdapter(name string, factory AdapterFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[name]; exists {
		panic(fmt.Sprintf("source adapter %q registered twice", name))
	}
	registry[name] = factory
}

// AdapterNames lists the registered adapter names, sorted.
func AdapterNames() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// NewAdapters builds the adapters for the named sources.
func NewAdapters(names []string, fetch *fetcher.Fetcher, log logger.Logger) ([]SourceAdapter, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	adapters := make([]SourceAdapter, 0, len(names))
	for _, name := range names {
		factory, ok := registry[name]
		if !ok {
			known := make([]string, 0, len(registry))
			for k := range registry {
				known = append(known, k)
			}
			sort.Strings(known)
			return nil, fmt.Errorf("unknown source adapter %q (registered: %v)", name, known)
		}
		adapter, err := factory(fetch, log)
		if err != nil {
			return nil, fmt.Errorf("build source adapter %q: %w", name, err)
		}
		adapters = append(adapters, adapter)
	}
	return adapters, nil
}

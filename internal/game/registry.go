package game

import (
	"fmt"
	"sort"
	"sync"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]func() Module)
)

// Register makes a module constructor available under the given name.
// Modules call Register from an init function; the name is what the
// game_module config option refers to. Registering the same name twice
// panics: that is a programming error, not a runtime condition.
func Register(name string, constructor func() Module) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, ok := registry[name]; ok {
		panic(fmt.Sprintf("game module %q registered twice", name))
	}
	registry[name] = constructor
}

// New constructs the module registered under name.
func New(name string) (Module, error) {
	registryMu.Lock()
	constructor, ok := registry[name]
	registryMu.Unlock()
	if !ok {
		return nil, fmt.Errorf("unknown game module %q (registered: %v)", name, Registered())
	}
	return constructor(), nil
}

// Registered returns the sorted names of all registered modules.
func Registered() []string {
	registryMu.Lock()
	defer registryMu.Unlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

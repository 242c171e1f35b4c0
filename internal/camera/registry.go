package camera

import (
	"path/filepath"
	"sync"
)

type driverEntry struct {
	name    string
	factory Factory
	lib     Library
}

// Registry holds the loaded camera driver plugins. The most recently loaded
// driver always has id 0; loading a new driver shifts every earlier one up by
// one, so ids are only meaningful against the current Drivers() list.
//
// Construct one Registry per process and pass it to whoever needs it.
type Registry struct {
	loader Loader

	mu      sync.Mutex
	entries []driverEntry
}

// NewRegistry returns an empty registry that opens plugins with loader.
func NewRegistry(loader Loader) *Registry {
	return &Registry{loader: loader}
}

// LoadDriver loads libols_driver_<name>.so from basePath and registers its
// factory at id 0. Loading a name that is already registered does nothing.
// When config is non-nil it is passed to the plugin's configuration entry
// point before the driver is registered.
func (r *Registry) LoadDriver(name, basePath string, config *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if e.name == name {
			return nil
		}
	}

	path := DriverLibraryName(name)
	if basePath != "" {
		path = filepath.Join(basePath, path)
	}
	lib, err := r.loader.Open(path)
	if err != nil {
		opsf("dlopen %s: %v", path, err)
		return camErrorf("failed to load driver %s", name)
	}

	factory, err := lib.Factory(factorySymbol(name))
	if err != nil {
		lib.Close()
		return camErrorf("failed to find driver entry for %s", name)
	}

	if config != nil {
		configure, err := lib.Configurator(configSymbol(name))
		if err != nil {
			lib.Close()
			return camErrorf("failed to find driver config entry for %s", name)
		}
		if status := configure(*config); status != 0 {
			return camErrorf("failed to config driver for %s (status %d)", name, status)
		}
	}

	r.entries = append([]driverEntry{{name: name, factory: factory, lib: lib}}, r.entries...)
	diagf("loaded driver %s from %s; %d drivers registered", name, path, len(r.entries))
	return nil
}

// Drivers returns the registered driver names; the index is the driver id.
func (r *Registry) Drivers() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, len(r.entries))
	for i, e := range r.entries {
		names[i] = e.name
	}
	return names
}

// Get creates a driver instance from the factory registered at id.
func (r *Registry) Get(id int, externalOption int) (DriverHandle, error) {
	r.mu.Lock()
	if id < 0 || id >= len(r.entries) {
		r.mu.Unlock()
		return nil, camErrorf("invalid driver id %d", id)
	}
	factory := r.entries[id].factory
	r.mu.Unlock()

	h := factory(externalOption)
	if h == nil {
		return nil, camErrorf("failed to load camera %d", id)
	}
	return h, nil
}

// Close unloads every registered plugin and empties the registry. Driver
// handles obtained from Get must not be used afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var first error
	for _, e := range r.entries {
		if err := e.lib.Close(); err != nil && first == nil {
			first = err
		}
	}
	r.entries = nil
	return first
}

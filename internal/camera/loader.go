package camera

import "unsafe"

// DriverHandle is the opaque driver instance returned by a plugin factory.
type DriverHandle unsafe.Pointer

// Factory creates a driver instance. externalOption is passed through to the
// plugin unchanged (for example a USB file descriptor handed over by the host).
type Factory func(externalOption int) DriverHandle

// Configurator hands a configuration string to a plugin and returns its
// status; zero means accepted.
type Configurator func(config string) int

// Library is an opened plugin.
type Library interface {
	// Factory resolves an exported "int -> handle" symbol.
	Factory(symbol string) (Factory, error)
	// Configurator resolves an exported "const char* -> int" symbol.
	Configurator(symbol string) (Configurator, error)
	// Close unloads the library.
	Close() error
}

// Loader opens plugin libraries by path.
type Loader interface {
	Open(path string) (Library, error)
}

// DriverLibraryName returns the file name of the plugin for a driver.
func DriverLibraryName(name string) string {
	return "libols_driver_" + name + ".so"
}

func factorySymbol(name string) string { return "ols_get_" + name + "_driver" }

func configSymbol(name string) string { return "ols_set_" + name + "_driver_config" }

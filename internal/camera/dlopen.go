//go:build cgo && (linux || darwin || freebsd)

package camera

/*
#cgo linux LDFLAGS: -ldl
#include <dlfcn.h>
#include <stdlib.h>

typedef void *(*ols_driver_factory)(int);
typedef int (*ols_driver_config)(char const *);

static void *ols_call_factory(void *fn, int opt)
{
	return ((ols_driver_factory)fn)(opt);
}

static int ols_call_config(void *fn, char const *cfg)
{
	return ((ols_driver_config)fn)(cfg);
}
*/
import "C"

import (
	"errors"
	"unsafe"
)

// DLLoader opens driver plugins with dlopen(RTLD_LAZY|RTLD_GLOBAL).
type DLLoader struct{}

type dlLibrary struct {
	handle unsafe.Pointer
}

func (DLLoader) Open(path string) (Library, error) {
	cpath := C.CString(path)
	defer C.free(unsafe.Pointer(cpath))
	h := C.dlopen(cpath, C.RTLD_LAZY|C.RTLD_GLOBAL)
	if h == nil {
		return nil, errors.New(C.GoString(C.dlerror()))
	}
	return &dlLibrary{handle: h}, nil
}

func (l *dlLibrary) lookup(symbol string) (unsafe.Pointer, error) {
	csym := C.CString(symbol)
	defer C.free(unsafe.Pointer(csym))
	C.dlerror()
	fn := C.dlsym(l.handle, csym)
	if fn == nil {
		msg := "symbol not found: " + symbol
		if e := C.dlerror(); e != nil {
			msg = C.GoString(e)
		}
		return nil, errors.New(msg)
	}
	return fn, nil
}

func (l *dlLibrary) Factory(symbol string) (Factory, error) {
	fn, err := l.lookup(symbol)
	if err != nil {
		return nil, err
	}
	return func(externalOption int) DriverHandle {
		return DriverHandle(C.ols_call_factory(fn, C.int(externalOption)))
	}, nil
}

func (l *dlLibrary) Configurator(symbol string) (Configurator, error) {
	fn, err := l.lookup(symbol)
	if err != nil {
		return nil, err
	}
	return func(config string) int {
		ccfg := C.CString(config)
		defer C.free(unsafe.Pointer(ccfg))
		return int(C.ols_call_config(fn, ccfg))
	}, nil
}

func (l *dlLibrary) Close() error {
	if C.dlclose(l.handle) != 0 {
		return errors.New(C.GoString(C.dlerror()))
	}
	return nil
}

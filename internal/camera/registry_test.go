package camera

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakePlugin describes what a fake library exports.
type fakePlugin struct {
	noFactory    bool
	noConfig     bool
	configStatus int
	nilHandle    bool

	factoryCalls []int
	configs      []string
	closed       int
}

type fakeLoader struct {
	plugins map[string]*fakePlugin // keyed by full path
	opened  []string
}

func (l *fakeLoader) Open(path string) (Library, error) {
	l.opened = append(l.opened, path)
	p, ok := l.plugins[path]
	if !ok {
		return nil, errors.New("no such file")
	}
	return &fakeLibrary{p: p}, nil
}

type fakeLibrary struct{ p *fakePlugin }

var handleStorage [8]byte

func (l *fakeLibrary) Factory(symbol string) (Factory, error) {
	if l.p.noFactory {
		return nil, errors.New("undefined symbol " + symbol)
	}
	return func(opt int) DriverHandle {
		l.p.factoryCalls = append(l.p.factoryCalls, opt)
		if l.p.nilHandle {
			return nil
		}
		return DriverHandle(unsafe.Pointer(&handleStorage[0]))
	}, nil
}

func (l *fakeLibrary) Configurator(symbol string) (Configurator, error) {
	if l.p.noConfig {
		return nil, errors.New("undefined symbol " + symbol)
	}
	return func(cfg string) int {
		l.p.configs = append(l.p.configs, cfg)
		return l.p.configStatus
	}, nil
}

func (l *fakeLibrary) Close() error {
	l.p.closed++
	return nil
}

func newFakeLoader(names ...string) (*fakeLoader, map[string]*fakePlugin) {
	l := &fakeLoader{plugins: map[string]*fakePlugin{}}
	byName := map[string]*fakePlugin{}
	for _, n := range names {
		p := &fakePlugin{}
		l.plugins["/opt/drivers/libols_driver_"+n+".so"] = p
		byName[n] = p
	}
	return l, byName
}

func TestRegistry_LoadOrderIsLIFO(t *testing.T) {
	loader, plugins := newFakeLoader("a", "b", "c")
	r := NewRegistry(loader)

	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, r.LoadDriver(n, "/opt/drivers", nil))
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, r.Drivers()); diff != "" {
		t.Errorf("Drivers() mismatch (-want +got):\n%s", diff)
	}

	h, err := r.Get(0, 7)
	require.NoError(t, err)
	assert.NotNil(t, h)
	assert.Equal(t, []int{7}, plugins["c"].factoryCalls)
	assert.Empty(t, plugins["a"].factoryCalls)
	assert.Empty(t, plugins["b"].factoryCalls)

	_, err = r.Get(2, -1)
	require.NoError(t, err)
	assert.Equal(t, []int{-1}, plugins["a"].factoryCalls)
}

func TestRegistry_ReloadIsNoop(t *testing.T) {
	loader, _ := newFakeLoader("a", "b", "c")
	r := NewRegistry(loader)
	for _, n := range []string{"a", "b", "c"} {
		require.NoError(t, r.LoadDriver(n, "/opt/drivers", nil))
	}
	opened := len(loader.opened)

	require.NoError(t, r.LoadDriver("b", "/nowhere", nil))
	assert.Equal(t, opened, len(loader.opened), "reload must not touch the filesystem")
	assert.Equal(t, []string{"c", "b", "a"}, r.Drivers())
}

func TestRegistry_OpenFailure(t *testing.T) {
	loader, _ := newFakeLoader()
	r := NewRegistry(loader)
	err := r.LoadDriver("zwo", "/opt/drivers", nil)
	require.ErrorIs(t, err, ErrCamera)
	assert.Contains(t, err.Error(), "failed to load driver zwo")
	assert.Empty(t, r.Drivers())
	assert.Equal(t, []string{"/opt/drivers/libols_driver_zwo.so"}, loader.opened)
}

func TestRegistry_EmptyBasePathUsesBareName(t *testing.T) {
	loader := &fakeLoader{plugins: map[string]*fakePlugin{"libols_driver_sim.so": {}}}
	r := NewRegistry(loader)
	require.NoError(t, r.LoadDriver("sim", "", nil))
	assert.Equal(t, []string{"libols_driver_sim.so"}, loader.opened)
}

func TestRegistry_MissingFactoryClosesLibrary(t *testing.T) {
	loader, plugins := newFakeLoader("asi")
	plugins["asi"].noFactory = true
	r := NewRegistry(loader)

	err := r.LoadDriver("asi", "/opt/drivers", nil)
	require.ErrorIs(t, err, ErrCamera)
	assert.Equal(t, 1, plugins["asi"].closed)
	assert.Empty(t, r.Drivers())
}

func TestRegistry_Config(t *testing.T) {
	cfg := "/dev/video0"

	t.Run("accepted", func(t *testing.T) {
		loader, plugins := newFakeLoader("uvc")
		r := NewRegistry(loader)
		require.NoError(t, r.LoadDriver("uvc", "/opt/drivers", &cfg))
		assert.Equal(t, []string{cfg}, plugins["uvc"].configs)
		assert.Equal(t, []string{"uvc"}, r.Drivers())
	})

	t.Run("missing symbol", func(t *testing.T) {
		loader, plugins := newFakeLoader("uvc")
		plugins["uvc"].noConfig = true
		r := NewRegistry(loader)
		err := r.LoadDriver("uvc", "/opt/drivers", &cfg)
		require.ErrorIs(t, err, ErrCamera)
		assert.Equal(t, 1, plugins["uvc"].closed)
		assert.Empty(t, r.Drivers())
	})

	t.Run("rejected", func(t *testing.T) {
		loader, plugins := newFakeLoader("uvc")
		plugins["uvc"].configStatus = 3
		r := NewRegistry(loader)
		err := r.LoadDriver("uvc", "/opt/drivers", &cfg)
		require.ErrorIs(t, err, ErrCamera)
		assert.Empty(t, r.Drivers())
	})

	t.Run("not requested", func(t *testing.T) {
		loader, plugins := newFakeLoader("uvc")
		plugins["uvc"].noConfig = true
		r := NewRegistry(loader)
		require.NoError(t, r.LoadDriver("uvc", "/opt/drivers", nil))
		assert.Empty(t, plugins["uvc"].configs)
	})
}

func TestRegistry_GetInvalidID(t *testing.T) {
	loader, plugins := newFakeLoader("a")
	r := NewRegistry(loader)
	require.NoError(t, r.LoadDriver("a", "/opt/drivers", nil))

	for _, id := range []int{-1, 1, 100} {
		_, err := r.Get(id, 0)
		assert.ErrorIs(t, err, ErrCamera, "id %d", id)
	}
	assert.Empty(t, plugins["a"].factoryCalls, "factory must not run for an invalid id")
}

func TestRegistry_GetNilHandle(t *testing.T) {
	loader, plugins := newFakeLoader("a")
	plugins["a"].nilHandle = true
	r := NewRegistry(loader)
	require.NoError(t, r.LoadDriver("a", "/opt/drivers", nil))

	_, err := r.Get(0, 0)
	require.ErrorIs(t, err, ErrCamera)
	assert.Contains(t, err.Error(), "failed to load camera 0")
}

func TestRegistry_Close(t *testing.T) {
	loader, plugins := newFakeLoader("a", "b")
	r := NewRegistry(loader)
	require.NoError(t, r.LoadDriver("a", "/opt/drivers", nil))
	require.NoError(t, r.LoadDriver("b", "/opt/drivers", nil))

	require.NoError(t, r.Close())
	assert.Equal(t, 1, plugins["a"].closed)
	assert.Equal(t, 1, plugins["b"].closed)
	assert.Empty(t, r.Drivers())
}

func TestDriverLibraryName(t *testing.T) {
	assert.Equal(t, "libols_driver_toupcam.so", DriverLibraryName("toupcam"))
	assert.Equal(t, "ols_get_toupcam_driver", factorySymbol("toupcam"))
	assert.Equal(t, "ols_set_toupcam_driver_config", configSymbol("toupcam"))
}

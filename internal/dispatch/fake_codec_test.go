package dispatch

import (
	"errors"
	"sync"

	"github.com/banshee-data/livestack/internal/camera"
)

type fakeMat struct {
	label    string
	channels int
	closed   int
	mu       *sync.Mutex
}

func (m *fakeMat) Rows() int     { return 1 }
func (m *fakeMat) Cols() int     { return 1 }
func (m *fakeMat) Channels() int { return m.channels }
func (m *fakeMat) Close() error {
	m.mu.Lock()
	m.closed++
	m.mu.Unlock()
	return nil
}

// fakeCodec records every call and every matrix it hands out so tests can
// check routing decisions and that nothing leaks.
type fakeCodec struct {
	mu         sync.Mutex
	mats       []*fakeMat
	demosaics  []camera.Demosaic
	encodedDR  []int
	decodes    int
	clones     int
	failDecode bool
	failEncode bool // fails the next encode only
}

func (c *fakeCodec) newMat(label string, channels int) *fakeMat {
	m := &fakeMat{label: label, channels: channels, mu: &c.mu}
	c.mats = append(c.mats, m)
	return m
}

func (c *fakeCodec) Wrap(data []byte, width, height int, layout camera.Layout) (camera.Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ch := map[camera.Layout]int{
		camera.LayoutGray8: 1, camera.LayoutGray16: 1, camera.LayoutYUYV: 2,
		camera.LayoutBGR24: 3, camera.LayoutBGR48: 3,
	}[layout]
	return c.newMat("wrap", ch), nil
}

func (c *fakeCodec) YUYVToBGR(camera.Matrix) (camera.Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.newMat("bgr", 3), nil
}

func (c *fakeCodec) Demosaic(_ camera.Matrix, d camera.Demosaic) (camera.Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.demosaics = append(c.demosaics, d)
	return c.newMat("demosaic", 3), nil
}

func (c *fakeCodec) DecodeJPEG([]byte) (camera.Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.decodes++
	if c.failDecode {
		return nil, errors.New("corrupt jpeg")
	}
	return c.newMat("decoded", 3), nil
}

func (c *fakeCodec) EncodeJPEG(_ camera.Matrix, dr int) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.encodedDR = append(c.encodedDR, dr)
	if c.failEncode {
		c.failEncode = false
		return nil, errors.New("encoder failure")
	}
	return []byte{0xFF, 0xD8, 0xFF, 0xD9}, nil
}

func (c *fakeCodec) Clone(m camera.Matrix) (camera.Matrix, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clones++
	return c.newMat("clone", m.Channels()), nil
}

// leaked returns matrices that were not closed exactly once.
func (c *fakeCodec) leaked() []*fakeMat {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []*fakeMat
	for _, m := range c.mats {
		if m.closed != 1 {
			out = append(out, m)
		}
	}
	return out
}

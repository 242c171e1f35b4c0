package imaging

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/livestack/internal/camera"
)

func gradient8(w, h, channels int) []byte {
	b := make([]byte, w*h*channels)
	for i := range b {
		b[i] = byte(i * 7)
	}
	return b
}

func gradient16(w, h, channels int) []byte {
	b := make([]byte, w*h*channels*2)
	for i := 0; i < w*h*channels; i++ {
		binary.LittleEndian.PutUint16(b[i*2:], uint16(i*911))
	}
	return b
}

func TestCodec_WrapShapes(t *testing.T) {
	var c Codec
	tests := []struct {
		name     string
		layout   camera.Layout
		data     []byte
		channels int
	}{
		{"gray8", camera.LayoutGray8, gradient8(8, 4, 1), 1},
		{"gray16", camera.LayoutGray16, gradient16(8, 4, 1), 1},
		{"yuyv", camera.LayoutYUYV, gradient8(8, 4, 2), 2},
		{"bgr24", camera.LayoutBGR24, gradient8(8, 4, 3), 3},
		{"bgr48", camera.LayoutBGR48, gradient16(8, 4, 3), 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			m, err := c.Wrap(tc.data, 8, 4, tc.layout)
			require.NoError(t, err)
			defer m.Close()
			assert.Equal(t, 4, m.Rows())
			assert.Equal(t, 8, m.Cols())
			assert.Equal(t, tc.channels, m.Channels())
		})
	}
}

func TestCodec_YUYVToBGR(t *testing.T) {
	var c Codec
	src, err := c.Wrap(gradient8(8, 4, 2), 8, 4, camera.LayoutYUYV)
	require.NoError(t, err)
	defer src.Close()

	bgr, err := c.YUYVToBGR(src)
	require.NoError(t, err)
	defer bgr.Close()
	assert.Equal(t, 3, bgr.Channels())
	assert.Equal(t, 8, bgr.Cols())
}

func TestCodec_DemosaicAllRoutines(t *testing.T) {
	var c Codec
	for _, d := range []camera.Demosaic{camera.DemosaicBG, camera.DemosaicGB, camera.DemosaicRG, camera.DemosaicGR} {
		src, err := c.Wrap(gradient16(8, 8, 1), 8, 8, camera.LayoutGray16)
		require.NoError(t, err)
		out, err := c.Demosaic(src, d)
		require.NoError(t, err)
		assert.Equal(t, 3, out.Channels())
		assert.Equal(t, 8, out.Rows())

		mat, err := Mat(out)
		require.NoError(t, err)
		assert.Equal(t, 6, mat.ElemSize(), "16-bit depth must be preserved")
		out.Close()
		src.Close()
	}
}

func TestCodec_ConversionErrorsSurface(t *testing.T) {
	var c Codec
	gray, err := c.Wrap(gradient8(8, 4, 1), 8, 4, camera.LayoutGray8)
	require.NoError(t, err)
	defer gray.Close()
	bgr, err := c.Wrap(gradient8(8, 4, 3), 8, 4, camera.LayoutBGR24)
	require.NoError(t, err)
	defer bgr.Close()

	_, err = c.YUYVToBGR(gray)
	if assert.Error(t, err, "a single channel image is not packed yuyv") {
		assert.Contains(t, err.Error(), "yuyv to bgr")
		assert.NotContains(t, err.Error(), errEmpty.Error())
	}

	_, err = c.Demosaic(bgr, camera.DemosaicBG)
	if assert.Error(t, err, "a colour image cannot be demosaiced") {
		assert.Contains(t, err.Error(), "demosaic")
	}
}

func TestCodec_JPEGRoundTrip(t *testing.T) {
	var c Codec
	for _, tc := range []struct {
		name   string
		layout camera.Layout
		data   []byte
		dr     int
	}{
		{"mono8 as-is", camera.LayoutGray8, gradient8(16, 16, 1), camera.DynamicRange8},
		{"mono16 rescaled", camera.LayoutGray16, gradient16(16, 16, 1), camera.DynamicRange16},
		{"rgb48 rescaled", camera.LayoutBGR48, gradient16(16, 16, 3), camera.DynamicRange16},
		{"rgb24 as-is", camera.LayoutBGR24, gradient8(16, 16, 3), camera.DynamicRange8},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img, err := c.Wrap(tc.data, 16, 16, tc.layout)
			require.NoError(t, err)
			defer img.Close()

			jpg, err := c.EncodeJPEG(img, tc.dr)
			require.NoError(t, err)
			require.Greater(t, len(jpg), 2)
			assert.Equal(t, []byte{0xFF, 0xD8}, jpg[:2])

			back, err := c.DecodeJPEG(jpg)
			require.NoError(t, err)
			defer back.Close()
			assert.Equal(t, 16, back.Rows())
			mat, _ := Mat(back)
			assert.Equal(t, 1, mat.ElemSize()/mat.Channels(), "display rendition is 8-bit")
		})
	}
}

func TestCodec_DecodeGarbage(t *testing.T) {
	var c Codec
	_, err := c.DecodeJPEG([]byte("definitely not a jpeg"))
	assert.Error(t, err)
}

func TestCodec_EncodeRejectsBadRange(t *testing.T) {
	var c Codec
	img, err := c.Wrap(gradient8(4, 4, 1), 4, 4, camera.LayoutGray8)
	require.NoError(t, err)
	defer img.Close()
	_, err = c.EncodeJPEG(img, 0)
	assert.Error(t, err)
}

func TestCodec_CloneIsIndependent(t *testing.T) {
	var c Codec
	data := gradient8(4, 4, 1)
	img, err := c.Wrap(data, 4, 4, camera.LayoutGray8)
	require.NoError(t, err)
	defer img.Close()

	cp, err := c.Clone(img)
	require.NoError(t, err)
	defer cp.Close()

	orig, _ := Mat(img)
	dup, _ := Mat(cp)
	require.Equal(t, orig.GetUCharAt(1, 1), dup.GetUCharAt(1, 1))
	before := orig.GetUCharAt(1, 1)
	dup.SetUCharAt(1, 1, before+1)
	assert.Equal(t, before, orig.GetUCharAt(1, 1))
}

type notAMat struct{}

func (notAMat) Rows() int     { return 0 }
func (notAMat) Cols() int     { return 0 }
func (notAMat) Channels() int { return 0 }
func (notAMat) Close() error  { return nil }

func TestMat_RejectsForeignMatrix(t *testing.T) {
	_, err := Mat(notAMat{})
	assert.Error(t, err)
	var c Codec
	_, err = c.EncodeJPEG(notAMat{}, 255)
	assert.Error(t, err)
}

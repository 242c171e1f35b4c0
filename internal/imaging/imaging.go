// Package imaging implements the pixel operations of the dispatch stage on
// top of OpenCV: wrapping raw buffers, colorspace conversion, demosaicing and
// JPEG coding with dynamic-range rescaling.
package imaging

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"

	"github.com/banshee-data/livestack/internal/camera"
)

var errEmpty = errors.New("empty image")

var layoutTypes = map[camera.Layout]gocv.MatType{
	camera.LayoutGray8:  gocv.MatTypeCV8UC1,
	camera.LayoutGray16: gocv.MatTypeCV16UC1,
	camera.LayoutYUYV:   gocv.MatTypeCV8UC2,
	camera.LayoutBGR24:  gocv.MatTypeCV8UC3,
	camera.LayoutBGR48:  gocv.MatTypeCV16UC3,
}

var demosaicCodes = map[camera.Demosaic]gocv.ColorConversionCode{
	camera.DemosaicBG: gocv.ColorBayerBGToBGR,
	camera.DemosaicGB: gocv.ColorBayerGBToBGR,
	camera.DemosaicRG: gocv.ColorBayerRGToBGR,
	camera.DemosaicGR: gocv.ColorBayerGRToBGR,
}

// Codec is the OpenCV implementation of the dispatch stage's pixel codec.
// It holds no state and is safe for concurrent use.
type Codec struct{}

// Mat returns the OpenCV matrix behind a frame matrix produced by Codec.
func Mat(m camera.Matrix) (*gocv.Mat, error) {
	mat, ok := m.(*gocv.Mat)
	if !ok || mat == nil {
		return nil, fmt.Errorf("matrix %T is not an OpenCV matrix", m)
	}
	return mat, nil
}

func wrap(mat gocv.Mat) (camera.Matrix, error) {
	if mat.Empty() {
		mat.Close()
		return nil, errEmpty
	}
	return &mat, nil
}

// Wrap views data as a height×width image with the given layout.
func (Codec) Wrap(data []byte, width, height int, layout camera.Layout) (camera.Matrix, error) {
	mt, ok := layoutTypes[layout]
	if !ok {
		return nil, fmt.Errorf("unknown layout %d", layout)
	}
	mat, err := gocv.NewMatFromBytes(height, width, mt, data)
	if err != nil {
		return nil, fmt.Errorf("wrap %dx%d buffer: %w", width, height, err)
	}
	return wrap(mat)
}

// YUYVToBGR converts a packed 4:2:2 image to interleaved BGR.
func (Codec) YUYVToBGR(src camera.Matrix) (camera.Matrix, error) {
	in, err := Mat(src)
	if err != nil {
		return nil, err
	}
	out := gocv.NewMat()
	if err := gocv.CvtColor(*in, &out, gocv.ColorYUVToBGRYUY2); err != nil {
		out.Close()
		return nil, fmt.Errorf("yuyv to bgr: %w", err)
	}
	return wrap(out)
}

// Demosaic converts a single channel Bayer image to BGR with routine d.
func (Codec) Demosaic(src camera.Matrix, d camera.Demosaic) (camera.Matrix, error) {
	in, err := Mat(src)
	if err != nil {
		return nil, err
	}
	code, ok := demosaicCodes[d]
	if !ok {
		return nil, fmt.Errorf("unknown demosaic routine %d", d)
	}
	out := gocv.NewMat()
	if err := gocv.CvtColor(*in, &out, code); err != nil {
		out.Close()
		return nil, fmt.Errorf("demosaic %d: %w", d, err)
	}
	return wrap(out)
}

// DecodeJPEG decodes a compressed frame keeping its channel count and depth.
func (Codec) DecodeJPEG(data []byte) (camera.Matrix, error) {
	mat, err := gocv.IMDecode(data, gocv.IMReadUnchanged)
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	m, err := wrap(mat)
	if err != nil {
		return nil, fmt.Errorf("decode jpeg: %w", err)
	}
	return m, nil
}

// EncodeJPEG encodes img for display. An 8-bit image whose dynamic range is
// already 255 is encoded as is; anything else is first scaled linearly by
// 255/dynamicRange into an 8-bit image.
func (Codec) EncodeJPEG(img camera.Matrix, dynamicRange int) ([]byte, error) {
	in, err := Mat(img)
	if err != nil {
		return nil, err
	}
	if dynamicRange <= 0 {
		return nil, fmt.Errorf("invalid dynamic range %d", dynamicRange)
	}

	src := *in
	if !(dynamicRange == camera.DynamicRange8 && in.ElemSize()/in.Channels() == 1) {
		target := gocv.MatTypeCV8UC1
		if in.Channels() == 3 {
			target = gocv.MatTypeCV8UC3
		}
		scaled := gocv.NewMat()
		defer scaled.Close()
		if err := in.ConvertToWithParams(&scaled, target, float32(255.0/float64(dynamicRange)), 0); err != nil {
			return nil, fmt.Errorf("scale to 8 bit: %w", err)
		}
		src = scaled
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, src)
	if err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	defer buf.Close()
	return append([]byte(nil), buf.GetBytes()...), nil
}

// Clone returns a private deep copy of img.
func (Codec) Clone(img camera.Matrix) (camera.Matrix, error) {
	in, err := Mat(img)
	if err != nil {
		return nil, err
	}
	return wrap(in.Clone())
}

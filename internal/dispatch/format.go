package dispatch

import (
	"fmt"

	"github.com/banshee-data/livestack/internal/camera"
)

// Codec is the pixel backend of the format pipeline. imaging.Codec is the
// production implementation.
type Codec interface {
	Wrap(data []byte, width, height int, layout camera.Layout) (camera.Matrix, error)
	YUYVToBGR(src camera.Matrix) (camera.Matrix, error)
	Demosaic(src camera.Matrix, d camera.Demosaic) (camera.Matrix, error)
	DecodeJPEG(data []byte) (camera.Matrix, error)
	EncodeJPEG(img camera.Matrix, dynamicRange int) ([]byte, error)
	Clone(img camera.Matrix) (camera.Matrix, error)
}

// prepare validates f and fills in its dynamic range, JPEG rendition and,
// when needFull is set, its working matrix and raw view. On error the frame
// must be dropped; any matrices already attached are released with it.
func prepare(codec Codec, f *camera.Frame, needFull bool) error {
	format := f.Format

	if format.Type == camera.StreamError {
		return fmt.Errorf("frame with error: %s", string(f.Source))
	}

	switch format.Type {
	case camera.StreamMJPEG, camera.StreamYUV2, camera.StreamRGB24, camera.StreamRGB48,
		camera.StreamRaw8, camera.StreamRaw16, camera.StreamMono8, camera.StreamMono16:
	default:
		return fmt.Errorf("unsupported stream format %d", int(format.Type))
	}

	if want, fixed := format.ExpectedSize(); fixed {
		if format.Width <= 0 || format.Height <= 0 {
			return fmt.Errorf("invalid frame dimensions %dx%d", format.Width, format.Height)
		}
		if len(f.Source) != want {
			return fmt.Errorf("invalid frame size got %d bytes, expected %d", len(f.Source), want)
		}
	}

	w, h := format.Width, format.Height
	switch format.Type {
	case camera.StreamMJPEG:
		f.JPEG = f.Source
		if !needFull {
			return nil
		}
		img, err := codec.DecodeJPEG(f.Source)
		if err != nil {
			return fmt.Errorf("failed to extract jpeg: %w", err)
		}
		f.DynamicRange = camera.DynamicRange8
		f.Working = img
		f.Raw = img
		return nil

	case camera.StreamYUV2:
		packed, err := codec.Wrap(f.Source, w, h, camera.LayoutYUYV)
		if err != nil {
			return err
		}
		f.Raw = packed
		bgr, err := codec.YUYVToBGR(packed)
		if err != nil {
			return fmt.Errorf("yuv2 conversion: %w", err)
		}
		f.DynamicRange = camera.DynamicRange8
		return render(codec, f, bgr, false, needFull)

	case camera.StreamRGB24, camera.StreamRGB48:
		layout, dr := camera.LayoutBGR24, camera.DynamicRange8
		if format.Type == camera.StreamRGB48 {
			layout, dr = camera.LayoutBGR48, camera.DynamicRange16
		}
		rgb, err := codec.Wrap(f.Source, w, h, layout)
		if err != nil {
			return err
		}
		f.Raw = rgb
		f.DynamicRange = dr
		return render(codec, f, rgb, format.Type == camera.StreamRGB24, needFull)

	case camera.StreamRaw8, camera.StreamRaw16:
		routine, ok := f.Bayer.Demosaic()
		if !ok {
			return fmt.Errorf("invalid bayer pattern %d for %s", int(f.Bayer), format)
		}
		layout, dr := depth(format.Type == camera.StreamRaw8)
		bayer, err := codec.Wrap(f.Source, w, h, layout)
		if err != nil {
			return err
		}
		f.Raw = bayer
		rgb, err := codec.Demosaic(bayer, routine)
		if err != nil {
			return fmt.Errorf("demosaic: %w", err)
		}
		f.DynamicRange = dr
		return render(codec, f, rgb, false, needFull)

	case camera.StreamMono8, camera.StreamMono16:
		layout, dr := depth(format.Type == camera.StreamMono8)
		mono, err := codec.Wrap(f.Source, w, h, layout)
		if err != nil {
			return err
		}
		f.Raw = mono
		f.DynamicRange = dr
		return render(codec, f, mono, true, needFull)
	}
	return nil
}

func depth(eightBit bool) (camera.Layout, int) {
	if eightBit {
		return camera.LayoutGray8, camera.DynamicRange8
	}
	return camera.LayoutGray16, camera.DynamicRange16
}

// render produces the JPEG rendition from img and decides what the frame
// keeps. img is either a fresh conversion result (owned here) or the raw
// view itself (owned by the frame). copyWorking requests a private copy for
// the working matrix because img aliases the raw view.
func render(codec Codec, f *camera.Frame, img camera.Matrix, copyWorking, needFull bool) error {
	owned := img != f.Raw
	release := func() {
		if owned {
			img.Close()
		}
	}

	jpg, err := codec.EncodeJPEG(img, f.DynamicRange)
	if err != nil {
		release()
		return fmt.Errorf("jpeg encode: %w", err)
	}
	f.JPEG = jpg

	if !needFull {
		release()
		return nil
	}
	if copyWorking {
		working, err := codec.Clone(img)
		release()
		if err != nil {
			return fmt.Errorf("copy working image: %w", err)
		}
		f.Working = working
		return nil
	}
	f.Working = img
	return nil
}

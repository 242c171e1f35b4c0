package camera

import (
	"fmt"
	"strings"
)

// StreamType identifies the pixel layout of frames delivered by a camera.
type StreamType int

const (
	StreamYUV2 StreamType = iota
	StreamMJPEG
	StreamRGB24
	StreamRGB48
	StreamRaw8
	StreamRaw16
	StreamMono8
	StreamMono16
	// StreamError marks a frame whose payload is a UTF-8 error message from
	// the driver rather than pixels. It has no string encoding.
	StreamError
)

var streamTypeNames = map[StreamType]string{
	StreamYUV2:   "yuv2",
	StreamMJPEG:  "mjpeg",
	StreamRGB24:  "rgb24",
	StreamRGB48:  "rgb48",
	StreamRaw8:   "raw8",
	StreamRaw16:  "raw16",
	StreamMono8:  "mono8",
	StreamMono16: "mono16",
}

// StreamTypes lists every stream type that has a string encoding.
func StreamTypes() []StreamType {
	return []StreamType{
		StreamYUV2, StreamMJPEG, StreamRGB24, StreamRGB48,
		StreamRaw8, StreamRaw16, StreamMono8, StreamMono16,
	}
}

// StreamTypeString returns the wire name of s, e.g. "raw16".
func StreamTypeString(s StreamType) (string, error) {
	name, ok := streamTypeNames[s]
	if !ok {
		return "", camErrorf("invalid stream type %d", int(s))
	}
	return name, nil
}

// ParseStreamType is the inverse of StreamTypeString. Matching is case exact.
func ParseStreamType(s string) (StreamType, error) {
	for t, name := range streamTypeNames {
		if name == s {
			return t, nil
		}
	}
	return 0, camErrorf("invalid stream type %s", s)
}

// IsMono reports whether frames of this type carry a single, non-Bayer
// channel.
func (s StreamType) IsMono() bool {
	return s == StreamMono8 || s == StreamMono16
}

// BytesPerPixel returns the fixed bytes-per-pixel of s, or 0 when the size
// cannot be derived from the dimensions (compressed or error frames).
func (s StreamType) BytesPerPixel() int {
	switch s {
	case StreamMono8, StreamRaw8:
		return 1
	case StreamYUV2, StreamMono16, StreamRaw16:
		return 2
	case StreamRGB24:
		return 3
	case StreamRGB48:
		return 6
	}
	return 0
}

// StreamFormat describes the stream a frame was captured with.
type StreamFormat struct {
	Type      StreamType
	Width     int
	Height    int
	Framerate int
	Bin       int
}

// ExpectedSize returns the byte length a frame of this format must have, and
// false when the format has no fixed size.
func (f StreamFormat) ExpectedSize() (int, bool) {
	bpp := f.Type.BytesPerPixel()
	if bpp == 0 {
		return 0, false
	}
	return f.Width * f.Height * bpp, true
}

// String renders the format as "RAW16:1920x1080@30".
func (f StreamFormat) String() string {
	tag := "Unknown"
	if name, ok := streamTypeNames[f.Type]; ok {
		tag = strings.ToUpper(name)
	}
	return fmt.Sprintf("%s:%dx%d@%d", tag, f.Width, f.Height, f.Framerate)
}

// ParseStreamFormat accepts the String rendering of a format ("RAW16:1920x1080@30");
// the type tag is matched case-insensitively and the framerate is optional.
func ParseStreamFormat(s string) (StreamFormat, error) {
	tag, dims, ok := strings.Cut(s, ":")
	if !ok {
		return StreamFormat{}, camErrorf("invalid stream format %q", s)
	}
	t, err := ParseStreamType(strings.ToLower(tag))
	if err != nil {
		return StreamFormat{}, err
	}
	f := StreamFormat{Type: t}
	size, rate, hasRate := strings.Cut(dims, "@")
	if _, err := fmt.Sscanf(size, "%dx%d", &f.Width, &f.Height); err != nil || f.Width <= 0 || f.Height <= 0 {
		return StreamFormat{}, camErrorf("invalid stream format size %q", dims)
	}
	if hasRate {
		if _, err := fmt.Sscanf(rate, "%d", &f.Framerate); err != nil || f.Framerate < 0 {
			return StreamFormat{}, camErrorf("invalid stream format framerate %q", rate)
		}
	}
	return f, nil
}

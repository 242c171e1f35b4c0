package camera

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Dynamic range ceilings for 8 and 16 bit frames.
const (
	DynamicRange8  = 255
	DynamicRange16 = 65535
)

// Matrix is a decoded pixel buffer attached to a Frame. The concrete type is
// owned by the imaging package; consumers that need pixel access assert to
// it.
type Matrix interface {
	Rows() int
	Cols() int
	Channels() int
	Close() error
}

// Frame is one captured image travelling through the pipeline.
//
// A Frame may be held by several downstream queues at once. Each holder owns
// one reference: the capture path owns the first, every fan-out Retain adds
// one, and every holder calls Release exactly once when it is done. The
// attached matrices are closed when the last reference is released.
type Frame struct {
	ID        string
	Timestamp time.Time
	Format    StreamFormat
	Bayer     BayerPattern
	Source    []byte

	// Populated by the dispatch stage.
	DynamicRange int
	JPEG         []byte
	Working      Matrix // full-precision image; nil unless a consumer needs it
	Raw          Matrix // pre-demosaic view of Source

	refs      atomic.Int32
	closeOnce sync.Once
}

// NewFrame wraps a captured buffer. The returned frame holds one reference
// owned by the caller.
func NewFrame(format StreamFormat, bayer BayerPattern, source []byte) *Frame {
	f := &Frame{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		Format:    format,
		Bayer:     bayer,
		Source:    source,
	}
	f.refs.Store(1)
	return f
}

// Retain adds a reference and returns f for chaining.
func (f *Frame) Retain() *Frame {
	f.refs.Add(1)
	return f
}

// Release drops a reference. The matrices are closed when the count reaches
// zero; releasing more times than retained is a no-op.
func (f *Frame) Release() {
	if f.refs.Add(-1) != 0 {
		return
	}
	f.closeOnce.Do(f.DiscardMatrices)
}

// Refs returns the current reference count.
func (f *Frame) Refs() int { return int(f.refs.Load()) }

// DiscardMatrices closes and detaches the working matrix and raw view. The
// caller must be the only holder of the frame.
func (f *Frame) DiscardMatrices() {
	if f.Working != nil {
		f.Working.Close()
	}
	if f.Raw != nil && f.Raw != f.Working {
		f.Raw.Close()
	}
	f.Working = nil
	f.Raw = nil
}

package camera

import (
	"context"
	"errors"
	"fmt"
)

// ErrActorStopped is returned for requests submitted after the actor exited.
var ErrActorStopped = errors.New("camera actor stopped")

// Camera is an open camera as seen by the host. Implementations need not be
// safe for concurrent use: the Actor is the only caller.
type Camera interface {
	SupportedOptions() ([]OptionID, error)
	Parameter(id OptionID, current bool) (Param, error)
	SetParameter(id OptionID, value float64) error
	StreamFormats() ([]StreamFormat, error)
	// StartStream begins delivering frames to sink from a capture goroutine
	// owned by the camera. Ownership of each frame's first reference passes
	// to sink.
	StartStream(format StreamFormat, sink func(*Frame)) error
	StopStream() error
	Close() error
}

type actorRequest struct {
	fn    func(Camera) error
	reply chan error
}

// Actor serialises every operation on a Camera through one goroutine.
// A caller that needs several operations to observe a consistent camera
// (for example reading all options to build a session snapshot) submits them
// as a single Do closure.
type Actor struct {
	cam      Camera
	requests chan actorRequest
	done     chan struct{}

	// touched only on the actor goroutine
	streaming bool
	format    StreamFormat
}

// NewActor wraps cam. Call Run to start serving requests.
func NewActor(cam Camera) *Actor {
	return &Actor{
		cam:      cam,
		requests: make(chan actorRequest),
		done:     make(chan struct{}),
	}
}

// Run serves requests until ctx is cancelled. An active stream is stopped
// and the camera closed before Run returns.
func (a *Actor) Run(ctx context.Context) error {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			if a.streaming {
				if err := a.cam.StopStream(); err != nil {
					opsf("stop stream on shutdown: %v", err)
				}
				a.streaming = false
			}
			if err := a.cam.Close(); err != nil {
				opsf("close camera: %v", err)
			}
			return ctx.Err()
		case req := <-a.requests:
			req.reply <- req.fn(a.cam)
		}
	}
}

// Do runs fn on the actor goroutine and returns its error. ctx only bounds
// the wait for the actor to accept the request: once accepted, Do waits for
// fn to complete, so anything fn captured is safe to read when Do returns.
func (a *Actor) Do(ctx context.Context, fn func(Camera) error) error {
	req := actorRequest{fn: fn, reply: make(chan error, 1)}
	select {
	case a.requests <- req:
	case <-a.done:
		return ErrActorStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	// Run replies to every request it receives before checking ctx again.
	return <-req.reply
}

// Parameter reads one option.
func (a *Actor) Parameter(ctx context.Context, id OptionID) (Param, error) {
	var p Param
	err := a.Do(ctx, func(c Camera) error {
		var err error
		p, err = c.Parameter(id, true)
		tracef("get option %d = %v (err=%v)", id, p.Current, err)
		return err
	})
	return p, err
}

// SetParameter writes one option.
func (a *Actor) SetParameter(ctx context.Context, id OptionID, value float64) error {
	return a.Do(ctx, func(c Camera) error {
		tracef("set option %d = %v", id, value)
		return c.SetParameter(id, value)
	})
}

// Snapshot reads the current value of every supported option in one request.
func (a *Actor) Snapshot(ctx context.Context) (map[OptionID]Param, error) {
	var snap map[OptionID]Param
	err := a.Do(ctx, func(c Camera) error {
		ids, err := c.SupportedOptions()
		if err != nil {
			return fmt.Errorf("list options: %w", err)
		}
		snap = make(map[OptionID]Param, len(ids))
		for _, id := range ids {
			p, err := c.Parameter(id, true)
			if err != nil {
				return fmt.Errorf("read option %d: %w", id, err)
			}
			snap[id] = p
		}
		return nil
	})
	return snap, err
}

// StartStream starts streaming in format, stopping any current stream first.
func (a *Actor) StartStream(ctx context.Context, format StreamFormat, sink func(*Frame)) error {
	return a.Do(ctx, func(c Camera) error {
		if a.streaming {
			if err := c.StopStream(); err != nil {
				return fmt.Errorf("stop current stream: %w", err)
			}
			a.streaming = false
		}
		if err := c.StartStream(format, sink); err != nil {
			return err
		}
		a.streaming = true
		a.format = format
		diagf("stream started %s", format)
		return nil
	})
}

// StopStream stops the current stream; it is a no-op when not streaming.
func (a *Actor) StopStream(ctx context.Context) error {
	return a.Do(ctx, func(c Camera) error {
		if !a.streaming {
			return nil
		}
		if err := c.StopStream(); err != nil {
			return err
		}
		a.streaming = false
		diagf("stream stopped %s", a.format)
		return nil
	})
}

// StreamFormat returns the active stream format and whether a stream is
// running.
func (a *Actor) StreamFormat(ctx context.Context) (StreamFormat, bool, error) {
	var (
		f  StreamFormat
		on bool
	)
	err := a.Do(ctx, func(Camera) error {
		f, on = a.format, a.streaming
		return nil
	})
	return f, on, err
}

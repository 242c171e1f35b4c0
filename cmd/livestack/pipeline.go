package main

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/dispatch"
	"github.com/banshee-data/livestack/internal/journal"
	"github.com/banshee-data/livestack/internal/message"
	"github.com/banshee-data/livestack/internal/monitoring"
)

// pipeline owns the queues and stage goroutines downstream of the camera.
type pipeline struct {
	input *message.Queue
	out   dispatch.Outputs
	stage *dispatch.Stage

	recorder *journal.Recorder
	live     *sink
	stack    *sink
	plate    *sink

	stageDone chan struct{}
	wg        sync.WaitGroup
}

// newPipeline builds the queues and stages. store may be nil, in which case
// the debug output is drained without recording.
func newPipeline(codec dispatch.Codec, store *journal.Store, plateSolve bool, live func(*camera.Frame)) *pipeline {
	p := &pipeline{
		input: message.NewQueue(),
		out: dispatch.Outputs{
			Live:  message.NewQueue(),
			Stack: message.NewQueue(),
			Debug: message.NewQueue(),
		},
		stageDone: make(chan struct{}),
	}
	if plateSolve {
		p.out.PlateSolve = message.NewQueue()
		p.plate = newSink("plate-solve", p.out.PlateSolve, nil)
	}
	p.stage = dispatch.New(p.input, p.out, codec)
	p.live = newSink("live", p.out.Live, live)
	p.stack = newSink("stack", p.out.Stack, nil)
	if store != nil {
		p.recorder = journal.NewRecorder(store, p.out.Debug)
	}
	return p
}

// start launches the stage and every consumer.
func (p *pipeline) start(ctx context.Context) {
	p.goRun(func() {
		defer close(p.stageDone)
		p.stage.Run()
	})
	p.goRun(p.live.run)
	p.goRun(p.stack.run)
	if p.plate != nil {
		p.goRun(p.plate.run)
	}
	if p.recorder != nil {
		p.goRun(func() { p.recorder.Run(ctx) })
	} else {
		debug := newSink("debug", p.out.Debug, nil)
		p.goRun(debug.run)
	}
}

func (p *pipeline) goRun(fn func()) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		fn()
	}()
}

// push is the camera sink: it hands the frame's first reference to the
// dispatch stage.
func (p *pipeline) push(f *camera.Frame) {
	p.input.Push(message.Frame{Frame: f})
}

// shutdown sends the termination sentinel and waits for every stage. The
// dispatch stage does not forward Shutdown to the plate-solving output, so
// it is sent here once the stage has exited.
func (p *pipeline) shutdown() {
	p.input.Push(message.Shutdown{})
	<-p.stageDone
	if p.plate != nil {
		p.out.PlateSolve.Push(message.Shutdown{})
	}
	p.wg.Wait()
}

// status summarises the dispatch counters for periodic reports.
func (p *pipeline) status() string {
	c := p.stage.Counters()
	s := p.stage.State()
	return fmt.Sprintf("frames=%d dropped=%d stacked=%d debug=%d plate=%d controls=%d live_out=%d active=%t in_process=%t",
		c.Frames, c.Dropped, c.Stacked, c.Debugged, c.PlateSolve, c.Controls, p.live.count(),
		s.StackingActive, s.StackingInProcess)
}

// sink is a terminal consumer standing in for an external collaborator. It
// hands frames to onFrame, if set, and releases them.
type sink struct {
	name    string
	in      *message.Queue
	onFrame func(*camera.Frame)
	frames  atomic.Uint64
}

func newSink(name string, in *message.Queue, onFrame func(*camera.Frame)) *sink {
	return &sink{name: name, in: in, onFrame: onFrame}
}

func (s *sink) run() {
	for {
		switch m := s.in.Pop().(type) {
		case message.Shutdown:
			monitoring.Logf("%s consumer exiting after %d frames", s.name, s.count())
			return
		case message.Frame:
			s.frames.Add(1)
			if s.onFrame != nil {
				s.onFrame(m.Frame)
			}
			m.Release()
		}
	}
}

func (s *sink) count() uint64 { return s.frames.Load() }

package dispatch

import (
	"sync"
	"sync/atomic"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/message"
)

// Outputs are the downstream queues of the stage. Live, Stack and Debug are
// required; PlateSolve is nil when no plate solver is attached.
type Outputs struct {
	Live       *message.Queue
	Stack      *message.Queue
	Debug      *message.Queue
	PlateSolve *message.Queue
}

// Counters is a snapshot of the stage's frame accounting.
type Counters struct {
	Frames     uint64 // frame messages received
	Dropped    uint64 // frames that failed the format pipeline
	Stacked    uint64 // frames forwarded to the stacking output
	Debugged   uint64 // frames forwarded to the debug output
	PlateSolve uint64 // frames forwarded to the plate-solving output
	Controls   uint64 // control messages forwarded
	Ignored    uint64 // messages of a kind the stage does not handle
}

// Stage consumes the input queue on one goroutine and fans out to Outputs.
type Stage struct {
	in    *message.Queue
	out   Outputs
	codec Codec

	stateMu sync.Mutex
	state   State

	frames, dropped, stacked, debugged, plateSolve, controls, ignored atomic.Uint64
}

// New returns a stage reading from in. It does nothing until Run is called.
func New(in *message.Queue, out Outputs, codec Codec) *Stage {
	return &Stage{in: in, out: out, codec: codec}
}

// Run processes messages until it receives Shutdown, which it forwards once
// to the live, stacking and debug outputs before returning.
func (s *Stage) Run() {
	diagf("dispatch stage started (plate solving attached: %t)", s.out.PlateSolve != nil)
	for {
		switch m := s.in.Pop().(type) {
		case message.Shutdown:
			s.out.Live.Push(m)
			s.out.Stack.Push(m)
			s.out.Debug.Push(m)
			diagf("shutdown forwarded; dispatch stage exiting")
			return
		case message.Frame:
			s.handleFrame(m.Frame)
		case *message.Control:
			s.handleControl(m)
		case *message.Stats, *message.Error:
			s.ignored.Add(1)
			opsf("unexpected %s message for dispatch stage; dropped", m.Kind())
		default:
			s.ignored.Add(1)
			opsf("invalid data for dispatch stage (%T); dropped", m)
		}
	}
}

func (s *Stage) handleControl(c *message.Control) {
	s.stateMu.Lock()
	before := s.state
	s.state = before.Apply(c)
	after := s.state
	s.stateMu.Unlock()

	if before != after {
		diagf("control %s: active %t->%t in_process %t->%t debug %t->%t", c.Op,
			before.StackingActive, after.StackingActive,
			before.StackingInProcess, after.StackingInProcess,
			before.DebugActive, after.DebugActive)
	}

	s.controls.Add(1)
	s.out.Live.Push(c)
	s.out.Stack.Push(c)
	s.out.Debug.Push(c)
}

func (s *Stage) handleFrame(f *camera.Frame) {
	s.frames.Add(1)
	// only this goroutine writes state, so reading it unlocked here is safe
	st := s.state
	needFull := st.StackingActive || s.out.PlateSolve != nil

	if err := prepare(s.codec, f, needFull); err != nil {
		s.dropped.Add(1)
		opsf("frame %s (%s) dropped: %v", f.ID, f.Format, err)
		f.Release()
		return
	}
	if !needFull {
		f.DiscardMatrices()
	}

	s.out.Live.Push(message.Frame{Frame: f.Retain()})
	if st.StackingActive {
		s.stacked.Add(1)
		s.out.Stack.Push(message.Frame{Frame: f.Retain()})
	}
	if st.DebugActive && st.StackingActive {
		s.debugged.Add(1)
		s.out.Debug.Push(message.Frame{Frame: f.Retain()})
	}
	if s.out.PlateSolve != nil && !st.StackingInProcess {
		s.plateSolve.Add(1)
		s.out.PlateSolve.Push(message.Frame{Frame: f.Retain()})
	}
	tracef("frame %s %s routed (active=%t debug=%t in_process=%t)",
		f.ID, f.Format, st.StackingActive, st.DebugActive, st.StackingInProcess)
	f.Release()
}

// State returns the current session state.
func (s *Stage) State() State {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	return s.state
}

// Counters returns the current frame accounting.
func (s *Stage) Counters() Counters {
	return Counters{
		Frames:     s.frames.Load(),
		Dropped:    s.dropped.Load(),
		Stacked:    s.stacked.Load(),
		Debugged:   s.debugged.Load(),
		PlateSolve: s.plateSolve.Load(),
		Controls:   s.controls.Load(),
		Ignored:    s.ignored.Load(),
	}
}

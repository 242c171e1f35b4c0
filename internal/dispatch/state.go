package dispatch

import "github.com/banshee-data/livestack/internal/message"

// State is the session state tracked by the dispatch stage.
type State struct {
	// StackingActive is true while frames should reach the stacking output.
	StackingActive bool
	// StackingInProcess is true from init until save or cancel, including
	// while paused.
	StackingInProcess bool
	// DebugActive mirrors the SaveInputs flag of the last init.
	DebugActive bool
}

// Apply returns the state after control c.
func (s State) Apply(c *message.Control) State {
	switch c.Op {
	case message.OpInit:
		s.StackingActive = true
		s.StackingInProcess = true
		s.DebugActive = c.SaveInputs
	case message.OpResume:
		s.StackingActive = true
		s.StackingInProcess = true
	case message.OpPause:
		s.StackingActive = false
		s.StackingInProcess = true
	case message.OpSave, message.OpCancel:
		s.StackingActive = false
		s.StackingInProcess = false
	case message.OpUpdate:
	}
	return s
}

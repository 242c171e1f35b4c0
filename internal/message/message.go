// Package message defines the closed set of values exchanged between
// pipeline stages.
//
// Every stage switches exhaustively over the concrete types below. Adding a
// new kind means adding a forwarding rule everywhere Control and Shutdown are
// forwarded today, otherwise the dispatch stage drops it.
package message

import (
	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/queue"
)

// Kind is the tag of a Message.
type Kind int

const (
	KindFrame Kind = iota
	KindControl
	KindShutdown
	KindStats
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindFrame:
		return "frame"
	case KindControl:
		return "control"
	case KindShutdown:
		return "shutdown"
	case KindStats:
		return "stats"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Message is implemented only by the types in this package.
type Message interface {
	Kind() Kind
	isMessage()
}

// Queue is the inter-stage queue type.
type Queue = queue.Queue[Message]

// NewQueue returns an empty inter-stage queue.
func NewQueue() *Queue { return queue.New[Message]() }

// Frame carries one shared camera frame. The holder of a Frame message owns
// one reference and must Release it when done.
type Frame struct {
	*camera.Frame
}

// Shutdown is the termination sentinel. A stage that receives it forwards
// exactly one to each of its outputs and exits.
type Shutdown struct{}

// Stats is published by the stacking engine after each processed frame.
type Stats struct {
	Stacked     int
	Missed      int
	Dropped     int
	SinceSavedS float64
	Histogram   []int
}

// Error reports a failure in a downstream collaborator.
type Error struct {
	Message string
	Source  string
}

func (Frame) Kind() Kind    { return KindFrame }
func (*Control) Kind() Kind { return KindControl }
func (Shutdown) Kind() Kind { return KindShutdown }
func (*Stats) Kind() Kind   { return KindStats }
func (*Error) Kind() Kind   { return KindError }

func (Frame) isMessage()    {}
func (*Control) isMessage() {}
func (Shutdown) isMessage() {}
func (*Stats) isMessage()   {}
func (*Error) isMessage()   {}

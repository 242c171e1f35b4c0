package journal

import (
	"context"

	"github.com/google/uuid"

	"github.com/banshee-data/livestack/internal/message"
	"github.com/banshee-data/livestack/internal/timeutil"
)

// Recorder is a downstream consumer that writes everything it receives to
// a Store. It is attached to the debug output of the dispatch stage, which
// carries every control plus the frames saved for a session.
type Recorder struct {
	store *Store
	in    *message.Queue
	clock timeutil.Clock

	session string // id of the open session, empty when none
}

// NewRecorder returns a recorder reading from in.
func NewRecorder(store *Store, in *message.Queue) *Recorder {
	return &Recorder{store: store, in: in, clock: timeutil.RealClock{}}
}

// Run consumes messages until Shutdown. Storage failures are logged and
// the message skipped; frames are always released.
func (r *Recorder) Run(ctx context.Context) {
	for {
		switch m := r.in.Pop().(type) {
		case message.Shutdown:
			if r.session != "" {
				diagf("shutdown with session %s still open", r.session)
			}
			return
		case message.Frame:
			r.frame(ctx, m)
		case *message.Control:
			r.control(ctx, m)
		case *message.Stats:
			if err := r.store.RecordStats(ctx, r.session, m, r.clock.Now()); err != nil {
				opsf("%v", err)
			}
		case *message.Error:
			if err := r.store.RecordError(ctx, r.session, m, r.clock.Now()); err != nil {
				opsf("%v", err)
			}
		}
	}
}

// Session returns the id of the open session. It must only be called from
// the goroutine running Run, or after Run returned.
func (r *Recorder) Session() string { return r.session }

func (r *Recorder) frame(ctx context.Context, m message.Frame) {
	defer m.Release()
	if r.session == "" {
		opsf("frame %s outside a session; not recorded", m.ID)
		return
	}
	if err := r.store.RecordFrame(ctx, r.session, m.Frame); err != nil {
		opsf("%v", err)
	}
}

func (r *Recorder) control(ctx context.Context, c *message.Control) {
	at := r.clock.Now()
	if c.Op == message.OpInit {
		if r.session != "" {
			// a new init replaces the running session
			if err := r.store.EndSession(ctx, r.session, message.OpCancel, at); err != nil {
				opsf("%v", err)
			}
		}
		id := uuid.NewString()
		if err := r.store.BeginSession(ctx, id, c, at); err != nil {
			opsf("%v", err)
			r.session = ""
			return
		}
		r.session = id
		diagf("session %s started (%s, %s)", id, c.Name, c.Format)
	}
	if r.session == "" {
		diagf("control %s outside a session; not recorded", c.Op)
		return
	}
	if err := r.store.RecordControl(ctx, r.session, c.Op, at); err != nil {
		opsf("%v", err)
	}
	if c.Op == message.OpSave || c.Op == message.OpCancel {
		if err := r.store.EndSession(ctx, r.session, c.Op, at); err != nil {
			opsf("%v", err)
		}
		diagf("session %s ended by %s", r.session, c.Op)
		r.session = ""
	}
}

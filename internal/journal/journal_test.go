package journal

import (
	"context"
	"encoding/binary"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/message"
	"github.com/banshee-data/livestack/internal/timeutil"
)

// steppingClock advances one second before every reading.
type steppingClock struct {
	*timeutil.MockClock
}

func (c *steppingClock) Now() time.Time {
	c.Advance(time.Second)
	return c.MockClock.Now()
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "journal", "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func initControl(name string) *message.Control {
	c := message.NewControl(message.OpInit)
	c.Name = name
	c.OutputPath = "/data/stacked/" + name
	c.Format = "mono8"
	c.Mono = true
	c.Width, c.Height = 2, 2
	c.SaveInputs = true
	c.SourceGamma = 2.2
	return c
}

func TestOpen_AppliesMigrations(t *testing.T) {
	s := openTestStore(t)
	version, dirty, err := s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	require.NoError(t, s.MigrateDown())
	version, _, err = s.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, s.MigrateUp())
	require.NoError(t, s.MigrateUp(), "no change is not an error")
}

func TestOpen_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.BeginSession(context.Background(), "a", initControl("m31"), time.Now()))
	require.NoError(t, s.Close())

	s, err = Open(path)
	require.NoError(t, err)
	defer s.Close()
	sessions, err := s.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "m31", sessions[0].Name)
}

func TestRecorder_SessionHistory(t *testing.T) {
	s := openTestStore(t)
	q := message.NewQueue()
	r := NewRecorder(s, q)
	start := time.Date(2026, 3, 14, 21, 0, 0, 0, time.UTC)
	r.clock = &steppingClock{MockClock: timeutil.NewMockClock(start)}

	f1 := camera.NewFrame(camera.StreamFormat{Type: camera.StreamMono8, Width: 2, Height: 2}, camera.BayerNA, []byte{0, 255, 0, 255})
	f1.DynamicRange = camera.DynamicRange8
	stray := camera.NewFrame(camera.StreamFormat{Type: camera.StreamMono8, Width: 2, Height: 2}, camera.BayerNA, make([]byte, 4))

	q.Push(message.Frame{Frame: stray})
	q.Push(initControl("m31"))
	q.Push(message.Frame{Frame: f1})
	q.Push(message.NewControl(message.OpPause))
	q.Push(&message.Stats{Stacked: 10, Missed: 1, Histogram: []int{0, 1, 3}})
	q.Push(&message.Error{Message: "alignment failed", Source: "stacker"})
	q.Push(message.NewControl(message.OpSave))
	q.Push(&message.Error{Message: "disk full", Source: "saver"})
	q.Push(message.Shutdown{})

	r.Run(context.Background())

	assert.Equal(t, 0, f1.Refs())
	assert.Equal(t, 0, stray.Refs())
	assert.Empty(t, r.Session())

	ctx := context.Background()
	sessions, err := s.Sessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	sess := sessions[0]
	require.NotNil(t, sess.EndedAt)

	want := Session{
		ID: sess.ID, Name: "m31", OutputPath: "/data/stacked/m31", Format: "mono8",
		Width: 2, Height: 2, Mono: true, SaveInputs: true, SourceGamma: 2.2,
		StartedAt: start.Add(1 * time.Second),
		EndedAt:   sess.EndedAt,
		EndOp:     "save",
	}
	if diff := cmp.Diff(want, sess); diff != "" {
		t.Errorf("session mismatch (-want +got):\n%s", diff)
	}
	assert.True(t, sess.EndedAt.Equal(start.Add(5*time.Second)))

	ops, err := s.Controls(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"init", "pause", "save"}, ops)

	frames, err := s.Frames(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, f1.ID, frames[0].FrameID)
	assert.Equal(t, "mono8", frames[0].Format)
	assert.Equal(t, "NA", frames[0].Bayer)
	assert.Equal(t, 4, frames[0].Bytes)
	assert.Equal(t, 255, frames[0].DynamicRange)
	require.NotNil(t, frames[0].Mean)
	assert.InDelta(t, 127.5, *frames[0].Mean, 1e-9)
	assert.InDelta(t, 147.224, *frames[0].StdDev, 1e-3)

	stats, errs, err := s.Counts(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats)
	assert.Equal(t, 1, errs)

	stats, errs, err = s.Counts(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 1, stats)
	assert.Equal(t, 2, errs, "errors outside a session are kept")
}

func TestRecorder_InitReplacesOpenSession(t *testing.T) {
	s := openTestStore(t)
	q := message.NewQueue()
	r := NewRecorder(s, q)

	q.Push(initControl("first"))
	q.Push(initControl("second"))
	q.Push(message.NewControl(message.OpCancel))
	q.Push(message.NewControl(message.OpResume)) // after the session ended
	q.Push(message.Shutdown{})
	r.Run(context.Background())

	sessions, err := s.Sessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	names := map[string]string{}
	for _, sess := range sessions {
		names[sess.Name] = sess.EndOp
	}
	assert.Equal(t, map[string]string{"first": "cancel", "second": "cancel"}, names)
}

func TestStore_EndSessionTwice(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	require.NoError(t, s.BeginSession(ctx, "id-1", initControl("x"), time.Now()))
	require.NoError(t, s.EndSession(ctx, "id-1", message.OpSave, time.Now()))
	assert.Error(t, s.EndSession(ctx, "id-1", message.OpCancel, time.Now()))
}

func TestSourceLevels(t *testing.T) {
	raw16 := make([]byte, 8)
	for i, v := range []uint16{1000, 3000, 1000, 3000} {
		binary.LittleEndian.PutUint16(raw16[2*i:], v)
	}
	tests := []struct {
		name     string
		f        *camera.Frame
		wantOK   bool
		wantMean float64
	}{
		{"mono8", camera.NewFrame(camera.StreamFormat{Type: camera.StreamMono8}, camera.BayerNA, []byte{10, 20, 30}), true, 20},
		{"raw16", camera.NewFrame(camera.StreamFormat{Type: camera.StreamRaw16}, camera.BayerRGGB, raw16), true, 2000},
		{"mjpeg", camera.NewFrame(camera.StreamFormat{Type: camera.StreamMJPEG}, camera.BayerNA, []byte{1, 2, 3}), false, 0},
		{"single sample", camera.NewFrame(camera.StreamFormat{Type: camera.StreamMono8}, camera.BayerNA, []byte{1}), false, 0},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			mean, _, ok := sourceLevels(tc.f)
			assert.Equal(t, tc.wantOK, ok)
			assert.InDelta(t, tc.wantMean, mean, 1e-9)
		})
	}
}

func TestSourceLevels_Subsamples(t *testing.T) {
	src := make([]byte, 3*maxSamples)
	for i := range src {
		src[i] = byte(i % 2 * 200)
	}
	f := camera.NewFrame(camera.StreamFormat{Type: camera.StreamRaw8}, camera.BayerRGGB, src)
	mean, _, ok := sourceLevels(f)
	require.True(t, ok)
	// stride 3 over an alternating 0/200 pattern still sees both levels
	assert.InDelta(t, 100, mean, 1)
}

func TestHistogramMean(t *testing.T) {
	m, ok := histogramMean([]int{0, 1, 3})
	require.True(t, ok)
	assert.InDelta(t, 1.75, m, 1e-9)

	_, ok = histogramMean(nil)
	assert.False(t, ok)
	_, ok = histogramMean([]int{0, 0})
	assert.False(t, ok)
}

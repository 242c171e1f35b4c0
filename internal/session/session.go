// Package session turns operator requests into Control messages for the
// dispatch stage and tracks the coarse session status shown to operators.
package session

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/banshee-data/livestack/internal/camera"
	"github.com/banshee-data/livestack/internal/message"
	"github.com/banshee-data/livestack/internal/security"
	"github.com/banshee-data/livestack/internal/timeutil"
)

// Status is the operator-visible session status.
type Status int

const (
	StatusIdle Status = iota
	StatusStacking
	StatusPaused
)

func (s Status) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusStacking:
		return "stacking"
	case StatusPaused:
		return "paused"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Camera is the subset of camera.Actor the session needs.
type Camera interface {
	Snapshot(ctx context.Context) (map[camera.OptionID]camera.Param, error)
	StreamFormat(ctx context.Context) (camera.StreamFormat, bool, error)
}

// Request holds the operator's parameters for a new session. Zero values
// leave the corresponding Control defaults in place, except where a field
// says otherwise.
type Request struct {
	Name        string
	Calibration bool // calibration frames are written to the calibration directory
	SaveInputs  bool

	Lat, Lon *float64
	RA, DE   *float64

	Derotate         bool
	DerotateMirror   bool
	RollbackOnPause  bool
	RemoveSatellites bool

	// Names of calibration frames recorded by earlier calibration sessions.
	Darks     string
	Flats     string
	DarkFlats string

	Stretch *message.Stretch
}

// Manager builds controls and pushes them onto the dispatch input queue.
type Manager struct {
	stackedDir     string
	calibrationDir string
	cam            Camera
	queue          *message.Queue
	clock          timeutil.Clock

	mu     sync.Mutex
	status Status
}

// NewManager returns a manager writing sessions under dataDir.
func NewManager(dataDir string, cam Camera, q *message.Queue) *Manager {
	return &Manager{
		stackedDir:     filepath.Join(dataDir, "stacked"),
		calibrationDir: filepath.Join(dataDir, "calibration"),
		cam:            cam,
		queue:          q,
		clock:          timeutil.RealClock{},
	}
}

// Status returns the current session status.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// Start builds an init control from req and the camera's current state,
// pushes it and marks the session as stacking. A running session is
// replaced; the stacking collaborator discards it on init.
func (m *Manager) Start(ctx context.Context, req Request) (*message.Control, error) {
	c, err := m.BuildInit(ctx, req)
	if err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.status = StatusStacking
	m.mu.Unlock()
	m.queue.Push(c)
	return c, nil
}

// BuildInit assembles an init control without pushing it.
func (m *Manager) BuildInit(ctx context.Context, req Request) (*message.Control, error) {
	format, _, err := m.cam.StreamFormat(ctx)
	if err != nil {
		return nil, fmt.Errorf("read stream format: %w", err)
	}
	formatName, err := camera.StreamTypeString(format.Type)
	if err != nil {
		return nil, fmt.Errorf("session needs a running stream: %w", err)
	}
	options, err := m.cam.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("read camera options: %w", err)
	}

	c := message.NewControl(message.OpInit)
	c.Mono = format.Type.IsMono()
	c.Format = formatName
	c.Bin = format.Bin
	c.Width = format.Width
	c.Height = format.Height
	c.Calibration = req.Calibration
	c.SaveInputs = req.SaveInputs

	if req.Calibration {
		if err := security.ValidateName(req.Name); err != nil {
			return nil, fmt.Errorf("calibration session: %w", err)
		}
		c.Name = req.Name
		c.OutputPath = m.calibrationDir
	} else {
		c.Name = security.SanitizeName(req.Name)
		if c.Name != "" {
			c.Name += "_"
		}
		c.Name += m.clock.Now().Format("20060102_150405")
		c.OutputPath = filepath.Join(m.stackedDir, c.Name)
	}

	c.CameraConfig = make(map[camera.OptionID]float64, len(options))
	for id, p := range options {
		c.CameraConfig[id] = p.Current
		if id == camera.OptGamma {
			c.SourceGamma = p.Current
		}
	}

	setIf(&c.Lat, req.Lat)
	setIf(&c.Lon, req.Lon)
	setIf(&c.RA, req.RA)
	setIf(&c.DE, req.DE)
	c.Derotate = req.Derotate
	c.DerotateMirror = req.DerotateMirror
	c.RollbackOnPause = req.RollbackOnPause
	c.RemoveSatellites = req.RemoveSatellites
	if c.DarksPath, err = m.calibrationFile(req.Darks); err != nil {
		return nil, fmt.Errorf("darks: %w", err)
	}
	if c.FlatsPath, err = m.calibrationFile(req.Flats); err != nil {
		return nil, fmt.Errorf("flats: %w", err)
	}
	if c.DarkFlatsPath, err = m.calibrationFile(req.DarkFlats); err != nil {
		return nil, fmt.Errorf("dark flats: %w", err)
	}
	if req.Stretch != nil {
		c.Stretch = *req.Stretch
	}
	return c, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

func (m *Manager) calibrationFile(name string) (string, error) {
	if name == "" {
		return "", nil
	}
	if err := security.ValidateName(name); err != nil {
		return "", err
	}
	return filepath.Join(m.calibrationDir, name+".tiff"), nil
}

// ParseOp maps an operator command word to its control operation. Only the
// operations that carry no parameters are accepted.
func ParseOp(s string) (message.Op, error) {
	switch s {
	case "pause":
		return message.OpPause, nil
	case "save":
		return message.OpSave, nil
	case "resume":
		return message.OpResume, nil
	case "cancel":
		return message.OpCancel, nil
	}
	return 0, fmt.Errorf("unknown operation %s", s)
}

// Control pushes a parameterless control and updates the status. Save and
// cancel both end the session.
func (m *Manager) Control(op message.Op) error {
	switch op {
	case message.OpPause, message.OpSave, message.OpResume, message.OpCancel:
	default:
		return fmt.Errorf("operation %s needs parameters", op)
	}

	m.mu.Lock()
	switch op {
	case message.OpPause:
		m.status = StatusPaused
	case message.OpResume:
		m.status = StatusStacking
	case message.OpSave, message.OpCancel:
		m.status = StatusIdle
	}
	m.mu.Unlock()

	m.queue.Push(message.NewControl(op))
	return nil
}

// UpdateStretch pushes an update control carrying new display stretch
// parameters. It does not change the session status.
func (m *Manager) UpdateStretch(s message.Stretch) {
	c := message.NewControl(message.OpUpdate)
	c.Stretch = s
	m.queue.Push(c)
}

package message

import (
	"fmt"

	"github.com/banshee-data/livestack/internal/camera"
)

// Op is a stacking session command.
type Op int

const (
	OpInit Op = iota
	OpPause
	OpResume
	OpSave
	OpCancel
	OpUpdate
)

var opNames = []string{"init", "pause", "resume", "save", "cancel", "update"}

func (o Op) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return fmt.Sprintf("op(%d)", int(o))
	}
	return opNames[o]
}

// Stretch holds the auto-stretch display parameters.
type Stretch struct {
	Auto  bool
	Low   float64
	High  float64
	Gamma float64
}

// DefaultStretch returns the stretch used when a request does not set one.
func DefaultStretch() Stretch {
	return Stretch{Auto: true, Low: -1, High: -1, Gamma: -1}
}

// Control is an operator command. The dispatch stage reads Op and
// SaveInputs; everything else is passed through untouched to the stacking
// and processing collaborators.
type Control struct {
	Op Op

	// Session parameters, set for OpInit.
	Mono        bool
	Format      string
	Bin         int
	Width       int
	Height      int
	Calibration bool
	Name        string
	OutputPath  string
	SaveInputs  bool // enables the debug output for the session

	CameraConfig map[camera.OptionID]float64
	SourceGamma  float64

	Lat, Lon float64
	RA, DE   float64

	Derotate        bool
	DerotateMirror  bool
	RollbackOnPause bool

	DarksPath     string
	FlatsPath     string
	DarkFlatsPath string

	RemoveSatellites bool

	// Set for OpInit and OpUpdate.
	Stretch Stretch
}

// NewControl returns a control for op with default parameters.
func NewControl(op Op) *Control {
	return &Control{
		Op:          op,
		SourceGamma: 1.0,
		Lat:         -1000,
		Lon:         -1000,
		RA:          -1,
		DE:          -1000,
		Stretch:     DefaultStretch(),
	}
}

package camera

import (
	"encoding/binary"
	"math"
	"sync"
	"time"
)

// Simulator is an in-process Camera that renders a drifting star field. It
// stands in for a vendor driver on development machines and in tests of the
// process wiring.
type Simulator struct {
	formats []StreamFormat
	bayer   BayerPattern
	params  map[OptionID]Param

	stop chan struct{}
	wg   sync.WaitGroup
	seq  uint32
}

// NewSimulator returns a simulator advertising a mono16, raw16 and rgb24
// stream at 640x480.
func NewSimulator() *Simulator {
	return &Simulator{
		formats: []StreamFormat{
			{Type: StreamMono16, Width: 640, Height: 480, Framerate: 10, Bin: 1},
			{Type: StreamRaw16, Width: 640, Height: 480, Framerate: 10, Bin: 1},
			{Type: StreamRGB24, Width: 640, Height: 480, Framerate: 10, Bin: 1},
		},
		bayer: BayerRGGB,
		params: map[OptionID]Param{
			OptExp:   {Option: OptExp, Type: TypeMsec, Min: 1, Max: 60000, Step: 1, Default: 100, Current: 100},
			OptGain:  {Option: OptGain, Type: TypeNumber, Min: 0, Max: 500, Step: 1, Default: 100, Current: 100},
			OptGamma: {Option: OptGamma, Type: TypeNumber, Min: 0.5, Max: 3, Step: 0.1, Default: 1, Current: 1},
		},
	}
}

func (s *Simulator) SupportedOptions() ([]OptionID, error) {
	ids := make([]OptionID, 0, len(s.params))
	for _, id := range OptionIDs() {
		if _, ok := s.params[id]; ok {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (s *Simulator) Parameter(id OptionID, _ bool) (Param, error) {
	p, ok := s.params[id]
	if !ok {
		return Param{}, camErrorf("option %d not supported", int(id))
	}
	return p, nil
}

func (s *Simulator) SetParameter(id OptionID, value float64) error {
	p, ok := s.params[id]
	if !ok {
		return camErrorf("option %d not supported", int(id))
	}
	if value < p.Min || value > p.Max {
		return camErrorf("option %d value %v out of range [%v, %v]", int(id), value, p.Min, p.Max)
	}
	p.Current = value
	s.params[id] = p
	return nil
}

func (s *Simulator) StreamFormats() ([]StreamFormat, error) {
	return append([]StreamFormat(nil), s.formats...), nil
}

func (s *Simulator) StartStream(format StreamFormat, sink func(*Frame)) error {
	if s.stop != nil {
		return camErrorf("stream already running")
	}
	supported := false
	for _, f := range s.formats {
		if f.Type == format.Type && f.Width == format.Width && f.Height == format.Height {
			supported = true
		}
	}
	if !supported {
		return camErrorf("unsupported stream format %s", format)
	}
	rate := format.Framerate
	if rate <= 0 {
		rate = 1
	}
	bayer := BayerNA
	if format.Type == StreamRaw8 || format.Type == StreamRaw16 {
		bayer = s.bayer
	}

	s.stop = make(chan struct{})
	s.wg.Add(1)
	go func(stop <-chan struct{}) {
		defer s.wg.Done()
		ticker := time.NewTicker(time.Second / time.Duration(rate))
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.seq++
				sink(NewFrame(format, bayer, renderStarField(format, s.seq)))
			}
		}
	}(s.stop)
	diagf("simulator streaming %s", format)
	return nil
}

func (s *Simulator) StopStream() error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.wg.Wait()
	s.stop = nil
	return nil
}

func (s *Simulator) Close() error { return s.StopStream() }

// renderStarField draws a faint sky gradient with a few gaussian stars that
// drift one pixel per frame.
func renderStarField(f StreamFormat, seq uint32) []byte {
	size, _ := f.ExpectedSize()
	buf := make([]byte, size)
	bpp := f.Type.BytesPerPixel()
	channels := 1
	if f.Type == StreamRGB24 {
		channels = 3
	}
	depth := bpp / channels
	peak := float64(DynamicRange8)
	if depth == 2 {
		peak = DynamicRange16
	}

	stars := [][2]float64{{0.2, 0.3}, {0.55, 0.6}, {0.8, 0.25}, {0.4, 0.85}}
	drift := float64(seq % uint32(f.Width))
	for y := 0; y < f.Height; y++ {
		for x := 0; x < f.Width; x++ {
			v := 0.02 + 0.03*float64(y)/float64(f.Height)
			for _, st := range stars {
				dx := float64(x) - (st[0]*float64(f.Width) + drift)
				dy := float64(y) - st[1]*float64(f.Height)
				v += 0.9 * math.Exp(-(dx*dx+dy*dy)/8)
			}
			level := math.Min(v, 1) * peak
			for c := 0; c < channels; c++ {
				off := ((y*f.Width+x)*channels + c) * depth
				if depth == 2 {
					binary.LittleEndian.PutUint16(buf[off:], uint16(level))
				} else {
					buf[off] = byte(level)
				}
			}
		}
	}
	return buf
}

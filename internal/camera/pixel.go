package camera

// Layout is the in-memory pixel layout of a frame buffer.
type Layout int

const (
	LayoutGray8  Layout = iota // 1 byte per pixel, one channel
	LayoutGray16               // 2 bytes per pixel, one channel
	LayoutYUYV                 // packed 4:2:2, 2 bytes per pixel
	LayoutBGR24                // 3 interleaved 8-bit channels
	LayoutBGR48                // 3 interleaved 16-bit channels
)

// Demosaic selects one of the four fixed Bayer-to-BGR conversion routines.
// The routine names follow the second-row origin convention of the
// conversion library, so they do not match the sensor pattern names; see
// BayerPattern.Demosaic for the mapping.
type Demosaic int

const (
	DemosaicBG Demosaic = iota
	DemosaicGB
	DemosaicRG
	DemosaicGR
)

// Demosaic returns the conversion routine for the pattern and false for
// BayerNA or an undefined pattern.
func (b BayerPattern) Demosaic() (Demosaic, bool) {
	switch b {
	case BayerRGGB:
		return DemosaicBG, true
	case BayerGRBG:
		return DemosaicGB, true
	case BayerBGGR:
		return DemosaicRG, true
	case BayerGBRG:
		return DemosaicGR, true
	}
	return 0, false
}

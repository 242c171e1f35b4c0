package camera

// BayerPattern is the colour filter layout of a raw sensor. It is only
// meaningful for raw8/raw16 streams.
type BayerPattern int

const (
	BayerNA BayerPattern = iota
	BayerRGGB
	BayerGRBG
	BayerBGGR
	BayerGBRG
)

var bayerNames = []string{"NA", "RGGB", "GRBG", "BGGR", "GBRG"}

// BayerPatterns lists every defined pattern including BayerNA.
func BayerPatterns() []BayerPattern {
	return []BayerPattern{BayerNA, BayerRGGB, BayerGRBG, BayerBGGR, BayerGBRG}
}

// BayerPatternString returns the wire name of b, e.g. "RGGB".
func BayerPatternString(b BayerPattern) (string, error) {
	if b < 0 || int(b) >= len(bayerNames) {
		return "", camErrorf("invalid bayer pattern %d", int(b))
	}
	return bayerNames[b], nil
}

// ParseBayerPattern is the inverse of BayerPatternString.
func ParseBayerPattern(s string) (BayerPattern, error) {
	for i, name := range bayerNames {
		if name == s {
			return BayerPattern(i), nil
		}
	}
	return 0, camErrorf("invalid bayer format %s", s)
}

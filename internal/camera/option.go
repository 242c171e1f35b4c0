package camera

// OptionID identifies a camera control.
type OptionID int

const (
	OptAutoExp OptionID = iota
	OptAutoWB
	OptExp
	OptWB
	OptWBR
	OptWBB
	OptGain
	OptGamma
	OptBrightness
	OptContrast
	OptTemperature
	OptCoolerTarget
	OptCoolerOn
	OptFanOn
	OptCoolerPower
	OptLiveStretch
	optCount
)

var optionStringIDs = [optCount]string{
	"auto_exp", "auto_wb", "exp", "wb", "wb_r", "wb_b", "gain", "gamma",
	"brightness", "contrast", "temperature", "cooler_target", "cooler_on",
	"fan_on", "cooler_power", "live_stretch",
}

var optionNames = [optCount]string{
	"Auto Exp.", "Auto WB", "Exp.", "WB", "WB Red", "WB Blue", "Gain", "Gamma",
	"Bright.", "Contr.", "Temp.", "Cooler Tgt.", "Cooler", "Fan",
	"Cooler Pwr.", "Auto Str.",
}

// OptionIDs lists every defined option in id order.
func OptionIDs() []OptionID {
	ids := make([]OptionID, optCount)
	for i := range ids {
		ids[i] = OptionID(i)
	}
	return ids
}

func (id OptionID) valid() bool { return id >= 0 && id < optCount }

// OptionStringID returns the short machine id of an option, e.g. "cooler_on".
func OptionStringID(id OptionID) (string, error) {
	if !id.valid() {
		return "", camErrorf("invalid option id %d", int(id))
	}
	return optionStringIDs[id], nil
}

// OptionName returns the short display name of an option, e.g. "Cooler".
func OptionName(id OptionID) (string, error) {
	if !id.valid() {
		return "", camErrorf("invalid option id %d", int(id))
	}
	return optionNames[id], nil
}

// ParseOptionID maps a short machine id back to its OptionID.
func ParseOptionID(s string) (OptionID, error) {
	for i, name := range optionStringIDs {
		if name == s {
			return OptionID(i), nil
		}
	}
	return 0, camErrorf("invalid option id %s", s)
}

// OptionType is the unit/kind of an option value.
type OptionType int

const (
	TypeBool OptionType = iota
	TypeNumber
	TypeMsec
	TypePercent
	TypeKelvin
	TypeCelsius
)

var optionTypeNames = []string{"bool", "number", "msec", "percent", "kelvin", "celsius"}

// OptionTypes lists every defined option type.
func OptionTypes() []OptionType {
	return []OptionType{TypeBool, TypeNumber, TypeMsec, TypePercent, TypeKelvin, TypeCelsius}
}

// OptionTypeString returns the wire name of t.
func OptionTypeString(t OptionType) (string, error) {
	if t < 0 || int(t) >= len(optionTypeNames) {
		return "", camErrorf("invalid option type %d", int(t))
	}
	return optionTypeNames[t], nil
}

// ParseOptionType is the inverse of OptionTypeString.
func ParseOptionType(s string) (OptionType, error) {
	for i, name := range optionTypeNames {
		if name == s {
			return OptionType(i), nil
		}
	}
	return 0, camErrorf("invalid type: %s", s)
}

// Param is the current state of one camera option.
type Param struct {
	Option  OptionID
	Type    OptionType
	Min     float64
	Max     float64
	Step    float64
	Default float64
	Current float64
}

// internal/model/instrument.go
package model

import (
	"fmt"
	"strings"
)

// Family identifies the instrument class of a bus device. It is resolved
// once during the scan and stored on the record; dispatch on reads goes
// through the Family, never through the raw instrument name again.
type Family string

const (
	FamilyAnemometer     Family = "anemometer"
	FamilyThermometer    Family = "thermometer"
	FamilyHygroBarometer Family = "hygro_barometer"
)

// Instrument name prefixes reported by the hardware.
const (
	prefixAnemometer     = "ANEMO"
	prefixThermometer    = "THERM"
	prefixHygroBarometer = "HYGRO"
)

// ClassifyInstrument maps a reported instrument name to its Family.
// The name is expected to be already uppercased and trimmed.
func ClassifyInstrument(name string) (Family, error) {
	switch {
	case strings.HasPrefix(name, prefixAnemometer):
		return FamilyAnemometer, nil
	case strings.HasPrefix(name, prefixThermometer):
		return FamilyThermometer, nil
	case strings.HasPrefix(name, prefixHygroBarometer):
		return FamilyHygroBarometer, nil
	default:
		return "", fmt.Errorf("invalid instrument name %q", name)
	}
}

// Parameters returns the ordered measurement parameter names contributed
// by one instrument of this family per read cycle. The hygro/barometer
// family reports a variant-dependent subset; the variant is ignored by
// the other families.
func (f Family) Parameters(variant int) []string {
	switch f {
	case FamilyAnemometer:
		return []string{"t_a", "v", "vstar"}
	case FamilyThermometer:
		return []string{"t_a", "t_g", "t_w", "t_s"}
	case FamilyHygroBarometer:
		if v, ok := HygBarVariants[variant]; ok {
			return v.Parameters
		}
		return nil
	default:
		return nil
	}
}

// HygBarVariant describes one sensor configuration of the
// hygro/barometer family.
type HygBarVariant struct {
	Name       string
	Parameters []string
}

// HygBarVariants maps the sensor-config code reported by a
// hygro/barometer to the parameter subset that unit measures.
var HygBarVariants = map[int]HygBarVariant{
	0: {Name: "rh", Parameters: []string{"rh"}},
	1: {Name: "rh-temp", Parameters: []string{"rh", "t_a"}},
	2: {Name: "baro", Parameters: []string{"p_baro"}},
	3: {Name: "rh-baro", Parameters: []string{"rh", "p_baro"}},
	4: {Name: "full", Parameters: []string{"rh", "t_a", "p_baro"}},
}

// Instrument is one discovered bus device. Records are created during
// the scan phase and not modified afterwards.
type Instrument struct {
	Address           int                `json:"address"`
	Name              string             `json:"instrument_name"`
	Family            Family             `json:"family"`
	SerialNumber      string             `json:"serial_number"`
	CalibrationExpiry string             `json:"calibration_expired_date"`
	BatteryState      string             `json:"battery_state"`
	Configuration     string             `json:"configuration,omitempty"`
	SensorConfig      *int               `json:"sensor_config,omitempty"`
	Indicators        map[string]float64 `json:"indicators,omitempty"`
}

// Parameters returns this instrument's ordered parameter names.
func (i *Instrument) Parameters() []string {
	variant := 0
	if i.SensorConfig != nil {
		variant = *i.SensorConfig
	}
	return i.Family.Parameters(variant)
}

// ListEntry is the projection of an Instrument used to drive header
// generation and the per-cycle read sequence.
type ListEntry struct {
	Address      int
	Name         string
	Family       Family
	SensorConfig int
}

// InstrumentList is the ordered device list established at startup,
// ascending by bus address.
type InstrumentList []ListEntry

// NewListEntry projects an Instrument into its list form.
func NewListEntry(i *Instrument) ListEntry {
	variant := 0
	if i.SensorConfig != nil {
		variant = *i.SensorConfig
	}
	return ListEntry{
		Address:      i.Address,
		Name:         i.Name,
		Family:       i.Family,
		SensorConfig: variant,
	}
}

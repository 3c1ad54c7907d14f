package healthrecord

import "fmt"

// MetricType is the kind of reading a record holds.
type MetricType int

const (
	TypeHeartRate MetricType = iota
	TypeBloodPressure
	TypeGlucose
	TypeTemperature
	TypeWeight
	TypeOxygen
	TypeOther

	typeCount
)

var typeTokens = [...]string{
	TypeHeartRate:     "heart_rate",
	TypeBloodPressure: "blood_pressure",
	TypeGlucose:       "glucose",
	TypeTemperature:   "temperature",
	TypeWeight:        "weight",
	TypeOxygen:        "oxygen",
	TypeOther:         "other",
}

// defaultUnits fills in the unit when a reading is recorded without one.
var defaultUnits = [...]string{
	TypeHeartRate:     "bpm",
	TypeBloodPressure: "mmHg",
	TypeGlucose:       "mg/dL",
	TypeTemperature:   "°C",
	TypeWeight:        "kg",
	TypeOxygen:        "%",
	TypeOther:         "",
}

var (
	_ [int(typeCount)]struct{} = [len(typeTokens)]struct{}{}
	_ [int(typeCount)]struct{} = [len(defaultUnits)]struct{}{}
)

// MetricTypes lists every metric in declaration order.
func MetricTypes() []MetricType {
	types := make([]MetricType, 0, typeCount)
	for t := MetricType(0); t < typeCount; t++ {
		types = append(types, t)
	}
	return types
}

func (t MetricType) String() string {
	if t < 0 || t >= typeCount {
		return typeTokens[TypeOther]
	}
	return typeTokens[t]
}

func (t MetricType) DefaultUnit() string {
	if t < 0 || t >= typeCount {
		return ""
	}
	return defaultUnits[t]
}

func ParseMetricType(token string) (MetricType, error) {
	for i, tok := range typeTokens {
		if tok == token {
			return MetricType(i), nil
		}
	}
	return TypeOther, fmt.Errorf("%w: %q", ErrInvalidType, token)
}

func typeFromToken(token string) MetricType {
	t, err := ParseMetricType(token)
	if err != nil {
		return TypeOther
	}
	return t
}

func (t MetricType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *MetricType) UnmarshalText(text []byte) error {
	parsed, err := ParseMetricType(string(text))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

package units

import (
	"math"
	"time"

	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

const durationBands = "invalid value: value must express a duration between 0.1s–10s or 100ms–10,000ms"

// Duration is a decoded time limit kept at nanosecond resolution until it is
// narrowed into a canonical millisecond count.
type Duration struct {
	time.Duration
}

// DecodeDuration maps an int, float or string scalar onto a duration.
func DecodeDuration(s Scalar) (Duration, error) {
	switch s.Kind {
	case IntScalar, FloatScalar:
		return durationByMagnitude(s.Number())
	case StringScalar:
		v, unit, err := splitQuantity(s.Str)
		if err != nil {
			return Duration{}, err
		}
		switch unit {
		case "":
			return durationByMagnitude(v)
		case "ms":
			return durationFrom(v, time.Millisecond)
		case "s":
			return durationFrom(v, time.Second)
		default:
			return Duration{}, errs.New(errs.UnrecognizedUnit, "unrecognized unit: %s", unit)
		}
	default:
		return Duration{}, errs.New(errs.InvalidScalarValue, "invalid value: empty duration")
	}
}

func durationByMagnitude(v float64) (Duration, error) {
	switch {
	case v >= 0.1 && v < 10:
		return durationFrom(v, time.Second)
	case v >= 100 && v < 10000:
		return durationFrom(v, time.Millisecond)
	default:
		return Duration{}, errs.New(errs.InvalidScalarValue, durationBands)
	}
}

func durationFrom(v float64, unit time.Duration) (Duration, error) {
	ns := math.Round(v * float64(unit))
	if math.IsNaN(ns) || ns < 0 || ns >= math.MaxInt64 {
		return Duration{}, errs.New(errs.NarrowingOverflow, "duration %g does not fit", v)
	}
	return Duration{time.Duration(ns)}, nil
}

// Millis narrows d to whole milliseconds, rounding half up.
func (d Duration) Millis() (uint32, error) {
	ms := (d.Duration + time.Millisecond/2) / time.Millisecond
	if ms < 0 || ms > math.MaxUint32 {
		return 0, errs.New(errs.NarrowingOverflow, "duration %s exceeds %d milliseconds", d.Duration, uint32(math.MaxUint32))
	}
	return uint32(ms), nil
}

func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	s, err := ScalarFromNode(node)
	if err != nil {
		return err
	}
	v, err := DecodeDuration(s)
	if err != nil {
		return errs.WithLine(err, node.Line)
	}
	*d = v
	return nil
}

func (d *Duration) UnmarshalJSON(data []byte) error {
	s, err := ScalarFromJSON(data)
	if err != nil {
		return err
	}
	v, err := DecodeDuration(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

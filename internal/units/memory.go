package units

import (
	"math"
	"strings"

	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

const memoryBands = "invalid value: must be 1–10 GiB or 64–10,240 MiB"

// MemoryUnit is the binary magnitude a memory quantity was written in,
// expressed as a left shift onto kibibytes.
type MemoryUnit uint

const (
	Kibibyte MemoryUnit = 0
	Mebibyte MemoryUnit = 10
	Gibibyte MemoryUnit = 20
)

func (u MemoryUnit) String() string {
	switch u {
	case Kibibyte:
		return "KiB"
	case Mebibyte:
		return "MiB"
	case Gibibyte:
		return "GiB"
	default:
		return "?"
	}
}

// ParseMemoryUnit resolves a case-insensitive unit suffix. The empty suffix
// reports ok=false with a nil error.
func ParseMemoryUnit(s string) (unit MemoryUnit, ok bool, err error) {
	switch strings.ToLower(s) {
	case "":
		return 0, false, nil
	case "kib", "kb":
		return Kibibyte, true, nil
	case "mib", "mb":
		return Mebibyte, true, nil
	case "gib", "gb":
		return Gibibyte, true, nil
	default:
		return 0, false, errs.New(errs.UnrecognizedUnit, "unrecognized unit: %s", s)
	}
}

// MemorySize is a decoded memory limit in kibibytes.
type MemorySize struct {
	KiB uint32
}

// DecodeMemorySize maps an int, float or string scalar onto a memory size.
func DecodeMemorySize(s Scalar) (MemorySize, error) {
	switch s.Kind {
	case IntScalar:
		return memoryIntByMagnitude(s.Int)
	case FloatScalar:
		return memoryFloatByMagnitude(s.Float)
	case StringScalar:
		v, suffix, err := splitQuantity(s.Str)
		if err != nil {
			return MemorySize{}, err
		}
		unit, ok, err := ParseMemoryUnit(suffix)
		if err != nil {
			return MemorySize{}, err
		}
		if !ok {
			if v == math.Trunc(v) && v <= math.MaxInt64 {
				return memoryIntByMagnitude(int64(v))
			}
			return memoryFloatByMagnitude(v)
		}
		return memoryFrom(v, unit)
	default:
		return MemorySize{}, errs.New(errs.InvalidScalarValue, "invalid value: empty memory size")
	}
}

func memoryIntByMagnitude(v int64) (MemorySize, error) {
	switch {
	case v >= 1 && v <= 10:
		return MemorySize{KiB: uint32(v) << Gibibyte}, nil
	case v >= 64 && v <= 10240:
		return MemorySize{KiB: uint32(v) << Mebibyte}, nil
	default:
		return MemorySize{}, errs.New(errs.InvalidScalarValue, memoryBands)
	}
}

func memoryFloatByMagnitude(v float64) (MemorySize, error) {
	switch {
	case v >= 1 && v <= 10:
		return memoryFrom(v, Gibibyte)
	case v >= 64 && v <= 10240:
		return memoryFrom(v, Mebibyte)
	default:
		return MemorySize{}, errs.New(errs.InvalidScalarValue, memoryBands)
	}
}

// memoryFrom converts v units into kibibytes. Whole quantities shift exactly;
// fractional ones must still land on a whole kibibyte.
func memoryFrom(v float64, unit MemoryUnit) (MemorySize, error) {
	if v == math.Trunc(v) && v <= math.MaxUint32 {
		kib := uint64(v) << unit
		if kib > math.MaxUint32 {
			return MemorySize{}, errs.New(errs.NarrowingOverflow, "%g %s exceeds %d KiB", v, unit, uint32(math.MaxUint32))
		}
		return MemorySize{KiB: uint32(kib)}, nil
	}
	kib := math.Ldexp(v, int(unit))
	if kib > math.MaxUint32 {
		return MemorySize{}, errs.New(errs.NarrowingOverflow, "%g %s exceeds %d KiB", v, unit, uint32(math.MaxUint32))
	}
	if kib != math.Trunc(kib) {
		return MemorySize{}, errs.New(errs.InvalidScalarValue, "invalid value: %g %s is not a whole number of KiB", v, unit)
	}
	return MemorySize{KiB: uint32(kib)}, nil
}

func (m *MemorySize) UnmarshalYAML(node *yaml.Node) error {
	s, err := ScalarFromNode(node)
	if err != nil {
		return err
	}
	v, err := DecodeMemorySize(s)
	if err != nil {
		return errs.WithLine(err, node.Line)
	}
	*m = v
	return nil
}

func (m *MemorySize) UnmarshalJSON(data []byte) error {
	s, err := ScalarFromJSON(data)
	if err != nil {
		return err
	}
	v, err := DecodeMemorySize(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Package units decodes loosely encoded duration and memory-size values into
// canonical quantities.
//
// Legacy authors write limits as bare numbers ("2" meaning two seconds, "256"
// meaning 256 MiB) or unit-suffixed strings. Bare numbers are classified by
// magnitude bands that never overlap; a value outside every band is rejected
// instead of guessed.
package units

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

// ScalarKind tags the representation a value was written in.
type ScalarKind int

const (
	IntScalar ScalarKind = iota + 1
	FloatScalar
	StringScalar
)

func (k ScalarKind) String() string {
	switch k {
	case IntScalar:
		return "int"
	case FloatScalar:
		return "float"
	case StringScalar:
		return "string"
	default:
		return "unknown"
	}
}

// Scalar is a raw, untyped-unit input value.
type Scalar struct {
	Kind  ScalarKind
	Int   int64
	Float float64
	Str   string
}

func Int(v int64) Scalar     { return Scalar{Kind: IntScalar, Int: v} }
func Float(v float64) Scalar { return Scalar{Kind: FloatScalar, Float: v} }
func String(v string) Scalar { return Scalar{Kind: StringScalar, Str: v} }

// Number returns the numeric value of an int or float scalar.
func (s Scalar) Number() float64 {
	if s.Kind == IntScalar {
		return float64(s.Int)
	}
	return s.Float
}

func (s Scalar) String() string {
	switch s.Kind {
	case IntScalar:
		return strconv.FormatInt(s.Int, 10)
	case FloatScalar:
		return strconv.FormatFloat(s.Float, 'g', -1, 64)
	case StringScalar:
		return strconv.Quote(s.Str)
	default:
		return "<empty>"
	}
}

// ScalarFromNode converts a YAML scalar node using its resolved tag.
func ScalarFromNode(node *yaml.Node) (Scalar, error) {
	if node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	if node.Kind != yaml.ScalarNode {
		return Scalar{}, errs.WithLine(errs.New(errs.InvalidScalarValue, "invalid value: expected a scalar"), node.Line)
	}
	switch node.ShortTag() {
	case "!!int":
		var v int64
		if err := node.Decode(&v); err != nil {
			// Above int64; the magnitude rules reject it either way.
			var u uint64
			if uerr := node.Decode(&u); uerr != nil {
				return Scalar{}, errs.WithLine(errs.Wrap(errs.MalformedNumericPrefix, err, "malformed number %q", node.Value), node.Line)
			}
			return Float(float64(u)), nil
		}
		return Int(v), nil
	case "!!float":
		var f float64
		if err := node.Decode(&f); err != nil {
			return Scalar{}, errs.WithLine(errs.Wrap(errs.MalformedNumericPrefix, err, "malformed number %q", node.Value), node.Line)
		}
		return Float(f), nil
	case "!!str":
		return String(node.Value), nil
	default:
		return Scalar{}, errs.WithLine(errs.New(errs.InvalidScalarValue, "invalid value: unsupported scalar %s", node.ShortTag()), node.Line)
	}
}

// ScalarFromJSON converts a JSON number or string token.
func ScalarFromJSON(data []byte) (Scalar, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return Scalar{}, errs.Wrap(errs.InvalidScalarValue, err, "invalid value")
		}
		return String(s), nil
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var n json.Number
	if err := dec.Decode(&n); err != nil {
		return Scalar{}, errs.Wrap(errs.InvalidScalarValue, err, "invalid value: expected a number or string")
	}
	if i, err := n.Int64(); err == nil {
		return Int(i), nil
	}
	f, err := n.Float64()
	if err != nil {
		return Scalar{}, errs.Wrap(errs.MalformedNumericPrefix, err, "malformed number %q", n.String())
	}
	return Float(f), nil
}

// splitQuantity splits s into its leading numeric run (digits and at most one
// decimal point) and the remaining unit suffix.
func splitQuantity(s string) (float64, string, error) {
	s = strings.TrimSpace(s)
	end := strings.IndexFunc(s, func(r rune) bool {
		return !(r >= '0' && r <= '9' || r == '.')
	})
	if end < 0 {
		end = len(s)
	}
	num, unit := s[:end], strings.TrimSpace(s[end:])
	if num == "" || strings.Count(num, ".") > 1 || num == "." {
		return 0, unit, errs.New(errs.MalformedNumericPrefix, "malformed numeric prefix %q", s)
	}
	v, err := strconv.ParseFloat(num, 64)
	if err != nil || math.IsInf(v, 0) {
		return 0, unit, errs.Wrap(errs.MalformedNumericPrefix, err, "malformed numeric prefix %q", num)
	}
	return v, unit, nil
}

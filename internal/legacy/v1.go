package legacy

import (
	"strconv"

	"caseport/internal/domain"
	"caseport/internal/errs"
	"caseport/internal/units"
)

// MaxCases bounds the implied case count of a flat document.
const MaxCases = 10000

// ConfigV1 is the original flat document: limits plus an optional score and
// case count. Cases are implied as 1.in/1.out .. N.in/N.out.
type ConfigV1 struct {
	Defaults `yaml:"-"`

	Version int               `yaml:"version"`
	Time    *units.Duration   `yaml:"time"`
	Memory  *units.MemorySize `yaml:"memory"`
	Points  *uint32           `yaml:"score"`
	Count   *int              `yaml:"cases"`
}

func decodeV1(data []byte) (Config, error) {
	var c ConfigV1
	if err := decodeStrict(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *ConfigV1) Score() (uint32, error) {
	if c.Points == nil {
		return c.Defaults.Score()
	}
	return *c.Points, nil
}

func (c *ConfigV1) ResourceLimits() (domain.ResourceLimits, error) {
	limits, _ := c.Defaults.ResourceLimits()
	if c.Time != nil {
		ms, err := c.Time.Millis()
		if err != nil {
			return domain.ResourceLimits{}, errs.WithField(err, "time")
		}
		limits.Time = ms
	}
	if c.Memory != nil {
		limits.Memory = c.Memory.KiB
	}
	return limits, nil
}

func (c *ConfigV1) Task() (domain.TaskType, error) {
	n := 1
	if c.Count != nil {
		n = *c.Count
	}
	if n < 1 {
		return domain.TaskType{}, &errs.Error{Kind: errs.InvalidScalarValue, Field: "cases", Msg: "invalid value: case count must be at least 1"}
	}
	if n > MaxCases {
		return domain.TaskType{}, &errs.Error{Kind: errs.InvalidScalarValue, Field: "cases", Msg: "invalid value: case count must be at most " + strconv.Itoa(MaxCases)}
	}
	cases := make([]domain.Case, 0, n)
	for i := 1; i <= n; i++ {
		stem := strconv.Itoa(i)
		cases = append(cases, domain.Case{Input: stem + ".in", Answer: stem + ".out"})
	}
	return domain.Simple(cases...), nil
}

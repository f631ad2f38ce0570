package legacy

import (
	"fmt"
	"strings"

	"caseport/internal/domain"
	"caseport/internal/errs"
	"caseport/internal/units"
)

// ConfigV2 renames the limit fields and adds judge selection, explicit case
// lists and subtasks.
type ConfigV2 struct {
	Defaults `yaml:"-"`

	Version     int               `yaml:"version"`
	Points      *uint32           `yaml:"score"`
	TimeLimit   *units.Duration   `yaml:"timeLimit"`
	MemoryLimit *units.MemorySize `yaml:"memoryLimit"`
	Checker     *string           `yaml:"checker"`
	Cases       []CaseV2          `yaml:"cases"`
	Subtasks    []SubtaskV2       `yaml:"subtasks"`
}

type CaseV2 struct {
	Input  string  `yaml:"input"`
	Answer string  `yaml:"answer"`
	Score  *uint32 `yaml:"score"`
}

type SubtaskV2 struct {
	Score uint32   `yaml:"score"`
	Cases []CaseV2 `yaml:"cases"`
}

func decodeV2(data []byte) (Config, error) {
	var c ConfigV2
	if err := decodeStrict(data, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *ConfigV2) Score() (uint32, error) {
	if c.Points == nil {
		return c.Defaults.Score()
	}
	return *c.Points, nil
}

func (c *ConfigV2) Judge() (domain.JudgeType, error) {
	if c.Checker == nil {
		return c.Defaults.Judge()
	}
	checker := strings.TrimSpace(*c.Checker)
	if checker == "" {
		return domain.JudgeType{}, &errs.Error{Kind: errs.MissingRequiredField, Field: "checker", Msg: "checker path is empty"}
	}
	return domain.Special(checker), nil
}

func (c *ConfigV2) ResourceLimits() (domain.ResourceLimits, error) {
	limits, _ := c.Defaults.ResourceLimits()
	if c.TimeLimit != nil {
		ms, err := c.TimeLimit.Millis()
		if err != nil {
			return domain.ResourceLimits{}, errs.WithField(err, "timeLimit")
		}
		limits.Time = ms
	}
	if c.MemoryLimit != nil {
		limits.Memory = c.MemoryLimit.KiB
	}
	return limits, nil
}

func (c *ConfigV2) Task() (domain.TaskType, error) {
	switch {
	case len(c.Cases) > 0 && len(c.Subtasks) > 0:
		return domain.TaskType{}, &errs.Error{Kind: errs.ConflictingFields, Field: "cases", Msg: "cases and subtasks are mutually exclusive"}
	case len(c.Subtasks) > 0:
		subtasks := make([]domain.Subtask, 0, len(c.Subtasks))
		for i, st := range c.Subtasks {
			if len(st.Cases) == 0 {
				return domain.TaskType{}, &errs.Error{Kind: errs.MissingRequiredField, Field: fmt.Sprintf("subtasks[%d].cases", i), Msg: "subtask has no cases"}
			}
			cases, err := convertCases(st.Cases)
			if err != nil {
				return domain.TaskType{}, errs.WithField(err, fmt.Sprintf("subtasks[%d]", i))
			}
			subtasks = append(subtasks, domain.Subtask{Cases: cases, Score: st.Score})
		}
		return domain.Subtasks(subtasks...), nil
	case len(c.Cases) > 0:
		cases, err := convertCases(c.Cases)
		if err != nil {
			return domain.TaskType{}, err
		}
		return domain.Simple(cases...), nil
	default:
		return domain.TaskType{}, &errs.Error{Kind: errs.MissingRequiredField, Msg: "either cases or subtasks is required"}
	}
}

func convertCases(in []CaseV2) ([]domain.Case, error) {
	out := make([]domain.Case, 0, len(in))
	for i, c := range in {
		field := fmt.Sprintf("cases[%d]", i)
		if strings.TrimSpace(c.Input) == "" {
			return nil, &errs.Error{Kind: errs.MissingRequiredField, Field: field + ".input", Msg: "value is required"}
		}
		if strings.TrimSpace(c.Answer) == "" {
			return nil, &errs.Error{Kind: errs.MissingRequiredField, Field: field + ".answer", Msg: "value is required"}
		}
		if c.Score != nil && *c.Score == 0 {
			return nil, &errs.Error{Kind: errs.InvalidScalarValue, Field: field + ".score", Msg: "invalid value: must be greater than zero"}
		}
		out = append(out, domain.Case{Input: c.Input, Answer: c.Answer, Score: c.Score})
	}
	return out, nil
}

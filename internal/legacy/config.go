// Package legacy adapts historical judge configuration documents onto the
// canonical domain.CasesConfig.
//
// Every supported document shape implements Config. Schemas embed Defaults and
// override only the operations their documents actually represent; Task has no
// default and must always be supplied.
package legacy

import (
	"caseport/internal/domain"
	"caseport/internal/errs"
)

const (
	DefaultScore      = 100
	DefaultTimeMillis = 1000
	DefaultMemoryKiB  = 256
)

// Config is the capability set a legacy schema exposes to the adapter.
type Config interface {
	Score() (uint32, error)
	Judge() (domain.JudgeType, error)
	ResourceLimits() (domain.ResourceLimits, error)
	Task() (domain.TaskType, error)
}

// Defaults answers the optional capabilities with their documented defaults.
type Defaults struct{}

func (Defaults) Score() (uint32, error) { return DefaultScore, nil }

func (Defaults) Judge() (domain.JudgeType, error) { return domain.Classic(), nil }

func (Defaults) ResourceLimits() (domain.ResourceLimits, error) {
	return domain.ResourceLimits{Time: DefaultTimeMillis, Memory: DefaultMemoryKiB}, nil
}

// Build assembles a canonical configuration from any schema. The first failing
// operation aborts the whole document.
func Build(c Config) (domain.CasesConfig, error) {
	score, err := c.Score()
	if err != nil {
		return domain.CasesConfig{}, errs.WithField(err, "score")
	}
	judge, err := c.Judge()
	if err != nil {
		return domain.CasesConfig{}, errs.WithField(err, "judge")
	}
	limits, err := c.ResourceLimits()
	if err != nil {
		return domain.CasesConfig{}, errs.WithField(err, "resourceLimits")
	}
	task, err := c.Task()
	if err != nil {
		return domain.CasesConfig{}, errs.WithField(err, "task")
	}
	return domain.NewCasesConfig(score, judge, limits, task)
}

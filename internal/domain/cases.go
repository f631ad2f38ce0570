package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

// CasesConfig is the canonical judge configuration every legacy schema
// converges to.
type CasesConfig struct {
	Score          uint32         `json:"score" yaml:"score" validate:"gt=0"`
	Judge          JudgeType      `json:"judge" yaml:"judge"`
	ResourceLimits ResourceLimits `json:"resourceLimits" yaml:"resourceLimits"`
	Task           TaskType       `json:"task" yaml:"task"`
}

// ResourceLimits are expressed in milliseconds and kibibytes.
type ResourceLimits struct {
	Time   uint32 `json:"time" yaml:"time"`
	Memory uint32 `json:"memory" yaml:"memory"`
}

type JudgeKind string

const (
	ClassicJudge JudgeKind = "classic"
	SpecialJudge JudgeKind = "special-judge"
)

// JudgeType is Classic or SpecialJudge{Checker}.
type JudgeType struct {
	Kind    JudgeKind
	Checker string
}

func Classic() JudgeType { return JudgeType{Kind: ClassicJudge} }

func Special(checker string) JudgeType {
	return JudgeType{Kind: SpecialJudge, Checker: checker}
}

type TaskKind string

const (
	SimpleTask  TaskKind = "simple"
	SubtaskTask TaskKind = "subtask"
)

// TaskType is Simple{Cases} or Subtask{Subtasks}.
type TaskType struct {
	Kind     TaskKind
	Cases    []Case    `validate:"dive"`
	Subtasks []Subtask `validate:"dive"`
}

func Simple(cases ...Case) TaskType {
	return TaskType{Kind: SimpleTask, Cases: cases}
}

func Subtasks(subtasks ...Subtask) TaskType {
	return TaskType{Kind: SubtaskTask, Subtasks: subtasks}
}

type Subtask struct {
	Cases []Case `json:"cases" yaml:"cases" validate:"dive"`
	Score uint32 `json:"score" yaml:"score"`
}

// Case is one input/answer pair. A nil Score inherits from the containing
// subtask or task; that policy belongs to the consumer.
type Case struct {
	Input  string  `json:"input" yaml:"input" validate:"required"`
	Answer string  `json:"answer" yaml:"answer" validate:"required"`
	Score  *uint32 `json:"score,omitempty" yaml:"score,omitempty" validate:"omitempty,gt=0"`
}

// NewCasesConfig assembles and validates a configuration.
func NewCasesConfig(score uint32, judge JudgeType, limits ResourceLimits, task TaskType) (CasesConfig, error) {
	c := CasesConfig{Score: score, Judge: judge, ResourceLimits: limits, Task: task}
	if err := c.Validate(); err != nil {
		return CasesConfig{}, err
	}
	return c, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the structural invariants of c.
func (c CasesConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return validationError(err)
	}
	switch c.Judge.Kind {
	case ClassicJudge:
	case SpecialJudge:
		if strings.TrimSpace(c.Judge.Checker) == "" {
			return &errs.Error{Kind: errs.MissingRequiredField, Field: "judge.checker", Msg: "checker is required for a special judge"}
		}
	default:
		return &errs.Error{Kind: errs.InvalidDocument, Field: "judge.judgeType", Msg: fmt.Sprintf("unknown judge type %q", c.Judge.Kind)}
	}
	switch c.Task.Kind {
	case SimpleTask, SubtaskTask:
	default:
		return &errs.Error{Kind: errs.InvalidDocument, Field: "task.taskType", Msg: fmt.Sprintf("unknown task type %q", c.Task.Kind)}
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return errs.Wrap(errs.InvalidDocument, err, "invalid configuration")
	}
	fe := verrs[0]
	field := fieldPath(fe.Namespace())
	switch fe.Tag() {
	case "required":
		return &errs.Error{Kind: errs.MissingRequiredField, Field: field, Msg: "value is required"}
	case "gt":
		return &errs.Error{Kind: errs.InvalidScalarValue, Field: field, Msg: "invalid value: must be greater than zero"}
	default:
		return &errs.Error{Kind: errs.InvalidDocument, Field: field, Msg: fmt.Sprintf("failed %q check", fe.Tag())}
	}
}

// fieldPath turns "CasesConfig.Task.Subtasks[0].Cases[1].Score" into
// "task.subtasks[0].cases[1].score".
func fieldPath(ns string) string {
	parts := strings.Split(ns, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	for i, p := range parts {
		if p != "" {
			parts[i] = strings.ToLower(p[:1]) + p[1:]
		}
	}
	return strings.Join(parts, ".")
}

type judgeWire struct {
	JudgeType JudgeKind `json:"judgeType" yaml:"judgeType"`
	Checker   string    `json:"checker,omitempty" yaml:"checker,omitempty"`
}

func (j JudgeType) MarshalJSON() ([]byte, error) {
	return json.Marshal(judgeWire{JudgeType: j.Kind, Checker: j.Checker})
}

func (j *JudgeType) UnmarshalJSON(data []byte) error {
	var w judgeWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return j.fromWire(w)
}

func (j JudgeType) MarshalYAML() (any, error) {
	return judgeWire{JudgeType: j.Kind, Checker: j.Checker}, nil
}

func (j *JudgeType) UnmarshalYAML(node *yaml.Node) error {
	var w judgeWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return errs.WithLine(j.fromWire(w), node.Line)
}

func (j *JudgeType) fromWire(w judgeWire) error {
	switch w.JudgeType {
	case ClassicJudge:
		if w.Checker != "" {
			return &errs.Error{Kind: errs.ConflictingFields, Field: "judge.checker", Msg: "a classic judge takes no checker"}
		}
		*j = Classic()
	case SpecialJudge:
		*j = Special(w.Checker)
	default:
		return &errs.Error{Kind: errs.InvalidDocument, Field: "judge.judgeType", Msg: fmt.Sprintf("unknown judge type %q", w.JudgeType)}
	}
	return nil
}

type taskWire struct {
	TaskType TaskKind  `json:"taskType" yaml:"taskType"`
	Cases    []Case    `json:"cases,omitempty" yaml:"cases,omitempty"`
	Subtasks []Subtask `json:"subtasks,omitempty" yaml:"subtasks,omitempty"`
}

func (t TaskType) wire() taskWire {
	w := taskWire{TaskType: t.Kind}
	switch t.Kind {
	case SimpleTask:
		w.Cases = t.Cases
		if w.Cases == nil {
			w.Cases = []Case{}
		}
	case SubtaskTask:
		w.Subtasks = t.Subtasks
		if w.Subtasks == nil {
			w.Subtasks = []Subtask{}
		}
	}
	return w
}

func (t TaskType) MarshalJSON() ([]byte, error) {
	w := t.wire()
	// omitempty drops empty lists; the variant's own list is always written.
	switch t.Kind {
	case SimpleTask:
		return json.Marshal(struct {
			TaskType TaskKind `json:"taskType"`
			Cases    []Case   `json:"cases"`
		}{w.TaskType, w.Cases})
	case SubtaskTask:
		return json.Marshal(struct {
			TaskType TaskKind  `json:"taskType"`
			Subtasks []Subtask `json:"subtasks"`
		}{w.TaskType, w.Subtasks})
	}
	return json.Marshal(w)
}

func (t *TaskType) UnmarshalJSON(data []byte) error {
	var w taskWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return t.fromWire(w)
}

func (t TaskType) MarshalYAML() (any, error) {
	w := t.wire()
	switch t.Kind {
	case SimpleTask:
		return struct {
			TaskType TaskKind `yaml:"taskType"`
			Cases    []Case   `yaml:"cases"`
		}{w.TaskType, w.Cases}, nil
	case SubtaskTask:
		return struct {
			TaskType TaskKind  `yaml:"taskType"`
			Subtasks []Subtask `yaml:"subtasks"`
		}{w.TaskType, w.Subtasks}, nil
	}
	return w, nil
}

func (t *TaskType) UnmarshalYAML(node *yaml.Node) error {
	var w taskWire
	if err := node.Decode(&w); err != nil {
		return err
	}
	return errs.WithLine(t.fromWire(w), node.Line)
}

func (t *TaskType) fromWire(w taskWire) error {
	switch w.TaskType {
	case SimpleTask:
		if len(w.Subtasks) > 0 {
			return &errs.Error{Kind: errs.ConflictingFields, Field: "task.subtasks", Msg: "a simple task takes no subtasks"}
		}
		*t = Simple(w.Cases...)
	case SubtaskTask:
		if len(w.Cases) > 0 {
			return &errs.Error{Kind: errs.ConflictingFields, Field: "task.cases", Msg: "a subtask task lists cases inside its subtasks"}
		}
		*t = Subtasks(w.Subtasks...)
	default:
		return &errs.Error{Kind: errs.InvalidDocument, Field: "task.taskType", Msg: fmt.Sprintf("unknown task type %q", w.TaskType)}
	}
	return nil
}

// UnmarshalJSON decodes the canonical encoding and re-checks invariants.
func (c *CasesConfig) UnmarshalJSON(data []byte) error {
	type plain CasesConfig
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	if err := CasesConfig(p).Validate(); err != nil {
		return err
	}
	*c = CasesConfig(p)
	return nil
}

func (c *CasesConfig) UnmarshalYAML(node *yaml.Node) error {
	type plain CasesConfig
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	if err := CasesConfig(p).Validate(); err != nil {
		return err
	}
	*c = CasesConfig(p)
	return nil
}

// CaseCount returns the number of cases across the task.
func (c CasesConfig) CaseCount() int {
	if c.Task.Kind == SimpleTask {
		return len(c.Task.Cases)
	}
	n := 0
	for _, st := range c.Task.Subtasks {
		n += len(st.Cases)
	}
	return n
}

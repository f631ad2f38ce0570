package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"caseport/internal/errs"
)

func score(v uint32) *uint32 { return &v }

func sampleSubtaskConfig(t *testing.T) CasesConfig {
	t.Helper()
	c, err := NewCasesConfig(100, Special("checker.cpp"), ResourceLimits{Time: 1000, Memory: 262144}, Subtasks(
		Subtask{Score: 40, Cases: []Case{{Input: "1.in", Answer: "1.out"}, {Input: "2.in", Answer: "2.out"}}},
		Subtask{Score: 60, Cases: []Case{{Input: "3.in", Answer: "3.out", Score: score(20)}}},
	))
	require.NoError(t, err)
	return c
}

func TestNewCasesConfig(t *testing.T) {
	t.Run("Should reject a zero score", func(t *testing.T) {
		_, err := NewCasesConfig(0, Classic(), ResourceLimits{Time: 1000, Memory: 256}, Simple(Case{Input: "1.in", Answer: "1.out"}))
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidScalarValue))
		assert.Contains(t, err.Error(), "score")
	})

	t.Run("Should accept a score of one", func(t *testing.T) {
		c, err := NewCasesConfig(1, Classic(), ResourceLimits{}, Simple())
		require.NoError(t, err)
		assert.Equal(t, uint32(1), c.Score)
	})

	t.Run("Should reject a zero case score", func(t *testing.T) {
		_, err := NewCasesConfig(100, Classic(), ResourceLimits{}, Subtasks(Subtask{Cases: []Case{{Input: "a", Answer: "b", Score: score(0)}}}))
		require.Error(t, err)
		assert.True(t, errs.Is(err, errs.InvalidScalarValue))
		assert.Contains(t, err.Error(), "task.subtasks[0].cases[0].score")
	})

	t.Run("Should require case paths", func(t *testing.T) {
		_, err := NewCasesConfig(100, Classic(), ResourceLimits{}, Simple(Case{Input: "1.in"}))
		assert.True(t, errs.Is(err, errs.MissingRequiredField), "got %v", err)
	})

	t.Run("Should require a checker for special judges", func(t *testing.T) {
		_, err := NewCasesConfig(100, Special(" "), ResourceLimits{}, Simple())
		assert.True(t, errs.Is(err, errs.MissingRequiredField), "got %v", err)
	})
}

func TestCanonicalJSON(t *testing.T) {
	t.Run("Should use the canonical field names", func(t *testing.T) {
		c, err := NewCasesConfig(100, Classic(), ResourceLimits{Time: 1000, Memory: 512}, Simple(
			Case{Input: "1.in", Answer: "1.out"},
			Case{Input: "2.in", Answer: "2.out", Score: score(60)},
		))
		require.NoError(t, err)
		data, err := json.Marshal(c)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"score": 100,
			"judge": {"judgeType": "classic"},
			"resourceLimits": {"time": 1000, "memory": 512},
			"task": {"taskType": "simple", "cases": [
				{"input": "1.in", "answer": "1.out"},
				{"input": "2.in", "answer": "2.out", "score": 60}
			]}
		}`, string(data))
	})

	t.Run("Should round-trip exactly", func(t *testing.T) {
		c := sampleSubtaskConfig(t)
		data, err := json.Marshal(c)
		require.NoError(t, err)
		var back CasesConfig
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, c, back)
	})

	t.Run("Should decode a special judge document", func(t *testing.T) {
		var c CasesConfig
		require.NoError(t, json.Unmarshal([]byte(`{
			"score": 100,
			"judge": {"judgeType": "special-judge", "checker": "checker.cpp"},
			"resourceLimits": {"time": 1000, "memory": 256},
			"task": {"taskType": "subtask", "subtasks": [
				{"cases": [{"input": "1.in", "answer": "1.ans"}], "score": 40},
				{"cases": [{"input": "3.in", "answer": "3.ans"}], "score": 60}
			]}
		}`), &c))
		assert.Equal(t, SpecialJudge, c.Judge.Kind)
		assert.Equal(t, "checker.cpp", c.Judge.Checker)
		assert.Equal(t, 2, c.CaseCount())
	})

	t.Run("Should re-validate on decode", func(t *testing.T) {
		var c CasesConfig
		err := json.Unmarshal([]byte(`{"score":0,"judge":{"judgeType":"classic"},"resourceLimits":{"time":1,"memory":1},"task":{"taskType":"simple","cases":[]}}`), &c)
		assert.True(t, errs.Is(err, errs.InvalidScalarValue), "got %v", err)
	})

	t.Run("Should reject unknown variants", func(t *testing.T) {
		var c CasesConfig
		err := json.Unmarshal([]byte(`{"score":1,"judge":{"judgeType":"interactive"},"resourceLimits":{"time":1,"memory":1},"task":{"taskType":"simple","cases":[]}}`), &c)
		assert.True(t, errs.Is(err, errs.InvalidDocument), "got %v", err)
	})
}

func TestCanonicalYAML(t *testing.T) {
	c := sampleSubtaskConfig(t)
	data, err := yaml.Marshal(c)
	require.NoError(t, err)
	assert.Contains(t, string(data), "taskType: subtask")
	assert.Contains(t, string(data), "judgeType: special-judge")
	assert.Contains(t, string(data), "resourceLimits:")

	var back CasesConfig
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

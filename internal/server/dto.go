package server

import (
	"encoding/json"

	"caseport/internal/domain"
)

type ConvertRequest struct {
	Document string `json:"document" minLength:"1" doc:"Legacy configuration document (YAML)"`
}

type CaseResponse struct {
	Input  string  `json:"input"`
	Answer string  `json:"answer"`
	Score  *uint32 `json:"score,omitempty"`
}

type SubtaskResponse struct {
	Cases []CaseResponse `json:"cases"`
	Score uint32         `json:"score"`
}

type JudgeResponse struct {
	JudgeType string `json:"judgeType" enum:"classic,special-judge"`
	Checker   string `json:"checker,omitempty"`
}

type ResourceLimitsResponse struct {
	Time   uint32 `json:"time" doc:"Milliseconds"`
	Memory uint32 `json:"memory" doc:"KiB"`
}

type TaskResponse struct {
	TaskType string            `json:"taskType" enum:"simple,subtask"`
	Cases    []CaseResponse    `json:"cases,omitempty"`
	Subtasks []SubtaskResponse `json:"subtasks,omitempty"`
}

// CasesConfigResponse mirrors the canonical encoding of domain.CasesConfig.
type CasesConfigResponse struct {
	Score          uint32                 `json:"score"`
	Judge          JudgeResponse          `json:"judge"`
	ResourceLimits ResourceLimitsResponse `json:"resourceLimits"`
	Task           TaskResponse           `json:"task"`
}

type RunResponse struct {
	ID         string  `json:"id"`
	Source     string  `json:"source"`
	Output     string  `json:"output,omitempty"`
	Status     string  `json:"status" enum:"running,succeeded,failed"`
	Documents  int     `json:"documents"`
	Renamed    int     `json:"renamed"`
	Bytes      int64   `json:"bytes"`
	ErrorKind  string  `json:"error_kind,omitempty"`
	Error      string  `json:"error,omitempty"`
	StartedAt  string  `json:"started_at" format:"date-time"`
	FinishedAt *string `json:"finished_at,omitempty" format:"date-time"`
}

type EventResponse struct {
	ID      int64          `json:"id"`
	TS      string         `json:"ts" format:"date-time"`
	RunID   string         `json:"run_id"`
	Type    string         `json:"type"`
	Subject string         `json:"subject,omitempty"`
	Payload map[string]any `json:"payload"`
}

type paginatedRuns struct {
	Items []RunResponse `json:"items"`
}

type paginatedEvents struct {
	Items      []EventResponse `json:"items"`
	NextCursor string          `json:"next_cursor,omitempty"`
}

func casesConfigResponse(c domain.CasesConfig) CasesConfigResponse {
	resp := CasesConfigResponse{
		Score:          c.Score,
		Judge:          JudgeResponse{JudgeType: string(c.Judge.Kind), Checker: c.Judge.Checker},
		ResourceLimits: ResourceLimitsResponse{Time: c.ResourceLimits.Time, Memory: c.ResourceLimits.Memory},
		Task:           TaskResponse{TaskType: string(c.Task.Kind)},
	}
	switch c.Task.Kind {
	case domain.SimpleTask:
		resp.Task.Cases = mapCases(c.Task.Cases)
	case domain.SubtaskTask:
		for _, st := range c.Task.Subtasks {
			resp.Task.Subtasks = append(resp.Task.Subtasks, SubtaskResponse{Cases: mapCases(st.Cases), Score: st.Score})
		}
	}
	return resp
}

func mapCases(in []domain.Case) []CaseResponse {
	out := make([]CaseResponse, 0, len(in))
	for _, c := range in {
		out = append(out, CaseResponse{Input: c.Input, Answer: c.Answer, Score: c.Score})
	}
	return out
}

func runResponse(r domain.Run) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Source:     r.Source,
		Output:     r.Output,
		Status:     r.Status,
		Documents:  r.Documents,
		Renamed:    r.Renamed,
		Bytes:      r.Bytes,
		ErrorKind:  r.ErrorKind,
		Error:      r.Error,
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
	}
}

func mapRuns(items []domain.Run) []RunResponse {
	out := make([]RunResponse, 0, len(items))
	for _, r := range items {
		out = append(out, runResponse(r))
	}
	return out
}

func eventResponse(e domain.Event) EventResponse {
	return EventResponse{
		ID:      e.ID,
		TS:      e.TS,
		RunID:   e.RunID,
		Type:    e.Type,
		Subject: e.Subject,
		Payload: decodeJSONMap(e.Payload),
	}
}

func decodeJSONMap(raw string) map[string]any {
	out := map[string]any{}
	if raw == "" {
		return out
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return map[string]any{}
	}
	return out
}

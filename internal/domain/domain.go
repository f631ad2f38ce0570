package domain

// Run status values.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// Run is one archive conversion recorded in the journal.
type Run struct {
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

type Event struct {
	ID      int64  `json:"id"`
	TS      string `json:"ts" format:"date-time"`
	RunID   string `json:"run_id"`
	Type    string `json:"type"`
	Subject string `json:"subject,omitempty"`
	Payload string `json:"payload_json"`
}

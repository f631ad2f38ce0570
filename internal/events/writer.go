package events

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"slices"
	"time"
)

// Journal event types.
const (
	RunStarted        = "run.started"
	FileRenamed       = "file.renamed"
	DocumentConverted = "document.converted"
	RunFailed         = "run.failed"
	RunSucceeded      = "run.succeeded"
)

var types = []string{RunStarted, FileRenamed, DocumentConverted, RunFailed, RunSucceeded}

// Types lists every event type the journal accepts, in pipeline order.
func Types() []string { return slices.Clone(types) }

// Writer appends run events inside the caller's transaction.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

type EventPayload map[string]any

// Append records one event for runID. subject names the archive, file or
// document the event is about.
func (w Writer) Append(ctx context.Context, tx *sql.Tx, evtType, runID, subject string, payload EventPayload) error {
	if !slices.Contains(types, evtType) {
		return fmt.Errorf("unknown event type %q", evtType)
	}
	if runID == "" {
		return fmt.Errorf("event %s: run id required", evtType)
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	if payload == nil {
		payload = EventPayload{}
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", evtType, err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO events(ts,run_id,type,subject,payload_json) VALUES (?,?,?,?,?)`,
		now().UTC().Format(time.RFC3339Nano), runID, evtType, subject, string(data))
	return err
}

package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"caseport/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const runColumns = `id,source,output,status,documents,renamed,bytes,error_kind,error,started_at,finished_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (domain.Run, error) {
	var r domain.Run
	var finished sql.NullString
	err := row.Scan(&r.ID, &r.Source, &r.Output, &r.Status, &r.Documents, &r.Renamed, &r.Bytes, &r.ErrorKind, &r.Error, &r.StartedAt, &finished)
	if err == sql.ErrNoRows {
		return r, ErrNotFound
	}
	if finished.Valid {
		r.FinishedAt = &finished.String
	}
	return r, err
}

func (r Repo) InsertRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO runs(`+runColumns+`) VALUES (?,?,?,?,?,?,?,?,?,?,?)`,
		run.ID, run.Source, run.Output, run.Status, run.Documents, run.Renamed, run.Bytes, run.ErrorKind, run.Error, run.StartedAt, nullableStringPtr(run.FinishedAt))
	return err
}

// FinishRun stores the terminal state of a run.
func (r Repo) FinishRun(ctx context.Context, tx *sql.Tx, run domain.Run) error {
	res, err := tx.ExecContext(ctx, `UPDATE runs SET output=?,status=?,documents=?,renamed=?,bytes=?,error_kind=?,error=?,finished_at=? WHERE id=?`,
		run.Output, run.Status, run.Documents, run.Renamed, run.Bytes, run.ErrorKind, run.Error, nullableStringPtr(run.FinishedAt), run.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) GetRun(ctx context.Context, id string) (domain.Run, error) {
	return scanRun(r.DB.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id=?`, id))
}

type RunFilters struct {
	Status string
	Limit  int
}

// ListRuns returns the most recent runs first.
func (r Repo) ListRuns(ctx context.Context, f RunFilters) ([]domain.Run, error) {
	clauses := []string{"1=1"}
	var args []any
	if f.Status != "" {
		clauses = append(clauses, "status=?")
		args = append(args, f.Status)
	}
	if f.Limit <= 0 {
		f.Limit = 50
	}
	query := fmt.Sprintf(`SELECT %s FROM runs WHERE %s ORDER BY started_at DESC, rowid DESC LIMIT ?`, runColumns, strings.Join(clauses, " AND "))
	args = append(args, f.Limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, run)
	}
	return res, rows.Err()
}

// RunEvents returns the events of a run in append order, starting after cursor.
func (r Repo) RunEvents(ctx context.Context, runID string, cursor int64, limit int) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,ts,run_id,type,subject,payload_json FROM events WHERE run_id=? AND id>? ORDER BY id ASC LIMIT ?`,
		runID, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		var e domain.Event
		if err := rows.Scan(&e.ID, &e.TS, &e.RunID, &e.Type, &e.Subject, &e.Payload); err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID of a run.
func (r Repo) LatestEventID(ctx context.Context, runID string) (int64, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events WHERE run_id=?`, runID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullableStringPtr(v *string) any {
	if v == nil {
		return nil
	}
	return *v
}

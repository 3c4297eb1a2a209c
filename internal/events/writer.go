package events

import (
	"context"
	"database/sql"
	"time"

	"dealflow/internal/domain"
)

// Writer appends entries to the project event log. When a transaction is
// supplied the append commits with the caller's row update.
type Writer struct {
	DB  *sql.DB
	Now func() time.Time
}

func (w Writer) Append(ctx context.Context, tx *sql.Tx, projectID int64, stage domain.Stage, action, details string) error {
	now := w.Now
	if now == nil {
		now = time.Now
	}
	ts := now().UTC().Format(time.RFC3339)
	const q = `INSERT INTO events(project_id, stage, action, details, ts) VALUES (?,?,?,?,?)`
	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, q, projectID, string(stage), action, details, ts)
	} else {
		_, err = w.DB.ExecContext(ctx, q, projectID, string(stage), action, details, ts)
	}
	return err
}

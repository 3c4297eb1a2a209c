package repo

import (
	"context"
	"database/sql"

	"dealflow/internal/domain"
)

func (r Repo) InsertClarificationTx(ctx context.Context, tx *sql.Tx, c domain.Clarification) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO clarifications(project_id,question,created_at) VALUES (?,?,?)`,
		c.ProjectID, c.Question, c.CreatedAt)
	return err
}

func (r Repo) ListClarifications(ctx context.Context, projectID int64) ([]domain.Clarification, error) {
	return listClarifications(ctx, r.DB.QueryContext, projectID, false)
}

// ListOpenClarificationsTx returns unanswered questions inside the caller's
// transaction, oldest first.
func (r Repo) ListOpenClarificationsTx(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.Clarification, error) {
	return listClarifications(ctx, tx.QueryContext, projectID, true)
}

func (r Repo) ListClarificationsTx(ctx context.Context, tx *sql.Tx, projectID int64) ([]domain.Clarification, error) {
	return listClarifications(ctx, tx.QueryContext, projectID, false)
}

type queryFunc func(ctx context.Context, query string, args ...any) (*sql.Rows, error)

func listClarifications(ctx context.Context, query queryFunc, projectID int64, openOnly bool) ([]domain.Clarification, error) {
	q := `SELECT id,project_id,question,COALESCE(answer,''),created_at,COALESCE(answered_at,'') FROM clarifications WHERE project_id=?`
	if openOnly {
		q += ` AND answer IS NULL`
	}
	q += ` ORDER BY id ASC`
	rows, err := query(ctx, q, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Clarification
	for rows.Next() {
		var c domain.Clarification
		if err := rows.Scan(&c.ID, &c.ProjectID, &c.Question, &c.Answer, &c.CreatedAt, &c.AnsweredAt); err != nil {
			return nil, err
		}
		res = append(res, c)
	}
	return res, rows.Err()
}

// AnswerClarificationTx records the answer for one question.
func (r Repo) AnswerClarificationTx(ctx context.Context, tx *sql.Tx, id int64, answer, answeredAt string) error {
	res, err := tx.ExecContext(ctx, `UPDATE clarifications SET answer=?, answered_at=? WHERE id=? AND answer IS NULL`,
		answer, answeredAt, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

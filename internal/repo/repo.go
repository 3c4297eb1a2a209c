package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"dealflow/internal/domain"
)

type Repo struct {
	DB *sql.DB
}

var ErrNotFound = errors.New("not found")

const projectColumns = `id,reference,title,description,client_name,client_budget,platform,stage,
estimated_margin,estimated_profit,estimated_hours,suggested_price,fixed_price,spec_approved,
payment_confirmed,payment_method,payment_ref,qa_score,rejected,rejection_reason,
created_at,vetted_at,quoted_at,paid_at,delivered_at,closed_at,updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (domain.Project, error) {
	var p domain.Project
	var stage string
	var reason, method, ref, vetted, quoted, paid, delivered, closed sql.NullString
	var specApproved, paymentConfirmed, rejected int
	err := row.Scan(&p.ID, &p.Reference, &p.Title, &p.Description, &p.ClientName, &p.ClientBudget, &p.Platform, &stage,
		&p.EstimatedMargin, &p.EstimatedProfit, &p.EstimatedHours, &p.SuggestedPrice, &p.FixedPrice, &specApproved,
		&paymentConfirmed, &method, &ref, &p.QAScore, &rejected, &reason,
		&p.CreatedAt, &vetted, &quoted, &paid, &delivered, &closed, &p.UpdatedAt)
	if err == sql.ErrNoRows {
		return p, ErrNotFound
	}
	if err != nil {
		return p, err
	}
	p.Stage = domain.Stage(stage)
	p.RejectionReason = domain.RejectionReason(reason.String)
	p.SpecApproved = specApproved != 0
	p.PaymentConfirmed = paymentConfirmed != 0
	p.Rejected = rejected != 0
	if method.Valid {
		p.PaymentMethod = method.String
	}
	if ref.Valid {
		p.PaymentRef = ref.String
	}
	if vetted.Valid {
		p.VettedAt = vetted.String
	}
	if quoted.Valid {
		p.QuotedAt = quoted.String
	}
	if paid.Valid {
		p.PaidAt = paid.String
	}
	if delivered.Valid {
		p.DeliveredAt = delivered.String
	}
	if closed.Valid {
		p.ClosedAt = closed.String
	}
	return p, nil
}

// CreateProject inserts a new project and returns it with its assigned ID.
func (r Repo) CreateProject(ctx context.Context, tx *sql.Tx, p domain.Project) (domain.Project, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO projects(reference,title,description,client_name,client_budget,platform,stage,created_at,updated_at)
VALUES (?,?,?,?,?,?,?,?,?)`,
		p.Reference, p.Title, p.Description, p.ClientName, p.ClientBudget, p.Platform, string(p.Stage), p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return p, err
	}
	p.ID, err = res.LastInsertId()
	return p, err
}

func (r Repo) GetProject(ctx context.Context, id int64) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) GetProjectTx(ctx context.Context, tx *sql.Tx, id int64) (domain.Project, error) {
	return scanProject(tx.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE id=?`, id))
}

func (r Repo) GetProjectByReference(ctx context.Context, reference string) (domain.Project, error) {
	return scanProject(r.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM projects WHERE reference=?`, reference))
}

// ReferenceExists reports whether a reference is already taken.
func (r Repo) ReferenceExists(ctx context.Context, tx *sql.Tx, reference string) (bool, error) {
	var n int
	row := tx.QueryRowContext(ctx, `SELECT count(*) FROM projects WHERE reference=?`, reference)
	if err := row.Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpdateProjectTx writes every mutable column back. Callers hold the
// project lock and commit an event in the same transaction.
func (r Repo) UpdateProjectTx(ctx context.Context, tx *sql.Tx, p domain.Project) error {
	res, err := tx.ExecContext(ctx, `UPDATE projects SET
title=?, description=?, client_name=?, client_budget=?, platform=?, stage=?,
estimated_margin=?, estimated_profit=?, estimated_hours=?, suggested_price=?, fixed_price=?, spec_approved=?,
payment_confirmed=?, payment_method=?, payment_ref=?, qa_score=?, rejected=?, rejection_reason=?,
vetted_at=?, quoted_at=?, paid_at=?, delivered_at=?, closed_at=?, updated_at=?
WHERE id=?`,
		p.Title, p.Description, p.ClientName, p.ClientBudget, p.Platform, string(p.Stage),
		p.EstimatedMargin, p.EstimatedProfit, p.EstimatedHours, p.SuggestedPrice, p.FixedPrice, boolInt(p.SpecApproved),
		boolInt(p.PaymentConfirmed), nullable(p.PaymentMethod), nullable(p.PaymentRef), p.QAScore, boolInt(p.Rejected), nullable(string(p.RejectionReason)),
		nullable(p.VettedAt), nullable(p.QuotedAt), nullable(p.PaidAt), nullable(p.DeliveredAt), nullable(p.ClosedAt), p.UpdatedAt,
		p.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type ProjectFilters struct {
	Stage    domain.Stage
	Platform string
	Rejected *bool
	Limit    int
	CursorID int64
}

func (r Repo) ListProjects(ctx context.Context, f ProjectFilters) ([]domain.Project, error) {
	var clauses []string
	var args []any
	if f.Stage != "" {
		clauses = append(clauses, "stage=?")
		args = append(args, string(f.Stage))
	}
	if f.Platform != "" {
		clauses = append(clauses, "platform=?")
		args = append(args, f.Platform)
	}
	if f.Rejected != nil {
		clauses = append(clauses, "rejected=?")
		args = append(args, boolInt(*f.Rejected))
	}
	if f.CursorID > 0 {
		clauses = append(clauses, "id<?")
		args = append(args, f.CursorID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}
	query := `SELECT ` + projectColumns + ` FROM projects ` + where + ` ORDER BY id DESC`
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// ListAwaitingPayment returns projects parked in awaiting_payment with no
// confirmed payment, oldest first. The payment monitor polls this set.
func (r Repo) ListAwaitingPayment(ctx context.Context) ([]domain.Project, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT `+projectColumns+` FROM projects WHERE stage=? AND payment_confirmed=0 ORDER BY id ASC`,
		string(domain.StageAwaitingPayment))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

// Stats aggregates the book of business for reporting.
func (r Repo) Stats(ctx context.Context) (domain.Stats, error) {
	var s domain.Stats
	rows, err := r.DB.QueryContext(ctx, `SELECT stage, count(*) FROM projects GROUP BY stage ORDER BY stage`)
	if err != nil {
		return s, err
	}
	defer rows.Close()
	for rows.Next() {
		var st domain.StageStats
		var stage string
		if err := rows.Scan(&stage, &st.Count); err != nil {
			return s, err
		}
		st.Stage = domain.Stage(stage)
		s.ByStage = append(s.ByStage, st)
		s.Total += st.Count
		if st.Stage == domain.StageRejected {
			s.Rejected = st.Count
		}
	}
	if err := rows.Err(); err != nil {
		return s, err
	}
	err = r.DB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN payment_confirmed=1 THEN fixed_price ELSE 0 END),0),
COALESCE(SUM(CASE WHEN payment_confirmed=0 AND rejected=0 AND stage NOT IN ('closed','rejected') THEN CASE WHEN fixed_price>0 THEN fixed_price ELSE client_budget END ELSE 0 END),0)
FROM projects`).Scan(&s.ConfirmedValue, &s.PipelineValue)
	return s, err
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanEvent(row rowScanner) (domain.Event, error) {
	var e domain.Event
	var stage string
	err := row.Scan(&e.ID, &e.ProjectID, &stage, &e.Action, &e.Details, &e.TS)
	if err != nil {
		return e, err
	}
	e.Stage = domain.Stage(stage)
	return e, nil
}

// EventsForProject returns a project's log in commit order.
func (r Repo) EventsForProject(ctx context.Context, projectID int64) ([]domain.Event, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,stage,action,details,ts FROM events WHERE project_id=? ORDER BY id ASC`, projectID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEvents returns the most recent events across all projects,
// optionally filtered by action.
func (r Repo) LatestEvents(ctx context.Context, limit int, action string) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 50
	}
	clauses := []string{"1=1"}
	var args []any
	if action != "" {
		clauses = append(clauses, "action=?")
		args = append(args, action)
	}
	where := "WHERE " + strings.Join(clauses, " AND ")
	query := fmt.Sprintf(`SELECT id,project_id,stage,action,details,ts FROM events %s ORDER BY id DESC LIMIT ?`, where)
	args = append(args, limit)
	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// EventsAfter returns events with IDs greater than the cursor in ascending
// order. The webhook dispatcher pages through the log with this.
func (r Repo) EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.DB.QueryContext(ctx, `SELECT id,project_id,stage,action,details,ts FROM events WHERE id>? ORDER BY id ASC LIMIT ?`, cursor, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var res []domain.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, e)
	}
	return res, rows.Err()
}

// LatestEventID returns the most recent event ID, zero when the log is empty.
func (r Repo) LatestEventID(ctx context.Context) (int64, error) {
	var id int64
	err := r.DB.QueryRowContext(ctx, `SELECT COALESCE(MAX(id),0) FROM events`).Scan(&id)
	return id, err
}

package repo

import (
	"context"
	"errors"
	"strings"

	"dealflow/internal/domain"
)

// InsertWebhook registers an event subscriber. Cursor starts at the current
// log head so a new hook only sees events created after registration.
func (r Repo) InsertWebhook(ctx context.Context, w domain.Webhook) error {
	if w.ID == "" {
		return errors.New("id required")
	}
	if strings.TrimSpace(w.URL) == "" {
		return errors.New("url required")
	}
	_, err := r.DB.ExecContext(ctx, `INSERT INTO webhooks(id, url, secret, cursor, created_at) VALUES (?,?,?,?,?)`,
		w.ID, w.URL, nullable(w.Secret), w.Cursor, w.CreatedAt)
	return err
}

func (r Repo) ListWebhooks(ctx context.Context) ([]domain.Webhook, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT id, url, COALESCE(secret,''), cursor, created_at FROM webhooks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var hooks []domain.Webhook
	for rows.Next() {
		var w domain.Webhook
		if err := rows.Scan(&w.ID, &w.URL, &w.Secret, &w.Cursor, &w.CreatedAt); err != nil {
			return nil, err
		}
		hooks = append(hooks, w)
	}
	return hooks, rows.Err()
}

// UpdateWebhookCursor advances a hook's delivery position.
func (r Repo) UpdateWebhookCursor(ctx context.Context, id string, cursor int64) error {
	res, err := r.DB.ExecContext(ctx, `UPDATE webhooks SET cursor=? WHERE id=?`, cursor, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r Repo) DeleteWebhook(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM webhooks WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

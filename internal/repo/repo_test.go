package repo_test

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"dealflow/internal/db"
	"dealflow/internal/domain"
	"dealflow/internal/migrate"
	"dealflow/internal/repo"
)

func newRepo(t *testing.T) repo.Repo {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return repo.Repo{DB: conn}
}

func inTx(t *testing.T, r repo.Repo, fn func(tx *sql.Tx) error) {
	t.Helper()
	tx, err := r.DB.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer tx.Rollback()
	if err := fn(tx); err != nil {
		t.Fatalf("tx op: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
}

func seed(t *testing.T, r repo.Repo, ref string, stage domain.Stage, budget float64) domain.Project {
	t.Helper()
	var created domain.Project
	inTx(t, r, func(tx *sql.Tx) error {
		p := domain.Project{
			Reference:    ref,
			Title:        "job " + ref,
			ClientName:   "acme",
			ClientBudget: budget,
			Platform:     "upwork",
			Stage:        stage,
			CreatedAt:    "2024-06-01T00:00:00Z",
			UpdatedAt:    "2024-06-01T00:00:00Z",
		}
		var err error
		created, err = r.CreateProject(context.Background(), tx, p)
		return err
	})
	return created
}

func TestProjectRoundtrip(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	created := seed(t, r, "NX-1", domain.StageIntake, 200)
	if created.ID == 0 {
		t.Fatalf("no id assigned")
	}

	got, err := r.GetProject(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Reference != "NX-1" || got.ClientBudget != 200 || got.Stage != domain.StageIntake {
		t.Fatalf("roundtrip mismatch: %+v", got)
	}

	byRef, err := r.GetProjectByReference(ctx, "NX-1")
	if err != nil || byRef.ID != created.ID {
		t.Fatalf("by reference: %+v, %v", byRef, err)
	}

	if _, err := r.GetProject(ctx, 999); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("missing project: %v, want ErrNotFound", err)
	}
}

func TestGetProjectScansFreshRow(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	// a fresh insert leaves rejection_reason and the stage timestamps NULL
	p := seed(t, r, "NX-1", domain.StageIntake, 200)

	got, err := r.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatalf("get fresh row: %v", err)
	}
	if got.RejectionReason != "" || got.Rejected {
		t.Fatalf("fresh row reads as rejected: %+v", got)
	}
	if got.VettedAt != "" || got.PaidAt != "" || got.ClosedAt != "" {
		t.Fatalf("fresh row has stage timestamps: %+v", got)
	}
}

func TestUpdateWritesNullableColumns(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := seed(t, r, "NX-1", domain.StageIntake, 200)

	p.Stage = domain.StagePaid
	p.PaymentConfirmed = true
	p.PaymentMethod = "crypto"
	p.PaymentRef = "0xabc"
	p.PaidAt = "2024-06-02T00:00:00Z"
	p.RejectionReason = ""
	inTx(t, r, func(tx *sql.Tx) error {
		return r.UpdateProjectTx(ctx, tx, p)
	})

	got, err := r.GetProject(ctx, p.ID)
	if err != nil {
		t.Fatal(err)
	}
	if !got.PaymentConfirmed || got.PaymentMethod != "crypto" || got.PaidAt != "2024-06-02T00:00:00Z" {
		t.Fatalf("nullable columns lost: %+v", got)
	}
	if got.VettedAt != "" || got.RejectionReason != "" {
		t.Fatalf("empty fields came back non-empty: %+v", got)
	}

	p.ID = 999
	tx, _ := r.DB.BeginTx(ctx, nil)
	err = r.UpdateProjectTx(ctx, tx, p)
	tx.Rollback()
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("update missing: %v, want ErrNotFound", err)
	}
}

func TestReferenceExists(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	seed(t, r, "NX-1", domain.StageIntake, 100)
	inTx(t, r, func(tx *sql.Tx) error {
		taken, err := r.ReferenceExists(ctx, tx, "NX-1")
		if err != nil {
			return err
		}
		if !taken {
			return errors.New("NX-1 should be taken")
		}
		free, err := r.ReferenceExists(ctx, tx, "NX-2")
		if err != nil {
			return err
		}
		if free {
			return errors.New("NX-2 should be free")
		}
		return nil
	})
}

func TestListProjectsFiltersAndPagination(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		seed(t, r, fmt.Sprintf("NX-%d", i), domain.StageIntake, 100)
	}
	quoted := seed(t, r, "NX-6", domain.StageQuoting, 500)

	byStage, err := r.ListProjects(ctx, repo.ProjectFilters{Stage: domain.StageQuoting})
	if err != nil || len(byStage) != 1 || byStage[0].ID != quoted.ID {
		t.Fatalf("stage filter: %d items, %v", len(byStage), err)
	}

	page, err := r.ListProjects(ctx, repo.ProjectFilters{Limit: 3})
	if err != nil || len(page) != 3 {
		t.Fatalf("first page: %d items, %v", len(page), err)
	}
	// newest first
	if page[0].ID <= page[1].ID {
		t.Fatalf("expected descending ids: %d, %d", page[0].ID, page[1].ID)
	}
	next, err := r.ListProjects(ctx, repo.ProjectFilters{Limit: 3, CursorID: page[2].ID})
	if err != nil || len(next) != 3 {
		t.Fatalf("second page: %d items, %v", len(next), err)
	}
	if next[0].ID >= page[2].ID {
		t.Fatalf("cursor overlap: %d >= %d", next[0].ID, page[2].ID)
	}
}

func TestListAwaitingPaymentSkipsConfirmed(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	a := seed(t, r, "NX-1", domain.StageAwaitingPayment, 100)
	b := seed(t, r, "NX-2", domain.StageAwaitingPayment, 200)
	seed(t, r, "NX-3", domain.StageIntake, 300)

	b.PaymentConfirmed = true
	inTx(t, r, func(tx *sql.Tx) error { return r.UpdateProjectTx(ctx, tx, b) })

	got, err := r.ListAwaitingPayment(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != a.ID {
		t.Fatalf("awaiting = %d items, want only the unconfirmed one", len(got))
	}
}

func TestStats(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	paid := seed(t, r, "NX-1", domain.StageExecuting, 100)
	paid.PaymentConfirmed = true
	paid.FixedPrice = 500
	inTx(t, r, func(tx *sql.Tx) error { return r.UpdateProjectTx(ctx, tx, paid) })

	seed(t, r, "NX-2", domain.StageQuoting, 300)

	rejected := seed(t, r, "NX-3", domain.StageRejected, 40)
	rejected.Rejected = true
	inTx(t, r, func(tx *sql.Tx) error { return r.UpdateProjectTx(ctx, tx, rejected) })

	s, err := r.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if s.Total != 3 || s.Rejected != 1 {
		t.Fatalf("total=%d rejected=%d", s.Total, s.Rejected)
	}
	if s.ConfirmedValue != 500 {
		t.Fatalf("confirmed value = %v, want 500", s.ConfirmedValue)
	}
	// only the open quoting project counts toward pipeline value
	if s.PipelineValue != 300 {
		t.Fatalf("pipeline value = %v, want 300", s.PipelineValue)
	}
}

func TestEventsPagination(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := seed(t, r, "NX-1", domain.StageIntake, 100)
	inTx(t, r, func(tx *sql.Tx) error {
		for i := 0; i < 5; i++ {
			_, err := tx.ExecContext(ctx,
				`INSERT INTO events(project_id,stage,action,details,ts) VALUES (?,?,?,?,?)`,
				p.ID, "intake", fmt.Sprintf("act-%d", i), "", "2024-06-01T00:00:00Z")
			if err != nil {
				return err
			}
		}
		return nil
	})

	all, err := r.EventsForProject(ctx, p.ID)
	if err != nil || len(all) != 5 {
		t.Fatalf("events = %d, %v", len(all), err)
	}

	latest, err := r.LatestEvents(ctx, 2, "")
	if err != nil || len(latest) != 2 || latest[0].ID < latest[1].ID {
		t.Fatalf("latest: %d items newest-first, %v", len(latest), err)
	}

	filtered, err := r.LatestEvents(ctx, 10, "act-3")
	if err != nil || len(filtered) != 1 {
		t.Fatalf("action filter: %d items, %v", len(filtered), err)
	}

	after, err := r.EventsAfter(ctx, 10, all[1].ID)
	if err != nil || len(after) != 3 {
		t.Fatalf("after cursor: %d items, %v", len(after), err)
	}
	if after[0].ID != all[2].ID {
		t.Fatalf("cursor start: %d, want %d", after[0].ID, all[2].ID)
	}

	maxID, err := r.LatestEventID(ctx)
	if err != nil || maxID != all[4].ID {
		t.Fatalf("latest id = %d, want %d", maxID, all[4].ID)
	}
}

func TestClarificationsAnswerOnce(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	p := seed(t, r, "NX-1", domain.StageBlocked, 100)

	inTx(t, r, func(tx *sql.Tx) error {
		for _, q := range []string{"what stack?", "which deadline?"} {
			if err := r.InsertClarificationTx(ctx, tx, domain.Clarification{
				ProjectID: p.ID, Question: q, CreatedAt: "2024-06-01T00:00:00Z",
			}); err != nil {
				return err
			}
		}
		return nil
	})

	all, err := r.ListClarifications(ctx, p.ID)
	if err != nil || len(all) != 2 {
		t.Fatalf("clarifications = %d, %v", len(all), err)
	}

	inTx(t, r, func(tx *sql.Tx) error {
		return r.AnswerClarificationTx(ctx, tx, all[0].ID, "go", "2024-06-02T00:00:00Z")
	})

	// an answered question cannot be answered again
	tx, _ := r.DB.BeginTx(ctx, nil)
	err = r.AnswerClarificationTx(ctx, tx, all[0].ID, "python", "2024-06-03T00:00:00Z")
	tx.Rollback()
	if !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("second answer: %v, want ErrNotFound", err)
	}

	inTx(t, r, func(tx *sql.Tx) error {
		open, err := r.ListOpenClarificationsTx(ctx, tx, p.ID)
		if err != nil {
			return err
		}
		if len(open) != 1 || open[0].Question != "which deadline?" {
			return fmt.Errorf("open = %+v, want the unanswered question", open)
		}
		return nil
	})
}

func TestAPIKeys(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	key := domain.APIKey{
		ID:        "k1",
		Name:      "ci",
		Role:      "operator",
		KeyHash:   repo.HashAPIKey("secret-token"),
		CreatedAt: "2024-06-01T00:00:00Z",
	}
	if err := r.InsertAPIKey(ctx, key); err != nil {
		t.Fatalf("insert: %v", err)
	}

	got, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey("secret-token"))
	if err != nil || got.ID != "k1" || got.Role != "operator" {
		t.Fatalf("lookup: %+v, %v", got, err)
	}
	// whitespace around the presented key does not matter
	if repo.HashAPIKey(" secret-token \n") != key.KeyHash {
		t.Fatalf("hash not whitespace-insensitive")
	}
	if _, err := r.GetAPIKeyByHash(ctx, repo.HashAPIKey("wrong")); !errors.Is(err, repo.ErrNotFound) {
		t.Fatalf("wrong key: %v, want ErrNotFound", err)
	}

	keys, err := r.ListAPIKeys(ctx)
	if err != nil || len(keys) != 1 {
		t.Fatalf("list: %d, %v", len(keys), err)
	}
	if err := r.DeleteAPIKey(ctx, "k1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if keys, _ = r.ListAPIKeys(ctx); len(keys) != 0 {
		t.Fatalf("key not deleted")
	}
}

func TestWebhookCursor(t *testing.T) {
	r := newRepo(t)
	ctx := context.Background()
	hook := domain.Webhook{ID: "w1", URL: "http://localhost/hook", Secret: "s", Cursor: 0, CreatedAt: "2024-06-01T00:00:00Z"}
	if err := r.InsertWebhook(ctx, hook); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := r.UpdateWebhookCursor(ctx, "w1", 42); err != nil {
		t.Fatalf("cursor: %v", err)
	}
	hooks, err := r.ListWebhooks(ctx)
	if err != nil || len(hooks) != 1 || hooks[0].Cursor != 42 {
		t.Fatalf("list: %+v, %v", hooks, err)
	}
	if err := r.DeleteWebhook(ctx, "w1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if hooks, _ = r.ListWebhooks(ctx); len(hooks) != 0 {
		t.Fatalf("webhook not deleted")
	}
}

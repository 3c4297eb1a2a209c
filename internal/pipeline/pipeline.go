package pipeline

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sync"
	"time"

	"dealflow/internal/config"
	"dealflow/internal/domain"
	"dealflow/internal/events"
	"dealflow/internal/gate"
	"dealflow/internal/repo"
)

// Pipeline is the order-lifecycle state machine. Every mutation runs under
// the per-project lock and commits the row update together with exactly one
// or more event-log appends in a single transaction.
type Pipeline struct {
	DB     *sql.DB
	Repo   repo.Repo
	Events events.Writer
	Gate   gate.Gatekeeper
	Config *config.Config
	Now    func() time.Time

	Clarifier Clarifier
	SpecGen   SpecGenerator
	CodeGen   CodeGenerator
	Oracle    PaymentOracle
	Notifier  Notifier
	Invoicer  Invoicer

	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

// Collaborators bundles the injected external subsystems. Any field may be
// nil; the stage that needs a missing collaborator fails with a
// CollaboratorError instead of advancing.
type Collaborators struct {
	Clarifier Clarifier
	SpecGen   SpecGenerator
	CodeGen   CodeGenerator
	Oracle    PaymentOracle
	Notifier  Notifier
	Invoicer  Invoicer
}

func New(db *sql.DB, cfg *config.Config, c Collaborators) *Pipeline {
	return &Pipeline{
		DB:        db,
		Repo:      repo.Repo{DB: db},
		Events:    events.Writer{DB: db},
		Gate:      gate.New(cfg),
		Config:    cfg,
		Now:       time.Now,
		Clarifier: c.Clarifier,
		SpecGen:   c.SpecGen,
		CodeGen:   c.CodeGen,
		Oracle:    c.Oracle,
		Notifier:  c.Notifier,
		Invoicer:  c.Invoicer,
		locks:     make(map[int64]*sync.Mutex),
	}
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

func (p *Pipeline) nowStr() string {
	return p.now().UTC().Format(time.RFC3339)
}

// lock returns the mutex for one project, creating it on first use. Holding
// it serializes the scheduler's confirmation write against synchronous
// stage calls for the same project.
func (p *Pipeline) lock(id int64) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	m, ok := p.locks[id]
	if !ok {
		m = &sync.Mutex{}
		p.locks[id] = m
	}
	return m
}

// notify is fire-and-forget; failures are logged and never surfaced.
func (p *Pipeline) notify(ctx context.Context, format string, args ...any) {
	if p.Notifier == nil {
		return
	}
	msg := fmt.Sprintf(format, args...)
	if err := p.Notifier.Notify(ctx, msg); err != nil {
		log.Printf("pipeline: notify failed: %v", err)
	}
}

// NewLead is the intake payload for a fresh lead.
type NewLead struct {
	Title       string
	Description string
	ClientName  string
	Budget      float64
	Platform    string
}

// Intake creates a project at the intake stage with a fresh reference.
func (p *Pipeline) Intake(ctx context.Context, lead NewLead) (domain.Project, error) {
	if lead.Title == "" {
		return domain.Project{}, fmt.Errorf("title is required")
	}
	now := p.nowStr()
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Project{}, err
	}
	defer tx.Rollback()

	reference, err := p.newReference(ctx, tx)
	if err != nil {
		return domain.Project{}, err
	}
	proj := domain.Project{
		Reference:    reference,
		Title:        lead.Title,
		Description:  lead.Description,
		ClientName:   lead.ClientName,
		ClientBudget: lead.Budget,
		Platform:     lead.Platform,
		Stage:        domain.StageIntake,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	proj, err = p.Repo.CreateProject(ctx, tx, proj)
	if err != nil {
		return domain.Project{}, fmt.Errorf("create project: %w", err)
	}
	details := fmt.Sprintf("lead from %s, budget %.2f", lead.Platform, lead.Budget)
	if err := p.Events.Append(ctx, tx, proj.ID, proj.Stage, "intake", details); err != nil {
		return domain.Project{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.Project{}, err
	}
	p.notify(ctx, "new lead %s: %s (%.2f via %s)", proj.Reference, proj.Title, proj.ClientBudget, proj.Platform)
	return proj, nil
}

// newReference generates a time-based reference, suffixing a counter when
// several leads arrive within the same second.
func (p *Pipeline) newReference(ctx context.Context, tx *sql.Tx) (string, error) {
	base := "NX-" + p.now().UTC().Format("20060102150405")
	ref := base
	for i := 2; ; i++ {
		taken, err := p.Repo.ReferenceExists(ctx, tx, ref)
		if err != nil {
			return "", err
		}
		if !taken {
			return ref, nil
		}
		ref = fmt.Sprintf("%s-%d", base, i)
	}
}

// load fetches the project and refuses work on terminal ones. Callers hold
// the project lock.
func (p *Pipeline) load(ctx context.Context, id int64) (domain.Project, error) {
	proj, err := p.Repo.GetProject(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Rejected {
		return proj, ErrRejected
	}
	return proj, nil
}

// commit writes the row update plus the event entries in one transaction.
func (p *Pipeline) commit(ctx context.Context, proj domain.Project, entries ...logEntry) (domain.Project, error) {
	proj.UpdatedAt = p.nowStr()
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return proj, err
	}
	defer tx.Rollback()
	if err := p.Repo.UpdateProjectTx(ctx, tx, proj); err != nil {
		return proj, err
	}
	for _, entry := range entries {
		if err := p.Events.Append(ctx, tx, proj.ID, entry.stage, entry.action, entry.details); err != nil {
			return proj, err
		}
	}
	if err := tx.Commit(); err != nil {
		return proj, err
	}
	return proj, nil
}

type logEntry struct {
	stage   domain.Stage
	action  string
	details string
}

// logError appends an error event without touching the project row.
func (p *Pipeline) logError(ctx context.Context, proj domain.Project, details string) {
	if err := p.Events.Append(ctx, nil, proj.ID, proj.Stage, "error", details); err != nil {
		log.Printf("pipeline: append error event: %v", err)
	}
}

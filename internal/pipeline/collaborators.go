package pipeline

import (
	"context"

	"dealflow/internal/domain"
)

// Collaborators are the external subsystems the pipeline consumes. Each is
// injected at construction; the pipeline owns no collaborator state.

// Clarifier inspects a lead description and asks follow-up questions.
type Clarifier interface {
	AnalyzeAndAsk(ctx context.Context, description string) (ClarifyResult, error)
}

type ClarifyResult struct {
	Questions  []string `json:"questions"`
	Confidence float64  `json:"confidence"`
}

// SpecGenerator turns an accepted lead into atomic requirements and pricing.
type SpecGenerator interface {
	Generate(ctx context.Context, title, description string, budgetHint float64) (SpecResult, error)
}

type SpecResult struct {
	RequirementCount int     `json:"requirement_count"`
	TotalHours       float64 `json:"total_hours"`
	FixedPrice       float64 `json:"fixed_price"`
}

// CodeGenerator produces the deliverable for a paid project.
type CodeGenerator interface {
	Execute(ctx context.Context, description string) (ExecResult, error)
}

type ExecResult struct {
	Success bool   `json:"success"`
	Code    string `json:"code,omitempty"`
	QAScore int    `json:"qa_score,omitempty"`
	Error   string `json:"error,omitempty"`
}

// PaymentOracle reports whether an expected payment has settled.
type PaymentOracle interface {
	CheckPayment(ctx context.Context, expectedAmount float64, account string) (PaymentResult, error)
}

type PaymentResult struct {
	Found bool   `json:"found"`
	TxRef string `json:"tx_ref,omitempty"`
}

// Notifier is fire-and-forget; delivery failures are logged, never
// propagated as pipeline errors.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// Invoicer renders an invoice when a quote is approved.
type Invoicer interface {
	Issue(ctx context.Context, p domain.Project) (string, error)
}

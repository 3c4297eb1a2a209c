package domain

// Stage is the lifecycle position of a project.
type Stage string

const (
	StageIntake          Stage = "intake"
	StageVetting         Stage = "vetting"
	StageClarifying      Stage = "clarifying"
	StageSpecifying      Stage = "specifying"
	StageQuoting         Stage = "quoting"
	StageAwaitingPayment Stage = "awaiting_payment"
	StagePaid            Stage = "paid"
	StageExecuting       Stage = "executing"
	StageQAReview        Stage = "qa_review"
	StageReadyToDeliver  Stage = "ready_to_deliver"
	StageDelivered       Stage = "delivered"
	StageClosed          Stage = "closed"
	StageBlocked         Stage = "blocked"
	StageRejected        Stage = "rejected"
)

// Terminal reports whether no further stage transitions are possible.
func (s Stage) Terminal() bool {
	return s == StageClosed || s == StageRejected
}

// Valid reports whether s is a known stage value.
func (s Stage) Valid() bool {
	switch s {
	case StageIntake, StageVetting, StageClarifying, StageSpecifying,
		StageQuoting, StageAwaitingPayment, StagePaid, StageExecuting,
		StageQAReview, StageReadyToDeliver, StageDelivered, StageClosed,
		StageBlocked, StageRejected:
		return true
	}
	return false
}

// Verdict is the profitability gate decision.
type Verdict string

const (
	VerdictAccept    Verdict = "accept"
	VerdictNegotiate Verdict = "negotiate"
	VerdictDecline   Verdict = "decline"
)

// Complexity buckets labor estimates.
type Complexity string

const (
	ComplexityLow    Complexity = "low"
	ComplexityMedium Complexity = "medium"
	ComplexityHigh   Complexity = "high"
)

// RejectionReason explains a terminal business rejection.
type RejectionReason string

const (
	ReasonBelowMinimum          RejectionReason = "below_minimum"
	ReasonLowMargin             RejectionReason = "low_margin"
	ReasonUnclearRequirements   RejectionReason = "unclear_requirements"
	ReasonClientUnresponsive    RejectionReason = "client_unresponsive"
	ReasonTechnicallyInfeasible RejectionReason = "technically_infeasible"
	ReasonTimelineImpossible    RejectionReason = "timeline_impossible"
)

// Project is one lead/order moving through the pipeline. Timestamps are
// RFC3339 strings; empty means not yet reached.
type Project struct {
	ID               int64           `json:"id"`
	Reference        string          `json:"reference"`
	Title            string          `json:"title"`
	Description      string          `json:"description,omitempty"`
	ClientName       string          `json:"client_name"`
	ClientBudget     float64         `json:"client_budget"`
	Platform         string          `json:"platform,omitempty"`
	Stage            Stage           `json:"stage" enum:"intake,vetting,clarifying,specifying,quoting,awaiting_payment,paid,executing,qa_review,ready_to_deliver,delivered,closed,blocked,rejected"`
	EstimatedMargin  float64         `json:"estimated_margin"`
	EstimatedProfit  float64         `json:"estimated_profit"`
	EstimatedHours   float64         `json:"estimated_hours"`
	SuggestedPrice   float64         `json:"suggested_price,omitempty"`
	FixedPrice       float64         `json:"fixed_price,omitempty"`
	SpecApproved     bool            `json:"spec_approved"`
	PaymentConfirmed bool            `json:"payment_confirmed"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentRef       string          `json:"payment_ref,omitempty"`
	QAScore          int             `json:"qa_score"`
	Rejected         bool            `json:"rejected"`
	RejectionReason  RejectionReason `json:"rejection_reason,omitempty"`
	CreatedAt        string          `json:"created_at" format:"date-time"`
	VettedAt         string          `json:"vetted_at,omitempty" format:"date-time"`
	QuotedAt         string          `json:"quoted_at,omitempty" format:"date-time"`
	PaidAt           string          `json:"paid_at,omitempty" format:"date-time"`
	DeliveredAt      string          `json:"delivered_at,omitempty" format:"date-time"`
	ClosedAt         string          `json:"closed_at,omitempty" format:"date-time"`
	UpdatedAt        string          `json:"updated_at" format:"date-time"`
}

// Event is one append-only log entry. Exactly one event is written for
// every project mutation, in the same transaction.
type Event struct {
	ID        int64  `json:"id"`
	ProjectID int64  `json:"project_id"`
	Stage     Stage  `json:"stage"`
	Action    string `json:"action"`
	Details   string `json:"details,omitempty"`
	TS        string `json:"ts" format:"date-time"`
}

// Clarification is one question asked of the client, with its answer
// once received.
type Clarification struct {
	ID         int64  `json:"id"`
	ProjectID  int64  `json:"project_id"`
	Question   string `json:"question"`
	Answer     string `json:"answer,omitempty"`
	CreatedAt  string `json:"created_at" format:"date-time"`
	AnsweredAt string `json:"answered_at,omitempty" format:"date-time"`
}

type APIKey struct {
	ID        string `json:"id"`
	Name      string `json:"name,omitempty"`
	Role      string `json:"role"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// Webhook is a registered subscriber for pipeline events.
type Webhook struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Secret    string `json:"secret,omitempty"`
	Cursor    int64  `json:"cursor"`
	CreatedAt string `json:"created_at" format:"date-time"`
}

// StageStats is one row of the per-stage summary.
type StageStats struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// Stats summarizes the book of business.
type Stats struct {
	Total          int          `json:"total"`
	ByStage        []StageStats `json:"by_stage"`
	ConfirmedValue float64      `json:"confirmed_value"`
	PipelineValue  float64      `json:"pipeline_value"`
	Rejected       int          `json:"rejected"`
}

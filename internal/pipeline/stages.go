package pipeline

import (
	"context"
	"fmt"
	"strings"

	"dealflow/internal/domain"
	"dealflow/internal/gate"
)

// Vet runs the profitability gate on a fresh lead. Accept advances straight
// to clarifying, Negotiate parks the project blocked with a recorded
// counter-offer, Decline is terminal.
func (p *Pipeline) Vet(ctx context.Context, id int64, complexity domain.Complexity) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageIntake && proj.Stage != domain.StageVetting {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageVetting}
	}
	if complexity == "" {
		complexity = domain.ComplexityMedium
	}
	res := p.Gate.Evaluate(proj.ClientBudget, complexity, proj.Description, proj.Platform)
	proj.EstimatedMargin = res.MarginPct
	proj.EstimatedProfit = res.NetProfit
	proj.EstimatedHours = gate.EstimateHours(proj.Description, complexity)
	proj.VettedAt = p.nowStr()

	switch res.Verdict {
	case domain.VerdictAccept:
		proj.Stage = domain.StageClarifying
		proj, err = p.commit(ctx, proj,
			logEntry{domain.StageVetting, "vetted", res.Reason},
			logEntry{domain.StageClarifying, "advanced", "gate accepted"})
		if err != nil {
			return proj, err
		}
	case domain.VerdictNegotiate:
		proj.Stage = domain.StageBlocked
		proj.SuggestedPrice = res.SuggestedPrice
		proj, err = p.commit(ctx, proj,
			logEntry{domain.StageBlocked, "counter_offer", res.Reason})
		if err != nil {
			return proj, err
		}
		p.notify(ctx, "%s needs negotiation: %s", proj.Reference, res.Reason)
	case domain.VerdictDecline:
		proj.Stage = domain.StageRejected
		proj.Rejected = true
		proj.RejectionReason = domain.ReasonLowMargin
		if proj.ClientBudget < p.Gate.MinOrder {
			proj.RejectionReason = domain.ReasonBelowMinimum
		}
		proj, err = p.commit(ctx, proj,
			logEntry{domain.StageRejected, "rejected", res.Reason})
		if err != nil {
			return proj, err
		}
	}
	return proj, nil
}

// Clarify asks the clarifier collaborator about the lead. High confidence
// or zero questions advances to specifying; otherwise the questions are
// recorded and the project blocks waiting for the client.
func (p *Pipeline) Clarify(ctx context.Context, id int64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageClarifying {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageSpecifying}
	}
	if p.Clarifier == nil {
		return proj, &CollaboratorError{Name: "clarifier", Err: fmt.Errorf("not configured")}
	}
	res, err := p.Clarifier.AnalyzeAndAsk(ctx, proj.Description)
	if err != nil {
		p.logError(ctx, proj, fmt.Sprintf("clarifier: %v", err))
		return proj, &CollaboratorError{Name: "clarifier", Err: err}
	}
	if len(res.Questions) == 0 || res.Confidence >= p.Config.Thresholds.ClarifyConfidence {
		proj.Stage = domain.StageSpecifying
		return p.commit(ctx, proj,
			logEntry{domain.StageSpecifying, "clarified", fmt.Sprintf("confidence %.2f, %d questions", res.Confidence, len(res.Questions))})
	}

	proj.Stage = domain.StageBlocked
	proj.UpdatedAt = p.nowStr()
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return proj, err
	}
	defer tx.Rollback()
	if err := p.Repo.UpdateProjectTx(ctx, tx, proj); err != nil {
		return proj, err
	}
	now := p.nowStr()
	for _, q := range res.Questions {
		c := domain.Clarification{ProjectID: proj.ID, Question: q, CreatedAt: now}
		if err := p.Repo.InsertClarificationTx(ctx, tx, c); err != nil {
			return proj, err
		}
	}
	details := fmt.Sprintf("confidence %.2f, %d questions sent", res.Confidence, len(res.Questions))
	if err := p.Events.Append(ctx, tx, proj.ID, proj.Stage, "questions_sent", details); err != nil {
		return proj, err
	}
	if err := tx.Commit(); err != nil {
		return proj, err
	}
	p.notify(ctx, "%s blocked on %d clarification questions", proj.Reference, len(res.Questions))
	return proj, nil
}

// AnswerQuestions records client answers by clarification ID. Once no open
// questions remain the answers are folded into the description and the
// project resumes at specifying.
func (p *Pipeline) AnswerQuestions(ctx context.Context, id int64, answers map[int64]string) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageBlocked {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageSpecifying}
	}
	if len(answers) == 0 {
		return proj, fmt.Errorf("no answers given")
	}
	tx, err := p.DB.BeginTx(ctx, nil)
	if err != nil {
		return proj, err
	}
	defer tx.Rollback()
	// A negotiation block records no clarifications; those projects resume
	// only through AcceptCounterOffer.
	existing, err := p.Repo.ListClarificationsTx(ctx, tx, proj.ID)
	if err != nil {
		return proj, err
	}
	if len(existing) == 0 {
		return proj, fmt.Errorf("no clarification questions recorded")
	}
	now := p.nowStr()
	for cid, answer := range answers {
		if strings.TrimSpace(answer) == "" {
			continue
		}
		if err := p.Repo.AnswerClarificationTx(ctx, tx, cid, answer, now); err != nil {
			return proj, fmt.Errorf("answer question %d: %w", cid, err)
		}
	}
	open, err := p.Repo.ListOpenClarificationsTx(ctx, tx, proj.ID)
	if err != nil {
		return proj, err
	}
	action := "answers_recorded"
	details := fmt.Sprintf("%d answers, %d questions still open", len(answers), len(open))
	if len(open) == 0 {
		all, err := p.Repo.ListClarificationsTx(ctx, tx, proj.ID)
		if err != nil {
			return proj, err
		}
		proj.Description = appendClarifications(proj.Description, all)
		proj.Stage = domain.StageSpecifying
		action = "unblocked"
		details = "all questions answered"
	}
	proj.UpdatedAt = now
	if err := p.Repo.UpdateProjectTx(ctx, tx, proj); err != nil {
		return proj, err
	}
	if err := p.Events.Append(ctx, tx, proj.ID, proj.Stage, action, details); err != nil {
		return proj, err
	}
	if err := tx.Commit(); err != nil {
		return proj, err
	}
	return proj, nil
}

// appendClarifications folds answered questions into the lead description
// so the spec generator sees them.
func appendClarifications(description string, answered []domain.Clarification) string {
	if len(answered) == 0 {
		return description
	}
	var b strings.Builder
	b.WriteString(description)
	b.WriteString("\n\n--- CLIENT CLARIFICATIONS ---\n")
	for _, c := range answered {
		fmt.Fprintf(&b, "Q: %s\nA: %s\n", c.Question, c.Answer)
	}
	return b.String()
}

// AcceptCounterOffer is the explicit human action that resumes a project
// parked by a Negotiate verdict: the agreed price becomes the budget and
// the lead goes back through vetting.
func (p *Pipeline) AcceptCounterOffer(ctx context.Context, id int64, price float64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageBlocked {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageVetting}
	}
	if price <= 0 {
		price = proj.SuggestedPrice
	}
	if price <= 0 {
		return proj, fmt.Errorf("price required")
	}
	proj.ClientBudget = price
	proj.Stage = domain.StageVetting
	return p.commit(ctx, proj,
		logEntry{domain.StageVetting, "counter_accepted", fmt.Sprintf("client agreed to %.2f", price)})
}

// Specify asks the spec generator for atomic requirements and a price hint.
func (p *Pipeline) Specify(ctx context.Context, id int64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageSpecifying {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageQuoting}
	}
	if p.SpecGen == nil {
		return proj, &CollaboratorError{Name: "specgen", Err: fmt.Errorf("not configured")}
	}
	res, err := p.SpecGen.Generate(ctx, proj.Title, proj.Description, proj.ClientBudget)
	if err != nil {
		p.logError(ctx, proj, fmt.Sprintf("specgen: %v", err))
		return proj, &CollaboratorError{Name: "specgen", Err: err}
	}
	if res.TotalHours > 0 {
		proj.EstimatedHours = res.TotalHours
	}
	if res.FixedPrice > 0 {
		proj.SuggestedPrice = res.FixedPrice
	}
	proj.Stage = domain.StageQuoting
	return p.commit(ctx, proj,
		logEntry{domain.StageQuoting, "specified", fmt.Sprintf("%d requirements, %.1f hours, price hint %.2f", res.RequirementCount, res.TotalHours, res.FixedPrice)})
}

// ApproveSpec locks the fixed price, issues the invoice and parks the
// project awaiting payment. The price is immutable afterwards.
func (p *Pipeline) ApproveSpec(ctx context.Context, id int64, price float64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.SpecApproved {
		return proj, ErrPriceLocked
	}
	if proj.Stage != domain.StageQuoting {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageAwaitingPayment}
	}
	if price <= 0 {
		price = proj.SuggestedPrice
	}
	if price <= 0 {
		price = proj.ClientBudget
	}
	proj.FixedPrice = price
	proj.SpecApproved = true
	proj.QuotedAt = p.nowStr()
	proj.Stage = domain.StageAwaitingPayment

	invoiceDetails := fmt.Sprintf("fixed price %.2f", price)
	if p.Invoicer != nil {
		ref, err := p.Invoicer.Issue(ctx, proj)
		if err != nil {
			p.logError(ctx, proj, fmt.Sprintf("invoicer: %v", err))
			return proj, &CollaboratorError{Name: "invoicer", Err: err}
		}
		invoiceDetails = fmt.Sprintf("fixed price %.2f, invoice %s", price, ref)
	}
	proj, err = p.commit(ctx, proj,
		logEntry{domain.StageAwaitingPayment, "spec_approved", invoiceDetails})
	if err != nil {
		return proj, err
	}
	p.notify(ctx, "%s quoted at %.2f, awaiting payment", proj.Reference, price)
	return proj, nil
}

// ConfirmPayment applies an oracle or manual confirmation. Confirming an
// already-paid project is a safe no-op: no second event, paid_at untouched.
func (p *Pipeline) ConfirmPayment(ctx context.Context, id int64, txRef, method string) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.PaymentConfirmed {
		return proj, nil
	}
	if proj.Stage != domain.StageAwaitingPayment {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StagePaid}
	}
	proj.PaymentConfirmed = true
	proj.PaymentRef = txRef
	proj.PaymentMethod = method
	proj.PaidAt = p.nowStr()
	proj.Stage = domain.StagePaid
	proj, err = p.commit(ctx, proj,
		logEntry{domain.StagePaid, "payment_confirmed", fmt.Sprintf("ref %s via %s", txRef, method)})
	if err != nil {
		return proj, err
	}
	p.notify(ctx, "%s paid (%.2f, ref %s)", proj.Reference, proj.FixedPrice, txRef)
	return proj, nil
}

// Execute runs the code generator. Success records the QA score and moves
// to qa_review, auto-advancing to ready_to_deliver when the score clears
// the threshold. Failure leaves the stage unchanged for a retry.
func (p *Pipeline) Execute(ctx context.Context, id int64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StagePaid && proj.Stage != domain.StageExecuting && proj.Stage != domain.StageQAReview {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageExecuting}
	}
	if p.CodeGen == nil {
		return proj, &CollaboratorError{Name: "codegen", Err: fmt.Errorf("not configured")}
	}
	res, err := p.CodeGen.Execute(ctx, proj.Description)
	if err == nil && !res.Success {
		err = fmt.Errorf("%s", orUnknown(res.Error))
	}
	if err != nil {
		p.logError(ctx, proj, fmt.Sprintf("codegen: %v", err))
		return proj, &CollaboratorError{Name: "codegen", Err: err}
	}
	proj.QAScore = res.QAScore
	entries := []logEntry{{domain.StageQAReview, "executed", fmt.Sprintf("qa score %d", res.QAScore)}}
	proj.Stage = domain.StageQAReview
	if res.QAScore >= p.Config.Thresholds.QAScore {
		proj.Stage = domain.StageReadyToDeliver
		entries = append(entries, logEntry{domain.StageReadyToDeliver, "qa_passed",
			fmt.Sprintf("score %d meets threshold %d", res.QAScore, p.Config.Thresholds.QAScore)})
	}
	return p.commit(ctx, proj, entries...)
}

func orUnknown(s string) string {
	if s == "" {
		return "execution failed"
	}
	return s
}

// Deliver hands the work over. Payment confirmation is a hard guard.
func (p *Pipeline) Deliver(ctx context.Context, id int64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageReadyToDeliver {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageDelivered}
	}
	if !proj.PaymentConfirmed {
		return proj, ErrNotPaid
	}
	proj.Stage = domain.StageDelivered
	proj.DeliveredAt = p.nowStr()
	proj, err = p.commit(ctx, proj,
		logEntry{domain.StageDelivered, "delivered", ""})
	if err != nil {
		return proj, err
	}
	p.notify(ctx, "%s delivered", proj.Reference)
	return proj, nil
}

// Close is the final bookkeeping step.
func (p *Pipeline) Close(ctx context.Context, id int64) (domain.Project, error) {
	m := p.lock(id)
	m.Lock()
	defer m.Unlock()

	proj, err := p.load(ctx, id)
	if err != nil {
		return proj, err
	}
	if proj.Stage != domain.StageDelivered {
		return proj, &InvalidTransitionError{From: proj.Stage, To: domain.StageClosed}
	}
	proj.Stage = domain.StageClosed
	proj.ClosedAt = p.nowStr()
	return p.commit(ctx, proj,
		logEntry{domain.StageClosed, "closed", ""})
}

// Process advances a project as far as its guards allow and returns the
// stage actually reached. Terminal, blocked and waiting stages return
// immediately, so repeated calls on an unchanged project are no-ops.
func (p *Pipeline) Process(ctx context.Context, id int64) (domain.Project, error) {
	proj, err := p.Repo.GetProject(ctx, id)
	if err != nil {
		return proj, err
	}
	for {
		if proj.Rejected || proj.Stage.Terminal() {
			return proj, nil
		}
		before := proj.Stage
		switch proj.Stage {
		case domain.StageIntake, domain.StageVetting:
			proj, err = p.Vet(ctx, id, domain.ComplexityMedium)
		case domain.StageClarifying:
			proj, err = p.Clarify(ctx, id)
		case domain.StageSpecifying:
			proj, err = p.Specify(ctx, id)
		case domain.StagePaid, domain.StageExecuting, domain.StageQAReview:
			proj, err = p.Execute(ctx, id)
		case domain.StageReadyToDeliver:
			proj, err = p.Deliver(ctx, id)
		case domain.StageDelivered:
			proj, err = p.Close(ctx, id)
		default:
			// blocked, quoting and awaiting_payment wait on an
			// external event.
			return proj, nil
		}
		if err != nil {
			return proj, err
		}
		if proj.Stage == before {
			return proj, nil
		}
	}
}

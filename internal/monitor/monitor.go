package monitor

import (
	"context"
	"errors"
	"log"
	"time"

	"dealflow/internal/domain"
	"dealflow/internal/pipeline"
)

// Monitor polls the payment oracle for projects parked awaiting payment and
// feeds confirmations back into the pipeline. One monitor per pipeline.
type Monitor struct {
	Pipeline    *pipeline.Pipeline
	Interval    time.Duration
	CallTimeout time.Duration
	Account     string
	Logf        func(format string, args ...any)

	stop chan struct{}
	done chan struct{}
}

func New(p *pipeline.Pipeline) *Monitor {
	interval := time.Duration(p.Config.Payments.PollIntervalSeconds) * time.Second
	timeout := time.Duration(p.Config.Payments.CallTimeoutSeconds) * time.Second
	return &Monitor{
		Pipeline:    p,
		Interval:    interval,
		CallTimeout: timeout,
		Account:     p.Config.Business.WalletAddress,
		Logf:        log.Printf,
	}
}

// Start launches the polling goroutine. Calling Start on a running monitor
// is an error.
func (m *Monitor) Start() error {
	if m.stop != nil {
		return errors.New("monitor already running")
	}
	if m.Pipeline == nil || m.Pipeline.Oracle == nil {
		return errors.New("payment oracle not configured")
	}
	if m.Interval <= 0 {
		m.Interval = 300 * time.Second
	}
	if m.CallTimeout <= 0 {
		m.CallTimeout = 10 * time.Second
	}
	m.stop = make(chan struct{})
	m.done = make(chan struct{})
	go m.run()
	return nil
}

// Stop is cooperative: a tick in progress completes, then the loop exits.
// Stop blocks until the goroutine is gone.
func (m *Monitor) Stop() {
	if m.stop == nil {
		return
	}
	close(m.stop)
	<-m.done
	m.stop = nil
	m.done = nil
}

func (m *Monitor) run() {
	defer close(m.done)
	for {
		m.Tick(context.Background())
		select {
		case <-m.stop:
			return
		case <-time.After(m.Interval):
		}
	}
}

// Tick checks every unpaid awaiting-payment project once. Oracle errors are
// logged and retried on the next tick; they never reject a project.
func (m *Monitor) Tick(ctx context.Context) {
	projects, err := m.Pipeline.Repo.ListAwaitingPayment(ctx)
	if err != nil {
		m.logf("monitor: list awaiting payment: %v", err)
		return
	}
	for _, proj := range projects {
		m.checkOne(ctx, proj)
	}
}

func (m *Monitor) checkOne(ctx context.Context, proj domain.Project) {
	callCtx, cancel := context.WithTimeout(ctx, m.CallTimeout)
	defer cancel()
	expected := proj.FixedPrice
	if expected <= 0 {
		expected = proj.ClientBudget
	}
	res, err := m.Pipeline.Oracle.CheckPayment(callCtx, expected, m.Account)
	if err != nil {
		m.logf("monitor: %s oracle check failed: %v", proj.Reference, err)
		return
	}
	if !res.Found {
		return
	}
	if _, err := m.Pipeline.ConfirmPayment(ctx, proj.ID, res.TxRef, "crypto"); err != nil {
		m.logf("monitor: %s confirm payment: %v", proj.Reference, err)
		return
	}
	if _, err := m.Pipeline.Process(ctx, proj.ID); err != nil {
		m.logf("monitor: %s process after payment: %v", proj.Reference, err)
	}
}

func (m *Monitor) logf(format string, args ...any) {
	if m.Logf != nil {
		m.Logf(format, args...)
	}
}

package coordinator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jcmexdev/storefront-orders/internal/coordinator/sagalog"
	"github.com/jcmexdev/storefront-orders/internal/pkg/telemetry"
)

// Step represents a single unit of work in the Saga.
// Each step must have a compensating action to undo its effects.
type Step interface {
	Name() string
	Execute(ctx context.Context) error
	Compensate(ctx context.Context) error
}

// Orchestrator manages the execution of a collection of Steps.
type Orchestrator struct {
	sagaID     string
	mode       string
	payload    string
	steps      []Step
	compensate bool
	repo       sagalog.Repository // nil-safe
	logger     *slog.Logger
}

type Option func(*Orchestrator)

// WithMode tags every saga log row with the execution mode.
func WithMode(mode string) Option {
	return func(o *Orchestrator) { o.mode = mode }
}

// WithPayload stores the saga input on the STARTED row.
func WithPayload(payload string) Option {
	return func(o *Orchestrator) { o.payload = payload }
}

// WithoutCompensation disables rollback. Used when the steps run inside a
// store transaction that is aborted as a whole.
func WithoutCompensation() Option {
	return func(o *Orchestrator) { o.compensate = false }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// NewOrchestrator builds a saga identified by sagaID. repo may be nil, in
// which case transitions are not persisted.
func NewOrchestrator(sagaID string, steps []Step, repo sagalog.Repository, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		sagaID:     sagaID,
		steps:      steps,
		compensate: true,
		repo:       repo,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start runs the saga steps sequentially.
// If a step fails, it triggers the compensation of all previously successful
// steps and returns the step error unchanged.
func (o *Orchestrator) Start(ctx context.Context) error {
	o.record(ctx, sagalog.StatusStarted, "", o.payload, nil)

	var successfulSteps []Step
	for _, step := range o.steps {
		o.logger.DebugContext(ctx, "executing saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Execute(ctx); err != nil {
			o.logger.InfoContext(ctx, "saga step failed",
				"saga_id", o.sagaID, "step", step.Name(), "mode", o.mode, "error", err)

			errs := []string{fmt.Sprintf("step %s failed: %v", step.Name(), err)}
			if o.compensate && len(successfulSteps) > 0 {
				o.record(ctx, sagalog.StatusCompensating, step.Name(), "", errs)
				errs = append(errs, o.rollback(ctx, successfulSteps)...)
			}
			o.record(ctx, sagalog.StatusFailed, step.Name(), "", errs)
			return err
		}
		// Track successful step for potential compensation (LIFO)
		successfulSteps = append(successfulSteps, step)
		o.record(ctx, sagalog.StatusStepDone, step.Name(), "", nil)
	}

	o.record(ctx, sagalog.StatusCompleted, "", "", nil)
	return nil
}

// rollback compensates in reverse order. It keeps going past failures and
// returns their descriptions; the request context may already be cancelled
// so compensation runs detached from it.
func (o *Orchestrator) rollback(ctx context.Context, steps []Step) []string {
	ctx = context.WithoutCancel(ctx)

	var failures []string
	for i := len(steps) - 1; i >= 0; i-- {
		step := steps[i]
		o.logger.InfoContext(ctx, "compensating saga step", "saga_id", o.sagaID, "step", step.Name())
		if err := step.Compensate(ctx); err != nil {
			telemetry.StockCompensations.WithLabelValues("failed").Inc()
			o.logger.ErrorContext(ctx, "CRITICAL: failed to compensate saga step",
				"saga_id", o.sagaID, "step", step.Name(), "error", err)
			failures = append(failures, fmt.Sprintf("compensation of %s failed: %v", step.Name(), err))
			continue
		}
		telemetry.StockCompensations.WithLabelValues("ok").Inc()
	}
	return failures
}

func (o *Orchestrator) record(ctx context.Context, status sagalog.Status, step, payload string, errs []string) {
	if o.repo == nil {
		return
	}
	entry := sagalog.NewEntry(ctx, o.sagaID, o.mode, status, step, payload, errs)
	if err := o.repo.Save(context.WithoutCancel(ctx), entry); err != nil {
		o.logger.WarnContext(ctx, "saga log write failed", "saga_id", o.sagaID, "status", status, "error", err)
	}
}

// Package pipeline provides the generic multi-step enrichment runtime: the
// step contract, the per-row driver, batch execution, and the shared audit
// and exception emitters available to every step.
package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

// Step is one stage of the enrichment pipeline. Name is used in logs, audit
// rows, and the per-step result map. ShouldExecute gates the step per row;
// Run does the work and reports the outcome rather than returning an error.
type Step interface {
	Name() string
	ShouldExecute(ec *models.Context) bool
	Run(ctx context.Context, ec *models.Context, env *Env) models.StepResult
}

// NoPriorError is the default ShouldExecute guard: run unless an earlier
// step recorded a fatal error on the context.
func NoPriorError(ec *models.Context) bool {
	return ec.ErrorMessage == ""
}

// ExceptionSink receives emitted exceptions in addition to the store append,
// e.g. for publishing to a message broker. Implementations must be safe for
// concurrent use.
type ExceptionSink interface {
	PublishException(ctx context.Context, rec models.ExceptionRecord) error
}

// Env carries the collaborators every step needs: the data-access adapter,
// a logger, an optional exception sink, and the clock.
type Env struct {
	Store  store.Store
	Log    *zap.Logger
	Events ExceptionSink
	Now    func() time.Time
}

// NewEnv creates a step environment. The logger may be nil; the sink is
// optional.
func NewEnv(st store.Store, log *zap.Logger, events ExceptionSink) *Env {
	if log == nil {
		log = zap.NewNop()
	}
	return &Env{Store: st, Log: log, Events: events, Now: time.Now}
}

// Audit appends an audit-log row. Emission is best-effort: failures are
// logged and never fail the row.
func (e *Env) Audit(ctx context.Context, ec *models.Context, stepName, action, details string) {
	rec := models.NewAudit(ec, stepName, action, details, e.Now())
	if err := e.Store.SaveOrUpdate(ctx, store.TableAuditLog, rec.ToRow()); err != nil {
		e.Log.Warn("audit emission failed",
			zap.String("transaction_id", ec.TransactionID),
			zap.String("action", action),
			zap.Error(err))
	}
}

// Exception appends an exception-queue row and forwards it to the sink when
// one is configured. The store append error is returned so callers can react,
// though steps normally continue regardless.
func (e *Env) Exception(ctx context.Context, ec *models.Context, excType, details string, priority models.Priority) error {
	rec := models.NewException(ec, excType, details, priority, e.Now())
	err := e.Store.SaveOrUpdate(ctx, store.TableExceptionQueue, rec.ToRow())
	if err != nil {
		e.Log.Error("exception emission failed",
			zap.String("transaction_id", ec.TransactionID),
			zap.String("exception_type", excType),
			zap.Error(err))
	}
	if e.Events != nil {
		if perr := e.Events.PublishException(ctx, rec); perr != nil {
			e.Log.Warn("exception publish failed",
				zap.String("transaction_id", ec.TransactionID),
				zap.String("exception_type", excType),
				zap.Error(perr))
		}
	}
	return err
}

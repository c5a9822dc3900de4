package enrich

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/steps"
	"github.com/finlake/enrich/internal/store"
)

// Report is the aggregate outcome of one enrichment run.
type Report struct {
	BatchID     string         `json:"batch_id"`
	Total       int            `json:"total"`
	Succeeded   int            `json:"succeeded"`
	Failed      int            `json:"failed"`
	StepSuccess map[string]int `json:"step_success"`
	Elapsed     time.Duration  `json:"elapsed"`
}

// Controller loads in-scope rows, runs the enrichment pipeline, and invokes
// the persister. No business logic lives here.
type Controller struct {
	st        store.Store
	log       *zap.Logger
	events    pipeline.ExceptionSink
	loader    Loader
	persister Persister
}

// NewController creates a controller with the store-backed loader and
// persister. The event sink is optional.
func NewController(st store.Store, log *zap.Logger, events pipeline.ExceptionSink) *Controller {
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{
		st:        st,
		log:       log,
		events:    events,
		loader:    NewStoreLoader(log),
		persister: NewStorePersister(log),
	}
}

// WithLoader overrides the loader, mainly for tests.
func (c *Controller) WithLoader(l Loader) *Controller {
	c.loader = l
	return c
}

// WithPersister overrides the persister, mainly for tests.
func (c *Controller) WithPersister(p Persister) *Controller {
	c.persister = p
	return c
}

// Run executes one enrichment batch and returns its report.
func (c *Controller) Run(ctx context.Context, cfg Config) (*Report, error) {
	if cfg.BatchID == "" {
		cfg.BatchID = uuid.NewString()
	}

	ecs, err := c.loader.LoadData(ctx, c.st, cfg)
	if err != nil {
		return nil, err
	}
	c.log.Info("enrichment batch loaded",
		zap.String("batch_id", cfg.BatchID),
		zap.Int("rows", len(ecs)))

	pipe := pipeline.New(c.log).
		AddStep(steps.NewCurrencyValidation()).
		AddStep(steps.NewFXConversion()).
		AddStep(steps.NewCustomerIdentification()).
		AddStep(steps.NewCounterpartyDetermination()).
		AddStep(steps.NewF14Mapping()).
		SetStopOnError(cfg.StopOnError).
		SetWorkers(cfg.Workers)

	env := pipeline.NewEnv(c.st, c.log, c.events)
	batch := pipe.ExecuteBatch(ctx, ecs, env)

	if err := c.persister.Persist(ctx, c.st, ecs, batch); err != nil {
		return nil, fmt.Errorf("persist failed: %w", err)
	}

	report := buildReport(cfg.BatchID, batch)
	c.log.Info("enrichment batch finished",
		zap.String("batch_id", report.BatchID),
		zap.Int("total", report.Total),
		zap.Int("succeeded", report.Succeeded),
		zap.Int("failed", report.Failed),
		zap.Duration("elapsed", report.Elapsed))
	return report, nil
}

func buildReport(batchID string, batch models.BatchResult) *Report {
	report := &Report{
		BatchID:     batchID,
		Total:       batch.Total,
		Succeeded:   batch.Succeeded,
		Failed:      batch.Failed,
		StepSuccess: make(map[string]int),
		Elapsed:     batch.Elapsed,
	}
	for _, row := range batch.Rows {
		for _, outcome := range row.Steps {
			if outcome.Result.Success && !outcome.Result.Skipped {
				report.StepSuccess[outcome.Step]++
			}
		}
	}
	return report
}

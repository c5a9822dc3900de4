package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
)

// Pipeline executes an ordered sequence of steps for each row. Step order is
// insertion order; each step runs at most once per row. The only context
// mutation the runtime performs is recording the first fatal step error, so
// later steps can gate on it.
type Pipeline struct {
	steps       []Step
	stopOnError bool
	workers     int
	log         *zap.Logger
}

// New creates an empty pipeline. The logger may be nil.
func New(log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{workers: 1, log: log}
}

// AddStep appends a step, preserving insertion order.
func (p *Pipeline) AddStep(step Step) *Pipeline {
	p.steps = append(p.steps, step)
	return p
}

// SetStopOnError controls whether a failed step aborts the remaining steps
// of that row. Default is false: continue on failure.
func (p *Pipeline) SetStopOnError(stop bool) *Pipeline {
	p.stopOnError = stop
	return p
}

// SetWorkers bounds batch fan-out. Rows are independent; steps within one
// row always run sequentially.
func (p *Pipeline) SetWorkers(n int) *Pipeline {
	if n < 1 {
		n = 1
	}
	p.workers = n
	return p
}

// Execute runs all steps for one row and returns the per-step results.
// Cancellation is cooperative and checked between steps.
func (p *Pipeline) Execute(ctx context.Context, ec *models.Context, env *Env) models.RowResult {
	start := time.Now()
	result := models.RowResult{TransactionID: ec.TransactionID, OverallSuccess: true}

	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			result.Steps = append(result.Steps, models.StepOutcome{
				Step:   step.Name(),
				Result: models.Failed("cancelled: " + err.Error()),
			})
			result.OverallSuccess = false
			break
		}

		if !step.ShouldExecute(ec) {
			result.Steps = append(result.Steps, models.StepOutcome{
				Step:   step.Name(),
				Result: models.SkippedResult("precondition not met"),
			})
			continue
		}

		res := p.runStep(ctx, step, ec, env)
		result.Steps = append(result.Steps, models.StepOutcome{Step: step.Name(), Result: res})

		if !res.Success {
			result.OverallSuccess = false
			if ec.ErrorMessage == "" {
				ec.ErrorMessage = step.Name() + ": " + res.Message
			}
			p.log.Warn("step failed",
				zap.String("transaction_id", ec.TransactionID),
				zap.String("step", step.Name()),
				zap.String("message", res.Message))
			if p.stopOnError {
				break
			}
		}
	}

	result.Elapsed = time.Since(start)
	return result
}

// runStep invokes a step, converting a panic into a failed result so one bad
// row cannot take down the batch.
func (p *Pipeline) runStep(ctx context.Context, step Step, ec *models.Context, env *Env) (res models.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			res = models.Failed(fmt.Sprintf("step panicked: %v", r))
			p.log.Error("step panicked",
				zap.String("transaction_id", ec.TransactionID),
				zap.String("step", step.Name()),
				zap.Any("panic", r))
		}
	}()
	return step.Run(ctx, ec, env)
}

// ExecuteBatch runs the pipeline over every context. One row's failure never
// affects another row; with workers > 1 rows run in parallel while results
// keep input order.
func (p *Pipeline) ExecuteBatch(ctx context.Context, ecs []*models.Context, env *Env) models.BatchResult {
	start := time.Now()
	rows := make([]models.RowResult, len(ecs))

	if p.workers <= 1 || len(ecs) < 2 {
		for i, ec := range ecs {
			rows[i] = p.Execute(ctx, ec, env)
		}
	} else {
		var wg sync.WaitGroup
		idx := make(chan int)
		for w := 0; w < p.workers; w++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range idx {
					rows[i] = p.Execute(ctx, ecs[i], env)
				}
			}()
		}
		for i := range ecs {
			idx <- i
		}
		close(idx)
		wg.Wait()
	}

	batch := models.BatchResult{Rows: rows, Total: len(rows), Elapsed: time.Since(start)}
	for _, row := range rows {
		if row.OverallSuccess {
			batch.Succeeded++
		} else {
			batch.Failed++
		}
	}
	return batch
}

// Package steps contains the domain steps composed on the pipeline runtime:
// currency validation, FX conversion, customer identification, counterparty
// determination, and F14 rule mapping.
package steps

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// CurrencyValidation normalizes the row currency and checks it against the
// currency master. It runs first; an invalid currency is a soft failure and
// downstream steps decide for themselves whether they can still contribute.
type CurrencyValidation struct{}

// NewCurrencyValidation creates the currency validation step.
func NewCurrencyValidation() *CurrencyValidation {
	return &CurrencyValidation{}
}

func (s *CurrencyValidation) Name() string { return "currency_validation" }

func (s *CurrencyValidation) ShouldExecute(ec *models.Context) bool {
	return pipeline.NoPriorError(ec)
}

func (s *CurrencyValidation) Run(ctx context.Context, ec *models.Context, env *pipeline.Env) models.StepResult {
	code := strings.ToUpper(strings.TrimSpace(ec.Currency))
	if code == "" {
		ec.SetStatus(models.StatusCurrencyInvalid)
		env.Exception(ctx, ec, models.ExcMissingCurrency,
			"transaction has no currency", pipeline.AmountPriority(ec))
		return models.Failed("currency is missing")
	}
	ec.Currency = code

	rows, err := env.Store.Find(ctx, store.TableCurrencyMaster, "", nil, "", false, 0, 0)
	if err != nil {
		return models.Failed("currency master lookup failed: " + err.Error())
	}

	var match *models.Currency
	for _, row := range rows {
		cur := models.CurrencyFromRow(row)
		if cur.Code == code {
			match = &cur
			break
		}
	}

	if match == nil || !match.IsActive() {
		ec.SetStatus(models.StatusCurrencyInvalid)
		env.Exception(ctx, ec, models.ExcInvalidCurrency,
			fmt.Sprintf("currency %s is unknown or inactive", code), pipeline.AmountPriority(ec))
		return models.Failed("currency " + code + " is not an active currency")
	}

	ec.Enrich(models.KeyCurrencyName, match.Name)
	ec.Enrich(models.KeyCurrencySymbol, match.Symbol)
	ec.Enrich(models.KeyCurrencyDecimals, strconv.Itoa(match.DecimalPlaces))

	ec.SetStatus(models.StatusCurrencyValidated)
	env.Audit(ctx, ec, s.Name(), "CURRENCY_VALIDATED", "currency "+code+" validated")
	return models.Succeeded("currency " + code + " validated")
}

var _ pipeline.Step = (*CurrencyValidation)(nil)

package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// staleRateWindowDays is how far back (calendar days, inclusive) the FX step
// searches for a usable rate when no rate exists for the transaction date.
const staleRateWindowDays = 5

// fxRateSourceBase marks amounts that needed no conversion.
const fxRateSourceBase = "BASE_CURRENCY"

// FXConversion converts the transaction amount to EUR. A missing rate is not
// fatal: a 0.00 placeholder is written and an exception raised so downstream
// steps are not blocked.
type FXConversion struct{}

// NewFXConversion creates the FX conversion step.
func NewFXConversion() *FXConversion {
	return &FXConversion{}
}

func (s *FXConversion) Name() string { return "fx_conversion" }

func (s *FXConversion) ShouldExecute(ec *models.Context) bool {
	return pipeline.NoPriorError(ec)
}

func (s *FXConversion) Run(ctx context.Context, ec *models.Context, env *pipeline.Env) models.StepResult {
	if ec.Currency == "" {
		env.Exception(ctx, ec, models.ExcMissingCurrency,
			"cannot convert amount without a currency", pipeline.AmountPriority(ec))
		return models.Failed("currency is missing")
	}

	amount, err := pipeline.ParseAmount(ec.Amount)
	if err != nil {
		return models.Failed("cannot parse amount: " + err.Error())
	}

	ec.Enrich(models.KeyOriginalAmount, amount.StringFixed(2))
	ec.Enrich(models.KeyOriginalCurrency, ec.Currency)
	ec.Enrich(models.KeyBaseCurrency, models.BaseCurrency)

	// EUR needs no lookup at all.
	if ec.Currency == models.BaseCurrency {
		ec.Enrich(models.KeyBaseAmount, amount.StringFixed(2))
		ec.Enrich(models.KeyFXRate, "1.0")
		ec.Enrich(models.KeyFXRateSource, fxRateSourceBase)
		s.convertFee(ec, decimal.NewFromInt(1))
		ec.SetStatus(models.StatusFXConverted)
		env.Audit(ctx, ec, s.Name(), "BASE_CURRENCY_CALCULATED", "amount already in EUR")
		return models.Succeeded("amount already in base currency")
	}

	fxDate := dateOnly(ec.TransactionDate)
	if ec.TransactionDate.IsZero() {
		fxDate = dateOnly(env.Now())
	}

	rate, found, err := s.lookupRate(ctx, env.Store, ec.Currency, fxDate)
	if err != nil {
		return models.Failed("fx rate lookup failed: " + err.Error())
	}
	if !found {
		env.Exception(ctx, ec, models.ExcFXRateMissing,
			fmt.Sprintf("no active %s rate within %d days of %s",
				ec.Currency, staleRateWindowDays, fxDate.Format(models.DateLayout)),
			models.PriorityHigh)
		ec.Enrich(models.KeyBaseAmount, "0.00")
		ec.Enrich(models.KeyFXRate, "0")
		ec.SetStatus(models.StatusFXConverted)
		return models.Succeeded("fx rate missing, placeholder base amount written")
	}

	ageDays := int(fxDate.Sub(rate.EffectiveDate).Hours() / 24)
	if ageDays > 0 {
		env.Exception(ctx, ec, models.ExcOldFXRate,
			fmt.Sprintf("using %s rate from %s (%d days old)",
				ec.Currency, rate.EffectiveDate.Format(models.DateLayout), ageDays),
			models.PriorityLow)
	}

	toEUR := rate.InverseRate()
	ec.Enrich(models.KeyBaseAmount, amount.Mul(toEUR).StringFixed(2))
	ec.Enrich(models.KeyFXRate, toEUR.String())
	ec.Enrich(models.KeyFXRateDate, rate.EffectiveDate.Format(models.DateLayout))
	ec.Enrich(models.KeyFXRateSource, store.TableFXRatesEUR)
	s.convertFee(ec, toEUR)

	ec.SetStatus(models.StatusFXConverted)
	env.Audit(ctx, ec, s.Name(), "BASE_CURRENCY_CALCULATED",
		fmt.Sprintf("converted %s %s at rate %s", amount.StringFixed(2), ec.Currency, toEUR.String()))
	return models.Succeeded("amount converted to EUR")
}

// lookupRate finds the active rate for the exact date, falling back to the
// most recent active rate within the stale window.
func (s *FXConversion) lookupRate(ctx context.Context, st store.Store, currency string, fxDate time.Time) (models.FXRate, bool, error) {
	rows, err := st.Find(ctx, store.TableFXRatesEUR, "", nil, "", false, 0, 0)
	if err != nil {
		return models.FXRate{}, false, err
	}

	earliest := fxDate.AddDate(0, 0, -staleRateWindowDays)
	var best models.FXRate
	var found bool
	for _, row := range rows {
		rate := models.FXRateFromRow(row)
		if !rate.IsActive() || rate.TargetCurrency != currency {
			continue
		}
		if rate.EffectiveDate.Equal(fxDate) {
			return rate, true, nil
		}
		if rate.EffectiveDate.After(fxDate) || rate.EffectiveDate.Before(earliest) {
			continue
		}
		if !found || rate.EffectiveDate.After(best.EffectiveDate) {
			best = rate
			found = true
		}
	}
	return best, found, nil
}

// convertFee writes base_fee for securities rows carrying a parseable fee.
func (s *FXConversion) convertFee(ec *models.Context, toEUR decimal.Decimal) {
	if ec.Source != models.SourceSecu || ec.Fee == "" {
		return
	}
	fee, err := pipeline.ParseAmount(ec.Fee)
	if err != nil {
		return
	}
	ec.Enrich(models.KeyBaseFee, fee.Mul(toEUR).StringFixed(2))
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

var _ pipeline.Step = (*FXConversion)(nil)

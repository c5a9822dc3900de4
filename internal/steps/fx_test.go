package steps

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

func seedUSDRate(st *store.MemoryStore, date, rate string) {
	st.Seed(store.TableFXRatesEUR, store.Row{
		store.PrimaryKey:  "FX-" + date,
		"effective_date":  date,
		"target_currency": "USD",
		"exchange_rate":   rate,
		"status":          "active",
	})
}

// noRateStore fails any FX table read, proving the EUR path never touches it.
type noRateStore struct {
	*store.MemoryStore
}

func (s *noRateStore) Find(ctx context.Context, table, where string, params []any, sort string, desc bool, offset, limit int) ([]store.Row, error) {
	if table == store.TableFXRatesEUR {
		return nil, errors.New("fx table must not be read for EUR rows")
	}
	return s.MemoryStore.Find(ctx, table, where, params, sort, desc, offset, limit)
}

func TestFXConversionBaseCurrencyShortCircuit(t *testing.T) {
	st := &noRateStore{MemoryStore: store.NewMemoryStore()}
	env := newTestEnv(st)

	ec := bankContext("EUR", "1234.5")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "1234.50", ec.Enrichments[models.KeyBaseAmount])
	assert.Equal(t, "1.0", ec.Enrichments[models.KeyFXRate])
	assert.Equal(t, "BASE_CURRENCY", ec.Enrichments[models.KeyFXRateSource])
	assert.Equal(t, models.StatusFXConverted, ec.ProcessingStatus)
}

func TestFXConversionExactDateRate(t *testing.T) {
	st := store.NewMemoryStore()
	seedUSDRate(st, "2024-01-15", "1.10")
	env := newTestEnv(st)

	ec := bankContext("USD", "1000.00")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "909.09", ec.Enrichments[models.KeyBaseAmount])
	assert.Equal(t, "2024-01-15", ec.Enrichments[models.KeyFXRateDate])
	assert.Equal(t, store.TableFXRatesEUR, ec.Enrichments[models.KeyFXRateSource])
	assert.Equal(t, 0, st.Count(store.TableExceptionQueue))
}

func TestFXConversionStaleRateRaisesAdvisory(t *testing.T) {
	st := store.NewMemoryStore()
	seedUSDRate(st, "2024-01-12", "1.10")
	env := newTestEnv(st)

	ec := bankContext("USD", "1000.00")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "909.09", ec.Enrichments[models.KeyBaseAmount])
	assert.Equal(t, "2024-01-12", ec.Enrichments[models.KeyFXRateDate])

	excs := exceptionsOfType(t, st, models.ExcOldFXRate)
	require.Len(t, excs, 1)
	assert.Equal(t, string(models.PriorityLow), excs[0]["priority"])
	assert.Equal(t, models.AssigneeFXSpecialist, excs[0]["assigned_to"])
}

func TestFXConversionPrefersMostRecentRateInWindow(t *testing.T) {
	st := store.NewMemoryStore()
	seedUSDRate(st, "2024-01-11", "1.20")
	seedUSDRate(st, "2024-01-13", "1.25")
	env := newTestEnv(st)

	ec := bankContext("USD", "1000.00")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "2024-01-13", ec.Enrichments[models.KeyFXRateDate])
	assert.Equal(t, "800.00", ec.Enrichments[models.KeyBaseAmount])
}

func TestFXConversionMissingRatePlaceholders(t *testing.T) {
	st := store.NewMemoryStore()
	// A rate outside the 5-day window does not count.
	seedUSDRate(st, "2024-01-09", "1.10")
	env := newTestEnv(st)

	ec := bankContext("USD", "1000.00")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success, "missing rate must not fail the row")
	assert.Equal(t, "0.00", ec.Enrichments[models.KeyBaseAmount])
	assert.Equal(t, "0", ec.Enrichments[models.KeyFXRate])
	assert.Equal(t, models.StatusFXConverted, ec.ProcessingStatus)

	excs := exceptionsOfType(t, st, models.ExcFXRateMissing)
	require.Len(t, excs, 1)
	assert.Equal(t, string(models.PriorityHigh), excs[0]["priority"])
}

func TestFXConversionIgnoresInactiveAndWrongCurrencyRates(t *testing.T) {
	st := store.NewMemoryStore()
	st.Seed(store.TableFXRatesEUR,
		store.Row{store.PrimaryKey: "FX1", "effective_date": "2024-01-15", "target_currency": "USD", "exchange_rate": "1.10", "status": "inactive"},
		store.Row{store.PrimaryKey: "FX2", "effective_date": "2024-01-15", "target_currency": "GBP", "exchange_rate": "0.85", "status": "active"},
	)
	env := newTestEnv(st)

	ec := bankContext("USD", "1000.00")
	NewFXConversion().Run(context.Background(), ec, env)

	assert.Equal(t, "0.00", ec.Enrichments[models.KeyBaseAmount])
	require.Len(t, exceptionsOfType(t, st, models.ExcFXRateMissing), 1)
}

func TestFXConversionUnparseableAmountFails(t *testing.T) {
	st := store.NewMemoryStore()
	env := newTestEnv(st)

	ec := bankContext("USD", "not-a-number")
	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.False(t, res.Success)
}

func TestFXConversionConvertsSecuFee(t *testing.T) {
	st := store.NewMemoryStore()
	seedUSDRate(st, "2024-01-15", "1.25")
	env := newTestEnv(st)

	ec := models.NewContext("TXN-9", "STMT-9", models.SourceSecu)
	ec.Currency = "USD"
	ec.Amount = "500.00"
	ec.Fee = "25.00"
	ec.TransactionDate = testClock

	res := NewFXConversion().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "400.00", ec.Enrichments[models.KeyBaseAmount])
	assert.Equal(t, "20.00", ec.Enrichments[models.KeyBaseFee])
}

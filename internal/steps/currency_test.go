package steps

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

func TestCurrencyValidationAcceptsActiveCurrency(t *testing.T) {
	st := store.NewMemoryStore()
	seedCurrencies(st)
	env := newTestEnv(st)

	ec := bankContext(" usd ", "1000.00")
	res := NewCurrencyValidation().Run(context.Background(), ec, env)

	assert.True(t, res.Success)
	assert.Equal(t, "USD", ec.Currency)
	assert.Equal(t, "US Dollar", ec.Enrichments[models.KeyCurrencyName])
	assert.Equal(t, "2", ec.Enrichments[models.KeyCurrencyDecimals])
	assert.Equal(t, models.StatusCurrencyValidated, ec.ProcessingStatus)
	assert.Equal(t, 1, st.Count(store.TableAuditLog))
	assert.Equal(t, 0, st.Count(store.TableExceptionQueue))
}

func TestCurrencyValidationMissingCurrency(t *testing.T) {
	st := store.NewMemoryStore()
	seedCurrencies(st)
	env := newTestEnv(st)

	ec := bankContext("  ", "1000.00")
	res := NewCurrencyValidation().Run(context.Background(), ec, env)

	assert.False(t, res.Success)
	assert.Equal(t, models.StatusCurrencyInvalid, ec.ProcessingStatus)
	excs := exceptionsOfType(t, st, models.ExcMissingCurrency)
	require.Len(t, excs, 1)
	assert.Equal(t, "TXN-1", excs[0]["transaction_id"])
}

func TestCurrencyValidationUnknownCurrency(t *testing.T) {
	st := store.NewMemoryStore()
	seedCurrencies(st)
	env := newTestEnv(st)

	ec := bankContext("XXX", "1000.00")
	res := NewCurrencyValidation().Run(context.Background(), ec, env)

	assert.False(t, res.Success)
	assert.Equal(t, models.StatusCurrencyInvalid, ec.ProcessingStatus)
	require.Len(t, exceptionsOfType(t, st, models.ExcInvalidCurrency), 1)
}

func TestCurrencyValidationInactiveCurrency(t *testing.T) {
	st := store.NewMemoryStore()
	seedCurrencies(st)
	env := newTestEnv(st)

	ec := bankContext("ZWL", "1000.00")
	res := NewCurrencyValidation().Run(context.Background(), ec, env)

	assert.False(t, res.Success)
	assert.Equal(t, models.StatusCurrencyInvalid, ec.ProcessingStatus)
	require.Len(t, exceptionsOfType(t, st, models.ExcInvalidCurrency), 1)
}

func TestCurrencyValidationExceptionPriorityScalesWithAmount(t *testing.T) {
	st := store.NewMemoryStore()
	env := newTestEnv(st)

	ec := bankContext("XXX", "2500000.00")
	NewCurrencyValidation().Run(context.Background(), ec, env)

	excs := exceptionsOfType(t, st, models.ExcInvalidCurrency)
	require.Len(t, excs, 1)
	assert.Equal(t, string(models.PriorityCritical), excs[0]["priority"])
	assert.Equal(t, models.AssigneeSupervisor, excs[0]["assigned_to"])
}

func TestCurrencyValidationSkipsAfterPriorError(t *testing.T) {
	ec := bankContext("EUR", "10.00")
	ec.ErrorMessage = "earlier step failed"
	assert.False(t, NewCurrencyValidation().ShouldExecute(ec))
}

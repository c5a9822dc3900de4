package steps

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// testClock is the fixed "today" for every step test.
var testClock = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

func newTestEnv(st store.Store) *pipeline.Env {
	env := pipeline.NewEnv(st, nil, nil)
	env.Now = func() time.Time { return testClock }
	return env
}

func seedCurrencies(st *store.MemoryStore) {
	st.Seed(store.TableCurrencyMaster,
		store.Row{store.PrimaryKey: "1", "code": "EUR", "name": "Euro", "symbol": "€", "decimal_places": "2", "status": "active"},
		store.Row{store.PrimaryKey: "2", "code": "USD", "name": "US Dollar", "symbol": "$", "decimal_places": "2", "status": "active"},
		store.Row{store.PrimaryKey: "3", "code": "ZWL", "name": "Zimbabwe Dollar", "symbol": "Z$", "decimal_places": "2", "status": "inactive"},
	)
}

func exceptionsOfType(t *testing.T, st *store.MemoryStore, excType string) []store.Row {
	t.Helper()
	rows, err := st.Find(context.Background(), store.TableExceptionQueue,
		"exception_type = ?", []any{excType}, "", false, 0, 0)
	require.NoError(t, err)
	return rows
}

func bankContext(currency, amount string) *models.Context {
	ec := models.NewContext("TXN-1", "STMT-1", models.SourceBank)
	ec.Currency = currency
	ec.Amount = amount
	ec.TransactionDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	return ec
}

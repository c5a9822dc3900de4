package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/finlake/enrich/internal/store"
)

func TestCurrencyFromRow(t *testing.T) {
	cur := CurrencyFromRow(store.Row{
		"code":           "usd",
		"name":           "US Dollar",
		"symbol":         "$",
		"decimal_places": "2",
		"status":         StatusActive,
	})

	assert.Equal(t, "USD", cur.Code)
	assert.Equal(t, 2, cur.DecimalPlaces)
	assert.True(t, cur.IsActive())

	inactive := CurrencyFromRow(store.Row{"code": "XXX", "status": "inactive"})
	assert.False(t, inactive.IsActive())
}

func TestFXRateInverse(t *testing.T) {
	rate := FXRateFromRow(store.Row{
		store.PrimaryKey:  "FX1",
		"effective_date":  "2024-01-12",
		"target_currency": "usd",
		"exchange_rate":   "1.10",
		"status":          StatusActive,
	})

	assert.True(t, rate.IsActive())
	assert.Equal(t, "USD", rate.TargetCurrency)

	inverse := rate.InverseRate()
	expected := decimal.NewFromInt(1).Div(decimal.RequireFromString("1.10"))
	assert.True(t, inverse.Equal(expected), "got %s", inverse)

	zero := FXRate{}
	assert.True(t, zero.InverseRate().IsZero())
	assert.False(t, zero.IsActive())
}

func TestCounterpartyFromRow(t *testing.T) {
	cp := CounterpartyFromRow(store.Row{
		store.PrimaryKey:    "CPT0143",
		"name":              "Example Bank AG",
		"counterparty_type": CounterpartyBank,
		"bank_id":           "XBANKXX0",
		"short_code":        "EXB",
		"is_active":         "true",
	})

	assert.Equal(t, "CPT0143", cp.ID)
	assert.Equal(t, CounterpartyBank, cp.Type)
	assert.True(t, cp.IsActive)

	inactive := CounterpartyFromRow(store.Row{"is_active": "false"})
	assert.False(t, inactive.IsActive)
}

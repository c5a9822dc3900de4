package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/finlake/enrich/internal/store"
)

// StatusActive is the status value marking reference rows as usable.
const StatusActive = "active"

// DateLayout is the wire format for dates in store rows.
const DateLayout = "2006-01-02"

// Currency is a row of the currency master.
type Currency struct {
	Code          string
	Name          string
	Symbol        string
	DecimalPlaces int
	Status        string
}

// CurrencyFromRow builds a Currency from a store row.
func CurrencyFromRow(row store.Row) Currency {
	places, _ := strconv.Atoi(row["decimal_places"])
	return Currency{
		Code:          strings.ToUpper(row["code"]),
		Name:          row["name"],
		Symbol:        row["symbol"],
		DecimalPlaces: places,
		Status:        row["status"],
	}
}

// IsActive reports whether the currency may be used.
func (c Currency) IsActive() bool {
	return c.Status == StatusActive
}

// Counterparty types.
const (
	CounterpartyBank      = "Bank"
	CounterpartyCustodian = "Custodian"
	CounterpartyBroker    = "Broker"
)

// Counterparty is a row of the counterparty master, keyed by business ID
// such as CPT0143.
type Counterparty struct {
	ID          string
	Name        string
	Type        string
	BankID      string
	CustodianID string
	BrokerID    string
	ShortCode   string
	IsActive    bool
}

// CounterpartyFromRow builds a Counterparty from a store row.
func CounterpartyFromRow(row store.Row) Counterparty {
	return Counterparty{
		ID:          row[store.PrimaryKey],
		Name:        row["name"],
		Type:        row["counterparty_type"],
		BankID:      row["bank_id"],
		CustodianID: row["custodian_id"],
		BrokerID:    row["broker_id"],
		ShortCode:   row["short_code"],
		IsActive:    row["is_active"] == "true",
	}
}

// Customer is a row of the customer master, keyed by customer ID such as
// CUST-000123.
type Customer struct {
	ID                 string
	Name               string
	ShortName          string
	CustomerType       string
	RegistrationNumber string
	PersonalID         string
	TaxID              string
	BaseCurrency       string
	RiskLevel          string
	PrimaryAccount     string
	BankAccountNumber  string
	Status             string
}

// CustomerFromRow builds a Customer from a store row.
func CustomerFromRow(row store.Row) Customer {
	return Customer{
		ID:                 row[store.PrimaryKey],
		Name:               row["name"],
		ShortName:          row["short_name"],
		CustomerType:       row["customer_type"],
		RegistrationNumber: row["registration_number"],
		PersonalID:         row["personal_id"],
		TaxID:              row["tax_id"],
		BaseCurrency:       row["base_currency"],
		RiskLevel:          row["risk_level"],
		PrimaryAccount:     row["primary_account"],
		BankAccountNumber:  row["bank_account_number"],
		Status:             row["status"],
	}
}

// IsActive reports whether the customer is active.
func (c Customer) IsActive() bool {
	return c.Status == StatusActive
}

// FXRate is a row of the EUR rate table. Rate is units of target currency
// per 1 EUR on the effective date.
type FXRate struct {
	ID             string
	EffectiveDate  time.Time
	TargetCurrency string
	Rate           decimal.Decimal
	Status         string
}

// FXRateFromRow builds an FXRate from a store row. Rows with unparseable
// dates or rates come back with zero values and are filtered by callers.
func FXRateFromRow(row store.Row) FXRate {
	date, _ := time.Parse(DateLayout, row["effective_date"])
	rate, _ := decimal.NewFromString(row["exchange_rate"])
	return FXRate{
		ID:             row[store.PrimaryKey],
		EffectiveDate:  date,
		TargetCurrency: strings.ToUpper(row["target_currency"]),
		Rate:           rate,
		Status:         row["status"],
	}
}

// IsActive reports whether the rate may be used.
func (r FXRate) IsActive() bool {
	return r.Status == StatusActive && !r.Rate.IsZero() && !r.EffectiveDate.IsZero()
}

// InverseRate returns 1/rate, the multiplier converting the target currency
// into EUR.
func (r FXRate) InverseRate() decimal.Decimal {
	if r.Rate.IsZero() {
		return decimal.Zero
	}
	return decimal.NewFromInt(1).Div(r.Rate)
}

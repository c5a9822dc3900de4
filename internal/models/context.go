package models

import (
	"errors"
	"strings"
	"time"
)

// SourceType selects which subset of input fields is meaningful for a row.
type SourceType string

const (
	SourceBank SourceType = "BANK"
	SourceSecu SourceType = "SECU"
)

// Processing-status checkpoints recorded as steps complete. Alternate
// checkpoints (currency_invalid, f14_no_match, f14_no_rules) keep the status
// non-empty on rows that terminate off the happy path.
const (
	StatusCurrencyValidated      = "currency_validated"
	StatusCurrencyInvalid        = "currency_invalid"
	StatusFXConverted            = "fx_converted"
	StatusCustomerIdentified     = "customer_identified"
	StatusCounterpartyDetermined = "counterparty_determined"
	StatusF14Mapped              = "f14_mapped"
	StatusF14NoMatch             = "f14_no_match"
	StatusF14NoRules             = "f14_no_rules"
)

// Sentinel enrichment values.
const (
	SentinelUnknown   = "UNKNOWN"
	SentinelUnmatched = "UNMATCHED"
	SentinelSystem    = "SYSTEM"
	BaseCurrency      = "EUR"
)

// Recognized enrichment keys. Steps may write additional ad-hoc keys; these
// are the ones downstream consumers rely on.
const (
	KeyCurrencyName      = "currency_name"
	KeyCurrencySymbol    = "currency_symbol"
	KeyCurrencyDecimals  = "currency_decimal_places"
	KeyOriginalAmount    = "original_amount"
	KeyOriginalCurrency  = "original_currency"
	KeyBaseAmount        = "base_amount"
	KeyBaseFee           = "base_fee"
	KeyBaseCurrency      = "base_currency"
	KeyFXRate            = "fx_rate"
	KeyFXRateDate        = "fx_rate_date"
	KeyFXRateSource      = "fx_rate_source"
	KeyCustomerID        = "customer_id"
	KeyCustomerName      = "customer_name"
	KeyCustomerCode      = "customer_code"
	KeyCustomerType      = "customer_type"
	KeyCustomerBaseCcy   = "customer_base_currency"
	KeyCustomerRisk      = "customer_risk_level"
	KeyCustomerConf      = "customer_confidence"
	KeyCustomerMethod    = "customer_id_method"
	KeyCounterpartyID    = "counterparty_id"
	KeyCounterpartyType  = "counterparty_type"
	KeyCounterpartyBIC   = "counterparty_bic"
	KeyCounterpartyName  = "counterparty_name"
	KeyCounterpartyCode  = "counterparty_short_code"
	KeyOtherSideBIC      = "other_side_bic"
	KeyOtherSideName     = "other_side_name"
	KeyInternalType      = "internal_type"
	KeyF14RuleID         = "f14_rule_id"
	KeyF14RuleName       = "f14_rule_name"
	KeyF14RulesEvaluated = "f14_rules_evaluated"
)

// Context carries one input row through the pipeline. It is mutated in place
// by the steps of a single row, one step at a time.
type Context struct {
	TransactionID string
	StatementID   string
	Source        SourceType

	Currency        string
	Amount          string
	TransactionDate time.Time
	CustomerIDRaw   string
	StatementBank   string

	// BANK-only fields
	OtherSideName      string
	OtherSideBIC       string
	PaymentDescription string
	ReferenceNumber    string
	DebitCredit        string
	AccountNumber      string

	// SECU-only fields
	Ticker      string
	SecuType    string
	Description string
	Reference   string
	Fee         string

	ProcessingStatus string
	ProcessedSteps   []string
	ErrorMessage     string
	Enrichments      map[string]string
}

// NewContext creates a Context with an initialized enrichment map.
func NewContext(transactionID, statementID string, source SourceType) *Context {
	return &Context{
		TransactionID: transactionID,
		StatementID:   statementID,
		Source:        source,
		Enrichments:   make(map[string]string),
	}
}

// Validate validates the identifying fields of the context
func (c *Context) Validate() error {
	if c.TransactionID == "" {
		return errors.New("transaction_id is required")
	}
	if c.Source != SourceBank && c.Source != SourceSecu {
		return errors.New("source_type must be BANK or SECU")
	}
	return nil
}

// SetStatus records a processing checkpoint. ProcessedSteps is append-only.
func (c *Context) SetStatus(status string) {
	c.ProcessingStatus = status
	c.ProcessedSteps = append(c.ProcessedSteps, status)
}

// Enrich stores a value in the enrichment map.
func (c *Context) Enrich(key, value string) {
	if c.Enrichments == nil {
		c.Enrichments = make(map[string]string)
	}
	c.Enrichments[key] = value
}

// Enrichment returns the enrichment value for key, or fallback when unset.
func (c *Context) Enrichment(key, fallback string) string {
	if v, ok := c.Enrichments[key]; ok && v != "" {
		return v
	}
	return fallback
}

// FieldValue resolves a logical field name to its value on this context.
// These are the names rule authors use in cp_txn_mapping.matching_field.
func (c *Context) FieldValue(name string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "currency":
		return c.Currency, true
	case "amount":
		return c.Amount, true
	case "customer_id_raw":
		return c.CustomerIDRaw, true
	case "statement_bank":
		return c.StatementBank, true
	case "other_side_name":
		return c.OtherSideName, true
	case "other_side_bic":
		return c.OtherSideBIC, true
	case "payment_description":
		return c.PaymentDescription, true
	case "reference_number":
		return c.ReferenceNumber, true
	case "debit_credit", "d_c":
		return c.DebitCredit, true
	case "account_number":
		return c.AccountNumber, true
	case "ticker":
		return c.Ticker, true
	case "type":
		return c.SecuType, true
	case "description":
		return c.Description, true
	case "reference":
		return c.Reference, true
	case "fee":
		return c.Fee, true
	default:
		return "", false
	}
}

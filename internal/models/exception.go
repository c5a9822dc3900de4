package models

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finlake/enrich/internal/store"
)

// Priority classifies exceptions for human follow-up.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// Exception types emitted by the pipeline steps.
const (
	ExcMissingCurrency   = "MISSING_CURRENCY"
	ExcInvalidCurrency   = "INVALID_CURRENCY"
	ExcFXRateMissing     = "FX_RATE_MISSING"
	ExcOldFXRate         = "OLD_FX_RATE"
	ExcMissingCustomer   = "MISSING_CUSTOMER"
	ExcInactiveCustomer  = "INACTIVE_CUSTOMER"
	ExcLowConfidence     = "LOW_CONFIDENCE_IDENTIFICATION"
	ExcCounterpartyMiss  = "COUNTERPARTY_NOT_FOUND"
	ExcNoF14Rules        = "NO_F14_RULES"
	ExcNoRuleMatch       = "NO_RULE_MATCH"
)

// Assignee groups for exception follow-up.
const (
	AssigneeSupervisor   = "supervisor"
	AssigneeFXSpecialist = "fx_specialist"
	AssigneeOperations   = "operations"
)

// ExceptionStatusPending is the initial status of every emitted exception.
const ExceptionStatusPending = "pending"

// ExceptionRecord is one row of the exception queue.
type ExceptionRecord struct {
	ID            string
	TransactionID string
	StatementID   string
	Source        SourceType
	Type          string
	Details       string
	Amount        string
	Currency      string
	TxnDate       time.Time
	Priority      Priority
	Status        string
	AssignedTo    string
	DueDate       time.Time
	ExceptionDate time.Time
	Extra         map[string]string
}

// NewException builds an exception for the given context with a fresh UUID,
// pending status, and assignee/due date derived from the priority.
func NewException(c *Context, excType, details string, priority Priority, now time.Time) ExceptionRecord {
	rec := ExceptionRecord{
		ID:            uuid.NewString(),
		TransactionID: c.TransactionID,
		StatementID:   c.StatementID,
		Source:        c.Source,
		Type:          excType,
		Details:       details,
		Amount:        c.Amount,
		Currency:      c.Currency,
		TxnDate:       c.TransactionDate,
		Priority:      priority,
		Status:        ExceptionStatusPending,
		AssignedTo:    assigneeFor(excType, priority),
		DueDate:       now.AddDate(0, 0, dueDays(priority)),
		ExceptionDate: now,
		Extra:         contextFields(c),
	}
	return rec
}

// dueDays maps priority to follow-up deadline in days.
func dueDays(p Priority) int {
	switch p {
	case PriorityCritical, PriorityHigh:
		return 1
	case PriorityMedium:
		return 3
	default:
		return 7
	}
}

// assigneeFor routes critical and high exceptions to supervisors, FX issues
// to the FX desk, and the rest to operations.
func assigneeFor(excType string, p Priority) string {
	if strings.HasPrefix(excType, "FX_") || excType == ExcOldFXRate {
		return AssigneeFXSpecialist
	}
	if p == PriorityCritical || p == PriorityHigh {
		return AssigneeSupervisor
	}
	return AssigneeOperations
}

// contextFields collects the source-type-specific fields attached to an
// exception to aid human resolution.
func contextFields(c *Context) map[string]string {
	if c.Source == SourceSecu {
		return map[string]string{
			"ticker":      c.Ticker,
			"secu_type":   c.SecuType,
			"description": c.Description,
		}
	}
	return map[string]string{
		"payment_description": c.PaymentDescription,
		"other_side_name":     c.OtherSideName,
		"debit_credit":        c.DebitCredit,
	}
}

// ToRow flattens the exception for the store adapter.
func (e ExceptionRecord) ToRow() store.Row {
	row := store.Row{
		store.PrimaryKey: e.ID,
		"transaction_id": e.TransactionID,
		"statement_id":   e.StatementID,
		"source_type":    string(e.Source),
		"exception_type": e.Type,
		"details":        e.Details,
		"amount":         e.Amount,
		"currency":       e.Currency,
		"priority":       string(e.Priority),
		"status":         e.Status,
		"assigned_to":    e.AssignedTo,
		"due_date":       e.DueDate.UTC().Format(DateLayout),
		"exception_date": e.ExceptionDate.UTC().Format(time.RFC3339),
	}
	if !e.TxnDate.IsZero() {
		row["transaction_date"] = e.TxnDate.Format(DateLayout)
	}
	for k, v := range e.Extra {
		if v != "" {
			row["ctx_"+k] = v
		}
	}
	return row
}

// AuditRecord is one row of the audit log.
type AuditRecord struct {
	ID            string
	TransactionID string
	StepName      string
	Action        string
	Details       string
	Timestamp     time.Time
	Status        string
}

// NewAudit builds an audit record for the given context and step.
func NewAudit(c *Context, stepName, action, details string, now time.Time) AuditRecord {
	return AuditRecord{
		ID:            uuid.NewString(),
		TransactionID: c.TransactionID,
		StepName:      stepName,
		Action:        action,
		Details:       details,
		Timestamp:     now,
		Status:        c.ProcessingStatus,
	}
}

// ToRow flattens the audit record for the store adapter.
func (a AuditRecord) ToRow() store.Row {
	return store.Row{
		store.PrimaryKey: a.ID,
		"transaction_id": a.TransactionID,
		"step_name":      a.StepName,
		"action":         a.Action,
		"details":        a.Details,
		"timestamp":      a.Timestamp.UTC().Format(time.RFC3339),
		"status":         a.Status,
	}
}

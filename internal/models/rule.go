package models

import (
	"strconv"
	"strings"
	"time"

	"github.com/finlake/enrich/internal/store"
)

// DefaultRulePriority is used when a rule carries no parseable priority.
// Lower values are evaluated first.
const DefaultRulePriority = 999

// Match operators accepted in cp_txn_mapping rows.
const (
	OpEquals     = "equals"
	OpContains   = "contains"
	OpStartsWith = "startswith"
	OpEndsWith   = "endswith"
	OpRegex      = "regex"
	OpIn         = "in"
)

// MappingRule is a counterparty-to-transaction-type rule ("F14 rule").
// CounterpartyID is either a business ID or the sentinel SYSTEM.
type MappingRule struct {
	ID                   string
	Name                 string
	CounterpartyID       string
	SourceType           string
	MatchingField        string
	MatchOperator        string
	MatchValue           string
	CaseSensitive        bool
	ArithmeticCondition  string
	ComplexRuleExpr      string
	InternalType         string
	Priority             int
	Status               string
	EffectiveDate        time.Time
	HasEffectiveDate     bool
}

// MappingRuleFromRow builds a MappingRule from a store row.
func MappingRuleFromRow(row store.Row) MappingRule {
	rule := MappingRule{
		ID:                  row[store.PrimaryKey],
		Name:                row["rule_name"],
		CounterpartyID:      row["counterparty_id"],
		SourceType:          row["source_type"],
		MatchingField:       strings.ToLower(strings.TrimSpace(row["matching_field"])),
		MatchOperator:       normalizeOperator(row["match_operator"]),
		MatchValue:          row["match_value"],
		CaseSensitive:       row["case_sensitive"] == "true",
		ArithmeticCondition: strings.TrimSpace(row["arithmetic_condition"]),
		ComplexRuleExpr:     strings.TrimSpace(row["complex_rule_expression"]),
		InternalType:        row["internal_type"],
		Status:              row["status"],
		Priority:            DefaultRulePriority,
	}

	if p, err := strconv.Atoi(strings.TrimSpace(row["priority"])); err == nil {
		rule.Priority = p
	}
	if raw := strings.TrimSpace(row["effective_date"]); raw != "" {
		if d, err := time.Parse(DateLayout, raw); err == nil {
			rule.EffectiveDate = d
			rule.HasEffectiveDate = true
		}
	}
	return rule
}

// normalizeOperator folds the operator aliases (starts_with/startsWith) into
// one canonical lower-case form.
func normalizeOperator(op string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(op)), "_", "")
}

// IsActive reports whether the rule may be evaluated.
func (r MappingRule) IsActive() bool {
	return r.Status == StatusActive
}

// InEffect reports whether the rule is effective on the given day. Rules
// without an effective date are always in effect.
func (r MappingRule) InEffect(today time.Time) bool {
	if !r.HasEffectiveDate {
		return true
	}
	return !r.EffectiveDate.After(today)
}

// AppliesTo reports whether the rule targets the given source type and
// counterparty (directly or via the SYSTEM fallback scope).
func (r MappingRule) AppliesTo(source SourceType, counterpartyID string) bool {
	if !strings.EqualFold(r.SourceType, string(source)) {
		return false
	}
	return r.CounterpartyID == counterpartyID || r.CounterpartyID == SentinelSystem
}

// IsSystem reports whether the rule is a universal fallback rule.
func (r MappingRule) IsSystem() bool {
	return r.CounterpartyID == SentinelSystem
}

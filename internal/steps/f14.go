package steps

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// F14Mapping classifies the transaction into a canonical internal type by
// evaluating counterparty-scoped mapping rules. Counterparty-specific rules
// always win over SYSTEM fallback rules; within a scope, lower priority
// values win. UNMATCHED is a valid outcome, never an error.
type F14Mapping struct{}

// NewF14Mapping creates the rule mapping step.
func NewF14Mapping() *F14Mapping {
	return &F14Mapping{}
}

func (s *F14Mapping) Name() string { return "f14_mapping" }

func (s *F14Mapping) ShouldExecute(ec *models.Context) bool {
	return pipeline.NoPriorError(ec)
}

func (s *F14Mapping) Run(ctx context.Context, ec *models.Context, env *pipeline.Env) models.StepResult {
	cpid := ec.Enrichment(models.KeyCounterpartyID, models.SentinelUnknown)

	rules, err := s.loadRules(ctx, env, ec, cpid)
	if err != nil {
		return models.Failed("rule lookup failed: " + err.Error())
	}

	if len(rules) == 0 {
		ec.Enrich(models.KeyInternalType, models.SentinelUnmatched)
		ec.SetStatus(models.StatusF14NoRules)
		env.Exception(ctx, ec, models.ExcNoF14Rules,
			fmt.Sprintf("no active rules for counterparty %s or SYSTEM (%s)", cpid, ec.Source),
			models.PriorityHigh)
		return models.Succeeded("no rules configured")
	}

	sortRules(rules)

	for i, rule := range rules {
		matched, err := s.evalRule(ec, rule)
		if err != nil {
			env.Log.Debug("rule evaluation error",
				zap.String("transaction_id", ec.TransactionID),
				zap.String("rule_id", rule.ID),
				zap.Error(err))
			continue
		}
		if !matched {
			continue
		}

		ec.Enrich(models.KeyInternalType, rule.InternalType)
		ec.Enrich(models.KeyF14RuleID, rule.ID)
		ec.Enrich(models.KeyF14RuleName, rule.Name)
		ec.Enrich(models.KeyF14RulesEvaluated, strconv.Itoa(i+1))
		ec.SetStatus(models.StatusF14Mapped)
		env.Audit(ctx, ec, s.Name(), "F14_MAPPED",
			fmt.Sprintf("internal type %s via rule %s", rule.InternalType, rule.ID))
		return models.Succeeded("mapped to " + rule.InternalType)
	}

	ec.Enrich(models.KeyInternalType, models.SentinelUnmatched)
	ec.Enrich(models.KeyF14RulesEvaluated, strconv.Itoa(len(rules)))
	ec.SetStatus(models.StatusF14NoMatch)
	env.Exception(ctx, ec, models.ExcNoRuleMatch, s.noMatchDetails(ec, len(rules)), models.PriorityMedium)
	return models.Succeeded("no rule matched")
}

// loadRules fetches all active rules scoped to the counterparty or SYSTEM
// for the row's source type, dropping rules not yet in effect.
func (s *F14Mapping) loadRules(ctx context.Context, env *pipeline.Env, ec *models.Context, cpid string) ([]models.MappingRule, error) {
	rows, err := env.Store.Find(ctx, store.TableCpTxnMapping, "", nil, "", false, 0, 0)
	if err != nil {
		return nil, err
	}

	today := dateOnly(env.Now())
	rules := make([]models.MappingRule, 0, len(rows))
	for _, row := range rows {
		rule := models.MappingRuleFromRow(row)
		if !rule.IsActive() || !rule.AppliesTo(ec.Source, cpid) || !rule.InEffect(today) {
			continue
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// sortRules orders counterparty-specific rules before SYSTEM rules, then by
// ascending priority, then by rule ID for determinism.
func sortRules(rules []models.MappingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		if rules[i].IsSystem() != rules[j].IsSystem() {
			return !rules[i].IsSystem()
		}
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority < rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

// noMatchDetails enumerates the fields a human needs to author the missing
// rule.
func (s *F14Mapping) noMatchDetails(ec *models.Context, evaluated int) string {
	if ec.Source == models.SourceSecu {
		return fmt.Sprintf("no rule matched after %d rules; type=%q ticker=%q description=%q",
			evaluated, ec.SecuType, ec.Ticker, ec.Description)
	}
	return fmt.Sprintf("no rule matched after %d rules; description=%q d_c=%q other_side=%q",
		evaluated, ec.PaymentDescription, ec.DebitCredit, ec.OtherSideName)
}

var _ pipeline.Step = (*F14Mapping)(nil)

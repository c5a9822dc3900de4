package steps

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
)

// matchingFieldCombined marks rules whose condition is a complex expression
// over several fields instead of one field/operator pair.
const matchingFieldCombined = "combined"

var (
	arithmeticPattern = regexp.MustCompile(`^(>=|<=|>|<)\s*(-?\d+(?:\.\d+)?)$`)
	clausePattern     = regexp.MustCompile(`(?i)^\s*([a-z_]+)\s*(=|CONTAINS)\s*'([^']*)'\s*$`)
)

// evalRule reports whether one rule matches the row.
func (s *F14Mapping) evalRule(ec *models.Context, rule models.MappingRule) (bool, error) {
	if rule.MatchingField == matchingFieldCombined {
		return evalCombined(ec, rule.ComplexRuleExpr)
	}

	value, ok := ec.FieldValue(rule.MatchingField)
	if !ok {
		return false, fmt.Errorf("unknown matching field %q", rule.MatchingField)
	}

	matched, err := applyOperator(rule.MatchOperator, value, rule.MatchValue, rule.CaseSensitive)
	if err != nil || !matched {
		return false, err
	}

	if rule.ArithmeticCondition != "" {
		return evalArithmetic(ec.Amount, rule.ArithmeticCondition)
	}
	return true, nil
}

// applyOperator evaluates one field value against the rule's operator and
// match value. Comparison is case-insensitive unless the rule says otherwise.
func applyOperator(op, value, matchValue string, caseSensitive bool) (bool, error) {
	if op == models.OpRegex {
		pattern := matchValue
		if !caseSensitive {
			pattern = "(?i)" + pattern
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false, fmt.Errorf("invalid rule regex %q: %w", matchValue, err)
		}
		return re.MatchString(value), nil
	}

	if !caseSensitive {
		value = strings.ToUpper(value)
		matchValue = strings.ToUpper(matchValue)
	}

	switch op {
	case models.OpEquals:
		return value == matchValue, nil
	case models.OpContains:
		return strings.Contains(value, matchValue), nil
	case models.OpStartsWith:
		return strings.HasPrefix(value, matchValue), nil
	case models.OpEndsWith:
		return strings.HasSuffix(value, matchValue), nil
	case models.OpIn:
		for _, candidate := range strings.Split(matchValue, ",") {
			if value == strings.TrimSpace(candidate) {
				return true, nil
			}
		}
		return false, nil
	default:
		return false, fmt.Errorf("unknown match operator %q", op)
	}
}

// evalArithmetic applies the rule's amount condition, e.g. ">= 1000".
func evalArithmetic(rawAmount, condition string) (bool, error) {
	groups := arithmeticPattern.FindStringSubmatch(strings.TrimSpace(condition))
	if groups == nil {
		return false, fmt.Errorf("invalid arithmetic condition %q", condition)
	}
	amount, err := pipeline.ParseAmount(rawAmount)
	if err != nil {
		return false, err
	}
	rhs, err := decimal.NewFromString(groups[2])
	if err != nil {
		return false, fmt.Errorf("invalid arithmetic literal %q", groups[2])
	}

	switch groups[1] {
	case ">":
		return amount.GreaterThan(rhs), nil
	case "<":
		return amount.LessThan(rhs), nil
	case ">=":
		return amount.GreaterThanOrEqual(rhs), nil
	default:
		return amount.LessThanOrEqual(rhs), nil
	}
}

// evalCombined evaluates a single-level expression of <field> = '<lit>' and
// <field> CONTAINS '<lit>' clauses joined by all-AND or all-OR. Mixing the
// two connectors at one level is rejected.
func evalCombined(ec *models.Context, expr string) (bool, error) {
	if strings.TrimSpace(expr) == "" {
		return false, fmt.Errorf("combined rule has empty expression")
	}

	conn := " AND "
	if strings.Contains(expr, " OR ") {
		if strings.Contains(expr, " AND ") {
			return false, fmt.Errorf("mixed AND/OR in expression %q", expr)
		}
		conn = " OR "
	}

	anyTrue, allTrue := false, true
	for _, clause := range strings.Split(expr, conn) {
		groups := clausePattern.FindStringSubmatch(clause)
		if groups == nil {
			return false, fmt.Errorf("invalid clause %q in expression", clause)
		}
		value, ok := ec.FieldValue(groups[1])
		if !ok {
			return false, fmt.Errorf("unknown field %q in expression", groups[1])
		}

		value = strings.ToUpper(value)
		literal := strings.ToUpper(groups[3])

		var matched bool
		if strings.EqualFold(groups[2], "CONTAINS") {
			matched = strings.Contains(value, literal)
		} else {
			matched = value == literal
		}

		anyTrue = anyTrue || matched
		allTrue = allTrue && matched
	}

	if conn == " OR " {
		return anyTrue, nil
	}
	return allTrue, nil
}

package pipeline

import (
	"errors"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/finlake/enrich/internal/models"
)

// ParseAmount parses a raw amount string, tolerating currency symbols,
// thousands separators, surrounding whitespace, and an appended or prepended
// currency code. The sign is preserved.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, errors.New("amount is empty")
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r == ',' || unicode.IsSpace(r):
		case r == '$' || r == '€' || r == '£' || r == '¥':
		default:
			b.WriteRune(r)
		}
	}
	s = b.String()

	sign := ""
	if strings.HasPrefix(s, "-") || strings.HasPrefix(s, "+") {
		sign = s[:1]
		s = s[1:]
	}
	s = strings.TrimFunc(s, unicode.IsLetter)
	if s == "" {
		return decimal.Zero, errors.New("amount has no numeric part: " + raw)
	}

	amount, err := decimal.NewFromString(sign + s)
	if err != nil {
		return decimal.Zero, errors.New("invalid amount: " + raw)
	}
	return amount, nil
}

// Priority thresholds on the absolute amount.
var (
	thresholdCritical = decimal.NewFromInt(1_000_000)
	thresholdHigh     = decimal.NewFromInt(100_000)
	thresholdMedium   = decimal.NewFromInt(10_000)
)

// PriorityForAmount derives an exception priority from the absolute amount.
func PriorityForAmount(amount decimal.Decimal) models.Priority {
	abs := amount.Abs()
	switch {
	case abs.GreaterThanOrEqual(thresholdCritical):
		return models.PriorityCritical
	case abs.GreaterThanOrEqual(thresholdHigh):
		return models.PriorityHigh
	case abs.GreaterThanOrEqual(thresholdMedium):
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

// AmountPriority parses the context amount and derives a priority, falling
// back to low when the amount cannot be parsed.
func AmountPriority(ec *models.Context) models.Priority {
	amount, err := ParseAmount(ec.Amount)
	if err != nil {
		return models.PriorityLow
	}
	return PriorityForAmount(amount)
}

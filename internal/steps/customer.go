package steps

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// Identification methods in order of preference.
const (
	methodDirectID     = "DIRECT_ID"
	methodAccount      = "ACCOUNT_NUMBER"
	methodExtractedReg = "EXTRACTED_REGISTRATION"
	methodNamePattern  = "NAME_PATTERN"
	methodNone         = "NONE"
)

// lowConfidenceThreshold triggers an advisory when the winning method is
// weaker than this.
const lowConfidenceThreshold = 80

var (
	customerKeyPattern = regexp.MustCompile(`^[A-Z]+-\d+$`)
	regTokenPattern    = regexp.MustCompile(`(?i)(?:REGISTRATION|REGNUM|REG)[:\-]\s*(\S+)`)
)

// CustomerIdentification resolves the customer behind a BANK transaction by
// trying increasingly fuzzy methods, each with a confidence score. Securities
// rows are the bank's own book and have no individual customer, so the step
// only runs for BANK rows.
type CustomerIdentification struct{}

// NewCustomerIdentification creates the customer identification step.
func NewCustomerIdentification() *CustomerIdentification {
	return &CustomerIdentification{}
}

func (s *CustomerIdentification) Name() string { return "customer_identification" }

func (s *CustomerIdentification) ShouldExecute(ec *models.Context) bool {
	return pipeline.NoPriorError(ec) && ec.Source == models.SourceBank
}

// match is one identification outcome before post-processing.
type match struct {
	customer   models.Customer
	confidence int
	method     string
}

func (s *CustomerIdentification) Run(ctx context.Context, ec *models.Context, env *pipeline.Env) models.StepResult {
	rows, err := env.Store.Find(ctx, store.TableCustomerMaster, "", nil, "", false, 0, 0)
	if err != nil {
		return models.Failed("customer master lookup failed: " + err.Error())
	}
	customers := make([]models.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, models.CustomerFromRow(row))
	}

	found, ok := s.byDirectID(customers, ec.CustomerIDRaw)
	if !ok {
		found, ok, err = s.byAccountNumber(ctx, env.Store, customers, ec.AccountNumber)
		if err != nil {
			return models.Failed("customer account lookup failed: " + err.Error())
		}
	}
	if !ok {
		found, ok = s.byExtractedRegistration(customers, ec)
	}
	if !ok {
		found, ok = s.byNamePattern(customers, ec.OtherSideName)
	}

	if !ok {
		ec.Enrich(models.KeyCustomerID, models.SentinelUnknown)
		ec.Enrich(models.KeyCustomerConf, "0")
		ec.Enrich(models.KeyCustomerMethod, methodNone)
		ec.SetStatus(models.StatusCustomerIdentified)
		env.Exception(ctx, ec, models.ExcMissingCustomer,
			"no customer could be identified for this transaction", models.PriorityHigh)
		return models.Succeeded("customer unknown")
	}

	cust := found.customer
	ec.Enrich(models.KeyCustomerID, cust.ID)
	ec.Enrich(models.KeyCustomerName, cust.Name)
	ec.Enrich(models.KeyCustomerCode, cust.ShortName)
	ec.Enrich(models.KeyCustomerType, cust.CustomerType)
	ec.Enrich(models.KeyCustomerBaseCcy, cust.BaseCurrency)
	ec.Enrich(models.KeyCustomerRisk, cust.RiskLevel)
	ec.Enrich(models.KeyCustomerConf, strconv.Itoa(found.confidence))
	ec.Enrich(models.KeyCustomerMethod, found.method)

	ec.SetStatus(models.StatusCustomerIdentified)

	if !cust.IsActive() {
		env.Exception(ctx, ec, models.ExcInactiveCustomer,
			fmt.Sprintf("customer %s matched but is not active", cust.ID), models.PriorityHigh)
	}
	if found.confidence < lowConfidenceThreshold {
		env.Exception(ctx, ec, models.ExcLowConfidence,
			fmt.Sprintf("customer %s identified via %s with confidence %d",
				cust.ID, found.method, found.confidence),
			models.PriorityLow)
	}

	env.Audit(ctx, ec, s.Name(), "CUSTOMER_IDENTIFIED",
		fmt.Sprintf("customer %s via %s (confidence %d)", cust.ID, found.method, found.confidence))
	return models.Succeeded(fmt.Sprintf("customer %s identified via %s", cust.ID, found.method))
}

// byDirectID treats the raw identifier as a customer key when it looks like
// one, otherwise as a registration number, personal ID, or tax ID, in that
// preference order. First store row wins on duplicates.
func (s *CustomerIdentification) byDirectID(customers []models.Customer, raw string) (match, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return match{}, false
	}

	if customerKeyPattern.MatchString(raw) {
		for _, c := range customers {
			if c.ID == raw {
				return match{customer: c, confidence: 100, method: methodDirectID}, true
			}
		}
		return match{}, false
	}

	for _, pick := range []func(models.Customer) string{
		func(c models.Customer) string { return c.RegistrationNumber },
		func(c models.Customer) string { return c.PersonalID },
		func(c models.Customer) string { return c.TaxID },
	} {
		for _, c := range customers {
			if v := pick(c); v != "" && v == raw {
				return match{customer: c, confidence: 100, method: methodDirectID}, true
			}
		}
	}
	return match{}, false
}

// byAccountNumber resolves through the customer-account mapping first, then
// through account fields on the customer master.
func (s *CustomerIdentification) byAccountNumber(ctx context.Context, st store.Store, customers []models.Customer, account string) (match, bool, error) {
	account = strings.TrimSpace(account)
	if account == "" {
		return match{}, false, nil
	}

	mappings, err := st.Find(ctx, store.TableCustomerAccount,
		"account_number = ? AND status = ?", []any{account, models.StatusActive}, "", false, 0, 0)
	if err != nil {
		return match{}, false, err
	}
	for _, m := range mappings {
		for _, c := range customers {
			if c.ID == m["customer_id"] {
				return match{customer: c, confidence: 95, method: methodAccount}, true, nil
			}
		}
	}

	for _, c := range customers {
		if c.BankAccountNumber == account || c.PrimaryAccount == account {
			return match{customer: c, confidence: 95, method: methodAccount}, true, nil
		}
	}
	return match{}, false, nil
}

// byExtractedRegistration scans the reference number and payment description
// for REG:/REGNUM:/REGISTRATION: tokens and reuses the direct-ID lookup on
// each extracted value.
func (s *CustomerIdentification) byExtractedRegistration(customers []models.Customer, ec *models.Context) (match, bool) {
	for _, text := range []string{ec.ReferenceNumber, ec.PaymentDescription} {
		for _, group := range regTokenPattern.FindAllStringSubmatch(text, -1) {
			if m, ok := s.byDirectID(customers, group[1]); ok {
				m.confidence = 90
				m.method = methodExtractedReg
				return m, true
			}
		}
	}
	return match{}, false
}

// byNamePattern matches the other-side name against customer names, exact
// first, then substring either direction when both strings are long enough
// and close enough in length.
func (s *CustomerIdentification) byNamePattern(customers []models.Customer, otherSide string) (match, bool) {
	name := strings.ToUpper(strings.TrimSpace(otherSide))
	if name == "" {
		return match{}, false
	}

	for _, c := range customers {
		if strings.ToUpper(c.Name) == name || strings.ToUpper(c.ShortName) == name {
			return match{customer: c, confidence: 70, method: methodNamePattern}, true
		}
	}

	for _, c := range customers {
		for _, candidate := range []string{strings.ToUpper(c.Name), strings.ToUpper(c.ShortName)} {
			if nameSimilar(name, candidate) {
				return match{customer: c, confidence: 70, method: methodNamePattern}, true
			}
		}
	}
	return match{}, false
}

// nameSimilar accepts a substring match in either direction when both
// strings have at least 5 characters and the shorter is at least 70% of the
// longer's length.
func nameSimilar(a, b string) bool {
	if len(a) < 5 || len(b) < 5 {
		return false
	}
	shorter, longer := a, b
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}
	if len(shorter)*10 < len(longer)*7 {
		return false
	}
	return strings.Contains(longer, shorter)
}

var _ pipeline.Step = (*CustomerIdentification)(nil)

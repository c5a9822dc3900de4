package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/pipeline"
	"github.com/finlake/enrich/internal/store"
)

// CounterpartyDetermination resolves the counterparty governing which F14
// rules apply. For both BANK and SECU rows this is the statement's issuing
// bank: F14 rules are authored per statement-issuing institution, so the
// other side of a payment is recorded for reference only.
type CounterpartyDetermination struct{}

// NewCounterpartyDetermination creates the counterparty step.
func NewCounterpartyDetermination() *CounterpartyDetermination {
	return &CounterpartyDetermination{}
}

func (s *CounterpartyDetermination) Name() string { return "counterparty_determination" }

func (s *CounterpartyDetermination) ShouldExecute(ec *models.Context) bool {
	return pipeline.NoPriorError(ec)
}

func (s *CounterpartyDetermination) Run(ctx context.Context, ec *models.Context, env *pipeline.Env) models.StepResult {
	rows, err := env.Store.Find(ctx, store.TableCounterpartyMaster, "", nil, "", false, 0, 0)
	if err != nil {
		return models.Failed("counterparty master lookup failed: " + err.Error())
	}
	active := make([]models.Counterparty, 0, len(rows))
	for _, row := range rows {
		cp := models.CounterpartyFromRow(row)
		if cp.IsActive {
			active = append(active, cp)
		}
	}

	var found *models.Counterparty
	if ec.Source == models.SourceBank {
		ec.Enrich(models.KeyOtherSideBIC, ec.OtherSideBIC)
		ec.Enrich(models.KeyOtherSideName, ec.OtherSideName)
		found, err = s.matchBank(ctx, env.Store, active, ec.StatementBank)
		if err != nil {
			return models.Failed("bank master lookup failed: " + err.Error())
		}
	} else {
		found, err = s.matchSecu(ctx, env.Store, active, ec)
		if err != nil {
			return models.Failed("broker master lookup failed: " + err.Error())
		}
	}

	if found == nil {
		ec.Enrich(models.KeyCounterpartyID, models.SentinelUnknown)
		ec.SetStatus(models.StatusCounterpartyDetermined)
		env.Exception(ctx, ec, models.ExcCounterpartyMiss,
			fmt.Sprintf("no active counterparty for statement bank %s", ec.StatementBank),
			pipeline.AmountPriority(ec))
		return models.Succeeded("counterparty unknown")
	}

	ec.Enrich(models.KeyCounterpartyID, found.ID)
	ec.Enrich(models.KeyCounterpartyType, found.Type)
	ec.Enrich(models.KeyCounterpartyBIC, ec.StatementBank)
	ec.Enrich(models.KeyCounterpartyName, found.Name)
	if found.ShortCode != "" {
		ec.Enrich(models.KeyCounterpartyCode, found.ShortCode)
	}

	ec.SetStatus(models.StatusCounterpartyDetermined)
	env.Audit(ctx, ec, s.Name(), "COUNTERPARTY_DETERMINED",
		fmt.Sprintf("counterparty %s (%s) for statement bank %s", found.ID, found.Type, ec.StatementBank))
	return models.Succeeded("counterparty " + found.ID + " determined")
}

// matchBank finds the Bank-typed counterparty for the statement's issuing
// bank, first by raw BIC, then through the bank master for counterparties
// keyed by bank-master id.
func (s *CounterpartyDetermination) matchBank(ctx context.Context, st store.Store, active []models.Counterparty, statementBank string) (*models.Counterparty, error) {
	if statementBank == "" {
		return nil, nil
	}
	for i := range active {
		if active[i].Type == models.CounterpartyBank && active[i].BankID == statementBank {
			return &active[i], nil
		}
	}

	banks, err := st.Find(ctx, store.TableBank, "bic = ?", []any{statementBank}, "", false, 0, 0)
	if err != nil {
		return nil, err
	}
	for _, bank := range banks {
		for i := range active {
			if active[i].Type == models.CounterpartyBank && active[i].BankID == bank[store.PrimaryKey] {
				return &active[i], nil
			}
		}
	}
	return nil, nil
}

// matchSecu resolves the issuing bank acting as custodian or broker. The
// counterparty type is inferred from the transaction type string; brokers
// require an indirection through the broker master.
func (s *CounterpartyDetermination) matchSecu(ctx context.Context, st store.Store, active []models.Counterparty, ec *models.Context) (*models.Counterparty, error) {
	if ec.StatementBank == "" {
		return nil, nil
	}

	if inferSecuCounterpartyType(ec.SecuType) == models.CounterpartyBroker {
		brokers, err := st.Find(ctx, store.TableBroker, "bic = ?", []any{ec.StatementBank}, "", false, 0, 0)
		if err != nil {
			return nil, err
		}
		for _, broker := range brokers {
			for i := range active {
				if active[i].Type == models.CounterpartyBroker && active[i].BrokerID == broker[store.PrimaryKey] {
					return &active[i], nil
				}
			}
		}
		return nil, nil
	}

	for i := range active {
		if active[i].Type == models.CounterpartyCustodian && active[i].CustodianID == ec.StatementBank {
			return &active[i], nil
		}
	}
	return nil, nil
}

// inferSecuCounterpartyType classifies the issuing institution from the
// securities transaction type. Trading activity points at a broker,
// safekeeping and income activity at a custodian; custodian is the default.
func inferSecuCounterpartyType(secuType string) string {
	upper := strings.ToUpper(secuType)
	for _, token := range []string{"BUY", "SELL", "TRADE"} {
		if strings.Contains(upper, token) {
			return models.CounterpartyBroker
		}
	}
	for _, token := range []string{"CUSTODY", "SAFEKEEPING", "DIVIDEND", "CORPORATE"} {
		if strings.Contains(upper, token) {
			return models.CounterpartyCustodian
		}
	}
	return models.CounterpartyCustodian
}

var _ pipeline.Step = (*CounterpartyDetermination)(nil)

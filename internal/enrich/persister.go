package enrich

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

// Input-row statuses written back after a run.
const (
	InputStatusEnriched = "enriched"
	InputStatusFailed   = "failed"
)

// Persister writes enriched records back to the store. The contract is one
// success return per context it accepts.
type Persister interface {
	Persist(ctx context.Context, st store.Store, ecs []*models.Context, batch models.BatchResult) error
}

// StorePersister upserts one enriched_transactions row per context and flips
// the input row's status.
type StorePersister struct {
	log *zap.Logger
}

// NewStorePersister creates the default persister.
func NewStorePersister(log *zap.Logger) *StorePersister {
	if log == nil {
		log = zap.NewNop()
	}
	return &StorePersister{log: log}
}

// persistedKeys are the enrichment keys written to the enriched table.
var persistedKeys = []string{
	models.KeyCurrencyName, models.KeyCurrencySymbol, models.KeyCurrencyDecimals,
	models.KeyOriginalAmount, models.KeyOriginalCurrency,
	models.KeyBaseAmount, models.KeyBaseFee, models.KeyBaseCurrency,
	models.KeyFXRate, models.KeyFXRateDate, models.KeyFXRateSource,
	models.KeyCustomerID, models.KeyCustomerName, models.KeyCustomerCode,
	models.KeyCustomerType, models.KeyCustomerBaseCcy, models.KeyCustomerRisk,
	models.KeyCustomerConf, models.KeyCustomerMethod,
	models.KeyCounterpartyID, models.KeyCounterpartyType, models.KeyCounterpartyBIC,
	models.KeyCounterpartyName, models.KeyCounterpartyCode,
	models.KeyOtherSideBIC, models.KeyOtherSideName,
	models.KeyInternalType, models.KeyF14RuleID, models.KeyF14RuleName,
}

func (p *StorePersister) Persist(ctx context.Context, st store.Store, ecs []*models.Context, batch models.BatchResult) error {
	success := make(map[string]bool, len(batch.Rows))
	for _, row := range batch.Rows {
		success[row.TransactionID] = row.OverallSuccess
	}

	for _, ec := range ecs {
		if err := st.SaveOrUpdate(ctx, store.TableEnriched, enrichedRow(ec)); err != nil {
			return fmt.Errorf("failed to persist enriched transaction %s: %w", ec.TransactionID, err)
		}

		status := InputStatusEnriched
		if !success[ec.TransactionID] {
			status = InputStatusFailed
		}
		if err := p.markInput(ctx, st, ec.TransactionID, status); err != nil {
			return err
		}
	}

	p.log.Info("batch persisted",
		zap.Int("rows", len(ecs)),
		zap.Int("succeeded", batch.Succeeded),
		zap.Int("failed", batch.Failed))
	return nil
}

func (p *StorePersister) markInput(ctx context.Context, st store.Store, id, status string) error {
	row, err := st.Load(ctx, store.TableInputTransactions, id)
	if err != nil {
		return fmt.Errorf("failed to reload input row %s: %w", id, err)
	}
	if row == nil {
		return nil
	}
	row["status"] = status
	if err := st.SaveOrUpdate(ctx, store.TableInputTransactions, row); err != nil {
		return fmt.Errorf("failed to update input row %s: %w", id, err)
	}
	return nil
}

// enrichedRow flattens a context into the enriched_transactions row.
func enrichedRow(ec *models.Context) store.Row {
	row := store.Row{
		store.PrimaryKey:   ec.TransactionID,
		"statement_id":     ec.StatementID,
		"source_type":      string(ec.Source),
		"currency":         ec.Currency,
		"amount":           ec.Amount,
		"customer_id_raw":  ec.CustomerIDRaw,
		"statement_bank":   ec.StatementBank,
		"processing_status": ec.ProcessingStatus,
		"processed_steps":  strings.Join(ec.ProcessedSteps, ","),
		"error_message":    ec.ErrorMessage,
	}
	if !ec.TransactionDate.IsZero() {
		row["transaction_date"] = ec.TransactionDate.Format(models.DateLayout)
	}
	for _, key := range persistedKeys {
		if v, ok := ec.Enrichments[key]; ok && v != "" {
			row[key] = v
		}
	}
	return row
}

var _ Persister = (*StorePersister)(nil)

// Package enrich wires the pipeline together: it loads pending input rows,
// runs the five enrichment steps as a batch, and hands the enriched contexts
// to the persister.
package enrich

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/finlake/enrich/internal/models"
	"github.com/finlake/enrich/internal/store"
)

// InputStatusPending marks input rows awaiting enrichment.
const InputStatusPending = "pending"

// Config are the options recognized for one enrichment run.
type Config struct {
	BatchID     string
	StatementID string
	StopOnError bool
	Workers     int
}

// Loader delivers contexts pre-populated from input rows.
type Loader interface {
	LoadData(ctx context.Context, st store.Store, cfg Config) ([]*models.Context, error)
}

// StoreLoader reads pending rows from the input_transactions table.
type StoreLoader struct {
	log *zap.Logger
}

// NewStoreLoader creates the default loader.
func NewStoreLoader(log *zap.Logger) *StoreLoader {
	if log == nil {
		log = zap.NewNop()
	}
	return &StoreLoader{log: log}
}

func (l *StoreLoader) LoadData(ctx context.Context, st store.Store, cfg Config) ([]*models.Context, error) {
	where := "status = ?"
	params := []any{InputStatusPending}
	if cfg.StatementID != "" {
		where += " AND statement_id = ?"
		params = append(params, cfg.StatementID)
	}

	rows, err := st.Find(ctx, store.TableInputTransactions, where, params, store.PrimaryKey, false, 0, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to load input transactions: %w", err)
	}

	contexts := make([]*models.Context, 0, len(rows))
	for _, row := range rows {
		ec := contextFromRow(row)
		if err := ec.Validate(); err != nil {
			l.log.Warn("skipping invalid input row",
				zap.String("row_id", row[store.PrimaryKey]),
				zap.Error(err))
			continue
		}
		contexts = append(contexts, ec)
	}
	return contexts, nil
}

// contextFromRow maps the logical input fields onto a fresh context.
func contextFromRow(row store.Row) *models.Context {
	ec := models.NewContext(row[store.PrimaryKey], row["statement_id"], models.SourceType(row["source_type"]))
	ec.Currency = row["currency"]
	ec.Amount = row["amount"]
	ec.CustomerIDRaw = row["customer_id_raw"]
	ec.StatementBank = row["statement_bank"]
	ec.OtherSideName = row["other_side_name"]
	ec.OtherSideBIC = row["other_side_bic"]
	ec.PaymentDescription = row["payment_description"]
	ec.ReferenceNumber = row["reference_number"]
	ec.DebitCredit = row["debit_credit"]
	ec.AccountNumber = row["account_number"]
	ec.Ticker = row["ticker"]
	ec.SecuType = row["type"]
	ec.Description = row["description"]
	ec.Reference = row["reference"]
	ec.Fee = row["fee"]

	if raw := row["transaction_date"]; raw != "" {
		if d, err := time.Parse(models.DateLayout, raw); err == nil {
			ec.TransactionDate = d
		} else if d, err := time.Parse(time.RFC3339, raw); err == nil {
			ec.TransactionDate = d.UTC().Truncate(24 * time.Hour)
		}
	}
	return ec
}

var _ Loader = (*StoreLoader)(nil)

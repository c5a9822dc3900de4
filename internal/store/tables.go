package store

// Logical table names consumed and produced by the engine.
const (
	TableCurrencyMaster     = "currency_master"
	TableCounterpartyMaster = "counterparty_master"
	TableCustomerMaster     = "customer_master"
	TableCustomerAccount    = "customer_account"
	TableBank               = "bank"
	TableBroker             = "broker"
	TableFXRatesEUR         = "fx_rates_eur"
	TableCpTxnMapping       = "cp_txn_mapping"
	TableInputTransactions  = "input_transactions"
	TableEnriched           = "enriched_transactions"
	TableAuditLog           = "audit_log"
	TableExceptionQueue     = "exception_queue"
)

// tableDef maps a logical table to its physical name and any logical fields
// whose physical column differs. Fields absent from the map pass through.
type tableDef struct {
	physical string
	columns  map[string]string
}

var tableDefs = map[string]tableDef{
	TableCurrencyMaster:     {physical: "currency_master"},
	TableCounterpartyMaster: {physical: "counterparty_master"},
	TableCustomerMaster:     {physical: "customer_master"},
	TableCustomerAccount:    {physical: "customer_account_map"},
	TableBank:               {physical: "bank_master"},
	TableBroker:             {physical: "broker_master"},
	TableFXRatesEUR:         {physical: "fx_rates_eur"},
	TableCpTxnMapping: {
		physical: "counterparty_txn_mapping",
		// "type" is reserved in parts of the legacy schema.
		columns: map[string]string{"source_type": "src_type"},
	},
	TableInputTransactions: {
		physical: "input_transactions",
		columns:  map[string]string{"type": "secu_type"},
	},
	TableEnriched: {
		physical: "enriched_transactions",
		columns:  map[string]string{"type": "secu_type"},
	},
	TableAuditLog:       {physical: "audit_log"},
	TableExceptionQueue: {physical: "exception_queue"},
}

func (d tableDef) column(logical string) string {
	if phys, ok := d.columns[logical]; ok {
		return phys
	}
	return logical
}

func (d tableDef) logical(physical string) string {
	for l, p := range d.columns {
		if p == physical {
			return l
		}
	}
	return physical
}
